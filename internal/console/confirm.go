package console

import (
	"context"
	"errors"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"lasdesk/internal/views"
)

// HuhConfirmer asks for confirmation with a huh form.
type HuhConfirmer struct {
	Accessible bool
}

func (h HuhConfirmer) Confirm(ctx context.Context, title, detail string) (bool, error) {
	var ok bool
	confirm := huh.NewConfirm().
		Title(title).
		Description(detail).
		WithButtonAlignment(lipgloss.Left).
		Affirmative("Yes").
		Negative("No").
		Value(&ok)
	err := huh.NewForm(huh.NewGroup(confirm)).
		WithAccessible(h.Accessible).
		RunWithContext(ctx)
	if errors.Is(err, huh.ErrUserAborted) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return ok, nil
}

// confirmer picks the prompt for a command run.
func confirmer(yes bool, fallback views.Confirmer) views.Confirmer {
	if yes {
		return views.AutoConfirm{}
	}
	if fallback != nil {
		return fallback
	}
	return HuhConfirmer{}
}
