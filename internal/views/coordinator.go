// Package views holds the list and detail view state of the terminal
// client and the optimistic mutation discipline they share.
package views

import (
	"context"
	"errors"

	"lasdesk/internal/client"
	"lasdesk/internal/shared/telemetry"
)

var (
	// ErrCancelled is returned when the user declines a confirmation.
	ErrCancelled = errors.New("views: cancelled")
	// ErrNothingSelected is returned by bulk actions on an empty selection.
	ErrNothingSelected = errors.New("views: no files selected")
)

// Notifier shows short-lived messages to the user.
type Notifier interface {
	Success(msg string)
	Error(msg string)
}

// Confirmer blocks until the user accepts or declines.
type Confirmer interface {
	Confirm(ctx context.Context, title, detail string) (bool, error)
}

// AutoConfirm accepts every confirmation.
type AutoConfirm struct{}

func (AutoConfirm) Confirm(context.Context, string, string) (bool, error) { return true, nil }

// FilesAPI is the subset of the REST client the views call.
type FilesAPI interface {
	ListFiles(ctx context.Context, filter client.Filter) ([]client.FileRecord, error)
	StartProcessing(ctx context.Context, id int64) (client.ProcessStatus, error)
	PatchFile(ctx context.Context, id int64, patch client.FilePatch) (client.FileRecord, error)
	BulkPatch(ctx context.Context, ids []int64, patch client.FilePatch) (int, error)
	DeletePermanent(ctx context.Context, id int64) error
	BulkDeletePermanent(ctx context.Context, ids []int64) (int, error)
}

// Confirmation is the prompt shown before a destructive mutation.
type Confirmation struct {
	Title  string
	Detail string
}

// Mutation describes one optimistic change. Apply patches local state and
// may return a revert func; without one, a failed request triggers Reload.
type Mutation struct {
	Confirm *Confirmation
	Apply   func() (revert func())
	Request func(ctx context.Context) error
	Reload  func(ctx context.Context) error
	Success string
	Failure string
}

// Coordinator runs mutations: confirm, patch locally, request, then keep
// the patch or roll it back.
type Coordinator struct {
	notify  Notifier
	confirm Confirmer
	logger  telemetry.Logger
}

// NewCoordinator constructs a Coordinator. A nil confirmer declines every
// destructive action.
func NewCoordinator(notify Notifier, confirm Confirmer, logger telemetry.Logger) *Coordinator {
	if logger == nil {
		logger = telemetry.Nop{}
	}
	return &Coordinator{notify: notify, confirm: confirm, logger: logger}
}

// Run executes m. The local patch is applied only after confirmation.
func (c *Coordinator) Run(ctx context.Context, m Mutation) error {
	if m.Confirm != nil {
		if c.confirm == nil {
			return ErrCancelled
		}
		ok, err := c.confirm.Confirm(ctx, m.Confirm.Title, m.Confirm.Detail)
		if err != nil {
			c.error(m.Failure, err)
			return err
		}
		if !ok {
			return ErrCancelled
		}
	}

	var revert func()
	if m.Apply != nil {
		revert = m.Apply()
	}
	if err := m.Request(ctx); err != nil {
		switch {
		case revert != nil:
			revert()
		case m.Reload != nil:
			if rerr := m.Reload(ctx); rerr != nil {
				c.logger.Warn("views.reload_failed", map[string]any{"error": rerr.Error()})
			}
		}
		c.error(m.Failure, err)
		return err
	}
	if m.Success != "" && c.notify != nil {
		c.notify.Success(m.Success)
	}
	return nil
}

func (c *Coordinator) error(prefix string, err error) {
	if c.notify == nil {
		return
	}
	msg := client.Detail(err)
	if prefix != "" {
		msg = prefix + ": " + msg
	}
	c.notify.Error(msg)
}
