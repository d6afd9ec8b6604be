package wells

import (
	"context"
	"errors"
	"strings"
)

// Service contains read-side logic for wells and their curves.
type Service struct {
	Repo   Repo
	Curves CurveRepo
}

func (s *Service) List(ctx context.Context) ([]Well, error) {
	return s.Repo.List(ctx)
}

func (s *Service) Get(ctx context.Context, id int64) (Well, error) {
	if id <= 0 {
		return Well{}, ErrInvalidInput
	}
	return s.Repo.Get(ctx, id)
}

// CurveNames returns distinct curve names for an existing well.
func (s *Service) CurveNames(ctx context.Context, id int64) ([]string, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	return s.Curves.Names(ctx, id)
}

// DepthRange returns the depth span of an existing well's curves.
func (s *Service) DepthRange(ctx context.Context, id int64) (DepthRange, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return DepthRange{}, err
	}
	return s.Curves.DepthRange(ctx, id)
}

// FindOrCreate returns the well named name, creating it when missing.
// created reports whether a new row was inserted.
func (s *Service) FindOrCreate(ctx context.Context, name string) (Well, bool, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Well{}, false, ErrInvalidInput
	}
	w, err := s.Repo.GetByName(ctx, name)
	if err == nil {
		return w, false, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return Well{}, false, err
	}
	w, err = s.Repo.Create(ctx, name)
	if err != nil {
		return Well{}, false, err
	}
	return w, true, nil
}

// Remove deletes a well together with its curves.
func (s *Service) Remove(ctx context.Context, id int64) error {
	if err := s.Curves.DeleteByWell(ctx, id); err != nil {
		return err
	}
	if err := s.Repo.Delete(ctx, id); err != nil && !errors.Is(err, ErrNotFound) {
		return err
	}
	return nil
}
