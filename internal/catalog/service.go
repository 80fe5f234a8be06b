package catalog

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
)

// RepositoryPort abstracts repository usage for the service.
type RepositoryPort interface {
	Get(ctx context.Context, id int64) (Procedure, error)
	List(ctx context.Context, activeOnly bool) ([]Procedure, error)
	Insert(ctx context.Context, p Procedure) (int64, error)
	Update(ctx context.Context, p Procedure) error
}

// Service manages the procedure catalog and answers price lookups for visit
// completion.
type Service struct {
	repo RepositoryPort
}

// NewService builds Service.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

// Get fetches one procedure.
func (s *Service) Get(ctx context.Context, id int64) (Procedure, error) {
	return s.repo.Get(ctx, id)
}

// List lists procedures.
func (s *Service) List(ctx context.Context, activeOnly bool) ([]Procedure, error) {
	return s.repo.List(ctx, activeOnly)
}

// Create adds a procedure to the catalog.
func (s *Service) Create(ctx context.Context, p Procedure) (Procedure, error) {
	if err := validate(p); err != nil {
		return Procedure{}, err
	}
	id, err := s.repo.Insert(ctx, p)
	if err != nil {
		return Procedure{}, err
	}
	p.ID = id
	return p, nil
}

// Update edits a procedure.
func (s *Service) Update(ctx context.Context, p Procedure) error {
	if err := validate(p); err != nil {
		return err
	}
	return s.repo.Update(ctx, p)
}

// Price returns the list price for a procedure id. A nil id means the visit
// has no service attached and prices at zero.
func (s *Service) Price(ctx context.Context, id *int64) (decimal.Decimal, error) {
	if id == nil {
		return decimal.Zero, nil
	}
	p, err := s.repo.Get(ctx, *id)
	if err != nil {
		return decimal.Zero, err
	}
	return p.Price, nil
}

func validate(p Procedure) error {
	if p.Name == "" {
		return fmt.Errorf("catalog: name required")
	}
	if p.Price.Sign() < 0 {
		return fmt.Errorf("catalog: price must be >= 0")
	}
	return nil
}
