package patients

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/novadent/novadent/internal/shared"
)

// RepositoryPort abstracts repository usage for the service.
type RepositoryPort interface {
	Get(ctx context.Context, id int64) (Patient, error)
	Insert(ctx context.Context, p Patient) (int64, error)
	Update(ctx context.Context, p Patient) error
	Search(ctx context.Context, query string, limit, offset int) ([]Patient, error)
	CountSearch(ctx context.Context, query string) (int, error)
}

// Service manages the patient registry.
type Service struct {
	repo  RepositoryPort
	title cases.Caser
}

// NewService builds Service.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo, title: cases.Title(language.English)}
}

// Register creates a new patient. Names are trimmed and title-cased so
// lookups stay consistent regardless of front-desk typing habits.
func (s *Service) Register(ctx context.Context, p Patient) (Patient, error) {
	p.FirstName = s.normalizeName(p.FirstName)
	p.LastName = s.normalizeName(p.LastName)
	if p.FirstName == "" || p.LastName == "" {
		return Patient{}, fmt.Errorf("patients: first and last name required")
	}
	id, err := s.repo.Insert(ctx, p)
	if err != nil {
		return Patient{}, err
	}
	p.ID = id
	return p, nil
}

// Update edits patient details.
func (s *Service) Update(ctx context.Context, p Patient) error {
	p.FirstName = s.normalizeName(p.FirstName)
	p.LastName = s.normalizeName(p.LastName)
	if p.FirstName == "" || p.LastName == "" {
		return fmt.Errorf("patients: first and last name required")
	}
	return s.repo.Update(ctx, p)
}

// Get fetches one patient.
func (s *Service) Get(ctx context.Context, id int64) (Patient, error) {
	return s.repo.Get(ctx, id)
}

// Search lists a page of patients matching a name fragment.
func (s *Service) Search(ctx context.Context, query string, page, perPage int) ([]Patient, shared.Pagination, error) {
	query = strings.TrimSpace(query)
	total, err := s.repo.CountSearch(ctx, query)
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	pagination := shared.NewPagination(page, perPage, total)
	list, err := s.repo.Search(ctx, query, pagination.PerPage, (pagination.Page-1)*pagination.PerPage)
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	return list, pagination, nil
}

func (s *Service) normalizeName(name string) string {
	return s.title.String(strings.ToLower(strings.TrimSpace(name)))
}
