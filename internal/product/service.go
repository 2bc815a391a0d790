package product

import "strings"

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// List returns the catalog, optionally restricted to one category
// (case-insensitive).
func (s *Service) List(category string) ([]Product, error) {
	all, err := s.repo.List()
	if err != nil {
		return nil, err
	}
	if category == "" {
		return all, nil
	}
	out := make([]Product, 0, len(all))
	for _, p := range all {
		if strings.EqualFold(p.Category, category) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *Service) GetByID(id int) (Product, error) {
	if id <= 0 {
		return Product{}, ErrNotFound
	}
	return s.repo.GetByID(id)
}

func (s *Service) ListByIDs(ids []int) ([]Product, error) {
	return s.repo.ListByIDs(ids)
}

func (s *Service) Categories() ([]string, error) {
	return s.repo.Categories()
}
