package recurrence

import (
	"context"
	"sort"
)

type StubTemplateRepo struct {
	data map[string]Template
}

func NewStubTemplateRepo() *StubTemplateRepo {
	return &StubTemplateRepo{data: map[string]Template{}}
}

func (s *StubTemplateRepo) Store(ctx context.Context, template Template) error {
	s.data[template.ID] = template
	return nil
}

func (s *StubTemplateRepo) GetAll(ctx context.Context) ([]Template, error) {
	templates := make([]Template, 0, len(s.data))
	for _, template := range s.data {
		templates = append(templates, template)
	}
	sort.Slice(templates, func(i, j int) bool { return templates[i].ID < templates[j].ID })
	return templates, nil
}

func (s *StubTemplateRepo) GetByID(ctx context.Context, id string) (Template, bool, error) {
	template, ok := s.data[id]
	return template, ok, nil
}

func (s *StubTemplateRepo) Update(ctx context.Context, template Template) (bool, error) {
	if _, ok := s.data[template.ID]; !ok {
		return false, nil
	}
	s.data[template.ID] = template
	return true, nil
}

func (s *StubTemplateRepo) Delete(ctx context.Context, id string) (bool, error) {
	if _, ok := s.data[id]; !ok {
		return false, nil
	}
	delete(s.data, id)
	return true, nil
}

func (s *StubTemplateRepo) Cleanup() {
	s.data = map[string]Template{}
}
