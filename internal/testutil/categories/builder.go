// Package categories seeds category trees for tests through a fluent builder.
//
//	cats, err := categories.NewBuilder(t).
//		WithBasicCategories().
//		WithChild(categories.CategoryFood, "Padaria").
//		Build(ctx, store)
package categories

import (
	"context"
	"fmt"
	"testing"

	"github.com/Veraticus/financas/internal/model"
	"github.com/Veraticus/financas/internal/service"
)

// Builder provides a fluent interface for constructing test categories.
type Builder interface {
	// WithCategory adds a root category of the given kind.
	WithCategory(name CategoryName, kind model.Kind) Builder

	// WithChild adds a category under parent, inheriting its kind.
	WithChild(parent, name CategoryName) Builder

	// WithBasicCategories adds the minimal set of categories commonly used in tests.
	WithBasicCategories() Builder

	// WithFixture adds categories from a predefined fixture.
	WithFixture(fixture Fixture) Builder

	// Build creates the categories in the provided store, parents first.
	Build(ctx context.Context, store service.CategoryStore) (Categories, error)

	// BuildMap creates categories and returns them as a map for easy lookup.
	BuildMap(ctx context.Context, store service.CategoryStore) (CategoryMap, error)
}

// CategoryName represents a strongly-typed category name.
type CategoryName string

// String returns the string representation of the category name.
func (c CategoryName) String() string {
	return string(c)
}

// Common category names used across tests.
const (
	CategorySalary      CategoryName = "Salário"
	CategoryInterest    CategoryName = "Juros"
	CategoryFood        CategoryName = "Alimentação"
	CategoryGroceries   CategoryName = "Supermercado"
	CategoryRestaurants CategoryName = "Restaurantes"
	CategoryHousing     CategoryName = "Moradia"
	CategoryRent        CategoryName = "Aluguel"
	CategoryTransport   CategoryName = "Transporte"
	CategoryBankFees    CategoryName = "Tarifas Bancárias"
	CategoryWithdrawals CategoryName = "Saques"
	CategoryTransfers   CategoryName = "Transferências"
)

// Categories represents a collection of created test categories.
type Categories []model.Category

// Find returns the category with the given name, or nil if not found.
func (c Categories) Find(name CategoryName) *model.Category {
	for i := range c {
		if c[i].Name == name.String() {
			return &c[i]
		}
	}
	return nil
}

// MustFind returns the category with the given name, or fails the test if not found.
func (c Categories) MustFind(t *testing.T, name CategoryName) model.Category {
	t.Helper()
	cat := c.Find(name)
	if cat == nil {
		t.Fatalf("category %q not found in test data", name)
	}
	return *cat
}

// Names returns all category names as a slice of strings.
func (c Categories) Names() []string {
	names := make([]string, len(c))
	for i, cat := range c {
		names[i] = cat.Name
	}
	return names
}

// CategoryMap provides O(1) lookup for categories by name.
type CategoryMap map[CategoryName]model.Category

// MustGet returns the category for the given name or fails the test.
func (m CategoryMap) MustGet(t *testing.T, name CategoryName) model.Category {
	t.Helper()
	cat, ok := m[name]
	if !ok {
		t.Fatalf("category %q not found in test data", name)
	}
	return cat
}

type entry struct {
	name   CategoryName
	parent CategoryName
	kind   model.Kind
}

type categoryBuilder struct {
	t       *testing.T
	seen    map[CategoryName]struct{}
	entries []entry
}

// NewBuilder creates a new category builder for the given test.
func NewBuilder(t *testing.T) Builder {
	t.Helper()
	return &categoryBuilder{
		t:    t,
		seen: make(map[CategoryName]struct{}),
	}
}

func (b *categoryBuilder) add(e entry) Builder {
	if _, ok := b.seen[e.name]; ok {
		return b
	}
	b.seen[e.name] = struct{}{}
	b.entries = append(b.entries, e)
	return b
}

func (b *categoryBuilder) WithCategory(name CategoryName, kind model.Kind) Builder {
	return b.add(entry{name: name, kind: kind})
}

func (b *categoryBuilder) WithChild(parent, name CategoryName) Builder {
	return b.add(entry{name: name, parent: parent})
}

func (b *categoryBuilder) WithBasicCategories() Builder {
	return b.WithFixture(FixtureBasic)
}

func (b *categoryBuilder) WithFixture(fixture Fixture) Builder {
	for _, e := range fixture.entries() {
		b.add(e)
	}
	return b
}

func (b *categoryBuilder) Build(ctx context.Context, store service.CategoryStore) (Categories, error) {
	b.t.Helper()

	created := make(map[CategoryName]model.Category, len(b.entries))
	result := make(Categories, 0, len(b.entries))
	for _, e := range b.entries {
		cat := model.Category{
			Name:        e.name.String(),
			Description: "Categoria de teste " + e.name.String(),
			Kind:        e.kind,
		}
		if e.parent != "" {
			parent, ok := created[e.parent]
			if !ok {
				return nil, fmt.Errorf("parent %q of %q must be added first", e.parent, e.name)
			}
			cat.Kind = parent.Kind
			cat.ParentID = &parent.ID
		}
		if err := store.CreateCategory(ctx, &cat); err != nil {
			return nil, fmt.Errorf("failed to create category %q: %w", e.name, err)
		}
		created[e.name] = cat
		result = append(result, cat)
	}
	return result, nil
}

func (b *categoryBuilder) BuildMap(ctx context.Context, store service.CategoryStore) (CategoryMap, error) {
	categories, err := b.Build(ctx, store)
	if err != nil {
		return nil, err
	}

	m := make(CategoryMap, len(categories))
	for _, cat := range categories {
		m[CategoryName(cat.Name)] = cat
	}
	return m, nil
}
