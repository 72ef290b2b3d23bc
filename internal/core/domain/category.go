package domain

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidCategory indicates the requested category code is not one of the known codes.
var ErrInvalidCategory = errors.New("invalid category")

// Category identifies a class of numbers served by the upstream service.
type Category string

const (
	CategoryPrime     Category = "p"
	CategoryFibonacci Category = "f"
	CategoryEven      Category = "e"
	CategoryRandom    Category = "r"
)

// DefaultCategories lists the known category codes in their canonical order.
var DefaultCategories = []Category{CategoryPrime, CategoryFibonacci, CategoryEven, CategoryRandom}

// DefaultResources maps each category to the upstream resource it is fetched from.
var DefaultResources = map[Category]string{
	CategoryPrime:     "primes",
	CategoryFibonacci: "fibo",
	CategoryEven:      "even",
	CategoryRandom:    "rand",
}

// String returns the category code.
func (c Category) String() string {
	return string(c)
}

// CategoryRegistry holds the closed set of categories and their resource names.
type CategoryRegistry struct {
	order     []Category
	resources map[Category]string
}

// NewCategoryRegistry builds a registry from the default resource mapping, applying
// overrides keyed by category code. Overrides for unknown codes are rejected.
func NewCategoryRegistry(overrides map[string]string) (*CategoryRegistry, error) {
	resources := make(map[Category]string, len(DefaultResources))
	for category, resource := range DefaultResources {
		resources[category] = resource
	}

	for code, resource := range overrides {
		category := normalizeCode(code)
		if _, ok := resources[category]; !ok {
			return nil, fmt.Errorf("%w: %q", ErrInvalidCategory, code)
		}
		resource = strings.TrimSpace(resource)
		if resource == "" {
			return nil, fmt.Errorf("empty resource for category %q", code)
		}
		resources[category] = resource
	}

	order := make([]Category, len(DefaultCategories))
	copy(order, DefaultCategories)

	return &CategoryRegistry{order: order, resources: resources}, nil
}

// Parse normalises a raw code (trim, lower-case) and resolves it to a known category.
func (r *CategoryRegistry) Parse(raw string) (Category, error) {
	category := normalizeCode(raw)
	if _, ok := r.resources[category]; !ok {
		return "", fmt.Errorf("%w: %q", ErrInvalidCategory, raw)
	}
	return category, nil
}

// Resource returns the upstream resource name for the category.
func (r *CategoryRegistry) Resource(category Category) (string, bool) {
	resource, ok := r.resources[category]
	return resource, ok
}

// Categories returns the registered categories in canonical order.
func (r *CategoryRegistry) Categories() []Category {
	out := make([]Category, len(r.order))
	copy(out, r.order)
	return out
}

// UsageHint renders the list of accepted codes, e.g. "p, f, e, or r".
func (r *CategoryRegistry) UsageHint() string {
	codes := make([]string, 0, len(r.order))
	for _, category := range r.order {
		codes = append(codes, category.String())
	}

	switch len(codes) {
	case 0:
		return ""
	case 1:
		return codes[0]
	case 2:
		return codes[0] + " or " + codes[1]
	}

	return strings.Join(codes[:len(codes)-1], ", ") + ", or " + codes[len(codes)-1]
}

func normalizeCode(raw string) Category {
	return Category(strings.ToLower(strings.TrimSpace(raw)))
}
