package cache

import (
	"context"
	"slices"

	"github.com/boddenberg/categorizer-go/internal/domain"
	"github.com/boddenberg/categorizer-go/internal/port"
)

// Categorizations adapts a generic cache to port.CategorizationCache.
// Values are copied in and out so callers cannot mutate a stored result.
type Categorizations struct {
	store port.Cache[domain.CategorizeOutput]
}

// NewCategorizations wraps store.
func NewCategorizations(store port.Cache[domain.CategorizeOutput]) *Categorizations {
	return &Categorizations{store: store}
}

// Get returns the cached categorization for key.
func (c *Categorizations) Get(ctx context.Context, key string) (domain.CategorizeOutput, bool, error) {
	if err := ctx.Err(); err != nil {
		return domain.CategorizeOutput{}, false, err
	}
	v, ok := c.store.Get(key)
	if !ok {
		return domain.CategorizeOutput{}, false, nil
	}
	v.Reasons = slices.Clone(v.Reasons)
	return v, true, nil
}

// Set stores value under key.
func (c *Categorizations) Set(ctx context.Context, key string, value domain.CategorizeOutput) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	value.Reasons = slices.Clone(value.Reasons)
	c.store.Set(key, value)
	return nil
}
