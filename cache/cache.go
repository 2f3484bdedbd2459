// Package cache stores merged forecast tables keyed by the project, model and dataset they were
// built from.
package cache

import (
	"context"
	"errors"
	"fmt"

	"github.com/aouyang1/go-liftchart/dataset"
)

var ErrMiss = errors.New("cache miss")

// Key identifies one merge output.
type Key struct {
	ProjectID string
	ModelID   string
	DatasetID string
}

func (k Key) String() string {
	return fmt.Sprintf("%s:%s:%s", k.ProjectID, k.ModelID, k.DatasetID)
}

// Cache is a read through store for merge outputs. Get returns ErrMiss when the key is absent
// or expired.
type Cache interface {
	Get(ctx context.Context, key Key) (*dataset.Joined, error)
	Set(ctx context.Context, key Key, joined *dataset.Joined) error
	Invalidate(ctx context.Context, key Key) error
}

// Noop never stores anything.
type Noop struct{}

func (Noop) Get(context.Context, Key) (*dataset.Joined, error) {
	return nil, ErrMiss
}

func (Noop) Set(context.Context, Key, *dataset.Joined) error {
	return nil
}

func (Noop) Invalidate(context.Context, Key) error {
	return nil
}
