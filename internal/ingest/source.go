package ingest

import (
	"context"
	"errors"
)

// Source runs until ctx is done. Run returns nil on cancellation.
type Source interface {
	Name() string
	Run(ctx context.Context) error
}

// Hook observes append outcomes; internal/metrics implements it.
type Hook interface {
	ObserveIngest(source, category string, n int, err error)
}

type nopHook struct{}

func (nopHook) ObserveIngest(string, string, int, error) {}

// ErrUnknownCategory marks a record addressed to a category the registry
// does not carry.
var ErrUnknownCategory = errors.New("ingest: unknown category")

func cancelled(ctx context.Context, err error) bool {
	return err != nil && ctx.Err() != nil && errors.Is(err, ctx.Err())
}
