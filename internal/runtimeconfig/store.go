package runtimeconfig

import (
	"context"
)

// ReplaceRequest swaps the active config. ExpectedVersion must match the stored
// version or the replace fails with a conflict.
type ReplaceRequest struct {
	ExpectedVersion int64
	Config          RuntimeConfig
	Action          string
	Reason          string
	Actor           string
}

type Store interface {
	Fetch(ctx context.Context) (*RuntimeConfig, error)
	Replace(ctx context.Context, req ReplaceRequest) (*RuntimeConfig, *SwitchEvent, error)
	History(ctx context.Context, limit int) ([]SwitchEvent, error)
}
