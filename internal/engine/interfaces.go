package engine

import (
	"context"

	"investbot/internal/state"
	"investbot/types"
)

type brokerGateway interface {
	GetAccountSnapshot(ctx context.Context) (types.AccountSnapshot, error)
	PlaceBuyOrder(ctx context.Context, ticker string, quantity int64) error
}

type stateStore interface {
	Load() (state.State, error)
	Save(state.State) error
}

type runJournal interface {
	RecordRun(ctx context.Context, rec types.RunRecord) error
}
