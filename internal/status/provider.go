package status

import (
	"context"
	"errors"
)

// Status is a live snapshot of a game server.
type Status struct {
	OnlineCount int
	MaxCount    int
	Version     string
}

var (
	// ErrTimeout is returned when a server does not answer within the bound.
	ErrTimeout = errors.New("status query timed out")

	// ErrUnreachable is returned for any non-timeout connection failure.
	ErrUnreachable = errors.New("server unreachable")
)

// Provider queries a game server's live status. Implementations must bound
// each call: the poll loop relies on a per-call timeout so one dead server
// cannot stall the round.
type Provider interface {
	Query(ctx context.Context, address string) (*Status, error)
}
