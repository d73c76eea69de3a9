package domain

import "errors"

var (
	// ErrDuplicateName is returned when adding a server whose name is taken.
	ErrDuplicateName = errors.New("server name already exists")

	// ErrDuplicateAddress is returned when adding a server whose address is taken.
	ErrDuplicateAddress = errors.New("server address already exists")

	// ErrServerNotFound is returned when a command names an unknown server.
	ErrServerNotFound = errors.New("server not found")

	// ErrNoData is returned when a query window contains no samples.
	ErrNoData = errors.New("no samples in window")

	// ErrInvalidArgument is returned for malformed command syntax.
	ErrInvalidArgument = errors.New("invalid argument")
)
