package database

import "errors"

var (
	// ErrDatabaseNotFound is returned by Open when CreateIfNotExists is false
	// and no ledger file exists yet.
	ErrDatabaseNotFound = errors.New("database not found")

	// ErrRunNotFound is returned when no run has the requested ID.
	ErrRunNotFound = errors.New("run not found")

	// ErrRunFinished is returned when Finish is called twice for one run.
	ErrRunFinished = errors.New("run already finished")
)
