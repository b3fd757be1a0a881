package gateway

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	ErrUnreachable = errors.New("gateway unreachable")
	ErrRejected    = errors.New("gateway rejected request")
	ErrNotFound    = errors.New("gateway record not found")
)

const CodeUniqueViolation = "23505"

// Error carries the operation name, a kind sentinel and the SQLSTATE code
// when the database produced one.
type Error struct {
	Op   string
	Kind error
	Code string
	Err  error
}

func (e *Error) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s: %v (%s): %v", e.Op, e.Kind, e.Code, e.Err)
	}
	return fmt.Sprintf("%s: %v: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() []error {
	return []error{e.Kind, e.Err}
}

// classify wraps a driver error. Cancellation by the caller is returned
// untouched so it is never mistaken for an outage.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) {
		return err
	}

	var pgErr *pgconn.PgError
	switch {
	case errors.As(err, &pgErr):
		return &Error{Op: op, Kind: ErrRejected, Code: pgErr.Code, Err: err}
	case errors.Is(err, pgx.ErrNoRows):
		return &Error{Op: op, Kind: ErrNotFound, Err: err}
	default:
		return &Error{Op: op, Kind: ErrUnreachable, Err: err}
	}
}

func notFound(op, id string) error {
	return &Error{Op: op, Kind: ErrNotFound, Err: fmt.Errorf("id %s", id)}
}

// Code returns the SQLSTATE carried by err, if any.
func Code(err error) string {
	var gwErr *Error
	if errors.As(err, &gwErr) {
		return gwErr.Code
	}
	return ""
}
