package gateway

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	pgErr := &pgconn.PgError{Code: CodeUniqueViolation, Message: "duplicate key"}

	tests := []struct {
		name string
		err  error
		kind error
		code string
	}{
		{name: "pg error", err: pgErr, kind: ErrRejected, code: CodeUniqueViolation},
		{name: "wrapped pg error", err: fmt.Errorf("exec: %w", pgErr), kind: ErrRejected, code: CodeUniqueViolation},
		{name: "no rows", err: pgx.ErrNoRows, kind: ErrNotFound},
		{name: "deadline", err: context.DeadlineExceeded, kind: ErrUnreachable},
		{name: "dial", err: errors.New("dial tcp 127.0.0.1:5432: connect: connection refused"), kind: ErrUnreachable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := classify("op", tt.err)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.kind)
			assert.ErrorIs(t, err, tt.err)
			assert.Equal(t, tt.code, Code(err))
		})
	}
}

func TestClassify_PassesCancellationThrough(t *testing.T) {
	err := classify("op", context.Canceled)
	assert.Equal(t, context.Canceled, err)

	var gwErr *Error
	assert.False(t, errors.As(err, &gwErr))
}

func TestClassify_Nil(t *testing.T) {
	assert.NoError(t, classify("op", nil))
}

func TestError_Message(t *testing.T) {
	err := classify("insert user", &pgconn.PgError{Code: "23505", Message: "dup"})
	assert.Contains(t, err.Error(), "insert user")
	assert.Contains(t, err.Error(), "23505")
	assert.Empty(t, Code(errors.New("plain")))
}
