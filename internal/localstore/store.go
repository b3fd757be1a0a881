// Package localstore is the key/value persistence that mirrors the portal
// state between restarts and backs offline mode.
package localstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

const (
	KeyUser       = "bccl_user"
	KeyComplaints = "bccl_complaints"
	KeyUsers      = "bccl_users"
)

var (
	ErrNotFound = errors.New("local key not found")
	ErrCorrupt  = errors.New("local value corrupt")
)

// Store holds whole JSON documents under fixed keys. Writes replace the
// previous value atomically.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

func GetJSON(ctx context.Context, s Store, key string, out any) error {
	raw, err := s.Get(ctx, key)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode %s: %w: %w", key, ErrCorrupt, err)
	}
	return nil
}

func SetJSON(ctx context.Context, s Store, key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return s.Set(ctx, key, raw)
}
