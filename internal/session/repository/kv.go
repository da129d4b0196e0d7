package repository

import (
	"context"
	"fmt"
	"time"

	"scheduling-platform/identity/internal/localstore"
	"scheduling-platform/identity/internal/session/domain"
)

// KVStore implements Store over a localstore.KV.
type KVStore struct {
	kv localstore.KV
}

// NewKVStore returns a Store backed by kv.
func NewKVStore(kv localstore.KV) *KVStore {
	return &KVStore{kv: kv}
}

func (s *KVStore) Save(ctx context.Context, r domain.Record) error {
	return s.kv.Set(ctx, map[string]string{
		domain.KeySessionID:    r.SessionID,
		domain.KeyRefreshToken: r.RefreshToken,
		domain.KeyExpiresAt:    r.ExpiresAt.UTC().Format(time.RFC3339Nano),
	})
}

// Load treats a partially written record (e.g. a key deleted by hand) as absent.
func (s *KVStore) Load(ctx context.Context) (*domain.Record, error) {
	id, ok, err := s.kv.Get(ctx, domain.KeySessionID)
	if err != nil {
		return nil, err
	}
	if !ok || id == "" {
		return nil, nil
	}
	refresh, ok, err := s.kv.Get(ctx, domain.KeyRefreshToken)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	raw, ok, err := s.kv.Get(ctx, domain.KeyExpiresAt)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	exp, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return nil, fmt.Errorf("session store: parse %s: %w", domain.KeyExpiresAt, err)
	}
	return &domain.Record{SessionID: id, RefreshToken: refresh, ExpiresAt: exp}, nil
}

func (s *KVStore) Clear(ctx context.Context) error {
	return s.kv.Delete(ctx, domain.KeySessionID, domain.KeyRefreshToken, domain.KeyExpiresAt)
}
