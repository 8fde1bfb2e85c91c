// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Akcio Contributors

// Package bolt is an embedded, single-file memory backend on bbolt.
// Each project is a top-level bucket holding one nested bucket per session;
// turns are keyed by the session bucket's sequence so they list in order.
package bolt

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.etcd.io/bbolt"

	"github.com/akcio-dev/akcio/internal/store"
)

// MemoryDBFile is the bolt file name under StorageConfig.DataDir.
const MemoryDBFile = "memory.bolt"

func init() {
	store.RegisterTurnBackend("bolt", func(cfg *store.StorageConfig) (store.TurnStore, error) {
		return NewTurnStore(filepath.Join(cfg.DataDir, MemoryDBFile))
	})
}

// Compile-time interface check.
var _ store.TurnStore = (*TurnStore)(nil)

type TurnStore struct {
	db *bbolt.DB
}

// NewTurnStore opens (or creates) the bolt file at path.
func NewTurnStore(path string) (*TurnStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("creating bolt directory: %w", err)
	}
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening bolt db: %w", err)
	}
	return &TurnStore{db: db}, nil
}

func bucketName(project string) []byte { return []byte("history__" + project) }

func (t *TurnStore) HasTable(_ context.Context, project string) (bool, error) {
	var ok bool
	err := t.db.View(func(tx *bbolt.Tx) error {
		ok = tx.Bucket(bucketName(project)) != nil
		return nil
	})
	return ok, err
}

func (t *TurnStore) EnsureTable(_ context.Context, project string) error {
	err := t.db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketName(project))
		return err
	})
	if err != nil {
		return fmt.Errorf("creating history bucket for %s: %w", project, err)
	}
	return nil
}

func (t *TurnStore) DropTable(_ context.Context, project string) error {
	err := t.db.Update(func(tx *bbolt.Tx) error {
		return tx.DeleteBucket(bucketName(project))
	})
	if err != nil {
		return fmt.Errorf("dropping history bucket for %s: %w", project, err)
	}
	return nil
}

// AppendTurn commits the turn in its own write transaction.
func (t *TurnStore) AppendTurn(_ context.Context, project, session string, turn store.Turn) error {
	msg, err := store.EncodeTurn(turn)
	if err != nil {
		return err
	}

	err = t.db.Update(func(tx *bbolt.Tx) error {
		root := tx.Bucket(bucketName(project))
		if root == nil {
			return bbolt.ErrBucketNotFound
		}
		b, err := root.CreateBucketIfNotExists([]byte(session))
		if err != nil {
			return err
		}
		seq, err := b.NextSequence()
		if err != nil {
			return err
		}
		return b.Put(seqKey(seq), []byte(msg))
	})
	if err != nil {
		return fmt.Errorf("appending turn to %s: %w", project, err)
	}
	return nil
}

func (t *TurnStore) ListTurns(_ context.Context, project, session string) ([]store.Turn, error) {
	turns := []store.Turn{}
	err := t.db.View(func(tx *bbolt.Tx) error {
		root := tx.Bucket(bucketName(project))
		if root == nil {
			return bbolt.ErrBucketNotFound
		}
		b := root.Bucket([]byte(session))
		if b == nil {
			return nil
		}
		return b.ForEach(func(_, v []byte) error {
			turn, err := store.DecodeTurn(string(v))
			if err != nil {
				return err
			}
			turns = append(turns, turn)
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("listing turns of %s: %w", project, err)
	}
	return turns, nil
}

func (t *TurnStore) DeleteSession(_ context.Context, project, session string) error {
	err := t.db.Update(func(tx *bbolt.Tx) error {
		root := tx.Bucket(bucketName(project))
		if root == nil {
			return bbolt.ErrBucketNotFound
		}
		if err := root.DeleteBucket([]byte(session)); err != nil && !errors.Is(err, bbolt.ErrBucketNotFound) {
			return err
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("clearing session %s of %s: %w", session, project, err)
	}
	return nil
}

func (t *TurnStore) Close() error {
	return t.db.Close()
}

func seqKey(seq uint64) []byte {
	k := make([]byte, 8)
	binary.BigEndian.PutUint64(k, seq)
	return k
}
