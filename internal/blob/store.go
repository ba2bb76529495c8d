// Package blob stores immutable enrollment audio. Each Put writes a new
// blob; nothing is ever overwritten.
package blob

import (
	"encoding/json"
	"fmt"
	"time"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
)

// Metadata travels with each stored blob.
type Metadata struct {
	UserID      string    `json:"user_id"`
	Filename    string    `json:"filename"`
	ContentType string    `json:"content_type"`
	Kind        string    `json:"kind"`
	CreatedAt   time.Time `json:"created_at"`
}

// Store is the write-once blob interface the enrollment engine depends on.
type Store interface {
	Put(data []byte, meta Metadata) (string, error)
	Get(id string) ([]byte, Metadata, error)
	Close() error
}

// BadgerStore keeps blobs in an embedded badger database: raw bytes under
// blob:<id>, JSON metadata under meta:<id>.
type BadgerStore struct {
	db *badger.DB
}

func NewBadgerStore(dir string) (*BadgerStore, error) {
	opts := badger.DefaultOptions(dir)
	opts.Logger = nil
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("opening blob store: %w", err)
	}
	return &BadgerStore{db: db}, nil
}

func (s *BadgerStore) Put(data []byte, meta Metadata) (string, error) {
	if meta.CreatedAt.IsZero() {
		meta.CreatedAt = time.Now()
	}
	metaBytes, err := json.Marshal(meta)
	if err != nil {
		return "", fmt.Errorf("encoding blob metadata: %w", err)
	}

	id := uuid.NewString()
	err = s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set([]byte("blob:"+id), data); err != nil {
			return err
		}
		return txn.Set([]byte("meta:"+id), metaBytes)
	})
	if err != nil {
		return "", fmt.Errorf("writing blob %s: %w", id, err)
	}
	return id, nil
}

func (s *BadgerStore) Get(id string) ([]byte, Metadata, error) {
	var data []byte
	var meta Metadata
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte("blob:" + id))
		if err != nil {
			return err
		}
		if data, err = item.ValueCopy(nil); err != nil {
			return err
		}
		item, err = txn.Get([]byte("meta:" + id))
		if err != nil {
			return err
		}
		metaBytes, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		return json.Unmarshal(metaBytes, &meta)
	})
	if err != nil {
		return nil, Metadata{}, fmt.Errorf("reading blob %s: %w", id, err)
	}
	return data, meta, nil
}

func (s *BadgerStore) Close() error {
	return s.db.Close()
}
