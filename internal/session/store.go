// Package session keeps the last link each chat submitted, so the Download
// button under a preview knows what to fetch.
package session

import (
	"context"
	"database/sql"

	"github.com/go-faster/errors"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/Geergon/linkdrop-bot/internal/database"
)

const DefaultCapacity = 10000

// Store maps a chat to its most recently submitted URL. Put always replaces
// the previous value (last write wins).
type Store interface {
	Put(ctx context.Context, chatID int64, url string) error
	Get(ctx context.Context, chatID int64) (string, bool, error)
}

// MemoryStore lives as long as the process. The LRU bound caps memory; a chat
// pushed out of it behaves like one that never sent a link.
type MemoryStore struct {
	cache *lru.Cache[int64, string]
}

func NewMemoryStore(capacity int) (*MemoryStore, error) {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	cache, err := lru.New[int64, string](capacity)
	if err != nil {
		return nil, errors.Wrap(err, "create lru")
	}
	return &MemoryStore{cache: cache}, nil
}

func (s *MemoryStore) Put(_ context.Context, chatID int64, url string) error {
	s.cache.Add(chatID, url)
	return nil
}

func (s *MemoryStore) Get(_ context.Context, chatID int64) (string, bool, error) {
	url, ok := s.cache.Get(chatID)
	return url, ok, nil
}

func (s *MemoryStore) Len() int {
	return s.cache.Len()
}

// SQLStore keeps sessions in the bot database so they survive restarts.
type SQLStore struct {
	db *sql.DB
}

func NewSQLStore(db *sql.DB) *SQLStore {
	return &SQLStore{db: db}
}

func (s *SQLStore) Put(ctx context.Context, chatID int64, url string) error {
	return database.UpsertSession(ctx, s.db, chatID, url)
}

func (s *SQLStore) Get(ctx context.Context, chatID int64) (string, bool, error) {
	return database.GetSession(ctx, s.db, chatID)
}

// New picks the backend by name: "memory" (default) or "sqlite".
func New(backend string, capacity int, db *sql.DB) (Store, error) {
	switch backend {
	case "", "memory":
		return NewMemoryStore(capacity)
	case "sqlite":
		if db == nil {
			return nil, errors.New("sqlite session backend needs database.path")
		}
		return NewSQLStore(db), nil
	default:
		return nil, errors.Errorf("unknown session backend %q", backend)
	}
}
