package store

import (
	"context"
	"database/sql"
)

// Driver is an interface for store driver.
// It contains all methods that store database driver should implement.
type Driver interface {
	GetDB() *sql.DB
	Close() error

	IsInitialized(ctx context.Context) (bool, error)

	// VocabMemory model related methods.
	UpsertVocabMemory(ctx context.Context, upsert *VocabMemory) (*VocabMemory, error)
	ListVocabMemories(ctx context.Context, find *FindVocabMemory) ([]*VocabMemory, error)
	DeleteVocabMemory(ctx context.Context, delete *DeleteVocabMemory) error

	// TopicMemory model related methods.
	UpsertTopicMemory(ctx context.Context, upsert *TopicMemory) (*TopicMemory, error)
	ListTopicMemories(ctx context.Context, find *FindTopicMemory) ([]*TopicMemory, error)
	DeleteTopicMemory(ctx context.Context, delete *DeleteTopicMemory) error

	// UserLevel model related methods.
	GetUserLevel(ctx context.Context, find *FindUserLevel) (*UserLevel, error)
	UpsertUserLevel(ctx context.Context, upsert *UserLevel) (*UserLevel, error)
}
