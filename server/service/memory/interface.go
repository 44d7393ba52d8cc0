package memory

import (
	"context"

	"github.com/hrygo/sprachsense/store"
)

// Service defines the memory store business logic: recording reviews,
// registering vocabulary, and serving the due queues.
type Service interface {
	// UpsertWord registers a word for the user and returns its canonical form.
	// Existing rows win; new rows are analyzed through the completion service
	// with a heuristic fallback.
	UpsertWord(ctx context.Context, userID int32, word, sentence string) (string, error)

	// ReviewWord applies one review to the word behind token. Tokens that
	// canonicalize to a form already present in seen are skipped; seen is
	// updated in place so a whole submission shares one dedupe set.
	ReviewWord(ctx context.Context, userID int32, token string, quality int, seen map[string]bool) error

	// ReviewTopic applies one review to a (topic, skillType) pair.
	ReviewTopic(ctx context.Context, userID int32, topic, skillType, category string, quality int, seen map[string]bool) error

	// DueWords returns vocabulary due for review, most overdue first.
	DueWords(ctx context.Context, userID int32, limit int) ([]*store.VocabMemory, error)

	// DueTopics returns topics due for review, most overdue first.
	DueTopics(ctx context.Context, userID int32, limit int) ([]*store.TopicMemory, error)
}

// Store is the interface for store operations needed by the memory service.
type Store interface {
	UpsertVocabMemory(ctx context.Context, upsert *store.VocabMemory) (*store.VocabMemory, error)
	GetVocabMemory(ctx context.Context, find *store.FindVocabMemory) (*store.VocabMemory, error)
	ListVocabMemories(ctx context.Context, find *store.FindVocabMemory) ([]*store.VocabMemory, error)
	UpsertTopicMemory(ctx context.Context, upsert *store.TopicMemory) (*store.TopicMemory, error)
	GetTopicMemory(ctx context.Context, find *store.FindTopicMemory) (*store.TopicMemory, error)
	ListTopicMemories(ctx context.Context, find *store.FindTopicMemory) ([]*store.TopicMemory, error)
}
