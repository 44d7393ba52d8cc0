package memory

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hrygo/sprachsense/plugin/ai"
	"github.com/hrygo/sprachsense/store"
)

// fakeStore is an in-memory Store for tests.
type fakeStore struct {
	vocab  map[string]*store.VocabMemory
	topics map[string]*store.TopicMemory
	err    error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		vocab:  make(map[string]*store.VocabMemory),
		topics: make(map[string]*store.TopicMemory),
	}
}

func vocabKey(userID int32, word string) string {
	return fmt.Sprintf("%d:%s", userID, word)
}

func topicKey(userID int32, topic, skill string) string {
	return fmt.Sprintf("%d:%s:%s", userID, topic, skill)
}

func (f *fakeStore) UpsertVocabMemory(_ context.Context, upsert *store.VocabMemory) (*store.VocabMemory, error) {
	if f.err != nil {
		return nil, f.err
	}
	cp := *upsert
	f.vocab[vocabKey(upsert.UserID, upsert.Word)] = &cp
	return &cp, nil
}

func (f *fakeStore) GetVocabMemory(_ context.Context, find *store.FindVocabMemory) (*store.VocabMemory, error) {
	if f.err != nil {
		return nil, f.err
	}
	row, ok := f.vocab[vocabKey(*find.UserID, *find.Word)]
	if !ok {
		return nil, nil
	}
	cp := *row
	return &cp, nil
}

func (f *fakeStore) ListVocabMemories(_ context.Context, find *store.FindVocabMemory) ([]*store.VocabMemory, error) {
	if f.err != nil {
		return nil, f.err
	}
	var list []*store.VocabMemory
	for _, row := range f.vocab {
		if row.UserID != *find.UserID {
			continue
		}
		if find.DueBeforeTs != nil && row.NextReviewTs > *find.DueBeforeTs {
			continue
		}
		cp := *row
		list = append(list, &cp)
	}
	return list, nil
}

func (f *fakeStore) UpsertTopicMemory(_ context.Context, upsert *store.TopicMemory) (*store.TopicMemory, error) {
	if f.err != nil {
		return nil, f.err
	}
	cp := *upsert
	f.topics[topicKey(upsert.UserID, upsert.Topic, upsert.SkillType)] = &cp
	return &cp, nil
}

func (f *fakeStore) GetTopicMemory(_ context.Context, find *store.FindTopicMemory) (*store.TopicMemory, error) {
	if f.err != nil {
		return nil, f.err
	}
	row, ok := f.topics[topicKey(*find.UserID, *find.Topic, *find.SkillType)]
	if !ok {
		return nil, nil
	}
	cp := *row
	return &cp, nil
}

func (f *fakeStore) ListTopicMemories(_ context.Context, find *store.FindTopicMemory) ([]*store.TopicMemory, error) {
	if f.err != nil {
		return nil, f.err
	}
	var list []*store.TopicMemory
	for _, row := range f.topics {
		if row.UserID != *find.UserID {
			continue
		}
		if find.DueBeforeTs != nil && row.NextReviewTs > *find.DueBeforeTs {
			continue
		}
		cp := *row
		list = append(list, &cp)
	}
	return list, nil
}

func TestUpsertWordUsesCompletionBaseForm(t *testing.T) {
	ctx := context.Background()
	fs := newFakeStore()
	mock := ai.NewMockCompletion(`{"base": "gehen", "translation": "to go"}`)
	svc := NewService(fs, mock)

	canonical, err := svc.UpsertWord(ctx, 1, "ging", "Ich ging nach Hause.")
	require.NoError(t, err)
	// The model's base form is itself canonicalized.
	require.Equal(t, Canonicalize("gehen"), canonical)

	row := fs.vocab[vocabKey(1, canonical)]
	require.NotNil(t, row)
	require.Equal(t, "to go", row.Translation)
	require.Equal(t, "ging", row.Display)
	require.Equal(t, 2.5, row.Ease)
}

func TestUpsertWordFallsBackOnCompletionFailure(t *testing.T) {
	ctx := context.Background()
	fs := newFakeStore()
	mock := ai.NewMockCompletion()
	mock.QueueError(fmt.Errorf("model unavailable"))
	svc := NewService(fs, mock)

	canonical, err := svc.UpsertWord(ctx, 1, "Hunde", "")
	require.NoError(t, err)
	require.Equal(t, "hund", canonical)
	require.NotNil(t, fs.vocab[vocabKey(1, "hund")])
}

func TestUpsertWordExistingRowWins(t *testing.T) {
	ctx := context.Background()
	fs := newFakeStore()
	fs.vocab[vocabKey(1, "hund")] = &store.VocabMemory{UserID: 1, Word: "hund", Translation: "dog"}
	mock := ai.NewMockCompletion(`{"base": "should-not-be-called", "translation": "x"}`)
	svc := NewService(fs, mock)

	canonical, err := svc.UpsertWord(ctx, 1, "Hunde", "")
	require.NoError(t, err)
	require.Equal(t, "hund", canonical)
	require.Zero(t, mock.CallCount())
}

func TestReviewWordCreatesAndSchedules(t *testing.T) {
	ctx := context.Background()
	fs := newFakeStore()
	svc := NewService(fs, nil)

	require.NoError(t, svc.ReviewWord(ctx, 1, "Hunde", 5, nil))

	row := fs.vocab[vocabKey(1, "hund")]
	require.NotNil(t, row)
	require.Equal(t, 1, row.Repetitions)
	require.Equal(t, 1, row.IntervalDays)
	require.Greater(t, row.NextReviewTs, row.LastReviewTs)
}

func TestReviewWordDedupesWithinSubmission(t *testing.T) {
	ctx := context.Background()
	fs := newFakeStore()
	svc := NewService(fs, nil)

	seen := make(map[string]bool)
	require.NoError(t, svc.ReviewWord(ctx, 1, "Hunde", 5, seen))
	require.NoError(t, svc.ReviewWord(ctx, 1, "hund", 5, seen))
	require.NoError(t, svc.ReviewWord(ctx, 1, "Hund.", 5, seen))

	// One logical review despite three surface forms.
	row := fs.vocab[vocabKey(1, "hund")]
	require.NotNil(t, row)
	require.Equal(t, 1, row.Repetitions)
}

func TestReviewTopicTracksQualityAndCorrectCount(t *testing.T) {
	ctx := context.Background()
	fs := newFakeStore()
	svc := NewService(fs, nil)

	require.NoError(t, svc.ReviewTopic(ctx, 1, "dativ", "writing", "grammar", 5, nil))
	require.NoError(t, svc.ReviewTopic(ctx, 1, "dativ", "writing", "grammar", 2, nil))

	row := fs.topics[topicKey(1, "dativ", "writing")]
	require.NotNil(t, row)
	require.Equal(t, 2, row.Quality)
	require.Equal(t, 1, row.CorrectCount)
	// Failed review resets the streak.
	require.Equal(t, 0, row.Repetitions)
}

func TestDueWordsFiltersByNextReview(t *testing.T) {
	ctx := context.Background()
	fs := newFakeStore()
	fs.vocab[vocabKey(1, "hund")] = &store.VocabMemory{UserID: 1, Word: "hund", NextReviewTs: 0}
	fs.vocab[vocabKey(1, "zukunft")] = &store.VocabMemory{UserID: 1, Word: "zukunft", NextReviewTs: 1 << 40}
	svc := NewService(fs, nil)

	due, err := svc.DueWords(ctx, 1, 0)
	require.NoError(t, err)
	require.Len(t, due, 1)
	require.Equal(t, "hund", due[0].Word)
}
