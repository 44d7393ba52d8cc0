package curriculum

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hrygo/sprachsense/store"
)

type fakeStore struct {
	levels map[int32]*store.UserLevel
	topics map[string]*store.TopicMemory
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		levels: make(map[int32]*store.UserLevel),
		topics: make(map[string]*store.TopicMemory),
	}
}

func key(userID int32, topic, skill string) string {
	return fmt.Sprintf("%d:%s:%s", userID, topic, skill)
}

func (f *fakeStore) GetUserLevel(_ context.Context, userID int32) (*store.UserLevel, error) {
	if lvl, ok := f.levels[userID]; ok {
		cp := *lvl
		return &cp, nil
	}
	return &store.UserLevel{UserID: userID, Level: 0}, nil
}

func (f *fakeStore) UpsertUserLevel(_ context.Context, upsert *store.UserLevel) (*store.UserLevel, error) {
	cp := *upsert
	f.levels[upsert.UserID] = &cp
	return &cp, nil
}

func (f *fakeStore) GetTopicMemory(_ context.Context, find *store.FindTopicMemory) (*store.TopicMemory, error) {
	row, ok := f.topics[key(*find.UserID, *find.Topic, *find.SkillType)]
	if !ok {
		return nil, nil
	}
	cp := *row
	return &cp, nil
}

func (f *fakeStore) UpsertTopicMemory(_ context.Context, upsert *store.TopicMemory) (*store.TopicMemory, error) {
	cp := *upsert
	f.topics[key(upsert.UserID, upsert.Topic, upsert.SkillType)] = &cp
	return &cp, nil
}

// masterLevel marks every topic of the level as mastered for the user.
func (f *fakeStore) masterLevel(userID int32, level int) {
	for _, topic := range TopicsForLevel(level) {
		f.topics[key(userID, topic, "writing")] = &store.TopicMemory{
			UserID:    userID,
			Topic:     topic,
			SkillType: "writing",
			Quality:   5,
		}
	}
}

func TestProgressCountsOnlyMasteredTopics(t *testing.T) {
	ctx := context.Background()
	fs := newFakeStore()
	svc := NewService(fs)

	progress, err := svc.Progress(ctx, 1, 0)
	require.NoError(t, err)
	require.Zero(t, progress)

	topics := TopicsForLevel(0)
	fs.topics[key(1, topics[0], "writing")] = &store.TopicMemory{UserID: 1, Topic: topics[0], SkillType: "writing", Quality: 5}
	fs.topics[key(1, topics[1], "writing")] = &store.TopicMemory{UserID: 1, Topic: topics[1], SkillType: "writing", Quality: 3}

	progress, err = svc.Progress(ctx, 1, 0)
	require.NoError(t, err)
	require.InDelta(t, 1.0/float64(len(topics)), progress, 1e-9)
}

func TestMaybeLevelUpBelowThreshold(t *testing.T) {
	ctx := context.Background()
	fs := newFakeStore()
	svc := NewService(fs)

	leveled, level, err := svc.MaybeLevelUp(ctx, 1)
	require.NoError(t, err)
	require.False(t, leveled)
	require.Equal(t, 0, level)
}

func TestMaybeLevelUpPromotesAndSeeds(t *testing.T) {
	ctx := context.Background()
	fs := newFakeStore()
	svc := NewService(fs)

	fs.masterLevel(1, 0)

	leveled, level, err := svc.MaybeLevelUp(ctx, 1)
	require.NoError(t, err)
	require.True(t, leveled)
	require.Equal(t, 1, level)

	// New level's topics got placeholder rows below mastery quality.
	for _, topic := range TopicsForLevel(1) {
		row := fs.topics[key(1, topic, "writing")]
		require.NotNil(t, row, "topic %s not seeded", topic)
		require.Equal(t, seedQuality, row.Quality)
		require.NotZero(t, row.NextReviewTs)
	}

	// A second call must not promote again: the seeded rows are unmastered.
	leveled, level, err = svc.MaybeLevelUp(ctx, 1)
	require.NoError(t, err)
	require.False(t, leveled)
	require.Equal(t, 1, level)
}

func TestMaybeLevelUpSeedingSkipsExistingRows(t *testing.T) {
	ctx := context.Background()
	fs := newFakeStore()
	svc := NewService(fs)

	fs.masterLevel(1, 0)
	// One topic of the next level already has real history.
	existing := TopicsForLevel(1)[0]
	fs.topics[key(1, existing, "writing")] = &store.TopicMemory{
		UserID: 1, Topic: existing, SkillType: "writing", Quality: 5, Repetitions: 3,
	}

	leveled, _, err := svc.MaybeLevelUp(ctx, 1)
	require.NoError(t, err)
	require.True(t, leveled)

	row := fs.topics[key(1, existing, "writing")]
	require.Equal(t, 5, row.Quality)
	require.Equal(t, 3, row.Repetitions)
}

func TestMaybeLevelUpTerminalLevel(t *testing.T) {
	ctx := context.Background()
	fs := newFakeStore()
	svc := NewService(fs)

	fs.levels[1] = &store.UserLevel{UserID: 1, Level: MaxLevel}
	fs.masterLevel(1, MaxLevel)

	leveled, level, err := svc.MaybeLevelUp(ctx, 1)
	require.NoError(t, err)
	require.False(t, leveled)
	require.Equal(t, MaxLevel, level)
}

func TestOverview(t *testing.T) {
	ctx := context.Background()
	fs := newFakeStore()
	svc := NewService(fs)

	topics := TopicsForLevel(0)
	fs.topics[key(1, topics[0], "writing")] = &store.TopicMemory{UserID: 1, Topic: topics[0], SkillType: "writing", Quality: 4}

	overview, err := svc.Overview(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, 0, overview.Level)
	require.Equal(t, len(topics), overview.TopicsTotal)
	require.Equal(t, 1, overview.TopicsMastered)
	require.InDelta(t, 1.0/float64(len(topics)), overview.Progress, 1e-9)
}
