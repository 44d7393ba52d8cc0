package store

import (
	"context"
	"fmt"
	"time"

	"github.com/hrygo/sprachsense/internal/profile"
	"github.com/hrygo/sprachsense/store/cache"
)

// Store provides database access to all raw objects.
type Store struct {
	profile *profile.Profile
	driver  Driver

	// userLevelCache caches user level rows, which are read on every poll
	// and every curriculum check.
	userLevelCache *cache.Cache
}

// New creates a new instance of Store.
func New(driver Driver, profile *profile.Profile) *Store {
	cacheConfig := cache.Config{
		DefaultTTL:      10 * time.Minute,
		CleanupInterval: 5 * time.Minute,
		MaxItems:        1000,
	}

	return &Store{
		driver:         driver,
		profile:        profile,
		userLevelCache: cache.New(cacheConfig),
	}
}

func (s *Store) GetDriver() Driver {
	return s.driver
}

func (s *Store) Close() error {
	s.userLevelCache.Close()
	return s.driver.Close()
}

func (s *Store) UpsertVocabMemory(ctx context.Context, upsert *VocabMemory) (*VocabMemory, error) {
	return s.driver.UpsertVocabMemory(ctx, upsert)
}

func (s *Store) ListVocabMemories(ctx context.Context, find *FindVocabMemory) ([]*VocabMemory, error) {
	return s.driver.ListVocabMemories(ctx, find)
}

// GetVocabMemory returns the single row matching find, or nil when absent.
func (s *Store) GetVocabMemory(ctx context.Context, find *FindVocabMemory) (*VocabMemory, error) {
	limit := 1
	find.Limit = &limit
	list, err := s.driver.ListVocabMemories(ctx, find)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, nil
	}
	return list[0], nil
}

func (s *Store) DeleteVocabMemory(ctx context.Context, delete *DeleteVocabMemory) error {
	return s.driver.DeleteVocabMemory(ctx, delete)
}

func (s *Store) UpsertTopicMemory(ctx context.Context, upsert *TopicMemory) (*TopicMemory, error) {
	return s.driver.UpsertTopicMemory(ctx, upsert)
}

func (s *Store) ListTopicMemories(ctx context.Context, find *FindTopicMemory) ([]*TopicMemory, error) {
	return s.driver.ListTopicMemories(ctx, find)
}

// GetTopicMemory returns the single row matching find, or nil when absent.
func (s *Store) GetTopicMemory(ctx context.Context, find *FindTopicMemory) (*TopicMemory, error) {
	limit := 1
	find.Limit = &limit
	list, err := s.driver.ListTopicMemories(ctx, find)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, nil
	}
	return list[0], nil
}

func (s *Store) DeleteTopicMemory(ctx context.Context, delete *DeleteTopicMemory) error {
	return s.driver.DeleteTopicMemory(ctx, delete)
}

// GetUserLevel returns the user's level row, creating a level-0 view for
// users that have never been stored.
func (s *Store) GetUserLevel(ctx context.Context, userID int32) (*UserLevel, error) {
	key := userLevelCacheKey(userID)
	if v, ok := s.userLevelCache.Get(ctx, key); ok {
		if level, ok := v.(*UserLevel); ok {
			return level, nil
		}
	}

	level, err := s.driver.GetUserLevel(ctx, &FindUserLevel{UserID: userID})
	if err != nil {
		return nil, err
	}
	if level == nil {
		level = &UserLevel{UserID: userID, Level: 0}
	}
	s.userLevelCache.Set(ctx, key, level)
	return level, nil
}

func (s *Store) UpsertUserLevel(ctx context.Context, upsert *UserLevel) (*UserLevel, error) {
	level, err := s.driver.UpsertUserLevel(ctx, upsert)
	if err != nil {
		return nil, err
	}
	s.userLevelCache.Set(ctx, userLevelCacheKey(upsert.UserID), level)
	return level, nil
}

func userLevelCacheKey(userID int32) string {
	return fmt.Sprintf("user_level:%d", userID)
}
