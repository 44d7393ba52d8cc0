// Package curriculum tracks the learner's level (0-10) against a fixed
// German grammar syllabus and promotes them once enough of the current
// level's topics are mastered.
package curriculum

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"github.com/hrygo/sprachsense/internal/lock"
	svcerrors "github.com/hrygo/sprachsense/server/internal/errors"
	"github.com/hrygo/sprachsense/server/scheduler/sm2"
	"github.com/hrygo/sprachsense/store"
)

const (
	// masteryQuality is the minimum last-review quality for a topic to count
	// as mastered.
	masteryQuality = 4

	// levelUpThreshold is the share of mastered topics required to advance.
	levelUpThreshold = 0.9

	// seedQuality is the quality recorded on placeholder rows for a freshly
	// unlocked level. Below masteryQuality so new topics never count as
	// mastered before a real review.
	seedQuality = 3
)

// Service defines the curriculum business logic.
type Service interface {
	// Progress returns the mastered share of the level's topics in [0, 1].
	Progress(ctx context.Context, userID int32, level int) (float64, error)

	// MaybeLevelUp promotes the user when the current level's progress
	// reaches the threshold, seeding placeholder topic rows for the new
	// level. Safe to call repeatedly.
	MaybeLevelUp(ctx context.Context, userID int32) (bool, int, error)

	// Overview reports the user's level and topic counts for the API.
	Overview(ctx context.Context, userID int32) (*Overview, error)
}

// Overview is the progress summary served by the API.
type Overview struct {
	Level          int     `json:"level"`
	Progress       float64 `json:"progress"`
	TopicsTotal    int     `json:"topics_total"`
	TopicsMastered int     `json:"topics_mastered"`
}

// Store is the interface for store operations needed by the curriculum service.
type Store interface {
	GetUserLevel(ctx context.Context, userID int32) (*store.UserLevel, error)
	UpsertUserLevel(ctx context.Context, upsert *store.UserLevel) (*store.UserLevel, error)
	GetTopicMemory(ctx context.Context, find *store.FindTopicMemory) (*store.TopicMemory, error)
	UpsertTopicMemory(ctx context.Context, upsert *store.TopicMemory) (*store.TopicMemory, error)
}

type service struct {
	store Store
	locks *lock.KeyedMutex
	now   func() time.Time
}

// NewService creates a new curriculum service.
func NewService(st Store) Service {
	return &service{
		store: st,
		locks: lock.NewKeyedMutex(),
		now:   time.Now,
	}
}

func (s *service) Progress(ctx context.Context, userID int32, level int) (float64, error) {
	mastered, total, err := s.masteredCount(ctx, userID, level)
	if err != nil {
		return 0, err
	}
	if total == 0 {
		return 1, nil
	}
	return float64(mastered) / float64(total), nil
}

func (s *service) masteredCount(ctx context.Context, userID int32, level int) (int, int, error) {
	topics := TopicsForLevel(level)
	mastered := 0
	for _, topic := range topics {
		topic := topic
		skill := "writing"
		row, err := s.store.GetTopicMemory(ctx, &store.FindTopicMemory{
			UserID:    &userID,
			Topic:     &topic,
			SkillType: &skill,
		})
		if err != nil {
			return 0, 0, svcerrors.StoreFailed("failed to load topic", err)
		}
		// Topics never exercised count as unmastered.
		if row != nil && row.Quality >= masteryQuality {
			mastered++
		}
	}
	return mastered, len(topics), nil
}

func (s *service) MaybeLevelUp(ctx context.Context, userID int32) (bool, int, error) {
	lockKey := levelLockKey(userID)
	s.locks.Lock(lockKey)
	defer s.locks.Unlock(lockKey)

	current, err := s.store.GetUserLevel(ctx, userID)
	if err != nil {
		return false, 0, svcerrors.StoreFailed("failed to load user level", err)
	}
	if current.Level >= MaxLevel {
		return false, current.Level, nil
	}

	progress, err := s.Progress(ctx, userID, current.Level)
	if err != nil {
		return false, current.Level, err
	}
	if progress < levelUpThreshold {
		return false, current.Level, nil
	}

	newLevel := current.Level + 1
	if _, err := s.store.UpsertUserLevel(ctx, &store.UserLevel{
		UserID:    userID,
		Level:     newLevel,
		UpdatedTs: s.now().Unix(),
	}); err != nil {
		return false, current.Level, svcerrors.StoreFailed("failed to store new level", err)
	}

	if err := s.seedLevelTopics(ctx, userID, newLevel); err != nil {
		// The promotion stands; seeding gaps are filled by the first real
		// review of each topic.
		slog.Warn("failed to seed topics for new level",
			"user_id", userID, "level", newLevel, "error", err)
	}

	slog.Info("user leveled up", "user_id", userID, "level", newLevel, "progress", progress)
	return true, newLevel, nil
}

// seedLevelTopics inserts placeholder rows for the level's topics so they
// show up in the due queue immediately. Existing rows are left untouched.
func (s *service) seedLevelTopics(ctx context.Context, userID int32, level int) error {
	now := s.now().Unix()
	for _, topic := range TopicsForLevel(level) {
		topic := topic
		skill := "writing"
		existing, err := s.store.GetTopicMemory(ctx, &store.FindTopicMemory{
			UserID:    &userID,
			Topic:     &topic,
			SkillType: &skill,
		})
		if err != nil {
			return err
		}
		if existing != nil {
			continue
		}
		if _, err := s.store.UpsertTopicMemory(ctx, &store.TopicMemory{
			UserID:       userID,
			Topic:        topic,
			SkillType:    skill,
			Category:     "grammar",
			Quality:      seedQuality,
			Ease:         sm2.DefaultEase,
			NextReviewTs: now,
		}); err != nil {
			return err
		}
	}
	return nil
}

func (s *service) Overview(ctx context.Context, userID int32) (*Overview, error) {
	current, err := s.store.GetUserLevel(ctx, userID)
	if err != nil {
		return nil, svcerrors.StoreFailed("failed to load user level", err)
	}
	mastered, total, err := s.masteredCount(ctx, userID, current.Level)
	if err != nil {
		return nil, err
	}
	progress := 1.0
	if total > 0 {
		progress = float64(mastered) / float64(total)
	}
	return &Overview{
		Level:          current.Level,
		Progress:       progress,
		TopicsTotal:    total,
		TopicsMastered: mastered,
	}, nil
}

func levelLockKey(userID int32) string {
	return "level:" + strconv.Itoa(int(userID))
}
