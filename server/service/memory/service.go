// Package memory maintains the learner's long-term memory model: one SM-2
// scheduled row per vocabulary word and per grammar topic. Review writes go
// through a per-row keyed mutex so concurrent pipelines for the same user
// cannot interleave read-modify-write cycles.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/hrygo/sprachsense/internal/lock"
	"github.com/hrygo/sprachsense/plugin/ai"
	svcerrors "github.com/hrygo/sprachsense/server/internal/errors"
	"github.com/hrygo/sprachsense/server/scheduler/sm2"
	"github.com/hrygo/sprachsense/store"
)

const analyzeWordSystemPrompt = `You are a German lexicon assistant. Given a German word and an optional example sentence, respond with JSON only: {"base": "<dictionary base form, lowercase>", "translation": "<English translation>"}.`

type service struct {
	store      Store
	completion ai.CompletionService
	locks      *lock.KeyedMutex
	now        func() time.Time
}

// NewService creates a new memory service. completion may be nil, in which
// case word registration falls back to the canonicalization heuristics.
func NewService(st Store, completion ai.CompletionService) Service {
	return &service{
		store:      st,
		completion: completion,
		locks:      lock.NewKeyedMutex(),
		now:        time.Now,
	}
}

type wordAnalysis struct {
	Base        string `json:"base"`
	Translation string `json:"translation"`
}

func (s *service) UpsertWord(ctx context.Context, userID int32, word, sentence string) (string, error) {
	canonical := Canonicalize(word)
	if canonical == "" {
		return "", svcerrors.InvalidArgument("word is empty after normalization")
	}

	existing, err := s.store.GetVocabMemory(ctx, &store.FindVocabMemory{UserID: &userID, Word: &canonical})
	if err != nil {
		return "", svcerrors.StoreFailed("failed to look up word", err)
	}
	if existing != nil {
		return existing.Word, nil
	}

	translation := ""
	if analysis := s.analyzeWord(ctx, word, sentence); analysis != nil {
		if base := Canonicalize(analysis.Base); base != "" {
			canonical = base
		}
		translation = analysis.Translation
	}

	now := s.now()
	if _, err := s.store.UpsertVocabMemory(ctx, &store.VocabMemory{
		UserID:       userID,
		Word:         canonical,
		Display:      word,
		Translation:  translation,
		Context:      sentence,
		Ease:         sm2.DefaultEase,
		NextReviewTs: now.Unix(),
	}); err != nil {
		return "", svcerrors.StoreFailed("failed to insert word", err)
	}

	return canonical, nil
}

// analyzeWord asks the completion service for a base-form analysis. Any
// failure degrades to nil so registration proceeds on heuristics alone.
func (s *service) analyzeWord(ctx context.Context, word, sentence string) *wordAnalysis {
	if s.completion == nil {
		return nil
	}

	prompt := fmt.Sprintf("Word: %s", word)
	if sentence != "" {
		prompt += fmt.Sprintf("\nSentence: %s", sentence)
	}

	resp, err := s.completion.Complete(ctx, analyzeWordSystemPrompt, prompt, 0.0)
	if err != nil {
		slog.Warn("word analysis failed, using heuristic base form", "word", word, "error", err)
		return nil
	}

	raw, err := ai.ExtractJSON(resp)
	if err != nil {
		slog.Warn("word analysis returned no JSON, using heuristic base form", "word", word, "error", err)
		return nil
	}

	var analysis wordAnalysis
	if err := json.Unmarshal([]byte(raw), &analysis); err != nil || analysis.Base == "" {
		slog.Warn("word analysis unparseable, using heuristic base form", "word", word)
		return nil
	}
	return &analysis
}

func (s *service) ReviewWord(ctx context.Context, userID int32, token string, quality int, seen map[string]bool) error {
	canonical := Canonicalize(token)
	if canonical == "" {
		return nil
	}
	if seen != nil {
		key := "w:" + canonical
		if seen[key] {
			return nil
		}
		seen[key] = true
	}

	lockKey := fmt.Sprintf("vocab:%d:%s", userID, canonical)
	s.locks.Lock(lockKey)
	defer s.locks.Unlock(lockKey)

	row, err := s.store.GetVocabMemory(ctx, &store.FindVocabMemory{UserID: &userID, Word: &canonical})
	if err != nil {
		return svcerrors.StoreFailed("failed to load word for review", err)
	}
	if row == nil {
		row = &store.VocabMemory{
			UserID:  userID,
			Word:    canonical,
			Display: token,
			Ease:    sm2.DefaultEase,
		}
	}

	next := sm2.Schedule(quality, sm2.State{
		Ease:         row.Ease,
		Repetitions:  row.Repetitions,
		IntervalDays: row.IntervalDays,
	})

	now := s.now()
	row.Ease = next.Ease
	row.Repetitions = next.Repetitions
	row.IntervalDays = next.IntervalDays
	row.LastReviewTs = now.Unix()
	row.NextReviewTs = sm2.NextReview(now, next).Unix()

	if _, err := s.store.UpsertVocabMemory(ctx, row); err != nil {
		return svcerrors.StoreFailed("failed to persist word review", err)
	}
	return nil
}

func (s *service) ReviewTopic(ctx context.Context, userID int32, topic, skillType, category string, quality int, seen map[string]bool) error {
	if topic == "" {
		return nil
	}
	if skillType == "" {
		skillType = "writing"
	}
	if seen != nil {
		key := "t:" + topic + ":" + skillType
		if seen[key] {
			return nil
		}
		seen[key] = true
	}

	lockKey := fmt.Sprintf("topic:%d:%s:%s", userID, topic, skillType)
	s.locks.Lock(lockKey)
	defer s.locks.Unlock(lockKey)

	row, err := s.store.GetTopicMemory(ctx, &store.FindTopicMemory{UserID: &userID, Topic: &topic, SkillType: &skillType})
	if err != nil {
		return svcerrors.StoreFailed("failed to load topic for review", err)
	}
	if row == nil {
		row = &store.TopicMemory{
			UserID:    userID,
			Topic:     topic,
			SkillType: skillType,
			Category:  category,
			Ease:      sm2.DefaultEase,
		}
	}

	next := sm2.Schedule(quality, sm2.State{
		Ease:         row.Ease,
		Repetitions:  row.Repetitions,
		IntervalDays: row.IntervalDays,
	})

	now := s.now()
	row.Quality = quality
	if quality >= 4 {
		row.CorrectCount++
	}
	if category != "" {
		row.Category = category
	}
	row.Ease = next.Ease
	row.Repetitions = next.Repetitions
	row.IntervalDays = next.IntervalDays
	row.LastReviewTs = now.Unix()
	row.NextReviewTs = sm2.NextReview(now, next).Unix()

	if _, err := s.store.UpsertTopicMemory(ctx, row); err != nil {
		return svcerrors.StoreFailed("failed to persist topic review", err)
	}
	return nil
}

func (s *service) DueWords(ctx context.Context, userID int32, limit int) ([]*store.VocabMemory, error) {
	dueBefore := s.now().Unix()
	find := &store.FindVocabMemory{UserID: &userID, DueBeforeTs: &dueBefore}
	if limit > 0 {
		find.Limit = &limit
	}
	list, err := s.store.ListVocabMemories(ctx, find)
	if err != nil {
		return nil, svcerrors.StoreFailed("failed to list due words", err)
	}
	return list, nil
}

func (s *service) DueTopics(ctx context.Context, userID int32, limit int) ([]*store.TopicMemory, error) {
	dueBefore := s.now().Unix()
	find := &store.FindTopicMemory{UserID: &userID, DueBeforeTs: &dueBefore}
	if limit > 0 {
		find.Limit = &limit
	}
	list, err := s.store.ListTopicMemories(ctx, find)
	if err != nil {
		return nil, svcerrors.StoreFailed("failed to list due topics", err)
	}
	return list, nil
}
