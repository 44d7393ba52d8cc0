// Package evaluation runs the asynchronous exercise-evaluation pipeline:
// the first item is graded synchronously on submit, the rest in a background
// task, and enriched results are revealed one by one behind a monotonic
// ready index so the client can render progressively.
package evaluation

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"runtime/debug"
	"strings"
	"sync"
	"time"

	"github.com/lithammer/shortuuid/v4"
	"golang.org/x/sync/semaphore"

	"github.com/hrygo/sprachsense/internal/lock"
	svcerrors "github.com/hrygo/sprachsense/server/internal/errors"
	"github.com/hrygo/sprachsense/server/internal/observability"
	"github.com/hrygo/sprachsense/server/service/curriculum"
	"github.com/hrygo/sprachsense/server/service/grading"
	"github.com/hrygo/sprachsense/server/service/memory"
	"github.com/hrygo/sprachsense/store/cache"
)

// Options tune the pipeline's pacing and capacity.
type Options struct {
	// TTL bounds how long an entry stays pollable. Zero means the cache
	// default.
	TTL time.Duration
	// RevealDelay paces the enrichment reveals.
	RevealDelay time.Duration
	// MaxInFlight bounds concurrent background tasks across all users.
	MaxInFlight int64
}

// Pipeline orchestrates grading, memory updates and enrichment for
// submitted exercise blocks.
type Pipeline struct {
	memory     memory.Service
	curriculum curriculum.Service
	grader     grading.Grader
	cache      cache.Service

	opts  Options
	locks *lock.KeyedMutex
	sem   *semaphore.Weighted
	now   func() time.Time

	mu       sync.Mutex
	inFlight map[string]struct{}
	wg       sync.WaitGroup
}

// NewPipeline creates a pipeline with the given collaborators.
func NewPipeline(mem memory.Service, cur curriculum.Service, grader grading.Grader, cacheSvc cache.Service, opts Options) *Pipeline {
	if opts.MaxInFlight <= 0 {
		opts.MaxInFlight = 8
	}
	return &Pipeline{
		memory:     mem,
		curriculum: cur,
		grader:     grader,
		cache:      cacheSvc,
		opts:       opts,
		locks:      lock.NewKeyedMutex(),
		sem:        semaphore.NewWeighted(opts.MaxInFlight),
		now:        time.Now,
		inFlight:   make(map[string]struct{}),
	}
}

func entryKey(userID int32, blockID string) string {
	return fmt.Sprintf("eval:%d:%s", userID, blockID)
}

// Submit validates and accepts a block, grades the first item synchronously
// and kicks off the background pipeline. Returns the initial view: one real
// result, the rest loading.
func (p *Pipeline) Submit(ctx context.Context, userID int32, sub *Submission) (*Response, error) {
	if err := sub.Validate(); err != nil {
		return nil, err
	}
	if sub.BlockID == "" {
		sub.BlockID = shortuuid.New()
	}

	key := entryKey(userID, sub.BlockID)
	if !p.acquire(key) {
		return nil, svcerrors.Conflict("evaluation already in progress for block " + sub.BlockID)
	}

	reqCtx := observability.NewRequestContext(slog.Default(), "evaluation", userID)
	reqCtx.Info("evaluation submitted",
		slog.String(observability.LogFieldBlockID, sub.BlockID),
		slog.Int("exercises", len(sub.Exercises)))

	first := sub.Exercises[0]
	firstResult := p.grader.Grade(ctx, first, sub.Answers[first.ID])

	entry := &Entry{
		State:         StateFirstGraded,
		ExerciseOrder: make([]string, len(sub.Exercises)),
		Results:       make(map[string]*ItemResult, len(sub.Exercises)),
		ReadyIndex:    1,
	}
	for i, ex := range sub.Exercises {
		entry.ExerciseOrder[i] = ex.ID
		entry.Results[ex.ID] = &ItemResult{Loading: true, Answer: sub.Answers[ex.ID], CorrectAnswer: ex.Answer}
	}
	entry.Results[first.ID] = itemResult(first, sub.Answers[first.ID], firstResult)

	if err := p.writeEntry(ctx, key, entry); err != nil {
		p.release(key)
		return nil, err
	}

	p.wg.Add(1)
	go p.runBackground(reqCtx, userID, key, sub)

	return p.view(sub.BlockID, entry), nil
}

// Poll returns the current view of an entry. Items beyond the ready index
// are reported as loading even when they are already graded internally.
func (p *Pipeline) Poll(ctx context.Context, userID int32, blockID string) (*Response, error) {
	key := entryKey(userID, blockID)

	p.locks.Lock(key)
	defer p.locks.Unlock(key)

	entry, err := p.readEntry(ctx, key)
	if err != nil {
		return nil, err
	}
	return p.view(blockID, entry), nil
}

// Shutdown waits for in-flight background tasks to drain.
func (p *Pipeline) Shutdown(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// view projects an entry into the client response, hiding everything beyond
// the ready index.
func (p *Pipeline) view(blockID string, entry *Entry) *Response {
	resp := &Response{
		BlockID: blockID,
		Status:  "processing",
		Results: make([]*ItemResult, len(entry.ExerciseOrder)),
	}
	for i, id := range entry.ExerciseOrder {
		if i < entry.ReadyIndex {
			resp.Results[i] = entry.Results[id]
		} else {
			resp.Results[i] = &ItemResult{Loading: true}
		}
	}
	if entry.State == StateComplete {
		resp.Status = "complete"
		pass := entry.Pass
		resp.Pass = &pass
		resp.Summary = entry.Summary
	} else {
		resp.Streaming = true
	}
	return resp
}

// runBackground executes bulk grading, memory updates and enrichment.
// Panics are contained: a crashed task releases the in-flight guard and the
// stale entry ages out by TTL.
func (p *Pipeline) runBackground(reqCtx *observability.RequestContext, userID int32, key string, sub *Submission) {
	defer p.wg.Done()
	defer p.release(key)
	defer func() {
		if r := recover(); r != nil {
			reqCtx.Error("evaluation pipeline panicked", fmt.Errorf("%v", r),
				slog.String(observability.LogFieldBlockID, sub.BlockID),
				slog.String("stack", string(debug.Stack())))
			observability.GlobalMetrics().RecordFailure("evaluation")
		}
	}()

	ctx := context.Background()
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return
	}
	defer p.sem.Release(1)

	observability.GlobalMetrics().RecordRequest("evaluation")
	start := p.now()

	results, ok := p.bulkGrade(ctx, reqCtx, key, sub)
	if !ok {
		return
	}
	p.updateMemory(ctx, reqCtx, userID, sub, results)
	p.enrich(ctx, reqCtx, key, sub)

	observability.GlobalMetrics().RecordDuration("evaluation", p.now().Sub(start))
	reqCtx.Info("evaluation pipeline finished",
		slog.String(observability.LogFieldBlockID, sub.BlockID),
		slog.Int64(observability.LogFieldDuration, p.now().Sub(start).Milliseconds()))
}

// bulkGrade grades every item and stores results plus summary. The ready
// index is left alone: reveals belong to the enrichment phase.
func (p *Pipeline) bulkGrade(ctx context.Context, reqCtx *observability.RequestContext, key string, sub *Submission) (map[string]*grading.Result, bool) {
	results := make(map[string]*grading.Result, len(sub.Exercises))
	summary := &Summary{Total: len(sub.Exercises)}
	for _, ex := range sub.Exercises {
		res := p.grader.Grade(ctx, ex, sub.Answers[ex.ID])
		results[ex.ID] = res
		if res.Correct {
			summary.Correct++
		} else {
			summary.Mistakes = append(summary.Mistakes, ex.ID)
		}
	}

	err := p.mutateEntry(ctx, key, func(entry *Entry) {
		for _, ex := range sub.Exercises {
			entry.Results[ex.ID] = itemResult(ex, sub.Answers[ex.ID], results[ex.ID])
		}
		entry.Summary = summary
		entry.Pass = summary.Correct == summary.Total
		entry.State = StateBulkGraded
	})
	if err != nil {
		reqCtx.Warn("bulk grading could not store results, entry gone",
			slog.String(observability.LogFieldBlockID, sub.BlockID),
			slog.String("error", err.Error()))
		return nil, false
	}
	return results, true
}

// updateMemory feeds graded items into the spaced-repetition model. One
// shared dedupe set spans the whole submission; store-level failures are
// logged and skipped so a single bad row never stalls the block.
func (p *Pipeline) updateMemory(ctx context.Context, reqCtx *observability.RequestContext, userID int32, sub *Submission, results map[string]*grading.Result) {
	seen := make(map[string]bool)
	for _, ex := range sub.Exercises {
		res := results[ex.ID]
		if res == nil {
			continue
		}

		if res.Correct {
			for _, token := range strings.Fields(ex.Answer) {
				if memory.IsFunctionWord(memory.Canonicalize(token)) {
					continue
				}
				if err := p.memory.ReviewWord(ctx, userID, token, res.Quality, seen); err != nil {
					reqCtx.Warn("word review failed", slog.String("token", token), slog.String("error", err.Error()))
				}
			}
		}

		for topic, score := range res.TopicScores {
			if err := p.memory.ReviewTopic(ctx, userID, topic, ex.SkillType, "grammar", score, seen); err != nil {
				reqCtx.Warn("topic review failed", slog.String("topic", topic), slog.String("error", err.Error()))
			}
		}
	}

	if _, _, err := p.curriculum.MaybeLevelUp(ctx, userID); err != nil {
		reqCtx.Warn("level check failed", slog.String("error", err.Error()))
	}
}

// enrich walks the block in submission order, attaches alternatives and an
// explanation to each item and advances the reveal frontier one item at a
// time with a pacing delay in between.
func (p *Pipeline) enrich(ctx context.Context, reqCtx *observability.RequestContext, key string, sub *Submission) {
	if err := p.mutateEntry(ctx, key, func(entry *Entry) {
		entry.State = StateEnriching
	}); err != nil {
		return
	}

	for i, ex := range sub.Exercises {
		if i > 0 && p.opts.RevealDelay > 0 {
			time.Sleep(p.opts.RevealDelay)
		}

		alternatives, err := p.grader.Alternatives(ctx, ex)
		if err != nil {
			reqCtx.Debug("alternatives unavailable", slog.String("exercise_id", ex.ID), slog.String("error", err.Error()))
			alternatives = nil
		}
		explanation, err := p.grader.Explain(ctx, ex, sub.Answers[ex.ID])
		if err != nil {
			reqCtx.Debug("explanation unavailable", slog.String("exercise_id", ex.ID), slog.String("error", err.Error()))
			explanation = ""
		}

		reveal := i + 1
		if err := p.mutateEntry(ctx, key, func(entry *Entry) {
			if res := entry.Results[ex.ID]; res != nil {
				res.Alternatives = alternatives
				res.Explanation = explanation
			}
			if reveal > entry.ReadyIndex {
				entry.ReadyIndex = reveal
			}
			if reveal == len(entry.ExerciseOrder) {
				entry.State = StateComplete
			}
		}); err != nil {
			return
		}
	}
}

func itemResult(ex *grading.Exercise, answer string, res *grading.Result) *ItemResult {
	return &ItemResult{
		Correct:       res.Correct,
		Answer:        answer,
		CorrectAnswer: ex.Answer,
		Quality:       res.Quality,
	}
}

// acquire marks the key in flight; false when a pipeline already runs for it.
func (p *Pipeline) acquire(key string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, busy := p.inFlight[key]; busy {
		return false
	}
	p.inFlight[key] = struct{}{}
	return true
}

func (p *Pipeline) release(key string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.inFlight, key)
}

// readEntry loads and decodes an entry. Caller holds the keyed lock.
func (p *Pipeline) readEntry(ctx context.Context, key string) (*Entry, error) {
	data, ok := p.cache.Get(ctx, key)
	if !ok {
		return nil, svcerrors.NotFound("evaluation not found or expired")
	}
	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, svcerrors.ParseFailed("corrupt evaluation entry", err)
	}
	return &entry, nil
}

// writeEntry encodes and stores an entry under the configured TTL.
func (p *Pipeline) writeEntry(ctx context.Context, key string, entry *Entry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return svcerrors.ParseFailed("failed to encode evaluation entry", err)
	}
	if err := p.cache.Set(ctx, key, data, p.opts.TTL); err != nil {
		return svcerrors.StoreFailed("failed to store evaluation entry", err)
	}
	return nil
}

// mutateEntry applies fn to the entry under its keyed write lock. A missing
// entry (TTL eviction) surfaces as not-found so background phases stop.
func (p *Pipeline) mutateEntry(ctx context.Context, key string, fn func(*Entry)) error {
	p.locks.Lock(key)
	defer p.locks.Unlock(key)

	entry, err := p.readEntry(ctx, key)
	if err != nil {
		return err
	}
	fn(entry)
	return p.writeEntry(ctx, key, entry)
}
