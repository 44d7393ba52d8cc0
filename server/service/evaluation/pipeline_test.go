package evaluation

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/hrygo/sprachsense/server/service/curriculum"
	"github.com/hrygo/sprachsense/server/service/grading"
	"github.com/hrygo/sprachsense/store"
	"github.com/hrygo/sprachsense/store/cache"
)

// fakeMemory records review calls.
type fakeMemory struct {
	mu           sync.Mutex
	wordReviews  []string
	topicReviews []string
}

func (f *fakeMemory) UpsertWord(_ context.Context, _ int32, word, _ string) (string, error) {
	return word, nil
}

func (f *fakeMemory) ReviewWord(_ context.Context, _ int32, token string, _ int, seen map[string]bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if seen != nil {
		if seen["w:"+token] {
			return nil
		}
		seen["w:"+token] = true
	}
	f.wordReviews = append(f.wordReviews, token)
	return nil
}

func (f *fakeMemory) ReviewTopic(_ context.Context, _ int32, topic, _, _ string, _ int, _ map[string]bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.topicReviews = append(f.topicReviews, topic)
	return nil
}

func (f *fakeMemory) DueWords(context.Context, int32, int) ([]*store.VocabMemory, error) {
	return nil, nil
}

func (f *fakeMemory) DueTopics(context.Context, int32, int) ([]*store.TopicMemory, error) {
	return nil, nil
}

// fakeCurriculum counts level checks.
type fakeCurriculum struct {
	levelChecks atomic.Int32
}

func (f *fakeCurriculum) Progress(context.Context, int32, int) (float64, error) { return 0, nil }

func (f *fakeCurriculum) MaybeLevelUp(context.Context, int32) (bool, int, error) {
	f.levelChecks.Add(1)
	return false, 0, nil
}

func (f *fakeCurriculum) Overview(context.Context, int32) (*curriculum.Overview, error) {
	return &curriculum.Overview{}, nil
}

// scriptedGrader grades by comparing normalized answers; enrichment behavior
// is pluggable per test.
type scriptedGrader struct {
	onAlternatives func(item *grading.Exercise) ([]string, error)
	onExplain      func(item *grading.Exercise) (string, error)
}

func (g *scriptedGrader) Grade(_ context.Context, item *grading.Exercise, answer string) *grading.Result {
	correct := grading.NormalizeAnswer(answer) == grading.NormalizeAnswer(item.Answer)
	quality := 1
	if correct {
		quality = 5
	}
	res := &grading.Result{Correct: correct, Quality: quality}
	if item.Topic != "" {
		res.TopicScores = map[string]int{item.Topic: quality}
	}
	return res
}

func (g *scriptedGrader) Alternatives(_ context.Context, item *grading.Exercise) ([]string, error) {
	if g.onAlternatives != nil {
		return g.onAlternatives(item)
	}
	return []string{"alt"}, nil
}

func (g *scriptedGrader) Explain(_ context.Context, item *grading.Exercise, _ string) (string, error) {
	if g.onExplain != nil {
		return g.onExplain(item)
	}
	return "explanation", nil
}

func newTestCache(t *testing.T, ttl time.Duration) cache.Service {
	c := cache.New(cache.Config{DefaultTTL: ttl, CleanupInterval: time.Minute})
	t.Cleanup(func() { c.Close() })
	return cache.NewService(c)
}

func threeItemSubmission() *Submission {
	return &Submission{
		BlockID: "block-1",
		Exercises: []*grading.Exercise{
			{ID: "e1", Kind: grading.KindGapFill, Question: "____ habe einen Hund", Answer: "ich", Options: []string{"ich", "du"}, Topic: "personalpronomen"},
			{ID: "e2", Kind: grading.KindTranslation, Question: "Translate: the dog", Answer: "der Hund"},
			{ID: "e3", Kind: grading.KindFreeText, Question: "Ein Satz bitte.", Answer: "Ich lerne Deutsch."},
		},
		Answers: map[string]string{"e1": "ich", "e2": "der Hund", "e3": "falsch"},
	}
}

func newTestPipeline(t *testing.T, ttl time.Duration) (*Pipeline, *fakeMemory, *fakeCurriculum) {
	mem := &fakeMemory{}
	cur := &fakeCurriculum{}
	p := NewPipeline(mem, cur, &scriptedGrader{}, newTestCache(t, ttl), Options{TTL: ttl})
	return p, mem, cur
}

func waitComplete(t *testing.T, p *Pipeline, userID int32, blockID string) *Response {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		resp, err := p.Poll(context.Background(), userID, blockID)
		require.NoError(t, err)
		if resp.Status == "complete" {
			return resp
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("pipeline did not complete in time")
	return nil
}

// durationCapture collects the duration_ms attribute of pipeline
// completion log records.
type durationCapture struct {
	mu        sync.Mutex
	durations []int64
}

func (h *durationCapture) Enabled(context.Context, slog.Level) bool { return true }

func (h *durationCapture) Handle(_ context.Context, r slog.Record) error {
	if r.Message != "evaluation pipeline finished" {
		return nil
	}
	r.Attrs(func(a slog.Attr) bool {
		if a.Key == "duration_ms" {
			h.mu.Lock()
			h.durations = append(h.durations, a.Value.Int64())
			h.mu.Unlock()
		}
		return true
	})
	return nil
}

func (h *durationCapture) WithAttrs([]slog.Attr) slog.Handler { return h }

func (h *durationCapture) WithGroup(string) slog.Handler { return h }

func TestSubmitReturnsFirstResultOnly(t *testing.T) {
	p, _, _ := newTestPipeline(t, time.Minute)

	resp, err := p.Submit(context.Background(), 1, threeItemSubmission())
	require.NoError(t, err)
	require.Equal(t, "block-1", resp.BlockID)
	require.Equal(t, "processing", resp.Status)
	require.True(t, resp.Streaming)
	require.Nil(t, resp.Pass)
	require.Len(t, resp.Results, 3)

	require.False(t, resp.Results[0].Loading)
	require.True(t, resp.Results[0].Correct)
	require.True(t, resp.Results[1].Loading)
	require.True(t, resp.Results[2].Loading)

	waitComplete(t, p, 1, "block-1")
}

func TestPipelineCompletesInSubmissionOrder(t *testing.T) {
	p, mem, cur := newTestPipeline(t, time.Minute)

	_, err := p.Submit(context.Background(), 1, threeItemSubmission())
	require.NoError(t, err)

	resp := waitComplete(t, p, 1, "block-1")
	require.Len(t, resp.Results, 3)
	for i, res := range resp.Results {
		require.False(t, res.Loading, "item %d still loading", i)
	}
	require.True(t, resp.Results[0].Correct)
	require.True(t, resp.Results[1].Correct)
	require.False(t, resp.Results[2].Correct)
	require.Equal(t, "explanation", resp.Results[1].Explanation)

	require.NotNil(t, resp.Pass)
	require.False(t, *resp.Pass)
	require.NotNil(t, resp.Summary)
	require.Equal(t, 3, resp.Summary.Total)
	require.Equal(t, 2, resp.Summary.Correct)
	require.Equal(t, []string{"e3"}, resp.Summary.Mistakes)

	// Correct answers fed the memory model; "ich" and "der" are function
	// words and stay out of the vocabulary queue.
	mem.mu.Lock()
	words := append([]string(nil), mem.wordReviews...)
	topics := append([]string(nil), mem.topicReviews...)
	mem.mu.Unlock()
	require.Equal(t, []string{"Hund"}, words)
	require.Contains(t, topics, "personalpronomen")
	require.EqualValues(t, 1, cur.levelChecks.Load())
}

func TestCompletionLogUsesPipelineClock(t *testing.T) {
	capture := &durationCapture{}
	old := slog.Default()
	slog.SetDefault(slog.New(capture))
	defer slog.SetDefault(old)

	p, _, _ := newTestPipeline(t, time.Minute)

	// Every clock read jumps one hour, so the logged duration can only come
	// from the injected clock, never from wall time.
	base := time.Now()
	var ticks atomic.Int64
	p.now = func() time.Time {
		return base.Add(time.Duration(ticks.Add(1)) * time.Hour)
	}

	_, err := p.Submit(context.Background(), 1, threeItemSubmission())
	require.NoError(t, err)
	waitComplete(t, p, 1, "block-1")

	deadline := time.Now().Add(5 * time.Second)
	for {
		capture.mu.Lock()
		n := len(capture.durations)
		capture.mu.Unlock()
		if n > 0 {
			break
		}
		require.True(t, time.Now().Before(deadline), "completion log not observed")
		time.Sleep(5 * time.Millisecond)
	}

	capture.mu.Lock()
	got := capture.durations[0]
	capture.mu.Unlock()
	require.GreaterOrEqual(t, got, time.Hour.Milliseconds())
}

func TestPollReadyIndexMonotonic(t *testing.T) {
	p, _, _ := newTestPipeline(t, time.Minute)
	p.opts.RevealDelay = 10 * time.Millisecond

	_, err := p.Submit(context.Background(), 1, threeItemSubmission())
	require.NoError(t, err)

	prevReady := 0
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		resp, err := p.Poll(context.Background(), 1, "block-1")
		require.NoError(t, err)

		ready := 0
		for _, res := range resp.Results {
			if !res.Loading {
				ready++
			} else {
				break
			}
		}
		require.GreaterOrEqual(t, ready, prevReady, "ready frontier went backwards")
		prevReady = ready

		if resp.Status == "complete" {
			require.Equal(t, 3, ready)
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatal("pipeline did not complete in time")
}

func TestSubmitWhileInFlightConflicts(t *testing.T) {
	release := make(chan struct{})
	grader := &scriptedGrader{
		onAlternatives: func(*grading.Exercise) ([]string, error) {
			<-release
			return nil, nil
		},
	}
	p := NewPipeline(&fakeMemory{}, &fakeCurriculum{}, grader, newTestCache(t, time.Minute), Options{TTL: time.Minute})

	_, err := p.Submit(context.Background(), 1, threeItemSubmission())
	require.NoError(t, err)

	_, err = p.Submit(context.Background(), 1, threeItemSubmission())
	require.Error(t, err)
	require.Contains(t, err.Error(), "CONFLICT")

	// A different user may run the same block ID concurrently.
	_, err = p.Submit(context.Background(), 2, threeItemSubmission())
	require.NoError(t, err)

	close(release)
	waitComplete(t, p, 1, "block-1")
	waitComplete(t, p, 2, "block-1")

	// Once finished, resubmitting the block is allowed again.
	_, err = p.Submit(context.Background(), 1, threeItemSubmission())
	require.NoError(t, err)
	waitComplete(t, p, 1, "block-1")
}

func TestBackgroundPanicDoesNotCrash(t *testing.T) {
	grader := &scriptedGrader{
		onAlternatives: func(*grading.Exercise) ([]string, error) {
			panic("enrichment blew up")
		},
	}
	p := NewPipeline(&fakeMemory{}, &fakeCurriculum{}, grader, newTestCache(t, time.Minute), Options{TTL: time.Minute})

	_, err := p.Submit(context.Background(), 1, threeItemSubmission())
	require.NoError(t, err)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, p.Shutdown(shutdownCtx))

	// The process survived; the entry is still pollable in its last state
	// and the in-flight guard was released.
	resp, err := p.Poll(context.Background(), 1, "block-1")
	require.NoError(t, err)
	require.Equal(t, "processing", resp.Status)

	_, err = p.Submit(context.Background(), 1, threeItemSubmission())
	require.NoError(t, err)
}

func TestPollAfterTTLEvictionNotFound(t *testing.T) {
	p, _, _ := newTestPipeline(t, 30*time.Millisecond)

	_, err := p.Submit(context.Background(), 1, threeItemSubmission())
	require.NoError(t, err)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, p.Shutdown(shutdownCtx))

	time.Sleep(50 * time.Millisecond)

	_, err = p.Poll(context.Background(), 1, "block-1")
	require.Error(t, err)
	require.Contains(t, err.Error(), "NOT_FOUND")
}

func TestPollUnknownBlockNotFound(t *testing.T) {
	p, _, _ := newTestPipeline(t, time.Minute)

	_, err := p.Poll(context.Background(), 1, "no-such-block")
	require.Error(t, err)
	require.Contains(t, err.Error(), "NOT_FOUND")
}

func TestSubmitValidation(t *testing.T) {
	p, _, _ := newTestPipeline(t, time.Minute)

	_, err := p.Submit(context.Background(), 1, &Submission{})
	require.Error(t, err)

	sub := threeItemSubmission()
	delete(sub.Answers, "e2")
	_, err = p.Submit(context.Background(), 1, sub)
	require.Error(t, err)

	sub = threeItemSubmission()
	sub.Exercises[0].Options = nil
	_, err = p.Submit(context.Background(), 1, sub)
	require.Error(t, err)
}

func TestSubmitAssignsBlockID(t *testing.T) {
	p, _, _ := newTestPipeline(t, time.Minute)

	sub := threeItemSubmission()
	sub.BlockID = ""
	resp, err := p.Submit(context.Background(), 1, sub)
	require.NoError(t, err)
	require.NotEmpty(t, resp.BlockID)

	waitComplete(t, p, 1, resp.BlockID)
}
