// Package grading scores learner answers. Gap-fill items are graded
// deterministically from a rule table; open-ended items are delegated to the
// completion service with a conservative fallback, so grading itself never
// fails a submission.
package grading

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/hrygo/sprachsense/plugin/ai"
)

const (
	// fallbackQuality is recorded when an answer was given but the external
	// grader could not produce a verdict: attempted, presumed imperfect.
	fallbackQuality = 2

	gradeSystemPrompt = `You are a strict but fair German language grader. Grade the learner's answer against the exercise. Respond with JSON only:
{"correct": true|false, "quality": 0-5, "topics": {"<grammar topic>": 0-5}}
Quality: 5 flawless, 4 minor slip, 3 understandable with errors, 2 substantial errors, 1 mostly wrong, 0 no attempt.`

	alternativesSystemPrompt = `You are a German language tutor. Give up to 3 alternative correct answers or paraphrases for the exercise solution. Respond with JSON only: {"alternatives": ["...", "..."]}`

	explainSystemPrompt = `You are a German language tutor. Explain briefly (2-3 sentences, in English) why the expected answer is correct and, if the learner's answer differs, what went wrong. Respond with JSON only: {"explanation": "..."}`
)

// Grader scores answers and produces enrichment content.
type Grader interface {
	// Grade scores a single answer. External faults degrade to a
	// conservative default instead of an error.
	Grade(ctx context.Context, item *Exercise, answer string) *Result

	// Alternatives returns up to 3 accepted paraphrases of the solution.
	Alternatives(ctx context.Context, item *Exercise) ([]string, error)

	// Explain explains the solution relative to the learner's answer.
	Explain(ctx context.Context, item *Exercise, answer string) (string, error)
}

// answerReplacer folds umlaut spellings in answers.
var answerReplacer = strings.NewReplacer(
	"ä", "ae",
	"ö", "oe",
	"ü", "ue",
	"ß", "ss",
)

// NormalizeAnswer prepares an answer for comparison: trimmed, terminal
// punctuation stripped, lowercased, umlauts folded. No singularization —
// answers must match inflection.
func NormalizeAnswer(s string) string {
	w := strings.TrimSpace(s)
	w = strings.TrimRight(w, ".?!")
	w = strings.ToLower(w)
	return answerReplacer.Replace(w)
}

type grader struct {
	completion ai.CompletionService
}

// NewGrader creates a grader on top of the given completion service.
// completion may be nil; open-ended items then grade to the fallback.
func NewGrader(completion ai.CompletionService) Grader {
	return &grader{completion: completion}
}

func (g *grader) Grade(ctx context.Context, item *Exercise, answer string) *Result {
	normAnswer := NormalizeAnswer(answer)
	normExpected := NormalizeAnswer(item.Answer)

	if normAnswer == "" {
		return &Result{Correct: false, Quality: 0}
	}
	if normAnswer == normExpected {
		return &Result{Correct: true, Quality: 5, TopicScores: topicScore(item, 5)}
	}

	if item.Kind == KindGapFill {
		for _, accepted := range acceptedGapAnswers(item.Question) {
			if normAnswer == NormalizeAnswer(accepted) {
				return &Result{Correct: true, Quality: 5, TopicScores: topicScore(item, 5)}
			}
		}
		return &Result{Correct: false, Quality: 1, TopicScores: topicScore(item, 1)}
	}

	return g.gradeOpenEnded(ctx, item, answer)
}

// gradeOpenEnded delegates to the completion service. Any external or parse
// failure produces the attempted-but-imperfect default.
func (g *grader) gradeOpenEnded(ctx context.Context, item *Exercise, answer string) *Result {
	fallback := &Result{Correct: false, Quality: fallbackQuality, TopicScores: topicScore(item, fallbackQuality)}
	if g.completion == nil {
		return fallback
	}

	prompt := fmt.Sprintf("Exercise (%s): %s\nExpected answer: %s\nLearner answer: %s",
		item.Kind, item.Question, item.Answer, answer)

	resp, err := g.completion.Complete(ctx, gradeSystemPrompt, prompt, 0.0)
	if err != nil {
		slog.Warn("external grading failed, using fallback quality",
			"exercise_id", item.ID, "error", err)
		return fallback
	}

	raw, err := ai.ExtractJSON(resp)
	if err != nil {
		slog.Warn("grading response had no JSON, using fallback quality",
			"exercise_id", item.ID, "error", err)
		return fallback
	}

	var verdict struct {
		Correct bool           `json:"correct"`
		Quality int            `json:"quality"`
		Topics  map[string]int `json:"topics"`
	}
	if err := json.Unmarshal([]byte(raw), &verdict); err != nil {
		slog.Warn("grading response unparseable, using fallback quality",
			"exercise_id", item.ID, "error", err)
		return fallback
	}

	if verdict.Quality < 0 {
		verdict.Quality = 0
	}
	if verdict.Quality > 5 {
		verdict.Quality = 5
	}
	scores := verdict.Topics
	if len(scores) == 0 {
		scores = topicScore(item, verdict.Quality)
	}
	return &Result{Correct: verdict.Correct, Quality: verdict.Quality, TopicScores: scores}
}

func (g *grader) Alternatives(ctx context.Context, item *Exercise) ([]string, error) {
	if g.completion == nil {
		return nil, nil
	}

	prompt := fmt.Sprintf("Exercise (%s): %s\nSolution: %s", item.Kind, item.Question, item.Answer)
	resp, err := g.completion.Complete(ctx, alternativesSystemPrompt, prompt, 0.7)
	if err != nil {
		return nil, err
	}

	raw, err := ai.ExtractJSON(resp)
	if err != nil {
		return nil, err
	}
	var parsed struct {
		Alternatives []string `json:"alternatives"`
	}
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return nil, err
	}
	if len(parsed.Alternatives) > 3 {
		parsed.Alternatives = parsed.Alternatives[:3]
	}
	return parsed.Alternatives, nil
}

func (g *grader) Explain(ctx context.Context, item *Exercise, answer string) (string, error) {
	if g.completion == nil {
		return "", nil
	}

	prompt := fmt.Sprintf("Exercise (%s): %s\nExpected answer: %s\nLearner answer: %s",
		item.Kind, item.Question, item.Answer, answer)
	resp, err := g.completion.Complete(ctx, explainSystemPrompt, prompt, 0.3)
	if err != nil {
		return "", err
	}

	raw, err := ai.ExtractJSON(resp)
	if err != nil {
		return "", err
	}
	var parsed struct {
		Explanation string `json:"explanation"`
	}
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return "", err
	}
	return parsed.Explanation, nil
}

// topicScore maps the item's own topic to the given score.
func topicScore(item *Exercise, score int) map[string]int {
	if item.Topic == "" {
		return nil
	}
	return map[string]int{item.Topic: score}
}
