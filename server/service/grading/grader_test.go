package grading

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hrygo/sprachsense/plugin/ai"
)

func gapItem() *Exercise {
	return &Exercise{
		ID:       "ex1",
		Kind:     KindGapFill,
		Question: "____ habe einen Hund",
		Answer:   "ich",
		Options:  []string{"ich", "du", "er"},
		Topic:    "personalpronomen",
	}
}

func TestNormalizeAnswer(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{" Ich ", "ich"},
		{"Ich habe einen Hund.", "ich habe einen hund"},
		{"Wirklich?!", "wirklich"},
		{"schön", "schoen"},
		{"Straße", "strasse"},
		// No singularization on answers.
		{"Hunde", "hunde"},
	}
	for _, tt := range tests {
		if got := NormalizeAnswer(tt.input); got != tt.want {
			t.Errorf("NormalizeAnswer(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestGradeGapFillExactMatch(t *testing.T) {
	g := NewGrader(nil)

	result := g.Grade(context.Background(), gapItem(), "Ich")
	require.True(t, result.Correct)
	require.Equal(t, 5, result.Quality)
	require.Equal(t, map[string]int{"personalpronomen": 5}, result.TopicScores)
}

func TestGradeGapFillWrongPronoun(t *testing.T) {
	g := NewGrader(nil)

	// "du" disagrees with "habe": the cue rule only accepts "ich".
	result := g.Grade(context.Background(), gapItem(), "du")
	require.False(t, result.Correct)
	require.Equal(t, 1, result.Quality)
}

func TestGradeGapFillRuleAlternative(t *testing.T) {
	g := NewGrader(nil)

	item := &Exercise{
		ID:       "ex2",
		Kind:     KindGapFill,
		Question: "____ hat einen Hund",
		Answer:   "er",
		Options:  []string{"er", "sie", "ich"},
	}

	// "sie" agrees with "hat" even though the expected answer is "er".
	result := g.Grade(context.Background(), item, "sie")
	require.True(t, result.Correct)
	require.Equal(t, 5, result.Quality)
}

func TestGradeEmptyAnswer(t *testing.T) {
	g := NewGrader(nil)

	result := g.Grade(context.Background(), gapItem(), "   ")
	require.False(t, result.Correct)
	require.Zero(t, result.Quality)
}

func TestGradeOpenEndedVerdict(t *testing.T) {
	mock := ai.NewMockCompletion(`{"correct": true, "quality": 4, "topics": {"perfekt": 4}}`)
	g := NewGrader(mock)

	item := &Exercise{
		ID:       "ex3",
		Kind:     KindTranslation,
		Question: "Translate: I went home.",
		Answer:   "Ich bin nach Hause gegangen.",
	}

	result := g.Grade(context.Background(), item, "Ich ging nach Hause.")
	require.True(t, result.Correct)
	require.Equal(t, 4, result.Quality)
	require.Equal(t, map[string]int{"perfekt": 4}, result.TopicScores)
}

func TestGradeOpenEndedExternalFailure(t *testing.T) {
	mock := ai.NewMockCompletion()
	mock.QueueError(fmt.Errorf("model unavailable"))
	g := NewGrader(mock)

	item := &Exercise{
		ID:       "ex4",
		Kind:     KindFreeText,
		Question: "Beschreiben Sie Ihren Tag.",
		Answer:   "Beispielantwort",
		Topic:    "praesens_regelmaessig",
	}

	result := g.Grade(context.Background(), item, "Mein Tag war gut.")
	require.False(t, result.Correct)
	require.Equal(t, fallbackQuality, result.Quality)
	require.Equal(t, map[string]int{"praesens_regelmaessig": fallbackQuality}, result.TopicScores)
}

func TestGradeOpenEndedParseFailure(t *testing.T) {
	mock := ai.NewMockCompletion("I think the answer is pretty good!")
	g := NewGrader(mock)

	item := &Exercise{
		ID:       "ex5",
		Kind:     KindFreeText,
		Question: "Beschreiben Sie Ihren Tag.",
		Answer:   "Beispielantwort",
	}

	result := g.Grade(context.Background(), item, "Mein Tag war gut.")
	require.False(t, result.Correct)
	require.Equal(t, fallbackQuality, result.Quality)
}

func TestAlternativesCapsAtThree(t *testing.T) {
	mock := ai.NewMockCompletion(`{"alternatives": ["a", "b", "c", "d"]}`)
	g := NewGrader(mock)

	alts, err := g.Alternatives(context.Background(), gapItem())
	require.NoError(t, err)
	require.Equal(t, []string{"a", "b", "c"}, alts)
}

func TestExplain(t *testing.T) {
	mock := ai.NewMockCompletion(`{"explanation": "The verb habe requires the first person pronoun ich."}`)
	g := NewGrader(mock)

	explanation, err := g.Explain(context.Background(), gapItem(), "du")
	require.NoError(t, err)
	require.Contains(t, explanation, "ich")
}

func TestExerciseValidate(t *testing.T) {
	valid := gapItem()
	require.NoError(t, valid.Validate())

	missing := *valid
	missing.Options = nil
	require.Error(t, missing.Validate())

	unknown := *valid
	unknown.Kind = "multiple_choice"
	unknown.Options = []string{"x"}
	require.Error(t, unknown.Validate())

	free := &Exercise{ID: "f1", Kind: KindFreeText, Question: "q", Answer: "a"}
	require.NoError(t, free.Validate())
}
