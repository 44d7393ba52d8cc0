package grading

import (
	svcerrors "github.com/hrygo/sprachsense/server/internal/errors"
)

// ExerciseKind discriminates the supported exercise forms.
type ExerciseKind string

const (
	KindGapFill     ExerciseKind = "gap_fill"
	KindTranslation ExerciseKind = "translation"
	KindFreeText    ExerciseKind = "free_text"
	KindOrdering    ExerciseKind = "ordering"
)

// Valid reports whether the kind is one of the known exercise forms.
func (k ExerciseKind) Valid() bool {
	switch k {
	case KindGapFill, KindTranslation, KindFreeText, KindOrdering:
		return true
	}
	return false
}

// Exercise is a single item of an exercise block. Answer holds the expected
// solution; Options is only meaningful for gap-fill items.
type Exercise struct {
	ID        string       `json:"id"`
	Kind      ExerciseKind `json:"kind"`
	Question  string       `json:"question"`
	Answer    string       `json:"answer"`
	Options   []string     `json:"options,omitempty"`
	Topic     string       `json:"topic,omitempty"`
	SkillType string       `json:"skill_type,omitempty"`
}

// Validate checks the per-kind required fields.
func (e *Exercise) Validate() error {
	if e.ID == "" {
		return svcerrors.InvalidArgument("exercise id is required")
	}
	if !e.Kind.Valid() {
		return svcerrors.InvalidArgument("unknown exercise kind: " + string(e.Kind))
	}
	if e.Question == "" {
		return svcerrors.InvalidArgument("exercise question is required: " + e.ID)
	}
	if e.Answer == "" {
		return svcerrors.InvalidArgument("exercise answer is required: " + e.ID)
	}
	if e.Kind == KindGapFill && len(e.Options) == 0 {
		return svcerrors.InvalidArgument("gap_fill exercise needs options: " + e.ID)
	}
	return nil
}

// Result is the outcome of grading one exercise.
type Result struct {
	Correct bool
	Quality int
	// TopicScores maps grammar topics touched by the answer to a 0-5 score.
	TopicScores map[string]int
}
