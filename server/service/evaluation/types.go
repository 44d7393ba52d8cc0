package evaluation

import (
	svcerrors "github.com/hrygo/sprachsense/server/internal/errors"
	"github.com/hrygo/sprachsense/server/service/grading"
)

// State is the lifecycle phase of an evaluation entry. Transitions are
// strictly linear; cache eviction can end the lifecycle from any state.
type State string

const (
	StatePending     State = "pending"
	StateFirstGraded State = "first_graded"
	StateBulkGraded  State = "bulk_graded"
	StateEnriching   State = "enriching"
	StateComplete    State = "complete"
)

// Submission is one exercise block with the learner's answers.
type Submission struct {
	BlockID   string              `json:"block_id,omitempty"`
	Exercises []*grading.Exercise `json:"exercises"`
	Answers   map[string]string   `json:"answers"`
}

// Validate checks the submission shape: at least one exercise, valid
// per-kind fields, unique IDs, and an answer entry for every exercise.
func (s *Submission) Validate() error {
	if len(s.Exercises) == 0 {
		return svcerrors.InvalidArgument("submission has no exercises")
	}
	if s.Answers == nil {
		return svcerrors.InvalidArgument("submission has no answers")
	}
	seen := make(map[string]struct{}, len(s.Exercises))
	for _, ex := range s.Exercises {
		if err := ex.Validate(); err != nil {
			return err
		}
		if _, dup := seen[ex.ID]; dup {
			return svcerrors.InvalidArgument("duplicate exercise id: " + ex.ID)
		}
		seen[ex.ID] = struct{}{}
		if _, ok := s.Answers[ex.ID]; !ok {
			return svcerrors.InvalidArgument("missing answer for exercise: " + ex.ID)
		}
	}
	return nil
}

// ItemResult is the per-exercise evaluation visible to the client. While an
// item is beyond the reveal frontier only Loading is set.
type ItemResult struct {
	Loading       bool     `json:"loading"`
	Correct       bool     `json:"correct"`
	Answer        string   `json:"answer"`
	CorrectAnswer string   `json:"correct_answer"`
	Alternatives  []string `json:"alternatives,omitempty"`
	Explanation   string   `json:"explanation,omitempty"`
	Quality       int      `json:"quality"`
}

// Summary aggregates a graded block.
type Summary struct {
	Total    int      `json:"total"`
	Correct  int      `json:"correct"`
	Mistakes []string `json:"mistakes,omitempty"`
}

// Entry is the cached evaluation state for one (user, block).
type Entry struct {
	State         State                  `json:"state"`
	ExerciseOrder []string               `json:"exercise_order"`
	Results       map[string]*ItemResult `json:"results"`
	ReadyIndex    int                    `json:"ready_index"`
	Pass          bool                   `json:"pass"`
	Summary       *Summary               `json:"summary,omitempty"`
}

// Response is the client-facing view assembled by Submit and Poll. Pass is
// nil until the pipeline completes.
type Response struct {
	BlockID   string        `json:"block_id"`
	Status    string        `json:"status"`
	Streaming bool          `json:"streaming,omitempty"`
	Results   []*ItemResult `json:"results"`
	Pass      *bool         `json:"pass"`
	Summary   *Summary      `json:"summary,omitempty"`
}
