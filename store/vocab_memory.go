package store

// VocabMemory tracks per-user spaced-repetition state for one vocabulary
// word. The word column stores the canonical form; Display keeps the
// spelling the learner first produced.
type VocabMemory struct {
	ID     int32
	UserID int32

	// Word is the canonical form, unique per user.
	Word        string
	Display     string
	Translation string
	Context     string

	Ease         float64
	Repetitions  int
	IntervalDays int
	NextReviewTs int64
	LastReviewTs int64
	CreatedTs    int64
}

// FindVocabMemory is the query object for vocabulary memory rows.
type FindVocabMemory struct {
	ID     *int32
	UserID *int32
	Word   *string
	// DueBeforeTs selects rows with next_review_ts <= the given timestamp.
	DueBeforeTs *int64
	Limit       *int
}

// DeleteVocabMemory removes a single row (explicit user action).
type DeleteVocabMemory struct {
	ID     int32
	UserID int32
}
