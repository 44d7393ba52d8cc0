package store

// TopicMemory tracks per-user spaced-repetition state for one grammar
// topic. SkillType distinguishes the exercise modality the topic was
// observed in (writing, gap_fill, ...).
type TopicMemory struct {
	ID     int32
	UserID int32

	Topic     string
	SkillType string
	Category  string
	Context   string

	// Quality is the last 0-5 score recorded for the topic.
	Quality      int
	CorrectCount int

	Ease         float64
	Repetitions  int
	IntervalDays int
	NextReviewTs int64
	LastReviewTs int64
	CreatedTs    int64
}

// FindTopicMemory is the query object for topic memory rows.
type FindTopicMemory struct {
	ID        *int32
	UserID    *int32
	Topic     *string
	SkillType *string
	Category  *string
	// DueBeforeTs selects rows with next_review_ts <= the given timestamp.
	DueBeforeTs *int64
	Limit       *int
}

// DeleteTopicMemory removes a single row.
type DeleteTopicMemory struct {
	ID     int32
	UserID int32
}
