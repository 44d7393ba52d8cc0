package store

// UserLevel stores the learner's current curriculum level (0-10).
type UserLevel struct {
	UserID    int32
	Level     int
	UpdatedTs int64
}

// FindUserLevel is the query object for user level rows.
type FindUserLevel struct {
	UserID int32
}
