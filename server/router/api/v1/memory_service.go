package v1

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
)

const defaultDueLimit = 20

// dueWordResponse is one entry of the vocabulary due queue.
type dueWordResponse struct {
	Word         string  `json:"word"`
	Display      string  `json:"display"`
	Translation  string  `json:"translation,omitempty"`
	Context      string  `json:"context,omitempty"`
	Ease         float64 `json:"ease"`
	Repetitions  int     `json:"repetitions"`
	IntervalDays int     `json:"interval_days"`
	NextReviewTs int64   `json:"next_review_ts"`
}

// dueTopicResponse is one entry of the topic due queue.
type dueTopicResponse struct {
	Topic        string `json:"topic"`
	SkillType    string `json:"skill_type"`
	Category     string `json:"category,omitempty"`
	Quality      int    `json:"quality"`
	Repetitions  int    `json:"repetitions"`
	IntervalDays int    `json:"interval_days"`
	NextReviewTs int64  `json:"next_review_ts"`
}

// ListDueWords returns vocabulary due for review.
// GET /api/v1/memory/words/due?limit=
func (s *APIV1Service) ListDueWords(c echo.Context) error {
	userID := currentUserID(c)
	limit := queryLimit(c)

	list, err := s.Memory.DueWords(c.Request().Context(), userID, limit)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to list due words"})
	}

	resp := make([]*dueWordResponse, 0, len(list))
	for _, row := range list {
		resp = append(resp, &dueWordResponse{
			Word:         row.Word,
			Display:      row.Display,
			Translation:  row.Translation,
			Context:      row.Context,
			Ease:         row.Ease,
			Repetitions:  row.Repetitions,
			IntervalDays: row.IntervalDays,
			NextReviewTs: row.NextReviewTs,
		})
	}
	return c.JSON(http.StatusOK, map[string]any{"words": resp})
}

// ListDueTopics returns grammar topics due for review.
// GET /api/v1/memory/topics/due?limit=
func (s *APIV1Service) ListDueTopics(c echo.Context) error {
	userID := currentUserID(c)
	limit := queryLimit(c)

	list, err := s.Memory.DueTopics(c.Request().Context(), userID, limit)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to list due topics"})
	}

	resp := make([]*dueTopicResponse, 0, len(list))
	for _, row := range list {
		resp = append(resp, &dueTopicResponse{
			Topic:        row.Topic,
			SkillType:    row.SkillType,
			Category:     row.Category,
			Quality:      row.Quality,
			Repetitions:  row.Repetitions,
			IntervalDays: row.IntervalDays,
			NextReviewTs: row.NextReviewTs,
		})
	}
	return c.JSON(http.StatusOK, map[string]any{"topics": resp})
}

// createWordRequest is the explicit word registration payload.
type createWordRequest struct {
	Word    string `json:"word"`
	Context string `json:"context,omitempty"`
}

// CreateWord registers a word in the user's vocabulary memory.
// POST /api/v1/memory/words
func (s *APIV1Service) CreateWord(c echo.Context) error {
	userID := currentUserID(c)

	var req createWordRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "malformed request body"})
	}
	if req.Word == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "word is required"})
	}

	canonical, err := s.Memory.UpsertWord(c.Request().Context(), userID, req.Word, req.Context)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to register word"})
	}

	return c.JSON(http.StatusCreated, map[string]string{"word": canonical})
}

func queryLimit(c echo.Context) int {
	raw := c.QueryParam("limit")
	if raw == "" {
		return defaultDueLimit
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit <= 0 {
		return defaultDueLimit
	}
	return limit
}
