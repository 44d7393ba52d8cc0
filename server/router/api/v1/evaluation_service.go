package v1

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	svcerrors "github.com/hrygo/sprachsense/server/internal/errors"
	"github.com/hrygo/sprachsense/server/service/evaluation"
	"github.com/hrygo/sprachsense/server/service/grading"
)

// submitEvaluationRequest is the submit payload.
type submitEvaluationRequest struct {
	BlockID       string `json:"block_id,omitempty"`
	ExerciseBlock struct {
		Exercises []*grading.Exercise `json:"exercises"`
	} `json:"exercise_block"`
	Answers map[string]string `json:"answers"`
}

// SubmitEvaluation accepts an exercise block for asynchronous evaluation.
// POST /api/v1/evaluations
func (s *APIV1Service) SubmitEvaluation(c echo.Context) error {
	userID := currentUserID(c)

	if !s.submitLimiter.Allow(fmt.Sprintf("submit:%d", userID)) {
		return c.JSON(http.StatusTooManyRequests, map[string]string{"error": "too many submissions"})
	}

	var req submitEvaluationRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "malformed request body"})
	}

	sub := &evaluation.Submission{
		BlockID:   req.BlockID,
		Exercises: req.ExerciseBlock.Exercises,
		Answers:   req.Answers,
	}

	resp, err := s.Pipeline.Submit(c.Request().Context(), userID, sub)
	if err != nil {
		switch svcerrors.GetCodeFromError(err, svcerrors.ErrCodeInvalidArgument) {
		case svcerrors.ErrCodeConflict:
			return c.JSON(http.StatusConflict, map[string]string{"error": err.Error()})
		case svcerrors.ErrCodeInvalidArgument:
			return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
		default:
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "evaluation failed"})
		}
	}

	return c.JSON(http.StatusCreated, resp)
}

// PollEvaluation returns the current state of an evaluation.
// GET /api/v1/evaluations/:blockID
func (s *APIV1Service) PollEvaluation(c echo.Context) error {
	userID := currentUserID(c)
	blockID := c.Param("blockID")

	resp, err := s.Pipeline.Poll(c.Request().Context(), userID, blockID)
	if err != nil {
		if svcerrors.IsCode(err, svcerrors.ErrCodeNotFound) {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "evaluation not found or expired"})
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "poll failed"})
	}

	return c.JSON(http.StatusOK, resp)
}
