package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// GetCurriculumProgress returns the user's level and mastery share.
// GET /api/v1/curriculum/progress
func (s *APIV1Service) GetCurriculumProgress(c echo.Context) error {
	userID := currentUserID(c)

	overview, err := s.Curriculum.Overview(c.Request().Context(), userID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to compute progress"})
	}

	return c.JSON(http.StatusOK, overview)
}
