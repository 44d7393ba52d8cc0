package v1

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/hrygo/sprachsense/internal/profile"
	"github.com/hrygo/sprachsense/server/middleware"
	"github.com/hrygo/sprachsense/server/service/curriculum"
	"github.com/hrygo/sprachsense/server/service/evaluation"
	"github.com/hrygo/sprachsense/server/service/memory"
	"github.com/hrygo/sprachsense/store"
)

// userIDHeader carries the authenticated user's ID. Authentication itself
// happens upstream; this service trusts the header.
const userIDHeader = "X-User-ID"

// APIV1Service wires the HTTP surface to the domain services.
type APIV1Service struct {
	Profile    *profile.Profile
	Store      *store.Store
	Memory     memory.Service
	Curriculum curriculum.Service
	Pipeline   *evaluation.Pipeline

	submitLimiter *middleware.RateLimiter
}

// NewAPIV1Service creates the v1 API service.
func NewAPIV1Service(profile *profile.Profile, st *store.Store, mem memory.Service, cur curriculum.Service, pipeline *evaluation.Pipeline) *APIV1Service {
	return &APIV1Service{
		Profile:       profile,
		Store:         st,
		Memory:        mem,
		Curriculum:    cur,
		Pipeline:      pipeline,
		submitLimiter: middleware.NewRateLimiter(),
	}
}

// Register mounts all v1 routes on the Echo instance.
func (s *APIV1Service) Register(e *echo.Echo) {
	g := e.Group("/api/v1")
	g.Use(echomw.CORS())
	g.Use(s.requireUser)

	g.POST("/evaluations", s.SubmitEvaluation)
	g.GET("/evaluations/:blockID", s.PollEvaluation)

	g.GET("/memory/words/due", s.ListDueWords)
	g.GET("/memory/topics/due", s.ListDueTopics)
	g.POST("/memory/words", s.CreateWord)

	g.GET("/curriculum/progress", s.GetCurriculumProgress)
}

// requireUser extracts and validates the user ID header.
func (s *APIV1Service) requireUser(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		raw := c.Request().Header.Get(userIDHeader)
		if raw == "" {
			return c.JSON(http.StatusUnauthorized, map[string]string{"error": "missing " + userIDHeader + " header"})
		}
		userID, err := strconv.ParseInt(raw, 10, 32)
		if err != nil || userID <= 0 {
			return c.JSON(http.StatusUnauthorized, map[string]string{"error": "invalid " + userIDHeader + " header"})
		}
		c.Set("userID", int32(userID))
		return next(c)
	}
}

func currentUserID(c echo.Context) int32 {
	userID, _ := c.Get("userID").(int32)
	return userID
}
