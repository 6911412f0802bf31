// Package api exposes the mixing pipeline over HTTP: a synchronous mix
// endpoint that streams back the rendered MP3, a job status endpoint for
// asynchronous jobs, and a health probe.
package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/book-expert/logger"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/affirmix/mix-service/internal/core"
)

// OutputFilename is the attachment name of every rendered mix.
const OutputFilename = "combined_affirmation_audio.mp3"

const outputContentType = "audio/mpeg"

// Mixer runs one mix operation end to end.
type Mixer interface {
	Mix(ctx context.Context, req core.MixRequest) ([]byte, error)
}

// ErrorResponse is the JSON body of every non-2xx answer.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// JobStatusResponse is the JSON body of a successful job lookup.
type JobStatusResponse struct {
	JobID  string `json:"jobId"`
	Status string `json:"status"`
}

// Server wires the HTTP routes to the pipeline collaborators.
type Server struct {
	echo     *echo.Echo
	mixer    Mixer
	jobStore core.JobStore
	engine   core.MediaEngine
	log      *logger.Logger
}

// NewServer builds the echo application with all routes registered.
func NewServer(
	mixer Mixer,
	jobStore core.JobStore,
	engine core.MediaEngine,
	log *logger.Logger,
) *Server {
	echoApp := echo.New()
	echoApp.HideBanner = true
	echoApp.Use(middleware.Recover())

	server := &Server{
		echo:     echoApp,
		mixer:    mixer,
		jobStore: jobStore,
		engine:   engine,
		log:      log,
	}

	echoApp.GET("/health", server.handleHealth)

	v1 := echoApp.Group("/v1")
	v1.POST("/mix", server.handleMix)
	v1.GET("/jobs", server.handleJobStatus)

	return server
}

// Start blocks serving HTTP on the given address.
func (s *Server) Start(address string) error {
	err := s.echo.Start(address)
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return nil
}

// Shutdown stops the HTTP server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

// Handler exposes the underlying http.Handler, used by tests.
func (s *Server) Handler() http.Handler {
	return s.echo
}

func (s *Server) handleMix(c echo.Context) error {
	var req core.MixRequest

	bindErr := c.Bind(&req)
	if bindErr != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_request",
			Details: "request body must be a JSON mix request",
		})
	}

	data, mixErr := s.mixer.Mix(c.Request().Context(), req)
	if mixErr != nil {
		return s.respondMixError(c, mixErr)
	}

	c.Response().Header().Set(
		echo.HeaderContentDisposition,
		`attachment; filename="`+OutputFilename+`"`,
	)

	return c.Blob(http.StatusOK, outputContentType, data)
}

// respondMixError maps the pipeline's error taxonomy onto HTTP statuses.
// Only validation failures are the caller's fault; every downstream failure
// is a server-side error.
func (s *Server) respondMixError(c echo.Context, mixErr error) error {
	if errors.Is(mixErr, core.ErrValidation) {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "validation_failed",
			Details: mixErr.Error(),
		})
	}

	s.log.Error("Mix request failed: %v", mixErr)

	return c.JSON(http.StatusInternalServerError, ErrorResponse{
		Error:   "mix_failed",
		Details: mixErr.Error(),
	})
}

func (s *Server) handleJobStatus(c echo.Context) error {
	jobID := c.QueryParam("jobId")
	if jobID == "" {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "missing_job_id",
			Details: "the jobId query parameter is required",
		})
	}

	status, getErr := s.jobStore.Get(c.Request().Context(), jobID)
	if getErr != nil {
		if errors.Is(getErr, core.ErrJobNotFound) {
			return c.JSON(http.StatusNotFound, ErrorResponse{
				Error:   "job_not_found",
				Details: getErr.Error(),
			})
		}

		s.log.Error("Job status lookup failed for '%s': %v", jobID, getErr)

		return c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "status_lookup_failed",
			Details: getErr.Error(),
		})
	}

	return c.JSON(http.StatusOK, JobStatusResponse{
		JobID:  jobID,
		Status: status,
	})
}

func (s *Server) handleHealth(c echo.Context) error {
	engineErr := s.engine.Available(c.Request().Context())
	if engineErr != nil {
		return c.JSON(http.StatusServiceUnavailable, map[string]string{
			"status": "degraded",
			"engine": engineErr.Error(),
		})
	}

	return c.JSON(http.StatusOK, map[string]string{
		"status":  "ok",
		"service": "mix-service",
	})
}
