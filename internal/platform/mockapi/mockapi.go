// Package mockapi is a local stand-in for the remote assessment API, used by
// the `riskscan mockapi` command and the integration tests. It reproduces the
// real service's bad habits on purpose: random 429/500/503 responses, rows
// with malformed or missing vitals, rows without a patient_id, and pagination
// metadata that keeps claiming hasNext on the final page.
package mockapi

import (
	"context"
	"fmt"
	"math/rand"
	"net/http"
	"strconv"
	"sync"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/riskscan/riskscan/pkg/pagination"
)

// Config controls the simulator's dataset and failure injection. Page size
// limits follow pkg/pagination, same as the real API's documented maximum.
type Config struct {
	APIKey   string
	Patients int
	// FailureRate is the probability in [0,1) that a request is answered
	// with a transient failure status instead of data.
	FailureRate float64
	Seed        int64
}

func (c *Config) applyDefaults() {
	if c.Patients <= 0 {
		c.Patients = 50
	}
}

// Server serves the simulated assessment API.
type Server struct {
	cfg    Config
	echo   *echo.Echo
	logger zerolog.Logger

	mu  sync.Mutex
	rng *rand.Rand

	patients []map[string]any
}

// New builds a Server with a deterministic synthetic dataset.
func New(cfg Config, logger zerolog.Logger) *Server {
	cfg.applyDefaults()
	s := &Server{
		cfg:    cfg,
		echo:   echo.New(),
		logger: logger,
		rng:    rand.New(rand.NewSource(cfg.Seed)), //nolint:gosec // simulator only
	}
	s.patients = seedPatients(cfg.Patients, cfg.Seed)

	s.echo.HideBanner = true
	s.echo.HidePort = true
	s.echo.Use(s.requireAPIKey)
	s.echo.GET("/patients", s.listPatients)
	s.echo.POST("/submit-assessment", s.submitAssessment)
	return s
}

// Handler exposes the server as an http.Handler for tests.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start blocks serving on addr until Shutdown is called.
func (s *Server) Start(addr string) error {
	s.logger.Info().Str("addr", addr).Int("patients", len(s.patients)).Msg("mock assessment API listening")
	return s.echo.Start(addr)
}

// Shutdown stops the server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

// requireAPIKey rejects requests without the expected x-api-key header.
func (s *Server) requireAPIKey(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if s.cfg.APIKey != "" && c.Request().Header.Get("x-api-key") != s.cfg.APIKey {
			return echo.NewHTTPError(http.StatusUnauthorized, "invalid or missing api key")
		}
		return next(c)
	}
}

// maybeFail rolls the dice for an injected transient failure.
func (s *Server) maybeFail(c echo.Context) bool {
	if s.cfg.FailureRate <= 0 {
		return false
	}
	s.mu.Lock()
	roll := s.rng.Float64()
	pick := s.rng.Intn(3)
	s.mu.Unlock()
	if roll >= s.cfg.FailureRate {
		return false
	}

	status := [...]int{http.StatusTooManyRequests, http.StatusInternalServerError, http.StatusServiceUnavailable}[pick]
	if status == http.StatusTooManyRequests {
		c.Response().Header().Set("Retry-After", "1")
	}
	s.logger.Debug().Int("status", status).Str("path", c.Path()).Msg("injected failure")
	c.JSON(status, map[string]string{"error": http.StatusText(status)})
	return true
}

// listPatients handles GET /patients?page=N&limit=L.
func (s *Server) listPatients(c echo.Context) error {
	if s.maybeFail(c) {
		return nil
	}

	params := pagination.FromContext(c)
	start, end := params.Window(len(s.patients))
	rows := s.patients[start:end]

	return c.JSON(http.StatusOK, map[string]any{
		"data": rows,
		"pagination": map[string]any{
			"page":       params.Page,
			"limit":      params.Limit,
			"totalPages": params.TotalPages(len(s.patients)),
			// The real API kept claiming more data past the last page, and
			// clients must cope, so the simulator does the same.
			"hasNext": true,
		},
		"metadata": map[string]any{
			"total": len(s.patients),
		},
	})
}

// submission mirrors the client's payload shape.
type submission struct {
	HighRiskPatients  []string `json:"high_risk_patients"`
	FeverPatients     []string `json:"fever_patients"`
	DataQualityIssues []string `json:"data_quality_issues"`
}

// submitAssessment handles POST /submit-assessment.
func (s *Server) submitAssessment(c echo.Context) error {
	if s.maybeFail(c) {
		return nil
	}

	var sub submission
	if err := c.Bind(&sub); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	s.logger.Info().
		Int("high_risk", len(sub.HighRiskPatients)).
		Int("fever", len(sub.FeverPatients)).
		Int("data_quality", len(sub.DataQualityIssues)).
		Msg("assessment received")

	return c.JSON(http.StatusOK, map[string]any{
		"submission_id": uuid.New().String(),
		"status":        "accepted",
		"counts": map[string]int{
			"high_risk_patients":  len(sub.HighRiskPatients),
			"fever_patients":      len(sub.FeverPatients),
			"data_quality_issues": len(sub.DataQualityIssues),
		},
	})
}

// seedPatients generates a deterministic roster. Most rows are clean; a
// steady fraction carry the field pathologies the real feed exhibits.
func seedPatients(n int, seed int64) []map[string]any {
	rng := rand.New(rand.NewSource(seed)) //nolint:gosec // simulator only
	patients := make([]map[string]any, 0, n)

	for i := 0; i < n; i++ {
		row := map[string]any{
			"patient_id":     fmt.Sprintf("PT-%04d", i+1),
			"name":           fmt.Sprintf("Patient %d", i+1),
			"age":            20 + rng.Intn(60),
			"temperature":    97.5 + rng.Float64()*5,
			"blood_pressure": fmt.Sprintf("%d/%d", 100+rng.Intn(60), 60+rng.Intn(40)),
			"visit_date":     fmt.Sprintf("2024-%02d-%02d", 1+rng.Intn(12), 1+rng.Intn(28)),
		}

		switch i % 10 {
		case 3:
			row["temperature"] = "N/A"
		case 5:
			row["blood_pressure"] = nil
		case 7:
			row["age"] = strconv.Itoa(20 + rng.Intn(60)) // numeric string
		case 9:
			delete(row, "patient_id")
		}

		patients = append(patients, row)
	}
	return patients
}
