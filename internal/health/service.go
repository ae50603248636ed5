package health

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/gin-gonic/gin"

	"papershare-backend/internal/shared/server/respond"
	"papershare-backend/internal/shared/telemetry"
)

// Check probes one backend. A nil error means healthy.
type Check func(ctx context.Context) error

// Service encapsulates health-related checks.
type Service struct {
	checks  map[string]Check
	timeout time.Duration
}

// NewService constructs a new health service.
func NewService(timeout time.Duration) *Service {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &Service{checks: map[string]Check{}, timeout: timeout}
}

// Register adds a named check. Nil checks are ignored.
func (s *Service) Register(name string, check Check) {
	if check != nil {
		s.checks[name] = check
	}
}

// Status runs every check and reports each backend plus an overall flag.
func (s *Service) Status(ctx context.Context) (bool, map[string]string) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	names := make([]string, 0, len(s.checks))
	for name := range s.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	ok := true
	out := make(map[string]string, len(names))
	for _, name := range names {
		if err := s.checks[name](ctx); err != nil {
			ok = false
			out[name] = err.Error()
			telemetry.Warn("health.check_failed", map[string]any{"check": name, "error": err.Error()})
			continue
		}
		out[name] = "ok"
	}
	return ok, out
}

func (s *Service) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/health", func(c *gin.Context) {
		ok, checks := s.Status(c.Request.Context())
		status := http.StatusOK
		if !ok {
			status = http.StatusServiceUnavailable
		}
		respond.JSON(c, status, gin.H{"ok": ok, "checks": checks})
	})
}
