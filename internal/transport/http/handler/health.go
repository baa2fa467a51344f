package handler

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	"researchhub/internal/bootstrap"
)

type HealthHandler struct {
	app *bootstrap.App
}

type dependencyStatus struct {
	OK      bool   `json:"ok"`
	Message string `json:"message,omitempty"`
}

func NewHealthHandler(app *bootstrap.App) *HealthHandler {
	return &HealthHandler{app: app}
}

func (h *HealthHandler) Liveness(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

// Readiness pings every configured dependency concurrently.
func (h *HealthHandler) Readiness(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	var (
		mu       sync.Mutex
		statuses = make(map[string]dependencyStatus)
		g        errgroup.Group
	)
	for _, check := range h.app.DependencyChecks() {
		check := check
		g.Go(func() error {
			err := check.Ping(ctx)
			status := dependencyStatus{OK: err == nil}
			if err != nil {
				status.Message = err.Error()
			}
			mu.Lock()
			statuses[check.Name] = status
			mu.Unlock()
			return err
		})
	}

	statusCode := http.StatusOK
	if err := g.Wait(); err != nil {
		statusCode = http.StatusServiceUnavailable
	}

	c.JSON(statusCode, gin.H{
		"app":          h.app.Config.App.Name,
		"env":          h.app.Config.App.Env,
		"uptime_sec":   int(time.Since(h.app.StartedAt).Seconds()),
		"dependencies": statuses,
	})
}
