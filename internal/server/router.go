package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/aviator-labs/flightdeck/internal/metrics"
	"github.com/aviator-labs/flightdeck/internal/supervisor"
)

// Router exposes a read-only local status API for the supervisor.
// Endpoints:
//
//	GET {basePath}/status                overall phase + all services
//	GET {basePath}/status?service=name   one service
//	GET /healthz                         liveness of the launcher itself
//	GET /metrics                         Prometheus metrics
type Router struct {
	sup      *supervisor.Supervisor
	basePath string
}

// NewRouter constructs a Router with a configurable basePath, e.g. "/api".
func NewRouter(sup *supervisor.Supervisor, basePath string) *Router {
	return &Router{sup: sup, basePath: sanitizeBase(basePath)}
}

// Handler returns an http.Handler powered by gin.
func (r *Router) Handler() http.Handler {
	gin.SetMode(gin.ReleaseMode)
	g := gin.New()
	g.Use(gin.Recovery())
	group := g.Group(r.basePath)
	group.GET("/status", r.handleStatus)
	g.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})
	g.GET("/metrics", gin.WrapH(metrics.Handler()))
	return g
}

// NewServer starts a standalone status server on addr. Close the returned
// server to stop it.
func NewServer(addr, basePath string, sup *supervisor.Supervisor) *http.Server {
	r := NewRouter(sup, basePath)
	srv := &http.Server{
		Addr:              addr,
		Handler:           r.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	go func() { _ = srv.ListenAndServe() }()
	return srv
}

type errorResp struct {
	Error string `json:"error"`
}

func (r *Router) handleStatus(c *gin.Context) {
	snap := r.sup.Snapshot()
	name := c.Query("service")
	if name == "" {
		c.JSON(http.StatusOK, snap)
		return
	}
	for _, svc := range snap.Services {
		if svc.Name == name {
			c.JSON(http.StatusOK, svc)
			return
		}
	}
	c.JSON(http.StatusNotFound, errorResp{Error: "unknown service: " + name})
}

func sanitizeBase(bp string) string {
	bp = strings.TrimSpace(bp)
	if bp == "" {
		return ""
	}
	if !strings.HasPrefix(bp, "/") {
		bp = "/" + bp
	}
	return strings.TrimSuffix(bp, "/")
}
