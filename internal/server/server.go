// Package server exposes the built aggregate graph artifacts over HTTP
// for local inspection. It is a read-only convenience surface; the
// pipeline itself never depends on it.
package server

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"sort"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/ehr/popgraph/internal/domain/population"
	"github.com/ehr/popgraph/internal/platform/middleware"
)

// Server serves the contents of the pipeline output directory.
type Server struct {
	echo   *echo.Echo
	outDir string
	log    zerolog.Logger
}

// New wires routes and middleware for the given output directory.
func New(outDir string, log zerolog.Logger) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(log))
	e.Use(middleware.Recovery(log))

	s := &Server{echo: e, outDir: outDir, log: log}

	e.GET("/healthz", s.health)
	e.GET("/graph", s.artifact("meta_graph.json", "application/json"))
	e.GET("/graph.csv", s.artifact("cooccurrence.csv", "text/csv"))
	e.GET("/graph.png", s.artifact("meta_graph.png", "image/png"))
	e.GET("/summary", s.summary)

	return s
}

// ServeHTTP makes the server usable with httptest and custom listeners.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.echo.ServeHTTP(w, r)
}

// Start blocks serving on addr until Shutdown is called.
func (s *Server) Start(addr string) error {
	return s.echo.Start(addr)
}

// Shutdown drains in-flight requests and stops the listener.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

func (s *Server) health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// artifact serves one output file, with a helpful 404 when the pipeline
// has not produced it yet.
func (s *Server) artifact(name, contentType string) echo.HandlerFunc {
	return func(c echo.Context) error {
		path := filepath.Join(s.outDir, name)
		if _, err := os.Stat(path); err != nil {
			return c.JSON(http.StatusNotFound, map[string]string{
				"error": name + " not found; run 'popgraph build' first",
			})
		}
		c.Response().Header().Set(echo.HeaderContentType, contentType)
		return c.File(path)
	}
}

type summaryResponse struct {
	Nodes       int                   `json:"nodes"`
	Edges       int                   `json:"edges"`
	TopConcepts []population.MetaNode `json:"top_concepts"`
}

// summary loads the aggregate graph and reports its size plus the ten
// highest-support concepts.
func (s *Server) summary(c echo.Context) error {
	raw, err := os.ReadFile(filepath.Join(s.outDir, "meta_graph.json"))
	if err != nil {
		return c.JSON(http.StatusNotFound, map[string]string{
			"error": "meta_graph.json not found; run 'popgraph build' first",
		})
	}
	var mg population.MetaGraph
	if err := json.Unmarshal(raw, &mg); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "corrupt meta_graph.json")
	}

	top := make([]population.MetaNode, 0, len(mg.Nodes))
	for _, n := range mg.Nodes {
		top = append(top, n)
	}
	sort.Slice(top, func(i, j int) bool {
		if top[i].Props.Support != top[j].Props.Support {
			return top[i].Props.Support > top[j].Props.Support
		}
		return top[i].ID < top[j].ID
	})
	if len(top) > 10 {
		top = top[:10]
	}

	return c.JSON(http.StatusOK, summaryResponse{
		Nodes:       len(mg.Nodes),
		Edges:       len(mg.Edges),
		TopConcepts: top,
	})
}
