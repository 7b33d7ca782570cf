// Package server exposes the research pipeline over HTTP.
package server

import (
	"fmt"
	"log"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/trendscope/trendscope/config"
	"github.com/trendscope/trendscope/internal/llm"
	"github.com/trendscope/trendscope/internal/pipeline"
	"github.com/trendscope/trendscope/internal/search"
)

// Run builds the pipeline from cfg and serves it until the listener fails.
func Run(cfg *config.Config, addr string) error {
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())
	baseLogger := log.New(log.Writer(), "[HTTP] ", log.LstdFlags)
	e.HTTPErrorHandler = func(err error, c echo.Context) {
		code := http.StatusInternalServerError
		msg := err.Error()
		if he, ok := err.(*echo.HTTPError); ok {
			code = he.Code
			if he.Message != nil {
				msg = fmt.Sprint(he.Message)
			}
		}
		req := c.Request()
		baseLogger.Printf("%d %s %s from %s: %v", code, req.Method, req.URL.Path, c.RealIP(), err)
		if !c.Response().Committed {
			_ = c.JSON(code, map[string]interface{}{"error": msg})
		}
	}
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{"GET", "POST", "OPTIONS"},
		AllowHeaders: []string{"Content-Type"},
	}))

	e.GET("/healthz", func(c echo.Context) error { return c.String(200, "ok") })
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	searcher, err := search.NewWebSearcher(cfg.Search)
	if err != nil {
		return err
	}
	client := llm.NewClient(cfg.LLM)
	orch := pipeline.NewOrchestrator(
		pipeline.NewResearchStage(client, searcher, cfg.Search.MaxResults, nil),
		pipeline.NewAnalysisStage(client),
		pipeline.NewReportStage(client),
		log.New(log.Writer(), "[PIPELINE] ", log.LstdFlags),
	)

	api := e.Group("/api")
	rh := NewResearchHandler(orch)
	rh.Register(api)

	if addr == "" {
		addr = cfg.Server.Address
		if addr == "" {
			addr = ":8080"
		}
	}
	log.Printf("listening on %s", addr)
	return e.Start(addr)
}
