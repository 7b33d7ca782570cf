package server

import (
	"context"
	"log"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/trendscope/trendscope/internal/pipeline"
)

var researchTracer = otel.Tracer("trendscope/internal/server/research")

// Pipeline starts a run and returns its event stream.
type Pipeline interface {
	Run(ctx context.Context, query string) <-chan pipeline.Event
}

// ResearchHandler streams pipeline runs to HTTP clients as server-sent events.
type ResearchHandler struct {
	pipe   Pipeline
	logger *log.Logger
}

func NewResearchHandler(pipe Pipeline) *ResearchHandler {
	return &ResearchHandler{
		pipe:   pipe,
		logger: log.New(log.Writer(), "[RESEARCH] ", log.LstdFlags),
	}
}

func (h *ResearchHandler) Register(g *echo.Group) {
	g.POST("/research", h.research)
}

type researchRequest struct {
	Query string `json:"query"`
}

// research runs the full pipeline for one query, relaying every event in
// order. The stream always terminates with either a done or an error event
// before the connection closes.
func (h *ResearchHandler) research(c echo.Context) error {
	req := c.Request()
	ctx, span := researchTracer.Start(req.Context(), "ResearchHandler.research")
	defer span.End()
	c.SetRequest(req.WithContext(ctx))

	var body researchRequest
	if err := c.Bind(&body); err != nil {
		span.SetStatus(codes.Error, "invalid request body")
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	query := strings.TrimSpace(body.Query)
	if query == "" {
		span.SetStatus(codes.Error, "query required")
		return echo.NewHTTPError(http.StatusBadRequest, "query required")
	}
	span.SetAttributes(attribute.String("query", query))

	resp := c.Response()
	flusher, ok := resp.Writer.(http.Flusher)
	if !ok {
		span.SetStatus(codes.Error, "streaming unsupported")
		return echo.NewHTTPError(http.StatusServiceUnavailable, "streaming unsupported")
	}
	resp.Header().Set(echo.HeaderContentType, "text/event-stream")
	resp.Header().Set(echo.HeaderCacheControl, "no-cache")
	resp.Header().Set("Connection", "keep-alive")
	resp.Header().Set("X-Accel-Buffering", "no")
	resp.WriteHeader(http.StatusOK)
	flusher.Flush()

	for ev := range h.pipe.Run(ctx, query) {
		data, err := ev.Encode()
		if err != nil {
			span.RecordError(err)
			h.logger.Printf("encode %s event: %v", ev.Name, err)
			continue
		}
		if _, err := resp.Write(data); err != nil {
			span.RecordError(err)
			h.logger.Printf("client disconnected: %v", err)
			return nil
		}
		flusher.Flush()
	}
	return nil
}
