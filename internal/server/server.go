// Package server exposes the HTTP ingest API.
package server

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/GabrielNunesIT/log-indexer/internal/config"
	"github.com/GabrielNunesIT/log-indexer/internal/envelope"
	"github.com/GabrielNunesIT/log-indexer/internal/metrics"
	"github.com/GabrielNunesIT/log-indexer/internal/pipeline"
	"github.com/GabrielNunesIT/log-indexer/internal/sink"
)

// Server accepts subscription envelopes over HTTP and feeds them to
// the pipeline.
type Server struct {
	cfg     config.ServerConfig
	pipe    *pipeline.Pipeline
	sink    sink.Sink
	metrics *metrics.Metrics
	logger  *slog.Logger
	server  *http.Server
}

// New creates the ingest server.
func New(cfg config.ServerConfig, pipe *pipeline.Pipeline, snk sink.Sink, m *metrics.Metrics, log *slog.Logger) *Server {
	return &Server{
		cfg:     cfg,
		pipe:    pipe,
		sink:    snk,
		metrics: m,
		logger:  log.With(slog.String("component", "server")),
	}
}

func (s *Server) router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), s.requestLogger())

	r.POST("/v1/ingest", s.handleIngest)
	r.GET("/healthz", s.handleHealth)
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.metrics.Registry(), promhttp.HandlerOpts{})))

	return r
}

// Start begins serving HTTP requests. It returns once the listener is
// bound; serve errors after that are logged.
func (s *Server) Start() error {
	gin.SetMode(gin.ReleaseMode)

	s.server = &http.Server{
		Handler:           s.router(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
	}

	listener, err := net.Listen("tcp", s.cfg.Listen)
	if err != nil {
		return err
	}

	s.logger.Info("listening", slog.String("addr", listener.Addr().String()))

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("serve error", slog.Any("error", err))
		}
	}()

	return nil
}

// Stop gracefully shuts down the HTTP server, waiting up to the
// configured shutdown timeout for in-flight requests.
func (s *Server) Stop() error {
	if s.server == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()
	return s.server.Shutdown(ctx)
}

func (s *Server) handleIngest(c *gin.Context) {
	limit := int64(s.cfg.MaxBodyMB) * 1024 * 1024
	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, limit))
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			s.metrics.RejectsTotal.WithLabelValues("body_too_large").Inc()
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "request body too large"})
			return
		}
		s.metrics.RejectsTotal.WithLabelValues("read").Inc()
		c.JSON(http.StatusBadRequest, gin.H{"error": "reading request body"})
		return
	}

	msg, err := envelope.DecodeSubscription(body)
	if err != nil {
		s.metrics.RejectsTotal.WithLabelValues("decode").Inc()
		s.logger.Warn("undecodable envelope", slog.Any("error", err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "undecodable envelope"})
		return
	}

	if msg.IsControl() {
		s.metrics.ControlTotal.Inc()
		c.JSON(http.StatusOK, pipeline.Result{})
		return
	}

	res, err := s.pipe.Run(c.Request.Context(), "http", msg.Batch())
	if err != nil {
		s.logger.Error("batch failed",
			slog.String("log_group", msg.LogGroup),
			slog.Any("error", err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "indexing failed"})
		return
	}

	c.JSON(http.StatusOK, res)
}

func (s *Server) handleHealth(c *gin.Context) {
	stats := s.sink.Stats()
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"sink":    s.sink.Name(),
		"indexed": stats.Indexed,
		"failed":  stats.Failed,
	})
}

// requestLogger logs one line per request at debug level.
func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		s.logger.Debug("request",
			slog.Int("status", c.Writer.Status()),
			slog.String("method", c.Request.Method),
			slog.String("path", c.Request.URL.Path),
			slog.Duration("latency", time.Since(start)))
	}
}
