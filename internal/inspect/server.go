// Package inspect serves a Protodyn over HTTP: decode wire bytes to JSON,
// encode JSON to wire bytes, and re-encode wire bytes through the dynamic model.
package inspect

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/anirudhraja/protodyn"
	"github.com/anirudhraja/protodyn/dynamic"
)

const (
	// UnknownBytesHeader reports how many bytes of a re-encoded message came
	// from fields the schema does not declare.
	UnknownBytesHeader = "X-Protodyn-Unknown-Bytes"

	protobufContentType = "application/x-protobuf"
	maxBodyBytes        = 32 << 20
)

var trustedProxies = []string{"127.0.0.1", "::1"}

// Server is the HTTP inspector.
type Server struct {
	Addr string

	proto   *protodyn.Protodyn
	logger  zerolog.Logger
	router  *gin.Engine
	metrics *metrics
	started time.Time
}

// New creates a server for p listening on addr.
func New(addr string, p *protodyn.Protodyn, logger zerolog.Logger) *Server {
	s := &Server{
		Addr:    addr,
		proto:   p,
		logger:  logger,
		router:  gin.New(),
		metrics: newMetrics(),
		started: time.Now(),
	}
	s.router.Use(gin.Recovery())
	s.router.Use(requestLogger(logger))
	s.router.Use(s.metrics.middleware())
	if err := s.router.SetTrustedProxies(trustedProxies); err != nil {
		logger.Warn().Err(err).Strs("proxies", trustedProxies).Msg("failed to set trusted proxies")
	}
	s.registerRoutes()
	return s
}

// Handler returns the server's routes.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", s.Addr).Msg("inspector listening")
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown inspector: %w", err)
		}
		return nil
	}
}

func (s *Server) registerRoutes() {
	s.router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "ok",
			"uptime": time.Since(s.started).String(),
		})
	})
	s.router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.metrics.registry, promhttp.HandlerOpts{})))

	v1 := s.router.Group("/v1")
	v1.GET("/messages", s.listMessages)
	v1.GET("/messages/:type", s.describeMessage)
	v1.POST("/decode/:type", s.decode)
	v1.POST("/encode/:type", s.encode)
	v1.POST("/reencode/:type", s.reencode)
}

func (s *Server) listMessages(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"messages": s.proto.ListMessages(),
		"enums":    s.proto.ListEnums(),
	})
}

func (s *Server) describeMessage(c *gin.Context) {
	md, err := s.proto.Descriptor(c.Param("type"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, md)
}

// decode turns a wire payload into JSON.
func (s *Server) decode(c *gin.Context) {
	messageType := c.Param("type")
	data, ok := s.body(c)
	if !ok {
		return
	}

	m, err := s.proto.Decode(data, messageType)
	s.metrics.recordOperation("decode", messageType, len(data), err)
	if err != nil {
		s.fail(c, err)
		return
	}
	out, err := s.proto.ToMap(m, messageType)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

// encode turns a JSON object into a wire payload.
func (s *Server) encode(c *gin.Context) {
	messageType := c.Param("type")
	body, ok := s.body(c)
	if !ok {
		return
	}

	var input map[string]interface{}
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("invalid JSON body: %v", err)})
		return
	}

	data, err := s.proto.Marshal(input, messageType)
	s.metrics.recordOperation("encode", messageType, len(data), err)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.Data(http.StatusOK, protobufContentType, data)
}

// reencode decodes a wire payload and writes it back out, unknown fields
// included.
func (s *Server) reencode(c *gin.Context) {
	messageType := c.Param("type")
	data, ok := s.body(c)
	if !ok {
		return
	}

	m, err := s.proto.Decode(data, messageType)
	if err == nil {
		data, err = m.Marshal()
	}
	s.metrics.recordOperation("reencode", messageType, len(data), err)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.Header(UnknownBytesHeader, strconv.Itoa(len(m.Unknown())))
	c.Data(http.StatusOK, protobufContentType, data)
}

func (s *Server) body(c *gin.Context) ([]byte, bool) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBodyBytes)
	data, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": err.Error()})
		return nil, false
	}
	return data, true
}

// fail maps engine errors to HTTP statuses.
func (s *Server) fail(c *gin.Context, err error) {
	status := http.StatusUnprocessableEntity
	var fieldErr *dynamic.FieldError
	switch {
	case errors.Is(err, protodyn.ErrUnknownType):
		status = http.StatusNotFound
	case errors.As(err, &fieldErr):
		status = http.StatusBadRequest
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
