package api

import (
	"context"
	"crypto/subtle"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/flabs/taskmanager/cluster"
	"github.com/flabs/taskmanager/log"
	"github.com/flabs/taskmanager/types"

	"github.com/cockroachdb/errors"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	shutdownTimeout  = 5 * time.Second
	defaultHeartbeat = 2 * time.Second
	metricsPath      = "/metrics"
)

// Server exposes the cluster over HTTP
type Server struct {
	echo      *echo.Echo
	cluster   cluster.Cluster
	config    types.Config
	permitted *regexp.Regexp
	heartbeat time.Duration
}

// New .
func New(c cluster.Cluster, config types.Config) (*Server, error) {
	permitted, err := regexp.Compile(config.Bridge.PermittedAddresses)
	if err != nil {
		return nil, errors.Wrap(err, "bad permitted addresses")
	}
	s := &Server{
		echo:      echo.New(),
		cluster:   c,
		config:    config,
		permitted: permitted,
		heartbeat: config.Bridge.Heartbeat,
	}
	if s.heartbeat <= 0 {
		s.heartbeat = defaultHeartbeat
	}

	e := s.echo
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = errorHandler

	e.Use(middleware.RequestID())
	e.Use(requestLogger())
	e.Use(middleware.Recover())
	if config.Auth.Username != "" {
		e.Use(middleware.BasicAuthWithConfig(middleware.BasicAuthConfig{
			Skipper: func(c echo.Context) bool {
				return c.Path() == metricsPath
			},
			Validator: func(username, password string, _ echo.Context) (bool, error) {
				return subtle.ConstantTimeCompare([]byte(username), []byte(config.Auth.Username)) == 1 &&
					subtle.ConstantTimeCompare([]byte(password), []byte(config.Auth.Password)) == 1, nil
			},
		}))
	}
	if config.Profile != "" {
		e.GET(metricsPath, echo.WrapHandler(promhttp.Handler()))
	}
	s.routes()
	return s, nil
}

func (s *Server) routes() {
	g := s.echo.Group("/api")
	g.GET("/specs", s.listSpecs)
	g.POST("/specs", s.addSpecs)
	g.GET("/specs/:id", s.getSpec)
	g.DELETE("/specs/:id", s.removeSpec)
	g.GET("/hierarchies", s.listHierarchies)
	g.DELETE("/hierarchies/:id", s.removeHierarchy)
	g.POST("/hierarchies/purge", s.purgeHierarchies)
	g.GET("/tasks/:id", s.getTask)
	g.POST("/tasks/:id/close", s.moveTask(s.cluster.CloseTask))
	g.POST("/tasks/:id/start", s.moveTask(s.cluster.StartTask))
	g.POST("/tasks/:id/fail", s.moveTask(s.cluster.FailTask))
	g.POST("/events", s.submitEvent)
	g.POST("/sources/:name", s.submitSource)

	s.echo.GET("/events", s.streamEvents)
}

// Handler .
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Run serves until ctx is done
func (s *Server) Run(ctx context.Context) error {
	logger := log.WithFunc("api.Run").WithField("bind", s.config.Bind)
	errCh := make(chan error, 1)
	go func() {
		errCh <- s.echo.Start(s.config.Bind)
	}()
	logger.Info(ctx, "API server started")

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	logger.Info(ctx, "API server stopping")
	return s.echo.Shutdown(sctx)
}

func requestLogger() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			res := c.Response()
			rid := res.Header().Get(echo.HeaderXRequestID)
			ctx := context.WithValue(req.Context(), types.TracingID, rid)
			c.SetRequest(req.WithContext(ctx))
			start := time.Now()

			err := next(c)

			logger := log.WithFunc("api.request").
				WithField("method", req.Method).
				WithField("uri", req.RequestURI).
				WithField("remote_ip", c.RealIP()).
				WithField("latency", time.Since(start).String())
			if err != nil {
				logger.Error(ctx, err, "request failed")
			} else if !strings.HasPrefix(req.RequestURI, metricsPath) {
				logger.WithField("status", res.Status).Debug(ctx, "served")
			}
			return err
		}
	}
}

// errorHandler renders errors as a ReplyError body
func errorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	body := &types.ReplyError{Code: statusOf(err), Message: err.Error()}
	var he *echo.HTTPError
	if errors.As(err, &he) {
		body.Message = http.StatusText(he.Code)
		if msg, ok := he.Message.(string); ok {
			body.Message = msg
		}
	}
	if c.Request().Method == http.MethodHead {
		_ = c.NoContent(body.Code)
		return
	}
	_ = c.JSON(body.Code, body)
}

func statusOf(err error) int {
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he.Code
	}
	var re *types.ReplyError
	if errors.As(err, &re) && re.Code >= 400 && re.Code < 600 {
		return re.Code
	}
	switch {
	case errors.Is(err, types.ErrTaskSpecNotFound),
		errors.Is(err, types.ErrTaskNotFound),
		errors.Is(err, types.ErrHierarchyNotFound),
		errors.Is(err, types.ErrUnknownSource):
		return http.StatusNotFound
	case errors.Is(err, types.ErrEmptySpecID),
		errors.Is(err, types.ErrEmptyTaskID),
		errors.Is(err, types.ErrInvalidSourceMessage),
		errors.Is(err, types.ErrBadPayload):
		return http.StatusBadRequest
	case errors.Is(err, types.ErrLockTimeout),
		errors.Is(err, types.ErrHierarchyActive):
		return http.StatusConflict
	case errors.Is(err, types.ErrNoConsumer):
		return http.StatusServiceUnavailable
	case errors.Is(err, types.ErrReplyTimeout):
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}
