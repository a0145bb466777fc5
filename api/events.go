package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/flabs/taskmanager/log"

	"github.com/labstack/echo/v4"
)

type frame struct {
	Address string            `json:"address"`
	Headers map[string]string `json:"headers,omitempty"`
	Body    any               `json:"body"`
}

// streamEvents bridges a bus address to server-sent events
func (s *Server) streamEvents(c echo.Context) error {
	address := c.QueryParam("address")
	if address == "" || !s.permitted.MatchString(address) {
		return echo.NewHTTPError(http.StatusForbidden, fmt.Sprintf("address %q not permitted", address))
	}
	ctx, cancel := context.WithCancel(c.Request().Context())
	defer cancel()
	logger := log.WithFunc("api.streamEvents").WithField("address", address)

	ch, err := s.cluster.Watch(ctx, address)
	if err != nil {
		return err
	}

	res := c.Response()
	res.Header().Set(echo.HeaderContentType, "text/event-stream")
	res.Header().Set("Cache-Control", "no-cache")
	res.Header().Set("Connection", "keep-alive")
	res.WriteHeader(http.StatusOK)
	res.Flush()

	ticker := time.NewTicker(s.heartbeat)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if _, err := fmt.Fprint(res, ": ping\n\n"); err != nil {
				return nil
			}
			res.Flush()
		case msg := <-ch:
			data, err := json.Marshal(frame{Address: msg.Address, Headers: msg.Headers, Body: msg.Body})
			if err != nil {
				logger.Error(ctx, err, "encode failed")
				continue
			}
			if _, err := fmt.Fprintf(res, "event: message\ndata: %s\n\n", data); err != nil {
				return nil
			}
			res.Flush()
		}
	}
}
