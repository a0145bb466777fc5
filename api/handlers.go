package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/flabs/taskmanager/types"

	"github.com/labstack/echo/v4"
)

func (s *Server) listSpecs(c echo.Context) error {
	specs, err := s.cluster.ListTaskSpecs(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, specs)
}

// addSpecs takes a spec or a list of specs
func (s *Server) addSpecs(c echo.Context) error {
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	specs := []*types.TaskSpec{}
	if trimmed := bytes.TrimSpace(body); len(trimmed) > 0 && trimmed[0] == '{' {
		spec := &types.TaskSpec{}
		err = json.Unmarshal(trimmed, spec)
		specs = append(specs, spec)
	} else {
		err = json.Unmarshal(trimmed, &specs)
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if len(specs) == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "no task spec")
	}
	if err := s.cluster.AddTaskSpecs(c.Request().Context(), specs...); err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, specs)
}

func (s *Server) getSpec(c echo.Context) error {
	spec, err := s.cluster.GetTaskSpec(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, spec)
}

func (s *Server) removeSpec(c echo.Context) error {
	if err := s.cluster.RemoveTaskSpec(c.Request().Context(), c.Param("id")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) listHierarchies(c echo.Context) error {
	roots, err := s.cluster.ListHierarchies(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, roots)
}

func (s *Server) removeHierarchy(c echo.Context) error {
	if err := s.cluster.RemoveHierarchy(c.Request().Context(), c.Param("id")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) purgeHierarchies(c echo.Context) error {
	n, err := s.cluster.PurgeHierarchies(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]int{"purged": n})
}

func (s *Server) getTask(c echo.Context) error {
	inst, err := s.cluster.GetTask(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, inst)
}

type moveResult struct {
	Result string `json:"result"`
}

func (s *Server) moveTask(move func(context.Context, string) (string, error)) echo.HandlerFunc {
	return func(c echo.Context) error {
		reply, err := move(c.Request().Context(), c.Param("id"))
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, moveResult{Result: reply})
	}
}

func (s *Server) submitEvent(c echo.Context) error {
	ev := &types.Event{}
	if err := c.Bind(ev); err != nil {
		return err
	}
	if err := s.cluster.SubmitEvent(c.Request().Context(), ev); err != nil {
		return err
	}
	return c.JSON(http.StatusAccepted, ev)
}

func (s *Server) submitSource(c echo.Context) error {
	msg := map[string]any{}
	if err := c.Bind(&msg); err != nil {
		return err
	}
	ev, err := s.cluster.SubmitSourceMessage(c.Request().Context(), c.Param("name"), msg)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusAccepted, ev)
}
