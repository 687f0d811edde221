package handler

import (
	"context"
	"encoding/csv"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/table-prompt-service/internal/model"
	"github.com/iliyamo/table-prompt-service/internal/repository"
)

// responseFilter builds the list filter from query parameters and the
// requester's scope. A table admin is always pinned to their own table,
// overriding any table_number they pass.
func responseFilter(c echo.Context) (repository.ListFilter, error) {
	var f repository.ListFilter
	if v := c.QueryParam("prompt_id"); v != "" {
		id, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return f, errors.New("invalid prompt_id")
		}
		f.PromptID = id
	}
	if v := c.QueryParam("table_number"); v != "" {
		n, err := strconv.ParseUint(v, 10, 32)
		if err != nil {
			return f, errors.New("invalid table_number")
		}
		f.TableNumber = uint32(n)
	}
	if scope := tableScope(c); scope != nil {
		f.TableNumber = *scope
	}
	return f, nil
}

// ListResponses handles GET /v1/responses with optional prompt_id and
// table_number filters. Responses are immutable rows, so this always
// reads SQL rather than the reconciled cache.
func (h *AdminHandler) ListResponses(c echo.Context) error {
	f, err := responseFilter(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	rows, err := h.Responses.List(ctx, f)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
	if rows == nil {
		rows = []model.Response{}
	}
	return c.JSON(http.StatusOK, rows)
}

// DeleteResponse handles DELETE /v1/responses/:id. Deletion is a
// floor-wide cleanup operation reserved for USER_ADMIN and SUPER_ADMIN;
// table admins read but never prune.
func (h *AdminHandler) DeleteResponse(c echo.Context) error {
	if roleOf(c) == model.RoleTableAdmin {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	}
	id, err := paramUint64(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Responses.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrResponseNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "response not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete failed"})
	}
	return c.NoContent(http.StatusNoContent)
}

// ExportResponsesCSV handles GET /v1/responses/export. Deliberately a
// stub: it validates the filter and emits the column header only, so
// clients get a well-formed empty sheet until the report pipeline
// lands. Row data stays behind ListResponses.
func (h *AdminHandler) ExportResponsesCSV(c echo.Context) error {
	if _, err := responseFilter(c); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}

	c.Response().Header().Set(echo.HeaderContentType, "text/csv; charset=utf-8")
	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="responses.csv"`)
	c.Response().WriteHeader(http.StatusOK)

	w := csv.NewWriter(c.Response())
	if err := w.Write([]string{"id", "prompt_id", "user_id", "table_number", "seat_code", "answer", "created_at"}); err != nil {
		return err
	}
	w.Flush()
	return w.Error()
}
