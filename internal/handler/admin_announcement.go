package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/table-prompt-service/internal/model"
	"github.com/iliyamo/table-prompt-service/internal/queue"
)

// CreateAnnouncement handles POST /v1/announcements. Null table_numbers
// broadcasts to every table; table admins are pinned to their own table
// whatever targets they ask for.
func (h *AdminHandler) CreateAnnouncement(c echo.Context) error {
	var body struct {
		Text         string   `json:"text"`
		TableNumbers []uint32 `json:"table_numbers"` // null = all tables
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	body.Text = strings.TrimSpace(body.Text)
	if body.Text == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "text required"})
	}
	if scope := tableScope(c); scope != nil {
		body.TableNumbers = []uint32{*scope}
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	ann := &model.Announcement{Text: body.Text, TableNumbers: body.TableNumbers}
	err := h.Mut.Do(ctx, "create announcement", queue.ResourceAnnouncements,
		func() {
			var anns []model.Announcement
			if !h.Store.Read(ctx, queue.ResourceAnnouncements, &anns) {
				return
			}
			// Newest first, matching the fetcher's ordering.
			_ = h.Store.Write(ctx, queue.ResourceAnnouncements, append([]model.Announcement{*ann}, anns...))
		},
		func(ctx context.Context) error {
			return h.Announcements.Create(ctx, ann)
		},
	)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create announcement failed"})
	}
	h.publish(ctx, queue.ResourceAnnouncements)
	return c.JSON(http.StatusCreated, ann)
}

// ListAnnouncements handles GET /v1/announcements, cache first.
func (h *AdminHandler) ListAnnouncements(c echo.Context) error {
	ctx := c.Request().Context()

	var anns []model.Announcement
	if !h.Store.Read(ctx, queue.ResourceAnnouncements, &anns) {
		var err error
		anns, err = h.Announcements.List(ctx)
		if err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
		}
		if anns == nil {
			anns = []model.Announcement{}
		}
		_ = h.Store.Write(ctx, queue.ResourceAnnouncements, anns)
	}
	// Table admins only see announcements addressed to their table.
	if scope := tableScope(c); scope != nil {
		filtered := make([]model.Announcement, 0, len(anns))
		for _, a := range anns {
			if a.Targets(*scope) {
				filtered = append(filtered, a)
			}
		}
		anns = filtered
	}
	return c.JSON(http.StatusOK, anns)
}
