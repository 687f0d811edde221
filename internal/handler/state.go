package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/table-prompt-service/internal/fetcher"
	"github.com/iliyamo/table-prompt-service/internal/model"
	"github.com/iliyamo/table-prompt-service/internal/queue"
	"github.com/iliyamo/table-prompt-service/internal/reconcile"
	"github.com/iliyamo/table-prompt-service/internal/store"
)

// StateHandler exposes the reconciled state surface: the current
// snapshot, the coordinator's health, manual refresh and a server-sent
// event stream of store changes.
type StateHandler struct {
	Store *store.Store
	Coord *reconcile.Coordinator
}

func NewStateHandler(st *store.Store, coord *reconcile.Coordinator) *StateHandler {
	if st == nil || coord == nil {
		panic("nil dependency passed to NewStateHandler")
	}
	return &StateHandler{Store: st, Coord: coord}
}

// Snapshot handles GET /v1/state, returning the raw cached value for
// every watched resource plus the seat list of each cached table.
// Values are emitted exactly as stored; absent keys are null.
func (h *StateHandler) Snapshot(c echo.Context) error {
	ctx := c.Request().Context()
	out := make(map[string]json.RawMessage)

	for _, res := range queue.WatchedResources {
		if res == queue.ResourceSeats {
			continue // seats live under per-table keys
		}
		if raw, ok := h.Store.Raw(res); ok {
			out[res] = raw
		} else {
			out[res] = nil
		}
	}
	var tables []model.Table
	if h.Store.Read(ctx, queue.ResourceTables, &tables) {
		for _, t := range tables {
			key := fetcher.SeatKey(t.Number)
			if raw, ok := h.Store.Raw(key); ok {
				out[key] = raw
			}
		}
	}
	return c.JSON(http.StatusOK, out)
}

// Status handles GET /v1/state/status.
func (h *StateHandler) Status(c echo.Context) error {
	resp := echo.Map{
		"status":  h.Coord.Status().String(),
		"polling": h.Coord.Polling(),
	}
	if err := h.Coord.LastError(); err != nil {
		resp["last_error"] = err.Error()
	}
	return c.JSON(http.StatusOK, resp)
}

// Refresh handles POST /v1/state/refresh. The cooldown maps to 429 so
// a stuck refresh button cannot hammer the backend.
func (h *StateHandler) Refresh(c echo.Context) error {
	if err := h.Coord.Refresh(); err != nil {
		if errors.Is(err, reconcile.ErrRefreshCooldown) {
			return c.JSON(http.StatusTooManyRequests, echo.Map{"error": "refresh cooldown active"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "refresh failed"})
	}
	return c.NoContent(http.StatusAccepted)
}

// Stream handles GET /v1/state/stream as server-sent events. Every
// store change becomes an event named by its key; a comment heartbeat
// keeps idle connections from being reaped by proxies. A slow consumer
// loses intermediate events, never current ones: the next change always
// carries the full value.
func (h *StateHandler) Stream(c echo.Context) error {
	c.Response().Header().Set(echo.HeaderContentType, "text/event-stream")
	c.Response().Header().Set(echo.HeaderCacheControl, "no-cache")
	c.Response().Header().Set(echo.HeaderConnection, "keep-alive")
	c.Response().WriteHeader(http.StatusOK)
	c.Response().Flush()

	type event struct {
		key string
		raw json.RawMessage
	}
	events := make(chan event, 32)
	cancel := h.Store.Subscribe("", func(key string, value json.RawMessage) {
		select {
		case events <- event{key: key, raw: value}:
		default: // drop when the consumer lags; snapshots self-heal
		}
	})
	defer cancel()

	heartbeat := time.NewTicker(15 * time.Second)
	defer heartbeat.Stop()

	ctx := c.Request().Context()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-heartbeat.C:
			if _, err := fmt.Fprint(c.Response(), ": ping\n\n"); err != nil {
				return nil
			}
			c.Response().Flush()
		case ev := <-events:
			data := ev.raw
			if data == nil {
				data = json.RawMessage("null") // key deleted
			}
			if _, err := fmt.Fprintf(c.Response(), "event: %s\ndata: %s\n\n", ev.key, data); err != nil {
				return nil
			}
			c.Response().Flush()
		}
	}
}
