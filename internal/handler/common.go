package handler // handler defines the HTTP handlers for the service

import (
	"context"
	"errors"
	"log"
	"strconv"

	"github.com/labstack/echo/v4" // echo defines request context types

	"github.com/iliyamo/table-prompt-service/internal/config"
	"github.com/iliyamo/table-prompt-service/internal/model"
	"github.com/iliyamo/table-prompt-service/internal/mutate"
	"github.com/iliyamo/table-prompt-service/internal/queue"
	"github.com/iliyamo/table-prompt-service/internal/repository"
	"github.com/iliyamo/table-prompt-service/internal/store"
)

// AdminHandler bundles the dependencies for the admin CRUD surface.
// Every write goes through three stages: optimistic update of the
// shared state cache, the authoritative SQL write, and a change-feed
// publish so other nodes refetch.
type AdminHandler struct {
	Cfg           config.Config                // runtime configuration (bcrypt cost)
	Tables        *repository.TableRepo        // table persistence
	Seats         *repository.SeatRepo         // seat persistence
	Users         *repository.UserRepo         // account persistence
	Prompts       *repository.PromptRepo       // prompt persistence
	Responses     *repository.ResponseRepo     // response persistence
	Announcements *repository.AnnouncementRepo // announcement persistence
	Store         *store.Store                 // shared state cache
	Mut           *mutate.Mutator              // optimistic write wrapper
	Feed          *queue.Publisher             // change-feed publisher
}

// NewAdminHandler constructs an AdminHandler and panics if any
// dependency is nil; a half-wired handler would fail at request time in
// ways that are much harder to diagnose.
func NewAdminHandler(cfg config.Config, tables *repository.TableRepo, seats *repository.SeatRepo, users *repository.UserRepo,
	prompts *repository.PromptRepo, responses *repository.ResponseRepo, anns *repository.AnnouncementRepo,
	st *store.Store, mut *mutate.Mutator, feed *queue.Publisher) *AdminHandler {
	if tables == nil || seats == nil || users == nil || prompts == nil || responses == nil || anns == nil ||
		st == nil || mut == nil || feed == nil {
		panic("nil dependency passed to NewAdminHandler")
	}
	return &AdminHandler{
		Cfg:           cfg,
		Tables:        tables,
		Seats:         seats,
		Users:         users,
		Prompts:       prompts,
		Responses:     responses,
		Announcements: anns,
		Store:         st,
		Mut:           mut,
		Feed:          feed,
	}
}

// getUserID extracts the user_id claim from the context. JWT numeric
// claims decode as float64; other shapes are accepted defensively.
func getUserID(c echo.Context) (uint64, error) {
	switch t := c.Get("user_id").(type) {
	case uint64:
		return t, nil
	case int:
		return uint64(t), nil
	case int64:
		return uint64(t), nil
	case float64:
		return uint64(t), nil
	case string:
		if n, err := strconv.ParseUint(t, 10, 64); err == nil {
			return n, nil
		}
	}
	return 0, errors.New("invalid user_id in context")
}

// roleOf returns the role claim, or the empty string when absent.
func roleOf(c echo.Context) string {
	r, _ := c.Get("role").(string)
	return r
}

// tableScope returns the table number a TABLE_ADMIN token is pinned to,
// or nil for roles with floor-wide reach.
func tableScope(c echo.Context) *uint32 {
	if roleOf(c) != model.RoleTableAdmin {
		return nil
	}
	switch t := c.Get("table_number").(type) {
	case float64:
		n := uint32(t)
		return &n
	case uint32:
		n := t
		return &n
	case string:
		if v, err := strconv.ParseUint(t, 10, 32); err == nil {
			n := uint32(v)
			return &n
		}
	}
	return nil
}

// inScope reports whether the requester may touch the given table. Only
// table admins are restricted; every other admin role passes.
func inScope(c echo.Context, tableNumber uint32) bool {
	scope := tableScope(c)
	return scope == nil || *scope == tableNumber
}

// paramUint32 parses a numeric path parameter such as a table number.
func paramUint32(c echo.Context, name string) (uint32, error) {
	n, err := strconv.ParseUint(c.Param(name), 10, 32)
	return uint32(n), err
}

// paramUint64 parses a numeric path parameter such as a row ID.
func paramUint64(c echo.Context, name string) (uint64, error) {
	return strconv.ParseUint(c.Param(name), 10, 64)
}

// publish emits a change-feed event for resource. A publish failure is
// logged and otherwise ignored: the write already committed, and the
// poll fallback on every node bounds the staleness window.
func (h *AdminHandler) publish(ctx context.Context, resource string) {
	if err := h.Feed.PublishChange(ctx, resource); err != nil {
		log.Printf("handler: publish %s change failed: %v", resource, err)
	}
}

// updateCachedTables returns an update closure for Mutator.Do that
// rewrites the cached table list in place. A cache miss makes the
// closure a no-op; the next fetch repopulates the key.
func (h *AdminHandler) updateCachedTables(ctx context.Context, fn func([]model.Table) []model.Table) func() {
	return func() {
		var tables []model.Table
		if !h.Store.Read(ctx, queue.ResourceTables, &tables) {
			return
		}
		if err := h.Store.Write(ctx, queue.ResourceTables, fn(tables)); err != nil {
			log.Printf("handler: optimistic table cache write failed: %v", err)
		}
	}
}

// updateCachedSeats is updateCachedTables for one table's seat list.
func (h *AdminHandler) updateCachedSeats(ctx context.Context, key string, fn func([]model.Seat) []model.Seat) func() {
	return func() {
		var seats []model.Seat
		if !h.Store.Read(ctx, key, &seats) {
			return
		}
		if err := h.Store.Write(ctx, key, fn(seats)); err != nil {
			log.Printf("handler: optimistic seat cache write failed: %v", err)
		}
	}
}
