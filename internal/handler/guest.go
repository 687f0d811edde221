package handler

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/table-prompt-service/internal/config"
	"github.com/iliyamo/table-prompt-service/internal/model"
	"github.com/iliyamo/table-prompt-service/internal/mutate"
	"github.com/iliyamo/table-prompt-service/internal/queue"
	"github.com/iliyamo/table-prompt-service/internal/repository"
	"github.com/iliyamo/table-prompt-service/internal/store"
	"github.com/iliyamo/table-prompt-service/internal/utils"
)

// GuestHandler implements the guest terminal surface: binding a guest
// to a seat, showing the current prompt and announcements, and taking
// answers. Reads are served from the shared state cache whenever it is
// warm; only a cold cache falls through to SQL.
type GuestHandler struct {
	Cfg           config.Config
	Users         *repository.UserRepo
	Tables        *repository.TableRepo
	Seats         *repository.SeatRepo
	Prompts       *repository.PromptRepo
	Responses     *repository.ResponseRepo
	Announcements *repository.AnnouncementRepo
	Store         *store.Store
	Mut           *mutate.Mutator
	Feed          *queue.Publisher
}

// guestKey is the shared-state key for one guest session.
func guestKey(userID uint64) string {
	return "guest:" + strconv.FormatUint(userID, 10)
}

type guestLoginReq struct {
	Name        string `json:"name"`
	TableNumber uint32 `json:"table_number"`
	SeatCode    string `json:"seat_code"`
}

type guestLoginResp struct {
	User   userPart         `json:"user"`
	Access tokenPart        `json:"access"`
	State  model.GuestState `json:"state"`
}

// Login binds a named guest to a free, enabled seat at an active table
// and issues a GUEST access token scoped to that table. The seat
// occupancy write is what other terminals observe through the feed.
func (h *GuestHandler) Login(c echo.Context) error {
	var req guestLoginReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Name = strings.TrimSpace(req.Name)
	req.SeatCode = strings.ToUpper(strings.TrimSpace(req.SeatCode))
	if req.Name == "" || req.TableNumber == 0 || req.SeatCode == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name, table_number and seat_code required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	table, err := h.Tables.GetByNumber(ctx, req.TableNumber)
	if err != nil {
		if errors.Is(err, repository.ErrTableNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "table not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
	if !table.IsActive {
		return c.JSON(http.StatusConflict, echo.Map{"error": "table is not active"})
	}

	seat, err := h.Seats.GetByTableAndCode(ctx, req.TableNumber, req.SeatCode)
	if err != nil {
		if errors.Is(err, repository.ErrSeatNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "seat not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
	// Enablement and occupancy are independent checks.
	if !seat.IsActive {
		return c.JSON(http.StatusConflict, echo.Map{"error": "seat is not available"})
	}
	if seat.Occupied() {
		return c.JSON(http.StatusConflict, echo.Map{"error": "seat is occupied"})
	}

	uid, err := h.Users.CreateGuest(ctx, req.Name, req.TableNumber)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create guest failed"})
	}
	if err := h.Seats.SetOccupant(ctx, seat.ID, &uid); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "seat assignment failed"})
	}

	state := model.GuestState{
		TableNumber: req.TableNumber,
		SeatCode:    req.SeatCode,
		UpdatedAt:   time.Now().UTC(),
	}
	if table.ActivePromptID != nil {
		state.PromptID = *table.ActivePromptID
	}
	if err := h.Store.Write(ctx, guestKey(uid), state); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "state init failed"})
	}
	h.publishSeats(ctx)

	access, err := utils.NewAccessToken(h.Cfg.JWTSecret, uid, model.RoleGuest, &req.TableNumber, h.Cfg.AccessTTLMin)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "issue access failed"})
	}
	return c.JSON(http.StatusCreated, guestLoginResp{
		User:   userPart{ID: uid, Name: req.Name, Role: model.RoleGuest, TableNumber: &req.TableNumber},
		Access: tokenPart{Token: access.Token, Expires: access.Exp},
		State:  state,
	})
}

// Logout frees the guest's seat, removes the session state and the
// guest row.
func (h *GuestHandler) Logout(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	// Delete clears any seat occupancy held by the user first.
	if err := h.Users.Delete(ctx, uid); err != nil && !errors.Is(err, repository.ErrUserNotFound) {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "logout failed"})
	}
	h.Store.Delete(ctx, guestKey(uid))
	h.publishSeats(ctx)
	return c.NoContent(http.StatusNoContent)
}

// State returns the guest's session state from the shared store.
func (h *GuestHandler) State(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var state model.GuestState
	if !h.Store.Read(c.Request().Context(), guestKey(uid), &state) {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "no session state"})
	}
	return c.JSON(http.StatusOK, state)
}

// CurrentPrompt resolves the prompt currently assigned to the guest's
// table: cached tables give the assignment, cached prompts give the
// text. Either cache going cold falls back to SQL.
func (h *GuestHandler) CurrentPrompt(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	ctx := c.Request().Context()

	var state model.GuestState
	if !h.Store.Read(ctx, guestKey(uid), &state) {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "no session state"})
	}

	promptID, ok := h.activePromptID(ctx, state.TableNumber)
	if !ok {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "table lookup failed"})
	}
	if promptID == 0 {
		return c.JSON(http.StatusOK, echo.Map{"prompt": nil, "has_responded": state.HasResponded})
	}

	prompt, err := h.resolvePrompt(ctx, promptID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "prompt lookup failed"})
	}

	// A newly dispatched prompt resets the answered flag for display;
	// the store copy is updated lazily on the next respond call.
	responded := state.HasResponded && state.PromptID == promptID
	return c.JSON(http.StatusOK, echo.Map{"prompt": prompt, "has_responded": responded})
}

// ListAnnouncements returns announcements addressed to the guest's table,
// newest first.
func (h *GuestHandler) ListAnnouncements(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	ctx := c.Request().Context()

	var state model.GuestState
	if !h.Store.Read(ctx, guestKey(uid), &state) {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "no session state"})
	}

	var all []model.Announcement
	if !h.Store.Read(ctx, queue.ResourceAnnouncements, &all) {
		var err error
		all, err = h.Announcements.List(ctx)
		if err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
		}
	}
	out := make([]model.Announcement, 0, len(all))
	for _, a := range all {
		if a.Targets(state.TableNumber) {
			out = append(out, a)
		}
	}
	return c.JSON(http.StatusOK, out)
}

type respondReq struct {
	PromptID uint64 `json:"prompt_id"`
	Answer   string `json:"answer"`
}

// Respond records the guest's answer to the current prompt. YES and NO
// are final for the prompt; SERVICE stays re-triggerable. The answered
// flag lands in the shared state optimistically and rolls back if the
// SQL insert fails, so the buttons lock the moment the guest taps.
func (h *GuestHandler) Respond(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req respondReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Answer = strings.ToUpper(strings.TrimSpace(req.Answer))
	if !model.ValidAnswer(req.Answer) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "answer must be YES, NO or SERVICE"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	var state model.GuestState
	if !h.Store.Read(ctx, guestKey(uid), &state) {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "no session state"})
	}

	promptID, ok := h.activePromptID(ctx, state.TableNumber)
	if !ok {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "table lookup failed"})
	}
	if promptID == 0 || (req.PromptID != 0 && req.PromptID != promptID) {
		return c.JSON(http.StatusConflict, echo.Map{"error": "prompt is no longer current"})
	}
	if state.HasResponded && state.PromptID == promptID {
		return c.JSON(http.StatusConflict, echo.Map{"error": "already answered"})
	}

	next := state
	next.PromptID = promptID
	next.HasResponded = model.AnswerFinal(req.Answer)
	next.UpdatedAt = time.Now().UTC()

	row := &model.Response{
		PromptID:    promptID,
		UserID:      &uid,
		TableNumber: state.TableNumber,
		SeatCode:    state.SeatCode,
		Answer:      req.Answer,
	}
	err = h.Mut.Do(ctx, "respond", guestKey(uid),
		func() {
			if err := h.Store.Write(ctx, guestKey(uid), next); err != nil {
				c.Logger().Warnf("guest state write failed: %v", err)
			}
		},
		func(ctx context.Context) error {
			return h.Responses.Create(ctx, row)
		},
	)
	if err != nil {
		return c.JSON(http.StatusBadGateway, echo.Map{"error": "answer not recorded, please retry"})
	}
	_ = h.Users.TouchLastActive(ctx, uid, time.Now().UTC())
	return c.JSON(http.StatusCreated, row)
}

// activePromptID returns the prompt assigned to tableNumber (0 when
// none), preferring the cached table list.
func (h *GuestHandler) activePromptID(ctx context.Context, tableNumber uint32) (uint64, bool) {
	var tables []model.Table
	if h.Store.Read(ctx, queue.ResourceTables, &tables) {
		for _, t := range tables {
			if t.Number == tableNumber {
				if t.ActivePromptID != nil {
					return *t.ActivePromptID, true
				}
				return 0, true
			}
		}
	}
	t, err := h.Tables.GetByNumber(ctx, tableNumber)
	if err != nil {
		return 0, false
	}
	if t.ActivePromptID != nil {
		return *t.ActivePromptID, true
	}
	return 0, true
}

// resolvePrompt finds a prompt by ID, cache first.
func (h *GuestHandler) resolvePrompt(ctx context.Context, id uint64) (*model.Prompt, error) {
	var prompts []model.Prompt
	if h.Store.Read(ctx, queue.ResourcePrompts, &prompts) {
		for i := range prompts {
			if prompts[i].ID == id {
				return &prompts[i], nil
			}
		}
	}
	return h.Prompts.GetByID(ctx, id)
}

// publishSeats emits a seats change event; failures are logged and the
// poll fallback covers the gap.
func (h *GuestHandler) publishSeats(ctx context.Context) {
	if err := h.Feed.PublishChange(ctx, queue.ResourceSeats); err != nil {
		log.Printf("handler: publish seats change failed: %v", err)
	}
}
