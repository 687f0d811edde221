package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/table-prompt-service/internal/model"
	"github.com/iliyamo/table-prompt-service/internal/queue"
	"github.com/iliyamo/table-prompt-service/internal/repository"
)

// adminRoleAssignable reports whether the requester may mint or change
// an account with the target role. Only a super admin may touch super
// admin accounts; everything else is open to both admin-managing roles.
func adminRoleAssignable(requester, target string) bool {
	switch target {
	case model.RoleTableAdmin, model.RoleUserAdmin:
		return true
	case model.RoleSuperAdmin:
		return requester == model.RoleSuperAdmin
	}
	return false
}

// CreateUser handles POST /v1/users, creating a staff account. A
// TABLE_ADMIN role requires a table_number; the other roles must not
// carry one.
func (h *AdminHandler) CreateUser(c echo.Context) error {
	var body struct {
		Name        string  `json:"name"`
		Username    string  `json:"username"`
		Password    string  `json:"password"`
		Role        string  `json:"role"`
		TableNumber *uint32 `json:"table_number"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	body.Name = strings.TrimSpace(body.Name)
	body.Username = strings.ToLower(strings.TrimSpace(body.Username))
	body.Role = strings.ToUpper(strings.TrimSpace(body.Role))
	if body.Name == "" || body.Username == "" || body.Password == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name, username and password required"})
	}
	if !adminRoleAssignable(roleOf(c), body.Role) {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "role not assignable"})
	}
	if body.Role == model.RoleTableAdmin && body.TableNumber == nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "table_number required for TABLE_ADMIN"})
	}
	if body.Role != model.RoleTableAdmin && body.TableNumber != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "table_number only valid for TABLE_ADMIN"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if body.TableNumber != nil {
		if _, err := h.Tables.GetByNumber(ctx, *body.TableNumber); err != nil {
			if errors.Is(err, repository.ErrTableNotFound) {
				return c.JSON(http.StatusNotFound, echo.Map{"error": "table not found"})
			}
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
		}
	}

	uid, err := h.Users.CreateAdmin(ctx, body.Name, body.Username, body.Password, body.Role, body.TableNumber, h.Cfg.BcryptCost)
	if err != nil {
		if errors.Is(err, repository.ErrUsernameExists) {
			return c.JSON(http.StatusConflict, echo.Map{"error": "username already exists"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create user failed"})
	}
	return c.JSON(http.StatusCreated, userPart{ID: uid, Name: body.Name, Role: body.Role, TableNumber: body.TableNumber})
}

// ListUsers handles GET /v1/users, returning staff accounts only.
// Guests come and go with their sessions and are never listed here.
func (h *AdminHandler) ListUsers(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	users, err := h.Users.ListAdmins(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
	if users == nil {
		users = []model.User{}
	}
	return c.JSON(http.StatusOK, users)
}

// UpdateUser handles PUT /v1/users/:id.
func (h *AdminHandler) UpdateUser(c echo.Context) error {
	id, err := paramUint64(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	var body struct {
		Name        *string `json:"name"`
		Role        *string `json:"role"`
		TableNumber *uint32 `json:"table_number"`
		IsActive    *bool   `json:"is_active"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	cur, err := h.Users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
	if cur.Role == model.RoleGuest {
		return c.JSON(http.StatusConflict, echo.Map{"error": "guest accounts are not editable"})
	}
	// Touching an existing super admin needs super admin rights even
	// when the role itself is not being changed.
	if !adminRoleAssignable(roleOf(c), cur.Role) {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	}

	name := cur.Name
	if body.Name != nil && strings.TrimSpace(*body.Name) != "" {
		name = strings.TrimSpace(*body.Name)
	}
	role := cur.Role
	if body.Role != nil {
		role = strings.ToUpper(strings.TrimSpace(*body.Role))
		if !adminRoleAssignable(roleOf(c), role) {
			return c.JSON(http.StatusForbidden, echo.Map{"error": "role not assignable"})
		}
	}
	tableNumber := cur.TableNumber
	if body.TableNumber != nil {
		tableNumber = body.TableNumber
	}
	if role == model.RoleTableAdmin && tableNumber == nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "table_number required for TABLE_ADMIN"})
	}
	if role != model.RoleTableAdmin {
		tableNumber = nil
	}
	isActive := cur.IsActive
	if body.IsActive != nil {
		isActive = *body.IsActive
	}

	if err := h.Users.Update(ctx, id, name, role, tableNumber, isActive); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
	}
	return c.JSON(http.StatusOK, userPart{ID: id, Name: name, Role: role, TableNumber: tableNumber})
}

// DeleteUser handles DELETE /v1/users/:id. Any seat the user occupied
// is vacated first, which is why a seats change event follows.
func (h *AdminHandler) DeleteUser(c echo.Context) error {
	id, err := paramUint64(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	cur, err := h.Users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
	if cur.Role != model.RoleGuest && !adminRoleAssignable(roleOf(c), cur.Role) {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	}

	if err := h.Users.Delete(ctx, id); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete failed"})
	}
	h.publish(ctx, queue.ResourceSeats)
	return c.NoContent(http.StatusNoContent)
}
