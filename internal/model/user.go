package model

import "time"

// Role names stored in users.role and carried in the JWT "role" claim.
// Guests never hold durable accounts; a guest row materializes at login
// bound to a table and seat and is cleaned up out of band.
const (
	RoleGuest      = "GUEST"
	RoleTableAdmin = "TABLE_ADMIN"
	RoleUserAdmin  = "USER_ADMIN"
	RoleSuperAdmin = "SUPER_ADMIN"
)

// AdminRoles lists every role allowed into the admin surfaces.
var AdminRoles = []string{RoleTableAdmin, RoleUserAdmin, RoleSuperAdmin}

// User represents an application user record as stored in the `users`
// table.  Admin users carry a username and bcrypt password hash; guest
// users carry neither.  TableNumber is meaningful only for TABLE_ADMIN
// and GUEST roles.
//
// Fields:
//  ID           – primary key identifier of the user.
//  Name         – display name.
//  Username     – unique login name (nil for guests).
//  PasswordHash – bcrypt hashed password (nil for guests).
//  Role         – one of the role constants above.
//  IsActive     – whether the account is active.
//  TableNumber  – assigned table (nil when not table-bound).
//  LastActiveAt – last time the user touched the system (nil if never).
//  CreatedAt    – timestamp of creation.
//  UpdatedAt    – timestamp of last update.
type User struct {
	ID           uint64     `json:"id"`             // users.id
	Name         string     `json:"name"`           // users.name
	Username     *string    `json:"username"`       // users.username (nullable)
	PasswordHash *string    `json:"-"`              // users.password_hash (never serialized)
	Role         string     `json:"role"`           // users.role
	IsActive     bool       `json:"is_active"`      // users.is_active
	TableNumber  *uint32    `json:"table_number"`   // users.table_number (nullable)
	LastActiveAt *time.Time `json:"last_active_at"` // users.last_active_at (nullable)
	CreatedAt    time.Time  `json:"created_at"`     // users.created_at
	UpdatedAt    time.Time  `json:"updated_at"`     // users.updated_at
}

// IsAdmin reports whether the user's role grants access to admin surfaces.
func (u User) IsAdmin() bool {
	return u.Role == RoleTableAdmin || u.Role == RoleUserAdmin || u.Role == RoleSuperAdmin
}

// RefreshToken models an entry in the `refresh_tokens` table.  Each
// refresh token belongs to a user; only the SHA-256 hash of the raw
// token is stored.
//
// Fields:
//  ID        – primary key identifier.
//  UserID    – owner of the token.
//  TokenHash – SHA-256 hex digest of the token value.
//  ExpiresAt – expiration timestamp of the token.
//  RevokedAt – when the token was revoked (null if still active).
//  CreatedAt – timestamp of creation.
type RefreshToken struct {
	ID        uint64     // refresh_tokens.id
	UserID    uint64     // refresh_tokens.user_id
	TokenHash string     // refresh_tokens.token_hash
	ExpiresAt time.Time  // refresh_tokens.expires_at
	RevokedAt *time.Time // refresh_tokens.revoked_at (nullable)
	CreatedAt time.Time  // refresh_tokens.created_at
}
