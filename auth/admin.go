package auth

import (
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"venues-server/apperrors"
	"venues-server/config"
)

// Roles allowed to modify venues.
const (
	RoleAdmin      = "admin"
	RoleSuperAdmin = "super-admin"
)

// Admin is the authenticated principal returned on login.
type Admin struct {
	Username string `json:"username"`
	Role     string `json:"role"`
}

// AdminAuthenticator checks the configured admin credentials and issues
// tokens.
type AdminAuthenticator struct {
	username     string
	passwordHash []byte
	role         string
	tokens       *JWTManager
}

func NewAdminAuthenticator(cfg *config.SecurityConfig, tokens *JWTManager) *AdminAuthenticator {
	return &AdminAuthenticator{
		username:     cfg.AdminUsername,
		passwordHash: []byte(cfg.AdminPasswordHash),
		role:         cfg.AdminRole,
		tokens:       tokens,
	}
}

// Login returns a signed token for valid credentials.
func (a *AdminAuthenticator) Login(username, password string) (string, *Admin, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return "", nil, apperrors.NewValidationError("username", "Please provide username and password")
	}

	// Compare even on a username mismatch so both failures take as long.
	hashErr := bcrypt.CompareHashAndPassword(a.passwordHash, []byte(password))
	if len(a.passwordHash) == 0 || username != a.username || hashErr != nil {
		return "", nil, apperrors.NewUnauthorizedError("Incorrect username or password")
	}

	token, err := a.tokens.GenerateToken(a.username, a.role)
	if err != nil {
		return "", nil, err
	}
	return token, &Admin{Username: a.username, Role: a.role}, nil
}

// Knows reports whether claims name the configured admin.
func (a *AdminAuthenticator) Knows(claims *Claims) bool {
	return claims.Username == a.username
}

// HashPassword returns a bcrypt hash suitable for security.admin_password_hash.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}
