package auth

import (
	"errors"
	"strings"
	"time"

	"github.com/erp/collections/internal/infrastructure/config"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Role is the caller's access level. Tokens are issued by the identity
// service; this service only reads the role claim.
type Role string

const (
	RoleViewer    Role = "VIEWER"
	RoleCollector Role = "COLLECTOR"
	RoleAdmin     Role = "ADMIN"
)

var roleRank = map[Role]int{
	RoleViewer:    1,
	RoleCollector: 2,
	RoleAdmin:     3,
}

// ParseRole accepts a role name in any case
func ParseRole(s string) (Role, error) {
	r := Role(strings.ToUpper(strings.TrimSpace(s)))
	if _, ok := roleRank[r]; !ok {
		return "", ErrInvalidRole
	}
	return r, nil
}

// Allows reports whether r is at least required. Roles are ordered
// VIEWER < COLLECTOR < ADMIN.
func (r Role) Allows(required Role) bool {
	have, ok := roleRank[r]
	return ok && have >= roleRank[required]
}

// Common errors
var (
	ErrInvalidToken     = errors.New("invalid token")
	ErrExpiredToken     = errors.New("token has expired")
	ErrInvalidClaims    = errors.New("invalid token claims")
	ErrTokenNotYetValid = errors.New("token is not yet valid")
	ErrMissingUserID    = errors.New("missing user_id in claims")
	ErrInvalidRole      = errors.New("invalid role")
)

// Claims represents the JWT claims this service reads
type Claims struct {
	jwt.RegisteredClaims
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	Role     Role   `json:"role"`
}

// Actor names the caller for audit fields such as call_logs.called_by
func (c *Claims) Actor() string {
	if c.Username != "" {
		return c.Username
	}
	return c.UserID
}

// GetUserUUID extracts and parses the user ID from claims
func (c *Claims) GetUserUUID() (uuid.UUID, error) {
	return uuid.Parse(c.UserID)
}

// GetExpiresAtTime returns the token's expiration time as time.Time
func (c *Claims) GetExpiresAtTime() time.Time {
	if c.ExpiresAt != nil {
		return c.ExpiresAt.Time
	}
	return time.Time{}
}

// JWTService verifies HS256 bearer tokens and can sign tokens for
// operators and tests
type JWTService struct {
	secret []byte
	issuer string
}

// NewJWTService creates a new JWT service
func NewJWTService(cfg config.JWTConfig) *JWTService {
	return &JWTService{secret: []byte(cfg.Secret), issuer: cfg.Issuer}
}

// IssueInput describes a token to sign
type IssueInput struct {
	UserID   uuid.UUID
	Username string
	Role     Role
	TTL      time.Duration
}

// Issue signs an access token
func (s *JWTService) Issue(in IssueInput) (string, time.Time, error) {
	if _, ok := roleRank[in.Role]; !ok {
		return "", time.Time{}, ErrInvalidRole
	}
	if in.TTL <= 0 {
		in.TTL = time.Hour
	}
	now := time.Now()
	expiresAt := now.Add(in.TTL)
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    s.issuer,
			Subject:   in.UserID.String(),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			NotBefore: jwt.NewNumericDate(now),
			IssuedAt:  jwt.NewNumericDate(now),
		},
		UserID:   in.UserID.String(),
		Username: in.Username,
		Role:     in.Role,
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

// Validate parses tokenString, checks signature, time window and issuer,
// and returns its claims
func (s *JWTService) Validate(tokenString string) (*Claims, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if s.issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.issuer))
	}
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(*jwt.Token) (any, error) {
		return s.secret, nil
	}, opts...)
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, ErrExpiredToken
		case errors.Is(err, jwt.ErrTokenNotValidYet):
			return nil, ErrTokenNotYetValid
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidClaims
	}
	if claims.UserID == "" {
		return nil, ErrMissingUserID
	}
	if _, ok := roleRank[claims.Role]; !ok {
		return nil, ErrInvalidRole
	}
	return claims, nil
}
