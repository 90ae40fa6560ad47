package authmw

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/MicahParks/keyfunc/v2"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const (
	RoleAdmin = "admin"
	RoleStaff = "staff"

	ctxToken    = "kc.access_token"
	ctxUsername = "kc.username"
	ctxEmail    = "kc.email"
	ctxRoles    = "kc.roles"
	ctxSub      = "kc.sub"
	ctxStaffID  = "staff.id"
)

type KeycloakAuth struct {
	Issuer   string // e.g. http://localhost:8080/realms/myrealm
	Audience string
	ClientID string // for client roles under resource_access[ClientID].roles

	JWKS    *keyfunc.JWKS
	Keyfunc jwt.Keyfunc
	// optional clock skew
	Leeway time.Duration
}

// Build once at startup (don't fetch JWKS on every request)
func NewKeycloakAuth(jwksURL, issuer, audience, clientID string) (*KeycloakAuth, error) {
	jwks, err := keyfunc.Get(jwksURL, keyfunc.Options{
		RefreshInterval:  time.Hour,
		RefreshRateLimit: time.Minute * 5,
		RefreshTimeout:   time.Second * 10,
		RefreshErrorHandler: func(err error) {
			log.Printf("failed to refresh the jwks: %v", err)
		},
	})
	if err != nil {
		return nil, err
	}

	return &KeycloakAuth{
		Issuer:   issuer,
		Audience: audience,
		ClientID: clientID,
		JWKS:     jwks,
		Keyfunc:  jwks.Keyfunc,
		Leeway:   30 * time.Second,
	}, nil
}

type KCClaims struct {
	jwt.RegisteredClaims

	PreferredUsername string `json:"preferred_username"`
	Email             string `json:"email"`
	Name              string `json:"name"`

	RealmAccess struct {
		Roles []string `json:"roles"`
	} `json:"realm_access"`

	ResourceAccess map[string]struct {
		Roles []string `json:"roles"`
	} `json:"resource_access"`
}

// RequireRoles verifies the access token and lets the request through when the caller
// holds any of anyOf. Identity is stored on the gin context for handlers.
func (a *KeycloakAuth) RequireRoles(anyOf ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenStr, err := extractAccessToken(c)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": err.Error()})

			return
		}

		claims := &KCClaims{}
		_, err = jwt.ParseWithClaims(tokenStr, claims, a.Keyfunc,
			jwt.WithIssuer(a.Issuer),
			jwt.WithAudience(a.Audience),
			jwt.WithLeeway(a.Leeway),
			jwt.WithValidMethods([]string{"RS256"}),
		)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})

			return
		}

		roles := collectRoles(claims, a.ClientID)

		c.Set(ctxToken, tokenStr)
		c.Set(ctxUsername, claims.PreferredUsername)
		c.Set(ctxEmail, claims.Email)
		c.Set(ctxRoles, roles)
		c.Set(ctxSub, claims.Subject)

		if !hasAnyRole(roles, anyOf...) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "insufficient role"})
			return
		}

		c.Next()
	}
}

// StaffLookup maps an authenticated username to its staff row id.
type StaffLookup interface {
	StaffIDByUsername(ctx context.Context, username string) (int64, error)
}

// ResolveStaff must run after RequireRoles. Callers without a staff profile are refused.
func ResolveStaff(lookup StaffLookup) gin.HandlerFunc {
	return func(c *gin.Context) {
		username := Username(c)
		if username == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		id, err := lookup.StaffIDByUsername(c.Request.Context(), username)
		if err != nil {
			log.Printf("failed to resolve staff %q: %v", username, err)
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "no staff profile"})
			return
		}

		c.Set(ctxStaffID, id)
		c.Next()
	}
}

// Username of the authenticated caller, empty when unauthenticated.
func Username(c *gin.Context) string {
	return c.GetString(ctxUsername)
}

// Roles granted by the verified token.
func Roles(c *gin.Context) []string {
	return c.GetStringSlice(ctxRoles)
}

// IsAdmin reports whether the verified token carries the admin role.
func IsAdmin(c *gin.Context) bool {
	return hasAnyRole(Roles(c), RoleAdmin)
}

// StaffID of the caller as resolved by ResolveStaff.
func StaffID(c *gin.Context) (int64, bool) {
	v, ok := c.Get(ctxStaffID)
	if !ok {
		return 0, false
	}
	id, ok := v.(int64)
	return id, ok && id > 0
}

// SetIdentity stores an identity on the context. Used by tests and internal callers
// that already trust the caller.
func SetIdentity(c *gin.Context, username string, staffID int64, roles ...string) {
	c.Set(ctxUsername, username)
	c.Set(ctxRoles, uniq(roles))
	c.Set(ctxStaffID, staffID)
}

// --- helpers ---

func extractAccessToken(c *gin.Context) (string, error) {
	authz := c.GetHeader("Authorization")
	if strings.HasPrefix(strings.ToLower(authz), "bearer ") {
		return strings.TrimSpace(authz[7:]), nil
	}

	if cookie, err := c.Cookie("access_token"); err == nil && cookie != "" {
		return cookie, nil
	}

	return "", errors.New("missing access token")
}

func collectRoles(claims *KCClaims, clientID string) []string {
	out := make([]string, 0, 16)

	out = append(out, claims.RealmAccess.Roles...)

	if clientID != "" && claims.ResourceAccess != nil {
		if ra, ok := claims.ResourceAccess[clientID]; ok {
			out = append(out, ra.Roles...)
		}
	}

	return uniq(out)
}

func hasAnyRole(userRoles []string, anyOf ...string) bool {
	roleSet := make(map[string]struct{}, len(userRoles))
	for _, r := range userRoles {
		roleSet[r] = struct{}{}
	}
	for _, required := range anyOf {
		if _, ok := roleSet[required]; ok {
			return true
		}
	}
	return false
}

func uniq(in []string) []string {
	seen := map[string]struct{}{}
	out := make([]string, 0, len(in))
	for _, v := range in {
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
