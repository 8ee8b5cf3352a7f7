// Package identity derives the anonymous caller identity from request cookies.
package identity

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/breakout/internal/domain"
)

const (
	// ContextKey holds the session id on the gin context.
	ContextKey = "client_token"
	// SessionDisplayName is the key in the signed session store.
	SessionDisplayName = "display_name"
	// DisplayNameCookie is the plain cookie older clients set.
	DisplayNameCookie = "displayName"

	DefaultCookieName = "_bsid"
)

type Identity struct {
	UserID      domain.UserID
	DisplayName string
}

type Resolver struct {
	CookieName string
	MaxAge     int
	Secure     bool
}

func (r Resolver) cookieName() string {
	if r.CookieName == "" {
		return DefaultCookieName
	}
	return r.CookieName
}

func validSID(sid string) bool {
	return sid != "" && len(sid) <= domain.MaxUserIDLen && !strings.ContainsAny(sid, " ;,")
}

// Middleware issues a session cookie when the request carries none, so the
// later event channel upgrade sees the same id.
func (r Resolver) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		sid, _ := c.Cookie(r.cookieName())
		if !validSID(sid) {
			sid = uuid.NewString()
			c.SetSameSite(http.SameSiteLaxMode)
			c.SetCookie(r.cookieName(), sid, r.MaxAge, "/", "", r.Secure, true)
			log.Debug().Str("module", "identity").Str("sid", sid).Msg("issued session")
		}
		c.Set(ContextKey, sid)
		c.Next()
	}
}

// Resolve fails with Unauthenticated when the request has no session id.
func (r Resolver) Resolve(c *gin.Context) (Identity, error) {
	sid := c.GetString(ContextKey)
	if sid == "" {
		sid, _ = c.Cookie(r.cookieName())
	}
	if !validSID(sid) {
		return Identity{}, domain.Errorf(domain.KindUnauthenticated, "no session")
	}
	return Identity{UserID: domain.UserID(sid), DisplayName: displayName(c)}, nil
}

func displayName(c *gin.Context) string {
	if _, ok := c.Get(sessions.DefaultKey); ok {
		if name, ok := sessions.Default(c).Get(SessionDisplayName).(string); ok && name != "" {
			return name
		}
	}
	raw, err := c.Cookie(DisplayNameCookie)
	if err != nil || raw == "" {
		return ""
	}
	if name, err := url.QueryUnescape(raw); err == nil {
		return name
	}
	return raw
}

// SaveDisplayName stores name in the signed session, when sessions are enabled.
func SaveDisplayName(c *gin.Context, name string) error {
	if _, ok := c.Get(sessions.DefaultKey); !ok {
		return nil
	}
	s := sessions.Default(c)
	s.Set(SessionDisplayName, name)
	return s.Save()
}
