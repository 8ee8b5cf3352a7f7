package identity

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dkeye/breakout/internal/domain"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newEngine(r Resolver) *gin.Engine {
	e := gin.New()
	e.Use(sessions.Sessions("bs", cookie.NewStore([]byte("test-secret"))))
	e.Use(r.Middleware())
	e.GET("/who", func(c *gin.Context) {
		id, err := r.Resolve(c)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"id": id.UserID, "name": id.DisplayName})
	})
	e.PUT("/name", func(c *gin.Context) {
		if err := SaveDisplayName(c, "Saved"); err != nil {
			c.Status(http.StatusInternalServerError)
			return
		}
		c.Status(http.StatusNoContent)
	})
	return e
}

func findCookie(cookies []*http.Cookie, name string) *http.Cookie {
	for _, c := range cookies {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func TestMiddleware_IssuesCookie(t *testing.T) {
	e := newEngine(Resolver{MaxAge: 3600})

	w := httptest.NewRecorder()
	e.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/who", nil))
	require.Equal(t, http.StatusOK, w.Code)

	c := findCookie(w.Result().Cookies(), DefaultCookieName)
	require.NotNil(t, c)
	assert.NotEmpty(t, c.Value)
	assert.True(t, c.HttpOnly)
	assert.Equal(t, http.SameSiteLaxMode, c.SameSite)
	assert.Contains(t, w.Body.String(), c.Value)
}

func TestMiddleware_KeepsExistingCookie(t *testing.T) {
	e := newEngine(Resolver{CookieName: "sid"})

	req := httptest.NewRequest(http.MethodGet, "/who", nil)
	req.AddCookie(&http.Cookie{Name: "sid", Value: "abc-123"})
	req.AddCookie(&http.Cookie{Name: DisplayNameCookie, Value: "Ada%20L"})
	w := httptest.NewRecorder()
	e.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Nil(t, findCookie(w.Result().Cookies(), "sid"))
	assert.JSONEq(t, `{"id":"abc-123","name":"Ada L"}`, w.Body.String())
}

func TestSaveDisplayName_PrefersSession(t *testing.T) {
	e := newEngine(Resolver{})

	w := httptest.NewRecorder()
	e.ServeHTTP(w, httptest.NewRequest(http.MethodPut, "/name", nil))
	require.Equal(t, http.StatusNoContent, w.Code)
	sess := findCookie(w.Result().Cookies(), "bs")
	require.NotNil(t, sess)
	sid := findCookie(w.Result().Cookies(), DefaultCookieName)
	require.NotNil(t, sid)

	req := httptest.NewRequest(http.MethodGet, "/who", nil)
	req.AddCookie(sess)
	req.AddCookie(sid)
	req.AddCookie(&http.Cookie{Name: DisplayNameCookie, Value: "Cookie"})
	w = httptest.NewRecorder()
	e.ServeHTTP(w, req)

	assert.JSONEq(t, `{"id":"`+sid.Value+`","name":"Saved"}`, w.Body.String())
}

func TestResolve_Unauthenticated(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

	_, err := Resolver{}.Resolve(c)
	assert.ErrorIs(t, err, domain.ErrUnauthenticated)
}

func TestResolve_RejectsOversizedID(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	long := make([]byte, domain.MaxUserIDLen+1)
	for i := range long {
		long[i] = 'a'
	}
	c.Request.AddCookie(&http.Cookie{Name: DefaultCookieName, Value: string(long)})

	_, err := Resolver{}.Resolve(c)
	assert.ErrorIs(t, err, domain.ErrUnauthenticated)
}
