package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dkeye/breakout/internal/adapters/identity"
	"github.com/dkeye/breakout/internal/adapters/signal"
	"github.com/dkeye/breakout/internal/adapters/store/memory"
	"github.com/dkeye/breakout/internal/app"
	"github.com/dkeye/breakout/internal/config"
	"github.com/dkeye/breakout/internal/core"
	"github.com/dkeye/breakout/internal/domain"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func testConfig() *config.Config {
	return &config.Config{
		Mode:           "test",
		Secret:         "test-secret",
		AllowedOrigins: []string{"https://app.example"},
		Cookie:         config.Cookie{Name: "_bsid", MaxAge: 3600},
	}
}

func newServer(t *testing.T) (*httptest.Server, *app.Orchestrator) {
	t.Helper()
	orch := app.NewOrchestrator(memory.NewStore(), memory.NewLocker())
	h := SetupRouter(context.Background(), testConfig(), Deps{
		Orch:     orch,
		Identity: identity.Resolver{CookieName: "_bsid", MaxAge: 3600},
	})
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return srv, orch
}

func newClient(t *testing.T) *http.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &http.Client{Jar: jar}
}

func doJSON(t *testing.T, cl *http.Client, method, url, body string, out any) int {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	require.NoError(t, err)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := cl.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func TestRouter_Health(t *testing.T) {
	srv, _ := newServer(t)
	var out map[string]string
	code := doJSON(t, newClient(t), http.MethodGet, srv.URL+"/healthz", "", &out)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", out["status"])
}

func TestRouter_RoomLifecycle(t *testing.T) {
	srv, orch := newServer(t)
	host := newClient(t)

	var mine struct {
		Room *domain.Room `json:"room"`
	}
	code := doJSON(t, host, http.MethodGet, srv.URL+"/api/rooms/mine", "", &mine)
	require.Equal(t, http.StatusOK, code)
	assert.Nil(t, mine.Room)

	var created struct {
		Room domain.Room `json:"room"`
	}
	code = doJSON(t, host, http.MethodPost, srv.URL+"/api/rooms", "", &created)
	require.Equal(t, http.StatusCreated, code)
	assert.Equal(t, domain.RoomWaiting, created.Room.State)
	require.Len(t, created.Room.Participants, 1)

	var conflict map[string]string
	code = doJSON(t, host, http.MethodPost, srv.URL+"/api/rooms", "", &conflict)
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "conflict", conflict["kind"])

	code = doJSON(t, host, http.MethodGet, srv.URL+"/api/rooms/mine", "", &mine)
	require.Equal(t, http.StatusOK, code)
	require.NotNil(t, mine.Room)
	assert.Equal(t, created.Room.ID, mine.Room.ID)

	var room domain.Room
	code = doJSON(t, host, http.MethodGet, srv.URL+"/api/rooms/"+string(created.Room.ID), "", &room)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, created.Room.HostID, room.HostID)

	var missing map[string]string
	code = doJSON(t, host, http.MethodGet, srv.URL+"/api/rooms/nope", "", &missing)
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "not_found", missing["kind"])

	var membership map[string]bool
	code = doJSON(t, host, http.MethodGet, srv.URL+"/api/rooms/"+string(created.Room.ID)+"/membership", "", &membership)
	require.Equal(t, http.StatusOK, code)
	assert.True(t, membership["isParticipant"])

	guest := newClient(t)
	code = doJSON(t, guest, http.MethodGet, srv.URL+"/api/rooms/"+string(created.Room.ID)+"/membership", "", &membership)
	require.Equal(t, http.StatusOK, code)
	assert.False(t, membership["isParticipant"])

	_, err := orch.JoinRoom(context.Background(), created.Room.ID, "someone")
	require.NoError(t, err)
	var ps struct {
		Participants []app.Participant `json:"participants"`
	}
	code = doJSON(t, guest, http.MethodGet, srv.URL+"/api/rooms/"+string(created.Room.ID)+"/participants", "", &ps)
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, ps.Participants, 2)
}

func TestRouter_DisplayName(t *testing.T) {
	srv, _ := newServer(t)
	cl := newClient(t)

	var got map[string]string
	code := doJSON(t, cl, http.MethodGet, srv.URL+"/api/me/display-name", "", &got)
	require.Equal(t, http.StatusOK, code)
	generated := got["displayName"]
	assert.NotEmpty(t, generated)

	var ok map[string]bool
	code = doJSON(t, cl, http.MethodPut, srv.URL+"/api/me/display-name", `{"displayName":" Grace "}`, &ok)
	require.Equal(t, http.StatusOK, code)
	assert.True(t, ok["success"])

	code = doJSON(t, cl, http.MethodGet, srv.URL+"/api/me/display-name", "", &got)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "Grace", got["displayName"])

	var bad map[string]string
	code = doJSON(t, cl, http.MethodPut, srv.URL+"/api/me/display-name", `{"displayName":""}`, &bad)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "invalid_argument", bad["kind"])
}

type recordingConn struct {
	mu     sync.Mutex
	frames []string
}

func (c *recordingConn) TrySend(f core.Frame) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.frames = append(c.frames, string(f))
	return nil
}

func (c *recordingConn) Close() {}

func (c *recordingConn) all() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.frames...)
}

func TestRouter_DisplayNamePushedToRoom(t *testing.T) {
	ctx := context.Background()
	orch := app.NewOrchestrator(memory.NewStore(), memory.NewLocker())
	resolver := identity.Resolver{CookieName: "_bsid", MaxAge: 3600}
	gw := signal.NewSignalWSController(orch, app.NewRegistry(), app.SimplePolicy{}, nil, resolver, signal.Options{})
	srv := httptest.NewServer(SetupRouter(ctx, testConfig(), Deps{Orch: orch, Signal: gw, Identity: resolver}))
	t.Cleanup(srv.Close)

	room, err := orch.CreateRoom(ctx, "host")
	require.NoError(t, err)
	_, err = orch.JoinRoom(ctx, room.ID, "alice")
	require.NoError(t, err)

	hostConn := &recordingConn{}
	gw.Registry.Bind("host", hostConn, nil)
	gw.Registry.UpdateRoom("host", room.ID)

	cl := newClient(t)
	u, err := url.Parse(srv.URL)
	require.NoError(t, err)
	cl.Jar.SetCookies(u, []*http.Cookie{{Name: "_bsid", Value: "alice", Path: "/"}})

	var ok map[string]bool
	code := doJSON(t, cl, http.MethodPut, srv.URL+"/api/me/display-name", `{"displayName":"Alicia"}`, &ok)
	require.Equal(t, http.StatusOK, code)

	frames := hostConn.all()
	require.Len(t, frames, 1)
	assert.Contains(t, frames[0], `"participantsUpdated"`)
	assert.Contains(t, frames[0], `"Alicia"`)
}

func TestRouter_Distribution(t *testing.T) {
	srv, _ := newServer(t)
	cl := newClient(t)

	var out struct {
		Distribution []int `json:"distribution"`
	}
	code := doJSON(t, cl, http.MethodGet, srv.URL+"/api/distribution?count=21&mode=size&value=4", "", &out)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, []int{4, 4, 4, 3, 3, 3}, out.Distribution)

	code = doJSON(t, cl, http.MethodGet, srv.URL+"/api/distribution?count=10&mode=count&value=3", "", &out)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, []int{4, 3, 3}, out.Distribution)

	var bad map[string]string
	code = doJSON(t, cl, http.MethodGet, srv.URL+"/api/distribution?count=x&value=3", "", &bad)
	assert.Equal(t, http.StatusBadRequest, code)
	code = doJSON(t, cl, http.MethodGet, srv.URL+"/api/distribution?count=3&mode=weird&value=3", "", &bad)
	assert.Equal(t, http.StatusBadRequest, code)
	code = doJSON(t, cl, http.MethodGet, srv.URL+"/api/distribution?roomId=nope&value=3", "", &bad)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestRouter_DistributionRejectsHugeCount(t *testing.T) {
	srv, _ := newServer(t)
	cl := newClient(t)

	var bad map[string]string
	code := doJSON(t, cl, http.MethodGet, srv.URL+"/api/distribution?count=1125899906842624&mode=size&value=1", "", &bad)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "invalid_argument", bad["kind"])

	code = doJSON(t, cl, http.MethodGet, srv.URL+"/api/distribution?count=2147483648&mode=count&value=1", "", &bad)
	assert.Equal(t, http.StatusBadRequest, code)

	var out struct {
		Distribution []int `json:"distribution"`
	}
	code = doJSON(t, cl, http.MethodGet, srv.URL+"/api/distribution?count="+strconv.Itoa(MaxPreviewParticipants)+"&mode=size&value=1000", "", &out)
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, out.Distribution, MaxPreviewParticipants/1000)
}

func TestRouter_CORS(t *testing.T) {
	srv, _ := newServer(t)

	req, err := http.NewRequest(http.MethodOptions, srv.URL+"/api/rooms", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "https://app.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, "https://app.example", resp.Header.Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", resp.Header.Get("Access-Control-Allow-Credentials"))

	req.Header.Set("Origin", "https://evil.example")
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Empty(t, resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestStatusOf(t *testing.T) {
	cases := map[domain.Kind]int{
		domain.KindNotFound:           http.StatusNotFound,
		domain.KindConflict:           http.StatusConflict,
		domain.KindInvalidArgument:    http.StatusBadRequest,
		domain.KindInvalidState:       http.StatusConflict,
		domain.KindFailedPrecondition: http.StatusPreconditionFailed,
		domain.KindPermissionDenied:   http.StatusForbidden,
		domain.KindUnauthenticated:    http.StatusUnauthorized,
		domain.KindRateLimited:        http.StatusTooManyRequests,
		domain.KindInternal:           http.StatusInternalServerError,
	}
	for kind, want := range cases {
		assert.Equal(t, want, statusOf(kind), string(kind))
	}
}
