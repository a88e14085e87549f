package httptransport

import (
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	identity "smartgate/internal/identity/models"
	identityservice "smartgate/internal/identity/service"
	userstore "smartgate/internal/identity/store/user"
	"smartgate/internal/platform/logger"
	lockoutservice "smartgate/internal/ratelimit/service"
	lockoutstore "smartgate/internal/ratelimit/store"
	residentservice "smartgate/internal/resident/service"
	profilestore "smartgate/internal/resident/store/profile"
	vehiclestore "smartgate/internal/resident/store/vehicle"
	"smartgate/internal/session"
	sessionstore "smartgate/internal/session/store"
	"smartgate/pkg/platform/tx"
	"smartgate/pkg/testutil"
)

type flowApp struct {
	server   *httptest.Server
	users    *userstore.InMemoryUserStore
	vehicles *vehiclestore.InMemoryVehicleStore
	accounts *identityservice.Service
}

func newFlowApp(t *testing.T) *flowApp {
	t.Helper()
	log := logger.Discard()
	users := userstore.New()
	vehicles := vehiclestore.New()
	accounts := identityservice.New(users, identityservice.WithLogger(log), identityservice.WithBcryptCost(bcrypt.MinCost))
	residents := residentservice.New(profilestore.New(), vehicles, accounts, tx.NewMemory(), residentservice.WithLogger(log))
	sessions := session.NewService(sessionstore.NewInMemory(), session.NewTokenSigner("k", "smartgate"), time.Hour, session.WithLogger(log))
	renderer, err := NewRenderer()
	require.NoError(t, err)

	h := New(accounts, residents, sessions, session.NewFlash("smartgate_flash", "k", false), renderer,
		CookieConfig{Name: cookieName, TTL: time.Hour}, WithLogger(log),
		WithLoginLimiter(lockoutservice.New(lockoutstore.NewInMemory(), lockoutservice.WithLogger(log))))
	server := httptest.NewServer(NewRouter(h, RouterConfig{}))
	t.Cleanup(server.Close)
	return &flowApp{server: server, users: users, vehicles: vehicles, accounts: accounts}
}

func (a *flowApp) client(t *testing.T) *http.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &http.Client{
		Jar: jar,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

func post(t *testing.T, c *http.Client, target string, form url.Values) *http.Response {
	t.Helper()
	resp, err := c.PostForm(target, form)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func postFrom(t *testing.T, c *http.Client, target, forwardedFor string, form url.Values) *http.Response {
	t.Helper()
	req, err := http.NewRequestWithContext(t.Context(), http.MethodPost, target, strings.NewReader(form.Encode()))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("X-Forwarded-For", forwardedFor)
	resp, err := c.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func get(t *testing.T, c *http.Client, target string) *http.Response {
	t.Helper()
	resp, err := c.Get(target)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func TestRegisterLoginCompleteFlow(t *testing.T) {
	app := newFlowApp(t)
	c := app.client(t)
	base := app.server.URL

	resp := post(t, c, base+PathRegister, url.Values{
		"email": {"a@x.com"}, "password": {"p1"}, "confirmar_password": {"p1"},
	})
	require.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, PathLogin, resp.Header.Get("Location"))

	user, err := app.users.FindByEmail(t.Context(), "a@x.com")
	require.NoError(t, err)
	assert.Equal(t, identity.RoleResident, user.Role)

	resp = post(t, c, base+PathLogin, url.Values{"email": {"a@x.com"}, "password": {"p1"}})
	require.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, ResidentHome, resp.Header.Get("Location"))

	resp = get(t, c, base+ResidentHome)
	require.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, PathCompletion, resp.Header.Get("Location"))

	resp = post(t, c, base+PathCompletion, url.Values{
		"first_name": {"Ana"}, "last_name": {"Quispe"}, "email": {"a@x.com"},
		"dni": {"12345678"}, "direccion": {"Av. Sol 1"}, "telefono": {"999"},
	})
	require.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, ResidentHome, resp.Header.Get("Location"))

	resp = get(t, c, base+ResidentHome)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = get(t, c, base+PathLogout)
	require.Equal(t, http.StatusFound, resp.StatusCode)
	resp = get(t, c, base+ResidentHome)
	require.Equal(t, http.StatusFound, resp.StatusCode)
	assert.True(t, strings.HasPrefix(resp.Header.Get("Location"), PathLogin))
}

func TestPasswordMismatchCreatesNoUser(t *testing.T) {
	app := newFlowApp(t)
	resp := post(t, app.client(t), app.server.URL+PathRegister, url.Values{
		"email": {"a@x.com"}, "password": {"p1"}, "confirmar_password": {"p2"},
	})
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	all, err := app.users.List(t.Context())
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestGuardCannotRegisterVehicle(t *testing.T) {
	app := newFlowApp(t)
	c := app.client(t)

	testutil.Given(t, "a signed-in guard", func(t *testing.T) {
		_, err := app.accounts.CreateUser(t.Context(), "guardia@x.com", "p1", identityservice.WithRole(identity.RoleGuard))
		require.NoError(t, err)
		resp := post(t, c, app.server.URL+PathLogin, url.Values{"email": {"guardia@x.com"}, "password": {"p1"}})
		require.Equal(t, GuardHome, resp.Header.Get("Location"))
	})

	testutil.When(t, "the guard posts the vehicle form", func(t *testing.T) {
		resp := post(t, c, app.server.URL+"/registrar-vehiculo/", url.Values{
			"placa": {"ABC123"}, "marca": {"Kia"}, "modelo": {"Rio"}, "color": {"Azul"},
		})
		assert.Equal(t, http.StatusFound, resp.StatusCode)
		assert.Equal(t, PathDenied, resp.Header.Get("Location"))
	})

	testutil.Then(t, "no vehicle is stored", func(t *testing.T) {
		n, err := app.vehicles.Count(t.Context())
		require.NoError(t, err)
		assert.Zero(t, n)
	})
}

func TestLockoutIgnoresSpoofedForwardedFor(t *testing.T) {
	app := newFlowApp(t)
	c := app.client(t)
	target := app.server.URL + PathLogin

	testutil.Given(t, "a registered resident", func(t *testing.T) {
		_, err := app.accounts.CreateUser(t.Context(), "a@x.com", "p1")
		require.NoError(t, err)
	})

	testutil.When(t, "five wrong passwords arrive with a different forwarded address each", func(t *testing.T) {
		for i := range 5 {
			resp := postFrom(t, c, target, fmt.Sprintf("203.0.113.%d", i+1), url.Values{"email": {"a@x.com"}, "password": {"wrong"}})
			require.Equal(t, http.StatusOK, resp.StatusCode)
		}
	})

	testutil.Then(t, "the correct password from yet another forwarded address is refused", func(t *testing.T) {
		resp := postFrom(t, c, target, "198.51.100.77", url.Values{"email": {"a@x.com"}, "password": {"p1"}})
		assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
		for _, cookie := range resp.Cookies() {
			assert.NotEqual(t, cookieName, cookie.Name, "no session cookie is issued")
		}
	})
}
