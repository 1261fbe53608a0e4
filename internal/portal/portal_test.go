package portal_test

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/benmeehan/knob-agent/internal/mocks"
	"github.com/benmeehan/knob-agent/internal/models"
	"github.com/benmeehan/knob-agent/internal/portal"
	"github.com/benmeehan/knob-agent/pkg/store"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type recordingRestarter struct {
	mu      sync.Mutex
	reasons []string
}

func (r *recordingRestarter) Restart(reason string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reasons = append(r.reasons, reason)
}

func (r *recordingRestarter) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.reasons)
}

type fakeAdvertiser struct {
	mu       sync.Mutex
	port     int
	shutdown bool
}

func (a *fakeAdvertiser) Advertise(port int) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.port = port
	return nil
}

func (a *fakeAdvertiser) Shutdown() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.shutdown = true
}

func newPortal(prefs store.Preferences, restarter portal.Restarter) *portal.Portal {
	gin.SetMode(gin.TestMode)
	cfg := portal.Config{Listen: "127.0.0.1:0", RestartDelay: 50 * time.Millisecond}
	return portal.New(cfg, prefs, restarter, nil, zerolog.Nop())
}

func saveRequest(values url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/save", strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func TestPortal_RootServesForm(t *testing.T) {
	p := newPortal(mocks.NewMemoryPreferences(nil), &recordingRestarter{})

	w := httptest.NewRecorder()
	p.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, w.Body.String(), `action="/save"`)
	for _, field := range []string{`name="ssid"`, `name="password"`, `name="mqtt_server"`} {
		assert.Contains(t, w.Body.String(), field)
	}
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestPortal_RequestIDIsEchoed(t *testing.T) {
	p := newPortal(mocks.NewMemoryPreferences(nil), &recordingRestarter{})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "req-123")
	w := httptest.NewRecorder()
	p.Handler().ServeHTTP(w, req)

	assert.Equal(t, "req-123", w.Header().Get("X-Request-ID"))
}

func TestPortal_SaveRoundTrip(t *testing.T) {
	// Setup
	prefs := mocks.NewMemoryPreferences(nil)
	restarter := &recordingRestarter{}
	p := newPortal(prefs, restarter)

	// Execute
	w := httptest.NewRecorder()
	p.Handler().ServeHTTP(w, saveRequest(url.Values{
		"ssid":        {"home"},
		"password":    {"secret"},
		"mqtt_server": {"192.168.1.10"},
	}))

	// Assert
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Settings Saved")

	creds := store.LoadCredentials(prefs)
	assert.Equal(t, models.Credentials{SSID: "home", Password: "secret", BrokerAddress: "192.168.1.10"}, creds)
	assert.True(t, creds.Complete())

	assert.Equal(t, 0, restarter.count(), "restart must wait for the delay")
	assert.Eventually(t, func() bool { return restarter.count() == 1 }, time.Second, 5*time.Millisecond)
}

func TestPortal_SaveWithoutBrokerAddress(t *testing.T) {
	prefs := mocks.NewMemoryPreferences(nil)
	p := newPortal(prefs, &recordingRestarter{})

	w := httptest.NewRecorder()
	p.Handler().ServeHTTP(w, saveRequest(url.Values{"ssid": {"home"}, "password": {"secret"}}))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "", prefs.GetString("mqtt_server", "unset"))
}

func TestPortal_SaveFailureDoesNotRestart(t *testing.T) {
	prefs := new(mocks.MockPreferences)
	prefs.On("PutString", mock.Anything, mock.Anything).Return(errors.New("disk full"))
	restarter := &recordingRestarter{}
	p := newPortal(prefs, restarter)

	w := httptest.NewRecorder()
	p.Handler().ServeHTTP(w, saveRequest(url.Values{"ssid": {"home"}, "password": {"secret"}}))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, 0, restarter.count())
}

func TestPortal_UnknownRoute(t *testing.T) {
	p := newPortal(mocks.NewMemoryPreferences(nil), &recordingRestarter{})

	w := httptest.NewRecorder()
	p.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/admin", nil))

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestPortal_StartStop(t *testing.T) {
	// Setup
	gin.SetMode(gin.TestMode)
	advertiser := &fakeAdvertiser{}
	restarter := &recordingRestarter{}
	p := portal.New(portal.Config{Listen: "127.0.0.1:0", RestartDelay: time.Hour}, mocks.NewMemoryPreferences(nil), restarter, advertiser, zerolog.Nop())

	// Execute
	require.NoError(t, p.Start())
	assert.ErrorIs(t, p.Start(), portal.ErrAlreadyRunning)

	resp, err := http.Get("http://" + p.Addr().String() + "/")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()

	resp, err = http.PostForm("http://"+p.Addr().String()+"/save", url.Values{"ssid": {"home"}, "password": {"secret"}})
	require.NoError(t, err)
	resp.Body.Close()

	// Assert
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "MQTT Server")
	advertiser.mu.Lock()
	assert.NotZero(t, advertiser.port)
	advertiser.mu.Unlock()

	require.NoError(t, p.Stop())
	assert.ErrorIs(t, p.Stop(), portal.ErrNotRunning)
	assert.Nil(t, p.Addr())
	assert.True(t, advertiser.shutdown)

	// Stopping cancels the pending restart.
	assert.Equal(t, 0, restarter.count())
}
