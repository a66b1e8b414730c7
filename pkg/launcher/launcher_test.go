package launcher

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/entrhq/devbridge/pkg/devtools"
)

func TestArgs(t *testing.T) {
	assert.Equal(t, []string{
		"--remote-debugging-port=9333",
		"--remote-allow-origins=*",
	}, Args(Options{Port: 9333}))

	assert.Contains(t, Args(Options{}), "--remote-debugging-port=9222")
}

func TestOptions_Defaults(t *testing.T) {
	opts := Options{}.withDefaults()

	assert.Equal(t, devtools.DefaultPort, opts.Port)
	assert.Equal(t, "about:blank", opts.URL)
	assert.Equal(t, DefaultStartupTimeout, opts.StartupTimeout)
	assert.NoError(t, opts.validate())

	assert.Error(t, Options{Port: 70000}.withDefaults().validate())
	assert.Error(t, Options{Port: -1}.withDefaults().validate())
}

func TestLauncher_NothingRunning(t *testing.T) {
	l := New()

	_, running := l.Running()
	assert.False(t, running)
	assert.ErrorIs(t, l.Close(), ErrNotRunning)
	assert.NoError(t, l.Shutdown(), "shutdown without a launch is a no-op")
}

func TestLauncher_LaunchRejectsInvalidPort(t *testing.T) {
	l := New()

	_, err := l.Launch(context.Background(), Options{Port: 123456})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "port")
}

func TestWaitForEndpoint(t *testing.T) {
	ready := time.Now().Add(300 * time.Millisecond)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/json/version" || time.Now().Before(ready) {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		fmt.Fprint(w, `{"Browser":"HeadlessChrome/120.0"}`)
	}))
	defer server.Close()

	u, err := url.Parse(server.URL)
	require.NoError(t, err)
	port, err := strconv.Atoi(u.Port())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	assert.NoError(t, WaitForEndpoint(ctx, nil, u.Hostname(), port))
}

func TestWaitForEndpoint_GivesUp(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	u, _ := url.Parse(server.URL)
	port, _ := strconv.Atoi(u.Port())
	server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	err := WaitForEndpoint(ctx, nil, u.Hostname(), port)
	require.Error(t, err)
	assert.ErrorIs(t, err, devtools.ErrEndpointUnreachable)
	assert.Contains(t, err.Error(), strconv.Itoa(port))
}

func TestLauncher_LaunchAndAttach(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	l := New()
	defer l.Shutdown()

	instance, err := l.Launch(context.Background(), Options{Port: 9339, Headless: true})
	require.NoError(t, err)
	assert.NotEmpty(t, instance.Version)

	_, err = l.Launch(context.Background(), Options{Port: 9340, Headless: true})
	assert.ErrorIs(t, err, ErrAlreadyRunning)

	targets, err := devtools.Discover(context.Background(), nil, devtools.DialectChrome, "localhost", 9339)
	require.NoError(t, err)
	assert.NotEmpty(t, targets)

	require.NoError(t, l.Close())
	_, running := l.Running()
	assert.False(t, running)
}
