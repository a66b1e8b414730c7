// Package launcher starts a local Chromium with its remote debugging endpoint
// open, for agents that have no browser of their own to attach to.
//
// The browser is driven by Playwright only for process lifecycle. All
// debugging traffic goes through pkg/devtools over the regular endpoint.
package launcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/playwright-community/playwright-go"

	"github.com/entrhq/devbridge/pkg/devtools"
)

const (
	// DefaultStartupTimeout bounds how long Launch waits for the endpoint.
	DefaultStartupTimeout = 15 * time.Second

	pollInterval = 200 * time.Millisecond
)

var (
	// ErrAlreadyRunning is returned by Launch while a launched browser is open.
	ErrAlreadyRunning = errors.New("a launched browser is already running")

	// ErrNotRunning is returned by Close when nothing was launched.
	ErrNotRunning = errors.New("no launched browser is running")
)

// Options configures a launch.
type Options struct {
	// Port for --remote-debugging-port. Defaults to devtools.DefaultPort.
	Port int

	// Headless runs the browser without a window.
	Headless bool

	// URL is opened in the first tab. Defaults to about:blank.
	URL string

	// StartupTimeout bounds the wait for the debugging endpoint.
	StartupTimeout time.Duration
}

func (o Options) withDefaults() Options {
	if o.Port == 0 {
		o.Port = devtools.DefaultPort
	}
	if o.URL == "" {
		o.URL = "about:blank"
	}
	if o.StartupTimeout <= 0 {
		o.StartupTimeout = DefaultStartupTimeout
	}
	return o
}

func (o Options) validate() error {
	if o.Port < 1 || o.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", o.Port)
	}
	return nil
}

// Args returns the extra Chromium flags for a launch.
func Args(opts Options) []string {
	opts = opts.withDefaults()
	return []string{
		"--remote-debugging-port=" + strconv.Itoa(opts.Port),
		// The websocket dialer sends an Origin header naming the host.
		"--remote-allow-origins=*",
	}
}

// Instance describes the launched browser.
type Instance struct {
	Port      int
	Headless  bool
	URL       string
	Version   string
	StartedAt time.Time

	browser playwright.Browser
}

// Launcher owns at most one launched browser.
type Launcher struct {
	mu          sync.Mutex
	playwright  *playwright.Playwright
	initialized bool
	instance    *Instance
	httpClient  *http.Client
}

// New creates a launcher. Playwright is started lazily on the first Launch.
func New() *Launcher {
	return &Launcher{}
}

// Initialize installs the Playwright driver and Chromium if needed and starts
// the driver. It is safe to call more than once.
func (l *Launcher) Initialize() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.initializeLocked()
}

func (l *Launcher) initializeLocked() error {
	if l.initialized {
		return nil
	}

	// Driver output would interleave with tool results on stdout
	opts := &playwright.RunOptions{
		Browsers: []string{"chromium"},
		Verbose:  false,
		Stdout:   io.Discard,
		Stderr:   io.Discard,
	}

	if err := playwright.Install(opts); err != nil {
		return fmt.Errorf("failed to install playwright: %w", err)
	}

	pw, err := playwright.Run(opts)
	if err != nil {
		return fmt.Errorf("failed to start playwright: %w", err)
	}

	l.playwright = pw
	l.initialized = true
	return nil
}

// Launch starts Chromium with its debugging endpoint on opts.Port and waits
// until the endpoint answers.
func (l *Launcher) Launch(ctx context.Context, opts Options) (*Instance, error) {
	opts = opts.withDefaults()
	if err := opts.validate(); err != nil {
		return nil, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.instance != nil {
		return nil, fmt.Errorf("%w on port %d", ErrAlreadyRunning, l.instance.Port)
	}

	if err := l.initializeLocked(); err != nil {
		return nil, err
	}

	browser, err := l.playwright.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(opts.Headless),
		Args:     Args(opts),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	page, err := browser.NewPage()
	if err != nil {
		browser.Close()
		return nil, fmt.Errorf("failed to open page: %w", err)
	}

	if opts.URL != "about:blank" {
		if _, err := page.Goto(opts.URL); err != nil {
			browser.Close()
			return nil, fmt.Errorf("failed to open %s: %w", opts.URL, err)
		}
	}

	waitCtx, cancel := context.WithTimeout(ctx, opts.StartupTimeout)
	defer cancel()
	if err := WaitForEndpoint(waitCtx, l.httpClient, "localhost", opts.Port); err != nil {
		browser.Close()
		return nil, err
	}

	instance := &Instance{
		Port:      opts.Port,
		Headless:  opts.Headless,
		URL:       opts.URL,
		Version:   browser.Version(),
		StartedAt: time.Now(),
		browser:   browser,
	}
	l.instance = instance
	return instance, nil
}

// Running returns the launched browser, if any.
func (l *Launcher) Running() (*Instance, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.instance, l.instance != nil
}

// Close closes the launched browser.
func (l *Launcher) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.instance == nil {
		return ErrNotRunning
	}

	err := l.instance.browser.Close()
	l.instance = nil
	if err != nil {
		return fmt.Errorf("failed to close browser: %w", err)
	}
	return nil
}

// Shutdown closes any launched browser and stops Playwright.
func (l *Launcher) Shutdown() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.instance != nil {
		_ = l.instance.browser.Close()
		l.instance = nil
	}

	if l.initialized && l.playwright != nil {
		if err := l.playwright.Stop(); err != nil {
			return fmt.Errorf("failed to stop playwright: %w", err)
		}
		l.initialized = false
	}
	return nil
}

// WaitForEndpoint polls the discovery endpoint's version document until it
// answers or ctx ends.
func WaitForEndpoint(ctx context.Context, client *http.Client, host string, port int) error {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		_, err := devtools.BrowserVersion(ctx, client, host, port)
		if err == nil {
			return nil
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("debugging endpoint on port %d did not come up: %w", port, err)
		case <-ticker.C:
		}
	}
}
