// internal/browser/manager.go
package browser

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/playwright-community/playwright-go"
	"go.uber.org/zap"

	"github.com/xkilldash9x/signupd/internal/config"
)

// Manager owns the Playwright driver process and launches per-job browser
// sessions. Driver startup is deferred until the first launch so the
// service comes up fast even when no job ever runs.
type Manager struct {
	cfg        config.BrowserConfig
	storageDir string
	logger     *zap.Logger

	pw      *playwright.Playwright
	initErr error
	initted chan struct{}
	initReq chan struct{}
}

var _ Launcher = (*Manager)(nil)

// NewManager creates a manager; no browser process is started yet.
func NewManager(cfg config.BrowserConfig, storageDir string, logger *zap.Logger) *Manager {
	m := &Manager{
		cfg:        cfg,
		storageDir: storageDir,
		logger:     logger.Named("browser_manager"),
		initted:    make(chan struct{}),
		initReq:    make(chan struct{}, 1),
	}
	m.logger.Info("Browser manager created (driver startup deferred).")
	return m
}

// initialize installs browsers if needed and starts the Playwright driver.
// Runs at most once; concurrent callers share the outcome.
func (m *Manager) initialize() error {
	select {
	case m.initReq <- struct{}{}:
		go func() {
			defer close(m.initted)
			m.initErr = m.startDriver()
		}()
	default:
	}
	<-m.initted
	return m.initErr
}

func (m *Manager) startDriver() error {
	m.logger.Info("Verifying Playwright browser installation...")

	installErrChan := make(chan error, 1)
	go func() {
		installErrChan <- playwright.Install(&playwright.RunOptions{
			Browsers: []string{"chromium"},
		})
	}()

	installTimeout := m.cfg.InstallTimeout
	if installTimeout <= 0 {
		installTimeout = 5 * time.Minute
	}
	select {
	case err := <-installErrChan:
		if err != nil {
			return fmt.Errorf("install playwright browsers: %w", err)
		}
	case <-time.After(installTimeout):
		return fmt.Errorf("timeout after %s waiting for playwright installation", installTimeout)
	}

	pw, err := playwright.Run()
	if err != nil {
		return fmt.Errorf("start playwright driver: %w", err)
	}
	m.pw = pw
	m.logger.Info("Playwright driver started.")
	return nil
}

// Launch opens a persistent browser context for the job on the requested
// channel ("" means bundled Chromium) and returns its page. The persistent
// profile lives under the storage dir so a retried job reuses its cookies.
func (m *Manager) Launch(jobID, channel string) (Page, error) {
	if err := m.initialize(); err != nil {
		return nil, err
	}

	userDataDir := filepath.Join(m.storageDir, jobID+"_profile")
	if err := os.MkdirAll(userDataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create profile dir: %w", err)
	}

	opts := playwright.BrowserTypeLaunchPersistentContextOptions{
		Headless: playwright.Bool(m.cfg.Headless),
		Args:     m.cfg.Args,
		Timeout:  playwright.Float(60_000),
	}
	if channel != "" {
		opts.Channel = playwright.String(channel)
	}

	m.logger.Info("Launching browser context.",
		zap.String("job_id", jobID),
		zap.String("channel", channelLabel(channel)),
		zap.Bool("headless", m.cfg.Headless))

	pctx, err := m.pw.Chromium.LaunchPersistentContext(userDataDir, opts)
	if err != nil {
		return nil, fmt.Errorf("launch persistent context (channel=%s): %w", channelLabel(channel), err)
	}

	var page playwright.Page
	if pages := pctx.Pages(); len(pages) > 0 {
		page = pages[0]
	} else {
		page, err = pctx.NewPage()
		if err != nil {
			_ = pctx.Close()
			return nil, fmt.Errorf("open page: %w", err)
		}
	}

	navTimeout := m.cfg.NavigationTimeout
	if navTimeout <= 0 {
		navTimeout = 60 * time.Second
	}
	page.SetDefaultTimeout(float64(navTimeout.Milliseconds()))

	return newSession(jobID, pctx, page, m.logger), nil
}

// Shutdown stops the Playwright driver. Sessions are owned by the Registry
// and must be released before this is called.
func (m *Manager) Shutdown() error {
	if m.pw == nil {
		return nil
	}
	m.logger.Info("Stopping Playwright driver.")
	if err := m.pw.Stop(); err != nil {
		return fmt.Errorf("stop playwright driver: %w", err)
	}
	return nil
}

func channelLabel(channel string) string {
	if channel == "" {
		return "chromium"
	}
	return channel
}
