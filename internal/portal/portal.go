// Package portal serves the local setup page used while the device is provisioning.
package portal

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/benmeehan/knob-agent/internal/constants"
	"github.com/benmeehan/knob-agent/internal/models"
	"github.com/benmeehan/knob-agent/pkg/store"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

var (
	//go:embed assets/index.html
	indexHTML []byte

	//go:embed assets/saved.html
	savedHTML []byte
)

const htmlContentType = "text/html; charset=utf-8"

// ErrAlreadyRunning is returned when starting a portal twice.
var ErrAlreadyRunning = errors.New("portal is already running")

// ErrNotRunning is returned when stopping a portal that is not running.
var ErrNotRunning = errors.New("portal is not running")

// Restarter ends the current boot session.
type Restarter interface {
	Restart(reason string)
}

// Config holds the portal listener settings.
type Config struct {
	Listen          string        `yaml:"listen"`
	RestartDelay    time.Duration `yaml:"restart_delay"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// Portal is the provisioning web endpoint.
type Portal struct {
	cfg        Config
	prefs      store.Preferences
	restarter  Restarter
	advertiser Advertiser
	logger     zerolog.Logger
	engine     *gin.Engine

	mu       sync.Mutex
	server   *http.Server
	listener net.Listener
	timer    *time.Timer
	wg       sync.WaitGroup
}

// New creates a portal writing to prefs. advertiser may be nil.
func New(cfg Config, prefs store.Preferences, restarter Restarter, advertiser Advertiser, logger zerolog.Logger) *Portal {
	if cfg.RestartDelay <= 0 {
		cfg.RestartDelay = constants.RestartDelay
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = 5 * time.Second
	}

	p := &Portal{
		cfg:        cfg,
		prefs:      prefs,
		restarter:  restarter,
		advertiser: advertiser,
		logger:     logger.With().Str("component", "portal").Logger(),
	}

	engine := gin.New()
	engine.Use(gin.Recovery(), withRequestContext(p.logger))
	engine.GET("/", p.handleRoot)
	engine.POST("/save", p.handleSave)
	p.engine = engine
	return p
}

// Handler returns the HTTP handler of the portal.
func (p *Portal) Handler() http.Handler {
	return p.engine
}

// Addr returns the bound listen address, or nil when not running.
func (p *Portal) Addr() net.Addr {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.listener == nil {
		return nil
	}
	return p.listener.Addr()
}

func (p *Portal) handleRoot(c *gin.Context) {
	c.Data(http.StatusOK, htmlContentType, indexHTML)
}

func (p *Portal) handleSave(c *gin.Context) {
	logger := requestLogger(c, p.logger)

	creds := models.Credentials{
		SSID:          c.PostForm("ssid"),
		Password:      c.PostForm("password"),
		BrokerAddress: c.PostForm("mqtt_server"),
	}

	if err := store.SaveCredentials(p.prefs, creds); err != nil {
		logger.Error().Err(err).Msg("Failed to save settings")
		c.String(http.StatusInternalServerError, "failed to save settings")
		return
	}

	logger.Info().
		Str("ssid", creds.SSID).
		Str("broker", creds.BrokerAddress).
		Bool("complete", creds.Complete()).
		Msg("Settings saved")

	c.Data(http.StatusOK, htmlContentType, savedHTML)
	p.scheduleRestart()
}

// scheduleRestart restarts after the configured delay so the confirmation page reaches the browser.
func (p *Portal) scheduleRestart() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.timer != nil {
		p.timer.Stop()
	}
	p.timer = time.AfterFunc(p.cfg.RestartDelay, func() {
		p.restarter.Restart("settings saved")
	})
}

// Start binds the listen address and serves in the background.
func (p *Portal) Start() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.server != nil {
		p.logger.Warn().Msg("Portal is already running")
		return ErrAlreadyRunning
	}

	ln, err := net.Listen("tcp", p.cfg.Listen)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", p.cfg.Listen, err)
	}
	p.listener = ln
	p.server = &http.Server{
		Handler:           p.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	p.wg.Add(1)
	go func(server *http.Server) {
		defer p.wg.Done()
		if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			p.logger.Error().Err(err).Msg("Portal server stopped")
		}
	}(p.server)

	if p.advertiser != nil {
		if tcp, ok := ln.Addr().(*net.TCPAddr); ok {
			if err := p.advertiser.Advertise(tcp.Port); err != nil {
				p.logger.Warn().Err(err).Msg("Setup page will not be announced")
			}
		}
	}

	p.logger.Info().Str("addr", ln.Addr().String()).Msg("Portal started")
	return nil
}

// Stop shuts the server down and cancels a pending restart.
func (p *Portal) Stop() error {
	p.mu.Lock()
	server := p.server
	if server == nil {
		p.mu.Unlock()
		p.logger.Warn().Msg("Portal is not running")
		return ErrNotRunning
	}
	p.server = nil
	p.listener = nil
	if p.timer != nil {
		p.timer.Stop()
		p.timer = nil
	}
	p.mu.Unlock()

	if p.advertiser != nil {
		p.advertiser.Shutdown()
	}

	// In-flight handlers may still take p.mu, so the lock is not held here.
	ctx, cancel := context.WithTimeout(context.Background(), p.cfg.ShutdownTimeout)
	defer cancel()
	err := server.Shutdown(ctx)
	p.wg.Wait()

	p.logger.Info().Msg("Portal stopped")
	return err
}
