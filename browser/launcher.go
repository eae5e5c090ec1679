package browser

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/muikit/muikit/internal/logging"
	"github.com/muikit/muikit/internal/workerpool"
)

// Launcher creates and addresses one browser container.
// Safe for concurrent use; RegeneratePorts swaps ports and derived names atomically.
type Launcher struct {
	mu    sync.RWMutex
	state state

	api           ContainerAPI
	dial          func() (ContainerAPI, func() error, error)
	closeAPI      func() error // guarded by mu
	apiOnce       sync.Once
	apiErr        error
	pool          *workerpool.Pool
	logger        *slog.Logger
	readyInterval time.Duration

	running *Container
}

// state is everything RegeneratePorts replaces at once.
type state struct {
	cfg      Config
	hostname string
	name     string
}

// Option configures a Launcher.
type Option func(*Launcher)

// WithContainerAPI sets the Docker client. When unset, one is built from the environment
// on first use.
func WithContainerAPI(api ContainerAPI) Option {
	return func(l *Launcher) { l.api = api }
}

// WithPool sets the worker pool used by CreateContainerAsync.
func WithPool(p *workerpool.Pool) Option {
	return func(l *Launcher) { l.pool = p }
}

// WithLogger sets the logger. Default is logging.Named("browser").
func WithLogger(lg *slog.Logger) Option {
	return func(l *Launcher) { l.logger = lg }
}

// WithReadyInterval sets the delay between WaitReady attempts.
func WithReadyInterval(d time.Duration) Option {
	return func(l *Launcher) { l.readyInterval = d }
}

// New returns a Launcher for cfg. An empty WebsocketPath is replaced by NewToken.
func New(cfg Config, opts ...Option) (*Launcher, error) {
	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.WebsocketPath == "" {
		token, err := NewToken()
		if err != nil {
			return nil, err
		}
		cfg.WebsocketPath = token
	}
	l := &Launcher{state: derive(cfg), dial: dialDocker, readyInterval: defaultReadyInterval}
	for _, opt := range opts {
		opt(l)
	}
	if l.pool == nil {
		l.pool = workerpool.Default()
	}
	if l.logger == nil {
		l.logger = logging.Named("browser")
	}
	return l, nil
}

// FromConfig is New without options; it pairs with Config for round trips.
func FromConfig(cfg Config) (*Launcher, error) {
	return New(cfg)
}

// ContainerName returns "magentic-ui-vnc-browser_<token>_<novnc port>".
func ContainerName(token string, novncPort int) string {
	return NamePrefix + "_" + token + "_" + strconv.Itoa(novncPort)
}

// derive computes hostname and container name from cfg.
func derive(cfg Config) state {
	name := ContainerName(cfg.WebsocketPath, cfg.NoVNCPort)
	host := name
	if !cfg.InDocker() {
		host = cfg.ExternalHost
		if host == "" {
			host = LoopbackHost
		}
	}
	return state{cfg: cfg, hostname: host, name: name}
}

func (l *Launcher) snapshot() state {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state
}

// Config returns the current configuration, including the generated token and any
// regenerated ports.
func (l *Launcher) Config() Config {
	cfg := l.snapshot().cfg
	inside := cfg.InDocker()
	cfg.InsideDocker = &inside
	return cfg
}

// Hostname returns the host used in BrowserAddress and VNCAddress.
func (l *Launcher) Hostname() string { return l.snapshot().hostname }

// Name returns the container name.
func (l *Launcher) Name() string { return l.snapshot().name }

// PlaywrightPort returns the Playwright websocket port.
func (l *Launcher) PlaywrightPort() int { return l.snapshot().cfg.PlaywrightPort }

// NoVNCPort returns the noVNC viewer port.
func (l *Launcher) NoVNCPort() int { return l.snapshot().cfg.NoVNCPort }

// BrowserAddress returns ws://<host>:<playwright port>/<token>.
func (l *Launcher) BrowserAddress() string {
	s := l.snapshot()
	return fmt.Sprintf("ws://%s:%d/%s", s.hostname, s.cfg.PlaywrightPort, s.cfg.WebsocketPath)
}

// VNCAddress returns http://<host>:<novnc port>/vnc.html.
func (l *Launcher) VNCAddress() string {
	s := l.snapshot()
	return fmt.Sprintf("http://%s:%d/vnc.html", s.hostname, s.cfg.NoVNCPort)
}

// RegeneratePorts picks two free loopback ports and recomputes hostname and name.
// The token is kept. The ports are only free at probe time.
func (l *Launcher) RegeneratePorts() error {
	pw, vnc, err := freePorts()
	if err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	cfg := l.state.cfg
	cfg.PlaywrightPort, cfg.NoVNCPort = pw, vnc
	l.state = derive(cfg)
	return nil
}

func (l *Launcher) containerAPI() (ContainerAPI, error) {
	l.apiOnce.Do(func() {
		if l.api != nil {
			return
		}
		api, closeAPI, err := l.dial()
		if err != nil {
			l.apiErr = err
			return
		}
		l.api = api
		l.mu.Lock()
		l.closeAPI = closeAPI
		l.mu.Unlock()
	})
	return l.api, l.apiErr
}

// CreateContainer creates, but does not start, the browser container.
// Docker errors are returned wrapped.
func (l *Launcher) CreateContainer(ctx context.Context) (*Container, error) {
	api, err := l.containerAPI()
	if err != nil {
		return nil, err
	}
	s := l.snapshot()
	req, err := buildCreateRequest(s)
	if err != nil {
		return nil, err
	}
	l.logger.InfoContext(ctx, "creating browser container",
		slog.String("name", s.name),
		slog.String("image", s.cfg.Image),
		slog.Int("playwright_port", s.cfg.PlaywrightPort),
		slog.Int("novnc_port", s.cfg.NoVNCPort),
	)
	resp, err := api.ContainerCreate(ctx, req.Config, req.HostConfig, req.Networking, nil, req.Name)
	if err != nil {
		return nil, fmt.Errorf("browser: create container %s: %w", s.name, err)
	}
	return &Container{ID: resp.ID, Name: s.name, Warnings: resp.Warnings, api: api}, nil
}

// CreateContainerAsync runs CreateContainer on the worker pool.
func (l *Launcher) CreateContainerAsync(ctx context.Context) *workerpool.Future[*Container] {
	return workerpool.Submit(ctx, l.pool, l.CreateContainer)
}

// Start creates and starts the container, then waits until the Playwright endpoint
// accepts websocket connections. A container that fails to become ready is stopped.
func (l *Launcher) Start(ctx context.Context) error {
	c, err := l.CreateContainer(ctx)
	if err != nil {
		return err
	}
	if err := c.Start(ctx); err != nil {
		return err
	}
	l.mu.Lock()
	l.running = c
	l.mu.Unlock()

	if err := l.WaitReady(ctx); err != nil {
		stopErr := l.stopRunning(context.WithoutCancel(ctx))
		return errors.Join(err, stopErr)
	}
	l.logger.InfoContext(ctx, "browser container ready", slog.String("name", c.Name), slog.String("vnc", l.VNCAddress()))
	return nil
}

func (l *Launcher) stopRunning(ctx context.Context) error {
	l.mu.Lock()
	c := l.running
	l.running = nil
	l.mu.Unlock()
	if c == nil {
		return nil
	}
	return c.Stop(ctx)
}

// Close stops the container started by Start, if any, and releases the Docker client
// this Launcher created.
func (l *Launcher) Close(ctx context.Context) error {
	err := l.stopRunning(ctx)
	l.mu.Lock()
	closeAPI := l.closeAPI
	l.closeAPI = nil
	l.mu.Unlock()
	if closeAPI != nil {
		err = errors.Join(err, closeAPI())
	}
	return err
}
