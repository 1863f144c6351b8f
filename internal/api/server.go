package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/sangit/relaygate/internal/gateway"
	"github.com/sangit/relaygate/internal/infrastructure/config"
	"github.com/sangit/relaygate/internal/infrastructure/logging"
	"github.com/sangit/relaygate/internal/relay"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight
// requests to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// Deps holds the dependencies required by the API server.
type Deps struct {
	Config   config.APIConfig
	WS       config.WebSocketConfig
	Logger   *logging.Logger
	Store    *relay.Store
	Events   relay.EventLog
	Commands *gateway.CommandRouter
	Registry *gateway.Registry
	Version  string
}

// Server is the operator-facing HTTP server.
//
// It manages the HTTP listener, routes, middleware, and the WebSocket
// hub. The server implements the relay store's Notifier port and the
// gateway's Broadcaster port, turning configuration changes and device
// state reports into hub broadcasts.
type Server struct {
	cfg      config.APIConfig
	wsCfg    config.WebSocketConfig
	logger   *logging.Logger
	store    *relay.Store
	events   relay.EventLog
	commands *gateway.CommandRouter
	registry *gateway.Registry
	version  string

	server *http.Server
	hub    *Hub
	cancel context.CancelFunc
}

// New creates an API server with the given dependencies.
//
// The server is not started until Start() is called, but the hub exists
// immediately so the Notifier and Broadcaster ports can be wired before
// anything is listening.
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Store == nil {
		return nil, fmt.Errorf("relay config store is required")
	}
	if deps.Events == nil {
		return nil, fmt.Errorf("relay event log is required")
	}
	if deps.Commands == nil {
		return nil, fmt.Errorf("command router is required")
	}

	s := &Server{
		cfg:      deps.Config,
		wsCfg:    deps.WS,
		logger:   deps.Logger,
		store:    deps.Store,
		events:   deps.Events,
		commands: deps.Commands,
		registry: deps.Registry,
		version:  deps.Version,
	}
	s.hub = NewHub(deps.WS, deps.Logger, s)
	return s, nil
}

// Hub returns the WebSocket hub.
func (s *Server) Hub() *Hub {
	return s.hub
}

// ConfigChanged broadcasts the full configuration snapshot to all
// connected dashboards. It implements the relay store's Notifier port.
func (s *Server) ConfigChanged(snapshot map[string]relay.Config) {
	s.hub.Broadcast(EventConfigChanged, snapshot)
}

// DeviceState broadcasts a raw device state report to all connected
// dashboards. It implements the gateway's Broadcaster port.
func (s *Server) DeviceState(deviceID string, report map[string]any) {
	s.logger.Debug("broadcasting device state", "device", deviceID)
	s.hub.Broadcast(EventDeviceState, report)
}

// Start begins listening for HTTP connections.
//
// It starts the WebSocket hub and launches the HTTP listener in a
// background goroutine. The server can be stopped with Close().
func (s *Server) Start(ctx context.Context) error {
	var srvCtx context.Context
	srvCtx, s.cancel = context.WithCancel(ctx)
	go s.hub.Run(srvCtx)

	router := s.buildRouter()

	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		Handler:           router,
		ReadTimeout:       time.Duration(s.cfg.Timeouts.Read) * time.Second,
		ReadHeaderTimeout: time.Duration(s.cfg.Timeouts.Read) * time.Second,
		WriteTimeout:      time.Duration(s.cfg.Timeouts.Write) * time.Second,
		IdleTimeout:       time.Duration(s.cfg.Timeouts.Idle) * time.Second,
	}

	go func() {
		err := s.server.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", err)
		}
	}()

	s.logger.Info("API server starting", "address", s.server.Addr)
	return nil
}

// Close gracefully shuts down the API server.
//
// It waits up to 10 seconds for in-flight requests to complete, then
// forcefully closes remaining connections.
func (s *Server) Close() error {
	if s.server == nil {
		return nil
	}

	if s.cancel != nil {
		s.cancel()
	}

	ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()

	s.logger.Info("API server shutting down")
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down API server: %w", err)
	}
	return nil
}

// HealthCheck verifies the API server is running.
func (s *Server) HealthCheck(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("api health check: %w", ctx.Err())
	default:
	}

	if s.server == nil {
		return fmt.Errorf("api server not started")
	}
	return nil
}
