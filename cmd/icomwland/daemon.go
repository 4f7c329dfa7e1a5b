package main

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/icomwland/icomwland/pkg/client"
	"github.com/icomwland/icomwland/pkg/config"
	"github.com/icomwland/icomwland/pkg/controller"
	"github.com/icomwland/icomwland/pkg/logging"
	"github.com/icomwland/icomwland/pkg/protocol"
	"github.com/icomwland/icomwland/pkg/storage"
)

// Daemon wires the connection controller, event store, control socket, and
// HTTP status/stream server into one running process.
type Daemon struct {
	config *config.Config
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	ctrl         *controller.Controller
	store        *storage.EventStore
	socketClient *client.SocketClient
	webServer    *http.Server

	socketPath string
	listener   net.Listener
	startTime  time.Time

	wsClients   map[*websocket.Conn]bool
	wsClientsMu sync.Mutex
}

// NewDaemon creates a new daemon instance from cfg.
func NewDaemon(cfg *config.Config) (*Daemon, error) {
	ctx, cancel := context.WithCancel(context.Background())

	socketPath := cfg.API.UnixSocket
	if socketPath == "" {
		socketPath = "/tmp/icomwland.sock"
	}

	store, err := storage.NewEventStore(cfg.Storage.DatabasePath, cfg.Storage.MaxEvents)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to open event store: %w", err)
	}

	ctrl, err := controller.New(controller.Target{
		Host:        cfg.Radio.Host,
		ControlPort: cfg.Radio.ControlPort,
		Username:    cfg.Radio.Username,
		Password:    cfg.Radio.Password,
		ClientName:  cfg.Station.Name,
	}, controller.MonitorConfig{
		Timeout:       cfg.MonitorTimeout(),
		CheckInterval: cfg.MonitorCheckInterval(),
		AutoReconnect: cfg.Monitor.AutoReconnect,
		MaxAttempts:   cfg.Monitor.MaxAttempts,
		BaseDelay:     cfg.MonitorBaseDelay(),
		MaxDelay:      cfg.MonitorMaxDelay(),
	})
	if err != nil {
		store.Close()
		cancel()
		return nil, fmt.Errorf("failed to create controller: %w", err)
	}

	d := &Daemon{
		config:       cfg,
		ctx:          ctx,
		cancel:       cancel,
		ctrl:         ctrl,
		store:        store,
		socketPath:   socketPath,
		socketClient: client.NewSocketClient(socketPath),
		startTime:    time.Now(),
		wsClients:    make(map[*websocket.Conn]bool),
	}

	if err := d.setupWebServer(); err != nil {
		return nil, fmt.Errorf("failed to setup web server: %w", err)
	}

	return d, nil
}

// Start starts the control socket listener, lifecycle-event recorder, and
// HTTP server.
func (d *Daemon) Start() error {
	logging.Info("daemon", "starting icomwland daemon...")

	os.Remove(d.socketPath)
	listener, err := net.Listen("unix", d.socketPath)
	if err != nil {
		return fmt.Errorf("failed to create control socket: %w", err)
	}
	if err := os.Chmod(d.socketPath, 0660); err != nil {
		logging.Warnf("daemon", "failed to set socket permissions: %v", err)
	}
	d.listener = listener

	d.wg.Add(1)
	go d.acceptConnections()

	d.wg.Add(1)
	go d.recordLifecycleEvents()

	time.Sleep(100 * time.Millisecond)
	if !d.socketClient.IsConnected() {
		return fmt.Errorf("failed to connect to control socket")
	}

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		addr := fmt.Sprintf(":%d", d.config.API.Port)
		logging.Infof("daemon", "starting HTTP server on %s", addr)
		if err := d.webServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logging.Errorf("daemon", "HTTP server error: %v", err)
		}
	}()

	connectCtx, cancel := context.WithTimeout(d.ctx, 30*time.Second)
	defer cancel()
	if err := d.ctrl.Connect(connectCtx); err != nil {
		logging.Warnf("daemon", "initial connect failed, will rely on manual retry: %v", err)
	}

	return nil
}

// Stop stops the daemon gracefully.
func (d *Daemon) Stop() error {
	logging.Info("daemon", "stopping daemon...")

	d.cancel()

	if d.webServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := d.webServer.Shutdown(ctx); err != nil {
			logging.Warnf("daemon", "HTTP server shutdown error: %v", err)
		}
	}

	d.ctrl.Disconnect("daemon shutdown", true)
	d.ctrl.Shutdown()

	if d.listener != nil {
		d.listener.Close()
	}
	os.Remove(d.socketPath)

	if err := d.store.Close(); err != nil {
		logging.Warnf("daemon", "event store close error: %v", err)
	}

	d.wg.Wait()
	logging.Info("daemon", "daemon stopped")
	return nil
}

// setupWebServer initializes the HTTP router and routes.
func (d *Daemon) setupWebServer() error {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())

	api := router.Group("/api/v1")
	{
		api.GET("/status", d.handleGetStatus)
		api.GET("/metrics", d.handleGetMetrics)
		api.GET("/events", d.handleGetEvents)
		api.POST("/connect", d.handleConnect)
		api.POST("/disconnect", d.handleDisconnect)
		api.GET("/stream", d.handleEventStream)
	}

	d.webServer = &http.Server{
		Addr:    fmt.Sprintf(":%d", d.config.API.Port),
		Handler: router,
	}
	return nil
}

// acceptConnections accepts control-socket connections.
func (d *Daemon) acceptConnections() {
	defer d.wg.Done()
	for {
		conn, err := d.listener.Accept()
		if err != nil {
			select {
			case <-d.ctx.Done():
				return
			default:
				logging.Warnf("daemon", "socket accept error: %v", err)
				continue
			}
		}
		go d.handleConnection(conn)
	}
}

// handleConnection handles a single control-socket connection.
func (d *Daemon) handleConnection(conn net.Conn) {
	defer conn.Close()

	scanner := bufio.NewScanner(conn)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}

		cmd, err := protocol.ParseCommand(line)
		if err != nil {
			resp := protocol.NewErrorResponse(fmt.Sprintf("parse error: %v", err))
			conn.Write([]byte(resp.String() + "\n"))
			continue
		}

		resp := d.handleCommand(cmd)
		conn.Write([]byte(resp.String() + "\n"))

		if cmd.Type == protocol.CmdQuit {
			break
		}
	}
}

// handleCommand dispatches one parsed command to its handler.
func (d *Daemon) handleCommand(cmd *protocol.Command) *protocol.Response {
	switch cmd.Type {
	case protocol.CmdStatus:
		return d.cmdStatus()
	case protocol.CmdMetrics:
		return d.cmdMetrics()
	case protocol.CmdEvents:
		return d.cmdEvents(cmd)
	case protocol.CmdConnect:
		return d.cmdConnect()
	case protocol.CmdDisconnect:
		return d.cmdDisconnect(cmd)
	case protocol.CmdPing:
		return protocol.NewSuccessResponse(map[string]interface{}{
			"pong": time.Now().Unix(),
		})
	case protocol.CmdQuit:
		return protocol.NewSuccessResponse(map[string]interface{}{
			"message": "goodbye",
		})
	default:
		return protocol.NewErrorResponse(fmt.Sprintf("unknown command: %s", cmd.Type))
	}
}

func (d *Daemon) cmdStatus() *protocol.Response {
	metrics := d.ctrl.GetMetrics()
	status := protocol.Status{
		Callsign:  d.config.Station.Callsign,
		RadioHost: d.config.Radio.Host,
		Phase:     metrics.Phase.String(),
		Connected: metrics.Phase == controller.PhaseConnected,
		Uptime:    time.Since(d.startTime).String(),
		Version:   Version,
		RxSNR:     metrics.RxActivity,
	}
	return protocol.NewSuccessResponse(map[string]interface{}{"status": status})
}

func (d *Daemon) cmdMetrics() *protocol.Response {
	metrics := d.ctrl.GetMetrics()
	return protocol.NewSuccessResponse(map[string]interface{}{
		"phase":              metrics.Phase.String(),
		"control_age_ms":     metrics.ControlAge.Milliseconds(),
		"civ_age_ms":         metrics.CivAge.Milliseconds(),
		"audio_age_ms":       metrics.AudioAge.Milliseconds(),
		"reconnect_attempts": metrics.ReconnectAttempts,
		"civ_frames_emitted": metrics.CivFramesEmitted,
		"audio_frames_sent":  metrics.AudioFramesSent,
		"audio_frames_recv":  metrics.AudioFramesRecv,
		"rx_activity":        metrics.RxActivity,
		"dropped_events":     metrics.DroppedEvents,
	})
}

func (d *Daemon) cmdEvents(cmd *protocol.Command) *protocol.Response {
	limit := 50
	if v, ok := cmd.Args["limit"]; ok {
		if n, err := strconv.Atoi(fmt.Sprintf("%v", v)); err == nil && n > 0 {
			limit = n
		}
	}

	var events []storage.Event
	var err error
	if kind, ok := cmd.Args["kind"]; ok {
		events, err = d.store.GetEventsByKind(fmt.Sprintf("%v", kind), limit)
	} else {
		events, err = d.store.GetRecentEvents(limit)
	}
	if err != nil {
		return protocol.NewErrorResponse(fmt.Sprintf("events error: %v", err))
	}
	return protocol.NewSuccessResponse(map[string]interface{}{"events": events})
}

func (d *Daemon) cmdConnect() *protocol.Response {
	ctx, cancel := context.WithTimeout(d.ctx, 30*time.Second)
	defer cancel()
	if err := d.ctrl.Connect(ctx); err != nil {
		return protocol.NewErrorResponse(err.Error())
	}
	return protocol.NewSuccessResponse(map[string]interface{}{"status": "connected"})
}

func (d *Daemon) cmdDisconnect(cmd *protocol.Command) *protocol.Response {
	reason := "manual disconnect"
	if r, ok := cmd.Args["reason"]; ok {
		if s := strings.TrimSpace(fmt.Sprintf("%v", r)); s != "" {
			reason = s
		}
	}
	if err := d.ctrl.Disconnect(reason, false); err != nil {
		return protocol.NewErrorResponse(err.Error())
	}
	return protocol.NewSuccessResponse(map[string]interface{}{"status": "disconnected"})
}

// recordLifecycleEvents drains the controller's Lifecycle channel, writing
// each occurrence to the event store and fanning it out to connected
// WebSocket clients.
func (d *Daemon) recordLifecycleEvents() {
	defer d.wg.Done()

	for {
		select {
		case <-d.ctx.Done():
			return
		case ev := <-d.ctrl.Events().Lifecycle:
			record := lifecycleToEvent(ev)
			if err := d.store.StoreEvent(record); err != nil {
				logging.Warnf("daemon", "failed to store lifecycle event: %v", err)
			}
			d.broadcastEvent(record)
		}
	}
}

func lifecycleToEvent(ev controller.LifecycleEvent) storage.Event {
	record := storage.Event{
		Timestamp:   time.Now(),
		SessionType: ev.SessionType,
		Elapsed:     ev.Elapsed,
		Downtime:    ev.Downtime,
		Attempt:     ev.Attempt,
		Delay:       ev.Delay,
		WillRetry:   ev.WillRetry,
	}
	if ev.Error != nil {
		record.ErrorText = ev.Error.Error()
	}
	switch ev.Kind {
	case controller.LifecycleConnectionLost:
		record.Kind = "connection_lost"
	case controller.LifecycleConnectionRestored:
		record.Kind = "connection_restored"
	case controller.LifecycleReconnectAttempting:
		record.Kind = "reconnect_attempting"
	case controller.LifecycleReconnectFailed:
		record.Kind = "reconnect_failed"
	}
	return record
}
