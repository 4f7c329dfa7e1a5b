package main

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/icomwland/icomwland/pkg/logging"
	"github.com/icomwland/icomwland/pkg/storage"
)

// handleGetStatus returns daemon/connection status via the control socket.
func (d *Daemon) handleGetStatus(c *gin.Context) {
	status, err := d.socketClient.GetStatus()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, status)
}

// handleGetMetrics returns the controller's running metrics snapshot.
func (d *Daemon) handleGetMetrics(c *gin.Context) {
	metrics, err := d.socketClient.GetMetrics()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, metrics)
}

// handleGetEvents returns recent connection-lifecycle events.
func (d *Daemon) handleGetEvents(c *gin.Context) {
	limitStr := c.DefaultQuery("limit", "50")
	limit, err := strconv.Atoi(limitStr)
	if err != nil {
		limit = 50
	}

	events, err := d.socketClient.GetEvents(limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"events": events,
		"count":  len(events),
	})
}

// handleConnect asks the controller to bring up the radio connection.
func (d *Daemon) handleConnect(c *gin.Context) {
	if err := d.socketClient.Connect(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "connected"})
}

// handleDisconnect asks the controller to tear down the radio connection.
func (d *Daemon) handleDisconnect(c *gin.Context) {
	var req struct {
		Reason string `json:"reason"`
	}
	_ = c.ShouldBindJSON(&req)

	if err := d.socketClient.Disconnect(req.Reason); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "disconnected"})
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// handleEventStream upgrades to a WebSocket and pushes lifecycle events to
// the client as they're recorded, newest as they happen.
func (d *Daemon) handleEventStream(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logging.Warnf("daemon", "websocket upgrade failed: %v", err)
		return
	}

	d.wsClientsMu.Lock()
	d.wsClients[conn] = true
	d.wsClientsMu.Unlock()

	logging.Info("daemon", "event stream client connected")

	go func() {
		defer func() {
			d.wsClientsMu.Lock()
			delete(d.wsClients, conn)
			d.wsClientsMu.Unlock()
			conn.Close()
			logging.Info("daemon", "event stream client disconnected")
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

// broadcastEvent fans a stored lifecycle event out to every connected
// WebSocket client, dropping clients whose write fails.
func (d *Daemon) broadcastEvent(ev storage.Event) {
	d.wsClientsMu.Lock()
	defer d.wsClientsMu.Unlock()

	for conn := range d.wsClients {
		if err := conn.WriteJSON(ev); err != nil {
			conn.Close()
			delete(d.wsClients, conn)
		}
	}
}
