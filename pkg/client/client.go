package client

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net"
	"time"

	"github.com/icomwland/icomwland/pkg/protocol"
	"github.com/icomwland/icomwland/pkg/storage"
)

// SocketClient is a client connection to the icomwland daemon's control
// socket.
type SocketClient struct {
	socketPath string
	timeout    time.Duration
}

// NewSocketClient creates a new socket client.
func NewSocketClient(socketPath string) *SocketClient {
	return &SocketClient{
		socketPath: socketPath,
		timeout:    5 * time.Second,
	}
}

// SendCommand sends a command line and returns the parsed response.
func (c *SocketClient) SendCommand(cmd string) (*protocol.Response, error) {
	conn, err := net.DialTimeout("unix", c.socketPath, c.timeout)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to socket: %w", err)
	}
	defer conn.Close()

	conn.SetDeadline(time.Now().Add(c.timeout))

	if _, err := conn.Write([]byte(cmd + "\n")); err != nil {
		return nil, fmt.Errorf("send error: %w", err)
	}

	scanner := bufio.NewScanner(conn)
	if !scanner.Scan() {
		return nil, fmt.Errorf("no response received")
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read error: %w", err)
	}

	var response protocol.Response
	if err := json.Unmarshal(scanner.Bytes(), &response); err != nil {
		return nil, fmt.Errorf("parse error: %w", err)
	}
	return &response, nil
}

// GetStatus gets the daemon's current connection status.
func (c *SocketClient) GetStatus() (*protocol.Status, error) {
	resp, err := c.SendCommand(protocol.CmdStatus)
	if err != nil {
		return nil, err
	}
	if !resp.Success {
		return nil, fmt.Errorf("status error: %s", resp.Error)
	}

	statusData, ok := resp.Data["status"]
	if !ok {
		return nil, fmt.Errorf("status not found in response")
	}
	statusJSON, _ := json.Marshal(statusData)
	var status protocol.Status
	if err := json.Unmarshal(statusJSON, &status); err != nil {
		return nil, fmt.Errorf("failed to parse status: %w", err)
	}
	return &status, nil
}

// GetMetrics gets the controller's running metrics snapshot as a generic
// map (the daemon replies with a flat map of selected controller.Metrics
// fields).
func (c *SocketClient) GetMetrics() (map[string]interface{}, error) {
	resp, err := c.SendCommand(protocol.CmdMetrics)
	if err != nil {
		return nil, err
	}
	if !resp.Success {
		return nil, fmt.Errorf("metrics error: %s", resp.Error)
	}
	return resp.Data, nil
}

// GetEvents gets recent connection-lifecycle events, newest first.
func (c *SocketClient) GetEvents(limit int) ([]storage.Event, error) {
	cmd := protocol.CmdEvents
	if limit > 0 {
		cmd = fmt.Sprintf("%s:%d", protocol.CmdEvents, limit)
	}

	resp, err := c.SendCommand(cmd)
	if err != nil {
		return nil, err
	}
	if !resp.Success {
		return nil, fmt.Errorf("events error: %s", resp.Error)
	}

	eventsData, ok := resp.Data["events"]
	if !ok {
		return []storage.Event{}, nil
	}
	eventsJSON, _ := json.Marshal(eventsData)
	var events []storage.Event
	if err := json.Unmarshal(eventsJSON, &events); err != nil {
		return nil, fmt.Errorf("failed to parse events: %w", err)
	}
	return events, nil
}

// Connect asks the daemon to bring up the WLAN control/CI-V/audio sessions.
func (c *SocketClient) Connect() error {
	resp, err := c.SendCommand(protocol.CmdConnect)
	if err != nil {
		return err
	}
	if !resp.Success {
		return fmt.Errorf("connect error: %s", resp.Error)
	}
	return nil
}

// Disconnect asks the daemon to tear down the current connection.
func (c *SocketClient) Disconnect(reason string) error {
	cmd := protocol.CmdDisconnect
	if reason != "" {
		cmd = fmt.Sprintf("%s:%s", protocol.CmdDisconnect, reason)
	}

	resp, err := c.SendCommand(cmd)
	if err != nil {
		return err
	}
	if !resp.Success {
		return fmt.Errorf("disconnect error: %s", resp.Error)
	}
	return nil
}

// Ping tests that the daemon's control socket is reachable.
func (c *SocketClient) Ping() error {
	resp, err := c.SendCommand(protocol.CmdPing)
	if err != nil {
		return err
	}
	if !resp.Success {
		return fmt.Errorf("ping error: %s", resp.Error)
	}
	return nil
}

// IsConnected reports whether the daemon answers on its control socket.
func (c *SocketClient) IsConnected() bool {
	return c.Ping() == nil
}
