// Package protocol defines the text-command/JSON-response wire format
// spoken over the daemon's control Unix socket (distinct from the Icom
// WLAN UDP protocol implemented in pkg/codec/pkg/session).
package protocol

import (
	"encoding/json"
	"strings"
)

// Command represents a command sent to the daemon over the control socket.
type Command struct {
	Type string                 `json:"type"`
	Args map[string]interface{} `json:"args,omitempty"`
}

// Response represents a response from the daemon.
type Response struct {
	Success bool                   `json:"success"`
	Data    map[string]interface{} `json:"data,omitempty"`
	Error   string                 `json:"error,omitempty"`
}

// Status mirrors the daemon's current connection/controller state.
type Status struct {
	Callsign  string  `json:"callsign"`
	RadioHost string  `json:"radio_host"`
	Phase     string  `json:"phase"`
	Connected bool    `json:"connected"`
	Uptime    string  `json:"uptime"`
	Version   string  `json:"version"`
	RxSNR     float32 `json:"rx_activity"`
}

// ParseCommand parses a text command line into a Command struct.
func ParseCommand(text string) (*Command, error) {
	text = strings.TrimSpace(text)
	parts := strings.SplitN(text, ":", 2)

	cmd := &Command{
		Type: strings.ToUpper(parts[0]),
		Args: make(map[string]interface{}),
	}

	if len(parts) > 1 {
		args := parts[1]

		switch cmd.Type {
		case CmdEvents:
			// EVENTS:50 or EVENTS:kind:reconnect_failed
			if strings.Contains(args, "kind:") {
				kindParts := strings.SplitN(args, "kind:", 2)
				if len(kindParts) > 1 {
					cmd.Args["kind"] = kindParts[1]
				}
			} else {
				cmd.Args["limit"] = args
			}

		case CmdDisconnect:
			// DISCONNECT:reason text
			cmd.Args["reason"] = args
		}
	}

	return cmd, nil
}

// String converts a Response to its JSON wire form.
func (r *Response) String() string {
	data, _ := json.Marshal(r)
	return string(data)
}

// NewSuccessResponse creates a successful response.
func NewSuccessResponse(data map[string]interface{}) *Response {
	return &Response{
		Success: true,
		Data:    data,
	}
}

// NewErrorResponse creates an error response.
func NewErrorResponse(err string) *Response {
	return &Response{
		Success: false,
		Error:   err,
	}
}

// Protocol commands.
const (
	CmdStatus     = "STATUS"
	CmdMetrics    = "METRICS"
	CmdEvents     = "EVENTS"
	CmdConnect    = "CONNECT"
	CmdDisconnect = "DISCONNECT"
	CmdPing       = "PING"
	CmdQuit       = "QUIT"
)
