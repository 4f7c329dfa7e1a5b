// Package transport wraps the raw UDP socket each session (Control, CI-V,
// Audio) binds to. It does no framing or interpretation of packet bytes —
// that is pkg/codec's job — it only moves datagrams and reports where they
// came from.
package transport

import (
	"fmt"
	"net"
	"sync"
)

// PacketHandler is invoked once per received datagram. b is only valid for
// the duration of the call — implementations that need to retain it must
// copy.
type PacketHandler func(b []byte, from *net.UDPAddr)

// Endpoint is a bound UDP socket that reads into a background goroutine and
// delivers datagrams to a handler, while also letting callers send to an
// arbitrary peer.
type Endpoint struct {
	conn *net.UDPConn

	sendMu sync.Mutex

	closeOnce sync.Once
	done      chan struct{}
	wg        sync.WaitGroup
}

// Listen opens a UDP socket bound to the given local port (0 picks an
// ephemeral port, used by the CI-V and Audio sessions before the radio
// tells the client what port it expects them on).
func Listen(localPort int) (*Endpoint, error) {
	conn, err := net.ListenUDP("udp", &net.UDPAddr{Port: localPort})
	if err != nil {
		return nil, fmt.Errorf("transport: failed to open udp socket on port %d: %w", localPort, err)
	}
	return &Endpoint{conn: conn, done: make(chan struct{})}, nil
}

// LocalPort returns the port the OS assigned this socket.
func (e *Endpoint) LocalPort() int {
	return e.conn.LocalAddr().(*net.UDPAddr).Port
}

// Serve starts the receive loop, calling handler for every datagram until
// Close is called. Serve blocks; call it in its own goroutine.
func (e *Endpoint) Serve(handler PacketHandler) {
	e.wg.Add(1)
	defer e.wg.Done()

	buf := make([]byte, 65536)
	for {
		n, from, err := e.conn.ReadFromUDP(buf)
		if err != nil {
			select {
			case <-e.done:
				return
			default:
			}
			// A transient read error (e.g. ICMP port-unreachable surfaced on
			// the next read) is not fatal to the endpoint; keep serving.
			continue
		}
		handler(buf[:n], from)
	}
}

// SendTo writes b to addr as a single datagram.
func (e *Endpoint) SendTo(b []byte, addr *net.UDPAddr) error {
	e.sendMu.Lock()
	defer e.sendMu.Unlock()
	_, err := e.conn.WriteToUDP(b, addr)
	if err != nil {
		return fmt.Errorf("transport: send failed: %w", err)
	}
	return nil
}

// Close stops the receive loop and releases the socket.
func (e *Endpoint) Close() error {
	var err error
	e.closeOnce.Do(func() {
		close(e.done)
		err = e.conn.Close()
		e.wg.Wait()
	})
	return err
}
