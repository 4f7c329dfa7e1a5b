package transport

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestEndpointSendReceive(t *testing.T) {
	a, err := Listen(0)
	require.NoError(t, err)
	defer a.Close()

	b, err := Listen(0)
	require.NoError(t, err)
	defer b.Close()

	received := make(chan []byte, 1)
	go b.Serve(func(pkt []byte, from *net.UDPAddr) {
		cp := make([]byte, len(pkt))
		copy(cp, pkt)
		received <- cp
	})

	dst := &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: b.LocalPort()}
	require.NoError(t, a.SendTo([]byte("hello"), dst))

	select {
	case got := <-received:
		require.Equal(t, "hello", string(got))
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for datagram")
	}
}

func TestEndpointLocalPortNonZero(t *testing.T) {
	e, err := Listen(0)
	require.NoError(t, err)
	defer e.Close()
	require.NotZero(t, e.LocalPort())
}

func TestEndpointCloseStopsServe(t *testing.T) {
	e, err := Listen(0)
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		e.Serve(func([]byte, *net.UDPAddr) {})
		close(done)
	}()

	require.NoError(t, e.Close())

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Serve did not return after Close")
	}
}
