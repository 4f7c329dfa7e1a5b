package civ

import (
	"net"
	"testing"

	"github.com/icomwland/icomwland/pkg/codec"
	"github.com/icomwland/icomwland/pkg/session"
	"github.com/icomwland/icomwland/pkg/transport"
	"github.com/stretchr/testify/require"
)

func inlineEnqueue(fn func()) { fn() }

func newTestSubsession(t *testing.T) (*Subsession, *transport.Endpoint) {
	t.Helper()
	clientEP, err := transport.Listen(0)
	require.NoError(t, err)
	t.Cleanup(func() { clientEP.Close() })

	serverEP, err := transport.Listen(0)
	require.NoError(t, err)
	t.Cleanup(func() { serverEP.Close() })

	sess := session.New("civ", clientEP, inlineEnqueue)
	sess.SetRemote(&net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: serverEP.LocalPort()})
	return New(sess, inlineEnqueue), serverEP
}

func TestSubsessionSendCivNumbersWithOwnCounter(t *testing.T) {
	c, serverEP := newTestSubsession(t)
	received := make(chan []byte, 2)
	go serverEP.Serve(func(b []byte, from *net.UDPAddr) {
		cp := make([]byte, len(b))
		copy(cp, b)
		received <- cp
	})

	require.NoError(t, c.SendCiv([]byte{0x01}))
	require.NoError(t, c.SendCiv([]byte{0x02}))

	first, err := codec.ParseCiv(<-received)
	require.NoError(t, err)
	second, err := codec.ParseCiv(<-received)
	require.NoError(t, err)
	require.Equal(t, uint16(0), first.CivSeq)
	require.Equal(t, uint16(1), second.CivSeq)
}

func TestSubsessionOpenClose(t *testing.T) {
	c, serverEP := newTestSubsession(t)
	received := make(chan []byte, 2)
	go serverEP.Serve(func(b []byte, from *net.UDPAddr) {
		cp := make([]byte, len(b))
		copy(cp, b)
		received <- cp
	})

	require.NoError(t, c.Open())
	open, err := codec.ParseOpenClose(<-received)
	require.NoError(t, err)
	require.True(t, open.Open)

	require.NoError(t, c.Close())
	closed, err := codec.ParseOpenClose(<-received)
	require.NoError(t, err)
	require.False(t, closed.Open)
}
