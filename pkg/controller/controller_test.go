package controller

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// --- Property 8: Connect is idempotent -------------------------------------

func TestBeginConnect_WhileConnected_ReturnsImmediately(t *testing.T) {
	c := &Controller{phase: PhaseConnected}
	result := make(chan error, 1)
	c.beginConnect(result)

	select {
	case err := <-result:
		require.NoError(t, err)
	default:
		t.Fatal("beginConnect while CONNECTED must resolve synchronously")
	}
}

func TestBeginConnect_WhileConnecting_QueuesWaiter(t *testing.T) {
	attempt := &connectAttempt{sessionID: 1}
	c := &Controller{phase: PhaseConnecting, attempt: attempt}
	result := make(chan error, 1)
	c.beginConnect(result)

	require.Len(t, attempt.waiters, 1)
	require.Equal(t, result, attempt.waiters[0])
	select {
	case <-result:
		t.Fatal("a queued waiter must not resolve until the in-flight attempt does")
	default:
	}
}

func TestBeginConnect_WhileReconnecting_QueuesWaiter(t *testing.T) {
	attempt := &connectAttempt{sessionID: 7}
	c := &Controller{phase: PhaseReconnecting, attempt: attempt}
	result := make(chan error, 1)
	c.beginConnect(result)

	require.Len(t, attempt.waiters, 1)
}

func TestBeginConnect_WhileDisconnecting_Fails(t *testing.T) {
	c := &Controller{phase: PhaseDisconnecting}
	result := make(chan error, 1)
	c.beginConnect(result)

	select {
	case err := <-result:
		require.Error(t, err)
	default:
		t.Fatal("beginConnect while DISCONNECTING must resolve synchronously with an error")
	}
}

// --- Property 9: Disconnect is idempotent -----------------------------------

func TestDoDisconnect_WhileIdle_NoOp(t *testing.T) {
	c := &Controller{phase: PhaseIdle}
	require.NoError(t, c.doDisconnect("unused", true))
	require.Equal(t, PhaseIdle, c.phase)
}

func TestDoDisconnect_WhileDisconnecting_NoOp(t *testing.T) {
	c := &Controller{phase: PhaseDisconnecting}
	require.NoError(t, c.doDisconnect("unused", true))
	require.Equal(t, PhaseDisconnecting, c.phase)
}

func TestDoDisconnect_WhileConnecting_AbortsAttempt(t *testing.T) {
	var gotReason string
	abort := newAbortHandlers()
	abort.register(3, func(reason string) { gotReason = reason })

	c := &Controller{phase: PhaseConnecting, attempt: &connectAttempt{sessionID: 3}, abort: abort}
	require.NoError(t, c.doDisconnect("shutting down", false))
	require.Equal(t, "shutting down", gotReason)
	require.Equal(t, PhaseConnecting, c.phase) // the abort handler, not doDisconnect, moves the phase
}

// --- Integration: full bring-up against a mock radio, then idempotent Connect/Disconnect ---

func TestControllerConnectDisconnectFullCycle(t *testing.T) {
	radio := newMockRadio(t)
	defer radio.close()

	ctrl, err := New(radio.testTarget(), fastMonitor())
	require.NoError(t, err)
	defer ctrl.Shutdown()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, ctrl.Connect(ctx))
	require.Equal(t, PhaseConnected, ctrl.Phase())
	require.True(t, radio.waitSubsessionsReady(2*time.Second))

	// Property 8: a second Connect while already CONNECTED must return
	// immediately without starting a new bring-up attempt.
	ctx2, cancel2 := context.WithTimeout(context.Background(), time.Second)
	defer cancel2()
	require.NoError(t, ctrl.Connect(ctx2))
	require.Equal(t, PhaseConnected, ctrl.Phase())

	require.NoError(t, ctrl.Disconnect("test done", false))
	require.Equal(t, PhaseIdle, ctrl.Phase())

	// Property 9: a second Disconnect while already IDLE is a no-op.
	require.NoError(t, ctrl.Disconnect("test done again", false))
	require.Equal(t, PhaseIdle, ctrl.Phase())
}

// --- Error event: transport send failures surface on Events().Error ---------

func TestErrorEventSurfacesTransportFailure(t *testing.T) {
	radio := newMockRadio(t)
	defer radio.close()

	ctrl, err := New(radio.testTarget(), fastMonitor())
	require.NoError(t, err)
	defer ctrl.Shutdown()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, ctrl.Connect(ctx))
	require.True(t, radio.waitSubsessionsReady(2*time.Second))

	events := ctrl.Events()
	require.NoError(t, ctrl.call(func() error {
		ctrl.civSess.Disable()
		return nil
	}))
	require.Error(t, ctrl.civSub.Open())

	select {
	case ev := <-events.Error:
		require.Error(t, ev.Err)
	case <-time.After(time.Second):
		t.Fatal("expected an ErrorEvent after sending on a disabled session")
	}
}

func TestControllerLoginRejectedFailsConnect(t *testing.T) {
	radio := newMockRadio(t)
	defer radio.close()
	radio.loginErrCode = 1

	ctrl, err := New(radio.testTarget(), fastMonitor())
	require.NoError(t, err)
	defer ctrl.Shutdown()

	events := ctrl.Events()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err = ctrl.Connect(ctx)
	require.Error(t, err)
	require.Equal(t, PhaseIdle, ctrl.Phase())

	select {
	case ev := <-events.Login:
		require.False(t, ev.OK)
		require.EqualValues(t, 1, ev.ErrorCode)
	case <-time.After(time.Second):
		t.Fatal("expected a login event")
	}
}
