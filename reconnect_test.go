package mq

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDefaultReconnectStrategyDefaults(t *testing.T) {
	s := NewDefaultReconnectStrategy(0, 0)
	require.Equal(t, 60, s.MaxAttempts)
	require.Equal(t, time.Second, s.Interval)
}

func TestDefaultReconnectStrategyDeniesSoftAndForcedDisconnect(t *testing.T) {
	s := NewDefaultReconnectStrategy(5, time.Millisecond)
	require.False(t, s.should(ErrSoftDisconnect))
	require.False(t, s.should(ErrForcedDisconnect))
}

func TestDefaultReconnectStrategyDeniesTerminalConnackStatuses(t *testing.T) {
	s := NewDefaultReconnectStrategy(5, time.Millisecond)
	require.False(t, s.should(&ConnectError{Status: StatusNotAuthorized}))
	require.False(t, s.should(&ConnectError{Status: StatusUnacceptableProtocolVersion}))
	require.False(t, s.should(&ConnectError{Status: StatusBadUsernameOrPassword}))
	require.True(t, s.should(&ConnectError{Status: StatusServerUnavailable}), "non-denied statuses remain retryable")
}

func TestDefaultReconnectStrategyStopsAfterMaxAttempts(t *testing.T) {
	s := NewDefaultReconnectStrategy(2, time.Millisecond)
	ctx := context.Background()

	require.True(t, s.should(ErrTransport))
	require.NoError(t, s.wait(ctx))

	require.True(t, s.should(ErrTransport))
	require.NoError(t, s.wait(ctx))

	require.False(t, s.should(ErrTransport), "exhausted after MaxAttempts waits")
}

func TestDefaultReconnectStrategyResetClearsAttemptCount(t *testing.T) {
	s := NewDefaultReconnectStrategy(1, time.Millisecond)
	require.NoError(t, s.wait(context.Background()))
	require.False(t, s.should(ErrTransport))

	s.reset()
	require.True(t, s.should(ErrTransport))
}

func TestDefaultReconnectStrategyWaitRespectsContextCancellation(t *testing.T) {
	s := NewDefaultReconnectStrategy(5, time.Hour)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := s.wait(ctx)
	require.ErrorIs(t, err, context.Canceled)
}
