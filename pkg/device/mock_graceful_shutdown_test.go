package device

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestMock_GracefulShutdown tests that Close aborts a long run in flight and closes
// the captures channel.
func TestMock_GracefulShutdown(t *testing.T) {
	cfg := mockConfig()
	cfg.Sampling.RateHz = 10
	cfg.Sampling.Samples = 1000 // 100 s at 10 Hz

	m := NewMock(cfg)
	require.NoError(t, m.Connect())
	require.NoError(t, m.Trigger())

	captures := m.Captures()
	time.Sleep(50 * time.Millisecond)

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		m.Close()
	}()

	select {
	case <-closed:
	case <-time.After(5 * time.Second):
		t.Fatal("Close did not return within timeout")
	}

	_, ok := <-captures
	assert.False(t, ok, "Channel should be closed")
	assert.False(t, m.IsConnected())
	assert.Error(t, m.Connect())
}
