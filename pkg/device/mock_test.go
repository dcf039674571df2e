package device

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/itohio/gosampler/pkg/config"
	"github.com/itohio/gosampler/pkg/jitter"
)

func mockConfig() *config.Config {
	cfg := config.Default()
	cfg.Sampling.RateHz = 1000
	cfg.Sampling.Samples = 40
	cfg.Sampling.Timeout = 5 * time.Second
	cfg.Signal.FrequencyHz = 50
	return cfg
}

func TestMock_Capture(t *testing.T) {
	cfg := mockConfig()
	m := NewMock(cfg)
	require.NoError(t, m.Connect())
	defer m.Close()

	assert.True(t, m.IsConnected())
	assert.Error(t, m.Connect())
	require.NoError(t, m.Trigger())

	select {
	case cp := <-m.Captures():
		assert.Equal(t, 1, cp.Seq)
		assert.Equal(t, 1000, cp.RateHz)
		assert.Equal(t, 40, cp.Requested)
		assert.Equal(t, jitter.IdealInterval(1000), cp.IdealUS)
		assert.False(t, cp.TimedOut)
		assert.Len(t, cp.Codes, 40)
		require.Len(t, cp.Stamps, 40)
		// 39 intervals of about 1 ms each.
		assert.GreaterOrEqual(t, cp.Stamps[39]-cp.Stamps[0], uint32(39*500))
	case <-time.After(5 * time.Second):
		t.Fatal("no capture from mock device")
	}

	require.NoError(t, m.Trigger())
	select {
	case cp := <-m.Captures():
		assert.Equal(t, 2, cp.Seq)
	case <-time.After(5 * time.Second):
		t.Fatal("no second capture from mock device")
	}
}

func TestMock_Basic(t *testing.T) {
	cfg := mockConfig()
	off := false
	cfg.Sampling.Timestamps = &off

	m := NewMock(cfg)
	require.NoError(t, m.Connect())
	defer m.Close()
	require.NoError(t, m.Trigger())

	select {
	case cp := <-m.Captures():
		assert.Len(t, cp.Codes, 40)
		assert.Nil(t, cp.Stamps)
	case <-time.After(5 * time.Second):
		t.Fatal("no capture from mock device")
	}
}

func TestMock_NotConnected(t *testing.T) {
	m := NewMock(nil)
	assert.False(t, m.IsConnected())
	assert.Error(t, m.Trigger())
	assert.NoError(t, m.Close())
}
