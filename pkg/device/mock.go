package device

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/itohio/gosampler/pkg/acquire"
	"github.com/itohio/gosampler/pkg/config"
	"github.com/itohio/gosampler/pkg/hal"
	"github.com/itohio/gosampler/pkg/sample"
)

// Mock simulates the sampling firmware on the host. Every trigger runs a real
// acquisition with a ticker timer against a simulated sine generator.
type Mock struct {
	cfg *config.Config

	captures  chan sample.Capture
	triggers  chan struct{}
	mu        sync.RWMutex
	ctx       context.Context
	cancel    context.CancelFunc
	done      chan struct{}
	connected bool
	seq       int
}

// NewMock creates a simulated device. A nil cfg uses config.Default.
func NewMock(cfg *config.Config) *Mock {
	if cfg == nil {
		cfg = config.Default()
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Mock{
		cfg:      cfg,
		captures: make(chan sample.Capture, DefaultBufferSize),
		triggers: make(chan struct{}, 1),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// NewController builds an acquisition controller sampling a simulated sine generator
// described by cfg.
func NewController(cfg *config.Config) *acquire.Controller {
	clock := hal.NewSystemClock()
	src := hal.NewSineSource(clock, hal.SineParams{
		FrequencyHz: cfg.Signal.FrequencyHz,
		Vpp:         cfg.Signal.AmplitudeVpp,
		Offset:      cfg.Signal.DCOffset,
		VRef:        cfg.ADC.VRef,
		MaxCode:     cfg.ADC.MaxCode,
		NoiseLevel:  cfg.Mock.NoiseLevel,
		Seed:        cfg.Mock.Seed,
	})
	buf := sample.NewBuffer(cfg.Sampling.Samples, cfg.UseTimestamps())

	return acquire.New(src, clock, hal.NewTickerTimer(), buf, acquire.Options{
		PollInterval:   cfg.Sampling.PollInterval,
		CollectGarbage: cfg.CollectGarbage(),
	})
}

// Connect starts the simulated device.
func (m *Mock) Connect() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.connected {
		return fmt.Errorf("already connected")
	}
	if m.ctx.Err() != nil {
		return fmt.Errorf("device closed")
	}

	m.connected = true
	m.done = make(chan struct{})

	go func(done chan struct{}) {
		defer close(done)
		m.serve(NewController(m.cfg))
	}(m.done)

	return nil
}

// Close stops the simulated device, aborting a run in flight.
func (m *Mock) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.connected {
		return nil
	}

	m.cancel()
	<-m.done
	m.connected = false
	close(m.captures)

	return nil
}

// Captures returns the channel of completed captures.
func (m *Mock) Captures() <-chan sample.Capture {
	return m.captures
}

// Trigger requests one acquisition. A trigger while one is already pending is merged.
func (m *Mock) Trigger() error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if !m.connected {
		return fmt.Errorf("not connected")
	}

	select {
	case m.triggers <- struct{}{}:
	default:
	}
	return nil
}

// IsConnected returns whether the device is currently connected.
func (m *Mock) IsConnected() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.connected
}

func (m *Mock) serve(ctrl *acquire.Controller) {
	s := m.cfg.Sampling
	for {
		select {
		case <-m.ctx.Done():
			return
		case <-m.triggers:
		}

		_, err := ctrl.Run(m.ctx, s.RateHz, s.Samples, s.Timeout)
		switch {
		case err == nil, errors.Is(err, acquire.ErrTimeout):
		case m.ctx.Err() != nil:
			return
		default:
			log.Printf("Simulated acquisition failed: %v", err)
			continue
		}

		m.seq++
		cp := ctrl.Capture()
		cp.Seq = m.seq

		select {
		case m.captures <- cp:
		case <-m.ctx.Done():
			return
		default:
			log.Printf("Captures channel full, dropping capture %d", cp.Seq)
		}
	}
}
