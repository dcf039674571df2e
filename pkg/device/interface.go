package device

import "github.com/itohio/gosampler/pkg/sample"

// Device defines the interface for acquisition devices (real or mocked).
type Device interface {
	Connect() error
	Close() error
	Captures() <-chan sample.Capture
	Trigger() error
	IsConnected() bool
}

// Ensure Serial implements Device.
var _ Device = (*Serial)(nil)

// Ensure Mock implements Device.
var _ Device = (*Mock)(nil)
