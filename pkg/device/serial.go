package device

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log"
	"strings"
	"sync"

	"go.bug.st/serial"

	"github.com/itohio/gosampler/pkg/sample"
)

const (
	// DefaultBaudRate is the firmware console baud rate.
	DefaultBaudRate = 115200
	// DefaultBufferSize is the default size for the captures channel buffer.
	DefaultBufferSize = 4
)

// Port represents a serial port.
type Port struct {
	Name        string
	Description string
}

// Serial is a connection to the sampling firmware.
type Serial struct {
	port     string
	baudRate int
	bufSize  int

	conn      serial.Port
	captures  chan sample.Capture
	mu        sync.RWMutex
	ctx       context.Context
	cancel    context.CancelFunc
	done      chan struct{}
	connected bool
}

// New creates a serial device for the given port.
func New(port string, baudRate int, bufSize int) *Serial {
	if baudRate == 0 {
		baudRate = DefaultBaudRate
	}
	if bufSize == 0 {
		bufSize = DefaultBufferSize
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Serial{
		port:     port,
		baudRate: baudRate,
		bufSize:  bufSize,
		captures: make(chan sample.Capture, bufSize),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Ports returns the names of the available serial ports.
func Ports() ([]Port, error) {
	ports, err := serial.GetPortsList()
	if err != nil {
		return nil, fmt.Errorf("failed to list serial ports: %w", err)
	}

	result := make([]Port, 0, len(ports))
	for _, name := range ports {
		result = append(result, Port{Name: name, Description: name})
	}
	return result, nil
}

// Connect opens the serial port and starts assembling captures.
func (d *Serial) Connect() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.connected {
		return fmt.Errorf("already connected")
	}
	if d.ctx.Err() != nil {
		return fmt.Errorf("device closed")
	}

	port, err := serial.Open(d.port, &serial.Mode{BaudRate: d.baudRate})
	if err != nil {
		return fmt.Errorf("failed to open serial port %s: %w", d.port, err)
	}

	d.conn = port
	d.connected = true
	d.done = make(chan struct{})

	go func(done chan struct{}) {
		defer close(done)
		d.readCaptures(port)
	}(d.done)

	return nil
}

// Close closes the port and the captures channel.
func (d *Serial) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.connected {
		return nil
	}

	d.cancel()

	if err := d.conn.Close(); err != nil {
		log.Printf("Error closing serial port: %v", err)
	}
	d.conn = nil
	d.connected = false

	// The reader exits once the port is closed; it must be gone before the channel closes.
	<-d.done
	close(d.captures)

	return nil
}

// Captures returns the channel of completed captures.
func (d *Serial) Captures() <-chan sample.Capture {
	return d.captures
}

// Trigger asks the firmware for one acquisition.
func (d *Serial) Trigger() error {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if !d.connected {
		return fmt.Errorf("not connected")
	}

	if _, err := d.conn.Write([]byte(cmdTrigger)); err != nil {
		return fmt.Errorf("failed to send trigger: %w", err)
	}
	return nil
}

// IsConnected returns whether the device is currently connected.
func (d *Serial) IsConnected() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.connected
}

func (d *Serial) readCaptures(r io.Reader) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("Panic in readCaptures: %v", r)
		}
	}()

	readCaptures(d.ctx, r, d.captures)
}

// readCaptures parses protocol lines from r and delivers captures to out until r ends
// or ctx is canceled. Captures are dropped when out is full.
func readCaptures(ctx context.Context, r io.Reader, out chan<- sample.Capture) {
	var p parser

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return
		}

		line := strings.TrimSpace(scanner.Text())
		cp, ok, err := p.feed(line)
		if err != nil {
			log.Printf("Failed to parse line '%s': %v", line, err)
			continue
		}
		if !ok {
			continue
		}

		select {
		case out <- cp:
		case <-ctx.Done():
			return
		default:
			log.Printf("Captures channel full, dropping capture %d", cp.Seq)
		}
	}

	if err := scanner.Err(); err != nil && ctx.Err() == nil {
		log.Printf("Error reading from serial port: %v", err)
	}
}
