//go:build tinygo

//go:generate tinygo flash -target=xiao

package main

import (
	"context"
	"errors"
	"machine"
	"time"

	"github.com/itohio/gosampler/pkg/acquire"
	"github.com/itohio/gosampler/pkg/hal"
	"github.com/itohio/gosampler/pkg/jitter"
	"github.com/itohio/gosampler/pkg/sample"
)

// Commands, one per line:
//
//	r  acquire with timestamps and dump the capture
//	b  acquire without timestamps (basic) and dump the capture
//
// Dump format is documented in pkg/device.

var (
	serial = machine.Serial

	extended *acquire.Controller
	basic    *acquire.Controller

	// Serial buffer for reading lines
	serialBuffer [16]byte
	serialPos    int
)

// adc adapts machine.ADC to hal.ADC.
type adc struct {
	machine.ADC
}

func (a adc) ReadRaw() uint16 {
	return a.Get()
}

func main() {
	PIN_ADC.Configure(machine.PinConfig{Mode: machine.PinInput})

	input := adc{machine.ADC{Pin: PIN_ADC}}
	input.Configure(machine.ADCConfig{
		Reference:  ADC_REFERENCE_MV,
		Resolution: ADC_RESOLUTION,
	})

	serial.Configure(machine.UARTConfig{
		BaudRate: UART_BAUD_RATE,
	})

	clock := hal.NewSystemClock()
	opts := acquire.Options{PollInterval: POLL_INTERVAL, CollectGarbage: true}

	// Buffers are allocated once here and reused for every run.
	extended = acquire.New(input, clock, hal.NewTickerTimer(), sample.NewBuffer(NUM_SAMPLES, true), opts)
	basic = acquire.New(input, clock, hal.NewTickerTimer(), sample.NewBuffer(NUM_SAMPLES, false), opts)

	println("# gosampler ready")

	for {
		if cmd, ok := readCommand(); ok {
			switch cmd {
			case 'r':
				runAndDump(extended, true)
			case 'b':
				runAndDump(basic, false)
			default:
				println("# unknown command")
			}
		}
		time.Sleep(POLL_INTERVAL)
	}
}

func runAndDump(c *acquire.Controller, timestamps bool) {
	n, err := c.Run(context.Background(), SAMPLE_RATE_HZ, NUM_SAMPLES, RUN_TIMEOUT)
	timedOut := errors.Is(err, acquire.ErrTimeout)
	if err != nil && !timedOut {
		println("# run failed:", err.Error())
		return
	}

	mode := "b"
	if timestamps {
		mode = "t"
	}
	print("B,", SAMPLE_RATE_HZ, ",", NUM_SAMPLES, ",", jitter.IdealInterval(SAMPLE_RATE_HZ), ",", mode, "\n")

	codes := c.Codes()
	stamps := c.Timestamps()
	for i := 0; i < n; i++ {
		var us uint32
		if stamps != nil {
			us = stamps[i]
		}
		print("S,", i, ",", us, ",", codes[i], "\n")
	}

	status := "ok"
	if timedOut {
		status = "timeout"
	}
	print("E,", n, ",", status, "\n")

	if stamps != nil {
		q := jitter.QuickSummary(c.Jitter(), stamps)
		// Hundredths of a microsecond, avoids float formatting on the MCU.
		print("# jitter mean=", int32(q.Mean*100), "e-2us rms=", int32(q.RMS*100), "e-2us max=", q.Max, "us min=", q.Min, "us\n")
	}
}

// readCommand returns the first character of a completed command line.
func readCommand() (byte, bool) {
	for serial.Buffered() > 0 {
		data, err := serial.ReadByte()
		if err != nil {
			break
		}

		if data == '\n' || data == '\r' {
			n := serialPos
			serialPos = 0
			if n == 1 {
				return serialBuffer[0], true
			}
			continue
		}

		// Ignore whitespace
		if data == ' ' || data == '\t' {
			continue
		}

		if serialPos < len(serialBuffer) {
			serialBuffer[serialPos] = data
			serialPos++
		}
	}
	return 0, false
}
