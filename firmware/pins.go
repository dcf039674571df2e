//go:build tinygo

package main

import (
	"machine"
	"time"
)

const (
	// Sampling configuration
	SAMPLE_RATE_HZ = 2000 // Timer frequency, 10x the 200 Hz test signal
	NUM_SAMPLES    = 512  // Samples per acquisition
	RUN_TIMEOUT    = 5 * time.Second
	POLL_INTERVAL  = time.Millisecond

	// ADC configuration
	ADC_REFERENCE_MV = 3300 // Reference voltage in millivolts (3.3V)
	ADC_RESOLUTION   = 12   // Hardware resolution; Get() scales to 16 bits (0-65535)

	// ADC pin wired to the signal generator
	PIN_ADC = machine.A0

	// Serial configuration
	// A dump is ~512 lines of "S,511,4294967295,65535\n" (~24 bytes) = ~12 KB.
	// At 115200 baud (11,520 bytes/s) that takes about one second.
	UART_BAUD_RATE = 115200
)
