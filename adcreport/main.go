package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"time"

	"github.com/itohio/gosampler/pkg/acquire"
	"github.com/itohio/gosampler/pkg/config"
	"github.com/itohio/gosampler/pkg/device"
	"github.com/itohio/gosampler/pkg/monitor"
	"github.com/itohio/gosampler/pkg/report"
	"github.com/itohio/gosampler/pkg/sample"
)

// transferMargin is added to the acquisition timeout while waiting for a capture dump
// from the firmware.
const transferMargin = 10 * time.Second

type options struct {
	useDevice bool // capture on the firmware instead of the local simulation
	partial   bool // analyze partial data after a timeout
}

func main() {
	var (
		configFlag  = flag.String("config", "config.yaml", "Configuration file path")
		portFlag    = flag.String("p", "", "Serial port override; implies -device")
		deviceFlag  = flag.Bool("device", false, "Capture on the firmware over serial instead of simulating locally")
		basicFlag   = flag.Bool("basic", false, "Sample without timestamps (no jitter analysis)")
		partialFlag = flag.Bool("partial", false, "Analyze and report partial data after a timeout")
		rateFlag    = flag.Int("rate", 0, "Sample rate override (Hz)")
		samplesFlag = flag.Int("samples", 0, "Sample count override")
		listFlag    = flag.Bool("list", false, "List serial ports and exit")
	)
	flag.Parse()

	if *listFlag {
		ports, err := device.Ports()
		if err != nil {
			log.Fatalf("Failed to list ports: %v", err)
		}
		for _, p := range ports {
			fmt.Println(p.Name)
		}
		return
	}

	cfg, err := config.Load(*configFlag)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if *portFlag != "" {
		cfg.Serial.Port = *portFlag
	}
	if *basicFlag {
		off := false
		cfg.Sampling.Timestamps = &off
	}
	if *rateFlag > 0 {
		cfg.Sampling.RateHz = *rateFlag
	}
	if *samplesFlag > 0 {
		cfg.Sampling.Samples = *samplesFlag
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	opts := options{
		useDevice: *deviceFlag || *portFlag != "",
		partial:   *partialFlag,
	}
	if err := run(ctx, cfg, opts, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}

// run acquires one capture, prints the console report and persists the file report.
// A persistence failure is only a warning. An acquisition timeout is an error even when
// partial data was reported.
func run(ctx context.Context, cfg *config.Config, opts options, stdout io.Writer) error {
	fmt.Fprintf(stdout, "Acquiring %d samples at %d Hz...\n", cfg.Sampling.Samples, cfg.Sampling.RateHz)

	var (
		cp     sample.Capture
		acqErr error
	)
	if opts.useDevice {
		dev := device.New(cfg.Serial.Port, cfg.Serial.BaudRate, device.DefaultBufferSize)
		cp, acqErr = acquireDevice(ctx, dev, cfg.Sampling.Timeout+transferMargin)
	} else {
		cp, acqErr = acquireLocal(ctx, cfg)
	}

	if acqErr != nil && (!errors.Is(acqErr, acquire.ErrTimeout) || !opts.partial || cp.Filled() == 0) {
		return fmt.Errorf("acquisition failed: %w", acqErr)
	}

	res := monitor.Analyze(cfg, &cp)
	rep := report.NewRun(cfg, &cp, res)
	if err := report.Console(stdout, &rep); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}

	if path, err := report.Persist(&rep, cfg.Report); err != nil {
		log.Printf("Warning: %v", err)
	} else {
		fmt.Fprintf(stdout, "\n● Analysis complete. See '%s' for details.\n", path)
	}

	if acqErr != nil {
		return fmt.Errorf("acquisition incomplete: %w", acqErr)
	}
	return nil
}

// acquireLocal runs the controller on the host against the simulated signal.
func acquireLocal(ctx context.Context, cfg *config.Config) (sample.Capture, error) {
	ctrl := device.NewController(cfg)
	_, err := ctrl.Run(ctx, cfg.Sampling.RateHz, cfg.Sampling.Samples, cfg.Sampling.Timeout)
	if err != nil && !errors.Is(err, acquire.ErrTimeout) {
		return sample.Capture{}, err
	}

	cp := ctrl.Capture()
	cp.Seq = 1
	return cp, err
}

// acquireDevice triggers one capture on dev and waits up to wait for it.
func acquireDevice(ctx context.Context, dev device.Device, wait time.Duration) (sample.Capture, error) {
	if err := dev.Connect(); err != nil {
		return sample.Capture{}, err
	}
	defer dev.Close()

	if err := dev.Trigger(); err != nil {
		return sample.Capture{}, err
	}

	timer := time.NewTimer(wait)
	defer timer.Stop()

	select {
	case cp, ok := <-dev.Captures():
		if !ok {
			return sample.Capture{}, fmt.Errorf("device closed before delivering a capture")
		}
		if cp.TimedOut {
			return cp, &acquire.TimeoutError{Filled: cp.Filled(), Requested: cp.Requested, Timeout: wait - transferMargin}
		}
		return cp, nil
	case <-timer.C:
		return sample.Capture{}, fmt.Errorf("no capture from device within %v", wait)
	case <-ctx.Done():
		return sample.Capture{}, ctx.Err()
	}
}
