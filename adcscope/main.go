package main

import (
	"flag"
	"fmt"
	"log"
	"sync"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"

	"github.com/itohio/gosampler/pkg/config"
	"github.com/itohio/gosampler/pkg/device"
	"github.com/itohio/gosampler/pkg/monitor"
	"github.com/itohio/gosampler/pkg/scope"
)

func main() {
	var (
		portFlag   = flag.String("p", "", "Serial port override (e.g., COM3 or /dev/ttyACM0)")
		configFlag = flag.String("config", "config.yaml", "Configuration file path")
		mockFlag   = flag.Bool("mock", false, "Use simulated device instead of serial port")
	)
	flag.Parse()

	cfg, err := config.Load(*configFlag)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if *portFlag != "" {
		cfg.Serial.Port = *portFlag
	}

	application := app.NewWithID("com.itohio.gosampler")

	window := application.NewWindow("ADC Sampling Scope")
	window.Resize(fyne.NewSize(1200, 800))
	window.CenterOnScreen()

	state := &appState{
		cfg:        cfg,
		configPath: *configFlag,
		monitor:    monitor.New(cfg),
		window:     window,
		useMock:    *mockFlag,
	}

	toolbar := createToolbar(state)

	state.scopeWidget = scope.New(cfg)

	content := container.NewBorder(toolbar, nil, nil, nil, state.scopeWidget)

	window.SetContent(content)
	window.SetOnClosed(func() {
		closeCaptureChain(state.chain)
	})
	window.ShowAndRun()
}

// captureChain tracks the running components for graceful shutdown.
type captureChain struct {
	device  device.Device
	stop    chan struct{} // Closed to stop continuous triggering
	trigger chan struct{} // Closed when the trigger goroutine exits
	monitor chan struct{} // Closed when the monitor goroutine exits
}

// appState holds the application state.
type appState struct {
	cfg         *config.Config
	configPath  string
	device      device.Device
	monitor     *monitor.Monitor
	scopeWidget *scope.ScopeWidget
	window      fyne.Window
	connectBtn  *widget.Button
	acquireBtn  *widget.Button
	runCheck    *widget.Check
	statusLabel *widget.Label
	useMock     bool
	chain       *captureChain // nil if not connected

	// Throttling for scope updates
	lastUpdateTime time.Time
	updateMu       sync.Mutex
}

// createToolbar creates the toolbar with Connect, Settings, Acquire and continuous run controls.
func createToolbar(state *appState) fyne.CanvasObject {
	connectBtn := widget.NewButtonWithIcon("", theme.LoginIcon(), func() {
		handleConnect(state)
	})
	state.connectBtn = connectBtn

	settingsBtn := widget.NewButtonWithIcon("", theme.SettingsIcon(), func() {
		showSettingsDialog(state)
	})

	acquireBtn := widget.NewButtonWithIcon("Acquire", theme.MediaPlayIcon(), func() {
		handleAcquire(state)
	})
	acquireBtn.Disable()
	state.acquireBtn = acquireBtn

	runCheck := widget.NewCheck("Continuous", func(on bool) {
		handleContinuous(state, on)
	})
	runCheck.Disable()
	state.runCheck = runCheck

	state.statusLabel = widget.NewLabel("Disconnected")

	return container.NewBorder(
		nil,
		nil,
		container.NewHBox(connectBtn, settingsBtn, acquireBtn, runCheck),
		state.statusLabel,
		nil,
	)
}

// closeCaptureChain stops triggering, closes the device and waits for the monitor to drain.
func closeCaptureChain(chain *captureChain) {
	if chain == nil {
		return
	}

	if chain.stop != nil {
		close(chain.stop)
		chain.stop = nil
	}
	if chain.trigger != nil {
		<-chain.trigger
	}

	// Closing the device closes the captures channel, which ends the monitor goroutine.
	if chain.device != nil {
		chain.device.Close()
	}
	if chain.monitor != nil {
		<-chain.monitor
	}
}

// handleConnect handles the connect/disconnect button click.
func handleConnect(state *appState) {
	if state.device != nil && state.device.IsConnected() {
		closeCaptureChain(state.chain)
		state.chain = nil
		state.device = nil
		state.acquireBtn.Disable()
		state.runCheck.SetChecked(false)
		state.runCheck.Disable()
		state.statusLabel.SetText("Disconnected")
		log.Printf("Disconnected")
		return
	}

	var dev device.Device
	if state.useMock {
		dev = device.NewMock(state.cfg)
	} else {
		dev = device.New(state.cfg.Serial.Port, state.cfg.Serial.BaudRate, device.DefaultBufferSize)
	}

	if err := dev.Connect(); err != nil {
		if state.useMock {
			dialog.ShowError(fmt.Errorf("failed to start simulated device: %w", err), state.window)
		} else {
			dialog.ShowError(fmt.Errorf("failed to connect to %s: %w", state.cfg.Serial.Port, err), state.window)
		}
		return
	}
	state.device = dev
	if state.useMock {
		state.statusLabel.SetText("Simulated device")
	} else {
		state.statusLabel.SetText(state.cfg.Serial.Port)
	}
	log.Printf("Connected: %s", state.statusLabel.Text)

	state.acquireBtn.Enable()
	state.runCheck.Enable()

	// Fresh monitor per chain so callbacks are not registered twice.
	state.monitor = monitor.New(state.cfg)

	// Throttle updates to ~60 FPS
	const updateInterval = 16 * time.Millisecond
	state.monitor.OnUpdate(func(latest monitor.Entry, summary monitor.Summary) {
		state.updateMu.Lock()
		now := time.Now()
		if now.Sub(state.lastUpdateTime) < updateInterval {
			state.updateMu.Unlock()
			return
		}
		state.lastUpdateTime = now
		state.updateMu.Unlock()

		UpdateWidgetOnMainThread(func() {
			state.scopeWidget.UpdateData(latest, summary)
			state.statusLabel.SetText(statusText(latest))
		})
	})

	monitorDone := make(chan struct{})
	go func() {
		defer close(monitorDone)
		state.monitor.ProcessCaptures(dev.Captures())
	}()

	state.chain = &captureChain{
		device:  dev,
		monitor: monitorDone,
	}
}

// handleAcquire requests a single capture.
func handleAcquire(state *appState) {
	if state.device == nil || !state.device.IsConnected() {
		return
	}
	if err := state.device.Trigger(); err != nil {
		dialog.ShowError(fmt.Errorf("failed to trigger acquisition: %w", err), state.window)
	}
}

// handleContinuous starts or stops periodic triggering. The period leaves room for one
// full run plus transfer.
func handleContinuous(state *appState, on bool) {
	chain := state.chain
	if chain == nil {
		return
	}

	if !on {
		if chain.stop != nil {
			close(chain.stop)
			<-chain.trigger
			chain.stop, chain.trigger = nil, nil
		}
		state.acquireBtn.Enable()
		return
	}
	if chain.stop != nil {
		return
	}

	state.acquireBtn.Disable()
	stop := make(chan struct{})
	done := make(chan struct{})
	chain.stop, chain.trigger = stop, done

	period := max(2*state.cfg.Duration(), 100*time.Millisecond)
	dev := chain.device
	go func() {
		defer close(done)
		ticker := time.NewTicker(period)
		defer ticker.Stop()
		for {
			if err := dev.Trigger(); err != nil {
				log.Printf("Trigger failed: %v", err)
				return
			}
			select {
			case <-stop:
				return
			case <-ticker.C:
			}
		}
	}()
}

func statusText(e monitor.Entry) string {
	status := "ok"
	if e.Capture.TimedOut {
		status = "timeout"
	}
	return fmt.Sprintf("capture #%d: %d/%d samples (%s)", e.Capture.Seq, e.Capture.Filled(), e.Capture.Requested, status)
}
