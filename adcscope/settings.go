package main

import (
	"fmt"
	"strconv"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"

	"github.com/itohio/gosampler/pkg/device"
)

// showSettingsDialog displays the settings dialog. Changes apply on the next connect.
func showSettingsDialog(state *appState) {
	tabs := container.NewAppTabs(
		createSerialTab(state),
		createSignalTab(state),
		createSamplingTab(state),
		createMockTab(state),
	)

	content := container.NewBorder(nil, nil, nil, nil, tabs)
	content.Resize(fyne.NewSize(600, 400))

	d := dialog.NewCustom("Settings", "Close", content, state.window)
	d.Resize(fyne.NewSize(600, 400))
	d.Show()
}

// saveConfig validates and persists the configuration, reporting errors in a dialog.
func saveConfig(state *appState) {
	if err := state.cfg.Validate(); err != nil {
		dialog.ShowError(err, state.window)
		return
	}
	if err := state.cfg.Save(state.configPath); err != nil {
		dialog.ShowError(fmt.Errorf("failed to save config: %w", err), state.window)
	}
}

// createSerialTab creates the Serial configuration tab.
func createSerialTab(state *appState) *container.TabItem {
	portOptions := []string{}
	if ports, err := device.Ports(); err == nil {
		for _, port := range ports {
			portOptions = append(portOptions, port.Name)
		}
	}

	currentPort := state.cfg.Serial.Port
	found := false
	for _, opt := range portOptions {
		if opt == currentPort {
			found = true
			break
		}
	}
	if !found && currentPort != "" {
		portOptions = append(portOptions, currentPort)
	}

	portSelect := widget.NewSelect(portOptions, nil)
	if currentPort != "" {
		portSelect.SetSelected(currentPort)
	}

	baudEntry := widget.NewEntry()
	baudEntry.SetText(strconv.Itoa(state.cfg.Serial.BaudRate))

	form := &widget.Form{
		Items: []*widget.FormItem{
			{Text: "Serial Port", Widget: portSelect},
			{Text: "Baud Rate", Widget: baudEntry},
		},
		OnSubmit: func() {
			if portSelect.Selected != "" {
				state.cfg.Serial.Port = portSelect.Selected
			}
			if baud, err := strconv.Atoi(baudEntry.Text); err == nil {
				state.cfg.Serial.BaudRate = baud
			}
			saveConfig(state)
		},
	}

	return container.NewTabItem("Serial", form)
}

// createSignalTab creates the expected test signal tab.
func createSignalTab(state *appState) *container.TabItem {
	freqEntry := widget.NewEntry()
	freqEntry.SetText(fmt.Sprintf("%.1f", state.cfg.Signal.FrequencyHz))

	vppEntry := widget.NewEntry()
	vppEntry.SetText(fmt.Sprintf("%.3f", state.cfg.Signal.AmplitudeVpp))

	offsetEntry := widget.NewEntry()
	offsetEntry.SetText(fmt.Sprintf("%.3f", state.cfg.Signal.DCOffset))

	vrefEntry := widget.NewEntry()
	vrefEntry.SetText(fmt.Sprintf("%.2f", state.cfg.ADC.VRef))

	form := &widget.Form{
		Items: []*widget.FormItem{
			{Text: "Frequency (Hz)", Widget: freqEntry},
			{Text: "Amplitude (Vpp)", Widget: vppEntry},
			{Text: "DC Offset (V)", Widget: offsetEntry},
			{Text: "ADC VRef (V)", Widget: vrefEntry},
		},
		OnSubmit: func() {
			if f, err := strconv.ParseFloat(freqEntry.Text, 64); err == nil {
				state.cfg.Signal.FrequencyHz = f
			}
			if vpp, err := strconv.ParseFloat(vppEntry.Text, 64); err == nil {
				state.cfg.Signal.AmplitudeVpp = vpp
			}
			if off, err := strconv.ParseFloat(offsetEntry.Text, 64); err == nil {
				state.cfg.Signal.DCOffset = off
			}
			if vref, err := strconv.ParseFloat(vrefEntry.Text, 64); err == nil {
				state.cfg.ADC.VRef = vref
			}
			saveConfig(state)
		},
	}

	return container.NewTabItem("Signal", form)
}

// createSamplingTab creates the acquisition parameters tab.
func createSamplingTab(state *appState) *container.TabItem {
	rateEntry := widget.NewEntry()
	rateEntry.SetText(strconv.Itoa(state.cfg.Sampling.RateHz))

	samplesEntry := widget.NewEntry()
	samplesEntry.SetText(strconv.Itoa(state.cfg.Sampling.Samples))

	timeoutEntry := widget.NewEntry()
	timeoutEntry.SetText(state.cfg.Sampling.Timeout.String())

	timestampsCheck := widget.NewCheck("", nil)
	timestampsCheck.SetChecked(state.cfg.UseTimestamps())

	form := &widget.Form{
		Items: []*widget.FormItem{
			{Text: "Rate (Hz)", Widget: rateEntry},
			{Text: "Samples", Widget: samplesEntry},
			{Text: "Timeout", Widget: timeoutEntry},
			{Text: "Timestamps", Widget: timestampsCheck},
		},
		OnSubmit: func() {
			if rate, err := strconv.Atoi(rateEntry.Text); err == nil {
				state.cfg.Sampling.RateHz = rate
			}
			if n, err := strconv.Atoi(samplesEntry.Text); err == nil {
				state.cfg.Sampling.Samples = n
			}
			if d, err := time.ParseDuration(timeoutEntry.Text); err == nil {
				state.cfg.Sampling.Timeout = d
			}
			on := timestampsCheck.Checked
			state.cfg.Sampling.Timestamps = &on
			saveConfig(state)
		},
	}

	return container.NewTabItem("Sampling", form)
}

// createMockTab creates the simulated device tab.
func createMockTab(state *appState) *container.TabItem {
	noiseEntry := widget.NewEntry()
	noiseEntry.SetText(fmt.Sprintf("%.6f", state.cfg.Mock.NoiseLevel))

	seedEntry := widget.NewEntry()
	seedEntry.SetText(strconv.FormatInt(state.cfg.Mock.Seed, 10))

	form := &widget.Form{
		Items: []*widget.FormItem{
			{Text: "Noise Level (V)", Widget: noiseEntry},
			{Text: "Seed", Widget: seedEntry},
		},
		OnSubmit: func() {
			if nl, err := strconv.ParseFloat(noiseEntry.Text, 64); err == nil {
				state.cfg.Mock.NoiseLevel = nl
			}
			if seed, err := strconv.ParseInt(seedEntry.Text, 10, 64); err == nil {
				state.cfg.Mock.Seed = seed
			}
			saveConfig(state)
		},
	}

	return container.NewTabItem("Mock", form)
}
