// Command radio is an interactive FM receiver for the SI4703 tuner: tuning,
// seek, volume, live RDS station info and recording to Ogg/Opus.
package main

import (
	"fmt"
	"math"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/log"
	"github.com/gdamore/tcell"
	flag "github.com/spf13/pflag"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"

	"github.com/pridesync/radio/config"
	"github.com/pridesync/radio/recorder"
	"github.com/pridesync/radio/si4703"
)

func main() {
	configPath := flag.StringP("config", "c", "", "path to yaml configuration")
	frequency := flag.Float64P("frequency", "f", 0, "initial frequency in MHz (overrides config)")
	volume := flag.IntP("volume", "v", -1, "initial volume 0-15 (overrides config)")
	logLevel := flag.String("log-level", "", "log level: debug, info, warn, error (overrides config)")
	logFile := flag.String("log-file", "radio.log", "log file (the terminal is taken over by the UI)")
	flag.Parse()

	cfg := config.Default()
	if *configPath != "" {
		var err error
		if cfg, err = config.Load(*configPath); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	}
	if *frequency != 0 {
		cfg.Radio.DefaultFrequency = *frequency
	}
	if *volume >= 0 {
		cfg.Radio.Volume.Default = *volume
	}
	if *logLevel != "" {
		cfg.Logging.Level = *logLevel
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	level, err := log.ParseLevel(cfg.Logging.Level)
	if err != nil {
		fmt.Fprintln(os.Stderr, "invalid log level:", cfg.Logging.Level)
		os.Exit(1)
	}
	out, err := os.OpenFile(*logFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer out.Close()
	logger := log.NewWithOptions(out, log.Options{
		ReportTimestamp: true,
		Level:           level,
	})

	if err := run(cfg, logger); err != nil {
		logger.Error("fatal", "err", err)
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(cfg config.Config, logger *log.Logger) error {
	if _, err := host.Init(); err != nil {
		return fmt.Errorf("initialize peripherals: %w", err)
	}
	bus, err := i2creg.Open(cfg.Radio.I2CBus)
	if err != nil {
		return fmt.Errorf("open i2c bus %q: %w", cfg.Radio.I2CBus, err)
	}
	defer bus.Close()

	resetPin := gpioreg.ByName(cfg.Radio.ResetPin)
	if resetPin == nil {
		return fmt.Errorf("no such GPIO pin %q", cfg.Radio.ResetPin)
	}

	dev := si4703.New(bus, cfg.Radio.I2CAddress, resetPin, si4703.Options{
		SeekThreshold: cfg.Radio.SeekThreshold,
		DisableRDS:    !cfg.Radio.RDSEnabled,
		Logger:        logger,
	})
	if err := dev.Init(cfg.Radio.Volume.Default); err != nil {
		return err
	}
	defer dev.PowerDown()

	if err := dev.SetFrequency(cfg.Radio.DefaultFrequency); err != nil {
		return err
	}

	rec := recorder.New(cfg.Audio, logger)
	defer func() {
		if rec.Recording() {
			rec.Stop()
		}
	}()

	scr, err := tcell.NewScreen()
	if err != nil {
		return fmt.Errorf("open screen: %w", err)
	}
	if err := scr.Init(); err != nil {
		return fmt.Errorf("init screen: %w", err)
	}
	defer scr.Fini()
	scr.Clear()

	events := make(chan tcell.Event, 1)
	go func() {
		for {
			events <- scr.PollEvent()
		}
	}()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)

	band := cfg.Radio.FrequencyRange
	view := newUI(scr)
	muted := false
	filename := ""

	for {
		select {
		case sig := <-sigs:
			logger.Info("shutdown signal received", "signal", sig)
			return nil

		case ev := <-events:
			switch ev := ev.(type) {
			case *tcell.EventResize:
				scr.Clear()
				scr.Sync()
			case *tcell.EventKey:
				switch {
				case ev.Key() == tcell.KeyCtrlC || ev.Rune() == 'q':
					return nil
				case ev.Key() == tcell.KeyUp:
					retune(dev, logger, step(dev.Frequency(), 0.1, band))
				case ev.Key() == tcell.KeyDown:
					retune(dev, logger, step(dev.Frequency(), -0.1, band))
				case ev.Key() == tcell.KeyPgUp:
					if _, err := dev.SeekUp(); err != nil {
						logger.Warn("seek failed", "err", err)
					}
				case ev.Key() == tcell.KeyPgDn:
					if _, err := dev.SeekDown(); err != nil {
						logger.Warn("seek failed", "err", err)
					}
				case ev.Rune() == '+' || ev.Rune() == '=':
					setVolume(dev, logger, dev.Volume()+1, cfg.Radio.Volume)
				case ev.Rune() == '-':
					setVolume(dev, logger, dev.Volume()-1, cfg.Radio.Volume)
				case ev.Rune() == 'm':
					muted = !muted
					if err := dev.Mute(muted); err != nil {
						logger.Warn("mute failed", "err", err)
						muted = !muted
					}
				case ev.Rune() == 'r':
					if rec.Recording() {
						if _, err := rec.Stop(); err != nil {
							logger.Warn("stop recording failed", "err", err)
						}
						filename = ""
					} else {
						name, err := rec.Start(dev.Frequency())
						if err != nil {
							logger.Warn("start recording failed", "err", err)
						} else {
							filename = name
						}
					}
				}
			}

		case <-dev.Update:
			view.render(status{
				Frequency: dev.Frequency(),
				Volume:    dev.Volume(),
				Muted:     muted,
				RSSI:      dev.SignalStrength(),
				Stereo:    dev.Stereo(),
				Station:   dev.StationInfo(),
				Recording: rec.Recording(),
				Filename:  filename,
			})
		}
	}
}

// step moves along the 100 kHz grid, wrapping at the configured band edges.
func step(mhz, delta float64, band config.FrequencyRange) float64 {
	next := math.Round((mhz+delta)*10) / 10
	if next > band.Max {
		next = band.Min
	}
	if next < band.Min {
		next = band.Max
	}
	return next
}

func retune(dev *si4703.Device, logger *log.Logger, mhz float64) {
	if err := dev.SetFrequency(mhz); err != nil {
		logger.Warn("tune failed", "frequency", mhz, "err", err)
	}
}

func setVolume(dev *si4703.Device, logger *log.Logger, v int, bounds config.VolumeRange) {
	if v < bounds.Min || v > bounds.Max {
		return
	}
	if err := dev.SetVolume(v); err != nil {
		logger.Warn("volume failed", "err", err)
	}
}
