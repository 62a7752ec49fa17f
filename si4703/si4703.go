// Package si4703 drives the Silicon Labs SI4703 FM tuner over I2C and feeds
// its RDS register quadruples to an rds.Decoder.
package si4703

import (
	"errors"
	"fmt"
	"io"
	"math"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/i2c"

	"github.com/pridesync/radio/rds"
)

var (
	ErrChipNotFound = errors.New("si4703: chip not detected")
	ErrInvalidReg   = errors.New("si4703: invalid register")
	ErrInvalidFreq  = errors.New("si4703: frequency out of band")
	ErrInvalidVol   = errors.New("si4703: volume out of range")
	ErrTimeout      = errors.New("si4703: timeout")
	ErrNoStation    = errors.New("si4703: no station found")
)

// Register indices. The chip exposes sixteen 16-bit registers; reads start at
// STATUSRSSI and wrap, writes start at POWERCFG.
const (
	// registers 0..1 are read-only
	DEVICEID = iota
	CHIPID
	// registers 2..7 are read-write
	POWERCFG
	CHANNEL
	SYSCONFIG1
	SYSCONFIG2
	SYSCONFIG3
	TEST1
	TEST2
	BOOTCONFIG
	// registers a..f are read-only
	STATUSRSSI
	READCHAN
	RDSA
	RDSB
	RDSC
	RDSD
)

const (
	pwrDMute  uint16 = 0x4000 // a zero here means mute enabled
	pwrSeekUp uint16 = 0x0200
	pwrSeek   uint16 = 0x0100
	pwrEnable uint16 = 0x0001

	chanTune    uint16 = 0x8000
	chanMask    uint16 = 0x03ff
	sc1RDS      uint16 = 0x1000
	sc3VolExt   uint16 = 0x0100
	test1XOscEn uint16 = 0x8100

	statRDSR   uint16 = 0x8000
	statSTC    uint16 = 0x4000
	statSF     uint16 = 0x2000
	statStereo uint16 = 0x0100
	statRSSI   uint16 = 0x00ff
)

/*
From AN230:
> When using the polling method, it is best not to poll continuously.
> The data will appear in intervals of ~88 ms and the RDSR indicator will be
> available for at least 40 ms, so a polling rate of 40 ms or less should be
> sufficient.
*/
const defaultPollRate = 40 * time.Millisecond

const defaultSeekThreshold = 20

// Options configures a Device. The zero value gets sensible defaults.
type Options struct {
	SeekThreshold uint8
	PollRate      time.Duration
	DisableRDS    bool
	Logger        *log.Logger
}

// Device is an SI4703 behind an I2C bus and a GPIO reset line. All register
// access goes through a cached copy of the sixteen chip registers, refreshed
// by burst reads.
type Device struct {
	mu     sync.Mutex
	dev    i2c.Dev
	reset  gpio.PinOut
	logger *log.Logger

	regs      [16]uint16
	decoder   *rds.Decoder
	frequency float64
	volume    int
	seekTh    uint16
	powered   bool

	// Update receives a (non-blocking) tick after every polling cycle.
	Update chan struct{}

	pollRate time.Duration
	done     chan struct{}
}

// New wires up a device. Call Init before anything else.
func New(bus i2c.Bus, addr uint16, reset gpio.PinOut, opts Options) *Device {
	if opts.PollRate <= 0 {
		opts.PollRate = defaultPollRate
	}
	if opts.SeekThreshold == 0 {
		opts.SeekThreshold = defaultSeekThreshold
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	d := &Device{
		dev:      i2c.Dev{Bus: bus, Addr: addr},
		reset:    reset,
		logger:   opts.Logger,
		seekTh:   uint16(opts.SeekThreshold),
		pollRate: opts.PollRate,
		Update:   make(chan struct{}, 1),
		done:     make(chan struct{}),
	}
	if !opts.DisableRDS {
		d.decoder = rds.NewDecoder()
		d.decoder.SetLogger(opts.Logger)
	}
	return d
}

// Init resets the chip, verifies its identity, powers it up and applies the
// base configuration, then starts the polling goroutine.
func (d *Device) Init(volume int) error {
	// hardware reset sequencing: the chip latches its bus mode on the
	// rising edge of RST
	if err := d.reset.Out(gpio.Low); err != nil {
		return fmt.Errorf("si4703: reset low: %w", err)
	}
	time.Sleep(100 * time.Millisecond)
	if err := d.reset.Out(gpio.High); err != nil {
		return fmt.Errorf("si4703: reset high: %w", err)
	}
	time.Sleep(100 * time.Millisecond)

	if err := d.readRegisters(); err != nil {
		return err
	}
	if d.regs[DEVICEID]&0xff00 != 0x1200 {
		d.logger.Error("unexpected device id", "deviceid", fmt.Sprintf("%04X", d.regs[DEVICEID]))
		return ErrChipNotFound
	}
	d.logger.Debug("chip detected",
		"deviceid", fmt.Sprintf("%04X", d.regs[DEVICEID]),
		"chipid", fmt.Sprintf("%04X", d.regs[CHIPID]))

	// crystal oscillator first, then wait for it to stabilize
	if err := d.writeRegister(TEST1, test1XOscEn); err != nil {
		return err
	}
	time.Sleep(500 * time.Millisecond)

	if err := d.writeRegister(POWERCFG, pwrDMute|pwrEnable); err != nil {
		return err
	}
	time.Sleep(110 * time.Millisecond) // minimum powerup time

	sysconfig1 := uint16(0)
	if d.decoder != nil {
		sysconfig1 |= sc1RDS
	}
	if err := d.writeRegister(SYSCONFIG1, sysconfig1); err != nil {
		return err
	}
	if err := d.writeRegister(SYSCONFIG3, sc3VolExt); err != nil {
		return err
	}
	if err := d.SetVolume(volume); err != nil {
		return err
	}

	d.powered = true
	go d.poll()
	d.logger.Info("si4703 initialized", "rds", d.decoder != nil)
	return nil
}

// PowerDown stops polling and clears the chip's ENABLE bit.
func (d *Device) PowerDown() error {
	if !d.powered {
		return nil
	}
	close(d.done)
	d.powered = false
	if err := d.writeRegister(POWERCFG, d.reg(POWERCFG)&^pwrEnable); err != nil {
		return err
	}
	d.logger.Info("si4703 powered down")
	return nil
}

// SetFrequency tunes to the given frequency in MHz on the 100 kHz grid and
// resets the RDS state, since the accumulated fields belong to one station.
func (d *Device) SetFrequency(mhz float64) error {
	if mhz < 87.5 || mhz > 108.0 {
		return fmt.Errorf("%w: %.1f MHz", ErrInvalidFreq, mhz)
	}

	channel := channelForFrequency(mhz)
	reg := d.reg(CHANNEL)&^(chanMask|chanTune) | channel | chanTune
	if err := d.writeRegister(CHANNEL, reg); err != nil {
		return err
	}
	if err := d.waitForSTC(2 * time.Second); err != nil {
		return err
	}
	if err := d.writeRegister(CHANNEL, d.reg(CHANNEL)&^chanTune); err != nil {
		return err
	}

	d.mu.Lock()
	d.frequency = mhz
	if d.decoder != nil {
		d.decoder.Reset()
	}
	d.mu.Unlock()
	d.logger.Info("tuned", "frequency", fmt.Sprintf("%.1f MHz", mhz))
	return nil
}

// Frequency returns the last tuned frequency in MHz.
func (d *Device) Frequency() float64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.frequency
}

// TunedFrequency reads back the frequency the chip reports in READCHAN.
func (d *Device) TunedFrequency() float64 {
	return frequencyForChannel(d.reg(READCHAN) & chanMask)
}

// SeekUp seeks toward the top of the band and returns the frequency of the
// station it lands on.
func (d *Device) SeekUp() (float64, error) { return d.seek(true) }

// SeekDown seeks toward the bottom of the band.
func (d *Device) SeekDown() (float64, error) { return d.seek(false) }

func (d *Device) seek(up bool) (float64, error) {
	reg := d.reg(POWERCFG) | pwrSeek
	if up {
		reg |= pwrSeekUp
	} else {
		reg &^= pwrSeekUp
	}
	if err := d.writeRegister(POWERCFG, reg); err != nil {
		return 0, err
	}
	if err := d.waitForSTC(10 * time.Second); err != nil {
		return 0, err
	}
	failed := d.reg(STATUSRSSI)&statSF != 0
	if err := d.writeRegister(POWERCFG, d.reg(POWERCFG)&^pwrSeek); err != nil {
		return 0, err
	}
	if failed {
		return 0, ErrNoStation
	}

	mhz := d.TunedFrequency()
	d.mu.Lock()
	d.frequency = mhz
	if d.decoder != nil {
		d.decoder.Reset()
	}
	d.mu.Unlock()
	d.logger.Info("station found", "frequency", fmt.Sprintf("%.1f MHz", mhz))
	return mhz, nil
}

// SetVolume sets the audio volume, 0..15.
func (d *Device) SetVolume(volume int) error {
	if volume < 0 || volume > 15 {
		return fmt.Errorf("%w: %d", ErrInvalidVol, volume)
	}
	reg := d.reg(SYSCONFIG2)&0xf000 | d.seekTh<<8 | uint16(volume)
	if err := d.writeRegister(SYSCONFIG2, reg); err != nil {
		return err
	}
	d.mu.Lock()
	d.volume = volume
	d.mu.Unlock()
	d.logger.Debug("volume set", "volume", volume)
	return nil
}

// Volume returns the last set volume.
func (d *Device) Volume() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.volume
}

// Mute toggles the hardware mute. The DMUTE bit disables muting, so a zero
// means muted.
func (d *Device) Mute(on bool) error {
	reg := d.reg(POWERCFG)
	if on == (reg&pwrDMute == 0) {
		return nil
	}
	if on {
		reg &^= pwrDMute
	} else {
		reg |= pwrDMute
	}
	return d.writeRegister(POWERCFG, reg)
}

// SignalStrength returns the RSSI of the tuned channel, 0..75.
func (d *Device) SignalStrength() int {
	return int(d.reg(STATUSRSSI) & statRSSI)
}

// Stereo reports whether the chip is decoding a stereo pilot.
func (d *Device) Stereo() bool {
	return d.reg(STATUSRSSI)&statStereo != 0
}

// StationInfo returns the decoder's current snapshot. Without RDS it is
// always zero.
func (d *Device) StationInfo() rds.StationInfo {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.decoder == nil {
		return rds.StationInfo{}
	}
	return d.decoder.Info()
}

// poll refreshes the register cache on a fixed cadence and hands RDS
// quadruples to the decoder whenever the chip flags data ready. This is the
// only goroutine that touches the decoder.
func (d *Device) poll() {
	next := time.Now()
	for {
		next = next.Add(d.pollRate)
		select {
		case <-d.done:
			return
		case <-time.After(time.Until(next)):
		}

		if err := d.readRegisters(); err != nil {
			// one local retry for transient bus glitches
			if err = d.readRegisters(); err != nil {
				d.logger.Warn("register read failed", "err", err)
				continue
			}
		}

		d.mu.Lock()
		if d.decoder != nil && d.regs[STATUSRSSI]&statRDSR != 0 {
			d.decoder.Decode(d.regs[RDSA], d.regs[RDSB], d.regs[RDSC], d.regs[RDSD])
		}
		d.mu.Unlock()

		select {
		case d.Update <- struct{}{}:
		default:
		}
	}
}

// reg returns one register from the cache. The poll goroutine rewrites the
// cache concurrently, so every read outside the lock goes through here.
func (d *Device) reg(i int) uint16 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.regs[i]
}

// readRegisters refreshes the cached registers with one 32-byte burst read.
// The chip starts reads at STATUSRSSI (0x0A) and wraps.
func (d *Device) readRegisters() error {
	buf := make([]byte, 32)
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.dev.Tx(nil, buf); err != nil {
		return err
	}
	for i := 0; i < 16; i++ {
		d.regs[(i+10)%16] = uint16(buf[i*2])<<8 | uint16(buf[i*2+1])
	}
	return nil
}

// writeRegister updates one register. Writes start at POWERCFG (0x02), so
// the current values of registers 2..7 are sent with the target patched in.
func (d *Device) writeRegister(reg int, val uint16) error {
	if reg < POWERCFG || reg > TEST1 {
		return ErrInvalidReg
	}
	if err := d.readRegisters(); err != nil {
		return err
	}

	d.mu.Lock()
	buf := make([]byte, 12)
	for i := 0; i < 6; i++ {
		buf[i*2] = byte(d.regs[POWERCFG+i] >> 8)
		buf[i*2+1] = byte(d.regs[POWERCFG+i])
	}
	buf[(reg-POWERCFG)*2] = byte(val >> 8)
	buf[(reg-POWERCFG)*2+1] = byte(val)

	n, err := d.dev.Write(buf)
	d.mu.Unlock()
	if err != nil {
		return err
	}
	if n != len(buf) {
		return io.ErrShortWrite
	}
	return d.readRegisters()
}

// waitForSTC polls until the seek/tune complete flag comes up.
func (d *Device) waitForSTC(timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for {
		if err := d.readRegisters(); err != nil {
			return err
		}
		if d.reg(STATUSRSSI)&statSTC != 0 {
			return nil
		}
		if time.Now().After(deadline) {
			return ErrTimeout
		}
		time.Sleep(10 * time.Millisecond)
	}
}

// channelForFrequency maps MHz onto the chip's 100 kHz channel grid.
func channelForFrequency(mhz float64) uint16 {
	return uint16(math.Round((mhz - 87.5) / 0.1))
}

// frequencyForChannel is the inverse mapping.
func frequencyForChannel(channel uint16) float64 {
	return 87.5 + float64(channel)*0.1
}
