// Package recorder captures the radio's audio output from a capture device
// and writes it to a compressed Ogg/Opus file.
//
// The recorder is independent of tuning and RDS; it only takes the current
// frequency to label the output file.
package recorder

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gordonklaus/portaudio"
	opus "gopkg.in/hraban/opus.v2"

	"github.com/pridesync/radio/config"
)

var (
	ErrRecording    = errors.New("recorder: recording already active")
	ErrNotRecording = errors.New("recorder: no active recording")
)

// Opus frames are 20ms; granule positions count 48 kHz samples regardless of
// the capture rate.
const (
	framesPerSecond = 50
	granulePerFrame = 48000 / framesPerSecond
	maxPacketBytes  = 4000
	packetsPerPage  = framesPerSecond // one page per second of audio
	frameQueueDepth = 16
)

// Recorder captures PCM from the default input device, encodes it with Opus
// and streams Ogg pages to disk.
type Recorder struct {
	cfg    config.Audio
	logger *log.Logger

	mu        sync.Mutex
	recording bool
	filename  string
	stream    *portaudio.Stream
	file      *os.File
	frames    chan []int16
	stop      chan struct{}
	wg        sync.WaitGroup
}

// New returns a recorder. Nothing is opened until Start.
func New(cfg config.Audio, logger *log.Logger) *Recorder {
	if logger == nil {
		logger = log.Default()
	}
	return &Recorder{cfg: cfg, logger: logger}
}

// Recording reports whether a recording is active.
func (r *Recorder) Recording() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.recording
}

// Start opens the capture stream and begins writing a new file, returning
// its name. frequencyMHz labels the file; pass 0 when not tuned.
func (r *Recorder) Start(frequencyMHz float64) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.recording {
		return r.filename, ErrRecording
	}

	name, err := Filename(r.cfg.FileNaming, frequencyMHz, time.Now())
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(r.cfg.Recording.OutputDirectory, 0o755); err != nil {
		return "", fmt.Errorf("recorder: output directory: %w", err)
	}

	rec := r.cfg.Recording
	enc, err := opus.NewEncoder(rec.SampleRate, rec.Channels, opus.AppAudio)
	if err != nil {
		return "", fmt.Errorf("recorder: opus encoder: %w", err)
	}
	if err := enc.SetBitrate(rec.BitrateKbps * 1000); err != nil {
		r.logger.Warn("failed to set opus bitrate", "err", err)
	}

	if err := portaudio.Initialize(); err != nil {
		return "", fmt.Errorf("recorder: portaudio: %w", err)
	}

	file, err := os.Create(filepath.Join(rec.OutputDirectory, name))
	if err != nil {
		portaudio.Terminate()
		return "", fmt.Errorf("recorder: %w", err)
	}

	ogg := newOggWriter(file, uint32(time.Now().Unix()))
	if err := ogg.writeOpusHeaders(rec.Channels, rec.SampleRate); err != nil {
		file.Close()
		portaudio.Terminate()
		return "", fmt.Errorf("recorder: ogg headers: %w", err)
	}

	frames := make(chan []int16, frameQueueDepth)
	samplesPerFrame := rec.SampleRate / framesPerSecond
	stream, err := portaudio.OpenDefaultStream(rec.Channels, 0, float64(rec.SampleRate),
		samplesPerFrame, func(in []int16) {
			frame := make([]int16, len(in))
			copy(frame, in)
			select {
			case frames <- frame:
			default:
				// encoder fell behind; dropping beats blocking the
				// audio callback
			}
		})
	if err != nil {
		file.Close()
		portaudio.Terminate()
		return "", fmt.Errorf("recorder: open stream: %w", err)
	}
	if err := stream.Start(); err != nil {
		stream.Close()
		file.Close()
		portaudio.Terminate()
		return "", fmt.Errorf("recorder: start stream: %w", err)
	}

	r.recording = true
	r.filename = name
	r.stream = stream
	r.file = file
	r.frames = frames
	r.stop = make(chan struct{})
	r.wg.Add(1)
	go r.encodeLoop(enc, ogg, frames, r.stop)

	r.logger.Info("recording started", "file", name,
		"sample_rate", rec.SampleRate, "bitrate_kbps", rec.BitrateKbps)
	return name, nil
}

// Stop finishes the recording, flushes the final page and returns the file
// name.
func (r *Recorder) Stop() (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.recording {
		return "", ErrNotRecording
	}

	if err := r.stream.Stop(); err != nil {
		r.logger.Warn("failed to stop stream", "err", err)
	}
	r.stream.Close()
	close(r.stop)
	r.wg.Wait()
	r.file.Close()
	portaudio.Terminate()

	name := r.filename
	r.recording = false
	r.filename = ""
	r.stream = nil
	r.file = nil

	r.logger.Info("recording stopped", "file", name)
	return name, nil
}

// encodeLoop drains captured frames, encodes them and writes a page of Opus
// packets per second of audio. On stop it flushes whatever is pending with
// the end-of-stream flag.
func (r *Recorder) encodeLoop(enc *opus.Encoder, ogg *oggWriter, frames <-chan []int16, stop <-chan struct{}) {
	defer r.wg.Done()

	packet := make([]byte, maxPacketBytes)
	var pending [][]byte
	var granule uint64

	encode := func(frame []int16) {
		n, err := enc.Encode(frame, packet)
		if err != nil {
			r.logger.Warn("opus encode failed", "err", err)
			return
		}
		p := make([]byte, n)
		copy(p, packet[:n])
		pending = append(pending, p)
		granule += granulePerFrame
	}

	for {
		select {
		case frame := <-frames:
			encode(frame)
			if len(pending) >= packetsPerPage {
				if err := ogg.writePage(pending, preSkip+granule, 0); err != nil {
					r.logger.Error("ogg page write failed", "err", err)
				}
				pending = nil
			}
		case <-stop:
			// drain what the callback already queued
			for {
				select {
				case frame := <-frames:
					encode(frame)
					continue
				default:
				}
				break
			}
			if err := ogg.writePage(pending, preSkip+granule, pageEOS); err != nil {
				r.logger.Error("ogg page write failed", "err", err)
			}
			return
		}
	}
}
