// Package beep plays story audio through the system output device using
// the beep library. It implements ports.AudioOutput.
//
// The speaker device is process-global: create one Output and share it.
package beep

import (
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/effects"
	"github.com/gopxl/beep/v2/mp3"
	"github.com/gopxl/beep/v2/speaker"
	"github.com/gopxl/beep/v2/vorbis"
	"github.com/gopxl/beep/v2/wav"

	"github.com/aretw0/vine/internal/logging"
	"github.com/aretw0/vine/pkg/ports"
)

// Output owns the speaker and a mixer all sources feed into.
type Output struct {
	sampleRate beep.SampleRate
	mixer      *beep.Mixer
	logger     *slog.Logger
}

// Option configures an Output.
type Option func(*Output)

// WithSampleRate overrides the 44.1kHz default device rate.
func WithSampleRate(rate int) Option {
	return func(o *Output) {
		o.sampleRate = beep.SampleRate(rate)
	}
}

// WithLogger sets the logger for decode and device diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(o *Output) {
		o.logger = l
	}
}

// NewOutput initializes the speaker and starts the mixer.
func NewOutput(opts ...Option) (*Output, error) {
	o := &Output{
		sampleRate: beep.SampleRate(44100),
		mixer:      &beep.Mixer{},
		logger:     logging.NewNop(),
	}
	for _, opt := range opts {
		opt(o)
	}

	if err := speaker.Init(o.sampleRate, o.sampleRate.N(100*time.Millisecond)); err != nil {
		return nil, fmt.Errorf("initialize speaker: %w", err)
	}
	speaker.Play(o.mixer)
	return o, nil
}

// Close shuts the speaker down.
func (o *Output) Close() {
	speaker.Close()
}

// Play implements ports.AudioOutput. url is a local file path; the format
// comes from its extension.
func (o *Output) Play(assetID, url string, loop bool, volume float64) (ports.AudioSource, error) {
	f, err := os.Open(url)
	if err != nil {
		return nil, fmt.Errorf("open audio file: %w", err)
	}

	stream, format, err := decode(url, f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("decode %s: %w", filepath.Base(url), err)
	}

	var s beep.Streamer = stream
	if loop {
		s = beep.Loop(-1, stream)
	}
	if format.SampleRate != o.sampleRate {
		s = beep.Resample(4, format.SampleRate, o.sampleRate, s)
	}

	vol, silent := gain(volume)
	volCtl := &effects.Volume{Streamer: s, Base: 2, Volume: vol, Silent: silent}
	ctrl := &beep.Ctrl{Streamer: volCtl}

	speaker.Lock()
	o.mixer.Add(ctrl)
	speaker.Unlock()

	o.logger.Debug("audio source started", "asset", assetID, "loop", loop)
	return &source{ctrl: ctrl, vol: volCtl, stream: stream, format: format}, nil
}

// decode picks a decoder from the file extension.
func decode(name string, rc io.ReadCloser) (beep.StreamSeekCloser, beep.Format, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".mp3":
		return mp3.Decode(rc)
	case ".wav":
		return wav.Decode(rc)
	case ".ogg", ".oga":
		return vorbis.Decode(rc)
	default:
		return nil, beep.Format{}, fmt.Errorf("unsupported audio format %q", filepath.Ext(name))
	}
}

// gain maps the linear [0,1] volume the interpreter uses onto the
// exponential scale the Volume effect expects (base 2).
func gain(v float64) (float64, bool) {
	if v <= 0 {
		return 0, true
	}
	if v > 1 {
		v = 1
	}
	return math.Log2(v), false
}

// source is one playing stream. All control paths go through the speaker
// lock because the playback goroutine reads these fields concurrently.
type source struct {
	ctrl    *beep.Ctrl
	vol     *effects.Volume
	stream  beep.StreamSeekCloser
	format  beep.Format
	stopped bool
}

func (s *source) SetVolume(v float64) {
	vol, silent := gain(v)
	speaker.Lock()
	s.vol.Volume = vol
	s.vol.Silent = silent
	speaker.Unlock()
}

func (s *source) Pause() {
	speaker.Lock()
	s.ctrl.Paused = true
	speaker.Unlock()
}

func (s *source) Resume() {
	speaker.Lock()
	s.ctrl.Paused = false
	speaker.Unlock()
}

// Stop detaches the stream from the mixer and closes the decoder. Safe to
// call more than once.
func (s *source) Stop() {
	speaker.Lock()
	alreadyStopped := s.stopped
	s.stopped = true
	s.ctrl.Streamer = nil
	speaker.Unlock()

	if !alreadyStopped {
		_ = s.stream.Close()
	}
}

func (s *source) Position() time.Duration {
	speaker.Lock()
	n := s.stream.Position()
	speaker.Unlock()
	return s.format.SampleRate.D(n)
}
