package audio

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/aretw0/vine/internal/logging"
	"github.com/aretw0/vine/internal/sched"
	"github.com/aretw0/vine/pkg/domain"
	"github.com/aretw0/vine/pkg/ports"
)

const (
	// DefaultPoolCapacity bounds concurrent sound-effect instances.
	DefaultPoolCapacity = 8

	// DefaultFadeTick is the ramp sampling interval.
	DefaultFadeTick = 50 * time.Millisecond
)

// Manager owns the audio channels of one session.
type Manager struct {
	out      ports.AudioOutput
	resolver ports.AssetResolver
	clock    ports.Clock
	log      *slog.Logger
	poolCap  int
	tick     time.Duration

	mu    sync.Mutex
	state domain.MusicState
	chans map[string]*channel
	// sfx maps instance id to its playing source, for eviction.
	sfx map[string]ports.AudioSource
}

// channel is the device side of one singleton channel. gen invalidates
// in-flight fade ramps: bumping it makes pending ticks return without
// touching the device, which is what makes fades cancel-and-restart safe.
type channel struct {
	src ports.AudioSource
	gen int64
}

// Option configures a Manager.
type Option func(*Manager)

// WithOutput sets the playback device. Nil keeps bookkeeping-only mode.
func WithOutput(out ports.AudioOutput) Option {
	return func(m *Manager) { m.out = out }
}

// WithResolver sets the asset catalog used to map ids to URLs.
func WithResolver(r ports.AssetResolver) Option {
	return func(m *Manager) { m.resolver = r }
}

// WithClock sets the time source for ramps and timestamps.
func WithClock(c ports.Clock) Option {
	return func(m *Manager) {
		if c != nil {
			m.clock = c
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) {
		if l != nil {
			m.log = l
		}
	}
}

// WithPoolCapacity overrides the sound-effect pool bound.
func WithPoolCapacity(n int) Option {
	return func(m *Manager) {
		if n > 0 {
			m.poolCap = n
		}
	}
}

// WithFadeTick overrides the ramp sampling interval.
func WithFadeTick(d time.Duration) Option {
	return func(m *Manager) {
		if d > 0 {
			m.tick = d
		}
	}
}

// New creates a Manager with silent channels.
func New(opts ...Option) *Manager {
	m := &Manager{
		clock:   sched.SystemClock(),
		log:     logging.NewNop(),
		poolCap: DefaultPoolCapacity,
		tick:    DefaultFadeTick,
		state:   domain.NewMusicState(),
		chans: map[string]*channel{
			domain.ChannelMusic:   {},
			domain.ChannelAmbient: {},
		},
		sfx: make(map[string]ports.AudioSource),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Play starts (or re-targets) a track on a singleton channel and returns
// the updated bookkeeping. Re-requesting the playing, unpaused track only
// refreshes the recorded volume and loop flags. Switching tracks fades the
// outgoing source to zero and the incoming from zero to the target over
// fadeMs; a zero fade switches immediately.
func (m *Manager) Play(assetID, channelName string, fadeMs int, volume *float64, loop *bool) domain.MusicState {
	m.mu.Lock()
	defer m.mu.Unlock()

	name := normalizeChannel(channelName)
	cs := m.state.Channel(name)
	ch := m.chans[name]

	target := cs.Volume
	if volume != nil {
		target = clamp01(*volume)
	} else if cs.AssetID != assetID || cs.AssetID == "" {
		target = 1
	}
	looping := true
	if loop != nil {
		looping = *loop
	}

	if cs.AssetID == assetID && !cs.Paused {
		// Same track already playing: bookkeeping only.
		cs.Volume = target
		cs.Loop = looping
		if ch.src != nil {
			ch.src.SetVolume(target)
		}
		return m.state.Clone()
	}

	outgoing := ch.src
	outStart := cs.Volume
	ch.src = nil
	ch.gen++

	cs.AssetID = assetID
	cs.Volume = target
	cs.Loop = looping
	cs.Paused = false
	cs.StartedAt = m.clock.Now()
	cs.OffsetMs = 0

	if m.out != nil {
		startVol := target
		if fadeMs > 0 {
			startVol = 0
		}
		if src, ok := m.startSource(assetID, looping, startVol); ok {
			ch.src = src
		}
	}

	if fadeMs > 0 && (outgoing != nil || ch.src != nil) {
		m.rampLocked(ch, outgoing, outStart, target, fadeMs)
	} else if outgoing != nil {
		outgoing.Stop()
	}

	return m.state.Clone()
}

// StopChannel fades a singleton channel out and clears its bookkeeping.
func (m *Manager) StopChannel(channelName string, fadeMs int) domain.MusicState {
	m.mu.Lock()
	defer m.mu.Unlock()

	name := normalizeChannel(channelName)
	cs := m.state.Channel(name)
	ch := m.chans[name]

	outgoing := ch.src
	outStart := cs.Volume
	ch.src = nil
	ch.gen++

	*cs = domain.ChannelState{Volume: 1}

	if outgoing != nil {
		if fadeMs > 0 {
			m.rampLocked(ch, outgoing, outStart, 0, fadeMs)
		} else {
			outgoing.Stop()
		}
	}

	return m.state.Clone()
}

// PlaySFX admits a fire-and-forget instance to the pool, evicting the
// oldest instance first when the pool is full.
func (m *Manager) PlaySFX(assetID string, volume *float64) domain.MusicState {
	m.mu.Lock()
	defer m.mu.Unlock()

	vol := 1.0
	if volume != nil {
		vol = clamp01(*volume)
	}

	for len(m.state.Effects) >= m.poolCap {
		oldest := m.state.Effects[0]
		m.state.Effects = m.state.Effects[1:]
		if src, ok := m.sfx[oldest.ID]; ok {
			src.Stop()
			delete(m.sfx, oldest.ID)
		}
		m.log.Debug("sound-effect pool full, evicted oldest", "asset", oldest.AssetID)
	}

	inst := domain.SFXInstance{
		ID:        uuid.NewString(),
		AssetID:   assetID,
		StartedAt: m.clock.Now(),
	}
	if m.out != nil {
		if src, ok := m.startSource(assetID, false, vol); ok {
			m.sfx[inst.ID] = src
		}
	}
	m.state.Effects = append(m.state.Effects, inst)

	return m.state.Clone()
}

// Snapshot returns a copy of the current bookkeeping.
func (m *Manager) Snapshot() domain.MusicState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.Clone()
}

// StampOffsets refreshes each channel's playback offset, for the save
// codec. With a device the offset comes from the source position; in
// bookkeeping-only mode it is elapsed wall time since the track started.
func (m *Manager) StampOffsets() domain.MusicState {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, name := range []string{domain.ChannelMusic, domain.ChannelAmbient} {
		cs := m.state.Channel(name)
		if cs.AssetID == "" {
			continue
		}
		if src := m.chans[name].src; src != nil {
			cs.OffsetMs = src.Position().Milliseconds()
		} else if !cs.StartedAt.IsZero() {
			cs.OffsetMs = m.clock.Now().Sub(cs.StartedAt).Milliseconds()
		}
	}
	return m.state.Clone()
}

// Restore replaces the bookkeeping from a loaded snapshot and restarts the
// channel tracks at their target volume. Sound-effect instances do not
// survive a load; most outputs cannot seek, so tracks restart from the top
// and the saved offset stays as bookkeeping.
func (m *Manager) Restore(ms domain.MusicState) domain.MusicState {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.stopAllLocked()
	m.state = ms.Clone()
	m.state.Effects = nil

	for _, name := range []string{domain.ChannelMusic, domain.ChannelAmbient} {
		cs := m.state.Channel(name)
		if cs.AssetID == "" || cs.Paused {
			continue
		}
		cs.StartedAt = m.clock.Now()
		if m.out != nil {
			if src, ok := m.startSource(cs.AssetID, cs.Loop, cs.Volume); ok {
				m.chans[name].src = src
			}
		}
	}
	return m.state.Clone()
}

// StopAll silences everything and resets bookkeeping. Called at session
// termination.
func (m *Manager) StopAll() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stopAllLocked()
	m.state = domain.NewMusicState()
}

func (m *Manager) stopAllLocked() {
	for _, ch := range m.chans {
		ch.gen++
		if ch.src != nil {
			ch.src.Stop()
			ch.src = nil
		}
	}
	for id, src := range m.sfx {
		src.Stop()
		delete(m.sfx, id)
	}
	m.state.Effects = nil
}

// startSource asks the device for a playing source; failure is logged and
// leaves bookkeeping-only behavior for that track.
func (m *Manager) startSource(assetID string, loop bool, volume float64) (ports.AudioSource, bool) {
	url := assetID
	if m.resolver != nil {
		resolved, ok := m.resolver.ResolveURL(assetID, ports.AssetAudio)
		if !ok {
			m.log.Warn("audio asset not found", "asset", assetID)
			return nil, false
		}
		url = resolved
	}
	src, err := m.out.Play(assetID, url, loop, volume)
	if err != nil {
		m.log.Warn("audio playback failed", "asset", assetID, "err", err)
		return nil, false
	}
	return src, true
}

// rampLocked runs a linear crossfade on the channel: outgoing outStart->0
// (then stop), incoming 0->target. Ticks re-check the generation so a new
// Play or Stop silently retires the ramp.
func (m *Manager) rampLocked(ch *channel, outgoing ports.AudioSource, outStart, target float64, fadeMs int) {
	gen := ch.gen
	steps := fadeMs / int(m.tick.Milliseconds())
	if steps < 1 {
		steps = 1
	}
	incoming := ch.src

	step := 0
	var tickFn func()
	tickFn = func() {
		m.mu.Lock()
		if ch.gen != gen {
			m.mu.Unlock()
			// A newer request owns the channel; it already handled the
			// incoming source. Silence the orphaned outgoing one.
			if outgoing != nil {
				outgoing.Stop()
			}
			return
		}
		step++
		p := float64(step) / float64(steps)
		if p > 1 {
			p = 1
		}
		if outgoing != nil {
			outgoing.SetVolume(outStart * (1 - p))
		}
		if incoming != nil {
			incoming.SetVolume(target * p)
		}
		done := p >= 1
		if !done {
			m.clock.AfterFunc(m.tick, tickFn)
		}
		m.mu.Unlock()
		if done && outgoing != nil {
			outgoing.Stop()
		}
	}
	m.clock.AfterFunc(m.tick, tickFn)
}

func normalizeChannel(name string) string {
	if name == domain.ChannelAmbient {
		return domain.ChannelAmbient
	}
	return domain.ChannelMusic
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
