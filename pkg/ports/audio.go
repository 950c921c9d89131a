package ports

import "time"

// AudioSource is one playing source owned by the audio channel manager.
// Implementations must tolerate Stop being called more than once.
type AudioSource interface {
	// SetVolume adjusts gain in [0,1]; the manager drives this on every
	// fade-ramp tick.
	SetVolume(v float64)

	Pause()
	Resume()
	Stop()

	// Position reports elapsed playback time, used to stamp save-slot
	// music offsets.
	Position() time.Duration
}

// AudioOutput is the playback device behind the channel manager. Play
// failures (decode, device, permission) are reported as errors; the
// manager logs them and keeps bookkeeping consistent rather than failing
// the command.
type AudioOutput interface {
	Play(assetID, url string, loop bool, volume float64) (AudioSource, error)
}
