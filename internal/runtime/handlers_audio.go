package runtime

import (
	"github.com/aretw0/vine/pkg/domain"
)

// Audio commands never block the loop: fades run on their own ticks so
// music continues across scene transitions.

func (s *Session) handlePlayMusic(cmd *domain.Command) stepResult {
	if cmd.AssetID == "" {
		s.logger.Warn("playMusic has no asset, skipping", "command_id", cmd.ID)
		return advance(domain.StatePatch{})
	}
	music := s.audio.Play(cmd.AssetID, cmd.Channel, cmd.FadeMs, cmd.Volume, cmd.Loop)
	return advance(domain.StatePatch{Music: &music})
}

func (s *Session) handleStopMusic(cmd *domain.Command) stepResult {
	music := s.audio.StopChannel(cmd.Channel, cmd.FadeMs)
	return advance(domain.StatePatch{Music: &music})
}

func (s *Session) handlePlaySoundEffect(cmd *domain.Command) stepResult {
	if cmd.AssetID == "" {
		s.logger.Warn("playSoundEffect has no asset, skipping", "command_id", cmd.ID)
		return advance(domain.StatePatch{})
	}
	music := s.audio.PlaySFX(cmd.AssetID, cmd.Volume)
	return advance(domain.StatePatch{Music: &music})
}
