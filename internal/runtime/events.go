package runtime

import (
	"context"

	"github.com/aretw0/vine/pkg/domain"
)

func (s *Session) eventBase(t domain.EventType) domain.EventBase {
	return domain.EventBase{
		Timestamp: s.eng.clock.Now(),
		Type:      t,
		ProjectID: s.project.ID,
	}
}

func (s *Session) emitStep(ctx context.Context, t domain.EventType, cmd *domain.Command) {
	var hook func(context.Context, *domain.StepEvent)
	switch t {
	case domain.EventDispatch:
		hook = s.eng.hooks.OnDispatch
	case domain.EventBranchAnomaly:
		hook = s.eng.hooks.OnBranchAnomaly
	}
	if hook == nil {
		return
	}
	hook(ctx, &domain.StepEvent{
		EventBase:   s.eventBase(t),
		SceneID:     s.state.SceneID,
		Index:       s.state.Index,
		CommandID:   cmd.ID,
		CommandType: cmd.Type,
	})
}

func (s *Session) emitScene(ctx context.Context, t domain.EventType, sceneID, reason string) {
	var hook func(context.Context, *domain.SceneEvent)
	switch t {
	case domain.EventSceneEnter:
		hook = s.eng.hooks.OnSceneEnter
	case domain.EventSceneLeave:
		hook = s.eng.hooks.OnSceneLeave
	}
	if hook == nil {
		return
	}
	hook(ctx, &domain.SceneEvent{
		EventBase: s.eventBase(t),
		SceneID:   sceneID,
		Reason:    reason,
	})
}

func (s *Session) emitHandlerError(ctx context.Context, cmd *domain.Command, msg string) {
	if s.eng.hooks.OnHandlerError == nil {
		return
	}
	s.eng.hooks.OnHandlerError(ctx, &domain.ErrorEvent{
		EventBase:   s.eventBase(domain.EventHandlerError),
		SceneID:     s.state.SceneID,
		Index:       s.state.Index,
		CommandID:   cmd.ID,
		CommandType: cmd.Type,
		Err:         msg,
	})
}

func (s *Session) emitSlot(ctx context.Context, t domain.EventType, slot int, sceneID string, isErr bool) {
	var hook func(context.Context, *domain.SlotEvent)
	switch t {
	case domain.EventSave:
		hook = s.eng.hooks.OnSave
	case domain.EventLoad:
		hook = s.eng.hooks.OnLoad
	}
	if hook == nil {
		return
	}
	hook(ctx, &domain.SlotEvent{
		EventBase: s.eventBase(t),
		Slot:      slot,
		SceneID:   sceneID,
		IsError:   isErr,
	})
}
