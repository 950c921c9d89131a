package domain

import (
	"context"
	"time"
)

// EventType defines the category of the event.
type EventType string

const (
	EventDispatch      EventType = "dispatch"
	EventSceneEnter    EventType = "scene_enter"
	EventSceneLeave    EventType = "scene_leave"
	EventHandlerError  EventType = "handler_error"
	EventBranchAnomaly EventType = "branch_anomaly"
	EventSave          EventType = "save"
	EventLoad          EventType = "load"
)

// EventBase contains common fields for all events.
type EventBase struct {
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
	ProjectID string    `json:"project_id,omitempty"`
}

// StepEvent describes one dispatch (or branch anomaly) at a command.
type StepEvent struct {
	EventBase
	SceneID     string      `json:"scene_id"`
	Index       int         `json:"index"`
	CommandID   string      `json:"command_id"`
	CommandType CommandType `json:"command_type"`
}

// SceneEvent describes entering or leaving a scene.
type SceneEvent struct {
	EventBase
	SceneID string `json:"scene_id"`
	// Reason for the move: "jump", "choice", "fallback", "next", "call",
	// "return", "load".
	Reason string `json:"reason,omitempty"`
}

// ErrorEvent describes a recovered handler failure.
type ErrorEvent struct {
	EventBase
	SceneID     string      `json:"scene_id"`
	Index       int         `json:"index"`
	CommandID   string      `json:"command_id"`
	CommandType CommandType `json:"command_type"`
	Err         string      `json:"err"`
}

// SlotEvent describes a save or load.
type SlotEvent struct {
	EventBase
	Slot    int    `json:"slot"`
	SceneID string `json:"scene_id,omitempty"`
	IsError bool   `json:"is_error,omitempty"`
}

// LifecycleHooks defines callbacks for engine observability. All fields
// are optional; hooks run synchronously on the loop's goroutine and must
// not call back into the session.
type LifecycleHooks struct {
	OnDispatch      func(context.Context, *StepEvent)
	OnSceneEnter    func(context.Context, *SceneEvent)
	OnSceneLeave    func(context.Context, *SceneEvent)
	OnHandlerError  func(context.Context, *ErrorEvent)
	OnBranchAnomaly func(context.Context, *StepEvent)
	OnSave          func(context.Context, *SlotEvent)
	OnLoad          func(context.Context, *SlotEvent)
}

// JoinHooks combines hook sets into one; for each event, every non-nil
// callback runs in argument order. This is how metrics and caller hooks
// share a single engine.
func JoinHooks(sets ...LifecycleHooks) LifecycleHooks {
	var out LifecycleHooks
	for _, h := range sets {
		out.OnDispatch = chainStep(out.OnDispatch, h.OnDispatch)
		out.OnSceneEnter = chainScene(out.OnSceneEnter, h.OnSceneEnter)
		out.OnSceneLeave = chainScene(out.OnSceneLeave, h.OnSceneLeave)
		out.OnHandlerError = chainError(out.OnHandlerError, h.OnHandlerError)
		out.OnBranchAnomaly = chainStep(out.OnBranchAnomaly, h.OnBranchAnomaly)
		out.OnSave = chainSlot(out.OnSave, h.OnSave)
		out.OnLoad = chainSlot(out.OnLoad, h.OnLoad)
	}
	return out
}

func chainStep(a, b func(context.Context, *StepEvent)) func(context.Context, *StepEvent) {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	return func(ctx context.Context, e *StepEvent) { a(ctx, e); b(ctx, e) }
}

func chainScene(a, b func(context.Context, *SceneEvent)) func(context.Context, *SceneEvent) {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	return func(ctx context.Context, e *SceneEvent) { a(ctx, e); b(ctx, e) }
}

func chainError(a, b func(context.Context, *ErrorEvent)) func(context.Context, *ErrorEvent) {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	return func(ctx context.Context, e *ErrorEvent) { a(ctx, e); b(ctx, e) }
}

func chainSlot(a, b func(context.Context, *SlotEvent)) func(context.Context, *SlotEvent) {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	return func(ctx context.Context, e *SlotEvent) { a(ctx, e); b(ctx, e) }
}
