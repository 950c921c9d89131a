package metrics

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/aretw0/vine/pkg/domain"
)

func TestMetrics_HooksRecord(t *testing.T) {
	m := New()
	hooks := m.Hooks()
	ctx := context.Background()

	hooks.OnDispatch(ctx, &domain.StepEvent{CommandType: domain.CmdDialogue})
	hooks.OnDispatch(ctx, &domain.StepEvent{CommandType: domain.CmdDialogue})
	hooks.OnDispatch(ctx, &domain.StepEvent{CommandType: domain.CmdJump})
	hooks.OnSceneEnter(ctx, &domain.SceneEvent{Reason: "jump"})
	hooks.OnHandlerError(ctx, &domain.ErrorEvent{CommandType: domain.CmdPlayMovie})
	hooks.OnBranchAnomaly(ctx, &domain.StepEvent{CommandType: domain.CmdBranchStart})
	hooks.OnSave(ctx, &domain.SlotEvent{Slot: 1})
	hooks.OnSave(ctx, &domain.SlotEvent{Slot: 2, IsError: true})
	hooks.OnLoad(ctx, &domain.SlotEvent{Slot: 1})

	assert.Equal(t, 2.0, testutil.ToFloat64(m.dispatches.WithLabelValues("dialogue")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.dispatches.WithLabelValues("jump")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.sceneEntries.WithLabelValues("jump")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.handlerErrors.WithLabelValues("playMovie")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.branchAnomalies))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.saves.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.saves.WithLabelValues("error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.loads.WithLabelValues("ok")))
}

func TestMetrics_SessionGauge(t *testing.T) {
	m := New()
	m.SessionOpened()
	m.SessionOpened()
	m.SessionClosed()
	assert.Equal(t, 1.0, testutil.ToFloat64(m.activeSessions))
}

func TestMetrics_InstancesAreIsolated(t *testing.T) {
	a := New()
	b := New()
	a.Hooks().OnDispatch(context.Background(), &domain.StepEvent{CommandType: domain.CmdDialogue})
	assert.Equal(t, 1.0, testutil.ToFloat64(a.dispatches.WithLabelValues("dialogue")))
	assert.Equal(t, 0.0, testutil.ToFloat64(b.dispatches.WithLabelValues("dialogue")))
}

func TestJoinHooks_BothSidesRun(t *testing.T) {
	m := New()
	var custom int
	joined := domain.JoinHooks(m.Hooks(), domain.LifecycleHooks{
		OnDispatch: func(context.Context, *domain.StepEvent) { custom++ },
	})

	joined.OnDispatch(context.Background(), &domain.StepEvent{CommandType: domain.CmdWait})

	assert.Equal(t, 1, custom)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.dispatches.WithLabelValues("wait")))
	// Fields neither side set stay nil so callers can keep their nil checks.
	assert.Nil(t, joined.OnSceneLeave)
}
