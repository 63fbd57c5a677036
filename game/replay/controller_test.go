package replay_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wricardo/mondrian-blocks/game/engine"
	"github.com/wricardo/mondrian-blocks/game/engine/enginetest"
	"github.com/wricardo/mondrian-blocks/game/replay"
)

func TestNewController_DefaultDelay(t *testing.T) {
	c := replay.NewController(0)
	assert.Equal(t, replay.DefaultDelay, c.Delay())

	p := c.Progress()
	assert.Equal(t, replay.Idle, p.Status)
	assert.Equal(t, int64(500), p.DelayMs)
	assert.Empty(t, p.RunID)
}

func TestRun_AppliesSolutionInOrder(t *testing.T) {
	c := replay.NewController(time.Millisecond)
	sol := enginetest.WhiteSolution()

	state := enginetest.NewWhiteState()
	var steps []int
	err := c.Run(context.Background(), sol, func(step int, p engine.Placement) {
		steps = append(steps, step)
		assert.Equal(t, sol[step-1], p)
		state, _ = state.Apply(p)
	})
	require.NoError(t, err)

	require.Len(t, steps, len(sol))
	for i, step := range steps {
		assert.Equal(t, i+1, step)
	}
	assert.Equal(t, enginetest.WhiteSolutionRows, state.Render())
	assert.True(t, state.Complete())

	p := c.Progress()
	assert.Equal(t, replay.Idle, p.Status)
	assert.Equal(t, len(sol), p.Step)
	assert.Equal(t, len(sol), p.Total)
}

func TestRun_EmptySolution(t *testing.T) {
	c := replay.NewController(time.Millisecond)
	called := false
	require.NoError(t, c.Run(context.Background(), nil, func(int, engine.Placement) { called = true }))
	assert.False(t, called)
	assert.Equal(t, replay.Idle, c.Progress().Status)
}

func TestRun_WaitsBetweenTicksOnly(t *testing.T) {
	delay := 20 * time.Millisecond
	c := replay.NewController(delay)
	sol := enginetest.WhiteSolution()[:3]

	var times []time.Time
	start := time.Now()
	require.NoError(t, c.Run(context.Background(), sol, func(int, engine.Placement) {
		times = append(times, time.Now())
	}))
	elapsed := time.Since(start)

	require.Len(t, times, 3)
	assert.Less(t, times[0].Sub(start), delay, "first entry is applied immediately")
	assert.GreaterOrEqual(t, times[1].Sub(times[0]), delay)
	assert.GreaterOrEqual(t, times[2].Sub(times[1]), delay)
	assert.Less(t, elapsed-times[2].Sub(start), delay, "no wait after the last entry")
}

func TestStart_RejectsWhileRunning(t *testing.T) {
	c := replay.NewController(time.Hour)
	sol := enginetest.WhiteSolution()

	runID, err := c.Start(context.Background(), sol, replay.Hooks{})
	require.NoError(t, err)
	_, err = uuid.Parse(runID)
	require.NoError(t, err)
	assert.True(t, c.Running())

	_, err = c.Start(context.Background(), sol, replay.Hooks{})
	assert.ErrorIs(t, err, replay.ErrRunning)
	assert.ErrorIs(t, c.Run(context.Background(), sol, nil), replay.ErrRunning)

	c.Cancel()
	c.Wait()
	assert.False(t, c.Running())
}

func TestStart_CompletesAndReportsDone(t *testing.T) {
	c := replay.NewController(time.Millisecond)
	sol := enginetest.WhiteSolution()

	var mu sync.Mutex
	applied := 0
	doneCh := make(chan replay.Progress, 1)
	var doneErr error

	runID, err := c.Start(context.Background(), sol, replay.Hooks{
		OnStep: func(step int, p engine.Placement) {
			mu.Lock()
			applied++
			mu.Unlock()
		},
		OnDone: func(p replay.Progress, err error) {
			doneErr = err
			doneCh <- p
		},
	})
	require.NoError(t, err)

	select {
	case p := <-doneCh:
		assert.NoError(t, doneErr)
		assert.Equal(t, runID, p.RunID)
		assert.Equal(t, replay.Idle, p.Status)
		assert.Equal(t, len(sol), p.Step)
	case <-time.After(5 * time.Second):
		t.Fatal("replay did not finish")
	}

	c.Wait()
	mu.Lock()
	assert.Equal(t, len(sol), applied)
	mu.Unlock()

	// A new run may start once idle, and the step counter restarts.
	second, err := c.Start(context.Background(), sol[:1], replay.Hooks{})
	require.NoError(t, err)
	assert.NotEqual(t, runID, second)
	c.Wait()
	assert.Equal(t, 1, c.Progress().Step)
	assert.Equal(t, 1, c.Progress().Total)
}

func TestCancel_KeepsAppliedSteps(t *testing.T) {
	c := replay.NewController(time.Hour)
	sol := enginetest.WhiteSolution()

	firstApplied := make(chan struct{})
	var doneErr error
	_, err := c.Start(context.Background(), sol, replay.Hooks{
		OnStep: func(step int, p engine.Placement) {
			if step == 1 {
				close(firstApplied)
			}
		},
		OnDone: func(p replay.Progress, err error) { doneErr = err },
	})
	require.NoError(t, err)

	<-firstApplied
	c.Cancel()
	c.Wait()

	assert.True(t, errors.Is(doneErr, context.Canceled))
	p := c.Progress()
	assert.Equal(t, replay.Idle, p.Status)
	assert.Equal(t, 1, p.Step)
	assert.Equal(t, len(sol), p.Total)
}

func TestRun_ContextCancelled(t *testing.T) {
	c := replay.NewController(time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	err := c.Run(ctx, enginetest.WhiteSolution(), func(int, engine.Placement) { called = true })
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)
	assert.Equal(t, 0, c.Progress().Step)
}

func TestCancel_IdleIsNoOp(t *testing.T) {
	c := replay.NewController(time.Millisecond)
	c.Cancel()
	c.Wait()
	assert.False(t, c.Running())
}
