package replay

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/wricardo/mondrian-blocks/game/engine"
)

// DefaultDelay is the wait between two replay ticks.
const DefaultDelay = 500 * time.Millisecond

// ErrRunning is returned by Start while another replay is in progress.
var ErrRunning = errors.New("replay already running")

// Status is the state of a Controller.
type Status string

const (
	Idle    Status = "idle"
	Running Status = "running"
)

// Progress is a snapshot of the controller for presentation layers.
type Progress struct {
	RunID   string `json:"run_id,omitempty"`
	Status  Status `json:"status"`
	Step    int    `json:"step"`
	Total   int    `json:"total"`
	DelayMs int64  `json:"delay_ms"`
}

// Hooks receive replay events. Both are called from the replay goroutine.
type Hooks struct {
	// OnStep applies one solution entry. step is 1-based.
	OnStep func(step int, p engine.Placement)
	// OnDone is called once when the run ends. err is nil when every entry
	// was applied and the context error when the run was cancelled.
	OnDone func(p Progress, err error)
}

// Controller replays solutions one at a time.
type Controller struct {
	delay time.Duration

	mu     sync.Mutex
	status Status
	runID  string
	step   int
	total  int
	cancel context.CancelFunc
	done   chan struct{}
}

// NewController creates an idle controller. A non-positive delay selects
// DefaultDelay.
func NewController(delay time.Duration) *Controller {
	if delay <= 0 {
		delay = DefaultDelay
	}
	return &Controller{delay: delay, status: Idle}
}

// Delay returns the inter-tick delay.
func (c *Controller) Delay() time.Duration {
	return c.delay
}

// Start begins replaying sol in the background and returns the run id.
// It fails with ErrRunning if a replay is already in progress. The run stops
// early when ctx is cancelled or Cancel is called.
func (c *Controller) Start(ctx context.Context, sol engine.Solution, hooks Hooks) (string, error) {
	runCtx, cancel := context.WithCancel(ctx)
	runID, done, err := c.begin(sol, cancel)
	if err != nil {
		cancel()
		return "", err
	}

	go func() {
		defer close(done)
		defer cancel()
		err := c.play(runCtx, sol, hooks.OnStep)
		p := c.finish()
		if hooks.OnDone != nil {
			hooks.OnDone(p, err)
		}
	}()

	return runID, nil
}

// Run replays sol synchronously and returns when the run ends. The returned
// error is nil on completion, ErrRunning if another replay is in progress,
// or the context error on cancellation.
func (c *Controller) Run(ctx context.Context, sol engine.Solution, apply func(step int, p engine.Placement)) error {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	_, done, err := c.begin(sol, cancel)
	if err != nil {
		return err
	}
	defer close(done)

	err = c.play(runCtx, sol, apply)
	c.finish()
	return err
}

// Cancel stops the current run before its next tick. It is a no-op when
// the controller is idle.
func (c *Controller) Cancel() {
	c.mu.Lock()
	cancel := c.cancel
	c.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// Wait blocks until the current run, if any, has ended.
func (c *Controller) Wait() {
	c.mu.Lock()
	done := c.done
	c.mu.Unlock()
	if done != nil {
		<-done
	}
}

// Progress returns a snapshot of the controller.
func (c *Controller) Progress() Progress {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshot()
}

// Running reports whether a replay is in progress.
func (c *Controller) Running() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status == Running
}

func (c *Controller) begin(sol engine.Solution, cancel context.CancelFunc) (string, chan struct{}, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.status == Running {
		return "", nil, ErrRunning
	}

	c.status = Running
	c.runID = uuid.NewString()
	c.step = 0
	c.total = len(sol)
	c.cancel = cancel
	c.done = make(chan struct{})
	return c.runID, c.done, nil
}

func (c *Controller) play(ctx context.Context, sol engine.Solution, apply func(step int, p engine.Placement)) error {
	for i, p := range sol {
		if i > 0 {
			if err := c.sleep(ctx); err != nil {
				return err
			}
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		if apply != nil {
			apply(i+1, p)
		}

		c.mu.Lock()
		c.step = i + 1
		c.mu.Unlock()
	}
	return nil
}

func (c *Controller) sleep(ctx context.Context) error {
	timer := time.NewTimer(c.delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (c *Controller) finish() Progress {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.status = Idle
	c.cancel = nil
	return c.snapshot()
}

func (c *Controller) snapshot() Progress {
	return Progress{
		RunID:   c.runID,
		Status:  c.status,
		Step:    c.step,
		Total:   c.total,
		DelayMs: c.delay.Milliseconds(),
	}
}
