// Package replay plays back a solver's solution on a board, one placement
// per tick.
//
// A Controller is either Idle or Running. Start accepts a solution only
// while Idle and applies its entries strictly in order through a callback,
// waiting a fixed delay between entries. The first entry is applied
// immediately and there is no wait after the last one. Cancel abandons the
// run before the next tick; entries already applied stay applied.
//
// Usage:
//
//	ctrl := replay.NewController(500 * time.Millisecond)
//	runID, err := ctrl.Start(ctx, solution, replay.Hooks{
//		OnStep: func(step int, p engine.Placement) { /* apply p */ },
//		OnDone: func(p replay.Progress, err error) { /* notify */ },
//	})
//	if errors.Is(err, replay.ErrRunning) {
//		// a replay is already in progress
//	}
//
// Progress reports the current run id, status and step counter for
// presentation layers.
package replay
