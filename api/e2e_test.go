package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wricardo/mondrian-blocks/game/catalog"
	"github.com/wricardo/mondrian-blocks/game/engine"
	"github.com/wricardo/mondrian-blocks/game/engine/enginetest"
	"github.com/wricardo/mondrian-blocks/game/replay"
	"github.com/wricardo/mondrian-blocks/game/service"
	"github.com/wricardo/mondrian-blocks/game/session"
	"github.com/wricardo/mondrian-blocks/transport/apiclient"
	"github.com/wricardo/mondrian-blocks/transport/solver"
	"github.com/wricardo/mondrian-blocks/transport/websocket"
)

// newStack wires the real service behind the router and returns a client
// for it. answer is what the fake solver replies with.
func newStack(t *testing.T, answer string) *apiclient.Client {
	t.Helper()

	solverSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req engine.SolveRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(answer))
	}))
	t.Cleanup(solverSrv.Close)

	catalogs, err := catalog.NewManager("")
	require.NoError(t, err)

	logger := slog.Default()
	hub := websocket.NewHub(logger)
	go hub.Run(t.Context())

	svc := service.NewGameService(
		session.NewManager(session.WithReplayDelay(time.Millisecond)),
		catalogs,
		solver.NewClient(solverSrv.URL, solver.WithRetries(0)),
		service.WithBroadcaster(hub),
		service.WithLogger(logger),
	)

	srv := httptest.NewServer(NewServer(svc, hub, logger))
	t.Cleanup(srv.Close)
	return apiclient.New(srv.URL)
}

func TestEndToEndInteractive(t *testing.T) {
	ctx := t.Context()
	client := newStack(t, "null")

	require.NoError(t, client.Health(ctx))

	sess, err := client.CreateSession(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, catalog.DefaultID, sess.CatalogID)
	assert.Len(t, sess.Board.Unplaced, 11)

	res, err := client.Place(ctx, sess.ID, 5, 0, 0)
	require.NoError(t, err)
	assert.True(t, res.Applied)
	assert.Equal(t, 12, res.Board.Filled)

	res, err = client.Place(ctx, sess.ID, 3, 2, 2)
	require.NoError(t, err)
	assert.False(t, res.Applied)
	assert.Equal(t, engine.RejectOccupied, res.Reason)

	res, err = client.Rotate(ctx, sess.ID, 5)
	require.NoError(t, err)
	assert.True(t, res.Applied)

	res, err = client.Remove(ctx, sess.ID, 5)
	require.NoError(t, err)
	assert.True(t, res.Applied)
	assert.Zero(t, res.Board.Filled)

	board, err := client.Reset(ctx, sess.ID)
	require.NoError(t, err)
	assert.True(t, board.Interactive)

	// the fake solver answers null
	_, err = client.Solve(ctx, sess.ID)
	require.Error(t, err)
	assert.True(t, apiclient.HasCode(err, apiclient.CodeNoSolution))

	require.NoError(t, client.DeleteSession(ctx, sess.ID))
	_, err = client.GetSession(ctx, sess.ID)
	assert.True(t, apiclient.HasCode(err, apiclient.CodeNotFound))
}

func TestEndToEndSolveAndReplay(t *testing.T) {
	ctx := t.Context()
	answer, err := json.Marshal(enginetest.WhiteSolution())
	require.NoError(t, err)
	client := newStack(t, string(answer))

	sess, err := client.CreateSession(ctx, catalog.DefaultID)
	require.NoError(t, err)

	result, err := client.Solve(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, 11, result.Steps)
	assert.NotEmpty(t, result.RunID)

	require.Eventually(t, func() bool {
		p, err := client.Replay(ctx, sess.ID)
		return err == nil && p.Status == replay.Idle && p.Step == p.Total
	}, 5*time.Second, 5*time.Millisecond)

	board, err := client.Board(ctx, sess.ID)
	require.NoError(t, err)
	assert.True(t, board.Complete)
	assert.Equal(t, engine.MaxBoardArea, board.Filled)
	assert.Empty(t, board.Unplaced)
	assert.True(t, board.Interactive)
}

func TestEndToEndCatalogs(t *testing.T) {
	ctx := t.Context()
	client := newStack(t, "null")

	infos, err := client.ListCatalogs(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, infos)
	assert.Equal(t, catalog.DefaultID, infos[0].CatalogID)

	c, err := client.GetCatalog(ctx, catalog.DefaultID)
	require.NoError(t, err)
	assert.Len(t, c.Blocks, 11)

	// no catalog directory configured, so saving fails server side
	err = client.SaveCatalog(ctx, "mine", engine.DefaultCatalog())
	require.Error(t, err)

	_, err = client.CreateSession(ctx, "missing")
	assert.True(t, apiclient.HasCode(err, apiclient.CodeNotFound))
}
