package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/urfave/cli/v3"

	"github.com/wricardo/mondrian-blocks/game/engine"
	"github.com/wricardo/mondrian-blocks/game/replay"
	"github.com/wricardo/mondrian-blocks/game/service"
	"github.com/wricardo/mondrian-blocks/transport/apiclient"
)

const defaultServer = "http://localhost:8080"

func newApp(out io.Writer) *cli.Command {
	return &cli.Command{
		Name:   "boardctl",
		Usage:  "play Mondrian Blocks against a running server",
		Writer: out,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "server",
				Aliases: []string{"s"},
				Value:   defaultServer,
				Usage:   "server base URL",
				Sources: cli.EnvVars("BOARDCTL_SERVER"),
			},
		},
		Commands: []*cli.Command{
			{
				Name:      "new",
				Usage:     "create a board",
				ArgsUsage: "[catalog]",
				Action:    runNew,
			},
			{
				Name:   "list",
				Usage:  "list boards",
				Action: runList,
			},
			{
				Name:      "show",
				Usage:     "print a board",
				ArgsUsage: "<session>",
				Action:    runShow,
			},
			{
				Name:      "place",
				Usage:     "place a block by its top-left cell",
				ArgsUsage: "<session> <block> <x> <y>",
				Action:    runPlace,
			},
			{
				Name:      "remove",
				Usage:     "take a block off the board",
				ArgsUsage: "<session> <block>",
				Action:    runRemove,
			},
			{
				Name:      "rotate",
				Usage:     "swap a block's width and height",
				ArgsUsage: "<session> <block>",
				Action:    runRotate,
			},
			{
				Name:      "reset",
				Usage:     "empty the board",
				ArgsUsage: "<session>",
				Action:    runReset,
			},
			{
				Name:      "solve",
				Usage:     "solve the board and replay the answer",
				ArgsUsage: "<session>",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "wait", Usage: "wait for the replay to finish and print the board"},
					&cli.DurationFlag{Name: "poll", Value: 250 * time.Millisecond, Usage: "replay polling interval"},
				},
				Action: runSolve,
			},
			{
				Name:      "replay",
				Usage:     "show replay progress",
				ArgsUsage: "<session>",
				Action:    runReplay,
			},
			{
				Name:      "cancel",
				Usage:     "cancel a running replay",
				ArgsUsage: "<session>",
				Action:    runCancel,
			},
			{
				Name:      "delete",
				Usage:     "delete a board",
				ArgsUsage: "<session>",
				Action:    runDelete,
			},
			{
				Name:   "catalogs",
				Usage:  "list block catalogs",
				Action: runCatalogs,
			},
			{
				Name:      "watch",
				Usage:     "stream board updates",
				ArgsUsage: "<session>",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "until-done", Usage: "exit after the next replay finishes"},
				},
				Action: runWatch,
			},
		},
	}
}

func client(cmd *cli.Command) *apiclient.Client {
	return apiclient.New(cmd.String("server"))
}

func output(cmd *cli.Command) io.Writer {
	return cmd.Root().Writer
}

// sessionArg returns the first positional argument
func sessionArg(cmd *cli.Command) (string, error) {
	id := cmd.Args().First()
	if id == "" {
		return "", errors.New("session id is required")
	}
	return id, nil
}

// intArgs parses positional arguments from index start on, one per name
func intArgs(cmd *cli.Command, start int, names ...string) ([]int, error) {
	out := make([]int, len(names))
	for i, name := range names {
		raw := cmd.Args().Get(start + i)
		if raw == "" {
			return nil, fmt.Errorf("%s is required", name)
		}
		v, err := strconv.Atoi(raw)
		if err != nil {
			return nil, fmt.Errorf("%s must be a number, got %q", name, raw)
		}
		out[i] = v
	}
	return out, nil
}

func runNew(ctx context.Context, cmd *cli.Command) error {
	info, err := client(cmd).CreateSession(ctx, cmd.Args().First())
	if err != nil {
		return err
	}
	w := output(cmd)
	fmt.Fprintf(w, "session %s (%s)\n", info.ID, info.CatalogName)
	printBoard(w, info.Board)
	return nil
}

func runList(ctx context.Context, cmd *cli.Command) error {
	list, err := client(cmd).ListSessions(ctx)
	if err != nil {
		return err
	}
	w := output(cmd)
	if list.Count == 0 {
		fmt.Fprintln(w, "no sessions")
		return nil
	}
	for _, s := range list.Sessions {
		filled := 0
		if s.Board != nil {
			filled = s.Board.Filled
		}
		fmt.Fprintf(w, "%s\t%s\t%d/%d\t%s\n", s.ID, s.CatalogID, filled, engine.MaxBoardArea, s.LastAccessedAt.Format(time.RFC3339))
	}
	return nil
}

func runShow(ctx context.Context, cmd *cli.Command) error {
	id, err := sessionArg(cmd)
	if err != nil {
		return err
	}
	board, err := client(cmd).Board(ctx, id)
	if err != nil {
		return err
	}
	printBoard(output(cmd), board)
	return nil
}

func runPlace(ctx context.Context, cmd *cli.Command) error {
	id, err := sessionArg(cmd)
	if err != nil {
		return err
	}
	args, err := intArgs(cmd, 1, "block", "x", "y")
	if err != nil {
		return err
	}
	result, err := client(cmd).Place(ctx, id, args[0], args[1], args[2])
	if err != nil {
		return err
	}
	printResult(output(cmd), result)
	return nil
}

func runRemove(ctx context.Context, cmd *cli.Command) error {
	return blockCommand(ctx, cmd, client(cmd).Remove)
}

func runRotate(ctx context.Context, cmd *cli.Command) error {
	return blockCommand(ctx, cmd, client(cmd).Rotate)
}

func blockCommand(ctx context.Context, cmd *cli.Command, op func(context.Context, string, int) (*service.PlacementResult, error)) error {
	id, err := sessionArg(cmd)
	if err != nil {
		return err
	}
	args, err := intArgs(cmd, 1, "block")
	if err != nil {
		return err
	}
	result, err := op(ctx, id, args[0])
	if err != nil {
		return err
	}
	printResult(output(cmd), result)
	return nil
}

func runReset(ctx context.Context, cmd *cli.Command) error {
	id, err := sessionArg(cmd)
	if err != nil {
		return err
	}
	board, err := client(cmd).Reset(ctx, id)
	if err != nil {
		return err
	}
	printBoard(output(cmd), board)
	return nil
}

func runSolve(ctx context.Context, cmd *cli.Command) error {
	id, err := sessionArg(cmd)
	if err != nil {
		return err
	}
	c := client(cmd)
	w := output(cmd)

	result, err := c.Solve(ctx, id)
	if apiclient.HasCode(err, apiclient.CodeNoSolution) {
		return errors.New("no solution for this board")
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "solution with %d placements, replay %s\n", result.Steps, result.RunID)
	if !cmd.Bool("wait") {
		return nil
	}

	ticker := time.NewTicker(cmd.Duration("poll"))
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
		p, err := c.Replay(ctx, id)
		if err != nil {
			return err
		}
		if p.Status != replay.Running {
			break
		}
	}

	board, err := c.Board(ctx, id)
	if err != nil {
		return err
	}
	printBoard(w, board)
	return nil
}

func runReplay(ctx context.Context, cmd *cli.Command) error {
	id, err := sessionArg(cmd)
	if err != nil {
		return err
	}
	p, err := client(cmd).Replay(ctx, id)
	if err != nil {
		return err
	}
	fmt.Fprintln(output(cmd), formatProgress(*p))
	return nil
}

func runCancel(ctx context.Context, cmd *cli.Command) error {
	id, err := sessionArg(cmd)
	if err != nil {
		return err
	}
	p, err := client(cmd).CancelReplay(ctx, id)
	if err != nil {
		return err
	}
	fmt.Fprintln(output(cmd), "cancelled:", formatProgress(*p))
	return nil
}

func runDelete(ctx context.Context, cmd *cli.Command) error {
	id, err := sessionArg(cmd)
	if err != nil {
		return err
	}
	if err := client(cmd).DeleteSession(ctx, id); err != nil {
		return err
	}
	fmt.Fprintf(output(cmd), "deleted %s\n", id)
	return nil
}

func runCatalogs(ctx context.Context, cmd *cli.Command) error {
	infos, err := client(cmd).ListCatalogs(ctx)
	if err != nil {
		return err
	}
	w := output(cmd)
	for _, info := range infos {
		fmt.Fprintf(w, "%s\t%s\t%d blocks\t%d cells\n", info.CatalogID, info.Name, info.BlockCount, info.TotalArea)
	}
	return nil
}

// wsEvent is the hub envelope with the payload left raw
type wsEvent struct {
	SessionID string          `json:"session_id"`
	Event     string          `json:"event"`
	Data      json.RawMessage `json:"data"`
}

func runWatch(ctx context.Context, cmd *cli.Command) error {
	id, err := sessionArg(cmd)
	if err != nil {
		return err
	}
	wsURL, err := watchURL(cmd.String("server"), id)
	if err != nil {
		return err
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return fmt.Errorf("connect %s: %w", wsURL, err)
	}
	defer conn.Close()

	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	w := output(cmd)
	untilDone := cmd.Bool("until-done")
	for {
		var ev wsEvent
		if err := conn.ReadJSON(&ev); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("read: %w", err)
		}
		done, err := printEvent(w, ev)
		if err != nil {
			return err
		}
		if done && untilDone {
			return nil
		}
	}
}

// watchURL turns the server base URL into the /ws endpoint for a session
func watchURL(server, sessionID string) (string, error) {
	u, err := url.Parse(server)
	if err != nil {
		return "", fmt.Errorf("bad server URL: %w", err)
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/ws"
	u.RawQuery = url.Values{"session": {sessionID}}.Encode()
	return u.String(), nil
}

// printEvent writes one hub event and reports whether it ended a replay
func printEvent(w io.Writer, ev wsEvent) (bool, error) {
	switch ev.Event {
	case "replay_step":
		var step service.ReplayStep
		if err := json.Unmarshal(ev.Data, &step); err != nil {
			return false, err
		}
		p := step.Placement
		fmt.Fprintf(w, "step %d/%d: block %d %dx%d at (%d,%d)\n", step.Step, step.Total, p.ID, p.Width, p.Height, p.X, p.Y)
	case "replay_done":
		var done service.ReplayDone
		if err := json.Unmarshal(ev.Data, &done); err != nil {
			return false, err
		}
		state := "finished"
		if done.Cancelled {
			state = "cancelled"
		}
		fmt.Fprintf(w, "replay %s at %d/%d\n", state, done.Progress.Step, done.Progress.Total)
		printBoard(w, done.Board)
		return true, nil
	default:
		var board service.BoardView
		if err := json.Unmarshal(ev.Data, &board); err != nil {
			return false, err
		}
		fmt.Fprintf(w, "%s\n", ev.Event)
		printBoard(w, &board)
	}
	return false, nil
}

func printBoard(w io.Writer, board *service.BoardView) {
	if board == nil {
		return
	}
	fmt.Fprintln(w, "  01234567")
	for y, row := range board.Rows {
		fmt.Fprintf(w, "%d %s\n", y, row)
	}
	status := fmt.Sprintf("%d/%d filled", board.Filled, engine.MaxBoardArea)
	if board.Complete {
		status += ", complete"
	}
	if !board.Interactive {
		status += ", locked"
	}
	fmt.Fprintln(w, status)
	if len(board.Unplaced) > 0 {
		parts := make([]string, 0, len(board.Unplaced))
		for _, b := range board.Unplaced {
			parts = append(parts, fmt.Sprintf("%d:%dx%d", b.ID, b.Width, b.Height))
		}
		fmt.Fprintln(w, "palette", strings.Join(parts, " "))
	}
}

func printResult(w io.Writer, result *service.PlacementResult) {
	if result.Applied {
		fmt.Fprintln(w, result.Message)
	} else {
		fmt.Fprintf(w, "refused (%s): %s\n", result.Reason, result.Message)
	}
	printBoard(w, result.Board)
}

func formatProgress(p replay.Progress) string {
	if p.RunID == "" {
		return string(p.Status)
	}
	return fmt.Sprintf("%s %d/%d run %s", p.Status, p.Step, p.Total, p.RunID)
}
