// Command boardctl drives a Mondrian Blocks server from the terminal.
//
//	boardctl new [catalog]
//	boardctl place <session> <block> <x> <y>
//	boardctl solve --wait <session>
//	boardctl watch <session>
//
// The server address comes from --server or BOARDCTL_SERVER.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newApp(os.Stdout).Run(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
