package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
)

const usage = `plumbinv - resolve Ansible-style inventories and match plays against them.

Usage:
  plumbinv <command> [options] [args]

Commands:
  inventory   print the resolved group tree with effective host variables
  playbook    print a playbook's plays, host selectors and tasks
  match       print the groups a playbook's host selector applies to
  preset      turn a recorded run into a reusable preset

Run "plumbinv <command> -h" for command options.
`

// ExitError carries a process exit code.
type ExitError struct {
	Code    int
	Message string
}

func (e *ExitError) Error() string {
	return e.Message
}

func usageError(format string, args ...any) error {
	return &ExitError{Code: 2, Message: fmt.Sprintf(format, args...)}
}

func main() {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn})))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := run(ctx, os.Stdout, os.Stderr, os.Args[1:])
	stop()
	if err != nil {
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			fmt.Fprintln(os.Stderr, exitErr.Message)
			os.Exit(exitErr.Code)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, stdout, stderr io.Writer, args []string) error {
	if len(args) < 1 {
		fmt.Fprint(stderr, usage)
		return usageError("missing command")
	}

	switch args[0] {
	case "inventory":
		return inventoryCmd(ctx, stdout, stderr, args[1:])
	case "playbook":
		return playbookCmd(ctx, stdout, stderr, args[1:])
	case "match":
		return matchCmd(ctx, stdout, stderr, args[1:])
	case "preset":
		return presetCmd(ctx, stdout, stderr, args[1:])
	case "help", "-h", "--help":
		fmt.Fprint(stdout, usage)
		return nil
	default:
		fmt.Fprint(stderr, usage)
		return usageError("unknown command: %s", args[0])
	}
}
