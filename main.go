package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"skillstreak/cmd"
	"skillstreak/database"

	log "github.com/sirupsen/logrus"
)

const usage = `usage:
  skillstreak serve
  skillstreak migrate up|down [n]|status
  skillstreak fund <owner> <amount>
  skillstreak simulate [markets]`

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, os.Args[1:]); err != nil {
		log.WithError(err).Fatal("skillstreak failed")
	}
}

func run(ctx context.Context, args []string) error {
	command := "serve"
	if len(args) > 0 {
		command = args[0]
	}

	switch command {
	case "serve":
		return cmd.Run(ctx)
	case "migrate":
		return handleMigrationCommand(args[1:])
	case "fund":
		if len(args) != 3 {
			return fmt.Errorf("%s", usage)
		}
		return cmd.Fund(ctx, args[1], args[2])
	case "simulate":
		markets := 10000
		if len(args) > 1 {
			n, err := strconv.Atoi(args[1])
			if err != nil || n <= 0 {
				return fmt.Errorf("invalid market count %q", args[1])
			}
			markets = n
		}
		return cmd.Simulate(os.Stdout, markets, time.Now().UnixNano())
	default:
		return fmt.Errorf("unknown command %q\n%s", command, usage)
	}
}

func handleMigrationCommand(args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: skillstreak migrate [up|down|status] [args...]")
	}

	switch args[0] {
	case "up":
		return database.MigrateUp()
	case "down":
		steps := "1"
		if len(args) > 1 {
			steps = args[1]
		}
		return database.MigrateDown(steps)
	case "status":
		return database.MigrateStatus()
	default:
		return fmt.Errorf("unknown migration command: %s", args[0])
	}
}
