package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/term"

	ahnats "github.com/rahulnsecc/AI-4-all/internal/adapter/nats"
	"github.com/rahulnsecc/AI-4-all/internal/adapter/postgres"
	"github.com/rahulnsecc/AI-4-all/internal/config"
)

// runAdmin dispatches admin subcommands.
func runAdmin(args []string) error {
	if len(args) == 0 || args[0] == "help" || args[0] == "--help" {
		printAdminHelp()
		return nil
	}

	switch args[0] {
	case "create-api-key":
		return runAdminCreateAPIKey(args[1:])
	case "tail-reports":
		return runAdminTailReports(args[1:])
	default:
		printAdminHelp()
		return fmt.Errorf("unknown admin command: %s", args[0])
	}
}

func printAdminHelp() {
	fmt.Fprintf(os.Stderr, `Usage: agenthub admin <command> [options]

Commands:
  create-api-key   Create a new API key for client authentication
  tail-reports     Stream task reports from the message queue to stdout
  help             Show this help message

Examples:
  agenthub admin create-api-key --name ci-pipeline
  agenthub admin tail-reports --subject "reports.>"
`)
}

func runAdminCreateAPIKey(args []string) error {
	fs := flag.NewFlagSet("create-api-key", flag.ContinueOnError)
	name := fs.String("name", "", "key name (required)")
	key := fs.String("key", "", "key value (prompted if not provided)") //nolint:gosec // CLI flag
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *name == "" {
		return fmt.Errorf("--name is required")
	}

	value := *key
	if value == "" {
		var err error
		value, err = promptSecret("API key: ")
		if err != nil {
			return fmt.Errorf("read key: %w", err)
		}
		confirm, err := promptSecret("Confirm API key: ")
		if err != nil {
			return fmt.Errorf("read key: %w", err)
		}
		if value != confirm {
			return fmt.Errorf("keys do not match")
		}
	}
	if value == "" {
		return fmt.Errorf("key must not be empty")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(value), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash key: %w", err)
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	ctx := context.Background()
	pool, err := postgres.NewPool(ctx, cfg.Postgres)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer pool.Close()

	store := postgres.NewStore(pool)
	if err := store.CreateAPIKey(ctx, *name, string(hash)); err != nil {
		return fmt.Errorf("create api key: %w", err)
	}

	fmt.Fprintf(os.Stderr, "API key %q created. Clients authenticate with: Authorization: Bearer <key>\n", *name)
	return nil
}

// runAdminTailReports streams queue messages to stdout until interrupted.
// Useful for watching report delivery during development and incident review.
func runAdminTailReports(args []string) error {
	fs := flag.NewFlagSet("tail-reports", flag.ContinueOnError)
	subject := fs.String("subject", "reports.>", "queue subject filter")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	queue, err := ahnats.Connect(ctx, cfg.NATS.URL)
	if err != nil {
		return fmt.Errorf("connect to nats: %w", err)
	}
	defer func() { _ = queue.Close() }()

	cancel, err := queue.Subscribe(ctx, *subject, func(subj string, data []byte) error {
		fmt.Printf("%s %s\n", subj, data)
		return nil
	})
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", *subject, err)
	}
	defer cancel()

	fmt.Fprintf(os.Stderr, "tailing %s (ctrl-c to stop)\n", *subject)
	<-ctx.Done()
	return nil
}

// promptSecret reads a value from the terminal without echoing.
func promptSecret(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)
	b, err := term.ReadPassword(int(syscall.Stdin)) //nolint:unconvert // int conversion needed on some platforms
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
