package main

// Seed the configured backend with the demo fixtures:
//   go run ./cmd/seed
// Add random users and content for load demos:
//   go run ./cmd/seed -fake 50

import (
	"context"
	"flag"
	"fmt"
	"os"

	"papershare-backend/internal/bootstrap"
	"papershare-backend/internal/seed"
	"papershare-backend/internal/shared/config"
	"papershare-backend/internal/shared/telemetry"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		telemetry.Error("config.invalid", map[string]any{"error": err.Error()})
		os.Exit(1)
	}
	if err := run(context.Background(), cfg, os.Args[1:]); err != nil {
		telemetry.Error("seed.failed", map[string]any{"error": err.Error()})
		os.Exit(1)
	}
}

// run seeds and returns instead of exiting so the app is always closed.
func run(ctx context.Context, cfg config.Config, args []string) error {
	flags := flag.NewFlagSet("seed", flag.ContinueOnError)
	fake := flags.Int("fake", 0, "number of random users to generate")
	perUser := flags.Int("items", 3, "maximum papers and notes per generated user")
	if err := flags.Parse(args); err != nil {
		return err
	}

	cfg.SeedOnStart = true
	app, err := bootstrap.Build(cfg)
	if err != nil {
		return err
	}
	defer app.Close()

	if *fake > 0 {
		n, err := seed.Fake(ctx, app.UsersRepo, app.ContentRepo, seed.FakeOptions{
			Users:        *fake,
			ItemsPerUser: *perUser,
		})
		if err != nil {
			return fmt.Errorf("fake seed stopped after %d users: %w", n, err)
		}
		telemetry.Info("seed.fake_complete", map[string]any{"users": n})
	}
	return nil
}
