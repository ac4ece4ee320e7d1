package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/okian/podium/internal/adapters/challonge"
	"github.com/okian/podium/internal/adapters/probe"
	"github.com/okian/podium/internal/adapters/store"
	"github.com/okian/podium/internal/app"
	"github.com/okian/podium/internal/config"
	"github.com/okian/podium/internal/domain/model"
	"github.com/okian/podium/pkg/logger"
	"github.com/urfave/cli/v2"
)

func main() {
	// Best-effort .env load; real env always wins.
	_ = godotenv.Load()

	if err := logger.Init(os.Stderr); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}

	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cliApp := &cli.App{
		Name:  "podium",
		Usage: "merge a completed bracket's results into the persistent leaderboard",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "bracket", Aliases: []string{"b"}, Usage: "challonge bracket `<url>` or id", Required: true},
			&cli.Int64Flag{Name: "game", Usage: "override the bracket's game classifier `<id>`"},
			&cli.BoolFlag{Name: "dry-run", Usage: "render the report without touching any store"},
			&cli.BoolFlag{Name: "new", Usage: "list unranked identities without adding them, implies --dry-run"},
			&cli.BoolFlag{Name: "players", Usage: "show the bracket's handle-to-identity table and exit"},
			&cli.StringSliceFlag{Name: "dump", Usage: "dump the raw provider payload `<type>` (tournament, participants)"},
			&cli.StringSliceFlag{Name: "force", Usage: "force an entry as `<identity>=<placement>`"},
			&cli.StringSliceFlag{Name: "exclude", Usage: "remove `<handle>` from processing"},
			&cli.BoolFlag{Name: "rerun", Usage: "process the bracket even if it was already merged"},
			&cli.BoolFlag{Name: "quiet", Aliases: []string{"q"}, Usage: "suppress some output"},
			&cli.StringFlag{Name: "config", Usage: "path to the configuration `<file>`"},
		},
		Action: run,
	}

	if err := cliApp.RunContext(ctx, os.Args); err != nil {
		os.Stderr.WriteString(err.Error() + "\n")
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	ctx := c.Context

	cfg, err := config.Load(ctx, c.String("config"))
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		_ = logger.SetLevelString("info")
	}
	if c.Bool("quiet") {
		_ = logger.SetLevelString("warn")
	}
	log := logger.Get()

	files := store.New(cfg.DatabaseDir)
	username, key := cfg.ChallongeUsername, cfg.ChallongeKey
	if username == "" || key == "" {
		creds, err := files.LoadCredentials()
		if err != nil {
			return cli.Exit("missing provider credentials: "+err.Error(), 1)
		}
		username, key = creds.Challonge.Username, creds.Challonge.Key
	}

	forced, err := parseForced(c.StringSlice("force"))
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}

	svc := app.New(
		app.WithLogger(log),
		app.WithProvider(challonge.New(username, key, challonge.WithBaseURL(cfg.ProviderBaseURL))),
		app.WithProber(probe.New(
			probe.WithURLPattern(cfg.ProbeURLPattern),
			probe.WithUserAgent(cfg.ProbeUserAgent),
		)),
		app.WithStores(files),
		app.WithPlacementLimit(cfg.PlacementLimit),
		app.WithGameLedgers(cfg.GameLedgers),
		app.WithIdentityPrefix(cfg.IdentityPrefix),
		app.WithMetricsFile(cfg.MetricsFile),
	)

	result, err := svc.Run(ctx, app.RunRequest{
		Bracket:     c.String("bracket"),
		GameID:      c.Int64("game"),
		DryRun:      c.Bool("dry-run"),
		NewOnly:     c.Bool("new"),
		PlayersOnly: c.Bool("players"),
		Rerun:       c.Bool("rerun"),
		Dump:        c.StringSlice("dump"),
		Forced:      forced,
		Exclusions:  c.StringSlice("exclude"),
	})
	if errors.Is(err, app.ErrAlreadyProcessed) {
		// Benign guard against double-counting, not a failure.
		fmt.Println(err.Error() + "; pass --rerun to merge it again")
		return nil
	}
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}

	if !c.Bool("quiet") {
		fmt.Printf("Tournament ID: %d\n", result.Tournament.ID)
		fmt.Printf("Tournament Name: %s\n", result.Tournament.Name)
	}
	for _, kind := range c.StringSlice("dump") {
		fmt.Println(result.Dumps[kind])
	}
	if result.PlayerTable != "" {
		fmt.Print(result.PlayerTable)
		return nil
	}
	for _, id := range result.NewIdentities {
		fmt.Println(newUserLine(cfg.IdentityPrefix, id))
	}
	fmt.Print(result.Report)
	return nil
}

// newUserLine formats the notice for an identity not yet on the board,
// prefixed the same way the report prefixes it.
func newUserLine(prefix, id string) string {
	return "new user " + prefix + id
}

// parseForced turns repeated identity=placement flags into entries.
func parseForced(values []string) ([]model.ForcedEntry, error) {
	entries := make([]model.ForcedEntry, 0, len(values))
	for _, v := range values {
		handle, rankStr, ok := strings.Cut(v, "=")
		if !ok || handle == "" {
			return nil, fmt.Errorf("invalid --force value %q, want identity=placement", v)
		}
		placement, err := strconv.Atoi(rankStr)
		if err != nil || placement <= 0 {
			return nil, fmt.Errorf("invalid --force placement in %q", v)
		}
		entries = append(entries, model.ForcedEntry{Handle: handle, Placement: placement})
	}
	return entries, nil
}
