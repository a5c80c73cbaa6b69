package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/urfave/cli/v2"

	sentimentoor "github.com/anatolykoptev/go-sentimentoor"
	"github.com/anatolykoptev/go-sentimentoor/config"
	"github.com/anatolykoptev/go-sentimentoor/runner"
	"github.com/anatolykoptev/go-sentimentoor/sentiment"
)

const version = "0.1.0"

// transportOverride replaces the default stealth transport when set.
var transportOverride sentimentoor.Transport

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newApp(os.Stdout, os.Stderr).RunContext(ctx, os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

func newApp(stdout, stderr io.Writer) *cli.App {
	return &cli.App{
		Name:      "sentimentoor",
		Usage:     "Score the sentiment of a Twitter list's posts for one day",
		Version:   version,
		Writer:    stdout,
		ErrWriter: stderr,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Load configuration from `FILE` (default ./sentimentoor.json if present)",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "trace, debug, info, warn or error",
			},
			&cli.StringFlag{
				Name:  "log-format",
				Usage: "text or json",
			},
		},
		Commands: []*cli.Command{
			runCommand(),
			followingCommand(),
		},
		DefaultCommand: "run",
	}
}

func runCommand() *cli.Command {
	return &cli.Command{
		Name:  "run",
		Usage: "Fetch list members and score their posts for a day",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "list-id",
				Aliases: []string{"l"},
				Usage:   "Override twitter_list_id",
			},
			&cli.StringFlag{
				Name:    "date",
				Aliases: []string{"d"},
				Usage:   "Target day as YYYY-MM-DD (UTC). Defaults to today",
			},
			&cli.IntFlag{
				Name:  "concurrency",
				Usage: "Members processed in parallel",
			},
			&cli.BoolFlag{
				Name:  "continue-on-error",
				Usage: "Report failed members instead of aborting the run",
			},
			&cli.StringFlag{
				Name:    "format",
				Aliases: []string{"f"},
				Usage:   "Output format: text or json",
			},
		},
		Action: runSentiment,
	}
}

func followingCommand() *cli.Command {
	return &cli.Command{
		Name:  "following",
		Usage: "List the accounts twitter_user_id follows",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "user-id",
				Aliases: []string{"u"},
				Usage:   "Override twitter_user_id",
			},
		},
		Action: runFollowing,
	}
}

// loadConfig reads the config file and env, then applies flags that were set.
func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return nil, err
	}
	if c.IsSet("log-level") {
		cfg.LogLevel = c.String("log-level")
	}
	if c.IsSet("log-format") {
		cfg.LogFormat = c.String("log-format")
	}
	if c.IsSet("list-id") {
		cfg.ListID = c.String("list-id")
	}
	if c.IsSet("date") {
		cfg.TargetDate = c.String("date")
	}
	if c.IsSet("concurrency") {
		cfg.Concurrency = c.Int("concurrency")
	}
	if c.IsSet("continue-on-error") {
		cfg.ContinueOnError = c.Bool("continue-on-error")
	}
	if c.IsSet("format") {
		cfg.OutputFormat = c.String("format")
	}
	if c.IsSet("user-id") {
		cfg.UserID = c.String("user-id")
	}
	return cfg, nil
}

func newClient(cfg *config.Config, logger *slog.Logger, tally *requestTally) (*sentimentoor.Client, error) {
	limits, err := cfg.ClientRateLimits()
	if err != nil {
		return nil, err
	}
	return sentimentoor.NewClient(sentimentoor.ClientConfig{
		BearerTokens:   cfg.Tokens(),
		BaseURL:        cfg.APIBaseURL,
		Proxy:          cfg.Proxy,
		RequestTimeout: cfg.RequestTimeout,
		MaxRetries:     cfg.MaxRetries,
		MaxPages:       cfg.MaxPages,
		RateLimits:     limits,
		RateLimitWait:  cfg.RateLimitWait,
		MetricsHook:    tally.record,
		Transport:      transportOverride,
		Logger:         logger,
	})
}

func runSentiment(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	day, _ := cfg.Day()

	logger := cfg.NewLogger(c.App.ErrWriter)
	slog.SetDefault(logger)

	tally := newRequestTally(logger)
	client, err := newClient(cfg, logger, tally)
	if err != nil {
		return fmt.Errorf("client: %w", err)
	}
	defer tally.log()

	agg := sentiment.NewAggregator(sentiment.NewVaderScorer(), logger)
	reporter := runner.WriterReporter{W: c.App.Writer, Format: cfg.OutputFormat}
	r := runner.New(client, agg, reporter, runner.Config{
		ListID:          cfg.ListID,
		Day:             day,
		Concurrency:     cfg.Concurrency,
		ContinueOnError: cfg.ContinueOnError,
	}, logger)

	_, err = r.Run(c.Context)
	return err
}

func runFollowing(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	if err := cfg.ValidateFollowing(); err != nil {
		return err
	}

	logger := cfg.NewLogger(c.App.ErrWriter)
	slog.SetDefault(logger)

	tally := newRequestTally(logger)
	client, err := newClient(cfg, logger, tally)
	if err != nil {
		return fmt.Errorf("client: %w", err)
	}
	defer tally.log()

	users, err := client.GetFollowing(c.Context, cfg.UserID)
	if err != nil {
		return err
	}
	for _, u := range users {
		fmt.Fprintf(c.App.Writer, "%s\t@%s\t%s\n", u.ID, u.Handle, u.DisplayName)
	}
	return nil
}

// requestTally counts API calls per endpoint for the end-of-run log line.
type requestTally struct {
	logger *slog.Logger

	mu          sync.Mutex
	ok          map[string]int
	failed      map[string]int
	rateLimited map[string]int
}

func newRequestTally(logger *slog.Logger) *requestTally {
	return &requestTally{
		logger:      logger,
		ok:          make(map[string]int),
		failed:      make(map[string]int),
		rateLimited: make(map[string]int),
	}
}

func (t *requestTally) record(endpoint string, success, rateLimited bool) {
	t.logger.Debug("api call",
		slog.String("endpoint", endpoint),
		slog.Bool("success", success),
		slog.Bool("rate_limited", rateLimited))

	t.mu.Lock()
	defer t.mu.Unlock()
	switch {
	case success:
		t.ok[endpoint]++
	case rateLimited:
		t.rateLimited[endpoint]++
	default:
		t.failed[endpoint]++
	}
}

func (t *requestTally) log() {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, ep := range []string{sentimentoor.OpListMembers, sentimentoor.OpUserPosts, sentimentoor.OpFollowing} {
		if t.ok[ep]+t.failed[ep]+t.rateLimited[ep] == 0 {
			continue
		}
		t.logger.Info("api requests",
			slog.String("endpoint", ep),
			slog.Int("ok", t.ok[ep]),
			slog.Int("failed", t.failed[ep]),
			slog.Int("rate_limited", t.rateLimited[ep]))
	}
}
