package main

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jessevdk/go-flags"
	"github.com/lysyi3m/epgfetch/app/cfg"
	"github.com/lysyi3m/epgfetch/app/companion"
	"github.com/lysyi3m/epgfetch/app/database"
	"github.com/lysyi3m/epgfetch/app/feed"
	"github.com/lysyi3m/epgfetch/app/logger"
	"github.com/lysyi3m/epgfetch/app/metrics"
	"github.com/lysyi3m/epgfetch/app/tasks"
	"github.com/lysyi3m/epgfetch/app/telemetry"
)

const (
	exitOK = iota
	exitUsage
	exitConfig
	exitNetwork
	exitParse
	exitStore
)

type configArgs struct {
	Config string `positional-arg-name:"CONFIG" description:"Path to the JSON or YAML config document"`
}

type application struct {
	ctx  context.Context
	opts *cfg.Options
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:])
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string) int {
	var opts cfg.Options
	app := &application{ctx: ctx, opts: &opts}

	parser := flags.NewParser(&opts, flags.HelpFlag|flags.PassDoubleDash)
	parser.Name = "epgfetch"

	parser.AddCommand("fetch",
		"Fetch EPG data",
		"Fetch listings for every catalog channel and replace the stored programmes.",
		&fetchCommand{app: app})
	parser.AddCommand("check-subscriptions",
		"Refresh companion subscriptions",
		"Ask the companion web service to refresh subscription state. Service failures are logged, never fatal.",
		&checkSubscriptionsCommand{app: app})
	parser.AddCommand("register-streams",
		"Register live streams",
		"Resolve HLS stream URLs and register them with the companion web service. Service failures are logged, never fatal.",
		&registerStreamsCommand{app: app})
	parser.AddCommand("list",
		"List stored programmes",
		"Print the stored programmes of one channel.",
		&listCommand{app: app})
	parser.AddCommand("version",
		"Print version",
		"Print the epgfetch version.",
		&versionCommand{})

	defer telemetry.Flush()

	if _, err := parser.ParseArgs(args); err != nil {
		var flagsErr *flags.Error
		if errors.As(err, &flagsErr) {
			if flagsErr.Type == flags.ErrHelp {
				fmt.Fprintln(os.Stdout, flagsErr.Message)
				return exitOK
			}
			fmt.Fprintln(os.Stderr, flagsErr.Message)
			return exitUsage
		}

		slog.Error("Command failed", "error", err)
		return exitCode(err)
	}

	return exitOK
}

func exitCode(err error) int {
	var (
		cfgErr   *cfg.Error
		fetchErr *feed.FetchError
		parseErr *feed.ParseError
		storeErr *database.StoreError
	)

	switch {
	case errors.As(err, &cfgErr):
		return exitConfig
	case errors.As(err, &fetchErr):
		return exitNetwork
	case errors.As(err, &parseErr):
		return exitParse
	case errors.As(err, &storeErr):
		return exitStore
	default:
		return exitUsage
	}
}

// load resolves the configuration and sets up logging and error reporting.
func (a *application) load(path string) (*cfg.Cfg, error) {
	config, err := cfg.Load(a.opts, path)
	if err != nil {
		return nil, err
	}

	slog.SetDefault(logger.New(config.LogFormat, config.LogLevel))

	if err := telemetry.InitSentry(config.SentryDSN, config.Version); err != nil {
		slog.Warn("Error reporting disabled", "error", err)
	}

	slog.Debug("Configuration loaded",
		"version", config.Version,
		"mode", config.Mode,
		"days", config.FetchDays,
		"sqlite", config.UsesSQLite(),
		"timezone", config.Location.String())

	return config, nil
}

func (a *application) openStore(config *cfg.Cfg) (*database.DB, error) {
	var (
		db  *database.DB
		err error
	)

	if config.UsesSQLite() {
		db, err = database.NewSQLiteConnection(config.DBPath)
	} else {
		db, err = database.NewConnection(config.DBHost, config.DBPort, config.DBUser, config.DBPass, config.DBName)
	}
	if err != nil {
		return nil, &database.StoreError{Op: "connect", Err: err}
	}

	version, dirty, err := database.RunMigrations(db)
	if err != nil {
		db.Close()
		return nil, &database.StoreError{Op: "migrate", Err: err}
	}

	slog.Debug("Connected to database", "dialect", db.Dialect(), "schema_version", version, "dirty", dirty)

	return db, nil
}

func (a *application) pushMetrics(config *cfg.Cfg, recorder *metrics.Recorder) {
	if config.Pushgateway == "" {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	instance, _ := os.Hostname()
	if err := recorder.Push(ctx, config.Pushgateway, metrics.DefaultJob, instance); err != nil {
		slog.Warn("Failed to push run metrics", "error", err)
	}
}

type fetchCommand struct {
	app  *application
	Args configArgs `positional-args:"yes"`
}

func (c *fetchCommand) Execute(_ []string) error {
	config, err := c.app.load(c.Args.Config)
	if err != nil {
		return err
	}
	if err := config.ValidateStore(); err != nil {
		return err
	}

	cat, err := config.Catalog()
	if err != nil {
		return &cfg.Error{Field: "EPGChannels", Err: err}
	}

	db, err := c.app.openStore(config)
	if err != nil {
		telemetry.CaptureError(err, nil)
		return err
	}
	defer db.Close()

	fetcher := feed.NewFetcher(feed.FetcherConfig{
		BaseURL:   config.EPGBaseURL,
		Mode:      config.Mode,
		UserAgent: config.UserAgent,
		Delay:     config.Delay,
		Client:    &http.Client{Timeout: config.Timeout},
	})
	parser := feed.NewParser(config.Mode, config.Languages, config.Location)
	repo := database.NewProgrammeRepository(db, config.Location)
	recorder := metrics.NewRecorder()
	runner := tasks.NewRunner(recorder)

	dates := feed.Dates(time.Now().In(config.Location), config.FetchDays)
	slog.Info("Fetching EPG data",
		"run_id", runner.RunID(),
		"channels", cat.Len(),
		"days", len(dates),
		"mode", config.Mode,
		"base_url", cmp.Or(config.EPGBaseURL, config.Mode.DefaultBaseURL()))

	started := time.Now()
	err = runner.Run(c.app.ctx, tasks.NewSyncTasks(cat, dates, fetcher, parser, repo, recorder, config.IgnoreFetchErrors))
	recorder.RunFinished(time.Since(started), err == nil)
	c.app.pushMetrics(config, recorder)

	if err != nil {
		telemetry.CaptureError(err, map[string]string{"run_id": runner.RunID()})
		return err
	}

	stats := fetcher.Stats()
	slog.Info("EPG data fetched",
		"run_id", runner.RunID(),
		"duration", time.Since(started),
		"requests", stats.Requests,
		"cache_hits", stats.CacheHits)

	return nil
}

type checkSubscriptionsCommand struct {
	app  *application
	Args configArgs `positional-args:"yes"`
}

func (c *checkSubscriptionsCommand) Execute(_ []string) error {
	config, err := c.app.load(c.Args.Config)
	if err != nil {
		return err
	}
	if err := config.ValidateCompanion(); err != nil {
		return err
	}

	client := companion.NewClient(config.CompanionBaseURL(), &http.Client{Timeout: companion.DefaultTimeout}, config.UserAgent)
	return tasks.NewRunner(metrics.NewRecorder()).Run(c.app.ctx, []tasks.TaskInterface{
		tasks.NewCheckSubscriptionsTask(client),
	})
}

type registerStreamsCommand struct {
	app  *application
	Args configArgs `positional-args:"yes"`
}

func (c *registerStreamsCommand) Execute(_ []string) error {
	config, err := c.app.load(c.Args.Config)
	if err != nil {
		return err
	}
	if err := config.ValidateCompanion(); err != nil {
		return err
	}

	client := companion.NewClient(config.CompanionBaseURL(), &http.Client{Timeout: companion.DefaultTimeout}, config.UserAgent)
	return tasks.NewRunner(metrics.NewRecorder()).Run(c.app.ctx, []tasks.TaskInterface{
		tasks.NewRegisterStreamsTask(client, config.Streams, config.CompanionChannels),
	})
}

type versionCommand struct{}

func (c *versionCommand) Execute(_ []string) error {
	fmt.Println(cfg.GetVersion())
	return nil
}
