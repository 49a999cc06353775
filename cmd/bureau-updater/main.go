// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"

	"github.com/bureau-foundation/updater/lib/clock"
	"github.com/bureau-foundation/updater/lib/config"
	"github.com/bureau-foundation/updater/lib/git"
	"github.com/bureau-foundation/updater/lib/process"
	"github.com/bureau-foundation/updater/lib/schema/forge"
	"github.com/bureau-foundation/updater/lib/sealed"
	"github.com/bureau-foundation/updater/lib/secret"
	"github.com/bureau-foundation/updater/lib/version"
	"github.com/bureau-foundation/updater/lib/watchdog"
	"github.com/bureau-foundation/updater/lib/webhook"
)

const (
	// shutdownGrace bounds the wait for in-flight requests and
	// pipeline runs after the root context is cancelled.
	shutdownGrace = 30 * time.Second

	// watchdogMaxAge is how old a transition record may be and still
	// describe the restart that started this process.
	watchdogMaxAge = 10 * time.Minute

	// legacySecretName is written next to the config by
	// --migrate-legacy.
	legacySecretName = "webhook.secret"
)

// exitError carries a process exit code out of run.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string {
	if e.err == nil {
		return fmt.Sprintf("exit %d", e.code)
	}
	return e.err.Error()
}

func (e *exitError) Unwrap() error { return e.err }

func (e *exitError) ExitCode() int { return e.code }

func main() {
	if err := run(); err != nil {
		var exit *exitError
		if errors.As(err, &exit) {
			if exit.code == process.ExitRestart {
				process.Restart()
			}
			process.FatalCode(os.Stderr, err, exit.code)
		}
		process.Fatal(err)
	}
}

type options struct {
	configPath    string
	envFile       string
	logLevel      string
	showVersion   bool
	migrateLegacy string
	once          string
}

func run() error {
	var opts options
	flagSet := pflag.NewFlagSet("bureau-updater", pflag.ContinueOnError)
	flagSet.StringVar(&opts.configPath, "config", "", "path to updater.yaml (default: $"+config.EnvironmentVariable+")")
	flagSet.StringVar(&opts.envFile, "env-file", "", "load environment variables from this .env file before reading config")
	flagSet.StringVar(&opts.logLevel, "log-level", "", "override log_level from config (debug, info, warn, error)")
	flagSet.BoolVar(&opts.showVersion, "version", false, "print version information and exit")
	flagSet.StringVar(&opts.migrateLegacy, "migrate-legacy", "", "convert a legacy github-listener.json to --config and exit")
	flagSet.StringVar(&opts.once, "once", "", "run the update pipeline for a stored push payload and exit")

	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return &exitError{code: process.ExitUsage, err: err}
	}
	if opts.showVersion {
		os.Stdout.WriteString(version.Full() + "\n")
		return nil
	}
	if args := flagSet.Args(); len(args) > 0 {
		return &exitError{code: process.ExitUsage, err: fmt.Errorf("unexpected argument: %s", args[0])}
	}

	if opts.envFile != "" {
		if err := godotenv.Load(opts.envFile); err != nil {
			return &exitError{code: process.ExitUsage, err: fmt.Errorf("loading env file: %w", err)}
		}
	}

	level := new(slog.LevelVar)
	if opts.logLevel != "" {
		parsed, err := parseLevel(opts.logLevel)
		if err != nil {
			return &exitError{code: process.ExitUsage, err: err}
		}
		level.Set(parsed)
	}
	logger := newLogger(os.Stderr, level)

	if opts.migrateLegacy != "" {
		return migrateLegacy(opts.migrateLegacy, opts.configPath, logger)
	}

	load := func() (*config.Config, error) {
		if opts.configPath != "" {
			return config.LoadFile(opts.configPath)
		}
		return config.Load()
	}
	cfg, err := load()
	if err != nil {
		return &exitError{code: process.ExitUsage, err: err}
	}
	applyLevel := func(cfg *config.Config) {
		if opts.logLevel != "" {
			return
		}
		if parsed, err := parseLevel(cfg.LogLevel); err == nil {
			level.Set(parsed)
		}
	}
	applyLevel(cfg)
	logger.Info("starting", "version", version.Info(), "repository", cfg.Repository, "branch", cfg.Branch.String())

	lock, err := acquireLock(cfg.LockPath())
	if err != nil {
		return err
	}
	defer func() {
		if err := lock.Release(); err != nil {
			logger.Warn("releasing update lock", "error", err)
		}
	}()

	clk := clock.Real()
	confirmUpdate(context.Background(), cfg, openCommitReader, clk, logger)

	signalContext, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(signalContext)
	defer cancel()

	host := &processHost{cancel: cancel, logger: logger}
	eventAgent, err := newAgent(ctx, load, newBuilder(host, clk, logger), logger)
	if err != nil {
		return err
	}
	eventAgent.onReload = applyLevel
	host.reload = eventAgent.Reload

	if opts.once != "" {
		err = runOnce(opts.once, eventAgent)
	} else {
		err = serve(ctx, cfg, eventAgent, clk, logger)
	}
	if err != nil {
		return err
	}

	if reason := host.restartReason(); reason != "" {
		logger.Info("exiting for restart", "reason", reason, "exit_code", process.ExitRestart)
		return &exitError{code: process.ExitRestart}
	}
	return nil
}

// serve runs the webhook listener until ctx is cancelled, then drains
// the listener and in-flight pipeline runs.
func serve(ctx context.Context, cfg *config.Config, eventAgent *agent, clk clock.Clock, logger *slog.Logger) error {
	secretBuffer, err := readSecret(cfg.Webhook)
	if err != nil {
		return err
	}
	var hmacSecret []byte
	if secretBuffer != nil {
		defer secretBuffer.Close()
		hmacSecret = secretBuffer.Bytes()
	}

	handler := webhook.NewHandler(webhook.HandlerConfig{
		Secret:        hmacSecret,
		AllowUnsigned: cfg.Webhook.AllowUnsigned,
		OnEvent:       eventAgent.HandleEvent,
		Logger:        logger,
	})
	server := webhook.NewServer(webhook.ServerConfig{
		Address: cfg.Webhook.Listen,
		Path:    cfg.Webhook.Path,
		Handler: handler,
		Logger:  logger,
	})

	serveDone := make(chan error, 1)
	go func() {
		serveDone <- server.Serve(ctx)
	}()

	select {
	case <-server.Ready():
		logger.Info("webhook listener ready",
			"address", server.Addr().String(),
			"path", cfg.Webhook.Path,
		)
	case err := <-serveDone:
		return fmt.Errorf("webhook listener: %w", err)
	}

	<-ctx.Done()
	logger.Info("shutting down")

	var serveErr error
	// The listener drains first so no handler can start a run while
	// the agent is being waited on.
	drained := drain(clk, shutdownGrace, func() {
		serveErr = <-serveDone
		eventAgent.Wait()
	})
	if !drained {
		logger.Warn("shutdown grace period expired with work in flight", "grace", shutdownGrace)
		return nil
	}
	if serveErr != nil {
		logger.Error("webhook listener error", "error", serveErr)
	}
	return nil
}

// readSecret loads the webhook secret into locked memory. A nil Buffer
// means unsigned deliveries; that is accepted only with AllowUnsigned.
func readSecret(settings config.WebhookConfig) (*secret.Buffer, error) {
	if settings.SecretFile == "" {
		return nil, nil
	}
	plaintext, err := sealed.ReadFile(settings.SecretFile, settings.IdentityFile)
	if err != nil {
		return nil, err
	}
	if len(plaintext) == 0 {
		if settings.AllowUnsigned {
			return nil, nil
		}
		return nil, fmt.Errorf("webhook secret file %s is empty", settings.SecretFile)
	}
	return secret.NewFromBytes(plaintext)
}

// runOnce feeds a stored push payload through the agent and waits for
// the pipeline to finish.
func runOnce(path string, eventAgent *agent) error {
	body, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading payload: %w", err)
	}
	event, err := webhook.Translate(forge.KindPush, body)
	if err != nil {
		return fmt.Errorf("payload %s: %w", path, err)
	}
	eventAgent.HandleEvent(event)
	eventAgent.Wait()
	return nil
}

// commitReader reads the checked-out commit.
type commitReader interface {
	CurrentCommit(ctx context.Context) (string, error)
}

func openCommitReader(dir string) (commitReader, error) {
	repository, err := git.Open(dir)
	if err != nil {
		return nil, err
	}
	return repository, nil
}

// restartStatus is what confirmUpdate concluded about the previous
// process's update.
type restartStatus int

const (
	restartNone restartStatus = iota
	restartUnconfirmed
	restartApplied
	restartUnchanged
)

// confirmUpdate reports on the restart that started this process, if
// any, and clears the transition record.
func confirmUpdate(ctx context.Context, cfg *config.Config, open func(string) (commitReader, error), clk clock.Clock, logger *slog.Logger) restartStatus {
	status := restartNone
	path := cfg.WatchdogPath()
	state, fresh, err := watchdog.Check(path, watchdogMaxAge, clk.Now())
	if err != nil {
		logger.Warn("reading update watchdog", "path", path, "error", err)
	}
	if fresh {
		current := ""
		if repository, err := open(cfg.WorkDir); err == nil {
			current, err = repository.CurrentCommit(ctx)
			if err != nil {
				logger.Warn("reading current commit", "error", err)
			}
		}
		switch {
		case current == "":
			status = restartUnconfirmed
			logger.Warn("cannot confirm update, current commit unknown",
				"run_id", state.RunID,
				"branch", state.Branch,
			)
		case state.Applied(current):
			status = restartApplied
			logger.Info("update applied",
				"run_id", state.RunID,
				"branch", state.Branch,
				"previous_commit", state.PreviousCommit,
				"current_commit", current,
			)
		default:
			status = restartUnchanged
			logger.Warn("update did not change commit",
				"run_id", state.RunID,
				"branch", state.Branch,
				"commit", state.PreviousCommit,
			)
		}
	}
	if err := watchdog.Clear(path); err != nil {
		logger.Warn("clearing update watchdog", "error", err)
	}
	return status
}

// migrateLegacy converts a legacy JSON config into YAML at configPath
// and writes its inline secret to a file beside it.
func migrateLegacy(legacyPath, configPath string, logger *slog.Logger) error {
	if configPath == "" {
		return &exitError{code: process.ExitUsage, err: errors.New("--migrate-legacy requires --config for the output path")}
	}
	if _, err := os.Stat(configPath); err == nil {
		return &exitError{code: process.ExitUsage, err: fmt.Errorf("%s already exists", configPath)}
	}
	data, err := os.ReadFile(legacyPath)
	if err != nil {
		return fmt.Errorf("reading legacy config: %w", err)
	}

	secretPath, err := filepath.Abs(filepath.Join(filepath.Dir(configPath), legacySecretName))
	if err != nil {
		return err
	}
	migration, err := config.Migrate(data, secretPath)
	if err != nil {
		return err
	}
	if migration.Secret != "" {
		if err := sealed.WriteFile(secretPath, []byte(migration.Secret), ""); err != nil {
			return err
		}
	}

	output, err := migration.Config.Marshal()
	if err != nil {
		return err
	}
	if err := os.WriteFile(configPath, output, 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	logger.Info("migrated legacy config",
		"from", legacyPath,
		"to", configPath,
		"secret_file", migration.Config.Webhook.SecretFile,
	)
	return nil
}
