// Command notesctl is a terminal client for the notes workspace.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"go-notes-workspace/internal/config"
	"go-notes-workspace/internal/logger"
	"go-notes-workspace/internal/model"
	"go-notes-workspace/internal/remote"
	"go-notes-workspace/internal/retry"
	"go-notes-workspace/internal/session"
	"go-notes-workspace/internal/store"
	"go-notes-workspace/internal/tokens"
	"go-notes-workspace/internal/upload"
	"go-notes-workspace/pkg/apierror"
)

type cli struct {
	cfg         *config.ClientConfig
	log         *slog.Logger
	client      *remote.Client
	store       *store.Store
	tokens      *tokens.Store
	pipeline    *upload.Pipeline
	session     *session.Session
	sessionPath string
}

func main() {
	_ = godotenv.Load()

	cfg, err := config.LoadClient()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	flag.StringVar(&cfg.APIURL, "server", cfg.APIURL, "Notes API base URL")
	flag.StringVar(&cfg.SessionFile, "session", cfg.SessionFile, "Session file")
	flag.IntVar(&cfg.UploadConcurrency, "concurrency", cfg.UploadConcurrency, "Concurrent uploads")
	flag.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level (debug, info, warn, error)")
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(os.Stderr, cfg.LogLevel, false)
	slog.SetDefault(log)

	c, err := newCLI(cfg, log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := c.run(ctx, args[0], args[1:]); err != nil {
		if errors.Is(err, errUsage) {
			printUsage()
		} else {
			fmt.Fprintf(os.Stderr, "Error: %s\n", apierror.DisplayMessage(err))
			log.Debug("command failed", "command", args[0], "error", err)
		}
		os.Exit(1)
	}
}

func newCLI(cfg *config.ClientConfig, log *slog.Logger) (*cli, error) {
	sess, err := session.Load(cfg.SessionFile)
	if err != nil {
		return nil, err
	}

	retryCfg := retry.DefaultConfig()
	retryCfg.MaxAttempts = cfg.RetryAttempts
	retryCfg.InitialWait = cfg.RetryInitialWait

	client := remote.New(remote.Config{
		BaseURL:     cfg.APIURL,
		Timeout:     cfg.Timeout,
		RetryConfig: retryCfg,
		Logger:      log,
	})
	client.SetTokens(sess.AccessToken, sess.RefreshToken)

	st := store.New(client, log)
	sess.ApplyPreferences(st)

	c := &cli{
		cfg:    cfg,
		log:    log,
		client: client,
		store:  st,
		tokens: tokens.New(client, log, tokens.Options{
			LowBalanceThreshold: cfg.LowBalanceThreshold,
			WindowDays:          cfg.UsageWindowDays,
		}),
		pipeline:    upload.New(st, log, cfg.UploadConcurrency),
		session:     sess,
		sessionPath: cfg.SessionFile,
	}

	client.OnRefresh(func(pair model.TokenPair) {
		c.session.SetAuth(pair)
		if err := session.Save(c.sessionPath, c.session); err != nil {
			log.Warn("failed to persist refreshed session", "error", err)
		}
	})

	return c, nil
}

func printUsage() {
	fmt.Println(`notesctl - notes workspace client

Usage: notesctl [flags] <command> [args]

Flags:
  -server <url>       Notes API base URL (default: $NOTES_API_URL)
  -session <file>     Session file (default: user config dir)
  -concurrency <n>    Concurrent uploads (default: 3)
  -log-level <level>  debug, info, warn or error

Commands:
  register <user> <password>       Create an account and sign in
  login <user> [password]          Sign in (password read from stdin if omitted)
  logout                           Sign out and forget the session
  ls [folderID]                    List a folder (root by default)
  mkdir <name> [parentID]          Create a folder
  rmdir <folderID>                 Delete a folder
  rm <documentID>                  Delete a document
  upload [-to folderID] <files...> Upload files
  shared                           List documents shared with you
  share <documentID> <user> <view|edit>
  usage                            Show storage usage
  tokens [days]                    Show token balance and usage
  consume <amount> <feature>       Record token consumption
  view <grid|list>                 Set the listing layout
  sort <name|size|updated_at|type> [asc|desc]
  watch                            Stream notifications
  help                             Show this help message`)
}
