package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"

	"github.com/tailored-agentic-units/therapy/core/protocol"
	"github.com/tailored-agentic-units/therapy/identity"
	"github.com/tailored-agentic-units/therapy/observability"
	"github.com/tailored-agentic-units/therapy/server"
	"github.com/tailored-agentic-units/therapy/therapist"
	"github.com/tailored-agentic-units/therapy/voice"
)

func main() {
	var (
		configFile   = flag.String("config", "", "Path to therapist config JSON or YAML file")
		name         = flag.String("name", "", "Display name for a new user (prompted when empty)")
		userID       = flag.String("user", "", "Existing user id (overrides the identity file)")
		sessionID    = flag.String("session", "", "Session id to resume (a new session is created when empty)")
		identityFile = flag.String("identity-file", identity.DefaultFile, "File that remembers the user id between runs")
		serveAddr    = flag.String("serve", "", "Serve Connect and WebSocket endpoints on this address instead of chatting")
		remoteURL    = flag.String("remote", "", "Chat through a running server at this base URL")
		listen       = flag.Duration("listen", 10*time.Minute, "How long to wait for each line of input")
		eventLog     = flag.String("event-log", "", "Append events as JSON lines to this file")
		eventLevel   = flag.String("event-level", "info", "Minimum event level for -event-log (verbose, info, warning, error)")
		logContent   = flag.Bool("log-content", false, "Include conversation text in logs")
		verbose      = flag.Bool("verbose", false, "Enable verbose logging to stderr")
	)
	flag.Parse()

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Fatalf("Failed to load .env: %v", err)
	}

	cfg := therapist.DefaultConfig()
	if *configFile != "" {
		loaded, err := therapist.LoadConfig(*configFile)
		if err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}
		cfg = *loaded
	}

	level := slog.LevelWarn
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	observer, closeLog, err := newObserver(logger, *eventLog, *eventLevel, *logContent)
	if err != nil {
		log.Fatalf("Failed to open event log: %v", err)
	}
	defer closeLog()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	opts := chatOptions{
		name:         *name,
		userID:       *userID,
		sessionID:    *sessionID,
		identityFile: *identityFile,
		listen:       *listen,
	}

	if *remoteURL != "" {
		client := server.NewClient(http.DefaultClient, *remoteURL)
		opts.responder = remoteResponder{client: client}
		opts.createUser = client.CreateUser
		opts.createSession = client.CreateSession
		opts.resume = client.Resume
		run(ctx, opts)
		return
	}

	ids := identity.NewManager()

	th, err := therapist.New(&cfg, therapist.WithObserver(observer))
	if err != nil {
		log.Fatalf("Failed to create therapist: %v", err)
	}
	defer th.Close()

	if *serveAddr != "" {
		srv := server.New(th, ids, server.WithObserver(observer))
		fmt.Fprintf(os.Stderr, "Listening on %s\n", *serveAddr)
		if err := srv.ListenAndServe(ctx, *serveAddr); err != nil {
			log.Fatalf("Server failed: %v", err)
		}
		return
	}

	opts.responder = th
	opts.createUser = func(_ context.Context, name string) (string, error) {
		return ids.CreateUser(name)
	}
	opts.createSession = func(_ context.Context, userID string) (string, error) {
		return ids.CreateSession(userID), nil
	}
	opts.resume = func(ctx context.Context, id string) ([]protocol.Message, bool, error) {
		history, ok := th.Resume(ctx, id)
		return history, ok, nil
	}
	opts.clear = th.Clear
	opts.sessions = th.Sessions
	run(ctx, opts)
}

func run(ctx context.Context, opts chatOptions) {
	err := chat(ctx, os.Stdin, os.Stdout, opts)
	if err != nil && !errors.Is(err, voice.ErrInputClosed) && !errors.Is(err, context.Canceled) {
		log.Fatalf("Chat failed: %v", err)
	}
}

// newObserver logs events to logger and, when path is set, also appends
// events at or above minLevel to path as JSON lines.
func newObserver(logger *slog.Logger, path, minLevel string, content bool) (observability.Observer, func() error, error) {
	var opts []observability.SlogOption
	if content {
		opts = append(opts, observability.WithContent())
	}

	console := observability.NewSlogObserver(logger, opts...)
	if path == "" {
		return console, func() error { return nil }, nil
	}

	floor, ok := observability.ParseLevel(minLevel)
	if !ok {
		return nil, nil, fmt.Errorf("unknown event level %q", minLevel)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, nil, err
	}

	file := observability.NewSlogObserver(slog.New(slog.NewJSONHandler(f, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	})), opts...)
	return observability.NewMultiObserver(console, observability.NewLevelFilter(floor, file)), f.Close, nil
}
