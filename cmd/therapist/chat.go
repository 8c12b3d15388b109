package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/tailored-agentic-units/therapy/core/outcome"
	"github.com/tailored-agentic-units/therapy/core/protocol"
	"github.com/tailored-agentic-units/therapy/identity"
	"github.com/tailored-agentic-units/therapy/server"
	"github.com/tailored-agentic-units/therapy/session"
	"github.com/tailored-agentic-units/therapy/therapist"
	"github.com/tailored-agentic-units/therapy/voice"
)

const replyPrefix = "Therapist: "

// errHandled marks input consumed by a slash command.
var errHandled = errors.New("command handled")

type chatOptions struct {
	responder     voice.Responder
	createUser    func(ctx context.Context, name string) (string, error)
	createSession func(ctx context.Context, userID string) (string, error)
	resume        func(ctx context.Context, sessionID string) ([]protocol.Message, bool, error)
	clear         func(ctx context.Context, sessionID string) error
	sessions      func(ctx context.Context) ([]string, error)

	name         string
	userID       string
	sessionID    string
	identityFile string
	listen       time.Duration
}

// chat runs the interactive loop until a farewell, end of input, or ctx
// is cancelled.
func chat(ctx context.Context, in io.Reader, out io.Writer, opts chatOptions) error {
	rec := voice.NewLineRecognizer(in)
	syn := voice.NewWriterSynthesizer(out, replyPrefix)

	userID, err := resolveUser(ctx, rec, out, opts)
	if err != nil {
		return err
	}

	sess, err := openSession(ctx, userID, opts)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "Session %s. Type /clear to start over, /replay to repeat the last reply, /sessions to list past sessions, or bye to leave.\n", sess.ID())

	c := &commands{inner: rec, out: out, syn: syn, sess: sess, opts: opts}
	for {
		turn, err := voice.Exchange(ctx, c, opts.responder, syn, c.sess, opts.listen)
		switch {
		case errors.Is(err, errHandled),
			errors.Is(err, voice.ErrNoSpeech),
			errors.Is(err, voice.ErrNotUnderstood):
			continue
		case err != nil:
			return err
		}

		if turn.Farewell {
			return nil
		}
		if !turn.Result.Success {
			fmt.Fprintln(out, replyPrefix+turn.Result.Reply)
		}
	}
}

func resolveUser(ctx context.Context, rec voice.Recognizer, out io.Writer, opts chatOptions) (string, error) {
	if opts.userID != "" {
		return opts.userID, identity.Save(opts.identityFile, opts.userID)
	}

	saved, err := identity.Load(opts.identityFile)
	if err != nil {
		return "", err
	}
	if saved != "" {
		fmt.Fprintf(out, "Welcome back, %s.\n", saved)
		return saved, nil
	}

	name := strings.TrimSpace(opts.name)
	for name == "" {
		fmt.Fprint(out, "What should I call you? ")
		heard := rec.Recognize(ctx, opts.listen)
		if text, ok := heard.Get(); ok {
			name = strings.TrimSpace(text)
			continue
		}
		if err := heard.Error(); errors.Is(err, voice.ErrInputClosed) || ctx.Err() != nil {
			return "", err
		}
	}

	userID, err := opts.createUser(ctx, name)
	if err != nil {
		return "", err
	}
	return userID, identity.Save(opts.identityFile, userID)
}

func openSession(ctx context.Context, userID string, opts chatOptions) (session.Session, error) {
	if opts.sessionID == "" {
		id, err := opts.createSession(ctx, userID)
		if err != nil {
			return nil, err
		}
		return session.NewMemorySession(id, userID), nil
	}

	sess := session.NewMemorySession(opts.sessionID, userID)
	history, ok, err := opts.resume(ctx, opts.sessionID)
	if err != nil {
		return nil, err
	}
	if ok {
		sess.Replace(history)
	}
	return sess, nil
}

// commands intercepts slash commands before they reach the therapist.
type commands struct {
	inner voice.Recognizer
	out   io.Writer
	syn   voice.Synthesizer
	sess  session.Session
	opts  chatOptions
}

func (c *commands) Recognize(ctx context.Context, timeout time.Duration) outcome.Outcome[string] {
	heard := c.inner.Recognize(ctx, timeout)
	text, ok := heard.Get()
	if !ok {
		return heard
	}

	switch strings.TrimSpace(text) {
	case "/clear":
		if err := c.reset(ctx); err != nil {
			return outcome.Fail[string](err)
		}
		return outcome.Fail[string](errHandled)
	case "/replay":
		if !voice.ReplayLast(ctx, c.syn, c.sess.Messages()).IsOk() {
			fmt.Fprintln(c.out, "Nothing to replay yet.")
		}
		return outcome.Fail[string](errHandled)
	case "/sessions":
		if err := c.list(ctx); err != nil {
			return outcome.Fail[string](err)
		}
		return outcome.Fail[string](errHandled)
	}
	return heard
}

// list prints the current user's sessions with saved history.
func (c *commands) list(ctx context.Context) error {
	if c.opts.sessions == nil {
		fmt.Fprintln(c.out, "Session listing is not available here.")
		return nil
	}

	ids, err := c.opts.sessions(ctx)
	if err != nil {
		return err
	}

	var owned []string
	for _, id := range ids {
		if identity.OwnsSession(c.sess.UserID(), id) {
			owned = append(owned, id)
		}
	}
	if len(owned) == 0 {
		fmt.Fprintln(c.out, "No saved sessions yet.")
		return nil
	}
	for _, id := range owned {
		marker := " "
		if id == c.sess.ID() {
			marker = "*"
		}
		fmt.Fprintf(c.out, "%s %s\n", marker, id)
	}
	return nil
}

func (c *commands) reset(ctx context.Context) error {
	if c.opts.clear != nil {
		if err := c.opts.clear(ctx, c.sess.ID()); err != nil {
			return err
		}
	}

	id, err := c.opts.createSession(ctx, c.sess.UserID())
	if err != nil {
		return err
	}
	c.sess = session.NewMemorySession(id, c.sess.UserID())
	fmt.Fprintf(c.out, "Started a fresh session %s.\n", id)
	return nil
}

// remoteResponder forwards turns to a running server, which keeps the
// authoritative history.
type remoteResponder struct {
	client *server.Client
}

func (r remoteResponder) Respond(ctx context.Context, text string, history []protocol.Message, userID, sessionID string) therapist.Result {
	reply, ok, err := r.client.Respond(ctx, text, userID, sessionID)
	if err != nil {
		reply, ok = therapist.DefaultFallback, false
	}
	return therapist.Result{
		Reply:   reply,
		Success: ok,
		History: append(protocol.Clone(history), protocol.Human(text), protocol.Assistant(reply)),
	}
}
