// Package voice connects speech front ends to the therapist: a Recognizer
// turns audio into text, the therapist answers, and a Synthesizer speaks
// the reply. Speech engines are external collaborators; this package holds
// their contracts, the exchange loop and text stand-ins used by the CLI.
package voice

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/tailored-agentic-units/therapy/core/outcome"
	"github.com/tailored-agentic-units/therapy/core/protocol"
	"github.com/tailored-agentic-units/therapy/session"
	"github.com/tailored-agentic-units/therapy/therapist"
)

// DefaultListenTimeout bounds how long Exchange waits for speech.
const DefaultListenTimeout = 10 * time.Second

var (
	ErrNoSpeech       = errors.New("listening timeout, no speech detected")
	ErrNotUnderstood  = errors.New("could not understand audio")
	ErrNoRecognizer   = errors.New("no speech recognizer configured")
	ErrInputClosed    = errors.New("speech input closed")
	ErrNothingToReply = errors.New("no assistant turn to replay")
)

// Recognizer captures one utterance. Failed outcomes carry ErrNoSpeech,
// ErrNotUnderstood, ErrInputClosed or a provider error.
type Recognizer interface {
	Recognize(ctx context.Context, timeout time.Duration) outcome.Outcome[string]
}

// Synthesizer speaks text aloud.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string) outcome.Outcome[struct{}]
}

// Responder produces a reply for one turn. *therapist.Therapist satisfies it.
type Responder interface {
	Respond(ctx context.Context, text string, history []protocol.Message, userID, sessionID string) therapist.Result
}

// Turn is the result of one Exchange.
type Turn struct {
	Heard    string
	Result   therapist.Result
	Spoken   outcome.Kind
	Farewell bool
}

// Exchange listens for one utterance, answers it and speaks the answer.
//
// A farewell word ends the conversation: the farewell is spoken and
// Turn.Farewell is set. Otherwise the reply replaces the session history.
// Replies are only spoken when Success is true. A nil synthesizer leaves
// Spoken as Unavailable. The error reports recognition failures, after
// which the caller typically listens again.
func Exchange(ctx context.Context, rec Recognizer, r Responder, syn Synthesizer, sess session.Session, timeout time.Duration) (Turn, error) {
	if rec == nil {
		return Turn{}, ErrNoRecognizer
	}
	if timeout <= 0 {
		timeout = DefaultListenTimeout
	}

	heard := rec.Recognize(ctx, timeout)
	text, ok := heard.Get()
	if !ok {
		return Turn{}, heard.Error()
	}
	text = strings.TrimSpace(text)

	turn := Turn{Heard: text, Spoken: outcome.Unavailable}

	if therapist.IsFarewell(text) {
		turn.Farewell = true
		turn.Result = therapist.Result{Reply: therapist.Farewell, Success: true, History: sess.Messages()}
		turn.Spoken = speak(ctx, syn, therapist.Farewell)
		return turn, nil
	}

	turn.Result = r.Respond(ctx, text, sess.Messages(), sess.UserID(), sess.ID())
	sess.Replace(turn.Result.History)

	if turn.Result.Success {
		turn.Spoken = speak(ctx, syn, turn.Result.Reply)
	}

	return turn, nil
}

// ReplayLast speaks the most recent assistant turn in history again.
func ReplayLast(ctx context.Context, syn Synthesizer, history []protocol.Message) outcome.Outcome[struct{}] {
	last, ok := protocol.Last(history, protocol.RoleAssistant)
	if !ok {
		return outcome.Fail[struct{}](ErrNothingToReply)
	}
	if syn == nil {
		return outcome.Absent[struct{}]()
	}
	return syn.Synthesize(ctx, last.Content)
}

func speak(ctx context.Context, syn Synthesizer, text string) outcome.Kind {
	if syn == nil {
		return outcome.Unavailable
	}
	return syn.Synthesize(ctx, text).Kind
}
