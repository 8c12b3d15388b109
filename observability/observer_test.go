package observability_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/tailored-agentic-units/therapy/observability"
)

func TestLevel_String(t *testing.T) {
	tests := []struct {
		name  string
		level observability.Level
		want  string
	}{
		{name: "trace range", level: 1, want: "TRACE"},
		{name: "verbose maps to DEBUG", level: observability.LevelVerbose, want: "DEBUG"},
		{name: "info maps to INFO", level: observability.LevelInfo, want: "INFO"},
		{name: "warning maps to WARN", level: observability.LevelWarning, want: "WARN"},
		{name: "error maps to ERROR", level: observability.LevelError, want: "ERROR"},
		{name: "fatal range", level: 21, want: "FATAL"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.level.String(); got != tt.want {
				t.Errorf("Level(%d).String() = %q, want %q", tt.level, got, tt.want)
			}
		})
	}
}

func TestLevel_SlogLevel(t *testing.T) {
	tests := []struct {
		name  string
		level observability.Level
		want  slog.Level
	}{
		{name: "verbose maps to Debug", level: observability.LevelVerbose, want: slog.LevelDebug},
		{name: "info maps to Info", level: observability.LevelInfo, want: slog.LevelInfo},
		{name: "warning maps to Warn", level: observability.LevelWarning, want: slog.LevelWarn},
		{name: "error maps to Error", level: observability.LevelError, want: slog.LevelError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.level.SlogLevel(); got != tt.want {
				t.Errorf("Level(%d).SlogLevel() = %v, want %v", tt.level, got, tt.want)
			}
		})
	}
}

func TestLevel_OTelAlignment(t *testing.T) {
	if observability.LevelVerbose != 5 {
		t.Errorf("LevelVerbose = %d, want 5 (OTel DEBUG range)", observability.LevelVerbose)
	}
	if observability.LevelInfo != 9 {
		t.Errorf("LevelInfo = %d, want 9 (OTel INFO range)", observability.LevelInfo)
	}
	if observability.LevelWarning != 13 {
		t.Errorf("LevelWarning = %d, want 13 (OTel WARN range)", observability.LevelWarning)
	}
	if observability.LevelError != 17 {
		t.Errorf("LevelError = %d, want 17 (OTel ERROR range)", observability.LevelError)
	}
}

func TestNoOpObserver(t *testing.T) {
	obs := observability.NoOpObserver{}
	obs.OnEvent(context.Background(), observability.Event{
		Type:      "test.event",
		Level:     observability.LevelInfo,
		Timestamp: time.Now(),
		Source:    "test",
		Data:      map[string]any{"key": "value"},
	})
}

func TestMultiObserver(t *testing.T) {
	var events1, events2 []observability.Event

	obs1 := &captureObserver{events: &events1}
	obs2 := &captureObserver{events: &events2}

	multi := observability.NewMultiObserver(obs1, obs2)

	event := observability.Event{
		Type:      "test.event",
		Level:     observability.LevelInfo,
		Timestamp: time.Now(),
		Source:    "test",
		Data:      map[string]any{"key": "value"},
	}

	multi.OnEvent(context.Background(), event)

	if len(events1) != 1 {
		t.Errorf("observer 1 received %d events, want 1", len(events1))
	}
	if len(events2) != 1 {
		t.Errorf("observer 2 received %d events, want 1", len(events2))
	}
	if events1[0].Type != "test.event" {
		t.Errorf("observer 1 event type = %q, want %q", events1[0].Type, "test.event")
	}
}

func TestMultiObserver_NilFiltering(t *testing.T) {
	var events []observability.Event
	obs := &captureObserver{events: &events}

	multi := observability.NewMultiObserver(nil, obs, nil)

	multi.OnEvent(context.Background(), observability.Event{
		Type:  "test.event",
		Level: observability.LevelInfo,
	})

	if len(events) != 1 {
		t.Errorf("received %d events, want 1 (nil observers should be filtered)", len(events))
	}
}

func TestSlogObserver_LevelMapping(t *testing.T) {
	tests := []struct {
		name      string
		level     observability.Level
		minLevel  slog.Level
		expectLog bool
	}{
		{name: "verbose at debug handler", level: observability.LevelVerbose, minLevel: slog.LevelDebug, expectLog: true},
		{name: "verbose at info handler", level: observability.LevelVerbose, minLevel: slog.LevelInfo, expectLog: false},
		{name: "info at info handler", level: observability.LevelInfo, minLevel: slog.LevelInfo, expectLog: true},
		{name: "info at warn handler", level: observability.LevelInfo, minLevel: slog.LevelWarn, expectLog: false},
		{name: "warning at warn handler", level: observability.LevelWarning, minLevel: slog.LevelWarn, expectLog: true},
		{name: "error at error handler", level: observability.LevelError, minLevel: slog.LevelError, expectLog: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{
				Level: tt.minLevel,
			}))

			obs := observability.NewSlogObserver(logger)
			obs.OnEvent(context.Background(), observability.Event{
				Type:      "test.event",
				Level:     tt.level,
				Timestamp: time.Now(),
				Source:    "test",
			})

			hasOutput := buf.Len() > 0
			if hasOutput != tt.expectLog {
				t.Errorf("log output = %v, want %v (buf: %q)", hasOutput, tt.expectLog, buf.String())
			}
		})
	}
}

func TestSlogObserver_EventTypeAsMessage(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))

	obs := observability.NewSlogObserver(logger)
	obs.OnEvent(context.Background(), observability.Event{
		Type:      "therapist.respond.start",
		Level:     observability.LevelInfo,
		Timestamp: time.Now(),
		Source:    "therapist.Respond",
		Data: map[string]any{
			"history_length": 42,
		},
	})

	output := buf.String()
	if !contains(output, "therapist.respond.start") {
		t.Errorf("expected event type as log message, got: %s", output)
	}
	if !contains(output, "source=therapist.Respond") {
		t.Errorf("expected source attribute, got: %s", output)
	}
	if !contains(output, "history_length=42") {
		t.Errorf("expected data attributes, got: %s", output)
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		name  string
		want  observability.Level
		known bool
	}{
		{name: "debug", want: observability.LevelVerbose, known: true},
		{name: "verbose", want: observability.LevelVerbose, known: true},
		{name: "info", want: observability.LevelInfo, known: true},
		{name: "warn", want: observability.LevelWarning, known: true},
		{name: "error", want: observability.LevelError, known: true},
		{name: "loud", want: observability.LevelInfo, known: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, known := observability.ParseLevel(tt.name)
			if got != tt.want || known != tt.known {
				t.Errorf("ParseLevel(%q) = (%v, %v), want (%v, %v)", tt.name, got, known, tt.want, tt.known)
			}
		})
	}
}

func TestLevelFilter(t *testing.T) {
	recorder := observability.NewRecorder()
	filter := observability.NewLevelFilter(observability.LevelWarning, recorder)

	filter.OnEvent(context.Background(), observability.Event{Type: "dropped", Level: observability.LevelInfo})
	filter.OnEvent(context.Background(), observability.Event{Type: "kept", Level: observability.LevelError})

	types := recorder.Types()
	if len(types) != 1 || types[0] != "kept" {
		t.Errorf("got %v, want [kept]", types)
	}
}

func TestRecorder(t *testing.T) {
	recorder := observability.NewRecorder()

	recorder.OnEvent(context.Background(), observability.Event{Type: "a"})
	recorder.OnEvent(context.Background(), observability.Event{Type: "b"})

	if !recorder.Has("b") {
		t.Error("expected recorder to have event b")
	}
	if recorder.Has("c") {
		t.Error("recorder should not have event c")
	}
	if len(recorder.Events()) != 2 {
		t.Errorf("got %d events, want 2", len(recorder.Events()))
	}
}

func TestRegistry_GetObserver(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		wantErr bool
	}{
		{name: "noop exists", key: "noop", wantErr: false},
		{name: "slog exists", key: "slog", wantErr: false},
		{name: "unknown fails", key: "nonexistent", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			obs, err := observability.GetObserver(tt.key)
			if (err != nil) != tt.wantErr {
				t.Errorf("GetObserver(%q) error = %v, wantErr %v", tt.key, err, tt.wantErr)
			}
			if !tt.wantErr && obs == nil {
				t.Errorf("GetObserver(%q) returned nil observer", tt.key)
			}
		})
	}
}

func TestRegistry_RegisterAndGet(t *testing.T) {
	var events []observability.Event
	custom := &captureObserver{events: &events}

	observability.RegisterObserver("test-custom", custom)

	obs, err := observability.GetObserver("test-custom")
	if err != nil {
		t.Fatalf("GetObserver failed: %v", err)
	}

	obs.OnEvent(context.Background(), observability.Event{
		Type:  "test.event",
		Level: observability.LevelInfo,
	})

	if len(events) != 1 {
		t.Errorf("received %d events, want 1", len(events))
	}
}

type captureObserver struct {
	events *[]observability.Event
}

func (c *captureObserver) OnEvent(ctx context.Context, event observability.Event) {
	*c.events = append(*c.events, event)
}

func contains(s, substr string) bool {
	for i := 0; i <= len(s)-len(substr); i++ {
		if s[i:i+len(substr)] == substr {
			return true
		}
	}
	return false
}

func TestSlogObserver_RedactsConversationText(t *testing.T) {
	event := observability.Event{
		Type:   "therapist.respond.start",
		Level:  observability.LevelInfo,
		Source: "therapist",
		Data: map[string]any{
			"text":       "I lost my job",
			"session_id": "s1",
		},
	}

	tests := []struct {
		name    string
		opts    []observability.SlogOption
		want    string
		notWant string
	}{
		{name: "default redacts", want: "text=\"[13 chars]\"", notWant: "lost my job"},
		{name: "with content", opts: []observability.SlogOption{observability.WithContent()}, want: "lost my job"},
		{name: "custom keys", opts: []observability.SlogOption{observability.WithRedactedKeys("session_id")}, want: "session_id=\"[2 chars]\""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := slog.New(slog.NewTextHandler(&buf, nil))

			observability.NewSlogObserver(logger, tt.opts...).OnEvent(context.Background(), event)

			output := buf.String()
			if !contains(output, tt.want) {
				t.Errorf("expected %q in output: %s", tt.want, output)
			}
			if tt.notWant != "" && contains(output, tt.notWant) {
				t.Errorf("unexpected %q in output: %s", tt.notWant, output)
			}
		})
	}
}

func TestRegistry_UnknownObserverError(t *testing.T) {
	_, err := observability.GetObserver("missing")
	if !errors.Is(err, observability.ErrUnknownObserver) {
		t.Fatalf("expected ErrUnknownObserver, got %v", err)
	}
	if !contains(err.Error(), "noop") {
		t.Errorf("expected registered names in error, got %v", err)
	}
}
