package gnauth

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/GeorgeWebDevCy/gnauth/store"
)

func TestAuditEventsFlowThroughSink(t *testing.T) {
	server := httptest.NewServer(newTestMux(t))
	t.Cleanup(server.Close)

	cfg := DefaultConfig()
	cfg.Backend.BaseURL = server.URL
	cfg.Backend.AllowInsecureHTTP = true

	sink := NewChannelSink(16)
	o, err := New().
		WithConfig(cfg).
		WithCredentialStore(store.NewMemory()).
		WithAuditSink(sink).
		Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	t.Cleanup(o.Close)

	mustLogin(t, o)

	select {
	case event := <-sink.Events():
		if event.EventType != "login.password" || !event.Success {
			t.Fatalf("event = %+v", event)
		}
		if event.Method != string(MethodPassword) {
			t.Fatalf("method = %q", event.Method)
		}
		if event.InstallID == "" {
			t.Fatal("event carries no install id")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no audit event arrived")
	}

	if err := o.LoginWithPassword(context.Background(), "seven@example.com", "wrong"); err == nil {
		t.Fatal("expected login failure")
	}
	select {
	case event := <-sink.Events():
		if event.Success || event.ErrorCode != string(CodeInvalidCredentials) {
			t.Fatalf("failure event = %+v", event)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no failure event arrived")
	}
}

func TestJSONWriterSinkWritesOneLinePerEvent(t *testing.T) {
	var buf bytes.Buffer
	sink := NewJSONWriterSink(&buf)

	sink.Emit(context.Background(), AuditEvent{EventType: "login.password", Success: true})
	sink.Emit(context.Background(), AuditEvent{EventType: "session.logout", Success: true})

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	if len(lines) != 2 {
		t.Fatalf("lines = %d", len(lines))
	}
	var event AuditEvent
	if err := json.Unmarshal(lines[0], &event); err != nil {
		t.Fatalf("line not valid JSON: %v", err)
	}
	if event.EventType != "login.password" {
		t.Fatalf("event type = %q", event.EventType)
	}
}

func TestDispatcherDropsWhenSaturated(t *testing.T) {
	release := make(chan struct{})
	sink := &blockingSink{release: release, started: make(chan struct{}, 1)}

	d := newAuditDispatcher(AuditConfig{Enabled: true, BufferSize: 1, DropIfFull: true}, sink)
	t.Cleanup(func() {
		close(release)
		d.Close()
	})

	d.Emit(context.Background(), AuditEvent{EventType: "occupier"})
	<-sink.started // sink is now stuck on the first event

	for i := 0; i < 10; i++ {
		d.Emit(context.Background(), AuditEvent{EventType: "flood"})
	}
	if d.Dropped() == 0 {
		t.Fatal("saturated dispatcher dropped nothing")
	}
}

type blockingSink struct {
	release chan struct{}
	started chan struct{}
}

func (s *blockingSink) Emit(ctx context.Context, event AuditEvent) {
	select {
	case s.started <- struct{}{}:
	default:
	}
	<-s.release
}
