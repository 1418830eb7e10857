package trace

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]Level{
		"":       LevelOff,
		"off":    LevelOff,
		"Error":  LevelError,
		"phase":  LevelPhase,
		"DETAIL": LevelDetail,
		"debug":  LevelDebug,
	}
	for in, want := range cases {
		got, err := ParseLevel(in)
		if err != nil || got != want {
			t.Fatalf("ParseLevel(%q) = %v, %v; want %v", in, got, err, want)
		}
	}
	if _, err := ParseLevel("loud"); err == nil {
		t.Fatalf("expected error for unknown level")
	}
}

func TestShouldEmit(t *testing.T) {
	if LevelPhase.ShouldEmit(ScopeType) {
		t.Fatalf("phase level must not emit type spans")
	}
	if !LevelDetail.ShouldEmit(ScopeType) || LevelDetail.ShouldEmit(ScopeMember) {
		t.Fatalf("detail level must stop at type spans")
	}
	if !LevelDebug.ShouldEmit(ScopeMember) {
		t.Fatalf("debug level must emit member spans")
	}
	if LevelError.ShouldEmit(ScopeDriver) {
		t.Fatalf("error level emits no spans")
	}
}

func TestStreamNesting(t *testing.T) {
	var buf bytes.Buffer
	tr, err := New(Config{Level: LevelDebug, Mode: ModeStream, Format: FormatText, Output: &buf})
	if err != nil {
		t.Fatal(err)
	}
	ctx := WithTracer(context.Background(), tr)
	root, ctx := Start(ctx, ScopeDriver, "build")
	phase, ctx := Start(ctx, ScopePhase, "generate")
	if CurrentSpan(ctx) != phase.ID() {
		t.Fatalf("context does not carry the inner span")
	}
	Point(ctx, ScopeMember, "emit", "Main")
	phase.WithExtra("methods", "3").End("")
	root.End("ok")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 5 {
		t.Fatalf("expected 5 lines, got %d:\n%s", len(lines), buf.String())
	}
	wantSuffix := []string{
		"> driver:build",
		"  > phase:generate",
		"      * member:emit (Main)",
		"  < phase:generate {methods=3}",
		"< driver:build (ok)",
	}
	for i, want := range wantSuffix {
		if !strings.HasSuffix(lines[i], want) {
			t.Fatalf("line %d = %q, want suffix %q", i, lines[i], want)
		}
	}
}

func TestLevelFiltersSpans(t *testing.T) {
	var buf bytes.Buffer
	tr := NewStreamTracer(&buf, LevelPhase, FormatText)
	ctx := WithTracer(context.Background(), tr)
	s, ctx := Start(ctx, ScopeType, "Program")
	if s.ID() != 0 {
		t.Fatalf("type span must be inert at phase level")
	}
	if CurrentSpan(ctx) != 0 {
		t.Fatalf("inert span must not change the context")
	}
	if d := s.End(""); d != 0 {
		t.Fatalf("inert span reported duration %v", d)
	}
	if buf.Len() != 0 {
		t.Fatalf("unexpected output %q", buf.String())
	}
}

func TestNDJSON(t *testing.T) {
	ev := &Event{
		Time:   time.Unix(0, 0).UTC(),
		Seq:    7,
		Kind:   KindSpanEnd,
		Scope:  ScopePhase,
		SpanID: 3,
		Name:   "declare",
		Extra:  map[string]string{"types": "2"},
	}
	line := FormatEvent(ev, FormatNDJSON)
	if line[len(line)-1] != '\n' {
		t.Fatalf("missing newline")
	}
	var decoded map[string]any
	if err := json.Unmarshal(line, &decoded); err != nil {
		t.Fatal(err)
	}
	if decoded["kind"] != "end" || decoded["scope"] != "phase" || decoded["name"] != "declare" {
		t.Fatalf("unexpected event %v", decoded)
	}
	if _, ok := decoded["parent_id"]; ok {
		t.Fatalf("zero parent_id should be omitted")
	}
}

func TestRingWraps(t *testing.T) {
	r := NewRingTracer(3, LevelDebug)
	for _, name := range []string{"a", "b", "c", "d", "e"} {
		r.Emit(&Event{Kind: KindPoint, Scope: ScopeDriver, Name: name})
	}
	snap := r.Snapshot()
	var names []string
	for _, ev := range snap {
		names = append(names, ev.Name)
	}
	if got := strings.Join(names, ","); got != "c,d,e" {
		t.Fatalf("snapshot = %s", got)
	}
	var buf bytes.Buffer
	if err := r.Dump(&buf, FormatText); err != nil {
		t.Fatal(err)
	}
	if strings.Count(buf.String(), "\n") != 3 {
		t.Fatalf("dump = %q", buf.String())
	}
}

func TestBothModeFindsRing(t *testing.T) {
	var buf bytes.Buffer
	tr, err := New(Config{Level: LevelPhase, Mode: ModeBoth, Output: &buf, RingSize: 8})
	if err != nil {
		t.Fatal(err)
	}
	ring := FindRing(tr)
	if ring == nil {
		t.Fatalf("ring not found in both mode")
	}
	s := Begin(tr, ScopePhase, "finalize", 0)
	s.End("")
	if len(ring.Snapshot()) != 2 {
		t.Fatalf("ring holds %d events", len(ring.Snapshot()))
	}
	if strings.Count(buf.String(), "\n") != 2 {
		t.Fatalf("stream wrote %q", buf.String())
	}
	if err := tr.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestOffIsNop(t *testing.T) {
	tr, err := New(Config{Level: LevelOff})
	if err != nil {
		t.Fatal(err)
	}
	if tr != Nop || tr.Enabled() {
		t.Fatalf("off level must yield Nop")
	}
	if StartHeartbeat(tr, time.Millisecond) != nil {
		t.Fatalf("heartbeat must not start for Nop")
	}
}

func TestHeartbeat(t *testing.T) {
	r := NewRingTracer(64, LevelPhase)
	h := StartHeartbeat(r, time.Millisecond)
	deadline := time.Now().Add(2 * time.Second)
	for len(r.Snapshot()) == 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	h.Stop()
	h.Stop()
	snap := r.Snapshot()
	if len(snap) == 0 || snap[0].Kind != KindHeartbeat || snap[0].Detail != "#1" {
		t.Fatalf("unexpected heartbeat events %+v", snap)
	}
}

func TestParseModeAndFormat(t *testing.T) {
	if m, err := ParseMode("Ring"); err != nil || m != ModeRing {
		t.Fatalf("ParseMode = %v, %v", m, err)
	}
	if _, err := ParseMode("tape"); err == nil {
		t.Fatalf("expected mode error")
	}
	if f, err := ParseFormat("json"); err != nil || f != FormatNDJSON {
		t.Fatalf("ParseFormat = %v, %v", f, err)
	}
}
