package ui

import (
	"errors"
	"strings"
	"testing"

	"ilforge/internal/buildpipeline"
)

func TestBuildModelTracksEvents(t *testing.T) {
	m := NewBuildModel("building", []string{"a.ilt", "b.ilt"}, nil)
	m.Update(eventMsg{File: "a.ilt", Stage: buildpipeline.StageCompile, Status: buildpipeline.StatusWorking})
	m.Update(eventMsg{File: "b.ilt", Stage: buildpipeline.StageCompile, Status: buildpipeline.StatusError, Err: errors.New("Program::Main: no overload")})
	m.Update(eventMsg{File: "ghost.ilt", Stage: buildpipeline.StageLoad, Status: buildpipeline.StatusDone})

	view := m.View()
	for _, want := range []string{"compiling", "a.ilt", "failed", "no overload"} {
		if !strings.Contains(view, want) {
			t.Errorf("view lacks %q:\n%s", want, view)
		}
	}
	if m.Failed() != 1 {
		t.Errorf("failed = %d", m.Failed())
	}

	m.Update(eventMsg{File: "a.ilt", Stage: buildpipeline.StageEmit, Status: buildpipeline.StatusDone})
	if _, cmd := m.Update(closedMsg{}); cmd == nil {
		t.Error("closing the channel should quit")
	}
	if view := m.View(); !strings.Contains(view, "1 built, 1 failed") {
		t.Errorf("final header missing:\n%s", view)
	}
}

func TestCompletion(t *testing.T) {
	if completion(unitRow{status: buildpipeline.StatusQueued, stage: buildpipeline.StageEmit}) != 0 {
		t.Error("queued rows have not started")
	}
	if completion(unitRow{status: buildpipeline.StatusError}) != 1 {
		t.Error("failed rows are finished")
	}
	load := completion(unitRow{status: buildpipeline.StatusWorking, stage: buildpipeline.StageLoad})
	emit := completion(unitRow{status: buildpipeline.StatusWorking, stage: buildpipeline.StageEmit})
	if load >= emit {
		t.Errorf("load %.2f should trail emit %.2f", load, emit)
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("short", 10); got != "short" {
		t.Errorf("truncate = %q", got)
	}
	if got := truncate("a/very/long/path.ilt", 10); got != "a/very/..." {
		t.Errorf("truncate = %q", got)
	}
	if got := truncate("日本語", 3); got != "日" {
		t.Errorf("wide truncate = %q", got)
	}
}
