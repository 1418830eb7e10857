package observ

import (
	"errors"
	"strings"
	"testing"
)

func TestTimerOrderAndNotes(t *testing.T) {
	tm := NewTimer()
	a := tm.Begin("declare")
	b := tm.Begin("generate")
	tm.End(b, "")
	tm.End(a, "slow")
	tm.End(a, "ignored")
	tm.End(42, "ignored")

	rep := tm.Report()
	if len(rep.Phases) != 2 || rep.Phases[0].Name != "declare" || rep.Phases[1].Name != "generate" {
		t.Fatalf("phases = %+v", rep.Phases)
	}
	if rep.Phases[0].Note != "slow" {
		t.Errorf("note = %q, closing twice must not overwrite it", rep.Phases[0].Note)
	}
	if rep.TotalMS < rep.Phases[0].DurationMS {
		t.Errorf("total %.3f below a phase %.3f", rep.TotalMS, rep.Phases[0].DurationMS)
	}
}

func TestMeasure(t *testing.T) {
	tm := NewTimer()
	boom := errors.New("boom")
	if err := tm.Measure("finalize", func() error { return boom }); !errors.Is(err, boom) {
		t.Fatalf("Measure returned %v", err)
	}
	if err := tm.Measure("thunks", func() error { return nil }); err != nil {
		t.Fatal(err)
	}
	phases := tm.Phases()
	if phases[0].Note != "failed" || phases[1].Note != "" {
		t.Errorf("notes = %q, %q", phases[0].Note, phases[1].Note)
	}
}

func TestSummary(t *testing.T) {
	tm := NewTimer()
	tm.End(tm.Begin("builtins"), "")
	tm.End(tm.Begin("declare"), "3 types")
	sum := tm.Summary()
	for _, want := range []string{"timings:\n", "  builtins ", "  declare ", "// 3 types", "  total "} {
		if !strings.Contains(sum, want) {
			t.Errorf("summary lacks %q:\n%s", want, sum)
		}
	}
	if (&Timer{}).Report().Phases != nil {
		t.Error("empty timer should report no phases")
	}
}
