package version

import (
	"testing"

	"github.com/fatih/color"
)

func TestCurrentDefaults(t *testing.T) {
	orig := Version
	defer func() { Version = orig }()

	if Current() == "" {
		t.Fatal("Version should have a default value")
	}
	Version = "  "
	if got := Current(); got != "dev" {
		t.Errorf("blank Version = %q, want dev", got)
	}
	Version = " 1.2.3 "
	if got := Current(); got != "1.2.3" {
		t.Errorf("Current = %q", got)
	}
}

func TestColoredKeepsText(t *testing.T) {
	origVersion, origNoColor := Version, color.NoColor
	defer func() { Version, color.NoColor = origVersion, origNoColor }()
	color.NoColor = true

	for _, v := range []string{
		"0.1.0",
		"0.1.0-dev",
		"1.2.3-rc.1+build.123",
		"snapshot",
	} {
		Version = v
		if got := Colored(); got != v {
			t.Errorf("Colored(%q) = %q without color", v, got)
		}
	}
}

func TestColoredAddsEscapes(t *testing.T) {
	origVersion, origNoColor := Version, color.NoColor
	defer func() { Version, color.NoColor = origVersion, origNoColor }()
	color.NoColor = false

	Version = "2.0.1-beta"
	got := Colored()
	if got == Version {
		t.Fatal("expected escape sequences")
	}
	if got[len(got)-len("-beta"):] != "-beta" {
		t.Errorf("suffix lost: %q", got)
	}
}
