package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"ilforge/internal/buildpipeline"
	"ilforge/internal/ui"
)

type uiMode string

const (
	uiModeAuto uiMode = "auto"
	uiModeOn   uiMode = "on"
	uiModeOff  uiMode = "off"
)

func readUIMode(value string) (uiMode, error) {
	switch strings.TrimSpace(strings.ToLower(value)) {
	case "", "auto":
		return uiModeAuto, nil
	case "on":
		return uiModeOn, nil
	case "off":
		return uiModeOff, nil
	default:
		return "", fmt.Errorf("invalid --ui value %q (expected auto|on|off)", value)
	}
}

func shouldUseTUI(mode uiMode) bool {
	switch mode {
	case uiModeOn:
		return true
	case uiModeOff:
		return false
	default:
		return isTerminal(os.Stdout)
	}
}

type buildOutcome struct {
	results []buildpipeline.UnitResult
	err     error
}

// runBuildWithUI runs the build in the background and renders its events
// until the build closes the channel.
func runBuildWithUI(ctx context.Context, title string, files []string, req *buildpipeline.BuildRequest) ([]buildpipeline.UnitResult, error) {
	events := make(chan buildpipeline.Event, 256)
	outcome := make(chan buildOutcome, 1)
	go func() {
		reqCopy := *req
		reqCopy.Progress = buildpipeline.ChannelSink{Ch: events}
		res, err := buildpipeline.Build(ctx, &reqCopy)
		close(events)
		outcome <- buildOutcome{results: res, err: err}
	}()

	program := tea.NewProgram(ui.NewBuildModel(title, files, events), tea.WithOutput(os.Stdout))
	_, uiErr := program.Run()
	if uiErr != nil {
		// Keep draining so Build never blocks on a full channel.
		go func() {
			for range events {
			}
		}()
	}
	out := <-outcome
	if uiErr != nil && out.err == nil {
		return out.results, uiErr
	}
	return out.results, out.err
}
