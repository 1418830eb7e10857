package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"ilforge/internal/buildpipeline"
)

func printUnitTimings(out io.Writer, res buildpipeline.UnitResult) {
	var parts []string
	for _, stage := range []buildpipeline.Stage{buildpipeline.StageLoad, buildpipeline.StageCompile, buildpipeline.StageEmit} {
		if res.Timings.Has(stage) {
			parts = append(parts, fmt.Sprintf("%s %.1f ms", stage, toMillis(res.Timings.Duration(stage))))
		}
	}
	if len(parts) > 0 {
		fmt.Fprintf(out, "  %s\n", strings.Join(parts, ", "))
	}
	if res.Timer != nil {
		for _, line := range strings.Split(strings.TrimRight(res.Timer.Summary(), "\n"), "\n") {
			fmt.Fprintf(out, "  %s\n", line)
		}
	}
}

func toMillis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
