// Package trace records spans for the code generator: one driver span per
// compilation, a phase span per pass, a type span per declared type and a
// member span per generated body.
//
// Levels select how deep spans go:
//
//   - off: nothing
//   - error: nothing while running; the ring buffer is dumped on failure
//   - phase: driver and pass boundaries
//   - detail: adds per-type spans
//   - debug: adds per-member spans
//
// Tracers travel through context:
//
//	ctx = trace.WithTracer(ctx, tr)
//	span, ctx := trace.Start(ctx, trace.ScopePhase, "generate")
//	defer span.End("")
package trace
