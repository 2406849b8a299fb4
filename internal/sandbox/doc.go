// Package sandbox isolates third-party controllers from the episode that
// runs them.
//
// Every lifecycle call (construct, reset, run) goes through the same
// discipline: diagnostic output is captured, a panic or returned error is
// recovered, and the call is timed with an injectable clock. Problems come
// back as a [*Failure] with a [Kind] and a human-readable reason; nothing a
// controller does can unwind past the sandbox.
//
// Timing is measured after the call returns. A controller that never
// returns blocks its caller.
//
//	sb := sandbox.New(sandbox.DefaultRules(), sandbox.DefaultBudgets())
//	slot, err := sb.Instantiate(factory)
//	cmd, runTime, err := sb.Run(slot, sensors)
package sandbox
