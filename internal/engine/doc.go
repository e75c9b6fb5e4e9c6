// Package engine drives the access state machine.
//
// ARCHITECTURE:
//
// Single-Writer Event Loop:
// The Engine processes all input in a single goroutine. One event is fully
// handled (timeout transition, dispatch, store calls, hardware commands)
// before the next one is fetched. Producers such as serial readers and the
// control channel only enqueue into the Source; they never touch the
// machine.
//
// Iteration:
//  1. Read the machine's timeout budget. If armed, note the start instant.
//  2. Block on Source.Next for at most the budget (forever when unarmed).
//  3. If armed, charge the elapsed time. An exhausted budget fires
//     Machine.Timeout exactly once, before the event is dispatched.
//  4. Dispatch the event to Machine.Handle.
//  5. Shutdown ends the loop normally, Restart ends it with a restart request.
//
// CRITICAL PATTERNS:
//
// Monotonic accounting:
// Elapsed time is measured with Clock.Now().Sub(start). SystemClock uses
// time.Now, whose readings carry the monotonic clock, so wall-clock
// adjustments never produce negative or inflated waits. Overruns saturate
// at zero inside access.Budget.
//
// No background timers:
// The wait on the Source is the only suspension point and the only place
// time passes. There is no ticker and no goroutine besides the caller's.
package engine
