// Package access implements the door access state machine.
//
// The machine arbitrates entry with two factors (a proximity token and a
// numeric PIN) and hosts the administrative flows layered on the same
// keypad: enrolling a new token, resetting a lost PIN, and changing a PIN.
//
// ARCHITECTURE:
//
// The Machine owns the current State and a Session (captured token, PIN
// buffer, pending PIN, timeout budget). It never blocks and never reads
// events on its own. The engine package drives it: it waits for the next
// input bounded by the Session's Budget, calls Timeout when the budget is
// exhausted, and then hands the input to Handle.
//
// Every state change goes through enter(), which performs the entry action
// for the target state exactly once: it re-arms the budget, clears the
// Session fields that state depends on, and issues the hardware commands
// listed for it. Nothing else mutates the Session.
//
// COLLABORATORS:
//
// Hardware and Credentials are capability interfaces. The machine depends on
// nothing else: serial links, SQLite and the console simulator all live in
// other packages.
//
// FAILURE POLICY:
//
//   - Authentication failures, short PINs, mismatched confirmations and
//     timeouts in a multi-step flow all take the deny path: deny signal,
//     back to StateAwaitingToken.
//   - Credential store errors fail closed: the error is logged, a
//     store-error Decision is emitted and the deny path runs. The door is
//     never unlocked on a store error.
//   - Hardware command errors are returned to the caller. The engine treats
//     them as fatal.
package access
