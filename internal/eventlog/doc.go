// Package eventlog captures everything the access machine sees and does
// to an append-only CBOR file.
//
// Each Entry is one machine Record (input, timeout, transition, hardware
// command or decision) stamped with the wall time and the daemon session
// that produced it. Captures are for post-incident review: "doorbot log"
// decodes them back to text or JSON.
//
// Keys are small integers to keep the file compact; readers must tolerate
// entries written by older versions, so keys are never reused.
package eventlog
