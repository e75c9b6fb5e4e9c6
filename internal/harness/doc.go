// Package harness runs door scenarios against the real access machine and
// event loop, with deterministic fakes in place of the outside world.
//
// # Scenario Format
//
// Scenarios are YAML files with the following structure:
//
//	name: wrong_pin_denied
//	description: "A wrong PIN returns to awaiting-token with a deny chime"
//	users:
//	  - token: "04A3F2"
//	    pin: "1234"
//	steps:
//	  - rfid: "04A3F2"
//	  - keys: "1111B"
//	  - wait: 2s
//	  - door: open
//	  - trigger: addkey
//	assertions:
//	  - type: final_state
//	    state: awaiting-token
//	  - type: command_count
//	    command: deny
//	    count: 1
//
// Each step is exactly one of rfid, keys (one key event per character),
// door (open or closed), trigger (a control channel command) or wait
// (idle time, which is when timeouts fire). The run ends with a shutdown
// once the steps are exhausted.
//
// # Assertion Types
//
//   - final_state: the machine state after the run
//   - command_count: how often a hardware command was issued
//   - command_order: commands appear in this relative order
//   - decision_count: how many decisions had an outcome (and reason)
//   - credential: the credential store's view of a token afterwards
//
// # Deterministic Testing
//
// Every scenario runs with a testutil.ManualClock starting at
// testutil.Epoch, in-memory credentials and recording hardware. Traces are
// therefore identical across runs and suitable for golden comparison.
package harness
