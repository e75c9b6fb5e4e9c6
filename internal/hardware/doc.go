// Package hardware connects the access machine to the physical door.
//
// Inbound, the auth link (keypad and token reader) and the lock link (door
// sensor) are read line by line and turned into access events on a Queue.
// Outbound, Door implements access.Hardware by writing one short command
// line per action to the link that owns the actuator.
//
// Wire format (ASCII, newline terminated):
//
//	inbound   K<c>     key press
//	          R<code>  token scanned
//	          D1 / D0  door open / door closed
//	auth out  L1 L0 LB LED on / off / blink
//	          B G X    beep / grant chime / deny chime
//	lock out  U K      unlock / lock
package hardware
