package hardware

import "github.com/roach88/doorbot/internal/access"

// Door implements access.Hardware over the two serial links.
// The lock link drives the bolt; everything else goes to the auth link.
type Door struct {
	auth *Link
	lock *Link
}

var _ access.Hardware = (*Door)(nil)

// NewDoor composes the auth and lock links.
func NewDoor(auth, lock *Link) *Door {
	return &Door{auth: auth, lock: lock}
}

func (d *Door) LEDOn() error    { return d.auth.Send(lineLEDOn) }
func (d *Door) LEDOff() error   { return d.auth.Send(lineLEDOff) }
func (d *Door) LEDBlink() error { return d.auth.Send(lineLEDBlink) }
func (d *Door) Beep() error     { return d.auth.Send(lineBeep) }
func (d *Door) Grant() error    { return d.auth.Send(lineGrant) }
func (d *Door) Deny() error     { return d.auth.Send(lineDeny) }
func (d *Door) Lock() error     { return d.lock.Send(lineLock) }
func (d *Door) Unlock() error   { return d.lock.Send(lineUnlock) }
