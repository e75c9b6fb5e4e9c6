package hardware

import (
	"fmt"
	"io"
	"sync"

	"github.com/roach88/doorbot/internal/access"
)

// Console implements access.Hardware by printing each command.
type Console struct {
	mu sync.Mutex
	w  io.Writer
}

var _ access.Hardware = (*Console)(nil)

// NewConsole returns hardware that writes to w.
func NewConsole(w io.Writer) *Console {
	return &Console{w: w}
}

var consoleText = map[access.Command]string{
	access.CommandLEDOn:    "LED on",
	access.CommandLEDOff:   "LED off",
	access.CommandLEDBlink: "LED blinking",
	access.CommandLock:     "lock engaged",
	access.CommandUnlock:   "lock released",
	access.CommandBeep:     "beep",
	access.CommandGrant:    "grant chime",
	access.CommandDeny:     "deny chime",
}

func (c *Console) print(cmd access.Command) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, err := fmt.Fprintf(c.w, "[hw] %s\n", consoleText[cmd])
	return err
}

func (c *Console) LEDOn() error    { return c.print(access.CommandLEDOn) }
func (c *Console) LEDOff() error   { return c.print(access.CommandLEDOff) }
func (c *Console) LEDBlink() error { return c.print(access.CommandLEDBlink) }
func (c *Console) Lock() error     { return c.print(access.CommandLock) }
func (c *Console) Unlock() error   { return c.print(access.CommandUnlock) }
func (c *Console) Beep() error     { return c.print(access.CommandBeep) }
func (c *Console) Grant() error    { return c.print(access.CommandGrant) }
func (c *Console) Deny() error     { return c.print(access.CommandDeny) }
