//go:build !linux

package hardware

import (
	"fmt"
	"os"
)

// OpenSerial opens the device as a plain file. Line settings are left as
// configured by the operating system.
func OpenSerial(path string, _ int) (*os.File, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("serial %s: %w", path, err)
	}
	return f, nil
}
