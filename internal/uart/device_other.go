//go:build !linux

package uart

import "os"

// OpenDevice returns ErrUnsupported on non-Linux platforms.
func OpenDevice(path string, baud int) (*os.File, error) {
	return nil, ErrUnsupported
}
