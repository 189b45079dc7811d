//go:build !linux

package gpio

// RealChip is not available on non-Linux platforms.
type RealChip struct{}

// OpenChip returns ErrUnsupported on non-Linux platforms.
func OpenChip(name string) (*RealChip, error) {
	return nil, ErrUnsupported
}

// Input is not implemented on non-Linux platforms.
func (c *RealChip) Input(offset int, cfg InputConfig) (EdgeInput, error) {
	return nil, ErrUnsupported
}

// Output is not implemented on non-Linux platforms.
func (c *RealChip) Output(offset int, cfg OutputConfig) (Output, error) {
	return nil, ErrUnsupported
}

// Close is a no-op on non-Linux platforms.
func (c *RealChip) Close() error {
	return nil
}
