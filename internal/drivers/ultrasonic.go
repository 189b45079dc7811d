package drivers

import (
	"errors"
	"fmt"
	"io"

	"github.com/sweeney/sensor-node/internal/component"
	"github.com/sweeney/sensor-node/internal/entity"
	"github.com/sweeney/sensor-node/internal/logging"
	"github.com/sweeney/sensor-node/internal/uart"
)

// ErrChecksum marks a frame whose checksum byte does not match.
var ErrChecksum = errors.New("frame checksum mismatch")

const (
	frameHeader = 0xFF
	frameLen    = 4
)

// Checksum validates a [header, hi, lo, check] frame.
type Checksum func(frame [frameLen]byte) bool

// SumChecksum accepts a frame whose check byte is the low byte of the sum of
// the other three.
func SumChecksum(f [frameLen]byte) bool {
	return f[0]+f[1]+f[2] == f[3]
}

// OffsetChecksum accepts a frame where (header + hi) - check is 1, in byte
// arithmetic.
func OffsetChecksum(f [frameLen]byte) bool {
	return f[0]+f[1]-f[3] == 1
}

// ParseChecksum maps "sum" (or empty) and "offset" to a Checksum.
func ParseChecksum(name string) (Checksum, error) {
	switch name {
	case "", "sum":
		return SumChecksum, nil
	case "offset":
		return OffsetChecksum, nil
	default:
		return nil, fmt.Errorf("unknown checksum %q", name)
	}
}

// Ultrasonic reads distance frames from a serial port and publishes the
// distance in millimetres.
type Ultrasonic struct {
	component.Base

	port     uart.Port
	open     func() (uart.Port, error)
	checksum Checksum
	log      *logging.Logger
	sensor   *entity.Sensor

	buf     []byte
	scratch [64]byte

	frames     uint64
	mismatches uint64
}

// NewUltrasonic creates a distance sensor. open is called once at setup to
// obtain the port.
func NewUltrasonic(open func() (uart.Port, error), checksum Checksum, sensor *entity.Sensor, log *logging.Logger) *Ultrasonic {
	return &Ultrasonic{
		Base:     component.NewBase("ultrasonic." + sensor.Info().ObjectID),
		open:     open,
		checksum: checksum,
		log:      log.Component("ultrasonic"),
		sensor:   sensor,
	}
}

// Sensor returns the published entity.
func (u *Ultrasonic) Sensor() *entity.Sensor { return u.sensor }

func (u *Ultrasonic) Setup() error {
	port, err := u.open()
	if err != nil {
		return fmt.Errorf("ultrasonic: %w", err)
	}
	u.port = port
	return nil
}

// Loop drains whatever the port has buffered and handles every complete
// frame in it.
func (u *Ultrasonic) Loop() {
	for u.port.Available() > 0 {
		n, _ := u.port.Read(u.scratch[:])
		if n == 0 {
			break
		}
		u.buf = append(u.buf, u.scratch[:n]...)
	}
	// The port reports its terminal error once drained.
	if _, err := u.port.Read(nil); err != nil {
		u.readFailed(err)
	}
	u.scan()
}

func (u *Ultrasonic) readFailed(err error) {
	if !u.Status().HasWarning() {
		u.log.Warn("serial read failed", "error", err)
	}
	u.Status().SetWarning()
}

func (u *Ultrasonic) scan() {
	for len(u.buf) >= frameLen {
		if u.buf[0] != frameHeader {
			u.buf = u.buf[1:]
			continue
		}
		var f [frameLen]byte
		copy(f[:], u.buf)
		if !u.checksum(f) {
			u.mismatches++
			u.log.Debug("dropping frame", "error", fmt.Errorf("%w: % x", ErrChecksum, f[:]))
			u.buf = u.buf[1:]
			continue
		}
		u.buf = u.buf[frameLen:]
		u.frames++
		if u.Status().HasWarning() {
			u.Status().ClearWarning()
		}
		u.sensor.PublishState(float64(uint16(f[1])<<8 | uint16(f[2])))
	}
}

// Stats returns the number of accepted and rejected frames.
func (u *Ultrasonic) Stats() (frames, mismatches uint64) {
	return u.frames, u.mismatches
}

func (u *Ultrasonic) OnShutdown() {
	if c, ok := u.port.(io.Closer); ok {
		c.Close()
	}
}

func (u *Ultrasonic) DumpConfig(log *logging.Logger) {
	log.Info("ultrasonic sensor", "entity", u.sensor.Info().Name, "unit", u.sensor.Info().Unit)
}
