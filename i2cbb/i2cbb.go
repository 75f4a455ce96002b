// Package i2cbb implements an I²C master by bit-banging two GPIO lines.
//
// Both lines are driven open-drain style: a released line is an input with
// the pull-up enabled and reads as High, a driven line is an output at Low.
// The bus never drives a line High. Clock stretching is not honoured.
//
// A missing acknowledgment, or a peer holding SDA low, is fatal. The bus
// cannot safely resume a torn multi-byte transaction, so it freezes the lines
// where they are, flips the optional status LEDs and refuses every further
// transaction.
package i2cbb

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/physic"
)

var (
	// ErrNack is matched by the error returned when a byte is not acknowledged.
	ErrNack = errors.New("i2cbb: no acknowledgment")
	// ErrStuck is returned when SDA stays low with both lines released.
	ErrStuck = errors.New("i2cbb: SDA held low by a peer")
	// ErrHalted is returned by every transaction after a fatal failure.
	ErrHalted = errors.New("i2cbb: bus halted")
)

// NackError reports which byte of a transaction was not acknowledged.
type NackError struct {
	Addr  uint16 // 7-bit device address
	Index int    // byte index on the wire, 0 being the address byte
	Byte  byte   // byte value that was sent
}

func (e *NackError) Error() string {
	return fmt.Sprintf("i2cbb: no acknowledgment from %#x for byte %d (%#02x)", e.Addr, e.Index, e.Byte)
}

// Unwrap makes errors.Is(err, ErrNack) hold.
func (e *NackError) Unwrap() error {
	return ErrNack
}

// Clock paces line transitions. Tick is called once after every transition
// and must wait long enough for the line to settle at the bus speed.
type Clock interface {
	Tick()
}

// sleepClock waits half a bus period per tick.
type sleepClock struct {
	mu   sync.Mutex
	half time.Duration
}

func (c *sleepClock) Tick() {
	c.mu.Lock()
	d := c.half
	c.mu.Unlock()
	time.Sleep(d)
}

func (c *sleepClock) setSpeed(f physic.Frequency) {
	c.mu.Lock()
	c.half = f.Period() / 2
	c.mu.Unlock()
}

// Opts is the configuration for the bit-banged bus.
type Opts struct {
	Speed physic.Frequency // Bus speed (default: 100kHz), ignored with a custom Clock
	Clock Clock            // Settle delay (default: sleep half a period)

	// Optional status LEDs. OK is lit from construction until a fatal
	// failure, Fail is lit once the bus halts.
	OK   gpio.PinOut
	Fail gpio.PinOut
}

// Bus is a bit-banged I²C master.
type Bus struct {
	mu    sync.Mutex
	scl   gpio.PinIO
	sda   gpio.PinIO
	clock Clock
	sleep *sleepClock // nil when the caller supplied the clock
	ok    gpio.PinOut
	fail  gpio.PinOut
	err   error // terminal failure, nil while healthy
}

// New releases both lines and returns a ready bus.
func New(scl, sda gpio.PinIO, opts *Opts) (*Bus, error) {
	if scl == nil || sda == nil {
		return nil, errors.New("i2cbb: both SCL and SDA are required")
	}
	if opts == nil {
		opts = &Opts{}
	}
	speed := opts.Speed
	if speed == 0 {
		speed = 100 * physic.KiloHertz
	}
	if speed < 0 {
		return nil, errors.New("i2cbb: speed must be positive")
	}

	b := &Bus{scl: scl, sda: sda, clock: opts.Clock, ok: opts.OK, fail: opts.Fail}
	if b.clock == nil {
		b.sleep = &sleepClock{}
		b.sleep.setSpeed(speed)
		b.clock = b.sleep
	}

	if err := b.release(b.sda); err != nil {
		return nil, err
	}
	if err := b.release(b.scl); err != nil {
		return nil, err
	}
	if b.ok != nil {
		if err := b.ok.Out(gpio.High); err != nil {
			return nil, fmt.Errorf("i2cbb: status LED: %w", err)
		}
	}
	if b.fail != nil {
		if err := b.fail.Out(gpio.Low); err != nil {
			return nil, fmt.Errorf("i2cbb: status LED: %w", err)
		}
	}
	return b, nil
}

func (b *Bus) String() string {
	return fmt.Sprintf("i2cbb(%s, %s)", b.scl, b.sda)
}

// SetSpeed changes the bus speed used by the default clock.
func (b *Bus) SetSpeed(f physic.Frequency) error {
	if f <= 0 {
		return errors.New("i2cbb: speed must be positive")
	}
	if b.sleep != nil {
		b.sleep.setSpeed(f)
	}
	return nil
}

// Close releases both lines unless the bus halted, in which case the lines
// stay frozen.
func (b *Bus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.err != nil {
		return nil
	}
	if err := b.release(b.scl); err != nil {
		return err
	}
	return b.release(b.sda)
}

// SCL implements i2c.Pins.
func (b *Bus) SCL() gpio.PinIO {
	return b.scl
}

// SDA implements i2c.Pins.
func (b *Bus) SDA() gpio.PinIO {
	return b.sda
}

// Err returns the terminal failure, or nil while the bus is healthy.
func (b *Bus) Err() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.err
}

// Tx writes w then reads len(r) bytes from the 7-bit address addr, using a
// repeated start between the two phases.
func (b *Bus) Tx(addr uint16, w, r []byte) error {
	if addr > 0x7F {
		return fmt.Errorf("i2cbb: invalid address %#x", addr)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.err != nil {
		return fmt.Errorf("%w: %v", ErrHalted, b.err)
	}
	if err := b.tx(addr, w, r); err != nil {
		b.halt(err)
		return err
	}
	return nil
}

func (b *Bus) tx(addr uint16, w, r []byte) error {
	// idx counts bytes on the wire, address bytes included.
	idx := 0
	if len(w) != 0 || len(r) == 0 {
		if err := b.start(); err != nil {
			return err
		}
		if err := b.sendAcked(addr, idx, byte(addr<<1)); err != nil {
			return err
		}
		for _, c := range w {
			idx++
			if err := b.sendAcked(addr, idx, c); err != nil {
				return err
			}
		}
		idx++
	}
	if len(r) != 0 {
		if err := b.start(); err != nil {
			return err
		}
		if err := b.sendAcked(addr, idx, byte(addr<<1)|1); err != nil {
			return err
		}
		for i := range r {
			c, err := b.read(i < len(r)-1)
			if err != nil {
				return err
			}
			r[i] = c
		}
	}
	return b.stop()
}

func (b *Bus) sendAcked(addr uint16, idx int, c byte) error {
	acked, err := b.send(c)
	if err != nil {
		return err
	}
	if !acked {
		return &NackError{Addr: addr, Index: idx, Byte: c}
	}
	return nil
}

// halt records the terminal failure and switches the status LEDs.
func (b *Bus) halt(err error) {
	b.err = err
	if b.ok != nil {
		_ = b.ok.Out(gpio.Low)
	}
	if b.fail != nil {
		_ = b.fail.Out(gpio.High)
	}
}

// start pulls SDA low then SCL low. Both lines are released first so the
// same sequence produces a repeated start in the middle of a transaction.
func (b *Bus) start() error {
	if err := b.release(b.sda); err != nil {
		return err
	}
	if err := b.release(b.scl); err != nil {
		return err
	}
	if b.sda.Read() == gpio.Low {
		return ErrStuck
	}
	if err := b.low(b.sda); err != nil {
		return err
	}
	return b.low(b.scl)
}

// stop releases SCL then SDA. SDA is pulled low first, while SCL is still
// low, so that its release is seen as a stop condition.
func (b *Bus) stop() error {
	if err := b.low(b.sda); err != nil {
		return err
	}
	if err := b.release(b.scl); err != nil {
		return err
	}
	return b.release(b.sda)
}

// send shifts c out MSB first and reports whether the peer acknowledged it.
// On a missing acknowledgment SCL is left high.
func (b *Bus) send(c byte) (bool, error) {
	for mask := byte(0x80); mask != 0; mask >>= 1 {
		var err error
		if c&mask != 0 {
			err = b.release(b.sda)
		} else {
			err = b.low(b.sda)
		}
		if err != nil {
			return false, err
		}
		if err := b.pulse(); err != nil {
			return false, err
		}
	}
	if err := b.release(b.sda); err != nil {
		return false, err
	}
	if err := b.release(b.scl); err != nil {
		return false, err
	}
	if b.sda.Read() == gpio.High {
		return false, nil
	}
	return true, b.low(b.scl)
}

// read clocks in one byte MSB first, then acknowledges it if ack is set.
func (b *Bus) read(ack bool) (byte, error) {
	if err := b.release(b.sda); err != nil {
		return 0, err
	}
	var c byte
	for i := 0; i < 8; i++ {
		if err := b.release(b.scl); err != nil {
			return 0, err
		}
		c <<= 1
		if b.sda.Read() == gpio.High {
			c |= 1
		}
		if err := b.low(b.scl); err != nil {
			return 0, err
		}
	}
	var err error
	if ack {
		err = b.low(b.sda)
	} else {
		err = b.release(b.sda)
	}
	if err != nil {
		return 0, err
	}
	if err := b.pulse(); err != nil {
		return 0, err
	}
	return c, b.release(b.sda)
}

// pulse raises then lowers SCL.
func (b *Bus) pulse() error {
	if err := b.release(b.scl); err != nil {
		return err
	}
	return b.low(b.scl)
}

// release lets the pull-up take the line High.
func (b *Bus) release(p gpio.PinIO) error {
	if err := p.In(gpio.PullUp, gpio.NoEdge); err != nil {
		return fmt.Errorf("i2cbb: release %s: %w", p, err)
	}
	b.clock.Tick()
	return nil
}

// low drives the line Low.
func (b *Bus) low(p gpio.PinIO) error {
	if err := p.Out(gpio.Low); err != nil {
		return fmt.Errorf("i2cbb: drive %s: %w", p, err)
	}
	b.clock.Tick()
	return nil
}

var (
	_ i2c.BusCloser = &Bus{}
	_ i2c.Pins      = &Bus{}
)
