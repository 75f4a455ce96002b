package i2cbb

import (
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpiotest"
)

// wire models the two bus lines with their pull-ups and a single target
// device decoding what the master clocks out.
type wire struct {
	addr    uint16
	absent  bool // nobody answers: every acknowledgment slot reads High
	nackAt  int  // byte index (address included) the target refuses, -1 for none
	stuckLo bool // the target holds SDA low forever

	sclRel, sdaRel bool // master side
	targetLow      bool // target pulling SDA low

	started   bool
	index     int  // bytes seen since the last start
	bits      int  // bits of the current byte
	shift     byte // byte being assembled
	ackSlot   bool // SCL pulse carrying the target's acknowledgment
	reading   bool // target transmits, master acknowledges
	readBits  int
	outByte   byte
	hostAck   bool // SCL pulse carrying the master's acknowledgment
	hostAcked bool

	serve []byte // bytes returned to read requests

	starts, stops int
	written       [][]byte // bytes after the address, per addressed write
	hostAcks      []bool
}

func newWire(addr uint16) *wire {
	return &wire{addr: addr, nackAt: -1, sclRel: true, sdaRel: true}
}

func (w *wire) pins() (scl, sda *wirePin) {
	return &wirePin{Pin: &gpiotest.Pin{N: "SCL"}, w: w, clock: true},
		&wirePin{Pin: &gpiotest.Pin{N: "SDA"}, w: w}
}

func (w *wire) scl() bool { return w.sclRel }
func (w *wire) sda() bool { return w.sdaRel && !w.targetLow && !w.stuckLo }

func (w *wire) set(clock, released bool) {
	oldSCL, oldSDA := w.scl(), w.sda()
	if clock {
		w.sclRel = released
	} else {
		w.sdaRel = released
	}
	newSCL, newSDA := w.scl(), w.sda()
	switch {
	case oldSCL && newSCL && oldSDA && !newSDA:
		w.onStart()
	case oldSCL && newSCL && !oldSDA && newSDA:
		w.onStop()
	case !oldSCL && newSCL:
		w.onRise(newSDA)
	case oldSCL && !newSCL:
		w.onFall()
	}
}

func (w *wire) onStart() {
	w.starts++
	w.started = true
	w.index, w.bits, w.shift = 0, 0, 0
	w.ackSlot, w.reading, w.hostAck = false, false, false
	w.targetLow = false
}

func (w *wire) onStop() {
	w.stops++
	w.started = false
	w.targetLow = false
}

func (w *wire) onRise(sda bool) {
	if !w.started {
		return
	}
	switch {
	case w.ackSlot:
	case w.hostAck:
		w.hostAcked = !sda
	case w.reading:
	default:
		w.shift <<= 1
		if sda {
			w.shift |= 1
		}
		w.bits++
	}
}

func (w *wire) onFall() {
	if !w.started {
		return
	}
	switch {
	case w.ackSlot:
		w.ackSlot = false
		w.targetLow = false
		if w.reading {
			w.loadByte()
		}
	case w.hostAck:
		w.hostAck = false
		w.hostAcks = append(w.hostAcks, w.hostAcked)
		if w.hostAcked {
			w.loadByte()
		} else {
			w.targetLow = false
			w.started = false
		}
	case w.reading:
		w.readBits++
		if w.readBits == 8 {
			w.targetLow = false
			w.hostAck = true
			return
		}
		w.targetLow = w.outByte&(0x80>>uint(w.readBits)) == 0
	case w.bits == 8:
		w.byteDone(w.shift)
		w.bits, w.shift = 0, 0
	}
}

// byteDone runs after the 8th bit of a byte written by the master.
func (w *wire) byteDone(c byte) {
	idx := w.index
	w.index++
	if idx == 0 {
		if w.absent || uint16(c>>1) != w.addr {
			w.started = false
			return
		}
		w.reading = c&1 == 1
		if !w.reading {
			w.written = append(w.written, nil)
		}
	} else {
		w.written[len(w.written)-1] = append(w.written[len(w.written)-1], c)
	}
	if idx == w.nackAt {
		w.started = false
		return
	}
	w.targetLow = true
	w.ackSlot = true
}

// loadByte starts shifting out the next served byte.
func (w *wire) loadByte() {
	w.outByte = 0xFF
	if len(w.serve) > 0 {
		w.outByte, w.serve = w.serve[0], w.serve[1:]
	}
	w.readBits = 0
	w.targetLow = w.outByte&0x80 == 0
}

// wirePin is one of the master's pins on the wire.
type wirePin struct {
	*gpiotest.Pin
	w     *wire
	clock bool

	ins, outs int
}

func (p *wirePin) In(pull gpio.Pull, edge gpio.Edge) error {
	p.ins++
	p.w.set(p.clock, true)
	return nil
}

func (p *wirePin) Out(l gpio.Level) error {
	p.outs++
	p.w.set(p.clock, l == gpio.High)
	return nil
}

func (p *wirePin) Read() gpio.Level {
	if p.clock {
		return gpio.Level(p.w.scl())
	}
	return gpio.Level(p.w.sda())
}

// countingClock counts settle delays instead of sleeping.
type countingClock struct {
	ticks int
}

func (c *countingClock) Tick() {
	c.ticks++
}
