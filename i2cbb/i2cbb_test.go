package i2cbb

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/flavioheleno/oledtris/ssd1306"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpiotest"
	"periph.io/x/conn/v3/physic"
)

func newTestBus(t *testing.T, w *wire) (*Bus, *countingClock) {
	t.Helper()
	scl, sda := w.pins()
	clk := &countingClock{}
	b, err := New(scl, sda, &Opts{Clock: clk})
	if err != nil {
		t.Fatalf("New() = %v", err)
	}
	return b, clk
}

func TestNewRequiresPins(t *testing.T) {
	scl, _ := newWire(0x3C).pins()
	if _, err := New(scl, nil, nil); err == nil {
		t.Error("New without SDA should fail")
	}
	if _, err := New(nil, scl, nil); err == nil {
		t.Error("New without SCL should fail")
	}
}

func TestNewReleasesLinesAndLightsOK(t *testing.T) {
	w := newWire(0x3C)
	w.sclRel, w.sdaRel = false, false
	scl, sda := w.pins()
	ok := &gpiotest.Pin{N: "OK"}
	fail := &gpiotest.Pin{N: "FAIL", L: gpio.High}

	if _, err := New(scl, sda, &Opts{Clock: &countingClock{}, OK: ok, Fail: fail}); err != nil {
		t.Fatal(err)
	}
	if !w.sclRel || !w.sdaRel {
		t.Error("New should release both lines")
	}
	if ok.L != gpio.High || fail.L != gpio.Low {
		t.Errorf("LEDs OK=%v FAIL=%v, want High/Low", ok.L, fail.L)
	}
}

func TestTxWrite(t *testing.T) {
	w := newWire(0x3C)
	b, _ := newTestBus(t, w)

	if err := b.Tx(0x3C, []byte{0xAB, 0x00, 0xFF}, nil); err != nil {
		t.Fatalf("Tx() = %v", err)
	}
	if w.starts != 1 || w.stops != 1 {
		t.Errorf("starts=%d stops=%d, want 1/1", w.starts, w.stops)
	}
	if len(w.written) != 1 || !bytes.Equal(w.written[0], []byte{0xAB, 0x00, 0xFF}) {
		t.Errorf("target received %v", w.written)
	}
	if !w.scl() || !w.sda() {
		t.Error("bus should be idle after the transaction")
	}
}

func TestTxRead(t *testing.T) {
	w := newWire(0x50)
	w.serve = []byte{0x5A, 0xC3, 0x01}
	b, _ := newTestBus(t, w)

	r := make([]byte, 3)
	if err := b.Tx(0x50, nil, r); err != nil {
		t.Fatalf("Tx() = %v", err)
	}
	if !bytes.Equal(r, []byte{0x5A, 0xC3, 0x01}) {
		t.Errorf("read % x, want 5a c3 01", r)
	}
	want := []bool{true, true, false}
	if len(w.hostAcks) != len(want) {
		t.Fatalf("master acknowledged %d bytes, want %d", len(w.hostAcks), len(want))
	}
	for i := range want {
		if w.hostAcks[i] != want[i] {
			t.Errorf("ack[%d] = %v, want %v", i, w.hostAcks[i], want[i])
		}
	}
	if w.stops != 1 {
		t.Errorf("stops = %d, want 1", w.stops)
	}
}

func TestTxWriteThenRead(t *testing.T) {
	w := newWire(0x50)
	w.serve = []byte{0x42}
	b, _ := newTestBus(t, w)

	r := make([]byte, 1)
	if err := b.Tx(0x50, []byte{0xD0}, r); err != nil {
		t.Fatalf("Tx() = %v", err)
	}
	if r[0] != 0x42 {
		t.Errorf("read %#x, want 0x42", r[0])
	}
	if w.starts != 2 || w.stops != 1 {
		t.Errorf("starts=%d stops=%d, want a repeated start and one stop", w.starts, w.stops)
	}
	if len(w.written) != 1 || !bytes.Equal(w.written[0], []byte{0xD0}) {
		t.Errorf("target received %v", w.written)
	}
}

func TestTxSettleDelays(t *testing.T) {
	w := newWire(0x3C)
	b, clk := newTestBus(t, w)
	before := clk.ticks

	if err := b.Tx(0x3C, []byte{0x12}, nil); err != nil {
		t.Fatal(err)
	}
	// start 4, two bytes of 27, stop 3.
	if got := clk.ticks - before; got != 61 {
		t.Errorf("ticks = %d, want 61", got)
	}
}

func TestNackHalts(t *testing.T) {
	w := newWire(0x3C)
	w.absent = true
	scl, sda := w.pins()
	ok := &gpiotest.Pin{N: "OK"}
	fail := &gpiotest.Pin{N: "FAIL"}
	b, err := New(scl, sda, &Opts{Clock: &countingClock{}, OK: ok, Fail: fail})
	if err != nil {
		t.Fatal(err)
	}

	err = b.Tx(0x3C, []byte{0x00, 0xAF}, nil)
	if !errors.Is(err, ErrNack) {
		t.Fatalf("Tx() = %v, want ErrNack", err)
	}
	var nack *NackError
	if !errors.As(err, &nack) {
		t.Fatalf("Tx() = %T, want *NackError", err)
	}
	if nack.Addr != 0x3C || nack.Index != 0 || nack.Byte != 0x78 {
		t.Errorf("NackError = %+v", nack)
	}
	if b.Err() == nil {
		t.Error("Err() = nil after a missing acknowledgment")
	}
	if ok.L != gpio.Low || fail.L != gpio.High {
		t.Errorf("LEDs OK=%v FAIL=%v, want Low/High", ok.L, fail.L)
	}
	// Lines stay frozen: no stop condition, clock left high.
	if w.stops != 0 || !w.scl() {
		t.Errorf("stops=%d scl=%v after failure", w.stops, w.scl())
	}

	ins, outs := scl.ins, scl.outs
	if err := b.Tx(0x3C, []byte{0x00}, nil); !errors.Is(err, ErrHalted) {
		t.Errorf("Tx() after halt = %v, want ErrHalted", err)
	}
	if scl.ins != ins || scl.outs != outs {
		t.Error("halted bus touched the clock line")
	}
	if err := b.Close(); err != nil {
		t.Errorf("Close() = %v", err)
	}
	if scl.ins != ins {
		t.Error("Close released a frozen bus")
	}
}

func TestNackOnDataByte(t *testing.T) {
	w := newWire(0x3C)
	w.nackAt = 2
	b, _ := newTestBus(t, w)

	err := b.Tx(0x3C, []byte{0x40, 0x99, 0x77}, nil)
	var nack *NackError
	if !errors.As(err, &nack) {
		t.Fatalf("Tx() = %v, want *NackError", err)
	}
	if nack.Index != 2 || nack.Byte != 0x99 {
		t.Errorf("NackError = %+v, want index 2 byte 0x99", nack)
	}
	if !strings.Contains(err.Error(), "byte 2") {
		t.Errorf("Error() = %q", err)
	}
}

func TestStuckDataHalts(t *testing.T) {
	w := newWire(0x3C)
	w.stuckLo = true
	b, _ := newTestBus(t, w)

	if err := b.Tx(0x3C, []byte{0x00}, nil); !errors.Is(err, ErrStuck) {
		t.Fatalf("Tx() = %v, want ErrStuck", err)
	}
	if err := b.Tx(0x3C, []byte{0x00}, nil); !errors.Is(err, ErrHalted) {
		t.Errorf("Tx() after stuck bus = %v, want ErrHalted", err)
	}
}

func TestInvalidAddressDoesNotHalt(t *testing.T) {
	w := newWire(0x3C)
	b, _ := newTestBus(t, w)

	if err := b.Tx(0x80, []byte{0x00}, nil); err == nil {
		t.Fatal("Tx with an 8-bit address should fail")
	}
	if b.Err() != nil {
		t.Error("address validation should not halt the bus")
	}
	if err := b.Tx(0x3C, []byte{0x00}, nil); err != nil {
		t.Errorf("Tx() = %v", err)
	}
}

func TestSetSpeed(t *testing.T) {
	tests := []struct {
		name    string
		f       physic.Frequency
		want    time.Duration
		wantErr bool
	}{
		{"standard mode", 100 * physic.KiloHertz, 5 * time.Microsecond, false},
		{"fast mode", 400 * physic.KiloHertz, 1250 * time.Nanosecond, false},
		{"zero", 0, 0, true},
		{"negative", -1, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			scl, sda := newWire(0x3C).pins()
			b, err := New(scl, sda, &Opts{Speed: 10 * physic.KiloHertz})
			if err != nil {
				t.Fatal(err)
			}
			err = b.SetSpeed(tt.f)
			if (err != nil) != tt.wantErr {
				t.Fatalf("SetSpeed() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && b.sleep.half != tt.want {
				t.Errorf("half period = %v, want %v", b.sleep.half, tt.want)
			}
		})
	}
}

func TestPins(t *testing.T) {
	w := newWire(0x3C)
	scl, sda := w.pins()
	b, err := New(scl, sda, &Opts{Clock: &countingClock{}})
	if err != nil {
		t.Fatal(err)
	}
	if b.SCL() != scl || b.SDA() != sda {
		t.Error("SCL()/SDA() do not return the configured pins")
	}
	if !strings.HasPrefix(b.String(), "i2cbb(") {
		t.Errorf("String() = %q", b.String())
	}
}

func TestDisplayInitOverWire(t *testing.T) {
	w := newWire(ssd1306.DefaultAddr)
	b, _ := newTestBus(t, w)

	if _, err := ssd1306.NewI2C(b, nil); err != nil {
		t.Fatalf("ssd1306.NewI2C() = %v", err)
	}
	if len(w.written) != 3 {
		t.Fatalf("got %d transactions, want 3", len(w.written))
	}
	seq := w.written[0]
	if seq[0] != 0x00 || seq[1] != 0xAE || seq[len(seq)-1] != 0xAF {
		t.Errorf("init transaction = % x", seq)
	}
	if got := len(w.written[2]); got != 1+ssd1306.Width*ssd1306.Pages {
		t.Errorf("clear transaction has %d bytes", got)
	}
}
