package eink

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"testing"
	"time"

	"periph.io/x/conn/v3/gpio"

	"github.com/BeatGlow/eink/pixel"
)

type testConn struct {
	sent   [][]byte
	resets []gpio.Level
	busy   int // remaining busy reads, negative is busy forever
	closed bool
	err    error
}

func (c *testConn) String() string { return "test" }

func (c *testConn) Close() error {
	c.closed = true
	return nil
}

func (c *testConn) Reset(level gpio.Level) error {
	c.resets = append(c.resets, level)
	return nil
}

func (c *testConn) Command(cmd byte, data ...byte) error {
	if c.err != nil {
		return c.err
	}
	c.sent = append(c.sent, append([]byte{cmd}, data...))
	return nil
}

func (c *testConn) Data(data ...byte) error {
	if len(c.sent) == 0 {
		return errors.New("data before command")
	}
	last := len(c.sent) - 1
	c.sent[last] = append(c.sent[last], data...)
	return nil
}

func (c *testConn) Busy() bool {
	if c.busy == 0 {
		return false
	}
	if c.busy > 0 {
		c.busy--
	}
	return true
}

// commands returns the command bytes sent, in order.
func (c *testConn) commands() []byte {
	out := make([]byte, len(c.sent))
	for i, s := range c.sent {
		out[i] = s[0]
	}
	return out
}

// find returns the arguments of the nth (from 0) occurrence of cmd.
func (c *testConn) find(cmd byte, n int) []byte {
	for _, s := range c.sent {
		if s[0] == cmd {
			if n == 0 {
				return s[1:]
			}
			n--
		}
	}
	return nil
}

// noDelay replaces delay for the duration of the test and records the waits.
func noDelay(t *testing.T) *[]time.Duration {
	t.Helper()
	var waits []time.Duration
	saved := delay
	delay = func(ctx context.Context, d time.Duration) error {
		waits = append(waits, d)
		return ctx.Err()
	}
	t.Cleanup(func() { delay = saved })
	return &waits
}

func newTestDisplay(t *testing.T, mode Mode) (*Display, *testConn) {
	t.Helper()
	noDelay(t)
	c := new(testConn)
	d := New(c, nil)
	if mode != ModeOff {
		if err := d.Init(context.Background(), mode); err != nil {
			t.Fatal(err)
		}
		c.sent = nil
	}
	return d, c
}

func TestMode(t *testing.T) {
	tests := []struct {
		Mode   Mode
		Name   string
		Format pixel.Format
		Size   image.Point
	}{
		{ModeOff, "off", pixel.OneBit, image.Pt(800, 480)},
		{ModeFull, "full", pixel.OneBit, image.Pt(800, 480)},
		{ModeFast, "fast", pixel.OneBit, image.Pt(800, 480)},
		{ModeGray, "4-gray", pixel.TwoBit, image.Pt(480, 800)},
		{ModePartial, "partial", pixel.OneBit, image.Pt(800, 480)},
	}
	for _, test := range tests {
		t.Run(test.Name, func(it *testing.T) {
			if v := test.Mode.String(); v != test.Name {
				it.Errorf("expected name %q, got %q", test.Name, v)
			}
			if v := test.Mode.Format(); v != test.Format {
				it.Errorf("expected format %s, got %s", test.Format, v)
			}
			size := test.Mode.FrameSize()
			if !size.Eq(test.Size) {
				it.Errorf("expected frame size %s, got %s", test.Size, size)
			}
			if v := test.Format.Size(size.X, size.Y); test.Format == pixel.OneBit && v != MonoSize || test.Format == pixel.TwoBit && v != GraySize {
				it.Errorf("unexpected frame size %d bytes", v)
			}
		})
	}
}

var (
	testDriverOutput = []byte{0xdf, 0x01, 0x02}
	testYWindow      = []byte{0x00, 0x00, 0xdf, 0x01}
)

func TestInit(t *testing.T) {
	tests := []struct {
		Mode     Mode
		Commands []byte
		XWindow  []byte
		Entry    byte
		Temp     []byte
	}{
		{
			Mode:     ModeFull,
			Commands: []byte{0x12, 0x12, 0x12, 0x18, 0x0c, 0x01, 0x3c, 0x11, 0x44, 0x45, 0x4e, 0x4f},
			XWindow:  []byte{0x00, 0x00, 0x1f, 0x03},
			Entry:    0x03,
			Temp:     nil,
		},
		{
			Mode:     ModeFast,
			Commands: []byte{0x12, 0x0c, 0x01, 0x11, 0x44, 0x45, 0x4e, 0x4f, 0x3c, 0x18, 0x1a},
			XWindow:  []byte{0x00, 0x00, 0x1f, 0x03},
			Entry:    0x03,
			Temp:     []byte{0x6a},
		},
		{
			Mode:     ModeGray,
			Commands: []byte{0x12, 0x0c, 0x01, 0x11, 0x44, 0x45, 0x4e, 0x4f, 0x3c, 0x18, 0x1a},
			XWindow:  []byte{0x1f, 0x03, 0x00, 0x00},
			Entry:    0x02,
			Temp:     []byte{0x5a},
		},
	}
	for _, test := range tests {
		t.Run(test.Mode.String(), func(it *testing.T) {
			noDelay(it)
			c := new(testConn)
			d := New(c, nil)
			if err := d.Init(context.Background(), test.Mode); err != nil {
				it.Fatal(err)
			}
			if v := d.Mode(); v != test.Mode {
				it.Errorf("expected mode %s, got %s", test.Mode, v)
			}
			if v := c.commands(); !bytes.Equal(v, test.Commands) {
				it.Errorf("expected commands % x, got % x", test.Commands, v)
			}
			if len(c.resets) != 2 || c.resets[0] != gpio.Low || c.resets[1] != gpio.High {
				it.Errorf("expected reset low then high, got %v", c.resets)
			}
			for _, check := range []struct {
				cmd  byte
				want []byte
			}{
				{cmdDriverOutput, testDriverOutput},
				{cmdBoosterSoftStart, []byte{0xae, 0xc7, 0xc3, 0xc0, 0x80}},
				{cmdDataEntryMode, []byte{test.Entry}},
				{cmdRAMXWindow, test.XWindow},
				{cmdRAMYWindow, testYWindow},
				{cmdRAMXCounter, []byte{0x00, 0x00}},
				{cmdRAMYCounter, []byte{0x00, 0x00}},
				{cmdBorderWaveform, []byte{0x01}},
				{cmdTempSensor, []byte{0x80}},
				{cmdWriteTemp, test.Temp},
			} {
				if v := c.find(check.cmd, 0); !bytes.Equal(v, check.want) {
					it.Errorf("command %#02x: expected arguments % x, got % x", check.cmd, check.want, v)
				}
			}
			if size := d.Bounds().Size(); !size.Eq(test.Mode.FrameSize()) {
				it.Errorf("expected buffer size %s, got %s", test.Mode.FrameSize(), size)
			}
		})
	}
}

func TestInitInvalidMode(t *testing.T) {
	d, c := newTestDisplay(t, ModeOff)
	for _, mode := range []Mode{ModeOff, ModePartial, Mode(42)} {
		if err := d.Init(context.Background(), mode); err == nil {
			t.Errorf("expected error initializing %s mode", mode)
		}
	}
	if len(c.sent) != 0 {
		t.Errorf("expected no commands, got % x", c.commands())
	}
}

func TestInitBuffer(t *testing.T) {
	d, _ := newTestDisplay(t, ModeFast)
	if _, ok := d.Image.(*pixel.MonoImage); !ok {
		t.Fatalf("expected mono buffer, got %T", d.Image)
	}
	d.Set(5, 5, color.Black)
	if err := d.Init(context.Background(), ModeFull); err != nil {
		t.Fatal(err)
	}
	if v := d.At(5, 5); v != pixel.On {
		t.Errorf("expected buffer to survive a mode change of the same format, got %v", v)
	}
	if err := d.Init(context.Background(), ModeGray); err != nil {
		t.Fatal(err)
	}
	if _, ok := d.Image.(*pixel.Gray2ColumnImage); !ok {
		t.Fatalf("expected 4-gray buffer, got %T", d.Image)
	}
}

func TestWriteMono(t *testing.T) {
	for _, test := range []struct {
		Mode   Mode
		Update byte
	}{
		{ModeFull, 0xf7},
		{ModeFast, 0xd7},
	} {
		t.Run(test.Mode.String(), func(it *testing.T) {
			d, c := newTestDisplay(it, test.Mode)
			p := &pixel.Packed{Format: pixel.OneBit, Width: Width, Height: Height, Data: make([]byte, MonoSize)}
			p.Data[0] = 0xf0
			p.Data[MonoSize-1] = 0x01
			if err := d.WriteMono(context.Background(), p); err != nil {
				it.Fatal(err)
			}
			if v, want := c.commands(), []byte{0x24, 0x26, 0x22, 0x20}; !bytes.Equal(v, want) {
				it.Fatalf("expected commands % x, got % x", want, v)
			}
			ram := c.find(cmdWriteRAM, 0)
			if len(ram) != MonoSize {
				it.Fatalf("expected %d bytes, got %d", MonoSize, len(ram))
			}
			if ram[0] != 0x0f || ram[1] != 0xff || ram[MonoSize-1] != 0xfe {
				it.Errorf("expected inverted frame, got % x ... % x", ram[:2], ram[MonoSize-1])
			}
			if !bytes.Equal(c.find(cmdWriteRAM2, 0), fill(MonoSize, 0xff)) {
				it.Error("expected second RAM to be white")
			}
			if v := c.find(cmdDisplayUpdate2, 0); !bytes.Equal(v, []byte{test.Update}) {
				it.Errorf("expected update % x, got % x", test.Update, v)
			}
			if p.Data[0] != 0xf0 {
				it.Error("frame was modified")
			}
		})
	}
}

func TestWriteMonoErrors(t *testing.T) {
	mono := &pixel.Packed{Format: pixel.OneBit, Width: Width, Height: Height, Data: make([]byte, MonoSize)}
	tests := []struct {
		Name  string
		Mode  Mode
		Frame *pixel.Packed
		Err   error
	}{
		{"off", ModeOff, mono, ErrMode},
		{"gray", ModeGray, mono, ErrMode},
		{"format", ModeFast, &pixel.Packed{Format: pixel.TwoBit, Width: Width, Height: Height, Data: make([]byte, MonoSize)}, ErrFrameFormat},
		{"width", ModeFast, &pixel.Packed{Format: pixel.OneBit, Width: 400, Height: Height, Data: make([]byte, MonoSize)}, ErrFrameSize},
		{"data", ModeFull, &pixel.Packed{Format: pixel.OneBit, Width: Width, Height: Height, Data: make([]byte, 10)}, ErrFrameSize},
	}
	for _, test := range tests {
		t.Run(test.Name, func(it *testing.T) {
			d, c := newTestDisplay(it, test.Mode)
			if err := d.WriteMono(context.Background(), test.Frame); !errors.Is(err, test.Err) {
				it.Errorf("expected %v, got %v", test.Err, err)
			}
			if len(c.sent) != 0 {
				it.Errorf("expected no commands, got % x", c.commands())
			}
		})
	}
}

func TestSplitGray(t *testing.T) {
	tests := []struct {
		Name       string
		Data       []byte
		RAM1, RAM2 []byte
	}{
		{"white", []byte{0x00, 0x00}, []byte{0xff}, []byte{0xff}},
		{"black", []byte{0xff, 0xff}, []byte{0x00}, []byte{0x00}},
		{"levels", []byte{0x1b, 0xe4}, []byte{0xa5}, []byte{0xc3}},
		{"light", []byte{0x55, 0x55, 0x00, 0x00}, []byte{0x00, 0xff}, []byte{0xff, 0xff}},
		{"mid", []byte{0xaa, 0xaa}, []byte{0xff}, []byte{0x00}},
	}
	for _, test := range tests {
		t.Run(test.Name, func(it *testing.T) {
			ram1, ram2 := splitGray(test.Data)
			if !bytes.Equal(ram1, test.RAM1) {
				it.Errorf("expected RAM1 % x, got % x", test.RAM1, ram1)
			}
			if !bytes.Equal(ram2, test.RAM2) {
				it.Errorf("expected RAM2 % x, got % x", test.RAM2, ram2)
			}
		})
	}
}

func TestWriteGray(t *testing.T) {
	d, c := newTestDisplay(t, ModeGray)
	img := pixel.NewGray2ColumnImage(Height, Width)
	img.SetGray(0, 0, pixel.Black)
	img.SetGray(0, 1, pixel.LightGray)
	p := &pixel.Packed{Format: pixel.TwoBit, Width: Height, Height: Width, Data: img.Pix}
	if err := d.WriteGray(context.Background(), p); err != nil {
		t.Fatal(err)
	}
	if v, want := c.commands(), []byte{0x24, 0x26, 0x22, 0x20}; !bytes.Equal(v, want) {
		t.Fatalf("expected commands % x, got % x", want, v)
	}
	ram1, ram2 := c.find(cmdWriteRAM, 0), c.find(cmdWriteRAM2, 0)
	if len(ram1) != MonoSize || len(ram2) != MonoSize {
		t.Fatalf("expected %d bytes per RAM, got %d and %d", MonoSize, len(ram1), len(ram2))
	}
	// Black sets both planes, light gray only the first.
	if ram1[0] != 0x3f || ram2[0] != 0x7f {
		t.Errorf("expected first bytes 3f and 7f, got %02x and %02x", ram1[0], ram2[0])
	}
	if v := c.find(cmdDisplayUpdate2, 0); !bytes.Equal(v, []byte{0xd7}) {
		t.Errorf("expected fast update, got % x", v)
	}

	if err := d.WriteGray(context.Background(), &pixel.Packed{Format: pixel.OneBit, Width: Height, Height: Width, Data: make([]byte, GraySize)}); !errors.Is(err, ErrFrameFormat) {
		t.Errorf("expected ErrFrameFormat, got %v", err)
	}
	if err := d.WriteGray(context.Background(), &pixel.Packed{Format: pixel.TwoBit, Width: Width, Height: Height, Data: make([]byte, GraySize)}); !errors.Is(err, ErrFrameSize) {
		t.Errorf("expected ErrFrameSize, got %v", err)
	}

	d, _ = newTestDisplay(t, ModeFull)
	if err := d.WriteGray(context.Background(), p); !errors.Is(err, ErrMode) {
		t.Errorf("expected ErrMode, got %v", err)
	}
}

func TestWritePart(t *testing.T) {
	d, c := newTestDisplay(t, ModeFast)
	p := &pixel.Packed{Format: pixel.OneBit, Width: 16, Height: 2, Data: []byte{0x80, 0x00, 0x00, 0x01}}
	if err := d.WritePart(context.Background(), 13, 20, p); err != nil {
		t.Fatal(err)
	}
	if v := d.Mode(); v != ModePartial {
		t.Errorf("expected partial mode, got %s", v)
	}
	want := []byte{0x12, 0x0c, 0x01, 0x11, 0x18, 0x3c, 0x44, 0x45, 0x4e, 0x4f, 0x24, 0x22, 0x20}
	if v := c.commands(); !bytes.Equal(v, want) {
		t.Fatalf("expected commands % x, got % x", want, v)
	}
	for _, check := range []struct {
		cmd  byte
		want []byte
	}{
		{cmdBorderWaveform, []byte{0x80}},
		{cmdRAMXWindow, []byte{0x08, 0x00, 0x17, 0x00}},
		{cmdRAMYWindow, []byte{0x14, 0x00, 0x15, 0x00}},
		{cmdRAMXCounter, []byte{0x08, 0x00}},
		{cmdRAMYCounter, []byte{0x14, 0x00}},
		{cmdWriteRAM, []byte{0x7f, 0xff, 0xff, 0xfe}},
		{cmdDisplayUpdate2, []byte{0xff}},
	} {
		if v := c.find(check.cmd, 0); !bytes.Equal(v, check.want) {
			t.Errorf("command %#02x: expected arguments % x, got % x", check.cmd, check.want, v)
		}
	}

	// Partial mode keeps taking windows.
	if err := d.WritePart(context.Background(), 0, 0, p); err != nil {
		t.Fatal(err)
	}
	if err := d.WriteMono(context.Background(), &pixel.Packed{Format: pixel.OneBit, Width: Width, Height: Height, Data: make([]byte, MonoSize)}); !errors.Is(err, ErrMode) {
		t.Errorf("expected ErrMode after partial update, got %v", err)
	}
}

func TestWritePartErrors(t *testing.T) {
	wide := &pixel.Packed{Format: pixel.OneBit, Width: 16, Height: 2, Data: make([]byte, 4)}
	tests := []struct {
		Name  string
		Mode  Mode
		X, Y  int
		Frame *pixel.Packed
		Err   error
	}{
		{"off", ModeOff, 0, 0, wide, ErrMode},
		{"gray", ModeGray, 0, 0, wide, ErrMode},
		{"format", ModeFast, 0, 0, &pixel.Packed{Format: pixel.TwoBit, Width: 16, Height: 2, Data: make([]byte, 4)}, ErrFrameFormat},
		{"data", ModeFast, 0, 0, &pixel.Packed{Format: pixel.OneBit, Width: 16, Height: 2, Data: make([]byte, 3)}, ErrFrameSize},
		{"empty", ModeFast, 0, 0, &pixel.Packed{Format: pixel.OneBit}, ErrFrameSize},
		{"right", ModeFast, 792, 0, wide, ErrBounds},
		{"bottom", ModeFull, 0, 479, wide, ErrBounds},
		{"negative", ModeFull, -8, 0, wide, ErrBounds},
	}
	for _, test := range tests {
		t.Run(test.Name, func(it *testing.T) {
			d, c := newTestDisplay(it, test.Mode)
			if err := d.WritePart(context.Background(), test.X, test.Y, test.Frame); !errors.Is(err, test.Err) {
				it.Errorf("expected %v, got %v", test.Err, err)
			}
			if len(c.sent) != 0 {
				it.Errorf("expected no commands, got % x", c.commands())
			}
		})
	}
}

func TestRefresh(t *testing.T) {
	d, c := newTestDisplay(t, ModeFast)
	d.Set(0, 0, color.Black)
	if err := d.Refresh(context.Background()); err != nil {
		t.Fatal(err)
	}
	if v := c.find(cmdWriteRAM, 0); len(v) != MonoSize || v[0] != 0x7f {
		t.Errorf("expected mono frame with first pixel black, got %d bytes", len(v))
	}

	if err := d.Init(context.Background(), ModeGray); err != nil {
		t.Fatal(err)
	}
	c.sent = nil
	d.Set(0, 0, color.Black)
	if err := d.Refresh(context.Background()); err != nil {
		t.Fatal(err)
	}
	if v := c.find(cmdWriteRAM, 0); len(v) != MonoSize || v[0] != 0x7f {
		t.Errorf("expected gray frame with first pixel black")
	}
	if v := c.find(cmdWriteRAM2, 0); len(v) != MonoSize || v[0] != 0x7f {
		t.Errorf("expected gray frame with first pixel black")
	}
}

func TestClearScreen(t *testing.T) {
	d, c := newTestDisplay(t, ModeOff)
	if err := d.ClearScreen(context.Background()); !errors.Is(err, ErrMode) {
		t.Errorf("expected ErrMode, got %v", err)
	}

	d, c = newTestDisplay(t, ModeFull)
	if err := d.ClearScreen(context.Background()); err != nil {
		t.Fatal(err)
	}
	white := fill(MonoSize, 0xff)
	if !bytes.Equal(c.find(cmdWriteRAM, 0), white) || !bytes.Equal(c.find(cmdWriteRAM2, 0), white) {
		t.Error("expected both RAMs to be white")
	}
	if v := c.find(cmdDisplayUpdate2, 0); !bytes.Equal(v, []byte{0xf7}) {
		t.Errorf("expected full update, got % x", v)
	}
}

func TestSleep(t *testing.T) {
	d, c := newTestDisplay(t, ModeFast)
	if err := d.Sleep(context.Background()); err != nil {
		t.Fatal(err)
	}
	if len(c.sent) != 1 || !bytes.Equal(c.sent[0], []byte{0x10, 0x01}) {
		t.Errorf("expected deep sleep command, got %v", c.sent)
	}
	if v := d.Mode(); v != ModeOff {
		t.Errorf("expected mode off, got %s", v)
	}
}

func TestClose(t *testing.T) {
	d, c := newTestDisplay(t, ModeFull)
	if err := d.Close(); err != nil {
		t.Fatal(err)
	}
	if !c.closed {
		t.Error("expected connection to be closed")
	}
	if v := c.commands(); !bytes.Equal(v, []byte{0x10}) {
		t.Errorf("expected deep sleep before close, got % x", v)
	}

	d, c = newTestDisplay(t, ModeOff)
	if err := d.Close(); err != nil {
		t.Fatal(err)
	}
	if len(c.sent) != 0 || !c.closed {
		t.Errorf("expected close without commands, got % x", c.commands())
	}

	d, c = newTestDisplay(t, ModeFast)
	c.err = errors.New("test")
	if err := d.Close(); !errors.Is(err, c.err) {
		t.Errorf("expected send error, got %v", err)
	}
	if !c.closed {
		t.Error("expected connection to be closed after error")
	}
}

func TestBusy(t *testing.T) {
	waits := noDelay(t)
	c := &testConn{busy: 3}
	d := New(c, nil)
	if err := d.waitBusy(context.Background()); err != nil {
		t.Fatal(err)
	}
	want := []time.Duration{busyPoll, busyPoll, busyPoll, 200 * time.Millisecond}
	if len(*waits) != len(want) {
		t.Fatalf("expected waits %v, got %v", want, *waits)
	}
	for i, v := range *waits {
		if v != want[i] {
			t.Errorf("wait %d: expected %s, got %s", i, want[i], v)
		}
	}
}

func TestBusyTimeout(t *testing.T) {
	waits := noDelay(t)
	c := &testConn{busy: -1}
	d := New(c, &Config{Timeout: 50 * time.Millisecond})
	if err := d.Init(context.Background(), ModeFull); !errors.Is(err, ErrBusyTimeout) {
		t.Fatalf("expected ErrBusyTimeout, got %v", err)
	}
	if v := d.Mode(); v != ModeOff {
		t.Errorf("expected mode off, got %s", v)
	}
	// Two reset waits, then five polls.
	if len(*waits) != 7 {
		t.Errorf("expected 7 waits, got %v", *waits)
	}
	if len(c.sent) != 0 {
		t.Errorf("expected no commands, got % x", c.commands())
	}
}

func TestCanceled(t *testing.T) {
	noDelay(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	c := new(testConn)
	d := New(c, nil)
	if err := d.Init(ctx, ModeFast); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestDelay(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := delay(ctx, time.Hour); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if err := delay(context.Background(), time.Millisecond); err != nil {
		t.Error(err)
	}
}
