package eink

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
)

// Conn errors.
var (
	ErrResetPin = errors.New("eink: reset GPIO pin is invalid")
	ErrDCPin    = errors.New("eink: data/command (DC) GPIO pin is invalid")
	ErrBusyPin  = errors.New("eink: busy GPIO pin is invalid")
)

// Conn is the connection interface for communicating with the panel.
type Conn interface {
	String() string

	// Close the connection.
	Close() error

	// Reset sets the reset pin to the provided level.
	Reset(gpio.Level) error

	// Command sends a command byte with optional arguments.
	Command(byte, ...byte) error

	// Data sends data bytes.
	Data(...byte) error

	// Busy reports if the panel is busy.
	Busy() bool
}

// SPIConfig describes the SPI bus configuration.
type SPIConfig struct {
	// Port is the SPI port name as known to spireg, empty selects the first port.
	Port string

	SpeedHz   uint32
	BatchSize uint

	Reset gpio.PinOut
	DC    gpio.PinOut
	Busy  gpio.PinIn

	// BusyActiveLow is set for panels that pull the busy pin low while busy.
	BusyActiveLow bool
}

// DefaultSPIConfig are the default configuration values.
var DefaultSPIConfig = SPIConfig{
	SpeedHz:   4_000_000,
	BatchSize: 4096,
}

// ValidSPISpeeds are common valid SPI bus speeds.
var ValidSPISpeeds = []uint32{
	500_000,
	1_000_000,
	2_000_000,
	4_000_000,
	8_000_000,
	10_000_000,
	16_000_000,
	20_000_000,
}

type spiConn struct {
	port      spi.Port
	bus       spi.Conn
	closer    func() error
	reset     gpio.PinOut
	dc        gpio.PinOut
	dcLevel   gpio.Level
	dcSet     bool
	busy      gpio.PinIn
	busyLevel gpio.Level
	batchSize int
}

// OpenSPI opens the SPI port named in config and connects to the panel.
func OpenSPI(config *SPIConfig) (Conn, error) {
	if config == nil {
		config = new(SPIConfig)
		*config = DefaultSPIConfig
	}
	p, err := spireg.Open(config.Port)
	if err != nil {
		return nil, err
	}
	c, err := NewSPI(p, config)
	if err != nil {
		_ = p.Close()
		return nil, err
	}
	c.(*spiConn).closer = p.Close
	return c, nil
}

// NewSPI connects to the panel on an open SPI port. Closing the returned Conn does not
// close the port.
func NewSPI(port spi.Port, config *SPIConfig) (Conn, error) {
	if config == nil {
		config = new(SPIConfig)
		*config = DefaultSPIConfig
	}
	switch {
	case config.Reset == nil || config.Reset == gpio.INVALID:
		return nil, ErrResetPin
	case config.DC == nil || config.DC == gpio.INVALID:
		return nil, ErrDCPin
	case config.Busy == nil || config.Busy == gpio.INVALID:
		return nil, ErrBusyPin
	}

	speed := config.SpeedHz
	if speed == 0 {
		speed = DefaultSPIConfig.SpeedHz
	}
	if !slices.Contains(ValidSPISpeeds, speed) {
		return nil, fmt.Errorf("eink: invalid SPI speed %dHz", speed)
	}
	batchSize := config.BatchSize
	if batchSize == 0 {
		batchSize = DefaultSPIConfig.BatchSize
	}

	bus, err := port.Connect(physic.Frequency(speed)*physic.Hertz, spi.Mode0, 8)
	if err != nil {
		return nil, err
	}
	if err = config.Busy.In(gpio.PullNoChange, gpio.NoEdge); err != nil {
		return nil, err
	}

	return &spiConn{
		port:      port,
		bus:       bus,
		reset:     config.Reset,
		dc:        config.DC,
		busy:      config.Busy,
		busyLevel: gpio.Level(!config.BusyActiveLow),
		batchSize: int(batchSize),
	}, nil
}

func (c *spiConn) String() string {
	return fmt.Sprintf("SPI port %s", c.port)
}

func (c *spiConn) Close() error {
	if c.closer != nil {
		return c.closer()
	}
	return nil
}

func (c *spiConn) Reset(level gpio.Level) error {
	return c.reset.Out(level)
}

func (c *spiConn) Busy() bool {
	return c.busy.Read() == c.busyLevel
}

func (c *spiConn) updateDC(level gpio.Level) error {
	if !c.dcSet || c.dcLevel != level {
		if err := c.dc.Out(level); err != nil {
			return err
		}
		c.dcLevel, c.dcSet = level, true
	}
	return nil
}

func (c *spiConn) Command(cmnd byte, data ...byte) (err error) {
	if err = c.updateDC(gpio.Low); err != nil {
		return
	}
	if err = c.bus.Tx([]byte{cmnd}, nil); err != nil {
		return
	}
	return c.Data(data...)
}

func (c *spiConn) Data(data ...byte) (err error) {
	if len(data) == 0 {
		return
	}
	if err = c.updateDC(gpio.High); err != nil {
		return
	}
	return c.writeChunked(data)
}

func (c *spiConn) writeChunked(data []byte) error {
	if debug && len(data) > c.batchSize {
		slog.Debug("eink write",
			"bytes", len(data),
			"chunks", (len(data)+c.batchSize-1)/c.batchSize)
	}
	for chunk := range slices.Chunk(data, c.batchSize) {
		if err := c.bus.Tx(chunk, nil); err != nil {
			return err
		}
	}
	return nil
}
