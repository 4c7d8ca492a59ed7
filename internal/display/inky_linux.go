//go:build linux

package display

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"time"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/host/v3"
)

// UC8159 controller commands (7-colour ACeP panels).
const (
	ucPanelSetting       byte = 0x00
	ucPowerSetting       byte = 0x01
	ucPowerOff           byte = 0x02
	ucPowerOn            byte = 0x04
	ucBoosterSoftStart   byte = 0x06
	ucDataStartTransmit  byte = 0x10
	ucDisplayRefresh     byte = 0x12
	ucPLLControl         byte = 0x30
	ucVcomDataInterval   byte = 0x50
	ucTconSetting        byte = 0x60
	ucResolutionSetting  byte = 0x61
	ucPowerSavingSetting byte = 0xE3
)

// InkyConfig holds pin assignments and timings for the Inky Impression.
type InkyConfig struct {
	SPIPort string
	DCPin   string
	RSTPin  string
	BUSYPin string

	SPIFrequency physic.Frequency

	ResetHoldTime  time.Duration
	BusyPollTime   time.Duration
	RefreshTimeout time.Duration
}

// DefaultInkyConfig returns the stock Inky Impression wiring.
func DefaultInkyConfig() InkyConfig {
	return InkyConfig{
		SPIPort:        "/dev/spidev0.0",
		DCPin:          "GPIO22",
		RSTPin:         "GPIO27",
		BUSYPin:        "GPIO17",
		SPIFrequency:   3 * physic.MegaHertz,
		ResetHoldTime:  100 * time.Millisecond,
		BusyPollTime:   10 * time.Millisecond,
		RefreshTimeout: 40 * time.Second,
	}
}

// Inky drives a 600x448 7-colour Inky Impression over SPI.
// It implements SaturationPanel.
type Inky struct {
	port   spi.PortCloser
	conn   spi.Conn
	dc     gpio.PinOut
	rst    gpio.PinOut
	busy   gpio.PinIn
	config InkyConfig

	buf    []byte // 4 bits per pixel, two pixels per byte
	border byte   // ink index used for the border
}

const (
	inkyWidth  = 600
	inkyHeight = 448
)

// NewInky opens the SPI port and GPIO pins and initializes the controller.
func NewInky(config InkyConfig) (*Inky, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("host init: %w", err)
	}

	port, err := spireg.Open(config.SPIPort)
	if err != nil {
		return nil, fmt.Errorf("open SPI: %w", err)
	}
	conn, err := port.Connect(config.SPIFrequency, spi.Mode0, 8)
	if err != nil {
		port.Close()
		return nil, fmt.Errorf("connect SPI: %w", err)
	}

	dc := gpioreg.ByName(config.DCPin)
	rst := gpioreg.ByName(config.RSTPin)
	busy := gpioreg.ByName(config.BUSYPin)
	if dc == nil || rst == nil || busy == nil {
		port.Close()
		return nil, fmt.Errorf("failed to open GPIO pins %s/%s/%s",
			config.DCPin, config.RSTPin, config.BUSYPin)
	}
	if err := busy.In(gpio.PullNoChange, gpio.NoEdge); err != nil {
		port.Close()
		return nil, fmt.Errorf("configure busy pin: %w", err)
	}

	d := &Inky{
		port:   port,
		conn:   conn,
		dc:     dc,
		rst:    rst,
		busy:   busy,
		config: config,
		buf:    make([]byte, inkyWidth*inkyHeight/2),
		border: 1, // white
	}

	if err := d.reset(); err != nil {
		port.Close()
		return nil, err
	}
	if err := d.setup(); err != nil {
		port.Close()
		return nil, err
	}
	return d, nil
}

// Bounds returns the fixed panel resolution.
func (d *Inky) Bounds() image.Rectangle {
	return image.Rect(0, 0, inkyWidth, inkyHeight)
}

// SetImage stages img with the default saturation.
func (d *Inky) SetImage(img image.Image) error {
	return d.SetImageWithSaturation(img, 0.5)
}

// SetImageWithSaturation dithers img over the saturation-blended ink
// palette and packs it into the frame buffer. The panel is untouched until
// Show.
func (d *Inky) SetImageWithSaturation(img image.Image, saturation float64) error {
	b := img.Bounds()
	if b.Dx() != inkyWidth || b.Dy() != inkyHeight {
		return fmt.Errorf("image is %dx%d, panel is %dx%d", b.Dx(), b.Dy(), inkyWidth, inkyHeight)
	}
	if saturation < 0 || saturation > 1 {
		return fmt.Errorf("saturation %v out of range [0,1]", saturation)
	}

	paletted := ditherToPalette(img, blendedPalette(saturation))
	for i := 0; i < len(d.buf); i++ {
		d.buf[i] = paletted.Pix[2*i]<<4 | paletted.Pix[2*i+1]&0x0F
	}
	return nil
}

// SetBorder sets the border to the ink closest to c.
func (d *Inky) SetBorder(c color.Color) error {
	pal := blendedPalette(0)
	d.border = byte(pal.Index(c))
	return nil
}

// Show pushes the frame buffer to the panel and triggers a full refresh.
// A 7-colour refresh takes roughly 30 seconds.
func (d *Inky) Show(ctx context.Context) error {
	if err := d.writeCommand(ucDataStartTransmit, d.buf...); err != nil {
		return err
	}
	// Border colour rides in the VCOM/data-interval register.
	if err := d.writeCommand(ucVcomDataInterval, d.border<<5|0x17); err != nil {
		return err
	}

	if err := d.writeCommand(ucPowerOn); err != nil {
		return err
	}
	if err := d.waitNotBusy(ctx, d.config.RefreshTimeout); err != nil {
		return err
	}

	if err := d.writeCommand(ucDisplayRefresh); err != nil {
		return err
	}
	if err := d.waitNotBusy(ctx, d.config.RefreshTimeout); err != nil {
		return err
	}

	if err := d.writeCommand(ucPowerOff); err != nil {
		return err
	}
	return d.waitNotBusy(ctx, d.config.RefreshTimeout)
}

// Close powers the panel down and releases the SPI port.
func (d *Inky) Close() error {
	return d.port.Close()
}

// reset pulses the reset line and waits for the controller to come up.
func (d *Inky) reset() error {
	if err := d.rst.Out(gpio.Low); err != nil {
		return fmt.Errorf("assert reset: %w", err)
	}
	time.Sleep(d.config.ResetHoldTime)
	if err := d.rst.Out(gpio.High); err != nil {
		return fmt.Errorf("release reset: %w", err)
	}
	return d.waitNotBusy(context.Background(), 5*time.Second)
}

// setup programs the controller registers for 600x448 7-colour operation.
// Values follow the vendor init sequence for the UC8159.
func (d *Inky) setup() error {
	steps := []struct {
		cmd  byte
		data []byte
	}{
		{ucResolutionSetting, []byte{
			inkyWidth >> 8, inkyWidth & 0xFF,
			inkyHeight >> 8, inkyHeight & 0xFF,
		}},
		{ucPanelSetting, []byte{0xEF, 0x08}},
		{ucPowerSetting, []byte{0x37, 0x00, 0x23, 0x23}},
		{ucPowerSavingSetting, []byte{0xAA}},
		{ucBoosterSoftStart, []byte{0xC7, 0xC7, 0x1D}},
		{ucPLLControl, []byte{0x3C}},
		{ucTconSetting, []byte{0x22}},
		{ucVcomDataInterval, []byte{d.border<<5 | 0x17}},
	}
	for _, s := range steps {
		if err := d.writeCommand(s.cmd, s.data...); err != nil {
			return err
		}
	}
	return nil
}

// writeCommand sends a command byte (DC low) followed by data bytes (DC
// high). Large payloads are chunked to stay under the SPI transfer limit.
func (d *Inky) writeCommand(cmd byte, data ...byte) error {
	if err := d.dc.Out(gpio.Low); err != nil {
		return fmt.Errorf("dc low: %w", err)
	}
	if err := d.conn.Tx([]byte{cmd}, nil); err != nil {
		return fmt.Errorf("send command %#02x: %w", cmd, err)
	}
	if len(data) == 0 {
		return nil
	}
	if err := d.dc.Out(gpio.High); err != nil {
		return fmt.Errorf("dc high: %w", err)
	}
	const chunk = 4096
	for off := 0; off < len(data); off += chunk {
		end := off + chunk
		if end > len(data) {
			end = len(data)
		}
		if err := d.conn.Tx(data[off:end], nil); err != nil {
			return fmt.Errorf("send data for command %#02x: %w", cmd, err)
		}
	}
	return nil
}

// waitNotBusy polls the busy line (active low) until the controller is
// idle, the timeout elapses, or ctx is cancelled.
func (d *Inky) waitNotBusy(ctx context.Context, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for d.busy.Read() == gpio.Low {
		if time.Now().After(deadline) {
			return fmt.Errorf("panel busy for more than %v", timeout)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(d.config.BusyPollTime):
		}
	}
	return nil
}
