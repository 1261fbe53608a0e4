package gpio

import (
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/warthog618/go-gpiocdev"
)

const consumer = "knob-agent"

// Config describes the pin assignment on a GPIO character device.
type Config struct {
	Chip             string        `yaml:"chip"`
	LEDPin           int           `yaml:"led_pin"`
	EncoderCLK       int           `yaml:"encoder_clk"`
	EncoderDT        int           `yaml:"encoder_dt"`
	EncoderSW        int           `yaml:"encoder_sw"`
	ButtonPin        int           `yaml:"button_pin"`
	StepsPerDetent   int           `yaml:"steps_per_detent"`
	ClickWindow      time.Duration `yaml:"click_window"`
	SwitchDebounce   time.Duration `yaml:"switch_debounce"`
	QuadratureFilter time.Duration `yaml:"quadrature_debounce"`
}

// Device owns the requested lines for the button, encoder and status LED.
type Device struct {
	Button  *Button
	Encoder *Encoder
	LED     *LED

	chip  *gpiocdev.Chip
	lines []*gpiocdev.Line
}

// Open requests every line described by cfg.
// When the button shares the encoder switch pin the switch line serves both.
func Open(cfg Config, logger zerolog.Logger) (*Device, error) {
	chip, err := gpiocdev.NewChip(cfg.Chip, gpiocdev.WithConsumer(consumer))
	if err != nil {
		return nil, fmt.Errorf("open chip %s: %w", cfg.Chip, err)
	}
	d := &Device{chip: chip}

	if err := d.open(cfg, logger); err != nil {
		d.Close()
		return nil, err
	}
	logger.Info().
		Str("chip", cfg.Chip).
		Int("led", cfg.LEDPin).
		Int("clk", cfg.EncoderCLK).
		Int("dt", cfg.EncoderDT).
		Int("sw", cfg.EncoderSW).
		Int("button", cfg.ButtonPin).
		Msg("GPIO lines requested")
	return d, nil
}

func (d *Device) open(cfg Config, logger zerolog.Logger) error {
	ledLine, err := d.chip.RequestLine(cfg.LEDPin, gpiocdev.AsOutput(0))
	if err != nil {
		return fmt.Errorf("request led pin %d: %w", cfg.LEDPin, err)
	}
	d.lines = append(d.lines, ledLine)
	d.LED = NewLED(ledLine)

	a, err := d.readLevel(cfg.EncoderCLK)
	if err != nil {
		return err
	}
	b, err := d.readLevel(cfg.EncoderDT)
	if err != nil {
		return err
	}
	d.Encoder = NewEncoder(cfg.StepsPerDetent, a, b, cfg.ClickWindow)

	quadOpts := []gpiocdev.LineReqOption{gpiocdev.AsInput, gpiocdev.WithPullUp, gpiocdev.WithBothEdges}
	if cfg.QuadratureFilter > 0 {
		quadOpts = append(quadOpts, gpiocdev.WithDebounce(cfg.QuadratureFilter))
	}

	clk, err := d.chip.RequestLine(cfg.EncoderCLK, append(quadOpts[:len(quadOpts):len(quadOpts)], gpiocdev.WithEventHandler(func(evt gpiocdev.LineEvent) {
		d.Encoder.HandleA(edgeLevel(evt))
	}))...)
	if err != nil {
		return fmt.Errorf("request encoder clk pin %d: %w", cfg.EncoderCLK, err)
	}
	d.lines = append(d.lines, clk)

	dt, err := d.chip.RequestLine(cfg.EncoderDT, append(quadOpts[:len(quadOpts):len(quadOpts)], gpiocdev.WithEventHandler(func(evt gpiocdev.LineEvent) {
		d.Encoder.HandleB(edgeLevel(evt))
	}))...)
	if err != nil {
		return fmt.Errorf("request encoder dt pin %d: %w", cfg.EncoderDT, err)
	}
	d.lines = append(d.lines, dt)

	sw, err := d.chip.RequestLine(cfg.EncoderSW,
		gpiocdev.AsInput,
		gpiocdev.WithPullUp,
		gpiocdev.WithBothEdges,
		gpiocdev.WithDebounce(cfg.SwitchDebounce),
		gpiocdev.WithEventHandler(func(evt gpiocdev.LineEvent) {
			// Active-low: the falling edge is the press.
			d.Encoder.HandleSwitch(evt.Type == gpiocdev.LineEventFallingEdge, evt.Timestamp)
		}),
	)
	if err != nil {
		return fmt.Errorf("request encoder sw pin %d: %w", cfg.EncoderSW, err)
	}
	d.lines = append(d.lines, sw)

	if cfg.ButtonPin == cfg.EncoderSW {
		d.Button = NewButton(sw, true, logger)
		return nil
	}

	btn, err := d.chip.RequestLine(cfg.ButtonPin, gpiocdev.AsInput, gpiocdev.WithPullUp)
	if err != nil {
		return fmt.Errorf("request button pin %d: %w", cfg.ButtonPin, err)
	}
	d.lines = append(d.lines, btn)
	d.Button = NewButton(btn, true, logger)
	return nil
}

func (d *Device) readLevel(pin int) (int, error) {
	line, err := d.chip.RequestLine(pin, gpiocdev.AsInput, gpiocdev.WithPullUp)
	if err != nil {
		return 0, fmt.Errorf("read pin %d state: %w", pin, err)
	}
	defer line.Close()

	v, err := line.Value()
	if err != nil {
		return 0, fmt.Errorf("read pin %d value: %w", pin, err)
	}
	return v, nil
}

func edgeLevel(evt gpiocdev.LineEvent) int {
	if evt.Type == gpiocdev.LineEventRisingEdge {
		return 1
	}
	return 0
}

// Close releases every requested line and the chip.
func (d *Device) Close() error {
	var errs []error
	if d.LED != nil {
		if err := d.LED.Set(false); err != nil {
			errs = append(errs, err)
		}
	}
	for _, line := range d.lines {
		if err := line.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close line: %w", err))
		}
	}
	d.lines = nil
	if d.chip != nil {
		if err := d.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
		d.chip = nil
	}
	return errors.Join(errs...)
}
