// Package render draws QR codes as PNG, JPEG or SVG and composites an
// optional circular logo onto raster output.
package render

import (
	"fmt"
	"image/color"
	"strings"

	colorful "github.com/lucasb-eyer/go-colorful"
	qrcode "github.com/skip2/go-qrcode"
)

// Format is the output encoding of a rendered code.
type Format string

const (
	FormatPNG  Format = "png"
	FormatJPEG Format = "jpeg"
	FormatSVG  Format = "svg"
)

// ParseFormat validates an output format name.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(s)) {
	case FormatPNG:
		return FormatPNG, nil
	case FormatJPEG, "jpg":
		return FormatJPEG, nil
	case FormatSVG:
		return FormatSVG, nil
	}
	return "", fmt.Errorf("unknown format %q", s)
}

// IsRaster reports whether f is a pixel format.
func (f Format) IsRaster() bool {
	return f == FormatPNG || f == FormatJPEG
}

// Extension returns the file extension without the leading dot.
func (f Format) Extension() string {
	return string(f)
}

// ContentType returns the MIME type of f.
func (f Format) ContentType() string {
	switch f {
	case FormatJPEG:
		return "image/jpeg"
	case FormatSVG:
		return "image/svg+xml"
	default:
		return "image/png"
	}
}

// Level is the QR error correction level.
type Level string

const (
	LevelL Level = "L"
	LevelM Level = "M"
	LevelQ Level = "Q"
	LevelH Level = "H"
)

// ParseLevel validates an error correction level.
func ParseLevel(s string) (Level, error) {
	switch Level(strings.ToUpper(s)) {
	case LevelL:
		return LevelL, nil
	case LevelM:
		return LevelM, nil
	case LevelQ:
		return LevelQ, nil
	case LevelH:
		return LevelH, nil
	}
	return "", fmt.Errorf("unknown error correction level %q", s)
}

// recovery maps l onto go-qrcode's recovery levels.
func (l Level) recovery() qrcode.RecoveryLevel {
	switch l {
	case LevelL:
		return qrcode.Low
	case LevelQ:
		return qrcode.High
	case LevelH:
		return qrcode.Highest
	default:
		return qrcode.Medium
	}
}

// Bounds of the customisation dials.
const (
	MinSize        = 100
	MaxSize        = 1000
	MinMargin      = 0
	MaxMargin      = 10
	MinLogoPercent = 10
	MaxLogoPercent = 40
)

// Defaults.
const (
	DefaultSize        = 256
	DefaultMargin      = 4
	DefaultForeground  = "#000000"
	DefaultBackground  = "#FFFFFF"
	DefaultLogoPercent = 25
)

// Options are the rendering dials passed to the encoder.
type Options struct {
	Size            int    `json:"size" yaml:"size"`
	Margin          int    `json:"margin" yaml:"margin"`
	Foreground      string `json:"foreground" yaml:"foreground"`
	Background      string `json:"background" yaml:"background"`
	ErrorCorrection Level  `json:"error_correction" yaml:"error_correction"`
	Format          Format `json:"format" yaml:"format"`
}

// DefaultOptions returns the options a fresh form starts with.
func DefaultOptions() Options {
	return Options{
		Size:            DefaultSize,
		Margin:          DefaultMargin,
		Foreground:      DefaultForeground,
		Background:      DefaultBackground,
		ErrorCorrection: LevelM,
		Format:          FormatPNG,
	}
}

// Validate checks every dial against its bounds.
func (o Options) Validate() error {
	if o.Size < MinSize || o.Size > MaxSize {
		return fmt.Errorf("size %d out of range [%d, %d]", o.Size, MinSize, MaxSize)
	}
	if o.Margin < MinMargin || o.Margin > MaxMargin {
		return fmt.Errorf("margin %d out of range [%d, %d]", o.Margin, MinMargin, MaxMargin)
	}
	if _, err := ParseColor(o.Foreground); err != nil {
		return fmt.Errorf("foreground: %w", err)
	}
	if _, err := ParseColor(o.Background); err != nil {
		return fmt.Errorf("background: %w", err)
	}
	if _, err := ParseLevel(string(o.ErrorCorrection)); err != nil {
		return err
	}
	if _, err := ParseFormat(string(o.Format)); err != nil {
		return err
	}
	return nil
}

// Normalize validates o and returns it with the format and level aliases
// resolved, e.g. "jpg" to jpeg and "h" to H.
func (o Options) Normalize() (Options, error) {
	if err := o.Validate(); err != nil {
		return o, err
	}
	o.Format, _ = ParseFormat(string(o.Format))
	o.ErrorCorrection, _ = ParseLevel(string(o.ErrorCorrection))
	return o, nil
}

// ValidateLogoPercent checks a logo size against its bounds.
func ValidateLogoPercent(p int) error {
	if p < MinLogoPercent || p > MaxLogoPercent {
		return fmt.Errorf("logo size %d%% out of range [%d, %d]", p, MinLogoPercent, MaxLogoPercent)
	}
	return nil
}

// ParseColor parses a #rgb or #rrggbb hex colour. The leading '#' is optional.
func ParseColor(s string) (color.NRGBA, error) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "#") {
		s = "#" + s
	}
	if len(s) != 4 && len(s) != 7 {
		return color.NRGBA{}, fmt.Errorf("invalid colour %q", s)
	}
	c, err := colorful.Hex(s)
	if err != nil {
		return color.NRGBA{}, fmt.Errorf("invalid colour %q", s)
	}
	r, g, b := c.RGB255()
	return color.NRGBA{R: r, G: g, B: b, A: 0xff}, nil
}

// hexColor formats c as #rrggbb.
func hexColor(c color.NRGBA) string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}
