package render

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"image"
)

// Code is a rendered QR code. Raster output lives in Data, SVG markup in SVG.
type Code struct {
	Format  Format
	Payload string
	Data    []byte
	SVG     string
	Width   int
	Height  int
}

// Bytes returns the artifact as it would be written to a file.
func (c *Code) Bytes() []byte {
	if c.Format == FormatSVG {
		return []byte(c.SVG)
	}
	return c.Data
}

// DataURL returns the artifact as a base64 data: URL.
func (c *Code) DataURL() string {
	return "data:" + c.Format.ContentType() + ";base64," + base64.StdEncoding.EncodeToString(c.Bytes())
}

// Renderer runs one render chain: encode, then composite the logo when the
// output is raster.
type Renderer struct {
	Encoder    Encoder
	Compositor Compositor
}

// NewRenderer returns a Renderer using go-qrcode and the circular logo
// compositor.
func NewRenderer() *Renderer {
	return &Renderer{
		Encoder:    NewEncoder(),
		Compositor: LogoCompositor{},
	}
}

// Render encodes payload with opts. A logo is only applied to raster
// formats; SVG output is returned unmodified even when logo is set.
func (r *Renderer) Render(ctx context.Context, payload string, opts Options, logo *Logo) (*Code, error) {
	opts, err := opts.Normalize()
	if err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}

	code := &Code{
		Format:  opts.Format,
		Payload: payload,
		Width:   opts.Size,
		Height:  opts.Size,
	}

	if opts.Format == FormatSVG {
		svg, err := r.Encoder.Vector(ctx, payload, opts)
		if err != nil {
			return nil, err
		}
		code.SVG = svg
		return code, nil
	}

	data, err := r.Encoder.Raster(ctx, payload, opts)
	if err != nil {
		return nil, err
	}
	// dense symbols can come out larger than Size
	if cfg, _, err := image.DecodeConfig(bytes.NewReader(data)); err == nil {
		code.Width, code.Height = cfg.Width, cfg.Height
	}
	if logo != nil && len(logo.Data) > 0 {
		data, err = r.Compositor.Composite(ctx, data, logo.Data, logo.SizePercent, opts.Format)
		if err != nil {
			return nil, err
		}
	}
	code.Data = data
	return code, nil
}
