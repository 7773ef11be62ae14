package render

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"strings"

	"github.com/disintegration/imaging"
	qrcode "github.com/skip2/go-qrcode"
)

// ErrEncode is returned when the QR encoder rejects a payload, usually
// because it is too long for the chosen error correction level.
var ErrEncode = errors.New("qr encode failed")

// jpegQuality matches the 0.92 quality factor browsers use for JPEG export.
const jpegQuality = 92

// Encoder renders a payload as a QR symbol.
type Encoder interface {
	// Raster returns PNG or JPEG bytes, Size pixels square, or larger when
	// the symbol has more modules than Size has pixels.
	Raster(ctx context.Context, payload string, opts Options) ([]byte, error)
	// Vector returns SVG markup.
	Vector(ctx context.Context, payload string, opts Options) (string, error)
}

// QREncoder is the Encoder backed by go-qrcode. go-qrcode only provides the
// module matrix here; the quiet zone, colours and output encoding are done
// locally so every dial in Options is honoured.
type QREncoder struct{}

// NewEncoder returns a QREncoder.
func NewEncoder() *QREncoder {
	return &QREncoder{}
}

// Raster implements Encoder.
func (e *QREncoder) Raster(ctx context.Context, payload string, opts Options) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	img, err := e.Image(payload, opts)
	if err != nil {
		return nil, err
	}
	return encodeImage(img, opts.Format)
}

// Image renders payload into an in-memory image without encoding it.
func (e *QREncoder) Image(payload string, opts Options) (image.Image, error) {
	fg, bg, err := colors(opts)
	if err != nil {
		return nil, err
	}
	bitmap, err := matrix(payload, opts)
	if err != nil {
		return nil, err
	}

	m := opts.Margin
	n := len(bitmap) + 2*m
	// Palette index 0 is the background, so the zeroed image starts blank.
	modules := image.NewPaletted(image.Rect(0, 0, n, n), color.Palette{bg, fg})
	for y, row := range bitmap {
		for x, dark := range row {
			if dark {
				modules.SetColorIndex(x+m, y+m, 1)
			}
		}
	}

	return imaging.Resize(modules, RasterSide(n, opts.Size), RasterSide(n, opts.Size), imaging.NearestNeighbor), nil
}

// RasterSide returns the pixel side used for a symbol n modules wide,
// including the quiet zone. Scaling never drops below one pixel per module.
func RasterSide(n, size int) int {
	if n > size {
		return n
	}
	return size
}

// Vector implements Encoder.
func (e *QREncoder) Vector(ctx context.Context, payload string, opts Options) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	fg, bg, err := colors(opts)
	if err != nil {
		return "", err
	}
	bitmap, err := matrix(payload, opts)
	if err != nil {
		return "", err
	}

	m := opts.Margin
	n := len(bitmap) + 2*m

	var b strings.Builder
	fmt.Fprintf(&b, `<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d" shape-rendering="crispEdges">`,
		opts.Size, opts.Size, n, n)
	fmt.Fprintf(&b, `<path fill="%s" d="M0 0h%dv%dH0z"/>`, hexColor(bg), n, n)
	fmt.Fprintf(&b, `<path fill="%s" d="`, hexColor(fg))
	for y, row := range bitmap {
		for x := 0; x < len(row); {
			if !row[x] {
				x++
				continue
			}
			start := x
			for x < len(row) && row[x] {
				x++
			}
			run := x - start
			fmt.Fprintf(&b, "M%d %dh%dv1h-%dz", start+m, y+m, run, run)
		}
	}
	b.WriteString("\"/></svg>\n")
	return b.String(), nil
}

// matrix returns the module grid for payload without any quiet zone.
func matrix(payload string, opts Options) ([][]bool, error) {
	q, err := qrcode.New(payload, opts.ErrorCorrection.recovery())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEncode, err)
	}
	q.DisableBorder = true
	return q.Bitmap(), nil
}

func colors(opts Options) (fg, bg color.NRGBA, err error) {
	fg, err = ParseColor(opts.Foreground)
	if err != nil {
		return fg, bg, fmt.Errorf("foreground: %w", err)
	}
	bg, err = ParseColor(opts.Background)
	if err != nil {
		return fg, bg, fmt.Errorf("background: %w", err)
	}
	return fg, bg, nil
}

// encodeImage writes img as PNG or JPEG.
func encodeImage(img image.Image, f Format) ([]byte, error) {
	var buf bytes.Buffer
	var err error
	switch f {
	case FormatPNG:
		err = imaging.Encode(&buf, img, imaging.PNG)
	case FormatJPEG:
		err = imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(jpegQuality))
	default:
		return nil, fmt.Errorf("%s is not a raster format", f)
	}
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", f, err)
	}
	return buf.Bytes(), nil
}
