package render

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"

	"github.com/disintegration/imaging"
	"github.com/fogleman/gg"
	"golang.org/x/sync/errgroup"

	// imaging registers PNG, JPEG, GIF, BMP and TIFF; logos may also be WebP.
	_ "golang.org/x/image/webp"
)

// Logo is an image overlaid in a circle at the centre of raster codes.
type Logo struct {
	Data        []byte
	SizePercent int
}

// Clip is the square bounding box of the circular logo region.
type Clip struct {
	Diameter float64
	X        float64
	Y        float64
}

// Center returns the centre of the clip circle.
func (c Clip) Center() (float64, float64) {
	return c.X + c.Diameter/2, c.Y + c.Diameter/2
}

// ClipGeometry returns the logo circle for a width x height image: its
// diameter is percent of the shorter side and it is centred on the image.
func ClipGeometry(width, height, percent int) Clip {
	d := float64(min(width, height)) * float64(percent) / 100
	return Clip{
		Diameter: d,
		X:        (float64(width) - d) / 2,
		Y:        (float64(height) - d) / 2,
	}
}

// Image sources named in ImageLoadError.
const (
	SourceQR   = "qr"
	SourceLogo = "logo"
)

// ImageLoadError reports an image that could not be decoded while
// compositing.
type ImageLoadError struct {
	Source string
	Err    error
}

func (e *ImageLoadError) Error() string {
	return fmt.Sprintf("load %s image: %v", e.Source, e.Err)
}

func (e *ImageLoadError) Unwrap() error { return e.Err }

// Compositor overlays a logo onto an encoded raster QR code.
type Compositor interface {
	Composite(ctx context.Context, qr, logo []byte, percent int, format Format) ([]byte, error)
}

// LogoCompositor draws the logo stretched to fill a centred circle.
type LogoCompositor struct{}

// Composite decodes both images concurrently, draws qr unmodified, clips to
// the logo circle and draws the logo scaled to the clip's bounding square.
// The result has the dimensions of qr and is encoded as format.
func (LogoCompositor) Composite(ctx context.Context, qr, logo []byte, percent int, format Format) ([]byte, error) {
	if !format.IsRaster() {
		return nil, fmt.Errorf("cannot composite a logo onto %s output", format)
	}
	if err := ValidateLogoPercent(percent); err != nil {
		return nil, err
	}

	var qrImg, logoImg image.Image
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		img, err := decodeImage(gctx, SourceQR, qr)
		qrImg = img
		return err
	})
	g.Go(func() error {
		img, err := decodeImage(gctx, SourceLogo, logo)
		logoImg = img
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	return encodeImage(overlay(qrImg, logoImg, percent), format)
}

func decodeImage(ctx context.Context, source string, data []byte) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, &ImageLoadError{Source: source, Err: errors.New("no image data")}
	}
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, &ImageLoadError{Source: source, Err: err}
	}
	if b := img.Bounds(); b.Dx() == 0 || b.Dy() == 0 {
		return nil, &ImageLoadError{Source: source, Err: errors.New("empty image")}
	}
	return img, nil
}

func overlay(qr, logo image.Image, percent int) image.Image {
	dc := gg.NewContextForImage(qr)
	clip := ClipGeometry(dc.Width(), dc.Height(), percent)

	cx, cy := clip.Center()
	dc.DrawCircle(cx, cy, clip.Diameter/2)
	dc.Clip()

	src := imaging.Clone(logo)
	w, h := float64(src.Bounds().Dx()), float64(src.Bounds().Dy())
	dc.Push()
	dc.Translate(clip.X, clip.Y)
	dc.Scale(clip.Diameter/w, clip.Diameter/h)
	dc.DrawImage(src, 0, 0)
	dc.Pop()
	dc.ResetClip()

	return dc.Image()
}
