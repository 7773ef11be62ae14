package session

import (
	"bytes"
	"context"
	"errors"
	"image/color"
	"image/png"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openclaw/qrstudio/payload"
	"github.com/openclaw/qrstudio/render"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestSession(r *render.Renderer) *Session {
	if r == nil {
		r = render.NewRenderer()
	}
	return New("test", r, DefaultDefaults(), testLogger())
}

func await(t *testing.T, s *Session) (*render.Code, error) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	code, err := s.Await(ctx)
	if errors.Is(err, context.DeadlineExceeded) {
		t.Fatal("render did not finish")
	}
	return code, err
}

func logoPNG(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, imaging.New(16, 16, color.Black)))
	return buf.Bytes()
}

func TestSession_RendersOnEdit(t *testing.T) {
	s := newTestSession(nil)

	code, err := await(t, s)
	require.NoError(t, err)
	assert.Nil(t, code, "fresh session shows nothing")

	require.NoError(t, s.UpdateForm(func(f *payload.Form) { f.Text = "hello" }))
	code, err = await(t, s)
	require.NoError(t, err)
	require.NotNil(t, code)
	assert.Equal(t, "hello", code.Payload)
	assert.Equal(t, render.FormatPNG, code.Format)

	_, status, _ := s.Current()
	assert.Equal(t, StatusReady, status)
}

func TestSession_IncompleteInputClearsCode(t *testing.T) {
	s := newTestSession(nil)
	require.NoError(t, s.UpdateForm(func(f *payload.Form) { f.Text = "hello" }))
	code, _ := await(t, s)
	require.NotNil(t, code)

	require.NoError(t, s.SetKind(payload.KindEmail))
	code, err := await(t, s)
	require.NoError(t, err)
	assert.Nil(t, code)

	_, status, _ := s.Current()
	assert.Equal(t, StatusEmpty, status)

	// Switching back finds the text still there.
	require.NoError(t, s.SetKind(payload.KindText))
	code, _ = await(t, s)
	require.NotNil(t, code)
	assert.Equal(t, "hello", code.Payload)
}

func TestSession_SVGFormat(t *testing.T) {
	s := newTestSession(nil)
	require.NoError(t, s.UpdateForm(func(f *payload.Form) { f.URL = "example.com" }))
	require.NoError(t, s.SetKind(payload.KindURL))
	require.NoError(t, s.UpdateOptions(func(o *render.Options) { o.Format = render.FormatSVG }))
	require.NoError(t, s.SetLogo(logoPNG(t)))

	code, err := await(t, s)
	require.NoError(t, err)
	require.NotNil(t, code)
	assert.Equal(t, render.FormatSVG, code.Format)
	assert.Equal(t, "https://example.com", code.Payload)
	assert.Contains(t, code.SVG, "<svg")
}

func TestSession_LogoLoadErrorKeepsPreviousCode(t *testing.T) {
	s := newTestSession(nil)
	require.NoError(t, s.UpdateForm(func(f *payload.Form) { f.Text = "hello" }))
	before, err := await(t, s)
	require.NoError(t, err)
	require.NotNil(t, before)

	require.NoError(t, s.SetLogo([]byte("definitely not an image")))
	after, err := await(t, s)

	var loadErr *render.ImageLoadError
	require.True(t, errors.As(err, &loadErr), "got %v", err)
	assert.Equal(t, render.SourceLogo, loadErr.Source)
	assert.Same(t, before, after)

	_, status, _ := s.Current()
	assert.Equal(t, StatusFailed, status)

	s.RemoveLogo()
	code, err := await(t, s)
	require.NoError(t, err)
	assert.NotNil(t, code)
}

func TestSession_EncodeFailureClearsCode(t *testing.T) {
	s := newTestSession(nil)
	require.NoError(t, s.UpdateForm(func(f *payload.Form) { f.Text = "hello" }))
	_, err := await(t, s)
	require.NoError(t, err)

	require.NoError(t, s.UpdateOptions(func(o *render.Options) { o.ErrorCorrection = render.LevelH }))
	require.NoError(t, s.UpdateForm(func(f *payload.Form) { f.Text = string(bytes.Repeat([]byte("a"), 4000)) }))

	code, err := await(t, s)
	assert.ErrorIs(t, err, render.ErrEncode)
	assert.Nil(t, code)
}

func TestSession_WithLogo(t *testing.T) {
	s := newTestSession(nil)
	require.NoError(t, s.UpdateForm(func(f *payload.Form) { f.Text = "hello" }))
	require.NoError(t, s.SetLogo(logoPNG(t)))
	require.NoError(t, s.SetLogoSize(40))

	code, err := await(t, s)
	require.NoError(t, err)
	require.NotNil(t, code)

	img, err := imaging.Decode(bytes.NewReader(code.Data))
	require.NoError(t, err)
	assert.Equal(t, render.DefaultSize, img.Bounds().Dx())
	assert.Equal(t, render.DefaultSize, img.Bounds().Dy())
}

func TestSession_ValidationErrorsLeaveStateAlone(t *testing.T) {
	s := newTestSession(nil)

	assert.Error(t, s.SetKind("fax"))
	assert.Error(t, s.SetLogoSize(50))
	assert.Error(t, s.SetLogo(nil))
	assert.Error(t, s.UpdateOptions(func(o *render.Options) { o.Size = 2000 }))
	assert.Error(t, s.UpdateForm(func(f *payload.Form) { f.WiFiType = "WPA3" }))

	st := s.State()
	assert.Equal(t, payload.KindText, st.Kind)
	assert.Equal(t, render.DefaultOptions(), st.Options)
	assert.Equal(t, render.DefaultLogoPercent, st.LogoPercent)
	assert.Equal(t, payload.SecurityWPA2, st.Form.WiFiType)
}

func TestSession_EditsApplyAtomically(t *testing.T) {
	s := newTestSession(nil)

	errBoom := errors.New("boom")
	err := s.EditInput(func(kind *payload.Kind, f *payload.Form) error {
		*kind = payload.KindURL
		f.URL = "example.com"
		return errBoom
	})
	assert.ErrorIs(t, err, errBoom)
	assert.Error(t, s.EditInput(func(kind *payload.Kind, f *payload.Form) error {
		f.Text = "kept?"
		*kind = "fax"
		return nil
	}))
	assert.Error(t, s.EditSettings(func(o *render.Options, percent *int) error {
		o.Size = 300
		*percent = 80
		return nil
	}))

	st := s.State()
	assert.Equal(t, payload.KindText, st.Kind)
	assert.Empty(t, st.Form.Text)
	assert.Empty(t, st.Form.URL)
	assert.Equal(t, render.DefaultOptions(), st.Options)
	assert.Equal(t, render.DefaultLogoPercent, st.LogoPercent)

	require.NoError(t, s.EditSettings(func(o *render.Options, percent *int) error {
		o.Format = "jpg"
		*percent = 30
		return nil
	}))
	st = s.State()
	assert.Equal(t, render.FormatJPEG, st.Options.Format)
	assert.Equal(t, 30, st.LogoPercent)
}

func TestSession_ConcurrentEditsKeepEveryField(t *testing.T) {
	s := newTestSession(nil)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(4)
		go func() {
			defer wg.Done()
			assert.NoError(t, s.EditInput(func(_ *payload.Kind, f *payload.Form) error {
				f.Text = "hello"
				return nil
			}))
		}()
		go func() {
			defer wg.Done()
			assert.NoError(t, s.EditInput(func(_ *payload.Kind, f *payload.Form) error {
				f.SMSNumber = "5550100"
				return nil
			}))
		}()
		go func() {
			defer wg.Done()
			assert.NoError(t, s.EditSettings(func(o *render.Options, _ *int) error {
				o.Size = 300
				return nil
			}))
		}()
		go func() {
			defer wg.Done()
			assert.NoError(t, s.EditSettings(func(o *render.Options, _ *int) error {
				o.Margin = 2
				return nil
			}))
		}()
	}
	wg.Wait()

	st := s.State()
	assert.Equal(t, "hello", st.Form.Text)
	assert.Equal(t, "5550100", st.Form.SMSNumber)
	assert.Equal(t, 300, st.Options.Size)
	assert.Equal(t, 2, st.Options.Margin)
	_, err := await(t, s)
	assert.NoError(t, err)
}

func TestSession_Reset(t *testing.T) {
	s := newTestSession(nil)
	require.NoError(t, s.UpdateForm(func(f *payload.Form) {
		f.WiFiSSID = "Home"
		f.WiFiType = payload.SecurityNoPass
	}))
	require.NoError(t, s.SetKind(payload.KindWiFi))
	require.NoError(t, s.SetLogoSize(30))
	require.NoError(t, s.SetLogo(logoPNG(t)))
	require.NoError(t, s.UpdateOptions(func(o *render.Options) { o.Margin = 1 }))
	code, _ := await(t, s)
	require.NotNil(t, code)

	s.Reset()
	code, err := await(t, s)
	require.NoError(t, err)
	assert.Nil(t, code)

	st := s.State()
	assert.Equal(t, payload.KindText, st.Kind)
	assert.Equal(t, payload.DefaultForm(), st.Form)
	assert.Equal(t, render.DefaultOptions(), st.Options)
	assert.False(t, st.HasLogo)
	assert.Equal(t, render.DefaultLogoPercent, st.LogoPercent)
}

// gatedEncoder blocks Raster calls for the payload "slow" until released.
type gatedEncoder struct {
	release  chan struct{}
	returned chan struct{}
}

func (e *gatedEncoder) Raster(ctx context.Context, text string, opts render.Options) ([]byte, error) {
	if text == "slow" {
		<-e.release
		defer close(e.returned)
	}
	return []byte(text), nil
}

func (e *gatedEncoder) Vector(ctx context.Context, text string, opts render.Options) (string, error) {
	return text, nil
}

func TestSession_LatestTriggeredChainWins(t *testing.T) {
	enc := &gatedEncoder{release: make(chan struct{}), returned: make(chan struct{})}
	s := newTestSession(&render.Renderer{Encoder: enc, Compositor: render.LogoCompositor{}})

	require.NoError(t, s.UpdateForm(func(f *payload.Form) { f.Text = "slow" }))
	require.NoError(t, s.UpdateForm(func(f *payload.Form) { f.Text = "fast" }))

	code, err := await(t, s)
	require.NoError(t, err)
	require.NotNil(t, code)
	assert.Equal(t, "fast", code.Payload)

	// Let the stale chain finish after the newer one; it must not commit.
	close(enc.release)
	<-enc.returned
	assert.Never(t, func() bool {
		c, _, _ := s.Current()
		return c == nil || c.Payload != "fast"
	}, 100*time.Millisecond, 10*time.Millisecond)
}

func TestSession_AwaitHonoursContext(t *testing.T) {
	enc := &gatedEncoder{release: make(chan struct{}), returned: make(chan struct{})}
	s := newTestSession(&render.Renderer{Encoder: enc, Compositor: render.LogoCompositor{}})
	defer close(enc.release)

	require.NoError(t, s.UpdateForm(func(f *payload.Form) { f.Text = "slow" }))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := s.Await(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
