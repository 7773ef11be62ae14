package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openclaw/qrstudio/config"
	"github.com/openclaw/qrstudio/payload"
	"github.com/openclaw/qrstudio/render"
)

func parseJob(t *testing.T, args ...string) (*job, string, *pflag.FlagSet) {
	t.Helper()
	j := defaultJob()
	var inputPath string
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	bindInputFlags(fs, j, &inputPath)
	bindRenderFlags(fs, j)
	require.NoError(t, fs.Parse(args))
	return j, inputPath, fs
}

func TestJob_FlagsOnly(t *testing.T) {
	j, in, fs := parseJob(t, "--kind", "wifi", "--ssid", "home", "--password", "pw")
	require.NoError(t, j.load(fs, in))

	text, err := j.formatPayload()
	require.NoError(t, err)
	assert.Equal(t, "WIFI:S:home;T:WPA2;P:pw;H:true;;", text)
	assert.Equal(t, render.DefaultOptions(), j.Options)
}

func TestJob_InputFileWithFlagOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "job.yaml")
	yml := `
kind: url
url: example.com
text: ignored for url
options:
  size: 400
  format: svg
logo_size: 30
`
	require.NoError(t, os.WriteFile(path, []byte(yml), 0o644))

	j, in, fs := parseJob(t, "--input", path, "--size", "500")
	require.NoError(t, j.load(fs, in))

	assert.Equal(t, payload.KindURL, j.Kind)
	assert.Equal(t, "example.com", j.Form.URL)
	assert.Equal(t, 500, j.Options.Size, "explicit flag wins over the file")
	assert.Equal(t, render.FormatSVG, j.Options.Format)
	assert.Equal(t, 30, j.LogoSize)

	text, err := j.formatPayload()
	require.NoError(t, err)
	assert.Equal(t, "https://example.com", text)
}

func TestJob_Errors(t *testing.T) {
	j, _, _ := parseJob(t, "--kind", "sms")
	_, err := j.formatPayload()
	assert.ErrorContains(t, err, "incomplete")

	j, _, _ = parseJob(t, "--kind", "fax")
	_, err = j.formatPayload()
	assert.Error(t, err)

	j, _, _ = parseJob(t, "--kind", "wifi", "--ssid", "x", "--security", "WPA3")
	_, err = j.formatPayload()
	assert.Error(t, err)

	j, _, _ = parseJob(t, "--kind", "wifi", "--ssid", "x", "--security", "")
	_, err = j.formatPayload()
	assert.Error(t, err)

	j, in, fs := parseJob(t, "--input", filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, j.load(fs, in))
}

func TestSessionDefaults(t *testing.T) {
	d := config.RenderDefaults{
		Size: 300, Margin: 2, Foreground: "#112233", Background: "#fff",
		ErrorCorrection: "h", Format: "jpg", LogoSize: 20,
	}
	got, err := sessionDefaults(d)
	require.NoError(t, err)
	assert.Equal(t, render.LevelH, got.Options.ErrorCorrection)
	assert.Equal(t, render.FormatJPEG, got.Options.Format)
	assert.Equal(t, 20, got.LogoPercent)

	d.Size = 5
	_, err = sessionDefaults(d)
	assert.Error(t, err)

	d.Size, d.LogoSize = 300, 80
	_, err = sessionDefaults(d)
	assert.Error(t, err)
}
