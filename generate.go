package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/openclaw/qrstudio/export"
	"github.com/openclaw/qrstudio/payload"
	"github.com/openclaw/qrstudio/render"
)

// job is one command-line render. It can also be read from a YAML file,
// in which case flags given explicitly win over the file.
type job struct {
	Kind     payload.Kind   `yaml:"kind"`
	Form     payload.Form   `yaml:",inline"`
	Options  render.Options `yaml:"options"`
	Logo     string         `yaml:"logo"`
	LogoSize int            `yaml:"logo_size"`
}

func defaultJob() *job {
	return &job{
		Kind:     payload.KindText,
		Form:     payload.DefaultForm(),
		Options:  render.DefaultOptions(),
		LogoSize: render.DefaultLogoPercent,
	}
}

func bindInputFlags(fs *pflag.FlagSet, j *job, inputPath *string) {
	fs.StringVarP(inputPath, "input", "i", "", "YAML file with kind, fields and options")
	fs.StringVarP((*string)(&j.Kind), "kind", "k", string(j.Kind), "Content kind: text, url, email, phone, sms, wifi")
	fs.StringVar(&j.Form.Text, "text", "", "Text content")
	fs.StringVar(&j.Form.URL, "url", "", "URL (https:// is added when no scheme is given)")
	fs.StringVar(&j.Form.Email, "email", "", "Email address")
	fs.StringVar(&j.Form.EmailSubject, "subject", "", "Email subject")
	fs.StringVar(&j.Form.EmailBody, "body", "", "Email body")
	fs.StringVar(&j.Form.Phone, "phone", "", "Phone number")
	fs.StringVar(&j.Form.SMSNumber, "sms-number", "", "SMS recipient number")
	fs.StringVar(&j.Form.SMSMessage, "sms-message", "", "SMS message")
	fs.StringVar(&j.Form.WiFiSSID, "ssid", "", "WiFi network name")
	fs.StringVar(&j.Form.WiFiPassword, "password", "", "WiFi password")
	fs.StringVar((*string)(&j.Form.WiFiType), "security", string(j.Form.WiFiType), "WiFi security: WPA2, WPA, WEP, nopass")
}

// load merges the YAML file at path into j, keeping explicitly set flags.
func (j *job) load(fs *pflag.FlagSet, path string) error {
	if path == "" {
		return nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read input file: %w", err)
	}

	set := map[string]string{}
	fs.Visit(func(f *pflag.Flag) { set[f.Name] = f.Value.String() })

	if err := yaml.Unmarshal(data, j); err != nil {
		return fmt.Errorf("parse input file: %w", err)
	}
	for name, v := range set {
		if err := fs.Set(name, v); err != nil {
			return err
		}
	}
	return nil
}

// formatPayload validates the input fields and formats the payload for the active
// kind. An incomplete input is an error on the command line.
func (j *job) formatPayload() (string, error) {
	if _, err := payload.ParseKind(string(j.Kind)); err != nil {
		return "", err
	}
	if err := j.Form.Validate(); err != nil {
		return "", err
	}
	text, ok := payload.Format(j.Form.Input(j.Kind))
	if !ok {
		return "", fmt.Errorf("%s input is incomplete", j.Kind)
	}
	return text, nil
}

func newPayloadCmd() *cobra.Command {
	j := defaultJob()
	var inputPath string
	cmd := &cobra.Command{
		Use:   "payload",
		Short: "Print the encoded payload string without rendering",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := j.load(cmd.Flags(), inputPath); err != nil {
				return err
			}
			text, err := j.formatPayload()
			if err != nil {
				return err
			}
			fmt.Println(text)
			return nil
		},
	}
	bindInputFlags(cmd.Flags(), j, &inputPath)
	return cmd
}

func newGenerateCmd() *cobra.Command {
	j := defaultJob()
	var (
		inputPath string
		outDir    string
		copyOut   bool
		logLevel  string
	)
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Render a QR code to a file",
		RunE: func(cmd *cobra.Command, args []string) error {
			log := newLogger(logLevel)
			if err := j.load(cmd.Flags(), inputPath); err != nil {
				return err
			}
			text, err := j.formatPayload()
			if err != nil {
				return err
			}

			var logo *render.Logo
			if j.Logo != "" {
				data, err := os.ReadFile(j.Logo)
				if err != nil {
					return fmt.Errorf("read logo: %w", err)
				}
				if err := render.ValidateLogoPercent(j.LogoSize); err != nil {
					return err
				}
				logo = &render.Logo{Data: data, SizePercent: j.LogoSize}
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
			defer stop()

			code, err := render.NewRenderer().Render(ctx, text, j.Options, logo)
			if err != nil {
				return fmt.Errorf("render: %w", err)
			}
			if logo != nil && !code.Format.IsRaster() {
				log.Warn("logo is not applied to vector output", "format", code.Format)
			}

			path, err := export.Save(outDir, code)
			if err != nil {
				return err
			}
			log.Info("code written", "path", path, "payload_bytes", len(text), "format", code.Format)
			fmt.Println(path)

			if copyOut {
				if err := export.Copy(code); err != nil {
					if !errors.Is(err, export.ErrClipboardUnsupported) {
						return err
					}
					log.Warn("skipping clipboard copy", "error", err)
				}
			}
			return nil
		},
	}

	fs := cmd.Flags()
	bindInputFlags(fs, j, &inputPath)
	bindRenderFlags(fs, j)
	fs.StringVarP(&outDir, "out", "o", ".", "Directory to write qrcode.<format> into")
	fs.BoolVar(&copyOut, "copy", false, "Also copy the result to the clipboard")
	fs.StringVar(&logLevel, "log-level", "info", "Log level: debug, info, warn, error")
	return cmd
}

func bindRenderFlags(fs *pflag.FlagSet, j *job) {
	fs.IntVar(&j.Options.Size, "size", j.Options.Size, "Image width and height in pixels (100-1000)")
	fs.IntVar(&j.Options.Margin, "margin", j.Options.Margin, "Quiet zone in modules (0-10)")
	fs.StringVar(&j.Options.Foreground, "fg", j.Options.Foreground, "Module colour as #rrggbb")
	fs.StringVar(&j.Options.Background, "bg", j.Options.Background, "Background colour as #rrggbb")
	fs.StringVar((*string)(&j.Options.ErrorCorrection), "level", string(j.Options.ErrorCorrection), "Error correction: L, M, Q, H")
	fs.StringVarP((*string)(&j.Options.Format), "format", "f", string(j.Options.Format), "Output format: png, jpeg, svg")
	fs.StringVar(&j.Logo, "logo", "", "Logo image to overlay in a centred circle")
	fs.IntVar(&j.LogoSize, "logo-size", j.LogoSize, "Logo diameter as a percentage of the code (10-40)")
}
