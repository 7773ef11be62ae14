// Package payload turns structured form input into the strings QR reader
// apps expect: mailto:, tel:, smsto:, WIFI: and plain text or URLs.
package payload

import (
	"fmt"
	"strings"
)

// Kind selects which kind of content is encoded.
type Kind string

const (
	KindText  Kind = "text"
	KindURL   Kind = "url"
	KindEmail Kind = "email"
	KindPhone Kind = "phone"
	KindSMS   Kind = "sms"
	KindWiFi  Kind = "wifi"
)

// Kinds lists every supported kind in selector order.
var Kinds = []Kind{KindText, KindURL, KindEmail, KindPhone, KindSMS, KindWiFi}

// ParseKind validates a kind selector value.
func ParseKind(s string) (Kind, error) {
	for _, k := range Kinds {
		if string(k) == s {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown kind %q", s)
}

// Security is the WiFi authentication type.
type Security string

const (
	SecurityWEP    Security = "WEP"
	SecurityWPA    Security = "WPA"
	SecurityWPA2   Security = "WPA2"
	SecurityNoPass Security = "nopass"
)

// ParseSecurity validates a WiFi security value.
func ParseSecurity(s string) (Security, error) {
	switch Security(s) {
	case SecurityWEP, SecurityWPA, SecurityWPA2, SecurityNoPass:
		return Security(s), nil
	}
	return "", fmt.Errorf("unknown wifi security %q", s)
}

// Input is one variant of the tagged union of per-kind inputs. Payload
// reports false when the kind's required field is empty.
type Input interface {
	Kind() Kind
	Payload() (string, bool)
}

// Format returns the payload for in, or false if the input is incomplete
// and nothing should be encoded.
func Format(in Input) (string, bool) {
	if in == nil {
		return "", false
	}
	return in.Payload()
}

// Text is free-form text encoded verbatim.
type Text struct {
	Text string
}

func (Text) Kind() Kind { return KindText }

func (t Text) Payload() (string, bool) {
	if t.Text == "" {
		return "", false
	}
	return t.Text, true
}

// URL is a web address. Addresses without an http(s) scheme get https://.
type URL struct {
	URL string
}

func (URL) Kind() Kind { return KindURL }

func (u URL) Payload() (string, bool) {
	if u.URL == "" {
		return "", false
	}
	if strings.HasPrefix(u.URL, "http://") || strings.HasPrefix(u.URL, "https://") {
		return u.URL, true
	}
	return "https://" + u.URL, true
}

// Email is a mailto: link with optional subject and body.
type Email struct {
	Address string
	Subject string
	Body    string
}

func (Email) Kind() Kind { return KindEmail }

func (e Email) Payload() (string, bool) {
	if e.Address == "" {
		return "", false
	}
	var b strings.Builder
	b.WriteString("mailto:")
	b.WriteString(e.Address)
	sep := "?"
	if e.Subject != "" {
		b.WriteString("?subject=")
		b.WriteString(EscapeComponent(e.Subject))
		sep = "&"
	}
	if e.Body != "" {
		b.WriteString(sep)
		b.WriteString("body=")
		b.WriteString(EscapeComponent(e.Body))
	}
	return b.String(), true
}

// Phone is a tel: link. The number is not validated.
type Phone struct {
	Number string
}

func (Phone) Kind() Kind { return KindPhone }

func (p Phone) Payload() (string, bool) {
	if p.Number == "" {
		return "", false
	}
	return "tel:" + p.Number, true
}

// SMS is an smsto: link with an optional prefilled message.
type SMS struct {
	Number  string
	Message string
}

func (SMS) Kind() Kind { return KindSMS }

func (s SMS) Payload() (string, bool) {
	if s.Number == "" {
		return "", false
	}
	out := "smsto:" + s.Number
	if s.Message != "" {
		out += ":" + EscapeComponent(s.Message)
	}
	return out, true
}

// WiFi is a network join payload.
//
// The hidden-network flag is always emitted as H:true.
type WiFi struct {
	SSID     string
	Password string
	Security Security
}

func (WiFi) Kind() Kind { return KindWiFi }

func (w WiFi) Payload() (string, bool) {
	if w.SSID == "" {
		return "", false
	}
	if _, err := ParseSecurity(string(w.Security)); err != nil {
		return "", false
	}
	token := string(w.Security)
	password := ""
	if w.Security != SecurityNoPass && w.Password != "" {
		password = ";P:" + w.Password
	}
	return "WIFI:S:" + w.SSID + ";T:" + token + password + ";H:true;;", true
}
