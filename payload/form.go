package payload

// Form is the editing record behind the generator form. It keeps the fields
// of every kind so switching kinds never loses what was typed; Input projects
// it onto the variant for the active kind.
type Form struct {
	Text         string   `json:"text" yaml:"text"`
	URL          string   `json:"url" yaml:"url"`
	Email        string   `json:"email" yaml:"email"`
	EmailSubject string   `json:"email_subject" yaml:"email_subject"`
	EmailBody    string   `json:"email_body" yaml:"email_body"`
	Phone        string   `json:"phone" yaml:"phone"`
	SMSNumber    string   `json:"sms_number" yaml:"sms_number"`
	SMSMessage   string   `json:"sms_message" yaml:"sms_message"`
	WiFiSSID     string   `json:"wifi_ssid" yaml:"wifi_ssid"`
	WiFiPassword string   `json:"wifi_password" yaml:"wifi_password"`
	WiFiType     Security `json:"wifi_type" yaml:"wifi_type"`
}

// DefaultForm returns an empty form with WPA2 preselected.
func DefaultForm() Form {
	return Form{WiFiType: SecurityWPA2}
}

// Input returns the tagged variant for kind. Unknown kinds yield nil, which
// Format treats as incomplete.
func (f Form) Input(kind Kind) Input {
	switch kind {
	case KindText:
		return Text{Text: f.Text}
	case KindURL:
		return URL{URL: f.URL}
	case KindEmail:
		return Email{Address: f.Email, Subject: f.EmailSubject, Body: f.EmailBody}
	case KindPhone:
		return Phone{Number: f.Phone}
	case KindSMS:
		return SMS{Number: f.SMSNumber, Message: f.SMSMessage}
	case KindWiFi:
		return WiFi{SSID: f.WiFiSSID, Password: f.WiFiPassword, Security: f.WiFiType}
	default:
		return nil
	}
}

// Validate checks the selector fields of the form. The WiFi security is
// always required, even while another kind is active.
func (f Form) Validate() error {
	_, err := ParseSecurity(string(f.WiFiType))
	return err
}
