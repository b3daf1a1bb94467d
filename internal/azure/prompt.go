package azure

import (
	"fmt"
	"strings"
)

// Markers of the line az prints in device-code mode, e.g.
// "To sign in, use a web browser to open the page https://microsoft.com/devicelogin
// and enter the code ABCD1234 to authenticate."
const (
	promptSignature = "To sign in"
	promptCodeToken = "code"
	urlPrefix       = "open the page "
	urlSuffix       = " and enter the code"
	codePrefix      = "enter the code "
)

// DeviceCodePrompt is what a user needs to finish a device-code login.
type DeviceCodePrompt struct {
	URL  string
	Code string
	Line string // the raw line az printed
}

// Message is the text returned to callers once a prompt is found. When the
// URL or code could not be extracted, az's own line is returned instead.
func (p DeviceCodePrompt) Message() string {
	if !p.Complete() {
		return strings.TrimSpace(p.Line)
	}
	return fmt.Sprintf("To sign in, open the URL: %s and enter the code: %s", p.URL, p.Code)
}

// Complete reports whether both the URL and the code were extracted.
func (p DeviceCodePrompt) Complete() bool {
	return p.URL != "" && p.Code != ""
}

// ParseDeviceCodePrompt recognizes the device-code line: one that says
// "To sign in" and mentions a code. URL and code are extracted from the
// usual wording and left empty when az phrased the line differently.
func ParseDeviceCodePrompt(line string) (DeviceCodePrompt, bool) {
	if !strings.Contains(line, promptSignature) || !strings.Contains(line, promptCodeToken) {
		return DeviceCodePrompt{}, false
	}
	return DeviceCodePrompt{URL: extractURL(line), Code: extractCode(line), Line: line}, true
}

func extractURL(line string) string {
	_, rest, ok := strings.Cut(line, urlPrefix)
	if !ok {
		return ""
	}
	url, _, ok := strings.Cut(rest, urlSuffix)
	if !ok {
		return ""
	}
	return strings.TrimSpace(url)
}

func extractCode(line string) string {
	_, rest, ok := strings.Cut(line, codePrefix)
	if !ok {
		return ""
	}
	fields := strings.Fields(rest)
	if len(fields) == 0 {
		return ""
	}
	return strings.TrimRight(fields[0], ".,;")
}
