package azure

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseDeviceCodePrompt(t *testing.T) {
	tests := []struct {
		name     string
		line     string
		wantOK   bool
		wantURL  string
		wantCode string
	}{
		{
			name:     "classic prompt",
			line:     devicePrompt,
			wantOK:   true,
			wantURL:  "https://microsoft.com/devicelogin",
			wantCode: "ABCDEFG12",
		},
		{
			name:     "warning prefix",
			line:     "WARNING: To sign in, use a web browser to open the page https://login.microsoft.com/device and enter the code ERAL5J27G to authenticate.",
			wantOK:   true,
			wantURL:  "https://login.microsoft.com/device",
			wantCode: "ERAL5J27G",
		},
		{
			name:     "code at end of line",
			line:     "To sign in, use a web browser to open the page https://microsoft.com/devicelogin and enter the code  XYZ987.",
			wantOK:   true,
			wantURL:  "https://microsoft.com/devicelogin",
			wantCode: "XYZ987",
		},
		{
			name:   "unrelated line",
			line:   `[{"cloudName": "AzureCloud"}]`,
			wantOK: false,
		},
		{
			name:     "signature without url",
			line:     "To sign in, enter the code ABC somewhere",
			wantOK:   true,
			wantCode: "ABC",
		},
		{
			name:    "signature without code value",
			line:    "To sign in, use a web browser to open the page https://microsoft.com/devicelogin and enter the code",
			wantOK:  true,
			wantURL: "https://microsoft.com/devicelogin",
		},
		{
			name:   "reworded prompt",
			line:   "To sign in, use a web browser to open https://microsoft.com/devicelogin and enter code ABC123 to authenticate.",
			wantOK: true,
		},
		{
			name:   "code token missing",
			line:   "To sign in, open the page https://microsoft.com/devicelogin",
			wantOK: false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, ok := ParseDeviceCodePrompt(tt.line)
			assert.Equal(t, tt.wantOK, ok)
			if !tt.wantOK {
				return
			}
			assert.Equal(t, tt.wantURL, p.URL)
			assert.Equal(t, tt.wantCode, p.Code)
			assert.Equal(t, tt.line, p.Line)
		})
	}
}

func TestDeviceCodePrompt_Message(t *testing.T) {
	p := DeviceCodePrompt{URL: "https://microsoft.com/devicelogin", Code: "ABC"}
	assert.Equal(t,
		"To sign in, open the URL: https://microsoft.com/devicelogin and enter the code: ABC",
		p.Message())
}

func TestDeviceCodePrompt_MessageFallsBackToLine(t *testing.T) {
	line := "To sign in, use a web browser to open https://microsoft.com/devicelogin and enter code ABC123 to authenticate."
	p, ok := ParseDeviceCodePrompt(line + "  ")
	assert.True(t, ok)
	assert.False(t, p.Complete())
	assert.Equal(t, line, p.Message())
}
