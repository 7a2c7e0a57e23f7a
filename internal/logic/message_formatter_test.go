package logic

import (
	"testing"
)

func TestFormatThreadTitle(t *testing.T) {
	if got := FormatThreadTitle("2"); got != "New Chat 2" {
		t.Errorf("FormatThreadTitle(2) = %q, want %q", got, "New Chat 2")
	}
}

func TestFormatSimulatedReply(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		expected string
	}{
		{
			name:     "simple message",
			content:  "hi",
			expected: `This is a simulated response to "hi". I am a friendly AI assistant ready to help you with your tasks.`,
		},
		{
			name:     "quotes are kept verbatim",
			content:  `say "yes"`,
			expected: `This is a simulated response to "say "yes"". I am a friendly AI assistant ready to help you with your tasks.`,
		},
		{
			name:     "empty message",
			content:  "",
			expected: `This is a simulated response to "". I am a friendly AI assistant ready to help you with your tasks.`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := FormatSimulatedReply(tt.content)
			if result != tt.expected {
				t.Errorf("FormatSimulatedReply(%q) = %q, want %q", tt.content, result, tt.expected)
			}
		})
	}
}

func TestFormatOlderMessage(t *testing.T) {
	if got := FormatOlderMessage(3); got != "This is an older simulated message 3." {
		t.Errorf("unexpected older message text %q", got)
	}
}
