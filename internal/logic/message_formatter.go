package logic

import (
	"fmt"
)

const (
	// WelcomeTitle is the title of the thread every fresh session starts with
	WelcomeTitle = "Welcome to Gemini"

	// GreetingText is the scripted first assistant message of every thread
	GreetingText = "Hello! How can I help you today?"
)

// FormatThreadTitle returns the default title for a newly created thread
//
//	New Chat {id}
func FormatThreadTitle(threadID string) string {
	return fmt.Sprintf("New Chat %s", threadID)
}

// FormatSimulatedReply formats the assistant's reply to a user message
// Format:
//
//	This is a simulated response to "{text}". I am a friendly AI assistant ready to help you with your tasks.
func FormatSimulatedReply(userText string) string {
	return fmt.Sprintf("This is a simulated response to \"%s\". I am a friendly AI assistant ready to help you with your tasks.", userText)
}

// FormatOlderMessage formats the text of a synthetic history message.
// position is the 1-based position counted back from the newest message.
func FormatOlderMessage(position int) string {
	return fmt.Sprintf("This is an older simulated message %d.", position)
}
