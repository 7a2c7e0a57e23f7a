package models

import (
	"fmt"
	"time"
)

// Theme is the UI color scheme
type Theme string

const (
	ThemeLight Theme = "light"
	ThemeDark  Theme = "dark"
)

// Toggle returns the opposite theme
func (t Theme) Toggle() Theme {
	if t == ThemeDark {
		return ThemeLight
	}
	return ThemeDark
}

// Valid reports whether t is a known theme
func (t Theme) Valid() bool {
	return t == ThemeLight || t == ThemeDark
}

// Sender defines who authored a message
type Sender string

const (
	SenderUser Sender = "user"
	// SenderAssistant is serialized as "ai" so snapshots written by the
	// browser client restore unchanged.
	SenderAssistant Sender = "ai"
)

// Valid reports whether s is a known sender
func (s Sender) Valid() bool {
	return s == SenderUser || s == SenderAssistant
}

// Message represents a single message in a chat thread
type Message struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	Sender    Sender    `json:"sender"`
	Timestamp time.Time `json:"timestamp"`
	ImageURL  string    `json:"imageUrl,omitempty"`
}

// MessageContent is the caller-supplied part of a new message
type MessageContent struct {
	Text     string `json:"text"`
	Sender   Sender `json:"sender"`
	ImageURL string `json:"imageUrl,omitempty"`
}

// ChatThread represents a named, ordered conversation
type ChatThread struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"createdAt"`
	Messages  []Message `json:"messages"`
}

// Clone returns a deep copy of the thread
func (c ChatThread) Clone() ChatThread {
	out := c
	out.Messages = make([]Message, len(c.Messages))
	copy(out.Messages, c.Messages)
	return out
}

// SessionState is the read model of the whole session
type SessionState struct {
	Hydrated          bool     `json:"hydrated"`
	Theme             Theme    `json:"theme"`
	Authenticated     bool     `json:"authenticated"`
	Responding        bool     `json:"responding"`
	RespondingThreads []string `json:"respondingThreads"`
	ThreadCount       int      `json:"threadCount"`
}

// Snapshot is the durable subset of the session state
type Snapshot struct {
	Theme         Theme        `json:"theme"`
	Authenticated bool         `json:"authenticated"`
	Chats         []ChatThread `json:"chats"`
	NextThreadID  int          `json:"nextThreadId,omitempty"`
}

// Validate checks that a decoded snapshot can be restored as-is
func (s Snapshot) Validate() error {
	if s.Theme != "" && !s.Theme.Valid() {
		return fmt.Errorf("unknown theme %q", s.Theme)
	}

	seen := make(map[string]struct{}, len(s.Chats))
	for i, chat := range s.Chats {
		if chat.ID == "" {
			return fmt.Errorf("chat at index %d has no id", i)
		}
		if _, dup := seen[chat.ID]; dup {
			return fmt.Errorf("duplicate chat id %q", chat.ID)
		}
		seen[chat.ID] = struct{}{}

		for j, msg := range chat.Messages {
			if !msg.Sender.Valid() {
				return fmt.Errorf("chat %q message %d: unknown sender %q", chat.ID, j, msg.Sender)
			}
		}
	}

	return nil
}
