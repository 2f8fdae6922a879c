package platform

// Event is the closed union of inbound callback events. The platform
// delivers at-least-once: duplicates and per-user ordering are handled by
// the consumer, never assumed away here.
type Event interface {
	isEvent()
	// ID identifies the interaction for ephemeral replies and dedup.
	ID() string
}

// ButtonActivated fires when a user presses an interactive button.
type ButtonActivated struct {
	EventID     string
	CustomKey   string
	UserID      string
	UserName    string
	DisplayName string
	UserIsAdmin bool
	ChannelID   string
	ChannelName string
	// Message is the card the button was attached to; product buttons
	// derive the line item from it.
	MessageID          string
	MessageText        string
	MessageCard        *Card
	MessageAttachments []Attachment
	MessageLink        string
}

func (ButtonActivated) isEvent() {}

func (e ButtonActivated) ID() string { return e.EventID }

// FormSubmitted fires when a user submits a form attached to a message.
type FormSubmitted struct {
	EventID     string
	FormKey     string
	Fields      map[string]string
	UserID      string
	UserName    string
	UserIsAdmin bool
	ChannelID   string
}

func (FormSubmitted) isEvent() {}

func (e FormSubmitted) ID() string { return e.EventID }

// MessageReceived fires for every inbound channel message.
type MessageReceived struct {
	EventID     string
	AuthorID    string
	AuthorIsBot bool
	ChannelID   string
	Text        string
	Attachments []Attachment
}

func (MessageReceived) isEvent() {}

func (e MessageReceived) ID() string { return e.EventID }

// CommandInvoked fires when a user runs a registered command.
type CommandInvoked struct {
	EventID       string
	Name          string
	Args          map[string]string
	CallerID      string
	CallerName    string
	DisplayName   string
	CallerIsAdmin bool
	ChannelID     string
}

func (CommandInvoked) isEvent() {}

func (e CommandInvoked) ID() string { return e.EventID }
