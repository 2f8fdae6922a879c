// Package platform specifies the messaging-platform collaborator at its
// interface. The transport, gateway, auth model, and card rendering live
// behind these types; the workflow core never imports a platform SDK.
package platform

import (
	"context"
	"io"
)

// Channel is a platform-hosted conversation thread.
type Channel struct {
	ID         string
	Name       string
	CategoryID string
	OwnerID    string
	IsForum    bool
}

// Member is a resolved guild member.
type Member struct {
	ID          string
	Name        string
	DisplayName string
	AvatarURL   string
}

// Attachment is an opaque reference to an uploaded artifact.
type Attachment struct {
	Filename string
	URL      string
}

// CardField is one name/value pair on a structured message card.
type CardField struct {
	Name  string
	Value string
}

// Card is a structured message body rendered by the platform.
type Card struct {
	Title       string
	Description string
	Fields      []CardField
	ImageURL    string
	FooterText  string
	AuthorName  string
	AuthorIcon  string
}

// ComponentKind distinguishes interactive buttons from static link buttons.
type ComponentKind string

const (
	ComponentButton ComponentKind = "button"
	ComponentLink   ComponentKind = "link"
)

// Component is a button or link attached to a message.
type Component struct {
	Kind      ComponentKind
	Label     string
	CustomKey string
	URL       string
}

// Message is an already-delivered message, as seen when scanning history.
type Message struct {
	ID          string
	AuthorIsBot bool
	Pinned      bool
	Text        string
	Card        *Card
	Attachments []Attachment
}

// Directory is the guild's channel and member registry.
type Directory interface {
	// Channel resolves a channel by id; a coded NotFound error means the
	// channel vanished out-of-band.
	Channel(ctx context.Context, id string) (*Channel, error)
	// Channels lists every channel in the guild.
	Channels(ctx context.Context) ([]Channel, error)
	// Member resolves a guild member by user id.
	Member(ctx context.Context, userID string) (*Member, error)
}

// CreateChannelInput describes a private channel to provision; read access
// is restricted to the owner, with administrators implied by platform
// override semantics.
type CreateChannelInput struct {
	Name       string
	CategoryID string
	OwnerID    string
}

// Messenger is the outbound rendering surface.
type Messenger interface {
	SendCard(ctx context.Context, channelID string, card Card, components ...Component) (messageID string, err error)
	SendText(ctx context.Context, channelID string, text string, components ...Component) (messageID string, err error)
	// ReplyEphemeral answers the interaction identified by eventID with a
	// message visible only to the acting user.
	ReplyEphemeral(ctx context.Context, eventID string, text string) error
	// OpenForm answers the interaction with a form; submission arrives
	// later as a FormSubmitted event carrying formKey.
	OpenForm(ctx context.Context, eventID, formKey, title string, fields ...string) error
	// SendDM delivers to the user's inbox; a closed inbox is a coded
	// Dependency error the caller reports back, never a crash.
	SendDM(ctx context.Context, userID string, text string, card *Card, components ...Component) error
	CreatePrivateChannel(ctx context.Context, input CreateChannelInput) (*Channel, error)
	RenameChannel(ctx context.Context, channelID, name string) error
	DeleteChannel(ctx context.Context, channelID string) error
	DeleteMessage(ctx context.Context, channelID, messageID string) error
	AddReaction(ctx context.Context, channelID, messageID, emoji string) error
	// RecentMessages returns up to limit messages, newest first.
	RecentMessages(ctx context.Context, channelID string, limit int) ([]Message, error)
	// PurgeMessages deletes up to limit non-pinned messages (all when
	// limit <= 0) and reports how many were removed.
	PurgeMessages(ctx context.Context, channelID string, limit int) (int, error)
	SendFile(ctx context.Context, channelID, filename string, contents io.Reader) error
	// CreateForumPost opens a thread in a forum channel with the given
	// body, attachment, and components.
	CreateForumPost(ctx context.Context, forumChannelID, title, body string, attachment *Attachment, components ...Component) error
	// SyncCommands re-registers the command surface and reports how many
	// commands were synced.
	SyncCommands(ctx context.Context) (int, error)
}
