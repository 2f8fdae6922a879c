package enums

import "fmt"

// ChannelKind identifies the four ephemeral private channel kinds the
// workflow provisions. The string value doubles as the channel name prefix.
type ChannelKind string

const (
	ChannelKindTicket  ChannelKind = "ticket"
	ChannelKindCart    ChannelKind = "cart"
	ChannelKindReceipt ChannelKind = "receipt"
	ChannelKindOrder   ChannelKind = "order"
)

var validChannelKinds = []ChannelKind{
	ChannelKindTicket,
	ChannelKindCart,
	ChannelKindReceipt,
	ChannelKindOrder,
}

// IsValid reports whether the value matches the canonical channel kind enum.
func (c ChannelKind) IsValid() bool {
	for _, candidate := range validChannelKinds {
		if candidate == c {
			return true
		}
	}
	return false
}

// Prefix returns the deterministic channel-name prefix for the kind.
func (c ChannelKind) Prefix() string {
	return string(c)
}

// ParseChannelKind converts the raw string to ChannelKind.
func ParseChannelKind(value string) (ChannelKind, error) {
	for _, candidate := range validChannelKinds {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid channel kind %q", value)
}
