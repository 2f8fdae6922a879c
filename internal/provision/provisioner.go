// Package provision implements idempotent find-or-create for the ephemeral
// private channels backing each workflow stage.
package provision

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/deegraphics/melisse-backend/pkg/enums"
	pkgerrors "github.com/deegraphics/melisse-backend/pkg/errors"
	"github.com/deegraphics/melisse-backend/pkg/platform"
)

// Terminal name prefixes. A prefixed channel is kept for audit and never
// counts as the live channel of its kind.
const (
	ClosedPrefix   = "closed-"
	ApprovedPrefix = "✅-"
)

// NameKey derives the deterministic channel name for a kind/owner pair.
// The name doubles as the idempotency key for creation.
func NameKey(kind enums.ChannelKind, ownerDisplayName string) string {
	return fmt.Sprintf("%s-%s", kind.Prefix(), ownerDisplayName)
}

// IsTerminalName reports whether the channel name carries a terminal prefix.
func IsTerminalName(name string) bool {
	return strings.HasPrefix(name, ClosedPrefix) || strings.HasPrefix(name, ApprovedPrefix)
}

// StripTerminalPrefix removes a terminal prefix, if present.
func StripTerminalPrefix(name string) string {
	name = strings.TrimPrefix(name, ClosedPrefix)
	return strings.TrimPrefix(name, ApprovedPrefix)
}

// Provisioner maps (kind, owner) to at most one live channel. Creation and
// reuse are indistinguishable to callers beyond the returned handle.
type Provisioner struct {
	dir        platform.Directory
	messenger  platform.Messenger
	categories map[enums.ChannelKind]string

	mu    sync.Mutex
	cache map[string]string // NameKey → channel id
}

// New wires a provisioner over the external directory and messenger.
// categories fixes the category placement per channel kind.
func New(dir platform.Directory, messenger platform.Messenger, categories map[enums.ChannelKind]string) (*Provisioner, error) {
	if dir == nil {
		return nil, fmt.Errorf("directory required")
	}
	if messenger == nil {
		return nil, fmt.Errorf("messenger required")
	}
	for _, kind := range []enums.ChannelKind{enums.ChannelKindTicket, enums.ChannelKindCart, enums.ChannelKindReceipt, enums.ChannelKindOrder} {
		if categories[kind] == "" {
			return nil, fmt.Errorf("category id for %s channels required", kind)
		}
	}
	return &Provisioner{
		dir:        dir,
		messenger:  messenger,
		categories: categories,
		cache:      make(map[string]string),
	}, nil
}

// FindOrCreate returns the live channel for the kind/owner pair, creating a
// private one under the kind's category when none exists. Sequential calls
// for the same pair never leave two live channels.
func (p *Provisioner) FindOrCreate(ctx context.Context, kind enums.ChannelKind, owner platform.Member) (*platform.Channel, error) {
	if !kind.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid channel kind %q", kind))
	}

	nameKey := NameKey(kind, owner.DisplayName)

	if cached := p.cachedID(nameKey); cached != "" {
		ch, err := p.dir.Channel(ctx, cached)
		if err == nil && ch.Name == nameKey {
			return ch, nil
		}
		p.forget(nameKey)
		if err != nil && !pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "resolving cached channel")
		}
	}

	if existing, err := p.FindLive(ctx, kind, owner); err != nil {
		return nil, err
	} else if existing != nil {
		p.remember(nameKey, existing.ID)
		return existing, nil
	}

	categoryID := p.categories[kind]
	if _, err := p.dir.Channel(ctx, categoryID); err != nil {
		if pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeConfiguration,
				fmt.Sprintf("❌ Category %s for %s channels does not exist.", categoryID, kind))
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "resolving category")
	}

	created, err := p.messenger.CreatePrivateChannel(ctx, platform.CreateChannelInput{
		Name:       nameKey,
		CategoryID: categoryID,
		OwnerID:    owner.ID,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "creating channel")
	}
	p.remember(nameKey, created.ID)
	return created, nil
}

// FindLive scans the directory for the live (unprefixed) channel of the
// kind/owner pair; nil when absent. Terminal prefixed variants are ignored:
// they are audit copies, not live resources.
func (p *Provisioner) FindLive(ctx context.Context, kind enums.ChannelKind, owner platform.Member) (*platform.Channel, error) {
	nameKey := NameKey(kind, owner.DisplayName)
	channels, err := p.dir.Channels(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "listing channels")
	}
	for i := range channels {
		ch := channels[i]
		if ch.Name != nameKey {
			continue
		}
		// Reuse only when the owner can read it; an orphaned channel the
		// owner lost access to is replaced rather than resurrected.
		if ch.OwnerID != "" && ch.OwnerID != owner.ID {
			continue
		}
		return &ch, nil
	}
	return nil, nil
}

// FindTerminal returns the terminal (prefixed) variants for the kind/owner
// pair, used by audit surfaces.
func (p *Provisioner) FindTerminal(ctx context.Context, kind enums.ChannelKind, owner platform.Member) ([]platform.Channel, error) {
	nameKey := NameKey(kind, owner.DisplayName)
	channels, err := p.dir.Channels(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "listing channels")
	}
	var out []platform.Channel
	for _, ch := range channels {
		if IsTerminalName(ch.Name) && StripTerminalPrefix(ch.Name) == nameKey {
			out = append(out, ch)
		}
	}
	return out, nil
}

// Delete removes the channel; a channel already gone out-of-band is a no-op
// success, the goal state already holds.
func (p *Provisioner) Delete(ctx context.Context, channelID string) error {
	err := p.messenger.DeleteChannel(ctx, channelID)
	if err != nil && !pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "deleting channel")
	}
	p.forgetID(channelID)
	return nil
}

// Rename renames the channel, invalidating any cached mapping since the
// name is the identity key.
func (p *Provisioner) Rename(ctx context.Context, channelID, name string) error {
	if err := p.messenger.RenameChannel(ctx, channelID, name); err != nil {
		if pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
			return err
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "renaming channel")
	}
	p.forgetID(channelID)
	p.remember(name, channelID)
	return nil
}

func (p *Provisioner) cachedID(nameKey string) string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cache[nameKey]
}

func (p *Provisioner) remember(nameKey, id string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cache[nameKey] = id
}

func (p *Provisioner) forget(nameKey string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.cache, nameKey)
}

func (p *Provisioner) forgetID(channelID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for key, id := range p.cache {
		if id == channelID {
			delete(p.cache, key)
		}
	}
}
