package platform

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Gateway bundles one platform connection: the directory, the outbound
// messenger, and the inbound event stream.
type Gateway interface {
	Directory() Directory
	Messenger() Messenger
	// Events delivers inbound events until ctx is canceled. The channel is
	// closed when the connection ends.
	Events(ctx context.Context) (<-chan Event, error)
	Close() error
}

// GatewayFactory opens a connection to a concrete platform.
type GatewayFactory func(ctx context.Context, token, guildID string) (Gateway, error)

var (
	gatewaysMu sync.Mutex
	gateways   = make(map[string]GatewayFactory)
)

// RegisterGateway makes a platform adapter available by name, in the manner
// of database/sql drivers: adapters register from their init and are linked
// into the binary at build time.
func RegisterGateway(name string, factory GatewayFactory) {
	gatewaysMu.Lock()
	defer gatewaysMu.Unlock()
	if factory == nil {
		panic("platform: RegisterGateway with nil factory")
	}
	if _, dup := gateways[name]; dup {
		panic("platform: RegisterGateway called twice for " + name)
	}
	gateways[name] = factory
}

// OpenGateway connects through the named adapter.
func OpenGateway(ctx context.Context, name, token, guildID string) (Gateway, error) {
	gatewaysMu.Lock()
	factory, ok := gateways[name]
	gatewaysMu.Unlock()
	if !ok {
		return nil, fmt.Errorf("platform gateway %q not registered (known: %v)", name, gatewayNames())
	}
	return factory(ctx, token, guildID)
}

func gatewayNames() []string {
	names := make([]string, 0, len(gateways))
	for name := range gateways {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
