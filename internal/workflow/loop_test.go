package workflow

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/deegraphics/melisse-backend/pkg/logger"
	"github.com/deegraphics/melisse-backend/pkg/platform"
)

func TestLoopSerializesEventsAndTasks(t *testing.T) {
	t.Parallel()

	rig := newTestRig(t)
	logg := logger.New(logger.Options{ServiceName: "test", Level: zerolog.Disabled, Output: io.Discard})
	loop := NewLoop(logg, rig.controller, 16)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- loop.Run(ctx) }()

	loop.Submit(ctx, productButton("alice", KeyAddToCart))
	fired := make(chan struct{})
	loop.Enqueue(func() { close(fired) })

	select {
	case <-fired:
	case <-time.After(5 * time.Second):
		t.Fatal("loop did not drain tasks")
	}

	// The submitted event ran before the later task did.
	if rig.guild.channelByName("cart-alice") == nil {
		t.Fatal("expected cart channel from the submitted event")
	}

	cancel()
	select {
	case err := <-done:
		if err != context.Canceled {
			t.Fatalf("Run returned %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not stop on cancel")
	}
}

func TestUnknownGatewayFailsToOpen(t *testing.T) {
	t.Parallel()

	if _, err := platform.OpenGateway(context.Background(), "no-such-gateway", "token", "guild"); err == nil {
		t.Fatal("expected an error for an unregistered gateway")
	}
}
