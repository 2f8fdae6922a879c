package lifecycle

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	pkgerrors "github.com/deegraphics/melisse-backend/pkg/errors"
	"github.com/deegraphics/melisse-backend/pkg/logger"
)

type manualTimer struct {
	fn      func()
	stopped bool
}

func (m *manualTimer) Stop() bool {
	was := m.stopped
	m.stopped = true
	return !was
}

// manualClock captures scheduled callbacks so tests fire them by hand.
type manualClock struct {
	mu     sync.Mutex
	timers []*manualTimer
	delays []time.Duration
}

func (c *manualClock) afterFunc(d time.Duration, fn func()) stopper {
	c.mu.Lock()
	defer c.mu.Unlock()
	timer := &manualTimer{fn: fn}
	c.timers = append(c.timers, timer)
	c.delays = append(c.delays, d)
	return timer
}

func (c *manualClock) fire(i int) {
	c.mu.Lock()
	timer := c.timers[i]
	c.mu.Unlock()
	timer.fn()
}

type fakeChannels struct {
	mu       sync.Mutex
	names    map[string]string
	deleted  []string
	notified []string
}

func newFakeChannels(ids ...string) *fakeChannels {
	f := &fakeChannels{names: make(map[string]string)}
	for _, id := range ids {
		f.names[id] = id + "-name"
	}
	return f
}

func (f *fakeChannels) Delete(_ context.Context, channelID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.names[channelID]; !ok {
		return pkgerrors.New(pkgerrors.CodeNotFound, "channel gone")
	}
	delete(f.names, channelID)
	f.deleted = append(f.deleted, channelID)
	return nil
}

func (f *fakeChannels) Rename(_ context.Context, channelID, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.names[channelID]; !ok {
		return pkgerrors.New(pkgerrors.CodeNotFound, "channel gone")
	}
	f.names[channelID] = name
	return nil
}

func (f *fakeChannels) Notify(_ context.Context, message string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.notified = append(f.notified, message)
	return nil
}

func (f *fakeChannels) name(id string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.names[id]
}

func (f *fakeChannels) exists(id string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.names[id]
	return ok
}

func newTestScheduler(t *testing.T, channels *fakeChannels, clock *manualClock) *Scheduler {
	t.Helper()
	s, err := NewScheduler(Params{
		Logger:    logger.New(logger.Options{ServiceName: "test", Output: io.Discard}),
		Deleter:   channels,
		Notifier:  channels,
		CloseTTL:  3 * time.Hour,
		PurgeTTL:  24 * time.Hour,
		AfterFunc: clock.afterFunc,
	})
	if err != nil {
		t.Fatalf("NewScheduler: %v", err)
	}
	return s
}

func TestCloseTicketRenamesAndSchedules(t *testing.T) {
	t.Parallel()

	channels := newFakeChannels("t1")
	clock := &manualClock{}
	s := newTestScheduler(t, channels, clock)

	if err := s.CloseTicket(context.Background(), "t1", "ticket-alice"); err != nil {
		t.Fatalf("CloseTicket: %v", err)
	}
	if got := channels.name("t1"); got != "closed-ticket-alice" {
		t.Fatalf("expected closed prefix, got %q", got)
	}
	if len(clock.delays) != 1 || clock.delays[0] != 3*time.Hour {
		t.Fatalf("expected one 3h timer, got %v", clock.delays)
	}
	if len(channels.notified) != 1 {
		t.Fatalf("expected log notification, got %v", channels.notified)
	}

	clock.fire(0)
	if channels.exists("t1") {
		t.Fatal("expected channel deleted after timer fired")
	}
	if s.PendingCount() != 0 {
		t.Fatal("expected no pending deletions")
	}
}

func TestCloseTicketDuplicateIsNoOp(t *testing.T) {
	t.Parallel()

	channels := newFakeChannels("t1")
	clock := &manualClock{}
	s := newTestScheduler(t, channels, clock)

	if err := s.CloseTicket(context.Background(), "t1", "ticket-alice"); err != nil {
		t.Fatalf("first close: %v", err)
	}
	if err := s.CloseTicket(context.Background(), "t1", "closed-ticket-alice"); err != nil {
		t.Fatalf("second close: %v", err)
	}
	if len(clock.timers) != 1 {
		t.Fatalf("duplicate close must not schedule a second timer, got %d", len(clock.timers))
	}
}

func TestReopenBeforeDeadline(t *testing.T) {
	t.Parallel()

	channels := newFakeChannels("t1")
	clock := &manualClock{}
	s := newTestScheduler(t, channels, clock)

	if err := s.CloseTicket(context.Background(), "t1", "ticket-alice"); err != nil {
		t.Fatalf("CloseTicket: %v", err)
	}
	reopened, err := s.Reopen(context.Background(), "t1")
	if err != nil || !reopened {
		t.Fatalf("Reopen = (%v, %v), want (true, nil)", reopened, err)
	}
	if got := channels.name("t1"); got != "ticket-alice" {
		t.Fatalf("expected prefix stripped, got %q", got)
	}

	// The deadline elapsing after a reopen must not delete anything.
	clock.fire(0)
	if !channels.exists("t1") {
		t.Fatal("reopened channel must survive the old deadline")
	}
}

func TestReopenAfterDeletionFired(t *testing.T) {
	t.Parallel()

	channels := newFakeChannels("t1")
	clock := &manualClock{}
	s := newTestScheduler(t, channels, clock)

	if err := s.CloseTicket(context.Background(), "t1", "ticket-alice"); err != nil {
		t.Fatalf("CloseTicket: %v", err)
	}
	clock.fire(0)

	reopened, err := s.Reopen(context.Background(), "t1")
	if err != nil {
		t.Fatalf("late reopen must not error, got %v", err)
	}
	if reopened {
		t.Fatal("late reopen must not resurrect the channel")
	}
	if channels.exists("t1") {
		t.Fatal("channel must stay deleted")
	}
}

func TestOrderPurgeHasNoReopenEdge(t *testing.T) {
	t.Parallel()

	channels := newFakeChannels("o1")
	clock := &manualClock{}
	s := newTestScheduler(t, channels, clock)

	if err := s.ScheduleOrderPurge(context.Background(), "o1", "order-alice"); err != nil {
		t.Fatalf("ScheduleOrderPurge: %v", err)
	}
	if got := channels.name("o1"); got != "✅-order-alice" {
		t.Fatalf("expected approval stamp, got %q", got)
	}
	if len(clock.delays) != 1 || clock.delays[0] != 24*time.Hour {
		t.Fatalf("expected one 24h timer, got %v", clock.delays)
	}

	if reopened, err := s.Reopen(context.Background(), "o1"); err != nil || reopened {
		t.Fatalf("order purge must not be reopenable, got (%v, %v)", reopened, err)
	}

	clock.fire(0)
	if channels.exists("o1") {
		t.Fatal("expected order channel purged")
	}
}

func TestFireAgainstVanishedChannelIsNoOp(t *testing.T) {
	t.Parallel()

	channels := newFakeChannels("t1")
	clock := &manualClock{}
	s := newTestScheduler(t, channels, clock)

	if err := s.CloseTicket(context.Background(), "t1", "ticket-alice"); err != nil {
		t.Fatalf("CloseTicket: %v", err)
	}
	// Admin removes the channel out-of-band before the deadline.
	if err := channels.Delete(context.Background(), "t1"); err != nil {
		t.Fatalf("out-of-band delete: %v", err)
	}

	clock.fire(0) // must not panic or error the loop
	if s.PendingCount() != 0 {
		t.Fatal("expected pending entry consumed")
	}
}

func TestForceClosePermissions(t *testing.T) {
	t.Parallel()

	channels := newFakeChannels("t1")
	clock := &manualClock{}
	s := newTestScheduler(t, channels, clock)

	err := s.ForceClose(context.Background(), "t1", false)
	if !pkgerrors.IsCode(err, pkgerrors.CodePermission) {
		t.Fatalf("expected permission error, got %v", err)
	}
	if !channels.exists("t1") {
		t.Fatal("denied force close must not delete")
	}

	if err := s.ForceClose(context.Background(), "t1", true); err != nil {
		t.Fatalf("admin force close: %v", err)
	}
	if channels.exists("t1") {
		t.Fatal("expected channel deleted")
	}
}

func TestForceCloseCancelsPendingTimer(t *testing.T) {
	t.Parallel()

	channels := newFakeChannels("t1")
	clock := &manualClock{}
	s := newTestScheduler(t, channels, clock)

	if err := s.CloseTicket(context.Background(), "t1", "ticket-alice"); err != nil {
		t.Fatalf("CloseTicket: %v", err)
	}
	if err := s.ForceClose(context.Background(), "t1", true); err != nil {
		t.Fatalf("ForceClose: %v", err)
	}

	clock.fire(0) // stale timer fires against consumed entry
	if s.PendingCount() != 0 {
		t.Fatal("expected no pending entries")
	}
}
