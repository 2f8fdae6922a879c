// Package lifecycle schedules the delayed, irreversible channel actions:
// close-then-delete with a reopen window for tickets, and retention-then-
// purge for approved orders. Pending deadlines live in memory only; a
// restart drops them and admins re-issue the close. That loss window is a
// deliberate trade against carrying a durable schedule store.
package lifecycle

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/deegraphics/melisse-backend/internal/provision"
	"github.com/deegraphics/melisse-backend/pkg/enums"
	pkgerrors "github.com/deegraphics/melisse-backend/pkg/errors"
	"github.com/deegraphics/melisse-backend/pkg/logger"
	"github.com/deegraphics/melisse-backend/pkg/metrics"
	"github.com/deegraphics/melisse-backend/pkg/platform"
)

// Deleter performs the destructive channel operations.
type Deleter interface {
	Delete(ctx context.Context, channelID string) error
	Rename(ctx context.Context, channelID, name string) error
}

// Notifier posts human-readable audit lines to the log channel. Failures
// are best-effort and never propagate.
type Notifier interface {
	Notify(ctx context.Context, message string) error
}

type stopper interface {
	Stop() bool
}

// pendingDelete tracks one scheduled deletion. The canceled flag is the
// cancellation token checked immediately before the delete executes; a
// stopped timer alone is not enough because the fire callback may already
// be in flight.
type pendingDelete struct {
	kind       enums.ChannelKind
	name       string
	reopenable bool
	canceled   bool
	timer      stopper
}

// Params configure the scheduler.
type Params struct {
	Logger   *logger.Logger
	Metrics  *metrics.SchedulerMetrics
	Deleter  Deleter
	Notifier Notifier
	CloseTTL time.Duration
	PurgeTTL time.Duration
	// Enqueue hands the fired follow-up work to the event loop so timers
	// never mutate shared state inline. Nil runs the work directly.
	Enqueue func(task func())
	// AfterFunc is swapped in tests for a manual trigger.
	AfterFunc func(d time.Duration, fn func()) stopper
}

// Scheduler owns every pending delayed deletion for the process lifetime.
type Scheduler struct {
	logg     *logger.Logger
	metrics  *metrics.SchedulerMetrics
	deleter  Deleter
	notifier Notifier
	closeTTL time.Duration
	purgeTTL time.Duration
	enqueue  func(task func())
	after    func(d time.Duration, fn func()) stopper

	mu      sync.Mutex
	pending map[string]*pendingDelete // channel id → pending action
}

// NewScheduler builds a scheduler.
func NewScheduler(params Params) (*Scheduler, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Deleter == nil {
		return nil, fmt.Errorf("deleter required")
	}
	if params.CloseTTL <= 0 || params.PurgeTTL <= 0 {
		return nil, fmt.Errorf("positive close and purge TTLs required")
	}
	enqueue := params.Enqueue
	if enqueue == nil {
		enqueue = func(task func()) { task() }
	}
	after := params.AfterFunc
	if after == nil {
		after = func(d time.Duration, fn func()) stopper { return time.AfterFunc(d, fn) }
	}
	return &Scheduler{
		logg:     params.Logger,
		metrics:  params.Metrics,
		deleter:  params.Deleter,
		notifier: params.Notifier,
		closeTTL: params.CloseTTL,
		purgeTTL: params.PurgeTTL,
		enqueue:  enqueue,
		after:    after,
		pending:  make(map[string]*pendingDelete),
	}, nil
}

// CloseTicket renames the ticket to its closed form and schedules deletion
// after the close TTL. Calling it again while a deletion is pending is a
// no-op success: the end state already holds.
func (s *Scheduler) CloseTicket(ctx context.Context, channelID, channelName string) error {
	s.mu.Lock()
	if _, exists := s.pending[channelID]; exists {
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()

	closedName := channelName
	if !provision.IsTerminalName(closedName) {
		closedName = provision.ClosedPrefix + channelName
		if err := s.deleter.Rename(ctx, channelID, closedName); err != nil {
			if pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
				return nil
			}
			return err
		}
	}

	s.notify(ctx, fmt.Sprintf("🗑️ Ticket `%s` marked for deletion in %s.", channelName, humanize(s.closeTTL)))
	s.schedule(channelID, enums.ChannelKindTicket, closedName, s.closeTTL, true)
	return nil
}

// Reopen cancels a pending ticket deletion and strips the closed prefix.
// The boolean reports whether there was anything to reopen; a reopen after
// the deletion fired is a graceful no.
func (s *Scheduler) Reopen(ctx context.Context, channelID string) (bool, error) {
	s.mu.Lock()
	entry, ok := s.pending[channelID]
	if !ok || !entry.reopenable {
		s.mu.Unlock()
		return false, nil
	}
	entry.canceled = true
	entry.timer.Stop()
	delete(s.pending, channelID)
	s.mu.Unlock()

	s.metrics.IncCanceled(string(entry.kind))
	if err := s.deleter.Rename(ctx, channelID, provision.StripTerminalPrefix(entry.name)); err != nil {
		if pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// ScheduleOrderPurge stamps the approved order channel and schedules its
// unconditional deletion after the purge TTL. No reopen edge exists.
func (s *Scheduler) ScheduleOrderPurge(ctx context.Context, channelID, channelName string) error {
	approvedName := channelName
	if !provision.IsTerminalName(approvedName) {
		approvedName = provision.ApprovedPrefix + channelName
		if err := s.deleter.Rename(ctx, channelID, approvedName); err != nil {
			if pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
				return nil
			}
			return err
		}
	}
	s.schedule(channelID, enums.ChannelKindOrder, approvedName, s.purgeTTL, false)
	return nil
}

// ForceClose deletes the channel immediately, bypassing any pending state.
// Only an elevated caller may take this edge.
func (s *Scheduler) ForceClose(ctx context.Context, channelID string, callerIsAdmin bool) error {
	if !callerIsAdmin {
		return pkgerrors.New(pkgerrors.CodePermission, "force close requires administrator")
	}

	s.mu.Lock()
	if entry, ok := s.pending[channelID]; ok {
		entry.canceled = true
		entry.timer.Stop()
		delete(s.pending, channelID)
	}
	s.mu.Unlock()

	return s.deleter.Delete(ctx, channelID)
}

// PendingCount reports how many deletions are scheduled.
func (s *Scheduler) PendingCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

func (s *Scheduler) schedule(channelID string, kind enums.ChannelKind, name string, ttl time.Duration, reopenable bool) {
	entry := &pendingDelete{kind: kind, name: name, reopenable: reopenable}
	entry.timer = s.after(ttl, func() {
		s.enqueue(func() { s.fire(channelID) })
	})

	s.mu.Lock()
	s.pending[channelID] = entry
	s.mu.Unlock()
}

// fire runs on the event loop when a deadline elapses. The cancellation
// token is checked here, at the last possible instant, so a reopen that
// raced the timer still wins.
func (s *Scheduler) fire(channelID string) {
	ctx := context.Background()

	s.mu.Lock()
	entry, ok := s.pending[channelID]
	if !ok || entry.canceled {
		s.mu.Unlock()
		if ok {
			s.metrics.IncCanceled(string(entry.kind))
		}
		return
	}
	delete(s.pending, channelID)
	s.mu.Unlock()

	ctx = s.logg.WithChannelID(ctx, channelID)
	err := s.deleter.Delete(ctx, channelID)
	switch {
	case err == nil:
		s.metrics.IncFired(string(entry.kind))
		s.notify(ctx, fmt.Sprintf("🗑️ Channel `%s` deleted after its retention window.", entry.name))
	case pkgerrors.IsCode(err, pkgerrors.CodeNotFound):
		// The goal state, "resource gone", already holds.
		s.metrics.IncAlreadyGone(string(entry.kind))
	default:
		s.logg.Error(ctx, "scheduled deletion failed", err)
	}
}

func (s *Scheduler) notify(ctx context.Context, message string) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Notify(ctx, message); err != nil {
		s.logg.Warn(s.logg.WithField(ctx, "notify_error", err.Error()), "log channel notification failed")
	}
}

// NewMessengerDeleter adapts the platform messenger to the Deleter surface,
// preserving raw NotFound errors so fire can count no-op successes.
func NewMessengerDeleter(m platform.Messenger) Deleter {
	return messengerDeleter{m: m}
}

type messengerDeleter struct {
	m platform.Messenger
}

func (d messengerDeleter) Delete(ctx context.Context, channelID string) error {
	return d.m.DeleteChannel(ctx, channelID)
}

func (d messengerDeleter) Rename(ctx context.Context, channelID, name string) error {
	return d.m.RenameChannel(ctx, channelID, name)
}

// NewLogChannelNotifier posts audit lines to the configured log channel.
// An empty channel id disables notifications.
func NewLogChannelNotifier(m platform.Messenger, channelID string) Notifier {
	return logChannelNotifier{m: m, channelID: channelID}
}

type logChannelNotifier struct {
	m         platform.Messenger
	channelID string
}

func (n logChannelNotifier) Notify(ctx context.Context, message string) error {
	if n.channelID == "" {
		return nil
	}
	_, err := n.m.SendText(ctx, n.channelID, message)
	return err
}

func humanize(d time.Duration) string {
	if d%time.Hour == 0 {
		hours := int(d / time.Hour)
		if hours == 1 {
			return "1 hour"
		}
		return fmt.Sprintf("%d hours", hours)
	}
	return d.String()
}
