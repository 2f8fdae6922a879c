// Package workflow orchestrates the per-user purchase workflow: cart,
// receipt, order, completion. Every inbound platform event enters through
// Controller.Handle, which dispatches over the closed event union and keeps
// the whole state machine in one place.
package workflow

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/deegraphics/melisse-backend/internal/cart"
	"github.com/deegraphics/melisse-backend/internal/ledger"
	"github.com/deegraphics/melisse-backend/internal/lifecycle"
	"github.com/deegraphics/melisse-backend/internal/provision"
	"github.com/deegraphics/melisse-backend/pkg/enums"
	pkgerrors "github.com/deegraphics/melisse-backend/pkg/errors"
	"github.com/deegraphics/melisse-backend/pkg/logger"
	"github.com/deegraphics/melisse-backend/pkg/metrics"
	"github.com/deegraphics/melisse-backend/pkg/platform"
)

type stopper interface {
	Stop() bool
}

// Settings carry the controller's rendering and timing knobs.
type Settings struct {
	PaymentLink     string
	AdminMention    string
	LogChannelID    string
	ReceiptWait     time.Duration
	SummaryScanBack int
}

// Params wire the controller's collaborators. Now, AfterFunc, and Enqueue
// exist so tests can drive time and the event loop by hand.
type Params struct {
	Logger      *logger.Logger
	Metrics     *metrics.EventMetrics
	Carts       *cart.Store
	Provisioner *provision.Provisioner
	Scheduler   *lifecycle.Scheduler
	Ledger      *ledger.Store
	Directory   platform.Directory
	Messenger   platform.Messenger
	Guard       ExportGuard
	Settings    Settings
	Now         func() time.Time
	AfterFunc   func(d time.Duration, fn func()) stopper
	Enqueue     func(task func())
}

// Controller owns all per-user workflow state for the process lifetime:
// stages, receipt waiters, and pending product drafts. State is in-memory
// only; a restart drops it and users start over from their channels.
type Controller struct {
	logg        *logger.Logger
	metrics     *metrics.EventMetrics
	carts       *cart.Store
	provisioner *provision.Provisioner
	scheduler   *lifecycle.Scheduler
	ledger      *ledger.Store
	dir         platform.Directory
	messenger   platform.Messenger
	guard       ExportGuard
	settings    Settings
	now         func() time.Time
	after       func(d time.Duration, fn func()) stopper
	enqueue     func(task func())
	validate    *validator.Validate

	mu      sync.Mutex
	stages  map[string]enums.WorkflowStage
	waiters map[string]*receiptWaiter
	drafts  map[string]productDraft
}

// NewController builds the controller.
func NewController(params Params) (*Controller, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Carts == nil || params.Provisioner == nil || params.Scheduler == nil || params.Ledger == nil {
		return nil, fmt.Errorf("carts, provisioner, scheduler, and ledger required")
	}
	if params.Directory == nil || params.Messenger == nil {
		return nil, fmt.Errorf("directory and messenger required")
	}
	if params.Settings.ReceiptWait <= 0 {
		return nil, fmt.Errorf("positive receipt wait required")
	}
	guard := params.Guard
	if guard == nil {
		guard = NewMemoryGuard()
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	after := params.AfterFunc
	if after == nil {
		after = func(d time.Duration, fn func()) stopper { return time.AfterFunc(d, fn) }
	}
	enqueue := params.Enqueue
	if enqueue == nil {
		enqueue = func(task func()) { task() }
	}
	if params.Settings.SummaryScanBack <= 0 {
		params.Settings.SummaryScanBack = 20
	}
	return &Controller{
		logg:        params.Logger,
		metrics:     params.Metrics,
		carts:       params.Carts,
		provisioner: params.Provisioner,
		scheduler:   params.Scheduler,
		ledger:      params.Ledger,
		dir:         params.Directory,
		messenger:   params.Messenger,
		guard:       guard,
		settings:    params.Settings,
		now:         now,
		after:       after,
		enqueue:     enqueue,
		validate:    validator.New(),
		stages:      make(map[string]enums.WorkflowStage),
		waiters:     make(map[string]*receiptWaiter),
		drafts:      make(map[string]productDraft),
	}, nil
}

// Handle is the single entry point for every inbound platform event. Coded
// errors become ephemeral replies to the acting user and never bubble out;
// only unexpected failures escape, and the event loop logs those without
// dying.
func (c *Controller) Handle(ctx context.Context, ev platform.Event) error {
	start := c.now()
	kind := eventKind(ev)
	ctx = c.logg.WithEventID(ctx, ev.ID())

	var err error
	switch ev := ev.(type) {
	case platform.ButtonActivated:
		err = c.handleButton(ctx, ev)
	case platform.FormSubmitted:
		err = c.handleForm(ctx, ev)
	case platform.MessageReceived:
		err = c.handleMessage(ctx, ev)
	case platform.CommandInvoked:
		err = c.handleCommand(ctx, ev)
	default:
		err = pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unhandled event %T", ev))
	}

	c.metrics.ObserveDuration(kind, c.now().Sub(start))
	return c.finish(ctx, ev, kind, err)
}

func (c *Controller) finish(ctx context.Context, ev platform.Event, kind string, err error) error {
	if err == nil {
		c.metrics.IncHandled(kind, "success")
		return nil
	}
	coded := pkgerrors.As(err)
	if coded == nil {
		c.metrics.IncHandled(kind, "error")
		c.logg.Error(ctx, "event handling failed", err)
		return err
	}
	c.metrics.IncHandled(kind, "rejected")
	if ev.ID() != "" {
		if replyErr := c.messenger.ReplyEphemeral(ctx, ev.ID(), coded.UserMessage()); replyErr != nil {
			c.logg.Warn(c.logg.WithField(ctx, "reply_error", replyErr.Error()), "ephemeral reply failed")
		}
	}
	return nil
}

func (c *Controller) handleButton(ctx context.Context, ev platform.ButtonActivated) error {
	ctx = c.logg.WithUserID(c.logg.WithChannelID(ctx, ev.ChannelID), ev.UserID)

	if itemID, ok := parseRemoveKey(ev.CustomKey); ok {
		return c.removeFromCart(ctx, ev, itemID)
	}

	switch ev.CustomKey {
	case KeyAddToCart:
		return c.addToCart(ctx, ev)
	case KeyAddToWishlist:
		return c.addToWishlist(ctx, ev)
	case KeyRemoveFromCart:
		// Legacy renderings carry the bare key with no item id bound.
		return pkgerrors.New(pkgerrors.CodeValidation, "❌ Couldn't remove item.")
	case KeySubmitTicket:
		return c.submitTicket(ctx, ev)
	case KeyCloseTicket:
		return c.closeTicket(ctx, ev)
	case KeyReopenTicket:
		return c.reopenTicket(ctx, ev)
	case KeyForceCloseTicket:
		return c.forceCloseTicket(ctx, ev)
	case KeyCloseCartAdmin:
		return c.closeCart(ctx, ev, enums.CapabilityAdminOnly)
	case KeyCloseCartOwner:
		return c.closeCart(ctx, ev, enums.CapabilityOwnerOnly)
	case KeyUploadReceipt:
		return c.uploadReceipt(ctx, ev)
	case KeyDeleteReceipt:
		return c.deleteReceipt(ctx, ev)
	case KeyApproveOrder:
		return c.approveOrder(ctx, ev)
	case KeyFilesSent:
		return c.filesSent(ctx, ev)
	case KeyExportCSV:
		return c.exportOrder(ctx, ev)
	case KeyPostProduct:
		return c.postProductButton(ctx, ev)
	}

	c.logg.Warn(c.logg.WithField(ctx, "custom_key", ev.CustomKey), "unknown button key")
	return nil
}

func (c *Controller) handleForm(ctx context.Context, ev platform.FormSubmitted) error {
	ctx = c.logg.WithUserID(ctx, ev.UserID)
	switch ev.FormKey {
	case FormPostProduct:
		return c.submitProductDraft(ctx, ev)
	}
	c.logg.Warn(c.logg.WithField(ctx, "form_key", ev.FormKey), "unknown form key")
	return nil
}

func (c *Controller) handleMessage(ctx context.Context, ev platform.MessageReceived) error {
	if ev.AuthorIsBot {
		return nil
	}
	ctx = c.logg.WithUserID(c.logg.WithChannelID(ctx, ev.ChannelID), ev.AuthorID)

	if c.completeReceiptWait(ctx, ev) {
		return nil
	}
	return c.consumeProductDraft(ctx, ev)
}

// authorize is the single permission predicate consulted before any gated
// transition. Admins implicitly satisfy owner-only checks.
func (c *Controller) authorize(capability enums.Capability, actorID string, actorIsAdmin bool, ownerID, denial string) error {
	switch capability {
	case enums.CapabilityPublic:
		return nil
	case enums.CapabilityAdminOnly:
		if actorIsAdmin {
			return nil
		}
	case enums.CapabilityOwnerOnly:
		if actorIsAdmin || (ownerID != "" && actorID == ownerID) {
			return nil
		}
	}
	return pkgerrors.New(pkgerrors.CodePermission, denial)
}

// Stage reports the user's current workflow stage.
func (c *Controller) Stage(userID string) enums.WorkflowStage {
	c.mu.Lock()
	defer c.mu.Unlock()
	if stage, ok := c.stages[userID]; ok {
		return stage
	}
	return enums.StageNoCart
}

func (c *Controller) setStage(ctx context.Context, userID string, stage enums.WorkflowStage) {
	c.mu.Lock()
	c.stages[userID] = stage
	c.mu.Unlock()
	c.logg.Info(c.logg.WithWorkflowStage(c.logg.WithUserID(ctx, userID), string(stage)), "workflow stage changed")
}

func (c *Controller) notifyLog(ctx context.Context, message string) {
	if c.settings.LogChannelID == "" {
		return
	}
	if _, err := c.messenger.SendText(ctx, c.settings.LogChannelID, message); err != nil {
		c.logg.Warn(c.logg.WithField(ctx, "notify_error", err.Error()), "log channel notification failed")
	}
}

func eventKind(ev platform.Event) string {
	switch ev.(type) {
	case platform.ButtonActivated:
		return "button"
	case platform.FormSubmitted:
		return "form"
	case platform.MessageReceived:
		return "message"
	case platform.CommandInvoked:
		return "command"
	}
	return "unknown"
}

// userIDFromFooter recovers the workflow owner stamped on receipt and order
// cards as "User ID: <id>".
func userIDFromFooter(card *platform.Card) (string, error) {
	if card == nil || !strings.HasPrefix(card.FooterText, "User ID: ") {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "⚠️ That message carries no order owner.")
	}
	return strings.TrimPrefix(card.FooterText, "User ID: "), nil
}
