package workflow

import (
	"context"
	"fmt"

	"github.com/deegraphics/melisse-backend/internal/ledger"
	"github.com/deegraphics/melisse-backend/internal/provision"
	"github.com/deegraphics/melisse-backend/pkg/enums"
	pkgerrors "github.com/deegraphics/melisse-backend/pkg/errors"
	"github.com/deegraphics/melisse-backend/pkg/platform"
)

// receiptWaiter tracks one bounded wait for the next attachment-carrying
// message from a user in their cart channel. At most one per user; a second
// upload press replaces the first.
type receiptWaiter struct {
	userID      string
	userName    string
	displayName string
	avatarURL   string
	channelID   string
	eventID     string
	timer       stopper
	done        bool
}

// uploadReceipt starts the bounded receipt wait. Nothing is provisioned
// until the artifact actually arrives, so a timeout reverts cleanly.
func (c *Controller) uploadReceipt(ctx context.Context, ev platform.ButtonActivated) error {
	w := &receiptWaiter{
		userID:      ev.UserID,
		userName:    ev.UserName,
		displayName: ev.DisplayName,
		avatarURL:   "",
		channelID:   ev.ChannelID,
		eventID:     ev.EventID,
	}
	if member, err := c.dir.Member(ctx, ev.UserID); err == nil {
		w.avatarURL = member.AvatarURL
	}

	c.mu.Lock()
	if prior, ok := c.waiters[ev.UserID]; ok {
		prior.done = true
		prior.timer.Stop()
	}
	c.waiters[ev.UserID] = w
	c.mu.Unlock()

	w.timer = c.after(c.settings.ReceiptWait, func() {
		c.enqueue(func() { c.expireReceiptWait(w) })
	})

	c.setStage(ctx, ev.UserID, enums.StageAwaitingReceipt)
	return c.messenger.ReplyEphemeral(ctx, ev.EventID, "📎 Please upload your receipt image or file.")
}

// expireReceiptWait runs on the event loop when the wait deadline elapses.
// The done flag is checked here so a matching message that raced the timer
// still wins.
func (c *Controller) expireReceiptWait(w *receiptWaiter) {
	c.mu.Lock()
	if w.done || c.waiters[w.userID] != w {
		c.mu.Unlock()
		return
	}
	w.done = true
	delete(c.waiters, w.userID)
	c.mu.Unlock()

	ctx := c.logg.WithUserID(context.Background(), w.userID)
	c.setStage(ctx, w.userID, enums.StageCartOpen)
	if err := c.messenger.ReplyEphemeral(ctx, w.eventID, "⏰ Time expired. Please try again."); err != nil {
		c.logg.Warn(c.logg.WithField(ctx, "reply_error", err.Error()), "receipt timeout reply failed")
	}
}

// completeReceiptWait claims an inbound message for a pending receipt wait.
// It reports whether the message was consumed.
func (c *Controller) completeReceiptWait(ctx context.Context, ev platform.MessageReceived) bool {
	c.mu.Lock()
	w, ok := c.waiters[ev.AuthorID]
	if !ok || w.channelID != ev.ChannelID || len(ev.Attachments) == 0 {
		c.mu.Unlock()
		return false
	}
	w.done = true
	w.timer.Stop()
	delete(c.waiters, ev.AuthorID)
	c.mu.Unlock()

	if err := c.openReceipt(ctx, w, ev.Attachments[0]); err != nil {
		c.logg.Error(ctx, "opening receipt channel failed", err)
		c.setStage(ctx, w.userID, enums.StageCartOpen)
		if coded := pkgerrors.As(err); coded != nil {
			if replyErr := c.messenger.ReplyEphemeral(ctx, w.eventID, coded.UserMessage()); replyErr != nil {
				c.logg.Warn(c.logg.WithField(ctx, "reply_error", replyErr.Error()), "receipt failure reply failed")
			}
		}
	}
	return true
}

func (c *Controller) openReceipt(ctx context.Context, w *receiptWaiter, artifact platform.Attachment) error {
	owner := platform.Member{ID: w.userID, Name: w.userName, DisplayName: w.displayName}
	channel, err := c.provisioner.FindOrCreate(ctx, enums.ChannelKindReceipt, owner)
	if err != nil {
		return err
	}

	if c.settings.AdminMention != "" {
		if _, err := c.messenger.SendText(ctx, channel.ID, c.settings.AdminMention); err != nil {
			c.logg.Warn(c.logg.WithField(ctx, "notify_error", err.Error()), "admin mention failed")
		}
	}

	card := platform.Card{
		Title:      "📥 New Receipt Submitted",
		AuthorName: w.displayName,
		AuthorIcon: w.avatarURL,
		ImageURL:   artifact.URL,
		FooterText: "User ID: " + w.userID,
	}
	components := []platform.Component{
		{Kind: platform.ComponentButton, Label: "🗑️ Delete Receipt", CustomKey: KeyDeleteReceipt},
		{Kind: platform.ComponentButton, Label: "✅ Approve", CustomKey: KeyApproveOrder},
	}
	if _, err := c.messenger.SendCard(ctx, channel.ID, card, components...); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "posting receipt")
	}

	c.setStage(ctx, w.userID, enums.StagePendingApproval)
	return c.messenger.ReplyEphemeral(ctx, w.eventID, "✅ Receipt uploaded. Awaiting admin approval.")
}

func (c *Controller) deleteReceipt(ctx context.Context, ev platform.ButtonActivated) error {
	if err := c.authorize(enums.CapabilityAdminOnly, ev.UserID, ev.UserIsAdmin, "",
		"❌ You don't have permission to delete this receipt."); err != nil {
		return err
	}

	if ownerID, err := userIDFromFooter(ev.MessageCard); err == nil {
		c.setStage(ctx, ownerID, enums.StageTerminated)
	}
	if err := c.messenger.ReplyEphemeral(ctx, ev.EventID, "🗑️ Receipt deleted."); err != nil {
		c.logg.Warn(c.logg.WithField(ctx, "reply_error", err.Error()), "delete receipt reply failed")
	}
	return c.provisioner.Delete(ctx, ev.ChannelID)
}

// approveOrder is the irreversible PendingApproval → Approved edge: it
// provisions the order channel, notifies the buyer's cart channel, and
// stamps both the receipt and order channels with the completion marker.
func (c *Controller) approveOrder(ctx context.Context, ev platform.ButtonActivated) error {
	if err := c.authorize(enums.CapabilityAdminOnly, ev.UserID, ev.UserIsAdmin, "",
		"❌ You don't have permission to approve."); err != nil {
		return err
	}

	buyerID, err := userIDFromFooter(ev.MessageCard)
	if err != nil {
		return err
	}
	buyer, err := c.dir.Member(ctx, buyerID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "resolving buyer")
	}

	orderChannel, err := c.provisioner.FindOrCreate(ctx, enums.ChannelKindOrder, *buyer)
	if err != nil {
		return err
	}

	confirmation := platform.Card{
		Title:       "📦 Order Confirmed",
		Description: "Admin has approved the receipt.",
		FooterText:  "User ID: " + buyer.ID,
	}
	components := []platform.Component{
		{Kind: platform.ComponentButton, Label: "📁 Files Sent", CustomKey: KeyFilesSent},
		{Kind: platform.ComponentButton, Label: "📤 Export to CSV", CustomKey: KeyExportCSV},
	}
	if _, err := c.messenger.SendCard(ctx, orderChannel.ID, confirmation, components...); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "posting order confirmation")
	}

	if cartChannel, findErr := c.provisioner.FindLive(ctx, enums.ChannelKindCart, *buyer); findErr == nil && cartChannel != nil {
		reviewed := platform.Card{
			Title:       "✅ Receipt Reviewed",
			Description: "Your receipt has been reviewed. Your files will be sent within 3 hours.",
		}
		closeCart := platform.Component{Kind: platform.ComponentButton, Label: "🛒 Close Cart", CustomKey: KeyCloseCartAdmin}
		if _, sendErr := c.messenger.SendCard(ctx, cartChannel.ID, reviewed, closeCart); sendErr != nil {
			c.logg.Warn(c.logg.WithField(ctx, "notify_error", sendErr.Error()), "cart approval notice failed")
		}
	}

	// Stamp the order channel and schedule its retention purge; the
	// receipt channel only gets the stamp and stays for audit.
	if err := c.scheduler.ScheduleOrderPurge(ctx, orderChannel.ID, orderChannel.Name); err != nil {
		return err
	}
	if !provision.IsTerminalName(ev.ChannelName) {
		if err := c.provisioner.Rename(ctx, ev.ChannelID, provision.ApprovedPrefix+ev.ChannelName); err != nil &&
			!pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
			c.logg.Warn(c.logg.WithField(ctx, "rename_error", err.Error()), "stamping receipt channel failed")
		}
	}

	c.setStage(ctx, buyer.ID, enums.StageApproved)
	return c.messenger.ReplyEphemeral(ctx, ev.EventID, "🟢 Order approved and order channel created.")
}

// filesSent is the Approved → Completed edge: export the ledger record,
// tell the log channel, and tear the order channel down.
func (c *Controller) filesSent(ctx context.Context, ev platform.ButtonActivated) error {
	if err := c.authorize(enums.CapabilityAdminOnly, ev.UserID, ev.UserIsAdmin, "",
		"❌ You don't have permission."); err != nil {
		return err
	}

	buyerID, err := userIDFromFooter(ev.MessageCard)
	if err != nil {
		return err
	}
	if err := c.exportRecord(ctx, buyerID, ev.ChannelID, ev.ChannelName); err != nil &&
		!pkgerrors.IsCode(err, pkgerrors.CodeConflict) {
		return err
	}

	if err := c.messenger.ReplyEphemeral(ctx, ev.EventID, "📦 Files have been sent to the user. Closing order..."); err != nil {
		c.logg.Warn(c.logg.WithField(ctx, "reply_error", err.Error()), "files sent reply failed")
	}
	c.notifyLog(ctx, fmt.Sprintf("🗂️ Order channel `%s` deleted after files were sent.", ev.ChannelName))

	c.setStage(ctx, buyerID, enums.StageCompleted)
	return c.provisioner.Delete(ctx, ev.ChannelID)
}

func (c *Controller) exportOrder(ctx context.Context, ev platform.ButtonActivated) error {
	if err := c.authorize(enums.CapabilityAdminOnly, ev.UserID, ev.UserIsAdmin, "",
		"❌ You don't have permission."); err != nil {
		return err
	}

	buyerID, err := userIDFromFooter(ev.MessageCard)
	if err != nil {
		return err
	}
	if err := c.exportRecord(ctx, buyerID, ev.ChannelID, ev.ChannelName); err != nil {
		return err
	}
	return c.messenger.ReplyEphemeral(ctx, ev.EventID, "✅ Order exported to CSV.")
}

// exportRecord appends the buyer's current cart as one ledger row, guarded
// so the same order channel is only ever exported once.
func (c *Controller) exportRecord(ctx context.Context, buyerID, orderChannelID, orderChannelName string) error {
	first, err := c.guard.FirstTime(ctx, orderChannelID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "checking export guard")
	}
	if !first {
		return pkgerrors.New(pkgerrors.CodeConflict, "⚠️ This order was already exported.")
	}

	buyerName := buyerID
	if member, memberErr := c.dir.Member(ctx, buyerID); memberErr == nil {
		buyerName = member.Name
	}

	items := c.carts.Items(buyerID)
	fragments := make([]string, 0, len(items))
	for _, item := range items {
		fragments = append(fragments, ledger.ItemFragment(item.Title, item.PriceText))
	}

	record := ledger.Record{
		UserID:    buyerID,
		UserName:  buyerName,
		Timestamp: c.now().UTC(),
		Channel:   orderChannelName,
		Items:     fragments,
		Total:     c.carts.Total(buyerID),
	}
	if err := c.ledger.Append(ctx, record); err != nil {
		c.guard.Forget(ctx, orderChannelID)
		return err
	}
	return nil
}
