package workflow

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/deegraphics/melisse-backend/internal/ledger"
	"github.com/deegraphics/melisse-backend/pkg/enums"
	pkgerrors "github.com/deegraphics/melisse-backend/pkg/errors"
	"github.com/deegraphics/melisse-backend/pkg/money"
	"github.com/deegraphics/melisse-backend/pkg/platform"
)

var pollEmojis = []string{"1️⃣", "2️⃣", "3️⃣", "4️⃣", "5️⃣"}

func (c *Controller) handleCommand(ctx context.Context, ev platform.CommandInvoked) error {
	ctx = c.logg.WithUserID(c.logg.WithChannelID(ctx, ev.ChannelID), ev.CallerID)

	if err := c.authorize(enums.CapabilityAdminOnly, ev.CallerID, ev.CallerIsAdmin, "",
		"❌ You don't have permission to do that."); err != nil {
		return err
	}

	switch ev.Name {
	case CmdPoll:
		return c.createPoll(ctx, ev)
	case CmdServerStats:
		return c.serverStats(ctx, ev)
	case CmdUserStats:
		return c.userStats(ctx, ev)
	case CmdDownloadOrders:
		return c.downloadOrders(ctx, ev)
	case CmdSetupTicket:
		return c.setupTicketButton(ctx, ev)
	case CmdSetupPostProduct:
		return c.setupPostProduct(ctx, ev)
	case CmdClear:
		return c.clearMessages(ctx, ev)
	case CmdForceSync:
		return c.forceSync(ctx, ev)
	}
	return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown command %q", ev.Name))
}

func (c *Controller) createPoll(ctx context.Context, ev platform.CommandInvoked) error {
	question := ev.Args["question"]
	var options []string
	for i := 1; i <= len(pollEmojis); i++ {
		if opt := ev.Args[fmt.Sprintf("option%d", i)]; opt != "" {
			options = append(options, opt)
		}
	}
	if len(options) < 2 {
		return pkgerrors.New(pkgerrors.CodeValidation, "❌ You must provide at least two options.")
	}

	var lines []string
	for i, opt := range options {
		lines = append(lines, pollEmojis[i]+" "+opt)
	}
	card := platform.Card{
		Title:       "🗳️ Poll",
		Description: fmt.Sprintf("**%s**\n\n%s", question, strings.Join(lines, "\n")),
		FooterText:  "Poll by " + ev.DisplayName,
	}
	messageID, err := c.messenger.SendCard(ctx, ev.ChannelID, card)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "posting poll")
	}
	for i := range options {
		if err := c.messenger.AddReaction(ctx, ev.ChannelID, messageID, pollEmojis[i]); err != nil {
			c.logg.Warn(c.logg.WithField(ctx, "reaction_error", err.Error()), "adding poll reaction failed")
		}
	}
	return c.messenger.ReplyEphemeral(ctx, ev.EventID, "✅ Poll created.")
}

func (c *Controller) serverStats(ctx context.Context, ev platform.CommandInvoked) error {
	records, err := c.ledger.ReadAll(ctx)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "⚠️ No orders have been exported yet.")
	}

	stats := ledger.Summarize(records)
	reply := strings.Join([]string{
		"📈 Server Sales Stats",
		fmt.Sprintf("🧾 Total Orders: %d", stats.TotalOrders),
		fmt.Sprintf("📦 Total Items Sold: %d", stats.TotalItems),
		fmt.Sprintf("💰 Total Revenue: %s", money.Format(stats.Revenue)),
		fmt.Sprintf("🔥 Top Product: %s", stats.TopProduct),
	}, "\n")
	return c.messenger.ReplyEphemeral(ctx, ev.EventID, reply)
}

func (c *Controller) userStats(ctx context.Context, ev platform.CommandInvoked) error {
	userID := ev.Args["user"]
	if userID == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "⚠️ A user is required.")
	}

	records, err := c.ledger.ReadAll(ctx)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "⚠️ No orders have been recorded yet.")
	}

	displayName := userID
	if member, memberErr := c.dir.Member(ctx, userID); memberErr == nil {
		displayName = member.DisplayName
	}

	stats := ledger.SummarizeUser(records, userID)
	reply := strings.Join([]string{
		fmt.Sprintf("📊 Stats for %s", displayName),
		fmt.Sprintf("🛍 Total Orders: %d", stats.TotalOrders),
		fmt.Sprintf("📦 Items Purchased: %d", stats.TotalItems),
		fmt.Sprintf("💰 Total Spent: %s", money.Format(stats.Revenue)),
		fmt.Sprintf("🔥 Most Purchased Product: %s", stats.TopProduct),
	}, "\n")
	return c.messenger.ReplyEphemeral(ctx, ev.EventID, reply)
}

func (c *Controller) downloadOrders(ctx context.Context, ev platform.CommandInvoked) error {
	if !c.ledger.Exists() {
		return pkgerrors.New(pkgerrors.CodeValidation, "⚠️ No orders have been exported yet.")
	}

	file, err := os.Open(c.ledger.Path())
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "opening ledger file")
	}
	defer file.Close()

	if err := c.messenger.ReplyEphemeral(ctx, ev.EventID, "📄 Here is the exported CSV:"); err != nil {
		c.logg.Warn(c.logg.WithField(ctx, "reply_error", err.Error()), "download reply failed")
	}
	if err := c.messenger.SendFile(ctx, ev.ChannelID, "orders.csv", file); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "sending ledger file")
	}
	return nil
}

func (c *Controller) setupTicketButton(ctx context.Context, ev platform.CommandInvoked) error {
	ticket := platform.Component{Kind: platform.ComponentButton, Label: "Submit Ticket", CustomKey: KeySubmitTicket}
	if _, err := c.messenger.SendText(ctx, ev.ChannelID, "🎟️ Open a ticket:", ticket); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "posting ticket entry point")
	}
	return c.messenger.ReplyEphemeral(ctx, ev.EventID, "Ticket system set up.")
}

func (c *Controller) setupPostProduct(ctx context.Context, ev platform.CommandInvoked) error {
	post := platform.Component{Kind: platform.ComponentButton, Label: "➕ Post New Product", CustomKey: KeyPostProduct}
	if _, err := c.messenger.SendText(ctx, ev.ChannelID, "🛍️ Add a new product:", post); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "posting product entry point")
	}
	return c.messenger.ReplyEphemeral(ctx, ev.EventID, "Product system set up.")
}

func (c *Controller) clearMessages(ctx context.Context, ev platform.CommandInvoked) error {
	limit := 0
	if raw := ev.Args["amount"]; raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "⚠️ Amount must be a positive number.")
		}
		limit = parsed
	}

	deleted, err := c.messenger.PurgeMessages(ctx, ev.ChannelID, limit)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "purging messages")
	}
	verb := "Cleared"
	if limit > 0 {
		verb = "Deleted"
	}
	return c.messenger.ReplyEphemeral(ctx, ev.EventID,
		fmt.Sprintf("🧹 %s %d messages (excluding pinned).", verb, deleted))
}

func (c *Controller) forceSync(ctx context.Context, ev platform.CommandInvoked) error {
	synced, err := c.messenger.SyncCommands(ctx)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "syncing commands")
	}
	return c.messenger.ReplyEphemeral(ctx, ev.EventID, fmt.Sprintf("✅ Synced %d commands to this server.", synced))
}
