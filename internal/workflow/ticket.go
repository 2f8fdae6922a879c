package workflow

import (
	"context"

	"github.com/deegraphics/melisse-backend/pkg/enums"
	pkgerrors "github.com/deegraphics/melisse-backend/pkg/errors"
	"github.com/deegraphics/melisse-backend/pkg/platform"
)

func ticketComponents() []platform.Component {
	return []platform.Component{
		{Kind: platform.ComponentButton, Label: "🔄 Reopen Ticket", CustomKey: KeyReopenTicket},
		{Kind: platform.ComponentButton, Label: "🔒 Close Ticket", CustomKey: KeyCloseTicket},
		{Kind: platform.ComponentButton, Label: "❌ Force Close Ticket", CustomKey: KeyForceCloseTicket},
	}
}

func (c *Controller) submitTicket(ctx context.Context, ev platform.ButtonActivated) error {
	owner := platform.Member{ID: ev.UserID, Name: ev.UserName, DisplayName: ev.DisplayName}

	existing, err := c.provisioner.FindLive(ctx, enums.ChannelKindTicket, owner)
	if err != nil {
		return err
	}
	if existing != nil {
		return pkgerrors.New(pkgerrors.CodeConflict, "⚠️ You already have an open ticket.")
	}

	channel, err := c.provisioner.FindOrCreate(ctx, enums.ChannelKindTicket, owner)
	if err != nil {
		return err
	}
	if _, err := c.messenger.SendText(ctx, channel.ID, "A staff member will assist you shortly", ticketComponents()...); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "greeting ticket channel")
	}
	return c.messenger.ReplyEphemeral(ctx, ev.EventID, "Ticket created!")
}

func (c *Controller) closeTicket(ctx context.Context, ev platform.ButtonActivated) error {
	if err := c.scheduler.CloseTicket(ctx, ev.ChannelID, ev.ChannelName); err != nil {
		return err
	}
	return c.messenger.ReplyEphemeral(ctx, ev.EventID, "🔒 Ticket closed. You can reopen it within 3 hours.")
}

func (c *Controller) reopenTicket(ctx context.Context, ev platform.ButtonActivated) error {
	reopened, err := c.scheduler.Reopen(ctx, ev.ChannelID)
	if err != nil {
		return err
	}
	if !reopened {
		// The deletion already fired, or the ticket was never closed.
		return c.messenger.ReplyEphemeral(ctx, ev.EventID, "⚠️ Nothing to reopen.")
	}
	return c.messenger.ReplyEphemeral(ctx, ev.EventID, "🔄 Ticket reopened.")
}

func (c *Controller) forceCloseTicket(ctx context.Context, ev platform.ButtonActivated) error {
	if err := c.authorize(enums.CapabilityAdminOnly, ev.UserID, ev.UserIsAdmin, "", "You don't have permission."); err != nil {
		return err
	}
	return c.scheduler.ForceClose(ctx, ev.ChannelID, ev.UserIsAdmin)
}
