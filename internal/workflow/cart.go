package workflow

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/deegraphics/melisse-backend/internal/cart"
	"github.com/deegraphics/melisse-backend/pkg/enums"
	pkgerrors "github.com/deegraphics/melisse-backend/pkg/errors"
	"github.com/deegraphics/melisse-backend/pkg/money"
	"github.com/deegraphics/melisse-backend/pkg/platform"
)

const summaryTitle = "🧾 Cart Summary"

const priceFieldName = "💰 Price"

// productFromMessage recovers the product a buy button was attached to. The
// post body is "<name> - $<price>"; a missing half falls back to a marker
// value rather than failing, matching how products are published.
func productFromMessage(ev platform.ButtonActivated) (cart.LineItem, error) {
	if len(ev.MessageAttachments) == 0 {
		return cart.LineItem{}, pkgerrors.New(pkgerrors.CodeValidation, "⚠️ No product image found.")
	}

	name, priceText := "Unnamed Product", "Unknown"
	if parts := strings.SplitN(ev.MessageText, " - $", 2); parts[0] != "" {
		name = parts[0]
		if len(parts) > 1 {
			priceText = parts[1]
		}
	}
	if !strings.HasSuffix(priceText, "€") {
		priceText += "€"
	}

	return cart.LineItem{
		Title:      name,
		PriceText:  priceText,
		PriceValue: money.Parse(priceText),
		ImageRef:   ev.MessageAttachments[0].URL,
	}, nil
}

func (c *Controller) addToCart(ctx context.Context, ev platform.ButtonActivated) error {
	item, err := productFromMessage(ev)
	if err != nil {
		return err
	}

	if err := c.carts.Reconcile(ctx, ev.UserID, c.dir); err != nil {
		return err
	}
	if err := c.carts.AddItem(ev.UserID, item); err != nil {
		return err
	}

	owner := platform.Member{ID: ev.UserID, Name: ev.UserName, DisplayName: ev.DisplayName}
	channel, err := c.provisioner.FindOrCreate(ctx, enums.ChannelKindCart, owner)
	if err != nil {
		return err
	}
	if ref := c.carts.ChannelRef(ev.UserID); ref != "" && ref != channel.ID {
		// The old channel vanished between reconcile and provisioning.
		// Start the session over with just this item.
		c.carts.Reset(ev.UserID, item)
	}
	c.carts.BindChannel(ev.UserID, channel.ID)

	items := c.carts.Items(ev.UserID)
	added := items[len(items)-1]
	itemCard := platform.Card{
		Title:    added.Title,
		ImageURL: added.ImageRef,
		Fields:   []platform.CardField{{Name: priceFieldName, Value: added.PriceText}},
	}
	if _, err := c.messenger.SendCard(ctx, channel.ID, itemCard, platform.Component{
		Kind:      platform.ComponentButton,
		Label:     "❌ Remove from Cart",
		CustomKey: removeKey(added.ID.String()),
	}); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "posting cart item")
	}

	if err := c.renderSummary(ctx, ev.UserID, channel.ID); err != nil {
		return err
	}

	c.setStage(ctx, ev.UserID, enums.StageCartOpen)
	return c.messenger.ReplyEphemeral(ctx, ev.EventID, "✅ Added to cart!")
}

func (c *Controller) addToWishlist(ctx context.Context, ev platform.ButtonActivated) error {
	item, err := productFromMessage(ev)
	if err != nil {
		return err
	}

	card := platform.Card{
		Title:      "💖 " + item.Title,
		Fields:     []platform.CardField{{Name: priceFieldName, Value: item.PriceText}},
		ImageURL:   item.ImageRef,
		FooterText: "Click below to view the product on the server",
	}
	link := platform.Component{Kind: platform.ComponentLink, Label: "🔗 View Product", URL: ev.MessageLink}

	if err := c.messenger.SendDM(ctx, ev.UserID, "📥 Added to your wishlist:", &card, link); err != nil {
		// A closed inbox is reported back, never propagated.
		return pkgerrors.New(pkgerrors.CodeValidation,
			"⚠️ Could not send wishlist item to your DMs. Please check your privacy settings.")
	}
	return c.messenger.ReplyEphemeral(ctx, ev.EventID, "✅ Sent to your wishlist in DM!")
}

func (c *Controller) removeFromCart(ctx context.Context, ev platform.ButtonActivated, itemID string) error {
	id, err := uuid.Parse(itemID)
	if err != nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "❌ Couldn't remove item.")
	}

	owned := false
	for _, item := range c.carts.Items(ev.UserID) {
		if item.ID == id {
			owned = true
			break
		}
	}
	if !owned {
		return pkgerrors.New(pkgerrors.CodePermission, "❌ This item is not in your cart.")
	}

	if _, err := c.carts.RemoveItem(ev.UserID, id); err != nil {
		return err
	}
	if err := c.messenger.DeleteMessage(ctx, ev.ChannelID, ev.MessageID); err != nil {
		c.logg.Warn(c.logg.WithField(ctx, "delete_error", err.Error()), "removing cart item message failed")
	}
	if err := c.renderSummary(ctx, ev.UserID, ev.ChannelID); err != nil {
		return err
	}
	return c.messenger.ReplyEphemeral(ctx, ev.EventID, "🗑️ Item removed from cart.")
}

// closeCart tears the cart channel down and clears the owning session. The
// admin variant closes anyone's cart; the owner variant only the caller's.
func (c *Controller) closeCart(ctx context.Context, ev platform.ButtonActivated, capability enums.Capability) error {
	ownerID := c.carts.OwnerByChannel(ev.ChannelID)
	denial := "❌ You don't have permission to close this cart."
	if capability == enums.CapabilityOwnerOnly {
		denial = "❌ This is not your cart."
	}
	if err := c.authorize(capability, ev.UserID, ev.UserIsAdmin, ownerID, denial); err != nil {
		return err
	}

	if ownerID != "" {
		c.carts.Clear(ownerID)
		c.setStage(ctx, ownerID, enums.StageTerminated)
	}
	return c.provisioner.Delete(ctx, ev.ChannelID)
}

// renderSummary replaces the running cart summary: delete the old summary
// messages, then send a fresh one. Editing in place would leave stale copies
// when the platform drops an edit.
func (c *Controller) renderSummary(ctx context.Context, userID, channelID string) error {
	recent, err := c.messenger.RecentMessages(ctx, channelID, c.settings.SummaryScanBack)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "scanning for old summaries")
	}
	for _, msg := range recent {
		if msg.AuthorIsBot && msg.Card != nil && msg.Card.Title == summaryTitle {
			if err := c.messenger.DeleteMessage(ctx, channelID, msg.ID); err != nil {
				c.logg.Warn(c.logg.WithField(ctx, "delete_error", err.Error()), "deleting old summary failed")
			}
		}
	}

	summary := platform.Card{
		Title:       summaryTitle,
		Description: fmt.Sprintf("Total items: %d", c.carts.Count(userID)),
		Fields:      []platform.CardField{{Name: "Total", Value: money.Format(c.carts.Total(userID))}},
	}
	components := []platform.Component{
		{Kind: platform.ComponentLink, Label: "💳 Pay via PayPal", URL: c.settings.PaymentLink},
		{Kind: platform.ComponentButton, Label: "📤 Upload Receipt", CustomKey: KeyUploadReceipt},
		{Kind: platform.ComponentButton, Label: "🛑 Close Cart", CustomKey: KeyCloseCartOwner},
	}
	if _, err := c.messenger.SendCard(ctx, channelID, summary, components...); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "posting cart summary")
	}
	return nil
}
