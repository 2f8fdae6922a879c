package workflow

import (
	"context"

	"github.com/deegraphics/melisse-backend/pkg/enums"
	pkgerrors "github.com/deegraphics/melisse-backend/pkg/errors"
	"github.com/deegraphics/melisse-backend/pkg/platform"
)

// productDraft is the form half of a product post, held per admin until
// that admin's next attachment-carrying message supplies the image.
type productDraft struct {
	ForumChannelID string `validate:"required,numeric"`
	Name           string `validate:"required"`
	Price          string `validate:"required"`
	OriginChannel  string
}

func (c *Controller) postProductButton(ctx context.Context, ev platform.ButtonActivated) error {
	if err := c.authorize(enums.CapabilityAdminOnly, ev.UserID, ev.UserIsAdmin, "", "Admin only."); err != nil {
		return err
	}
	return c.messenger.OpenForm(ctx, ev.EventID, FormPostProduct, "Post New Product",
		"forum_channel_id", "name", "price")
}

func (c *Controller) submitProductDraft(ctx context.Context, ev platform.FormSubmitted) error {
	if err := c.authorize(enums.CapabilityAdminOnly, ev.UserID, ev.UserIsAdmin, "", "Admin only."); err != nil {
		return err
	}

	draft := productDraft{
		ForumChannelID: ev.Fields["forum_channel_id"],
		Name:           ev.Fields["name"],
		Price:          ev.Fields["price"],
		OriginChannel:  ev.ChannelID,
	}
	if err := c.validate.Struct(draft); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "❌ Invalid Forum Channel ID.")
	}

	c.mu.Lock()
	c.drafts[ev.UserID] = draft
	c.mu.Unlock()

	return c.messenger.ReplyEphemeral(ctx, ev.EventID,
		"📷 Now send product images (with optional description) in this channel.")
}

// consumeProductDraft finishes a pending product post with the admin's next
// message. The draft is consumed whether or not the message qualifies, so a
// bad attempt restarts from the form.
func (c *Controller) consumeProductDraft(ctx context.Context, ev platform.MessageReceived) error {
	c.mu.Lock()
	draft, ok := c.drafts[ev.AuthorID]
	if ok {
		delete(c.drafts, ev.AuthorID)
	}
	c.mu.Unlock()
	if !ok {
		return nil
	}

	if len(ev.Attachments) == 0 {
		_, err := c.messenger.SendText(ctx, ev.ChannelID, "⚠️ No image attached. Please try again.")
		return err
	}

	forum, err := c.dir.Channel(ctx, draft.ForumChannelID)
	if err != nil || !forum.IsForum {
		_, sendErr := c.messenger.SendText(ctx, ev.ChannelID, "❌ Invalid Forum Channel ID.")
		return sendErr
	}

	body := draft.Name + " - $" + draft.Price
	components := []platform.Component{
		{Kind: platform.ComponentButton, Label: "💖 Add to Wishlist", CustomKey: KeyAddToWishlist},
		{Kind: platform.ComponentButton, Label: "🛒 Add to Cart", CustomKey: KeyAddToCart},
	}
	attachment := ev.Attachments[0]
	if err := c.messenger.CreateForumPost(ctx, forum.ID, draft.Name, body, &attachment, components...); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "creating product post")
	}

	_, err = c.messenger.SendText(ctx, ev.ChannelID, "✅ Product posted successfully!")
	return err
}
