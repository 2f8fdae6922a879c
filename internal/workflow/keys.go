package workflow

import "strings"

// Custom keys bound to persistent UI components. The platform echoes the key
// back on ButtonActivated; keys must stay stable across restarts because the
// components outlive the process.
const (
	KeyAddToCart        = "persistent_addtocart"
	KeyAddToWishlist    = "persistent_addtowishlist"
	KeyRemoveFromCart   = "persistent_remove_from_cart"
	KeySubmitTicket     = "persistent_ticket"
	KeyReopenTicket     = "reopen_ticket"
	KeyCloseTicket      = "persistent___close_ticket"
	KeyForceCloseTicket = "persistent___force_close_ticket"
	KeyCloseCartAdmin   = "persistent_close_cart"
	KeyCloseCartOwner   = "close_cart_button"
	KeyUploadReceipt    = "persistent___upload_receipt"
	KeyDeleteReceipt    = "persistent____delete_receipt"
	KeyApproveOrder     = "persistent___approve"
	KeyFilesSent        = "persistent___files_sent"
	KeyExportCSV        = "persistent___export_to_csv"
	KeyPostProduct      = "persistent_postproduct"
)

// FormPostProduct identifies the admin product form.
const FormPostProduct = "post_product_form"

// Command names on the registered command surface.
const (
	CmdPoll             = "poll"
	CmdServerStats      = "server_stats"
	CmdUserStats        = "user_stats"
	CmdDownloadOrders   = "download_orders"
	CmdSetupTicket      = "setup_ticket_button"
	CmdSetupPostProduct = "setup_post_product"
	CmdClear            = "clear"
	CmdForceSync        = "force_sync"
)

// removeKey binds a remove button to the stable line-item id minted at add
// time, so a remove pressed against a stale rendering deletes the right
// item instead of whatever shifted into its index.
func removeKey(itemID string) string {
	return KeyRemoveFromCart + ":" + itemID
}

// parseRemoveKey extracts the line-item id; ok is false for other keys.
func parseRemoveKey(key string) (string, bool) {
	if !strings.HasPrefix(key, KeyRemoveFromCart+":") {
		return "", false
	}
	return strings.TrimPrefix(key, KeyRemoveFromCart+":"), true
}
