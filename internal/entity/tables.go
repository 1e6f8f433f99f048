package entity

// Table names, also used as change keys for live queries.
const (
	TableUsers         = "users"
	TableFollows       = "follows"
	TableBlocks        = "blocks"
	TablePosts         = "posts"
	TableComments      = "comments"
	TableLikes         = "likes"
	TableSavedPosts    = "saved_posts"
	TableProducts      = "products"
	TableCartItems     = "cart_items"
	TableOrders        = "orders"
	TableSubscriptions = "subscriptions"
	TableReports       = "reports"
	TableWarnings      = "warnings"
	TableNotifications = "notifications"
)
