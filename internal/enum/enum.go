package enum

// ── Group A: State machines (CHECK constrained in DB) ──

const (
	OrderStatusPending    = "pending"
	OrderStatusConfirmed  = "confirmed"
	OrderStatusProcessing = "processing"
	OrderStatusShipped    = "shipped"
	OrderStatusDelivered  = "delivered"
	OrderStatusCancelled  = "cancelled"
)

// OrderStatuses lists every order status in lifecycle order.
var OrderStatuses = []string{
	OrderStatusPending,
	OrderStatusConfirmed,
	OrderStatusProcessing,
	OrderStatusShipped,
	OrderStatusDelivered,
	OrderStatusCancelled,
}

// ── Group C: Borderline (CHECK constrained in DB) ──

const (
	PaymentMethodCOD          = "cod"
	PaymentMethodVodafoneCash = "vodafone_cash"
)

const (
	UserRoleAdmin = "admin"
)

// ── Group B: Configurable labels (no DB constraint) ──

// Accepted by the notification function only; the storefront checkout
// never produces them.
const (
	PaymentMethodInstapay = "instapay"
	PaymentMethodPartial  = "partial"
)

const (
	SettingStorePhone            = "store_phone"
	SettingStoreEmail            = "store_email"
	SettingFacebookURL           = "facebook_url"
	SettingInstagramURL          = "instagram_url"
	SettingWhatsappNumber        = "whatsapp_number"
	SettingVodafoneCashNumber    = "vodafone_cash_number"
	SettingFreeDeliveryThreshold = "free_delivery_threshold"
)

// SettingKeys lists every store_settings key managed by the back office.
var SettingKeys = []string{
	SettingStoreEmail,
	SettingStorePhone,
	SettingWhatsappNumber,
	SettingFacebookURL,
	SettingInstagramURL,
	SettingVodafoneCashNumber,
	SettingFreeDeliveryThreshold,
}

const (
	TableProducts      = "products"
	TableCategories    = "categories"
	TableProductImages = "product_images"
	TableOrders        = "orders"
	TableStoreSettings = "store_settings"
	TableDeliveryFees  = "delivery_fees"
)
