package enum

// ── State machines (CHECK constrained in DB) ──

const (
	TableStatusAvailable      = "available"
	TableStatusOccupied       = "occupied"
	TableStatusRequestingBill = "requesting_bill"
)

const (
	TableOrderStatusOpen           = "open"
	TableOrderStatusRequestingBill = "requesting_bill"
	TableOrderStatusPaid           = "paid"
	TableOrderStatusCancelled      = "cancelled"
)

const (
	OrderItemStatusPending   = "pending"
	OrderItemStatusPreparing = "preparing"
	OrderItemStatusReady     = "ready"
	OrderItemStatusDelivered = "delivered"
	OrderItemStatusCancelled = "cancelled"
)

const (
	DeliveryStatusPending   = "pending"
	DeliveryStatusPreparing = "preparing"
	DeliveryStatusDelivery  = "delivery"
	DeliveryStatusCompleted = "completed"
	DeliveryStatusCancelled = "cancelled"
)

// Delivery items stop at ready; handing over is tracked on the order itself.
const (
	DeliveryItemStatusPending   = "pending"
	DeliveryItemStatusPreparing = "preparing"
	DeliveryItemStatusReady     = "ready"
)

// ── Roles (CHECK constrained in DB) ──

const (
	UserRoleReseller = "reseller"
	UserRoleAdmin    = "admin"
	UserRoleManager  = "manager"
	UserRoleWaiter   = "waiter"
	UserRoleKitchen  = "kitchen"
)

// ── Configurable labels (no DB constraint) ──

const (
	PaymentMethodCash   = "cash"
	PaymentMethodCard   = "card"
	PaymentMethodPix    = "pix"
	PaymentMethodOnline = "online"
)

const (
	DiscountTypeValue      = "value"
	DiscountTypePercentage = "percentage"
)

const (
	KitchenOrderTypeTable    = "table"
	KitchenOrderTypeDelivery = "delivery"
)
