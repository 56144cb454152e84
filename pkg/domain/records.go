package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Customer is a buyer record served by the customer service.
type Customer struct {
	ID          uuid.UUID       `json:"id"`
	Code        string          `json:"code"`
	Name        string          `json:"name"`
	ContactName string          `json:"contact_name,omitempty"`
	Phone       string          `json:"phone,omitempty"`
	Email       string          `json:"email"`
	Address     string          `json:"address,omitempty"`
	City        string          `json:"city,omitempty"`
	Country     string          `json:"country,omitempty"`
	CreditLimit decimal.Decimal `json:"credit_limit"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// Product is a catalog record served by the product service.
type Product struct {
	ID          uuid.UUID       `json:"id"`
	SKU         string          `json:"sku"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Category    string          `json:"category"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	InStock     int             `json:"in_stock"`
	Active      bool            `json:"active"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// Supplier is a vendor record served by the supplier service.
type Supplier struct {
	ID          uuid.UUID `json:"id"`
	Code        string    `json:"code"`
	Name        string    `json:"name"`
	ContactName string    `json:"contact_name,omitempty"`
	Phone       string    `json:"phone,omitempty"`
	Email       string    `json:"email"`
	Address     string    `json:"address,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// OrderStatus tracks an order through its lifecycle.
type OrderStatus string

const (
	OrderStatusDraft     OrderStatus = "draft"
	OrderStatusConfirmed OrderStatus = "confirmed"
	OrderStatusShipped   OrderStatus = "shipped"
	OrderStatusCompleted OrderStatus = "completed"
	OrderStatusCancelled OrderStatus = "cancelled"
)

func (s OrderStatus) String() string {
	return string(s)
}

// OrderItem is one line of an order.
type OrderItem struct {
	ProductID uuid.UUID       `json:"product_id"`
	SKU       string          `json:"sku"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	LineTotal decimal.Decimal `json:"line_total"`
}

// Order is a sales order served by the order service.
type Order struct {
	ID         uuid.UUID       `json:"id"`
	Number     string          `json:"number"`
	CustomerID uuid.UUID       `json:"customer_id"`
	Status     OrderStatus     `json:"status"`
	Items      []OrderItem     `json:"items"`
	Total      decimal.Decimal `json:"total"`
	OrderDate  time.Time       `json:"order_date"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

// InvoiceStatus tracks an invoice through its lifecycle.
type InvoiceStatus string

const (
	InvoiceStatusIssued  InvoiceStatus = "issued"
	InvoiceStatusPaid    InvoiceStatus = "paid"
	InvoiceStatusOverdue InvoiceStatus = "overdue"
	InvoiceStatusVoid    InvoiceStatus = "void"
)

func (s InvoiceStatus) String() string {
	return string(s)
}

// Invoice is a billing record served by the invoice service.
type Invoice struct {
	ID        uuid.UUID       `json:"id"`
	Number    string          `json:"number"`
	OrderID   uuid.UUID       `json:"order_id"`
	Status    InvoiceStatus   `json:"status"`
	Amount    decimal.Decimal `json:"amount"`
	AmountDue decimal.Decimal `json:"amount_due"`
	IssuedAt  time.Time       `json:"issued_at"`
	DueAt     time.Time       `json:"due_at"`
	PaidAt    *time.Time      `json:"paid_at,omitempty"`
}

// PaymentMethod identifies how a payment was made.
type PaymentMethod string

const (
	PaymentMethodCash     PaymentMethod = "cash"
	PaymentMethodCard     PaymentMethod = "card"
	PaymentMethodTransfer PaymentMethod = "transfer"
	PaymentMethodMobile   PaymentMethod = "mobile"
)

// Payment is a settlement record served by the payment service.
type Payment struct {
	ID        uuid.UUID       `json:"id"`
	InvoiceID uuid.UUID       `json:"invoice_id"`
	Method    PaymentMethod   `json:"method"`
	Amount    decimal.Decimal `json:"amount"`
	Reference string          `json:"reference,omitempty"`
	Refunded  bool            `json:"refunded"`
	PaidAt    time.Time       `json:"paid_at"`
}

// User is an account record served by the user service.
type User struct {
	ID        uuid.UUID  `json:"id"`
	Username  string     `json:"username"`
	Email     string     `json:"email"`
	FullName  string     `json:"full_name,omitempty"`
	Role      string     `json:"role"`
	Active    bool       `json:"active"`
	LastLogin *time.Time `json:"last_login,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}
