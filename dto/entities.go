package dto

import "time"

// User is a dashboard user account.
type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name,omitempty"`
	Role      string    `json:"role,omitempty"`
	CreatedAt time.Time `json:"createdAt,omitempty"`
}

// Client is a customer of the trading company (not to be confused with an
// HTTP client).
type Client struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email,omitempty"`
	Phone     string    `json:"phone,omitempty"`
	Address   string    `json:"address,omitempty"`
	TaxID     string    `json:"taxId,omitempty"`
	CreatedAt time.Time `json:"createdAt,omitempty"`
}

// Product is a sellable item or service.
type Product struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description,omitempty"`
	Unit        string  `json:"unit,omitempty"`
	UnitPrice   float64 `json:"unitPrice"`
}

// LineItem is one row of a quotation, purchase order or invoice.
type LineItem struct {
	ProductID   string  `json:"productId,omitempty"`
	Description string  `json:"description"`
	Quantity    float64 `json:"quantity"`
	UnitPrice   float64 `json:"unitPrice"`
	Amount      float64 `json:"amount"`
}

// Quotation is the first document of the business flow.
type Quotation struct {
	ID         string     `json:"id"`
	Number     string     `json:"number"`
	ClientID   string     `json:"clientId"`
	Items      []LineItem `json:"items,omitempty"`
	Status     string     `json:"status"`
	Total      float64    `json:"total"`
	ValidUntil *time.Time `json:"validUntil,omitempty"`
	CreatedAt  time.Time  `json:"createdAt,omitempty"`
}

// PurchaseOrder is raised against an accepted quotation.
type PurchaseOrder struct {
	ID          string     `json:"id"`
	Number      string     `json:"number"`
	QuotationID string     `json:"quotationId,omitempty"`
	ClientID    string     `json:"clientId"`
	Items       []LineItem `json:"items,omitempty"`
	Status      string     `json:"status"`
	Total       float64    `json:"total"`
	CreatedAt   time.Time  `json:"createdAt,omitempty"`
}

// DeliveryOrder tracks fulfilment of a purchase order. SignatureURL points at
// the stored proof-of-delivery image once uploaded.
type DeliveryOrder struct {
	ID              string     `json:"id"`
	Number          string     `json:"number"`
	PurchaseOrderID string     `json:"purchaseOrderId"`
	Status          string     `json:"status"`
	DeliveredAt     *time.Time `json:"deliveredAt,omitempty"`
	SignatureURL    string     `json:"signatureUrl,omitempty"`
}

// Invoice closes the flow. PDFURL points at the rendered document stored by
// the upstream.
type Invoice struct {
	ID              string     `json:"id"`
	Number          string     `json:"number"`
	DeliveryOrderID string     `json:"deliveryOrderId,omitempty"`
	ClientID        string     `json:"clientId"`
	Amount          float64    `json:"amount"`
	Status          string     `json:"status"`
	DueDate         *time.Time `json:"dueDate,omitempty"`
	PDFURL          string     `json:"pdfUrl,omitempty"`
	CreatedAt       time.Time  `json:"createdAt,omitempty"`
}
