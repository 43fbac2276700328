// Package document defines the typed document descriptions accepted by the
// print engine. A document carries business data only (names, quantities,
// preformatted money strings) and never protocol bytes; the encoder turns it
// into a printer-specific byte stream.
package document

import "time"

// Type identifies a document variant.
type Type string

const (
	TypeReceipt         Type = "receipt"
	TypeKitchenOrder    Type = "kitchen_order"
	TypeInvoice         Type = "invoice"
	TypeGuestBill       Type = "guest_bill"
	TypeFinancialReport Type = "financial_report"

	// TypeSelfTest is not a business document; the dispatcher uses it to
	// label test prints in the history ledger.
	TypeSelfTest Type = "self_test"
)

// Document is the closed set of printable descriptions.
type Document interface {
	// DocumentType returns the variant tag.
	DocumentType() Type
	// Reference returns the order or document identifier the print should be
	// correlated with, or an empty string.
	Reference() string
}

// Header carries the restaurant identity printed at the top of
// customer-facing documents.
type Header struct {
	RestaurantName string `json:"restaurant_name"`
	AddressLine    string `json:"address_line,omitempty"`
	Phone          string `json:"phone,omitempty"`
	TaxID          string `json:"tax_id,omitempty"`
	LogoURL        string `json:"logo_url,omitempty"`
}

// LineItem is a single order line. Money values arrive preformatted so the
// encoder never does arithmetic or locale formatting.
type LineItem struct {
	Name      string `json:"name"`
	Quantity  int    `json:"quantity"`
	UnitPrice string `json:"unit_price,omitempty"`
	Total     string `json:"total,omitempty"`
	Notes     string `json:"notes,omitempty"`
}

// Receipt is the customer till receipt.
type Receipt struct {
	Header        Header     `json:"header"`
	OrderNumber   string     `json:"order_number"`
	TableName     string     `json:"table_name,omitempty"`
	PlacedAt      time.Time  `json:"placed_at"`
	Items         []LineItem `json:"items"`
	Subtotal      string     `json:"subtotal,omitempty"`
	Discount      string     `json:"discount,omitempty"`
	CouponCode    string     `json:"coupon_code,omitempty"`
	Tax           string     `json:"tax,omitempty"`
	Total         string     `json:"total"`
	PaymentMethod string     `json:"payment_method,omitempty"`
	TrackingID    string     `json:"tracking_id,omitempty"`
	FooterMessage string     `json:"footer_message,omitempty"`
}

func (r *Receipt) DocumentType() Type { return TypeReceipt }
func (r *Receipt) Reference() string  { return r.OrderNumber }

// KitchenOrder is the kitchen ticket: items and notes, no prices.
type KitchenOrder struct {
	OrderNumber string     `json:"order_number"`
	TableName   string     `json:"table_name,omitempty"`
	PlacedAt    time.Time  `json:"placed_at"`
	Items       []LineItem `json:"items"`
	Note        string     `json:"note,omitempty"`
}

func (k *KitchenOrder) DocumentType() Type { return TypeKitchenOrder }
func (k *KitchenOrder) Reference() string  { return k.OrderNumber }

// Invoice is the formal tax document.
type Invoice struct {
	Header          Header     `json:"header"`
	InvoiceNumber   string     `json:"invoice_number"`
	IssuedAt        time.Time  `json:"issued_at"`
	CustomerName    string     `json:"customer_name"`
	CustomerTaxID   string     `json:"customer_tax_id,omitempty"`
	CustomerAddress string     `json:"customer_address,omitempty"`
	Items           []LineItem `json:"items"`
	Subtotal        string     `json:"subtotal,omitempty"`
	Tax             string     `json:"tax,omitempty"`
	Total           string     `json:"total"`
	PaymentMethod   string     `json:"payment_method,omitempty"`
	LegalFooter     string     `json:"legal_footer,omitempty"`
}

func (i *Invoice) DocumentType() Type { return TypeInvoice }
func (i *Invoice) Reference() string  { return i.InvoiceNumber }

// GuestBill is the per-guest bill presented before payment. It is not a
// fiscal receipt and says so.
type GuestBill struct {
	Header     Header     `json:"header"`
	BillID     string     `json:"bill_id"`
	TableName  string     `json:"table_name,omitempty"`
	GuestName  string     `json:"guest_name,omitempty"`
	OpenedAt   time.Time  `json:"opened_at"`
	Items      []LineItem `json:"items"`
	Total      string     `json:"total"`
	TrackingID string     `json:"tracking_id,omitempty"`
}

func (g *GuestBill) DocumentType() Type { return TypeGuestBill }
func (g *GuestBill) Reference() string  { return g.BillID }

// ReportLine is one label/value row of a financial report.
type ReportLine struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// FinancialReport is an end-of-day or period summary.
type FinancialReport struct {
	Title           string       `json:"title"`
	PeriodStart     time.Time    `json:"period_start"`
	PeriodEnd       time.Time    `json:"period_end"`
	OrderCount      int          `json:"order_count"`
	Gross           string       `json:"gross,omitempty"`
	Net             string       `json:"net,omitempty"`
	Tax             string       `json:"tax,omitempty"`
	ByPaymentMethod []ReportLine `json:"by_payment_method,omitempty"`
	TopItems        []ReportLine `json:"top_items,omitempty"`
}

func (f *FinancialReport) DocumentType() Type { return TypeFinancialReport }
func (f *FinancialReport) Reference() string  { return "" }
