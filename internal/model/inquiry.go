package model

import "time"

// InquiryType distinguishes product quote requests from farm tour bookings.
type InquiryType string

const (
	InquiryTypeProduct  InquiryType = "product"
	InquiryTypeFarmTour InquiryType = "farm_tour"
)

// IsValid reports whether the type is one of the known inquiry types.
func (t InquiryType) IsValid() bool {
	return t == InquiryTypeProduct || t == InquiryTypeFarmTour
}

// InquiryStatus is the lifecycle state of an inquiry.
type InquiryStatus string

const (
	StatusPending   InquiryStatus = "pending"
	StatusQuoted    InquiryStatus = "quoted"
	StatusConfirmed InquiryStatus = "confirmed"
	StatusCompleted InquiryStatus = "completed"
	StatusCancelled InquiryStatus = "cancelled"
)

// statusTransitions is the single source of truth for legal status changes.
// Forward progression pending -> quoted -> confirmed -> completed; cancelled
// is reachable from any non-terminal state. Terminal states have no exits.
var statusTransitions = map[InquiryStatus][]InquiryStatus{
	StatusPending:   {StatusQuoted, StatusCancelled},
	StatusQuoted:    {StatusConfirmed, StatusCancelled},
	StatusConfirmed: {StatusCompleted, StatusCancelled},
	StatusCompleted: {},
	StatusCancelled: {},
}

// IsValid reports whether the status is a known lifecycle state.
func (s InquiryStatus) IsValid() bool {
	_, ok := statusTransitions[s]
	return ok
}

// IsTerminal reports whether no further transitions are allowed.
func (s InquiryStatus) IsTerminal() bool {
	return len(statusTransitions[s]) == 0 && s.IsValid()
}

// CanTransitionTo reports whether moving from s to next is legal.
func (s InquiryStatus) CanTransitionTo(next InquiryStatus) bool {
	for _, allowed := range statusTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Inquiry is a customer's request for a quote on products or a farm tour.
type Inquiry struct {
	ID              string        `db:"id" json:"id"`
	CustomerName    string        `db:"customer_name" json:"customer_name"`
	CustomerEmail   string        `db:"customer_email" json:"customer_email"`
	CustomerPhone   string        `db:"customer_phone" json:"customer_phone,omitempty"`
	Type            InquiryType   `db:"inquiry_type" json:"type"`
	Status          InquiryStatus `db:"status" json:"status"`
	IsRead          bool          `db:"is_read" json:"is_read"`
	ReadAt          *time.Time    `db:"read_at" json:"read_at,omitempty"`
	IsReplied       bool          `db:"is_replied" json:"is_replied"`
	RepliedAt       *time.Time    `db:"replied_at" json:"replied_at,omitempty"`
	DeliveryAddress string        `db:"delivery_address" json:"delivery_address,omitempty"`
	PreferredDate   *time.Time    `db:"preferred_date" json:"preferred_date,omitempty"`
	Notes           string        `db:"notes" json:"notes,omitempty"`
	TotalEstimated  float64       `db:"total_estimated" json:"total_estimated"`
	CreatedAt       time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time     `db:"updated_at" json:"updated_at"`

	Items []InquiryItem `db:"-" json:"items,omitempty"`
}

// InquiryItem is a single requested product line within an inquiry.
// Items are owned by their inquiry and cascade-deleted with it.
type InquiryItem struct {
	ID          string  `db:"id" json:"id"`
	InquiryID   string  `db:"inquiry_id" json:"inquiry_id"`
	ProductID   string  `db:"product_id" json:"product_id"`
	ProductName string  `db:"product_name" json:"product_name"`
	Category    string  `db:"category" json:"category,omitempty"`
	Quantity    int     `db:"quantity" json:"quantity"`
	UnitPrice   float64 `db:"unit_price" json:"unit_price"`
	TotalPrice  float64 `db:"total_price" json:"total_price"`
}

// InquiryFilter narrows inquiry listings.
type InquiryFilter struct {
	Status InquiryStatus
	Type   InquiryType
	Unread bool
	Page   int
	Limit  int
}

// InquiryStats summarizes the inquiry inbox for the admin dashboard.
type InquiryStats struct {
	Total     int64                   `json:"total"`
	Unread    int64                   `json:"unread"`
	Unreplied int64                   `json:"unreplied"`
	ByStatus  map[InquiryStatus]int64 `json:"by_status"`
	ByType    map[InquiryType]int64   `json:"by_type"`
}
