package booking

import "time"

// Booking is one appointment between a client and a stylist. Client and
// stylist names are denormalized so historical bookings keep the details
// they were made with.
type Booking struct {
	ID          string
	ClientID    string
	ClientName  string
	ClientEmail string
	ClientPhone string
	StylistID   string
	StylistName string

	ServiceID       string
	ServiceName     string
	ServicePrice    int64
	ServiceDuration int

	ScheduledDate time.Time
	TimeSlot      string

	Status        Status
	PaymentStatus PaymentStatus

	DisputeReason     string
	DisputeResolution string
	DisputeHistory    []DisputeHistoryItem

	// Version guards optimistic updates; repositories reject writes made
	// against a stale version.
	Version   int
	CreatedAt time.Time
	UpdatedAt time.Time
}

// DisputeHistoryItem is one adjudication event. Items are appended and
// never mutated, independent of the booking's current status.
type DisputeHistoryItem struct {
	ResolverID      string    `json:"resolver_id"`
	ResolverName    string    `json:"resolver_name"`
	Resolution      string    `json:"resolution"`
	Notes           string    `json:"notes,omitempty"`
	ResultingStatus Status    `json:"resulting_status"`
	CreatedAt       time.Time `json:"created_at"`
}
