package routes

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/glowbook/glowbook/internal/booking"
	"github.com/glowbook/glowbook/internal/escrow"
	"github.com/glowbook/glowbook/internal/identity"
	"github.com/glowbook/glowbook/internal/ledger"
	"github.com/glowbook/glowbook/internal/middleware"
	"github.com/glowbook/glowbook/internal/notification"
)

// BookingHandler exposes the booking lifecycle over HTTP. It lives in the
// routes package because it composes the booking service with the escrow
// coordinator: lifecycle moves that settle money are dispatched to the
// coordinator so state and funds change together.
type BookingHandler struct {
	bookings *booking.Service
	escrow   escrow.Coordinator
	users    *identity.Service
	notifier notification.Notifier
}

// NewBookingHandler builds a booking handler.
func NewBookingHandler(bookings *booking.Service, coordinator escrow.Coordinator, users *identity.Service, notifier notification.Notifier) *BookingHandler {
	return &BookingHandler{bookings: bookings, escrow: coordinator, users: users, notifier: notifier}
}

type createBookingRequest struct {
	OfferingID string `json:"offering_id"`
	Date       string `json:"date"`
	TimeSlot   string `json:"time_slot"`
}

// Create books a slot for the authenticated client.
func (h *BookingHandler) Create(c *fiber.Ctx) error {
	var req createBookingRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	day, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, "date must be YYYY-MM-DD")
	}

	uid, _ := c.Locals(middleware.LocalUserID).(string)
	client, err := h.users.Get(c.UserContext(), uid)
	if err != nil {
		return fiber.NewError(http.StatusUnauthorized, "unknown caller")
	}

	b, err := h.bookings.Create(c.UserContext(), booking.CreateInput{
		ClientID:    client.ID,
		ClientName:  client.Name,
		ClientEmail: client.Email,
		ClientPhone: client.Phone,
		OfferingID:  req.OfferingID,
		Date:        day,
		TimeSlot:    req.TimeSlot,
	})
	if err != nil {
		switch {
		case errors.Is(err, booking.ErrSlotAlreadyBooked):
			return fiber.NewError(http.StatusConflict, err.Error())
		case errors.Is(err, booking.ErrSlotUnavailable):
			return fiber.NewError(http.StatusUnprocessableEntity, err.Error())
		default:
			return fiber.NewError(http.StatusBadRequest, err.Error())
		}
	}
	return c.Status(http.StatusCreated).JSON(presentBooking(b))
}

// Get returns one booking to a party of it, or to an admin.
func (h *BookingHandler) Get(c *fiber.Ctx) error {
	b, err := h.authorized(c)
	if err != nil {
		return err
	}
	return c.JSON(presentBooking(b))
}

// List returns the caller's bookings, as client or stylist per their role.
func (h *BookingHandler) List(c *fiber.Ctx) error {
	uid, _ := c.Locals(middleware.LocalUserID).(string)
	role, _ := c.Locals(middleware.LocalUserRole).(string)
	limit := c.QueryInt("limit", 0)

	var (
		items []booking.Booking
		err   error
	)
	if role == string(identity.RoleStylist) {
		items, err = h.bookings.ListByStylist(c.UserContext(), uid, limit)
	} else {
		items, err = h.bookings.ListByClient(c.UserContext(), uid, limit)
	}
	if err != nil {
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}

	out := make([]fiber.Map, 0, len(items))
	for _, b := range items {
		out = append(out, presentBooking(b))
	}
	return c.JSON(fiber.Map{"bookings": out})
}

// Pay moves the service price from the client's wallet into escrow.
func (h *BookingHandler) Pay(c *fiber.Ctx) error {
	b, err := h.authorized(c)
	if err != nil {
		return err
	}
	uid, _ := c.Locals(middleware.LocalUserID).(string)
	if b.ClientID != uid {
		return fiber.NewError(http.StatusForbidden, "only the client can pay for a booking")
	}

	out, err := h.escrow.Hold(c.UserContext(), b.ID)
	if err != nil {
		return escrowError(err)
	}
	status := http.StatusOK
	if !out.AlreadyApplied {
		status = http.StatusCreated
	}
	return c.Status(status).JSON(fiber.Map{
		"booking":         presentBooking(out.Booking),
		"already_applied": out.AlreadyApplied,
	})
}

type bookingStatusRequest struct {
	Status string `json:"status"`
}

// UpdateStatus advances the booking lifecycle. Moves that settle escrow
// (completing or cancelling a paid booking) go through the coordinator;
// everything else is a plain transition.
func (h *BookingHandler) UpdateStatus(c *fiber.Ctx) error {
	var req bookingStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	target := booking.Status(req.Status)
	if !target.Valid() || target == booking.StatusDisputed {
		return fiber.NewError(http.StatusBadRequest, fmt.Sprintf("unknown status %q", req.Status))
	}

	b, err := h.authorized(c)
	if err != nil {
		return err
	}
	uid, _ := c.Locals(middleware.LocalUserID).(string)
	role, _ := c.Locals(middleware.LocalUserRole).(string)
	if err := allowTransition(b, target, uid, role); err != nil {
		return err
	}

	updated, err := h.applyTransition(c, b, target)
	if err != nil {
		return err
	}
	h.notifyTransition(c, updated)
	return c.JSON(presentBooking(updated))
}

func (h *BookingHandler) applyTransition(c *fiber.Ctx, b booking.Booking, target booking.Status) (booking.Booking, error) {
	if b.PaymentStatus == booking.PaymentHeld && b.Status != booking.StatusDisputed {
		switch target {
		case booking.StatusCompleted:
			out, err := h.escrow.Release(c.UserContext(), b.ID)
			if err != nil {
				return booking.Booking{}, escrowError(err)
			}
			return out.Booking, nil
		case booking.StatusCancelled:
			out, err := h.escrow.Refund(c.UserContext(), b.ID)
			if err != nil {
				return booking.Booking{}, escrowError(err)
			}
			return out.Booking, nil
		}
	}

	updated, err := h.bookings.TransitionStatus(c.UserContext(), b.ID, target)
	if err != nil {
		return booking.Booking{}, transitionError(err)
	}
	return updated, nil
}

// allowTransition enforces who may request which move: stylists drive the
// service forward, either party may cancel, admins may do both.
func allowTransition(b booking.Booking, target booking.Status, uid, role string) error {
	if role == string(identity.RoleAdmin) {
		return nil
	}
	switch target {
	case booking.StatusConfirmed, booking.StatusInProgress, booking.StatusCompleted:
		if uid != b.StylistID {
			return fiber.NewError(http.StatusForbidden, "only the stylist can advance a booking")
		}
	case booking.StatusCancelled:
		// either party
	default:
		return fiber.NewError(http.StatusBadRequest, fmt.Sprintf("status %q cannot be requested", target))
	}
	return nil
}

type disputeRequest struct {
	Reason string `json:"reason"`
}

// Dispute freezes the booking for administrative review.
func (h *BookingHandler) Dispute(c *fiber.Ctx) error {
	var req disputeRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	if req.Reason == "" {
		return fiber.NewError(http.StatusBadRequest, "dispute reason is required")
	}

	b, err := h.authorized(c)
	if err != nil {
		return err
	}
	updated, err := h.bookings.RaiseDispute(c.UserContext(), b.ID, req.Reason)
	if err != nil {
		switch {
		case errors.Is(err, booking.ErrBookingTerminal), errors.Is(err, booking.ErrAlreadyDisputed):
			return fiber.NewError(http.StatusConflict, err.Error())
		default:
			return fiber.NewError(http.StatusInternalServerError, err.Error())
		}
	}
	return c.JSON(presentBooking(updated))
}

// authorized loads the booking and checks the caller is a party to it or
// an admin.
func (h *BookingHandler) authorized(c *fiber.Ctx) (booking.Booking, error) {
	b, err := h.bookings.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		if errors.Is(err, booking.ErrNotFound) {
			return booking.Booking{}, fiber.NewError(http.StatusNotFound, "booking not found")
		}
		return booking.Booking{}, fiber.NewError(http.StatusInternalServerError, err.Error())
	}
	uid, _ := c.Locals(middleware.LocalUserID).(string)
	role, _ := c.Locals(middleware.LocalUserRole).(string)
	if uid != b.ClientID && uid != b.StylistID && role != string(identity.RoleAdmin) {
		return booking.Booking{}, fiber.NewError(http.StatusForbidden, "not a party to this booking")
	}
	return b, nil
}

func (h *BookingHandler) notifyTransition(c *fiber.Ctx, b booking.Booking) {
	if h.notifier == nil {
		return
	}
	ctx := c.UserContext()
	switch {
	case b.Status == booking.StatusConfirmed:
		_ = h.notifier.Send(ctx, notification.Message{
			Kind:        notification.KindBookingConfirmed,
			Destination: b.ClientID,
			Body:        fmt.Sprintf("Your %s booking on %s at %s is confirmed.", b.ServiceName, b.ScheduledDate.Format("2006-01-02"), b.TimeSlot),
		})
	case b.PaymentStatus == booking.PaymentReleased:
		_ = h.notifier.Send(ctx, notification.Message{
			Kind:        notification.KindEscrowReleased,
			Destination: b.StylistID,
			Body:        fmt.Sprintf("Payment of %d for %s has been released to you.", b.ServicePrice, b.ServiceName),
		})
	case b.PaymentStatus == booking.PaymentRefunded:
		_ = h.notifier.Send(ctx, notification.Message{
			Kind:        notification.KindRefundIssued,
			Destination: b.ClientID,
			Body:        fmt.Sprintf("Your payment of %d for %s has been refunded.", b.ServicePrice, b.ServiceName),
		})
	}
}

// escrowError maps coordinator failures onto HTTP statuses.
func escrowError(err error) error {
	switch {
	case errors.Is(err, ledger.ErrInsufficientFunds):
		return fiber.NewError(http.StatusPaymentRequired, err.Error())
	case errors.Is(err, ledger.ErrWalletInactive):
		return fiber.NewError(http.StatusForbidden, err.Error())
	case errors.Is(err, escrow.ErrNoEscrowHeld),
		errors.Is(err, escrow.ErrAlreadySettled),
		errors.Is(err, escrow.ErrConflict),
		errors.Is(err, booking.ErrBookingTerminal),
		errors.Is(err, booking.ErrIllegalTransition):
		return fiber.NewError(http.StatusConflict, err.Error())
	case errors.Is(err, booking.ErrNotFound):
		return fiber.NewError(http.StatusNotFound, "booking not found")
	default:
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
}

// transitionError maps lifecycle failures onto HTTP statuses.
func transitionError(err error) error {
	switch {
	case errors.Is(err, booking.ErrIllegalTransition), errors.Is(err, booking.ErrStaleVersion):
		return fiber.NewError(http.StatusConflict, err.Error())
	case errors.Is(err, booking.ErrNotFound):
		return fiber.NewError(http.StatusNotFound, "booking not found")
	default:
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
}

// presentBooking shapes a booking for JSON responses.
func presentBooking(b booking.Booking) fiber.Map {
	m := fiber.Map{
		"id":               b.ID,
		"client_id":        b.ClientID,
		"client_name":      b.ClientName,
		"stylist_id":       b.StylistID,
		"stylist_name":     b.StylistName,
		"service_id":       b.ServiceID,
		"service_name":     b.ServiceName,
		"service_price":    b.ServicePrice,
		"service_duration": b.ServiceDuration,
		"scheduled_date":   b.ScheduledDate.Format("2006-01-02"),
		"time_slot":        b.TimeSlot,
		"status":           string(b.Status),
		"payment_status":   string(b.PaymentStatus),
		"created_at":       b.CreatedAt,
		"updated_at":       b.UpdatedAt,
	}
	if b.DisputeReason != "" {
		m["dispute_reason"] = b.DisputeReason
	}
	if b.DisputeResolution != "" {
		m["dispute_resolution"] = b.DisputeResolution
	}
	if len(b.DisputeHistory) > 0 {
		m["dispute_history"] = b.DisputeHistory
	}
	return m
}
