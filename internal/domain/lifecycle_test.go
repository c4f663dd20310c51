package domain_test

import (
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/straye-as/fms-api/internal/domain"
	"github.com/stretchr/testify/assert"
)

// =============================================================================
// ShipmentStatus Tests
// =============================================================================

func TestShipmentStatus_CanTransitionTo(t *testing.T) {
	tests := []struct {
		name     string
		from     domain.ShipmentStatus
		to       domain.ShipmentStatus
		expected bool
	}{
		{"draft to booked", domain.ShipmentStatusDraft, domain.ShipmentStatusBooked, true},
		{"draft to cancelled", domain.ShipmentStatusDraft, domain.ShipmentStatusCancelled, true},
		{"booked to departed", domain.ShipmentStatusBooked, domain.ShipmentStatusDeparted, true},
		{"booked to cancelled", domain.ShipmentStatusBooked, domain.ShipmentStatusCancelled, true},
		{"departed to arrived", domain.ShipmentStatusDeparted, domain.ShipmentStatusArrived, true},
		{"arrived to cleared", domain.ShipmentStatusArrived, domain.ShipmentStatusCleared, true},
		{"cleared to delivered", domain.ShipmentStatusCleared, domain.ShipmentStatusDelivered, true},
		{"draft cannot skip to departed", domain.ShipmentStatusDraft, domain.ShipmentStatusDeparted, false},
		{"departed cannot be cancelled", domain.ShipmentStatusDeparted, domain.ShipmentStatusCancelled, false},
		{"arrived cannot go back", domain.ShipmentStatusArrived, domain.ShipmentStatusDeparted, false},
		{"delivered is terminal", domain.ShipmentStatusDelivered, domain.ShipmentStatusCancelled, false},
		{"cancelled is terminal", domain.ShipmentStatusCancelled, domain.ShipmentStatusDraft, false},
		{"no self transition", domain.ShipmentStatusBooked, domain.ShipmentStatusBooked, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.from.CanTransitionTo(tt.to))
		})
	}
}

func TestShipmentStatus_IsTerminal(t *testing.T) {
	assert.True(t, domain.ShipmentStatusDelivered.IsTerminal())
	assert.True(t, domain.ShipmentStatusCancelled.IsTerminal())
	assert.False(t, domain.ShipmentStatusDraft.IsTerminal())
	assert.False(t, domain.ShipmentStatusArrived.IsTerminal())
}

func TestParseShipmentStatus(t *testing.T) {
	tests := []struct {
		input    string
		expected domain.ShipmentStatus
		ok       bool
	}{
		{"DRAFT", domain.ShipmentStatusDraft, true},
		{"confirmed", domain.ShipmentStatusBooked, true},
		{" SHIPPED ", domain.ShipmentStatusDeparted, true},
		{"canceled", domain.ShipmentStatusCancelled, true},
		{"DELIVERED", domain.ShipmentStatusDelivered, true},
		{"IN_TRANSIT", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			status, ok := domain.ParseShipmentStatus(tt.input)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.expected, status)
		})
	}
}

func TestShipmentStatus_RankFollowsLifecycle(t *testing.T) {
	order := []domain.ShipmentStatus{
		domain.ShipmentStatusDraft,
		domain.ShipmentStatusBooked,
		domain.ShipmentStatusDeparted,
		domain.ShipmentStatusArrived,
		domain.ShipmentStatusCleared,
		domain.ShipmentStatusDelivered,
	}
	for i := 1; i < len(order); i++ {
		assert.Less(t, order[i-1].Rank(), order[i].Rank(), "%s should rank below %s", order[i-1], order[i])
	}
	assert.Zero(t, domain.ShipmentStatusCancelled.Rank())
}

func TestShipmentStatus_EventCodesAreDistinct(t *testing.T) {
	seen := map[string]domain.ShipmentStatus{}
	for _, s := range []domain.ShipmentStatus{
		domain.ShipmentStatusDraft, domain.ShipmentStatusBooked, domain.ShipmentStatusDeparted,
		domain.ShipmentStatusArrived, domain.ShipmentStatusCleared, domain.ShipmentStatusDelivered,
		domain.ShipmentStatusCancelled,
	} {
		code := s.EventCode()
		assert.NotEmpty(t, code)
		_, dup := seen[code]
		assert.False(t, dup, "event code %s reused", code)
		seen[code] = s
	}
}

// =============================================================================
// Document lifecycle Tests
// =============================================================================

func TestDocumentStatus_BillOfLading(t *testing.T) {
	tests := []struct {
		name     string
		from     domain.DocumentStatus
		to       domain.DocumentStatus
		expected bool
	}{
		{"draft to issued", domain.DocumentStatusDraft, domain.DocumentStatusIssued, true},
		{"issued to surrendered", domain.DocumentStatusIssued, domain.DocumentStatusSurrendered, true},
		{"issued to released", domain.DocumentStatusIssued, domain.DocumentStatusReleased, true},
		{"surrendered cannot be reissued", domain.DocumentStatusSurrendered, domain.DocumentStatusIssued, false},
		{"released cannot be surrendered", domain.DocumentStatusReleased, domain.DocumentStatusSurrendered, false},
		{"draft cannot be released", domain.DocumentStatusDraft, domain.DocumentStatusReleased, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.from.CanTransitionTo(tt.to))
		})
	}
}

func TestDocumentStatus_WaybillHasNoSurrender(t *testing.T) {
	assert.True(t, domain.DocumentStatusDraft.WaybillCanTransitionTo(domain.DocumentStatusIssued))
	assert.True(t, domain.DocumentStatusIssued.WaybillCanTransitionTo(domain.DocumentStatusReleased))
	assert.False(t, domain.DocumentStatusIssued.WaybillCanTransitionTo(domain.DocumentStatusSurrendered))
}

// =============================================================================
// Other lifecycles
// =============================================================================

func TestCustomsStatus_CanTransitionTo(t *testing.T) {
	assert.True(t, domain.CustomsStatusDraft.CanTransitionTo(domain.CustomsStatusSubmitted))
	assert.True(t, domain.CustomsStatusSubmitted.CanTransitionTo(domain.CustomsStatusInspection))
	assert.True(t, domain.CustomsStatusInspection.CanTransitionTo(domain.CustomsStatusCleared))
	assert.True(t, domain.CustomsStatusCleared.CanTransitionTo(domain.CustomsStatusReleased))
	assert.True(t, domain.CustomsStatusRejected.CanTransitionTo(domain.CustomsStatusDraft))
	assert.False(t, domain.CustomsStatusDraft.CanTransitionTo(domain.CustomsStatusCleared))
	assert.False(t, domain.CustomsStatusReleased.CanTransitionTo(domain.CustomsStatusDraft))

	assert.True(t, domain.CustomsStatusCleared.IsCleared())
	assert.True(t, domain.CustomsStatusReleased.IsCleared())
	assert.False(t, domain.CustomsStatusInspection.IsCleared())
}

func TestInvoiceStatus(t *testing.T) {
	assert.True(t, domain.InvoiceStatusIssued.CanTransitionTo(domain.InvoiceStatusPaid))
	assert.True(t, domain.InvoiceStatusPartiallyPaid.CanTransitionTo(domain.InvoiceStatusPartiallyPaid))
	assert.False(t, domain.InvoiceStatusPaid.CanTransitionTo(domain.InvoiceStatusCancelled))
	assert.False(t, domain.InvoiceStatusPartiallyPaid.CanTransitionTo(domain.InvoiceStatusCancelled))

	assert.True(t, domain.InvoiceStatusIssued.IsOpen())
	assert.True(t, domain.InvoiceStatusPartiallyPaid.IsOpen())
	assert.False(t, domain.InvoiceStatusPaid.IsOpen())
	assert.False(t, domain.InvoiceStatusCancelled.IsOpen())
}

func TestBookingOrderTransportScheduleTables(t *testing.T) {
	assert.True(t, domain.BookingStatusRequested.CanTransitionTo(domain.BookingStatusConfirmed))
	assert.True(t, domain.BookingStatusConfirmed.CanTransitionTo(domain.BookingStatusCancelled))
	assert.False(t, domain.BookingStatusCancelled.CanTransitionTo(domain.BookingStatusConfirmed))

	assert.True(t, domain.OrderStatusReceived.CanTransitionTo(domain.OrderStatusConfirmed))
	assert.False(t, domain.OrderStatusConfirmed.CanTransitionTo(domain.OrderStatusCancelled))

	assert.True(t, domain.TransportStatusDispatched.CanTransitionTo(domain.TransportStatusDelivered))
	assert.False(t, domain.TransportStatusDelivered.CanTransitionTo(domain.TransportStatusCancelled))

	assert.True(t, domain.ScheduleStatusScheduled.CanTransitionTo(domain.ScheduleStatusDeparted))
	assert.False(t, domain.ScheduleStatusArrived.CanTransitionTo(domain.ScheduleStatusScheduled))
}

func TestNewTransitionError(t *testing.T) {
	id := uuid.New()
	err := domain.NewTransitionError("MasterBL", id, domain.DocumentStatusSurrendered, domain.DocumentStatusIssued, "")

	assert.Equal(t, "SURRENDERED", err.From)
	assert.Equal(t, "ISSUED", err.To)
	assert.True(t, errors.Is(err, domain.ErrStateTransition))
	assert.False(t, errors.Is(err, domain.ErrValidation))
	assert.Contains(t, err.Error(), "MasterBL")
}
