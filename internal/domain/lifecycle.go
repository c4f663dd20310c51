package domain

import (
	"strings"

	"github.com/google/uuid"
)

// transitions is an allow-list of status moves. Anything absent is rejected.
type transitions[S ~string] map[S][]S

func (t transitions[S]) allows(from, to S) bool {
	for _, next := range t[from] {
		if next == to {
			return true
		}
	}
	return false
}

func (t transitions[S]) terminal(s S) bool {
	return len(t[s]) == 0
}

// ShipmentStatus is the consolidated SEA/AIR shipment lifecycle.
type ShipmentStatus string

const (
	ShipmentStatusDraft     ShipmentStatus = "DRAFT"
	ShipmentStatusBooked    ShipmentStatus = "BOOKED"
	ShipmentStatusDeparted  ShipmentStatus = "DEPARTED"
	ShipmentStatusArrived   ShipmentStatus = "ARRIVED"
	ShipmentStatusCleared   ShipmentStatus = "CLEARED"
	ShipmentStatusDelivered ShipmentStatus = "DELIVERED"
	ShipmentStatusCancelled ShipmentStatus = "CANCELLED"
)

var shipmentTransitions = transitions[ShipmentStatus]{
	ShipmentStatusDraft:    {ShipmentStatusBooked, ShipmentStatusCancelled},
	ShipmentStatusBooked:   {ShipmentStatusDeparted, ShipmentStatusCancelled},
	ShipmentStatusDeparted: {ShipmentStatusArrived},
	ShipmentStatusArrived:  {ShipmentStatusCleared},
	ShipmentStatusCleared:  {ShipmentStatusDelivered},
}

// ParseShipmentStatus accepts the canonical codes plus the CONFIRMED and SHIPPED aliases.
func ParseShipmentStatus(s string) (ShipmentStatus, bool) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DRAFT":
		return ShipmentStatusDraft, true
	case "BOOKED", "CONFIRMED":
		return ShipmentStatusBooked, true
	case "DEPARTED", "SHIPPED":
		return ShipmentStatusDeparted, true
	case "ARRIVED":
		return ShipmentStatusArrived, true
	case "CLEARED":
		return ShipmentStatusCleared, true
	case "DELIVERED":
		return ShipmentStatusDelivered, true
	case "CANCELLED", "CANCELED":
		return ShipmentStatusCancelled, true
	}
	return "", false
}

// CanTransitionTo reports whether the move is in the shipment transition table
func (s ShipmentStatus) CanTransitionTo(to ShipmentStatus) bool {
	return shipmentTransitions.allows(s, to)
}

// IsTerminal reports whether no further transition is possible
func (s ShipmentStatus) IsTerminal() bool {
	return shipmentTransitions.terminal(s)
}

// IsPreDeparture reports whether cargo has not yet left origin
func (s ShipmentStatus) IsPreDeparture() bool {
	return s == ShipmentStatusDraft || s == ShipmentStatusBooked
}

// Rank orders the forward lifecycle; CANCELLED ranks below everything.
func (s ShipmentStatus) Rank() int {
	switch s {
	case ShipmentStatusDraft:
		return 1
	case ShipmentStatusBooked:
		return 2
	case ShipmentStatusDeparted:
		return 3
	case ShipmentStatusArrived:
		return 4
	case ShipmentStatusCleared:
		return 5
	case ShipmentStatusDelivered:
		return 6
	}
	return 0
}

// EventCode is the tracking event code written for a status change.
func (s ShipmentStatus) EventCode() string {
	switch s {
	case ShipmentStatusDraft:
		return "CRT"
	case ShipmentStatusBooked:
		return "BKD"
	case ShipmentStatusDeparted:
		return "DEP"
	case ShipmentStatusArrived:
		return "ARR"
	case ShipmentStatusCleared:
		return "CLR"
	case ShipmentStatusDelivered:
		return "DLV"
	case ShipmentStatusCancelled:
		return "CAN"
	}
	return ""
}

// BookingStatus is the carrier confirmation lifecycle for ocean and air bookings.
type BookingStatus string

const (
	BookingStatusRequested BookingStatus = "REQUESTED"
	BookingStatusConfirmed BookingStatus = "CONFIRMED"
	BookingStatusCancelled BookingStatus = "CANCELLED"
)

var bookingTransitions = transitions[BookingStatus]{
	BookingStatusRequested: {BookingStatusConfirmed, BookingStatusCancelled},
	BookingStatusConfirmed: {BookingStatusCancelled},
}

// CanTransitionTo reports whether the move is in the booking transition table
func (s BookingStatus) CanTransitionTo(to BookingStatus) bool {
	return bookingTransitions.allows(s, to)
}

// DocumentStatus is shared by MBL/HBL and MAWB/HAWB.
type DocumentStatus string

const (
	DocumentStatusDraft       DocumentStatus = "DRAFT"
	DocumentStatusIssued      DocumentStatus = "ISSUED"
	DocumentStatusSurrendered DocumentStatus = "SURRENDERED"
	DocumentStatusReleased    DocumentStatus = "RELEASED"
)

// Bills of lading are negotiable and may be surrendered.
var negotiableDocumentTransitions = transitions[DocumentStatus]{
	DocumentStatusDraft:  {DocumentStatusIssued},
	DocumentStatusIssued: {DocumentStatusSurrendered, DocumentStatusReleased},
}

// Air waybills are non-negotiable: no surrender.
var waybillTransitions = transitions[DocumentStatus]{
	DocumentStatusDraft:  {DocumentStatusIssued},
	DocumentStatusIssued: {DocumentStatusReleased},
}

// CanTransitionTo checks the bill-of-lading table
func (s DocumentStatus) CanTransitionTo(to DocumentStatus) bool {
	return negotiableDocumentTransitions.allows(s, to)
}

// WaybillCanTransitionTo checks the air waybill table
func (s DocumentStatus) WaybillCanTransitionTo(to DocumentStatus) bool {
	return waybillTransitions.allows(s, to)
}

// CustomsStatus is the declaration clearance lifecycle.
type CustomsStatus string

const (
	CustomsStatusDraft      CustomsStatus = "DRAFT"
	CustomsStatusSubmitted  CustomsStatus = "SUBMITTED"
	CustomsStatusInspection CustomsStatus = "INSPECTION"
	CustomsStatusCleared    CustomsStatus = "CLEARED"
	CustomsStatusReleased   CustomsStatus = "RELEASED"
	CustomsStatusRejected   CustomsStatus = "REJECTED"
)

var customsTransitions = transitions[CustomsStatus]{
	CustomsStatusDraft:      {CustomsStatusSubmitted},
	CustomsStatusSubmitted:  {CustomsStatusInspection, CustomsStatusCleared, CustomsStatusRejected},
	CustomsStatusInspection: {CustomsStatusCleared, CustomsStatusRejected},
	CustomsStatusCleared:    {CustomsStatusReleased},
	CustomsStatusRejected:   {CustomsStatusDraft},
}

// CanTransitionTo reports whether the move is in the customs declaration transition table
func (s CustomsStatus) CanTransitionTo(to CustomsStatus) bool {
	return customsTransitions.allows(s, to)
}

// IsCleared reports CLEARED or RELEASED
func (s CustomsStatus) IsCleared() bool {
	return s == CustomsStatusCleared || s == CustomsStatusReleased
}

// OrderStatus is the customer order lifecycle.
type OrderStatus string

const (
	OrderStatusReceived  OrderStatus = "RECEIVED"
	OrderStatusConfirmed OrderStatus = "CONFIRMED"
	OrderStatusCancelled OrderStatus = "CANCELLED"
)

var orderTransitions = transitions[OrderStatus]{
	OrderStatusReceived: {OrderStatusConfirmed, OrderStatusCancelled},
}

// CanTransitionTo reports whether the move is in the customer order transition table
func (s OrderStatus) CanTransitionTo(to OrderStatus) bool {
	return orderTransitions.allows(s, to)
}

// InvoiceStatus is the invoice settlement lifecycle.
type InvoiceStatus string

const (
	InvoiceStatusDraft         InvoiceStatus = "DRAFT"
	InvoiceStatusIssued        InvoiceStatus = "ISSUED"
	InvoiceStatusPartiallyPaid InvoiceStatus = "PARTIALLY_PAID"
	InvoiceStatusPaid          InvoiceStatus = "PAID"
	InvoiceStatusCancelled     InvoiceStatus = "CANCELLED"
)

var invoiceTransitions = transitions[InvoiceStatus]{
	InvoiceStatusDraft:         {InvoiceStatusIssued, InvoiceStatusCancelled},
	InvoiceStatusIssued:        {InvoiceStatusPartiallyPaid, InvoiceStatusPaid, InvoiceStatusCancelled},
	InvoiceStatusPartiallyPaid: {InvoiceStatusPartiallyPaid, InvoiceStatusPaid},
}

// CanTransitionTo reports whether the move is in the invoice transition table
func (s InvoiceStatus) CanTransitionTo(to InvoiceStatus) bool {
	return invoiceTransitions.allows(s, to)
}

// IsOpen reports whether the invoice can receive payments
func (s InvoiceStatus) IsOpen() bool {
	return s == InvoiceStatusIssued || s == InvoiceStatusPartiallyPaid
}

// TransportStatus is the inland transport order lifecycle.
type TransportStatus string

const (
	TransportStatusRequested  TransportStatus = "REQUESTED"
	TransportStatusDispatched TransportStatus = "DISPATCHED"
	TransportStatusDelivered  TransportStatus = "DELIVERED"
	TransportStatusCancelled  TransportStatus = "CANCELLED"
)

var transportTransitions = transitions[TransportStatus]{
	TransportStatusRequested:  {TransportStatusDispatched, TransportStatusCancelled},
	TransportStatusDispatched: {TransportStatusDelivered, TransportStatusCancelled},
}

// CanTransitionTo reports whether the move is in the transport order transition table
func (s TransportStatus) CanTransitionTo(to TransportStatus) bool {
	return transportTransitions.allows(s, to)
}

// ScheduleStatus applies to ocean and air schedules.
type ScheduleStatus string

const (
	ScheduleStatusScheduled ScheduleStatus = "SCHEDULED"
	ScheduleStatusDeparted  ScheduleStatus = "DEPARTED"
	ScheduleStatusArrived   ScheduleStatus = "ARRIVED"
	ScheduleStatusCancelled ScheduleStatus = "CANCELLED"
)

var scheduleTransitions = transitions[ScheduleStatus]{
	ScheduleStatusScheduled: {ScheduleStatusDeparted, ScheduleStatusCancelled},
	ScheduleStatusDeparted:  {ScheduleStatusArrived},
}

// CanTransitionTo reports whether the move is in the schedule transition table
func (s ScheduleStatus) CanTransitionTo(to ScheduleStatus) bool {
	return scheduleTransitions.allows(s, to)
}

// NewTransitionError builds a StateTransitionError for any status type
func NewTransitionError[S ~string](entity string, id uuid.UUID, from, to S, reason string) *StateTransitionError {
	return &StateTransitionError{Entity: entity, ID: id, From: string(from), To: string(to), Reason: reason}
}
