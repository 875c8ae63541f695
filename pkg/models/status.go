package models

import (
	"encoding/json"
	"strings"
)

// Status is an order status. Values outside the canonical set are kept
// verbatim so they can be reported instead of silently remapped.
type Status string

const (
	StatusUnassigned       Status = "Unassigned"
	StatusAccepted         Status = "Accepted"
	StatusPackaging        Status = "Packaging"
	StatusOutForDelivery   Status = "Out For Delivery"
	StatusDelivered        Status = "Delivered"
	StatusCanceled         Status = "Canceled"
	StatusProcessingRefund Status = "Processing refund"
	StatusRefundSuccess    Status = "Refund Success"
	StatusRefundFailed     Status = "Refund Failed"
	StatusPaymentFailed    Status = "Payment Failed"
	StatusPending          Status = "Pending"
	StatusProcessing       Status = "Processing"
)

var canonical = map[string]Status{}

// aliases maps alternative spellings onto the canonical ones. Only pure
// spelling variants belong here.
var aliases = map[string]Status{
	"cancelled": StatusCanceled,
}

func init() {
	for _, s := range AllStatuses() {
		canonical[strings.ToLower(string(s))] = s
	}
}

// AllStatuses lists the canonical enumeration in workflow order.
func AllStatuses() []Status {
	return []Status{
		StatusPending,
		StatusProcessing,
		StatusUnassigned,
		StatusAccepted,
		StatusPackaging,
		StatusOutForDelivery,
		StatusDelivered,
		StatusCanceled,
		StatusPaymentFailed,
		StatusProcessingRefund,
		StatusRefundSuccess,
		StatusRefundFailed,
	}
}

// ParseStatus maps s onto the canonical enumeration. ok is false when s is
// not a known spelling; the trimmed input is returned unchanged in that case.
func ParseStatus(s string) (Status, bool) {
	s = strings.TrimSpace(s)
	key := strings.ToLower(s)
	if st, ok := canonical[key]; ok {
		return st, true
	}
	if st, ok := aliases[key]; ok {
		return st, true
	}
	return Status(s), false
}

// Known reports whether s belongs to the canonical enumeration.
func (s Status) Known() bool {
	st, ok := canonical[strings.ToLower(string(s))]
	return ok && st == s
}

// IsRefund reports whether the order is in the refund workflow.
func (s Status) IsRefund() bool {
	switch s {
	case StatusProcessingRefund, StatusRefundSuccess, StatusRefundFailed:
		return true
	}
	return false
}

func (s *Status) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*s, _ = ParseStatus(raw)
	return nil
}
