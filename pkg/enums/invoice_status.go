package enums

import "fmt"

// InvoiceStatus mirrors the payment provider's invoice lifecycle states.
type InvoiceStatus string

const (
	InvoiceStatusNew        InvoiceStatus = "New"
	InvoiceStatusProcessing InvoiceStatus = "Processing"
	InvoiceStatusSettled    InvoiceStatus = "Settled"
	InvoiceStatusExpired    InvoiceStatus = "Expired"
	InvoiceStatusInvalid    InvoiceStatus = "Invalid"
)

var validInvoiceStatuses = []InvoiceStatus{
	InvoiceStatusNew,
	InvoiceStatusProcessing,
	InvoiceStatusSettled,
	InvoiceStatusExpired,
	InvoiceStatusInvalid,
}

// String implements fmt.Stringer.
func (s InvoiceStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known InvoiceStatus.
func (s InvoiceStatus) IsValid() bool {
	for _, candidate := range validInvoiceStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// AllowsReissue reports whether a new invoice may be generated while an
// invoice with this status exists for the order.
func (s InvoiceStatus) AllowsReissue() bool {
	return s == InvoiceStatusExpired || s == InvoiceStatusInvalid
}

// ParseInvoiceStatus converts raw input into an InvoiceStatus.
func ParseInvoiceStatus(value string) (InvoiceStatus, error) {
	for _, candidate := range validInvoiceStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid invoice status %q", value)
}
