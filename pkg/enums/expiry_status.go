package enums

import "fmt"

// ExpiryStatus is the shelf-life classification the warehouse API reports
// per stock batch.
type ExpiryStatus string

const (
	ExpiryValid      ExpiryStatus = "valid"
	ExpiryNearExpiry ExpiryStatus = "near_expiry"
	ExpiryExpired    ExpiryStatus = "expired"
)

var validExpiryStatuses = []ExpiryStatus{
	ExpiryValid,
	ExpiryNearExpiry,
	ExpiryExpired,
}

// String implements fmt.Stringer.
func (e ExpiryStatus) String() string {
	return string(e)
}

// IsValid reports whether the value is a known ExpiryStatus.
func (e ExpiryStatus) IsValid() bool {
	for _, candidate := range validExpiryStatuses {
		if candidate == e {
			return true
		}
	}
	return false
}

// Sellable reports whether stock in this state may be offered for sale.
// Expired batches never count toward availability.
func (e ExpiryStatus) Sellable() bool {
	return e == ExpiryValid || e == ExpiryNearExpiry
}

// ParseExpiryStatus converts raw input into an ExpiryStatus.
func ParseExpiryStatus(value string) (ExpiryStatus, error) {
	for _, candidate := range validExpiryStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid expiry status %q", value)
}
