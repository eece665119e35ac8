package enums

import "fmt"

// LedgerEventType identifies the transition that moved a user's counters.
type LedgerEventType string

const (
	LedgerEventUploadCreated  LedgerEventType = "upload_created"
	LedgerEventUploadAccepted LedgerEventType = "upload_accepted"
	LedgerEventUploadDeleted  LedgerEventType = "upload_deleted"
)

var validLedgerEventTypes = []LedgerEventType{
	LedgerEventUploadCreated,
	LedgerEventUploadAccepted,
	LedgerEventUploadDeleted,
}

// IsValid reports whether the value matches a known ledger event.
func (t LedgerEventType) IsValid() bool {
	for _, candidate := range validLedgerEventTypes {
		if candidate == t {
			return true
		}
	}
	return false
}

// ParseLedgerEventType converts raw input into LedgerEventType.
func ParseLedgerEventType(value string) (LedgerEventType, error) {
	for _, candidate := range validLedgerEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid ledger event type %q", value)
}
