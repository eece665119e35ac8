package enums

import "fmt"

// UploadStatus tracks whether a contribution has been taken by an NGO or admin.
type UploadStatus string

const (
	UploadStatusPending  UploadStatus = "pending"
	UploadStatusAccepted UploadStatus = "accepted"
)

var validUploadStatuses = []UploadStatus{
	UploadStatusPending,
	UploadStatusAccepted,
}

func (s UploadStatus) String() string {
	return string(s)
}

func (s UploadStatus) IsValid() bool {
	for _, candidate := range validUploadStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

func ParseUploadStatus(value string) (UploadStatus, error) {
	for _, candidate := range validUploadStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid upload status %q", value)
}
