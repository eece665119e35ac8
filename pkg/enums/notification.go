package enums

import "fmt"

// NotificationAudience selects who receives a notification intent.
type NotificationAudience string

const (
	// NotificationAudienceAdmins resolves to every admin at trigger time.
	NotificationAudienceAdmins NotificationAudience = "admins"
	// NotificationAudienceUser targets exactly one user.
	NotificationAudienceUser NotificationAudience = "user"
)

var validNotificationAudiences = []NotificationAudience{
	NotificationAudienceAdmins,
	NotificationAudienceUser,
}

func (a NotificationAudience) IsValid() bool {
	for _, candidate := range validNotificationAudiences {
		if candidate == a {
			return true
		}
	}
	return false
}

func ParseNotificationAudience(value string) (NotificationAudience, error) {
	for _, candidate := range validNotificationAudiences {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid notification audience %q", value)
}
