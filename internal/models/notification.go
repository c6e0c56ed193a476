// internal/models/notification.go
package models

import "time"

// Notification is handed to the dispatcher after a committed action.
type Notification struct {
	ID             string            `json:"id"`
	ApplicationID  string            `json:"applicationId"`
	TrackingNumber string            `json:"trackingNumber"`
	Event          AuditAction       `json:"event"`
	RecipientName  string            `json:"recipientName"`
	Email          string            `json:"-"`
	Phone          string            `json:"-"`
	Data           map[string]string `json:"data,omitempty"`
	CreatedAt      time.Time         `json:"createdAt"`
}

// Delivery statuses.
const (
	DeliverySent     = "sent"
	DeliveryFailed   = "failed"
	DeliveryDisabled = "disabled"
)

type NotificationTemplate struct {
	Subject string `json:"subject"`
	Body    string `json:"body"`
}
