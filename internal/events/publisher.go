// Package events publishes committed admission transitions to NATS.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go"

	apperrors "hostel-admissions/internal/common/errors"
	"hostel-admissions/internal/common/logger"
	"hostel-admissions/internal/lifecycle"
	"hostel-admissions/internal/models"
)

const DefaultSubjectPrefix = "admission.events"

// Conn is the publishing side of *nats.Conn.
type Conn interface {
	Publish(subject string, data []byte) error
}

// Message is the payload on admission.events.<action>. It carries no
// guardian contacts.
type Message struct {
	ID             string                   `json:"id"`
	Operation      string                   `json:"operation"`
	Action         models.AuditAction       `json:"action"`
	ApplicationID  string                   `json:"applicationId"`
	TrackingNumber string                   `json:"trackingNumber"`
	Vertical       models.Vertical          `json:"vertical"`
	Status         models.ApplicationStatus `json:"status"`
	ResidentID     string                   `json:"residentId,omitempty"`
	Actor          models.Actor             `json:"actor"`
	Remarks        string                   `json:"remarks,omitempty"`
	OccurredAt     time.Time                `json:"occurredAt"`
}

type Publisher struct {
	conn   Conn
	prefix string
}

var _ lifecycle.Hook = (*Publisher)(nil)

func NewPublisher(conn Conn, prefix string) *Publisher {
	if prefix == "" {
		prefix = DefaultSubjectPrefix
	}
	return &Publisher{conn: conn, prefix: strings.TrimSuffix(prefix, ".")}
}

func (p *Publisher) Name() string { return "events" }

// Subject returns the subject an action is published on.
func (p *Publisher) Subject(action models.AuditAction) string {
	return p.prefix + "." + strings.ToLower(string(action))
}

func (p *Publisher) AfterCommit(_ context.Context, evt lifecycle.Event) error {
	if evt.Application == nil {
		return nil
	}
	msg := Message{
		ID:             evt.Entry.ID,
		Operation:      evt.Operation,
		Action:         evt.Action,
		ApplicationID:  evt.Application.ID,
		TrackingNumber: evt.Application.TrackingNumber,
		Vertical:       evt.Application.Vertical,
		Status:         evt.Application.Status,
		ResidentID:     evt.Application.ResidentID,
		Actor:          evt.Entry.PerformedBy,
		Remarks:        evt.Entry.Remarks,
		OccurredAt:     evt.Entry.PerformedAt,
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	if err := p.conn.Publish(p.Subject(evt.Action), data); err != nil {
		return apperrors.NewUpstreamUnavailableError("nats", err)
	}
	return nil
}

// Connect dials NATS with reconnect handling logged through log.
func Connect(url, name string, log logger.Logger) (*nats.Conn, error) {
	return nats.Connect(url,
		nats.Name(name),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			log.Warn("nats disconnected", map[string]interface{}{"error": err})
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info("nats reconnected", map[string]interface{}{"url": nc.ConnectedUrl()})
		}),
	)
}
