// Package accounts turns an approved application into a resident with a
// login. The identity provider user is keyed by the tracking number so a
// retried approval resolves to the same account.
package accounts

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"hostel-admissions/internal/common/auth"
	apperrors "hostel-admissions/internal/common/errors"
	"hostel-admissions/internal/common/logger"
	"hostel-admissions/internal/lifecycle"
	"hostel-admissions/internal/models"
)

// IdentityProvider is the subset of the Keycloak admin client used here.
type IdentityProvider interface {
	CreateUser(ctx context.Context, user *auth.User) (string, error)
	SetTemporaryPassword(ctx context.Context, userID, password string) error
}

// ResidentWriter persists the resident record. CreateResident must return
// the existing record when one already exists for the application.
type ResidentWriter interface {
	CreateResident(ctx context.Context, st models.Student) (models.Student, error)
}

// CredentialSender delivers the initial login to the applicant.
type CredentialSender interface {
	SendCredentials(ctx context.Context, app *models.Application, username, password string) error
}

type Materializer struct {
	idp       IdentityProvider
	residents ResidentWriter
	sender    CredentialSender
	logger    logger.Logger
	password  func() string
}

var _ lifecycle.AccountMaterializer = (*Materializer)(nil)

type Option func(*Materializer)

func WithCredentialSender(s CredentialSender) Option {
	return func(m *Materializer) { m.sender = s }
}

func WithPasswordGenerator(gen func() string) Option {
	return func(m *Materializer) { m.password = gen }
}

func NewMaterializer(idp IdentityProvider, residents ResidentWriter, log logger.Logger, opts ...Option) *Materializer {
	m := &Materializer{
		idp:       idp,
		residents: residents,
		logger:    log.WithFields(map[string]interface{}{"component": "accounts"}),
		password:  temporaryPassword,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Materialize creates the login and the resident record and returns the
// resident id. Credential delivery failures are logged only: the account
// exists and staff can reset the password.
func (m *Materializer) Materialize(ctx context.Context, app *models.Application) (string, error) {
	if app.TrackingNumber == "" {
		return "", apperrors.NewInvalidFieldError("trackingNumber", "tracking number is required to create an account")
	}

	username := Username(app)
	first, last := splitName(app.ApplicantName)
	userID, err := m.idp.CreateUser(ctx, &auth.User{
		Username:  username,
		Email:     app.ApplicantEmail,
		FirstName: first,
		LastName:  last,
		Enabled:   true,
		Attributes: map[string][]string{
			"applicationId": {app.ID},
			"role":          {string(models.RoleStudent)},
			"vertical":      {string(app.Vertical)},
		},
	})
	if err != nil {
		return "", err
	}

	password := m.password()
	if err := m.idp.SetTemporaryPassword(ctx, userID, password); err != nil {
		return "", err
	}

	resident, err := m.residents.CreateResident(ctx, models.Student{
		ID:            uuid.NewString(),
		UserID:        userID,
		ApplicationID: app.ID,
		FullName:      app.ApplicantName,
		Vertical:      app.Vertical,
		Status:        "ACTIVE",
		FatherMobile:  app.FatherMobile,
		MotherMobile:  app.MotherMobile,
	})
	if err != nil {
		return "", err
	}

	m.logger.Info("student account created", map[string]interface{}{
		"applicationId": app.ID,
		"residentId":    resident.ID,
		"userId":        userID,
	})

	if m.sender != nil {
		if err := m.sender.SendCredentials(ctx, app, username, password); err != nil {
			m.logger.Warn("credential delivery failed", map[string]interface{}{
				"applicationId": app.ID,
				"error":         err,
			})
		}
	}
	return resident.ID, nil
}

// Username is the login for an approved applicant.
func Username(app *models.Application) string {
	return strings.ToLower(app.TrackingNumber)
}

func splitName(full string) (string, string) {
	parts := strings.Fields(full)
	switch len(parts) {
	case 0:
		return "", ""
	case 1:
		return parts[0], ""
	}
	return parts[0], strings.Join(parts[1:], " ")
}

func temporaryPassword() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:16]
}
