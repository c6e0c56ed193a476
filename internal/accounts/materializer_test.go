package accounts_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hostel-admissions/internal/accounts"
	"hostel-admissions/internal/common/auth"
	apperrors "hostel-admissions/internal/common/errors"
	"hostel-admissions/internal/common/logger"
	"hostel-admissions/internal/lifecycle"
	"hostel-admissions/internal/models"
	"hostel-admissions/internal/store/memory"
)

// keycloakStub accepts user creation and password resets for realm "hostel".
type keycloakStub struct {
	mu        sync.Mutex
	created   []auth.User
	passwords map[string]auth.Credential
	failPUT   bool
}

func (k *keycloakStub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	k.mu.Lock()
	defer k.mu.Unlock()
	switch {
	case r.URL.Path == "/realms/hostel/protocol/openid-connect/token":
		_ = json.NewEncoder(w).Encode(auth.TokenResponse{AccessToken: "tok", ExpiresIn: 300})
	case r.URL.Path == "/admin/realms/hostel/users" && r.Method == http.MethodPost:
		var u auth.User
		_ = json.NewDecoder(r.Body).Decode(&u)
		k.created = append(k.created, u)
		w.Header().Set("Location", "/admin/realms/hostel/users/kc-1")
		w.WriteHeader(http.StatusCreated)
	case r.Method == http.MethodPut:
		if k.failPUT {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		var c auth.Credential
		_ = json.NewDecoder(r.Body).Decode(&c)
		k.passwords[r.URL.Path] = c
		w.WriteHeader(http.StatusNoContent)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

type capturedCredentials struct {
	username, password string
	err                error
}

func (c *capturedCredentials) SendCredentials(_ context.Context, _ *models.Application, username, password string) error {
	c.username, c.password = username, password
	return c.err
}

func newKeycloak(t *testing.T) (*keycloakStub, *auth.KeycloakClient) {
	t.Helper()
	stub := &keycloakStub{passwords: map[string]auth.Credential{}}
	srv := httptest.NewServer(stub)
	t.Cleanup(srv.Close)
	return stub, auth.NewKeycloakClient(srv.URL, "hostel", "admissions", "secret", 0)
}

func approvedApp() *models.Application {
	return &models.Application{
		ID:             "APP-1",
		TrackingNumber: "HST-2026-ABC123",
		ApplicantName:  "Ravi Kumar Sharma",
		ApplicantEmail: "ravi@example.com",
		Vertical:       models.VerticalBoysHostel,
		Status:         models.StatusApproved,
		FatherMobile:   "+91 98765 43210",
	}
}

func TestMaterialize_CreatesUserPasswordAndResident(t *testing.T) {
	stub, kc := newKeycloak(t)
	store := memory.New()
	sender := &capturedCredentials{}
	m := accounts.NewMaterializer(kc, store, logger.NewTestLogger(t),
		accounts.WithCredentialSender(sender),
		accounts.WithPasswordGenerator(func() string { return "temp-pass" }))

	residentID, err := m.Materialize(context.Background(), approvedApp())
	require.NoError(t, err)
	require.NotEmpty(t, residentID)

	stub.mu.Lock()
	defer stub.mu.Unlock()
	require.Len(t, stub.created, 1)
	user := stub.created[0]
	assert.Equal(t, "hst-2026-abc123", user.Username)
	assert.Equal(t, "Ravi", user.FirstName)
	assert.Equal(t, "Kumar Sharma", user.LastName)
	assert.Equal(t, []string{"APP-1"}, user.Attributes["applicationId"])

	cred := stub.passwords["/admin/realms/hostel/users/kc-1/reset-password"]
	assert.Equal(t, "temp-pass", cred.Value)
	assert.True(t, cred.Temporary)

	assert.Equal(t, "hst-2026-abc123", sender.username)
	assert.Equal(t, "temp-pass", sender.password)

	residents, err := store.StudentsByGuardianMobile(context.Background(), "9876543210")
	require.NoError(t, err)
	require.Len(t, residents, 1)
	assert.Equal(t, residentID, residents[0].ID)
	assert.Equal(t, "kc-1", residents[0].UserID)
	assert.Equal(t, "APP-1", residents[0].ApplicationID)
}

func TestMaterialize_RepeatReturnsSameResident(t *testing.T) {
	_, kc := newKeycloak(t)
	store := memory.New()
	m := accounts.NewMaterializer(kc, store, logger.NewTestLogger(t))

	first, err := m.Materialize(context.Background(), approvedApp())
	require.NoError(t, err)
	second, err := m.Materialize(context.Background(), approvedApp())
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestMaterialize_PasswordFailureAborts(t *testing.T) {
	stub, kc := newKeycloak(t)
	stub.mu.Lock()
	stub.failPUT = true
	stub.mu.Unlock()
	store := memory.New()
	m := accounts.NewMaterializer(kc, store, logger.NewTestLogger(t))

	_, err := m.Materialize(context.Background(), approvedApp())
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrCodeUpstreamUnavailable))

	residents, err := store.StudentsByGuardianMobile(context.Background(), "9876543210")
	require.NoError(t, err)
	assert.Empty(t, residents)
}

func TestMaterialize_CredentialDeliveryFailureIsNotFatal(t *testing.T) {
	_, kc := newKeycloak(t)
	sender := &capturedCredentials{err: errors.New("ses down")}
	m := accounts.NewMaterializer(kc, memory.New(), logger.NewTestLogger(t), accounts.WithCredentialSender(sender))

	residentID, err := m.Materialize(context.Background(), approvedApp())
	require.NoError(t, err)
	assert.NotEmpty(t, residentID)
}

func TestMaterialize_RequiresTrackingNumber(t *testing.T) {
	_, kc := newKeycloak(t)
	m := accounts.NewMaterializer(kc, memory.New(), logger.NewTestLogger(t))

	app := approvedApp()
	app.TrackingNumber = ""
	_, err := m.Materialize(context.Background(), app)
	assert.True(t, apperrors.Is(err, apperrors.ErrCodeMissingField))
}

func TestMaterialize_FinalApprovalLinksResident(t *testing.T) {
	_, kc := newKeycloak(t)
	store := memory.New()
	m := accounts.NewMaterializer(kc, store, logger.NewTestLogger(t))
	machine := lifecycle.NewMachine(store, logger.NewTestLogger(t), lifecycle.WithMaterializer(m))

	app := approvedApp()
	app.Status = models.StatusInterviewCompleted
	store.PutApplication(app)

	trustee := models.Actor{ID: "usr-t", Name: "Trustee", Role: models.RoleTrustee}
	outcome, err := machine.FinalDecide(context.Background(), app.ID, trustee, true, "welcome")
	require.NoError(t, err)
	assert.Empty(t, outcome.Warnings)
	assert.NotEmpty(t, outcome.Application.ResidentID)

	stored, err := store.GetApplication(context.Background(), app.ID)
	require.NoError(t, err)
	assert.Equal(t, outcome.Application.ResidentID, stored.ResidentID)
}
