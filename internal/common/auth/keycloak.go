// internal/common/auth/keycloak.go
package auth

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"hostel-admissions/internal/common/errors"
)

// KeycloakClient manages realm users through the admin REST API using a
// client-credentials service account.
type KeycloakClient struct {
	baseURL      string
	realm        string
	clientID     string
	clientSecret string
	httpClient   *http.Client

	mu          sync.Mutex
	accessToken string
	tokenExpiry time.Time
}

// User represents a user in Keycloak.
type User struct {
	ID            string              `json:"id,omitempty"`
	Username      string              `json:"username"`
	Email         string              `json:"email,omitempty"`
	FirstName     string              `json:"firstName,omitempty"`
	LastName      string              `json:"lastName,omitempty"`
	Enabled       bool                `json:"enabled"`
	EmailVerified bool                `json:"emailVerified"`
	Attributes    map[string][]string `json:"attributes,omitempty"`
}

// Credential is a password credential for reset-password.
type Credential struct {
	Type      string `json:"type"`
	Value     string `json:"value"`
	Temporary bool   `json:"temporary"`
}

// TokenResponse holds the response from Keycloak's token endpoint.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
	TokenType   string `json:"token_type"`
}

// APIError is a non-2xx answer from Keycloak.
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("keycloak returned %d: %s", e.Status, e.Body)
}

func NewKeycloakClient(baseURL, realm, clientID, clientSecret string, timeout time.Duration) *KeycloakClient {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &KeycloakClient{
		baseURL:      strings.TrimSuffix(baseURL, "/"),
		realm:        realm,
		clientID:     clientID,
		clientSecret: clientSecret,
		httpClient:   &http.Client{Timeout: timeout},
	}
}

// token returns a cached access token, refreshing it 30s before expiry.
func (k *KeycloakClient) token(ctx context.Context) (string, error) {
	k.mu.Lock()
	defer k.mu.Unlock()

	if k.accessToken != "" && time.Now().Before(k.tokenExpiry) {
		return k.accessToken, nil
	}

	tokenURL := fmt.Sprintf("%s/realms/%s/protocol/openid-connect/token", k.baseURL, k.realm)

	data := url.Values{}
	data.Set("grant_type", "client_credentials")
	data.Set("client_id", k.clientID)
	data.Set("client_secret", k.clientSecret)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, tokenURL, strings.NewReader(data.Encode()))
	if err != nil {
		return "", fmt.Errorf("failed to create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := k.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to execute token request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", &APIError{Status: resp.StatusCode, Body: string(body)}
	}

	var tokenResp TokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tokenResp); err != nil {
		return "", fmt.Errorf("failed to decode token response: %w", err)
	}

	k.accessToken = tokenResp.AccessToken
	k.tokenExpiry = time.Now().Add(time.Duration(tokenResp.ExpiresIn)*time.Second - 30*time.Second)
	return k.accessToken, nil
}

// do sends an authenticated admin request. out may be nil.
func (k *KeycloakClient) do(ctx context.Context, method, path string, in, out interface{}) (*http.Response, error) {
	token, err := k.token(ctx)
	if err != nil {
		return nil, errors.NewUpstreamUnavailableError("keycloak", err)
	}

	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return nil, fmt.Errorf("encode keycloak request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, fmt.Sprintf("%s/admin/realms/%s%s", k.baseURL, k.realm, path), body)
	if err != nil {
		return nil, fmt.Errorf("create keycloak request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := k.httpClient.Do(req)
	if err != nil {
		return nil, errors.NewUpstreamUnavailableError("keycloak", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.NewUpstreamUnavailableError("keycloak", err)
	}
	if resp.StatusCode >= 300 {
		return resp, &APIError{Status: resp.StatusCode, Body: string(raw)}
	}
	if out != nil && len(raw) > 0 {
		if err := json.Unmarshal(raw, out); err != nil {
			return resp, fmt.Errorf("decode keycloak response: %w", err)
		}
	}
	return resp, nil
}

// CreateUser creates user and returns its id. A username that already
// exists resolves to the existing account, so a retried approval does not
// create a duplicate.
func (k *KeycloakClient) CreateUser(ctx context.Context, user *User) (string, error) {
	resp, err := k.do(ctx, http.MethodPost, "/users", user, nil)
	if err != nil {
		var apiErr *APIError
		if stderrors.As(err, &apiErr) && apiErr.Status == http.StatusConflict {
			existing, findErr := k.FindUserByUsername(ctx, user.Username)
			if findErr != nil {
				return "", findErr
			}
			return existing.ID, nil
		}
		return "", k.wrap(err)
	}

	location := resp.Header.Get("Location")
	if location == "" {
		existing, err := k.FindUserByUsername(ctx, user.Username)
		if err != nil {
			return "", err
		}
		return existing.ID, nil
	}
	parts := strings.Split(location, "/")
	return parts[len(parts)-1], nil
}

func (k *KeycloakClient) FindUserByUsername(ctx context.Context, username string) (*User, error) {
	var users []User
	path := "/users?exact=true&username=" + url.QueryEscape(username)
	if _, err := k.do(ctx, http.MethodGet, path, nil, &users); err != nil {
		return nil, k.wrap(err)
	}
	if len(users) == 0 {
		return nil, errors.NewNotFoundError("keycloak user", username)
	}
	return &users[0], nil
}

// SetTemporaryPassword forces a password change on first login.
func (k *KeycloakClient) SetTemporaryPassword(ctx context.Context, userID, password string) error {
	cred := Credential{Type: "password", Value: password, Temporary: true}
	if _, err := k.do(ctx, http.MethodPut, "/users/"+url.PathEscape(userID)+"/reset-password", cred, nil); err != nil {
		return k.wrap(err)
	}
	return nil
}

func (k *KeycloakClient) DeleteUser(ctx context.Context, userID string) error {
	if _, err := k.do(ctx, http.MethodDelete, "/users/"+url.PathEscape(userID), nil, nil); err != nil {
		return k.wrap(err)
	}
	return nil
}

// wrap turns API failures into coded errors; transient statuses are
// retryable, everything else is not.
func (k *KeycloakClient) wrap(err error) error {
	var stdErr *errors.StandardError
	if stderrors.As(err, &stdErr) {
		return err
	}
	var apiErr *APIError
	if !stderrors.As(err, &apiErr) {
		return err
	}
	stdErr = errors.NewUpstreamUnavailableError("keycloak", err)
	stdErr.Retryable = k.isTransientHTTPError(apiErr.Status)
	return stdErr
}

func (k *KeycloakClient) isTransientHTTPError(statusCode int) bool {
	return statusCode == http.StatusTooManyRequests ||
		statusCode == http.StatusRequestTimeout ||
		statusCode >= 500
}
