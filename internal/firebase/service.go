// File: internal/firebase/service.go
package firebase

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"cloud.google.com/go/firestore"
	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/auth"
	"go.uber.org/zap"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"

	"github.com/AryanBhardwaj123/placement-tracker/internal/common"
	"github.com/AryanBhardwaj123/placement-tracker/internal/config"
	"github.com/AryanBhardwaj123/placement-tracker/internal/session"
)

const identityToolkitBaseURL = "https://identitytoolkit.googleapis.com/v1"

// Service implements session.Provider against Firebase Authentication.
// Account management goes through the Admin SDK; credential sign-in
// goes through the Identity Toolkit REST API because the Admin SDK has
// no password verification endpoint.
type Service struct {
	authClient *auth.Client
	fsClient   *firestore.Client
	apiKey     string
	httpClient *http.Client
	logger     *zap.Logger

	mu        sync.Mutex
	current   *session.Identity
	listeners []func(*session.Identity)
}

// NewService initializes the Firebase Admin SDK and returns a Service.
// The config must pass config.ValidateFirebase first.
func NewService(cfg *config.Config, logger *zap.Logger) (*Service, error) {
	cleanPath := filepath.Clean(cfg.FirebaseServiceAccountKeyPath)
	opt := option.WithCredentialsFile(cleanPath)

	var app *firebase.App
	var err error
	if cfg.FirebaseProjectID != "" {
		conf := &firebase.Config{ProjectID: cfg.FirebaseProjectID}
		app, err = firebase.NewApp(context.Background(), conf, opt)
	} else {
		app, err = firebase.NewApp(context.Background(), nil, opt)
	}
	if err != nil {
		logger.Error("Failed to initialize Firebase Admin SDK app", zap.Error(err), zap.String("keyPath", cleanPath))
		return nil, fmt.Errorf("error initializing Firebase app: %w", err)
	}

	authClient, err := app.Auth(context.Background())
	if err != nil {
		logger.Error("Failed to get Firebase Auth client", zap.Error(err))
		return nil, fmt.Errorf("error getting Firebase Auth client: %w", err)
	}

	fsClient, err := app.Firestore(context.Background())
	if err != nil {
		logger.Error("Failed to get Firestore client", zap.Error(err))
		return nil, fmt.Errorf("error getting Firestore client: %w", err)
	}

	logger.Info("Firebase Admin SDK initialized successfully.")
	return &Service{
		authClient: authClient,
		fsClient:   fsClient,
		apiKey:     cfg.FirebaseWebAPIKey,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		logger:     logger,
	}, nil
}

// Firestore exposes the project's Firestore client for the document
// store adapter.
func (s *Service) Firestore() *firestore.Client {
	return s.fsClient
}

// Close releases the underlying Firestore client.
func (s *Service) Close() error {
	return s.fsClient.Close()
}

// CreateAccount registers a new email/password account through the
// Admin SDK and then signs it in, so the session starts immediately.
func (s *Service) CreateAccount(ctx context.Context, email, password string) (*session.Identity, error) {
	params := (&auth.UserToCreate{}).Email(email).Password(password)
	if _, err := s.authClient.CreateUser(ctx, params); err != nil {
		s.logger.Warn("Firebase account creation failed", zap.Error(err))
		if auth.IsEmailAlreadyExists(err) {
			return nil, common.ErrCredentialTaken
		}
		if strings.Contains(err.Error(), "password") {
			return nil, common.ErrWeakCredential.WithDetails(err.Error())
		}
		return nil, common.ErrServiceUnavailable.WithDetails(err.Error())
	}
	return s.Authenticate(ctx, email, password)
}

type signInRequest struct {
	Email             string `json:"email"`
	Password          string `json:"password"`
	ReturnSecureToken bool   `json:"returnSecureToken"`
}

type signInResponse struct {
	LocalID     string `json:"localId"`
	Email       string `json:"email"`
	DisplayName string `json:"displayName"`
	IDToken     string `json:"idToken"`
}

type signInErrorResponse struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Authenticate verifies an email/password credential through the
// Identity Toolkit signInWithPassword endpoint and starts a session.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*session.Identity, error) {
	body, err := json.Marshal(signInRequest{Email: email, Password: password, ReturnSecureToken: true})
	if err != nil {
		return nil, fmt.Errorf("failed to encode sign-in request: %w", err)
	}
	resp, err := s.postIdentityToolkit(ctx, "accounts:signInWithPassword", body)
	if err != nil {
		return nil, err
	}
	id := &session.Identity{UID: resp.LocalID, Email: resp.Email, DisplayName: resp.DisplayName}
	s.setSession(id)
	return id, nil
}

// AuthenticateFederated exchanges a Google OAuth access token, obtained
// from application default credentials, for a Firebase session through
// the signInWithIdp endpoint. Only the "google" provider is supported.
func (s *Service) AuthenticateFederated(ctx context.Context, providerName string) (*session.Identity, error) {
	if providerName != "google" {
		return nil, common.ErrBadRequest.WithDetails(fmt.Sprintf("unsupported identity provider: %s", providerName))
	}
	ts, err := google.DefaultTokenSource(ctx, "openid", "email", "profile")
	if err != nil {
		s.logger.Error("Failed to build Google token source", zap.Error(err))
		return nil, common.ErrServiceUnavailable.WithDetails(err.Error())
	}
	token, err := ts.Token()
	if err != nil {
		s.logger.Error("Failed to obtain Google access token", zap.Error(err))
		return nil, common.ErrInvalidCredential.WithDetails(err.Error())
	}

	postBody := url.Values{}
	postBody.Set("access_token", token.AccessToken)
	postBody.Set("providerId", "google.com")
	body, err := json.Marshal(map[string]any{
		"postBody":          postBody.Encode(),
		"requestUri":        "http://localhost",
		"returnSecureToken": true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode federated sign-in request: %w", err)
	}
	resp, err := s.postIdentityToolkit(ctx, "accounts:signInWithIdp", body)
	if err != nil {
		return nil, err
	}
	id := &session.Identity{UID: resp.LocalID, Email: resp.Email, DisplayName: resp.DisplayName}
	s.setSession(id)
	return id, nil
}

// EndSession revokes the current user's refresh tokens and clears the
// session. The session is cleared even when revocation fails.
func (s *Service) EndSession(ctx context.Context) error {
	s.mu.Lock()
	current := s.current
	s.mu.Unlock()
	if current == nil {
		return nil
	}
	err := s.authClient.RevokeRefreshTokens(ctx, current.UID)
	if err != nil {
		s.logger.Error("Failed to revoke refresh tokens", zap.Error(err), zap.String("uid", current.UID))
	}
	s.setSession(nil)
	return err
}

// OnSessionChange registers a session transition callback.
func (s *Service) OnSessionChange(fn func(*session.Identity)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

func (s *Service) setSession(id *session.Identity) {
	s.mu.Lock()
	s.current = id
	listeners := make([]func(*session.Identity), len(s.listeners))
	copy(listeners, s.listeners)
	s.mu.Unlock()
	for _, fn := range listeners {
		fn(id)
	}
}

func (s *Service) postIdentityToolkit(ctx context.Context, endpoint string, body []byte) (*signInResponse, error) {
	reqURL := fmt.Sprintf("%s/%s?key=%s", identityToolkitBaseURL, endpoint, url.QueryEscape(s.apiKey))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build identity toolkit request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	httpResp, err := s.httpClient.Do(req)
	if err != nil {
		s.logger.Error("Identity toolkit request failed", zap.String("endpoint", endpoint), zap.Error(err))
		return nil, common.ErrServiceUnavailable.WithDetails(err.Error())
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read identity toolkit response: %w", err)
	}
	if httpResp.StatusCode != http.StatusOK {
		var errResp signInErrorResponse
		if jsonErr := json.Unmarshal(respBody, &errResp); jsonErr != nil || errResp.Error.Message == "" {
			return nil, common.ErrServiceUnavailable.WithDetails(fmt.Sprintf("identity toolkit returned status %d", httpResp.StatusCode))
		}
		s.logger.Warn("Identity toolkit rejected sign-in", zap.String("endpoint", endpoint), zap.String("code", errResp.Error.Message))
		return nil, mapSignInError(errResp.Error.Message)
	}

	var resp signInResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode identity toolkit response: %w", err)
	}
	return &resp, nil
}

// mapSignInError translates identity toolkit error codes into the
// common API error taxonomy. Codes may carry a trailing explanation
// ("WEAK_PASSWORD : Password should be ...").
func mapSignInError(code string) error {
	head := code
	if idx := strings.IndexAny(code, " :"); idx > 0 {
		head = code[:idx]
	}
	switch head {
	case "EMAIL_EXISTS":
		return common.ErrCredentialTaken
	case "WEAK_PASSWORD":
		return common.ErrWeakCredential.WithDetails(code)
	case "EMAIL_NOT_FOUND", "INVALID_PASSWORD", "INVALID_LOGIN_CREDENTIALS", "USER_DISABLED":
		return common.ErrInvalidCredential
	default:
		return common.ErrServiceUnavailable.WithDetails(code)
	}
}
