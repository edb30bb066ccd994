// Package session manages Boosty credentials: the phone and SMS handshake,
// token refresh and persistence.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/google/uuid"

	"boosty_rss/internal/boosty"
	"boosty_rss/internal/model"
	"boosty_rss/internal/storage"
)

var (
	// ErrHandshake is returned when the phone and SMS flow fails.
	ErrHandshake = errors.New("auth handshake")
	// ErrRefresh is returned when the refresh endpoint fails.
	ErrRefresh = errors.New("auth refresh")
)

// Operator prompts.
const (
	PhonePrompt = "Enter your phone number:"
	SMSPrompt   = "SMS Code:"
)

// AuthAPI is the subset of the Boosty API used for authentication.
type AuthAPI interface {
	AuthorizePhone(ctx context.Context, deviceID, phone string) (string, error)
	ExchangeSMSCode(ctx context.Context, deviceID, phone, smsCode, code string) (*boosty.Token, error)
	RefreshToken(ctx context.Context, deviceID, accessToken, refreshToken string) (*boosty.Token, error)
}

// State is the authentication state of a Manager.
type State int

// Manager states.
const (
	Uninitialized State = iota
	Unauthenticated
	AuthenticatedValid
	AuthenticatedExpired
)

func (s State) String() string {
	switch s {
	case Unauthenticated:
		return "unauthenticated"
	case AuthenticatedValid:
		return "authenticated"
	case AuthenticatedExpired:
		return "expired"
	default:
		return "uninitialized"
	}
}

// Manager owns the credential record and keeps it authenticated.
type Manager struct {
	store  storage.CredentialStore
	api    AuthAPI
	prompt Prompter
	log    *slog.Logger
	now    func() time.Time

	creds       model.Credentials
	initialized bool
}

// Option configures a Manager.
type Option func(*Manager)

// WithClock overrides the time source used for expiry checks.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// New creates a Manager. Initialize must be called before use.
func New(store storage.CredentialStore, api AuthAPI, prompt Prompter, log *slog.Logger, opts ...Option) *Manager {
	m := &Manager{
		store:  store,
		api:    api,
		prompt: prompt,
		log:    log,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Initialize loads stored credentials, assigns a device ID on first use and
// asks for the phone number when none is known.
func (m *Manager) Initialize(ctx context.Context) error {
	creds, err := m.store.Load(ctx)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		m.log.Info("no stored credentials, starting fresh")
		m.creds = model.Credentials{}
	case err != nil:
		return err
	default:
		m.creds = *creds
	}

	if m.creds.DeviceID == "" {
		m.creds.DeviceID = uuid.NewString()
		m.log.Debug("generated device id", "device_id", m.creds.DeviceID)
	}

	if m.creds.PhoneNumber == "" {
		phone, err := m.prompt.Prompt(ctx, PhonePrompt)
		if err != nil {
			return fmt.Errorf("%w: phone number: %w", ErrHandshake, err)
		}
		if phone == "" {
			return fmt.Errorf("%w: empty phone number", ErrHandshake)
		}
		m.creds.PhoneNumber = url.QueryEscape(phone)
	}

	m.initialized = true
	return nil
}

// State reports the current authentication state.
func (m *Manager) State() State {
	switch {
	case !m.initialized:
		return Uninitialized
	case !m.creds.HasToken():
		return Unauthenticated
	case m.creds.Expired(m.now().Unix()):
		return AuthenticatedExpired
	default:
		return AuthenticatedValid
	}
}

// Credentials returns a copy of the current credential record.
func (m *Manager) Credentials() model.Credentials {
	return m.creds
}

// EnsureAuthenticated runs the handshake when there is no token and a
// refresh when the token has expired. A valid token makes no network call.
func (m *Manager) EnsureAuthenticated(ctx context.Context) error {
	state := m.State()
	m.log.Debug("checking session", "state", state.String())

	switch state {
	case Uninitialized:
		return errors.New("session not initialized")
	case Unauthenticated:
		return m.handshake(ctx)
	case AuthenticatedExpired:
		return m.Refresh(ctx)
	default:
		return nil
	}
}

func (m *Manager) handshake(ctx context.Context) error {
	m.log.Info("starting phone authentication")

	code, err := m.RequestSMSCode(ctx)
	if err != nil {
		return err
	}

	smsCode, err := m.prompt.Prompt(ctx, SMSPrompt)
	if err != nil {
		return fmt.Errorf("%w: sms code: %w", ErrHandshake, err)
	}
	if smsCode == "" {
		return fmt.Errorf("%w: empty sms code", ErrHandshake)
	}

	return m.ExchangeSMSCode(ctx, code, smsCode)
}

// RequestSMSCode triggers an SMS to the configured phone and returns the
// authorization code that must accompany the SMS code.
func (m *Manager) RequestSMSCode(ctx context.Context) (string, error) {
	phone, err := m.phone()
	if err != nil {
		return "", err
	}
	code, err := m.api.AuthorizePhone(ctx, m.creds.DeviceID, phone)
	if err != nil {
		return "", fmt.Errorf("%w: request sms code: %w", ErrHandshake, err)
	}
	return code, nil
}

// ExchangeSMSCode completes the handshake and persists the new tokens.
func (m *Manager) ExchangeSMSCode(ctx context.Context, code, smsCode string) error {
	phone, err := m.phone()
	if err != nil {
		return err
	}
	tok, err := m.api.ExchangeSMSCode(ctx, m.creds.DeviceID, phone, smsCode, code)
	if err != nil {
		return fmt.Errorf("%w: exchange sms code: %w", ErrHandshake, err)
	}
	m.applyToken(tok)

	if err := m.Persist(ctx); err != nil {
		return err
	}
	m.log.Info("authenticated", "expires", time.Unix(m.creds.Expires, 0).UTC())
	return nil
}

// Refresh obtains a new token pair with the stored refresh token.
func (m *Manager) Refresh(ctx context.Context) error {
	m.log.Info("refreshing access token")

	tok, err := m.api.RefreshToken(ctx, m.creds.DeviceID, m.creds.AccessToken, m.creds.RefreshToken)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrRefresh, err)
	}
	m.applyToken(tok)

	if err := m.Persist(ctx); err != nil {
		return err
	}
	m.log.Info("token refreshed", "expires", time.Unix(m.creds.Expires, 0).UTC())
	return nil
}

// Persist writes the full credential record to the store.
func (m *Manager) Persist(ctx context.Context) error {
	if err := m.store.Save(ctx, &m.creds); err != nil {
		return fmt.Errorf("persist credentials: %w", err)
	}
	return nil
}

func (m *Manager) applyToken(tok *boosty.Token) {
	m.creds.AccessToken = tok.AccessToken
	m.creds.RefreshToken = tok.RefreshToken
	m.creds.Expires = m.now().Unix() + tok.ExpiresIn
}

// phone returns the stored phone number without its URL encoding.
func (m *Manager) phone() (string, error) {
	phone, err := url.QueryUnescape(m.creds.PhoneNumber)
	if err != nil {
		return "", fmt.Errorf("%w: stored phone number: %w", ErrHandshake, err)
	}
	return phone, nil
}
