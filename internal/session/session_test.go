package session

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"

	"boosty_rss/internal/boosty"
	"boosty_rss/internal/model"
	"boosty_rss/internal/storage"
)

var fixedNow = time.Unix(1700000000, 0)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type memStore struct {
	creds   *model.Credentials
	loadErr error
	saves   int
}

func (s *memStore) Load(_ context.Context) (*model.Credentials, error) {
	if s.loadErr != nil {
		return nil, s.loadErr
	}
	if s.creds == nil {
		return nil, storage.ErrNotFound
	}
	c := *s.creds
	return &c, nil
}

func (s *memStore) Save(_ context.Context, c *model.Credentials) error {
	cp := *c
	s.creds = &cp
	s.saves++
	return nil
}

func (s *memStore) Close() error { return nil }

type fakeAPI struct {
	authorizeCalls int
	exchangeCalls  int
	refreshCalls   int

	authorizeErr error
	exchangeErr  error
	refreshErr   error

	gotPhone   string
	gotSMSCode string
	gotCode    string
	gotBearer  string
	gotRefresh string
}

func (f *fakeAPI) AuthorizePhone(_ context.Context, _, phone string) (string, error) {
	f.authorizeCalls++
	f.gotPhone = phone
	if f.authorizeErr != nil {
		return "", f.authorizeErr
	}
	return "auth-code", nil
}

func (f *fakeAPI) ExchangeSMSCode(_ context.Context, _, _, smsCode, code string) (*boosty.Token, error) {
	f.exchangeCalls++
	f.gotSMSCode = smsCode
	f.gotCode = code
	if f.exchangeErr != nil {
		return nil, f.exchangeErr
	}
	return &boosty.Token{AccessToken: "hs-access", RefreshToken: "hs-refresh", ExpiresIn: 3600}, nil
}

func (f *fakeAPI) RefreshToken(_ context.Context, _, accessToken, refreshToken string) (*boosty.Token, error) {
	f.refreshCalls++
	f.gotBearer = accessToken
	f.gotRefresh = refreshToken
	if f.refreshErr != nil {
		return nil, f.refreshErr
	}
	return &boosty.Token{AccessToken: "new-access", RefreshToken: "new-refresh", ExpiresIn: 600}, nil
}

type cannedPrompter struct {
	answers map[string]string
	asked   []string
}

func (p *cannedPrompter) Prompt(_ context.Context, message string) (string, error) {
	p.asked = append(p.asked, message)
	answer, ok := p.answers[message]
	if !ok {
		return "", errors.New("unexpected prompt: " + message)
	}
	return answer, nil
}

func newManager(store *memStore, api *fakeAPI, prompt *cannedPrompter) *Manager {
	return New(store, api, prompt, testLogger(), WithClock(func() time.Time { return fixedNow }))
}

func TestInitializeFresh(t *testing.T) {
	store := &memStore{}
	prompt := &cannedPrompter{answers: map[string]string{PhonePrompt: "+7 999 000-11-22"}}
	m := newManager(store, &fakeAPI{}, prompt)

	if diff := cmp.Diff(Uninitialized, m.State()); diff != "" {
		t.Errorf("state mismatch (-want +got):\n%s", diff)
	}
	if err := m.Initialize(context.Background()); err != nil {
		t.Fatalf("initialize: %v", err)
	}

	creds := m.Credentials()
	if _, err := uuid.Parse(creds.DeviceID); err != nil {
		t.Errorf("device id %q is not a uuid: %v", creds.DeviceID, err)
	}
	if diff := cmp.Diff("%2B7+999+000-11-22", creds.PhoneNumber); diff != "" {
		t.Errorf("phone mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(Unauthenticated, m.State()); diff != "" {
		t.Errorf("state mismatch (-want +got):\n%s", diff)
	}
	if store.saves != 0 {
		t.Errorf("expected no save before token acquisition, got %d", store.saves)
	}
}

func TestInitializeKeepsStoredIdentity(t *testing.T) {
	store := &memStore{creds: &model.Credentials{DeviceID: "stored-device", PhoneNumber: "%2B7999"}}
	prompt := &cannedPrompter{}
	m := newManager(store, &fakeAPI{}, prompt)

	if err := m.Initialize(context.Background()); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	if diff := cmp.Diff("stored-device", m.Credentials().DeviceID); diff != "" {
		t.Errorf("device id mismatch (-want +got):\n%s", diff)
	}
	if len(prompt.asked) != 0 {
		t.Errorf("expected no prompts, got %v", prompt.asked)
	}
}

func TestInitializeLoadError(t *testing.T) {
	store := &memStore{loadErr: storage.ErrConfigRead}
	m := newManager(store, &fakeAPI{}, &cannedPrompter{})

	err := m.Initialize(context.Background())
	if !errors.Is(err, storage.ErrConfigRead) {
		t.Fatalf("expected ErrConfigRead, got %v", err)
	}
}

func TestEnsureAuthenticated(t *testing.T) {
	tests := []struct {
		name          string
		stored        *model.Credentials
		wantHandshake bool
		wantRefresh   bool
		wantAccess    string
		wantExpires   int64
	}{
		{
			name:          "no token runs handshake",
			stored:        &model.Credentials{DeviceID: "d", PhoneNumber: "%2B7999"},
			wantHandshake: true,
			wantAccess:    "hs-access",
			wantExpires:   fixedNow.Unix() + 3600,
		},
		{
			name: "expired token refreshes",
			stored: &model.Credentials{
				DeviceID: "d", PhoneNumber: "%2B7999",
				AccessToken: "old-access", RefreshToken: "old-refresh", Expires: fixedNow.Unix() - 1,
			},
			wantRefresh: true,
			wantAccess:  "new-access",
			wantExpires: fixedNow.Unix() + 600,
		},
		{
			name: "expiry equal to now refreshes",
			stored: &model.Credentials{
				DeviceID: "d", PhoneNumber: "%2B7999",
				AccessToken: "old-access", RefreshToken: "old-refresh", Expires: fixedNow.Unix(),
			},
			wantRefresh: true,
			wantAccess:  "new-access",
			wantExpires: fixedNow.Unix() + 600,
		},
		{
			name: "missing expiry refreshes",
			stored: &model.Credentials{
				DeviceID: "d", PhoneNumber: "%2B7999",
				AccessToken: "old-access", RefreshToken: "old-refresh",
			},
			wantRefresh: true,
			wantAccess:  "new-access",
			wantExpires: fixedNow.Unix() + 600,
		},
		{
			name: "valid token makes no calls",
			stored: &model.Credentials{
				DeviceID: "d", PhoneNumber: "%2B7999",
				AccessToken: "old-access", RefreshToken: "old-refresh", Expires: fixedNow.Unix() + 10,
			},
			wantAccess:  "old-access",
			wantExpires: fixedNow.Unix() + 10,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &memStore{creds: tt.stored}
			api := &fakeAPI{}
			prompt := &cannedPrompter{answers: map[string]string{SMSPrompt: "1234"}}
			m := newManager(store, api, prompt)

			ctx := context.Background()
			if err := m.Initialize(ctx); err != nil {
				t.Fatalf("initialize: %v", err)
			}
			if err := m.EnsureAuthenticated(ctx); err != nil {
				t.Fatalf("ensure authenticated: %v", err)
			}

			handshakes := api.authorizeCalls
			if tt.wantHandshake {
				if handshakes != 1 || api.exchangeCalls != 1 {
					t.Errorf("expected one handshake, got authorize=%d exchange=%d", handshakes, api.exchangeCalls)
				}
			} else if handshakes != 0 || api.exchangeCalls != 0 {
				t.Errorf("unexpected handshake: authorize=%d exchange=%d", handshakes, api.exchangeCalls)
			}

			wantRefreshCalls := 0
			if tt.wantRefresh {
				wantRefreshCalls = 1
			}
			if diff := cmp.Diff(wantRefreshCalls, api.refreshCalls); diff != "" {
				t.Errorf("refresh calls mismatch (-want +got):\n%s", diff)
			}

			creds := m.Credentials()
			if diff := cmp.Diff(tt.wantAccess, creds.AccessToken); diff != "" {
				t.Errorf("access token mismatch (-want +got):\n%s", diff)
			}
			if diff := cmp.Diff(tt.wantExpires, creds.Expires); diff != "" {
				t.Errorf("expires mismatch (-want +got):\n%s", diff)
			}
			if diff := cmp.Diff(AuthenticatedValid, m.State()); diff != "" {
				t.Errorf("state mismatch (-want +got):\n%s", diff)
			}

			wantSaves := 0
			if tt.wantHandshake || tt.wantRefresh {
				wantSaves = 1
				if diff := cmp.Diff(creds, *store.creds); diff != "" {
					t.Errorf("persisted record mismatch (-want +got):\n%s", diff)
				}
			}
			if diff := cmp.Diff(wantSaves, store.saves); diff != "" {
				t.Errorf("save count mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestHandshakeArguments(t *testing.T) {
	store := &memStore{creds: &model.Credentials{DeviceID: "d", PhoneNumber: "%2B7999"}}
	api := &fakeAPI{}
	prompt := &cannedPrompter{answers: map[string]string{SMSPrompt: "4321"}}
	m := newManager(store, api, prompt)

	ctx := context.Background()
	if err := m.Initialize(ctx); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	if err := m.EnsureAuthenticated(ctx); err != nil {
		t.Fatalf("ensure authenticated: %v", err)
	}

	got := []string{api.gotPhone, api.gotSMSCode, api.gotCode}
	want := []string{"+7999", "4321", "auth-code"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("handshake arguments mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{SMSPrompt}, prompt.asked); diff != "" {
		t.Errorf("prompts mismatch (-want +got):\n%s", diff)
	}
}

func TestRefreshArguments(t *testing.T) {
	store := &memStore{creds: &model.Credentials{
		DeviceID: "d", PhoneNumber: "1", AccessToken: "old-access", RefreshToken: "old-refresh", Expires: 1,
	}}
	api := &fakeAPI{}
	m := newManager(store, api, &cannedPrompter{})

	ctx := context.Background()
	if err := m.Initialize(ctx); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	if err := m.EnsureAuthenticated(ctx); err != nil {
		t.Fatalf("ensure authenticated: %v", err)
	}

	if diff := cmp.Diff([]string{"old-access", "old-refresh"}, []string{api.gotBearer, api.gotRefresh}); diff != "" {
		t.Errorf("refresh arguments mismatch (-want +got):\n%s", diff)
	}
}

func TestEnsureAuthenticatedErrors(t *testing.T) {
	apiErr := errors.New("boom")
	fresh := model.Credentials{DeviceID: "d", PhoneNumber: "1"}
	expired := model.Credentials{DeviceID: "d", PhoneNumber: "1", AccessToken: "a", RefreshToken: "r", Expires: 1}

	tests := []struct {
		name    string
		stored  model.Credentials
		api     *fakeAPI
		wantErr error
	}{
		{name: "authorize fails", stored: fresh, api: &fakeAPI{authorizeErr: apiErr}, wantErr: ErrHandshake},
		{name: "exchange fails", stored: fresh, api: &fakeAPI{exchangeErr: apiErr}, wantErr: ErrHandshake},
		{name: "refresh fails", stored: expired, api: &fakeAPI{refreshErr: apiErr}, wantErr: ErrRefresh},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stored := tt.stored
			store := &memStore{creds: &stored}
			prompt := &cannedPrompter{answers: map[string]string{SMSPrompt: "1234"}}
			m := newManager(store, tt.api, prompt)

			ctx := context.Background()
			if err := m.Initialize(ctx); err != nil {
				t.Fatalf("initialize: %v", err)
			}

			err := m.EnsureAuthenticated(ctx)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
			if !errors.Is(err, apiErr) {
				t.Errorf("expected wrapped api error, got %v", err)
			}
			if store.saves != 0 {
				t.Errorf("expected no save after failure, got %d", store.saves)
			}
		})
	}
}

func TestEnsureAuthenticatedBeforeInitialize(t *testing.T) {
	m := newManager(&memStore{}, &fakeAPI{}, &cannedPrompter{})
	if err := m.EnsureAuthenticated(context.Background()); err == nil {
		t.Fatal("expected error, got nil")
	}
}
