// Package session owns the signed-in Entra ID account: it runs the login
// flows, keeps the token file current across silent refreshes, and hands out
// bearer tokens to the API client.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/microsoft"

	"github.com/tonimelisma/blobfm/internal/tokenfile"
)

// Sentinel errors.
var (
	ErrNoActiveSession = errors.New("session: no active session")
	ErrNoClientID      = errors.New("session: auth.client_id is not configured")
)

// Config describes the Entra ID application used for sign-in.
type Config struct {
	ClientID string
	Tenant   string
	Scopes   []string
}

// Account is the identity of the signed-in user.
type Account struct {
	Username string
	Name     string
}

// Display returns the friendliest non-empty label for the account.
func (a Account) Display() string {
	if a.Username != "" {
		return a.Username
	}

	return a.Name
}

// EventKind distinguishes session events.
type EventKind int

// Session event kinds.
const (
	SignedIn EventKind = iota + 1
	SignedOut
)

func (k EventKind) String() string {
	switch k {
	case SignedIn:
		return "signed_in"
	case SignedOut:
		return "signed_out"
	default:
		return fmt.Sprintf("EventKind(%d)", int(k))
	}
}

// Event is published to subscribers whenever the active account changes.
type Event struct {
	Kind    EventKind
	Account Account
}

// subscriberBuffer bounds each subscriber channel. Events beyond it are
// dropped for that subscriber rather than blocking the publisher.
const subscriberBuffer = 4

// Manager holds at most one active account.
type Manager struct {
	tokenPath string
	tenant    string
	oauth     *oauth2.Config
	logger    *slog.Logger

	mu      sync.Mutex
	src     oauth2.TokenSource
	account Account
	ident   tokenfile.Identity
	subs    map[int]chan Event
	nextSub int
}

// NewManager creates a Manager persisting tokens at tokenPath. No file is
// read until Resume is called.
func NewManager(tokenPath string, cfg Config, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}

	tenant := cfg.Tenant
	if tenant == "" {
		tenant = "common"
	}

	return &Manager{
		tokenPath: tokenPath,
		tenant:    tenant,
		oauth: &oauth2.Config{
			ClientID: cfg.ClientID,
			Scopes:   cfg.Scopes,
			Endpoint: microsoft.AzureADEndpoint(tenant),
		},
		logger: logger,
		subs:   make(map[int]chan Event),
	}
}

// TokenPath returns the path of the token file.
func (m *Manager) TokenPath() string {
	return m.tokenPath
}

// Resume activates the account saved in the token file, if any. Returns
// ErrNoActiveSession when no token file exists.
//
// Silent refreshes run on a context detached from ctx's cancellation so the
// session outlives the call that resumed it.
func (m *Manager) Resume(ctx context.Context) (Account, error) {
	creds, ok, err := tokenfile.Read(m.tokenPath)
	if err != nil {
		return Account{}, err
	}

	if !ok {
		return Account{}, ErrNoActiveSession
	}

	tok := creds.Token

	expired := !tok.Expiry.IsZero() && tok.Expiry.Before(time.Now())
	m.logger.Info("loaded saved token",
		slog.String("path", m.tokenPath),
		slog.Time("expiry", tok.Expiry),
		slog.Bool("expired", expired),
	)

	acct := Account{Username: creds.Identity.Username, Name: creds.Identity.Name}
	m.activate(context.WithoutCancel(ctx), tok, creds.Identity, acct)

	return acct, nil
}

// activate installs tok as the active session and publishes SignedIn.
func (m *Manager) activate(ctx context.Context, tok *oauth2.Token, ident tokenfile.Identity, acct Account) {
	src := &persistingSource{
		src:    m.oauth.TokenSource(ctx, tok),
		last:   tok.AccessToken,
		save:   m.persist,
		logger: m.logger,
	}

	m.mu.Lock()
	m.src = src
	m.ident = ident
	m.account = acct
	m.mu.Unlock()

	m.publish(Event{Kind: SignedIn, Account: acct})
}

// persist writes a refreshed token back to disk under the same identity.
func (m *Manager) persist(tok *oauth2.Token) {
	m.mu.Lock()
	ident := m.ident
	m.mu.Unlock()

	if err := tokenfile.Write(m.tokenPath, tokenfile.Credentials{Token: tok, Identity: ident}); err != nil {
		m.logger.Warn("failed to persist refreshed token",
			slog.String("path", m.tokenPath),
			slog.String("error", err.Error()),
		)

		return
	}

	m.logger.Info("persisted refreshed token to disk",
		slog.String("path", m.tokenPath),
		slog.Time("new_expiry", tok.Expiry),
	)
}

// Account returns the active account and whether one exists.
func (m *Manager) Account() (Account, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.account, m.src != nil
}

// Token returns a bearer token for the active account, refreshing it
// silently when needed.
func (m *Manager) Token() (string, error) {
	m.mu.Lock()
	src := m.src
	m.mu.Unlock()

	if src == nil {
		return "", ErrNoActiveSession
	}

	t, err := src.Token()
	if err != nil {
		m.logger.Warn("token acquisition failed", slog.String("error", err.Error()))
		return "", fmt.Errorf("session: obtaining token: %w", err)
	}

	m.logger.Debug("token acquired",
		slog.Time("expiry", t.Expiry),
		slog.Bool("valid", t.Valid()),
	)

	return t.AccessToken, nil
}

// Logout forgets the active account and removes the token file.
func (m *Manager) Logout() error {
	if err := tokenfile.Delete(m.tokenPath); err != nil {
		return err
	}

	m.mu.Lock()
	acct := m.account
	m.src = nil
	m.ident = tokenfile.Identity{}
	m.account = Account{}
	m.mu.Unlock()

	m.logger.Info("logout: removed token file", slog.String("path", m.tokenPath))
	m.publish(Event{Kind: SignedOut, Account: acct})

	return nil
}

// Subscribe registers for session events. The returned function
// unsubscribes and closes the channel.
func (m *Manager) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, subscriberBuffer)

	m.mu.Lock()
	id := m.nextSub
	m.nextSub++
	m.subs[id] = ch
	m.mu.Unlock()

	var once sync.Once

	return ch, func() {
		once.Do(func() {
			m.mu.Lock()
			delete(m.subs, id)
			m.mu.Unlock()
			close(ch)
		})
	}
}

func (m *Manager) publish(ev Event) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, ch := range m.subs {
		select {
		case ch <- ev:
		default:
			m.logger.Warn("dropping session event for slow subscriber", slog.String("kind", ev.Kind.String()))
		}
	}
}

// persistingSource saves the token whenever the wrapped source hands out a
// new access token.
type persistingSource struct {
	src    oauth2.TokenSource
	save   func(*oauth2.Token)
	logger *slog.Logger

	mu   sync.Mutex
	last string
}

func (p *persistingSource) Token() (*oauth2.Token, error) {
	tok, err := p.src.Token()
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	changed := tok.AccessToken != p.last
	p.last = tok.AccessToken
	p.mu.Unlock()

	if changed {
		p.logger.Info("token refreshed", slog.Time("new_expiry", tok.Expiry))
		p.save(tok)
	}

	return tok, nil
}
