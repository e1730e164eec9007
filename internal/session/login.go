package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"

	"github.com/tonimelisma/blobfm/internal/tokenfile"
)

// DeviceAuth holds the device code fields shown to the user.
type DeviceAuth struct {
	UserCode        string
	VerificationURI string
}

// Login runs the device code flow: display is called with the user code,
// then Login polls until the user approves, saves the token and activates
// the account.
func (m *Manager) Login(ctx context.Context, display func(DeviceAuth)) (Account, error) {
	if m.oauth.ClientID == "" {
		return Account{}, ErrNoClientID
	}

	m.logger.Info("starting device code auth flow", slog.String("path", m.tokenPath))

	da, err := m.oauth.DeviceAuth(ctx)
	if err != nil {
		return Account{}, fmt.Errorf("session: device auth request failed: %w", err)
	}

	m.logger.Info("device code received, waiting for user authorization")

	display(DeviceAuth{
		UserCode:        da.UserCode,
		VerificationURI: da.VerificationURI,
	})

	tok, err := m.oauth.DeviceAccessToken(ctx, da)
	if err != nil {
		return Account{}, fmt.Errorf("session: device code authorization failed: %w", err)
	}

	return m.complete(ctx, tok)
}

// loopbackPath must match the registered "http://localhost" redirect URI.
// Entra ID ignores the port for loopback redirects but not the path.
const loopbackPath = "/"

const loopbackDrain = 5 * time.Second

// loopback is the redirect target of the browser flow: an HTTP server on
// 127.0.0.1 that accepts exactly one authorization response.
type loopback struct {
	state  string
	port   int
	srv    *http.Server
	result chan loopbackResult
	logger *slog.Logger
}

type loopbackResult struct {
	code string
	err  error
}

func listenLoopback(ctx context.Context, logger *slog.Logger) (*loopback, error) {
	var lc net.ListenConfig

	ln, err := lc.Listen(ctx, "tcp", "127.0.0.1:0")
	if err != nil {
		return nil, fmt.Errorf("session: binding loopback listener: %w", err)
	}

	lb := &loopback{
		state:  uuid.NewString(),
		port:   ln.Addr().(*net.TCPAddr).Port,
		result: make(chan loopbackResult, 1),
		logger: logger,
	}

	mux := http.NewServeMux()
	mux.Handle("GET "+loopbackPath, lb)
	lb.srv = &http.Server{Handler: mux, ReadHeaderTimeout: loopbackDrain}

	go func() {
		if err := lb.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			lb.deliver(loopbackResult{err: fmt.Errorf("session: loopback server: %w", err)})
		}
	}()

	logger.Debug("loopback listening", slog.Int("port", lb.port))

	return lb, nil
}

func (lb *loopback) redirectURL() string {
	return fmt.Sprintf("http://localhost:%d", lb.port)
}

// deliver keeps the first result; later callbacks are dropped.
func (lb *loopback) deliver(res loopbackResult) {
	select {
	case lb.result <- res:
	default:
	}
}

func (lb *loopback) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var res loopbackResult

	switch {
	case q.Get("state") != lb.state:
		res.err = errors.New("session: OAuth2 state mismatch (possible CSRF)")
	case q.Get("error") != "":
		res.err = fmt.Errorf("session: authorization failed: %s: %s", q.Get("error"), q.Get("error_description"))
	case q.Get("code") == "":
		res.err = errors.New("session: callback missing authorization code")
	default:
		res.code = q.Get("code")
	}

	lb.deliver(res)

	if res.err != nil {
		http.Error(w, "Sign-in failed. Return to the terminal for details.", http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprint(w, "<html><body><h1>Signed in to blobfm</h1>"+
		"<p>You can close this window and return to the terminal.</p></body></html>")
}

// wait blocks for the authorization code.
func (lb *loopback) wait(ctx context.Context) (string, error) {
	select {
	case res := <-lb.result:
		return res.code, res.err
	case <-ctx.Done():
		return "", fmt.Errorf("session: browser sign-in canceled: %w", ctx.Err())
	}
}

func (lb *loopback) close() {
	ctx, cancel := context.WithTimeout(context.Background(), loopbackDrain)
	defer cancel()

	if err := lb.srv.Shutdown(ctx); err != nil {
		lb.logger.Warn("loopback shutdown", slog.String("error", err.Error()))
	}
}

// LoginWithBrowser runs the authorization code flow with PKCE. present is
// handed the authorization URL; it opens a browser or shows the URL.
func (m *Manager) LoginWithBrowser(ctx context.Context, present func(authURL string) error) (Account, error) {
	if m.oauth.ClientID == "" {
		return Account{}, ErrNoClientID
	}

	lb, err := listenLoopback(ctx, m.logger)
	if err != nil {
		return Account{}, err
	}
	defer lb.close()

	cfg := *m.oauth
	cfg.RedirectURL = lb.redirectURL()

	verifier := oauth2.GenerateVerifier()
	authURL := cfg.AuthCodeURL(lb.state, oauth2.AccessTypeOffline, oauth2.S256ChallengeOption(verifier))

	m.logger.Info("starting browser sign-in", slog.String("redirect", cfg.RedirectURL))

	if err := present(authURL); err != nil {
		return Account{}, err
	}

	code, err := lb.wait(ctx)
	if err != nil {
		return Account{}, err
	}

	tok, err := cfg.Exchange(ctx, code, oauth2.VerifierOption(verifier))
	if err != nil {
		return Account{}, fmt.Errorf("session: token exchange failed: %w", err)
	}

	return m.complete(ctx, tok)
}

// complete saves a freshly issued token with the account read from its
// id_token and activates it.
func (m *Manager) complete(ctx context.Context, tok *oauth2.Token) (Account, error) {
	acct := accountFromToken(tok)

	ident := tokenfile.Identity{Username: acct.Username, Name: acct.Name, Tenant: m.tenant}

	if saveErr := tokenfile.Write(m.tokenPath, tokenfile.Credentials{Token: tok, Identity: ident}); saveErr != nil {
		return Account{}, fmt.Errorf("session: saving token: %w", saveErr)
	}

	m.logger.Info("login successful",
		slog.String("path", m.tokenPath),
		slog.String("username", acct.Username),
		slog.Time("expiry", tok.Expiry),
	)

	m.activate(context.WithoutCancel(ctx), tok, ident, acct)

	return acct, nil
}
