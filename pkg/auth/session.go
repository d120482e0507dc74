package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"golang.org/x/oauth2"
	oauth2v2 "google.golang.org/api/oauth2/v2"
	"google.golang.org/api/option"
)

const revokeEndpoint = "https://oauth2.googleapis.com/revoke"

// Principal is the authenticated user identity: an opaque id plus a
// display name. It is created by the identity provider on sign-in and
// never mutated here.
type Principal struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
	Email       string `json:"email,omitempty"`
}

// State is one authentication-state snapshot. A nil Principal means signed
// out. Until the first snapshot arrives on an Observe channel the state is
// unknown, which is distinct from signed out.
type State struct {
	Principal *Principal
}

// AuthError reports a failed sign-in or sign-out. It is surfaced to the
// user and never retried automatically.
type AuthError struct {
	Op  string
	Err error
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Op, e.Err)
}

func (e *AuthError) Unwrap() error { return e.Err }

// Session wraps the Google sign-in flow and exposes the current principal
// as a push stream. All state lives under the config dir (token, cached
// profile); nothing is ambient or global.
type Session struct {
	dir       string
	revokeURL string

	mu       sync.Mutex
	subs     map[chan State]struct{}
	current  State
	resolved bool
	token    *oauth2.Token
}

// NewSession creates a session rooted at configDir. Call Resolve to load
// any cached credentials before the first snapshot is delivered.
func NewSession(configDir string) *Session {
	return &Session{
		dir:       configDir,
		revokeURL: revokeEndpoint,
		subs:      make(map[chan State]struct{}),
	}
}

// Resolve loads cached credentials and publishes the first snapshot.
// Observers registered before Resolve completes see "unknown" until then.
func (s *Session) Resolve(ctx context.Context) {
	tok, err := tokenFromFile(filepath.Join(s.dir, TokenFile))
	if err != nil {
		if !os.IsNotExist(err) {
			log.Printf("ignoring unreadable token cache: %v", err)
		}
		s.publish(nil, nil)
		return
	}

	principal, err := s.loadProfile()
	if err != nil {
		// Token without a usable profile cache: resolve it remotely.
		principal, err = s.fetchPrincipal(ctx, oauth2.StaticTokenSource(tok))
		if err != nil {
			log.Printf("could not resolve cached session: %v", err)
			s.publish(nil, nil)
			return
		}
		if err := saveJSON(filepath.Join(s.dir, ProfileFile), principal); err != nil {
			log.Printf("could not cache profile: %v", err)
		}
	}

	s.publish(tok, principal)
}

// Observe returns an independent push stream of authentication snapshots.
// Cancelling ctx unsubscribes and closes the channel.
func (s *Session) Observe(ctx context.Context) <-chan State {
	ch := make(chan State, 1)

	s.mu.Lock()
	s.subs[ch] = struct{}{}
	if s.resolved {
		ch <- s.current
	}
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		s.mu.Lock()
		if _, ok := s.subs[ch]; ok {
			delete(s.subs, ch)
			close(ch)
		}
		s.mu.Unlock()
	}()

	return ch
}

// SignIn runs the interactive browser flow, resolves the user's identity
// and persists the session. Success is reported to observers as a new
// snapshot; failure is an *AuthError and nothing is retried.
func (s *Session) SignIn(ctx context.Context) error {
	config, err := oauthConfig(s.dir)
	if err != nil {
		return &AuthError{Op: "sign-in", Err: err}
	}

	tok, err := tokenFromWeb(ctx, config)
	if err != nil {
		return &AuthError{Op: "sign-in", Err: err}
	}

	principal, err := s.fetchPrincipal(ctx, config.TokenSource(ctx, tok))
	if err != nil {
		return &AuthError{Op: "sign-in", Err: err}
	}

	if err := saveJSON(filepath.Join(s.dir, TokenFile), tok); err != nil {
		return &AuthError{Op: "sign-in", Err: err}
	}
	if err := saveJSON(filepath.Join(s.dir, ProfileFile), principal); err != nil {
		log.Printf("could not cache profile: %v", err)
	}

	s.publish(tok, principal)
	return nil
}

// SignOut clears the local session and tells observers, then best-effort
// revokes the token remotely. A revocation transport failure comes back as
// an *AuthError, but the local session is already gone by then.
func (s *Session) SignOut(ctx context.Context) error {
	s.mu.Lock()
	tok := s.token
	s.mu.Unlock()

	for _, name := range []string{TokenFile, ProfileFile} {
		if err := os.Remove(filepath.Join(s.dir, name)); err != nil && !os.IsNotExist(err) {
			log.Printf("could not remove %s: %v", name, err)
		}
	}
	s.publish(nil, nil)

	if tok == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.revokeURL,
		strings.NewReader(url.Values{"token": {tok.AccessToken}}.Encode()))
	if err != nil {
		return &AuthError{Op: "sign-out", Err: err}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return &AuthError{Op: "sign-out", Err: err}
	}
	resp.Body.Close()
	return nil
}

// TokenSource hands the session's credentials to API clients (the
// Firestore store). Refreshed tokens are written back to the cache the way
// the sign-in flow wrote the original.
func (s *Session) TokenSource(ctx context.Context) (oauth2.TokenSource, error) {
	s.mu.Lock()
	tok := s.token
	s.mu.Unlock()
	if tok == nil {
		return nil, &AuthError{Op: "token-source", Err: fmt.Errorf("no signed-in user")}
	}

	config, err := oauthConfig(s.dir)
	if err != nil {
		return nil, &AuthError{Op: "token-source", Err: err}
	}

	return &persistingTokenSource{
		wrapped: config.TokenSource(ctx, tok),
		path:    filepath.Join(s.dir, TokenFile),
		last:    tok.AccessToken,
	}, nil
}

func (s *Session) fetchPrincipal(ctx context.Context, ts oauth2.TokenSource) (*Principal, error) {
	svc, err := oauth2v2.NewService(ctx, option.WithTokenSource(ts))
	if err != nil {
		return nil, fmt.Errorf("unable to create userinfo service: %w", err)
	}

	info, err := svc.Userinfo.Get().Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("unable to fetch userinfo: %w", err)
	}
	return &Principal{ID: info.Id, DisplayName: info.Name, Email: info.Email}, nil
}

func (s *Session) loadProfile() (*Principal, error) {
	f, err := os.Open(filepath.Join(s.dir, ProfileFile))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var p Principal
	if err := json.NewDecoder(f).Decode(&p); err != nil {
		return nil, fmt.Errorf("failed to decode cached profile: %w", err)
	}
	if p.ID == "" {
		return nil, fmt.Errorf("cached profile has no user id")
	}
	return &p, nil
}

func (s *Session) publish(tok *oauth2.Token, principal *Principal) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.token = tok
	s.current = State{Principal: principal}
	s.resolved = true

	for ch := range s.subs {
		select {
		case ch <- s.current:
		default:
			// Observer hasn't consumed the previous snapshot; replace it
			// so it always sees the latest state.
			select {
			case <-ch:
			default:
			}
			ch <- s.current
		}
	}
}

// persistingTokenSource re-saves the token cache whenever the underlying
// source hands out a refreshed token.
type persistingTokenSource struct {
	wrapped oauth2.TokenSource
	path    string

	mu   sync.Mutex
	last string
}

func (ts *persistingTokenSource) Token() (*oauth2.Token, error) {
	tok, err := ts.wrapped.Token()
	if err != nil {
		return nil, err
	}

	ts.mu.Lock()
	changed := tok.AccessToken != ts.last
	if changed {
		ts.last = tok.AccessToken
	}
	ts.mu.Unlock()

	if changed {
		if err := saveJSON(ts.path, tok); err != nil {
			log.Printf("could not re-save refreshed token: %v", err)
		}
	}
	return tok, nil
}

// Static is a session fixed to one principal (or none). It backs the demo
// mode and lets tests simulate multiple sessions without a provider.
type Static struct {
	principal *Principal
}

func NewStatic(principal *Principal) *Static {
	return &Static{principal: principal}
}

func (s *Static) Observe(ctx context.Context) <-chan State {
	ch := make(chan State, 1)
	ch <- State{Principal: s.principal}
	return ch
}

func (s *Static) SignIn(ctx context.Context) error { return nil }

func (s *Static) SignOut(ctx context.Context) error { return nil }
