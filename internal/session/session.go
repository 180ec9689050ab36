// Package session produces the credential attached to every request sent to
// the 10bis API. The core pipeline never refreshes it.
package session

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/dvloznov/tenbis-barcodes/internal/domain"
)

// Header names used by the 10bis web app.
const (
	TokenHeader  = "user-token"
	CookieHeader = "Cookie"
)

// Credential is a single header carrying the authenticated session.
type Credential struct {
	Header string
	Value  string
}

// TokenCredential wraps a "user-token" value copied from the browser.
func TokenCredential(token string) Credential {
	return Credential{Header: TokenHeader, Value: strings.TrimSpace(token)}
}

// CookieCredential wraps an assembled "name=value; name2=value2" cookie string.
func CookieCredential(cookie string) Credential {
	return Credential{Header: CookieHeader, Value: strings.TrimSpace(cookie)}
}

// Empty reports whether the credential carries no value.
func (c Credential) Empty() bool {
	return c.Header == "" || c.Value == ""
}

// Apply sets the credential header on req.
func (c Credential) Apply(req *http.Request) {
	if c.Empty() {
		return
	}
	req.Header.Set(c.Header, c.Value)
}

// Provider yields the session credential for a run.
type Provider interface {
	Credential(ctx context.Context) (Credential, error)
}

// Static is a Provider for a credential known up front.
type Static struct {
	cred Credential
}

// NewStatic returns a Provider that always yields cred.
func NewStatic(cred Credential) *Static {
	return &Static{cred: cred}
}

// Credential implements Provider.
func (s *Static) Credential(ctx context.Context) (Credential, error) {
	if s.cred.Empty() {
		return Credential{}, domain.ErrNoCredential
	}
	return s.cred, nil
}

// Authenticator runs the two-step one-time-password login.
type Authenticator interface {
	// RequestCode asks the remote to send a code to the user's phone and
	// returns the token that pairs with it.
	RequestCode(ctx context.Context, email string) (string, error)

	// VerifyCode exchanges the code for a session and returns the cookie header value.
	VerifyCode(ctx context.Context, email, authToken, code string) (string, error)
}

// Prompter asks the user for input.
type Prompter interface {
	Prompt(ctx context.Context, message string) (string, error)
}

// OTPProvider logs in interactively with an emailed account and an SMS code.
type OTPProvider struct {
	auth     Authenticator
	prompter Prompter
	email    string
}

// NewOTPProvider creates an OTPProvider. An empty email is asked for via the prompter.
func NewOTPProvider(auth Authenticator, prompter Prompter, email string) *OTPProvider {
	return &OTPProvider{auth: auth, prompter: prompter, email: email}
}

// Credential implements Provider.
func (p *OTPProvider) Credential(ctx context.Context) (Credential, error) {
	email := strings.TrimSpace(p.email)
	if email == "" {
		v, err := p.prompter.Prompt(ctx, "Please enter your 10Bis email address: ")
		if err != nil {
			return Credential{}, fmt.Errorf("OTPProvider: reading email: %w", err)
		}
		email = strings.TrimSpace(v)
	}
	if email == "" {
		return Credential{}, domain.ErrNoCredential
	}

	authToken, err := p.auth.RequestCode(ctx, email)
	if err != nil {
		return Credential{}, fmt.Errorf("OTPProvider: requesting code: %w", err)
	}

	code, err := p.prompter.Prompt(ctx, "Enter otp sent to your mobile phone: ")
	if err != nil {
		return Credential{}, fmt.Errorf("OTPProvider: reading code: %w", err)
	}

	cookie, err := p.auth.VerifyCode(ctx, email, authToken, strings.TrimSpace(code))
	if err != nil {
		return Credential{}, fmt.Errorf("OTPProvider: verifying code: %w", err)
	}
	if cookie == "" {
		return Credential{}, fmt.Errorf("OTPProvider: login returned no cookies: %w", domain.ErrUnauthorized)
	}

	return CookieCredential(cookie), nil
}

// Select picks the provider for the configured inputs: a token wins over a
// cookie, and an OTP login is used when neither is set.
func Select(token, cookie, email string, auth Authenticator, prompter Prompter) Provider {
	switch {
	case strings.TrimSpace(token) != "":
		return NewStatic(TokenCredential(token))
	case strings.TrimSpace(cookie) != "":
		return NewStatic(CookieCredential(cookie))
	default:
		return NewOTPProvider(auth, prompter, email)
	}
}
