package session

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/dvloznov/tenbis-barcodes/internal/domain"
)

type mockAuthenticator struct {
	RequestCodeFunc func(ctx context.Context, email string) (string, error)
	VerifyCodeFunc  func(ctx context.Context, email, authToken, code string) (string, error)
}

func (m *mockAuthenticator) RequestCode(ctx context.Context, email string) (string, error) {
	return m.RequestCodeFunc(ctx, email)
}

func (m *mockAuthenticator) VerifyCode(ctx context.Context, email, authToken, code string) (string, error) {
	return m.VerifyCodeFunc(ctx, email, authToken, code)
}

type scriptedPrompter struct {
	answers []string
	asked   []string
}

func (p *scriptedPrompter) Prompt(ctx context.Context, message string) (string, error) {
	p.asked = append(p.asked, message)
	if len(p.answers) == 0 {
		return "", errors.New("no more answers")
	}
	a := p.answers[0]
	p.answers = p.answers[1:]
	return a, nil
}

func TestCredentialApply(t *testing.T) {
	req, _ := http.NewRequest(http.MethodGet, "https://api.10bis.co.il/x", nil)
	TokenCredential(" tok== ").Apply(req)
	if got := req.Header.Get(TokenHeader); got != "tok==" {
		t.Errorf("user-token header = %q, want %q", got, "tok==")
	}

	req, _ = http.NewRequest(http.MethodGet, "https://api.10bis.co.il/x", nil)
	Credential{}.Apply(req)
	if len(req.Header) != 0 {
		t.Errorf("empty credential should not set headers, got %v", req.Header)
	}
}

func TestStatic(t *testing.T) {
	cred, err := NewStatic(CookieCredential("a=1")).Credential(context.Background())
	if err != nil {
		t.Fatalf("Credential() error: %v", err)
	}
	if cred.Header != CookieHeader || cred.Value != "a=1" {
		t.Errorf("Credential() = %+v", cred)
	}

	_, err = NewStatic(TokenCredential("")).Credential(context.Background())
	if !errors.Is(err, domain.ErrNoCredential) {
		t.Errorf("empty static credential error = %v, want ErrNoCredential", err)
	}
}

func TestOTPProvider(t *testing.T) {
	auth := &mockAuthenticator{
		RequestCodeFunc: func(ctx context.Context, email string) (string, error) {
			if email != "me@example.com" {
				t.Errorf("RequestCode email = %q", email)
			}
			return "auth-token", nil
		},
		VerifyCodeFunc: func(ctx context.Context, email, authToken, code string) (string, error) {
			if authToken != "auth-token" || code != "123456" {
				t.Errorf("VerifyCode got token=%q code=%q", authToken, code)
			}
			return "sid=abc; uid=7", nil
		},
	}
	prompter := &scriptedPrompter{answers: []string{" me@example.com ", "123456\n"}}

	cred, err := NewOTPProvider(auth, prompter, "").Credential(context.Background())
	if err != nil {
		t.Fatalf("Credential() error: %v", err)
	}
	if cred.Header != CookieHeader || cred.Value != "sid=abc; uid=7" {
		t.Errorf("Credential() = %+v", cred)
	}
	if len(prompter.asked) != 2 {
		t.Errorf("expected email and code prompts, got %v", prompter.asked)
	}
}

func TestOTPProvider_NoCookies(t *testing.T) {
	auth := &mockAuthenticator{
		RequestCodeFunc: func(ctx context.Context, email string) (string, error) { return "t", nil },
		VerifyCodeFunc:  func(ctx context.Context, email, authToken, code string) (string, error) { return "", nil },
	}
	prompter := &scriptedPrompter{answers: []string{"000000"}}

	_, err := NewOTPProvider(auth, prompter, "me@example.com").Credential(context.Background())
	if !errors.Is(err, domain.ErrUnauthorized) {
		t.Errorf("error = %v, want ErrUnauthorized", err)
	}
}

func TestOTPProvider_RequestFails(t *testing.T) {
	boom := errors.New("boom")
	auth := &mockAuthenticator{
		RequestCodeFunc: func(ctx context.Context, email string) (string, error) { return "", boom },
	}

	_, err := NewOTPProvider(auth, &scriptedPrompter{}, "me@example.com").Credential(context.Background())
	if !errors.Is(err, boom) {
		t.Errorf("error = %v, want wrapped boom", err)
	}
}

func TestSelect(t *testing.T) {
	tests := []struct {
		name          string
		token, cookie string
		wantHeader    string
		wantOTP       bool
	}{
		{name: "token wins", token: "t", cookie: "c=1", wantHeader: TokenHeader},
		{name: "cookie", cookie: "c=1", wantHeader: CookieHeader},
		{name: "otp fallback", wantOTP: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := Select(tt.token, tt.cookie, "me@example.com", nil, nil)
			if _, ok := p.(*OTPProvider); ok != tt.wantOTP {
				t.Fatalf("Select() = %T, wantOTP %v", p, tt.wantOTP)
			}
			if tt.wantOTP {
				return
			}
			cred, err := p.Credential(context.Background())
			if err != nil {
				t.Fatalf("Credential() error: %v", err)
			}
			if cred.Header != tt.wantHeader {
				t.Errorf("Header = %q, want %q", cred.Header, tt.wantHeader)
			}
		})
	}
}
