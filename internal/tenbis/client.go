// Package tenbis is a small client for the 10bis web API: the monthly
// transaction report, order details, barcode images and the OTP login.
package tenbis

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/dvloznov/tenbis-barcodes/internal/domain"
	"github.com/dvloznov/tenbis-barcodes/internal/session"
)

const (
	transactionsReportPath = "/NextApi/UserTransactionsReport"
	requestCodePath        = "/NextApi/GetUserAuthenticationDataAndSendAuthenticationCodeToUser"
	verifyCodePath         = "/NextApi/GetUserV2"
	orderDetailPath        = "/api/v1/Orders/"

	maxErrorBody = 512
)

// Options configures a Client.
type Options struct {
	WebBaseURL string // e.g. https://www.10bis.co.il
	APIBaseURL string // e.g. https://api.10bis.co.il
	Culture    string
	UICulture  string

	// RequestTimeout bounds each API call. Image downloads are bounded by the caller.
	RequestTimeout time.Duration

	HTTPClient *http.Client
}

// Client talks to the 10bis web and REST APIs. It is safe for concurrent use.
type Client struct {
	http    *http.Client
	web     *url.URL
	api     *url.URL
	locale  localeFields
	timeout time.Duration
	cred    session.Credential
}

// New creates a client without a credential.
func New(opts Options) (*Client, error) {
	web, err := parseBase(opts.WebBaseURL)
	if err != nil {
		return nil, fmt.Errorf("tenbis.New: web base url: %w", err)
	}
	api, err := parseBase(opts.APIBaseURL)
	if err != nil {
		return nil, fmt.Errorf("tenbis.New: api base url: %w", err)
	}

	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{}
	}

	return &Client{
		http:    hc,
		web:     web,
		api:     api,
		locale:  localeFields{Culture: opts.Culture, UICulture: opts.UICulture},
		timeout: opts.RequestTimeout,
	}, nil
}

func parseBase(raw string) (*url.URL, error) {
	u, err := url.Parse(strings.TrimRight(raw, "/"))
	if err != nil {
		return nil, err
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("%q is not an absolute URL", raw)
	}
	return u, nil
}

// WithCredential returns a copy of c that attaches cred to every request
// sent to the 10bis hosts.
func (c *Client) WithCredential(cred session.Credential) *Client {
	cp := *c
	cp.cred = cred
	return &cp
}

// MonthlyOrders fetches the transaction report for one month offset
// (0 = current month, -1 = previous, ...). Orders of every vendor are returned.
func (c *Client) MonthlyOrders(ctx context.Context, dateBias int) ([]domain.Transaction, error) {
	body := transactionsRequest{localeFields: c.locale, DateBias: strconv.Itoa(dateBias)}

	var report envelope[transactionsReport]
	if _, err := c.doJSON(ctx, http.MethodPost, c.web, transactionsReportPath, body, &report); err != nil {
		return nil, fmt.Errorf("MonthlyOrders: date bias %d: %w", dateBias, err)
	}

	txs := make([]domain.Transaction, 0, len(report.Data.OrderList))
	for _, o := range report.Data.OrderList {
		txs = append(txs, o.Transaction(dateBias))
	}
	return txs, nil
}

// OrderCoupon fetches one order's detail and returns its coupon.
func (c *Client) OrderCoupon(ctx context.Context, orderID int64) (domain.CouponRecord, error) {
	var order Order
	path := orderDetailPath + strconv.FormatInt(orderID, 10)
	if _, err := c.doJSON(ctx, http.MethodGet, c.api, path, nil, &order); err != nil {
		return domain.CouponRecord{}, fmt.Errorf("OrderCoupon: order %d: %w", orderID, err)
	}
	return order.Coupon(orderID)
}

// FetchImage opens a barcode image. The caller closes the body and bounds the
// request through ctx. The credential is sent only when the image is served
// from one of the 10bis hosts.
func (c *Client) FetchImage(ctx context.Context, imageURL string) (io.ReadCloser, error) {
	u, err := url.Parse(imageURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("FetchImage: invalid url %q: %w", imageURL, domain.ErrEmptyImageURL)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("FetchImage: building request: %w", err)
	}
	if c.ownsHost(u) {
		c.cred.Apply(req)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("FetchImage: %w", err)
	}
	if err := checkStatus(resp); err != nil {
		resp.Body.Close()
		return nil, fmt.Errorf("FetchImage: %s: %w", imageURL, err)
	}
	return resp.Body, nil
}

// RequestCode starts the OTP login; the code is sent to the user's phone.
func (c *Client) RequestCode(ctx context.Context, email string) (string, error) {
	body := requestCodeRequest{localeFields: c.locale, Email: email}

	var out envelope[requestCodeResponse]
	if _, err := c.doJSON(ctx, http.MethodPost, c.web, requestCodePath, body, &out); err != nil {
		return "", fmt.Errorf("RequestCode: %w", err)
	}

	token := out.Data.CodeAuthenticationData.AuthenticationToken
	if token == "" {
		return "", fmt.Errorf("RequestCode: empty authentication token: %w", domain.ErrUnauthorized)
	}
	return token, nil
}

// VerifyCode completes the OTP login and returns the session cookies as a
// single Cookie header value.
func (c *Client) VerifyCode(ctx context.Context, email, authToken, code string) (string, error) {
	body := verifyCodeRequest{
		localeFields:        c.locale,
		Email:               email,
		AuthenticationToken: authToken,
		AuthenticationCode:  code,
	}

	resp, err := c.doJSON(ctx, http.MethodPost, c.web, verifyCodePath, body, nil)
	if err != nil {
		return "", fmt.Errorf("VerifyCode: %w", err)
	}
	return joinCookies(resp.Cookies()), nil
}

// joinCookies renders cookies as "a=1; b=2". A repeated name keeps its first
// position and its last value.
func joinCookies(cookies []*http.Cookie) string {
	var order []string
	values := make(map[string]string, len(cookies))
	for _, ck := range cookies {
		if _, seen := values[ck.Name]; !seen {
			order = append(order, ck.Name)
		}
		values[ck.Name] = ck.Value
	}

	parts := make([]string, 0, len(order))
	for _, name := range order {
		parts = append(parts, name+"="+values[name])
	}
	return strings.Join(parts, "; ")
}

func (c *Client) ownsHost(u *url.URL) bool {
	return strings.EqualFold(u.Host, c.web.Host) || strings.EqualFold(u.Host, c.api.Host)
}

// doJSON sends an optional JSON body and decodes a JSON response into out
// (skipped when out is nil). The response body is always drained and closed;
// the returned response is only useful for headers.
func (c *Client) doJSON(ctx context.Context, method string, base *url.URL, path string, in, out interface{}) (*http.Response, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return nil, fmt.Errorf("encoding request: %w", err)
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, base.String()+path, body)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Accept", "application/json, text/plain, */*")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	c.cred.Apply(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return nil, err
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return nil, fmt.Errorf("decoding response: %w", err)
		}
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return resp, nil
}

func checkStatus(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	detail := strings.TrimSpace(string(snippet))

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return fmt.Errorf("status %d: %w", resp.StatusCode, domain.ErrUnauthorized)
	}
	return fmt.Errorf("status %d %s: %w", resp.StatusCode, detail, domain.ErrUnexpectedStatus)
}
