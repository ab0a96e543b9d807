// Package daraja is a minimal client for the Safaricom Daraja API: OAuth
// client-credentials auth plus the STK push (Lipa na M-Pesa Online) request.
// The network is untrusted and slow; every call carries an explicit timeout
// and failures are classified so callers can tell auth problems, rejections
// and timeouts apart.
package daraja

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"
)

const timestampLayout = "20060102150405"

var (
	ErrAuthFailed = errors.New("daraja: authentication failed")
	ErrTimeout    = errors.New("daraja: gateway timeout")
)

// RejectedError is a synchronous non-success answer from the gateway.
type RejectedError struct {
	Code string
	Desc string
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("daraja: request rejected: code=%s desc=%s", e.Code, e.Desc)
}

type Config struct {
	ConsumerKey    string
	ConsumerSecret string
	Shortcode      string
	Passkey        string
	BaseURL        string
	CallbackURL    string
	Timeout        time.Duration
}

type Client struct {
	cfg Config
	hc  *http.Client

	mu       sync.Mutex
	token    string
	tokenExp time.Time

	now func() time.Time
}

func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		cfg: cfg,
		hc:  &http.Client{Timeout: timeout},
		now: time.Now,
	}
}

type STKPushRequest struct {
	Phone            string // already normalized, 2547XXXXXXXX
	AmountCents      int64
	AccountReference string
	Description      string
}

type STKPushResponse struct {
	MerchantRequestID   string `json:"MerchantRequestID"`
	CheckoutRequestID   string `json:"CheckoutRequestID"`
	ResponseCode        string `json:"ResponseCode"`
	ResponseDescription string `json:"ResponseDescription"`
	CustomerMessage     string `json:"CustomerMessage"`
}

// STKPush asks the gateway to prompt the buyer's phone for a PIN. The
// returned CheckoutRequestID is the correlation id the asynchronous callback
// will carry; the caller must persist it before treating the push as sent.
func (c *Client) STKPush(ctx context.Context, req STKPushRequest) (STKPushResponse, error) {
	token, err := c.accessToken(ctx)
	if err != nil {
		return STKPushResponse{}, err
	}

	// Daraja wants whole shillings.
	amount := req.AmountCents / 100
	if amount < 1 {
		amount = 1
	}

	ts := c.now().Format(timestampLayout)
	payload := map[string]any{
		"BusinessShortCode": c.cfg.Shortcode,
		"Password":          c.password(ts),
		"Timestamp":         ts,
		"TransactionType":   "CustomerPayBillOnline",
		"Amount":            amount,
		"PartyA":            req.Phone,
		"PartyB":            c.cfg.Shortcode,
		"PhoneNumber":       req.Phone,
		"CallBackURL":       c.cfg.CallbackURL,
		"AccountReference":  req.AccountReference,
		"TransactionDesc":   req.Description,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return STKPushResponse{}, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/mpesa/stkpush/v1/processrequest", bytes.NewReader(body))
	if err != nil {
		return STKPushResponse{}, err
	}
	httpReq.Header.Set("Authorization", "Bearer "+token)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.hc.Do(httpReq)
	if err != nil {
		return STKPushResponse{}, classifyTransport(err)
	}
	defer resp.Body.Close()

	var out STKPushResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return STKPushResponse{}, fmt.Errorf("daraja: decode stk response: %w", err)
	}

	if resp.StatusCode != http.StatusOK || out.ResponseCode != "0" {
		return STKPushResponse{}, &RejectedError{Code: out.ResponseCode, Desc: out.ResponseDescription}
	}
	if out.CheckoutRequestID == "" {
		return STKPushResponse{}, &RejectedError{Code: out.ResponseCode, Desc: "missing CheckoutRequestID"}
	}
	return out, nil
}

// accessToken returns a cached bearer token, refreshing via the
// client-credentials grant when it is near expiry.
func (c *Client) accessToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != "" && c.now().Before(c.tokenExp) {
		return c.token, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+"/oauth/v1/generate?grant_type=client_credentials", nil)
	if err != nil {
		return "", err
	}
	req.SetBasicAuth(c.cfg.ConsumerKey, c.cfg.ConsumerSecret)

	resp, err := c.hc.Do(req)
	if err != nil {
		return "", classifyTransport(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: status %d", ErrAuthFailed, resp.StatusCode)
	}

	var body struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   string `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("%w: %v", ErrAuthFailed, err)
	}
	if body.AccessToken == "" {
		return "", fmt.Errorf("%w: empty access_token", ErrAuthFailed)
	}

	ttl := 3599
	if n, err := strconv.Atoi(body.ExpiresIn); err == nil && n > 0 {
		ttl = n
	}
	c.token = body.AccessToken
	// refresh slightly early so a token never expires mid-request
	c.tokenExp = c.now().Add(time.Duration(ttl-30) * time.Second)
	return c.token, nil
}

func (c *Client) password(timestamp string) string {
	raw := c.cfg.Shortcode + c.cfg.Passkey + timestamp
	return base64.StdEncoding.EncodeToString([]byte(raw))
}

func classifyTransport(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	return err
}
