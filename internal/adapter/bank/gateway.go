package bank

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"atm-engine/internal/core/domain"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// HTTPClient interface for testability.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Config configures the gateway.
type Config struct {
	BaseURL      string
	APIKey       string
	Timeout      time.Duration // per attempt
	MaxRetries   int           // extra attempts after the first
	RetryBackoff time.Duration // grows linearly: backoff, 2*backoff, ...
}

// Gateway implements ports.BankGateway and ports.HealthChecker over the
// bank's JSON API.
type Gateway struct {
	cfg        Config
	httpClient HTTPClient
	log        zerolog.Logger
}

// NewGateway creates a bank gateway. A nil httpClient uses http.DefaultClient.
func NewGateway(cfg Config, httpClient HTTPClient, log zerolog.Logger) *Gateway {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	cfg.BaseURL = strings.TrimSuffix(cfg.BaseURL, "/")
	return &Gateway{cfg: cfg, httpClient: httpClient, log: log}
}

type authorizeRequest struct {
	CardNumber string `json:"card_number"`
	Pin        string `json:"pin"`
}

type authorizeResponse struct {
	Token string `json:"token"`
}

type chargeRequest struct {
	Token    string `json:"token"`
	Amount   string `json:"amount"`
	Currency string `json:"currency"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Authorize exchanges a card/PIN pair for a charge token.
func (g *Gateway) Authorize(ctx context.Context, pin domain.PinCode, cardNumber string) (domain.AuthorizationToken, error) {
	body := authorizeRequest{CardNumber: cardNumber, Pin: pin.Digits()}

	var out authorizeResponse
	if err := g.post(ctx, "/authorizations", "", body, &out); err != nil {
		return "", err
	}
	if out.Token == "" {
		return "", fmt.Errorf("%w: empty token in response", domain.ErrAuthorizationRejected)
	}
	return domain.AuthorizationToken(out.Token), nil
}

// Charge debits the authorized account. Retries reuse one Idempotency-Key so
// the bank charges at most once.
func (g *Gateway) Charge(ctx context.Context, token domain.AuthorizationToken, amount domain.Money) error {
	body := chargeRequest{
		Token:    string(token),
		Amount:   amount.Amount.StringFixed(2),
		Currency: amount.Currency.String(),
	}
	return g.post(ctx, "/charges", uuid.NewString(), body, nil)
}

// Ping checks the bank's health endpoint.
func (g *Gateway) Ping(ctx context.Context) error {
	ctx, cancel := g.attemptContext(ctx)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.cfg.BaseURL+"/health", nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("X-Api-Key", g.cfg.APIKey)

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("bank health: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("bank health: status %d", resp.StatusCode)
	}
	return nil
}

// Name returns the dependency name.
func (g *Gateway) Name() string {
	return "bank"
}

// post sends body to path, retrying transport errors and 5xx responses.
func (g *Gateway) post(ctx context.Context, path, idempotencyKey string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal %s request: %w", path, err)
	}

	var lastErr error
	for attempt := 0; attempt <= g.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return fmt.Errorf("%w: %s: %v", domain.ErrGatewayUnavailable, path, ctx.Err())
			case <-time.After(time.Duration(attempt) * g.cfg.RetryBackoff):
			}
		}

		retry, err := g.do(ctx, path, idempotencyKey, payload, out)
		if err == nil {
			return nil
		}
		if !retry {
			return err
		}
		lastErr = err
		g.log.Warn().Err(err).Str("path", path).Int("attempt", attempt+1).Msg("bank: request failed, retrying")
	}

	g.log.Error().Err(lastErr).Str("path", path).Msg("bank: all retry attempts exhausted")
	return fmt.Errorf("%w: %s: %v", domain.ErrGatewayUnavailable, path, lastErr)
}

// do performs one attempt. retry reports whether the failure is transient.
func (g *Gateway) do(ctx context.Context, path, idempotencyKey string, payload []byte, out any) (retry bool, err error) {
	ctx, cancel := g.attemptContext(ctx)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.cfg.BaseURL+path, bytes.NewReader(payload))
	if err != nil {
		return false, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Api-Key", g.cfg.APIKey)
	if idempotencyKey != "" {
		req.Header.Set("Idempotency-Key", idempotencyKey)
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return true, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		if out == nil {
			return false, nil
		}
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return false, fmt.Errorf("decoding %s response: %w", path, err)
		}
		return false, nil
	case resp.StatusCode >= 500:
		return true, fmt.Errorf("bank returned status %d", resp.StatusCode)
	}

	reason := readError(resp.Body)
	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return false, fmt.Errorf("%w: %s", domain.ErrAuthorizationRejected, reason)
	case http.StatusPaymentRequired, http.StatusConflict, http.StatusUnprocessableEntity:
		return false, fmt.Errorf("%w: %s", domain.ErrAccountRejected, reason)
	default:
		return false, fmt.Errorf("bank returned status %d: %s", resp.StatusCode, reason)
	}
}

func (g *Gateway) attemptContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if g.cfg.Timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, g.cfg.Timeout)
}

func readError(r io.Reader) string {
	raw, err := io.ReadAll(io.LimitReader(r, 4096))
	if err != nil || len(raw) == 0 {
		return "no details"
	}
	var e errorResponse
	if json.Unmarshal(raw, &e) == nil && (e.Code != "" || e.Message != "") {
		return strings.TrimSpace(e.Code + " " + e.Message)
	}
	return strings.TrimSpace(string(raw))
}
