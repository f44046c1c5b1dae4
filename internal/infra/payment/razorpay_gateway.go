package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"ai-caption-backend/internal/domain"
	"ai-caption-backend/internal/domain/ports/adapter"
	"ai-caption-backend/pkg/retry"
)

var _ adapter.OrderGateway = (*RazorpayGateway)(nil)

// RazorpayGateway implements OrderGateway against the Razorpay Orders API
// using direct HTTP calls with basic auth.
type RazorpayGateway struct {
	keyID     string
	keySecret string
	baseURL   string
	client    *http.Client
	retryCfg  retry.Config
}

func NewRazorpayGateway(keyID, keySecret, baseURL string) (*RazorpayGateway, error) {
	if keyID == "" || keySecret == "" {
		return nil, domain.ErrInvalidArgument
	}
	if baseURL == "" {
		baseURL = "https://api.razorpay.com/v1"
	}
	return &RazorpayGateway{
		keyID:     keyID,
		keySecret: keySecret,
		baseURL:   baseURL,
		client:    &http.Client{Timeout: 15 * time.Second},
		retryCfg:  retry.DefaultConfig(),
	}, nil
}

func (g *RazorpayGateway) Name() string { return "razorpay" }

// orderResponse is the provider's order representation; the same shape comes
// back from both create and fetch.
type orderResponse struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Status   string `json:"status"`
	Receipt  string `json:"receipt"`
	Error    *struct {
		Code        string `json:"code"`
		Description string `json:"description"`
	} `json:"error"`
}

// CreateOrder implements adapter.OrderGateway. amount must already be in
// minor units; the receipt ties the provider order to our transaction id.
func (g *RazorpayGateway) CreateOrder(ctx context.Context, amount int64, currency, receipt string, notes map[string]string) (*adapter.Order, error) {
	if amount <= 0 || currency == "" || receipt == "" {
		return nil, fmt.Errorf("%w: bad order parameters", domain.ErrOrderCreation)
	}

	body := map[string]interface{}{
		"amount":   amount,
		"currency": currency,
		"receipt":  receipt,
	}
	if len(notes) > 0 {
		body["notes"] = notes
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("%w: marshal request: %v", domain.ErrOrderCreation, err)
	}

	var out *orderResponse
	err = retry.Do(ctx, g.retryCfg, func() error {
		resp, err := g.post(ctx, g.baseURL+"/orders", payload)
		if err != nil {
			return err
		}
		out = resp
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrOrderCreation, err)
	}
	if out.ID == "" {
		return nil, fmt.Errorf("%w: provider response missing order id", domain.ErrOrderCreation)
	}
	return &adapter.Order{ProviderOrderID: out.ID, Amount: out.Amount, Currency: out.Currency, Status: out.Status}, nil
}

// FetchOrderStatus implements adapter.OrderGateway.
func (g *RazorpayGateway) FetchOrderStatus(ctx context.Context, providerOrderID string) (*adapter.Order, error) {
	if providerOrderID == "" {
		return nil, domain.ErrInvalidArgument
	}
	var out *orderResponse
	err := retry.Do(ctx, g.retryCfg, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+"/orders/"+providerOrderID, nil)
		if err != nil {
			return retry.Permanent(err)
		}
		resp, err := g.do(req)
		if err != nil {
			return err
		}
		out = resp
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &adapter.Order{ProviderOrderID: out.ID, Amount: out.Amount, Currency: out.Currency, Status: out.Status}, nil
}

func (g *RazorpayGateway) post(ctx context.Context, url string, payload []byte) (*orderResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, retry.Permanent(err)
	}
	req.Header.Set("Content-Type", "application/json")
	return g.do(req)
}

// do sends one attempt. Transport errors and 5xx are retriable; 4xx and
// provider error bodies are permanent.
func (g *RazorpayGateway) do(req *http.Request) (*orderResponse, error) {
	req.SetBasicAuth(g.keyID, g.keySecret)
	req.Header.Set("Accept", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	var parsed orderResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, retry.Permanent(fmt.Errorf("unmarshal response: %v, body: %s", err, string(body)))
	}

	if resp.StatusCode >= 500 {
		return nil, fmt.Errorf("provider http %d", resp.StatusCode)
	}
	if resp.StatusCode >= 400 {
		if parsed.Error != nil {
			return nil, retry.Permanent(fmt.Errorf("provider error %s: %s", parsed.Error.Code, parsed.Error.Description))
		}
		return nil, retry.Permanent(fmt.Errorf("provider http %d", resp.StatusCode))
	}
	if parsed.Error != nil {
		return nil, retry.Permanent(fmt.Errorf("provider error %s: %s", parsed.Error.Code, parsed.Error.Description))
	}
	return &parsed, nil
}
