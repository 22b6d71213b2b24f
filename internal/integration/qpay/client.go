package qpay

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/ankhbayar/entitlement-service/internal/domain"
	"github.com/ankhbayar/entitlement-service/pkg/logger"
)

const (
	receiverCodeTerminal = "terminal"
	objectTypeInvoice    = "INVOICE"
	paymentStatusPaid    = "PAID"

	// Re-authenticate this long before the token actually lapses.
	tokenSafetyMargin = 60 * time.Second
)

// Config holds the gateway credentials and endpoints.
type Config struct {
	BaseURL     string
	Username    string
	Password    string
	InvoiceCode string
	CallbackURL string
}

// Client defines the calls the ledger makes against the billing
// gateway. The client performs no retries; retry policy belongs to the
// settlement callers.
type Client interface {
	// CreateInvoice mints a new invoice and returns its id, QR payload
	// and payer-app deep links.
	CreateInvoice(ctx context.Context, params CreateInvoiceParams) (*Invoice, error)

	// CheckPayment asks the gateway whether the invoice has settled.
	CheckPayment(ctx context.Context, invoiceID string) (*PaymentCheck, error)
}

// client implements Client over the gateway's REST API, caching the
// bearer token in process memory. The token is stateless on the
// gateway side, so losing the cache just costs one extra exchange.
type client struct {
	cfg  Config
	http *http.Client
	log  *logger.Logger

	mu       sync.Mutex
	token    string
	tokenExp time.Time

	now func() time.Time
}

// NewClient creates a gateway client.
func NewClient(cfg Config, log *logger.Logger) Client {
	return &client{
		cfg:  cfg,
		http: &http.Client{Timeout: 15 * time.Second},
		log:  log,
		now:  time.Now,
	}
}

// bearerToken returns a cached token, exchanging credentials when the
// cache is empty or inside the safety margin of expiry.
func (c *client) bearerToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != "" && c.now().Before(c.tokenExp.Add(-tokenSafetyMargin)) {
		return c.token, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/auth/token", nil)
	if err != nil {
		return "", domain.WrapGatewayError("auth", err)
	}
	req.SetBasicAuth(c.cfg.Username, c.cfg.Password)

	resp, err := c.http.Do(req)
	if err != nil {
		logGatewayError(c.log, "auth", err)
		return "", domain.WrapGatewayError("auth", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		logGatewayError(c.log, "auth", err)
		return "", domain.WrapGatewayError("auth", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.log.Errorw("Gateway auth rejected", "status", resp.StatusCode)
		return "", domain.NewGatewayError("auth", resp.StatusCode, string(body))
	}

	var auth authResponse
	if err := json.Unmarshal(body, &auth); err != nil {
		return "", domain.WrapGatewayError("auth", err)
	}

	c.token = auth.AccessToken
	c.tokenExp = c.now().Add(time.Duration(auth.ExpiresIn) * time.Second)
	c.log.Debugw("Gateway token refreshed", "expiresIn", auth.ExpiresIn)
	return c.token, nil
}

// post sends an authenticated JSON request and decodes a 2xx response
// into out.
func (c *client) post(ctx context.Context, operation, path string, payload, out any) error {
	token, err := c.bearerToken(ctx)
	if err != nil {
		return err
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return domain.WrapGatewayError(operation, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+path, bytes.NewReader(raw))
	if err != nil {
		return domain.WrapGatewayError(operation, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.http.Do(req)
	if err != nil {
		logGatewayError(c.log, operation, err)
		return domain.WrapGatewayError(operation, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		logGatewayError(c.log, operation, err)
		return domain.WrapGatewayError(operation, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.log.Errorw("Gateway call rejected", "operation", operation, "status", resp.StatusCode, "body", string(body))
		return domain.NewGatewayError(operation, resp.StatusCode, string(body))
	}

	if err := json.Unmarshal(body, out); err != nil {
		return domain.WrapGatewayError(operation, fmt.Errorf("decode response: %w", err))
	}
	return nil
}

// CreateInvoice mints a new invoice at the gateway.
func (c *client) CreateInvoice(ctx context.Context, params CreateInvoiceParams) (*Invoice, error) {
	payload := createInvoiceRequest{
		InvoiceCode:         c.cfg.InvoiceCode,
		SenderInvoiceNo:     params.SenderInvoiceNo,
		InvoiceReceiverCode: receiverCodeTerminal,
		InvoiceDescription:  params.Description,
		Amount:              params.Amount,
		CallbackURL:         c.cfg.CallbackURL,
	}

	var inv Invoice
	if err := c.post(ctx, "invoice", "/invoice", payload, &inv); err != nil {
		return nil, err
	}

	c.log.Infow("Gateway invoice created", "invoiceID", inv.InvoiceID, "senderInvoiceNo", params.SenderInvoiceNo, "amount", params.Amount)
	return &inv, nil
}

// CheckPayment asks the gateway whether the invoice has settled.
func (c *client) CheckPayment(ctx context.Context, invoiceID string) (*PaymentCheck, error) {
	payload := checkPaymentRequest{
		ObjectType: objectTypeInvoice,
		ObjectID:   invoiceID,
	}

	var check PaymentCheck
	if err := c.post(ctx, "payment_check", "/payment/check", payload, &check); err != nil {
		return nil, err
	}

	c.log.Debugw("Gateway payment check", "invoiceID", invoiceID, "count", check.Count, "settled", check.Settled())
	return &check, nil
}

// logGatewayError logs a transport-level gateway failure.
func logGatewayError(log *logger.Logger, operation string, err error) {
	log.Errorw("Gateway request failed", "operation", operation, "error", err)
}
