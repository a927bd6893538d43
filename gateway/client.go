package gateway

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"
)

// Normalized transaction statuses. The client is the only place that
// translates raw provider responses; callers branch on Status without ever
// touching provider-specific codes.
const (
	StatusSuccess  = "SUCCESS"
	StatusCanceled = "CANCELED"
	StatusDeclined = "DECLINED"
	StatusNotFound = "not_found"
	StatusError    = "error"
)

// Client talks to the external payment provider. Credentials are process
// configuration; construction fails without them.
type Client struct {
	baseURL string
	mode    string // "sandbox" or "production"
	cid     string
	token   string
	http    *http.Client
}

type Config struct {
	BaseURL string
	Mode    string
	CID     string
	Token   string
}

// ConfigFromEnv reads the provider settings from the environment.
func ConfigFromEnv() Config {
	mode := os.Getenv("PAYGATE_MODE")
	if mode != "production" {
		mode = "sandbox"
	}
	return Config{
		BaseURL: os.Getenv("PAYGATE_BASE_URL"),
		Mode:    mode,
		CID:     os.Getenv("PAYGATE_CID"),
		Token:   os.Getenv("PAYGATE_TOKEN"),
	}
}

func NewClient(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" || cfg.CID == "" || cfg.Token == "" {
		return nil, fmt.Errorf("payment gateway configuration missing (base url, cid, token)")
	}
	if cfg.Mode != "sandbox" && cfg.Mode != "production" {
		return nil, fmt.Errorf("payment gateway mode must be sandbox or production, got %q", cfg.Mode)
	}
	return &Client{
		baseURL: cfg.BaseURL,
		mode:    cfg.Mode,
		cid:     cfg.CID,
		token:   cfg.Token,
		// Bounded timeout; the client never retries, retry policy belongs
		// to the caller.
		http: &http.Client{Timeout: 30 * time.Second},
	}, nil
}

// Intent carries everything the provider needs to open a transaction.
type Intent struct {
	OrderRef      string   `json:"order_ref"`
	Currency      string   `json:"currency"`
	Amount        float64  `json:"amount"`
	CustomerName  string   `json:"customer_name"`
	CustomerEmail string   `json:"customer_email,omitempty"`
	Description   string   `json:"description"`
	SuccessURL    string   `json:"success_url"`
	ErrorURL      string   `json:"error_url"`
	CancelURL     string   `json:"cancel_url"`
	Language      string   `json:"language"`
	Channels      []string `json:"channels"`
}

// InitResult is the normalized outcome of InitializeTransaction.
type InitResult struct {
	Success     bool                   `json:"success"`
	Reference   string                 `json:"reference,omitempty"`
	RedirectURL string                 `json:"redirect_url,omitempty"`
	Message     string                 `json:"message,omitempty"`
	Raw         map[string]interface{} `json:"raw,omitempty"`
}

// StatusResult is the normalized outcome of CheckPaymentStatus.
type StatusResult struct {
	Success     bool                   `json:"success"`
	Status      string                 `json:"status"`
	Channel     string                 `json:"channel,omitempty"`
	Message     string                 `json:"message,omitempty"`
	Transaction map[string]interface{} `json:"transaction,omitempty"`
	Payment     map[string]interface{} `json:"payment,omitempty"`
}

type initResponse struct {
	Code        string                 `json:"code,omitempty"`
	Message     string                 `json:"message,omitempty"`
	Reference   string                 `json:"reference"`
	RedirectURL string                 `json:"redirect_url"`
	Raw         map[string]interface{} `json:"-"`
}

type statusResponse struct {
	Code        string                 `json:"code,omitempty"`
	Message     string                 `json:"message,omitempty"`
	Status      string                 `json:"status"`
	Channel     string                 `json:"channel"`
	Transaction map[string]interface{} `json:"transaction"`
	Payment     map[string]interface{} `json:"payment"`
}

func (c *Client) initURL() string {
	return fmt.Sprintf("%s/%s/payment/initialization?cid=%s&token=%s", c.baseURL, c.mode, c.cid, c.token)
}

// The status endpoint takes no query parameters; credentials only travel on
// the initialization call.
func (c *Client) statusURL(reference string) string {
	return fmt.Sprintf("%s/%s/payment/%s/checking-payment", c.baseURL, c.mode, reference)
}

// InitializeTransaction opens a transaction with the provider and returns
// the reference and redirect URL. Transport failures and provider-reported
// failures both come back as a non-success InitResult, never as an error.
func (c *Client) InitializeTransaction(intent Intent) InitResult {
	body, err := json.Marshal(intent)
	if err != nil {
		return InitResult{Success: false, Message: fmt.Sprintf("failed to encode payment intent: %v", err)}
	}

	resp, err := c.http.Post(c.initURL(), "application/json", bytes.NewReader(body))
	if err != nil {
		return InitResult{Success: false, Message: fmt.Sprintf("payment provider unreachable: %v", err)}
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)

	var rawMap map[string]interface{}
	json.Unmarshal(raw, &rawMap)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return InitResult{
			Success: false,
			Message: providerMessage(rawMap, fmt.Sprintf("payment provider returned HTTP %d", resp.StatusCode)),
			Raw:     rawMap,
		}
	}

	var parsed initResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return InitResult{Success: false, Message: "failed to parse provider response", Raw: rawMap}
	}

	if parsed.Code != "" && parsed.Code != "00" {
		return InitResult{
			Success: false,
			Message: providerMessage(rawMap, "payment initialization refused by provider"),
			Raw:     rawMap,
		}
	}

	if parsed.Reference == "" {
		return InitResult{Success: false, Message: "provider returned no transaction reference", Raw: rawMap}
	}

	redirect := parsed.RedirectURL
	if redirect == "" {
		redirect = fmt.Sprintf("%s/%s/payment/%s", c.baseURL, c.mode, parsed.Reference)
	}

	return InitResult{
		Success:     true,
		Reference:   parsed.Reference,
		RedirectURL: redirect,
		Raw:         rawMap,
	}
}

// CheckPaymentStatus polls the provider for the state of a transaction.
// HTTP 404 means the reference is unknown to the provider and maps to the
// distinguished "not_found" status rather than an error.
func (c *Client) CheckPaymentStatus(reference string) StatusResult {
	resp, err := c.http.Post(c.statusURL(reference), "application/json", nil)
	if err != nil {
		return StatusResult{Success: false, Status: StatusError, Message: fmt.Sprintf("payment provider unreachable: %v", err)}
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)

	if resp.StatusCode == http.StatusNotFound {
		return StatusResult{Success: false, Status: StatusNotFound, Message: "transaction unknown to provider"}
	}

	if resp.StatusCode != http.StatusOK {
		var rawMap map[string]interface{}
		json.Unmarshal(raw, &rawMap)
		return StatusResult{
			Success: false,
			Status:  StatusError,
			Message: providerMessage(rawMap, fmt.Sprintf("payment provider returned HTTP %d", resp.StatusCode)),
		}
	}

	var parsed statusResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return StatusResult{Success: false, Status: StatusError, Message: "failed to parse provider response"}
	}

	result := StatusResult{
		Status:      parsed.Status,
		Channel:     parsed.Channel,
		Message:     parsed.Message,
		Transaction: parsed.Transaction,
		Payment:     parsed.Payment,
	}
	if parsed.Status == StatusSuccess {
		result.Success = true
	}
	if parsed.Status == "" {
		result.Status = StatusError
		result.Message = providerMessage(nil, "provider returned no payment status")
	}
	return result
}

func providerMessage(raw map[string]interface{}, fallback string) string {
	if raw != nil {
		if msg, ok := raw["message"].(string); ok && msg != "" {
			return msg
		}
	}
	return fallback
}
