package sms

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const defaultAPIBaseURL = "https://api.twilio.com"

// SendResult reports the provider's identifier and initial delivery status
// for an accepted outbound message.
type SendResult struct {
	MessageSID string
	Status     string
}

// Sender delivers outbound text messages.
type Sender interface {
	Send(ctx context.Context, to, body string) (SendResult, error)
}

// Client posts outbound messages to the provider's REST API.
type Client struct {
	accountSID string
	authToken  string
	fromNumber string
	baseURL    string
	httpClient *http.Client
}

// NewClient constructs a provider client. baseURL is optional and defaults
// to the public API.
func NewClient(accountSID, authToken, fromNumber, baseURL string) (*Client, error) {
	accountSID = strings.TrimSpace(accountSID)
	authToken = strings.TrimSpace(authToken)
	fromNumber = strings.TrimSpace(fromNumber)
	if accountSID == "" || authToken == "" {
		return nil, fmt.Errorf("sms account sid and auth token required")
	}
	if fromNumber == "" {
		return nil, fmt.Errorf("sms from number required")
	}
	if strings.TrimSpace(baseURL) == "" {
		baseURL = defaultAPIBaseURL
	}
	return &Client{
		accountSID: accountSID,
		authToken:  authToken,
		fromNumber: fromNumber,
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}, nil
}

// Send posts one outbound message and returns the provider message id.
func (c *Client) Send(ctx context.Context, to, body string) (SendResult, error) {
	form := url.Values{}
	form.Set("To", to)
	form.Set("From", c.fromNumber)
	form.Set("Body", body)

	endpoint := fmt.Sprintf("%s/2010-04-01/Accounts/%s/Messages.json", c.baseURL, c.accountSID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return SendResult{}, err
	}
	req.SetBasicAuth(c.accountSID, c.authToken)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return SendResult{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		var errResp struct {
			Message string `json:"message"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&errResp)
		if errResp.Message != "" {
			return SendResult{}, fmt.Errorf("sms api error: %s", errResp.Message)
		}
		return SendResult{}, fmt.Errorf("sms api error: %s", resp.Status)
	}
	var out struct {
		SID    string `json:"sid"`
		Status string `json:"status"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return SendResult{}, err
	}
	return SendResult{MessageSID: out.SID, Status: out.Status}, nil
}
