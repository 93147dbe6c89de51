// Package twilio provides a minimal client for the Twilio REST API: outbound
// SMS, WhatsApp messages, and voice calls.
package twilio

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rotisserie/eris"
)

const defaultBaseURL = "https://api.twilio.com/2010-04-01"

// Client performs outbound contact actions via Twilio.
type Client interface {
	SendMessage(ctx context.Context, req MessageRequest) (*MessageResponse, error)
	StartCall(ctx context.Context, req CallRequest) (*CallResponse, error)
}

// MessageRequest parameterizes an outbound SMS or WhatsApp message. For
// WhatsApp, From and To carry the "whatsapp:" prefix.
type MessageRequest struct {
	From string
	To   string
	Body string
}

// MessageResponse is the created message resource.
type MessageResponse struct {
	SID    string `json:"sid"`
	Status string `json:"status"`
}

// CallRequest parameterizes an outbound voice call.
type CallRequest struct {
	From string
	To   string
	// TwiMLURL points at the call instructions document.
	TwiMLURL string
}

// CallResponse is the created call resource.
type CallResponse struct {
	SID    string `json:"sid"`
	Status string `json:"status"`
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the default API base URL.
func WithBaseURL(url string) Option {
	return func(c *httpClient) {
		c.baseURL = url
	}
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

type httpClient struct {
	accountSID string
	authToken  string
	baseURL    string
	http       *http.Client
}

// NewClient creates a Twilio REST client.
func NewClient(accountSID, authToken string, opts ...Option) Client {
	c := &httpClient{
		accountSID: accountSID,
		authToken:  authToken,
		baseURL:    defaultBaseURL,
		http: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *httpClient) SendMessage(ctx context.Context, req MessageRequest) (*MessageResponse, error) {
	form := url.Values{
		"From": {req.From},
		"To":   {req.To},
		"Body": {req.Body},
	}

	var result MessageResponse
	if err := c.postForm(ctx, "/Accounts/"+c.accountSID+"/Messages.json", form, &result); err != nil {
		return nil, eris.Wrap(err, "twilio: send message")
	}
	return &result, nil
}

func (c *httpClient) StartCall(ctx context.Context, req CallRequest) (*CallResponse, error) {
	form := url.Values{
		"From": {req.From},
		"To":   {req.To},
		"Url":  {req.TwiMLURL},
	}

	var result CallResponse
	if err := c.postForm(ctx, "/Accounts/"+c.accountSID+"/Calls.json", form, &result); err != nil {
		return nil, eris.Wrap(err, "twilio: start call")
	}
	return &result, nil
}

func (c *httpClient) postForm(ctx context.Context, path string, form url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, strings.NewReader(form.Encode()))
	if err != nil {
		return eris.Wrap(err, "create request")
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(c.accountSID, c.authToken)

	resp, err := c.http.Do(req)
	if err != nil {
		return eris.Wrap(err, "send request")
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return eris.Wrap(err, "read response")
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return eris.Errorf("unexpected status %d: %s", resp.StatusCode, string(body))
	}

	if err := json.Unmarshal(body, out); err != nil {
		return eris.Wrap(err, "unmarshal response")
	}
	return nil
}
