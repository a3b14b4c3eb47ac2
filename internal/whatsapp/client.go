package whatsapp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/sirupsen/logrus"

	"parking-bot-backend/config"
	"parking-bot-backend/internal/message"
)

// ErrNotConfigured is returned when no access token or phone number id is set.
var ErrNotConfigured = errors.New("whatsapp client is not configured")

// Client sends messages through the WhatsApp Cloud API.
type Client struct {
	baseURL       string
	phoneNumberID string
	token         string
	client        *http.Client
}

// NewClient creates a Cloud API client from configuration.
func NewClient(cfg config.WhatsAppConfig) *Client {
	var transport http.RoundTripper = &http.Transport{}
	if cfg.HTTPProxy != "" {
		proxyURL, err := url.Parse(cfg.HTTPProxy)
		if err != nil {
			logrus.Warnf("[WHATSAPP] invalid proxy URL %q: %v; sending without a proxy", cfg.HTTPProxy, err)
		} else {
			transport = &http.Transport{Proxy: http.ProxyURL(proxyURL)}
		}
	}

	return &Client{
		baseURL:       strings.TrimRight(cfg.APIURL, "/"),
		phoneNumberID: cfg.PhoneNumberID,
		token:         cfg.Token,
		client: &http.Client{
			Transport: transport,
			Timeout:   cfg.Timeout,
		},
	}
}

// Send delivers one payload to a chat address. A nil error means the API accepted it.
func (c *Client) Send(ctx context.Context, to string, p message.Payload) error {
	if c.token == "" || c.phoneNumberID == "" {
		return ErrNotConfigured
	}

	jsonBody, err := json.Marshal(buildRequest(to, p))
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	endpoint := fmt.Sprintf("%s/%s/messages", c.baseURL, c.phoneNumberID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewBuffer(jsonBody))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("http request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		var apiErr errorResponse
		if json.Unmarshal(body, &apiErr) == nil && apiErr.Error.Message != "" {
			return fmt.Errorf("cloud api status %d: %s (code %d)", resp.StatusCode, apiErr.Error.Message, apiErr.Error.Code)
		}
		return fmt.Errorf("cloud api status %d", resp.StatusCode)
	}

	logrus.WithFields(logrus.Fields{"to": to, "kind": p.Kind}).Debug("[WHATSAPP] message sent")
	return nil
}

type errorResponse struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    int    `json:"code"`
	} `json:"error"`
}

// outboundRequest is the Cloud API send-message body.
type outboundRequest struct {
	MessagingProduct string               `json:"messaging_product"`
	RecipientType    string               `json:"recipient_type"`
	To               string               `json:"to"`
	Type             string               `json:"type"`
	Text             *outboundText        `json:"text,omitempty"`
	Interactive      *outboundInteractive `json:"interactive,omitempty"`
}

type outboundText struct {
	PreviewURL bool   `json:"preview_url"`
	Body       string `json:"body"`
}

type outboundInteractive struct {
	Type   string       `json:"type"`
	Header *textObject  `json:"header,omitempty"`
	Body   textObject   `json:"body"`
	Footer *textObject  `json:"footer,omitempty"`
	Action actionObject `json:"action"`
}

type textObject struct {
	Type string `json:"type,omitempty"`
	Text string `json:"text"`
}

type actionObject struct {
	Button   string          `json:"button,omitempty"`
	Buttons  []replyButton   `json:"buttons,omitempty"`
	Sections []actionSection `json:"sections,omitempty"`
}

type replyButton struct {
	Type  string         `json:"type"`
	Reply message.Option `json:"reply"`
}

type actionSection struct {
	Title string           `json:"title,omitempty"`
	Rows  []message.Option `json:"rows"`
}

func buildRequest(to string, p message.Payload) outboundRequest {
	req := outboundRequest{
		MessagingProduct: "whatsapp",
		RecipientType:    "individual",
		To:               to,
	}

	switch p.Kind {
	case message.KindButtons:
		buttons := make([]replyButton, len(p.Options))
		for i, o := range p.Options {
			buttons[i] = replyButton{Type: "reply", Reply: message.Option{ID: o.ID, Title: o.Title}}
		}
		req.Type = "interactive"
		req.Interactive = interactive("button", p, actionObject{Buttons: buttons})
	case message.KindList:
		req.Type = "interactive"
		req.Interactive = interactive("list", p, actionObject{
			Button:   p.Button,
			Sections: []actionSection{{Rows: p.Options}},
		})
	default:
		req.Type = "text"
		req.Text = &outboundText{Body: p.Body}
	}
	return req
}

func interactive(kind string, p message.Payload, action actionObject) *outboundInteractive {
	out := &outboundInteractive{
		Type:   kind,
		Body:   textObject{Text: p.Body},
		Action: action,
	}
	if p.Header != "" {
		out.Header = &textObject{Type: "text", Text: p.Header}
	}
	if p.Footer != "" {
		out.Footer = &textObject{Text: p.Footer}
	}
	return out
}
