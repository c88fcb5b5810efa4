package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/leadgen-dashboard/backend/internal/models"
)

// WebhookClient hands personalised campaign messages to an outreach webhook.
type WebhookClient struct {
	url    string
	client *http.Client
}

func NewWebhookClient(url string) *WebhookClient {
	return &WebhookClient{
		url: url,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

type sendRequest struct {
	LeadID      string  `json:"leadId"`
	CampaignID  string  `json:"campaignId"`
	FullName    string  `json:"fullName"`
	Email       *string `json:"email"`
	Phone       *string `json:"phone"`
	LinkedInURL string  `json:"linkedinUrl,omitempty"`
	Message     string  `json:"message"`
}

// Send posts one message. Any 2xx status counts as delivered.
func (c *WebhookClient) Send(ctx context.Context, lead models.Lead, message string) error {
	reqBody, err := json.Marshal(sendRequest{
		LeadID:      lead.ID.String(),
		CampaignID:  lead.CampaignID.String(),
		FullName:    lead.FullName,
		Email:       lead.Email,
		Phone:       lead.Phone,
		LinkedInURL: lead.LinkedInURL,
		Message:     message,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(reqBody))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("unexpected status code: %d body=%q", resp.StatusCode, string(body))
	}
	return nil
}
