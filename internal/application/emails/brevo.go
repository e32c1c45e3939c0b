// Package emails delivers transactional invite emails. Delivery is best
// effort: the invite row is authoritative and an email failure never fails
// the operation that produced it.
package emails

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

const brevoAPI = "https://api.brevo.com/v3/smtp/email"

// Mailer sends invite emails. Nil means no delivery is configured.
type Mailer interface {
	SendInvite(ctx context.Context, toEmail, groupName, role, inviteLink string) error
}

type brevoSendRequest struct {
	Sender      brevoAddress   `json:"sender"`
	To          []brevoAddress `json:"to"`
	Subject     string         `json:"subject"`
	HTMLContent string         `json:"htmlContent"`
}

type brevoAddress struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

// BrevoClient sends emails through the Brevo transactional API. An empty
// APIKey turns every send into a no-op so local setups need no mail config.
type BrevoClient struct {
	APIKey   string
	MailFrom string
	Client   *http.Client
}

func (c *BrevoClient) from() string {
	if c.MailFrom != "" {
		return c.MailFrom
	}
	return "noreply@learnhub.dev"
}

func (c *BrevoClient) send(ctx context.Context, toEmail, subject, html string) error {
	if c.APIKey == "" {
		return nil
	}
	body := brevoSendRequest{
		Sender:      brevoAddress{Email: c.from(), Name: "LearnHub"},
		To:          []brevoAddress{{Email: toEmail}},
		Subject:     subject,
		HTMLContent: html,
	}
	bodyBytes, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, brevoAPI, bytes.NewReader(bodyBytes))
	if err != nil {
		return err
	}
	req.Header.Set("api-key", c.APIKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.Client == nil {
		c.Client = &http.Client{Timeout: 15 * time.Second}
	}
	resp, err := c.Client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("brevo send failed: status %d", resp.StatusCode)
	}
	return nil
}

// SendInvite emails the invited user a link to respond to a group invitation.
func (c *BrevoClient) SendInvite(ctx context.Context, toEmail, groupName, role, inviteLink string) error {
	if c.APIKey == "" {
		return nil
	}
	subject := fmt.Sprintf("You've been invited to join %s on LearnHub", groupName)
	return c.send(ctx, toEmail, subject, inviteLayout(inviteContent(groupName, role, inviteLink)))
}

func inviteContent(groupName, role, inviteLink string) string {
	return fmt.Sprintf(`
    <h1>You've Been Invited to Join %s</h1>
    <p>Someone invited you to join the group <strong>%s</strong> on <strong>LearnHub</strong> as a <strong>%s</strong>.</p>
    <p>Click the button below to respond to the invitation:</p>
    <center>
      <a href="%s" class="lh-button">View Invitation</a>
    </center>
    <p style="margin-top:20px;font-size:14px;color:#666;">
      This invitation expires in 7 days. If you were not expecting it, you can safely ignore this email.
    </p>
    <p>— The LearnHub Team</p>
`, escapeHTML(groupName), escapeHTML(groupName), escapeHTML(role), inviteLink)
}
