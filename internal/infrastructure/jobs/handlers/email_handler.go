package handlers

import (
	"context"
	"fmt"
	"time"

	"github.com/tranvuongduy2003/jobrunner/internal/core/serializer"
	"github.com/tranvuongduy2003/jobrunner/internal/domain/job"
)

// EmailPayload is the typed shape an "email" job's Payload deserializes
// into. EmailType selects which of the sub-handlers below processes it.
type EmailPayload struct {
	EmailType    string                 `json:"email_type"`
	To           string                 `json:"to"`
	Subject      string                 `json:"subject"`
	Body         string                 `json:"body"`
	Username     string                 `json:"username,omitempty"`
	ResetToken   string                 `json:"reset_token,omitempty"`
	ResetURL     string                 `json:"reset_url,omitempty"`
	Recipients   []string               `json:"recipients,omitempty"`
	TemplateID   string                 `json:"template_id,omitempty"`
	TemplateData map[string]interface{} `json:"template_data,omitempty"`
}

// EmailService is the collaborator that actually delivers mail. Production
// wiring would back this with an SMTP or transactional-email provider;
// MockEmailService is the stand-in this repository registers by default.
type EmailService interface {
	SendEmail(ctx context.Context, to, subject, body string) error
	SendBulkEmail(ctx context.Context, recipients []string, subject, body string) error
	SendTemplateEmail(ctx context.Context, to, templateID string, data map[string]interface{}) error
}

// EmailHandler implements job.Handler for the "email" job name.
type EmailHandler struct {
	service    EmailService
	serializer serializer.Serializer
}

func NewEmailHandler(service EmailService, s serializer.Serializer) *EmailHandler {
	return &EmailHandler{service: service, serializer: s}
}

func (h *EmailHandler) Name() string { return "email" }

func (h *EmailHandler) Execute(hctx job.HandlerContext) ([]byte, error) {
	var p EmailPayload
	if err := h.serializer.Deserialize(hctx.Payload, &p); err != nil {
		return nil, fmt.Errorf("invalid email payload: %w", err)
	}

	ctx := context.Background()

	var err error
	switch p.EmailType {
	case "welcome":
		err = h.sendWelcome(ctx, p)
	case "password_reset":
		err = h.sendPasswordReset(ctx, p)
	case "notification":
		err = h.sendNotification(ctx, p)
	case "bulk":
		err = h.sendBulk(ctx, p)
	case "template":
		err = h.sendTemplate(ctx, p)
	default:
		err = h.service.SendEmail(ctx, p.To, p.Subject, p.Body)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to send email: %w", err)
	}

	return h.serializer.Serialize(map[string]string{"status": "sent", "email_type": p.EmailType})
}

func (h *EmailHandler) sendWelcome(ctx context.Context, p EmailPayload) error {
	subject := "Welcome!"
	body := fmt.Sprintf(`
		<h1>Welcome %s!</h1>
		<p>Thank you for signing up. We're excited to have you on board!</p>
		<p>Get started by exploring our features and documentation.</p>
		<p>Best regards,<br>The Team</p>
	`, p.Username)

	return h.service.SendEmail(ctx, p.To, subject, body)
}

func (h *EmailHandler) sendPasswordReset(ctx context.Context, p EmailPayload) error {
	resetURL := p.ResetURL
	if resetURL == "" {
		resetURL = fmt.Sprintf("https://example.com/reset-password?token=%s", p.ResetToken)
	}

	subject := "Password Reset Request"
	body := fmt.Sprintf(`
		<h1>Password Reset</h1>
		<p>You requested a password reset for your account.</p>
		<p>Click the link below to reset your password:</p>
		<p><a href="%s">Reset Password</a></p>
		<p>This link will expire in 1 hour.</p>
		<p>If you didn't request this, please ignore this email.</p>
	`, resetURL)

	return h.service.SendEmail(ctx, p.To, subject, body)
}

func (h *EmailHandler) sendNotification(ctx context.Context, p EmailPayload) error {
	wrappedBody := fmt.Sprintf(`
		<div style="padding: 20px; border-left: 4px solid #007cba;">
			<h2>Notification</h2>
			%s
			<hr>
			<p style="font-size: 12px; color: #666;">
				This is an automated notification.
			</p>
		</div>
	`, p.Body)

	return h.service.SendEmail(ctx, p.To, p.Subject, wrappedBody)
}

func (h *EmailHandler) sendBulk(ctx context.Context, p EmailPayload) error {
	if len(p.Recipients) == 0 {
		return fmt.Errorf("no recipients specified for bulk email")
	}

	return h.service.SendBulkEmail(ctx, p.Recipients, p.Subject, p.Body)
}

func (h *EmailHandler) sendTemplate(ctx context.Context, p EmailPayload) error {
	if p.TemplateID == "" {
		return fmt.Errorf("template_id is required for template emails")
	}

	return h.service.SendTemplateEmail(ctx, p.To, p.TemplateID, p.TemplateData)
}

var _ job.Handler = (*EmailHandler)(nil)

// MockEmailService is a development stand-in that logs instead of
// dispatching real mail, and fails deterministically for fail@example.com
// so retry/backoff behavior is exercisable end-to-end without an SMTP
// server.
type MockEmailService struct{}

func NewMockEmailService() *MockEmailService {
	return &MockEmailService{}
}

func (m *MockEmailService) SendEmail(ctx context.Context, to, subject, body string) error {
	time.Sleep(100 * time.Millisecond)

	if to == "fail@example.com" {
		return fmt.Errorf("failed to send email to %s", to)
	}

	fmt.Printf("email sent to %s: %s\n", to, subject)
	return nil
}

func (m *MockEmailService) SendBulkEmail(ctx context.Context, recipients []string, subject, body string) error {
	time.Sleep(time.Duration(len(recipients)) * 50 * time.Millisecond)

	for _, recipient := range recipients {
		if err := m.SendEmail(ctx, recipient, subject, body); err != nil {
			return err
		}
	}

	return nil
}

func (m *MockEmailService) SendTemplateEmail(ctx context.Context, to, templateID string, data map[string]interface{}) error {
	time.Sleep(150 * time.Millisecond)

	fmt.Printf("template email sent to %s using template %s\n", to, templateID)
	return nil
}
