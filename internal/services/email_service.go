package services

import (
	"bytes"
	"context"
	"fmt"
	"html/template"

	"gopkg.in/mail.v2"

	"reliefapp/internal/config"
	"reliefapp/internal/models"
	"reliefapp/internal/observability"
	"reliefapp/internal/serviceinterfaces"
	contextutils "reliefapp/internal/utils"
)

// EmailService implements serviceinterfaces.EmailService using gomail
type EmailService struct {
	cfg    *config.Config
	logger *observability.Logger
	dialer *mail.Dialer
}

// Ensure EmailService implements the interface
var _ serviceinterfaces.EmailService = (*EmailService)(nil)

// NewEmailService creates a new EmailService instance
func NewEmailService(cfg *config.Config, logger *observability.Logger) *EmailService {
	var dialer *mail.Dialer
	if cfg.Email.Enabled && cfg.Email.SMTP.Host != "" {
		dialer = mail.NewDialer(
			cfg.Email.SMTP.Host,
			cfg.Email.SMTP.Port,
			cfg.Email.SMTP.Username,
			cfg.Email.SMTP.Password,
		)
	}

	return &EmailService{
		cfg:    cfg,
		logger: logger,
		dialer: dialer,
	}
}

// IsEnabled returns whether email sending is configured
func (s *EmailService) IsEnabled() bool {
	return s.dialer != nil
}

var shareLinkTemplate = template.Must(template.New("share_link").Parse(`
<p>Hello,</p>
<p>{{.SenderName}} shared the report <strong>{{.ReportTitle}}</strong> with you.</p>
<p><a href="{{.ShareURL}}">Open the report</a></p>
<p>Anyone with this link can view the report's published sections.</p>
`))

// SendShareLinkEmail sends a report share link to a recipient
func (s *EmailService) SendShareLinkEmail(ctx context.Context, to string, report *models.Report, shareURL, senderName string) (err error) {
	ctx, span := observability.TraceShareFunction(ctx, "SendShareLinkEmail",
		observability.AttributeReportID(report.ID),
	)
	defer observability.FinishSpan(span, &err)

	if !contextutils.IsValidEmail(to) {
		return contextutils.WrapErrorf(contextutils.ErrInvalidFormat, "invalid recipient %q", to)
	}

	var body bytes.Buffer
	err = shareLinkTemplate.Execute(&body, map[string]interface{}{
		"SenderName":  senderName,
		"ReportTitle": report.Title,
		"ShareURL":    shareURL,
	})
	if err != nil {
		return contextutils.WrapErrorf(err, "failed to render share email")
	}

	subject := fmt.Sprintf("%s shared a report with you: %s", senderName, report.Title)
	return s.send(ctx, to, subject, body.String())
}

// SendEmail sends a generic email. templateName selects a registered template;
// unknown names fall back to a plain-text body from data["body"].
func (s *EmailService) SendEmail(ctx context.Context, to, subject, templateName string, data map[string]interface{}) (err error) {
	ctx, span := observability.TraceShareFunction(ctx, "SendEmail")
	defer observability.FinishSpan(span, &err)

	var body string
	switch templateName {
	case "share_link":
		var buf bytes.Buffer
		if err := shareLinkTemplate.Execute(&buf, data); err != nil {
			return contextutils.WrapErrorf(err, "failed to render template %q", templateName)
		}
		body = buf.String()
	default:
		body, _ = data["body"].(string)
	}
	return s.send(ctx, to, subject, body)
}

func (s *EmailService) send(ctx context.Context, to, subject, htmlBody string) error {
	if !s.IsEnabled() {
		return contextutils.ErrEmailNotConfigured
	}

	msg := mail.NewMessage()
	msg.SetHeader("From", s.cfg.Email.SMTP.FromAddress)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/html", htmlBody)

	if err := s.dialer.DialAndSend(msg); err != nil {
		s.logger.Error(ctx, "Failed to send email", err, map[string]interface{}{
			"subject": subject,
		})
		return contextutils.WrapErrorf(err, "failed to send email")
	}

	s.logger.Info(ctx, "Email sent", map[string]interface{}{
		"subject": subject,
	})
	return nil
}
