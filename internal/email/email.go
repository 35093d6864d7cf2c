// Package email provides email sending functionality
package email

import (
	"bytes"
	"crypto/tls"
	"fmt"
	"html/template"
	"net/smtp"
	"strings"

	"go.uber.org/zap"
)

// Config holds email configuration
type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	From     string
	FromName string
	UseTLS   bool
}

// Service handles email sending
type Service struct {
	config    *Config
	templates map[string]*template.Template
	log       *zap.Logger
}

// NewService creates a new email service
func NewService(config *Config, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Service{
		config:    config,
		templates: make(map[string]*template.Template),
		log:       log.Named("email"),
	}
	s.loadTemplates()
	return s
}

// Email represents an email message
type Email struct {
	To       []string
	Subject  string
	HTMLBody string
}

// MemberAddedData holds data for the "added to workspace" email.
type MemberAddedData struct {
	MemberName    string
	WorkspaceName string
	AddedBy       string
	WorkspaceURL  string
}

func (s *Service) loadTemplates() {
	s.templates["member_added"] = template.Must(template.New("member_added").Parse(`
<!DOCTYPE html>
<html>
<head>
    <style>
        body { font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, Helvetica, Arial, sans-serif; }
        .container { max-width: 600px; margin: 0 auto; padding: 20px; }
        .header { background: #10b981; color: white; padding: 24px; border-radius: 8px 8px 0 0; }
        .content { background: #f9fafb; padding: 24px; border-radius: 0 0 8px 8px; }
        .btn { display: inline-block; background: #10b981; color: white; padding: 12px 20px; text-decoration: none; border-radius: 6px; margin-top: 16px; }
        .footer { margin-top: 24px; font-size: 12px; color: #6b7280; text-align: center; }
    </style>
</head>
<body>
<div class="container">
    <div class="header">
        <h2>You've been added to {{.WorkspaceName}}</h2>
    </div>
    <div class="content">
        <p>Hi {{.MemberName}},</p>
        <p><strong>{{.AddedBy}}</strong> added you to the <strong>{{.WorkspaceName}}</strong> workspace.</p>
        {{if .WorkspaceURL}}<a href="{{.WorkspaceURL}}" class="btn">Open workspace</a>{{end}}
    </div>
    <div class="footer">
        <p>You received this email because a workspace admin added you.</p>
    </div>
</div>
</body>
</html>
`))
}

// Render executes a named template.
func (s *Service) Render(templateName string, data interface{}) (string, error) {
	tmpl, ok := s.templates[templateName]
	if !ok {
		return "", fmt.Errorf("template not found: %s", templateName)
	}
	var body bytes.Buffer
	if err := tmpl.Execute(&body, data); err != nil {
		return "", fmt.Errorf("template execution error: %w", err)
	}
	return body.String(), nil
}

// SendWorkspaceMemberAdded tells a user they were added to a workspace.
func (s *Service) SendWorkspaceMemberAdded(toEmail, toName, workspaceName, inviterName, workspaceURL string) error {
	body, err := s.Render("member_added", MemberAddedData{
		MemberName:    toName,
		WorkspaceName: workspaceName,
		AddedBy:       inviterName,
		WorkspaceURL:  workspaceURL,
	})
	if err != nil {
		return err
	}
	return s.Send(&Email{
		To:       []string{toEmail},
		Subject:  fmt.Sprintf("You've been added to %s", workspaceName),
		HTMLBody: body,
	})
}

// buildMessage renders the RFC 5322 message for an email.
func (s *Service) buildMessage(email *Email) []byte {
	var msg bytes.Buffer
	msg.WriteString(fmt.Sprintf("From: %s <%s>\r\n", s.config.FromName, s.config.From))
	msg.WriteString(fmt.Sprintf("To: %s\r\n", strings.Join(email.To, ", ")))
	msg.WriteString(fmt.Sprintf("Subject: %s\r\n", email.Subject))
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString("Content-Type: text/html; charset=UTF-8\r\n")
	msg.WriteString("\r\n")
	msg.WriteString(email.HTMLBody)
	return msg.Bytes()
}

// Send sends an email. Without a configured host it is a no-op.
func (s *Service) Send(email *Email) error {
	if s.config.Host == "" {
		s.log.Debug("email not configured, skipping send", zap.Strings("to", email.To))
		return nil
	}

	msg := s.buildMessage(email)
	auth := smtp.PlainAuth("", s.config.User, s.config.Password, s.config.Host)
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)

	if !s.config.UseTLS {
		return smtp.SendMail(addr, auth, s.config.From, email.To, msg)
	}

	conn, err := tls.Dial("tcp", addr, &tls.Config{ServerName: s.config.Host})
	if err != nil {
		return fmt.Errorf("TLS dial error: %w", err)
	}
	defer conn.Close()

	client, err := smtp.NewClient(conn, s.config.Host)
	if err != nil {
		return fmt.Errorf("SMTP client error: %w", err)
	}
	defer client.Close()

	if err = client.Auth(auth); err != nil {
		return fmt.Errorf("auth error: %w", err)
	}
	if err = client.Mail(s.config.From); err != nil {
		return fmt.Errorf("mail error: %w", err)
	}
	for _, rcpt := range email.To {
		if err = client.Rcpt(rcpt); err != nil {
			return fmt.Errorf("rcpt error: %w", err)
		}
	}

	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("data error: %w", err)
	}
	if _, err = w.Write(msg); err != nil {
		return fmt.Errorf("write error: %w", err)
	}
	if err = w.Close(); err != nil {
		return fmt.Errorf("close error: %w", err)
	}
	return client.Quit()
}
