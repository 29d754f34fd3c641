package tools

import (
	"context"
	"fmt"
	"net/smtp"
	"strconv"

	"github.com/tomatyss/taskter/internal/boardstore"
)

func sendEmailDeclaration() boardstore.FunctionDeclaration {
	return boardstore.FunctionDeclaration{
		Name:        "send_email",
		Description: "Send an email via SMTP using the credentials in email_config.json.",
		Parameters: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"to":      map[string]interface{}{"type": "string"},
				"subject": map[string]interface{}{"type": "string"},
				"body":    map[string]interface{}{"type": "string"},
			},
			"required": []string{"to", "subject", "body"},
		},
	}
}

// EmailConfigLoader is satisfied by *boardstore.Store. Declared as an
// interface so this tool depends only on the method it needs.
type EmailConfigLoader interface {
	LoadEmailConfig() (boardstore.EmailConfig, error)
}

// NewSendEmailTool binds the send_email/email tool to a board store so it
// can read .taskter/email_config.json. Failures to send are folded into a
// successful-looking textual result, matching the contract that this tool
// never throws on offline/misconfigured setups — only a config file that
// cannot be loaded (absent, unreadable, or not valid JSON) surfaces as a
// ToolError, always reported as "Email configuration not found".
func NewSendEmailTool(store EmailConfigLoader) Tool {
	return Tool{
		Declaration: sendEmailDeclaration(),
		Invoke: func(ctx context.Context, args map[string]interface{}) (string, error) {
			to, _ := args["to"].(string)
			subject, _ := args["subject"].(string)
			body, _ := args["body"].(string)

			cfg, err := store.LoadEmailConfig()
			if err != nil {
				return "", fmt.Errorf("Email configuration not found")
			}
			if err := sendViaSMTP(cfg, to, subject, body); err != nil {
				return fmt.Sprintf("Failed to send email: %v", err), nil
			}
			return fmt.Sprintf("Email sent to %s with subject '%s' and body '%s'", to, subject, body), nil
		},
	}
}

func sendViaSMTP(cfg boardstore.EmailConfig, to, subject, body string) error {
	addr := cfg.SMTPServer + ":" + strconv.Itoa(cfg.SMTPPort)
	auth := smtp.PlainAuth("", cfg.Username, cfg.Password, cfg.SMTPServer)
	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\n\r\n%s\r\n", cfg.Username, to, subject, body)
	return smtp.SendMail(addr, auth, cfg.Username, []string{to}, []byte(msg))
}
