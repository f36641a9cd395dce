// internal/email/mailer/mailer.go
package mailer

import (
	"fmt"
	"time"

	"github.com/casedesk/casedesk/internal/email"
)

// SendInviteEmail delivers an organization invite with its acceptance link.
func SendInviteEmail(svc *email.Service, to, orgName, inviterName, role, inviteURL string, expiresAt time.Time) error {
	data := email.EmailData{
		To:           to,
		FromName:     "Casedesk",
		Subject:      fmt.Sprintf("You have been invited to %s", orgName),
		TemplateName: "invite",
		TemplateData: map[string]string{
			"OrgName":     orgName,
			"InviterName": inviterName,
			"Role":        role,
			"InviteURL":   inviteURL,
			"ExpiresAt":   expiresAt.Format("January 2, 2006"),
		},
	}

	return svc.SendEmail(data)
}

// SendWelcomeEmail greets a newly registered user.
func SendWelcomeEmail(svc *email.Service, to, name, orgName, baseURL string) error {
	data := email.EmailData{
		To:           to,
		FromName:     "Casedesk",
		Subject:      "Welcome to Casedesk",
		TemplateName: "welcome",
		TemplateData: map[string]string{
			"Name":    name,
			"OrgName": orgName,
			"BaseURL": baseURL,
		},
	}

	return svc.SendEmail(data)
}
