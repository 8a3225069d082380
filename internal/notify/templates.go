package notify

import (
	"fmt"
	"strings"

	"financing-workers/internal/models"
)

type template struct {
	Subject string
	Body    string
	// SMS also sends Body as a text message.
	SMS bool
}

var templates = map[models.NotificationEvent]template{
	models.EventApplicationApproved: {
		Subject: "Your financing application has been approved",
		Body:    "Hello {{recipientName}}, your application {{applicationId}} for {{amount}} has been approved.",
		SMS:     true,
	},
	models.EventApplicationRejected: {
		Subject: "Update on your financing application",
		Body:    "Hello {{recipientName}}, your application {{applicationId}} was not approved. Reason: {{reason}}",
		SMS:     true,
	},
	models.EventMoreInfoRequested: {
		Subject: "More information needed for your application",
		Body:    "Hello {{recipientName}}, we need more information about application {{applicationId}}: {{message}}",
	},
	models.EventApplicationUnderReview: {
		Subject: "Your application is under review",
		Body:    "Hello {{recipientName}}, application {{applicationId}} is now under review.",
	},
	models.EventDualAuthorizationRequested: {
		Subject: "Secondary approval required",
		Body:    "Application {{applicationId}} for {{amount}} needs a second approval before {{requiredBy}}.",
		SMS:     true,
	},
	models.EventInvestmentConfirmed: {
		Subject: "Investment confirmed",
		Body:    "Hello {{recipientName}}, your investment of {{amount}} in {{businessName}} is confirmed. Reference: {{investmentId}}",
		SMS:     true,
	},
	models.EventProfitDistributed: {
		Subject: "Profit distribution",
		Body:    "Hello {{recipientName}}, {{amount}} has been allocated to you for {{period}}.",
	},
	models.EventReviewerAssigned: {
		Subject: "New application assigned to you",
		Body:    "Application {{applicationId}} has been assigned to you with {{priority}} priority, due {{dueDate}}.",
	},
}

// Events lists the notification events with a template.
func Events() []models.NotificationEvent {
	out := make([]models.NotificationEvent, 0, len(templates))
	for e := range templates {
		out = append(out, e)
	}
	return out
}

// renderTemplate replaces {{key}} with data[key] and drops placeholders with no value.
func renderTemplate(tmpl string, data map[string]interface{}) string {
	result := tmpl
	for k, v := range data {
		value := ""
		switch x := v.(type) {
		case nil:
		case string:
			value = x
		case fmt.Stringer:
			value = x.String()
		default:
			value = fmt.Sprintf("%v", x)
		}
		result = strings.ReplaceAll(result, "{{"+k+"}}", value)
	}

	for {
		start := strings.Index(result, "{{")
		if start == -1 {
			break
		}
		end := strings.Index(result[start:], "}}")
		if end == -1 {
			break
		}
		result = result[:start] + result[start+end+2:]
	}
	return result
}
