package dispatch

import "strings"

// Template keys used across the jobs.
const (
	TemplateDeadlineReminder = "deadline-reminder"
	TemplateOverdueNotice    = "overdue-notice"
	TemplateWeeklyReport     = "weekly-report"
)

type template struct {
	Subject string
	Body    string
	SMS     string
}

var templates = map[string]template{
	TemplateDeadlineReminder: {
		Subject: "Reminder: {{displayName}} due by {{deadlineDate}}",
		Body: "This is a reminder that your {{displayName}} is due by " +
			"{{deadlineDate}} ({{daysLeft}} days from now). If it is still " +
			"outstanding, please submit it as soon as possible to keep your " +
			"ceremony on schedule.",
		SMS: "{{displayName}} due {{deadlineDate}} ({{daysLeft}} days left).",
	},
	TemplateOverdueNotice: {
		Subject: "Overdue: {{displayName}} deadline has passed",
		Body: "The deadline for your {{displayName}} ({{deadlineDate}}) has " +
			"passed without a submission. Contact your celebrant to discuss " +
			"next steps.",
		SMS: "{{displayName}} is overdue (deadline {{deadlineDate}}). Contact your celebrant.",
	},
	TemplateWeeklyReport: {
		Subject: "Weekly compliance report {{periodStart}} to {{periodEnd}}",
		Body: "Tracked submissions: {{total}}. Overdue: {{overdue}}. Upcoming " +
			"deadlines: {{upcoming7}} within 7 days, {{upcoming14}} within 14 " +
			"days, {{upcoming30}} within 30 days. Change in overdue count since " +
			"last report: {{trendDelta}}.",
		SMS: "Compliance report: {{overdue}} overdue, {{upcoming7}} due within 7 days.",
	},
}

func lookupTemplate(key string) (template, bool) {
	tmpl, ok := templates[key]
	return tmpl, ok
}

// render substitutes {{name}} placeholders. Unknown placeholders are left in
// place so broken variable maps are visible in the delivered message.
func render(text string, vars map[string]string) string {
	for key, value := range vars {
		text = strings.ReplaceAll(text, "{{"+key+"}}", value)
	}
	return text
}
