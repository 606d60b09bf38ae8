package mailtemplate

const (
	UserCredentials = "user_credentials"
	TaskAssignment  = "task_assignment"
	TaskReminder    = "task_reminder"
	TaskOverdue     = "task_overdue"
)

type definition struct {
	subject string
	body    string
}

var builtin = map[string]definition{
	UserCredentials: {
		subject: "Welcome to CRM System - Your Account Credentials",
		body: `Dear {{.full_name}},

Welcome to our CRM System! Your account has been created successfully.

Here are your login credentials:

Username: {{.username}}
Password: {{.password}}
Role: {{.role_display}}

Login URL: {{.login_url}}

Please keep these credentials secure and change your password after your first login.

If you have any questions, please contact your system administrator.

Best regards,
CRM System Team
`,
	},
	TaskAssignment: {
		subject: "New Task Assigned: {{.task_title}}",
		body: `Dear {{.assignee_name}},

You have been assigned a new task in the CRM System.

Task Details:
Title: {{.task_title}}
Description: {{.task_description}}
{{.due_date_text}}
Priority: {{.priority}}

Please log in to the CRM system to view more details and update the task status.

Login URL: {{.login_url}}

Best regards,
CRM System Team
`,
	},
	TaskReminder: {
		subject: "Task Reminder: {{.task_title}}",
		body: `Dear {{.assignee_name}},

This is a reminder about your upcoming task.

Task Details:
Title: {{.task_title}}
Description: {{.task_description}}
Due Date: {{.due_date}}
Status: {{.status}}

Please log in to the CRM system to update the task status.

Login URL: {{.login_url}}

Best regards,
CRM System Team
`,
	},
	TaskOverdue: {
		subject: "Overdue Task: {{.task_title}}",
		body: `Dear {{.assignee_name}},

The following task is now overdue and requires immediate attention.

Task Details:
Title: {{.task_title}}
Description: {{.task_description}}
Due Date: {{.due_date}}
Days Overdue: {{.days_overdue}}

Please log in to the CRM system immediately to update the task status.

Login URL: {{.login_url}}

Best regards,
CRM System Team
`,
	},
}
