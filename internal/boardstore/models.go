package boardstore

// TaskStatus is the lifecycle state of a Task.
type TaskStatus string

const (
	StatusToDo       TaskStatus = "ToDo"
	StatusInProgress TaskStatus = "InProgress"
	StatusBlocked    TaskStatus = "Blocked"
	StatusDone       TaskStatus = "Done"
)

// Task is a unit of work that may be assigned to an Agent.
type Task struct {
	ID          int        `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Status      TaskStatus `json:"status"`
	AgentID     *int       `json:"agent_id,omitempty"`
	Comment     string     `json:"comment,omitempty"`
}

// Board is the full set of tasks, persisted as board.json.
type Board struct {
	Tasks  []Task `json:"tasks"`
	NextID int    `json:"next_id"`
}

// FunctionDeclaration describes a tool an Agent may call, in a
// JSON-Schema-shaped form suitable for a provider's tools payload.
type FunctionDeclaration struct {
	Name        string      `json:"name"`
	Description string      `json:"description,omitempty"`
	Parameters  interface{} `json:"parameters,omitempty"`
}

// Schedule is an agent's cron trigger, stored per agent_id in schedules.json.
type Schedule struct {
	Cron     string `json:"cron"`
	Timezone string `json:"tz"`
	Once     bool   `json:"once"`
}

// Agent is a declarative bundle of system prompt, tool list, and target model.
type Agent struct {
	ID           int                    `json:"id"`
	SystemPrompt string                 `json:"system_prompt"`
	Tools        []FunctionDeclaration  `json:"tools"`
	Model        string                 `json:"model"`
	Provider     string                 `json:"provider,omitempty"`
	Schedule     *Schedule              `json:"schedule,omitempty"`
}

// AgentsFile is the persisted agents.json document.
type AgentsFile struct {
	Agents []Agent `json:"agents"`
	NextID int     `json:"next_id"`
}

// OKR is an objective with its key results.
type OKR struct {
	Objective  string   `json:"objective"`
	KeyResults []string `json:"key_results"`
}

// EmailConfig holds SMTP (and optionally IMAP) credentials for send_email.
type EmailConfig struct {
	SMTPServer string `json:"smtp_server"`
	SMTPPort   int    `json:"smtp_port"`
	Username   string `json:"username"`
	Password   string `json:"password"`
	IMAPServer string `json:"imap_server,omitempty"`
	IMAPPort   int    `json:"imap_port,omitempty"`
}

// SchedulesFile maps an agent ID to its schedule, stored as schedules.json.
type SchedulesFile map[string]Schedule
