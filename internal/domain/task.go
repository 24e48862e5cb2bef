package domain

import "time"

// ─── Task Types ─────────────────────────────────────────────────────────────

// TaskStatus is the local state of a social-follow task.
// idle → pending only via explicit user submission; pending → done via the
// local deadline elapsing or authoritative server confirmation, whichever
// arrives first. Server-confirmed fields always override inferred ones.
type TaskStatus string

const (
	TaskIdle    TaskStatus = "idle"
	TaskPending TaskStatus = "pending"
	TaskDone    TaskStatus = "done"
)

// TaskRecord is one entry in the task catalog plus its local progress.
type TaskRecord struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	URL         string     `json:"url"`
	Points      int64      `json:"points"`
	Status      TaskStatus `json:"status"`
	Handle      string     `json:"handle,omitempty"`
	SubmittedAt time.Time  `json:"submitted_at,omitempty"`
	CompleteAt  time.Time  `json:"complete_at,omitempty"` // pending-window deadline
	DoneAt      time.Time  `json:"done_at,omitempty"`
}

// DefaultTaskCatalog returns the built-in social-follow tasks. The server's
// GET /tasks snapshot overrides these on hydration; they exist so the list
// renders before the first round-trip.
func DefaultTaskCatalog() []TaskRecord {
	return []TaskRecord{
		{ID: "x1", Title: "Follow Founder on X", URL: "https://x.com/ads_founder", Points: 20, Status: TaskIdle},
		{ID: "x2", Title: "Follow ADS BOT on X", URL: "https://x.com/ads_bot", Points: 20, Status: TaskIdle},
		{ID: "tg1", Title: "Join Telegram Channel", URL: "https://t.me/ads_channel", Points: 20, Status: TaskIdle},
		{ID: "tg2", Title: "Join Telegram Group", URL: "https://t.me/ads_group", Points: 20, Status: TaskIdle},
		{ID: "wa1", Title: "Join WhatsApp Community", URL: "https://chat.whatsapp.com/ads_community", Points: 20, Status: TaskIdle},
	}
}

// ─── Ledger Wire Types ──────────────────────────────────────────────────────

// TaskSubmission is the payload of POST /tasks/submit.
type TaskSubmission struct {
	TaskID      string    `json:"taskId"`
	Handle      string    `json:"handle,omitempty"`
	SubmittedAt time.Time `json:"submittedAt"`
}

// TaskCompletion is the payload of POST /tasks/complete.
type TaskCompletion struct {
	TaskID string    `json:"taskId"`
	DoneAt time.Time `json:"doneAt"`
}

// TaskServerResponse is the ledger's answer to a submit or complete call.
// Zero-valued fields were omitted by the server and must not override
// locally held values.
type TaskServerResponse struct {
	TaskID        string     `json:"taskId"`
	Status        TaskStatus `json:"status,omitempty"`
	CompleteAt    time.Time  `json:"completeAt,omitempty"`
	ServerNow     time.Time  `json:"serverNow,omitempty"`
	DoneAt        time.Time  `json:"doneAt,omitempty"`
	PointsAwarded int64      `json:"pointsAwarded,omitempty"`
}
