package models

import "time"

// ChatStatus is the lifecycle state of a chat session.
type ChatStatus string

const (
	ChatActive ChatStatus = "active"
	ChatEnded  ChatStatus = "ended"
)

// ChatStage tracks which step of the budgeting conversation a session is in.
type ChatStage string

const (
	StageIntakeDescription ChatStage = "intake_description"
	StageIntakeBudget      ChatStage = "intake_budget"
	StageIntakeTimeline    ChatStage = "intake_timeline"
	StageIntakeHelpers     ChatStage = "intake_helpers"
	StageAdviceReady       ChatStage = "advice_ready"
	StageFreeform          ChatStage = "freeform"
)

// ChatSlot tags a user message with the project detail it answers.
type ChatSlot string

const (
	SlotNone        ChatSlot = ""
	SlotDescription ChatSlot = "description"
	SlotBudget      ChatSlot = "budget"
	SlotTimeline    ChatSlot = "timeline"
	SlotHelpers     ChatSlot = "helpers"
)

// ChatSession is one conversation between a user and the budgeting assistant.
type ChatSession struct {
	ID        int64      `json:"id"`
	UserID    int64      `json:"user_id"`
	ProjectID *int64     `json:"project_id"`
	StartedAt time.Time  `json:"started_at"`
	EndedAt   *time.Time `json:"ended_at"`
	Status    ChatStatus `json:"status"`
	Stage     ChatStage  `json:"stage"`
}

// ChatMessage is a single immutable entry in a session transcript.
type ChatMessage struct {
	ID        int64             `json:"-"`
	SessionID int64             `json:"-"`
	IsUser    bool              `json:"is_user"`
	Content   string            `json:"content"`
	Slot      ChatSlot          `json:"-"`
	Metadata  map[string]string `json:"-"`
	Timestamp time.Time         `json:"timestamp"`
}
