// Package chat runs the budgeting assistant conversation: four intake
// questions, then advice and follow-up answers from the advisor.
package chat

import (
	"context"
	"errors"
	"strings"

	"community-budget/internal/advisor"
	"community-budget/internal/metrics"
	"community-budget/internal/models"

	"go.uber.org/zap"
)

var (
	// ErrEmptyMessage rejects blank input before any state change.
	ErrEmptyMessage = errors.New("message must not be empty")
	// ErrSessionEnded rejects messages sent to a session that has ended.
	ErrSessionEnded = errors.New("chat session has ended")
)

// Fixed assistant texts.
const (
	DescriptionPrompt = "What would you like to do for your community? Tell me about your project idea."
	BudgetPrompt      = "Do you have a specific amount of money you can use for this project? " +
		"(It's okay if you don't know exactly - you can give a rough estimate or range)"
	TimelinePrompt = "When would you like to do this project? For example: next month, over the summer, etc."
	HelpersPrompt  = "Who will help you with this project? For example: friends, neighbors, volunteers, etc."

	AdviceApology   = "I'm having trouble right now. Could you try asking me again?"
	FreeformApology = "I'm having trouble understanding. Could you try asking that in a different way?"
	Farewell        = "Good luck with your project! Remember you're doing great work for your community!"
)

var terminationKeywords = map[string]bool{"bye": true, "exit": true, "quit": true, "end": true}

// IsTerminationKeyword reports whether text asks to end the conversation.
func IsTerminationKeyword(text string) bool {
	return terminationKeywords[strings.ToLower(strings.TrimSpace(text))]
}

// intakeStep describes one scripted question: the slot the inbound message
// answers, the prompt to send back, and the stage that follows.
type intakeStep struct {
	answers models.ChatSlot
	prompt  string
	next    models.ChatStage
}

var intake = map[models.ChatStage]intakeStep{
	models.StageIntakeDescription: {models.SlotNone, DescriptionPrompt, models.StageIntakeBudget},
	models.StageIntakeBudget:      {models.SlotDescription, BudgetPrompt, models.StageIntakeTimeline},
	models.StageIntakeTimeline:    {models.SlotBudget, TimelinePrompt, models.StageIntakeHelpers},
	models.StageIntakeHelpers:     {models.SlotTimeline, HelpersPrompt, models.StageAdviceReady},
}

// Store is the persistence the engine needs.
type Store interface {
	CreateChatSession(ctx context.Context, userID int64, projectID *int64, primer string) (*models.ChatSession, error)
	GetChatSession(ctx context.Context, id int64) (*models.ChatSession, error)
	AppendChatMessages(ctx context.Context, sessionID int64, from, to models.ChatStage, msgs ...models.ChatMessage) error
	EndChatSession(ctx context.Context, id int64) (bool, error)
	ListChatMessages(ctx context.Context, sessionID int64) ([]models.ChatMessage, error)
}

// Advisor generates the model-written replies.
type Advisor interface {
	BudgetAdvice(ctx context.Context, transcript []advisor.Turn, info advisor.ProjectInfo) (string, error)
	FreeformReply(ctx context.Context, transcript []advisor.Turn, text string) (string, error)
}

// Reply is the engine's answer to one inbound message.
type Reply struct {
	Text  string
	Ended bool
}

// Engine drives chat sessions. It holds no per-session state; everything is
// read from and written to the store on each call.
type Engine struct {
	store   Store
	advisor Advisor
	locker  Locker
	log     *zap.Logger
}

// NewEngine returns an engine. A nil locker selects an in-process MemoryLocker.
func NewEngine(store Store, adv Advisor, locker Locker, log *zap.Logger) *Engine {
	if locker == nil {
		locker = NewMemoryLocker()
	}
	return &Engine{store: store, advisor: adv, locker: locker, log: log}
}

// StartSession opens a session for userID, stores the primer and returns the session id.
func (e *Engine) StartSession(ctx context.Context, userID int64, projectID *int64) (int64, error) {
	cs, err := e.store.CreateChatSession(ctx, userID, projectID, advisor.Primer)
	if err != nil {
		return 0, err
	}
	metrics.ChatSessions.WithLabelValues("started").Inc()
	e.log.Info("chat session started", zap.Int64("session_id", cs.ID), zap.Int64("user_id", userID))
	return cs.ID, nil
}

// Session returns the stored session.
func (e *Engine) Session(ctx context.Context, sessionID int64) (*models.ChatSession, error) {
	return e.store.GetChatSession(ctx, sessionID)
}

// History returns the session transcript, oldest first.
func (e *Engine) History(ctx context.Context, sessionID int64) ([]models.ChatMessage, error) {
	return e.store.ListChatMessages(ctx, sessionID)
}

// EndSession ends an active session. Ending an ended session does nothing.
func (e *Engine) EndSession(ctx context.Context, sessionID int64) error {
	unlock, err := e.locker.Lock(ctx, sessionID)
	if err != nil {
		return err
	}
	defer unlock()

	if _, err := e.store.GetChatSession(ctx, sessionID); err != nil {
		return err
	}
	return e.end(ctx, sessionID)
}

func (e *Engine) end(ctx context.Context, sessionID int64) error {
	changed, err := e.store.EndChatSession(ctx, sessionID)
	if err != nil {
		return err
	}
	if changed {
		metrics.ChatSessions.WithLabelValues("ended").Inc()
		e.log.Info("chat session ended", zap.Int64("session_id", sessionID))
	}
	return nil
}

// HandleMessage processes one user message and returns the assistant's reply.
func (e *Engine) HandleMessage(ctx context.Context, sessionID int64, text string) (Reply, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Reply{}, ErrEmptyMessage
	}

	unlock, err := e.locker.Lock(ctx, sessionID)
	if err != nil {
		return Reply{}, err
	}
	defer unlock()

	cs, err := e.store.GetChatSession(ctx, sessionID)
	if err != nil {
		return Reply{}, err
	}
	if cs.Status == models.ChatEnded {
		return Reply{}, ErrSessionEnded
	}

	if IsTerminationKeyword(text) {
		if err := e.end(ctx, sessionID); err != nil {
			return Reply{}, err
		}
		return Reply{Text: Farewell, Ended: true}, nil
	}

	if step, ok := intake[cs.Stage]; ok {
		err := e.store.AppendChatMessages(ctx, sessionID, cs.Stage, step.next,
			userMessage(text, step.answers, cs.Stage),
			assistantMessage(step.prompt, cs.Stage),
		)
		if err != nil {
			return Reply{}, err
		}
		metrics.ChatTurns.WithLabelValues(string(cs.Stage), "ok").Inc()
		return Reply{Text: step.prompt}, nil
	}

	switch cs.Stage {
	case models.StageAdviceReady:
		return e.adviseOnBasics(ctx, cs, text)
	case models.StageFreeform:
		return e.answerFreeform(ctx, cs, text)
	}
	return Reply{}, errors.New("chat session in unknown stage " + string(cs.Stage))
}

// adviseOnBasics receives the last intake answer and asks for the budget plan.
func (e *Engine) adviseOnBasics(ctx context.Context, cs *models.ChatSession, text string) (Reply, error) {
	history, err := e.store.ListChatMessages(ctx, cs.ID)
	if err != nil {
		return Reply{}, err
	}
	if err := e.store.AppendChatMessages(ctx, cs.ID, cs.Stage, cs.Stage,
		userMessage(text, models.SlotHelpers, cs.Stage)); err != nil {
		return Reply{}, err
	}

	info := projectInfo(history)
	info.Helpers = text

	advice, err := e.advisor.BudgetAdvice(ctx, transcript(history), info)
	if err != nil {
		return e.fallback(ctx, cs, AdviceApology, err)
	}
	if err := e.store.AppendChatMessages(ctx, cs.ID, cs.Stage, models.StageFreeform,
		assistantMessage(advice, cs.Stage)); err != nil {
		return Reply{}, err
	}
	metrics.ChatTurns.WithLabelValues(string(cs.Stage), "ok").Inc()
	return Reply{Text: advice}, nil
}

func (e *Engine) answerFreeform(ctx context.Context, cs *models.ChatSession, text string) (Reply, error) {
	history, err := e.store.ListChatMessages(ctx, cs.ID)
	if err != nil {
		return Reply{}, err
	}
	if err := e.store.AppendChatMessages(ctx, cs.ID, cs.Stage, cs.Stage,
		userMessage(text, models.SlotNone, cs.Stage)); err != nil {
		return Reply{}, err
	}

	answer, err := e.advisor.FreeformReply(ctx, transcript(history), text)
	if err != nil {
		return e.fallback(ctx, cs, FreeformApology, err)
	}
	if err := e.store.AppendChatMessages(ctx, cs.ID, cs.Stage, cs.Stage,
		assistantMessage(answer, cs.Stage)); err != nil {
		return Reply{}, err
	}
	metrics.ChatTurns.WithLabelValues(string(cs.Stage), "ok").Inc()
	return Reply{Text: answer}, nil
}

// fallback stores and returns an apology, leaving the stage unchanged so the
// user can send the same message again.
func (e *Engine) fallback(ctx context.Context, cs *models.ChatSession, apology string, cause error) (Reply, error) {
	e.log.Warn("advisor unavailable, sending apology",
		zap.Int64("session_id", cs.ID), zap.String("stage", string(cs.Stage)), zap.Error(cause))
	if err := e.store.AppendChatMessages(ctx, cs.ID, cs.Stage, cs.Stage,
		assistantMessage(apology, cs.Stage)); err != nil {
		return Reply{}, err
	}
	metrics.ChatTurns.WithLabelValues(string(cs.Stage), "fallback").Inc()
	return Reply{Text: apology}, nil
}

// projectInfo collects the latest answer stored for each intake slot.
func projectInfo(history []models.ChatMessage) advisor.ProjectInfo {
	var info advisor.ProjectInfo
	for _, m := range history {
		if !m.IsUser {
			continue
		}
		switch m.Slot {
		case models.SlotDescription:
			info.Description = m.Content
		case models.SlotBudget:
			info.Budget = m.Content
		case models.SlotTimeline:
			info.Timeline = m.Content
		case models.SlotHelpers:
			info.Helpers = m.Content
		}
	}
	return info
}

func transcript(history []models.ChatMessage) []advisor.Turn {
	turns := make([]advisor.Turn, 0, len(history))
	for _, m := range history {
		role := advisor.RoleModel
		if m.IsUser || m.Content == advisor.Primer {
			role = advisor.RoleUser
		}
		turns = append(turns, advisor.Turn{Role: role, Text: m.Content})
	}
	return turns
}

func userMessage(text string, slot models.ChatSlot, stage models.ChatStage) models.ChatMessage {
	meta := map[string]string{"stage": string(stage)}
	if slot != models.SlotNone {
		meta["slot"] = string(slot)
	}
	return models.ChatMessage{IsUser: true, Content: text, Slot: slot, Metadata: meta}
}

func assistantMessage(text string, stage models.ChatStage) models.ChatMessage {
	return models.ChatMessage{Content: text, Metadata: map[string]string{"stage": string(stage)}}
}
