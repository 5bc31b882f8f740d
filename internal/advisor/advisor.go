// Package advisor turns project details and chat turns into prompts for the
// language model that writes the budgeting advice.
package advisor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"community-budget/internal/metrics"

	"go.uber.org/zap"
)

// ErrUnavailable is returned when the model could not produce a reply:
// transport failure, upstream error status, timeout, or no credentials.
var ErrUnavailable = errors.New("advice generator unavailable")

// Role identifies the author of a transcript turn.
type Role string

const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
)

// Turn is one entry of the conversation sent to the model.
type Turn struct {
	Role Role
	Text string
}

// Generator produces the model's reply to prompt, given the earlier turns.
type Generator interface {
	Generate(ctx context.Context, transcript []Turn, prompt string) (string, error)
}

// Primer steers every conversation. It is stored as the first message of a
// session and is always the first turn sent to the model.
const Primer = `You are a friendly and approachable budget planning assistant that helps people
with projects of ALL sizes. Whether someone is planning a small neighborhood
cleanup that needs $100 or a larger community initiative, you provide equally
thoughtful advice scaled to their needs. Only recommend ideas that foster community.

When helping people:
- Keep explanations simple and clear
- Don't overwhelm with too many details
- Focus on practical, actionable advice
- Be encouraging and supportive
- Avoid jargon or complex financial terms
- Consider both monetary and non-monetary resources
- Suggest creative solutions for limited budgets
- Help think through basic needs first

Remember that small projects are just as important as big ones. Always validate
the person's project goals and help them make the most of whatever resources
they have available.`

const budgetAdviceTemplate = `Help this person plan their community project budget. They shared:
Project: %s
Available Budget: %s
Timeline: %s
Helpers: %s

Please provide simple, practical advice that:
1. Suggests the main things they'll need to budget for
2. Offers 2-3 ideas for making the most of their resources
3. Mentions any important things to think about
4. Gives 1-2 tips for keeping track of expenses

Keep your response friendly, encouraging, and focused on the basics. Fostering community matters most.
Avoid overwhelming them with too much information. Refer to the specific project, budget, timeline and
helpers they described rather than giving generic advice.`

const freeformTemplate = `The user asked: %s

Remember to:
- Keep your response simple and practical
- Scale your advice to their project size
- Be encouraging and supportive
- Focus on the most important points
- Suggest both monetary and non-monetary solutions`

// ProjectInfo holds the four intake answers, verbatim.
type ProjectInfo struct {
	Description string
	Budget      string
	Timeline    string
	Helpers     string
}

// Advisor builds prompts and calls the generator with a deadline.
type Advisor struct {
	gen     Generator
	timeout time.Duration
	log     *zap.Logger
}

// New returns an Advisor. Each generator call is bounded by timeout.
func New(gen Generator, timeout time.Duration, log *zap.Logger) *Advisor {
	return &Advisor{gen: gen, timeout: timeout, log: log}
}

// BudgetAdvicePrompt renders the advice request for info.
func BudgetAdvicePrompt(info ProjectInfo) string {
	return fmt.Sprintf(budgetAdviceTemplate, info.Description, info.Budget, info.Timeline, info.Helpers)
}

// FreeformPrompt renders a follow-up question.
func FreeformPrompt(text string) string {
	return fmt.Sprintf(freeformTemplate, text)
}

// BudgetAdvice asks the model for a first budgeting plan.
func (a *Advisor) BudgetAdvice(ctx context.Context, transcript []Turn, info ProjectInfo) (string, error) {
	return a.call(ctx, "budget_advice", transcript, BudgetAdvicePrompt(info))
}

// FreeformReply answers a follow-up question.
func (a *Advisor) FreeformReply(ctx context.Context, transcript []Turn, text string) (string, error) {
	return a.call(ctx, "freeform_reply", transcript, FreeformPrompt(text))
}

func (a *Advisor) call(ctx context.Context, op string, transcript []Turn, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	start := time.Now()
	reply, err := a.gen.Generate(ctx, withPrimer(transcript), prompt)
	if err == nil && reply == "" {
		err = errors.New("empty reply")
	}
	if err != nil {
		metrics.RecordAdvisorCall(op, "error", time.Since(start))
		a.log.Warn("advice generator failed", zap.String("operation", op), zap.Error(err))
		if errors.Is(err, ErrUnavailable) {
			return "", err
		}
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	metrics.RecordAdvisorCall(op, "ok", time.Since(start))
	return reply, nil
}

// withPrimer guarantees the primer is the first turn the model sees.
func withPrimer(transcript []Turn) []Turn {
	if len(transcript) > 0 && transcript[0].Text == Primer {
		return transcript
	}
	out := make([]Turn, 0, len(transcript)+1)
	out = append(out, Turn{Role: RoleUser, Text: Primer})
	return append(out, transcript...)
}
