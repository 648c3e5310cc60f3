// Package chat owns conversation state: one Assistant per chat session runs
// the gate, the planner and the language model for every message and pushes
// state snapshots to subscribers.
package chat

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ashureev/pickleai/internal/domain"
	"github.com/ashureev/pickleai/internal/llm"
	"github.com/ashureev/pickleai/internal/security"
)

var (
	// ErrPromptRejected means a composed system prompt failed validation.
	ErrPromptRejected = errors.New("system prompt failed validation")
	// ErrNoModel means the assistant was built without a language model.
	ErrNoModel = errors.New("language model not configured")
)

// Welcome seeds an empty transcript.
const Welcome = "Hi, I'm PickleAI! Ask me about paddles, DUPR ratings, tournaments, " +
	"drills, strategy or the rules, and I'll tailor my answers to your game."

// Error kinds reported to the Recorder.
const (
	errKindValidation = "validation"
	errKindTimeout    = "timeout"
	errKindUpstream   = "upstream"
)

// LanguageModel is the external completion call.
type LanguageModel interface {
	Complete(ctx context.Context, systemPrompt string, history []domain.ChatMessage, uc domain.UserContext) (string, error)
}

// Gate screens inbound messages. *security.Gate implements it.
type Gate interface {
	Check(ctx context.Context, message, userID string) security.Decision
	RecordViolation(ctx context.Context, userID string) error
}

// Listener receives a state snapshot after every change. Listeners run
// synchronously and must not mutate the Assistant.
type Listener func(domain.ChatState)

// Assistant is the state store and orchestrator for one conversation.
type Assistant struct {
	planner  *Planner
	model    LanguageModel
	gate     Gate
	recorder Recorder
	log      ConversationLogger
	now      func() time.Time

	userID    string
	sessionID string
	channel   string

	// sendMu serializes SendMessage so context updates apply in order.
	sendMu sync.Mutex
	// notifyMu keeps snapshots delivered in mutation order.
	notifyMu sync.Mutex

	mu        sync.RWMutex
	state     domain.ChatState
	nextID    int64
	listeners map[int]Listener
	nextSub   int
}

// Option configures an Assistant.
type Option func(*Assistant)

// WithGate enables the security gate for messages that carry a user id.
func WithGate(g Gate) Option {
	return func(a *Assistant) { a.gate = g }
}

// WithRecorder sets the metrics sink.
func WithRecorder(r Recorder) Option {
	return func(a *Assistant) {
		if r != nil {
			a.recorder = r
		}
	}
}

// WithConversationLogger sets where transcript events are written.
func WithConversationLogger(l ConversationLogger) Option {
	return func(a *Assistant) {
		if l != nil {
			a.log = l
		}
	}
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(a *Assistant) { a.now = now }
}

// WithSession tags log events with the owning user tab.
func WithSession(userID, sessionID, channel string) Option {
	return func(a *Assistant) {
		a.userID = userID
		a.sessionID = sessionID
		a.channel = channel
	}
}

// WithState restores a previously persisted conversation.
func WithState(s domain.ChatState) Option {
	return func(a *Assistant) {
		a.state = s.Clone()
		a.state.Loading = false
		for _, m := range a.state.Messages {
			if m.ID > a.nextID {
				a.nextID = m.ID
			}
		}
	}
}

// NewAssistant creates an assistant with an empty transcript.
func NewAssistant(planner *Planner, model LanguageModel, opts ...Option) *Assistant {
	a := &Assistant{
		planner:   planner,
		model:     model,
		recorder:  noopRecorder{},
		log:       noopConversationLogger{},
		now:       time.Now,
		channel:   "chat",
		listeners: make(map[int]Listener),
		state:     domain.ChatState{Messages: []domain.ChatMessage{}},
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.state.ConversationID == "" {
		a.state.ConversationID = uuid.NewString()
	}
	return a
}

// GetState returns a snapshot of the conversation.
func (a *Assistant) GetState() domain.ChatState {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.state.Clone()
}

// Subscribe registers l and returns a function that removes it.
func (a *Assistant) Subscribe(l Listener) (unsubscribe func()) {
	a.mu.Lock()
	id := a.nextSub
	a.nextSub++
	a.listeners[id] = l
	a.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			a.mu.Lock()
			delete(a.listeners, id)
			a.mu.Unlock()
		})
	}
}

// Subscribers returns the number of registered listeners.
func (a *Assistant) Subscribers() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.listeners)
}

// update applies fn under the state lock and notifies listeners.
func (a *Assistant) update(fn func(s *domain.ChatState)) {
	a.notifyMu.Lock()
	defer a.notifyMu.Unlock()

	a.mu.Lock()
	fn(&a.state)
	snapshot := a.state.Clone()
	listeners := make([]Listener, 0, len(a.listeners))
	for _, l := range a.listeners {
		listeners = append(listeners, l)
	}
	a.mu.Unlock()

	for _, l := range listeners {
		l(snapshot.Clone())
	}
}

// appendMessage must be called from inside update.
func (a *Assistant) appendMessage(s *domain.ChatState, role domain.Role, content string) domain.ChatMessage {
	a.nextID++
	msg := domain.ChatMessage{
		ID:        a.nextID,
		Role:      role,
		Content:   content,
		CreatedAt: a.now(),
	}
	s.Messages = append(s.Messages, msg)
	return msg
}

// InitializeChat seeds the welcome message into an empty transcript.
func (a *Assistant) InitializeChat() {
	a.update(func(s *domain.ChatState) {
		if len(s.Messages) == 0 {
			a.appendMessage(s, domain.RoleAssistant, Welcome)
		}
	})
}

// ClearMessages empties the transcript and starts a new conversation id.
// What is known about the user is kept.
func (a *Assistant) ClearMessages() {
	a.update(func(s *domain.ChatState) {
		s.Messages = []domain.ChatMessage{}
		s.Category = ""
		s.Error = ""
		s.ConversationID = uuid.NewString()
	})
}

// ClearError resets the error field.
func (a *Assistant) ClearError() {
	a.update(func(s *domain.ChatState) { s.Error = "" })
}

// UpdateUserContext merges a manual context override.
func (a *Assistant) UpdateUserContext(partial domain.UserContext) {
	a.update(func(s *domain.ChatState) { s.Context = s.Context.Merge(partial) })
}

// SendMessage runs one turn and returns the resulting state. Blank content
// is ignored. An empty userID bypasses the security gate.
func (a *Assistant) SendMessage(ctx context.Context, content, userID string) domain.ChatState {
	if strings.TrimSpace(content) == "" {
		return a.GetState()
	}

	a.sendMu.Lock()
	defer a.sendMu.Unlock()

	a.update(func(s *domain.ChatState) {
		a.appendMessage(s, domain.RoleUser, content)
		s.Loading = true
		s.Error = ""
	})
	a.logEvent("outbound", EventUserMessage, content, nil)

	if err := a.turn(ctx, content, userID); err != nil {
		kind := errorKind(err)
		a.recorder.ObserveChatError(kind)
		slog.Error("Chat turn failed",
			"user_id", a.userID,
			"session_id", a.sessionID,
			"kind", kind,
			"error", err)
		a.logEvent("inbound", EventError, err.Error(), map[string]any{"kind": kind})
		a.update(func(s *domain.ChatState) { s.Error = err.Error() })
	}

	a.update(func(s *domain.ChatState) { s.Loading = false })
	return a.GetState()
}

// turn returns an error only for failures that belong in the error field.
// Gate rejections are answered with a refusal message instead.
func (a *Assistant) turn(ctx context.Context, content, userID string) error {
	if userID != "" && a.gate != nil {
		decision := a.gate.Check(ctx, content, userID)
		if !decision.Allowed {
			a.refuse(ctx, userID, decision)
			return nil
		}
		a.recorder.ObserveGateDecision("allowed")
	}

	plan := a.planner.Plan(content, a.GetState().Context)
	a.update(func(s *domain.ChatState) {
		s.Context = plan.Context
		if plan.Analysis.Category != nil {
			s.Category = plan.Analysis.Category.Name
		}
	})
	a.recorder.ObserveCategory(plan.Analysis.CategoryName())
	slog.Debug("Message planned",
		"user_id", a.userID,
		"category", plan.Analysis.CategoryName(),
		"confidence", plan.Analysis.Confidence,
		"missing", len(plan.Analysis.MissingInfo),
		"follow_ups", len(plan.FollowUps))

	if !security.ValidateSystemPrompt(plan.Prompt) {
		return ErrPromptRejected
	}
	if a.model == nil {
		return ErrNoModel
	}

	reply, err := a.model.Complete(ctx, plan.Prompt, a.GetState().Messages, plan.Context)
	if err != nil {
		return err
	}

	a.update(func(s *domain.ChatState) { a.appendMessage(s, domain.RoleAssistant, reply) })
	a.logEvent("inbound", EventAssistantMessage, reply, map[string]any{
		"category":   plan.Analysis.CategoryName(),
		"follow_ups": len(plan.FollowUps),
	})
	return nil
}

func (a *Assistant) refuse(ctx context.Context, userID string, d security.Decision) {
	a.recorder.ObserveGateDecision(d.Reason)
	slog.Info("Message rejected by security gate",
		"user_id", userID,
		"session_id", a.sessionID,
		"reason", d.Reason,
		"rate_limited", d.RateLimited)

	if d.IsViolation() {
		if err := a.gate.RecordViolation(ctx, userID); err != nil {
			slog.Warn("Failed to record violation", "user_id", userID, "error", err)
		}
	}

	a.update(func(s *domain.ChatState) { a.appendMessage(s, domain.RoleAssistant, d.SuggestedAlternative) })
	a.logEvent("inbound", EventRefusal, d.SuggestedAlternative, map[string]any{"reason": d.Reason})
}

func (a *Assistant) logEvent(direction, eventType, content string, meta map[string]any) {
	a.log.Log(ConversationLogEvent{
		Timestamp:  a.now().UTC().Format(time.RFC3339Nano),
		UserID:     a.userID,
		SessionID:  a.sessionID,
		Channel:    a.channel,
		Direction:  direction,
		EventType:  eventType,
		ContentRaw: content,
		Content:    cleanForReadability(content),
		Meta:       meta,
	})
}

func errorKind(err error) string {
	switch {
	case errors.Is(err, ErrPromptRejected):
		return errKindValidation
	case errors.Is(err, llm.ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return errKindTimeout
	default:
		return errKindUpstream
	}
}
