package companion

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/havenapp/haven/pkg/bus"
	"github.com/havenapp/haven/pkg/journal"
	"github.com/havenapp/haven/pkg/llm"
	"github.com/havenapp/haven/pkg/store"
	"github.com/havenapp/haven/pkg/tasks"
)

const (
	// HistoryKeyPrefix scopes conversation history per companion.
	HistoryKeyPrefix = "conversationHistory_"
	// PersonaKey holds the user's free-text persona.
	PersonaKey = "userPersona"

	// DefaultPersona is used until the user writes their own.
	DefaultPersona = "A person interested in self-reflection and personal growth through journaling."
	// Apology is appended as the assistant's reply when the backend could
	// not be reached. The conversation is never left hanging.
	Apology = "I apologize, but I'm having trouble connecting right now. Please try again in a moment."
)

var (
	ErrInvalidInput = errors.New("companion: invalid input")
	// ErrBusy rejects a send while another send for the same companion is
	// still in flight.
	ErrBusy = errors.New("companion: send already in progress")
)

// Client is the boundary to the conversation API.
type Client interface {
	Converse(ctx context.Context, req llm.ConversationRequest) (llm.Reply, error)
}

// Entries supplies journal context for a conversation, most recent first.
type Entries interface {
	List() []journal.Entry
}

// TaskBoard is the slice of the task repository a conversation touches.
type TaskBoard interface {
	List() []tasks.Task
	ApplyDirective(tasks.Directive) (tasks.Update, error)
}

// Result is the outcome of one send. Degraded is set when the backend failed
// and Message carries the apology instead of a real reply.
type Result struct {
	Message  Message
	Update   tasks.Update
	Degraded bool
}

// Manager owns per-companion conversation histories. Each companion is a
// small state machine, idle or sending, and a send that fails for any reason
// still lands the conversation back in idle with a visible assistant turn.
type Manager struct {
	kv      store.KV
	bus     *bus.Bus
	client  Client
	entries Entries
	board   TaskBoard
	now     func() time.Time
	log     *zap.Logger

	mu      sync.Mutex
	sending map[string]bool
}

func NewManager(kv store.KV, b *bus.Bus, client Client, entries Entries, board TaskBoard, log *zap.Logger) *Manager {
	if log == nil {
		log = zap.NewNop()
	}
	return &Manager{
		kv:      kv,
		bus:     b,
		client:  client,
		entries: entries,
		board:   board,
		now:     time.Now,
		log:     log,
		sending: map[string]bool{},
	}
}

func historyKey(companion string) string {
	return HistoryKeyPrefix + companion
}

// History returns the persisted transcript for a companion, oldest first.
func (m *Manager) History(companion string) []Message {
	raw, ok := m.kv.Read(historyKey(companion))
	if !ok {
		return []Message{}
	}
	var msgs []Message
	if err := json.Unmarshal([]byte(raw), &msgs); err != nil {
		m.log.Warn("conversation history unreadable, treating as empty",
			zap.String("companion", companion), zap.Error(err))
		return []Message{}
	}
	return msgs
}

// Persona returns the user persona, falling back to DefaultPersona.
func (m *Manager) Persona() string {
	raw, ok := m.kv.Read(PersonaKey)
	if !ok || strings.TrimSpace(raw) == "" {
		return DefaultPersona
	}
	return raw
}

// SetPersona stores the user persona and publishes the change.
func (m *Manager) SetPersona(text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return fmt.Errorf("%w: persona text required", ErrInvalidInput)
	}
	if err := m.kv.Write(PersonaKey, text); err != nil {
		return err
	}
	m.bus.Publish(PersonaKey, text)
	return nil
}

// Send runs one conversational turn with the named companion. The user's
// message is persisted before the backend is called, so it survives any
// failure. A backend failure appends the apology and reports Degraded.
func (m *Manager) Send(ctx context.Context, companion, text string) (Result, error) {
	text = strings.TrimSpace(text)
	if companion == "" || text == "" {
		return Result{}, fmt.Errorf("%w: companion and message required", ErrInvalidInput)
	}

	m.mu.Lock()
	if m.sending[companion] {
		m.mu.Unlock()
		return Result{}, fmt.Errorf("%w: %s", ErrBusy, companion)
	}
	m.sending[companion] = true
	m.mu.Unlock()
	defer func() {
		m.mu.Lock()
		delete(m.sending, companion)
		m.mu.Unlock()
	}()

	history := m.History(companion)

	userMsg := Message{
		ID:        uuid.NewString(),
		Role:      RoleUser,
		Text:      text,
		Timestamp: m.now(),
	}
	withUser := append(append([]Message{}, history...), userMsg)
	if err := m.persist(companion, withUser); err != nil {
		return Result{}, err
	}

	// The live turn rides in Questions, not in the history block.
	req := m.buildRequest(companion, text, history)

	reply, err := m.client.Converse(ctx, req)
	if err != nil {
		m.log.Warn("conversation backend failed",
			zap.String("companion", companion), zap.Error(err))
		apology := Message{
			ID:        uuid.NewString(),
			Role:      RoleAssistant,
			Text:      Apology,
			Timestamp: m.now(),
		}
		if perr := m.persist(companion, append(withUser, apology)); perr != nil {
			return Result{}, perr
		}
		return Result{Message: apology, Degraded: true}, nil
	}

	update, err := m.board.ApplyDirective(reply.Directive)
	if err != nil {
		m.log.Warn("task directive not applied", zap.Error(err))
		update = tasks.Update{}
	}

	assistant := Message{
		ID:          uuid.NewString(),
		Role:        RoleAssistant,
		Text:        reply.Response,
		Timestamp:   m.now(),
		TaskUpdates: summarizeUpdate(update),
	}
	if err := m.persist(companion, append(withUser, assistant)); err != nil {
		return Result{}, err
	}
	return Result{Message: assistant, Update: update}, nil
}

// ClearHistory deletes a companion's transcript.
func (m *Manager) ClearHistory(companion string) error {
	key := historyKey(companion)
	if err := m.kv.Remove(key); err != nil {
		return err
	}
	m.bus.Publish(key, "")
	return nil
}

func (m *Manager) buildRequest(companion, text string, history []Message) llm.ConversationRequest {
	entries := m.entries.List()
	summaries := make([]string, 0, len(entries))
	for _, e := range entries {
		s := e.Summary
		if s == "" {
			s = e.Content
		}
		if s != "" {
			summaries = append(summaries, s)
		}
	}

	turns := make([]llm.Turn, 0, len(history))
	for _, msg := range history {
		turns = append(turns, llm.Turn{Role: msg.Role, Text: msg.Text})
	}

	board := m.board.List()
	refs := make([]llm.TaskRef, 0, len(board))
	for _, t := range board {
		refs = append(refs, llm.TaskRef{ID: t.ID, Text: t.Text, Completed: t.Completed})
	}

	return llm.ConversationRequest{
		Summaries:           summaries,
		UserPersonaText:     m.Persona(),
		ChatbotPersonaID:    strings.ToLower(companion),
		Questions:           []string{text},
		ConversationHistory: turns,
		CurrentTasks:        refs,
	}
}

func (m *Manager) persist(companion string, msgs []Message) error {
	data, err := json.Marshal(msgs)
	if err != nil {
		return fmt.Errorf("companion: encode history: %w", err)
	}
	key := historyKey(companion)
	if err := m.kv.Write(key, string(data)); err != nil {
		return err
	}
	m.bus.Publish(key, string(data))
	return nil
}
