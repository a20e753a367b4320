package companion

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/havenapp/haven/pkg/bus"
	"github.com/havenapp/haven/pkg/journal"
	"github.com/havenapp/haven/pkg/llm"
	"github.com/havenapp/haven/pkg/store"
	"github.com/havenapp/haven/pkg/tasks"
)

type fakeClient struct {
	reply   llm.Reply
	err     error
	gotReq  llm.ConversationRequest
	release chan struct{} // when set, Converse blocks until closed
}

func (f *fakeClient) Converse(_ context.Context, req llm.ConversationRequest) (llm.Reply, error) {
	f.gotReq = req
	if f.release != nil {
		<-f.release
	}
	return f.reply, f.err
}

type fakeEntries struct{ entries []journal.Entry }

func (f *fakeEntries) List() []journal.Entry { return f.entries }

func newTestManager(client Client, entries []journal.Entry) (*Manager, *tasks.Repository, *store.InMemory) {
	kv := store.NewInMemory()
	b := bus.New(nil)
	board := tasks.NewRepository(kv, b, nil)
	m := NewManager(kv, b, client, &fakeEntries{entries: entries}, board, nil)
	return m, board, kv
}

func TestSendRejectsBlankMessage(t *testing.T) {
	m, _, _ := newTestManager(&fakeClient{}, nil)
	_, err := m.Send(context.Background(), "Aria", "   ")
	require.ErrorIs(t, err, ErrInvalidInput)
	assert.Empty(t, m.History("Aria"))
}

func TestSendAppendsBothTurnsAndAppliesDirective(t *testing.T) {
	client := &fakeClient{reply: llm.Reply{
		Response: "A walk sounds perfect.",
		Directive: tasks.Directive{
			NewTasks: []tasks.NewTask{{Text: "Take a walk", Reason: "user wants fresh air"}},
		},
	}}
	m, board, _ := newTestManager(client, nil)

	res, err := m.Send(context.Background(), "Aria", "I feel cooped up.")
	require.NoError(t, err)
	assert.False(t, res.Degraded)
	assert.Equal(t, "A walk sounds perfect.", res.Message.Text)

	require.Len(t, res.Update.Added, 1)
	active := board.Active()
	require.Len(t, active, 1)
	assert.Equal(t, "Take a walk", active[0].Text)

	history := m.History("Aria")
	require.Len(t, history, 2)
	assert.Equal(t, RoleUser, history[0].Role)
	assert.Equal(t, "I feel cooped up.", history[0].Text)
	assert.Equal(t, RoleAssistant, history[1].Role)
	require.NotNil(t, history[1].TaskUpdates)
	assert.Equal(t, "Take a walk", history[1].TaskUpdates.Added[0].Text)
}

func TestSendDegradesToApology(t *testing.T) {
	m, _, _ := newTestManager(&fakeClient{err: llm.ErrUnavailable}, nil)

	res, err := m.Send(context.Background(), "Aria", "Hello?")
	require.NoError(t, err)
	assert.True(t, res.Degraded)
	assert.Equal(t, Apology, res.Message.Text)

	history := m.History("Aria")
	require.Len(t, history, 2)
	assert.Equal(t, "Hello?", history[0].Text)
	assert.Equal(t, Apology, history[1].Text)

	// The failed turn left the companion idle again.
	res, err = m.Send(context.Background(), "Aria", "Still there?")
	require.NoError(t, err)
	assert.True(t, res.Degraded)
}

func TestSendRejectsWhileInFlight(t *testing.T) {
	client := &fakeClient{
		reply:   llm.Reply{Response: "hi"},
		release: make(chan struct{}),
	}
	m, _, _ := newTestManager(client, nil)

	done := make(chan error, 1)
	go func() {
		_, err := m.Send(context.Background(), "Aria", "first")
		done <- err
	}()

	require.Eventually(t, func() bool {
		_, err := m.Send(context.Background(), "Aria", "second")
		return errors.Is(err, ErrBusy)
	}, time.Second, 5*time.Millisecond)

	close(client.release)
	require.NoError(t, <-done)

	// Once the first send finishes the companion accepts messages again.
	_, err := m.Send(context.Background(), "Aria", "third")
	require.NoError(t, err)
}

func TestSendBuildsRequestFromState(t *testing.T) {
	entries := []journal.Entry{
		{Title: "b", Content: "raw content only"},
		{Title: "a", Content: "long text", Summary: "a short summary"},
	}
	client := &fakeClient{reply: llm.Reply{Response: "ok"}}
	m, board, _ := newTestManager(client, entries)

	task, _, err := board.Add("Buy groceries")
	require.NoError(t, err)

	// Seed prior history so the live turn's placement is observable.
	_, err = m.Send(context.Background(), "Aria", "earlier question")
	require.NoError(t, err)

	_, err = m.Send(context.Background(), "Aria", "what now?")
	require.NoError(t, err)

	req := client.gotReq
	assert.Equal(t, []string{"raw content only", "a short summary"}, req.Summaries)
	assert.Equal(t, DefaultPersona, req.UserPersonaText)
	assert.Equal(t, "aria", req.ChatbotPersonaID)
	assert.Equal(t, []string{"what now?"}, req.Questions)

	// History holds the prior exchange but never the live turn.
	require.Len(t, req.ConversationHistory, 2)
	assert.Equal(t, "earlier question", req.ConversationHistory[0].Text)
	assert.Equal(t, "ok", req.ConversationHistory[1].Text)

	require.Len(t, req.CurrentTasks, 1)
	assert.Equal(t, task.ID, req.CurrentTasks[0].ID)
}

func TestPersonaDefaultAndOverride(t *testing.T) {
	m, _, _ := newTestManager(&fakeClient{}, nil)

	assert.Equal(t, DefaultPersona, m.Persona())
	require.ErrorIs(t, m.SetPersona("  "), ErrInvalidInput)

	require.NoError(t, m.SetPersona("A night-owl writer."))
	assert.Equal(t, "A night-owl writer.", m.Persona())
}

func TestClearHistory(t *testing.T) {
	client := &fakeClient{reply: llm.Reply{Response: "hi"}}
	m, _, kv := newTestManager(client, nil)

	_, err := m.Send(context.Background(), "Aria", "hello")
	require.NoError(t, err)
	require.NotEmpty(t, m.History("Aria"))

	require.NoError(t, m.ClearHistory("Aria"))
	assert.Empty(t, m.History("Aria"))
	_, ok := kv.Read(HistoryKeyPrefix + "Aria")
	assert.False(t, ok)
}

func TestHistoriesAreScopedPerCompanion(t *testing.T) {
	client := &fakeClient{reply: llm.Reply{Response: "hi"}}
	m, _, _ := newTestManager(client, nil)

	_, err := m.Send(context.Background(), "Aria", "hello aria")
	require.NoError(t, err)
	_, err = m.Send(context.Background(), "Sage", "hello sage")
	require.NoError(t, err)

	assert.Len(t, m.History("Aria"), 2)
	assert.Len(t, m.History("Sage"), 2)
	assert.Equal(t, "hello aria", m.History("Aria")[0].Text)
	assert.Equal(t, "hello sage", m.History("Sage")[0].Text)
}
