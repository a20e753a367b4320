package commands

import (
	"context"

	"go.uber.org/zap"

	"github.com/havenapp/haven/pkg/bus"
	"github.com/havenapp/haven/pkg/companion"
	"github.com/havenapp/haven/pkg/journal"
	"github.com/havenapp/haven/pkg/llm"
	"github.com/havenapp/haven/pkg/milestone"
	"github.com/havenapp/haven/pkg/store"
	"github.com/havenapp/haven/pkg/tasks"
)

var verbose bool

// env wires the persisted store, the notification bus, and every repository
// for one command invocation.
type env struct {
	cfg        store.Config
	kv         *store.Disk
	bus        *bus.Bus
	log        *zap.Logger
	client     *llm.Client
	journal    *journal.Repository
	tasks      *tasks.Repository
	milestones *milestone.Tracker
	companion  *companion.Manager
}

func newEnv() (*env, error) {
	log := zap.NewNop()
	if verbose {
		var err error
		if log, err = zap.NewDevelopment(); err != nil {
			return nil, err
		}
	}

	cfg, err := store.LoadConfig()
	if err != nil {
		return nil, err
	}
	kv, err := store.Open(cfg)
	if err != nil {
		return nil, err
	}

	b := bus.New(log)
	client := llm.New(llm.Options{
		BaseURL:     cfg.BackendURL(),
		APIKey:      cfg.BackendAPIKey(),
		Model:       cfg.BackendModel(),
		MaxAttempts: cfg.RetryAttempts(),
		Logger:      log,
	})

	e := &env{
		cfg:        cfg,
		kv:         kv,
		bus:        b,
		log:        log,
		client:     client,
		journal:    journal.NewRepository(kv, b, summarizer{client}, log),
		tasks:      tasks.NewRepository(kv, b, log),
		milestones: milestone.NewTracker(kv, b, log),
	}
	e.companion = companion.NewManager(kv, b, client, e.journal, e.tasks, log)
	return e, nil
}

// summarizer adapts the backend client to the journal repository boundary.
type summarizer struct {
	client *llm.Client
}

func (s summarizer) Summarize(ctx context.Context, journalText string, mood journal.Mood) (string, error) {
	return s.client.Summarize(ctx, journalText, mood.String())
}
