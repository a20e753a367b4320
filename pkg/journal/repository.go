package journal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/havenapp/haven/pkg/bus"
	"github.com/havenapp/haven/pkg/store"
)

const (
	// StorageKey holds the serialized entry collection.
	StorageKey = "journalEntries"
	// LastMoodKey tracks the most recently journaled mood.
	LastMoodKey = "lastMoodData"

	// FallbackSummary is persisted when the summarization API fails; the
	// entry itself always saves.
	FallbackSummary = "Unable to generate summary at this time"
)

var (
	ErrInvalidInput = errors.New("journal: invalid input")
	ErrNotFound     = errors.New("journal: entry not found")
)

// Summarizer is the boundary to the external summarization API.
type Summarizer interface {
	Summarize(ctx context.Context, journalText string, mood Mood) (string, error)
}

// Repository owns the journal entry collection. Every mutation rewrites the
// whole collection and publishes StorageKey so other surfaces reload.
type Repository struct {
	kv         store.KV
	bus        *bus.Bus
	summarizer Summarizer
	now        func() time.Time
	log        *zap.Logger
}

func NewRepository(kv store.KV, b *bus.Bus, summarizer Summarizer, log *zap.Logger) *Repository {
	if log == nil {
		log = zap.NewNop()
	}
	return &Repository{
		kv:         kv,
		bus:        b,
		summarizer: summarizer,
		now:        time.Now,
		log:        log,
	}
}

// List returns all entries, most recent first by date. It is a snapshot, not
// a live view; callers re-invoke it after a change notification.
func (r *Repository) List() []Entry {
	raw, ok := r.kv.Read(StorageKey)
	if !ok {
		return []Entry{}
	}
	var entries []Entry
	if err := json.Unmarshal([]byte(raw), &entries); err != nil {
		r.log.Warn("journal collection unreadable, treating as empty", zap.Error(err))
		return []Entry{}
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Date.After(entries[j].Date)
	})
	return entries
}

// Input is the editable surface of an entry. A non-empty ID updates the
// matching entry in place; an empty ID creates a new one.
type Input struct {
	ID      string
	Title   string
	Content string
	Mood    Mood
}

// SaveResult reports what was persisted. SummaryDegraded is set when the
// summarization API failed and FallbackSummary was stored instead; the save
// itself still succeeded.
type SaveResult struct {
	Entry           Entry
	SummaryDegraded bool
}

// Save creates or updates an entry. A summary is regenerated only when both
// content and mood are present; a summarizer failure never blocks the save or
// loses the written content.
func (r *Repository) Save(ctx context.Context, in Input) (SaveResult, error) {
	title := strings.TrimSpace(in.Title)
	content := strings.TrimSpace(in.Content)
	if title == "" || content == "" {
		return SaveResult{}, fmt.Errorf("%w: title and content required", ErrInvalidInput)
	}
	if !in.Mood.Valid() {
		return SaveResult{}, fmt.Errorf("%w: unknown mood %q", ErrInvalidInput, in.Mood)
	}

	var summary string
	degraded := false
	if in.Mood != MoodNone {
		s, err := r.summarizer.Summarize(ctx, content, in.Mood)
		if err != nil {
			r.log.Warn("summarization failed, using fallback",
				zap.String("mood", in.Mood.String()), zap.Error(err))
			summary = FallbackSummary
			degraded = true
		} else {
			summary = strings.TrimSpace(s)
		}
	}

	now := r.now()
	entries := r.List()

	var saved Entry
	if in.ID != "" {
		idx := -1
		for i := range entries {
			if entries[i].ID == in.ID {
				idx = i
				break
			}
		}
		if idx < 0 {
			return SaveResult{}, fmt.Errorf("%w: %s", ErrNotFound, in.ID)
		}
		e := entries[idx]
		e.Title = title
		e.Content = content
		e.Date = now
		if in.Mood != e.Mood {
			e.Mood = in.Mood
			if in.Mood != MoodNone {
				ts := now
				e.MoodTimestamp = &ts
			} else {
				e.MoodTimestamp = nil
			}
		}
		if summary != "" {
			e.Summary = summary
		}
		entries[idx] = e
		saved = e
	} else {
		saved = Entry{
			ID:      uuid.NewString(),
			Title:   title,
			Content: content,
			Date:    now,
			Mood:    in.Mood,
			Summary: summary,
		}
		if in.Mood != MoodNone {
			ts := now
			saved.MoodTimestamp = &ts
		}
		entries = append([]Entry{saved}, entries...)
	}

	if err := r.persist(entries); err != nil {
		return SaveResult{}, err
	}

	if in.Mood != MoodNone {
		r.recordLastMood(in.Mood, now)
	}

	return SaveResult{Entry: saved, SummaryDegraded: degraded}, nil
}

// Delete removes the entry with the given id.
func (r *Repository) Delete(id string) error {
	entries := r.List()
	kept := entries[:0]
	found := false
	for _, e := range entries {
		if e.ID == id {
			found = true
			continue
		}
		kept = append(kept, e)
	}
	if !found {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return r.persist(kept)
}

func (r *Repository) persist(entries []Entry) error {
	data, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("journal: encode entries: %w", err)
	}
	if err := r.kv.Write(StorageKey, string(data)); err != nil {
		return err
	}
	r.bus.Publish(StorageKey, string(data))
	return nil
}

type lastMood struct {
	LastMood          Mood      `json:"lastMood"`
	LastMoodTimestamp time.Time `json:"lastMoodTimestamp"`
}

func (r *Repository) recordLastMood(mood Mood, at time.Time) {
	data, err := json.Marshal(lastMood{LastMood: mood, LastMoodTimestamp: at})
	if err != nil {
		return
	}
	if err := r.kv.Write(LastMoodKey, string(data)); err != nil {
		r.log.Warn("last mood not recorded", zap.Error(err))
		return
	}
	r.bus.Publish(LastMoodKey, string(data))
}
