package journal

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/havenapp/haven/pkg/bus"
	"github.com/havenapp/haven/pkg/store"
)

type fakeSummarizer struct {
	summary string
	err     error
	calls   int
}

func (f *fakeSummarizer) Summarize(_ context.Context, _ string, _ Mood) (string, error) {
	f.calls++
	return f.summary, f.err
}

func newTestRepo(sum Summarizer) (*Repository, *store.InMemory) {
	kv := store.NewInMemory()
	r := NewRepository(kv, bus.New(nil), sum, nil)
	return r, kv
}

func TestSaveRoundTrip(t *testing.T) {
	r, _ := newTestRepo(&fakeSummarizer{summary: "a good day"})

	res, err := r.Save(context.Background(), Input{
		Title:   "Morning pages",
		Content: "Went for a walk before breakfast.",
		Mood:    MoodCalm,
	})
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if res.SummaryDegraded {
		t.Fatal("summary should not be degraded")
	}

	entries := r.List()
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	e := entries[0]
	if e.ID != res.Entry.ID || e.Title != "Morning pages" ||
		e.Content != "Went for a walk before breakfast." || e.Mood != MoodCalm {
		t.Fatalf("round trip mismatch: %+v", e)
	}
	if e.Summary != "a good day" {
		t.Fatalf("expected summary attached, got %q", e.Summary)
	}
	if e.MoodTimestamp == nil {
		t.Fatal("expected mood timestamp for entry with mood")
	}
}

func TestListOrdersMostRecentFirst(t *testing.T) {
	r, _ := newTestRepo(&fakeSummarizer{})

	base := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	for i, title := range []string{"first", "second", "third"} {
		ts := base.Add(time.Duration(i) * time.Hour)
		r.now = func() time.Time { return ts }
		if _, err := r.Save(context.Background(), Input{Title: title, Content: "c"}); err != nil {
			t.Fatalf("save %s: %v", title, err)
		}
	}

	entries := r.List()
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}
	for i, want := range []string{"third", "second", "first"} {
		if entries[i].Title != want {
			t.Fatalf("position %d: expected %q, got %q", i, want, entries[i].Title)
		}
	}
}

func TestSaveRejectsBlankInput(t *testing.T) {
	r, _ := newTestRepo(&fakeSummarizer{})
	if _, err := r.Save(context.Background(), Input{Title: "  ", Content: "body"}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	if _, err := r.Save(context.Background(), Input{Title: "t", Content: " \n"}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestSaveWithFailingSummarizerPersistsFallback(t *testing.T) {
	r, _ := newTestRepo(&fakeSummarizer{err: errors.New("http 500")})

	res, err := r.Save(context.Background(), Input{
		Title:   "Rough day",
		Content: "Everything went sideways.",
		Mood:    MoodAnxious,
	})
	if err != nil {
		t.Fatalf("save must succeed despite summarizer failure, got %v", err)
	}
	if !res.SummaryDegraded {
		t.Fatal("expected degraded summary to be reported")
	}

	entries := r.List()
	if len(entries) != 1 {
		t.Fatalf("expected entry to persist, got %d entries", len(entries))
	}
	e := entries[0]
	if e.Summary != FallbackSummary {
		t.Fatalf("expected fallback summary, got %q", e.Summary)
	}
	if e.Title != "Rough day" || e.Content != "Everything went sideways." || e.Mood != MoodAnxious {
		t.Fatalf("entry content lost on degraded save: %+v", e)
	}
}

func TestSaveWithoutMoodSkipsSummarizer(t *testing.T) {
	sum := &fakeSummarizer{summary: "unused"}
	r, _ := newTestRepo(sum)

	res, err := r.Save(context.Background(), Input{Title: "t", Content: "c"})
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if sum.calls != 0 {
		t.Fatalf("summarizer must not be called without a mood, got %d calls", sum.calls)
	}
	if res.Entry.Summary != "" {
		t.Fatalf("expected no summary, got %q", res.Entry.Summary)
	}
}

func TestUpdatePreservesIDAndMoodTimestamp(t *testing.T) {
	r, _ := newTestRepo(&fakeSummarizer{summary: "s"})

	created := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	r.now = func() time.Time { return created }
	res, err := r.Save(context.Background(), Input{Title: "t", Content: "c", Mood: MoodHappy})
	if err != nil {
		t.Fatalf("save: %v", err)
	}

	edited := created.Add(2 * time.Hour)
	r.now = func() time.Time { return edited }
	res2, err := r.Save(context.Background(), Input{
		ID:      res.Entry.ID,
		Title:   "t2",
		Content: "c2",
		Mood:    MoodHappy, // unchanged
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if res2.Entry.ID != res.Entry.ID {
		t.Fatal("update must preserve id")
	}
	if !res2.Entry.MoodTimestamp.Equal(created) {
		t.Fatalf("mood unchanged, timestamp must be preserved: %v", res2.Entry.MoodTimestamp)
	}

	// Changing the mood refreshes its timestamp.
	res3, err := r.Save(context.Background(), Input{
		ID: res.Entry.ID, Title: "t3", Content: "c3", Mood: MoodTired,
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if !res3.Entry.MoodTimestamp.Equal(edited) {
		t.Fatalf("mood changed, timestamp must refresh: %v", res3.Entry.MoodTimestamp)
	}

	if got := len(r.List()); got != 1 {
		t.Fatalf("update must not duplicate entries, got %d", got)
	}
}

func TestDelete(t *testing.T) {
	r, _ := newTestRepo(&fakeSummarizer{})
	res, err := r.Save(context.Background(), Input{Title: "t", Content: "c"})
	if err != nil {
		t.Fatalf("save: %v", err)
	}

	if err := r.Delete(res.Entry.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if got := len(r.List()); got != 0 {
		t.Fatalf("expected empty collection, got %d", got)
	}
	if err := r.Delete(res.Entry.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSaveSurfacesWriteFailure(t *testing.T) {
	kv := store.NewInMemory()
	kv.FailWrites = true
	r := NewRepository(kv, bus.New(nil), &fakeSummarizer{}, nil)

	_, err := r.Save(context.Background(), Input{Title: "t", Content: "c"})
	if !errors.Is(err, store.ErrWriteFailed) {
		t.Fatalf("expected ErrWriteFailed, got %v", err)
	}
}

func TestSaveRecordsLastMood(t *testing.T) {
	r, kv := newTestRepo(&fakeSummarizer{summary: "s"})
	if _, err := r.Save(context.Background(), Input{Title: "t", Content: "c", Mood: MoodGrateful}); err != nil {
		t.Fatalf("save: %v", err)
	}
	raw, ok := kv.Read(LastMoodKey)
	if !ok {
		t.Fatal("expected lastMoodData to be written")
	}
	if want := `"lastMood":"grateful"`; !strings.Contains(raw, want) {
		t.Fatalf("expected %s in %s", want, raw)
	}
}
