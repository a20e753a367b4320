package tasks

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"

	"github.com/havenapp/haven/pkg/bus"
	"github.com/havenapp/haven/pkg/store"
)

const (
	// StorageKey holds the serialized task collection.
	StorageKey = "todoTasks"
	// CounterKey holds the lifetime completed-task counter, persisted
	// independently of the collection so deletions never roll it back.
	CounterKey = "totalTasksCompleted"

	// MaxActive caps how many incomplete tasks may exist after any
	// repository operation returns.
	MaxActive = 5
	// MaxDirectiveAdds caps how many tasks one directive may add.
	MaxDirectiveAdds = 2

	// AutoRemoveReason is recorded when the cap forces a task out.
	AutoRemoveReason = "Automatically removed to maintain task limit of 5"
)

var (
	ErrInvalidInput = errors.New("tasks: invalid input")
	ErrNotFound     = errors.New("tasks: task not found")
)

// Repository owns the task collection and the lifetime completed counter.
// The counter is a ratchet: it moves up exactly once per false-to-true
// completion and is never decremented, so milestone evaluation can trust it
// regardless of later deletions or un-completions.
type Repository struct {
	kv      store.KV
	bus     *bus.Bus
	now     func() time.Time
	entropy *rand.Rand
	log     *zap.Logger
}

func NewRepository(kv store.KV, b *bus.Bus, log *zap.Logger) *Repository {
	if log == nil {
		log = zap.NewNop()
	}
	return &Repository{
		kv:      kv,
		bus:     b,
		now:     time.Now,
		entropy: rand.New(rand.NewSource(time.Now().UnixNano())),
		log:     log,
	}
}

func (r *Repository) newID(at time.Time) string {
	return ulid.MustNew(ulid.Timestamp(at), r.entropy).String()
}

// List returns the task collection in stored order, newest first.
func (r *Repository) List() []Task {
	raw, ok := r.kv.Read(StorageKey)
	if !ok {
		return []Task{}
	}
	var tasks []Task
	if err := json.Unmarshal([]byte(raw), &tasks); err != nil {
		r.log.Warn("task collection unreadable, treating as empty", zap.Error(err))
		return []Task{}
	}
	return tasks
}

// Active returns the incomplete tasks in stored order.
func (r *Repository) Active() []Task {
	active := make([]Task, 0, MaxActive)
	for _, t := range r.List() {
		if !t.Completed {
			active = append(active, t)
		}
	}
	return active
}

// Lifetime returns the lifetime completed counter. The persisted value is
// floored at the number of currently completed tasks so a lost counter write
// can only under-report, never regress below observable state.
func (r *Repository) Lifetime() int {
	stored := 0
	if raw, ok := r.kv.Read(CounterKey); ok {
		if n, err := strconv.Atoi(strings.TrimSpace(raw)); err == nil && n > 0 {
			stored = n
		}
	}
	completed := 0
	for _, t := range r.List() {
		if t.Completed {
			completed++
		}
	}
	if completed > stored {
		stored = completed
	}
	return stored
}

// Add creates an active task from text, prepends it, and enforces the active
// cap. Forced removals are returned so callers can report them.
func (r *Repository) Add(text string) (Task, []Removal, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Task{}, nil, fmt.Errorf("%w: task text required", ErrInvalidInput)
	}

	now := r.now()
	task := Task{
		ID:        r.newID(now),
		Text:      text,
		CreatedAt: now,
	}

	all := append([]Task{task}, r.List()...)
	all, trimmed := enforceCap(all)
	if err := r.persist(all); err != nil {
		return Task{}, nil, err
	}
	return task, trimmed, nil
}

// Toggle flips completion for the task with the given id. Completing a task
// bumps the lifetime counter by exactly one; un-completing clears the
// completion timestamp and leaves the counter alone.
func (r *Repository) Toggle(id string) (Task, error) {
	all := r.List()
	idx := -1
	for i := range all {
		if all[i].ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return Task{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	t := all[idx]
	if !t.Completed {
		next := r.Lifetime() + 1
		if err := r.kv.Write(CounterKey, strconv.Itoa(next)); err != nil {
			return Task{}, err
		}
		r.bus.Publish(CounterKey, strconv.Itoa(next))

		now := r.now()
		t.Completed = true
		t.CompletedAt = &now
	} else {
		t.Completed = false
		t.CompletedAt = nil
	}
	all[idx] = t

	if err := r.persist(all); err != nil {
		return Task{}, err
	}
	return t, nil
}

// Delete removes the task with the given id. The lifetime counter and
// milestone state are untouched.
func (r *Repository) Delete(id string) error {
	all := r.List()
	kept := all[:0]
	found := false
	for _, t := range all {
		if t.ID == id {
			found = true
			continue
		}
		kept = append(kept, t)
	}
	if !found {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return r.persist(kept)
}

// ClearCompleted removes every completed task and reports how many went.
func (r *Repository) ClearCompleted() (int, error) {
	all := r.List()
	kept := all[:0]
	removed := 0
	for _, t := range all {
		if t.Completed {
			removed++
			continue
		}
		kept = append(kept, t)
	}
	if removed == 0 {
		return 0, nil
	}
	if err := r.persist(kept); err != nil {
		return 0, err
	}
	return removed, nil
}

// ApplyDirective applies a companion task-update directive as one logical
// unit: add up to MaxDirectiveAdds tasks, remove the named ones, re-enforce
// the active cap, then persist and publish once.
func (r *Repository) ApplyDirective(d Directive) (Update, error) {
	if d.Empty() {
		return Update{}, nil
	}

	adds := d.NewTasks
	if len(adds) > MaxDirectiveAdds {
		r.log.Warn("directive adds truncated",
			zap.Int("requested", len(adds)), zap.Int("kept", MaxDirectiveAdds))
		adds = adds[:MaxDirectiveAdds]
	}

	now := r.now()
	added := make([]Task, 0, len(adds))
	for _, nt := range adds {
		text := strings.TrimSpace(nt.Text)
		if text == "" {
			continue
		}
		added = append(added, Task{
			ID:        r.newID(now),
			Text:      text,
			CreatedAt: now,
		})
	}

	all := append(append([]Task{}, added...), r.List()...)

	removed := make([]Removal, 0, len(d.RemoveTasks))
	for _, rt := range d.RemoveTasks {
		all, removed = removeMatching(all, rt, removed)
	}

	all, trimmed := enforceCap(all)
	removed = append(removed, trimmed...)

	update := Update{Added: added, Removed: removed}
	if update.Empty() {
		return update, nil
	}
	if err := r.persist(all); err != nil {
		return Update{}, err
	}
	return update, nil
}

// removeMatching drops the task whose id equals rt.ID, or, when no id
// matches, every task whose text loosely matches rt.ID case-insensitively.
// The text fallback covers models that return task text instead of ids.
func removeMatching(all []Task, rt RemoveTask, removed []Removal) ([]Task, []Removal) {
	needle := strings.TrimSpace(rt.ID)
	if needle == "" {
		return all, removed
	}

	for i, t := range all {
		if t.ID == needle {
			removed = append(removed, Removal{Task: t, Reason: rt.Reason})
			return append(all[:i:i], all[i+1:]...), removed
		}
	}

	lowered := strings.ToLower(needle)
	kept := make([]Task, 0, len(all))
	for _, t := range all {
		text := strings.ToLower(t.Text)
		if strings.Contains(text, lowered) || strings.Contains(lowered, text) {
			removed = append(removed, Removal{Task: t, Reason: rt.Reason})
			continue
		}
		kept = append(kept, t)
	}
	return kept, removed
}

// enforceCap trims the oldest active tasks by creation time until at most
// MaxActive remain active.
func enforceCap(all []Task) ([]Task, []Removal) {
	active := make([]Task, 0, len(all))
	for _, t := range all {
		if !t.Completed {
			active = append(active, t)
		}
	}
	excess := len(active) - MaxActive
	if excess <= 0 {
		return all, nil
	}

	sort.SliceStable(active, func(i, j int) bool {
		return active[i].CreatedAt.Before(active[j].CreatedAt)
	})

	drop := make(map[string]bool, excess)
	removed := make([]Removal, 0, excess)
	for _, t := range active[:excess] {
		drop[t.ID] = true
		removed = append(removed, Removal{Task: t, Reason: AutoRemoveReason})
	}

	kept := make([]Task, 0, len(all)-excess)
	for _, t := range all {
		if drop[t.ID] {
			continue
		}
		kept = append(kept, t)
	}
	return kept, removed
}

func (r *Repository) persist(all []Task) error {
	data, err := json.Marshal(all)
	if err != nil {
		return fmt.Errorf("tasks: encode collection: %w", err)
	}
	if err := r.kv.Write(StorageKey, string(data)); err != nil {
		return err
	}
	r.bus.Publish(StorageKey, string(data))
	return nil
}
