package milestone

import (
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/havenapp/haven/pkg/bus"
	"github.com/havenapp/haven/pkg/store"
)

// StorageKey holds the serialized achievement map, keyed by threshold.
const StorageKey = "milestoneStates"

// Tracker evaluates the catalog against the lifetime counter and persists
// achievements. It never un-achieves: a tier that was ever reached stays
// achieved even if the counter it derives from is rebuilt lower.
type Tracker struct {
	kv  store.KV
	bus *bus.Bus
	now func() time.Time
	log *zap.Logger
}

func NewTracker(kv store.KV, b *bus.Bus, log *zap.Logger) *Tracker {
	if log == nil {
		log = zap.NewNop()
	}
	return &Tracker{kv: kv, bus: b, now: time.Now, log: log}
}

func (t *Tracker) states() map[int]State {
	raw, ok := t.kv.Read(StorageKey)
	if !ok {
		return map[int]State{}
	}
	var states map[int]State
	if err := json.Unmarshal([]byte(raw), &states); err != nil {
		t.log.Warn("milestone state unreadable, treating as empty", zap.Error(err))
		return map[int]State{}
	}
	return states
}

// Statuses returns every tier with its current achievement state.
func (t *Tracker) Statuses() []Status {
	states := t.states()
	out := make([]Status, 0, len(Catalog()))
	for _, def := range Catalog() {
		s := states[def.Threshold]
		out = append(out, Status{
			Definition: def,
			Achieved:   s.Achieved,
			AchievedAt: s.AchievedAt,
		})
	}
	return out
}

// Evaluate marks every tier whose threshold the counter has reached. Already
// achieved tiers are left untouched, so achievement timestamps are stable.
// Newly achieved tiers are returned; state is persisted and published only
// when something actually changed.
func (t *Tracker) Evaluate(lifetime int) ([]Definition, error) {
	states := t.states()

	var newly []Definition
	for _, def := range Catalog() {
		if states[def.Threshold].Achieved {
			continue
		}
		if lifetime < def.Threshold {
			continue
		}
		at := t.now()
		states[def.Threshold] = State{Achieved: true, AchievedAt: &at}
		newly = append(newly, def)
		t.log.Info("milestone achieved",
			zap.String("title", def.Title), zap.Int("lifetime", lifetime))
	}
	if len(newly) == 0 {
		return nil, nil
	}

	data, err := json.Marshal(states)
	if err != nil {
		return nil, fmt.Errorf("milestone: encode state: %w", err)
	}
	if err := t.kv.Write(StorageKey, string(data)); err != nil {
		return nil, err
	}
	t.bus.Publish(StorageKey, string(data))
	return newly, nil
}

// NextProgress reports progress toward the first unachieved tier. Percent is
// capped at 100; Complete is set when every tier is achieved.
func (t *Tracker) NextProgress(lifetime int) Progress {
	for _, s := range t.Statuses() {
		if s.Achieved {
			continue
		}
		pct := float64(lifetime) / float64(s.Threshold) * 100
		if pct > 100 {
			pct = 100
		}
		def := s.Definition
		return Progress{Next: &def, Count: lifetime, Percent: pct}
	}
	return Progress{Count: lifetime, Percent: 100, Complete: true}
}
