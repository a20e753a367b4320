package journal

import "time"

// Mood is the optional feeling tag attached to an entry.
type Mood string

const (
	MoodNone     Mood = ""
	MoodHappy    Mood = "happy"
	MoodSad      Mood = "sad"
	MoodAnxious  Mood = "anxious"
	MoodCalm     Mood = "calm"
	MoodTired    Mood = "tired"
	MoodGrateful Mood = "grateful"
)

// Moods lists every selectable mood in display order.
func Moods() []Mood {
	return []Mood{MoodHappy, MoodSad, MoodAnxious, MoodCalm, MoodTired, MoodGrateful}
}

func (m Mood) Valid() bool {
	if m == MoodNone {
		return true
	}
	for _, known := range Moods() {
		if m == known {
			return true
		}
	}
	return false
}

func (m Mood) Emoji() string {
	switch m {
	case MoodHappy:
		return "😊"
	case MoodSad:
		return "😔"
	case MoodAnxious:
		return "😰"
	case MoodCalm:
		return "😌"
	case MoodTired:
		return "😴"
	case MoodGrateful:
		return "🤗"
	}
	return ""
}

func (m Mood) String() string {
	return string(m)
}

// Entry is one journal entry. Summary is produced by the external
// summarization API from Content and Mood and cached here; it is display
// data, not a second source of truth.
type Entry struct {
	ID            string     `json:"id"`
	Title         string     `json:"title"`
	Content       string     `json:"content"`
	Date          time.Time  `json:"date"`
	Mood          Mood       `json:"mood,omitempty"`
	MoodTimestamp *time.Time `json:"moodTimestamp,omitempty"`
	Summary       string     `json:"summary,omitempty"`
}
