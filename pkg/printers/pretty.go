package printers

import (
	"fmt"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/gosuri/uitable"

	"github.com/havenapp/haven/pkg/bus"
	"github.com/havenapp/haven/pkg/companion"
	"github.com/havenapp/haven/pkg/journal"
	"github.com/havenapp/haven/pkg/milestone"
	"github.com/havenapp/haven/pkg/tasks"
	"github.com/havenapp/haven/pkg/timeutil"
)

type PrettyPrint struct {
	ShowID bool
}

var spacing = strings.Repeat(" ", len("01HYQZ1234567890ABCDEFGHJK  "))

func (pp *PrettyPrint) NewLine() {
	fmt.Println("")
}

func (pp *PrettyPrint) Title(title string) {
	t := color.New(color.Bold, color.Underline)

	if pp.ShowID {
		_, _ = t.Print(spacing)
	}
	_, _ = t.Println(title)
}

func (pp *PrettyPrint) TitleWithCount(title string, count int) {
	t := color.New(color.Bold, color.Underline)
	c := color.New(color.Faint)

	if pp.ShowID {
		_, _ = t.Print(spacing)
	}
	_, _ = t.Print(title)
	_, _ = c.Printf(" - %d", count)

	switch count {
	case 1:
		_, _ = c.Println(" entry")
	default:
		_, _ = c.Println(" entries")
	}
}

func (pp *PrettyPrint) none() {
	f := color.New(color.Faint, color.Italic)
	if pp.ShowID {
		_, _ = f.Print(spacing)
	}
	_, _ = f.Print(" none\n\n")
}

func (pp *PrettyPrint) id(id string) {
	y := color.New(color.FgHiYellow, color.Italic, color.Faint)
	_, _ = y.Print(id)
	if pad := len(spacing) - len(id); pad > 0 {
		_, _ = y.Print(strings.Repeat(" ", pad))
	}
}

// Entries prints journal entries, most recent first, with mood and summary.
func (pp *PrettyPrint) Entries(entries ...journal.Entry) {
	if len(entries) == 0 {
		pp.none()
		return
	}

	t := color.New()
	d := color.New(color.Faint)
	s := color.New(color.Italic, color.Faint)

	for _, e := range entries {
		if pp.ShowID {
			pp.id(e.ID)
		}
		mood := ""
		if e.Mood != journal.MoodNone {
			mood = " " + e.Mood.Emoji()
		}
		_, _ = t.Printf("%s%s ", e.Title, mood)
		_, _ = d.Println(e.Date.Local().Format("Mon Jan 2 15:04"))
		if e.Summary != "" {
			if pp.ShowID {
				_, _ = s.Print(spacing)
			}
			_, _ = s.Printf("  %s\n", e.Summary)
		}
	}
	_, _ = t.Println("")
}

// Tasks prints the task collection with completion glyphs.
func (pp *PrettyPrint) Tasks(all ...tasks.Task) {
	if len(all) == 0 {
		pp.none()
		return
	}

	open := color.New()
	done := color.New(color.Faint, color.CrossedOut)

	for _, task := range all {
		if pp.ShowID {
			pp.id(task.ID)
		}
		if task.Completed {
			_, _ = done.Printf("x %s\n", task.Text)
		} else {
			_, _ = open.Printf("• %s\n", task.Text)
		}
	}
	_, _ = open.Println("")
}

// Removals reports tasks a directive or the active cap pushed out.
func (pp *PrettyPrint) Removals(removed ...tasks.Removal) {
	if len(removed) == 0 {
		return
	}
	f := color.New(color.Faint, color.Italic)
	for _, r := range removed {
		_, _ = f.Printf("- removed %q (%s)\n", r.Task.Text, r.Reason)
	}
}

// Milestones prints the achievement table and progress toward the next tier.
func (pp *PrettyPrint) Milestones(statuses []milestone.Status, progress milestone.Progress) {
	tbl := uitable.New()
	tbl.Separator = "  "
	bold := color.New(color.Bold).SprintFunc()
	tbl.AddRow(bold("Milestone"), bold("Goal"), bold("Status"))

	achieved := color.New(color.FgGreen).SprintFunc()
	pending := color.New(color.Faint).SprintFunc()
	for _, s := range statuses {
		state := pending("not yet")
		if s.Achieved {
			state = achieved("achieved " + s.Icon)
			if s.AchievedAt != nil {
				state = achieved(fmt.Sprintf("achieved %s %s", s.Icon, timeutil.Ago(*s.AchievedAt, time.Now())))
			}
		}
		tbl.AddRow(s.Title, fmt.Sprintf("%d tasks", s.Threshold), state)
	}
	_, _ = fmt.Fprintln(color.Output, tbl)

	f := color.New(color.Faint)
	if progress.Complete {
		_, _ = f.Printf("\n%d completed lifetime. All milestones achieved!\n", progress.Count)
		return
	}
	_, _ = f.Printf("\n%d/%d toward %q (%.0f%%)\n",
		progress.Count, progress.Next.Threshold, progress.Next.Title, progress.Percent)
}

// Conversation prints a companion transcript, oldest first.
func (pp *PrettyPrint) Conversation(companionName string, msgs ...companion.Message) {
	if len(msgs) == 0 {
		pp.none()
		return
	}

	user := color.New(color.Bold)
	bot := color.New(color.FgCyan)
	f := color.New(color.Faint, color.Italic)

	for _, msg := range msgs {
		speaker := "you"
		c := user
		if msg.Role == companion.RoleAssistant {
			speaker = companionName
			c = bot
		}
		_, _ = c.Printf("%s: ", speaker)
		_, _ = fmt.Println(msg.Text)
		if msg.TaskUpdates == nil {
			continue
		}
		for _, a := range msg.TaskUpdates.Added {
			_, _ = f.Printf("  + added task %q\n", a.Text)
		}
		for _, r := range msg.TaskUpdates.Removed {
			_, _ = f.Printf("  - removed task %q (%s)\n", r.Text, r.Reason)
		}
	}
	_, _ = fmt.Println("")
}

// Change prints one change notification, for the watch command.
func (pp *PrettyPrint) Change(c bus.Change) {
	f := color.New(color.Faint)
	k := color.New(color.FgHiYellow)
	_, _ = f.Print(time.Now().Format("15:04:05 "))
	_, _ = k.Print(c.Key)
	_, _ = f.Printf(" changed (%d bytes)\n", len(c.Value))
}
