package bot

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/example/engdrill/internal/practice"
	"github.com/example/engdrill/internal/scheduler"
	"github.com/example/engdrill/pkg/models"
)

const welcomeText = `Welcome to English Drill! 🎓

I schedule flashcards and sentence exercises with spaced repetition, so you review each item right before you would forget it.

Use /help to see the commands.`

const helpText = `📖 Commands

/session - practise the flashcards that are due
/next - practise a sentence
/refresh - skip the current sentence
/forecast - see what is due and what comes next
/level A1..C2 - change your level
/notify on|off - turn reminders on or off
/time <hour> - hour (UTC) to receive reminders
/remind - check for due reviews now`

var levels = []string{"A1", "A2", "B1", "B2", "C1", "C2"}

func parseLevel(s string) (string, bool) {
	s = strings.ToUpper(strings.TrimSpace(s))
	for _, l := range levels {
		if s == l {
			return l, true
		}
	}
	return "", false
}

func parseHour(s string) (int, error) {
	h, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, err
	}
	if h < 0 || h > 23 {
		return 0, fmt.Errorf("hour %d out of range", h)
	}
	return h, nil
}

// parseGradeCallback decodes "grade:<itemID>:<grade>". Item ids may contain colons.
func parseGradeCallback(data string) (string, models.Grade, error) {
	rest, ok := strings.CutPrefix(data, gradePrefix)
	if !ok {
		return "", 0, fmt.Errorf("not a grade callback")
	}
	i := strings.LastIndex(rest, ":")
	if i <= 0 {
		return "", 0, fmt.Errorf("malformed grade callback")
	}
	n, err := strconv.Atoi(rest[i+1:])
	if err != nil {
		return "", 0, fmt.Errorf("malformed grade: %w", err)
	}
	grade := models.Grade(n)
	if !grade.IsValid() {
		return "", 0, fmt.Errorf("grade %d out of range", n)
	}
	return rest[:i], grade, nil
}

func gradeCallback(itemID string, g models.Grade) string {
	return fmt.Sprintf("%s%s:%d", gradePrefix, itemID, int(g))
}

var gradeLabels = map[models.Grade]string{
	models.GradeAgain:  "🔁 Again",
	models.GradeHard:   "😓 Hard",
	models.GradeGood:   "🙂 Good",
	models.GradeEasy:   "😎 Easy",
	models.GradeExpert: "🏆 Expert",
}

func gradeLabel(g models.Grade) string {
	if l, ok := gradeLabels[g]; ok {
		return l
	}
	return g.String()
}

// gradeButtons lays out one button per grade. When preview has a date for a grade
// the label carries the resulting wait.
func gradeButtons(itemID string, preview map[models.Grade]time.Time, now time.Time) [][]MenuButton {
	row := make([]MenuButton, 0, len(models.Grades))
	for _, g := range models.Grades {
		text := gradeLabel(g)
		if due, ok := preview[g]; ok {
			text += " · " + shortUntil(due, now)
		}
		row = append(row, MenuButton{Text: text, CallbackData: gradeCallback(itemID, g)})
	}
	return [][]MenuButton{row[:2], row[2:]}
}

// formatPrompt renders the question side. left < 0 hides the remaining count.
func formatPrompt(item models.CandidateItem, left int) string {
	var sb strings.Builder
	if item.Type == models.ItemSentence {
		sb.WriteString("✍️ Fill in the gap:\n\n")
	} else {
		sb.WriteString("🃏 ")
	}
	sb.WriteString(item.Prompt)
	if item.Category != "" {
		sb.WriteString("\n\n🏷 " + item.Category)
	}
	if left >= 0 {
		fmt.Fprintf(&sb, "\n\n%d left after this one", left)
	}
	return sb.String()
}

func formatAnswer(item models.CandidateItem) string {
	return fmt.Sprintf("%s\n\n➡️ %s\n\nHow well did you know it?", item.Prompt, item.Answer)
}

// formatUntil renders the wait until t as "in 10 minutes", "in 5 hours" or "in 3 days".
func formatUntil(t, now time.Time) string {
	d := t.Sub(now)
	switch {
	case d <= 0:
		return "now"
	case d < time.Hour:
		return "in " + plural(int(d.Round(time.Minute)/time.Minute), "minute")
	case d < 24*time.Hour:
		return "in " + plural(int(d.Round(time.Hour)/time.Hour), "hour")
	default:
		return "in " + plural(int(d.Round(24*time.Hour)/(24*time.Hour)), "day")
	}
}

// shortUntil is the compact form of formatUntil used on buttons: "10m", "5h", "3d".
func shortUntil(t, now time.Time) string {
	d := t.Sub(now)
	switch {
	case d < time.Minute:
		return "now"
	case d < time.Hour:
		return fmt.Sprintf("%dm", int(d.Round(time.Minute)/time.Minute))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh", int(d.Round(time.Hour)/time.Hour))
	default:
		return fmt.Sprintf("%dd", int(d.Round(24*time.Hour)/(24*time.Hour)))
	}
}

func plural(n int, unit string) string {
	if n == 1 {
		return "1 " + unit
	}
	return fmt.Sprintf("%d %ss", n, unit)
}

func formatForecast(title string, fc practice.Forecast, now time.Time) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s: %d due now", title, fc.DueCount)
	if fc.NextDueAt != nil {
		fmt.Fprintf(&sb, ", next review %s", formatUntil(*fc.NextDueAt, now))
	}
	for i, item := range fc.Upcoming {
		if i == 5 {
			fmt.Fprintf(&sb, "\n  … and %d more", len(fc.Upcoming)-i)
			break
		}
		fmt.Fprintf(&sb, "\n  • %s", item.Prompt)
	}
	return sb.String()
}

func formatReminder(r scheduler.Reminder) string {
	var parts []string
	if r.Cards > 0 {
		parts = append(parts, plural(r.Cards, "flashcard"))
	}
	if r.Sentences > 0 {
		parts = append(parts, plural(r.Sentences, "sentence"))
	}
	return fmt.Sprintf("⏰ You have %s to review! Tap a button below to start.", strings.Join(parts, " and "))
}
