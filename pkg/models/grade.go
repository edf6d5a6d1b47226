package models

import (
	"fmt"
	"strings"
)

// Grade is the learner's assessment of a single recall attempt.
type Grade int

const (
	GradeAgain  Grade = iota + 1 // Failed to recall.
	GradeHard                    // Recalled with significant difficulty.
	GradeGood                    // Recalled with some effort.
	GradeEasy                    // Recalled effortlessly.
	GradeExpert                  // Instant, confident recall.
)

var gradeNames = [...]string{
	GradeAgain:  "again",
	GradeHard:   "hard",
	GradeGood:   "good",
	GradeEasy:   "easy",
	GradeExpert: "expert",
}

// Grades lists every valid grade in ascending order.
var Grades = []Grade{GradeAgain, GradeHard, GradeGood, GradeEasy, GradeExpert}

// IsValid reports whether g is one of the five known grades.
func (g Grade) IsValid() bool {
	return g >= GradeAgain && g <= GradeExpert
}

// IsCorrect reports whether the grade counts as a successful recall.
func (g Grade) IsCorrect() bool {
	return g >= GradeHard && g <= GradeExpert
}

func (g Grade) String() string {
	if g.IsValid() {
		return gradeNames[g]
	}
	return fmt.Sprintf("Grade(%d)", int(g))
}

// ParseGrade converts a grade name ("again", "good", ...) into a Grade.
func ParseGrade(s string) (Grade, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, g := range Grades {
		if gradeNames[g] == s {
			return g, true
		}
	}
	return 0, false
}
