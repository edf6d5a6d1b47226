package spaced_repetition

import (
	"fmt"
	"math"
	"time"

	"github.com/example/engdrill/internal/apperr"
	"github.com/example/engdrill/pkg/models"
)

// Engine implements an SM-2 style scheduler extended with a five-point grade scale
// and explicit learning/relearning/lapsed states.
type Engine struct {
	// Starting ease factor for items graded for the first time
	InitialEase float64
	// Lower bound of the ease factor
	MinEase float64
	// Maximum interval in days reached by multiplicative growth
	MaxInterval int
	// Delay before an item failed with "again" becomes due again
	RelearnDelay time.Duration
	// Consecutive failures after which a relearning item is considered lapsed
	LapseThreshold int
	// Consecutive successes needed to graduate from learning to review
	GraduationStreak int
	// Interval in days after the first successful repetition, per grade
	FirstIntervals map[models.Grade]int
}

// NewEngine creates an engine with the default settings.
func NewEngine() *Engine {
	return &Engine{
		InitialEase:      2.5,
		MinEase:          1.3,
		MaxInterval:      365,
		RelearnDelay:     10 * time.Minute,
		LapseThreshold:   3,
		GraduationStreak: 2,
		FirstIntervals: map[models.Grade]int{
			models.GradeHard:   1,
			models.GradeGood:   2,
			models.GradeEasy:   3,
			models.GradeExpert: 4,
		},
	}
}

const (
	againEasePenalty = 0.20
	hardEasePenalty  = 0.15
	easyEaseBonus    = 0.15
	expertEaseBonus  = 0.25

	hardMultiplier   = 1.2
	easyMultiplier   = 1.3
	expertMultiplier = 1.6

	masteryDecay = 0.7
)

var masteryScore = map[models.Grade]float64{
	models.GradeAgain:  0,
	models.GradeHard:   60,
	models.GradeGood:   80,
	models.GradeEasy:   95,
	models.GradeExpert: 100,
}

// Grade applies one grading event to record and returns the new record.
// record may be nil for an item that has never been graded. The input is not mutated.
func (e *Engine) Grade(record *models.ReviewRecord, grade models.Grade, now time.Time) (*models.ReviewRecord, error) {
	if !grade.IsValid() {
		return nil, apperr.Wrap(apperr.ErrInvalidGrade, "grade", fmt.Errorf("grade %d", int(grade)))
	}

	var r *models.ReviewRecord
	if record == nil {
		r = &models.ReviewRecord{State: models.StateNew, EaseFactor: e.InitialEase}
	} else {
		r = record.Clone()
	}
	prior := r.State
	if prior == "" {
		prior = models.StateNew
	}
	if r.EaseFactor == 0 {
		r.EaseFactor = e.InitialEase
	}

	if grade == models.GradeAgain {
		e.fail(r, prior, now)
	} else {
		e.pass(r, prior, grade, now)
	}

	r.MasteryLevel = clamp(r.MasteryLevel*masteryDecay+masteryScore[grade]*(1-masteryDecay), 0, 100)
	r.LastReviewDate = &now
	return r, nil
}

func (e *Engine) fail(r *models.ReviewRecord, prior models.ReviewState, now time.Time) {
	r.IncorrectCount++
	r.ConsecutiveCorrect = 0
	r.ConsecutiveIncorrect++

	r.State = nextState(prior, models.GradeAgain, r.ConsecutiveIncorrect, e.LapseThreshold, 0, e.GraduationStreak)
	if prior == models.StateReview {
		r.LapseCount++
		r.LastLapseDate = &now
	} else if r.State == models.StateLapsed && prior != models.StateLapsed {
		r.LastLapseDate = &now
	}

	// Never raise the ease factor on a failure, even if it already sits below the floor.
	ease := r.EaseFactor - againEasePenalty
	if ease < e.MinEase {
		ease = math.Min(e.MinEase, r.EaseFactor)
	}
	r.EaseFactor = ease

	r.Repetitions = 0
	r.Interval = 0
	r.NextReviewDate = now.Add(e.RelearnDelay)
}

func (e *Engine) pass(r *models.ReviewRecord, prior models.ReviewState, grade models.Grade, now time.Time) {
	r.CorrectCount++
	r.ConsecutiveIncorrect = 0
	r.ConsecutiveCorrect++

	r.Interval = e.nextInterval(r.Repetitions, r.Interval, r.EaseFactor, grade)
	r.Repetitions++
	r.EaseFactor = e.adjustEase(r.EaseFactor, grade)
	r.State = nextState(prior, grade, 0, e.LapseThreshold, r.ConsecutiveCorrect, e.GraduationStreak)
	r.NextReviewDate = now.AddDate(0, 0, r.Interval)
}

// nextInterval returns the interval in days after a successful review.
// Higher grades always produce a strictly longer interval than lower ones.
// MaxInterval caps the multiplicative growth only; good, easy and expert still
// add at least one day each, so a capped interval keeps growing slowly.
func (e *Engine) nextInterval(repetitions, interval int, ease float64, grade models.Grade) int {
	if repetitions == 0 || interval <= 0 {
		return max(1, e.FirstIntervals[grade])
	}

	prev := float64(interval)
	good := max(interval+1, e.capInterval(prev*ease))
	easy := max(good+1, e.capInterval(prev*ease*easyMultiplier))
	expert := max(easy+1, e.capInterval(prev*ease*expertMultiplier))
	hard := max(1, min(good-1, e.capInterval(prev*hardMultiplier)))

	switch grade {
	case models.GradeHard:
		return hard
	case models.GradeGood:
		return good
	case models.GradeEasy:
		return easy
	default:
		return expert
	}
}

// capInterval rounds a grown interval to whole days and clamps it to [1, MaxInterval].
func (e *Engine) capInterval(days float64) int {
	d := max(1, int(math.Round(days)))
	if e.MaxInterval > 0 && d > e.MaxInterval {
		d = e.MaxInterval
	}
	return d
}

func (e *Engine) adjustEase(ease float64, grade models.Grade) float64 {
	switch grade {
	case models.GradeHard:
		ease -= hardEasePenalty
		if ease < e.MinEase {
			ease = e.MinEase
		}
	case models.GradeEasy:
		ease += easyEaseBonus
	case models.GradeExpert:
		ease += expertEaseBonus
	}
	return ease
}

// Preview returns the record that each grade would produce, without persisting anything.
func (e *Engine) Preview(record *models.ReviewRecord, now time.Time) map[models.Grade]*models.ReviewRecord {
	out := make(map[models.Grade]*models.ReviewRecord, len(models.Grades))
	for _, g := range models.Grades {
		r, _ := e.Grade(record, g, now)
		out[g] = r
	}
	return out
}

// IsMastered determines if an item is considered "mastered".
//
// An item is mastered once it is in review, has survived at least five repetitions,
// has an interval of 30 days or more and a mastery level of at least 80.
func (e *Engine) IsMastered(record *models.ReviewRecord) bool {
	return record != nil &&
		record.State == models.StateReview &&
		record.Repetitions >= 5 &&
		record.Interval >= 30 &&
		record.MasteryLevel >= 80
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
