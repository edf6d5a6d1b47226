package spaced_repetition

import "github.com/example/engdrill/pkg/models"

// nextState is the state transition table of the engine.
//
//	prior \ grade   again                          hard          good, easy, expert
//	new             learning                       learning      learning (review on easy+)
//	learning        relearning                     learning      review after a streak or on easy+
//	review          relearning                     review        review
//	relearning      relearning, lapsed at N fails  relearning    review
//	lapsed          lapsed                         relearning    relearning
func nextState(prior models.ReviewState, grade models.Grade, consecutiveIncorrect, lapseThreshold, consecutiveCorrect, graduationStreak int) models.ReviewState {
	if grade == models.GradeAgain {
		switch prior {
		case models.StateLearning, models.StateReview:
			return models.StateRelearning
		case models.StateRelearning:
			if consecutiveIncorrect >= lapseThreshold {
				return models.StateLapsed
			}
			return models.StateRelearning
		case models.StateLapsed:
			return models.StateLapsed
		default:
			return models.StateLearning
		}
	}

	switch prior {
	case models.StateReview:
		return models.StateReview
	case models.StateRelearning:
		if grade == models.GradeHard {
			return models.StateRelearning
		}
		return models.StateReview
	case models.StateLapsed:
		return models.StateRelearning
	case models.StateLearning:
		if grade >= models.GradeEasy || (grade >= models.GradeGood && consecutiveCorrect >= graduationStreak) {
			return models.StateReview
		}
		return models.StateLearning
	default:
		if grade >= models.GradeEasy {
			return models.StateReview
		}
		return models.StateLearning
	}
}
