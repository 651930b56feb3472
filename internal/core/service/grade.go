package service

import "github.com/tumme/course-system/internal/core/domain"

// WeightedGrade computes Σ(score×ects)/Σ(ects) over the subscriptions whose
// course is present in courses. Subscriptions pointing at an unknown course
// carry no weight. ok is false when subs is empty or the resolved weight is
// zero. Values are used as given; no clamping or rounding happens here.
func WeightedGrade(subs []domain.Subscription, courses []domain.Course) (grade float64, ok bool) {
	grade, _, ok = weightedGrade(subs, courses)
	return grade, ok
}

func weightedGrade(subs []domain.Subscription, courses []domain.Course) (grade, totalECTS float64, ok bool) {
	if len(subs) == 0 {
		return 0, 0, false
	}

	ects := make(map[string]float64, len(courses))
	for _, c := range courses {
		ects[c.ID] = c.ECTS
	}

	var points float64
	for _, s := range subs {
		weight, found := ects[s.CourseID]
		if !found {
			continue
		}
		points += s.Score * weight
		totalECTS += weight
	}

	if totalECTS == 0 {
		return 0, 0, false
	}
	return points / totalECTS, totalECTS, true
}

func gradeFor(studentID string, subs []domain.Subscription, courses []domain.Course) domain.Grade {
	value, total, ok := weightedGrade(subs, courses)
	return domain.Grade{
		StudentID: studentID,
		Value:     value,
		Graded:    ok,
		TotalECTS: total,
	}
}
