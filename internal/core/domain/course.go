package domain

// MaxScore is the top of the 0..20 grading scale.
const MaxScore = 20.0

// Course is a catalog entry owned by a teacher.
type Course struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	ECTS      float64 `json:"ects"`
	Level     Level   `json:"level"`
	TeacherID string  `json:"teacher_id"`
}

// Subscription enrolls one student in one course and carries the score.
type Subscription struct {
	ID        string  `json:"id"`
	StudentID string  `json:"student_id"`
	CourseID  string  `json:"course_id"`
	Score     float64 `json:"score"`
}

// Enrollment is a course roster line: a subscription joined with the
// enrolled student's name and level.
type Enrollment struct {
	SubscriptionID string  `json:"subscription_id"`
	StudentID      string  `json:"student_id"`
	FirstName      string  `json:"first_name"`
	LastName       string  `json:"last_name"`
	Level          Level   `json:"level"`
	Score          float64 `json:"score"`
}

// Grade is a weighted average over a student's resolvable subscriptions.
// Graded is false when no average can be computed.
type Grade struct {
	StudentID string  `json:"student_id"`
	Value     float64 `json:"value"`
	Graded    bool    `json:"graded"`
	TotalECTS float64 `json:"total_ects"`
}
