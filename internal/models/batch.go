package models

import "time"

// Batch is a cohort of students that attends courses together.
type Batch struct {
	ID           string    `db:"id" json:"id" validate:"required"`
	Code         string    `db:"batch_code" json:"batch_code"`
	Year         int       `db:"year" json:"year"`
	Semester     int       `db:"semester" json:"semester"`
	StudentCount int       `db:"student_count" json:"student_count" validate:"min=0"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// BatchCourse links a batch to a course it must attend every week.
type BatchCourse struct {
	ID        string    `db:"id" json:"id"`
	BatchID   string    `db:"batch_id" json:"batch_id" validate:"required"`
	CourseID  string    `db:"course_id" json:"course_id" validate:"required"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
