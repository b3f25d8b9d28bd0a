package repository

import (
	"database/sql"

	"backend/internal/models"

	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
)

type StudentRepository interface {
	UpsertStudent(student *models.Student) error
	GetStudentByID(studentID string) (*models.Student, error)
	GetAllStudents(limit, offset int) ([]*models.Student, error)
}

type studentRepository struct {
	db  *sqlx.DB
	log *logrus.Logger
}

func NewStudentRepository(db *sqlx.DB, log *logrus.Logger) StudentRepository {
	return &studentRepository{db: db, log: log}
}

// UpsertStudent creates the student on first contact, or refreshes the
// name/email and last_active_at on subsequent ones.
func (r *studentRepository) UpsertStudent(student *models.Student) error {
	query := `INSERT INTO students (student_id, name, email)
	          VALUES ($1, $2, $3)
	          ON CONFLICT (student_id) DO UPDATE SET
	              last_active_at = now(),
	              name = COALESCE(NULLIF(EXCLUDED.name, ''), students.name),
	              email = COALESCE(EXCLUDED.email, students.email)
	          RETURNING student_id, name, email, enrolled_at, last_active_at, total_turns`
	return r.db.QueryRowx(query, student.StudentID, student.Name, student.Email).StructScan(student)
}

func (r *studentRepository) GetStudentByID(studentID string) (*models.Student, error) {
	var student models.Student
	query := `SELECT student_id, name, email, enrolled_at, last_active_at, total_turns FROM students WHERE student_id = $1`
	err := r.db.Get(&student, query, studentID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &student, nil
}

func (r *studentRepository) GetAllStudents(limit, offset int) ([]*models.Student, error) {
	var students []*models.Student
	query := `SELECT student_id, name, email, enrolled_at, last_active_at, total_turns
	          FROM students
	          ORDER BY last_active_at DESC
	          LIMIT $1 OFFSET $2`
	err := r.db.Select(&students, query, limit, offset)
	if err != nil {
		r.log.Errorf("Failed to fetch students: %v", err)
		return nil, err
	}
	return students, nil
}
