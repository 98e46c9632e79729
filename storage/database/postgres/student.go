package pgrepos

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/trezcool/inclusiva/core"
	"github.com/trezcool/inclusiva/core/student"
)

// Older rows only carry serie/turma; reads fold them into grade/class_group.
const studentColumns = `id, workspace_id, name, birth_date,
	COALESCE(NULLIF(grade, ''), serie, '') AS grade,
	COALESCE(NULLIF(class_group, ''), turma, '') AS class_group,
	diagnosis, notes, created_at, updated_at`

type studentRow struct {
	ID          string     `db:"id"`
	WorkspaceID string     `db:"workspace_id"`
	Name        string     `db:"name"`
	BirthDate   *time.Time `db:"birth_date"`
	Grade       string     `db:"grade"`
	ClassGroup  string     `db:"class_group"`
	Diagnosis   string     `db:"diagnosis"`
	Notes       []byte     `db:"notes"`
	CreatedAt   time.Time  `db:"created_at"`
	UpdatedAt   time.Time  `db:"updated_at"`
}

func (r studentRow) student() student.Student {
	return student.Student{
		ID:          r.ID,
		WorkspaceID: r.WorkspaceID,
		Name:        r.Name,
		BirthDate:   student.DateFromTime(r.BirthDate),
		Grade:       r.Grade,
		ClassGroup:  r.ClassGroup,
		Diagnosis:   r.Diagnosis,
		Notes:       json.RawMessage(r.Notes),
		CreatedAt:   r.CreatedAt.UTC(),
		UpdatedAt:   r.UpdatedAt.UTC(),
	}
}

type studentRepository struct {
	db *sqlx.DB
}

func NewStudentRepository(db *sqlx.DB) student.Repository {
	return &studentRepository{db: db}
}

func studentError(op string, err error) error {
	if err = dbError(op, err); err == core.ErrNotFound {
		return student.ErrNotFound
	}
	return err
}

func (repo *studentRepository) CreateStudent(ctx context.Context, s student.Student) (student.Student, error) {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	notes := []byte(s.Notes)
	if len(notes) == 0 {
		notes = []byte("{}")
	}
	var row studentRow
	err := repo.db.GetContext(ctx, &row, `
		INSERT INTO students (id, workspace_id, name, birth_date, grade, class_group, diagnosis, notes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING `+studentColumns,
		s.ID, s.WorkspaceID, s.Name, s.BirthDate.TimePtr(), s.Grade, s.ClassGroup, s.Diagnosis, string(notes), s.CreatedAt, s.UpdatedAt,
	)
	if err != nil {
		return student.Student{}, studentError("creating student", err)
	}
	return row.student(), nil
}

func (repo *studentRepository) GetStudent(ctx context.Context, workspaceID, id string) (student.Student, error) {
	if _, err := uuid.Parse(id); err != nil {
		return student.Student{}, student.ErrNotFound
	}
	var row studentRow
	err := repo.db.GetContext(ctx, &row,
		`SELECT `+studentColumns+` FROM students WHERE workspace_id = $1 AND id = $2`, workspaceID, id)
	if err != nil {
		return student.Student{}, studentError("getting student", err)
	}
	return row.student(), nil
}

func (repo *studentRepository) QueryStudents(ctx context.Context, workspaceID string, filter *student.QueryFilter) ([]student.Student, error) {
	q := `SELECT ` + studentColumns + ` FROM students WHERE workspace_id = $1`
	args := []interface{}{workspaceID}
	if filter != nil {
		if filter.Search != "" {
			args = append(args, likePattern(filter.Search))
			q += ` AND name ILIKE ` + placeholder(len(args))
		}
		if filter.Grade != "" {
			args = append(args, filter.Grade)
			q += ` AND lower(COALESCE(NULLIF(grade, ''), serie, '')) = lower(` + placeholder(len(args)) + `)`
		}
		if filter.ClassGroup != "" {
			args = append(args, filter.ClassGroup)
			q += ` AND lower(COALESCE(NULLIF(class_group, ''), turma, '')) = lower(` + placeholder(len(args)) + `)`
		}
	}
	q += ` ORDER BY name`

	var rows []studentRow
	if err := repo.db.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, studentError("querying students", err)
	}
	students := make([]student.Student, 0, len(rows))
	for _, row := range rows {
		students = append(students, row.student())
	}
	return students, nil
}

func (repo *studentRepository) DeleteStudent(ctx context.Context, workspaceID, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return student.ErrNotFound
	}
	res, err := repo.db.ExecContext(ctx, `DELETE FROM students WHERE workspace_id = $1 AND id = $2`, workspaceID, id)
	if err != nil {
		return studentError("deleting student", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return student.ErrNotFound
	}
	return nil
}
