package student

import (
	"encoding/json"
	"time"

	"github.com/trezcool/inclusiva/core"
)

type Student struct {
	ID          string          `json:"id" db:"id"`
	WorkspaceID string          `json:"workspace_id" db:"workspace_id"`
	Name        string          `json:"name" db:"name"`
	BirthDate   *Date           `json:"birth_date" db:"birth_date"`
	Grade       string          `json:"grade" db:"grade"`
	ClassGroup  string          `json:"class_group" db:"class_group"`
	Diagnosis   string          `json:"diagnosis" db:"diagnosis"`
	Notes       json.RawMessage `json:"notes" db:"notes"`
	CreatedAt   time.Time       `json:"created_at" db:"created_at"` // UTC
	UpdatedAt   time.Time       `json:"updated_at" db:"updated_at"` // UTC
}

// legacyStudent mirrors Student with the field names older modules wrote.
type legacyStudent struct {
	ID          json.RawMessage `json:"id"`
	WorkspaceID string          `json:"workspace_id"`
	Name        string          `json:"name"`
	BirthDate   *Date           `json:"birth_date"`
	Grade       string          `json:"grade"`
	Serie       string          `json:"serie"`
	ClassGroup  string          `json:"class_group"`
	Turma       string          `json:"turma"`
	Diagnosis   string          `json:"diagnosis"`
	Notes       json.RawMessage `json:"notes"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// UnmarshalJSON folds the legacy "serie"/"turma" keys into Grade/ClassGroup and accepts
// numeric ids, so the rest of the system only ever sees the canonical schema.
func (s *Student) UnmarshalJSON(data []byte) error {
	var ls legacyStudent
	if err := json.Unmarshal(data, &ls); err != nil {
		return err
	}
	*s = Student{
		ID:          rawID(ls.ID),
		WorkspaceID: ls.WorkspaceID,
		Name:        ls.Name,
		BirthDate:   ls.BirthDate,
		Grade:       firstNonEmpty(ls.Grade, ls.Serie),
		ClassGroup:  firstNonEmpty(ls.ClassGroup, ls.Turma),
		Diagnosis:   ls.Diagnosis,
		Notes:       ls.Notes,
		CreatedAt:   ls.CreatedAt,
		UpdatedAt:   ls.UpdatedAt,
	}
	return nil
}

func rawID(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw) // numbers keep their literal form
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v = core.CleanString(v); v != "" {
			return v
		}
	}
	return ""
}

// NewStudent contains information needed to create a new Student.
type NewStudent struct {
	Name       string          `json:"name" validate:"required"`
	BirthDate  *Date           `json:"birth_date"`
	Grade      string          `json:"grade" validate:"required"`
	ClassGroup string          `json:"class_group"`
	Diagnosis  string          `json:"diagnosis"`
	Notes      json.RawMessage `json:"notes"`
}

func (ns *NewStudent) Clean() {
	ns.Name = core.CleanString(ns.Name)
	ns.Grade = core.CleanString(ns.Grade)
	ns.ClassGroup = core.CleanString(ns.ClassGroup)
	ns.Diagnosis = core.CleanString(ns.Diagnosis)
	if len(ns.Notes) == 0 {
		ns.Notes = json.RawMessage("{}")
	}
}

type QueryFilter struct {
	Search     string `query:"search"`
	Grade      string `query:"grade"`
	ClassGroup string `query:"class_group"`
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
	qf.Grade = core.CleanString(qf.Grade)
	qf.ClassGroup = core.CleanString(qf.ClassGroup)
}
