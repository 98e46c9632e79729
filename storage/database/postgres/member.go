package pgrepos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/trezcool/inclusiva/core"
	"github.com/trezcool/inclusiva/core/member"
)

const memberColumns = `id, workspace_id, name, email, password_hash, phone, role,
	can_students, can_pei, can_paee, can_hub, can_logbook, can_evaluation, can_users,
	visibility, is_active, created_at, updated_at`

var memberOrderings = map[string]bool{
	"name":       true,
	"email":      true,
	"role":       true,
	"is_active":  true,
	"created_at": true,
	"updated_at": true,
}

type memberRepository struct {
	db *sqlx.DB
}

func NewMemberRepository(db *sqlx.DB) member.Repository {
	return &memberRepository{db: db}
}

func memberError(op string, err error) error {
	if err = dbError(op, err); err == core.ErrNotFound {
		return member.ErrNotFound
	}
	return err
}

// replaceLinks swaps the visibility rows of a member inside tx.
func replaceLinks(ctx context.Context, tx *sqlx.Tx, memberID string, links member.Links) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM class_assignments WHERE member_id = $1`, memberID); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM student_links WHERE member_id = $1`, memberID); err != nil {
		return err
	}
	for _, a := range links.Assignments {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO class_assignments (member_id, grade, class_group, component) VALUES ($1, $2, $3, $4)`,
			memberID, a.Grade, a.ClassGroup, a.Component)
		if err != nil {
			return err
		}
	}
	for _, id := range links.StudentIDs {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO student_links (member_id, student_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
			memberID, id)
		if err != nil {
			return err
		}
	}
	return nil
}

func (repo *memberRepository) CreateMember(ctx context.Context, m member.Member, links member.Links) (member.Member, error) {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	var created member.Member
	err := inTx(ctx, repo.db, func(tx *sqlx.Tx) error {
		q := `
			INSERT INTO members (` + memberColumns + `)
			VALUES (:id, :workspace_id, :name, :email, :password_hash, :phone, :role,
				:can_students, :can_pei, :can_paee, :can_hub, :can_logbook, :can_evaluation, :can_users,
				:visibility, :is_active, :created_at, :updated_at)
			RETURNING ` + memberColumns
		stmt, err := tx.PrepareNamedContext(ctx, q)
		if err != nil {
			return err
		}
		defer func() { _ = stmt.Close() }()
		if err = stmt.GetContext(ctx, &created, m); err != nil {
			return err
		}
		return replaceLinks(ctx, tx, created.ID, links)
	})
	if err != nil {
		return member.Member{}, memberError("creating member", err)
	}
	return created, nil
}

func (repo *memberRepository) GetMember(ctx context.Context, workspaceID, id string) (member.Member, error) {
	if _, err := uuid.Parse(id); err != nil {
		return member.Member{}, member.ErrNotFound
	}
	var m member.Member
	err := repo.db.GetContext(ctx, &m,
		`SELECT `+memberColumns+` FROM members WHERE workspace_id = $1 AND id = $2`, workspaceID, id)
	if err != nil {
		return member.Member{}, memberError("getting member", err)
	}
	return m, nil
}

func (repo *memberRepository) GetMemberByEmail(ctx context.Context, workspaceID, email string) (member.Member, error) {
	var m member.Member
	err := repo.db.GetContext(ctx, &m,
		`SELECT `+memberColumns+` FROM members WHERE workspace_id = $1 AND lower(email) = lower($2)`,
		workspaceID, email)
	if err != nil {
		return member.Member{}, memberError("getting member by email", err)
	}
	return m, nil
}

func (repo *memberRepository) QueryMembers(
	ctx context.Context,
	workspaceID string,
	filter *member.QueryFilter,
	ordering []core.DBOrdering,
) ([]member.Member, error) {
	q := `SELECT ` + memberColumns + ` FROM members WHERE workspace_id = $1`
	args := []interface{}{workspaceID}
	if filter != nil {
		if filter.Search != "" {
			args = append(args, likePattern(filter.Search))
			ph := placeholder(len(args))
			q += ` AND (name ILIKE ` + ph + ` OR email ILIKE ` + ph + `)`
		}
		if filter.IsActive != nil {
			args = append(args, *filter.IsActive)
			q += ` AND is_active = ` + placeholder(len(args))
		}
	}
	q += orderBy(ordering, memberOrderings, "name ASC")

	members := []member.Member{}
	if err := repo.db.SelectContext(ctx, &members, q, args...); err != nil {
		return nil, memberError("querying members", err)
	}
	return members, nil
}

func (repo *memberRepository) UpdateMember(ctx context.Context, m member.Member, links *member.Links) (member.Member, error) {
	var updated member.Member
	err := inTx(ctx, repo.db, func(tx *sqlx.Tx) error {
		q := `
			UPDATE members
			SET name = :name, email = :email, password_hash = :password_hash, phone = :phone, role = :role,
				can_students = :can_students, can_pei = :can_pei, can_paee = :can_paee, can_hub = :can_hub,
				can_logbook = :can_logbook, can_evaluation = :can_evaluation, can_users = :can_users,
				visibility = :visibility, is_active = :is_active, updated_at = :updated_at
			WHERE workspace_id = :workspace_id AND id = :id
			RETURNING ` + memberColumns
		stmt, err := tx.PrepareNamedContext(ctx, q)
		if err != nil {
			return err
		}
		defer func() { _ = stmt.Close() }()
		if err = stmt.GetContext(ctx, &updated, m); err != nil {
			return err
		}
		if links == nil {
			return nil
		}
		return replaceLinks(ctx, tx, updated.ID, *links)
	})
	if err != nil {
		return member.Member{}, memberError("updating member", err)
	}
	return updated, nil
}

func (repo *memberRepository) SetMemberActive(ctx context.Context, workspaceID, id string, active bool, updatedAt time.Time) error {
	if _, err := uuid.Parse(id); err != nil {
		return member.ErrNotFound
	}
	res, err := repo.db.ExecContext(ctx,
		`UPDATE members SET is_active = $3, updated_at = $4 WHERE workspace_id = $1 AND id = $2`,
		workspaceID, id, active, updatedAt)
	if err != nil {
		return memberError("setting member active", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return member.ErrNotFound
	}
	return nil
}

func (repo *memberRepository) DeleteMember(ctx context.Context, workspaceID, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return member.ErrNotFound
	}
	res, err := repo.db.ExecContext(ctx, `DELETE FROM members WHERE workspace_id = $1 AND id = $2`, workspaceID, id)
	if err != nil {
		return memberError("deleting member", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return member.ErrNotFound
	}
	return nil
}

func (repo *memberRepository) QueryClassAssignments(ctx context.Context, memberID string) ([]member.ClassAssignment, error) {
	as := []member.ClassAssignment{}
	if _, err := uuid.Parse(memberID); err != nil {
		return as, nil
	}
	err := repo.db.SelectContext(ctx, &as,
		`SELECT grade, class_group, component FROM class_assignments WHERE member_id = $1 ORDER BY id`, memberID)
	if err != nil {
		return nil, memberError("querying class assignments", err)
	}
	return as, nil
}

func (repo *memberRepository) QueryStudentLinks(ctx context.Context, memberID string) ([]string, error) {
	ids := []string{}
	if _, err := uuid.Parse(memberID); err != nil {
		return ids, nil
	}
	err := repo.db.SelectContext(ctx, &ids,
		`SELECT student_id FROM student_links WHERE member_id = $1 ORDER BY student_id`, memberID)
	if err != nil {
		return nil, memberError("querying student links", err)
	}
	return ids, nil
}
