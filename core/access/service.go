package access

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/inclusiva/core/member"
	"github.com/trezcool/inclusiva/core/student"
)

// MemberLinks loads the visibility rows of a member.
type MemberLinks interface {
	ClassAssignments(ctx context.Context, memberID string) ([]member.ClassKey, error)
	StudentLinks(ctx context.Context, memberID string) ([]string, error)
}

type Service struct {
	links MemberLinks
}

func NewService(links MemberLinks) *Service {
	return &Service{links: links}
}

// VisibleStudents applies FilterVisible for the session, loading only the rows its mode needs.
func (svc *Service) VisibleStudents(ctx context.Context, sess Session, students []student.Student) ([]student.Student, error) {
	m, ok := sess.Member()
	if !ok {
		return FilterVisible(students, nil, nil, nil), nil
	}

	var (
		classes []member.ClassKey
		links   []string
		err     error
	)
	switch m.VisibilityMode() {
	case member.VisibilityByClass:
		if classes, err = svc.links.ClassAssignments(ctx, m.ID); err != nil {
			return nil, errors.Wrap(err, "loading class assignments")
		}
	case member.VisibilityByTutorLink:
		if links, err = svc.links.StudentLinks(ctx, m.ID); err != nil {
			return nil, errors.Wrap(err, "loading student links")
		}
	}
	return FilterVisible(students, &m, classes, links), nil
}

// CanSee reports whether the session may see s.
func (svc *Service) CanSee(ctx context.Context, sess Session, s student.Student) (bool, error) {
	visible, err := svc.VisibleStudents(ctx, sess, []student.Student{s})
	if err != nil {
		return false, err
	}
	return len(visible) == 1, nil
}
