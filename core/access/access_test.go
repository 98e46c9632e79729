package access

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/inclusiva/core"
	"github.com/trezcool/inclusiva/core/member"
	"github.com/trezcool/inclusiva/core/student"
)

func studentIDs(students []student.Student) []string {
	ids := make([]string, 0, len(students))
	for _, s := range students {
		ids = append(ids, s.ID)
	}
	return ids
}

var roster = []student.Student{
	{ID: "s1", Grade: "7º Ano", ClassGroup: "B"},
	{ID: "s2", Grade: "8", ClassGroup: "A"},
	{ID: "s3", Grade: "7 ano (EFAF)", ClassGroup: " b "},
	{ID: "s4", Grade: "8º ano", ClassGroup: ""},
}

func TestCanAccess(t *testing.T) {
	m := &member.Member{Capabilities: member.Capabilities{Students: true, Hub: true}}

	tests := []struct {
		name       string
		member     *member.Member
		capability string
		want       bool
	}{
		{name: "no member", member: nil, capability: member.CapUsers, want: true},
		{name: "no member unknown key", member: nil, capability: "billing", want: true},
		{name: "granted", member: m, capability: member.CapStudents, want: true},
		{name: "granted hub", member: m, capability: member.CapHub, want: true},
		{name: "denied", member: m, capability: member.CapUsers, want: false},
		{name: "unknown key", member: m, capability: "billing", want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CanAccess(tt.capability, tt.member))
		})
	}
}

func TestSession(t *testing.T) {
	t.Run("owner", func(t *testing.T) {
		sess := NewOwnerSession("ws1", "Escola", "Diretora")
		assert.False(t, sess.HasMember())
		assert.Equal(t, "", sess.MemberID())
		assert.Equal(t, member.VisibilityAll, sess.Visibility())
		assert.NoError(t, sess.Require(member.CapUsers))

		view := sess.View()
		assert.Equal(t, "ws1", view.WorkspaceID)
		for _, c := range member.AllCapabilities {
			assert.True(t, view.Capabilities[c], c)
		}
	})

	t.Run("member", func(t *testing.T) {
		m := member.Member{
			ID:           "m1",
			WorkspaceID:  "ws1",
			Name:         "Ana",
			Role:         "teacher",
			Capabilities: member.Capabilities{Students: true},
			Visibility:   member.VisibilityByClass,
		}
		sess := NewMemberSession("Escola", m)
		m.Capabilities.Users = true // the session keeps its own copy

		assert.True(t, sess.HasMember())
		assert.Equal(t, "m1", sess.MemberID())
		assert.Equal(t, "Ana", sess.UserName())
		assert.Equal(t, member.VisibilityByClass, sess.Visibility())
		assert.True(t, sess.CanAccess(member.CapStudents))
		assert.False(t, sess.CanAccess(member.CapUsers))
		assert.True(t, errors.Is(sess.Require(member.CapUsers), core.ErrUnauthorized))
	})

	t.Run("context", func(t *testing.T) {
		_, ok := FromContext(context.Background())
		assert.False(t, ok)

		ctx := WithSession(context.Background(), NewOwnerSession("ws1", "Escola", ""))
		sess, ok := FromContext(ctx)
		require.True(t, ok)
		assert.Equal(t, "ws1", sess.WorkspaceID())
	})
}

func TestNormalize(t *testing.T) {
	grades := map[string]string{
		"7º Ano (EFAF)": "7",
		"7 ano":         "7",
		"7":             "7",
		"7°":            "7",
		"1ª Série":      "1",
		"2a serie":      "2",
		"2ª série":      "2",
		"2O ANO":        "2",
		"3o":            "3",
		"10a Série":     "10",
		" 9  ANO ":      "9",
		"":              "",
	}
	for in, want := range grades {
		assert.Equal(t, want, NormalizeGrade(in), "NormalizeGrade(%q)", in)
	}

	groups := map[string]string{
		"":    "A",
		"   ": "A",
		"b":   "B",
		" c ": "C",
		"A":   "A",
	}
	for in, want := range groups {
		assert.Equal(t, want, NormalizeClassGroup(in), "NormalizeClassGroup(%q)", in)
	}
}

func TestFilterVisible(t *testing.T) {
	tests := []struct {
		name    string
		member  *member.Member
		classes []member.ClassKey
		links   []string
		want    []string
	}{
		{
			name:   "no member sees everything",
			member: nil,
			want:   []string{"s1", "s2", "s3", "s4"},
		},
		{
			name:   "mode all",
			member: &member.Member{Visibility: member.VisibilityAll},
			want:   []string{"s1", "s2", "s3", "s4"},
		},
		{
			name:   "empty mode means all",
			member: &member.Member{},
			want:   []string{"s1", "s2", "s3", "s4"},
		},
		{
			name:    "by class matches normalized labels",
			member:  &member.Member{Visibility: member.VisibilityByClass},
			classes: []member.ClassKey{{Grade: "7", ClassGroup: "B"}},
			want:    []string{"s1", "s3"},
		},
		{
			name:    "by class blank group is A",
			member:  &member.Member{Visibility: member.VisibilityByClass},
			classes: []member.ClassKey{{Grade: "8º Ano", ClassGroup: ""}},
			want:    []string{"s2", "s4"},
		},
		{
			name:   "by class without assignments",
			member: &member.Member{Visibility: member.VisibilityByClass},
			want:   []string{},
		},
		{
			name:   "by tutor link",
			member: &member.Member{Visibility: member.VisibilityByTutorLink},
			links:  []string{"s4", "s2", "unknown"},
			want:   []string{"s2", "s4"},
		},
		{
			name:   "by tutor link without links",
			member: &member.Member{Visibility: member.VisibilityByTutorLink},
			want:   []string{},
		},
		{
			name:    "unknown mode",
			member:  &member.Member{Visibility: "by-school"},
			classes: []member.ClassKey{{Grade: "7", ClassGroup: "B"}},
			links:   []string{"s1"},
			want:    []string{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FilterVisible(roster, tt.member, tt.classes, tt.links)
			assert.Equal(t, tt.want, studentIDs(got))
		})
	}
}

func TestFilterVisibleKeepsOrder(t *testing.T) {
	m := &member.Member{Visibility: member.VisibilityByTutorLink}
	got := FilterVisible(roster, m, nil, []string{"s3", "s1"})
	assert.Equal(t, []string{"s1", "s3"}, studentIDs(got))
}

type linksStub struct {
	classes      []member.ClassKey
	links        []string
	err          error
	classCalls   int
	linkCalls    int
	lastMemberID string
}

func (s *linksStub) ClassAssignments(_ context.Context, memberID string) ([]member.ClassKey, error) {
	s.classCalls++
	s.lastMemberID = memberID
	return s.classes, s.err
}

func (s *linksStub) StudentLinks(_ context.Context, memberID string) ([]string, error) {
	s.linkCalls++
	s.lastMemberID = memberID
	return s.links, s.err
}

func TestService_VisibleStudents(t *testing.T) {
	ctx := context.Background()

	t.Run("owner session loads nothing", func(t *testing.T) {
		stub := &linksStub{}
		svc := NewService(stub)
		got, err := svc.VisibleStudents(ctx, NewOwnerSession("ws1", "Escola", ""), roster)
		require.NoError(t, err)
		assert.Len(t, got, len(roster))
		assert.Zero(t, stub.classCalls+stub.linkCalls)
	})

	t.Run("by class loads assignments only", func(t *testing.T) {
		stub := &linksStub{classes: []member.ClassKey{{Grade: "8", ClassGroup: "A"}}}
		svc := NewService(stub)
		sess := NewMemberSession("Escola", member.Member{ID: "m1", Visibility: member.VisibilityByClass})

		got, err := svc.VisibleStudents(ctx, sess, roster)
		require.NoError(t, err)
		assert.Equal(t, []string{"s2", "s4"}, studentIDs(got))
		assert.Equal(t, 1, stub.classCalls)
		assert.Zero(t, stub.linkCalls)
		assert.Equal(t, "m1", stub.lastMemberID)
	})

	t.Run("by tutor link loads links only", func(t *testing.T) {
		stub := &linksStub{links: []string{"s3"}}
		svc := NewService(stub)
		sess := NewMemberSession("Escola", member.Member{ID: "m2", Visibility: member.VisibilityByTutorLink})

		ok, err := svc.CanSee(ctx, sess, roster[2])
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = svc.CanSee(ctx, sess, roster[0])
		require.NoError(t, err)
		assert.False(t, ok)
		assert.Zero(t, stub.classCalls)
	})

	t.Run("store failure", func(t *testing.T) {
		stub := &linksStub{err: errors.New("boom")}
		svc := NewService(stub)
		sess := NewMemberSession("Escola", member.Member{ID: "m1", Visibility: member.VisibilityByClass})

		got, err := svc.VisibleStudents(ctx, sess, roster)
		assert.Error(t, err)
		assert.Nil(t, got)
	})
}
