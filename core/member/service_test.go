package member_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/inclusiva/core"
	"github.com/trezcool/inclusiva/core/audit"
	"github.com/trezcool/inclusiva/core/member"
	"github.com/trezcool/inclusiva/tests"
)

func newAna() member.NewMember {
	return member.NewMember{
		Name:         " Ana ",
		Email:        " Ana@Escola.BR ",
		Password:     "senha123",
		Role:         "teacher",
		Capabilities: member.Capabilities{Students: true, PEI: true},
		Visibility:   member.VisibilityByClass,
		Assignments: []member.ClassAssignment{
			{Grade: "1º Ano", ClassGroup: "A", Component: "Português"},
			{Grade: "1º Ano", ClassGroup: "A", Component: "Matemática"},
			{Grade: "2º Ano", ClassGroup: "B", Component: "Português"},
		},
		StudentIDs: []string{"ignored"},
	}
}

func TestService_Create(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()
	w := testutil.CreateWorkspace(t, env.WorkspaceRepo, "Escola Sol", "ABCD-1234", true)
	other := testutil.CreateWorkspace(t, env.WorkspaceRepo, "Escola Lua", "LLLL-1111", true)

	m, err := env.MemberSvc.Create(ctx, w.ID, newAna())
	require.NoError(t, err)
	assert.NotEmpty(t, m.ID)
	assert.Equal(t, "Ana", m.Name)
	assert.Equal(t, "ana@escola.br", m.Email)
	assert.True(t, m.IsActive)
	assert.True(t, m.HasPassword())
	assert.True(t, m.Has(member.CapPEI))
	assert.False(t, m.Has(member.CapUsers))

	t.Run("only the links of the visibility mode are stored", func(t *testing.T) {
		keys, err := env.MemberSvc.ClassAssignments(ctx, m.ID)
		require.NoError(t, err)
		assert.Equal(t, []member.ClassKey{{Grade: "1º Ano", ClassGroup: "A"}, {Grade: "2º Ano", ClassGroup: "B"}}, keys)

		as, err := env.MemberSvc.Assignments(ctx, m.ID)
		require.NoError(t, err)
		assert.Len(t, as, 3)

		links, err := env.MemberSvc.StudentLinks(ctx, m.ID)
		require.NoError(t, err)
		assert.Equal(t, []string{}, links)
	})

	t.Run("duplicate email", func(t *testing.T) {
		nm := newAna()
		nm.Email = "ANA@escola.br"
		_, err := env.MemberSvc.Create(ctx, w.ID, nm)
		require.Error(t, err)
		assert.True(t, errors.Is(err, member.ErrDuplicateEmail))
		assert.True(t, core.IsDuplicate(err))

		var dup *core.DuplicateError
		require.True(t, errors.As(err, &dup))
		assert.Equal(t, "23505", dup.Code)
	})

	t.Run("same email in another workspace", func(t *testing.T) {
		_, err := env.MemberSvc.Create(ctx, other.ID, newAna())
		assert.NoError(t, err)
	})

	t.Run("validation", func(t *testing.T) {
		tests := []struct {
			name    string
			mutate  func(nm *member.NewMember)
			wantFld string
		}{
			{name: "name required", mutate: func(nm *member.NewMember) { nm.Name = "  " }, wantFld: "name"},
			{name: "email invalid", mutate: func(nm *member.NewMember) { nm.Email = "ana" }, wantFld: "email"},
			{name: "password short", mutate: func(nm *member.NewMember) { nm.Password = "abc" }, wantFld: "password"},
			{name: "unknown visibility", mutate: func(nm *member.NewMember) { nm.Visibility = "everyone" }, wantFld: "visibility"},
			{name: "bad phone", mutate: func(nm *member.NewMember) { nm.Phone = "call me" }, wantFld: "phone"},
			{name: "assignment without grade", mutate: func(nm *member.NewMember) {
				nm.Assignments = []member.ClassAssignment{{ClassGroup: "A"}}
			}, wantFld: "grade"},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				nm := newAna()
				nm.Email = "new@escola.br"
				tt.mutate(&nm)
				_, err := env.MemberSvc.Create(ctx, w.ID, nm)

				var vErr *core.ValidationError
				require.True(t, errors.As(err, &vErr), "err = %v", err)
				require.Len(t, vErr.Fields, 1)
				assert.Equal(t, tt.wantFld, vErr.Fields[0].Field)
			})
		}
	})
}

func TestService_Update(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()
	w := testutil.CreateWorkspace(t, env.WorkspaceRepo, "Escola Sol", "ABCD-1234", true)

	m, err := env.MemberSvc.Create(ctx, w.ID, newAna())
	require.NoError(t, err)
	bia := testutil.CreateMember(t, env.MemberRepo, w.ID, "Bia", "bia@escola.br", "senha123",
		member.Capabilities{}, member.VisibilityAll, member.Links{}, true)

	t.Run("empty update only touches updated_at", func(t *testing.T) {
		before, err := env.MemberSvc.Get(ctx, w.ID, m.ID)
		require.NoError(t, err)
		asBefore, err := env.MemberSvc.Assignments(ctx, m.ID)
		require.NoError(t, err)
		linksBefore, err := env.MemberSvc.StudentLinks(ctx, m.ID)
		require.NoError(t, err)

		later := before.UpdatedAt.Add(time.Minute)
		member.NowFunc = func() time.Time { return later }
		defer func() { member.NowFunc = time.Now }()

		got, err := env.MemberSvc.Update(ctx, w.ID, m.ID, member.UpdateMember{})
		require.NoError(t, err)
		assert.Equal(t, later, got.UpdatedAt)
		assert.True(t, got.UpdatedAt.After(before.UpdatedAt))

		got.UpdatedAt = before.UpdatedAt
		assert.Equal(t, before, got)

		as, err := env.MemberSvc.Assignments(ctx, m.ID)
		require.NoError(t, err)
		assert.Equal(t, asBefore, as)
		assert.Len(t, as, 3)
		links, err := env.MemberSvc.StudentLinks(ctx, m.ID)
		require.NoError(t, err)
		assert.Equal(t, linksBefore, links)
	})

	t.Run("short password is ignored", func(t *testing.T) {
		got, err := env.MemberSvc.Update(ctx, w.ID, m.ID, member.UpdateMember{Password: core.StringPtr("abc"), Name: core.StringPtr("Ana Maria")})
		require.NoError(t, err)
		assert.Equal(t, "Ana Maria", got.Name)
		assert.Equal(t, m.PasswordHash, got.PasswordHash)
	})

	t.Run("password is replaced", func(t *testing.T) {
		got, err := env.MemberSvc.Update(ctx, w.ID, m.ID, member.UpdateMember{Password: core.StringPtr("nova-senha")})
		require.NoError(t, err)
		assert.True(t, got.CheckPassword("nova-senha"))
		assert.False(t, got.CheckPassword("senha123"))
	})

	t.Run("links untouched without visibility", func(t *testing.T) {
		_, err := env.MemberSvc.Update(ctx, w.ID, m.ID, member.UpdateMember{
			CapabilitiesUpdate: member.CapabilitiesUpdate{Users: core.BoolPtr(true)},
			StudentIDs:         []string{"s1"},
		})
		require.NoError(t, err)

		as, err := env.MemberSvc.Assignments(ctx, m.ID)
		require.NoError(t, err)
		assert.Len(t, as, 3)
	})

	t.Run("changing visibility replaces links", func(t *testing.T) {
		got, err := env.MemberSvc.Update(ctx, w.ID, m.ID, member.UpdateMember{
			Visibility:  core.StringPtr(member.VisibilityByTutorLink),
			Assignments: []member.ClassAssignment{{Grade: "9"}},
			StudentIDs:  []string{"s2", " s1 ", "s2"},
		})
		require.NoError(t, err)
		assert.Equal(t, member.VisibilityByTutorLink, got.Visibility)
		assert.True(t, got.Users)
		assert.True(t, got.Students)

		as, err := env.MemberSvc.Assignments(ctx, m.ID)
		require.NoError(t, err)
		assert.Empty(t, as)
		links, err := env.MemberSvc.StudentLinks(ctx, m.ID)
		require.NoError(t, err)
		assert.Equal(t, []string{"s1", "s2"}, links)
	})

	t.Run("email taken", func(t *testing.T) {
		_, err := env.MemberSvc.Update(ctx, w.ID, m.ID, member.UpdateMember{Email: core.StringPtr("BIA@escola.br")})
		assert.True(t, core.IsDuplicate(err), "err = %v", err)
	})

	t.Run("blank name", func(t *testing.T) {
		_, err := env.MemberSvc.Update(ctx, w.ID, bia.ID, member.UpdateMember{Name: core.StringPtr(" ")})
		var vErr *core.ValidationError
		assert.True(t, errors.As(err, &vErr))
	})

	t.Run("other workspace", func(t *testing.T) {
		_, err := env.MemberSvc.Update(ctx, "other", m.ID, member.UpdateMember{Name: core.StringPtr("X")})
		assert.True(t, errors.Is(err, core.ErrNotFound))
	})
}

func TestService_lifecycle(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()
	w := testutil.CreateWorkspace(t, env.WorkspaceRepo, "Escola Sol", "ABCD-1234", true)

	m, err := env.MemberSvc.Create(ctx, w.ID, newAna())
	require.NoError(t, err)

	require.NoError(t, env.MemberSvc.Deactivate(ctx, w.ID, m.ID))
	got, err := env.MemberSvc.Get(ctx, w.ID, m.ID)
	require.NoError(t, err)
	assert.False(t, got.IsActive)

	inactive := false
	members, err := env.MemberSvc.Query(ctx, w.ID, &member.QueryFilter{IsActive: &inactive}, nil)
	require.NoError(t, err)
	require.Len(t, members, 1)
	assert.Equal(t, m.ID, members[0].ID)

	require.NoError(t, env.MemberSvc.Reactivate(ctx, w.ID, m.ID))
	members, err = env.MemberSvc.Query(ctx, w.ID, &member.QueryFilter{IsActive: &inactive}, nil)
	require.NoError(t, err)
	assert.Empty(t, members)

	require.NoError(t, env.MemberSvc.Delete(ctx, w.ID, m.ID))
	_, err = env.MemberSvc.Get(ctx, w.ID, m.ID)
	assert.True(t, errors.Is(err, core.ErrNotFound))
	as, err := env.MemberSvc.Assignments(ctx, m.ID)
	require.NoError(t, err)
	assert.Empty(t, as)

	assert.True(t, errors.Is(env.MemberSvc.Delete(ctx, w.ID, m.ID), core.ErrNotFound))
	assert.True(t, errors.Is(env.MemberSvc.Deactivate(ctx, w.ID, m.ID), core.ErrNotFound))
}

func TestService_VerifyCredentials(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()
	w := testutil.CreateWorkspace(t, env.WorkspaceRepo, "Escola Sol", "ABCD-1234", true)

	ana := testutil.CreateMember(t, env.MemberRepo, w.ID, "Ana", "ana@escola.br", "senha123",
		member.Capabilities{}, member.VisibilityAll, member.Links{}, true)
	testutil.CreateMember(t, env.MemberRepo, w.ID, "Bia", "bia@escola.br", "senha123",
		member.Capabilities{}, member.VisibilityAll, member.Links{}, false)
	legacy := testutil.CreateMember(t, env.MemberRepo, w.ID, "Caio", "caio@escola.br", "",
		member.Capabilities{}, member.VisibilityAll, member.Links{}, true)

	tests := []struct {
		name   string
		email  string
		pwd    string
		wantOK bool
		wantID string
	}{
		{name: "match", email: "ana@escola.br", pwd: "senha123", wantOK: true, wantID: ana.ID},
		{name: "email is case-insensitive", email: " ANA@escola.br", pwd: "senha123", wantOK: true, wantID: ana.ID},
		{name: "wrong password", email: "ana@escola.br", pwd: "senha", wantOK: false},
		{name: "unknown email", email: "zoe@escola.br", pwd: "senha123", wantOK: false},
		{name: "inactive", email: "bia@escola.br", pwd: "senha123", wantOK: false},
		{name: "no stored hash matches anything", email: "caio@escola.br", pwd: "whatever", wantOK: true, wantID: legacy.ID},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, ok, err := env.MemberSvc.VerifyCredentials(ctx, w.ID, tt.email, tt.pwd)
			require.NoError(t, err)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantID, m.ID)
		})
	}

	t.Run("attempts are audited", func(t *testing.T) {
		entries, err := env.Trail.Recent(ctx, w.ID, 100)
		require.NoError(t, err)
		require.Len(t, entries, len(tests))

		// newest first
		assert.Equal(t, audit.EventMemberLogin, entries[0].Event)
		assert.Equal(t, "caio@escola.br", entries[0].Email)
		assert.True(t, entries[0].Success)
		assert.False(t, entries[1].Success)
	})
}

func TestService_SetPassword(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()
	w := testutil.CreateWorkspace(t, env.WorkspaceRepo, "Escola Sol", "ABCD-1234", true)
	testutil.CreateMember(t, env.MemberRepo, w.ID, "Ana", "ana@escola.br", "senha123",
		member.Capabilities{}, member.VisibilityAll, member.Links{}, true)

	var vErr *core.ValidationError
	assert.True(t, errors.As(env.MemberSvc.SetPassword(ctx, w.ID, "ana@escola.br", "abc"), &vErr))
	assert.True(t, errors.Is(env.MemberSvc.SetPassword(ctx, w.ID, "zoe@escola.br", "nova-senha"), core.ErrNotFound))

	require.NoError(t, env.MemberSvc.SetPassword(ctx, w.ID, "Ana@Escola.br", "nova-senha"))
	_, ok, err := env.MemberSvc.VerifyCredentials(ctx, w.ID, "ana@escola.br", "nova-senha")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestService_passwordReset(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()
	w := testutil.CreateWorkspace(t, env.WorkspaceRepo, "Escola Sol", "ABCD-1234", true)
	ana := testutil.CreateMember(t, env.MemberRepo, w.ID, "Ana", "ana@escola.br", "senha123",
		member.Capabilities{}, member.VisibilityAll, member.Links{}, true)
	testutil.CreateMember(t, env.MemberRepo, w.ID, "Bia", "bia@escola.br", "senha123",
		member.Capabilities{}, member.VisibilityAll, member.Links{}, false)

	assert.True(t, errors.Is(env.MemberSvc.RequestPasswordReset(ctx, w.ID, "zoe@escola.br"), core.ErrNotFound))
	assert.True(t, errors.Is(env.MemberSvc.RequestPasswordReset(ctx, w.ID, "bia@escola.br"), core.ErrNotFound))
	assert.True(t, errors.Is(env.MemberSvc.RequestPasswordReset(ctx, "other", "ana@escola.br"), core.ErrNotFound))
	assert.Empty(t, env.Mailer.SentMessages())

	require.NoError(t, env.MemberSvc.RequestPasswordReset(ctx, w.ID, " Ana@escola.br "))
	sent := env.Mailer.SentMessages()
	require.Len(t, sent, 1)
	prefix := "http://frontend.test/password-reset/" + member.EncodeUID(ana) + "/"
	assert.Contains(t, sent[0].TextContent, prefix)

	start := strings.Index(sent[0].TextContent, prefix) + len(prefix)
	token := strings.Fields(sent[0].TextContent[start:])[0]

	require.NoError(t, env.MemberSvc.ResetPassword(ctx, member.ResetPassword{
		UID: member.EncodeUID(ana), Token: token, Password: "nova-senha", PasswordConfirm: "nova-senha",
	}))
	_, ok, err := env.MemberSvc.VerifyCredentials(ctx, w.ID, "ana@escola.br", "nova-senha")
	require.NoError(t, err)
	assert.True(t, ok)

	entries, err := env.Trail.Recent(ctx, w.ID, 10)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, audit.EventPasswordReset, entries[1].Event)
	assert.Equal(t, ana.ID, entries[1].MemberID)
}
