package tests

import (
	"net/http"
	"net/mail"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/inclusiva/apps/api/echo"
	"github.com/trezcool/inclusiva/core/member"
	"github.com/trezcool/inclusiva/tests"
)

var resetPathRegex = regexp.MustCompile(`/password-reset/([A-Za-z0-9_-]+)/([A-Za-z0-9_-]+)`)

func Test_authApi_resetPassword(t *testing.T) {
	app, env := setup(t)

	w := testutil.CreateWorkspace(t, env.WorkspaceRepo, "Escola Sol", testPIN, true)
	ana := testutil.CreateMember(t, env.MemberRepo, w.ID, "Ana", "ana@escola.br", "senha123",
		member.Capabilities{}, member.VisibilityAll, member.Links{}, true)
	testutil.CreateMember(t, env.MemberRepo, w.ID, "Bia", "bia@escola.br", "senha123",
		member.Capabilities{}, member.VisibilityAll, member.Links{}, false)

	successData := marshalObj(t, echoapi.SuccessResponse{Success: "If the email address supplied is associated with an active account on this system, " +
		"an email will arrive in your inbox shortly with instructions to reset your password."})

	tests := []struct {
		name      string
		body      interface{}
		wantCode  int
		wantData  []byte
		emailSent bool
	}{
		{
			name: "required fields", body: echoapi.PasswordResetRequest{}, wantCode: http.StatusBadRequest,
			wantData: marshalObj(t, map[string]string{"pin": "this field is required", "email": "this field is required"}),
		},
		{
			name: "invalid email", body: echoapi.PasswordResetRequest{PIN: testPIN, Email: "lol"}, wantCode: http.StatusBadRequest,
			wantData: marshalObj(t, map[string]string{"email": "email must be a valid email address"}),
		},
		{name: "unknown PIN", body: echoapi.PasswordResetRequest{PIN: "ZZZZ-0000", Email: ana.Email}, wantCode: http.StatusOK, wantData: successData},
		{name: "unknown email", body: echoapi.PasswordResetRequest{PIN: testPIN, Email: "lol@escola.br"}, wantCode: http.StatusOK, wantData: successData},
		{name: "inactive member", body: echoapi.PasswordResetRequest{PIN: testPIN, Email: "bia@escola.br"}, wantCode: http.StatusOK, wantData: successData},
		{
			name: "known email", body: echoapi.PasswordResetRequest{PIN: "abcd-1234", Email: "ANA@escola.br"},
			wantCode: http.StatusOK, wantData: successData, emailSent: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env.Mailer.Reset()

			rec := serve(app, http.MethodPost, "/v1/auth/password-reset", "", marshalObj(t, tt.body))
			assert.Equal(t, tt.wantCode, rec.Code)
			assert.JSONEq(t, string(tt.wantData), rec.Body.String())

			sent := env.Mailer.SentMessages()
			if !tt.emailSent {
				assert.Empty(t, sent)
				return
			}
			require.Len(t, sent, 1)
			msg := sent[0]
			assert.Equal(t, mail.Address{Name: "Ana", Address: "ana@escola.br"}, msg.To[0])
			assert.Contains(t, msg.TextContent, "Ana")
			assert.Contains(t, msg.HTMLContent, "Ana")
			assert.Regexp(t, resetPathRegex, msg.TextContent)
			assert.Regexp(t, resetPathRegex, msg.HTMLContent)
		})
	}
}

func Test_authApi_confirmPasswordReset(t *testing.T) {
	app, env := setup(t)

	w := testutil.CreateWorkspace(t, env.WorkspaceRepo, "Escola Sol", testPIN, true)
	ana := testutil.CreateMember(t, env.MemberRepo, w.ID, "Ana", "ana@escola.br", "senha123",
		member.Capabilities{}, member.VisibilityAll, member.Links{}, true)

	rec := serve(app, http.MethodPost, "/v1/auth/password-reset", "", marshalObj(t, echoapi.PasswordResetRequest{PIN: testPIN, Email: ana.Email}))
	require.Equal(t, http.StatusOK, rec.Code)
	sent := env.Mailer.SentMessages()
	require.Len(t, sent, 1)
	match := resetPathRegex.FindStringSubmatch(sent[0].TextContent)
	require.Len(t, match, 3)
	uid, token := match[1], match[2]
	assert.Equal(t, member.EncodeUID(ana), uid)

	reqMsg := "this field is required"
	tests := []struct {
		name     string
		body     member.ResetPassword
		wantCode int
		wantData []byte
	}{
		{
			name: "required fields", wantCode: http.StatusBadRequest,
			wantData: marshalObj(t, map[string]string{"uid": reqMsg, "token": reqMsg, "password": reqMsg, "password_confirm": reqMsg}),
		},
		{
			name: "password too short", wantCode: http.StatusBadRequest,
			body:     member.ResetPassword{UID: uid, Token: token, Password: "abc", PasswordConfirm: "abc"},
			wantData: marshalObj(t, map[string]string{"password": "password must contain at least 4 characters"}),
		},
		{
			name: "passwords differ", wantCode: http.StatusBadRequest,
			body:     member.ResetPassword{UID: uid, Token: token, Password: "nova-senha", PasswordConfirm: "lol"},
			wantData: marshalObj(t, map[string]string{"password_confirm": "password_confirm must be equal to Password"}),
		},
		{
			name: "invalid uid", wantCode: http.StatusBadRequest,
			body:     member.ResetPassword{UID: "bG9s", Token: token, Password: "nova-senha", PasswordConfirm: "nova-senha"},
			wantData: marshalObj(t, map[string]string{"uid": "invalid value"}),
		},
		{
			name: "unknown member", wantCode: http.StatusBadRequest,
			body:     member.ResetPassword{UID: member.EncodeUID(member.Member{WorkspaceID: w.ID, ID: "nope"}), Token: token, Password: "nova-senha", PasswordConfirm: "nova-senha"},
			wantData: marshalObj(t, map[string]string{"uid": "invalid value"}),
		},
		{
			name: "invalid token", wantCode: http.StatusBadRequest,
			body:     member.ResetPassword{UID: uid, Token: "HE4TS-sigsig-sig", Password: "nova-senha", PasswordConfirm: "nova-senha"},
			wantData: marshalObj(t, map[string]string{"token": "invalid token"}),
		},
		{
			name: "valid", wantCode: http.StatusOK,
			body:     member.ResetPassword{UID: uid, Token: token, Password: "nova-senha", PasswordConfirm: "nova-senha"},
			wantData: marshalObj(t, echoapi.SuccessResponse{Success: "Password has been reset with the new password."}),
		},
		{
			name: "token is single use", wantCode: http.StatusBadRequest,
			body:     member.ResetPassword{UID: uid, Token: token, Password: "outra-senha", PasswordConfirm: "outra-senha"},
			wantData: marshalObj(t, map[string]string{"token": "invalid token"}),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(app, http.MethodPost, "/v1/auth/password-reset-confirm", "", marshalObj(t, tt.body))
			assert.Equal(t, tt.wantCode, rec.Code)
			assert.JSONEq(t, string(tt.wantData), rec.Body.String())
		})
	}

	resp := login(t, app, testPIN, "ana@escola.br", "nova-senha")
	assert.Equal(t, ana.ID, resp.Session.MemberID)
}
