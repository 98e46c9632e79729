package tests

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/trezcool/inclusiva/apps/api/echo"
	"github.com/trezcool/inclusiva/core/access"
	"github.com/trezcool/inclusiva/services/metrics"
	"github.com/trezcool/inclusiva/tests"
)

const testPIN = "ABCD-1234"

var errMissingToken = httpErr{Error: "missing or malformed jwt"}

func setup(t *testing.T) (echoapi.Server, *testutil.Env) {
	env := testutil.NewEnv(t)
	app := echoapi.NewServer(echoapi.ServerDeps{
		Conf:         env.Conf,
		Logger:       env.Logger,
		Metrics:      metrics.New("inclusiva_test"),
		WorkspaceSvc: env.WorkspaceSvc,
		MemberSvc:    env.MemberSvc,
		StudentSvc:   env.StudentSvc,
		Validate:     env.Validate,
		Translator:   env.Translator,
	})
	return app, env
}

type httpErr struct {
	Error string `json:"error"`
}

func newAuthRequest(method, path, token string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func newRequest(method, path string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	return newAuthRequest(method, path, "", data...)
}

func serve(app echoapi.Server, method, path, token string, data ...[]byte) *httptest.ResponseRecorder {
	req, rec := newAuthRequest(method, path, token, data...)
	app.ServeHTTP(rec, req)
	return rec
}

func getToken(t *testing.T, env *testutil.Env, sess access.Session) string {
	token, err := echoapi.GenerateToken(echoapi.NewClaims(sess, env.Conf), env.Conf)
	require.NoError(t, err, "getToken()")
	return token
}

func marshalObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	require.NoError(t, err, "marshalObj()")
	return data
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, dest interface{}) {
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), dest), "decode(%s)", rec.Body.String())
}

func login(t *testing.T, app echoapi.Server, pin, email, pwd string) echoapi.LoginResponse {
	rec := serve(app, http.MethodPost, "/v1/auth/login", "", marshalObj(t, echoapi.LoginRequest{PIN: pin, Email: email, Password: pwd}))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp echoapi.LoginResponse
	decode(t, rec, &resp)
	return resp
}
