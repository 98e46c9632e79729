package echoapi

import (
	"net/http"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/trezcool/inclusiva/core"
	"github.com/trezcool/inclusiva/core/access"
	"github.com/trezcool/inclusiva/core/member"
	"github.com/trezcool/inclusiva/core/workspace"
	"github.com/trezcool/inclusiva/services/metrics"
)

var (
	nowFunc = time.Now // mockable

	tokenContextKey   = "userToken"
	sessionContextKey = "session"
	signingMethod     = middleware.AlgorithmHS256
)

func jwtConfig(conf *core.Config) middleware.JWTConfig {
	return middleware.JWTConfig{
		SigningKey:    []byte(conf.SecretKey),
		SigningMethod: signingMethod,
		ContextKey:    tokenContextKey,
		Claims:        new(Claims),
	}
}

// Claims represents the authorization claims transmitted via a JWT.
// Capabilities are not carried: they are re-read from the store on every request.
type Claims struct {
	jwt.StandardClaims
	OrigIssuedAt  int64  `json:"oriat,omitempty"`
	WorkspaceID   string `json:"wid"`
	WorkspaceName string `json:"wname,omitempty"`
	MemberID      string `json:"mid,omitempty"`
	Name          string `json:"name,omitempty"`
	Role          string `json:"role,omitempty"`
}

// NewClaims returns the claims of sess. origIat keeps the original login time across refreshes.
func NewClaims(sess access.Session, conf *core.Config, origIat ...int64) *Claims {
	now := nowFunc()
	nownix := now.Unix()

	oriat := nownix
	if len(origIat) > 0 {
		oriat = origIat[0]
	}

	subject := sess.MemberID()
	if subject == "" {
		subject = sess.WorkspaceID()
	}

	return &Claims{
		StandardClaims: jwt.StandardClaims{
			Issuer:    conf.AppName,
			Subject:   subject,
			ExpiresAt: now.Add(conf.Server.JWTExpirationDelta).Unix(),
			IssuedAt:  nownix,
		},
		OrigIssuedAt:  oriat,
		WorkspaceID:   sess.WorkspaceID(),
		WorkspaceName: sess.WorkspaceName(),
		MemberID:      sess.MemberID(),
		Name:          sess.UserName(),
		Role:          sess.Role(),
	}
}

// GenerateToken generates a signed JWT token string representing the Claims.
func GenerateToken(claims *Claims, conf *core.Config) (string, error) {
	token := jwt.NewWithClaims(jwt.GetSigningMethod(signingMethod), claims)
	ss, err := token.SignedString([]byte(conf.SecretKey))
	if err != nil {
		return "", errors.Wrap(err, "signing token")
	}
	return ss, nil
}

func getContextClaims(ctx echo.Context) (Claims, error) {
	if token, ok := ctx.Get(tokenContextKey).(*jwt.Token); ok {
		if claims, ok := token.Claims.(*Claims); ok {
			return *claims, nil
		}
	}
	return Claims{}, errUnauthorized
}

func getContextSession(ctx echo.Context) (access.Session, error) {
	if sess, ok := ctx.Get(sessionContextKey).(access.Session); ok {
		return sess, nil
	}
	return access.Session{}, errUnauthorized
}

type authApi struct {
	conf      *core.Config
	wsSvc     workspace.ServiceInterface
	memberSvc member.ServiceInterface
	metrics   *metrics.Metrics
	validate  *validator.Validate
}

func registerAuthAPI(g *echo.Group, authed []echo.MiddlewareFunc, deps ServerDeps) {
	api := authApi{
		conf:      deps.Conf,
		wsSvc:     deps.WorkspaceSvc,
		memberSvc: deps.MemberSvc,
		metrics:   deps.Metrics,
		validate:  deps.Validate,
	}

	ag := g.Group("/auth")
	ag.POST("/login", api.login)
	ag.POST("/token-refresh", api.refreshToken, authed...)
	ag.POST("/password-reset", api.resetPassword)
	ag.POST("/password-reset-confirm", api.confirmPasswordReset)

	g.GET("/me", api.me, authed...)
}

func (api *authApi) recordLogin(method string, success bool) {
	if api.metrics != nil {
		api.metrics.RecordLogin(method, success)
	}
}

// authenticate resolves the workspace by PIN, then the person behind email/password:
// the workspace master first, then a member. Without an email the session is PIN-only.
func (api *authApi) authenticate(ctx echo.Context, data LoginRequest) (access.Session, error) {
	rctx := ctx.Request().Context()

	w, err := api.wsSvc.VerifyPIN(rctx, data.PIN)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			api.recordLogin("pin", false)
			return access.Session{}, errAuthenticationFailed
		}
		return access.Session{}, errors.Wrap(err, "verifying PIN")
	}

	if data.Email == "" {
		if !api.conf.Auth.AllowPINOnlyLogin {
			return access.Session{}, core.NewValidationError(nil, core.FieldError{Field: "email", Error: "this field is required"})
		}
		api.recordLogin("pin", true)
		return access.NewOwnerSession(w.ID, w.Name, w.Name), nil
	}

	master, ok, err := api.wsSvc.VerifyMasterCredentials(rctx, w.ID, data.Email, data.Password)
	if err != nil {
		return access.Session{}, errors.Wrap(err, "verifying master credentials")
	}
	if ok {
		api.recordLogin("master", true)
		return access.NewOwnerSession(w.ID, w.Name, master.Name), nil
	}

	m, ok, err := api.memberSvc.VerifyCredentials(rctx, w.ID, data.Email, data.Password)
	if err != nil {
		return access.Session{}, errors.Wrap(err, "verifying member credentials")
	}
	api.recordLogin("member", ok)
	if !ok {
		return access.Session{}, errAuthenticationFailed
	}
	return access.NewMemberSession(w.Name, m), nil
}

func (api *authApi) login(ctx echo.Context) error {
	var data LoginRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to LoginRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	sess, err := api.authenticate(ctx, data)
	if err != nil {
		return err
	}
	token, err := GenerateToken(NewClaims(sess, api.conf), api.conf)
	if err != nil {
		return errors.Wrap(err, "generating token")
	}
	return ctx.JSON(http.StatusOK, LoginResponse{Token: token, Session: sess.View()})
}

func (api *authApi) refreshToken(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	sess, err := getContextSession(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context session")
	}

	// check if refresh has not expired
	expTime := time.Unix(claims.OrigIssuedAt, 0).Add(api.conf.Server.JWTRefreshExpirationDelta)
	if nowFunc().After(expTime) {
		return errRefreshExpired
	}

	token, err := GenerateToken(NewClaims(sess, api.conf, claims.OrigIssuedAt), api.conf)
	if err != nil {
		return errors.Wrap(err, "generating token")
	}
	return ctx.JSON(http.StatusOK, LoginResponse{Token: token, Session: sess.View()})
}

func (api *authApi) resetPassword(ctx echo.Context) error {
	var data PasswordResetRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to PasswordResetRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	rctx := ctx.Request().Context()
	w, err := api.wsSvc.GetByPIN(rctx, data.PIN)
	if err == nil {
		err = api.memberSvc.RequestPasswordReset(rctx, w.ID, data.Email)
	}
	if !(err == nil || errors.Is(err, core.ErrNotFound)) {
		// do not return errors to attackers
		ctx.Logger().Errorf("%+v", errors.Wrap(err, "requesting password reset"))
	}
	return ctx.JSON(http.StatusOK, SuccessResponse{
		Success: "If the email address supplied is associated with an active account on this system, " +
			"an email will arrive in your inbox shortly with instructions to reset your password.",
	})
}

func (api *authApi) confirmPasswordReset(ctx echo.Context) error {
	var data member.ResetPassword
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ResetPassword")
	}
	if err := api.memberSvc.ResetPassword(ctx.Request().Context(), data); err != nil {
		return errors.Wrap(err, "resetting password")
	}
	return ctx.JSON(http.StatusOK, SuccessResponse{Success: "Password has been reset with the new password."})
}

func (api *authApi) me(ctx echo.Context) error {
	sess, err := getContextSession(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, sess.View())
}

type (
	LoginRequest struct {
		PIN      string `json:"pin" validate:"required,pin"`
		Email    string `json:"email" validate:"omitempty,email"`
		Password string `json:"password" validate:"required_with=Email"`
	}

	LoginResponse struct {
		Token   string      `json:"token"`
		Session access.View `json:"session"`
	}

	PasswordResetRequest struct {
		PIN   string `json:"pin" validate:"required,pin"`
		Email string `json:"email" validate:"required,email"`
	}

	SuccessResponse struct {
		Success string `json:"success"`
	}
)

func (lr *LoginRequest) Validate(validate *validator.Validate) error {
	lr.PIN = workspace.NormalizePIN(lr.PIN)
	lr.Email = core.CleanString(lr.Email, true /* lower */)
	return validate.Struct(lr)
}

func (pr *PasswordResetRequest) Validate(validate *validator.Validate) error {
	pr.PIN = workspace.NormalizePIN(pr.PIN)
	pr.Email = core.CleanString(pr.Email, true /* lower */)
	return validate.Struct(pr)
}
