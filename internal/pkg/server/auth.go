/*
登录认证：
1. POST /login 支持 Basic 头或 JSON 请求体，成功后签发 JWT
2. /v1 下的接口按 Authorization 头自动选择 Basic 或 Bearer
3. POST /logout 把令牌 jti 写入吊销集合，JWT 中间件拒绝已吊销的令牌
4. POST /refresh 在 MaxRefresh 窗口内换发新令牌
连续失败达到 MaxLoginFailures 次后锁定 LoginFailReset 时长.
*/
package server

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	ginjwt "github.com/appleboy/gin-jwt/v2"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"github.com/maxiaolu1981/cretem/nexuscore/errors"

	v1 "github.com/maxiaolu1981/cretem/obs-mini/api/apiserver/v1"
	"github.com/maxiaolu1981/cretem/obs-mini/internal/pkg/audit"
	"github.com/maxiaolu1981/cretem/obs-mini/internal/pkg/auth/keys"
	"github.com/maxiaolu1981/cretem/obs-mini/internal/pkg/code"
	"github.com/maxiaolu1981/cretem/obs-mini/internal/pkg/core"
	"github.com/maxiaolu1981/cretem/obs-mini/internal/pkg/metrics"
	"github.com/maxiaolu1981/cretem/obs-mini/internal/pkg/middleware"
	"github.com/maxiaolu1981/cretem/obs-mini/internal/pkg/middleware/auth"
	"github.com/maxiaolu1981/cretem/obs-mini/internal/pkg/middleware/common"
	"github.com/maxiaolu1981/cretem/obs-mini/pkg/log"
)

const (
	authErrorKey   = "auth_error"
	currentUserKey = "current_user"
	claimJTI       = "jti"
	claimUserID    = "userId"
	claimOfficeID  = "officeId"
)

// 同一窗口内 INCR 并在首次设置过期时间
const loginFailScript = `
local current = redis.call('INCR', KEYS[1])
if current == 1 then
    redis.call('EXPIRE', KEYS[1], ARGV[1])
end
return current
`

type loginInfo struct {
	Username string
	Password string
}

type loginResponse struct {
	Username      string   `json:"username"`
	UserID        int64    `json:"userId"`
	OfficeID      int64    `json:"officeId"`
	Authenticated bool     `json:"authenticated"`
	Token         string   `json:"token"`
	Expire        string   `json:"expire"`
	Permissions   []string `json:"permissions"`
}

func (g *GenericAPIServer) newBasicAuth() middleware.AuthStrategy {
	return auth.NewBasicStrategy(func(ctx context.Context, username, password string) error {
		_, err := g.verifyPassword(ctx, username, password)
		return err
	})
}

func (g *GenericAPIServer) newJWTAuth() (*ginjwt.GinJWTMiddleware, error) {
	opts := g.options.JwtOptions
	mw, err := ginjwt.New(&ginjwt.GinJWTMiddleware{
		Realm:            opts.Realm,
		SigningAlgorithm: "HS256",
		Key:              []byte(opts.Key),
		Timeout:          opts.Timeout,
		MaxRefresh:       opts.MaxRefresh,
		IdentityKey:      common.UsernameKey,
		TokenLookup:      "header: Authorization, query: token, cookie: jwt",
		TokenHeadName:    "Bearer",
		SendCookie:       false,
		TimeFunc:         time.Now,

		Authenticator:   g.authenticate,
		PayloadFunc:     g.payload,
		IdentityHandler: g.identityHandler,
		Authorizator: func(data interface{}, c *gin.Context) bool {
			return data != nil
		},
		HTTPStatusMessageFunc: func(e error, c *gin.Context) string {
			return e.Error()
		},
		LoginResponse:   g.loginResponse,
		RefreshResponse: g.refreshResponse,
		Unauthorized:    handleUnauthorized,
	})
	if err != nil {
		return nil, errors.WithCode(code.ErrUnknown, "建立 JWT middleware 失败: %v", err)
	}
	return mw, nil
}

func (g *GenericAPIServer) newAutoAuth() middleware.AuthStrategy {
	return auth.NewAutoStrategy(g.newBasicAuth(), auth.NewJWTStrategy(g.jwt))
}

// authenticate 解析凭据并校验，错误记录到上下文由 handleUnauthorized 输出.
func (g *GenericAPIServer) authenticate(c *gin.Context) (interface{}, error) {
	login, err := parseLogin(c)
	if err != nil {
		recordErrorToContext(c, err)
		return nil, err
	}
	if login.Username == "" || login.Password == "" {
		err := errors.WithCode(code.ErrValidation, "username and password are required")
		recordErrorToContext(c, err)
		return nil, err
	}

	ctx := c.Request.Context()
	limit := g.options.ServerRunOptions.MaxLoginFailures
	if limit > 0 {
		if fails := g.loginFailCount(ctx, login.Username); fails >= limit {
			metrics.LoginAttempts.WithLabelValues("locked").Inc()
			err := errors.WithCode(code.ErrPasswordIncorrect,
				"登录失败次数过多，请 %s 后重试", g.options.ServerRunOptions.LoginFailReset)
			g.auditLogin(c, login.Username, audit.OutcomeDeny, err)
			recordErrorToContext(c, err)
			return nil, err
		}
	}

	user, err := g.verifyPassword(ctx, login.Username, login.Password)
	if err != nil {
		if errors.IsCode(err, code.ErrPasswordIncorrect) {
			g.increaseLoginFail(ctx, login.Username)
		}
		metrics.LoginAttempts.WithLabelValues("failure").Inc()
		g.auditLogin(c, login.Username, audit.OutcomeFail, err)
		recordErrorToContext(c, err)
		return nil, err
	}

	g.resetLoginFail(ctx, login.Username)
	metrics.LoginAttempts.WithLabelValues("success").Inc()
	g.auditLogin(c, login.Username, audit.OutcomeSuccess, nil)
	c.Set(currentUserKey, user)
	return user, nil
}

// verifyPassword 用户不存在与密码错误返回同一个错误码.
func (g *GenericAPIServer) verifyPassword(ctx context.Context, username, password string) (*v1.AppUser, error) {
	user, err := g.store.Security().GetUserByUsername(ctx, username)
	if err != nil {
		if errors.IsCode(err, code.ErrUserNotFound) {
			return nil, errors.WithCode(code.ErrPasswordIncorrect, "用户名或密码错误")
		}
		return nil, err
	}
	if ok, hit := g.credentials.lookup(user, password); hit {
		if !ok {
			return nil, errors.WithCode(code.ErrPasswordIncorrect, "用户名或密码错误")
		}
		if !user.Enabled {
			return nil, errors.WithCode(code.ErrUserDisabled, "User %s is disabled", username)
		}
		return user, nil
	}

	stored := user
	user, err = g.service.Security().Authenticate(ctx, username, password)
	switch {
	case err == nil:
		g.credentials.store(stored, password, true)
	case errors.IsCode(err, code.ErrPasswordIncorrect):
		g.credentials.store(stored, password, false)
	}
	return user, err
}

func parseLogin(c *gin.Context) (loginInfo, error) {
	if header := c.Request.Header.Get("Authorization"); header != "" {
		username, password, err := auth.ParseBasicHeader(header)
		if err != nil {
			return loginInfo{}, err
		}
		return loginInfo{Username: username, Password: password}, nil
	}
	body, err := c.GetRawData()
	if err != nil {
		return loginInfo{}, errors.WithCode(code.ErrBind, "读取请求体失败: %v", err)
	}
	var login loginInfo
	if err := decodeLoginInfo(body, &login); err != nil {
		return loginInfo{}, err
	}
	return login, nil
}

func (g *GenericAPIServer) payload(data interface{}) ginjwt.MapClaims {
	claims := ginjwt.MapClaims{
		"iss":    APIServerIssuer,
		"aud":    APIServerAudience,
		"iat":    time.Now().Unix(),
		claimJTI: uuid.NewString(),
	}
	if u, ok := data.(*v1.AppUser); ok {
		claims[common.UsernameKey] = u.Username
		claims["sub"] = u.Username
		claims[claimUserID] = u.ID
		claims[claimOfficeID] = u.OfficeID
	}
	return claims
}

// identityHandler 令牌已吊销时返回 nil，由 Authorizator 拒绝.
func (g *GenericAPIServer) identityHandler(c *gin.Context) interface{} {
	claims := ginjwt.ExtractClaims(c)
	username, _ := claims[common.UsernameKey].(string)
	if username == "" {
		username, _ = claims["sub"].(string)
	}
	if username == "" {
		recordErrorToContext(c, errors.WithCode(code.ErrTokenInvalid, "token has no subject"))
		return nil
	}
	if jti, _ := claims[claimJTI].(string); jti != "" && g.revoked.IsRevoked(c.Request.Context(), jti, g.expireOf(claims)) {
		recordErrorToContext(c, errors.WithCode(code.ErrTokenRevoked, "token has been revoked"))
		return nil
	}
	return username
}

func (g *GenericAPIServer) loginResponse(c *gin.Context, _ int, token string, expire time.Time) {
	resp := loginResponse{
		Authenticated: true,
		Token:         token,
		Expire:        expire.Format(time.RFC3339),
	}
	if v, ok := c.Get(currentUserKey); ok {
		if u, ok := v.(*v1.AppUser); ok {
			resp.Username = u.Username
			resp.UserID = u.ID
			resp.OfficeID = u.OfficeID
			resp.Permissions = v1.NewPlatformUser(u, "").PermissionCodes()
		}
	}
	log.L(c).Infow("用户登录成功", "username", resp.Username)
	c.JSON(http.StatusOK, resp)
}

func (g *GenericAPIServer) refreshResponse(c *gin.Context, _ int, token string, expire time.Time) {
	c.JSON(http.StatusOK, gin.H{
		"token":  token,
		"expire": expire.Format(time.RFC3339),
	})
}

// refreshGuard 刷新前拒绝已吊销的令牌.
func (g *GenericAPIServer) refreshGuard(c *gin.Context) {
	token, err := g.jwt.ParseToken(c)
	if err != nil && (token == nil || !tokenExpiredOnly(err)) {
		handleUnauthorized(c, http.StatusUnauthorized, err.Error())
		return
	}
	claims := ginjwt.ExtractClaimsFromToken(token)
	if jti, _ := claims[claimJTI].(string); jti != "" && g.revoked.IsRevoked(c.Request.Context(), jti, g.expireOf(claims)) {
		core.WriteResponse(c, errors.WithCode(code.ErrTokenRevoked, "token has been revoked"), nil)
		return
	}
	c.Next()
}

// tokenExpiredOnly 签名有效但已过期的令牌仍可在 MaxRefresh 内刷新.
func tokenExpiredOnly(err error) bool {
	var ve *jwt.ValidationError
	return stderrors.As(err, &ve) && ve.Errors == jwt.ValidationErrorExpired
}

// logout 位于 JWT 中间件之后，吊销当前令牌直到其自然过期.
func (g *GenericAPIServer) logout(c *gin.Context) {
	claims := ginjwt.ExtractClaims(c)
	jti, _ := claims[claimJTI].(string)
	if jti == "" {
		core.WriteResponse(c, errors.WithCode(code.ErrTokenInvalid, "token has no jti"), nil)
		return
	}
	g.revoked.Revoke(c.Request.Context(), jti, g.expireOf(claims))

	username := c.GetString(common.UsernameKey)
	g.auditEvent(c, username, "auth.logout", audit.OutcomeSuccess, nil)
	log.L(c).Infow("用户已注销", "username", username, "jti", jti)
	c.JSON(http.StatusOK, gin.H{"message": "logout success"})
}

// expireOf 刷新后的令牌沿用 jti，按 MaxRefresh 估算最晚失效时间.
func (g *GenericAPIServer) expireOf(claims ginjwt.MapClaims) time.Time {
	if iat, ok := claims["orig_iat"].(float64); ok {
		return time.Unix(int64(iat), 0).Add(g.options.JwtOptions.MaxRefresh + g.options.JwtOptions.Timeout)
	}
	if exp, ok := claims["exp"].(float64); ok {
		return time.Unix(int64(exp), 0)
	}
	return time.Now().Add(g.options.JwtOptions.Timeout)
}

func recordErrorToContext(c *gin.Context, err error) {
	if c != nil && err != nil {
		c.Set(authErrorKey, err)
	}
}

// handleUnauthorized 优先使用上下文中记录的业务错误，否则按 gin-jwt 的错误信息归类.
func handleUnauthorized(c *gin.Context, httpCode int, message string) {
	if v, ok := c.Get(authErrorKey); ok {
		if err, ok := v.(error); ok {
			core.WriteResponse(c, err, nil)
			return
		}
	}
	core.WriteResponse(c, errors.WithCode(classifyJWTError(message), "%s", message), nil)
}

func classifyJWTError(message string) int {
	switch message {
	case ginjwt.ErrExpiredToken.Error():
		return code.ErrExpired
	case ginjwt.ErrEmptyAuthHeader.Error(), ginjwt.ErrEmptyQueryToken.Error(), ginjwt.ErrEmptyCookieToken.Error():
		return code.ErrMissingHeader
	case ginjwt.ErrInvalidAuthHeader.Error():
		return code.ErrInvalidAuthHeader
	case ginjwt.ErrFailedAuthentication.Error(), ginjwt.ErrMissingLoginValues.Error():
		return code.ErrPasswordIncorrect
	case ginjwt.ErrInvalidSigningAlgorithm.Error():
		return code.ErrSignatureInvalid
	default:
		return code.ErrTokenInvalid
	}
}

func (g *GenericAPIServer) loginFailCount(ctx context.Context, username string) int {
	if g.redis == nil {
		return 0
	}
	val, err := g.redis.GetKey(ctx, keys.LoginFailKey(username))
	if err != nil {
		return 0
	}
	n, _ := strconv.Atoi(val)
	return n
}

func (g *GenericAPIServer) increaseLoginFail(ctx context.Context, username string) {
	if g.redis == nil {
		return
	}
	window := int64(g.options.ServerRunOptions.LoginFailReset / time.Second)
	if window < 1 {
		window = 1
	}
	if _, err := g.redis.Eval(ctx, loginFailScript, []string{keys.LoginFailKey(username)}, []interface{}{window}); err != nil {
		log.L(ctx).Warnf("记录登录失败次数失败: username=%s, error=%v", username, err)
	}
}

func (g *GenericAPIServer) resetLoginFail(ctx context.Context, username string) {
	if g.redis == nil {
		return
	}
	if _, err := g.redis.DeleteKey(ctx, keys.LoginFailKey(username)); err != nil {
		log.L(ctx).Debugf("重置登录失败次数失败: username=%s, error=%v", username, err)
	}
}

func (g *GenericAPIServer) auditLogin(c *gin.Context, username, outcome string, err error) {
	g.auditEvent(c, username, "auth.login", outcome, err)
}

func (g *GenericAPIServer) auditEvent(c *gin.Context, username, action, outcome string, err error) {
	if !g.audit.Enabled() {
		return
	}
	event := audit.BuildEventFromRequest(c.Request)
	event.RequestID = c.GetString(common.XRequestIDKey)
	event.Actor = username
	event.Action = action
	event.ResourceType = "session"
	event.Target = c.ClientIP()
	event.Outcome = outcome
	if err != nil {
		event.ErrorMessage = fmt.Sprintf("%v", err)
	}
	g.audit.Submit(c.Request.Context(), event)
}
