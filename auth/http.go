package auth

import (
	"strings"
	"time"

	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-router"
)

// LoginPayload is what the token endpoint binds from the request.
type LoginPayload interface {
	GetIdentifier() string
	GetPassword() string
}

// RouteAuthenticator is the request-level policy gate: a configured
// allow-list of path prefixes bypasses session validation, everything else
// requires a valid, unexpired session whose subject still resolves to an
// active identity record.
type RouteAuthenticator struct {
	auth             Authenticator
	cfg              Config
	cookieDuration   time.Duration
	Logger           Logger
	AuthErrorHandler func(c router.Context, err error) error
}

func NewHTTPAuthenticator(auther Authenticator, cfg Config) (*RouteAuthenticator, error) {
	cookieDuration := 24 * time.Hour
	if cfg.GetTokenExpiration() > 0 {
		cookieDuration = time.Duration(cfg.GetTokenExpiration()) * time.Hour
	}

	a := &RouteAuthenticator{
		cfg:            cfg,
		auth:           auther,
		Logger:         defLogger{},
		cookieDuration: cookieDuration,
	}

	a.AuthErrorHandler = a.defaultAuthErrHandler

	return a, nil
}

func (a RouteAuthenticator) GetCookieDuration() time.Duration {
	return a.cookieDuration
}

// Gate returns the session-enforcing middleware. Allow-listed paths pass
// straight through; every other request must carry a bearer header or the
// session cookie. The subject is re-resolved on every request: a session
// that validates signature-wise but whose subject was deleted after
// issuance is rejected, never crashed on.
func (a *RouteAuthenticator) Gate() router.MiddlewareFunc {
	return func(next router.HandlerFunc) router.HandlerFunc {
		return func(ctx router.Context) error {
			if a.isAllowListed(ctx.Path()) {
				return next(ctx)
			}

			raw := a.extractToken(ctx)
			if raw == "" {
				return a.AuthErrorHandler(ctx, ErrUnableToFindSession)
			}

			claims, err := a.auth.SessionFromToken(raw)
			if err != nil {
				return a.AuthErrorHandler(ctx, err)
			}

			user, err := a.auth.IdentityFromClaims(ctx.Context(), claims)
			if err != nil {
				return a.AuthErrorHandler(ctx, err)
			}

			ctx.Locals(a.cfg.GetContextKey(), claims)

			stdCtx := WithClaimsContext(ctx.Context(), claims)
			ctx.SetContext(WithContext(stdCtx, user))

			return next(ctx)
		}
	}
}

func (a *RouteAuthenticator) isAllowListed(path string) bool {
	for _, prefix := range a.cfg.GetAllowList() {
		if prefix == "" {
			continue
		}
		if prefix == "/" {
			if path == "/" {
				return true
			}
			continue
		}
		if path == prefix || strings.HasPrefix(path, prefix+"/") {
			return true
		}
	}
	return false
}

// extractToken looks in the Authorization header first, then the session
// cookie, mirroring the configured token lookup order.
func (a *RouteAuthenticator) extractToken(ctx router.Context) string {
	scheme := a.cfg.GetAuthScheme()
	if scheme == "" {
		scheme = "Bearer"
	}

	header := ctx.GetString(router.HeaderAuthorization, "")
	l := len(scheme)
	if len(header) > l+1 && strings.EqualFold(header[:l], scheme) {
		return strings.TrimSpace(header[l:])
	}

	return ctx.Cookies(a.cfg.GetContextKey())
}

// Login authenticates the payload and, on success, sets the session cookie
// and returns the signed assertion for API clients.
func (a *RouteAuthenticator) Login(ctx router.Context, payload LoginPayload) (string, error) {
	token, err := a.auth.Login(ctx.Context(), payload.GetIdentifier(), payload.GetPassword())
	if err != nil {
		a.Logger.Info("Login rejected", "error", err)
		return "", err
	}

	a.setCookieToken(ctx, token, a.cookieDuration)
	return token, nil
}

func (a *RouteAuthenticator) Logout(ctx router.Context) {
	a.cookieDel(ctx, a.cfg.GetContextKey())
}

func (a *RouteAuthenticator) GetRedirect(ctx router.Context, def ...string) string {
	rejectedRoute := a.cfg.GetRejectedRouteKey()
	r := ctx.Cookies(rejectedRoute)
	if r == "" && len(def) > 0 {
		return def[0]
	}
	if r == "" {
		return a.cfg.GetRejectedRouteDefault()
	}
	a.cookieDel(ctx, rejectedRoute)
	return r
}

func (a *RouteAuthenticator) SetRedirect(ctx router.Context) {
	rejectedRoute := a.cfg.GetRejectedRouteKey()

	ctx.Cookie(&router.Cookie{
		Name:     rejectedRoute,
		Value:    ctx.OriginalURL(),
		Expires:  time.Now().Add(time.Minute * 5),
		HTTPOnly: true,
		Secure:   true,
		SameSite: "Lax",
	})
}

func (a *RouteAuthenticator) setCookieToken(c router.Context, val string, duration time.Duration) {
	c.Cookie(&router.Cookie{
		Name:     a.cfg.GetContextKey(),
		Value:    val,
		Expires:  time.Now().Add(duration),
		HTTPOnly: true,
		Secure:   true,
		SameSite: "Lax",
	})
}

func (a *RouteAuthenticator) cookieDel(c router.Context, name string) {
	c.Cookie(&router.Cookie{
		Name:     name,
		Value:    "",
		Expires:  time.Now().Add(-time.Hour * (24 * 365)),
		HTTPOnly: true,
		Secure:   true,
		SameSite: "Lax",
	})
}

// defaultAuthErrHandler redirects page requests to the login form and
// answers API requests with a 401 body.
func (a *RouteAuthenticator) defaultAuthErrHandler(c router.Context, err error) error {
	var richErr *errors.Error
	if !errors.As(err, &richErr) {
		richErr = errors.Wrap(err, errors.CategoryAuth, "An unexpected authentication error").
			WithCode(errors.CodeUnauthorized)
	}

	a.Logger.Info(
		"Authentication error",
		"error", richErr.Message,
		"text_code", richErr.TextCode,
		"path", c.OriginalURL(),
	)

	if !wantsHTML(c) {
		return c.JSON(router.StatusUnauthorized, map[string]any{
			"error":     richErr.Message,
			"text_code": richErr.TextCode,
		})
	}

	a.SetRedirect(c)

	statusCode := router.StatusSeeOther
	if c.Method() == string(router.GET) {
		statusCode = router.StatusFound
	}
	return c.Redirect("/login", statusCode)
}

func wantsHTML(c router.Context) bool {
	return strings.Contains(c.GetString("Accept", ""), "text/html")
}
