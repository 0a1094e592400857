package config

import (
	"fmt"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
)

// BaseConfig is the root configuration container, loaded through
// go-config. Every consumer sees a narrow getter interface rather than the
// struct, so packages only depend on the slice of configuration they use.
type BaseConfig struct {
	App         App         `json:"app" koanf:"app"`
	Auth        Auth        `json:"auth" koanf:"auth"`
	Persistence Persistence `json:"persistence" koanf:"persistence"`
	Server      Server      `json:"server" koanf:"server"`
	Sweeper     Sweeper     `json:"sweeper" koanf:"sweeper"`
}

func (c *BaseConfig) GetApp() *App                 { return &c.App }
func (c *BaseConfig) GetAuth() *Auth               { return &c.Auth }
func (c *BaseConfig) GetPersistence() *Persistence { return &c.Persistence }
func (c *BaseConfig) GetServer() *Server           { return &c.Server }
func (c *BaseConfig) GetSweeper() *Sweeper         { return &c.Sweeper }

func (c *BaseConfig) Validate() error {
	if err := c.Auth.Validate(); err != nil {
		return err
	}
	return c.Persistence.Validate()
}

type App struct {
	Name  string `json:"name" koanf:"name"`
	Debug bool   `json:"debug" koanf:"debug"`
}

func (a App) GetName() string {
	if a.Name == "" {
		return "chatvault"
	}
	return a.Name
}

func (a App) GetDebug() bool { return a.Debug }

// Auth configures the session issuer and the gate.
type Auth struct {
	SigningKey           string   `json:"signing_key" koanf:"signing_key"`
	SigningMethod        string   `json:"signing_method" koanf:"signing_method"`
	ContextKey           string   `json:"context_key" koanf:"context_key"`
	TokenExpiration      int      `json:"token_expiration" koanf:"token_expiration"`
	TokenLookup          string   `json:"token_lookup" koanf:"token_lookup"`
	AuthScheme           string   `json:"auth_scheme" koanf:"auth_scheme"`
	Issuer               string   `json:"issuer" koanf:"issuer"`
	Audience             []string `json:"audience" koanf:"audience"`
	AllowList            []string `json:"allow_list" koanf:"allow_list"`
	RejectedRouteKey     string   `json:"rejected_route_key" koanf:"rejected_route_key"`
	RejectedRouteDefault string   `json:"rejected_route_default" koanf:"rejected_route_default"`
}

func (a Auth) GetSigningKey() string { return a.SigningKey }

func (a Auth) GetSigningMethod() string {
	if a.SigningMethod == "" {
		return "HS256"
	}
	return a.SigningMethod
}

func (a Auth) GetContextKey() string {
	if a.ContextKey == "" {
		return "app_session"
	}
	return a.ContextKey
}

// GetTokenExpiration is the session lifetime in hours.
func (a Auth) GetTokenExpiration() int {
	if a.TokenExpiration == 0 {
		return 24
	}
	return a.TokenExpiration
}

func (a Auth) GetTokenLookup() string {
	if a.TokenLookup == "" {
		return "header:Authorization,cookie:app_session"
	}
	return a.TokenLookup
}

func (a Auth) GetAuthScheme() string {
	if a.AuthScheme == "" {
		return "Bearer"
	}
	return a.AuthScheme
}

func (a Auth) GetIssuer() string {
	if a.Issuer == "" {
		return "chatvault"
	}
	return a.Issuer
}

func (a Auth) GetAudience() []string {
	if len(a.Audience) == 0 {
		return []string{"chatvault"}
	}
	return a.Audience
}

// GetAllowList is the set of path prefixes served without a session.
func (a Auth) GetAllowList() []string {
	if len(a.AllowList) == 0 {
		return []string{
			"/",
			"/login",
			"/logout",
			"/register",
			"/verify",
			"/set-password",
			"/request-reset-password",
			"/reset-password",
			"/public",
			"/favicon.ico",
		}
	}
	return a.AllowList
}

func (a Auth) GetRejectedRouteKey() string {
	if a.RejectedRouteKey == "" {
		return "rejected_route"
	}
	return a.RejectedRouteKey
}

func (a Auth) GetRejectedRouteDefault() string {
	if a.RejectedRouteDefault == "" {
		return "/"
	}
	return a.RejectedRouteDefault
}

func (a Auth) Validate() error {
	return validation.ValidateStruct(&a,
		validation.Field(&a.SigningKey, validation.Required, validation.Length(32, 0)),
	)
}

// Persistence configures the bun client.
type Persistence struct {
	Driver                string `json:"driver" koanf:"driver"`
	DSN                   string `json:"dsn" koanf:"dsn"`
	Debug                 bool   `json:"debug" koanf:"debug"`
	PingTimeoutExpression string `json:"ping_timeout" koanf:"ping_timeout"`
}

func (p Persistence) GetDriver() string {
	if p.Driver == "" {
		return "sqlite"
	}
	return p.Driver
}

func (p Persistence) GetDSN() string {
	if p.DSN == "" {
		return "file:chatvault.db?cache=shared&_pragma=journal_mode(WAL)"
	}
	return p.DSN
}

// GetServer aliases the DSN for clients that name it that way.
func (p Persistence) GetServer() string { return p.GetDSN() }

func (p Persistence) GetDebug() bool { return p.Debug }

// GetOtelIdentifier satisfies the persistence Config interface; empty
// disables the otel query hook.
func (p Persistence) GetOtelIdentifier() string { return "" }

func (p Persistence) GetPingTimeout() time.Duration {
	if p.PingTimeoutExpression == "" {
		return 5 * time.Second
	}
	dur, err := time.ParseDuration(p.PingTimeoutExpression)
	if err != nil {
		panic(
			fmt.Sprintf("unable to parse time: expr %s", p.PingTimeoutExpression),
		)
	}
	return dur
}

func (p Persistence) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.DSN, validation.Length(0, 500)),
	)
}

// Server configures the HTTP listener.
type Server struct {
	Address string `json:"address" koanf:"address"`
	BaseURL string `json:"base_url" koanf:"base_url"`
}

func (s Server) GetAddress() string {
	if s.Address == "" {
		return ":8580"
	}
	return s.Address
}

// GetBaseURL is the public origin used when building confirmation links.
func (s Server) GetBaseURL() string {
	if s.BaseURL == "" {
		return "http://localhost:8580"
	}
	return s.BaseURL
}

// Sweeper configures the token expiry housekeeping loop.
type Sweeper struct {
	IntervalExpression string `json:"interval" koanf:"interval"`
	BackoffExpression  string `json:"backoff" koanf:"backoff"`
}

func (s Sweeper) GetInterval() time.Duration {
	return s.parse(s.IntervalExpression, time.Hour)
}

func (s Sweeper) GetBackoff() time.Duration {
	return s.parse(s.BackoffExpression, 5*time.Minute)
}

func (s Sweeper) parse(expr string, def time.Duration) time.Duration {
	if expr == "" {
		return def
	}
	dur, err := time.ParseDuration(expr)
	if err != nil {
		panic(
			fmt.Sprintf("unable to parse time: expr %s", expr),
		)
	}
	return dur
}
