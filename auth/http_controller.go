package auth

import (
	"errors"
	"fmt"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/gofiber/fiber/v2"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"
	"github.com/goliatone/go-router/flash"
)

// HTTPAuthenticator is the surface the controller needs from the gate.
type HTTPAuthenticator interface {
	Login(ctx router.Context, payload LoginPayload) (string, error)
	Logout(ctx router.Context)
	GetRedirect(ctx router.Context, def ...string) string
	SetRedirect(ctx router.Context)
}

// RegisterAuthRoutes mounts the account lifecycle endpoints. All of them
// belong on the allow-list: they exist precisely so callers without a
// session can establish or recover one.
func RegisterAuthRoutes[T any](app router.Router[T], opts ...AuthControllerOption) {
	controller := NewAuthController(opts...)

	app.Get(controller.Routes.Login, controller.LoginShow).
		SetName("sign-in.get")
	app.Post(controller.Routes.Login, controller.LoginPost).
		SetName("sign-in.post")
	app.Get(controller.Routes.Logout, controller.LogOut).
		SetName("sign-out.get")

	app.Get(controller.Routes.Register, controller.RegistrationShow).
		SetName("register.get")
	app.Post(controller.Routes.Register, controller.RegistrationRequest).
		SetName("register.post")
	app.Get(controller.Routes.Verify, controller.VerificationShow).
		SetName("verify.get")
	app.Post(controller.Routes.SetPassword, controller.RegistrationFinalize).
		SetName("verify.post")

	app.Get(controller.Routes.PasswordResetRequest, controller.PasswordResetRequestShow).
		SetName("pwd-reset-request.get")
	app.Post(controller.Routes.PasswordResetRequest, controller.PasswordResetRequest).
		SetName("pwd-reset-request.post")
	app.Get(controller.Routes.PasswordReset, controller.PasswordResetForm).
		SetName("pwd-reset.get")
	app.Post(controller.Routes.PasswordReset, controller.PasswordResetExecute).
		SetName("pwd-reset.post")

	app.Post(controller.Routes.AccountDeleteRequest, controller.AccountDeleteRequest).
		SetName("account-delete-request.post")
	app.Get(controller.Routes.AccountDelete, controller.AccountDeleteForm).
		SetName("account-delete.get")
	app.Post(controller.Routes.AccountDelete, controller.AccountDeleteExecute).
		SetName("account-delete.post")
}

type AuthControllerRoutes struct {
	Login                string
	Logout               string
	Register             string
	Verify               string
	SetPassword          string
	PasswordResetRequest string
	PasswordReset        string
	AccountDeleteRequest string
	AccountDelete        string
}

type AuthControllerViews struct {
	Login         string
	Register      string
	Verify        string
	PasswordReset string
	AccountDelete string
}

type AuthController struct {
	Debug        bool
	Logger       Logger
	Repo         RepositoryManager
	Tokens       *TokenManager
	Notifier     Notifier
	Auther       HTTPAuthenticator
	Routes       *AuthControllerRoutes
	Views        *AuthControllerViews
	ErrorHandler router.ErrorHandler
}

type AuthControllerOption func(*AuthController) *AuthController

func WithControllerLogger(logger Logger) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		if logger != nil {
			c.Logger = logger
		}
		return c
	}
}

func WithControllerRepo(repo RepositoryManager) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Repo = repo
		return c
	}
}

func WithControllerTokens(tokens *TokenManager) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Tokens = tokens
		return c
	}
}

func WithControllerNotifier(notifier Notifier) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Notifier = notifier
		return c
	}
}

func WithControllerAuther(auther HTTPAuthenticator) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Auther = auther
		return c
	}
}

func WithControllerDebug(debug bool) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Debug = debug
		return c
	}
}

func NewAuthController(opts ...AuthControllerOption) *AuthController {
	c := &AuthController{
		Logger:       defLogger{},
		ErrorHandler: defaultErrHandler,
		Routes: &AuthControllerRoutes{
			Login:                "/login",
			Logout:               "/logout",
			Register:             "/register",
			Verify:               "/verify",
			SetPassword:          "/set-password",
			PasswordResetRequest: "/request-reset-password",
			PasswordReset:        "/reset-password",
			AccountDeleteRequest: "/request-delete-account",
			AccountDelete:        "/delete-account",
		},
		Views: &AuthControllerViews{
			Login:         "login",
			Register:      "register",
			Verify:        "verify",
			PasswordReset: "password_reset",
			AccountDelete: "account_delete",
		},
	}

	for _, opt := range opts {
		c = opt(c)
	}

	if c.Repo == nil {
		panic("Missing RepositoryManager in auth controller...")
	}

	if c.Tokens == nil {
		panic("Missing TokenManager in auth controller...")
	}

	if c.Auther == nil {
		panic("Missing HTTPAuthenticator in auth controller...")
	}

	if c.Notifier == nil {
		c.Notifier = NewLogNotifier(c.Logger)
	}

	return c
}

func (a *AuthController) LoginShow(ctx router.Context) error {
	return ctx.Render(a.Views.Login, router.ViewContext{
		"errors": nil,
		"record": nil,
	})
}

// LoginRequest payload
type LoginRequest struct {
	Identifier string `form:"identifier" json:"identifier"`
	Password   string `form:"password" json:"password"`
}

func (r LoginRequest) GetIdentifier() string {
	return r.Identifier
}

func (r LoginRequest) GetPassword() string {
	return r.Password
}

// Validate will run validation rules
func (r LoginRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(
			&r.Identifier,
			validation.Required,
			is.Email,
		),
		validation.Field(
			&r.Password,
			validation.Required,
		),
	)
}

func (a *AuthController) LoginPost(ctx router.Context) error {
	payload := new(LoginRequest)
	errs := map[string]string{}

	if err := ctx.Bind(payload); err != nil {
		return a.ErrorHandler(ctx, err)
	}

	if err := payload.Validate(); err != nil {
		return ctx.Render(a.Views.Login, router.ViewContext{
			"record":     payload,
			"validation": FormatValidationErrorToMap(err),
		})
	}

	if a.Debug {
		fmt.Println(print.MaybePrettyJSON(payload))
	}

	token, err := a.Auther.Login(ctx, payload)
	if err != nil {
		errs["authentication"] = "Invalid email or password"
		return ctx.Render(a.Views.Login, router.ViewContext{
			"errors": errs,
			"record": payload,
		})
	}

	if !wantsHTML(ctx) {
		return ctx.JSON(fiber.StatusOK, map[string]any{
			"access_token": token,
			"token_type":   "bearer",
		})
	}

	redirect := a.Auther.GetRedirect(ctx, "/")

	return ctx.Redirect(redirect, router.StatusSeeOther)
}

func (a *AuthController) LogOut(ctx router.Context) error {
	a.Auther.Logout(ctx)
	return ctx.Redirect("/", router.StatusTemporaryRedirect)
}

func (a *AuthController) RegistrationShow(ctx router.Context) error {
	return ctx.Render(a.Views.Register, router.ViewContext{
		"errors": map[string]string{},
		"record": nil,
	})
}

// RegistrationRequestPayload is the form payload
type RegistrationRequestPayload struct {
	Email string `form:"email" json:"email"`
}

// Validate will validate the payload
func (r RegistrationRequestPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, validation.Length(6, 100), is.Email),
	)
}

func (a *AuthController) RegistrationRequest(ctx router.Context) error {
	payload := new(RegistrationRequestPayload)

	if err := ctx.Bind(payload); err != nil {
		errs := map[string]string{"form": "Failed to parse form"}
		a.Logger.Error("register request parse payload: ", "error", err)
		return flash.WithError(ctx, router.ViewContext{
			"error_message":  err.Error(),
			"system_message": "Error parsing body",
		}).Status(fiber.StatusBadRequest).Render(a.Views.Register, router.ViewContext{
			"errors": errs,
			"record": payload,
		})
	}

	if err := payload.Validate(); err != nil {
		errs := FormatValidationErrorToMap(err)
		a.Logger.Error("register request validate payload: ", "error", err)

		return flash.WithError(ctx, router.ViewContext{
			"error_message":  err.Error(),
			"system_message": "Error validating payload",
		}).Render(a.Views.Register, router.ViewContext{
			"record":     payload,
			"validation": errs,
		})
	}

	req := RegisterRequestMessage{Email: payload.Email}

	registerRequest := NewRegisterRequestHandler(a.Repo, a.Tokens, a.Notifier)
	if err := registerRequest.Execute(ctx.Context(), req); err != nil {
		a.Logger.Error("register request error: ", "error", err)

		return flash.WithError(ctx, router.ViewContext{
			"error_message":  err.Error(),
			"system_message": "Could not start registration",
		}).Render(a.Views.Register, router.ViewContext{
			"record": payload,
			"errors": []string{err.Error()},
		})
	}

	return flash.WithSuccess(ctx, router.ViewContext{
		"system_message": "Check your inbox for a confirmation link",
	}).Redirect("/login", fiber.StatusSeeOther)
}

// VerificationShow resolves the token from the confirmation link without
// spending it, so an expired or already used link renders an error page
// instead of a password form that can never succeed.
func (a *AuthController) VerificationShow(ctx router.Context) error {
	tokenID := ctx.Query("token", "")

	record, err := a.Tokens.Peek(ctx.Context(), tokenID, KindVerification)
	if err != nil {
		return ctx.Render(a.Views.Verify, router.ViewContext{
			"errors": map[string]string{"token": tokenErrorMessage(err)},
			"token":  "",
		})
	}

	return ctx.Render(a.Views.Verify, router.ViewContext{
		"errors": map[string]string{},
		"token":  record.ID,
		"email":  record.Email,
	})
}

// SetPasswordPayload finalizes a registration
type SetPasswordPayload struct {
	Token           string `form:"token" json:"token"`
	Password        string `form:"password" json:"password"`
	ConfirmPassword string `form:"confirm_password" json:"confirm_password"`
}

// Validate will validate the payload
func (r SetPasswordPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Token, validation.Required),
		validation.Field(&r.Password, validation.Required, validation.Length(10, 100)),
		validation.Field(
			&r.ConfirmPassword,
			validation.Required,
			validation.Length(10, 100),
			validation.By(ValidateStringEquals(r.Password)),
		),
	)
}

func (a *AuthController) RegistrationFinalize(ctx router.Context) error {
	payload := new(SetPasswordPayload)

	if err := ctx.Bind(payload); err != nil {
		a.Logger.Error("set password parse payload: ", "error", err)
		return flash.WithError(ctx, router.ViewContext{
			"error_message":  err.Error(),
			"system_message": "Error parsing body",
		}).Status(fiber.StatusBadRequest).Render(a.Views.Verify, router.ViewContext{
			"errors": map[string]string{"form": "Failed to parse form"},
			"token":  payload.Token,
		})
	}

	if err := payload.Validate(); err != nil {
		a.Logger.Error("set password validate payload: ", "error", err)
		return flash.WithError(ctx, router.ViewContext{
			"error_message":  err.Error(),
			"system_message": "Error validating payload",
		}).Render(a.Views.Verify, router.ViewContext{
			"token":      payload.Token,
			"validation": FormatValidationErrorToMap(err),
		})
	}

	req := RegisterFinalizeMessage{
		Token:    payload.Token,
		Password: payload.Password,
	}

	finalize := NewRegisterFinalizeHandler(a.Repo, a.Tokens)
	if err := finalize.Execute(ctx.Context(), req); err != nil {
		a.Logger.Error("register finalize error: ", "error", err)
		return flash.WithError(ctx, router.ViewContext{
			"error_message":  err.Error(),
			"system_message": "Could not complete registration",
		}).Render(a.Views.Verify, router.ViewContext{
			"token":  payload.Token,
			"errors": map[string]string{"token": tokenErrorMessage(err)},
		})
	}

	return flash.WithSuccess(ctx, router.ViewContext{
		"system_message": "Account created, you can sign in now",
	}).Redirect("/login", fiber.StatusSeeOther)
}

func (a *AuthController) PasswordResetRequestShow(ctx router.Context) error {
	return ctx.Render(a.Views.PasswordReset, router.ViewContext{
		"errors": nil,
		"stage":  "request",
	})
}

// PasswordResetRequestPayload holds values for password reset
type PasswordResetRequestPayload struct {
	Email string `form:"email" json:"email"`
}

// Validate will validate the payload
func (r PasswordResetRequestPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(
			&r.Email,
			validation.Required,
			is.Email,
		),
	)
}

func (a *AuthController) PasswordResetRequest(ctx router.Context) error {
	payload := new(PasswordResetRequestPayload)

	if err := ctx.Bind(payload); err != nil {
		a.Logger.Error("password reset parse payload: ", "error", err)
		return flash.WithError(ctx, router.ViewContext{
			"error_message":  err.Error(),
			"system_message": "Error parsing body",
		}).Status(fiber.StatusBadRequest).Render(a.Views.PasswordReset, router.ViewContext{
			"errors": map[string]string{"form": "Failed to parse form"},
			"stage":  "request",
		})
	}

	if err := payload.Validate(); err != nil {
		a.Logger.Error("password reset validate payload: ", "error", err)
		return flash.WithError(ctx, router.ViewContext{
			"error_message":  err.Error(),
			"system_message": "Error validating payload",
		}).Render(a.Views.PasswordReset, router.ViewContext{
			"record":     payload,
			"stage":      "request",
			"validation": FormatValidationErrorToMap(err),
		})
	}

	var res *InitializePasswordResetResponse

	req := InitializePasswordResetMessage{
		Email: payload.Email,
		OnResponse: func(resp *InitializePasswordResetResponse) {
			res = resp
		},
	}

	initPwdReset := NewInitializePasswordResetHandler(a.Repo, a.Tokens, a.Notifier)
	if err := initPwdReset.Execute(ctx.Context(), req); err != nil {
		a.Logger.Error("password reset request error: ", "error", err)
		return flash.WithError(ctx, router.ViewContext{
			"error_message":  err.Error(),
			"system_message": "Could not start password reset",
		}).Render(a.Views.PasswordReset, router.ViewContext{
			"record": payload,
			"stage":  "request",
			"errors": []string{err.Error()},
		})
	}

	if a.Debug {
		fmt.Println(print.MaybePrettyJSON(res))
	}

	// identical response whether the account exists or not
	return flash.WithSuccess(ctx, router.ViewContext{
		"system_message": "If that account exists, a reset link is on its way",
	}).Redirect("/login", fiber.StatusSeeOther)
}

func (a *AuthController) PasswordResetForm(ctx router.Context) error {
	tokenID := ctx.Query("token", "")

	record, err := a.Tokens.Peek(ctx.Context(), tokenID, KindPasswordReset)
	if err != nil {
		return ctx.Render(a.Views.PasswordReset, router.ViewContext{
			"errors": map[string]string{"token": tokenErrorMessage(err)},
			"stage":  "invalid",
		})
	}

	return ctx.Render(a.Views.PasswordReset, router.ViewContext{
		"errors": map[string]string{},
		"stage":  "change",
		"token":  record.ID,
		"email":  record.Email,
	})
}

// PasswordResetVerifyPayload holds values for password reset
type PasswordResetVerifyPayload struct {
	Token           string `form:"token" json:"token"`
	Password        string `form:"password" json:"password"`
	ConfirmPassword string `form:"confirm_password" json:"confirm_password"`
}

// Validate will validate the payload
func (r PasswordResetVerifyPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Token, validation.Required),
		validation.Field(
			&r.Password,
			validation.Required,
			validation.Length(10, 100),
		),
		validation.Field(
			&r.ConfirmPassword,
			validation.Required,
			validation.Length(10, 100),
			validation.By(ValidateStringEquals(r.Password)),
		),
	)
}

func (a *AuthController) PasswordResetExecute(ctx router.Context) error {
	payload := new(PasswordResetVerifyPayload)

	if err := ctx.Bind(payload); err != nil {
		a.Logger.Error("password reset parse payload: ", "error", err)
		return flash.WithError(ctx, router.ViewContext{
			"error_message":  err.Error(),
			"system_message": "Error parsing body",
		}).Status(fiber.StatusBadRequest).Render(a.Views.PasswordReset, router.ViewContext{
			"errors": map[string]string{"form": "Failed to parse form"},
			"stage":  "change",
		})
	}

	if err := payload.Validate(); err != nil {
		a.Logger.Error("password reset validate payload: ", "error", err)
		return flash.WithError(ctx, router.ViewContext{
			"error_message":  err.Error(),
			"system_message": "Error validating payload",
		}).Render(a.Views.PasswordReset, router.ViewContext{
			"stage":      "change",
			"token":      payload.Token,
			"validation": FormatValidationErrorToMap(err),
		})
	}

	input := FinalizePasswordResetMessage{
		Token:    payload.Token,
		Password: payload.Password,
	}

	finalizePwdReset := NewFinalizePasswordResetHandler(a.Repo, a.Tokens)
	if err := finalizePwdReset.Execute(ctx.Context(), input); err != nil {
		return ctx.Render(a.Views.PasswordReset, router.ViewContext{
			"errors": map[string]string{"token": tokenErrorMessage(err)},
			"stage":  "change",
			"token":  payload.Token,
		})
	}

	return ctx.Render(a.Views.PasswordReset, router.ViewContext{
		"errors": map[string]string{},
		"stage":  "done",
	})
}

// AccountDeleteRequestPayload starts account deletion for the signed-in user
type AccountDeleteRequestPayload struct {
	Email string `form:"email" json:"email"`
}

// Validate will validate the payload
func (r AccountDeleteRequestPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
	)
}

func (a *AuthController) AccountDeleteRequest(ctx router.Context) error {
	payload := new(AccountDeleteRequestPayload)

	if err := ctx.Bind(payload); err != nil {
		return a.ErrorHandler(ctx, err)
	}

	// a session holder can only request deletion of their own account
	if user, ok := FromContext(ctx.Context()); ok {
		payload.Email = user.GetEmail()
	}

	if err := payload.Validate(); err != nil {
		return flash.WithError(ctx, router.ViewContext{
			"error_message":  err.Error(),
			"system_message": "Error validating payload",
		}).Render(a.Views.AccountDelete, router.ViewContext{
			"validation": FormatValidationErrorToMap(err),
		})
	}

	req := InitializeAccountDeleteMessage{Email: payload.Email}

	deleteRequest := NewInitializeAccountDeleteHandler(a.Repo, a.Tokens, a.Notifier)
	if err := deleteRequest.Execute(ctx.Context(), req); err != nil {
		a.Logger.Error("account delete request error: ", "error", err)
		return flash.WithError(ctx, router.ViewContext{
			"error_message":  err.Error(),
			"system_message": "Could not start account deletion",
		}).Render(a.Views.AccountDelete, router.ViewContext{
			"errors": []string{err.Error()},
		})
	}

	return flash.WithSuccess(ctx, router.ViewContext{
		"system_message": "Check your inbox to confirm account deletion",
	}).Redirect("/", fiber.StatusSeeOther)
}

func (a *AuthController) AccountDeleteForm(ctx router.Context) error {
	tokenID := ctx.Query("token", "")

	record, err := a.Tokens.Peek(ctx.Context(), tokenID, KindAccountDeletion)
	if err != nil {
		return ctx.Render(a.Views.AccountDelete, router.ViewContext{
			"errors": map[string]string{"token": tokenErrorMessage(err)},
			"token":  "",
		})
	}

	return ctx.Render(a.Views.AccountDelete, router.ViewContext{
		"errors": map[string]string{},
		"token":  record.ID,
		"email":  record.Email,
	})
}

// AccountDeletePayload confirms the deletion
type AccountDeletePayload struct {
	Token string `form:"token" json:"token"`
}

// Validate will validate the payload
func (r AccountDeletePayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Token, validation.Required),
	)
}

func (a *AuthController) AccountDeleteExecute(ctx router.Context) error {
	payload := new(AccountDeletePayload)

	if err := ctx.Bind(payload); err != nil {
		return a.ErrorHandler(ctx, err)
	}

	if err := payload.Validate(); err != nil {
		return flash.WithError(ctx, router.ViewContext{
			"error_message":  err.Error(),
			"system_message": "Error validating payload",
		}).Render(a.Views.AccountDelete, router.ViewContext{
			"validation": FormatValidationErrorToMap(err),
		})
	}

	input := FinalizeAccountDeleteMessage{Token: payload.Token}

	finalize := NewFinalizeAccountDeleteHandler(a.Repo, a.Tokens)
	if err := finalize.Execute(ctx.Context(), input); err != nil {
		return ctx.Render(a.Views.AccountDelete, router.ViewContext{
			"errors": map[string]string{"token": tokenErrorMessage(err)},
			"token":  payload.Token,
		})
	}

	a.Auther.Logout(ctx)

	return flash.WithSuccess(ctx, router.ViewContext{
		"system_message": "Your account has been deleted",
	}).Redirect("/", fiber.StatusSeeOther)
}

// tokenErrorMessage maps redemption failures to copy safe to show users.
func tokenErrorMessage(err error) string {
	if goerrors.Is(err, ErrActionTokenExpired) {
		return "This link has expired, request a new one"
	}
	return "This link is invalid or was already used"
}

// ValidateStringEquals will check that both values match
func ValidateStringEquals(str string) validation.RuleFunc {
	return func(value any) error {
		s, _ := value.(string)
		if s != str {
			return errors.New("values must match")
		}
		return nil
	}
}

// FormatValidationErrorToMap flattens ozzo field errors for templates.
func FormatValidationErrorToMap(err error) map[string]string {
	out := map[string]string{}
	var verr validation.Errors
	if errors.As(err, &verr) {
		for field, ferr := range verr {
			out[field] = ferr.Error()
		}
		return out
	}
	out["form"] = err.Error()
	return out
}

func defaultErrHandler(c router.Context, err error) error {
	return c.Render("errors/500", router.ViewContext{
		"message": err.Error(),
	})
}
