package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jrsteele09/go-session-auth/cookies"
	apperrors "github.com/jrsteele09/go-session-auth/internal/errors"
	"github.com/jrsteele09/go-session-auth/internal/utils"
	"github.com/jrsteele09/go-session-auth/request"
	"github.com/jrsteele09/go-session-auth/sessions"
	"github.com/jrsteele09/go-session-auth/users"
	"github.com/rs/zerolog"
)

// Form actions understood by Handle.
const (
	ActionLogin        = "login"
	ActionRegister     = "register"
	ActionLogout       = "logout"
	ActionShowRegister = "show_register"
	ActionBackToLogin  = "back_to_login"
)

const (
	DefaultCookieName = "SESSIONID"
	maxCommitAttempts = 3
)

// patch is one session mutation. Patches are recorded so a save that lost an
// optimistic-version race can be replayed on the fresher record.
type patch func(*sessions.Record)

// Result is the outcome of one or more transitions on a session.
type Result struct {
	Session   *sessions.Record // The record to persist
	Message   string           // User-facing message, empty when nothing happened
	Kind      MessageKind      // Classification of Message
	Cookies   []cookies.Cookie // Set-Cookie directives, one per line
	RetiredID string           // Session id replaced by rotation, deleted on commit

	fresh   bool             // Session was created for this request
	base    *sessions.Record // Record the patches apply to
	patches []patch
}

func newResult(rec *sessions.Record) *Result {
	return &Result{
		Session: rec.Clone(),
		Kind:    KindInfo,
		base:    rec.Clone(),
	}
}

func (r *Result) apply(p patch) {
	p(r.Session)
	r.patches = append(r.patches, p)
}

// rebase makes rec the new starting point; earlier patches are baked into it.
func (r *Result) rebase(rec *sessions.Record) {
	r.Session = rec
	r.base = rec.Clone()
	r.patches = nil
}

func (r *Result) say(kind MessageKind, message string) {
	r.Kind = kind
	r.Message = message
}

// Engine runs the Anonymous/Authenticated state machine for a session.
type Engine struct {
	repos         Repos
	policy        users.Policy
	validate      *validator.Validate
	cookieName    string
	cookieOptions cookies.Options
	legacyCookies []string
	nowTime       func() time.Time
	logger        zerolog.Logger
}

// EngineOption defines a function type to modify the Engine instance.
type EngineOption func(*Engine)

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) EngineOption {
	return func(e *Engine) {
		e.nowTime = nowFunc
	}
}

// WithPolicy sets the registration policy used for form messages. It should match the
// credential store's policy.
func WithPolicy(p users.Policy) EngineOption {
	return func(e *Engine) {
		e.policy = p
	}
}

// WithCookieName overrides the session cookie name.
func WithCookieName(name string) EngineOption {
	return func(e *Engine) {
		if name != "" {
			e.cookieName = name
		}
	}
}

// WithCookieOptions sets the attributes of the session cookie.
func WithCookieOptions(opts cookies.Options) EngineOption {
	return func(e *Engine) {
		e.cookieOptions = opts
	}
}

// WithLegacyCookies lists cookie names to clear whenever a client still sends them.
func WithLegacyCookies(names ...string) EngineOption {
	return func(e *Engine) {
		e.legacyCookies = append(e.legacyCookies, names...)
	}
}

func WithLogger(l zerolog.Logger) EngineOption {
	return func(e *Engine) {
		e.logger = l
	}
}

// NewEngine returns an Engine over repos.
func NewEngine(repos Repos, options ...EngineOption) (*Engine, error) {
	if repos.Sessions == nil {
		return nil, errors.New("[NewEngine] session repo is required")
	}
	if repos.Credentials == nil {
		return nil, errors.New("[NewEngine] credential store is required")
	}

	e := &Engine{
		repos:      repos,
		policy:     users.DefaultPolicy(),
		cookieName: DefaultCookieName,
		cookieOptions: cookies.Options{
			Path:     "/",
			MaxAge:   utils.Ptr(3600),
			HTTPOnly: true,
			SameSite: cookies.SameSiteLax,
		},
		nowTime: time.Now,
		logger:  zerolog.Nop(),
	}
	for _, opt := range options {
		opt(e)
	}
	e.validate = newValidator(e.policy)
	return e, nil
}

// CookieName is the name of the session cookie.
func (e *Engine) CookieName() string {
	return e.cookieName
}

func (e *Engine) now() time.Time {
	return e.nowTime().UTC()
}

func (e *Engine) sessionCookie(id string) cookies.Cookie {
	return cookies.Cookie{Name: e.cookieName, Value: id, Options: e.cookieOptions}
}

func (e *Engine) setSessionCookie(res *Result) {
	res.Cookies = []cookies.Cookie{e.sessionCookie(res.Session.ID)}
}

// rotate replaces the session id, keeping the old one for deletion on commit. An id
// that was never stored has nothing to retire.
func (e *Engine) rotate(res *Result, next *sessions.Record) {
	if res.Session.Version > 0 && res.RetiredID == "" {
		res.RetiredID = res.Session.ID
	}
	res.rebase(next)
}

// Login authenticates username and, on success, binds the identity to a new session id.
// The returned error is non-nil only for storage failures.
func (e *Engine) Login(ctx context.Context, rec *sessions.Record, username, password string) (*Result, error) {
	res := newResult(rec)
	username = strings.TrimSpace(username)

	userID, err := e.repos.Credentials.Authenticate(ctx, username, password)
	switch {
	case errors.Is(err, apperrors.ErrInvalidCredentials):
		e.logger.Info().Str("username", username).Msg("Login failed")
		res.say(KindError, MsgLoginFailed)
		e.setSessionCookie(res)
		return res, nil
	case err != nil:
		return nil, apperrors.Wrapf(err, "[Engine.Login]")
	}

	id, err := sessions.NewID()
	if err != nil {
		return nil, apperrors.Storage(err, "[Engine.Login] new session id")
	}
	now := e.now()
	next := &sessions.Record{
		ID:         id,
		CreatedAt:  res.Session.CreatedAt,
		LastVisit:  res.Session.LastVisit,
		VisitCount: res.Session.VisitCount,
	}
	next.Bind(username, userID, now)
	e.rotate(res, next)

	e.logger.Info().Str("username", username).Str("user_id", userID).Msg("Login succeeded")
	res.say(KindSuccess, msgWelcome(username))
	e.setSessionCookie(res)
	return res, nil
}

// Register validates the form and creates a credential. It never authenticates the
// session. The returned error is non-nil only for storage failures.
func (e *Engine) Register(ctx context.Context, rec *sessions.Record, username, password, confirm string) (*Result, error) {
	res := newResult(rec)
	e.setSessionCookie(res)
	form := registration{
		Username: strings.TrimSpace(username),
		Password: password,
		Confirm:  confirm,
	}

	if msg := e.registrationMessage(form); msg != "" {
		res.say(KindError, msg)
		return res, nil
	}

	exists, err := e.repos.Credentials.Exists(ctx, form.Username)
	if err != nil {
		return nil, apperrors.Wrapf(err, "[Engine.Register]")
	}
	if exists {
		res.say(KindError, MsgUsernameTaken)
		return res, nil
	}

	_, err = e.repos.Credentials.Register(ctx, form.Username, form.Password)
	switch {
	case errors.Is(err, apperrors.ErrDuplicateUser):
		res.say(KindError, MsgUsernameTaken)
		return res, nil
	case errors.Is(err, apperrors.ErrPasswordPolicy):
		res.say(KindError, msgPasswordTooShort(e.policy.MinPasswordLength))
		return res, nil
	case err != nil:
		return nil, apperrors.Wrapf(err, "[Engine.Register]")
	}

	e.logger.Info().Str("username", form.Username).Msg("User registered")
	res.apply(func(r *sessions.Record) { r.ShowRegister = false })
	res.say(KindSuccess, msgRegistered(form.Username))
	return res, nil
}

// Logout ends an authenticated session by replacing it with a fresh anonymous one.
func (e *Engine) Logout(_ context.Context, rec *sessions.Record) (*Result, error) {
	res := newResult(rec)
	if !rec.Authenticated {
		res.say(KindInfo, MsgNoActiveSession)
		e.setSessionCookie(res)
		return res, nil
	}

	id, err := sessions.NewID()
	if err != nil {
		return nil, apperrors.Storage(err, "[Engine.Logout] new session id")
	}
	e.rotate(res, sessions.NewRecord(id, e.now()))
	res.fresh = true

	e.logger.Info().Str("username", rec.UsernameValue()).Msg("Logged out")
	res.say(KindSuccess, MsgLoggedOut)
	e.setSessionCookie(res)
	return res, nil
}

// RenewVisit counts a visit without changing identity.
func (e *Engine) RenewVisit(rec *sessions.Record) *Result {
	res := newResult(rec)
	e.renew(res)
	e.setSessionCookie(res)
	return res
}

func (e *Engine) renew(res *Result) {
	now := e.now()
	res.apply(func(r *sessions.Record) { r.Touch(now) })
}

// ShowRegister switches the page to the registration form.
func (e *Engine) ShowRegister(rec *sessions.Record) *Result {
	return e.setShowRegister(rec, true)
}

// BackToLogin switches the page back to the login form.
func (e *Engine) BackToLogin(rec *sessions.Record) *Result {
	return e.setShowRegister(rec, false)
}

func (e *Engine) setShowRegister(rec *sessions.Record, show bool) *Result {
	res := newResult(rec)
	res.apply(func(r *sessions.Record) { r.ShowRegister = show })
	e.setSessionCookie(res)
	return res
}

// Handle runs one request: it loads or creates the session, applies the POSTed action,
// counts the visit and commits. A nil error means the Result is ready to render.
func (e *Engine) Handle(ctx context.Context, req *request.Context) (*Result, error) {
	logger := e.logger.With().Str("request_id", req.ID()).Logger()

	rec, fresh, err := e.load(ctx, req)
	if err != nil {
		return nil, err
	}

	res, err := e.dispatch(ctx, req, rec)
	if err != nil {
		return nil, err
	}
	// A created record already counts this visit.
	if !fresh && !res.fresh {
		e.renew(res)
	}

	if err := e.Commit(ctx, res); err != nil {
		return nil, err
	}
	res.Cookies = append(res.Cookies, e.legacyClears(req.Cookies())...)

	logger.Debug().
		Str("session_id", res.Session.ID).
		Bool("authenticated", res.Session.Authenticated).
		Int("visit_count", res.Session.VisitCount).
		Msg("Session committed")
	return res, nil
}

// load returns the presented session or a new one. Invalid and unknown ids are treated
// as absent.
func (e *Engine) load(ctx context.Context, req *request.Context) (*sessions.Record, bool, error) {
	if id, ok := req.Cookie(e.cookieName); ok && id != "" {
		if !sessions.ValidID(id) {
			e.logger.Debug().Str("request_id", req.ID()).Msg("Ignoring unsafe session id")
		} else {
			rec, err := e.repos.Sessions.Get(ctx, id)
			switch {
			case err == nil:
				return rec, false, nil
			case !errors.Is(err, apperrors.ErrSessionNotFound):
				return nil, false, apperrors.Wrapf(err, "[Engine.Handle] load session")
			}
		}
	}

	rec, err := e.repos.Sessions.Create(ctx)
	if err != nil {
		return nil, false, apperrors.Wrapf(err, "[Engine.Handle] create session")
	}
	return rec, true, nil
}

func (e *Engine) dispatch(ctx context.Context, req *request.Context, rec *sessions.Record) (*Result, error) {
	if !req.IsPost() {
		return e.view(rec), nil
	}

	form := req.Form()
	switch form["action"] {
	case ActionLogin:
		return e.Login(ctx, rec, form["username"], form["password"])
	case ActionRegister:
		return e.Register(ctx, rec, form["username"], form["password"], form["confirm"])
	case ActionLogout:
		return e.Logout(ctx, rec)
	case ActionShowRegister:
		return e.ShowRegister(rec), nil
	case ActionBackToLogin:
		return e.BackToLogin(rec), nil
	}
	return e.view(rec), nil
}

func (e *Engine) view(rec *sessions.Record) *Result {
	res := newResult(rec)
	e.setSessionCookie(res)
	return res
}

func (e *Engine) legacyClears(jar cookies.Jar) []cookies.Cookie {
	var clears []cookies.Cookie
	for _, name := range e.legacyCookies {
		if name == e.cookieName {
			continue
		}
		if _, ok := jar.Get(name); ok {
			clears = append(clears, cookies.Expire(name, "/"))
		}
	}
	return clears
}

// Commit saves res.Session and deletes a retired id. When the store reports a
// concurrent update the stored record is reloaded and this request's patches are
// replayed on it, up to maxCommitAttempts saves in total.
func (e *Engine) Commit(ctx context.Context, res *Result) error {
	for attempt := 1; ; attempt++ {
		err := e.repos.Sessions.Save(ctx, res.Session)
		if err == nil {
			break
		}
		if !errors.Is(err, apperrors.ErrConflict) {
			return apperrors.Wrapf(err, "[Engine.Commit]")
		}
		if attempt >= maxCommitAttempts {
			return apperrors.Storage(err, "[Engine.Commit] gave up after %d attempts", attempt)
		}

		e.logger.Debug().Err(err).Str("session_id", res.Session.ID).Int("attempt", attempt).Msg("Retrying session save")
		if err := e.replay(ctx, res); err != nil {
			return err
		}
	}

	if res.RetiredID != "" && res.RetiredID != res.Session.ID {
		if err := e.repos.Sessions.Delete(ctx, res.RetiredID); err != nil {
			return apperrors.Wrapf(err, "[Engine.Commit] retire %s", res.RetiredID)
		}
	}
	return nil
}

// replay rebuilds res.Session on the stored record. A record that had been stored and
// is now gone was logged out or expired under this request; it is never written back,
// the request continues on a fresh anonymous session instead.
func (e *Engine) replay(ctx context.Context, res *Result) error {
	current, err := e.repos.Sessions.Get(ctx, res.Session.ID)
	switch {
	case errors.Is(err, apperrors.ErrSessionNotFound) && res.base.Version > 0:
		return e.restart(ctx, res)
	case errors.Is(err, apperrors.ErrSessionNotFound):
		current = res.base.Clone()
	case err != nil:
		return apperrors.Wrapf(err, "[Engine.Commit] reload")
	}

	for _, p := range res.patches {
		p(current)
	}
	res.Session = current
	return nil
}

func (e *Engine) restart(ctx context.Context, res *Result) error {
	e.logger.Info().Str("session_id", res.Session.ID).Msg("Session removed during request, starting a new one")
	rec, err := e.repos.Sessions.Create(ctx)
	if err != nil {
		return apperrors.Wrapf(err, "[Engine.Commit] create session")
	}
	res.rebase(rec)
	res.fresh = true
	res.RetiredID = ""
	e.setSessionCookie(res)
	return nil
}
