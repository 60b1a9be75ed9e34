package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
)

const (
	CookieName = "displaybox.sid"
	LoginPath  = "/login"
)

// AuthContext is the per-request view of the session.
type AuthContext struct {
	Authenticated bool
}

// LoginRecorder is told about every password check.
type LoginRecorder interface {
	RecordLogin(ok bool)
}

type sessionClaims struct {
	jwt.RegisteredClaims
}

// Gate guards the admin surface with a single shared password. The cookie
// carries an HS256-signed session id; the session itself lives in memory.
type Gate struct {
	secret       []byte
	passwordHash []byte
	cost         int
	clock        clockwork.Clock
	sessions     *sessionTable
	logins       LoginRecorder
	log          zerolog.Logger
}

type Option func(*Gate)

func WithClock(c clockwork.Clock) Option {
	return func(g *Gate) { g.clock = c }
}

func WithLoginRecorder(r LoginRecorder) Option {
	return func(g *Gate) { g.logins = r }
}

// WithBcryptCost overrides the cost used to hash the admin password.
func WithBcryptCost(cost int) Option {
	return func(g *Gate) { g.cost = cost }
}

func NewGate(password, secret string, ttl time.Duration, log zerolog.Logger, opts ...Option) (*Gate, error) {
	if secret == "" {
		return nil, errors.New("session secret is required")
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("session ttl must be positive, got %s", ttl)
	}
	g := &Gate{
		secret:   []byte(secret),
		cost:     bcrypt.DefaultCost,
		clock:    clockwork.NewRealClock(),
		sessions: newSessionTable(ttl),
		log:      log.With().Str("component", "auth").Logger(),
	}
	for _, opt := range opts {
		opt(g)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), g.cost)
	if err != nil {
		return nil, fmt.Errorf("hash admin password: %w", err)
	}
	g.passwordHash = hash
	return g, nil
}

// Resolve reports whether the request carries a live authenticated session.
func (g *Gate) Resolve(r *http.Request) AuthContext {
	sid := g.sessionID(r)
	if sid == "" {
		return AuthContext{}
	}
	entry, ok := g.sessions.Get(sid, g.clock.Now())
	if !ok {
		return AuthContext{}
	}
	return AuthContext{Authenticated: entry.authenticated}
}

// Authenticate checks password against the admin secret. On success the
// request's previous session is dropped and a fresh authenticated one is
// issued. On failure nothing changes.
func (g *Gate) Authenticate(w http.ResponseWriter, r *http.Request, password string) bool {
	err := bcrypt.CompareHashAndPassword(g.passwordHash, []byte(password))
	if g.logins != nil {
		g.logins.RecordLogin(err == nil)
	}
	if err != nil {
		g.log.Warn().Str("ip", r.RemoteAddr).Msg("failed admin login attempt")
		return false
	}

	if old := g.sessionID(r); old != "" {
		g.sessions.Delete(old)
	}

	now := g.clock.Now()
	sid := uuid.NewString()
	token, err := g.sign(sid, now)
	if err != nil {
		g.log.Error().Err(err).Msg("sign session token")
		return false
	}
	g.sessions.Put(sid, true, now)
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	g.log.Info().Str("ip", r.RemoteAddr).Msg("admin login successful")
	return true
}

// Terminate drops the request's session and expires its cookie.
func (g *Gate) Terminate(w http.ResponseWriter, r *http.Request) {
	if sid := g.sessionID(r); sid != "" {
		g.sessions.Delete(sid)
	}
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// Sweep purges expired sessions.
func (g *Gate) Sweep() int {
	return g.sessions.Sweep(g.clock.Now())
}

type ctxKey string

const authKey ctxKey = "auth"

func WithContext(ctx context.Context, ac AuthContext) context.Context {
	return context.WithValue(ctx, authKey, ac)
}

func FromContext(ctx context.Context) AuthContext {
	ac, _ := ctx.Value(authKey).(AuthContext)
	return ac
}

// Middleware resolves the session once and stores it in the request context.
func (g *Gate) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, r.WithContext(WithContext(r.Context(), g.Resolve(r))))
	})
}

// RequireAuthenticated redirects to the login page unless the request is
// authenticated.
func (g *Gate) RequireAuthenticated(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ac, ok := r.Context().Value(authKey).(AuthContext)
		if !ok {
			ac = g.Resolve(r)
			r = r.WithContext(WithContext(r.Context(), ac))
		}
		if !ac.Authenticated {
			http.Redirect(w, r, LoginPath, http.StatusFound)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (g *Gate) sign(sid string, now time.Time) (string, error) {
	claims := sessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:       sid,
			IssuedAt: jwt.NewNumericDate(now),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(g.secret)
}

// sessionID extracts the session id from a validly signed cookie.
func (g *Gate) sessionID(r *http.Request) string {
	c, err := r.Cookie(CookieName)
	if err != nil || c.Value == "" {
		return ""
	}
	token, err := jwt.ParseWithClaims(c.Value, &sessionClaims{}, func(token *jwt.Token) (interface{}, error) {
		return g.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !token.Valid {
		return ""
	}
	claims, ok := token.Claims.(*sessionClaims)
	if !ok {
		return ""
	}
	return claims.ID
}
