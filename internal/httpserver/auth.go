// internal/httpserver/auth.go
//
// Identity provider: username/password accounts, HS256 JWT in a cookie (or
// bearer header), and the middleware that turns a token into an Identity.
//
// Only verified accounts count as authenticated for scoring and daily gating.
// AUTO_VERIFY marks new accounts verified at signup; otherwise signup issues a
// single-purpose verification token (logged until a mailer exists) that
// POST /auth/verify exchanges for a session. Unverified accounts cannot log in.

package httpserver

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"net/mail"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"

	"github.com/robalobadob/wordripple/internal/gate"
	"github.com/robalobadob/wordripple/internal/identity"
)

var errUsernameTaken = errors.New("username taken")

const (
	verifyPurpose = "verify"
	verifyTTL     = 48 * time.Hour
)

// Request payloads for signup/login.
type signupReq struct {
	Username    string `json:"username"`
	Password    string `json:"password"`
	DisplayName string `json:"displayName"`
	Email       string `json:"email"`
}
type loginReq struct {
	Username string `json:"username"`
	Password string `json:"password"`
}
type verifyReq struct {
	Token string `json:"token"`
}

// mountAuthRoutes registers /auth/*.
func (s *Server) mountAuthRoutes(r chi.Router) {
	r.Post("/auth/signup", s.handleSignup)
	r.Post("/auth/login", s.handleLogin)
	r.Post("/auth/logout", s.handleLogout)
	r.Post("/auth/verify", s.handleVerify)

	r.With(requireAuth).Get("/auth/me", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(currentIdentity(r))
	})
	r.With(requireAuth).Get("/auth/me/journeys", s.handleJourneyHistory)
}

// handleSignup creates a new user, signs a JWT, and sets the auth cookie.
func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	var body signupReq
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, `{"error":"invalid_json"}`, http.StatusBadRequest)
		return
	}
	u, err := s.createUser(r.Context(), body)
	if err != nil {
		if errors.Is(err, errUsernameTaken) {
			http.Error(w, `{"error":"Username taken"}`, http.StatusConflict)
			return
		}
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	if !u.Verified {
		tok, err := s.signVerifyToken(u.ID)
		if err != nil {
			log.Error().Err(err).Msg("sign verify token")
			http.Error(w, `{"error":"sign_failed"}`, http.StatusInternalServerError)
			return
		}
		log.Info().Str("user", u.ID).Str("verify_token", tok).Msg("account awaiting verification")
		writeJSON(w, http.StatusAccepted, map[string]any{"id": u.ID, "verificationRequired": true})
		return
	}
	if !s.issueToken(w, u) {
		return
	}
	who := u.identity()
	s.publishIdentity(r, who)
	_ = json.NewEncoder(w).Encode(who)
}

// handleLogin authenticates a user and sets the auth cookie.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var body loginReq
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, `{"error":"invalid_json"}`, http.StatusBadRequest)
		return
	}
	u, err := s.findUserByUsername(r.Context(), strings.TrimSpace(body.Username))
	if err != nil || !checkPassword(u.PasswordHash, body.Password) {
		http.Error(w, `{"error":"Invalid username or password"}`, http.StatusUnauthorized)
		return
	}
	if !u.Verified {
		http.Error(w, `{"error":"Please verify your account before logging in"}`, http.StatusForbidden)
		return
	}
	if !s.issueToken(w, u) {
		return
	}
	who := u.identity()
	s.publishIdentity(r, who)
	_ = json.NewEncoder(w).Encode(who)
}

// handleVerify marks the account named by a verification token verified and
// signs it in.
func (s *Server) handleVerify(w http.ResponseWriter, r *http.Request) {
	var body verifyReq
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, `{"error":"invalid_json"}`, http.StatusBadRequest)
		return
	}
	claims, ok := s.parseToken(body.Token)
	if !ok || claims["purpose"] != verifyPurpose {
		http.Error(w, `{"error":"invalid_token"}`, http.StatusBadRequest)
		return
	}
	id, _ := claims["sub"].(string)
	if _, err := s.deps.DB.ExecContext(r.Context(), `UPDATE users SET verified=1 WHERE id=?`, id); err != nil {
		log.Error().Err(err).Str("user", id).Msg("verify user")
		http.Error(w, `{"error":"db_error"}`, http.StatusInternalServerError)
		return
	}
	u, err := s.findUserByID(r.Context(), id)
	if err != nil {
		http.Error(w, `{"error":"invalid_token"}`, http.StatusBadRequest)
		return
	}
	if !s.issueToken(w, u) {
		return
	}
	log.Info().Str("user", u.ID).Msg("account verified")
	who := u.identity()
	s.publishIdentity(r, who)
	_ = json.NewEncoder(w).Encode(who)
}

// handleLogout clears the auth cookie and signs the device's session out.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.clearAuthCookie(w)
	s.publishIdentity(r, nil)
	_ = json.NewEncoder(w).Encode(map[string]bool{"ok": true})
}

// handleJourneyHistory lists the signed-in player's completed Journey days.
func (s *Server) handleJourneyHistory(w http.ResponseWriter, r *http.Request) {
	if s.deps.Completions == nil {
		_ = json.NewEncoder(w).Encode([]any{})
		return
	}
	who := currentIdentity(r)
	out, err := s.deps.Completions.History(r.Context(), who.ID, 30)
	if err != nil {
		log.Error().Err(err).Str("player", who.ID).Msg("journey history")
		http.Error(w, `{"error":"db_error"}`, http.StatusInternalServerError)
		return
	}
	if out == nil {
		out = []gate.Completion{}
	}
	_ = json.NewEncoder(w).Encode(out)
}

func (s *Server) issueToken(w http.ResponseWriter, u *userRow) bool {
	tok, exp, err := s.signJWT(u.ID, u.Username)
	if err != nil {
		log.Error().Err(err).Msg("sign token")
		http.Error(w, `{"error":"sign_failed"}`, http.StatusInternalServerError)
		return false
	}
	s.setAuthCookie(w, tok, exp)
	return true
}

// publishIdentity pushes a sign-in/out to the device's live session, if any.
func (s *Server) publishIdentity(r *http.Request, who *identity.Identity) {
	dev := deviceFromRequest(r)
	if dev == "" || s.deps.Sessions == nil {
		return
	}
	if sess, err := s.deps.Sessions.Get(r.Context(), dev); err == nil {
		sess.Identity().Set(who)
	}
}

// --------------------------- optional auth ---------------------------------

// ctxIdentityKey is the context key type for the request's identity.
type ctxIdentityKey struct{}

// currentIdentity returns the request's identity, or nil for guests.
func currentIdentity(r *http.Request) *identity.Identity {
	who, _ := r.Context().Value(ctxIdentityKey{}).(*identity.Identity)
	return who
}

// withOptionalAuth decorates requests with an identity if a valid JWT is present.
// It never 401s; used for routes where guests are allowed.
func (s *Server) withOptionalAuth() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if who := s.identityFromToken(r); who != nil {
				r = r.WithContext(context.WithValue(r.Context(), ctxIdentityKey{}, who))
			}
			next.ServeHTTP(w, r)
		})
	}
}

// requireAuth rejects requests without a signed-in identity.
func requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if currentIdentity(r) == nil {
			http.Error(w, `{"error":"Unauthorized"}`, http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// identityFromToken validates the token and loads the user it names.
func (s *Server) identityFromToken(r *http.Request) *identity.Identity {
	tok := s.bearerOrCookie(r)
	if tok == "" {
		return nil
	}
	claims, ok := s.parseToken(tok)
	if !ok || claims["purpose"] != nil {
		return nil
	}
	id, _ := claims["id"].(string)
	if id == "" {
		return nil
	}
	// Ensure user still exists
	u, err := s.findUserByID(r.Context(), id)
	if err != nil {
		return nil
	}
	return u.identity()
}

// ------------------------ auth helpers & users -----------------------------

// userRow matches the users table shape.
type userRow struct {
	ID           string
	Username     string
	DisplayName  string
	Email        string
	PasswordHash string
	Verified     bool
	CreatedAt    time.Time
}

func (u *userRow) identity() *identity.Identity {
	name := u.DisplayName
	if name == "" {
		name = u.Username
	}
	return &identity.Identity{ID: u.ID, DisplayName: name, Email: u.Email, Verified: u.Verified}
}

// createUser validates input, checks uniqueness, hashes password, and inserts a new user.
func (s *Server) createUser(ctx context.Context, req signupReq) (*userRow, error) {
	username := normalizeUsername(req.Username)
	if err := validateSignup(username, req.Password); err != nil {
		return nil, err
	}
	email := strings.TrimSpace(req.Email)
	if email != "" {
		if _, err := mail.ParseAddress(email); err != nil {
			return nil, errors.New("invalid email")
		}
	}
	display := strings.TrimSpace(req.DisplayName)
	if len(display) > 40 {
		return nil, errors.New("display name must be at most 40 chars")
	}

	var exists int
	_ = s.deps.DB.QueryRowContext(ctx, `SELECT 1 FROM users WHERE lower(username)=lower(?)`, username).Scan(&exists)
	if exists == 1 {
		return nil, errUsernameTaken
	}
	h, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	u := &userRow{
		ID:           uuid.NewString(),
		Username:     username,
		DisplayName:  display,
		Email:        email,
		PasswordHash: string(h),
		Verified:     s.cfg.AutoVerify,
		CreatedAt:    time.Now().UTC(),
	}
	if _, err := s.deps.DB.ExecContext(ctx,
		`INSERT INTO users (id, username, display_name, email, password_hash, verified, created_at)
		 VALUES (?,?,?,?,?,?,?)`,
		u.ID, u.Username, u.DisplayName, u.Email, u.PasswordHash, u.Verified, u.CreatedAt.Format(time.RFC3339)); err != nil {
		return nil, err
	}
	return u, nil
}

// findUserByUsername/ID load a user row or return an error if missing.
func (s *Server) findUserByUsername(ctx context.Context, username string) (*userRow, error) {
	row := s.deps.DB.QueryRowContext(ctx, `SELECT id, username, display_name, email, password_hash, verified, created_at
	                      FROM users WHERE lower(username)=lower(?)`, username)
	return scanUser(row)
}
func (s *Server) findUserByID(ctx context.Context, id string) (*userRow, error) {
	row := s.deps.DB.QueryRowContext(ctx, `SELECT id, username, display_name, email, password_hash, verified, created_at
	                      FROM users WHERE id=?`, id)
	return scanUser(row)
}

// scanUser converts a *sql.Row into a userRow.
func scanUser(row *sql.Row) (*userRow, error) {
	var u userRow
	var created string
	if err := row.Scan(&u.ID, &u.Username, &u.DisplayName, &u.Email, &u.PasswordHash, &u.Verified, &created); err != nil {
		return nil, err
	}
	u.CreatedAt, _ = time.Parse(time.RFC3339, created)
	return &u, nil
}

// checkPassword is a bcrypt verifier.
func checkPassword(hash, pw string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(pw)) == nil
}

// normalizeUsername trims whitespace.
func normalizeUsername(u string) string {
	return strings.TrimSpace(u)
}

// validateSignup enforces basic username/password rules.
func validateSignup(u, p string) error {
	if len(u) < 3 || len(u) > 24 {
		return errors.New("username must be 3-24 chars")
	}
	for _, r := range u {
		if !(r == '_' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9') {
			return errors.New("username: letters, numbers, underscore only")
		}
	}
	if len(p) < 8 || len(p) > 100 {
		return errors.New("password must be 8-100 chars")
	}
	return nil
}

// ------------------------------ JWT & cookies ------------------------------

// signJWT creates an HS256 JWT with id/username and a JWT_EXPIRES_DAYS expiry.
func (s *Server) signJWT(id, username string) (string, time.Time, error) {
	days := s.cfg.JWTExpiresDays
	if days <= 0 {
		days = 14
	}
	exp := time.Now().Add(time.Duration(days) * 24 * time.Hour)
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"id":       id,
		"username": username,
		"exp":      exp.Unix(),
		"iat":      time.Now().Unix(),
	})
	ss, err := t.SignedString([]byte(s.cfg.JWTSecret))
	return ss, exp, err
}

// signVerifyToken creates a single-purpose HS256 token for account verification.
func (s *Server) signVerifyToken(id string) (string, error) {
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":     id,
		"purpose": verifyPurpose,
		"exp":     time.Now().Add(verifyTTL).Unix(),
		"iat":     time.Now().Unix(),
	})
	return t.SignedString([]byte(s.cfg.JWTSecret))
}

// parseToken validates an HS256 token and returns its claims.
func (s *Server) parseToken(tok string) (jwt.MapClaims, bool) {
	if tok == "" {
		return nil, false
	}
	claims := jwt.MapClaims{}
	t, err := jwt.ParseWithClaims(tok, claims, func(t *jwt.Token) (interface{}, error) {
		return []byte(s.cfg.JWTSecret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !t.Valid {
		return nil, false
	}
	return claims, true
}

// cookieSecurity returns Secure/SameSite for the current environment.
func (s *Server) cookieSecurity() (bool, http.SameSite) {
	if s.cfg.IsProduction() {
		return true, http.SameSiteNoneMode // required for third-party contexts when Secure
	}
	return false, http.SameSiteLaxMode
}

// setAuthCookie writes the auth token cookie with appropriate security attributes.
func (s *Server) setAuthCookie(w http.ResponseWriter, token string, exp time.Time) {
	secure, sameSite := s.cookieSecurity()
	http.SetCookie(w, &http.Cookie{
		Name:     s.cfg.CookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   secure,
		SameSite: sameSite,
		Expires:  exp,
	})
}

// clearAuthCookie deletes the auth token cookie.
func (s *Server) clearAuthCookie(w http.ResponseWriter) {
	secure, sameSite := s.cookieSecurity()
	http.SetCookie(w, &http.Cookie{
		Name:     s.cfg.CookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   secure,
		SameSite: sameSite,
		MaxAge:   -1,
	})
}

// bearerOrCookie extracts a bearer token from Authorization header or auth cookie.
func (s *Server) bearerOrCookie(r *http.Request) string {
	// Authorization: Bearer <token>
	if a := r.Header.Get("Authorization"); strings.HasPrefix(strings.ToLower(a), "bearer ") {
		return strings.TrimSpace(a[7:])
	}
	if c, err := r.Cookie(s.cfg.CookieName); err == nil {
		return c.Value
	}
	return ""
}
