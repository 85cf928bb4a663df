package echoapi

import (
	"net/http"
	"os"

	"github.com/gorilla/securecookie"
	"github.com/gorilla/sessions"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/lectern/core"
	"github.com/trezcool/lectern/core/user"
)

const (
	sessionUsernameKey = "username"
	sessionRoleKey     = "role"
	contextClaimKey    = "claim"
)

// flash messages
var (
	msgLoggedOut      = "You have been logged out"
	msgNotLoggedIn    = "You were not logged in"
	msgLoginFirst     = "Please log in first"
	msgNoAccess       = "You do not have access to this lecture"
	msgUserCreated    = "User created successfully!"
	msgUnauthorized   = "Unauthorized"
	msgUserNotFound   = "Username not found!"
	msgWrongPassword  = "Wrong password!"
	msgRoleMismatch   = "Role mismatch!"
	msgUserExists     = "Username already exists!"
	msgMissingFields  = "Missing required fields"
	msgNoAudio        = "No audio file provided"
	msgNoSelectedFile = "No selected file"
)

// NewSessionStore returns the server-side session store. Only the session id travels in the cookie.
// A random signing key is generated when none is configured, which invalidates sessions on restart.
func NewSessionStore(conf *core.Config) (sessions.Store, error) {
	if err := os.MkdirAll(conf.Session.Dir, 0o700); err != nil {
		return nil, errors.Wrap(err, "creating session directory")
	}

	key := []byte(conf.Session.Key)
	if len(key) == 0 {
		key = securecookie.GenerateRandomKey(32)
		if key == nil {
			return nil, errors.New("generating session key")
		}
	}

	store := sessions.NewFilesystemStore(conf.Session.Dir, key)
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   int(conf.Session.MaxAge.Seconds()),
		Secure:   conf.Session.Secure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
	return store, nil
}

// session returns the caller's session. An unreadable or expired cookie yields a new, empty session.
// The session is cached for the duration of the request.
func (s *Server) session(ctx echo.Context) *sessions.Session {
	sess, _ := s.Sessions.Get(ctx.Request(), s.Conf.Session.Name)
	if sess == nil {
		sess = sessions.NewSession(s.Sessions, s.Conf.Session.Name)
		sess.Options = &sessions.Options{Path: "/", HttpOnly: true}
		sess.IsNew = true
	}
	return sess
}

func (s *Server) saveSession(ctx echo.Context, sess *sessions.Session) error {
	return errors.Wrap(sess.Save(ctx.Request(), ctx.Response()), "saving session")
}

// startSession binds the session to the authenticated user under a fresh session id.
func (s *Server) startSession(ctx echo.Context, claim user.Claim) error {
	sess := s.session(ctx)
	sess.ID = ""
	sess.Values[sessionUsernameKey] = claim.Username
	sess.Values[sessionRoleKey] = claim.Role.String()
	return s.saveSession(ctx, sess)
}

// endSession forgets the user but keeps the session alive for the flash messages.
func (s *Server) endSession(ctx echo.Context, flash string) error {
	sess := s.session(ctx)
	delete(sess.Values, sessionUsernameKey)
	delete(sess.Values, sessionRoleKey)
	if flash != "" {
		sess.AddFlash(flash)
	}
	return s.saveSession(ctx, sess)
}

func (s *Server) addFlash(ctx echo.Context, msg string) error {
	sess := s.session(ctx)
	sess.AddFlash(msg)
	return s.saveSession(ctx, sess)
}

// popFlashes drains the pending flash messages.
func (s *Server) popFlashes(ctx echo.Context) ([]string, error) {
	sess := s.session(ctx)
	flashes := sess.Flashes()
	msgs := make([]string, 0, len(flashes))
	for _, f := range flashes {
		if msg, ok := f.(string); ok {
			msgs = append(msgs, msg)
		}
	}
	if len(flashes) > 0 {
		if err := s.saveSession(ctx, sess); err != nil {
			return nil, err
		}
	}
	return msgs, nil
}

// redirectWithFlash stores msg for the next page then redirects to path.
func (s *Server) redirectWithFlash(ctx echo.Context, path, msg string) error {
	if err := s.addFlash(ctx, msg); err != nil {
		return err
	}
	return ctx.Redirect(http.StatusSeeOther, path)
}

// loadClaim rebuilds the caller's claim from the session on every request.
// A session whose user was deleted, or whose role changed since login, is treated as absent.
func (s *Server) loadClaim(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		sess := s.session(ctx)
		username, _ := sess.Values[sessionUsernameKey].(string)
		role, _ := sess.Values[sessionRoleKey].(string)
		if username == "" {
			return next(ctx)
		}

		claim, err := s.UserSvc.Refresh(ctx.Request().Context(), username, user.Role(role))
		switch errors.Cause(err) {
		case nil:
			ctx.Set(contextClaimKey, claim)
		case user.ErrNotFound, user.ErrRoleMismatch:
			if err = s.endSession(ctx, ""); err != nil {
				return err
			}
		default:
			return errors.Wrap(err, "refreshing session claim")
		}
		return next(ctx)
	}
}

// getContextClaim returns the caller's claim, or the zero Claim when there is no session.
func getContextClaim(ctx echo.Context) user.Claim {
	claim, _ := ctx.Get(contextClaimKey).(user.Claim)
	return claim
}
