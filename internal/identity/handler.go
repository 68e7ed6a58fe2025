package identity

import (
	"errors"
	"net/http"
	"time"

	"github.com/wolfman30/salon-booking/internal/http/respond"
	"github.com/wolfman30/salon-booking/pkg/logging"
)

// CookieConfig controls the session cookie.
type CookieConfig struct {
	Name   string
	TTL    time.Duration
	Secure bool
}

// Handler serves /auth endpoints.
type Handler struct {
	accounts *Accounts
	cookie   CookieConfig
	logger   *logging.Logger
}

func NewHandler(accounts *Accounts, cookie CookieConfig, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	if cookie.Name == "" {
		cookie.Name = "salon_session"
	}
	return &Handler{accounts: accounts, cookie: cookie, logger: logger}
}

type sessionResponse struct {
	User                 *User  `json:"user"`
	IsAdmin              bool   `json:"is_admin"`
	Loading              bool   `json:"loading"`
	ConfirmationRequired bool   `json:"confirmation_required,omitempty"`
	Redirect             string `json:"redirect,omitempty"`
}

// Register handles POST /auth/register.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req SignUpRequest
	if err := respond.Decode(r, &req); err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	res, err := h.accounts.Register(r.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidEmail), errors.Is(err, ErrPasswordTooWeak), errors.Is(err, ErrFullNameMissing):
			respond.Error(w, http.StatusUnprocessableEntity, err.Error())
		case errors.Is(err, ErrEmailTaken):
			respond.Error(w, http.StatusConflict, "an account with that email already exists")
		case errors.Is(err, ErrProfileSetup):
			respond.Error(w, http.StatusBadGateway, err.Error())
		default:
			h.logger.Error("registration failed", "error", err)
			respond.Error(w, http.StatusBadGateway, "registration failed, please try again")
		}
		return
	}
	out := sessionResponse{User: &res.User, ConfirmationRequired: res.ConfirmationRequired, Redirect: "/login"}
	if res.SessionID != "" {
		h.setCookie(w, res.SessionID)
		out.Loading = true
		out.Redirect = "/"
	}
	respond.JSON(w, http.StatusCreated, out)
}

// Login handles POST /auth/login.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := respond.Decode(r, &req); err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	sessionID, user, err := h.accounts.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			respond.Error(w, http.StatusUnauthorized, "Invalid email or password")
			return
		}
		h.logger.Error("sign in failed", "error", err)
		respond.Error(w, http.StatusBadGateway, "sign in failed, please try again")
		return
	}
	h.setCookie(w, sessionID)
	respond.JSON(w, http.StatusOK, sessionResponse{User: user, Loading: true, Redirect: "/"})
}

// Logout handles POST /auth/logout.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if c, err := r.Cookie(h.cookie.Name); err == nil && c.Value != "" {
		if err := h.accounts.Logout(r.Context(), c.Value); err != nil {
			h.logger.Error("sign out failed", "error", err)
		}
	}
	h.clearCookie(w)
	respond.JSON(w, http.StatusOK, sessionResponse{Redirect: "/login"})
}

// Session handles GET /auth/session with whatever the session middleware
// resolved.
func (h *Handler) Session(w http.ResponseWriter, r *http.Request) {
	st, _ := StateFromContext(r.Context())
	respond.JSON(w, http.StatusOK, sessionResponse{User: st.User, IsAdmin: st.IsAdmin, Loading: st.Loading})
}

func (h *Handler) setCookie(w http.ResponseWriter, sessionID string) {
	http.SetCookie(w, &http.Cookie{
		Name:     h.cookie.Name,
		Value:    sessionID,
		Path:     "/",
		MaxAge:   int(h.cookie.TTL.Seconds()),
		HttpOnly: true,
		Secure:   h.cookie.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *Handler) clearCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     h.cookie.Name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.cookie.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}
