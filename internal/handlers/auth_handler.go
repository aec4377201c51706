package handlers

import (
	"errors"
	"html/template"
	"log"
	"net/http"

	"babylog/internal/security"
	"babylog/internal/service"
)

// AuthHandler handles authentication-related HTTP requests
type AuthHandler struct {
	authService  *service.AuthService
	emailService *service.EmailService
	remember     *security.RememberTokenIssuer
	templates    *template.Template
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(authService *service.AuthService, emailService *service.EmailService, remember *security.RememberTokenIssuer, templates *template.Template) *AuthHandler {
	return &AuthHandler{
		authService:  authService,
		emailService: emailService,
		remember:     remember,
		templates:    templates,
	}
}

// loggedIn reports whether the request carries a valid session cookie
func (h *AuthHandler) loggedIn(r *http.Request) bool {
	cookie, err := r.Cookie(SessionCookieName)
	if err != nil {
		return false
	}
	_, err = h.authService.ValidateSession(cookie.Value)
	return err == nil
}

// ShowLogin renders the login page
func (h *AuthHandler) ShowLogin(w http.ResponseWriter, r *http.Request) {
	next := safeNext(r.URL.Query().Get("next"))
	if h.loggedIn(r) {
		http.Redirect(w, r, next, http.StatusSeeOther)
		return
	}

	renderTemplate(w, h.templates, "login.tmpl", LoginViewData{
		Title: "Login - Babylog",
		Next:  next,
	})
}

// Login handles login form submission
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		respondWithError(w, http.StatusBadRequest, ErrInvalidFormData, "", nil)
		return
	}

	username := r.FormValue("username")
	password := r.FormValue("password")
	rememberMe := r.FormValue("remember_me") != ""
	next := safeNext(r.FormValue("next"))

	session, user, err := h.authService.Login(username, password)
	if err != nil {
		if !errors.Is(err, service.ErrInvalidCredentials) {
			log.Printf("Error logging in %q: %v", username, err)
		}
		renderTemplate(w, h.templates, "login.tmpl", LoginViewData{
			Title:      "Login - Babylog",
			Error:      "Invalid username or password",
			Username:   username,
			Next:       next,
			RememberMe: rememberMe,
		})
		return
	}

	http.SetCookie(w, security.CreateSessionCookie(r, SessionCookieName, session.ID, session.ExpiresAt))
	if rememberMe {
		h.setRememberCookie(w, r, user.ID)
	}

	http.Redirect(w, r, next, http.StatusSeeOther)
}

func (h *AuthHandler) setRememberCookie(w http.ResponseWriter, r *http.Request, userID int64) {
	token, expiresAt, err := h.remember.Issue(userID)
	if err != nil {
		log.Printf("Warning: failed to issue remember token: %v", err)
		return
	}
	http.SetCookie(w, security.CreateSessionCookie(r, RememberCookieName, token, expiresAt))
}

// ShowRegister renders the registration page, prefilled from ?code=
func (h *AuthHandler) ShowRegister(w http.ResponseWriter, r *http.Request) {
	if h.loggedIn(r) {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	renderTemplate(w, h.templates, "register.tmpl", RegisterViewData{
		Title: "Register - Babylog",
		Code:  r.URL.Query().Get("code"),
	})
}

// Register handles registration form submission
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		respondWithError(w, http.StatusBadRequest, ErrInvalidFormData, "", nil)
		return
	}

	data := RegisterViewData{
		Title:           "Register - Babylog",
		Username:        r.FormValue("username"),
		Email:           r.FormValue("email"),
		FamilyName:      r.FormValue("family_name"),
		Code:            r.FormValue("code"),
		BabyName:        r.FormValue("baby_name"),
		BabyDateOfBirth: r.FormValue("baby_dob"),
	}

	dob, err := parseOptionalDate("baby_dob", data.BabyDateOfBirth)
	if err != nil {
		h.renderRegisterError(w, data, err)
		return
	}

	result, err := h.authService.Register(service.RegisterInput{
		Username:        data.Username,
		Email:           data.Email,
		Password:        r.FormValue("password"),
		PasswordConfirm: r.FormValue("password2"),
		FamilyName:      data.FamilyName,
		FamilyCode:      data.Code,
		BabyName:        data.BabyName,
		BabyDateOfBirth: dob,
	})
	if err != nil {
		h.renderRegisterError(w, data, err)
		return
	}

	if err := h.emailService.SendWelcomeEmail(r.Context(), result.User.Email, result.User.Username, result.Family.Name); err != nil {
		log.Printf("Warning: failed to send welcome email to %s: %v", result.User.Email, err)
	}

	// Auto-login after registration
	session, _, err := h.authService.Login(data.Username, r.FormValue("password"))
	if err != nil {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}

	http.SetCookie(w, security.CreateSessionCookie(r, SessionCookieName, session.ID, session.ExpiresAt))
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (h *AuthHandler) renderRegisterError(w http.ResponseWriter, data RegisterViewData, err error) {
	switch {
	case errors.Is(err, service.ErrUsernameTaken):
		data.Error, data.Field = "That username is already taken", "username"
	case errors.Is(err, service.ErrEmailTaken):
		data.Error, data.Field = "That email address is already taken", "email"
	case errors.Is(err, service.ErrInvalidFamilyCode):
		data.Error, data.Field = "No family uses that code", "code"
	default:
		msg, field, ok := validationMessage(err)
		if !ok {
			respondWithError(w, http.StatusInternalServerError, ErrInternalServerError, "Error registering user", err)
			return
		}
		data.Error, data.Field = msg, field
	}
	renderTemplate(w, h.templates, "register.tmpl", data)
}

// Logout ends the session and forgets the remember-me token
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(SessionCookieName); err == nil {
		if err := h.authService.Logout(cookie.Value); err != nil {
			log.Printf("Warning: %v", err)
		}
	}

	http.SetCookie(w, security.CreateDeleteCookie(r, SessionCookieName))
	http.SetCookie(w, security.CreateDeleteCookie(r, RememberCookieName))

	http.Redirect(w, r, "/", http.StatusSeeOther)
}
