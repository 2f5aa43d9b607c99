package http

import (
	"errors"
	"net/http"
	"sync/atomic"

	"fintrack/internal/auth"
	"fintrack/internal/log"
	"fintrack/internal/middleware/trace"
	"fintrack/internal/view"
)

type loginView struct {
	Error string
}

// basePage fills the shell fields from the request session.
func basePage(r *http.Request, title, active string, content any) pageData {
	p := pageData{Title: title, Active: active, Content: content}
	if sess, ok := auth.FromContext(r.Context()); ok {
		p.SignedIn = true
		p.User = sess.User
	}
	return p
}

func (s *Server) renderPage(w http.ResponseWriter, r *http.Request, status int, name string, data pageData) {
	body, err := s.templates.page(name, data)
	if err != nil {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Page render failed",
			log.FieldComponent, log.ComponentTemplate,
			log.FieldOperation, log.OpRender,
			"template", name,
			log.FieldError, err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	NewHTMXResponse().Status(status).BodyHTML(body).Write(w)
}

func (s *Server) renderPartial(w http.ResponseWriter, r *http.Request, name string, data any, resp *HTMXResponseBuilder) {
	body, err := s.templates.partial(name, data)
	if err != nil {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Partial render failed",
			log.FieldComponent, log.ComponentTemplate,
			log.FieldOperation, log.OpRender,
			"template", name,
			log.FieldError, err)
		InternalServerError("Something went wrong").Write(w)
		return
	}
	resp.BodyHTML(body).Write(w)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	s.renderPage(w, r, http.StatusOK, "index", basePage(r, "Home", "home", loginView{}))
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := log.FromContext(ctx).WithComponent(log.ComponentAuth)

	if err := r.ParseForm(); err != nil {
		s.renderPage(w, r, http.StatusBadRequest, "index", basePage(r, "Home", "home", loginView{Error: "Invalid request"}))
		return
	}
	username := sanitizeInput(r.PostForm.Get("username"))
	password := r.PostForm.Get("password")

	user, err := s.authn.Authenticate(ctx, username, password)
	if err != nil {
		atomic.AddInt64(&s.metrics.loginFailures, 1)
		logger.WarnContext(ctx, "Sign-in rejected",
			log.FieldOperation, log.OpLogin,
			log.FieldClientIP, s.detector.ExtractClientIP(r),
			log.FieldError, err)
		msg := "Sign-in failed"
		if errors.Is(err, auth.ErrInvalidCredentials) {
			msg = "Invalid username or password"
		}
		s.renderPage(w, r, http.StatusUnauthorized, "index", basePage(r, "Home", "home", loginView{Error: msg}))
		return
	}

	token, sess, err := s.sessions.Issue(user)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to issue session", log.FieldOperation, log.OpLogin, log.FieldError, err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	s.sessions.SetCookie(w, r, token, sess)
	logger.InfoContext(ctx, "Signed in", log.FieldOperation, log.OpLogin, log.FieldUser, user)
	http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if sess, err := s.sessions.FromRequest(r); err == nil {
		s.sessions.Revoke(sess)
		log.FromContext(r.Context()).WithComponent(log.ComponentAuth).InfoContext(r.Context(), "Signed out",
			log.FieldOperation, log.OpLogout, log.FieldUser, sess.User)
	}
	s.sessions.ClearCookie(w)
	if isHTMX(r) {
		NewHTMXResponse().Redirect("/").Write(w)
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	window, err := ParseMonthParams(r.URL.Query(), s.now())
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	sum, err := s.svc.MonthSummary(r.Context(), window)
	if err != nil {
		s.logReadError(r, "Month summary failed", err)
		InternalServerError("Could not load the dashboard").Write(w)
		return
	}
	s.renderPage(w, r, http.StatusOK, "dashboard", basePage(r, window.String(), "dashboard", view.NewDashboard(sum, window)))
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	window, err := ParseMonthParams(r.URL.Query(), s.now())
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	sum, err := s.svc.MonthSummary(r.Context(), window)
	if err != nil {
		s.logReadError(r, "Month summary failed", err)
		InternalServerError("Could not load the summary").Write(w)
		return
	}
	s.renderPartial(w, r, "summary", view.NewDashboard(sum, window), NewHTMXResponse())
}

func (s *Server) logReadError(r *http.Request, msg string, err error) {
	s.logError(r, msg, err, log.ComponentStorage, log.OpRead)
}

func (s *Server) logError(r *http.Request, msg string, err error, component, operation string) {
	fields := log.NewFields().
		WithRequestID(trace.GetRequestID(r.Context())).
		WithClientIP(s.detector.ExtractClientIP(r))
	s.structured.LogError(r.Context(), msg, err, component, operation, fields)
}
