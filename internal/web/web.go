// Package web serves the server-rendered screens: sign-in, registration, search results and checkout steps.
package web

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"lookkg/internal/logger"
	"lookkg/internal/repository"
	"lookkg/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

//go:embed templates/*.html
var templatesFS embed.FS

// TokenCookie holds the JWT issued at sign-in
const TokenCookie = "token"

// searchAll is the name segment that means "no name filter"
const searchAll = "all"

// CheckoutSteps are the labels of the checkout progress indicator, in order
var CheckoutSteps = []string{"Кирүү", "Жеткирүү", "Төлөм", "Жайгаштыруу"}

// Step is one entry of the checkout indicator
type Step struct {
	Label  string
	Active bool
}

// viewer is the signed-in user shown in the header
type viewer struct {
	Name string
}

type layoutData struct {
	User  *viewer
	Query string
}

type signinData struct {
	layoutData
	Redirect string
	Email    string
	Error    string
}

type registerData struct {
	layoutData
	Redirect string
	Name     string
	Email    string
	Error    string
}

type searchData struct {
	layoutData
	Page     *service.ProductPage
	PageBase string
}

type checkoutData struct {
	layoutData
	Steps []Step
}

// Handler renders the HTML screens
type Handler struct {
	products    service.ProductService
	users       service.UserService
	tokenExpiry time.Duration
	secure      bool
	pages       map[string]*template.Template
	logger      *zap.Logger
}

// NewHandler parses the embedded templates. secure marks the token cookie Secure.
func NewHandler(products service.ProductService, users service.UserService, tokenExpiry time.Duration, secure bool, logger *zap.Logger) (*Handler, error) {
	funcs := template.FuncMap{
		"pages": func(n int) []int {
			out := make([]int, n)
			for i := range out {
				out[i] = i + 1
			}
			return out
		},
	}

	pages := make(map[string]*template.Template)
	for _, name := range []string{"signin.html", "register.html", "search.html", "checkout.html"} {
		tmpl, err := template.New(name).Funcs(funcs).ParseFS(templatesFS, "templates/layout.html", "templates/"+name)
		if err != nil {
			return nil, fmt.Errorf("failed to parse template %s: %w", name, err)
		}
		pages[name] = tmpl
	}

	return &Handler{
		products:    products,
		users:       users,
		tokenExpiry: tokenExpiry,
		secure:      secure,
		pages:       pages,
		logger:      logger,
	}, nil
}

// RegisterRoutes registers the screen routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.Home)
	r.Get("/signin", h.SigninForm)
	r.Post("/signin", h.Signin)
	r.Get("/register", h.RegisterForm)
	r.Post("/register", h.Register)
	r.Get("/search", h.SearchRedirect)
	r.Get("/search/name/{name}", h.Search)
	r.Get("/checkout/{step}", h.Checkout)
}

// SigninForm renders the sign-in form, or forwards already signed-in users to the redirect target
func (h *Handler) SigninForm(w http.ResponseWriter, r *http.Request) {
	redirect := SafeRedirect(r.URL.Query().Get("redirect"))

	if h.currentUser(r) != nil {
		http.Redirect(w, r, redirect, http.StatusSeeOther)
		return
	}

	h.render(w, r, http.StatusOK, "signin.html", signinData{Redirect: redirect})
}

// Signin checks the submitted credentials and stores the token cookie
func (h *Handler) Signin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.render(w, r, http.StatusBadRequest, "signin.html", signinData{Redirect: "/", Error: "Invalid form"})
		return
	}

	redirect := r.PostForm.Get("redirect")
	if redirect == "" {
		redirect = r.URL.Query().Get("redirect")
	}
	redirect = SafeRedirect(redirect)
	email := strings.TrimSpace(r.PostForm.Get("email"))

	result, err := h.users.Signin(r.Context(), email, r.PostForm.Get("password"))
	if err != nil {
		status, message := http.StatusInternalServerError, "Something went wrong"
		if errors.Is(err, service.ErrInvalidCredentials) {
			status, message = http.StatusUnauthorized, "Invalid email or password"
		} else {
			h.log(r).Error("Web signin failed", zap.Error(err))
		}
		h.render(w, r, status, "signin.html", signinData{Redirect: redirect, Email: email, Error: message})
		return
	}

	h.setToken(w, result.Token)
	http.Redirect(w, r, redirect, http.StatusSeeOther)
}

// RegisterForm renders the account form, or forwards already signed-in users to the redirect target
func (h *Handler) RegisterForm(w http.ResponseWriter, r *http.Request) {
	redirect := SafeRedirect(r.URL.Query().Get("redirect"))

	if h.currentUser(r) != nil {
		http.Redirect(w, r, redirect, http.StatusSeeOther)
		return
	}

	h.render(w, r, http.StatusOK, "register.html", registerData{Redirect: redirect})
}

// Register creates a buyer account, signs it in and follows the redirect
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.render(w, r, http.StatusBadRequest, "register.html", registerData{Redirect: "/", Error: "Invalid form"})
		return
	}

	redirect := r.PostForm.Get("redirect")
	if redirect == "" {
		redirect = r.URL.Query().Get("redirect")
	}
	data := registerData{
		Redirect: SafeRedirect(redirect),
		Name:     strings.TrimSpace(r.PostForm.Get("name")),
		Email:    strings.TrimSpace(r.PostForm.Get("email")),
	}

	password := r.PostForm.Get("password")
	if data.Name == "" || data.Email == "" || password == "" {
		data.Error = "Name, email and password are required"
		h.render(w, r, http.StatusBadRequest, "register.html", data)
		return
	}
	if password != r.PostForm.Get("confirmPassword") {
		data.Error = "Password and confirm password do not match"
		h.render(w, r, http.StatusBadRequest, "register.html", data)
		return
	}

	result, err := h.users.Register(r.Context(), data.Name, data.Email, password)
	if err != nil {
		status, message := http.StatusInternalServerError, "Something went wrong"
		if errors.Is(err, repository.ErrUserAlreadyExists) {
			status, message = http.StatusConflict, "Email already registered"
		} else {
			h.log(r).Error("Web register failed", zap.Error(err))
		}
		data.Error = message
		h.render(w, r, status, "register.html", data)
		return
	}

	h.setToken(w, result.Token)
	http.Redirect(w, r, data.Redirect, http.StatusSeeOther)
}

// Home sends the storefront root to the unfiltered search results
func (h *Handler) Home(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, SearchPath(""), http.StatusSeeOther)
}

// SearchRedirect turns a search box submission into the canonical search URL
func (h *Handler) SearchRedirect(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, SearchPath(r.URL.Query().Get("q")), http.StatusSeeOther)
}

// SearchPath is the results URL for a search box query
func SearchPath(query string) string {
	query = strings.TrimSpace(query)
	if query == "" {
		query = searchAll
	}
	return "/search/name/" + url.PathEscape(query)
}

// Search renders one page of products whose name matches the path segment
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if unescaped, err := url.PathUnescape(name); err == nil {
		name = unescaped
	}
	if name == searchAll {
		name = ""
	}

	page, err := strconv.Atoi(r.URL.Query().Get("pageNumber"))
	if err != nil || page < 1 {
		page = 1
	}

	result, err := h.products.List(r.Context(), repository.ProductFilter{Name: name}, page)
	if err != nil {
		h.log(r).Error("Search failed", zap.String("name", name), zap.Error(err))
		http.Error(w, "failed to search products", http.StatusInternalServerError)
		return
	}

	h.render(w, r, http.StatusOK, "search.html", searchData{
		layoutData: layoutData{User: h.currentUser(r), Query: name},
		Page:       result,
		PageBase:   SearchPath(name),
	})
}

// Checkout renders the progress indicator with every step up to {step} active
func (h *Handler) Checkout(w http.ResponseWriter, r *http.Request) {
	step, err := strconv.Atoi(chi.URLParam(r, "step"))
	if err != nil || step < 1 || step > len(CheckoutSteps) {
		http.NotFound(w, r)
		return
	}

	h.render(w, r, http.StatusOK, "checkout.html", checkoutData{
		layoutData: layoutData{User: h.currentUser(r)},
		Steps:      StepsUpTo(step),
	})
}

// StepsUpTo marks the first n checkout steps active
func StepsUpTo(n int) []Step {
	steps := make([]Step, len(CheckoutSteps))
	for i, label := range CheckoutSteps {
		steps[i] = Step{Label: label, Active: i < n}
	}
	return steps
}

// SafeRedirect keeps redirects on this site. Anything that is not a local
// absolute path becomes "/".
func SafeRedirect(target string) string {
	if target == "" || !strings.HasPrefix(target, "/") || strings.HasPrefix(target, "//") || strings.HasPrefix(target, "/\\") {
		return "/"
	}
	return target
}

func (h *Handler) currentUser(r *http.Request) *viewer {
	cookie, err := r.Cookie(TokenCookie)
	if err != nil || cookie.Value == "" {
		return nil
	}
	claims, err := h.users.ValidateToken(cookie.Value)
	if err != nil {
		return nil
	}
	return &viewer{Name: claims.Name}
}

func (h *Handler) setToken(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     TokenCookie,
		Value:    token,
		Path:     "/",
		Expires:  time.Now().Add(h.tokenExpiry),
		HttpOnly: true,
		Secure:   h.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, status int, page string, data interface{}) {
	var buf bytes.Buffer
	if err := h.pages[page].ExecuteTemplate(&buf, "layout", data); err != nil {
		h.log(r).Error("Failed to render page", zap.String("page", page), zap.Error(err))
		http.Error(w, "failed to render page", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

func (h *Handler) log(r *http.Request) *zap.Logger {
	return logger.FromContext(r.Context(), h.logger)
}
