package accounts

import (
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/mux"

	"github.com/panyam/accounts/geobase"
	aoauth "github.com/panyam/accounts/oauth2"
)

// Accounts is the root of the module: it owns the route table and glues
// forms, stores, the pending-action store, email and the OAuth registry
// together.  Zero-value fields are filled in by EnsureDefaults.
type Accounts struct {
	router  *mux.Router
	Session *scs.SessionManager

	Middleware Middleware

	// Optional name that can be used as a prefix for all required vars
	AppName string

	// Name of the session variable where the auth token is stored
	AuthTokenSessionVar string

	// Must be passed in
	UserStore    UserStore
	ChannelStore ChannelStore
	Pending      PendingStore
	EmailSender  EmailSender

	// Optional geolocation collaborators.  When nil, signup and profile
	// updates simply skip location resolution.
	Geobase      *geobase.Client
	GeobaseStore geobase.Store

	// Absolute base URL used in emailed links, e.g. "https://example.com/accounts"
	BaseURL string

	// Where soft failures land
	HomeURL  string
	LoginURL string

	// Default post-login destination when no ?next= is present
	LoginRedirectURL string

	// Supported profile languages; the first one is the default
	Languages []string

	// All the domains where the auth token cookies will be set on a login success or logout
	CookieDomains []string

	// JWT related fields
	JwtIssuer    string
	JWTSecretKey string

	// How long is a session cookie valid for.  Defaults to 1 day
	SessionTimeoutInSeconds int

	// Extended lifetime applied when the login form carries remember=on.
	// Defaults to 30 days.
	RememberTimeoutInSeconds int

	providers map[string]aoauth.Provider
}

func New(appName string) *Accounts {
	return (&Accounts{AppName: appName}).EnsureDefaults()
}

func (a *Accounts) EnsureDefaults() *Accounts {
	if a.AppName == "" {
		a.AppName = "Accounts"
	}
	if a.SessionTimeoutInSeconds <= 0 {
		a.SessionTimeoutInSeconds = 86400
	}
	if a.RememberTimeoutInSeconds <= 0 {
		a.RememberTimeoutInSeconds = 30 * 86400
	}
	if a.JwtIssuer == "" {
		a.JwtIssuer = fmt.Sprintf("%s-Issuer", a.AppName)
	}
	if a.AuthTokenSessionVar == "" {
		a.AuthTokenSessionVar = fmt.Sprintf("%sAuthToken", a.AppName)
	}
	if a.JWTSecretKey == "" {
		a.JWTSecretKey = strings.TrimSpace(os.Getenv("ACCOUNTS_JWT_SECRET_KEY"))
		if a.JWTSecretKey == "" {
			a.JWTSecretKey = "MyTestJWTSecretKey123456"
		}
	}
	if a.HomeURL == "" {
		a.HomeURL = "/"
	}
	if a.LoginURL == "" {
		a.LoginURL = "login/"
	}
	if a.LoginRedirectURL == "" {
		a.LoginRedirectURL = "/"
	}
	if len(a.Languages) == 0 {
		a.Languages = []string{"en-US", "ru-RU"}
	}
	if a.Middleware.AuthTokenCookieName == "" {
		a.Middleware.AuthTokenCookieName = a.AuthTokenSessionVar
	}
	if a.Middleware.GetRedirURL == nil {
		a.Middleware.GetRedirURL = func(r *http.Request) string { return a.LoginURL }
	}
	if a.Middleware.VerifyToken == nil {
		a.Middleware.VerifyToken = a.verifyJWT
	}
	if a.Middleware.SessionGetter == nil && a.Session != nil {
		a.Middleware.SessionGetter = func(r *http.Request, param string) any {
			return a.Session.Get(r.Context(), param)
		}
	}
	return a
}

// DefaultLanguage returns the first configured language
func (a *Accounts) DefaultLanguage() string {
	a.EnsureDefaults()
	return a.Languages[0]
}

// AddProvider registers an OAuth provider adapter under its name.  The
// adapter's user callback is pointed at the completion flow.
func (a *Accounts) AddProvider(p aoauth.Provider) *Accounts {
	if a.providers == nil {
		a.providers = map[string]aoauth.Provider{}
	}
	p.SetHandleUser(a.handleOAuthUser)
	a.providers[p.Name()] = p
	return a
}

// Handler returns the module's route table.  Routes mirror the public
// surface: login, logout, signup, forgot_password, confirm/email/{token},
// change/password/{token}, oauth/{provider}, oauth/completion/{token},
// profile and profile/change/password.
func (a *Accounts) Handler() http.Handler {
	a.EnsureDefaults()
	if a.router == nil {
		r := mux.NewRouter()
		r.HandleFunc("/login/", a.onLogin).Methods("GET", "POST")
		r.HandleFunc("/logout/", a.onLogout).Methods("GET")
		r.HandleFunc("/signup/", a.onSignup).Methods("GET", "POST")
		r.HandleFunc("/forgot_password/", a.onForgotPassword).Methods("GET", "POST")
		r.HandleFunc("/confirm/email/{token}/", a.onConfirmEmail).Methods("GET")
		r.HandleFunc("/change/password/{token}/", a.onChangePassword).Methods("GET", "POST")
		r.HandleFunc("/oauth/completion/{token}/", a.onOAuthCompletion).Methods("GET")
		r.HandleFunc("/oauth/{provider}/", a.onOAuth).Methods("GET")

		profile := r.PathPrefix("/profile").Subrouter()
		profile.Use(a.Middleware.EnsureUser)
		profile.HandleFunc("/", a.onProfile).Methods("GET", "POST")
		profile.HandleFunc("/change/password/", a.onProfileChangePassword).Methods("POST")

		a.router = r
	}
	return a.router
}

// AddAuth mounts the account handler under the given prefix on an external mux
func (a *Accounts) AddAuth(prefix string, parent *http.ServeMux) *Accounts {
	prefix = strings.TrimSuffix(prefix, "/")
	log.Println("Adding accounts under prefix: ", prefix)
	parent.Handle(prefix+"/", http.StripPrefix(prefix, a.Handler()))
	return a
}

func (a *Accounts) verifyJWT(tokenString string) (loggedInUserId string, t any, err error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
		return []byte(a.JWTSecretKey), nil
	})
	if err != nil {
		return "", nil, err
	}
	if !token.Valid {
		return "", nil, fmt.Errorf("invalid token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || claims == nil {
		return "", nil, fmt.Errorf("claims is not a map")
	}
	sub, err := claims.GetSubject()
	if sub == "" {
		return "", nil, fmt.Errorf("subject not found")
	} else if err != nil {
		return "", nil, err
	}
	return sub, token, nil
}

// Generic helper to set the auth token and logged in user ID on the cookie
// domains we care about.  Passing a nil account "unsets" the logged in user.
func (a *Accounts) setLoggedInUser(account *Account, timeoutSeconds int, w http.ResponseWriter, r *http.Request) string {
	a.EnsureDefaults()
	if timeoutSeconds <= 0 {
		timeoutSeconds = a.SessionTimeoutInSeconds
	}
	domains := a.CookieDomains
	if slices.Index(a.CookieDomains, "") < 0 { // default domain
		domains = append(domains, "")
	}
	for _, cookieDomain := range domains {
		http.SetCookie(w, &http.Cookie{
			Name:   "oauthstate",
			Value:  "",
			MaxAge: -1, Expires: time.Now(),
			Domain: cookieDomain,
			Path:   "/",
		})

		if account != nil {
			a.Session.Put(r.Context(), "loggedInUserId", account.ID)
			http.SetCookie(w, &http.Cookie{
				Name:    "loggedInUserId",
				Value:   account.ID,
				Domain:  cookieDomain,
				Path:    "/",
				Expires: time.Now().Add(time.Second * time.Duration(timeoutSeconds)), MaxAge: timeoutSeconds,
			})

			token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
				"sub": account.ID,
				"iss": a.JwtIssuer,
				"aud": "user",
				"exp": time.Now().Add(time.Second * time.Duration(timeoutSeconds)).Unix(),
				"iat": time.Now().Unix(),
			})
			tokenString, err := token.SignedString([]byte(a.JWTSecretKey))
			if err != nil {
				slog.Info("error signing token", "err", err)
			}

			a.Session.Put(r.Context(), a.AuthTokenSessionVar, tokenString)
			http.SetCookie(w, &http.Cookie{
				Name:    a.AuthTokenSessionVar,
				Value:   tokenString,
				Domain:  cookieDomain,
				Path:    "/",
				Expires: time.Now().Add(time.Second * time.Duration(timeoutSeconds)), MaxAge: timeoutSeconds,
			})
			return tokenString
		} else {
			if err := a.Session.Clear(r.Context()); err != nil {
				slog.Warn("error clearing session ", "err", err)
			}
			http.SetCookie(w, &http.Cookie{
				Name:    "loggedInUserId",
				Domain:  cookieDomain,
				Path:    "/",
				MaxAge:  -1,
				Expires: time.Now(),
			})
			http.SetCookie(w, &http.Cookie{
				Name:    a.AuthTokenSessionVar,
				Domain:  cookieDomain,
				Path:    "/",
				MaxAge:  -1,
				Expires: time.Now(),
			})
		}
	}
	return ""
}

// Flash stores a one-shot user-visible message in the session
func (a *Accounts) Flash(r *http.Request, message string) {
	if a.Session != nil {
		a.Session.Put(r.Context(), "flash", message)
	}
}

// PopFlash retrieves and clears the pending flash message, if any
func (a *Accounts) PopFlash(r *http.Request) string {
	if a.Session == nil {
		return ""
	}
	return a.Session.PopString(r.Context(), "flash")
}

// safeNext accepts only local absolute paths as post-flow destinations;
// anything else (absolute URLs, protocol-relative, empty) falls back to
// the configured default
func (a *Accounts) safeNext(next string) string {
	if next == "" || !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") {
		return a.LoginRedirectURL
	}
	return next
}

// nextURL returns the validated ?next= destination or the configured default
func (a *Accounts) nextURL(r *http.Request) string {
	return a.safeNext(r.URL.Query().Get("next"))
}
