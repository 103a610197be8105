package oauth2

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"golang.org/x/oauth2"
)

// FetchUserFunc retrieves and normalizes the provider's user info after a
// successful code exchange
type FetchUserFunc func(ctx context.Context, config *oauth2.Config, token *oauth2.Token) (*UserInfo, error)

// BaseProvider implements the shared two-phase authorization-code flow.
// Concrete providers supply the endpoint, scopes and a FetchUserFunc.
type BaseProvider struct {
	name        string
	oauthConfig oauth2.Config
	fetchUser   FetchUserFunc
	handleUser  HandleUserFunc

	// Extra URL parameters added to the auth-code URL (e.g. VK's display)
	authCodeOptions []oauth2.AuthCodeOption
}

func newBaseProvider(name string, config oauth2.Config, fetchUser FetchUserFunc, opts ...oauth2.AuthCodeOption) *BaseProvider {
	return &BaseProvider{
		name:            name,
		oauthConfig:     config,
		fetchUser:       fetchUser,
		authCodeOptions: opts,
	}
}

func (b *BaseProvider) Name() string { return b.name }

func (b *BaseProvider) Enabled() bool {
	return b.oauthConfig.ClientID != "" && b.oauthConfig.ClientSecret != ""
}

func (b *BaseProvider) SetHandleUser(fn HandleUserFunc) { b.handleUser = fn }

// Config exposes the underlying oauth2 config, mainly for tests
func (b *BaseProvider) Config() *oauth2.Config { return &b.oauthConfig }

func generateStateOauthCookie(w http.ResponseWriter) string {
	var expiration = time.Now().Add(30 * 24 * time.Hour)
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		log.Println("Error generating rand: ", err)
	}
	state := base64.URLEncoding.EncodeToString(b)
	cookie := http.Cookie{Name: "oauthstate", Value: state, Path: "/", Expires: expiration}
	http.SetCookie(w, &cookie)
	return state
}

// ServeHTTP serves both phases on one URL: no code means redirect phase,
// a code means exchange phase.
func (b *BaseProvider) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !b.Enabled() {
		http.Error(w, "provider not configured", http.StatusInternalServerError)
		return
	}

	code := r.FormValue("code")
	if code == "" {
		b.redirectPhase(w, r)
		return
	}
	b.exchangePhase(w, r, code)
}

func (b *BaseProvider) redirectPhase(w http.ResponseWriter, r *http.Request) {
	// Remember where to land after completion so the callback can find it
	next := r.URL.Query().Get("next")
	if next != "" {
		http.SetCookie(w, &http.Cookie{
			Name:    "oauthCallbackURL",
			Value:   next,
			Path:    "/",
			Expires: time.Now().Add(24 * time.Hour),
			MaxAge:  300, // keep this short
		})
	}
	oauthState := generateStateOauthCookie(w)
	u := b.oauthConfig.AuthCodeURL(oauthState, b.authCodeOptions...)
	http.Redirect(w, r, u, http.StatusFound)
}

func (b *BaseProvider) exchangePhase(w http.ResponseWriter, r *http.Request, code string) {
	oauthState, _ := r.Cookie("oauthstate")
	if oauthState == nil {
		log.Println("oauth state is nil")
		http.Error(w, "OauthState is nil", http.StatusBadRequest)
		return
	}
	if r.FormValue("state") != oauthState.Value {
		http.SetCookie(w, &http.Cookie{
			Name:   "oauthstate",
			MaxAge: 0,
		})
		http.Error(w, "invalid oauth state", http.StatusBadRequest)
		return
	}

	token, err := b.oauthConfig.Exchange(r.Context(), code)
	if err != nil {
		log.Println("code exchange wrong: ", err)
		http.Redirect(w, r, "/", http.StatusTemporaryRedirect)
		return
	}

	userInfo, err := b.fetchUser(r.Context(), &b.oauthConfig, token)
	if err != nil {
		log.Println("error fetching user info: ", err)
		http.Redirect(w, r, "/", http.StatusTemporaryRedirect)
		return
	}
	userInfo.Provider = b.name
	if userInfo.ExpiresAt.IsZero() {
		userInfo.ExpiresAt = token.Expiry
	}

	if b.handleUser == nil {
		http.Error(w, "provider has no user handler", http.StatusInternalServerError)
		return
	}
	b.handleUser(b.name, token, userInfo, w, r)
}

// fetchJSON GETs a user-info URL and decodes the JSON body into out
func fetchJSON(ctx context.Context, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("userinfo endpoint returned %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
