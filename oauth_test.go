package accounts_test

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	oa "github.com/panyam/accounts"
	aoauth "github.com/panyam/accounts/oauth2"
)

func TestOAuthUnknownProvider(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(httptest.NewRequest(http.MethodGet, "/oauth/twitter/", nil))
	if rr.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rr.Code)
	}
}

func TestOAuthDisabledProviderRedirectsHome(t *testing.T) {
	env := newTestEnv(t)
	env.auth.AddProvider(aoauth.NewGoogle("", "", "http://test.local/oauth/google/"))

	rr := env.do(httptest.NewRequest(http.MethodGet, "/oauth/google/", nil))
	assertRedirect(t, rr, "/home/")
}

func TestOAuthRedirectPhase(t *testing.T) {
	env := newTestEnv(t)
	env.auth.AddProvider(aoauth.NewGoogle("test-client-id", "test-secret", "http://test.local/oauth/google/"))

	rr := env.do(httptest.NewRequest(http.MethodGet, "/oauth/google/?next=/dashboard", nil))
	if rr.Code != http.StatusFound {
		t.Fatalf("status = %d, want 302", rr.Code)
	}

	location := rr.Header().Get("Location")
	u, err := url.Parse(location)
	if err != nil {
		t.Fatalf("Location is not a URL: %q", location)
	}
	if u.Host != "accounts.google.com" {
		t.Errorf("redirect host = %q, want accounts.google.com", u.Host)
	}
	if u.Query().Get("client_id") != "test-client-id" {
		t.Errorf("client_id missing from auth URL: %q", location)
	}
	state := u.Query().Get("state")
	if state == "" {
		t.Fatal("state missing from auth URL")
	}

	var stateCookie, callbackCookie *http.Cookie
	for _, cookie := range rr.Result().Cookies() {
		switch cookie.Name {
		case "oauthstate":
			stateCookie = cookie
		case "oauthCallbackURL":
			callbackCookie = cookie
		}
	}
	if stateCookie == nil || stateCookie.Value != state {
		t.Error("oauthstate cookie does not match the state parameter")
	}
	if callbackCookie == nil || callbackCookie.Value != "/dashboard" {
		t.Error("oauthCallbackURL cookie not set from ?next=")
	}
}

// pendingOAuth parks a provider payload the way a completed code exchange
// would and returns the completion path
func pendingOAuth(t *testing.T, env *testEnv, data map[string]any) string {
	t.Helper()
	token, err := env.pending.Create(&oa.PendingAction{
		Flow:  oa.FlowOAuth,
		Email: data["email"].(string),
		Next:  "/dashboard",
		Data:  data,
	}, oa.PendingExpiryOAuth)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	return "/oauth/completion/" + token + "/"
}

func googlePayload(email string) map[string]any {
	return map[string]any{
		"provider":      "google",
		"id":            "g-12345",
		"email":         email,
		"username":      "",
		"first_name":    "Lilo",
		"last_name":     "Kazerogova",
		"picture":       "https://example.com/pic.jpg",
		"gender":        "female",
		"access_token":  "at-secret",
		"refresh_token": "rt-secret",
		"expires_at":    time.Now().Add(time.Hour).Format(time.RFC3339),
	}
}

func TestOAuthCompletionCreatesAccount(t *testing.T) {
	env := newTestEnv(t)

	path := pendingOAuth(t, env, googlePayload("lilo@gmail.com"))
	rr := env.do(httptest.NewRequest(http.MethodGet, path, nil))
	assertRedirect(t, rr, "/dashboard")

	account, err := env.users.GetAccountByEmail("lilo@gmail.com")
	if err != nil {
		t.Fatalf("account not created: %v", err)
	}
	if account.Username != "lilo" {
		t.Errorf("username = %q, want %q", account.Username, "lilo")
	}
	if account.FirstName != "Lilo" || !account.IsActive {
		t.Errorf("account fields wrong: %+v", account)
	}

	profile, err := env.users.GetProfile(account.ID)
	if err != nil {
		t.Fatalf("profile missing: %v", err)
	}
	if profile.Gender != oa.GenderFemale {
		t.Errorf("gender not carried over: %+v", profile)
	}
	if profile.Avatar != "https://example.com/pic.jpg" {
		t.Errorf("avatar not carried over: %+v", profile)
	}

	channel, err := env.channels.GetChannel("google", "g-12345")
	if err != nil {
		t.Fatalf("channel not created: %v", err)
	}
	if channel.UserID != account.ID || channel.AccessToken != "at-secret" {
		t.Errorf("channel fields wrong: %+v", channel)
	}

	// The completion link is single-use
	rr = env.do(httptest.NewRequest(http.MethodGet, path, nil))
	assertRedirect(t, rr, "/login/")
}

func TestOAuthCompletionLinksExistingEmail(t *testing.T) {
	env := newTestEnv(t)
	existing := env.seedAccount(t, "kazerogova", "lilo@gmail.com", "qwerty123")

	path := pendingOAuth(t, env, googlePayload("lilo@gmail.com"))
	rr := env.do(httptest.NewRequest(http.MethodGet, path, nil))
	assertRedirect(t, rr, "/dashboard")

	channel, err := env.channels.GetChannel("google", "g-12345")
	if err != nil {
		t.Fatalf("channel not linked: %v", err)
	}
	if channel.UserID != existing.ID {
		t.Errorf("channel linked to %q, want %q", channel.UserID, existing.ID)
	}

	// No second account for the same mailbox
	account, err := env.users.GetAccountByEmail("lilo@gmail.com")
	if err != nil || account.ID != existing.ID {
		t.Errorf("expected the existing account, got %+v (%v)", account, err)
	}
}

func TestOAuthCompletionReturningChannel(t *testing.T) {
	env := newTestEnv(t)
	existing := env.seedAccount(t, "kazerogova", "lilo@gmail.com", "qwerty123")
	if err := env.channels.SaveChannel(&oa.Channel{
		Provider:    "google",
		ExternalID:  "g-12345",
		UserID:      existing.ID,
		AccessToken: "stale-token",
	}); err != nil {
		t.Fatalf("SaveChannel failed: %v", err)
	}

	// Returning user may have changed their email at the provider; the
	// channel match wins over the email match
	path := pendingOAuth(t, env, googlePayload("newmail@gmail.com"))
	rr := env.do(httptest.NewRequest(http.MethodGet, path, nil))
	assertRedirect(t, rr, "/dashboard")

	if _, err := env.users.GetAccountByEmail("newmail@gmail.com"); err == nil {
		t.Error("unexpected fresh account for a returning channel")
	}

	channel, err := env.channels.GetChannel("google", "g-12345")
	if err != nil {
		t.Fatalf("channel lookup failed: %v", err)
	}
	if channel.UserID != existing.ID {
		t.Errorf("channel moved to %q", channel.UserID)
	}
	if channel.AccessToken != "at-secret" {
		t.Errorf("access token not refreshed: %q", channel.AccessToken)
	}
}

func TestOAuthCompletionUsernameCollision(t *testing.T) {
	env := newTestEnv(t)
	env.seedAccount(t, "lilo", "other@example.com", "qwerty123")

	path := pendingOAuth(t, env, googlePayload("lilo@gmail.com"))
	rr := env.do(httptest.NewRequest(http.MethodGet, path, nil))
	assertRedirect(t, rr, "/dashboard")

	account, err := env.users.GetAccountByEmail("lilo@gmail.com")
	if err != nil {
		t.Fatalf("account not created: %v", err)
	}
	if account.Username != "lilo_google" {
		t.Errorf("username = %q, want provider-tagged fallback", account.Username)
	}
}

func TestOAuthCompletionRejectsWrongFlow(t *testing.T) {
	env := newTestEnv(t)

	token, err := env.pending.Create(&oa.PendingAction{
		Flow:  oa.FlowSignup,
		Email: "lilo@gmail.com",
		Data:  map[string]any{"username": "lilo"},
	}, oa.PendingExpirySignup)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	rr := env.do(httptest.NewRequest(http.MethodGet, "/oauth/completion/"+token+"/", nil))
	assertRedirect(t, rr, "/login/")

	if _, err := env.users.GetAccountByEmail("lilo@gmail.com"); err == nil {
		t.Error("wrong-flow token still created an account")
	}
}

func TestOAuthCompletionMalformedEmail(t *testing.T) {
	env := newTestEnv(t)

	// Some providers hand back whatever the user typed; no "@" is possible
	payload := googlePayload("lilo")
	path := pendingOAuth(t, env, payload)
	rr := env.do(httptest.NewRequest(http.MethodGet, path, nil))
	assertRedirect(t, rr, "/dashboard")

	account, err := env.users.GetAccountByEmail("lilo")
	if err != nil {
		t.Fatalf("account not created: %v", err)
	}
	if account.Username != "googleuser" {
		t.Errorf("username = %q, want %q", account.Username, "googleuser")
	}
}

func TestOAuthCompletionRejectsExternalNext(t *testing.T) {
	env := newTestEnv(t)

	for _, next := range []string{"https://evil.example.com", "//evil.example.com"} {
		payload := googlePayload("lilo@gmail.com")
		token, err := env.pending.Create(&oa.PendingAction{
			Flow:  oa.FlowOAuth,
			Email: "lilo@gmail.com",
			Next:  next,
			Data:  payload,
		}, oa.PendingExpiryOAuth)
		if err != nil {
			t.Fatalf("Create failed: %v", err)
		}

		rr := env.do(httptest.NewRequest(http.MethodGet, "/oauth/completion/"+token+"/", nil))
		assertRedirect(t, rr, "/")
	}
}
