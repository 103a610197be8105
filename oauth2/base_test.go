package oauth2_test

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"regexp"
	"testing"

	aoauth "github.com/panyam/accounts/oauth2"
)

func TestProviderAuthURLs(t *testing.T) {
	tests := []struct {
		name     string
		provider *aoauth.BaseProvider
		pattern  string
	}{
		{"google", aoauth.NewGoogle("cid", "secret", "http://cb"),
			`^https://accounts\.google\.com/o/oauth2/auth\?`},
		{"yandex", aoauth.NewYandex("cid", "secret", "http://cb"),
			`^https://oauth\.yandex\.com/authorize\?`},
		{"vk", aoauth.NewVK("cid", "secret", "http://cb"),
			`^https://oauth\.vk\.com/authorize\?`},
		{"facebook", aoauth.NewFacebook("cid", "secret", "http://cb"),
			`^https://www\.facebook\.com/.*oauth`},
		{"mailru", aoauth.NewMailru("cid", "secret", "http://cb"),
			`^https://oauth\.mail\.ru/login\?`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.provider.Name() != tt.name {
				t.Errorf("Name() = %q, want %q", tt.provider.Name(), tt.name)
			}
			authURL := tt.provider.Config().AuthCodeURL("teststate")
			matched, err := regexp.MatchString(tt.pattern, authURL)
			if err != nil {
				t.Fatalf("bad pattern: %v", err)
			}
			if !matched {
				t.Errorf("auth URL %q does not match %q", authURL, tt.pattern)
			}

			u, err := url.Parse(authURL)
			if err != nil {
				t.Fatalf("auth URL not parseable: %v", err)
			}
			q := u.Query()
			if q.Get("client_id") != "cid" {
				t.Errorf("client_id = %q", q.Get("client_id"))
			}
			if q.Get("state") != "teststate" {
				t.Errorf("state = %q", q.Get("state"))
			}
			if q.Get("redirect_uri") != "http://cb" {
				t.Errorf("redirect_uri = %q", q.Get("redirect_uri"))
			}
		})
	}
}

func TestEnabled(t *testing.T) {
	if aoauth.NewGoogle("cid", "secret", "http://cb").Enabled() != true {
		t.Error("provider with full credentials should be enabled")
	}
	// Missing id, secret, or both all disable the provider.  Env fallbacks
	// are cleared so the test is hermetic.
	t.Setenv("OAUTH2_GOOGLE_CLIENT_ID", "")
	t.Setenv("OAUTH2_GOOGLE_CLIENT_SECRET", "")
	t.Setenv("OAUTH2_GOOGLE_CALLBACK_URL", "")
	if aoauth.NewGoogle("cid", "", "http://cb").Enabled() {
		t.Error("provider without a secret should be disabled")
	}
	if aoauth.NewGoogle("", "", "").Enabled() {
		t.Error("provider without credentials should be disabled")
	}
}

func TestRedirectPhaseSetsCookies(t *testing.T) {
	provider := aoauth.NewGoogle("cid", "secret", "http://cb")

	rr := httptest.NewRecorder()
	provider.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/oauth/google/?next=/after", nil))

	if rr.Code != http.StatusFound {
		t.Fatalf("status = %d, want 302", rr.Code)
	}

	location, err := url.Parse(rr.Header().Get("Location"))
	if err != nil {
		t.Fatalf("bad redirect: %v", err)
	}
	state := location.Query().Get("state")
	if state == "" {
		t.Fatal("no state in auth URL")
	}

	cookies := rr.Result().Cookies()
	var stateValue, callbackValue string
	for _, cookie := range cookies {
		switch cookie.Name {
		case "oauthstate":
			stateValue = cookie.Value
		case "oauthCallbackURL":
			callbackValue = cookie.Value
		}
	}
	if stateValue != state {
		t.Errorf("oauthstate cookie %q != state param %q", stateValue, state)
	}
	if callbackValue != "/after" {
		t.Errorf("oauthCallbackURL = %q, want /after", callbackValue)
	}
}

func TestExchangePhaseRejectsBadState(t *testing.T) {
	provider := aoauth.NewGoogle("cid", "secret", "http://cb")

	// No state cookie at all
	rr := httptest.NewRecorder()
	provider.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/oauth/google/?code=abc&state=x", nil))
	if rr.Code != http.StatusBadRequest {
		t.Errorf("missing cookie: status = %d, want 400", rr.Code)
	}

	// Cookie and parameter disagree
	req := httptest.NewRequest(http.MethodGet, "/oauth/google/?code=abc&state=attacker", nil)
	req.AddCookie(&http.Cookie{Name: "oauthstate", Value: "legit"})
	rr = httptest.NewRecorder()
	provider.ServeHTTP(rr, req)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("state mismatch: status = %d, want 400", rr.Code)
	}
}

func TestDisabledProviderServesError(t *testing.T) {
	t.Setenv("OAUTH2_GOOGLE_CLIENT_ID", "")
	t.Setenv("OAUTH2_GOOGLE_CLIENT_SECRET", "")
	t.Setenv("OAUTH2_GOOGLE_CALLBACK_URL", "")
	provider := aoauth.NewGoogle("", "", "")

	rr := httptest.NewRecorder()
	provider.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/oauth/google/", nil))
	if rr.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rr.Code)
	}
}
