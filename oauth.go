package accounts

import (
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"golang.org/x/oauth2"

	aoauth "github.com/panyam/accounts/oauth2"
)

// onOAuth dispatches /oauth/{provider}/ to the registered adapter.  A
// provider without configured credentials is a configuration error, not a
// crash: the caller gets a message and lands back on the home surface.
func (a *Accounts) onOAuth(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["provider"]
	provider, ok := a.providers[name]
	if !ok {
		http.NotFound(w, r)
		return
	}
	if !provider.Enabled() {
		log.Printf("oauth provider %s is not configured", name)
		a.Flash(r, fmt.Sprintf("Sign-in with %s is currently unavailable.", name))
		http.Redirect(w, r, a.HomeURL, http.StatusFound)
		return
	}
	provider.ServeHTTP(w, r)
}

// handleOAuthUser receives the normalized payload from an adapter after a
// successful exchange.  The payload is parked in the pending store and the
// caller is bounced to the completion URL; account creation happens there.
func (a *Accounts) handleOAuthUser(provider string, token *oauth2.Token, userInfo *aoauth.UserInfo, w http.ResponseWriter, r *http.Request) {
	next := a.LoginRedirectURL
	if cookie, _ := r.Cookie("oauthCallbackURL"); cookie != nil {
		// The cookie comes straight from ?next=; same open-redirect rules
		// as the login form
		next = a.safeNext(cookie.Value)
	}
	http.SetCookie(w, &http.Cookie{
		Name:   "oauthCallbackURL",
		Value:  "",
		Path:   "/",
		MaxAge: -1, Expires: time.Now(),
	})

	action := &PendingAction{
		Flow:  FlowOAuth,
		Email: userInfo.Email,
		Next:  next,
		Data: map[string]any{
			"provider":      provider,
			"id":            userInfo.ID,
			"email":         userInfo.Email,
			"username":      userInfo.Username,
			"first_name":    userInfo.FirstName,
			"last_name":     userInfo.LastName,
			"picture":       userInfo.Picture,
			"gender":        userInfo.Gender,
			"birthday":      userInfo.Birthday,
			"access_token":  token.AccessToken,
			"refresh_token": token.RefreshToken,
			"expires_at":    token.Expiry.Format(time.RFC3339),
		},
	}

	pendingToken, err := a.Pending.Create(action, PendingExpiryOAuth)
	if err != nil {
		log.Println("error creating pending oauth action: ", err)
		http.Redirect(w, r, a.HomeURL, http.StatusFound)
		return
	}

	completionURL := fmt.Sprintf("%s/oauth/completion/%s/", strings.TrimSuffix(a.BaseURL, "/"), pendingToken)
	http.Redirect(w, r, completionURL, http.StatusFound)
}

// onOAuthCompletion turns a parked provider payload into a logged-in user:
// an existing channel logs straight in, a matching email gets the provider
// linked, and anything else becomes a fresh account.
func (a *Accounts) onOAuthCompletion(w http.ResponseWriter, r *http.Request) {
	token := mux.Vars(r)["token"]

	action, err := a.Pending.Consume(token, FlowOAuth)
	if err != nil {
		log.Println("oauth completion token rejected: ", err)
		a.softFail(w, r)
		return
	}

	account, err := a.ensureOAuthUser(action)
	if err != nil {
		log.Println("error completing oauth sign-in: ", err)
		a.Flash(r, "Could not complete sign-in. Please try again.")
		a.softFail(w, r)
		return
	}

	a.setLoggedInUser(account, 0, w, r)

	http.Redirect(w, r, a.safeNext(action.Next), http.StatusFound)
}

func (a *Accounts) ensureOAuthUser(action *PendingAction) (*Account, error) {
	provider, _ := action.Data["provider"].(string)
	externalID, _ := action.Data["id"].(string)
	email, _ := action.Data["email"].(string)
	if provider == "" || externalID == "" {
		return nil, fmt.Errorf("pending oauth payload is missing provider identity")
	}

	channel := a.channelFromAction(action, provider, externalID)

	// Returning user: channel already linked
	if existing, err := a.ChannelStore.GetChannel(provider, externalID); err == nil {
		channel.UserID = existing.UserID
		channel.CreatedAt = existing.CreatedAt
		if err := a.ChannelStore.SaveChannel(channel); err != nil {
			log.Println("error refreshing channel tokens: ", err)
		}
		return a.UserStore.GetAccountById(existing.UserID)
	}

	// Known mailbox: link the provider to the existing account
	if email != "" {
		if account, err := a.UserStore.GetAccountByEmail(email); err == nil {
			channel.UserID = account.ID
			if err := a.ChannelStore.SaveChannel(channel); err != nil {
				return nil, fmt.Errorf("error linking channel: %w", err)
			}
			log.Printf("Linked %s account to user %s", provider, account.Username)
			return account, nil
		}
	}

	// Fresh account
	firstName, _ := action.Data["first_name"].(string)
	lastName, _ := action.Data["last_name"].(string)
	gender, _ := action.Data["gender"].(string)
	birthday, _ := action.Data["birthday"].(string)
	providerLogin, _ := action.Data["username"].(string)
	avatar, _ := action.Data["picture"].(string)

	username, err := a.pickUsername(providerLogin, email, provider)
	if err != nil {
		return nil, err
	}

	// OAuth-only accounts get an unusable random password until the user
	// sets one through the reset flow
	randomSecret, err := GenerateSecureToken()
	if err != nil {
		return nil, err
	}
	passwordHash, err := hashPassword(randomSecret)
	if err != nil {
		return nil, err
	}

	account := &Account{
		ID:           uuid.NewString(),
		Username:     username,
		Email:        email,
		FirstName:    firstName,
		LastName:     lastName,
		PasswordHash: passwordHash,
		IsActive:     true,
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}
	profile := &Profile{
		UserID:    account.ID,
		Language:  a.DefaultLanguage(),
		Gender:    genderFromString(gender),
		BirthDate: parseBirthday(birthday),
		Avatar:    avatar,
	}
	if err := a.UserStore.CreateAccount(account, profile); err != nil {
		return nil, fmt.Errorf("error creating account: %w", err)
	}

	channel.UserID = account.ID
	if err := a.ChannelStore.SaveChannel(channel); err != nil {
		return nil, fmt.Errorf("error creating channel: %w", err)
	}

	log.Printf("Created account %s via %s", account.Username, provider)
	return account, nil
}

func (a *Accounts) channelFromAction(action *PendingAction, provider, externalID string) *Channel {
	accessToken, _ := action.Data["access_token"].(string)
	refreshToken, _ := action.Data["refresh_token"].(string)
	expiresAt := time.Time{}
	if raw, _ := action.Data["expires_at"].(string); raw != "" {
		if t, err := time.Parse(time.RFC3339, raw); err == nil {
			expiresAt = t
		}
	}
	now := time.Now()
	return &Channel{
		Provider:     provider,
		ExternalID:   externalID,
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresAt:    expiresAt,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// pickUsername derives a free username from the provider payload.  The
// first candidate that fails validation or is already taken gets a
// provider-tagged suffix, then numeric suffixes.
func (a *Accounts) pickUsername(providerLogin, email, provider string) (string, error) {
	base := providerLogin
	if base == "" {
		// Provider email fields are not guaranteed well-formed
		if at := strings.Index(email, "@"); at > 0 {
			base = email[:at]
		}
	}
	if base == "" {
		base = provider + "user"
	}
	base = sanitizeUsername(base)

	if candidate, err := NormalizeUsername(base); err == nil {
		if CheckUsernameAvailable(a.UserStore, candidate) == nil {
			return candidate, nil
		}
	}

	tagged := base + "_" + provider
	if candidate, err := NormalizeUsername(tagged); err == nil {
		if CheckUsernameAvailable(a.UserStore, candidate) == nil {
			return candidate, nil
		}
	}

	for i := 1; i < 1000; i++ {
		candidate := fmt.Sprintf("%s%d", sanitizeUsername(base+provider), i)
		if _, err := NormalizeUsername(candidate); err != nil {
			continue
		}
		if CheckUsernameAvailable(a.UserStore, candidate) == nil {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("could not find a free username for %s", base)
}

// sanitizeUsername strips everything the username pattern would reject
func sanitizeUsername(s string) string {
	s = strings.ToLower(s)
	var b strings.Builder
	for _, r := range s {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	out := b.String()
	if out == "" || (out[0] >= '0' && out[0] <= '9') {
		out = "user" + out
	}
	return out
}

// parseBirthday accepts the date formats the providers hand back.  Unknown
// formats are dropped rather than guessed at.
func parseBirthday(s string) *time.Time {
	for _, layout := range []string{"2006-01-02", "02.01.2006", "2.1.2006"} {
		if t, err := time.Parse(layout, s); err == nil {
			return &t
		}
	}
	return nil
}

func genderFromString(s string) int {
	switch s {
	case "male":
		return GenderMale
	case "female":
		return GenderFemale
	}
	return 0
}
