package oauth2

import (
	"context"
	"os"

	"golang.org/x/oauth2"
)

// Mail.ru runs its current OAuth2 endpoints on oauth.mail.ru
var mailruEndpoint = oauth2.Endpoint{
	AuthURL:  "https://oauth.mail.ru/login",
	TokenURL: "https://oauth.mail.ru/token",
}

type mailruUserInfo struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	Nickname  string `json:"nickname"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Gender    string `json:"gender"` // "m" / "f"
	Birthday  string `json:"birthday"`
	Image     string `json:"image"`
}

// NewMailru builds the Mail.ru adapter.  Empty credentials fall back to the
// OAUTH2_MAILRU_* environment variables.
func NewMailru(clientId, clientSecret, callbackUrl string) *BaseProvider {
	if clientId == "" {
		clientId = os.Getenv("OAUTH2_MAILRU_CLIENT_ID")
	}
	if clientSecret == "" {
		clientSecret = os.Getenv("OAUTH2_MAILRU_CLIENT_SECRET")
	}
	if callbackUrl == "" {
		callbackUrl = os.Getenv("OAUTH2_MAILRU_CALLBACK_URL")
	}

	config := oauth2.Config{
		ClientID:     clientId,
		ClientSecret: clientSecret,
		RedirectURL:  callbackUrl,
		Scopes:       []string{"userinfo"},
		Endpoint:     mailruEndpoint,
	}

	return newBaseProvider("mailru", config, fetchMailruUser)
}

func fetchMailruUser(ctx context.Context, config *oauth2.Config, token *oauth2.Token) (*UserInfo, error) {
	const userInfoURL = "https://oauth.mail.ru/userinfo?access_token="

	var data mailruUserInfo
	if err := fetchJSON(ctx, userInfoURL+token.AccessToken, &data); err != nil {
		return nil, err
	}

	gender := ""
	switch data.Gender {
	case "m":
		gender = "male"
	case "f":
		gender = "female"
	}

	return &UserInfo{
		ID:        data.ID,
		Email:     data.Email,
		Username:  data.Nickname,
		FirstName: data.FirstName,
		LastName:  data.LastName,
		Gender:    gender,
		Birthday:  data.Birthday,
		Picture:   data.Image,
	}, nil
}
