package oauth2

import (
	"context"
	"os"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

type googleUserInfo struct {
	ID         string `json:"id"`
	Email      string `json:"email"`
	GivenName  string `json:"given_name"`
	FamilyName string `json:"family_name"`
	Picture    string `json:"picture"`
	Gender     string `json:"gender"`
}

// NewGoogle builds the Google adapter.  Empty credentials fall back to the
// OAUTH2_GOOGLE_* environment variables.
func NewGoogle(clientId, clientSecret, callbackUrl string) *BaseProvider {
	if clientId == "" {
		clientId = os.Getenv("OAUTH2_GOOGLE_CLIENT_ID")
	}
	if clientSecret == "" {
		clientSecret = os.Getenv("OAUTH2_GOOGLE_CLIENT_SECRET")
	}
	if callbackUrl == "" {
		callbackUrl = os.Getenv("OAUTH2_GOOGLE_CALLBACK_URL")
	}

	config := oauth2.Config{
		ClientID:     clientId,
		ClientSecret: clientSecret,
		RedirectURL:  callbackUrl,
		Scopes: []string{
			"https://www.googleapis.com/auth/userinfo.email",
			"https://www.googleapis.com/auth/userinfo.profile",
		},
		Endpoint: google.Endpoint,
	}

	return newBaseProvider("google", config, fetchGoogleUser)
}

func fetchGoogleUser(ctx context.Context, config *oauth2.Config, token *oauth2.Token) (*UserInfo, error) {
	const userInfoURL = "https://www.googleapis.com/oauth2/v2/userinfo?access_token="

	var data googleUserInfo
	if err := fetchJSON(ctx, userInfoURL+token.AccessToken, &data); err != nil {
		return nil, err
	}

	return &UserInfo{
		ID:        data.ID,
		Email:     data.Email,
		FirstName: data.GivenName,
		LastName:  data.FamilyName,
		Picture:   data.Picture,
		Gender:    data.Gender,
	}, nil
}
