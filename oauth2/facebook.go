package oauth2

import (
	"context"
	"os"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/facebook"
)

type facebookUserInfo struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Gender    string `json:"gender"`
	Picture   struct {
		Data struct {
			URL string `json:"url"`
		} `json:"data"`
	} `json:"picture"`
}

// NewFacebook builds the Facebook adapter.  Empty credentials fall back to
// the OAUTH2_FACEBOOK_* environment variables.
func NewFacebook(clientId, clientSecret, callbackUrl string) *BaseProvider {
	if clientId == "" {
		clientId = os.Getenv("OAUTH2_FACEBOOK_CLIENT_ID")
	}
	if clientSecret == "" {
		clientSecret = os.Getenv("OAUTH2_FACEBOOK_CLIENT_SECRET")
	}
	if callbackUrl == "" {
		callbackUrl = os.Getenv("OAUTH2_FACEBOOK_CALLBACK_URL")
	}

	config := oauth2.Config{
		ClientID:     clientId,
		ClientSecret: clientSecret,
		RedirectURL:  callbackUrl,
		Scopes:       []string{"email", "public_profile"},
		Endpoint:     facebook.Endpoint,
	}

	return newBaseProvider("facebook", config, fetchFacebookUser)
}

func fetchFacebookUser(ctx context.Context, config *oauth2.Config, token *oauth2.Token) (*UserInfo, error) {
	const userInfoURL = "https://graph.facebook.com/me?fields=id,email,first_name,last_name,gender,picture&access_token="

	var data facebookUserInfo
	if err := fetchJSON(ctx, userInfoURL+token.AccessToken, &data); err != nil {
		return nil, err
	}

	return &UserInfo{
		ID:        data.ID,
		Email:     data.Email,
		FirstName: data.FirstName,
		LastName:  data.LastName,
		Gender:    data.Gender,
		Picture:   data.Picture.Data.URL,
	}, nil
}
