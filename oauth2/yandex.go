package oauth2

import (
	"context"
	"os"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/yandex"
)

type yandexUserInfo struct {
	ID           string `json:"id"`
	Login        string `json:"login"`
	DefaultEmail string `json:"default_email"`
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name"`
	Sex          string `json:"sex"` // "male" / "female"
	Birthday     string `json:"birthday"`
	AvatarID     string `json:"default_avatar_id"`
	IsAvatarNone bool   `json:"is_avatar_empty"`
}

// NewYandex builds the Yandex adapter.  Empty credentials fall back to the
// OAUTH2_YANDEX_* environment variables.
func NewYandex(clientId, clientSecret, callbackUrl string) *BaseProvider {
	if clientId == "" {
		clientId = os.Getenv("OAUTH2_YANDEX_CLIENT_ID")
	}
	if clientSecret == "" {
		clientSecret = os.Getenv("OAUTH2_YANDEX_CLIENT_SECRET")
	}
	if callbackUrl == "" {
		callbackUrl = os.Getenv("OAUTH2_YANDEX_CALLBACK_URL")
	}

	config := oauth2.Config{
		ClientID:     clientId,
		ClientSecret: clientSecret,
		RedirectURL:  callbackUrl,
		Endpoint:     yandex.Endpoint,
	}

	return newBaseProvider("yandex", config, fetchYandexUser)
}

func fetchYandexUser(ctx context.Context, config *oauth2.Config, token *oauth2.Token) (*UserInfo, error) {
	const userInfoURL = "https://login.yandex.ru/info?format=json&oauth_token="

	var data yandexUserInfo
	if err := fetchJSON(ctx, userInfoURL+token.AccessToken, &data); err != nil {
		return nil, err
	}

	// Accounts under any regional alias all resolve to the same mailbox;
	// force the canonical domain so duplicate detection works.
	email := data.DefaultEmail
	if data.Login != "" {
		email = data.Login + "@yandex.ru"
	}

	picture := ""
	if data.AvatarID != "" && !data.IsAvatarNone {
		picture = "https://avatars.yandex.net/get-yapic/" + data.AvatarID + "/islands-200"
	}

	return &UserInfo{
		ID:        data.ID,
		Email:     email,
		Username:  data.Login,
		FirstName: data.FirstName,
		LastName:  data.LastName,
		Gender:    data.Sex,
		Birthday:  data.Birthday,
		Picture:   picture,
	}, nil
}
