package oauth2

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/vk"
)

type vkUsersGetResponse struct {
	Response []struct {
		ID        int64  `json:"id"`
		FirstName string `json:"first_name"`
		LastName  string `json:"last_name"`
		Sex       int    `json:"sex"` // 1 female, 2 male
		Photo100  string `json:"photo_100"`
		Bdate     string `json:"bdate"`
		Domain    string `json:"domain"`
	} `json:"response"`
}

// NewVK builds the VK adapter.  Empty credentials fall back to the
// OAUTH2_VK_* environment variables.
func NewVK(clientId, clientSecret, callbackUrl string) *BaseProvider {
	if clientId == "" {
		clientId = os.Getenv("OAUTH2_VK_CLIENT_ID")
	}
	if clientSecret == "" {
		clientSecret = os.Getenv("OAUTH2_VK_CLIENT_SECRET")
	}
	if callbackUrl == "" {
		callbackUrl = os.Getenv("OAUTH2_VK_CALLBACK_URL")
	}

	config := oauth2.Config{
		ClientID:     clientId,
		ClientSecret: clientSecret,
		RedirectURL:  callbackUrl,
		Scopes:       []string{"email"},
		Endpoint:     vk.Endpoint,
	}

	return newBaseProvider("vk", config, fetchVKUser)
}

func fetchVKUser(ctx context.Context, config *oauth2.Config, token *oauth2.Token) (*UserInfo, error) {
	const apiVersion = "5.131"

	url := fmt.Sprintf(
		"https://api.vk.com/method/users.get?fields=sex,photo_100,bdate,domain&v=%s&access_token=%s",
		apiVersion, token.AccessToken)

	var data vkUsersGetResponse
	if err := fetchJSON(ctx, url, &data); err != nil {
		return nil, err
	}
	if len(data.Response) == 0 {
		return nil, fmt.Errorf("vk users.get returned no users")
	}
	u := data.Response[0]

	// VK delivers the email in the token response, not in users.get
	email, _ := token.Extra("email").(string)

	gender := ""
	switch u.Sex {
	case 1:
		gender = "female"
	case 2:
		gender = "male"
	}

	return &UserInfo{
		ID:        strconv.FormatInt(u.ID, 10),
		Email:     email,
		Username:  u.Domain,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Gender:    gender,
		Birthday:  u.Bdate,
		Picture:   u.Photo100,
	}, nil
}
