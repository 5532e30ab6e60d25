package ehealth

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/oauth2"

	"github.com/openhealths/ohealth-sub007/internal/models"
)

var ErrNoRefreshToken = errors.New("user has no refresh token")

// AuthClient exchanges a user's refresh token for a fresh eHealth bearer
// token through the OAuth token endpoint.
type AuthClient struct {
	conf *oauth2.Config
}

func NewAuthClient(baseURL, clientID, clientSecret string) *AuthClient {
	return &AuthClient{
		conf: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			Endpoint: oauth2.Endpoint{
				AuthURL:  baseURL + "/oauth/authorize",
				TokenURL: baseURL + "/oauth/tokens",
			},
		},
	}
}

// BearerToken acquires a fresh access token for the given user.
func (a *AuthClient) BearerToken(ctx context.Context, user *models.User) (string, error) {
	if user.RefreshToken == nil || *user.RefreshToken == "" {
		return "", ErrNoRefreshToken
	}

	source := a.conf.TokenSource(ctx, &oauth2.Token{RefreshToken: *user.RefreshToken})
	token, err := source.Token()
	if err != nil {
		return "", fmt.Errorf("failed to acquire token for user %s: %w", user.ID, err)
	}
	return token.AccessToken, nil
}
