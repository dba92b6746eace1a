// Package serviceaccount turns the client email / private key pair from the
// environment into API client options for Google Workspace APIs.
package serviceaccount

import (
	"context"
	"errors"

	"github.com/dvloznov/expense-inbox/internal/config"
	"golang.org/x/oauth2/google"
	"golang.org/x/oauth2/jwt"
	"google.golang.org/api/option"
)

// JWTConfig builds the two-legged OAuth config. subject is the user to
// impersonate through domain-wide delegation, or empty to act as the account itself.
func JWTConfig(sa config.ServiceAccountConfig, subject string, scopes ...string) (*jwt.Config, error) {
	if sa.ClientEmail == "" || sa.PrivateKey == "" {
		return nil, errors.New("serviceaccount: client email and private key are required")
	}
	return &jwt.Config{
		Email:      sa.ClientEmail,
		PrivateKey: []byte(sa.PrivateKey),
		Scopes:     scopes,
		TokenURL:   google.JWTTokenURL,
		Subject:    subject,
	}, nil
}

// ClientOption returns an option that authenticates API calls as the service account.
func ClientOption(ctx context.Context, sa config.ServiceAccountConfig, subject string, scopes ...string) (option.ClientOption, error) {
	conf, err := JWTConfig(sa, subject, scopes...)
	if err != nil {
		return nil, err
	}
	return option.WithTokenSource(conf.TokenSource(ctx)), nil
}
