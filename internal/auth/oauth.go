package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// ClientCredentials configures an OAuth2 client-credentials grant for
// gateways that front WebHDFS with bearer tokens.
type ClientCredentials struct {
	ClientID     string
	ClientSecret string
	TokenURL     string
	Scopes       []string
}

// Enabled reports whether a client ID is configured
func (c ClientCredentials) Enabled() bool {
	return c.ClientID != ""
}

func (c ClientCredentials) Validate() error {
	if c.ClientID == "" {
		return errors.New("oauth2 client ID is required")
	}
	if c.TokenURL == "" {
		return errors.New("oauth2 token URL is required")
	}
	if c.ClientSecret == "" {
		return fmt.Errorf("oauth2 client secret for %s is not set", c.ClientID)
	}
	return nil
}

// HTTPClient returns a client that attaches bearer tokens obtained with c.
// Both token requests and API requests go through base when it is set.
func (c ClientCredentials) HTTPClient(ctx context.Context, base http.RoundTripper) (*http.Client, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	if base != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, &http.Client{Transport: base})
	}
	cfg := clientcredentials.Config{
		ClientID:     c.ClientID,
		ClientSecret: c.ClientSecret,
		TokenURL:     c.TokenURL,
		Scopes:       c.Scopes,
	}
	return cfg.Client(ctx), nil
}

func isNotFound(err error) bool {
	return errors.Is(err, ErrSecretNotFound)
}
