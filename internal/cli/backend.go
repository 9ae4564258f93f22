package cli

import (
	"context"
	"fmt"
	"net/http"

	"github.com/dl-alexandre/rcache/internal/auth"
	"github.com/dl-alexandre/rcache/internal/backend"
	"github.com/dl-alexandre/rcache/internal/backend/cacheadmin"
	"github.com/dl-alexandre/rcache/internal/backend/local"
	"github.com/dl-alexandre/rcache/internal/backend/webhdfs"
	"github.com/dl-alexandre/rcache/internal/config"
	"github.com/dl-alexandre/rcache/internal/logging"
	"github.com/dl-alexandre/rcache/internal/store"
	"github.com/dl-alexandre/rcache/internal/utils"
)

// configuredBackend builds the backend named by the configuration
func (a *App) configuredBackend(ctx context.Context) (backend.Backend, error) {
	switch a.cfg.Backend {
	case utils.BackendLocal:
		db, err := a.store()
		if err != nil {
			return nil, err
		}
		return local.NewOS(a.cfg.LocalRoot, db), nil
	case utils.BackendWebHDFS:
		files, err := a.webhdfsClient(ctx)
		if err != nil {
			return nil, err
		}
		return backend.Compose(files, a.cacheAdmin()), nil
	default:
		return a.cacheAdmin(), nil
	}
}

func (a *App) cacheAdmin() *cacheadmin.Client {
	return cacheadmin.New(cacheadmin.Config{Binary: a.cfg.HDFSBinary, Logger: a.logger})
}

func (a *App) webhdfsClient(ctx context.Context) (*webhdfs.Client, error) {
	mgr, err := a.authManager()
	if err != nil {
		return nil, err
	}

	token, err := mgr.LookupSecret(a.flags.Profile, utils.SecretDelegationToken)
	if err != nil {
		return nil, fmt.Errorf("reading delegation token: %w", err)
	}

	var transport http.RoundTripper = http.DefaultTransport
	if a.debug != nil {
		transport = a.debug
	}
	httpClient := &http.Client{Transport: transport}

	creds := auth.ClientCredentials{
		ClientID: a.cfg.OAuthClientID,
		TokenURL: a.cfg.OAuthTokenURL,
		Scopes:   a.cfg.OAuthScopes,
	}
	if creds.Enabled() {
		if creds.ClientSecret, err = mgr.Secret(a.flags.Profile, utils.SecretOAuthClientSecret); err != nil {
			return nil, fmt.Errorf("oauth2 client secret for profile %q: %w", a.flags.Profile, err)
		}
		if httpClient, err = creds.HTTPClient(ctx, transport); err != nil {
			return nil, err
		}
		a.logger.Debug("Using OAuth2 client credentials", logging.F("client_id", creds.ClientID))
	}

	return webhdfs.New(webhdfs.Config{
		BaseURL:         a.cfg.WebHDFSURL,
		User:            a.cfg.WebHDFSUser,
		DelegationToken: token,
		HTTPClient:      httpClient,
		Logger:          a.logger,
	})
}

func (a *App) authManager() (*auth.Manager, error) {
	dir, err := config.GetConfigDir()
	if err != nil {
		return nil, err
	}
	mgr := auth.NewManager(dir)
	if warning := mgr.StorageWarning(); warning != "" {
		a.logger.Debug(warning)
	}
	return mgr, nil
}

// store opens the state database once per invocation
func (a *App) store() (*store.DB, error) {
	if a.db != nil {
		return a.db, nil
	}
	db, err := a.openStore()
	if err != nil {
		return nil, err
	}
	a.db = db
	return db, nil
}

func (a *App) configuredStore() (*store.DB, error) {
	path, err := a.cfg.StatePath()
	if err != nil {
		return nil, err
	}
	db, err := store.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening state database %s: %w", path, err)
	}
	return db, nil
}
