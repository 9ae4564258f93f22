// Package webhdfs lists HDFS directories over the WebHDFS REST API.
// WebHDFS has no cache administration surface, so directives come from a
// separate DirectiveService (see backend.Compose).
package webhdfs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"

	"github.com/dl-alexandre/rcache/internal/backend"
	"github.com/dl-alexandre/rcache/internal/logging"
	"github.com/dl-alexandre/rcache/internal/resolver"
	"github.com/dl-alexandre/rcache/internal/types"
)

const apiPrefix = "/webhdfs/v1"

type Config struct {
	// BaseURL is the NameNode HTTP address, e.g. http://nn:9870
	BaseURL string
	// User is sent as user.name for simple authentication
	User string
	// DelegationToken is sent as delegation when set
	DelegationToken string
	HTTPClient      *http.Client
	Logger          logging.Logger
}

type Client struct {
	base   *url.URL
	user   string
	token  string
	http   *http.Client
	logger logging.Logger
}

var _ backend.FileLister = (*Client)(nil)

func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("webhdfs base URL is required")
	}
	base, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid webhdfs base URL: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("invalid webhdfs base URL %q: scheme must be http or https", cfg.BaseURL)
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = http.DefaultClient
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.NewNoOpLogger()
	}
	return &Client{
		base:   base,
		user:   cfg.User,
		token:  cfg.DelegationToken,
		http:   cfg.HTTPClient,
		logger: cfg.Logger,
	}, nil
}

type fileStatus struct {
	PathSuffix string `json:"pathSuffix"`
	Type       string `json:"type"`
	Length     int64  `json:"length"`
}

type listStatusResponse struct {
	FileStatuses struct {
		FileStatus []fileStatus `json:"FileStatus"`
	} `json:"FileStatuses"`
}

type remoteExceptionResponse struct {
	RemoteException struct {
		Exception     string `json:"exception"`
		JavaClassName string `json:"javaClassName"`
		Message       string `json:"message"`
	} `json:"RemoteException"`
}

func (c *Client) endpoint(p, op string) string {
	u := *c.base
	u.Path = strings.TrimSuffix(u.Path, "/") + apiPrefix + p
	q := url.Values{}
	q.Set("op", op)
	if c.user != "" {
		q.Set("user.name", c.user)
	}
	if c.token != "" {
		q.Set("delegation", c.token)
	}
	u.RawQuery = q.Encode()
	return u.String()
}

// ListStatus lists dir with op=LISTSTATUS. For a file WebHDFS returns a
// single status with an empty pathSuffix, which maps to the file itself.
func (c *Client) ListStatus(ctx context.Context, dir string) ([]types.FileEntry, error) {
	clean, err := resolver.Normalize(dir)
	if err != nil {
		return nil, &backend.Error{Op: "listStatus", Path: dir, Err: err}
	}
	dir = clean

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint(dir, "LISTSTATUS"), nil)
	if err != nil {
		return nil, &backend.Error{Op: "listStatus", Path: dir, Err: err}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &backend.Error{Op: "listStatus", Path: dir, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &backend.Error{Op: "listStatus", Path: dir, Err: decodeError(resp)}
	}

	var body listStatusResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, &backend.Error{Op: "listStatus", Path: dir, Err: fmt.Errorf("decoding response: %w", err)}
	}

	entries := make([]types.FileEntry, 0, len(body.FileStatuses.FileStatus))
	for _, st := range body.FileStatuses.FileStatus {
		p := dir
		if st.PathSuffix != "" {
			p = path.Join(dir, st.PathSuffix)
		}
		entries = append(entries, types.FileEntry{
			Path:  p,
			IsDir: st.Type == "DIRECTORY",
			Size:  st.Length,
		})
	}
	c.logger.WithContext(ctx).Debug("Listed directory", logging.F("path", dir), logging.F("entries", len(entries)))
	return entries, nil
}

func decodeError(resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))

	var re remoteExceptionResponse
	if json.Unmarshal(data, &re) == nil && re.RemoteException.Exception != "" {
		detail := fmt.Errorf("%s: %s", re.RemoteException.Exception, re.RemoteException.Message)
		switch re.RemoteException.Exception {
		case "FileNotFoundException":
			return fmt.Errorf("%w: %w", backend.ErrNotFound, detail)
		case "AccessControlException":
			return fmt.Errorf("%w: %w", backend.ErrPermission, detail)
		case "SecurityException", "AuthenticationException", "InvalidToken":
			return fmt.Errorf("%w: %w", backend.ErrUnauthorized, detail)
		}
		return detail
	}

	switch resp.StatusCode {
	case http.StatusNotFound:
		return backend.ErrNotFound
	case http.StatusUnauthorized:
		return backend.ErrUnauthorized
	case http.StatusForbidden:
		return backend.ErrPermission
	}
	return fmt.Errorf("unexpected status %s", resp.Status)
}
