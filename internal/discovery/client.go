package discovery

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gatherly-app/gatherly-backend/pkg/db/models"
	"github.com/gatherly-app/gatherly-backend/pkg/logger"
	redispkg "github.com/gatherly-app/gatherly-backend/pkg/redis"
)

const (
	defaultRequestTimeout = 10 * time.Second
	defaultCacheTTL       = 12 * time.Hour

	activityContentType = "application/activity+json"
)

type webfingerResponse struct {
	Subject string `json:"subject"`
	Links   []struct {
		Rel  string `json:"rel"`
		Type string `json:"type"`
		Href string `json:"href"`
	} `json:"links"`
}

type actorDocument struct {
	ID    string `json:"id"`
	Inbox string `json:"inbox"`
}

// Client resolves remote actor identifiers (URIs or name@domain handles) to
// reachable inbox endpoints. Resolution failures are absorbed and logged: one
// unreachable recipient must never abort delivery to its siblings.
type Client struct {
	httpClient *http.Client
	cache      redispkg.InboxCache
	directory  Repository
	logg       *logger.Logger
	timeout    time.Duration
	cacheTTL   time.Duration
	scheme     string
}

// Params wires the discovery client dependencies. Cache and Directory are
// optional; without them every resolution runs the full discovery protocol.
type Params struct {
	Logger     *logger.Logger
	HTTPClient *http.Client
	Cache      redispkg.InboxCache
	Directory  Repository
	Timeout    time.Duration
	CacheTTL   time.Duration
}

// NewClient builds an actor discovery client.
func NewClient(params Params) (*Client, error) {
	if params.Logger == nil {
		return nil, errors.New("logger is required")
	}
	timeout := params.Timeout
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}
	cacheTTL := params.CacheTTL
	if cacheTTL <= 0 {
		cacheTTL = defaultCacheTTL
	}
	httpClient := params.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: timeout}
	}
	return &Client{
		httpClient: httpClient,
		cache:      params.Cache,
		directory:  params.Directory,
		logg:       params.Logger,
		timeout:    timeout,
		cacheTTL:   cacheTTL,
		scheme:     "https",
	}, nil
}

// ResolveInboxURL resolves an actor identifier to its declared inbox URL.
// Returns the empty string when any discovery step yields nothing.
func (c *Client) ResolveInboxURL(ctx context.Context, identifier string) string {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return ""
	}

	if c.cache != nil {
		if inbox, found, err := c.cache.GetInboxURL(ctx, identifier); err == nil && found {
			return inbox
		}
	}

	profileURL := identifier
	if !strings.Contains(identifier, "://") {
		profileURL = c.FetchProfileURL(ctx, identifier)
	}
	if profileURL == "" {
		return ""
	}

	doc, err := c.fetchActorDocument(ctx, profileURL)
	if err != nil || doc.Inbox == "" {
		logCtx := c.logg.WithActor(ctx, identifier)
		c.logg.Warn(logCtx, "actor document fetch yielded no inbox")
		return ""
	}

	if c.cache != nil {
		if err := c.cache.SetInboxURL(ctx, identifier, doc.Inbox, c.cacheTTL); err != nil {
			c.logg.Warn(c.logg.WithActor(ctx, identifier), "caching resolved inbox failed")
		}
	}
	if c.directory != nil {
		entry := &models.ActorDirectoryEntry{
			ActorURI: profileURL,
			InboxURL: doc.Inbox,
		}
		if !strings.Contains(identifier, "://") {
			entry.Handle = identifier
		}
		if err := c.directory.Upsert(ctx, entry); err != nil {
			c.logg.Warn(c.logg.WithActor(ctx, identifier), "recording actor directory entry failed")
		}
	}

	return doc.Inbox
}

// FetchProfileURL runs the webfinger lookup for a name@domain handle and
// returns the self-link href, or the empty string when discovery fails.
func (c *Client) FetchProfileURL(ctx context.Context, handle string) string {
	name, domain, ok := splitHandle(handle)
	if !ok {
		c.logg.Warn(c.logg.WithActor(ctx, handle), "handle is not name@domain shaped")
		return ""
	}

	lookup := url.URL{
		Scheme:   c.scheme,
		Host:     domain,
		Path:     "/.well-known/webfinger",
		RawQuery: url.Values{"resource": []string{fmt.Sprintf("acct:%s@%s", name, domain)}}.Encode(),
	}

	var response webfingerResponse
	if err := c.getJSON(ctx, lookup.String(), "", &response); err != nil {
		logCtx := c.logg.WithActor(ctx, handle)
		c.logg.Warn(c.logg.WithField(logCtx, "error", err.Error()), "webfinger lookup failed")
		return ""
	}

	for _, link := range response.Links {
		if link.Rel == "self" && link.Href != "" {
			return link.Href
		}
	}
	return ""
}

func (c *Client) fetchActorDocument(ctx context.Context, profileURL string) (*actorDocument, error) {
	var doc actorDocument
	if err := c.getJSON(ctx, profileURL, activityContentType, &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

func (c *Client) getJSON(ctx context.Context, rawURL, accept string, out any) error {
	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, rawURL, nil)
	if err != nil {
		return err
	}
	if accept != "" {
		req.Header.Set("Accept", accept)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("unexpected status %d from %s", resp.StatusCode, rawURL)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func splitHandle(handle string) (name, domain string, ok bool) {
	handle = strings.TrimPrefix(strings.TrimSpace(handle), "@")
	parts := strings.SplitN(handle, "@", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", false
	}
	return parts[0], parts[1], true
}
