package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/IgorGrieder/encurtador-live/pkg/httpclient"
	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/github"
)

const DefaultGitHubAPI = "https://api.github.com"

type GitHubConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
}

// ProfileFetcher loads the identity behind an OAuth access token.
type ProfileFetcher interface {
	FetchProfile(ctx context.Context, accessToken string) (*Identity, error)
}

// GitHubOAuth runs the authorization code flow and records the resulting
// identity under a fresh session id.
type GitHubOAuth struct {
	oauth    *oauth2.Config
	profiles ProfileFetcher
	store    IdentityStore
	sessions *SessionManager
}

func NewGitHubOAuth(cfg GitHubConfig, profiles ProfileFetcher, store IdentityStore, sessions *SessionManager) *GitHubOAuth {
	return &GitHubOAuth{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Endpoint:     github.Endpoint,
			Scopes:       []string{"read:user"},
		},
		profiles: profiles,
		store:    store,
		sessions: sessions,
	}
}

// WithEndpoint overrides the authorization server, used against test servers.
func (g *GitHubOAuth) WithEndpoint(endpoint oauth2.Endpoint) *GitHubOAuth {
	g.oauth.Endpoint = endpoint
	return g
}

func (g *GitHubOAuth) Sessions() *SessionManager {
	return g.sessions
}

func (g *GitHubOAuth) AuthCodeURL(state string) string {
	return g.oauth.AuthCodeURL(state)
}

// Complete exchanges code for a token, fetches the profile and stores it.
// It returns the new session id.
func (g *GitHubOAuth) Complete(ctx context.Context, code string) (string, *Identity, error) {
	if strings.TrimSpace(code) == "" {
		return "", nil, fmt.Errorf("%w: missing code", ErrInvalidState)
	}

	token, err := g.oauth.Exchange(ctx, code)
	if err != nil {
		return "", nil, fmt.Errorf("exchange oauth code: %w", err)
	}

	identity, err := g.profiles.FetchProfile(ctx, token.AccessToken)
	if err != nil {
		return "", nil, err
	}

	sessionID := uuid.NewString()
	if err := g.store.SaveIdentity(ctx, sessionID, *identity, g.sessions.TTL()); err != nil {
		return "", nil, fmt.Errorf("save identity: %w", err)
	}

	return sessionID, identity, nil
}

// NewState returns a random value for the oauth state parameter.
func NewState() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

type githubProfile struct {
	Login     string `json:"login"`
	HTMLURL   string `json:"html_url"`
	AvatarURL string `json:"avatar_url"`
}

// GitHubProfileClient calls GET /user on the GitHub REST API.
type GitHubProfileClient struct {
	http    *httpclient.Client
	baseURL string
}

func NewGitHubProfileClient(client *httpclient.Client, baseURL string) *GitHubProfileClient {
	if baseURL == "" {
		baseURL = DefaultGitHubAPI
	}
	return &GitHubProfileClient{http: client, baseURL: strings.TrimRight(baseURL, "/")}
}

func (c *GitHubProfileClient) FetchProfile(ctx context.Context, accessToken string) (*Identity, error) {
	resp, err := c.http.Get(ctx, c.baseURL+"/user", nil, map[string]string{
		"Authorization": "Bearer " + accessToken,
		"Accept":        "application/vnd.github+json",
	})
	if err != nil {
		return nil, fmt.Errorf("fetch github profile: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch github profile: unexpected status %s", resp.Status)
	}

	var profile githubProfile
	if err := json.NewDecoder(resp.Body).Decode(&profile); err != nil {
		return nil, fmt.Errorf("decode github profile: %w", err)
	}
	if profile.Login == "" {
		return nil, errors.New("github profile has no login")
	}

	return &Identity{
		Login:      profile.Login,
		ProfileURL: profile.HTMLURL,
		AvatarURL:  profile.AvatarURL,
	}, nil
}
