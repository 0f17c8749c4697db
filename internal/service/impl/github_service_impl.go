package impl

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"accountd/internal/domain"
	"accountd/internal/store"
)

const (
	githubAuthorizeURL = "https://github.com/login/oauth/authorize"
	githubTokenURL     = "https://github.com/login/oauth/access_token"
	githubAPIBase      = "https://api.github.com"
	githubScope        = "read:user user:email"

	// maxUsernameAttempts bounds the suffix probe when a provider login
	// collides with existing usernames. Exhaustion fails the whole exchange.
	maxUsernameAttempts = 100
)

type GithubConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string

	// Overridable for tests.
	TokenURL   string
	APIBase    string
	HTTPClient *http.Client
}

type GithubServiceImpl struct {
	store dataStore
	cfg   GithubConfig
	log   *slog.Logger
}

func NewGithubService(st *store.Store, cfg GithubConfig, log *slog.Logger) *GithubServiceImpl {
	if cfg.TokenURL == "" {
		cfg.TokenURL = githubTokenURL
	}
	if cfg.APIBase == "" {
		cfg.APIBase = githubAPIBase
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: 10 * time.Second}
	}
	if log == nil {
		log = slog.Default()
	}
	return &GithubServiceImpl{store: gormStoreAdapter{store: st}, cfg: cfg, log: log}
}

func (g *GithubServiceImpl) AuthorizeURL() string {
	q := url.Values{}
	q.Set("client_id", g.cfg.ClientID)
	q.Set("redirect_uri", g.cfg.RedirectURL)
	q.Set("scope", githubScope)
	return githubAuthorizeURL + "?" + q.Encode()
}

func (g *GithubServiceImpl) Exchange(ctx context.Context, code string) (*domain.User, error) {
	if code == "" {
		return nil, fmt.Errorf("%w: code is required", domain.ErrValidation)
	}
	accessToken, err := g.exchangeCode(ctx, code)
	if err != nil {
		return nil, err
	}
	profile, err := g.fetchProfile(ctx, accessToken)
	if err != nil {
		return nil, err
	}
	return g.findOrCreate(ctx, profile)
}

type githubProfile struct {
	ID        int64  `json:"id"`
	Login     string `json:"login"`
	Email     string `json:"email"`
	AvatarURL string `json:"avatar_url"`
}

func (g *GithubServiceImpl) exchangeCode(ctx context.Context, code string) (string, error) {
	body, err := json.Marshal(map[string]string{
		"client_id":     g.cfg.ClientID,
		"client_secret": g.cfg.ClientSecret,
		"code":          code,
	})
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.cfg.TokenURL, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := g.cfg.HTTPClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: token exchange: %v", domain.ErrUpstream, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return "", fmt.Errorf("%w: token endpoint returned %d", domain.ErrUpstream, resp.StatusCode)
	}

	var payload struct {
		AccessToken      string `json:"access_token"`
		Error            string `json:"error"`
		ErrorDescription string `json:"error_description"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("%w: decoding token response: %v", domain.ErrUpstream, err)
	}
	if payload.Error != "" || payload.AccessToken == "" {
		g.log.Warn("github token exchange rejected", "error", payload.Error, "description", payload.ErrorDescription)
		return "", fmt.Errorf("%w: token exchange rejected", domain.ErrUpstream)
	}
	return payload.AccessToken, nil
}

func (g *GithubServiceImpl) fetchProfile(ctx context.Context, accessToken string) (*githubProfile, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.cfg.APIBase+"/user", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/vnd.github+json")

	resp, err := g.cfg.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: fetching profile: %v", domain.ErrUpstream, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("%w: profile endpoint returned %d", domain.ErrUpstream, resp.StatusCode)
	}

	var p githubProfile
	if err := json.NewDecoder(resp.Body).Decode(&p); err != nil {
		return nil, fmt.Errorf("%w: decoding profile: %v", domain.ErrUpstream, err)
	}
	if p.ID == 0 || p.Login == "" {
		return nil, fmt.Errorf("%w: incomplete profile", domain.ErrUpstream)
	}
	return &p, nil
}

func (g *GithubServiceImpl) findOrCreate(ctx context.Context, p *githubProfile) (*domain.User, error) {
	githubID := strconv.FormatInt(p.ID, 10)
	var user *domain.User
	err := g.store.WithTx(ctx, func(tx storeTx) error {
		existing, err := tx.Users().GetByGithubID(ctx, githubID)
		if err == nil {
			if p.AvatarURL != "" && p.AvatarURL != existing.AvatarURL {
				if err := tx.Users().SetAvatarURL(ctx, existing.ID, p.AvatarURL); err != nil {
					return err
				}
				existing.AvatarURL = p.AvatarURL
			}
			user = existing
			return nil
		}
		if !errors.Is(err, store.ErrRecordNotFound) {
			return err
		}

		username, err := g.freeUsername(ctx, tx, p.Login)
		if err != nil {
			return err
		}
		email := p.Email
		if email == "" {
			// GitHub hides the address when the user opts out of sharing it.
			email = p.Login + "@github.com"
		}
		u := &domain.User{
			Username:  username,
			Email:     email,
			Role:      domain.RoleUser,
			AvatarURL: p.AvatarURL,
			GithubID:  &githubID,
		}
		if err := tx.Users().Create(ctx, u); err != nil {
			return err
		}
		user = u
		return nil
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (g *GithubServiceImpl) freeUsername(ctx context.Context, tx storeTx, login string) (string, error) {
	candidate := login
	for i := 1; i <= maxUsernameAttempts; i++ {
		_, err := tx.Users().GetByUsername(ctx, candidate)
		if errors.Is(err, store.ErrRecordNotFound) {
			return candidate, nil
		}
		if err != nil {
			return "", err
		}
		candidate = fmt.Sprintf("%s%d", login, i)
	}
	return "", fmt.Errorf("%w: no available username for %q", domain.ErrUpstream, login)
}
