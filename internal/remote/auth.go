package remote

import (
	"context"
	"net/http"

	"go-notes-workspace/internal/model"
	"go-notes-workspace/pkg/apierror"
)

func (c *Client) Login(ctx context.Context, username string, password string) (model.TokenPair, error) {
	pair, err := call[model.TokenPair](ctx, c, http.MethodPost, apiPrefix+"/auth/login", model.LoginRequest{Username: username, Password: password})
	if err != nil {
		return model.TokenPair{}, err
	}

	c.SetTokens(pair.AccessToken, pair.RefreshToken)
	return pair, nil
}

func (c *Client) Register(ctx context.Context, username string, password string) (model.AuthUser, error) {
	return call[model.AuthUser](ctx, c, http.MethodPost, apiPrefix+"/auth/register", model.RegisterRequest{Username: username, Password: password})
}

// Refresh rotates the token pair using the stored refresh token.
func (c *Client) Refresh(ctx context.Context) (model.TokenPair, error) {
	_, refreshToken := c.Tokens()
	if refreshToken == "" {
		return model.TokenPair{}, apierror.New("UNAUTHORIZED", "not logged in", "", http.StatusUnauthorized)
	}

	pair, err := call[model.TokenPair](ctx, c, http.MethodPost, apiPrefix+"/auth/refresh", model.RefreshRequest{RefreshToken: refreshToken})
	if err != nil {
		c.log.Warn("token refresh failed", "error", err)
		return model.TokenPair{}, err
	}

	c.SetTokens(pair.AccessToken, pair.RefreshToken)

	c.mu.RLock()
	onRefresh := c.onRefresh
	c.mu.RUnlock()
	if onRefresh != nil {
		onRefresh(pair)
	}

	return pair, nil
}

func (c *Client) Logout(ctx context.Context) error {
	_, refreshToken := c.Tokens()
	_, err := call[map[string]any](ctx, c, http.MethodPost, apiPrefix+"/auth/logout", model.RefreshRequest{RefreshToken: refreshToken})
	c.SetTokens("", "")
	return err
}

func (c *Client) Me(ctx context.Context) (model.AuthUser, error) {
	return call[model.AuthUser](ctx, c, http.MethodGet, apiPrefix+"/auth/me", nil)
}
