package remote

import (
	"context"
	"fmt"
	"net/http"

	"go-notes-workspace/internal/model"
)

func (c *Client) StorageUsage(ctx context.Context) (model.StorageUsage, error) {
	return call[model.StorageUsage](ctx, c, http.MethodGet, apiPrefix+"/storage/usage", nil)
}

func (c *Client) TokenBalance(ctx context.Context) (model.TokenAccount, error) {
	return call[model.TokenAccount](ctx, c, http.MethodGet, apiPrefix+"/tokens/balance", nil)
}

func (c *Client) TokenDailyUsage(ctx context.Context, days int) ([]model.DailyUsage, error) {
	return call[[]model.DailyUsage](ctx, c, http.MethodGet, fmt.Sprintf("%s/tokens/usage?days=%d", apiPrefix, days), nil)
}

func (c *Client) TokenBreakdown(ctx context.Context, days int) ([]model.UsageBreakdown, error) {
	return call[[]model.UsageBreakdown](ctx, c, http.MethodGet, fmt.Sprintf("%s/tokens/breakdown?days=%d", apiPrefix, days), nil)
}

// ConsumeTokens records a consumption event and returns the account after it.
func (c *Client) ConsumeTokens(ctx context.Context, amount int64, feature string) (model.TokenAccount, error) {
	return call[model.TokenAccount](ctx, c, http.MethodPost, apiPrefix+"/tokens/consume", model.ConsumeTokensRequest{Amount: amount, Feature: feature})
}
