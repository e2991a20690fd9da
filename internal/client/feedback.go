package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// MaxVotesPerEmail mirrors the server's cap. Only used for the pre-check.
const MaxVotesPerEmail = 4

// ErrVoteLimitReached is what callers show the voter; the server's own
// wording is wrapped in VoteLimitError.
var ErrVoteLimitReached = fmt.Errorf("you have already used all %d of your votes", MaxVotesPerEmail)

type FeatureRequest struct {
	ID          uint      `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Status      string    `json:"status"`
	VotesCount  int       `json:"votes_count"`
	CreatedAt   time.Time `json:"created_at"`
}

type FeatureList struct {
	Requests []FeatureRequest `json:"requests"`
	Voted    []uint           `json:"voted"`
	MaxVotes int              `json:"max_votes"`
}

// ListFeatureRequests lists the board. email is optional and fills Voted.
func (c *Client) ListFeatureRequests(ctx context.Context, status, email string) (*FeatureList, error) {
	q := url.Values{}
	if status != "" {
		q.Set("status", status)
	}
	if email != "" {
		q.Set("email", email)
	}
	path := "/api/feature-requests"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	var out FeatureList
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) CreateFeatureRequest(ctx context.Context, title, description, email string) (*FeatureRequest, error) {
	if strings.TrimSpace(title) == "" {
		return nil, errors.New("title is required")
	}
	body := map[string]string{"title": title, "description": description}
	if email != "" {
		body["email"] = email
	}
	var out FeatureRequest
	if err := c.do(ctx, http.MethodPost, "/api/feature-requests", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) VoteCount(ctx context.Context, email string) (int, error) {
	var out struct {
		Count int `json:"count"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/feature-votes/count?email="+url.QueryEscape(email), nil, &out); err != nil {
		return 0, err
	}
	return out.Count, nil
}

// Vote checks the voter's count first so a capped voter gets an answer
// without a write. The server still decides; its "vote limit" rejection is
// mapped to ErrVoteLimitReached as well.
func (c *Client) Vote(ctx context.Context, requestID uint, email string) (*FeatureRequest, error) {
	n, err := c.VoteCount(ctx, email)
	if err != nil {
		return nil, err
	}
	if n >= MaxVotesPerEmail {
		return nil, ErrVoteLimitReached
	}

	var out FeatureRequest
	err = c.do(ctx, http.MethodPost, fmt.Sprintf("/api/feature-requests/%d/vote", requestID), map[string]string{"email": email}, &out)
	var apiErr *APIError
	if errors.As(err, &apiErr) && strings.Contains(strings.ToLower(apiErr.Message), "vote limit") {
		return nil, fmt.Errorf("%w (%s)", ErrVoteLimitReached, apiErr.Message)
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}
