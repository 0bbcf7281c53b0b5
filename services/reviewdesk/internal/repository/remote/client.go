package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/owaisoptics/reviewdesk/pkg/httpclient"
	"github.com/owaisoptics/reviewdesk/services/reviewdesk/internal/domain"
)

const serviceName = "reviews-api"

// MaxFetchLimit is the largest page the review service will serve.
const MaxFetchLimit = 100

// maxListPages bounds a single ListReviews walk.
const maxListPages = 1000

// Client implements repository.ReviewAPI over HTTP.
type Client struct {
	doer       httpclient.Doer
	baseURL    string
	fetchLimit int
	maxPages   int
}

// NewClient creates a review service client. baseURL has no trailing slash;
// fetchLimit is the page size used when walking the review list.
func NewClient(doer httpclient.Doer, baseURL string, fetchLimit int) *Client {
	if fetchLimit < 1 || fetchLimit > MaxFetchLimit {
		fetchLimit = MaxFetchLimit
	}
	return &Client{
		doer:       doer,
		baseURL:    baseURL,
		fetchLimit: fetchLimit,
		maxPages:   maxListPages,
	}
}

type listResponse struct {
	Reviews []domain.Review `json:"reviews"`
	Total   *int            `json:"total"`
}

// ListReviews fetches every review, page by page. A response that is a bare
// JSON array is taken as the complete list, as is a page longer than the
// requested limit. The walk also ends on a short page, once total is
// reached, when a page brings no new ids, or after maxPages pages.
func (c *Client) ListReviews(ctx context.Context) ([]domain.Review, error) {
	all := []domain.Review{}
	seen := make(map[domain.ReviewID]struct{})
	for page := 1; page <= c.maxPages; page++ {
		q := url.Values{}
		q.Set("page", strconv.Itoa(page))
		q.Set("limit", strconv.Itoa(c.fetchLimit))

		var raw json.RawMessage
		if err := c.do(ctx, http.MethodGet, "/reviews?"+q.Encode(), nil, &raw); err != nil {
			return nil, fmt.Errorf("list reviews page %d: %w", page, err)
		}

		raw = bytes.TrimSpace(raw)
		if len(raw) > 0 && raw[0] == '[' {
			var list []domain.Review
			if err := json.Unmarshal(raw, &list); err != nil {
				return nil, fmt.Errorf("decode review list: %w", err)
			}
			return append(all, list...), nil
		}

		var resp listResponse
		if err := json.Unmarshal(raw, &resp); err != nil {
			return nil, fmt.Errorf("decode review page %d: %w", page, err)
		}

		added := 0
		for _, rv := range resp.Reviews {
			if rv.ID != "" {
				if _, dup := seen[rv.ID]; dup {
					continue
				}
				seen[rv.ID] = struct{}{}
			}
			all = append(all, rv)
			added++
		}

		if len(resp.Reviews) != c.fetchLimit || added == 0 {
			return all, nil
		}
		if resp.Total != nil && len(all) >= *resp.Total {
			return all, nil
		}
	}
	return all, nil
}

// Stats fetches the service-computed summary.
func (c *Client) Stats(ctx context.Context) (domain.Stats, error) {
	var s domain.Stats
	if err := c.do(ctx, http.MethodGet, "/reviews/stats", nil, &s); err != nil {
		return domain.Stats{}, fmt.Errorf("get review stats: %w", err)
	}
	return s, nil
}

// CreateReview posts a new review and returns the stored copy.
func (c *Client) CreateReview(ctx context.Context, sub domain.Submission) (*domain.Review, error) {
	var r domain.Review
	if err := c.do(ctx, http.MethodPost, "/reviews", sub, &r); err != nil {
		return nil, fmt.Errorf("create review: %w", err)
	}
	return &r, nil
}

// UpdateReview replaces the review owned by userID.
func (c *Client) UpdateReview(ctx context.Context, userID string, sub domain.Submission) (*domain.Review, error) {
	var r domain.Review
	if err := c.do(ctx, http.MethodPut, "/reviews/user/"+url.PathEscape(userID), sub, &r); err != nil {
		return nil, fmt.Errorf("update review for user %s: %w", userID, err)
	}
	return &r, nil
}

// LoginURL is where the browser starts the Google sign-in flow.
func (c *Client) LoginURL() string {
	return c.baseURL + "/auth/google"
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.doer.Do(ctx, req)
	if err != nil {
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return httpclient.ParseResponseError(resp, serviceName)
	}
	defer func() { _ = resp.Body.Close() }()

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", serviceName, err)
	}
	return nil
}
