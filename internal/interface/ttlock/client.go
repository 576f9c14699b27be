package ttlock

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"access-reconcile-service/internal/domain/entity"
	"access-reconcile-service/internal/domain/repository"
	"access-reconcile-service/internal/infrastructure/config"
	"access-reconcile-service/pkg/logger"

	"golang.org/x/oauth2"
)

// Lock API endpoints
const (
	ListKeyPath  = "/v3/lock/listKey"
	ListCardPath = "/v3/identityCard/list"
	ListLockPath = "/v3/lock/list"
)

// EndpointFor returns the list endpoint serving a grant kind
func EndpointFor(kind entity.GrantKind) string {
	if kind == entity.PhysicalCardGrant {
		return ListCardPath
	}
	return ListKeyPath
}

// Succeeded is the single success predicate for lock API responses: an absent,
// null or zero errcode is success, any other value is a provider failure.
func Succeeded(code *int) bool {
	return code == nil || *code == 0
}

type listResponse struct {
	ErrCode     *int            `json:"errcode"`
	ErrMsg      string          `json:"errmsg"`
	Description string          `json:"description"`
	List        json.RawMessage `json:"list"`
}

type lockItem struct {
	LockID    int64  `json:"lockId"`
	LockAlias string `json:"lockAlias"`
	LockName  string `json:"lockName"`
}

// Client calls the TTLock open API
type Client struct {
	baseURL    string
	clientID   string
	groupID    string
	tokens     oauth2.TokenSource
	httpClient *http.Client
	now        func() time.Time
	logger     logger.Logger
}

// NewClient creates a lock API client from an explicit configuration value
func NewClient(cfg config.TTLockConfig, tokens oauth2.TokenSource, logger logger.Logger) *Client {
	return &Client{
		baseURL:    cfg.BaseURL,
		clientID:   cfg.ClientID,
		groupID:    cfg.GroupID,
		tokens:     tokens,
		httpClient: &http.Client{Timeout: cfg.RequestTimeout},
		now:        time.Now,
		logger:     logger,
	}
}

var _ repository.LockAPI = (*Client)(nil)

// SetClock replaces the clock used for the per-request date parameter
func (c *Client) SetClock(now func() time.Time) {
	c.now = now
}

// FetchPage fetches one page of electronic keys or IC cards for a lock
func (c *Client) FetchPage(ctx context.Context, kind entity.GrantKind, lockID int64, pageNo, pageSize int) (*entity.Page, error) {
	endpoint := EndpointFor(kind)
	params := url.Values{}
	params.Set("lockId", strconv.FormatInt(lockID, 10))

	resp, err := c.get(ctx, endpoint, params, pageNo, pageSize)
	if err != nil {
		return nil, err
	}
	if !Succeeded(resp.ErrCode) {
		return nil, providerError(endpoint, lockID, pageNo, resp)
	}

	var items []entity.RawGrant
	if len(resp.List) > 0 && string(resp.List) != "null" {
		if err := json.Unmarshal(resp.List, &items); err != nil {
			return nil, &entity.TransportError{Endpoint: endpoint, Err: fmt.Errorf("failed to decode list: %w", err)}
		}
	}

	return &entity.Page{Number: pageNo, Items: items}, nil
}

// ListLocks pages through the account's locks
func (c *Client) ListLocks(ctx context.Context, pageSize int) ([]entity.Lock, error) {
	var locks []entity.Lock
	for pageNo := 1; ; pageNo++ {
		params := url.Values{}
		if c.groupID != "" {
			params.Set("groupId", c.groupID)
		}

		resp, err := c.get(ctx, ListLockPath, params, pageNo, pageSize)
		if err != nil {
			return nil, err
		}
		if !Succeeded(resp.ErrCode) {
			return nil, providerError(ListLockPath, 0, pageNo, resp)
		}

		var items []lockItem
		if len(resp.List) > 0 && string(resp.List) != "null" {
			if err := json.Unmarshal(resp.List, &items); err != nil {
				return nil, &entity.TransportError{Endpoint: ListLockPath, Err: fmt.Errorf("failed to decode lock list: %w", err)}
			}
		}

		for _, item := range items {
			name := item.LockAlias
			if name == "" {
				name = item.LockName
			}
			locks = append(locks, entity.Lock{ID: item.LockID, Name: name})
		}

		if len(items) == 0 || len(items) < pageSize {
			break
		}
	}

	c.logger.Info("Discovered locks", "count", len(locks))
	return locks, nil
}

// get issues one list request. The date parameter is taken from the clock
// on every call because the provider rejects stale timestamps.
func (c *Client) get(ctx context.Context, endpoint string, params url.Values, pageNo, pageSize int) (*listResponse, error) {
	token, err := c.tokens.Token()
	if err != nil {
		return nil, &entity.TransportError{Endpoint: endpoint, Err: fmt.Errorf("failed to get access token: %w", err)}
	}

	params.Set("clientId", c.clientID)
	params.Set("accessToken", token.AccessToken)
	params.Set("pageNo", strconv.Itoa(pageNo))
	params.Set("pageSize", strconv.Itoa(pageSize))
	params.Set("date", strconv.FormatInt(c.now().UnixMilli(), 10))

	reqURL := fmt.Sprintf("%s%s?%s", c.baseURL, endpoint, params.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, &entity.TransportError{Endpoint: endpoint, Err: fmt.Errorf("failed to create request: %w", err)}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &entity.TransportError{Endpoint: endpoint, Timeout: isTimeout(err), Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return nil, &entity.TransportError{Endpoint: endpoint, Err: fmt.Errorf("HTTP status %d", resp.StatusCode)}
	}

	var body listResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, &entity.TransportError{Endpoint: endpoint, Timeout: isTimeout(err), Err: fmt.Errorf("failed to decode response: %w", err)}
	}

	return &body, nil
}

func providerError(endpoint string, lockID int64, pageNo int, resp *listResponse) *entity.ProviderError {
	msg := resp.ErrMsg
	if msg == "" {
		msg = resp.Description
	}
	return &entity.ProviderError{
		Endpoint: endpoint,
		LockID:   lockID,
		Page:     pageNo,
		Code:     *resp.ErrCode,
		Message:  msg,
	}
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
