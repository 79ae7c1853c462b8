package video

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/tidwall/gjson"
	"github.com/yigit/formatrack/internal/pkg/metrics"
	"github.com/yigit/formatrack/internal/pkg/retry"
)

// DailyProvider provisions rooms through the Daily REST API
type DailyProvider struct {
	baseURL    string
	apiKey     string
	expiry     time.Duration
	httpClient *http.Client
	retry      retry.Config
	logger     zerolog.Logger
}

// NewDailyProvider creates a Daily client
func NewDailyProvider(cfg Config, retryCfg retry.Config, logger zerolog.Logger) *DailyProvider {
	return &DailyProvider{
		baseURL:    strings.TrimRight(cfg.APIBaseURL, "/"),
		apiKey:     cfg.APIKey,
		expiry:     cfg.RoomExpiry,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		retry:      retryCfg,
		logger:     logger,
	}
}

// Name returns "daily"
func (p *DailyProvider) Name() string { return ProviderDaily }

type createRoomRequest struct {
	Name       string         `json:"name"`
	Privacy    string         `json:"privacy"`
	Properties roomProperties `json:"properties"`
}

type roomProperties struct {
	Exp int64 `json:"exp,omitempty"`
}

// CreateRoom provisions a private room named name
func (p *DailyProvider) CreateRoom(ctx context.Context, name string) (Room, error) {
	reqBody := createRoomRequest{Name: name, Privacy: "private"}
	var expiresAt *time.Time
	if p.expiry > 0 {
		exp := time.Now().Add(p.expiry).UTC().Truncate(time.Second)
		expiresAt = &exp
		reqBody.Properties.Exp = exp.Unix()
	}
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return Room{}, fmt.Errorf("error encoding room request: %w", err)
	}

	body, err := retry.DoValue(ctx, p.retryConfig("video.create_room"), func(ctx context.Context) ([]byte, error) {
		return p.do(ctx, http.MethodPost, p.baseURL+"/rooms", payload)
	})
	if err != nil {
		return Room{}, err
	}

	res := gjson.ParseBytes(body)
	room := Room{
		Name:      res.Get("name").String(),
		URL:       res.Get("url").String(),
		ExpiresAt: expiresAt,
	}
	if room.Name == "" || room.URL == "" {
		return Room{}, fmt.Errorf("%w: %s", ErrInvalidResponse, truncate(body))
	}
	if exp := res.Get("config.exp"); exp.Exists() {
		t := time.Unix(exp.Int(), 0).UTC()
		room.ExpiresAt = &t
	}

	p.logger.Info().Str("room", room.Name).Msg("Video room created")
	return room, nil
}

// DeleteRoom removes the room; a room that no longer exists is not an error
func (p *DailyProvider) DeleteRoom(ctx context.Context, name string) error {
	_, err := retry.DoValue(ctx, p.retryConfig("video.delete_room"), func(ctx context.Context) ([]byte, error) {
		body, err := p.do(ctx, http.MethodDelete, p.baseURL+"/rooms/"+url.PathEscape(name), nil)
		var se *statusError
		if errors.As(err, &se) && se.code == http.StatusNotFound {
			return nil, nil
		}
		return body, err
	})
	return err
}

func (p *DailyProvider) retryConfig(operation string) retry.Config {
	cfg := p.retry.WithExtraPatterns("internal server error")
	cfg.OnRetry = func(attempt int, err error, delay time.Duration) {
		metrics.RecordRetry(operation)
		p.logger.Warn().
			Err(err).
			Str("operation", operation).
			Int("attempt", attempt).
			Dur("delay", delay).
			Msg("Retrying video provider call")
	}
	return cfg
}

type statusError struct {
	code int
	body string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("video provider returned %d %s: %s", e.code, http.StatusText(e.code), e.body)
}

func (p *DailyProvider) do(ctx context.Context, method, endpoint string, payload []byte) ([]byte, error) {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return nil, retry.Permanent(fmt.Errorf("error building request: %w", err))
	}
	req.Header.Set("Authorization", "Bearer "+p.apiKey)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("video provider network error: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("video provider network error reading body: %w", err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		se := &statusError{code: resp.StatusCode, body: truncate(body)}
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= http.StatusInternalServerError {
			return nil, se
		}
		return nil, retry.Permanent(se)
	}
	return body, nil
}

func truncate(b []byte) string {
	const max = 200
	if len(b) > max {
		return string(b[:max]) + "..."
	}
	return string(b)
}
