// Package video provisions video-conference rooms for virtual classes.
package video

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/yigit/formatrack/internal/pkg/retry"
)

// Providers
const (
	ProviderNone  = "none"
	ProviderDaily = "daily"
)

// ErrInvalidResponse is returned when the provider answers without a room
var ErrInvalidResponse = errors.New("video provider returned an unexpected response")

// Room is a provisioned room
type Room struct {
	Name      string
	URL       string
	ExpiresAt *time.Time
}

// Provider creates and deletes rooms
type Provider interface {
	Name() string
	CreateRoom(ctx context.Context, name string) (Room, error)
	DeleteRoom(ctx context.Context, name string) error
}

// Config holds configuration for the video provider
type Config struct {
	Provider      string
	APIBaseURL    string
	APIKey        string
	RoomExpiry    time.Duration
	PublicBaseURL string
}

// NewProvider builds the configured provider
func NewProvider(cfg Config, retryCfg retry.Config, logger zerolog.Logger) (Provider, error) {
	switch strings.ToLower(cfg.Provider) {
	case ProviderNone, "":
		return NewInternalProvider(cfg.PublicBaseURL), nil
	case ProviderDaily:
		return NewDailyProvider(cfg, retryCfg, logger), nil
	default:
		return nil, fmt.Errorf("unknown video provider %q", cfg.Provider)
	}
}

// InternalProvider serves rooms from this deployment; nothing is provisioned remotely
type InternalProvider struct {
	publicBaseURL string
}

// NewInternalProvider creates a provider that links to {publicBaseURL}/rooms/{name}
func NewInternalProvider(publicBaseURL string) *InternalProvider {
	return &InternalProvider{publicBaseURL: strings.TrimRight(publicBaseURL, "/")}
}

// Name returns "none"
func (p *InternalProvider) Name() string { return ProviderNone }

// CreateRoom returns the internal room URL
func (p *InternalProvider) CreateRoom(ctx context.Context, name string) (Room, error) {
	return Room{
		Name: name,
		URL:  p.publicBaseURL + "/rooms/" + url.PathEscape(name),
	}, nil
}

// DeleteRoom is a no-op
func (p *InternalProvider) DeleteRoom(ctx context.Context, name string) error {
	return nil
}
