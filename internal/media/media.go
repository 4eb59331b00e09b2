package media

import (
	"context"
	"errors"
)

// ErrNotConfigured is returned when no media provider is set up.
var ErrNotConfigured = errors.New("media provider not configured")

// JoinInfo contains what a client needs to join a media session.
type JoinInfo struct {
	URL       string `json:"url"`
	Token     string `json:"token"`
	RoomName  string `json:"roomName"`
	Identity  string `json:"identity"`
	ExpiresAt int64  `json:"expiresAt"`
}

// Provider issues short-lived credentials for the external media service.
// The channel id agreed during call signaling is the rendezvous key.
type Provider interface {
	JoinInfo(ctx context.Context, channelID, identity, name string) (*JoinInfo, error)
}

// Disabled is a Provider that always fails with ErrNotConfigured.
type Disabled struct{}

// JoinInfo implements Provider.
func (Disabled) JoinInfo(context.Context, string, string, string) (*JoinInfo, error) {
	return nil, ErrNotConfigured
}
