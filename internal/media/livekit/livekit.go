package livekit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/livekit/protocol/auth"

	"github.com/thorx18/project-management-system/internal/media"
)

// Options configure the LiveKit provider.
type Options struct {
	URL        string
	APIKey     string
	APISecret  string
	RoomPrefix string
	TokenTTL   time.Duration
}

// Provider implements media.Provider with LiveKit access tokens. LiveKit
// creates rooms on demand when the first participant joins, so issuing a
// token is all the server has to do.
type Provider struct {
	opts Options
	now  func() time.Time
}

// New creates a LiveKit provider.
func New(opts Options) (*Provider, error) {
	if opts.APIKey == "" || opts.APISecret == "" {
		return nil, errors.New("livekit api key and secret are required")
	}
	if opts.TokenTTL <= 0 {
		opts.TokenTTL = time.Hour
	}
	return &Provider{opts: opts, now: time.Now}, nil
}

// RoomName maps a signaling channel id to a LiveKit room.
func (p *Provider) RoomName(channelID string) string {
	if p.opts.RoomPrefix == "" {
		return channelID
	}
	return p.opts.RoomPrefix + "-" + channelID
}

// JoinInfo creates join credentials for identity on channelID.
func (p *Provider) JoinInfo(_ context.Context, channelID, identity, name string) (*media.JoinInfo, error) {
	if channelID == "" || identity == "" {
		return nil, errors.New("channel and identity are required")
	}
	roomName := p.RoomName(channelID)

	at := auth.NewAccessToken(p.opts.APIKey, p.opts.APISecret)
	grant := &auth.VideoGrant{
		RoomJoin: true,
		Room:     roomName,
	}
	at.AddGrant(grant).
		SetIdentity(identity).
		SetName(name).
		SetValidFor(p.opts.TokenTTL)

	token, err := at.ToJWT()
	if err != nil {
		return nil, fmt.Errorf("generate token: %w", err)
	}

	return &media.JoinInfo{
		URL:       p.opts.URL,
		Token:     token,
		RoomName:  roomName,
		Identity:  identity,
		ExpiresAt: p.now().Add(p.opts.TokenTTL).Unix(),
	}, nil
}

var _ media.Provider = (*Provider)(nil)
