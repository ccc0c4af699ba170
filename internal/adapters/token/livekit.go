// Package token mints LiveKit-compatible access tokens: HS256 JWTs whose
// "video" claim carries the room grant.
package token

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dkeye/Mic/internal/domain"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var ErrNoCredentials = errors.New("token: api key and secret are required")

type VideoGrant struct {
	Room           string `json:"room,omitempty"`
	RoomJoin       bool   `json:"roomJoin,omitempty"`
	CanPublish     *bool  `json:"canPublish,omitempty"`
	CanSubscribe   *bool  `json:"canSubscribe,omitempty"`
	CanPublishData *bool  `json:"canPublishData,omitempty"`
}

type Claims struct {
	jwt.RegisteredClaims
	Name  string      `json:"name,omitempty"`
	Video *VideoGrant `json:"video,omitempty"`
}

// Grant is one token request.
type Grant struct {
	Room       domain.RoomID
	Identity   string
	Name       string
	TTL        time.Duration
	CanPublish bool
}

type Issuer struct {
	apiKey string
	secret []byte
	now    func() time.Time
}

func NewIssuer(apiKey, apiSecret string) (*Issuer, error) {
	if apiKey == "" || apiSecret == "" {
		return nil, ErrNoCredentials
	}
	return &Issuer{apiKey: apiKey, secret: []byte(apiSecret), now: time.Now}, nil
}

// Issue mints a publisher token for the floor holder.
func (i *Issuer) Issue(ctx context.Context, room domain.RoomID, identity string, ttl time.Duration) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return i.Sign(Grant{Room: room, Identity: identity, TTL: ttl, CanPublish: true})
}

func (i *Issuer) Sign(g Grant) (string, error) {
	if g.Identity == "" {
		return "", errors.New("token: identity is required")
	}
	now := i.now()
	yes := true
	publish := g.CanPublish
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    i.apiKey,
			Subject:   g.Identity,
			ID:        uuid.NewString(),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(g.TTL)),
		},
		Name: g.Name,
		Video: &VideoGrant{
			Room:           string(g.Room),
			RoomJoin:       true,
			CanPublish:     &publish,
			CanSubscribe:   &yes,
			CanPublishData: &yes,
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Parse verifies a token minted with the same credentials.
func (i *Issuer) Parse(tokenStr string) (*Claims, error) {
	var claims Claims
	_, err := jwt.ParseWithClaims(tokenStr, &claims, func(*jwt.Token) (interface{}, error) {
		return i.secret, nil
	},
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithIssuer(i.apiKey),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil {
		return nil, fmt.Errorf("token verification failed: %w", err)
	}
	return &claims, nil
}
