// Package rtc holds the WebRTC settings handed to browsers. Media flows
// peer to peer; the server never terminates it.
package rtc

import (
	"errors"
	"fmt"

	"github.com/pion/stun/v3"
	"github.com/pion/webrtc/v4"
)

const DefaultSTUN = "stun:stun.l.google.com:19302"

type ICEOptions struct {
	URLs       []string
	Username   string
	Credential string
}

// ClientConfig builds the configuration browsers should use for their peer
// connections. Invalid URLs are rejected up front.
func ClientConfig(opts ICEOptions) (webrtc.Configuration, error) {
	urls := opts.URLs
	if len(urls) == 0 {
		urls = []string{DefaultSTUN}
	}
	var stunURLs, turnURLs []string
	for _, raw := range urls {
		u, err := stun.ParseURI(raw)
		if err != nil {
			return webrtc.Configuration{}, fmt.Errorf("ice url %q: %w", raw, err)
		}
		switch u.Scheme {
		case stun.SchemeTypeTURN, stun.SchemeTypeTURNS:
			turnURLs = append(turnURLs, raw)
		default:
			stunURLs = append(stunURLs, raw)
		}
	}

	cfg := webrtc.Configuration{}
	if len(stunURLs) > 0 {
		cfg.ICEServers = append(cfg.ICEServers, webrtc.ICEServer{URLs: stunURLs})
	}
	if len(turnURLs) > 0 {
		if opts.Username == "" {
			return webrtc.Configuration{}, errors.New("turn servers need a username")
		}
		cfg.ICEServers = append(cfg.ICEServers, webrtc.ICEServer{
			URLs:       turnURLs,
			Username:   opts.Username,
			Credential: opts.Credential,
		})
	}
	return cfg, nil
}
