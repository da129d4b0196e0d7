package service

import (
	"context"
	"sync"
)

// Credentials is the runtime the Manager authenticates: it holds the current access token and
// attaches it to outgoing gRPC calls as a Bearer authorization header.
type Credentials struct {
	mu    sync.RWMutex
	token string
}

// NewCredentials returns an empty Credentials.
func NewCredentials() *Credentials {
	return &Credentials{}
}

// SetAccessToken replaces the current access token.
func (c *Credentials) SetAccessToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

// Clear drops the access token; later calls go out unauthenticated.
func (c *Credentials) Clear() {
	c.SetAccessToken("")
}

// AccessToken returns the current access token, or "".
func (c *Credentials) AccessToken() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// GetRequestMetadata implements credentials.PerRPCCredentials.
func (c *Credentials) GetRequestMetadata(ctx context.Context, uri ...string) (map[string]string, error) {
	token := c.AccessToken()
	if token == "" {
		return map[string]string{}, nil
	}
	return map[string]string{"authorization": "Bearer " + token}, nil
}

// RequireTransportSecurity implements credentials.PerRPCCredentials. Transport security is the
// deployment's concern.
func (c *Credentials) RequireTransportSecurity() bool {
	return false
}
