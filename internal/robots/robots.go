// Package robots answers whether a URL may be fetched under the target
// host's robots.txt policy. Results are cached per scheme://host for the
// process lifetime.
package robots

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"

	"github.com/temoto/robotstxt"
)

const maxRobotsBody = 512 * 1024

// Checker fetches and caches robots.txt groups. Fetch failures are treated
// as permission: a feed must not go dark because its robots.txt is down.
type Checker struct {
	client    *http.Client
	userAgent string

	mu     sync.RWMutex
	groups map[string]*robotstxt.Group
}

func NewChecker(client *http.Client, userAgent string) *Checker {
	return &Checker{
		client:    client,
		userAgent: userAgent,
		groups:    make(map[string]*robotstxt.Group),
	}
}

// Allowed reports whether the target URL may be fetched by this user agent.
func (c *Checker) Allowed(ctx context.Context, target *url.URL) bool {
	group := c.group(ctx, target.Scheme, target.Host)
	if group == nil {
		return true
	}
	path := target.Path
	if path == "" {
		path = "/"
	}
	return group.Test(path)
}

func (c *Checker) group(ctx context.Context, scheme, host string) *robotstxt.Group {
	key := scheme + "://" + host

	c.mu.RLock()
	group, ok := c.groups[key]
	c.mu.RUnlock()
	if ok {
		return group
	}

	group = c.fetchGroup(ctx, key)

	c.mu.Lock()
	c.groups[key] = group
	c.mu.Unlock()
	return group
}

func (c *Checker) fetchGroup(ctx context.Context, base string) *robotstxt.Group {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s/robots.txt", base), nil)
	if err != nil {
		return nil
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxRobotsBody))
	if err != nil {
		return nil
	}

	data, err := robotstxt.FromStatusAndBytes(resp.StatusCode, body)
	if err != nil {
		return nil
	}
	return data.FindGroup(c.userAgent)
}
