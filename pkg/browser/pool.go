// Package browser implements the browser runner (C8, §4.8): it dispatches a
// pre-execution plan's steps against a real browser, evaluates assertions,
// captures artifacts, and runs the runtime selector fallback/learning loop.
package browser

import (
	"fmt"
	"sync"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
)

// Pool holds one long-lived browser process per worker, lazily launched and
// reconnected if it dies (§4.8's resource model). One Pool is shared by
// every Execution a worker process handles.
type Pool struct {
	mu      sync.Mutex
	browser *rod.Browser
	url     string
}

// NewPool returns an empty Pool; the browser process is launched on first
// use, not here.
func NewPool() *Pool {
	return &Pool{}
}

// Acquire returns the worker's shared browser, launching it on first call
// and relaunching it if the previous instance died.
func (p *Pool) Acquire() (*rod.Browser, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.browser != nil {
		if _, err := p.browser.Version(); err == nil {
			return p.browser, nil
		}
		p.browser.Close()
		p.browser = nil
	}

	if p.url == "" {
		url, err := launcher.New().Headless(true).Launch()
		if err != nil {
			return nil, fmt.Errorf("browser: launch: %w", err)
		}
		p.url = url
	}

	b := rod.New().ControlURL(p.url)
	if err := b.Connect(); err != nil {
		return nil, fmt.Errorf("browser: connect: %w", err)
	}
	p.browser = b
	return b, nil
}

// Close shuts down the pooled browser, if any.
func (p *Pool) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.browser == nil {
		return nil
	}
	err := p.browser.Close()
	p.browser = nil
	return err
}
