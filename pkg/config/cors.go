package config

import (
	"fmt"
	"net/url"
	"strings"
)

// CORSConfig holds the single origin allowed to call the API from a browser.
type CORSConfig struct {
	AllowedOrigin string `koanf:"allowedorigin"`
}

// String returns a string representation of the CORS configuration.
func (c *CORSConfig) String() string {
	var b strings.Builder
	b.WriteString("\n--- CORS ---\n")
	b.WriteString(fmt.Sprintf("  allowedOrigin: %s\n", c.AllowedOrigin))
	return b.String()
}

func (c *CORSConfig) Validate() error {
	if c.AllowedOrigin == "" {
		return nil
	}
	u, err := url.Parse(c.AllowedOrigin)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid CORS allowed origin: %q", c.AllowedOrigin)
	}
	return nil
}
