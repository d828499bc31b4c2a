package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateGemini(); err != nil {
		return err
	}
	if err := c.validateTrakt(); err != nil {
		return err
	}
	if err := c.validateSession(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		return errors.New("paths.log_dir must be set")
	}
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		return errors.New("paths.state_dir must be set")
	}
	return nil
}

func (c *Config) validateGemini() error {
	if _, err := url.Parse(c.Gemini.BaseURL); err != nil {
		return fmt.Errorf("gemini.base_url is not a valid URL: %w", err)
	}
	return nil
}

func (c *Config) validateTrakt() error {
	for name, value := range map[string]string{
		"trakt.base_url": c.Trakt.BaseURL,
		"trakt.auth_url": c.Trakt.AuthURL,
	} {
		parsed, err := url.Parse(value)
		if err != nil || parsed.Scheme == "" {
			return fmt.Errorf("%s is not a valid URL", name)
		}
	}
	return nil
}

func (c *Config) validateSession() error {
	if c.Session.ConfidenceThreshold < 0 || c.Session.ConfidenceThreshold > 100 {
		return errors.New("session.confidence_threshold must be between 0 and 100")
	}
	return nil
}
