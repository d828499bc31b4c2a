package config

const (
	defaultLogDir   = "~/.local/share/scrobble/logs"
	defaultStateDir = "~/.local/share/scrobble/state"

	defaultGeminiBaseURL        = "https://generativelanguage.googleapis.com/v1beta/models"
	defaultGeminiModel          = "gemma-3-27b-it"
	defaultGeminiTimeoutSeconds = 30

	defaultTraktBaseURL        = "https://api.trakt.tv"
	defaultTraktAuthURL        = "https://trakt.tv/oauth/authorize"
	defaultTraktRedirectURI    = "urn:ietf:wg:oauth:2.0:oob"
	defaultTraktTimeoutSeconds = 15

	defaultMinPlaySeconds          = 30
	defaultProgressIntervalSeconds = 120
	defaultConfidenceThreshold     = 80

	defaultNotifyRequestTimeout = 10

	defaultLogFormat = "console"
	defaultLogLevel  = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			LogDir:   defaultLogDir,
			StateDir: defaultStateDir,
		},
		Gemini: Gemini{
			BaseURL:        defaultGeminiBaseURL,
			Model:          defaultGeminiModel,
			TimeoutSeconds: defaultGeminiTimeoutSeconds,
		},
		Trakt: Trakt{
			BaseURL:        defaultTraktBaseURL,
			AuthURL:        defaultTraktAuthURL,
			RedirectURI:    defaultTraktRedirectURI,
			TimeoutSeconds: defaultTraktTimeoutSeconds,
		},
		Detector: Detector{
			MinPlaySeconds:          defaultMinPlaySeconds,
			ProgressIntervalSeconds: defaultProgressIntervalSeconds,
		},
		Session: Session{
			ConfidenceThreshold: defaultConfidenceThreshold,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyRequestTimeout,
			Scrobbles:      true,
			Errors:         true,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}

func (c *Config) normalize() error {
	var err error
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return err
	}
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return err
	}
	if c.Gemini.BaseURL == "" {
		c.Gemini.BaseURL = defaultGeminiBaseURL
	}
	if c.Gemini.Model == "" {
		c.Gemini.Model = defaultGeminiModel
	}
	if c.Gemini.TimeoutSeconds <= 0 {
		c.Gemini.TimeoutSeconds = defaultGeminiTimeoutSeconds
	}
	if c.Trakt.BaseURL == "" {
		c.Trakt.BaseURL = defaultTraktBaseURL
	}
	if c.Trakt.AuthURL == "" {
		c.Trakt.AuthURL = defaultTraktAuthURL
	}
	if c.Trakt.RedirectURI == "" {
		c.Trakt.RedirectURI = defaultTraktRedirectURI
	}
	if c.Trakt.TimeoutSeconds <= 0 {
		c.Trakt.TimeoutSeconds = defaultTraktTimeoutSeconds
	}
	if c.Detector.MinPlaySeconds <= 0 {
		c.Detector.MinPlaySeconds = defaultMinPlaySeconds
	}
	if c.Detector.ProgressIntervalSeconds <= 0 {
		c.Detector.ProgressIntervalSeconds = defaultProgressIntervalSeconds
	}
	if c.Notifications.RequestTimeout <= 0 {
		c.Notifications.RequestTimeout = defaultNotifyRequestTimeout
	}
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	return nil
}
