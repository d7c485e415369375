package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration required by the relay process.
// All values must come from env (or env-file loaded by the process runner).
// No business logic should depend on raw environment variables.
type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	Auth         AuthConfig
	Storage      StorageConfig
	Media        MediaConfig
	Call         CallConfig
	Connectivity ConnectivityConfig
	Dedup        DedupConfig
	Notify       NotifyConfig
	Twilio       TwilioConfig
}

type AppConfig struct {
	Env  string
	Port int
}

type DBConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string

	// Accepts: disable, require, verify-ca, verify-full
	SSLMode string
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
}

type AuthConfig struct {
	JWTSecret       string
	JWTIssuer       string
	JWTAudience     string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration

	// DeviceToken, when set, is signed in as the current session at startup.
	DeviceToken string

	// AllowedEmails is the upload policy: only these principals may upload.
	AllowedEmails []string
}

type StorageConfig struct {
	Bucket string
	Region string
	// Endpoint overrides the S3 endpoint (MinIO and friends). Optional.
	Endpoint string
	Prefix   string
	URLTTL   time.Duration
}

type MediaConfig struct {
	RecordingsDir string
	IndexPath     string
}

type CallConfig struct {
	PostCallDelay time.Duration
	LookbackSlack time.Duration
}

type ConnectivityConfig struct {
	ProbeInterval time.Duration
}

type DedupConfig struct {
	Durable bool
	TTL     time.Duration
}

type NotifyConfig struct {
	Channel string
}

type TwilioConfig struct {
	AuthToken string
	// PublicURL is the externally visible base URL (scheme://host) Twilio posts to; signatures cover it.
	PublicURL string
}

func Load() (Config, error) {
	c := Config{}
	var parseErrs []error

	c.App.Env = strings.TrimSpace(os.Getenv("APP_ENV"))
	{
		n, err := mustInt("APP_PORT")
		n, parseErrs = appendParseErr(parseErrs, n, err)
		c.App.Port = n
	}

	c.DB.Host = strings.TrimSpace(os.Getenv("DB_HOST"))
	{
		n, err := mustInt("DB_PORT")
		n, parseErrs = appendParseErr(parseErrs, n, err)
		c.DB.Port = n
	}
	c.DB.User = strings.TrimSpace(os.Getenv("DB_USER"))
	c.DB.Password = os.Getenv("DB_PASSWORD")
	c.DB.Name = strings.TrimSpace(os.Getenv("DB_NAME"))
	c.DB.SSLMode = strings.TrimSpace(os.Getenv("DB_SSLMODE"))

	c.Redis.Host = strings.TrimSpace(os.Getenv("REDIS_HOST"))
	{
		n, err := mustInt("REDIS_PORT")
		n, parseErrs = appendParseErr(parseErrs, n, err)
		c.Redis.Port = n
	}
	c.Redis.Password = os.Getenv("REDIS_PASSWORD")

	c.Auth.JWTSecret = os.Getenv("JWT_SECRET")
	c.Auth.JWTIssuer = strings.TrimSpace(os.Getenv("JWT_ISSUER"))
	c.Auth.JWTAudience = strings.TrimSpace(os.Getenv("JWT_AUDIENCE"))
	// Duration env vars are optional; defaults applied in Validate().
	c.Auth.AccessTokenTTL = mustDuration("JWT_ACCESS_TTL")
	c.Auth.RefreshTokenTTL = mustDuration("JWT_REFRESH_TTL")
	c.Auth.DeviceToken = strings.TrimSpace(os.Getenv("DEVICE_TOKEN"))
	c.Auth.AllowedEmails = splitList(os.Getenv("UPLOAD_ALLOWED_EMAILS"))

	c.Storage.Bucket = strings.TrimSpace(os.Getenv("STORAGE_BUCKET"))
	c.Storage.Region = strings.TrimSpace(os.Getenv("STORAGE_REGION"))
	c.Storage.Endpoint = strings.TrimSpace(os.Getenv("STORAGE_ENDPOINT"))
	c.Storage.Prefix = strings.TrimSpace(os.Getenv("STORAGE_PREFIX"))
	c.Storage.URLTTL = mustDuration("STORAGE_URL_TTL")

	c.Media.RecordingsDir = strings.TrimSpace(os.Getenv("MEDIA_RECORDINGS_DIR"))
	c.Media.IndexPath = strings.TrimSpace(os.Getenv("MEDIA_INDEX_PATH"))

	c.Call.PostCallDelay = mustDuration("CALL_POST_DELAY")
	c.Call.LookbackSlack = mustDuration("CALL_LOOKBACK_SLACK")

	c.Connectivity.ProbeInterval = mustDuration("CONNECTIVITY_PROBE_INTERVAL")

	{
		b, err := optionalBool("DEDUP_DURABLE", true)
		if err != nil {
			parseErrs = append(parseErrs, err)
		}
		c.Dedup.Durable = b
	}
	c.Dedup.TTL = mustDuration("DEDUP_TTL")

	c.Notify.Channel = strings.TrimSpace(os.Getenv("NOTIFY_CHANNEL"))

	c.Twilio.AuthToken = os.Getenv("TWILIO_AUTH_TOKEN")
	c.Twilio.PublicURL = strings.TrimSpace(os.Getenv("TWILIO_PUBLIC_URL"))

	if err := joinErrors(parseErrs); err != nil {
		return Config{}, err
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Validate checks required values and fills in defaults for optional ones.
func (c *Config) Validate() error {
	var errs []error

	if c.App.Env == "" {
		errs = append(errs, errors.New("APP_ENV is required"))
	} else if !isValidEnv(c.App.Env) {
		errs = append(errs, fmt.Errorf("APP_ENV must be one of local, dev, staging, production, got %q", c.App.Env))
	}
	if c.App.Port <= 0 || c.App.Port > 65535 {
		errs = append(errs, fmt.Errorf("APP_PORT must be a valid port, got %d", c.App.Port))
	}

	if c.DB.Host == "" {
		errs = append(errs, errors.New("DB_HOST is required"))
	}
	if c.DB.Port <= 0 || c.DB.Port > 65535 {
		errs = append(errs, fmt.Errorf("DB_PORT must be a valid port, got %d", c.DB.Port))
	}
	if c.DB.User == "" {
		errs = append(errs, errors.New("DB_USER is required"))
	}
	if c.DB.Name == "" {
		errs = append(errs, errors.New("DB_NAME is required"))
	}
	if c.DB.SSLMode == "" {
		if c.IsProduction() {
			errs = append(errs, errors.New("DB_SSLMODE is required in production"))
		} else {
			c.DB.SSLMode = "disable"
		}
	}
	if c.DB.SSLMode != "" && !isValidSSLMode(c.DB.SSLMode) {
		errs = append(errs, fmt.Errorf("DB_SSLMODE must be one of disable, require, verify-ca, verify-full, got %q", c.DB.SSLMode))
	}

	if c.Redis.Host == "" {
		errs = append(errs, errors.New("REDIS_HOST is required"))
	}
	if c.Redis.Port <= 0 || c.Redis.Port > 65535 {
		errs = append(errs, fmt.Errorf("REDIS_PORT must be a valid port, got %d", c.Redis.Port))
	}

	if c.Auth.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	}
	if c.IsProduction() {
		if c.Auth.JWTIssuer == "" {
			errs = append(errs, errors.New("JWT_ISSUER is required in production"))
		}
		if c.Auth.JWTAudience == "" {
			errs = append(errs, errors.New("JWT_AUDIENCE is required in production"))
		}
	}
	if c.Auth.AccessTokenTTL <= 0 {
		// Device sessions outlive a single call; keep access tokens day-scoped.
		c.Auth.AccessTokenTTL = 24 * time.Hour
	}
	if c.Auth.RefreshTokenTTL <= 0 {
		c.Auth.RefreshTokenTTL = 30 * 24 * time.Hour
	}
	if c.Auth.RefreshTokenTTL <= c.Auth.AccessTokenTTL {
		errs = append(errs, errors.New("JWT_REFRESH_TTL must be greater than JWT_ACCESS_TTL"))
	}
	if len(c.Auth.AllowedEmails) == 0 {
		errs = append(errs, errors.New("UPLOAD_ALLOWED_EMAILS is required"))
	}

	if c.Storage.Bucket == "" {
		errs = append(errs, errors.New("STORAGE_BUCKET is required"))
	}
	if c.Storage.Prefix == "" {
		c.Storage.Prefix = "uploads"
	}
	if c.Storage.URLTTL <= 0 {
		// SigV4 presigned URLs cap out at 7 days.
		c.Storage.URLTTL = 7 * 24 * time.Hour
	}
	if c.Storage.URLTTL > 7*24*time.Hour {
		errs = append(errs, fmt.Errorf("STORAGE_URL_TTL must be at most 168h, got %s", c.Storage.URLTTL))
	}

	if c.Media.RecordingsDir == "" {
		errs = append(errs, errors.New("MEDIA_RECORDINGS_DIR is required"))
	}
	if c.Media.IndexPath == "" {
		c.Media.IndexPath = "media.db"
	}

	if c.Call.PostCallDelay <= 0 {
		c.Call.PostCallDelay = 2 * time.Second
	}
	if c.Call.LookbackSlack <= 0 {
		c.Call.LookbackSlack = 10 * time.Second
	}

	if c.Connectivity.ProbeInterval <= 0 {
		c.Connectivity.ProbeInterval = 15 * time.Second
	}

	if c.Dedup.TTL <= 0 {
		c.Dedup.TTL = 30 * 24 * time.Hour
	}

	if c.Notify.Channel == "" {
		c.Notify.Channel = "relay:notifications"
	}

	if c.Twilio.AuthToken != "" && c.Twilio.PublicURL == "" {
		errs = append(errs, errors.New("TWILIO_PUBLIC_URL is required when TWILIO_AUTH_TOKEN is set"))
	}

	return joinErrors(errs)
}

func (c Config) IsProduction() bool {
	return c.App.Env == "production"
}

func (c Config) HTTPAddr() string {
	return fmt.Sprintf(":%d", c.App.Port)
}

func (c Config) PostgresDSN() string {
	// Avoid logging this string; it contains secrets.
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.DB.Host,
		c.DB.Port,
		c.DB.User,
		c.DB.Password,
		c.DB.Name,
		c.DB.SSLMode,
	)
}

func (c Config) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Redis.Host, c.Redis.Port)
}

func mustInt(key string) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return 0, fmt.Errorf("%s is required", key)
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer, got %q", key, v)
	}
	return n, nil
}

func mustDuration(key string) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return 0
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0
	}
	return d
}

func optionalBool(key string, def bool) (bool, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def, fmt.Errorf("%s must be a boolean, got %q", key, v)
	}
	return b, nil
}

func splitList(raw string) []string {
	var out []string
	for _, p := range strings.Split(raw, ",") {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func appendParseErr(errs []error, n int, err error) (int, []error) {
	if err != nil {
		errs = append(errs, err)
	}
	return n, errs
}

func isValidEnv(v string) bool {
	switch v {
	case "local", "dev", "staging", "production":
		return true
	default:
		return false
	}
}

func isValidSSLMode(v string) bool {
	switch v {
	case "disable", "require", "verify-ca", "verify-full":
		return true
	default:
		return false
	}
}

func joinErrors(errs []error) error {
	if len(errs) == 0 {
		return nil
	}
	if len(errs) == 1 {
		return errs[0]
	}
	var b strings.Builder
	b.WriteString("config errors:\n")
	for _, e := range errs {
		b.WriteString("- ")
		b.WriteString(e.Error())
		b.WriteString("\n")
	}
	return errors.New(strings.TrimSpace(b.String()))
}
