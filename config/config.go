package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
)

const (
	EnvDevelopment = "dev"
	EnvProduction  = "prod"

	StoreMongo  = "mongo"
	StoreMemory = "memory"

	MediaR2  = "r2"
	MediaGCS = "gcs"
)

const (
	defaultListenAddr      = ":8000"
	defaultLogLevel        = "info"
	defaultDatabaseName    = "videotube"
	defaultAccessTokenTTL  = 15 * time.Minute
	defaultRefreshTokenTTL = 10 * 24 * time.Hour
	defaultTempDir         = "./public/temp"
	defaultMaxUploadMB     = 10
	defaultMaxBodyKB       = 16
	defaultMediaFolder     = "videotube"
	defaultRateLimitRPS    = 5
	defaultRateLimitBurst  = 10
)

type R2 struct {
	Bucket          string
	AccessKeyID     string
	SecretAccessKey string
	// https://<account-id>.r2.cloudflarestorage.com
	Endpoint string
	// Public host objects are served from, e.g. https://pub-xxx.r2.dev
	PublicDomain string
}

type GCS struct {
	Bucket          string
	CredentialsFile string
}

// Media holds the upload provider credentials. It is built once at startup
// and handed to the storage package; nothing reads these from the env later.
type Media struct {
	Provider string
	Folder   string
	R2       R2
	GCS      GCS
}

type Config struct {
	Environment string
	LogLevel    string
	ListenAddr  string

	StoreDriver  string
	MongoURI     string
	DatabaseName string

	AccessTokenSecret  string
	RefreshTokenSecret string
	AccessTokenTTL     time.Duration
	RefreshTokenTTL    time.Duration

	AllowedOrigins []string
	CookieDomain   string

	// Uploaded files are parked here until the media provider accepts them.
	TempDir           string
	MaxUploadMB       int
	AllowedUploadExts []string
	// JSON and urlencoded request bodies are capped at this size.
	MaxBodyKB int

	RateLimitRPS   int
	RateLimitBurst int
	// Proxies whose X-Forwarded-For is believed when resolving client IPs.
	// Empty trusts none.
	TrustedProxies []string

	Media Media
}

func New() *Config {
	return &Config{
		Environment:     EnvProduction,
		LogLevel:        defaultLogLevel,
		ListenAddr:      defaultListenAddr,
		StoreDriver:     StoreMongo,
		DatabaseName:    defaultDatabaseName,
		AccessTokenTTL:  defaultAccessTokenTTL,
		RefreshTokenTTL: defaultRefreshTokenTTL,
		TempDir:         defaultTempDir,
		MaxUploadMB:     defaultMaxUploadMB,
		AllowedUploadExts: []string{
			".jpg", ".jpeg", ".png", ".webp", ".gif",
		},
		MaxBodyKB:      defaultMaxBodyKB,
		RateLimitRPS:   defaultRateLimitRPS,
		RateLimitBurst: defaultRateLimitBurst,
		Media: Media{
			Provider: MediaR2,
			Folder:   defaultMediaFolder,
		},
	}
}

// Load builds the configuration from defaults, the optional .env file in the
// working directory, the process environment and finally command line flags.
func Load(args []string) (*Config, error) {
	cfg := New()
	if err := cfg.LoadDotEnv(os.Getwd); err != nil {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	cfg.LoadEnv(os.Getenv)
	if err := cfg.ParseFlags(args); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Load variable from '.env' file (should be located at working directory)
func (c *Config) LoadDotEnv(getwd func() (string, error)) error {
	wd, err := getwd()
	if err != nil {
		return err
	}

	envMap, err := godotenv.Read(filepath.Join(wd, ".env"))

	switch {
	case err == nil:
		c.LoadEnv(func(key string) string {
			return envMap[key]
		})
		return nil
	case errors.Is(err, os.ErrNotExist):
		return nil
	default:
		return err
	}
}

func (c *Config) LoadEnv(getenv func(string) string) {
	setString := func(o *string) func(string) {
		return func(value string) {
			if value != "" {
				*o = value
			}
		}
	}
	setDuration := func(o *time.Duration) func(string) {
		return func(value string) {
			if d, err := time.ParseDuration(value); err == nil && d > 0 {
				*o = d
			}
		}
	}
	setInt := func(o *int) func(string) {
		return func(value string) {
			if n, err := strconv.Atoi(value); err == nil && n > 0 {
				*o = n
			}
		}
	}
	setList := func(o *[]string) func(string) {
		return func(value string) {
			if list := splitList(value); len(list) > 0 {
				*o = list
			}
		}
	}

	envMap := map[string]func(string){
		"ENVIRONMENT":             setString(&c.Environment),
		"LOG_LEVEL":               setString(&c.LogLevel),
		"RUN_ADDRESS":             setString(&c.ListenAddr),
		"STORE_DRIVER":            setString(&c.StoreDriver),
		"MONGODB_URI":             setString(&c.MongoURI),
		"DATABASE_NAME":           setString(&c.DatabaseName),
		"ACCESS_TOKEN_SECRET":     setString(&c.AccessTokenSecret),
		"REFRESH_TOKEN_SECRET":    setString(&c.RefreshTokenSecret),
		"ACCESS_TOKEN_EXPIRY":     setDuration(&c.AccessTokenTTL),
		"REFRESH_TOKEN_EXPIRY":    setDuration(&c.RefreshTokenTTL),
		"ALLOWED_ORIGINS":         setList(&c.AllowedOrigins),
		"COOKIE_DOMAIN":           setString(&c.CookieDomain),
		"UPLOAD_TEMP_DIR":         setString(&c.TempDir),
		"MAX_UPLOAD_SIZE_MB":      setInt(&c.MaxUploadMB),
		"ALLOWED_FILE_EXTENSIONS": setList(&c.AllowedUploadExts),
		"MAX_BODY_SIZE_KB":        setInt(&c.MaxBodyKB),
		"RATE_LIMIT_RPS":          setInt(&c.RateLimitRPS),
		"RATE_LIMIT_BURST":        setInt(&c.RateLimitBurst),
		"TRUSTED_PROXIES":         setList(&c.TrustedProxies),
		"MEDIA_PROVIDER":          setString(&c.Media.Provider),
		"MEDIA_FOLDER":            setString(&c.Media.Folder),
		"R2_BUCKET":               setString(&c.Media.R2.Bucket),
		"R2_ACCESS_KEY_ID":        setString(&c.Media.R2.AccessKeyID),
		"R2_SECRET_ACCESS_KEY":    setString(&c.Media.R2.SecretAccessKey),
		"R2_ENDPOINT":             setString(&c.Media.R2.Endpoint),
		"R2_PUBLIC_DOMAIN":        setString(&c.Media.R2.PublicDomain),
		"GCS_BUCKET":              setString(&c.Media.GCS.Bucket),
		"GCS_CREDENTIALS_FILE":    setString(&c.Media.GCS.CredentialsFile),
	}

	for key, parseFn := range envMap {
		parseFn(getenv(key))
	}
}

func (c *Config) ParseFlags(args []string) error {
	fs := pflag.NewFlagSet("videotube", pflag.ContinueOnError)

	fs.StringVarP(&c.ListenAddr, "address", "a", c.ListenAddr, "Server listen address")
	fs.StringVarP(&c.MongoURI, "mongo-uri", "d", c.MongoURI, "MongoDB connection string")
	fs.StringVar(&c.DatabaseName, "database", c.DatabaseName, "MongoDB database name")
	fs.StringVar(&c.StoreDriver, "store", c.StoreDriver, "Store driver (mongo, memory)")
	fs.StringVarP(&c.LogLevel, "log-level", "l", c.LogLevel, "Logging level (debug, info, warn, error)")
	fs.StringVarP(&c.Environment, "environment", "e", c.Environment, "Environment (dev, prod)")
	fs.StringVar(&c.Media.Provider, "media-provider", c.Media.Provider, "Media provider (r2, gcs)")

	return fs.Parse(args)
}

func (c *Config) Validate() error {
	var errs []error

	if c.AccessTokenSecret == "" {
		errs = append(errs, errors.New("ACCESS_TOKEN_SECRET is required"))
	}
	if c.RefreshTokenSecret == "" {
		errs = append(errs, errors.New("REFRESH_TOKEN_SECRET is required"))
	}
	if c.AccessTokenSecret != "" && c.AccessTokenSecret == c.RefreshTokenSecret {
		errs = append(errs, errors.New("access and refresh token secrets must differ"))
	}

	switch c.StoreDriver {
	case StoreMongo:
		if c.MongoURI == "" {
			errs = append(errs, errors.New("MONGODB_URI is required for the mongo store"))
		}
	case StoreMemory:
	default:
		errs = append(errs, fmt.Errorf("unknown store driver %q", c.StoreDriver))
	}

	switch c.Media.Provider {
	case MediaR2:
		r2 := c.Media.R2
		if r2.Bucket == "" || r2.AccessKeyID == "" || r2.SecretAccessKey == "" || r2.Endpoint == "" {
			errs = append(errs, errors.New("missing R2 env vars (R2_BUCKET, R2_ACCESS_KEY_ID, R2_SECRET_ACCESS_KEY, R2_ENDPOINT)"))
		}
	case MediaGCS:
		if c.Media.GCS.Bucket == "" {
			errs = append(errs, errors.New("GCS_BUCKET is required for the gcs media provider"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown media provider %q", c.Media.Provider))
	}

	return errors.Join(errs...)
}

func (c *Config) IsProduction() bool {
	return c.Environment == EnvProduction
}

func splitList(value string) []string {
	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
