package site

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config is read from the environment. See the usage text of the serve
// command for the variables and their defaults.
type Config struct {
	PubAddr string
	APIAddr string
	Debug   bool

	ContentAPIURL  string
	ContentBaseURL string

	ForceStatic           bool
	FallbackEnvVar        string
	FallbackHostFragments []string

	RedirectsFile      string
	ContactDatabaseURL string

	ContentTimeout         time.Duration
	RenderBudget           time.Duration
	BackendConnectTimeout  time.Duration
	BackendHeaderTimeout   time.Duration
	FrontendReadTimeout    time.Duration
	FrontendWriteTimeout   time.Duration
	RedirectReloadInterval time.Duration

	ContactRatePerMinute int
}

// LoadDotEnv loads path into the environment without overriding variables
// that are already set. A missing file is not an error.
func LoadDotEnv(path string) error {
	err := godotenv.Load(path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("loading %s: %w", path, err)
	}
	return nil
}

// LoadConfig reads Config from the environment and reports every malformed
// value at once.
func LoadConfig() (Config, error) {
	var errs []error
	duration := func(key, defaultVal string) time.Duration {
		d, err := getenvDuration(key, defaultVal)
		if err != nil {
			errs = append(errs, err)
		}
		return d
	}

	forceStatic, err := getenvBool("FORCE_STATIC_FALLBACK")
	if err != nil {
		errs = append(errs, err)
	}
	contactRate, err := getenvInt("SITE_CONTACT_RATE", 5)
	if err != nil {
		errs = append(errs, err)
	}

	c := Config{
		PubAddr: getenv("SITE_PUBADDR", ":8080"),
		APIAddr: getenv("SITE_APIADDR", ":8081"),
		Debug:   os.Getenv("SITE_DEBUG") != "",

		ContentAPIURL:  os.Getenv("CONTENT_API_URL"),
		ContentBaseURL: os.Getenv("CONTENT_BASE_URL"),

		ForceStatic:           forceStatic,
		FallbackEnvVar:        "DEPLOYMENT_ENV",
		FallbackHostFragments: getenvList("SITE_FALLBACK_HOST_FRAGMENTS", "vercel.app"),

		RedirectsFile:      os.Getenv("SITE_REDIRECTS_FILE"),
		ContactDatabaseURL: os.Getenv("SITE_CONTACT_DATABASE_URL"),

		ContentTimeout:         duration("SITE_CONTENT_TIMEOUT", "10s"),
		RenderBudget:           duration("SITE_RENDER_BUDGET", "3s"),
		BackendConnectTimeout:  duration("SITE_BACKEND_CONNECT_TIMEOUT", "1s"),
		BackendHeaderTimeout:   duration("SITE_BACKEND_HEADER_TIMEOUT", "20s"),
		FrontendReadTimeout:    duration("SITE_FRONTEND_READ_TIMEOUT", "60s"),
		FrontendWriteTimeout:   duration("SITE_FRONTEND_WRITE_TIMEOUT", "60s"),
		RedirectReloadInterval: duration("SITE_REDIRECT_RELOAD_INTERVAL", "1m"),

		ContactRatePerMinute: contactRate,
	}

	return c, errors.Join(errs...)
}

func getenv(key string, defaultVal string) string {
	if s := os.Getenv(key); s != "" {
		return s
	}
	return defaultVal
}

func getenvDuration(key string, defaultVal string) (time.Duration, error) {
	s := getenv(key, defaultVal)
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}

func getenvInt(key string, defaultVal int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return defaultVal, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

// getenvBool treats unset as false.
func getenvBool(key string) (bool, error) {
	s := os.Getenv(key)
	if s == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		return false, fmt.Errorf("%s: %w", key, err)
	}
	return b, nil
}

func getenvList(key string, defaultVal string) []string {
	var out []string
	for _, part := range strings.Split(getenv(key, defaultVal), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
