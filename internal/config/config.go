// Package config builds the immutable run configuration from the
// environment. Every knob has a default, missing credentials surface
// later as a login failure instead of a startup crash.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

const defaultUserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

type Config struct {
	Email    string
	Password string

	Headless  bool
	Incognito bool
	UserAgent string
	ChromeBin string

	// listing-page lazy-load scrolling during discovery
	MaxScrolls int
	ScrollWait time.Duration

	OutDir      string
	LimitEvents int

	// journal database, a path for embedded sqlite or a libsql url
	JournalDB string

	PerEventMax time.Duration
	PerPageMax  time.Duration
	ReadyMax    time.Duration
	// 0 means no global deadline
	MaxRuntime time.Duration

	// dump the HTML of participant pages the heuristics gave up on
	DebugDumpHTML bool

	Report ReportConfig
}

// ReportConfig configures the optional emailed run summary. The mail
// stays off unless both the SMTP address and a recipient are set.
type ReportConfig struct {
	SMTPAddr string
	From     string
	To       []string
	Username string
	Password string
}

func (r ReportConfig) Enabled() bool {
	return r.SMTPAddr != "" && len(r.To) > 0
}

// FromEnv reads the FLOW_* and scraper tuning variables. Callers load
// .env beforehand if they want file-based configuration.
func FromEnv() Config {
	return Config{
		Email:    strings.TrimSpace(os.Getenv("FLOW_EMAIL")),
		Password: os.Getenv("FLOW_PASS"),

		Headless:  boolEnv("HEADLESS", true),
		Incognito: boolEnv("INCOGNITO", true),
		UserAgent: stringEnv("CHROME_UA", defaultUserAgent),
		ChromeBin: strings.TrimSpace(os.Getenv("CHROME_BIN")),

		MaxScrolls: intEnv("MAX_SCROLLS", 15),
		ScrollWait: secondsEnv("SCROLL_WAIT_S", 3*time.Second),

		OutDir:      stringEnv("OUT_DIR", "./output"),
		LimitEvents: intEnv("LIMIT_EVENTS", 0),

		JournalDB: stringEnv("JOURNAL_DB", "flowscrape.db"),

		PerEventMax: secondsEnv("PER_EVENT_MAX_S", 180*time.Second),
		PerPageMax:  secondsEnv("PER_PAGE_MAX_S", 35*time.Second),
		ReadyMax:    secondsEnv("LIVEVIEW_READY_MAX_S", 12*time.Second),
		MaxRuntime:  minutesEnv("MAX_RUNTIME_MIN", 0),

		DebugDumpHTML: boolEnv("DEBUG_DUMP_HTML", false),

		Report: ReportConfig{
			SMTPAddr: strings.TrimSpace(os.Getenv("REPORT_SMTP_ADDR")),
			From:     strings.TrimSpace(os.Getenv("REPORT_FROM")),
			To:       listEnv("REPORT_TO"),
			Username: strings.TrimSpace(os.Getenv("REPORT_SMTP_USER")),
			Password: os.Getenv("REPORT_SMTP_PASS"),
		},
	}
}

func listEnv(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func stringEnv(key, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}

func boolEnv(key string, fallback bool) bool {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(strings.ToLower(value))
	if err != nil {
		return fallback
	}
	return parsed
}

func intEnv(key string, fallback int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil || parsed < 0 {
		return fallback
	}
	return parsed
}

func secondsEnv(key string, fallback time.Duration) time.Duration {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil || parsed < 0 {
		return fallback
	}
	return time.Duration(parsed * float64(time.Second))
}

func minutesEnv(key string, fallback time.Duration) time.Duration {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil || parsed < 0 {
		return fallback
	}
	return time.Duration(parsed) * time.Minute
}
