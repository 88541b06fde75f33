package cfg

import (
	"cmp"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/jessevdk/go-flags"
	"github.com/lysyi3m/news-digest/app/digest"
)

// Version is set at build time via -ldflags
var Version = "dev"

func GetVersion() string {
	return cmp.Or(Version, "unknown")
}

type rawCfg struct {
	// Storage
	SourcesDir string `long:"sources-dir" env:"SOURCES_DIR" default:"./sources" description:"Directory containing feed source configuration files"`
	OutputDir  string `long:"output-dir" env:"OUTPUT_DIR" default:"./output" description:"Directory receiving generated e-books"`
	DBPath     string `long:"db-path" env:"DB_PATH" default:"./data/digest.db" description:"SQLite database file for run history"`

	// HTTP surface
	Port         string `long:"port" env:"PORT" default:"8080" description:"HTTP server port"`
	APIAccessKey string `long:"api-key" env:"API_ACCESS_KEY" description:"API access key guarding generate and send (optional)"`

	// Generation
	ScheduleHour         int    `long:"schedule-hour" env:"SCHEDULE_HOUR" default:"9" description:"Local hour (0-23) of the daily scheduled run"`
	DefaultItemCount     int    `long:"item-count" env:"ITEM_COUNT" default:"5" description:"Articles per section when a request does not say"`
	CooldownSeconds      int    `long:"cooldown" env:"COOLDOWN" default:"5" description:"Seconds a finished state stays visible before returning to idle"`
	SettleSeconds        int    `long:"settle" env:"SETTLE" default:"60" description:"Seconds the scheduler waits after firing"`
	MaxConcurrentFetches int    `long:"max-concurrent-fetches" env:"MAX_CONCURRENT_FETCHES" default:"4" description:"Upper bound on HTTP requests in flight across a run"`
	HTTPTimeoutSeconds   int    `long:"http-timeout" env:"HTTP_TIMEOUT" default:"15" description:"Timeout in seconds for API and image requests"`
	ConverterBin         string `long:"converter-bin" env:"CONVERTER_BIN" default:"ebook-converter" description:"External EPUB to MOBI converter"`
	ConverterTimeout     int    `long:"converter-timeout" env:"CONVERTER_TIMEOUT" default:"300" description:"Seconds the converter may run"`

	// Discussion digest
	HNAPIBase      string `long:"hn-api-base" env:"HN_API_BASE" default:"https://hacker-news.firebaseio.com/v0" description:"Hacker News API base URL"`
	HNItemCount    int    `long:"hn-item-count" env:"HN_ITEM_COUNT" default:"5" description:"Stories in the discussion section"`
	HNFetchReplies bool   `long:"hn-fetch-replies" env:"HN_FETCH_REPLIES" description:"Render nested replies, not only root comments"`

	// Book metadata
	BookTitle      string `long:"book-title" env:"BOOK_TITLE" default:"Daily Digest" description:"Publication title"`
	BookIdentifier string `long:"book-identifier" env:"BOOK_IDENTIFIER" description:"Publication identifier (a fresh UUID per run when empty)"`
	BookLanguage   string `long:"book-language" env:"BOOK_LANGUAGE" default:"en" description:"Publication language"`
	BookAuthor     string `long:"book-author" env:"BOOK_AUTHOR" description:"Publication author"`

	// Delivery
	SMTPHost     string `long:"smtp-server" env:"SMTP_SERVER" description:"SMTP server host"`
	SMTPPort     int    `long:"smtp-port" env:"SMTP_PORT" default:"587" description:"SMTP server port"`
	SMTPUser     string `long:"smtp-user" env:"SMTP_USER" description:"SMTP user, also the sender address"`
	SMTPPassword string `long:"smtp-password" env:"SMTP_PASSWORD" description:"SMTP password"`
	KindleEmail  string `long:"kindle-email" env:"KINDLE_EMAIL" description:"Default delivery address"`

	// Application metadata
	UserAgent string `long:"user-agent" env:"USER_AGENT" default:"Mozilla/5.0 (compatible; NewsDigest/1.0)" description:"User agent string for HTTP requests"`
	Timezone  string `long:"timezone" env:"TZ" default:"UTC" description:"Timezone for the schedule and dates (e.g., UTC, Europe/London)"`
	Debug     bool   `long:"debug" env:"DEBUG" description:"Enable debug logging"`
}

func Load() (*Cfg, error) {
	cfg, err := load(os.Args[1:])
	if err != nil || cfg == nil {
		return cfg, err
	}

	if err := applyTimezone(cfg.Timezone); err != nil {
		slog.Warn("Invalid timezone, using system default", "timezone", cfg.Timezone, "error", err)
	}

	return cfg, nil
}

func load(args []string) (*Cfg, error) {
	var raw rawCfg

	parser := flags.NewParser(&raw, flags.Default)

	if _, err := parser.ParseArgs(args); err != nil {
		var flagsErr *flags.Error
		if errors.As(err, &flagsErr) && flagsErr.Type == flags.ErrHelp {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	if err := validate(&raw); err != nil {
		return nil, err
	}

	return &Cfg{
		SourcesDir:           raw.SourcesDir,
		OutputDir:            raw.OutputDir,
		DBPath:               raw.DBPath,
		Port:                 raw.Port,
		APIAccessKey:         raw.APIAccessKey,
		ScheduleHour:         raw.ScheduleHour,
		DefaultItemCount:     raw.DefaultItemCount,
		Cooldown:             time.Duration(raw.CooldownSeconds) * time.Second,
		Settle:               time.Duration(raw.SettleSeconds) * time.Second,
		MaxConcurrentFetches: raw.MaxConcurrentFetches,
		HTTPTimeout:          time.Duration(raw.HTTPTimeoutSeconds) * time.Second,
		ConverterBin:         raw.ConverterBin,
		ConverterTimeout:     time.Duration(raw.ConverterTimeout) * time.Second,
		HNAPIBase:            raw.HNAPIBase,
		HNItemCount:          raw.HNItemCount,
		HNFetchReplies:       raw.HNFetchReplies,
		BookTitle:            raw.BookTitle,
		BookIdentifier:       raw.BookIdentifier,
		BookLanguage:         raw.BookLanguage,
		BookAuthor:           raw.BookAuthor,
		SMTPHost:             raw.SMTPHost,
		SMTPPort:             raw.SMTPPort,
		SMTPUser:             raw.SMTPUser,
		SMTPPassword:         raw.SMTPPassword,
		KindleEmail:          raw.KindleEmail,
		UserAgent:            raw.UserAgent,
		Timezone:             raw.Timezone,
		Debug:                raw.Debug,
		Version:              GetVersion(),
	}, nil
}

func validate(raw *rawCfg) error {
	switch {
	case raw.ScheduleHour < 0 || raw.ScheduleHour > 23:
		return digest.Errorf(digest.ErrConfig, "load configuration", "schedule hour must be between 0 and 23, got %d", raw.ScheduleHour)
	case raw.DefaultItemCount < 1:
		return digest.Errorf(digest.ErrConfig, "load configuration", "item count must be positive, got %d", raw.DefaultItemCount)
	case raw.HNItemCount < 0:
		return digest.Errorf(digest.ErrConfig, "load configuration", "hn item count must be non-negative, got %d", raw.HNItemCount)
	case raw.MaxConcurrentFetches < 1:
		return digest.Errorf(digest.ErrConfig, "load configuration", "max concurrent fetches must be positive, got %d", raw.MaxConcurrentFetches)
	case raw.CooldownSeconds < 0 || raw.SettleSeconds < 0:
		return digest.Errorf(digest.ErrConfig, "load configuration", "cooldown and settle must be non-negative")
	case raw.HTTPTimeoutSeconds < 1 || raw.ConverterTimeout < 1:
		return digest.Errorf(digest.ErrConfig, "load configuration", "timeouts must be positive")
	}
	return nil
}

func applyTimezone(timezone string) error {
	if timezone != "" {
		loc, err := time.LoadLocation(timezone)
		if err != nil {
			return err
		}
		time.Local = loc
		slog.Info("Timezone configured", "timezone", timezone)
	}
	return nil
}
