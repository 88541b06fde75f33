package cfg

import "time"

type Cfg struct {
	// Storage
	SourcesDir string
	OutputDir  string
	DBPath     string

	// HTTP surface
	Port         string
	APIAccessKey string

	// Generation
	ScheduleHour         int
	DefaultItemCount     int
	Cooldown             time.Duration
	Settle               time.Duration
	MaxConcurrentFetches int
	HTTPTimeout          time.Duration
	ConverterBin         string
	ConverterTimeout     time.Duration

	// Discussion digest
	HNAPIBase      string
	HNItemCount    int
	HNFetchReplies bool

	// Book metadata
	BookTitle      string
	BookIdentifier string
	BookLanguage   string
	BookAuthor     string

	// Delivery
	SMTPHost     string
	SMTPPort     int
	SMTPUser     string
	SMTPPassword string
	KindleEmail  string

	// Application metadata
	UserAgent string
	Timezone  string
	Debug     bool
	Version   string
}
