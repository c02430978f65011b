package cfg

type Cfg struct {
	// Upstream feeds
	ForumURL    string
	CalendarURL string

	// Durable state
	ConfigFile  string
	PersistFile string
	DBPath      string

	// Application configuration
	Port         string
	WorkerCount  int
	FetchTimeout int
	APIAccessKey string
	WebhookURL   string
	SourcesFile  string

	// Application metadata
	UserAgent string
	Timezone  string
	Debug     bool
	Version   string
}
