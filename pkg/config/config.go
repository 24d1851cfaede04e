package config

// this holds the resolved configuration values from CLI
//
//nolint:lll // readablity
var (
	DB              string // connection string for the database
	NatsURL         string // URL of the NATS server
	WaitForServices string // duration to wait for other services to be ready
	LogLevel        string // sets the log level (zap log level values)
	LogFormat       string // text vs json
	ProfilesFile    string // path to discipline profiles file (yaml)
	FlushInterval   string // interval for the delay buffer flusher
	SweepInterval   string // interval for the session registry sweeper
	StaleDuration   string // duration after which a session is considered stale
	IngestWorkers   int    // number of workers processing inbound telemetry
	ProfilingPort   int    // port for profiling
	PrintMessage    bool   // if true, the message payload will be print on debug level

	MigrationSourceURL string // url to migration files (empty: use embedded)
)

// Config holds the configuration values which are used by the application
type Config struct {
	PrintMessage bool // if true, the message payload will be print on debug level
}
