package common

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// --------------------------------------------------------------------------
// Defaults
// --------------------------------------------------------------------------

const (
	DefaultPort           = 5555
	DefaultHost           = "127.0.0.1"
	DefaultMaxConnections = 4096
	DefaultConcurrency    = 16
	DefaultValueSize      = 48
	DefaultBatchSize      = 10
	DefaultReportInterval = 1000 * time.Millisecond
)

// --------------------------------------------------------------------------
// Socket configuration structs
// --------------------------------------------------------------------------

// SocketConf holds the kernel buffer sizes of a socket (0 = system default)
type SocketConf struct {
	WriteBufferSize int
	ReadBufferSize  int
}

// TCPConf holds TCP specific socket options
type TCPConf struct {
	TCPNoDelay      bool
	TCPKeepAliveSec int // 0 = disabled
	TCPLingerSec    int // < 0 = system default
}

// TransportConfig describes the endpoint of a server or benchmark plus the socket options
type TransportConfig struct {
	Host string
	Port int
	SocketConf
	TCPConf
}

// Endpoint returns the host:port address of the transport
func (c *TransportConfig) Endpoint() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// DefaultTransportConfig returns the transport defaults used by both programs
func DefaultTransportConfig() TransportConfig {
	return TransportConfig{
		Host: DefaultHost,
		Port: DefaultPort,
		TCPConf: TCPConf{
			TCPNoDelay:   true,
			TCPLingerSec: -1,
		},
	}
}

func (c *TransportConfig) validate() error {
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	if c.Host == "" {
		return fmt.Errorf("host must not be empty")
	}
	return nil
}

// --------------------------------------------------------------------------
// Server configuration struct
// --------------------------------------------------------------------------

// ServerConfig holds all configuration parameters of the skv server
type ServerConfig struct {
	Transport TransportConfig

	// MaxConnections limits the number of simultaneously served clients
	MaxConnections int

	// MetricsEndpoint is the address of the optional HTTP metrics listener (empty = disabled)
	MetricsEndpoint string

	// Logging configuration
	LogLevel string
}

// DefaultServerConfig returns a server configuration with all defaults applied
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Transport:      DefaultTransportConfig(),
		MaxConnections: DefaultMaxConnections,
		LogLevel:       "info",
	}
}

// Validate checks the configuration for values the server can not run with
func (c *ServerConfig) Validate() error {
	if err := c.Transport.validate(); err != nil {
		return err
	}
	if c.MaxConnections <= 0 {
		return fmt.Errorf("max connections must be positive, got %d", c.MaxConnections)
	}
	return validateLogLevel(c.LogLevel)
}

// String returns a formatted string representation of the configuration
func (c *ServerConfig) String() string {
	var sb strings.Builder
	addSection, addField := formatter(&sb)

	addSection("Server")
	addField("Endpoint", c.Transport.Endpoint())
	addField("Max Connections", strconv.Itoa(c.MaxConnections))
	addTransport(addSection, addField, c.Transport)

	addSection("Observability")
	addField("Log Level", c.LogLevel)
	if c.MetricsEndpoint != "" {
		addField("Metrics Endpoint", c.MetricsEndpoint)
	} else {
		addField("Metrics Endpoint", "disabled")
	}

	return sb.String()
}

// --------------------------------------------------------------------------
// Benchmark configuration struct
// --------------------------------------------------------------------------

// BenchConfig holds all configuration parameters of the benchmark harness
type BenchConfig struct {
	Transport TransportConfig

	// PID of the benchmarked server, only used for diagnostics
	PID int

	Concurrency    int           // number of connections
	ValueSize      int           // size of every value in bytes
	BatchSize      int           // messages kept in flight per connection
	ReportInterval time.Duration // time between two report lines
	Count          int           // messages to send before exiting (0 = unlimited)

	// CSVPath is the optional file the report lines are mirrored to
	CSVPath string

	// Logging configuration
	LogLevel string
}

// DefaultBenchConfig returns a benchmark configuration with all defaults applied
func DefaultBenchConfig() BenchConfig {
	return BenchConfig{
		Transport:      DefaultTransportConfig(),
		Concurrency:    DefaultConcurrency,
		ValueSize:      DefaultValueSize,
		BatchSize:      DefaultBatchSize,
		ReportInterval: DefaultReportInterval,
		LogLevel:       "info",
	}
}

// Validate checks the configuration for values the benchmark can not run with
func (c *BenchConfig) Validate() error {
	if err := c.Transport.validate(); err != nil {
		return err
	}
	if c.Concurrency <= 0 {
		return fmt.Errorf("concurrency must be positive, got %d", c.Concurrency)
	}
	if c.ValueSize <= 0 {
		return fmt.Errorf("value size must be positive, got %d", c.ValueSize)
	}
	if c.BatchSize <= 0 {
		return fmt.Errorf("batch size must be positive, got %d", c.BatchSize)
	}
	if c.ReportInterval <= 0 {
		return fmt.Errorf("report interval must be positive, got %s", c.ReportInterval)
	}
	if c.Count < 0 {
		return fmt.Errorf("count must not be negative, got %d", c.Count)
	}
	return validateLogLevel(c.LogLevel)
}

// String returns a formatted string representation of the configuration
func (c *BenchConfig) String() string {
	var sb strings.Builder
	addSection, addField := formatter(&sb)

	addSection("Benchmark")
	addField("Target", c.Transport.Endpoint())
	addField("Target PID", strconv.Itoa(c.PID))
	addField("Concurrency", strconv.Itoa(c.Concurrency))
	addField("Value Size", fmt.Sprintf("%d b", c.ValueSize))
	addField("Batch Size", strconv.Itoa(c.BatchSize))
	addField("Report Interval", c.ReportInterval.String())
	if c.Count > 0 {
		addField("Count", strconv.Itoa(c.Count))
	} else {
		addField("Count", "unlimited")
	}
	if c.CSVPath != "" {
		addField("CSV Output", c.CSVPath)
	}
	addTransport(addSection, addField, c.Transport)

	addSection("Logging")
	addField("Log Level", c.LogLevel)

	return sb.String()
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

// formatter returns helper functions for consistent formatting
func formatter(sb *strings.Builder) (func(title string), func(name, value string)) {
	addSection := func(title string) {
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("%s\n", strings.ToUpper(title)))
	}

	addField := func(name, value string) {
		sb.WriteString(fmt.Sprintf("  %-22s: %s\n", name, value))
	}

	return addSection, addField
}

func addTransport(addSection func(string), addField func(string, string), c TransportConfig) {
	addSection("Socket Options")
	addField("TCP No Delay", strconv.FormatBool(c.TCPNoDelay))
	if c.TCPKeepAliveSec > 0 {
		addField("TCP Keep Alive", fmt.Sprintf("%d sec", c.TCPKeepAliveSec))
	}
	if c.TCPLingerSec >= 0 {
		addField("TCP Linger", fmt.Sprintf("%d sec", c.TCPLingerSec))
	}
	if c.WriteBufferSize > 0 {
		addField("Write Buffer", fmt.Sprintf("%d KB", c.WriteBufferSize/1024))
	}
	if c.ReadBufferSize > 0 {
		addField("Read Buffer", fmt.Sprintf("%d KB", c.ReadBufferSize/1024))
	}
}

// validateLogLevel accepts the levels of ParseLogLevel and the empty string (loggers unchanged)
func validateLogLevel(level string) error {
	if level == "" {
		return nil
	}
	_, err := ParseLogLevel(level)
	return err
}
