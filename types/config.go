package types

import (
	"crypto/sha1" // #nosec
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	// Memory .
	Memory = "memory"
	// Etcd .
	Etcd = "etcd"
	// Redis .
	Redis = "redis"
	// SQL .
	SQL = "sql"
)

// Config holds taskmanager config
type Config struct {
	Log            ServerLogConfig `yaml:"log"`
	Bind           string          `yaml:"bind" required:"true" default:":8081"`          // HTTP API address
	Profile        string          `yaml:"profile"`                                       // expose /metrics on the API server when set
	Statsd         string          `yaml:"statsd"`                                        // statsd host and port
	Store          string          `yaml:"store" default:"memory"`                        // store type
	LockTimeout    time.Duration   `yaml:"lock_timeout" required:"true" default:"30s"`    // timeout for lock (ttl)
	GlobalTimeout  time.Duration   `yaml:"global_timeout" required:"true" default:"300s"` // timeout for orchestrating a single event
	MaxConcurrency int             `yaml:"max_concurrency" default:"20"`                  // bus handler pool size
	Retention      time.Duration   `yaml:"retention" default:"24h"`                       // finished hierarchies older than this are purged
	PurgeInterval  time.Duration   `yaml:"purge_interval"`                                // purge period, purging is off when zero

	WALFile        string        `yaml:"wal_file" required:"true" default:"taskmanager.wal"` // WAL file path
	WALOpenTimeout time.Duration `yaml:"wal_open_timeout" required:"true" default:"8s"`      // timeout for opening a WAL file

	Etcd   EtcdConfig   `yaml:"etcd"`
	Redis  RedisConfig  `yaml:"redis"`
	SQL    SQLConfig    `yaml:"sql"`
	Bus    BusConfig    `yaml:"bus"`
	Auth   AuthConfig   `yaml:"auth"` // API basic auth
	Bridge BridgeConfig `yaml:"bridge"`

	SpecFile  string           `yaml:"spec_file"` // task specs loaded at start
	Schedules []ScheduleConfig `yaml:"schedules"`
	Sources   []SourceConfig   `yaml:"sources"`

	SentryDSN string `yaml:"sentry_dsn"`
}

// Identifier returns the id of this config
// we consider the same storage as the same config
func (c Config) Identifier() (string, error) {
	s := strings.Builder{}
	_, _ = s.WriteString(c.Store)
	for _, e := range c.Etcd.Machines {
		_, _ = s.WriteString(e)
	}
	_, _ = s.WriteString(c.Etcd.Prefix)
	_, _ = s.WriteString(c.Redis.Addr)
	_, _ = s.WriteString(strconv.Itoa(c.Redis.DB))
	_, _ = s.WriteString(c.SQL.Driver)
	_, _ = s.WriteString(c.SQL.DSN)
	h := sha1.New() // #nosec
	if _, err := h.Write([]byte(s.String())); err != nil {
		return "", err
	}
	return fmt.Sprintf("%x", h.Sum(nil)), nil
}

// ServerLogConfig .
type ServerLogConfig struct {
	Level      string `yaml:"level" default:"info"`
	UseJSON    bool   `yaml:"use_json"`
	Filename   string `yaml:"filename"`                // rotated log file, stdout when empty
	MaxSize    int    `yaml:"maxsize" default:"500"`   // megabytes
	MaxAge     int    `yaml:"max_age" default:"28"`    // days
	MaxBackups int    `yaml:"max_backups" default:"3"` // files
}

// EtcdConfig holds etcd config
type EtcdConfig struct {
	Machines    []string      `yaml:"machines"`                                   // etcd cluster addresses
	Prefix      string        `yaml:"prefix" default:"/taskmanager"`              // all keys will be created under this dir
	LockPrefix  string        `yaml:"lock_prefix" default:"__lock__/taskmanager"` // all locks will be created under this dir
	Ca          string        `yaml:"ca"`                                         // etcd ca
	Key         string        `yaml:"key"`                                        // etcd key
	Cert        string        `yaml:"cert"`                                       // etcd trusted_ca
	Auth        AuthConfig    `yaml:"auth"`                                       // etcd auth
	DialTimeout time.Duration `yaml:"dial_timeout" default:"5s"`
}

// RedisConfig holds redis config
// LockPrefix is used for lock
type RedisConfig struct {
	Addr       string `yaml:"addr" default:"localhost:6379"` // redis address
	DB         int    `yaml:"db" default:"0"`                // redis db
	LockPrefix string `yaml:"lock_prefix" default:"/lock"`   // redis lock prefix
}

// SQLConfig holds database/sql config
type SQLConfig struct {
	Driver       string `yaml:"driver" default:"sqlite"`           // registered driver name, sqlite or pgx
	DSN          string `yaml:"dsn" default:"file:taskmanager.db"` // data source
	TablePrefix  string `yaml:"table_prefix" default:"tm"`         // prefix of the created tables
	CreateSchema bool   `yaml:"create_schema" default:"true"`      // bootstrap tables on start
	MaxOpenConns int    `yaml:"max_open_conns" default:"10"`
}

// BusConfig holds event bus config
type BusConfig struct {
	RequestTimeout time.Duration `yaml:"request_timeout" default:"30s"`
	Cluster        bool          `yaml:"cluster"`                              // bridge the bus over redis pub/sub
	ChannelPrefix  string        `yaml:"channel_prefix" default:"taskmanager."` // redis channel prefix
	Node           string        `yaml:"node"`                                 // node name, random when empty
}

// AuthConfig holds a username / password pair
type AuthConfig struct {
	Username string `yaml:"username,omitempty" json:"username,omitempty"`
	Password string `yaml:"password,omitempty" json:"password,omitempty"`
}

// BridgeConfig restricts which bus addresses can be streamed to http clients
type BridgeConfig struct {
	PermittedAddresses string        `yaml:"permitted_addresses" default:"^orchestrate\\..*"` // regexp
	Heartbeat          time.Duration `yaml:"heartbeat" default:"2s"`
}

// ScheduleConfig emits an orchestration event on a cron
type ScheduleConfig struct {
	ID          string         `yaml:"id"`
	Cron        string         `yaml:"cron"`
	WithSeconds bool           `yaml:"with_seconds"`
	TimeZone    string         `yaml:"time_zone"`
	EventType   string         `yaml:"event_type"` // no event is emitted when empty
	Payload     map[string]any `yaml:"payload"`
}

// SourceConfig declares a source system feeding events
type SourceConfig struct {
	Name      string   `yaml:"name"`
	KeyFields []string `yaml:"key_fields"` // fields joined into the event id and type
}
