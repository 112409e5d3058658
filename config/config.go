/*
Copyright 2024 Blnk Finance Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package config

import (
	"encoding/json"
	"errors"
	"log"
	"os"
	"strings"
	"sync/atomic"

	"github.com/kelseyhightower/envconfig"

	"github.com/sirupsen/logrus"
)

const (
	DEFAULT_PORT               = "5001"
	DEFAULT_WEBHOOK_QUEUE      = "new:webhook"
	DEFAULT_MONITORING_PORT    = "5004"
	DEFAULT_BASE_SCORE         = 10
	DEFAULT_STRATEGY           = "consolidation"
	DEFAULT_LOCK_TTL_SECONDS   = 30
	DEFAULT_LOCK_WAIT_SECONDS  = 5
	DEFAULT_DIRECTORY_TTL_SECS = 300
)

var ConfigStore atomic.Value

type ServerConfig struct {
	SSL       bool   `json:"ssl" envconfig:"WHARF_SERVER_SSL"`
	Secure    bool   `json:"secure" envconfig:"WHARF_SERVER_SECURE"`
	SecretKey string `json:"secret_key" envconfig:"WHARF_SERVER_SECRET_KEY"`
	Domain    string `json:"domain" envconfig:"WHARF_SERVER_SSL_DOMAIN"`
	Email     string `json:"ssl_email" envconfig:"WHARF_SERVER_SSL_EMAIL"`
	Port      string `json:"port" envconfig:"WHARF_SERVER_PORT"`
}

type DataSourceConfig struct {
	Dns string `json:"dns" envconfig:"WHARF_DATA_SOURCE_DNS"`
}

type RedisConfig struct {
	Dns           string `json:"dns" envconfig:"WHARF_REDIS_DNS"`
	SkipTLSVerify bool   `json:"skip_tls_verify" envconfig:"WHARF_REDIS_SKIP_TLS_VERIFY"`
}

type QueueConfig struct {
	WebhookQueue     string `json:"webhook_queue" envconfig:"WHARF_QUEUE_WEBHOOK"`
	MaxRetryAttempts int    `json:"max_retry_attempts" envconfig:"WHARF_QUEUE_MAX_RETRY_ATTEMPTS"`
	Concurrency      int    `json:"concurrency" envconfig:"WHARF_QUEUE_CONCURRENCY"`
	MonitoringPort   string `json:"monitoring_port" envconfig:"WHARF_QUEUE_MONITORING_PORT"`
}

// LockConfig controls the per-demand and per-task redis locks.
type LockConfig struct {
	TTLSeconds  int `json:"ttl_seconds" envconfig:"WHARF_LOCK_TTL_SECONDS"`
	WaitSeconds int `json:"wait_seconds" envconfig:"WHARF_LOCK_WAIT_SECONDS"`
}

type CacheConfig struct {
	DirectoryTTLSeconds int `json:"directory_ttl_seconds" envconfig:"WHARF_CACHE_DIRECTORY_TTL_SECONDS"`
}

// AllocationConfig selects the bucket ranking used by item and wave allocation.
type AllocationConfig struct {
	BaseScore int64  `json:"base_score" envconfig:"WHARF_ALLOCATION_BASE_SCORE"`
	Strategy  string `json:"strategy" envconfig:"WHARF_ALLOCATION_STRATEGY"`
}

type RateLimitConfig struct {
	RequestsPerSecond  *float64 `json:"requests_per_second" envconfig:"WHARF_RATE_LIMIT_RPS"`
	Burst              *int     `json:"burst" envconfig:"WHARF_RATE_LIMIT_BURST"`
	CleanupIntervalSec *int     `json:"cleanup_interval_sec" envconfig:"WHARF_RATE_LIMIT_CLEANUP_INTERVAL_SEC"`
}

type SlackWebhook struct {
	WebhookUrl string `json:"webhook_url" envconfig:"WHARF_SLACK_WEBHOOK_URL"`
}

type WebhookConfig struct {
	Url     string            `json:"url" envconfig:"WHARF_WEBHOOK_URL"`
	Headers map[string]string `json:"headers"`
}

type Notification struct {
	Slack   SlackWebhook  `json:"slack"`
	Webhook WebhookConfig `json:"webhook"`
}

type TracingConfig struct {
	Enabled     bool   `json:"enabled" envconfig:"WHARF_TRACING_ENABLED"`
	Endpoint    string `json:"endpoint" envconfig:"WHARF_TRACING_ENDPOINT"`
	ServiceName string `json:"service_name" envconfig:"WHARF_TRACING_SERVICE_NAME"`
	Insecure    bool   `json:"insecure" envconfig:"WHARF_TRACING_INSECURE"`
}

type Configuration struct {
	ProjectName     string           `json:"project_name" envconfig:"WHARF_PROJECT_NAME"`
	EnableTelemetry bool             `json:"enable_telemetry" envconfig:"WHARF_ENABLE_TELEMETRY"`
	TelemetryKey    string           `json:"telemetry_key" envconfig:"WHARF_TELEMETRY_KEY"`
	Server          ServerConfig     `json:"server"`
	DataSource      DataSourceConfig `json:"data_source"`
	Redis           RedisConfig      `json:"redis"`
	Queue           QueueConfig      `json:"queue"`
	Lock            LockConfig       `json:"lock"`
	Cache           CacheConfig      `json:"cache"`
	Allocation      AllocationConfig `json:"allocation"`
	Notification    Notification     `json:"notification"`
	RateLimit       RateLimitConfig  `json:"rate_limit"`
	Tracing         TracingConfig    `json:"tracing"`
}

func loadConfigFromFile(file string) error {
	var cnf Configuration
	_, err := os.Stat(file)
	if err == nil {
		f, err := os.Open(file)
		if err != nil {
			return err
		}
		defer func() { _ = f.Close() }()
		err = json.NewDecoder(f).Decode(&cnf)
		if err != nil {
			return err
		}

	} else if errors.Is(err, os.ErrNotExist) {
		log.Println("config json not passed, will use env variables")
	}

	// override config from environment variables
	err = envconfig.Process("wharf", &cnf)
	if err != nil {
		return err
	}

	err = cnf.validateAndAddDefaults()
	if err != nil {
		return err
	}

	ConfigStore.Store(&cnf)
	return err
}

func InitConfig(configFile string) error {
	logger()
	return loadConfigFromFile(configFile)
}

func Fetch() (*Configuration, error) {
	config := ConfigStore.Load()
	c, ok := config.(*Configuration)
	if !ok {
		return nil, errors.New("config not loaded from file. Create a json file called wharf.json with your config ❌")
	}
	return c, nil
}

func (cnf *Configuration) validateAndAddDefaults() error {
	if cnf.ProjectName == "" {
		log.Println("Warning: Project name is empty. Setting a default name.")
		cnf.ProjectName = "Wharf Server"
	}

	if cnf.DataSource.Dns == "" {
		log.Println("Error: Data source DNS is empty. It's a required field.")
		return errors.New("data source DNS is required")
	}

	if cnf.Redis.Dns == "" {
		log.Println("Error: Redis DNS is empty. It's a required field.")
		return errors.New("redis DNS is required")
	}

	// Trim white spaces from fields
	cnf.ProjectName = strings.TrimSpace(cnf.ProjectName)
	cnf.Server.Port = strings.TrimSpace(cnf.Server.Port)
	cnf.DataSource.Dns = strings.TrimSpace(cnf.DataSource.Dns)
	cnf.Redis.Dns = strings.TrimSpace(cnf.Redis.Dns)

	if cnf.Server.Port == "" {
		cnf.Server.Port = DEFAULT_PORT
		log.Printf("Warning: Port not specified in config. Setting default port: %s", DEFAULT_PORT)
	}

	cnf.setQueueDefaults()
	cnf.setEngineDefaults()

	// Rate limiting is disabled by default (when both RPS and Burst are nil)
	if cnf.RateLimit.RequestsPerSecond != nil && cnf.RateLimit.Burst == nil {
		defaultBurst := 2 * int(*cnf.RateLimit.RequestsPerSecond)
		cnf.RateLimit.Burst = &defaultBurst
		log.Printf("Warning: Rate limit burst not specified. Setting default value: %d", defaultBurst)
	}
	if cnf.RateLimit.RequestsPerSecond == nil && cnf.RateLimit.Burst != nil {
		defaultRPS := float64(*cnf.RateLimit.Burst) / 2
		cnf.RateLimit.RequestsPerSecond = &defaultRPS
		log.Printf("Warning: Rate limit RPS not specified. Setting default value: %.2f", defaultRPS)
	}
	if cnf.RateLimit.CleanupIntervalSec == nil {
		defaultCleanup := 10800 // 3 hours in seconds
		cnf.RateLimit.CleanupIntervalSec = &defaultCleanup
	}

	return nil
}

func (cnf *Configuration) setQueueDefaults() {
	if cnf.Queue.WebhookQueue == "" {
		cnf.Queue.WebhookQueue = DEFAULT_WEBHOOK_QUEUE
	}
	if cnf.Queue.MaxRetryAttempts <= 0 {
		cnf.Queue.MaxRetryAttempts = 5
	}
	if cnf.Queue.Concurrency <= 0 {
		cnf.Queue.Concurrency = 10
	}
	if cnf.Queue.MonitoringPort == "" {
		cnf.Queue.MonitoringPort = DEFAULT_MONITORING_PORT
	}
}

func (cnf *Configuration) setEngineDefaults() {
	if cnf.Lock.TTLSeconds <= 0 {
		cnf.Lock.TTLSeconds = DEFAULT_LOCK_TTL_SECONDS
	}
	if cnf.Lock.WaitSeconds <= 0 {
		cnf.Lock.WaitSeconds = DEFAULT_LOCK_WAIT_SECONDS
	}
	if cnf.Cache.DirectoryTTLSeconds <= 0 {
		cnf.Cache.DirectoryTTLSeconds = DEFAULT_DIRECTORY_TTL_SECS
	}
	if cnf.Allocation.BaseScore <= 0 {
		cnf.Allocation.BaseScore = DEFAULT_BASE_SCORE
	}
	cnf.Allocation.Strategy = strings.ToLower(strings.TrimSpace(cnf.Allocation.Strategy))
	if cnf.Allocation.Strategy == "" {
		cnf.Allocation.Strategy = DEFAULT_STRATEGY
	}
	if cnf.Tracing.ServiceName == "" {
		cnf.Tracing.ServiceName = "wharf"
	}
}

// MockConfig sets a mock configuration for testing purposes.
func MockConfig(mockConfig *Configuration) {
	ConfigStore.Store(mockConfig)
}

func logger() {
	logger := logrus.New()
	log.SetOutput(logger.Writer())
}
