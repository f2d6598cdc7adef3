package sweeper_config

import (
	"time"

	"github.com/pinghook/pinghook/internal/obs"
	pginfra "github.com/pinghook/pinghook/internal/repository/postgres"
)

type KafkaOut struct {
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
}

type SweepCfg struct {
	Tick         time.Duration `mapstructure:"tick"`
	BatchLimit   int           `mapstructure:"batch_limit"`
	CycleTimeout time.Duration `mapstructure:"cycle_timeout"`
	ResweepAfter time.Duration `mapstructure:"resweep_after"`
	MetricsAddr  string        `mapstructure:"metrics_addr"`
}

type OutboxCfg struct {
	Workers       int           `mapstructure:"workers"`
	BatchSize     int           `mapstructure:"batch_size"`
	WaitTime      time.Duration `mapstructure:"wait_time"`
	InProgressTTL time.Duration `mapstructure:"in_progress_ttl"`
}

type OTEL struct {
	Enable       bool    `mapstructure:"enable"`
	OTLPEndpoint string  `mapstructure:"otlp_endpoint"`
	ServiceName  string  `mapstructure:"service_name"`
	SampleRatio  float64 `mapstructure:"sample_ratio"`
}

func (oc *OTEL) AsOTELConfig() *obs.OTELConfig {
	return &obs.OTELConfig{
		Enable:      oc.Enable,
		Endpoint:    oc.OTLPEndpoint,
		ServiceName: oc.ServiceName,
		SampleRatio: oc.SampleRatio,
	}
}

type Config struct {
	DB       pginfra.Config `mapstructure:"db"`
	Kafka    KafkaOut       `mapstructure:"kafka"`
	Sweep    SweepCfg       `mapstructure:"sweep"`
	Outbox   OutboxCfg      `mapstructure:"outbox"`
	OTEL     OTEL           `mapstructure:"otel"`
	LogLevel string         `mapstructure:"log_level"`
}
