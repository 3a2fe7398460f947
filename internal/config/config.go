package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// FileName is the configuration file looked up in the config directory.
const FileName = "ibt.cfg.json"

// DBConfig holds settings/catalog database settings
type DBConfig struct {
	Driver   string `json:"driver" mapstructure:"driver"`
	Path     string `json:"path" mapstructure:"path"`
	Host     string `json:"host" mapstructure:"host"`
	Port     string `json:"port" mapstructure:"port"`
	Username string `json:"username" mapstructure:"username"`
	Password string `json:"password" mapstructure:"password"`
	Database string `json:"database" mapstructure:"database"`
}

// InfluxConfig holds InfluxDB export settings
type InfluxConfig struct {
	Enabled    bool   `json:"enabled" mapstructure:"enabled"`
	Host       string `json:"host" mapstructure:"host"`
	Port       string `json:"port" mapstructure:"port"`
	Protocol   string `json:"protocol" mapstructure:"protocol"`
	Token      string `json:"token" mapstructure:"token"`
	Org        string `json:"org" mapstructure:"org"`
	Bucket     string `json:"bucket" mapstructure:"bucket"`
	BackupPath string `json:"backupPath" mapstructure:"backupPath"`
}

// ExportConfig holds JSON export settings
type ExportConfig struct {
	OutputDir string `json:"outputDir" mapstructure:"outputDir"`
	Compress  bool   `json:"compress" mapstructure:"compress"`
}

// GraylogConfig holds GELF log sink settings
type GraylogConfig struct {
	Enabled bool   `json:"enabled" mapstructure:"enabled"`
	Address string `json:"address" mapstructure:"address"`
}

// OTelConfig holds metrics export settings
type OTelConfig struct {
	Enabled     bool          `json:"enabled" mapstructure:"enabled"`
	ServiceName string        `json:"serviceName" mapstructure:"serviceName"`
	Interval    time.Duration `json:"interval" mapstructure:"interval"`
	MetricsFile string        `json:"metricsFile" mapstructure:"metricsFile"`
}

// SetDefaults registers default values for every key.
func SetDefaults() {
	viper.SetDefault("logLevel", "info")
	viper.SetDefault("logsDir", "./ibtlogs")
	viper.SetDefault("telemetryDir", ".")
	viper.SetDefault("identityChannel", "SessionTick")

	viper.SetDefault("db.driver", "sqlite")
	viper.SetDefault("db.path", "./ibt.db")
	viper.SetDefault("db.host", "localhost")
	viper.SetDefault("db.port", "5432")
	viper.SetDefault("db.username", "postgres")
	viper.SetDefault("db.password", "postgres")
	viper.SetDefault("db.database", "ibt")

	viper.SetDefault("catalog.enabled", true)

	viper.SetDefault("influx.enabled", false)
	viper.SetDefault("influx.host", "localhost")
	viper.SetDefault("influx.port", "8086")
	viper.SetDefault("influx.protocol", "http")
	viper.SetDefault("influx.token", "supersecrettoken")
	viper.SetDefault("influx.org", "ibt")
	viper.SetDefault("influx.bucket", "telemetry")
	viper.SetDefault("influx.backupPath", "./ibt_influx_backup.lp.gz")

	viper.SetDefault("graylog.enabled", false)
	viper.SetDefault("graylog.address", "localhost:12201")

	viper.SetDefault("otel.enabled", false)
	viper.SetDefault("otel.serviceName", "ibt")
	viper.SetDefault("otel.interval", "30s")
	viper.SetDefault("otel.metricsFile", "./ibtlogs/ibt.metrics.json")

	viper.SetDefault("export.outputDir", "./exports")
	viper.SetDefault("export.compress", true)
}

// Load reads configuration from JSON file and sets default values.
// configDir is the directory containing the config file. Defaults stay in effect
// when the file cannot be read.
func Load(configDir string) error {
	SetDefaults()

	viper.SetConfigName(FileName)
	viper.AddConfigPath(configDir)
	viper.SetConfigType("json")

	err := viper.ReadInConfig()
	if err != nil {
		return fmt.Errorf("error reading config file: %v", err)
	}

	return nil
}

// GetString returns a string config value.
func GetString(key string) string {
	return viper.GetString(key)
}

// GetInt returns an int config value.
func GetInt(key string) int {
	return viper.GetInt(key)
}

// GetBool returns a bool config value.
func GetBool(key string) bool {
	return viper.GetBool(key)
}

// GetDBConfig returns the database section.
func GetDBConfig() DBConfig {
	return DBConfig{
		Driver:   viper.GetString("db.driver"),
		Path:     viper.GetString("db.path"),
		Host:     viper.GetString("db.host"),
		Port:     viper.GetString("db.port"),
		Username: viper.GetString("db.username"),
		Password: viper.GetString("db.password"),
		Database: viper.GetString("db.database"),
	}
}

// GetInfluxConfig returns the influx section.
func GetInfluxConfig() InfluxConfig {
	return InfluxConfig{
		Enabled:    viper.GetBool("influx.enabled"),
		Host:       viper.GetString("influx.host"),
		Port:       viper.GetString("influx.port"),
		Protocol:   viper.GetString("influx.protocol"),
		Token:      viper.GetString("influx.token"),
		Org:        viper.GetString("influx.org"),
		Bucket:     viper.GetString("influx.bucket"),
		BackupPath: viper.GetString("influx.backupPath"),
	}
}

// GetExportConfig returns the export section.
func GetExportConfig() ExportConfig {
	return ExportConfig{
		OutputDir: viper.GetString("export.outputDir"),
		Compress:  viper.GetBool("export.compress"),
	}
}

// GetGraylogConfig returns the graylog section.
func GetGraylogConfig() GraylogConfig {
	return GraylogConfig{
		Enabled: viper.GetBool("graylog.enabled"),
		Address: viper.GetString("graylog.address"),
	}
}

// GetOTelConfig returns the otel section.
func GetOTelConfig() OTelConfig {
	return OTelConfig{
		Enabled:     viper.GetBool("otel.enabled"),
		ServiceName: viper.GetString("otel.serviceName"),
		Interval:    viper.GetDuration("otel.interval"),
		MetricsFile: viper.GetString("otel.metricsFile"),
	}
}
