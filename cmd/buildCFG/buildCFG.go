package buildCFG

import (
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/wb-go/wbf/config"
	"github.com/wb-go/wbf/dbpg"
)

const (
	StorageMemory   = "memory"
	StoragePostgres = "postgres"

	TransportRabbit    = "rabbit"
	TransportInProcess = "inprocess"
)

type ServerConfig struct {
	Port string
	Mode string
}

type StorageConfig struct {
	Driver          string
	ResetOnShutdown bool
}

type RabbitConfig struct {
	Url      string
	Exchange string
	Queue    string
}

type NotifyConfig struct {
	Transport string
	Buffer    int
}

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

type AdminConfig struct {
	Username      string
	Password      string
	Email         string
	ID            string
	SessionSecret string
	SessionTTL    time.Duration
}

func stringOr(cfg *config.Config, key, def string) string {
	if v := cfg.GetString(key); v != "" {
		return v
	}
	return def
}

func BuildServerConfig(cfg *config.Config, log *zerolog.Logger) ServerConfig {
	sc := ServerConfig{
		Port: stringOr(cfg, "server.port", "8080"),
		Mode: stringOr(cfg, "server.mode", "release"),
	}
	log.Info().Str("port", sc.Port).Str("mode", sc.Mode).Msg("server config loaded")
	return sc
}

func BuildStorageConfig(cfg *config.Config, log *zerolog.Logger) (StorageConfig, error) {
	sc := StorageConfig{
		Driver:          stringOr(cfg, "storage.driver", StoragePostgres),
		ResetOnShutdown: cfg.GetBool("database.reset_on_shutdown"),
	}
	switch sc.Driver {
	case StoragePostgres, StorageMemory:
	default:
		return StorageConfig{}, fmt.Errorf("unknown storage.driver %q", sc.Driver)
	}
	log.Info().Str("driver", sc.Driver).Msg("storage config loaded")
	return sc, nil
}

func BuildDBConfig(cfg *config.Config, log *zerolog.Logger) (string, []string, *dbpg.Options, error) {
	master := cfg.GetString("database.master_dsn")
	if master == "" {
		return "", nil, nil, errors.New("database.master_dsn is required")
	}
	slaves := cfg.GetStringSlice("database.slave_dsns")

	opts := &dbpg.Options{
		MaxOpenConns:    cfg.GetInt("database.max_open_conns"),
		MaxIdleConns:    cfg.GetInt("database.max_idle_conns"),
		ConnMaxLifetime: cfg.GetDuration("database.conn_max_lifetime"),
	}
	if opts.MaxOpenConns <= 0 {
		opts.MaxOpenConns = 10
	}
	if opts.MaxIdleConns <= 0 {
		opts.MaxIdleConns = 5
	}
	if opts.ConnMaxLifetime <= 0 {
		opts.ConnMaxLifetime = 30 * time.Minute
	}

	log.Info().
		Int("slaves", len(slaves)).
		Int("max_open_conns", opts.MaxOpenConns).
		Int("max_idle_conns", opts.MaxIdleConns).
		Dur("conn_max_lifetime", opts.ConnMaxLifetime).
		Msg("database config loaded")
	return master, slaves, opts, nil
}

func BuildNotifyConfig(cfg *config.Config, log *zerolog.Logger) (NotifyConfig, error) {
	nc := NotifyConfig{
		Transport: stringOr(cfg, "notify.transport", TransportInProcess),
		Buffer:    cfg.GetInt("notify.buffer"),
	}
	switch nc.Transport {
	case TransportRabbit, TransportInProcess:
	default:
		return NotifyConfig{}, fmt.Errorf("unknown notify.transport %q", nc.Transport)
	}
	if nc.Buffer <= 0 {
		nc.Buffer = 256
	}
	log.Info().Str("transport", nc.Transport).Int("buffer", nc.Buffer).Msg("notify config loaded")
	return nc, nil
}

func BuildRabbitConfig(cfg *config.Config, log *zerolog.Logger) (RabbitConfig, error) {
	rc := RabbitConfig{
		Url:      cfg.GetString("rabbit.url"),
		Exchange: stringOr(cfg, "rabbit.exchange", "picnic.notifications"),
		Queue:    stringOr(cfg, "rabbit.queue", "picnic.notifications.mail"),
	}
	if rc.Url == "" {
		return RabbitConfig{}, errors.New("rabbit.url is required")
	}
	log.Info().Str("exchange", rc.Exchange).Str("queue", rc.Queue).Msg("rabbit config loaded")
	return rc, nil
}

func BuildSMTPConfig(cfg *config.Config, log *zerolog.Logger) SMTPConfig {
	sc := SMTPConfig{
		Host:     cfg.GetString("smtp.host"),
		Port:     cfg.GetInt("smtp.port"),
		Username: cfg.GetString("smtp.username"),
		Password: cfg.GetString("smtp.password"),
		From:     cfg.GetString("smtp.from"),
	}
	if sc.Port == 0 {
		sc.Port = 587
	}
	if sc.From == "" {
		sc.From = sc.Username
	}
	if sc.Host == "" {
		log.Warn().Msg("smtp.host is empty, mail delivery will fail")
	}
	return sc
}

func BuildAdminConfig(cfg *config.Config, log *zerolog.Logger) (AdminConfig, error) {
	ac := AdminConfig{
		Username:      cfg.GetString("admin.username"),
		Password:      cfg.GetString("admin.password"),
		Email:         cfg.GetString("admin.email"),
		ID:            stringOr(cfg, "admin.id", "admin"),
		SessionSecret: cfg.GetString("admin.session_secret"),
		SessionTTL:    cfg.GetDuration("admin.session_ttl"),
	}
	if ac.Username == "" || ac.Password == "" {
		return AdminConfig{}, errors.New("admin.username and admin.password are required")
	}
	if len(ac.SessionSecret) < 16 {
		return AdminConfig{}, errors.New("admin.session_secret must be at least 16 characters")
	}
	if ac.Email == "" {
		log.Warn().Msg("admin.email is empty, new registration alerts are disabled")
	}
	return ac, nil
}
