package backend

import (
	"fmt"

	"wealthplanner/internal/config"
)

type Config struct {
	Type         BackendType
	SQLiteDBPath string

	OTPType       OTPType
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	EventsEnabled bool
	AMQPURL       string
	AMQPExchange  string
	AMQPQueue     string
}

// FromAppConfig picks the backend settings out of the application config.
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, fmt.Errorf("app config is nil")
	}
	c := Config{
		Type:         BackendType(appConfig.DataBackend),
		SQLiteDBPath: appConfig.SQLiteDBPath,

		OTPType:       OTPType(appConfig.OTPBackend),
		RedisAddr:     appConfig.RedisAddr,
		RedisPassword: appConfig.RedisPassword,
		RedisDB:       appConfig.RedisDB,

		EventsEnabled: appConfig.EventsEnabled,
		AMQPURL:       appConfig.AMQPURL,
		AMQPExchange:  appConfig.AMQPExchange,
		AMQPQueue:     appConfig.AMQPQueue,
	}
	return c, c.Validate()
}

func (c Config) Validate() error {
	if !c.Type.IsValid() {
		return fmt.Errorf("invalid backend type: %s", c.Type)
	}
	if !c.OTPType.IsValid() {
		return fmt.Errorf("invalid OTP backend type: %s", c.OTPType)
	}
	if c.Type == SQLiteBackend && c.SQLiteDBPath == "" {
		return fmt.Errorf("SQLite database path is required for sqlite backend")
	}
	if c.OTPType == RedisOTP && c.RedisAddr == "" {
		return fmt.Errorf("redis address is required for redis OTP backend")
	}
	if c.EventsEnabled && c.AMQPURL == "" {
		return fmt.Errorf("AMQP URL is required when events are enabled")
	}
	return nil
}
