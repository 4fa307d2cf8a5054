package backend

import (
	"errors"
	"fmt"

	"ecotrack/internal/config"
)

type Config struct {
	Type Type

	SQLiteDBPath  string
	DataDirectory string

	// AMQP is optional; an empty URL disables event publishing.
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string
}

func FromAppConfig(cfg *config.Config) (Config, error) {
	if cfg == nil {
		return Config{}, errors.New("backend: nil app config")
	}
	t, err := ParseType(cfg.DataBackend)
	if err != nil {
		return Config{}, err
	}
	return Config{
		Type:          t,
		SQLiteDBPath:  cfg.SQLiteDBPath,
		DataDirectory: cfg.DataDir,
		AMQPURL:       cfg.AMQPURL,
		AMQPExchange:  cfg.AMQPExchange,
		AMQPQueue:     cfg.AMQPQueue,
	}, nil
}

// Validate reports every problem at once.
func (c Config) Validate() error {
	var errs []error
	if _, err := ParseType(string(c.Type)); err != nil {
		errs = append(errs, err)
	}
	if c.Type == SQLite && c.SQLiteDBPath == "" {
		errs = append(errs, errors.New("sqlite backend needs a database path"))
	}
	if c.Type == File && c.DataDirectory == "" {
		errs = append(errs, errors.New("file backend needs a data directory"))
	}
	if c.AMQPURL != "" && (c.AMQPExchange == "" || c.AMQPQueue == "") {
		errs = append(errs, fmt.Errorf("amqp at %s needs an exchange and a queue", c.AMQPURL))
	}
	return errors.Join(errs...)
}
