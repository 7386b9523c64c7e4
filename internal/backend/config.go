package backend

import (
	"errors"
	"fmt"

	"socios/internal/config"
)

// Process names the binary a backend is built for. The server publishes
// roster events when a broker is reachable; the worker consumes them and
// cannot run without one.
type Process string

const (
	ServerProcess Process = "server"
	WorkerProcess Process = "worker"
)

// FromAppConfig derives the backend settings for process from the
// application config.
func FromAppConfig(appConfig *config.Config, process Process) (Config, error) {
	if appConfig == nil {
		return Config{}, errors.New("app config is nil")
	}
	switch process {
	case ServerProcess, WorkerProcess:
	default:
		return Config{}, fmt.Errorf("unknown process %q", process)
	}

	c := Config{
		Type:          BackendType(appConfig.DataBackend),
		SQLiteDBPath:  appConfig.SQLiteDBPath,
		AMQPURL:       appConfig.AMQPURL,
		AMQPExchange:  appConfig.AMQPExchange,
		AMQPQueue:     appConfig.AMQPQueue,
		DataDirectory: appConfig.DataDirectory,
		RequireEvents: process == WorkerProcess,
	}
	if err := c.Validate(); err != nil {
		return Config{}, fmt.Errorf("%s backend: %w", process, err)
	}
	return c, nil
}

// Validate reports every problem at once.
func (c Config) Validate() error {
	if !c.Type.IsValid() {
		return fmt.Errorf("invalid backend type %q (valid: %v)", c.Type, GetBackendTypes())
	}

	var errs []error
	if c.Type == SQLiteBackend && c.SQLiteDBPath == "" {
		errs = append(errs, errors.New("sqlite backend needs a database path"))
	}
	if c.AMQPURL != "" && (c.AMQPExchange == "" || c.AMQPQueue == "") {
		errs = append(errs, errors.New("roster events need both an exchange and a queue"))
	}
	if c.RequireEvents {
		if c.Type == MemoryBackend {
			// A memory store is private to its process; the worker would
			// mirror an empty roster.
			errs = append(errs, errors.New("memory backend cannot be shared with the worker"))
		}
		if c.AMQPURL == "" {
			errs = append(errs, errors.New("roster events are required but no AMQP URL is set"))
		}
	}
	return errors.Join(errs...)
}

// GetBackendTypes returns all valid backend types
func GetBackendTypes() []BackendType {
	return []BackendType{SQLiteBackend, MemoryBackend}
}
