package config

import "time"

type Config struct {
	Web      Web
	Backend  Backend
	Storage  Storage
	DB       DB
	Progress Progress
	Rate     Rate
	Cors     Cors
	Session  Session
	Log      Log
}

type Web struct {
	Address         string        `conf:"default:127.0.0.1:7070"`
	ReadTimeout     time.Duration `conf:"default:5s"`
	WriteTimeout    time.Duration `conf:"default:10s"`
	IdleTimeout     time.Duration `conf:"default:120s"`
	ShutdownTimeout time.Duration `conf:"default:20s"`
}

// Backend is the platform API the daemon synchronizes with.
type Backend struct {
	URL     string        `conf:"default:http://localhost:5000/api/"`
	Timeout time.Duration `conf:"default:15s"`
}

// Storage selects where store slices are persisted: memory, file or postgres.
type Storage struct {
	Kind string `conf:"default:file"`
	Dir  string `conf:"default:.lms-state"`
}

type DB struct {
	User         string `conf:"default:postgres"`
	Password     string `conf:"default:postgres,mask"`
	Host         string `conf:"default:localhost:5432"`
	Name         string `conf:"default:lms_client"`
	MaxIdleConns int    `conf:"default:2"`
	MaxOpenConns int    `conf:"default:0"`
	DisableTLS   bool   `conf:"default:true"`
}

// Progress tunes the best-effort reporting of completed lectures.
type Progress struct {
	MaxRetries     uint64        `conf:"default:3"`
	InitialBackoff time.Duration `conf:"default:500ms"`
	MaxElapsed     time.Duration `conf:"default:30s"`
}

type Rate struct {
	Burst    int           `conf:"default:40"`
	Interval time.Duration `conf:"default:50ms"`
	Expiry   time.Duration `conf:"default:10m"`
}

type Cors struct {
	Origin string
}

type Session struct {
	Lifetime time.Duration `conf:"default:24h"`
}

type Log struct {
	Level  string `conf:"default:info"`
	Format string `conf:"default:text"`
}
