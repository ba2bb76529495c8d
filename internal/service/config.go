package service

import (
	"github.com/varmalabs/voicegate/internal/embedding"
)

// Config for the voice service. All handles built from it are created once
// and shared for the life of the process.
type Config struct {
	DBPath        string
	BlobDir       string
	InboxDir      string
	ModelURL      string
	DefaultUserID string
	NATSUrl       string
	NATSSubject   string

	// Encoder overrides the HTTP model, used by tests and embedded setups.
	Encoder embedding.Encoder
}

type Option func(*Config)

func WithDBPath(path string) Option {
	return func(c *Config) { c.DBPath = path }
}

func WithBlobDir(dir string) Option {
	return func(c *Config) { c.BlobDir = dir }
}

func WithInboxDir(dir string) Option {
	return func(c *Config) { c.InboxDir = dir }
}

func WithModelURL(url string) Option {
	return func(c *Config) { c.ModelURL = url }
}

func WithDefaultUserID(id string) Option {
	return func(c *Config) { c.DefaultUserID = id }
}

func WithNATS(url, subject string) Option {
	return func(c *Config) {
		c.NATSUrl = url
		c.NATSSubject = subject
	}
}

func WithEncoder(enc embedding.Encoder) Option {
	return func(c *Config) { c.Encoder = enc }
}

func defaultConfig() *Config {
	return &Config{
		DBPath:        "voicegate.sqlite3",
		BlobDir:       "blobs",
		InboxDir:      "data",
		ModelURL:      "http://localhost:8501/encode",
		DefaultUserID: "default",
		NATSSubject:   "voicegate.results",
	}
}
