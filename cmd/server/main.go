package main

import (
	"context"
	"flag"
	"log"
	"os"
	"strings"

	"github.com/varmalabs/voicegate/internal/service"
)

var (
	port           int
	dbPath         string
	blobDir        string
	inboxDir       string
	modelURL       string
	defaultUser    string
	natsURL        string
	allowedOrigins string
)

func init() {
	flag.IntVar(&port, "port", 5000, "HTTP server port")
	flag.StringVar(&dbPath, "db", getEnvOrDefault("VOICEGATE_DB_PATH", "voicegate.sqlite3"), "Path to SQLite database")
	flag.StringVar(&blobDir, "blobs", getEnvOrDefault("VOICEGATE_BLOB_DIR", "blobs"), "Directory for the audio blob store")
	flag.StringVar(&inboxDir, "inbox", getEnvOrDefault("VOICEGATE_INBOX_DIR", "data"), "Inbox directory watched for audio submissions")
	flag.StringVar(&modelURL, "model", getEnvOrDefault("VOICEGATE_MODEL_URL", "http://localhost:8501/encode"), "Embedding model sidecar URL")
	flag.StringVar(&defaultUser, "default-user", getEnvOrDefault("VOICEGATE_DEFAULT_USER", "default"), "Fallback identity for submissions without a parseable user id")
	flag.StringVar(&natsURL, "nats", os.Getenv("VOICEGATE_NATS_URL"), "Optional NATS URL for result fan-out")
	flag.StringVar(&allowedOrigins, "origins", "*", "Comma-separated list of allowed CORS origins (use * for all)")
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func main() {
	flag.Parse()

	var origins []string
	if allowedOrigins == "*" {
		origins = []string{"*"}
	} else {
		origins = strings.Split(allowedOrigins, ",")
		for i := range origins {
			origins[i] = strings.TrimSpace(origins[i])
		}
	}

	opts := []service.Option{
		service.WithDBPath(dbPath),
		service.WithBlobDir(blobDir),
		service.WithInboxDir(inboxDir),
		service.WithModelURL(modelURL),
		service.WithDefaultUserID(defaultUser),
	}
	if natsURL != "" {
		opts = append(opts, service.WithNATS(natsURL, "voicegate.results"))
	}

	svc, err := service.New(opts...)
	if err != nil {
		log.Fatalf("Failed to create service: %v", err)
	}
	defer svc.Close()

	// the inbox watcher shares the process with the HTTP API so polled
	// results come from the in-memory slot, not a file
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		if err := svc.RunOrchestrator(ctx); err != nil && ctx.Err() == nil {
			log.Fatalf("Orchestrator failed: %v", err)
		}
	}()

	server := NewServer(svc, &ServerConfig{
		Port:           port,
		DBPath:         dbPath,
		InboxDir:       inboxDir,
		AllowedOrigins: origins,
	})
	if err := server.Start(); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}
