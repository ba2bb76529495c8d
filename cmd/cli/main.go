package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/varmalabs/voicegate/internal/service"
	"github.com/varmalabs/voicegate/internal/verify"
	"github.com/varmalabs/voicegate/pkg/logger"
)

var (
	dbPath   string
	blobDir  string
	modelURL string
)

func init() {
	flag.StringVar(&dbPath, "db", getEnvOrDefault("VOICEGATE_DB_PATH", "voicegate.sqlite3"), "Path to the SQLite database file")
	flag.StringVar(&blobDir, "blobs", getEnvOrDefault("VOICEGATE_BLOB_DIR", "blobs"), "Directory for the audio blob store")
	flag.StringVar(&modelURL, "model", getEnvOrDefault("VOICEGATE_MODEL_URL", "http://localhost:8501/encode"), "Embedding model sidecar URL")
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func createService() (*service.VoiceService, error) {
	return service.New(
		service.WithDBPath(dbPath),
		service.WithBlobDir(blobDir),
		service.WithModelURL(modelURL),
	)
}

func main() {
	log := logger.GetLogger()

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]
	log.Infof("Executing command: %s", command)

	switch command {
	case "enroll":
		handleEnroll()
	case "verify":
		handleVerify()
	case "list":
		handleList()
	case "delete":
		handleDelete()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`Voicegate - voice biometric enrollment and verification

Usage:
  voicegate enroll <audio.wav> --user <id>   Enroll a voice sample
  voicegate verify <audio.wav> --user <id>   Verify a voice sample
  voicegate list                             List enrolled profiles
  voicegate delete --user <id>               Delete a profile (admin)

Global flags: -db, -blobs, -model (or VOICEGATE_* env vars)`)
}

// splitArgs separates the leading positional audio path from flag
// arguments.
func splitArgs(args []string) (string, []string) {
	var audioPath string
	var flagArgs []string
	for i, arg := range args {
		if len(arg) > 0 && arg[0] != '-' && audioPath == "" {
			audioPath = arg
		} else {
			flagArgs = append(flagArgs, args[i:]...)
			break
		}
	}
	return audioPath, flagArgs
}

func handleEnroll() {
	log := logger.GetLogger()

	audioPath, flagArgs := splitArgs(os.Args[2:])
	enrollCmd := flag.NewFlagSet("enroll", flag.ExitOnError)
	user := enrollCmd.String("user", "", "User ID to enroll (required)")
	enrollCmd.Parse(flagArgs)

	if audioPath == "" || *user == "" {
		fmt.Println("Error: audio file and --user are required")
		os.Exit(1)
	}

	svc, err := createService()
	if err != nil {
		log.Fatalf("Failed to create service: %v", err)
	}
	defer svc.Close()

	p, err := svc.EnrollFile(context.Background(), audioPath, *user)
	if err != nil {
		log.Fatalf("Enrollment failed: %v", err)
	}
	fmt.Printf("Enrolled %s (samples: %d)\n", p.UserID, p.SampleCount)
}

func handleVerify() {
	log := logger.GetLogger()

	audioPath, flagArgs := splitArgs(os.Args[2:])
	verifyCmd := flag.NewFlagSet("verify", flag.ExitOnError)
	user := verifyCmd.String("user", "", "Claimed user ID (required)")
	verifyCmd.Parse(flagArgs)

	if audioPath == "" || *user == "" {
		fmt.Println("Error: audio file and --user are required")
		os.Exit(1)
	}

	svc, err := createService()
	if err != nil {
		log.Fatalf("Failed to create service: %v", err)
	}
	defer svc.Close()

	result := svc.VerifyFile(context.Background(), audioPath, *user)
	switch result.Status {
	case verify.StatusVerified:
		fmt.Printf("VERIFIED (similarity: %.3f)\n", result.Similarity)
	default:
		fmt.Printf("NOT VERIFIED (reason: %s, similarity: %.3f)\n", result.Reason, result.Similarity)
		os.Exit(1)
	}
}

func handleList() {
	log := logger.GetLogger()

	svc, err := createService()
	if err != nil {
		log.Fatalf("Failed to create service: %v", err)
	}
	defer svc.Close()

	profiles, err := svc.ListProfiles()
	if err != nil {
		log.Fatalf("Failed to list profiles: %v", err)
	}
	if len(profiles) == 0 {
		fmt.Println("No profiles enrolled")
		return
	}
	for _, p := range profiles {
		fmt.Printf("%-20s samples=%-3d status=%s updated=%s\n",
			p.UserID, p.SampleCount, p.Status, p.UpdatedAt.Format("2006-01-02 15:04:05"))
	}
}

func handleDelete() {
	log := logger.GetLogger()

	deleteCmd := flag.NewFlagSet("delete", flag.ExitOnError)
	user := deleteCmd.String("user", "", "User ID to delete (required)")
	deleteCmd.Parse(os.Args[2:])

	if *user == "" {
		fmt.Println("Error: --user is required")
		os.Exit(1)
	}

	svc, err := createService()
	if err != nil {
		log.Fatalf("Failed to create service: %v", err)
	}
	defer svc.Close()

	if err := svc.DeleteProfile(*user); err != nil {
		log.Fatalf("Delete failed: %v", err)
	}
	fmt.Printf("Deleted profile %s\n", *user)
}
