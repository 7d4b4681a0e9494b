package config

import (
	"context"
	"log"
	"os"
	"sync"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/joho/godotenv"
	"google.golang.org/api/option"
)

var (
	fsClient   *firestore.Client
	fsClientMu sync.Mutex
)

func init() {
	// Load env from .env
	godotenv.Load()
}

func getFirestoreProjectID() string {
	if v := os.Getenv("FIRESTORE_PROJECT_ID"); v != "" {
		return v
	}
	if v := os.Getenv("GOOGLE_CLOUD_PROJECT"); v != "" {
		return v
	}
	if v := os.Getenv("GCP_PROJECT"); v != "" {
		return v
	}
	return ""
}

// GetFirestore returns the shared Firestore client, or nil if it has not been
// connected yet. Callers in models treat nil as "store unavailable".
func GetFirestore() *firestore.Client {
	fsClientMu.Lock()
	defer fsClientMu.Unlock()
	return fsClient
}

// ConnectFirestoreWithRetry connects and sets the global Firestore client.
// Call this from main() AFTER the HTTP server is listening (Cloud Run:
// never block startup on backing-service connects).
func ConnectFirestoreWithRetry() {
	projectID := getFirestoreProjectID()
	if projectID == "" {
		log.Printf("FIRESTORE_PROJECT_ID/GOOGLE_CLOUD_PROJECT not set; firestore disabled")
		return
	}

	credJSON := os.Getenv("FIRESTORE_CREDENTIALS_JSON")
	ctx := context.Background()

	var attempt int
	for {
		attempt++

		var (
			c   *firestore.Client
			err error
		)
		if credJSON != "" {
			c, err = firestore.NewClient(ctx, projectID, option.WithCredentialsJSON([]byte(credJSON)))
		} else {
			// Uses Application Default Credentials (Cloud Run service account or GOOGLE_APPLICATION_CREDENTIALS).
			c, err = firestore.NewClient(ctx, projectID)
		}
		if err == nil {
			fsClientMu.Lock()
			fsClient = c
			fsClientMu.Unlock()
			log.Printf("firestore client ready (project_id=%s attempt=%d)", projectID, attempt)
			return
		}

		sleep := time.Second * time.Duration(1<<min(attempt, 5))
		if sleep > 30*time.Second {
			sleep = 30 * time.Second
		}
		log.Printf("failed to init firestore client (project_id=%s attempt=%d): %v; retrying in %s", projectID, attempt, err, sleep)
		time.Sleep(sleep)
	}
}
