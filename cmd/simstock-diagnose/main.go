package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"bitbucket.org/mmdatafocus/simfield_backend/config"
	"bitbucket.org/mmdatafocus/simfield_backend/models"
)

// simstock-diagnose scans the entire simStock collection and reports which
// document shape each record uses (flat serialNumbers array vs nested
// orders/simCards), so you can see whether the dual-shape lookup is still
// needed or the collection has been migrated.
//
// Example:
//
//	go run ./cmd/simstock-diagnose/
func main() {
	config.ConnectFirestoreWithRetry()
	if config.GetFirestore() == nil {
		fmt.Fprintln(os.Stderr, "firestore not initialized")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	report, err := models.DiagnoseStockShape(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, "diagnosis failed:", err)
		os.Exit(1)
	}

	fmt.Printf("total docs:    %d\n", report.TotalDocs)
	fmt.Printf("flat shape:    present=%t, %d serials\n", report.HasFlatField, report.FlatCount)
	fmt.Printf("nested shape:  present=%t, %d serials\n", report.HasNestedField, report.NestedCount)
	fmt.Printf("unknown shape: %d docs\n", report.UnknownDocs)

	if report.UnknownDocs > 0 {
		fmt.Println("warning: some stock documents match neither shape; serials in them are invisible to validation")
	}
}
