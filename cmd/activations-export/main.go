package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"bitbucket.org/mmdatafocus/simfield_backend/config"
	"bitbucket.org/mmdatafocus/simfield_backend/models"
	"github.com/xuri/excelize/v2"
)

// activations-export writes every activation in a date range to an xlsx
// workbook for the back-office review team. Dates are inclusive and
// interpreted in UTC.
//
// Example:
//
//	go run ./cmd/activations-export/ -from=2026-08-01 -to=2026-08-28 -out=activations.xlsx
func main() {
	fromArg := flag.String("from", "", "Required: start date (YYYY-MM-DD)")
	toArg := flag.String("to", "", "Required: end date (YYYY-MM-DD)")
	outArg := flag.String("out", "activations.xlsx", "Output xlsx path")
	flag.Parse()

	if strings.TrimSpace(*fromArg) == "" || strings.TrimSpace(*toArg) == "" {
		fmt.Fprintln(os.Stderr, "--from and --to are required")
		os.Exit(1)
	}
	from, err := time.ParseInLocation("2006-01-02", strings.TrimSpace(*fromArg), time.UTC)
	if err != nil {
		fmt.Fprintln(os.Stderr, "invalid --from date:", err)
		os.Exit(1)
	}
	to, err := time.ParseInLocation("2006-01-02", strings.TrimSpace(*toArg), time.UTC)
	if err != nil {
		fmt.Fprintln(os.Stderr, "invalid --to date:", err)
		os.Exit(1)
	}
	toEnd := to.Add(24*time.Hour - time.Millisecond)
	if toEnd.Before(from) {
		fmt.Fprintln(os.Stderr, "--to must not be before --from")
		os.Exit(1)
	}

	config.ConnectFirestoreWithRetry()
	if config.GetFirestore() == nil {
		fmt.Fprintln(os.Stderr, "firestore not initialized")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	records, err := models.ListActivationsBetween(ctx, from.UnixMilli(), toEnd.UnixMilli())
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to load activations:", err)
		os.Exit(1)
	}

	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Activations"
	f.SetSheetName(f.GetSheetName(0), sheet)

	headers := []string{
		"Scan ID", "SIM Serial", "Agent ID", "Agent Name", "Dealer Code",
		"Dealer Name", "Van Shop", "Market Area", "Activation Date",
		"Review Status", "Latitude", "Longitude", "Timestamp",
	}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}

	for row, rec := range records {
		values := []any{
			rec.ScanId, rec.SimSerial, rec.AgentId, rec.AgentName, rec.DealerCode,
			rec.DealerName, rec.VanShop, rec.MarketArea, rec.ActivationDate,
			string(rec.ReviewStatus), rec.Latitude, rec.Longitude,
			time.UnixMilli(rec.Timestamp).UTC().Format(time.RFC3339),
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row+2)
			_ = f.SetCellValue(sheet, cell, v)
		}
	}

	if err := f.SaveAs(*outArg); err != nil {
		fmt.Fprintln(os.Stderr, "failed to write workbook:", err)
		os.Exit(1)
	}
	fmt.Printf("wrote %d activations to %s\n", len(records), *outArg)
}
