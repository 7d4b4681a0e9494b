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
)

// duplicate-check looks up one or more SIM serials directly against the
// activation collection, bypassing every cache. Use it to settle disputes
// when an agent claims a serial was wrongly rejected as a duplicate.
//
// Example:
//
//	go run ./cmd/duplicate-check/ -serials=12345678901234567890,98765432109876543210
func main() {
	serialsArg := flag.String("serials", "", "Required: comma-separated 20-digit SIM serials")
	checkStock := flag.Bool("stock", false, "Also check dealer stock registration")
	flag.Parse()

	serials := splitSerials(*serialsArg)
	if len(serials) == 0 {
		fmt.Fprintln(os.Stderr, "--serials is required")
		os.Exit(1)
	}
	for _, serial := range serials {
		if !models.IsValidSerialFormat(serial) {
			fmt.Fprintf(os.Stderr, "invalid serial %q: must be exactly 20 digits\n", serial)
			os.Exit(1)
		}
	}

	config.ConnectFirestoreWithRetry()
	if config.GetFirestore() == nil {
		fmt.Fprintln(os.Stderr, "firestore not initialized")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	for _, serial := range serials {
		check := models.CheckActivationDuplicate(ctx, serial)
		switch {
		case check.IsDuplicate && check.Info != nil:
			fmt.Printf("%s: DUPLICATE activated by %s (%s) in %s at %s\n",
				serial, check.Info.AgentName, check.Info.DealerName, check.Info.MarketArea,
				time.UnixMilli(check.Info.Timestamp).Format(time.RFC3339))
		case check.IsDuplicate:
			fmt.Printf("%s: DUPLICATE\n", serial)
		default:
			fmt.Printf("%s: not activated\n", serial)
		}

		if *checkStock {
			if models.IsSerialInStock(ctx, serial) {
				fmt.Printf("%s: registered in dealer stock\n", serial)
			} else {
				fmt.Printf("%s: NOT in dealer stock\n", serial)
			}
		}
	}
}

func splitSerials(csv string) []string {
	var out []string
	for _, p := range strings.Split(csv, ",") {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
