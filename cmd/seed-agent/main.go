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

// seed-agent provisions a field agent account with a bcrypt PIN. Existing
// ID numbers are rejected, so this is safe to re-run.
//
// Example:
//
//	go run ./cmd/seed-agent/ \
//	  -id=A12345 \
//	  -name="Jane Wanjiku" \
//	  -pin=4821 \
//	  -dealer-code=DLR001 \
//	  -van-shop="Nairobi Van 3"
func main() {
	idNumber := flag.String("id", "", "Required: agent ID number")
	fullName := flag.String("name", "", "Required: agent full name")
	pin := flag.String("pin", "", "Required: login PIN")
	email := flag.String("email", "", "Agent email")
	phone := flag.String("phone", "", "Agent phone number")
	dealerCode := flag.String("dealer-code", "", "Dealer code")
	vanShop := flag.String("van-shop", "", "Van/shop name")
	role := flag.String("role", "BA", "Agent role (BA or TL)")
	flag.Parse()

	if strings.TrimSpace(*idNumber) == "" || strings.TrimSpace(*fullName) == "" || strings.TrimSpace(*pin) == "" {
		fmt.Fprintln(os.Stderr, "--id, --name, and --pin are required")
		os.Exit(1)
	}

	config.ConnectFirestoreWithRetry()
	if config.GetFirestore() == nil {
		fmt.Fprintln(os.Stderr, "firestore not initialized")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	agent, err := models.CreateAgent(ctx, &models.NewAgent{
		IdNumber:    *idNumber,
		FullName:    *fullName,
		Email:       *email,
		PhoneNumber: *phone,
		DealerCode:  *dealerCode,
		VanShop:     *vanShop,
		Role:        models.AgentRole(strings.ToUpper(strings.TrimSpace(*role))),
		Pin:         *pin,
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to create agent:", err)
		os.Exit(1)
	}

	fmt.Printf("created agent %s (%s) role=%s dealer=%s\n", agent.IdNumber, agent.FullName, agent.Role, agent.DealerCode)
}
