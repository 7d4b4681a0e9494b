package models_test

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"testing"

	"bitbucket.org/mmdatafocus/simfield_backend/models"
)

func legacyAgentDoc(idNumber string, pin string, status string, role string) map[string]any {
	sum := sha256.Sum256([]byte(pin))
	return map[string]any{
		"idNumber":      idNumber,
		"fullName":      "Jane Wanjiku",
		"dealerCode":    "DLR001",
		"vanShop":       "Nairobi Van 3",
		"role":          role,
		"accountStatus": status,
		"pinHash":       hex.EncodeToString(sum[:]),
	}
}

func TestAgentLoginWithLegacyPinHash(t *testing.T) {
	ds, _ := installFakes(t)
	ds.seed("users", legacyAgentDoc("A001", "4821", "Active", "BA"))

	agent, token, err := models.AgentLogin(context.Background(), "a001", "4821")
	if err != nil {
		t.Fatalf("AgentLogin: %v", err)
	}
	if token == "" {
		t.Fatal("login must return a session token")
	}
	if agent.IdNumber != "A001" || agent.FullName != "Jane Wanjiku" {
		t.Fatalf("agent = %+v", agent)
	}
}

func TestAgentLoginRejectsWrongPin(t *testing.T) {
	ds, _ := installFakes(t)
	ds.seed("users", legacyAgentDoc("A001", "4821", "Active", "BA"))

	if _, _, err := models.AgentLogin(context.Background(), "A001", "0000"); err != models.ErrorInvalidCredentials {
		t.Fatalf("err = %v, want ErrorInvalidCredentials", err)
	}
}

func TestAgentLoginRejectsUnknownAgent(t *testing.T) {
	installFakes(t)

	if _, _, err := models.AgentLogin(context.Background(), "ZZZZ", "4821"); err != models.ErrorInvalidCredentials {
		t.Fatalf("err = %v, want ErrorInvalidCredentials", err)
	}
}

func TestAgentLoginRejectsInactiveAccount(t *testing.T) {
	ds, _ := installFakes(t)
	ds.seed("users", legacyAgentDoc("A001", "4821", "Suspended", "BA"))

	if _, _, err := models.AgentLogin(context.Background(), "A001", "4821"); err != models.ErrorAccountInactive {
		t.Fatalf("err = %v, want ErrorAccountInactive", err)
	}
}

func TestAgentLoginRejectsNonBrandAmbassador(t *testing.T) {
	ds, _ := installFakes(t)
	ds.seed("users", legacyAgentDoc("A001", "4821", "Active", "TL"))

	if _, _, err := models.AgentLogin(context.Background(), "A001", "4821"); err != models.ErrorRoleNotAllowed {
		t.Fatalf("err = %v, want ErrorRoleNotAllowed", err)
	}
}

func TestCreateAgentThenBcryptLogin(t *testing.T) {
	ds, _ := installFakes(t)

	created, err := models.CreateAgent(context.Background(), &models.NewAgent{
		IdNumber: "a042",
		FullName: "Otieno Odhiambo",
		Pin:      "9137",
	})
	if err != nil {
		t.Fatalf("CreateAgent: %v", err)
	}
	if created.IdNumber != "A042" {
		t.Fatalf("id number must be uppercased, got %q", created.IdNumber)
	}
	if created.Role != models.AgentRoleBrandAmbassador {
		t.Fatalf("default role = %q, want BA", created.Role)
	}

	doc := ds.collections["users"][0].Data
	if _, ok := doc["pinHash"]; ok {
		t.Fatal("new accounts must never carry the legacy SHA-256 digest")
	}
	if doc["pinBcrypt"] == "" {
		t.Fatal("new accounts must carry a bcrypt hash")
	}

	if _, _, err := models.AgentLogin(context.Background(), "A042", "9137"); err != nil {
		t.Fatalf("bcrypt login: %v", err)
	}
	if _, _, err := models.AgentLogin(context.Background(), "A042", "0000"); err != models.ErrorInvalidCredentials {
		t.Fatalf("wrong pin err = %v, want ErrorInvalidCredentials", err)
	}
}

func TestCreateAgentRejectsDuplicateIdNumber(t *testing.T) {
	ds, _ := installFakes(t)
	ds.seed("users", legacyAgentDoc("A001", "4821", "Active", "BA"))

	if _, err := models.CreateAgent(context.Background(), &models.NewAgent{
		IdNumber: "a001",
		FullName: "Someone Else",
		Pin:      "1111",
	}); err == nil {
		t.Fatal("duplicate ID number must be rejected")
	}
}
