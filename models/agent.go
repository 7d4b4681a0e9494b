package models

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
	"time"

	"bitbucket.org/mmdatafocus/simfield_backend/utils"
)

// Agent is a field agent's profile from the users collection. Legacy accounts
// carry a SHA-256 hex PIN digest (written by the Android app) in pinHash;
// accounts seeded by this service carry a bcrypt hash in pinBcrypt. Login
// accepts both so the Android-provisioned fleet keeps working.
type Agent struct {
	IdNumber      string    `json:"idNumber"`
	FullName      string    `json:"fullName"`
	Email         string    `json:"email"`
	PhoneNumber   string    `json:"phoneNumber"`
	DealerCode    string    `json:"dealerCode"`
	VanShop       string    `json:"vanShop"`
	Role          AgentRole `json:"role"`
	AccountStatus string    `json:"accountStatus"`
}

var (
	ErrorInvalidCredentials = errors.New("Invalid credentials. Please check your ID number and PIN.")
	ErrorAccountInactive    = errors.New("Account is not active. Please contact support.")
	ErrorRoleNotAllowed     = errors.New("Access denied. This portal is for Brand Ambassadors only.")
)

func agentFromDoc(doc Document) Agent {
	data := doc.Data
	return Agent{
		IdNumber:      docString(data, "idNumber"),
		FullName:      docString(data, "fullName"),
		Email:         docString(data, "email"),
		PhoneNumber:   docString(data, "phoneNumber"),
		DealerCode:    docString(data, "dealerCode"),
		VanShop:       docString(data, "vanShop"),
		Role:          AgentRole(docString(data, "role")),
		AccountStatus: docString(data, "accountStatus"),
	}
}

func (a Agent) Identity() AgentIdentity {
	return AgentIdentity{
		IdNumber:    a.IdNumber,
		FullName:    a.FullName,
		Email:       a.Email,
		PhoneNumber: a.PhoneNumber,
		DealerCode:  a.DealerCode,
		VanShop:     a.VanShop,
	}
}

func legacyPinDigest(pin string) string {
	sum := sha256.Sum256([]byte(pin))
	return hex.EncodeToString(sum[:])
}

func verifyAgentPin(doc Document, pin string) bool {
	if hashed := docString(doc.Data, "pinBcrypt"); hashed != "" {
		return utils.ComparePin(hashed, pin) == nil
	}
	if digest := docString(doc.Data, "pinHash"); digest != "" {
		return digest == legacyPinDigest(pin)
	}
	return false
}

// AgentLogin authenticates an ID number + PIN pair and returns the profile
// plus a session token. ID numbers are stored uppercased.
func AgentLogin(ctx context.Context, idNumber string, pin string) (*Agent, string, error) {
	store, err := getDocStore()
	if err != nil {
		return nil, "", err
	}

	docs, err := store.QueryEqual(ctx, collectionAgents, "idNumber", strings.ToUpper(strings.TrimSpace(idNumber)), 1)
	if err != nil {
		return nil, "", err
	}
	if len(docs) == 0 || !verifyAgentPin(docs[0], pin) {
		return nil, "", ErrorInvalidCredentials
	}

	agent := agentFromDoc(docs[0])
	if agent.AccountStatus != "Active" {
		return nil, "", ErrorAccountInactive
	}
	if agent.Role != AgentRoleBrandAmbassador {
		return nil, "", ErrorRoleNotAllowed
	}

	token, err := utils.JwtGenerate(agent.IdNumber, agent.FullName, string(agent.Role))
	if err != nil {
		return nil, "", err
	}
	return &agent, token, nil
}

// GetAgent fetches one agent profile by ID number.
func GetAgent(ctx context.Context, idNumber string) (*Agent, error) {
	store, err := getDocStore()
	if err != nil {
		return nil, err
	}

	docs, err := store.QueryEqual(ctx, collectionAgents, "idNumber", strings.ToUpper(strings.TrimSpace(idNumber)), 1)
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, utils.ErrorRecordNotFound
	}
	agent := agentFromDoc(docs[0])
	return &agent, nil
}

// NewAgent is the seed-agent input. PIN is hashed with bcrypt before storage;
// the legacy SHA-256 field is never written by this service.
type NewAgent struct {
	IdNumber    string    `json:"id_number" binding:"required"`
	FullName    string    `json:"full_name" binding:"required"`
	Email       string    `json:"email"`
	PhoneNumber string    `json:"phone_number"`
	DealerCode  string    `json:"dealer_code"`
	VanShop     string    `json:"van_shop"`
	Role        AgentRole `json:"role"`
	Pin         string    `json:"pin" binding:"required"`
}

// CreateAgent provisions a new agent account. Duplicate ID numbers are
// rejected: the ID number is the agent's identity everywhere downstream.
func CreateAgent(ctx context.Context, input *NewAgent) (*Agent, error) {
	store, err := getDocStore()
	if err != nil {
		return nil, err
	}

	idNumber := strings.ToUpper(strings.TrimSpace(input.IdNumber))
	existing, err := store.QueryEqual(ctx, collectionAgents, "idNumber", idNumber, 1)
	if err != nil {
		return nil, err
	}
	if len(existing) > 0 {
		return nil, errors.New("agent with this ID number already exists")
	}

	hashed, err := utils.HashPin(input.Pin)
	if err != nil {
		return nil, err
	}

	role := input.Role
	if role == "" {
		role = AgentRoleBrandAmbassador
	}

	agent := Agent{
		IdNumber:      idNumber,
		FullName:      input.FullName,
		Email:         input.Email,
		PhoneNumber:   utils.NormalizePhoneNumber(input.PhoneNumber, utils.CountryCode),
		DealerCode:    input.DealerCode,
		VanShop:       input.VanShop,
		Role:          role,
		AccountStatus: "Active",
	}

	doc := map[string]any{
		"idNumber":      agent.IdNumber,
		"fullName":      agent.FullName,
		"email":         agent.Email,
		"phoneNumber":   agent.PhoneNumber,
		"dealerCode":    agent.DealerCode,
		"vanShop":       agent.VanShop,
		"role":          string(agent.Role),
		"accountStatus": agent.AccountStatus,
		"pinBcrypt":     string(hashed),
		"createdAt":     time.Now().UnixMilli(),
	}
	if _, err := store.Add(ctx, collectionAgents, doc); err != nil {
		return nil, err
	}
	return &agent, nil
}
