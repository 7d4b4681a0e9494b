package models

// ReviewStatus is written as "Under Review" on create; the review pipeline
// moves it to Approved/Rejected out of band. Empty values from legacy
// documents default to under-review at the decode boundary.
type ReviewStatus string

const (
	ReviewStatusUnderReview ReviewStatus = "Under Review"
	ReviewStatusApproved    ReviewStatus = "Approved"
	ReviewStatusRejected    ReviewStatus = "Rejected"
)

type StartKeyStatus string

const (
	StartKeyStatusPending   StartKeyStatus = "pending"
	StartKeyStatusCompleted StartKeyStatus = "completed"
	StartKeyStatusFailed    StartKeyStatus = "failed"
)

type ScanType string

const (
	ScanTypeActivation ScanType = "activation"
)

type AgentRole string

const (
	AgentRoleBrandAmbassador AgentRole = "BA"
	AgentRoleTeamLeader      AgentRole = "TL"
)
