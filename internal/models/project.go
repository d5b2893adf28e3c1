package models

import "time"

// ProposalStatus tracks the lifecycle of an engineer's proposal on a project.
type ProposalStatus string

const (
	ProposalPending  ProposalStatus = "pending"
	ProposalAccepted ProposalStatus = "accepted"
	ProposalRejected ProposalStatus = "rejected"
)

// Project is a client-owned marketplace project.
type Project struct {
	ID        int       `db:"id" json:"id"`
	ClientID  int       `db:"client_id" json:"client_id"`
	Title     string    `db:"title" json:"title"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Proposal is an engineer's bid on a project. At most one per
// (project, engineer) pair.
type Proposal struct {
	ID         int            `db:"id" json:"id"`
	ProjectID  int            `db:"project_id" json:"project_id"`
	EngineerID int            `db:"engineer_id" json:"engineer_id"`
	Status     ProposalStatus `db:"status" json:"status"`
	CreatedAt  time.Time      `db:"created_at" json:"created_at"`
}
