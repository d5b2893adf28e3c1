package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"hixa-chat-service/internal/models"
)

var (
	ErrProjectNotFound  = errors.New("project not found")
	ErrProposalNotFound = errors.New("proposal not found")
)

// ProjectRepository abstracts project and proposal persistence.
type ProjectRepository interface {
	CreateProject(ctx context.Context, clientID int, title string) (models.Project, error)
	GetProject(ctx context.Context, projectID int) (models.Project, error)
	CreateProposal(ctx context.Context, projectID int, engineerID int) (models.Proposal, error)
	GetProposal(ctx context.Context, proposalID int) (models.Proposal, error)
	SetProposalStatus(ctx context.Context, proposalID int, status models.ProposalStatus) error
}

// ProjectRepo is a sqlx implementation of ProjectRepository.
type ProjectRepo struct {
	db *sqlx.DB
}

// NewProjectRepo constructs a ProjectRepo.
func NewProjectRepo(db *sqlx.DB) *ProjectRepo {
	return &ProjectRepo{db: db}
}

// CreateProject stores a client project.
func (r *ProjectRepo) CreateProject(ctx context.Context, clientID int, title string) (models.Project, error) {
	var project models.Project
	err := r.db.QueryRowxContext(ctx, `INSERT INTO projects (client_id, title) VALUES ($1, $2)
        RETURNING id, client_id, title, created_at`, clientID, title).StructScan(&project)
	return project, err
}

// GetProject fetches a project by id.
func (r *ProjectRepo) GetProject(ctx context.Context, projectID int) (models.Project, error) {
	var project models.Project
	err := r.db.GetContext(ctx, &project, `SELECT id, client_id, title, created_at FROM projects WHERE id=$1`, projectID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Project{}, ErrProjectNotFound
	}
	return project, err
}

// CreateProposal stores an engineer's proposal. The (project, engineer)
// unique constraint makes a repeat submission return the existing row.
func (r *ProjectRepo) CreateProposal(ctx context.Context, projectID int, engineerID int) (models.Proposal, error) {
	if _, err := r.db.ExecContext(ctx, `INSERT INTO proposals (project_id, engineer_id) VALUES ($1, $2)
        ON CONFLICT (project_id, engineer_id) DO NOTHING`, projectID, engineerID); err != nil {
		return models.Proposal{}, err
	}

	var proposal models.Proposal
	err := r.db.GetContext(ctx, &proposal, `SELECT id, project_id, engineer_id, status, created_at
        FROM proposals WHERE project_id=$1 AND engineer_id=$2`, projectID, engineerID)
	return proposal, err
}

// GetProposal fetches a proposal by id.
func (r *ProjectRepo) GetProposal(ctx context.Context, proposalID int) (models.Proposal, error) {
	var proposal models.Proposal
	err := r.db.GetContext(ctx, &proposal, `SELECT id, project_id, engineer_id, status, created_at FROM proposals WHERE id=$1`, proposalID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Proposal{}, ErrProposalNotFound
	}
	return proposal, err
}

// SetProposalStatus updates the proposal lifecycle state.
func (r *ProjectRepo) SetProposalStatus(ctx context.Context, proposalID int, status models.ProposalStatus) error {
	res, err := r.db.ExecContext(ctx, `UPDATE proposals SET status=$2 WHERE id=$1`, proposalID, status)
	if err != nil {
		return err
	}
	count, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if count == 0 {
		return ErrProposalNotFound
	}
	return nil
}
