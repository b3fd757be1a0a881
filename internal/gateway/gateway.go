// Package gateway is the typed boundary to the hosted relational backend.
// Callers depend on the narrow interfaces; Postgres is the only
// implementation.
package gateway

import (
	"context"
	"time"

	"quarters/portal/internal/models"
)

type ComplaintInsert struct {
	ID              string
	EmployeeID      string
	EmployeeName    string
	EmployeeQuarter string
	EmployeeArea    string
	EmployeeContact string
	Type            models.ComplaintType
	Description     string
	Status          models.ComplaintStatus
	CreatedAt       time.Time
}

// ComplaintPatch updates only the non-nil fields. UpdatedAt is always written.
type ComplaintPatch struct {
	Status                  *models.ComplaintStatus
	DepartmentID            *string
	DepartmentName          *string
	AssignedAt              *time.Time
	EstimatedResolutionDate *time.Time
	CompletedAt             *time.Time
	EscalatedToAuthority    *string
	EscalatedAuthorityAt    *time.Time
	AuthorityResolutionDate *time.Time
	AuthorityComments       *string
	UpdatedAt               time.Time
}

type CommentInsert struct {
	ID          string
	ComplaintID string
	UserID      string
	UserName    string
	UserRole    string
	Comment     string
	CreatedAt   time.Time
}

type StatusHistoryInsert struct {
	ID          string
	ComplaintID string
	Status      models.ComplaintStatus
	UpdatedBy   string
	Comments    string
	CreatedAt   time.Time
}

// RPCResult is the JSON envelope returned by the demo auth functions.
type RPCResult struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

type AuthResult struct {
	Success bool         `json:"success"`
	Error   string       `json:"error,omitempty"`
	User    *models.User `json:"user,omitempty"`
}

type UserRecord struct {
	ID         string
	Name       string
	Email      string
	Role       models.UserRole
	Department string
	CreatedAt  time.Time
}

// UserPatch updates the non-nil fields. An empty Department clears it.
type UserPatch struct {
	Name       *string
	Role       *models.UserRole
	Department *string
}

type ComplaintGateway interface {
	// ListComplaints returns every complaint, newest first, with comments
	// and status history attached in chronological order.
	ListComplaints(ctx context.Context) ([]models.Complaint, error)
	InsertComplaint(ctx context.Context, in ComplaintInsert) error
	UpdateComplaint(ctx context.Context, id string, patch ComplaintPatch) error
	InsertComment(ctx context.Context, in CommentInsert) error
	InsertStatusHistory(ctx context.Context, in StatusHistoryInsert) error
}

type AuthGateway interface {
	CheckUserExists(ctx context.Context, email string) (RPCResult, error)
	Authenticate(ctx context.Context, email, code string) (AuthResult, error)
	EndSession(ctx context.Context, email string) error
}

type DirectoryGateway interface {
	ListDepartments(ctx context.Context) ([]models.Department, error)
	ListAuthorities(ctx context.Context) ([]models.HigherAuthority, error)
}

type UserGateway interface {
	ListUsers(ctx context.Context) ([]UserRecord, error)
	InsertUser(ctx context.Context, in UserRecord) error
	UpdateUser(ctx context.Context, id string, patch UserPatch) error
	DeleteUser(ctx context.Context, id string) error
}

type Gateway interface {
	ComplaintGateway
	AuthGateway
	DirectoryGateway
	UserGateway
	// Probe reports whether the backend answers at all.
	Probe(ctx context.Context) error
}
