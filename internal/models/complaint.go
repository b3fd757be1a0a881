package models

import "time"

type ComplaintStatus string

const (
	StatusNew               ComplaintStatus = "new"
	StatusAssigned          ComplaintStatus = "assigned"
	StatusInProgress        ComplaintStatus = "in_progress"
	StatusCompleted         ComplaintStatus = "completed"
	StatusEscalated         ComplaintStatus = "escalated"
	StatusAuthorityAssigned ComplaintStatus = "authority_assigned"
	StatusAuthorityResolved ComplaintStatus = "authority_resolved"
)

var transitions = map[ComplaintStatus][]ComplaintStatus{
	StatusNew:               {StatusAssigned, StatusEscalated},
	StatusAssigned:          {StatusInProgress, StatusCompleted, StatusEscalated},
	StatusInProgress:        {StatusCompleted, StatusEscalated},
	StatusEscalated:         {StatusAuthorityAssigned},
	StatusAuthorityAssigned: {StatusAuthorityResolved, StatusEscalated},
	StatusCompleted:         nil,
	StatusAuthorityResolved: nil,
}

func (s ComplaintStatus) Valid() bool {
	_, ok := transitions[s]
	return ok
}

func (s ComplaintStatus) Terminal() bool {
	next, ok := transitions[s]
	return ok && len(next) == 0
}

// CanTransitionTo consults the lifecycle table. Self transitions are never allowed.
func (s ComplaintStatus) CanTransitionTo(next ComplaintStatus) bool {
	for _, candidate := range transitions[s] {
		if candidate == next {
			return true
		}
	}
	return false
}

// Pending covers the statuses still owned by a department.
func (s ComplaintStatus) Pending() bool {
	return s == StatusNew || s == StatusAssigned || s == StatusInProgress
}

type ComplaintType string

const (
	TypeWater      ComplaintType = "water"
	TypeElectrical ComplaintType = "electrical"
	TypePlumbing   ComplaintType = "plumbing"
	TypeCarpentry  ComplaintType = "carpentry"
	TypeCivil      ComplaintType = "civil"
	TypeOther      ComplaintType = "other"
)

var ComplaintTypes = []ComplaintType{TypeWater, TypeElectrical, TypePlumbing, TypeCarpentry, TypeCivil, TypeOther}

func (t ComplaintType) Valid() bool {
	for _, known := range ComplaintTypes {
		if t == known {
			return true
		}
	}
	return false
}

type Comment struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	UserName  string    `json:"user_name"`
	UserRole  string    `json:"user_role"`
	Comment   string    `json:"comment"`
	CreatedAt time.Time `json:"created_at"`
}

type StatusHistory struct {
	ID        string          `json:"id"`
	Status    ComplaintStatus `json:"status"`
	UpdatedBy string          `json:"updated_by"`
	Comments  string          `json:"comments,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

type Complaint struct {
	ID              string          `json:"id"`
	EmployeeID      string          `json:"employee_id"`
	EmployeeName    string          `json:"employee_name"`
	EmployeeQuarter string          `json:"employee_quarter"`
	EmployeeArea    string          `json:"employee_area"`
	EmployeeContact string          `json:"employee_contact"`
	Type            ComplaintType   `json:"type"`
	Description     string          `json:"description"`
	Status          ComplaintStatus `json:"status"`

	DepartmentID            string     `json:"department_id,omitempty"`
	DepartmentName          string     `json:"department_name,omitempty"`
	AssignedAt              *time.Time `json:"assigned_at,omitempty"`
	EstimatedResolutionDate *time.Time `json:"estimated_resolution_date,omitempty"`
	CompletedAt             *time.Time `json:"completed_at,omitempty"`

	EscalatedToAuthority    string     `json:"escalated_to_authority,omitempty"`
	EscalatedAuthorityAt    *time.Time `json:"escalated_authority_at,omitempty"`
	AuthorityResolutionDate *time.Time `json:"authority_resolution_date,omitempty"`
	AuthorityComments       string     `json:"authority_comments,omitempty"`

	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
	Comments      []Comment       `json:"comments"`
	StatusHistory []StatusHistory `json:"status_history"`
}

// Clone returns a copy that shares no slices with c.
func (c Complaint) Clone() Complaint {
	out := c
	out.Comments = append([]Comment(nil), c.Comments...)
	out.StatusHistory = append([]StatusHistory(nil), c.StatusHistory...)
	if out.Comments == nil {
		out.Comments = []Comment{}
	}
	if out.StatusHistory == nil {
		out.StatusHistory = []StatusHistory{}
	}
	return out
}
