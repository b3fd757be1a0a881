package models

import "time"

type UserRole string

const (
	UserRoleEmployee   UserRole = "employee"
	UserRoleAdmin      UserRole = "admin"
	UserRoleDepartment UserRole = "department"
)

func (r UserRole) Valid() bool {
	switch r {
	case UserRoleEmployee, UserRoleAdmin, UserRoleDepartment:
		return true
	}
	return false
}

// HomeRoute is the dashboard a user lands on after login.
func (r UserRole) HomeRoute() string {
	switch r {
	case UserRoleAdmin:
		return "/admin"
	case UserRoleDepartment:
		return "/department"
	default:
		return "/employee"
	}
}

type EmployeeInfo struct {
	Quarter       string `json:"quarter"`
	Area          string `json:"area"`
	ContactNumber string `json:"contactNumber"`
}

// User is the authenticated identity held by the session store.
type User struct {
	ID           string        `json:"id"`
	Name         string        `json:"name"`
	Email        string        `json:"email"`
	Role         UserRole      `json:"role"`
	Department   string        `json:"department,omitempty"`
	EmployeeInfo *EmployeeInfo `json:"employeeInfo,omitempty"`
}

// ManagedUser is a row of the administrative user list.
type ManagedUser struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Email      string    `json:"email"`
	Role       UserRole  `json:"role"`
	Department string    `json:"department,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

type Department struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

type HigherAuthority struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Title      string `json:"title"`
	Department string `json:"department"`
	Email      string `json:"email"`
}

type Connectivity string

const (
	ConnectivityLocal   Connectivity = "local"
	ConnectivityOnline  Connectivity = "online"
	ConnectivityOffline Connectivity = "offline"
)

// Remote reports whether operations should target the gateway.
func (c Connectivity) Remote() bool {
	return c == ConnectivityLocal || c == ConnectivityOnline
}
