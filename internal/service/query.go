package service

import (
	"sort"
	"strings"

	"quarters/portal/internal/models"
)

type ComplaintFilter struct {
	Status     models.ComplaintStatus
	Type       models.ComplaintType
	Department string
	EmployeeID string
	// Search matches id, description and employee name, case-insensitively.
	Search string
}

// FilterComplaints returns the matching complaints, newest first.
func FilterComplaints(list []models.Complaint, f ComplaintFilter) []models.Complaint {
	search := strings.ToLower(strings.TrimSpace(f.Search))

	out := make([]models.Complaint, 0, len(list))
	for _, c := range list {
		if f.Status != "" && c.Status != f.Status {
			continue
		}
		if f.Type != "" && c.Type != f.Type {
			continue
		}
		if f.Department != "" && c.DepartmentName != f.Department {
			continue
		}
		if f.EmployeeID != "" && c.EmployeeID != f.EmployeeID {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(c.ID), search) &&
			!strings.Contains(strings.ToLower(c.Description), search) &&
			!strings.Contains(strings.ToLower(c.EmployeeName), search) {
			continue
		}
		out = append(out, c)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

func (s *ComplaintService) List(f ComplaintFilter) []models.Complaint {
	return FilterComplaints(s.Snapshot(), f)
}

// ScopeFor narrows f to what user may see: employees their own complaints,
// departments the ones assigned to them.
func ScopeFor(user models.User, f ComplaintFilter) ComplaintFilter {
	switch user.Role {
	case models.UserRoleEmployee:
		f.EmployeeID = user.ID
	case models.UserRoleDepartment:
		f.Department = user.Department
	}
	return f
}
