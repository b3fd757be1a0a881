package service

import (
	"time"

	"quarters/portal/internal/models"
)

// Identities accepted while the portal runs without its backend. Keys are
// lower-cased local parts; the configured domain is appended at lookup.
var demoUsers = map[string]models.User{
	"admin": {
		ID:   "admin-1",
		Name: "Admin User",
		Role: models.UserRoleAdmin,
	},
	"employee": {
		ID:   "employee-1",
		Name: "John Employee",
		Role: models.UserRoleEmployee,
		EmployeeInfo: &models.EmployeeInfo{
			Quarter:       "A-123",
			Area:          "Sector 5",
			ContactNumber: "9876543210",
		},
	},
	"water": {
		ID:         "dept-water",
		Name:       "Water Department",
		Role:       models.UserRoleDepartment,
		Department: "Water Department",
	},
	"electrical": {
		ID:         "dept-electrical",
		Name:       "Electrical Department",
		Role:       models.UserRoleDepartment,
		Department: "Electrical Department",
	},
	"plumbing": {
		ID:         "dept-plumbing",
		Name:       "Plumbing Department",
		Role:       models.UserRoleDepartment,
		Department: "Plumbing Department",
	},
}

func lookupDemoUser(email, domain string) (models.User, bool) {
	if len(email) <= len(domain) {
		return models.User{}, false
	}
	user, ok := demoUsers[email[:len(email)-len(domain)]]
	if !ok {
		return models.User{}, false
	}
	user.Email = email
	if user.EmployeeInfo != nil {
		info := *user.EmployeeInfo
		user.EmployeeInfo = &info
	}
	return user, true
}

// SeedComplaints is the dataset shown offline before anything was cached.
func SeedComplaints(now time.Time) []models.Complaint {
	day := 24 * time.Hour
	c2Assigned := now.Add(-20 * time.Hour)
	c2Estimate := now.Add(day)

	return []models.Complaint{
		{
			ID:              "C001",
			EmployeeID:      "employee-1",
			EmployeeName:    "John Employee",
			EmployeeQuarter: "A-123",
			EmployeeArea:    "Sector 5",
			EmployeeContact: "9876543210",
			Type:            models.TypeWater,
			Description:     "No water supply since morning",
			Status:          models.StatusNew,
			CreatedAt:       now.Add(-day),
			UpdatedAt:       now.Add(-day),
			Comments:        []models.Comment{},
			StatusHistory: []models.StatusHistory{
				{ID: "SH001", Status: models.StatusNew, UpdatedBy: "System", CreatedAt: now.Add(-day)},
			},
		},
		{
			ID:                      "C002",
			EmployeeID:              "employee-1",
			EmployeeName:            "John Employee",
			EmployeeQuarter:         "A-123",
			EmployeeArea:            "Sector 5",
			EmployeeContact:         "9876543210",
			Type:                    models.TypeElectrical,
			Description:             "Power fluctuation in the quarter",
			Status:                  models.StatusAssigned,
			DepartmentID:            "dept-electrical",
			DepartmentName:          "Electrical Department",
			AssignedAt:              &c2Assigned,
			EstimatedResolutionDate: &c2Estimate,
			CreatedAt:               now.Add(-2 * day),
			UpdatedAt:               c2Assigned,
			Comments: []models.Comment{
				{
					ID:        "CM001",
					UserID:    "admin-1",
					UserName:  "Admin User",
					UserRole:  string(models.UserRoleAdmin),
					Comment:   "Assigned to Electrical Department",
					CreatedAt: c2Assigned,
				},
			},
			StatusHistory: []models.StatusHistory{
				{ID: "SH002", Status: models.StatusNew, UpdatedBy: "System", CreatedAt: now.Add(-2 * day)},
				{ID: "SH003", Status: models.StatusAssigned, UpdatedBy: "Admin User", Comments: "Assigned to Electrical Department", CreatedAt: c2Assigned},
			},
		},
	}
}

func seedUsers(domain string) []models.ManagedUser {
	return []models.ManagedUser{
		{ID: "1", Name: "Admin User", Email: "admin" + domain, Role: models.UserRoleAdmin, CreatedAt: time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)},
		{ID: "2", Name: "John Employee", Email: "employee" + domain, Role: models.UserRoleEmployee, CreatedAt: time.Date(2024, 1, 20, 10, 0, 0, 0, time.UTC)},
		{ID: "3", Name: "Water Department", Email: "water" + domain, Role: models.UserRoleDepartment, Department: "Water Department", CreatedAt: time.Date(2024, 1, 10, 10, 0, 0, 0, time.UTC)},
		{ID: "4", Name: "Electrical Department", Email: "electrical" + domain, Role: models.UserRoleDepartment, Department: "Electrical Department", CreatedAt: time.Date(2024, 1, 10, 10, 0, 0, 0, time.UTC)},
	}
}

func builtinDepartments(domain string) []models.Department {
	return []models.Department{
		{ID: "dept-carpentry", Name: "Carpentry Department", Email: "carpentry" + domain},
		{ID: "dept-civil", Name: "Civil Department", Email: "civil" + domain},
		{ID: "dept-electrical", Name: "Electrical Department", Email: "electrical" + domain},
		{ID: "dept-plumbing", Name: "Plumbing Department", Email: "plumbing" + domain},
		{ID: "dept-water", Name: "Water Department", Email: "water" + domain},
	}
}

func builtinAuthorities(domain string) []models.HigherAuthority {
	return []models.HigherAuthority{
		{ID: "auth-1", Name: "R. K. Sharma", Title: "General Manager", Department: "Civil", Email: "gm.civil" + domain},
		{ID: "auth-2", Name: "S. Banerjee", Title: "Chief Engineer", Department: "Electrical", Email: "ce.electrical" + domain},
		{ID: "auth-3", Name: "A. Verma", Title: "Area Manager", Department: "Water", Email: "am.water" + domain},
	}
}
