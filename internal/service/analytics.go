package service

import (
	"math"
	"time"

	"quarters/portal/internal/models"
)

type Summary struct {
	Total          int                            `json:"total"`
	Completed      int                            `json:"completed"`
	Pending        int                            `json:"pending"`
	Escalated      int                            `json:"escalated"`
	ByType         map[models.ComplaintType]int   `json:"byType"`
	ByStatus       map[models.ComplaintStatus]int `json:"byStatus"`
	ResolutionRate int                            `json:"resolutionRate"`
	// AvgResolutionHours covers complaints with a completion time.
	AvgResolutionHours float64   `json:"avgResolutionHours"`
	Department         string    `json:"department,omitempty"`
	GeneratedAt        time.Time `json:"generatedAt"`
}

// Summarize computes dashboard counters. A non-empty department restricts
// the summary to complaints assigned to it.
func Summarize(list []models.Complaint, department string, now time.Time) Summary {
	sum := Summary{
		ByType:      make(map[models.ComplaintType]int, len(models.ComplaintTypes)),
		ByStatus:    make(map[models.ComplaintStatus]int),
		Department:  department,
		GeneratedAt: now,
	}
	for _, t := range models.ComplaintTypes {
		sum.ByType[t] = 0
	}

	var resolvedHours float64
	var resolved int
	for _, c := range list {
		if department != "" && c.DepartmentName != department {
			continue
		}
		sum.Total++
		sum.ByType[c.Type]++
		sum.ByStatus[c.Status]++

		switch {
		case c.Status == models.StatusCompleted:
			sum.Completed++
		case c.Status == models.StatusEscalated:
			sum.Escalated++
		case c.Status.Pending():
			sum.Pending++
		}

		if c.CompletedAt != nil && c.CompletedAt.After(c.CreatedAt) {
			resolvedHours += c.CompletedAt.Sub(c.CreatedAt).Hours()
			resolved++
		}
	}

	if sum.Total > 0 {
		sum.ResolutionRate = int(math.Round(float64(sum.Completed) / float64(sum.Total) * 100))
	}
	if resolved > 0 {
		sum.AvgResolutionHours = math.Round(resolvedHours/float64(resolved)*10) / 10
	}
	return sum
}
