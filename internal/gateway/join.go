package gateway

import (
	"sort"

	"quarters/portal/internal/models"
)

type commentRow struct {
	ComplaintID string
	models.Comment
}

type historyRow struct {
	ComplaintID string
	models.StatusHistory
}

// attachThreads distributes comments and history rows onto their
// complaints. Children of unknown complaints are dropped. Threads are
// ordered oldest first regardless of input order.
func attachThreads(complaints []models.Complaint, comments []commentRow, history []historyRow) []models.Complaint {
	index := make(map[string]int, len(complaints))
	for i := range complaints {
		complaints[i].Comments = []models.Comment{}
		complaints[i].StatusHistory = []models.StatusHistory{}
		index[complaints[i].ID] = i
	}

	for _, row := range comments {
		if i, ok := index[row.ComplaintID]; ok {
			complaints[i].Comments = append(complaints[i].Comments, row.Comment)
		}
	}
	for _, row := range history {
		if i, ok := index[row.ComplaintID]; ok {
			complaints[i].StatusHistory = append(complaints[i].StatusHistory, row.StatusHistory)
		}
	}

	for i := range complaints {
		c := &complaints[i]
		sort.SliceStable(c.Comments, func(a, b int) bool {
			return c.Comments[a].CreatedAt.Before(c.Comments[b].CreatedAt)
		})
		sort.SliceStable(c.StatusHistory, func(a, b int) bool {
			return c.StatusHistory[a].CreatedAt.Before(c.StatusHistory[b].CreatedAt)
		})
	}
	return complaints
}
