package gateway

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quarters/portal/internal/models"
)

func TestAttachThreads(t *testing.T) {
	base := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	complaints := []models.Complaint{{ID: "C002"}, {ID: "C001"}}

	comments := []commentRow{
		{ComplaintID: "C002", Comment: models.Comment{ID: "CM2", CreatedAt: base.Add(2 * time.Hour)}},
		{ComplaintID: "C002", Comment: models.Comment{ID: "CM1", CreatedAt: base.Add(time.Hour)}},
		{ComplaintID: "C999", Comment: models.Comment{ID: "orphan", CreatedAt: base}},
	}
	history := []historyRow{
		{ComplaintID: "C001", StatusHistory: models.StatusHistory{ID: "SH1", Status: models.StatusNew, CreatedAt: base}},
		{ComplaintID: "C002", StatusHistory: models.StatusHistory{ID: "SH3", Status: models.StatusAssigned, CreatedAt: base.Add(time.Hour)}},
		{ComplaintID: "C002", StatusHistory: models.StatusHistory{ID: "SH2", Status: models.StatusNew, CreatedAt: base}},
	}

	out := attachThreads(complaints, comments, history)
	require.Len(t, out, 2)

	assert.Equal(t, "C002", out[0].ID)
	require.Len(t, out[0].Comments, 2)
	assert.Equal(t, "CM1", out[0].Comments[0].ID)
	assert.Equal(t, "CM2", out[0].Comments[1].ID)
	require.Len(t, out[0].StatusHistory, 2)
	assert.Equal(t, "SH2", out[0].StatusHistory[0].ID)
	assert.Equal(t, "SH3", out[0].StatusHistory[1].ID)

	assert.Empty(t, out[1].Comments)
	assert.NotNil(t, out[1].Comments)
	require.Len(t, out[1].StatusHistory, 1)
}
