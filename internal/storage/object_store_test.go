package storage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReportKey(t *testing.T) {
	at := time.Date(2024, 6, 10, 1, 2, 3, 0, time.UTC)

	assert.Equal(t, "analytics/2024-06-10/all-010203.json", ReportKey("analytics", "", at))
	assert.Equal(t, "analytics/2024-06-10/water-supply-010203.json", ReportKey("analytics", "Water Supply", at))
}

func TestNormalizeEndpoint(t *testing.T) {
	host, tls, err := normalizeEndpoint("https://minio.internal:9000", false)
	require.NoError(t, err)
	assert.Equal(t, "minio.internal:9000", host)
	assert.True(t, tls)

	host, tls, err = normalizeEndpoint("127.0.0.1:9000", false)
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:9000", host)
	assert.False(t, tls)
}
