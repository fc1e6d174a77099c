package services

import (
	"backend/models"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuditEnqueueAfterShutdownIsDropped(t *testing.T) {
	svc := NewAuditService(nil)
	require.NoError(t, svc.Shutdown(time.Second))

	assert.NotPanics(t, func() {
		svc.Enqueue(models.AuditEntry{QuoteID: 1, EventName: "created"})
	})
}

func TestAuditShutdownIsIdempotent(t *testing.T) {
	svc := NewAuditService(nil)

	require.NoError(t, svc.Shutdown(time.Second))
	require.NoError(t, svc.Shutdown(time.Second))
}
