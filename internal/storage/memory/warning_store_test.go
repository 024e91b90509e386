package memory

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nastyazhadan/limit-order-executor/internal/domain/models"
)

func TestWarningStoreKeepsNewestWithinCapacity(t *testing.T) {
	store := NewWarningStore(3)

	for i := 1; i <= 5; i++ {
		store.Add(models.Warning{
			OrderID:  fmt.Sprintf("o%d", i),
			Failures: i,
			RaisedAt: time.Now(),
		})
	}

	warnings := store.List()
	require.Len(t, warnings, 3)
	assert.Equal(t, "o5", warnings[0].OrderID)
	assert.Equal(t, "o3", warnings[2].OrderID)

	assert.Len(t, store.ForOrder("o4"), 1)
	assert.Empty(t, store.ForOrder("o1"))
}
