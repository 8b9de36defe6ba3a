package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollector(t *testing.T) {
	c := NewCollector()
	reg := prometheus.NewPedanticRegistry()
	require.NoError(t, reg.Register(c))

	c.SaleCommitted(3, 10*time.Millisecond)
	c.SaleCommitted(2, 20*time.Millisecond)
	c.SaleFailed("duplicate_sale", 5*time.Millisecond)
	c.SaleFailed("invalid_input", 0)
	c.RollbackFailed()

	assert.Equal(t, float64(2), testutil.ToFloat64(c.salesCommitted))
	assert.Equal(t, float64(5), testutil.ToFloat64(c.unitsSold))
	assert.Equal(t, float64(1), testutil.ToFloat64(c.salesFailed.WithLabelValues("duplicate_sale")))
	assert.Equal(t, float64(1), testutil.ToFloat64(c.salesFailed.WithLabelValues("invalid_input")))
	assert.Equal(t, float64(1), testutil.ToFloat64(c.rollbackFailed))
	assert.Equal(t, 6, testutil.CollectAndCount(c))
}
