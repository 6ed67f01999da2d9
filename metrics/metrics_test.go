package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecordAPIRequest(t *testing.T) {
	before := testutil.ToFloat64(APIRequestsTotal.WithLabelValues("GET", "/api/venues", "200"))
	RecordAPIRequest("GET", "/api/venues", 200, 12*time.Millisecond)
	after := testutil.ToFloat64(APIRequestsTotal.WithLabelValues("GET", "/api/venues", "200"))
	assert.Equal(t, before+1, after)
}

func TestObserveStore_CountsErrors(t *testing.T) {
	before := testutil.ToFloat64(StoreOperationErrors.WithLabelValues("redis", "find"))

	var ok error
	ObserveStore("redis", "find", time.Now(), &ok)
	assert.Equal(t, before, testutil.ToFloat64(StoreOperationErrors.WithLabelValues("redis", "find")))

	failed := errors.New("boom")
	ObserveStore("redis", "find", time.Now(), &failed)
	assert.Equal(t, before+1, testutil.ToFloat64(StoreOperationErrors.WithLabelValues("redis", "find")))
}

func TestRecordQuery(t *testing.T) {
	before := testutil.ToFloat64(QueryGeoTotal.WithLabelValues("true"))
	RecordQuery(true, 4)
	assert.Equal(t, before+1, testutil.ToFloat64(QueryGeoTotal.WithLabelValues("true")))
}
