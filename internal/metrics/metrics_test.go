package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestStatusClass(t *testing.T) {
	assert.Equal(t, "2xx", statusClass(201))
	assert.Equal(t, "3xx", statusClass(302))
	assert.Equal(t, "4xx", statusClass(404))
	assert.Equal(t, "5xx", statusClass(503))
}

func TestRecordHTTPRequest(t *testing.T) {
	before := testutil.CollectAndCount(HTTPRequestDuration)
	RecordHTTPRequest("GET", "/metrics-test", 200, 5*time.Millisecond)
	assert.Equal(t, before+1, testutil.CollectAndCount(HTTPRequestDuration))
}

func TestChatCounters(t *testing.T) {
	c := ChatSessions.WithLabelValues("started")
	before := testutil.ToFloat64(c)
	c.Inc()
	assert.Equal(t, before+1, testutil.ToFloat64(c))
}
