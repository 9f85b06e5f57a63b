package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestCollector(t *testing.T) {
	c := New()

	c.SessionOpened()
	c.SessionOpened()
	c.SessionClosed()
	c.ChangeEvent("INSERT")
	c.ChangeEvent("INSERT")
	c.ChargeOutcome(true)
	c.ChargeOutcome(false)
	c.ChargeOutcome(false)
	c.ObserveRequest("GET", "/ideas", 200, 3*time.Millisecond)

	assert.Equal(t, 1.0, testutil.ToFloat64(c.Sessions))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.ChangeEvents.WithLabelValues("INSERT")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.Charges.WithLabelValues("ok")))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.Charges.WithLabelValues("error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.HTTPRequests.WithLabelValues("GET", "/ideas", "200")))
}

func TestCollector_NilIsSafe(t *testing.T) {
	var c *Collector
	assert.NotPanics(t, func() {
		c.SessionOpened()
		c.ObserveTick(time.Millisecond)
		c.ChargeOutcome(true)
		c.VoteCredited()
		c.ObserveRequest("GET", "/", 200, time.Millisecond)
	})
}

func TestCollector_Handler(t *testing.T) {
	c := New()
	c.IdeaCreated()

	w := httptest.NewRecorder()
	c.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "do4btc_ideas_created_total 1")
}
