package metrics_test

import (
	"encoding/json"
	"net/http/httptest"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/angeloszaimis/healthbridge/internal/metrics"
)

var _ = Describe("Metrics", func() {
	var m *metrics.Metrics

	BeforeEach(func() {
		m = metrics.New()
	})

	It("counts probe outcomes per target", func() {
		m.RecordProbe("http://svc/health", true, "")
		m.RecordProbe("http://svc/health", true, "")
		m.RecordProbe("http://svc/health", false, "connection refused")

		snap := m.Snapshot()
		Expect(snap.Probes).To(HaveKey("http://svc/health"))
		Expect(snap.Probes["http://svc/health"].Successes).To(Equal(int64(2)))
		Expect(snap.Probes["http://svc/health"].Failures).To(Equal(int64(1)))
		Expect(snap.Probes["http://svc/health"].LastReason).To(Equal("connection refused"))
	})

	It("clears the failure reason after a success", func() {
		m.RecordProbe("http://svc/health", false, "timeout")
		m.RecordProbe("http://svc/health", true, "")

		Expect(m.Snapshot().Probes["http://svc/health"].LastReason).To(BeEmpty())
	})

	It("counts transitions and emitted commands", func() {
		m.RecordTransition("10.0.0.1/32", "HEALTHY", true, false)
		m.RecordTransition("10.0.0.1/32", "UNHEALTHY", false, true)
		m.RecordTransition("10.0.0.2/32", "UNHEALTHY", false, false)

		snap := m.Snapshot()
		Expect(snap.Transitions).To(Equal(int64(3)))
		Expect(snap.Announced).To(Equal(int64(1)))
		Expect(snap.Withdrawn).To(Equal(int64(1)))
		Expect(snap.Addresses["10.0.0.1/32"]).To(Equal("UNHEALTHY"))
	})

	It("tracks address state and phase without counting transitions", func() {
		m.SetAddressState("10.0.0.1/32", "UNKNOWN")
		m.SetPhase("RUNNING")

		snap := m.Snapshot()
		Expect(snap.Transitions).To(BeZero())
		Expect(snap.Addresses["10.0.0.1/32"]).To(Equal("UNKNOWN"))
		Expect(snap.Phase).To(Equal("RUNNING"))
	})

	Describe("Handler", func() {
		It("serves the snapshot as JSON", func() {
			m.SetPhase("RUNNING")
			m.RecordProbe("http://svc/health", true, "")

			rec := httptest.NewRecorder()
			req := httptest.NewRequest("GET", "/status", nil)
			m.Handler()(rec, req)

			Expect(rec.Code).To(Equal(200))
			Expect(rec.Header().Get("Content-Type")).To(Equal("application/json"))

			var snap metrics.Snapshot
			Expect(json.Unmarshal(rec.Body.Bytes(), &snap)).To(Succeed())
			Expect(snap.Phase).To(Equal("RUNNING"))
		})
	})
})
