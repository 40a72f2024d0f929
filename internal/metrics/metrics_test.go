package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"poolpack/internal/artifacts"
)

func scrape(t *testing.T, p *Prom) string {
	t.Helper()
	rec := httptest.NewRecorder()
	p.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	if err != nil {
		t.Fatal(err)
	}
	return string(body)
}

func assertLine(t *testing.T, out, line string) {
	t.Helper()
	for _, l := range strings.Split(out, "\n") {
		if l == line {
			return
		}
	}
	t.Fatalf("metrics output missing %q:\n%s", line, out)
}

func TestPromCounters(t *testing.T) {
	p := NewProm("pp")
	p.BuildStarted()
	assertLine(t, scrape(t, p), "pp_builds_active 1")

	p.ItemArchived(ItemArchived, 100)
	p.ItemArchived(ItemPlaceholder, 0)
	p.BuildFinished(OutcomeComplete, 0.5)
	p.Retrieval(http.StatusNotFound)
	p.ArtifactEvicted(artifacts.Artifact{Locator: "x"})

	out := scrape(t, p)
	assertLine(t, out, "pp_builds_active 0")
	assertLine(t, out, `pp_builds_total{outcome="complete"} 1`)
	assertLine(t, out, `pp_items_total{result="placeholder"} 1`)
	assertLine(t, out, `pp_items_total{result="archived"} 1`)
	assertLine(t, out, "pp_archived_bytes_total 100")
	assertLine(t, out, `pp_retrievals_total{status="Not Found"} 1`)
	assertLine(t, out, "pp_artifacts_evicted_total 1")
}

func TestPromInstancesAreIndependent(t *testing.T) {
	a := NewProm("pp")
	b := NewProm("pp")
	a.BuildStarted()
	assertLine(t, scrape(t, b), "pp_builds_active 0")
}

func TestNoopSatisfiesRecorder(t *testing.T) {
	var r Recorder = Noop{}
	r.BuildStarted()
	r.BuildFinished(OutcomeFailed, 1)
	var _ Recorder = (*Prom)(nil)
}
