package e2e

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/caas-team/sitecheck/pkg/suite"
	"github.com/caas-team/sitecheck/test"
)

func TestE2E_Suite(t *testing.T) {
	test.MarkAsLong(t)
	framework := test.NewFramework(t)

	tests := []struct {
		name    string
		restart bool
	}{
		{name: "single lifecycle"},
		{name: "with restart", restart: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e2e := framework.E2E(t, "../../docker-compose.yml")
			if tt.restart {
				e2e = e2e.WithRestart()
			}

			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
			defer cancel()
			if err := e2e.Run(ctx); err != nil {
				t.Fatalf("lifecycle failed: %v", err)
			}

			if !e2e.Report().OK() {
				for _, r := range e2e.Report().Results() {
					if !r.Passed {
						t.Errorf("%s: %s", r.Name, r.Message)
					}
				}
			}
			if _, ok := e2e.Report().Find("accessibility rate"); !ok {
				t.Error("accessibility check did not run")
			}
			if tt.restart {
				assertPassed(t, e2e.Report(), "service restart")
			}
			// the service is stopped after the run
			if resp, err := http.Get("http://localhost:8080/"); err == nil {
				_ = resp.Body.Close()
				t.Error("service still answers after the lifecycle")
			}
		})
	}
}

func assertPassed(t *testing.T, r *suite.Report, name string) {
	t.Helper()
	res, ok := r.Find(name)
	if !ok || !res.Passed {
		t.Errorf("%s did not pass: %+v", name, res)
	}
}
