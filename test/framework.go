package test

import (
	"context"
	"testing"
)

// Runner is a test runner.
type Runner interface {
	// Run runs the test.
	Run(ctx context.Context) error
}

// Framework is a test framework.
// It provides a way to run various tests.
type Framework struct {
	t *testing.T
}

// NewFramework creates a new test framework.
func NewFramework(t *testing.T) *Framework {
	t.Helper()
	return &Framework{t: t}
}

// E2E creates a new end-to-end test against the compose file at composeFile.
// If the test is run in short mode or no container runtime is available, it will be skipped.
func (f *Framework) E2E(t *testing.T, composeFile string) *E2E {
	if testing.Short() {
		t.Skip("skipping e2e tests")
		return nil
	}

	e := newE2E(t, composeFile)
	if err := e.runtime.Available(context.Background()); err != nil {
		t.Skipf("skipping e2e tests: %v", err)
		return nil
	}
	return e
}
