// sitecheck
// (C) 2024, Deutsche Telekom IT GmbH
//
// Deutsche Telekom IT GmbH and all other contributors /
// copyright owners license this file to you under the Apache
// License, Version 2.0 (the "License"); you may not use this
// file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing,
// software distributed under the License is distributed on an
// "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY
// KIND, either express or implied.  See the License for the
// specific language governing permissions and limitations
// under the License.

// Package suite accumulates the named pass/fail results of a sitecheck run.
package suite

import (
	"fmt"
	"sync"
)

// Result is the outcome of a single named assertion.
type Result struct {
	Name    string `json:"name"`
	Passed  bool   `json:"passed"`
	Message string `json:"message,omitempty"`
}

// Pass returns a passed result
func Pass(name string) Result {
	return Result{Name: name, Passed: true}
}

// Fail returns a failed result with a diagnostic message
func Fail(name, format string, args ...any) Result {
	return Result{Name: name, Passed: false, Message: fmt.Sprintf(format, args...)}
}

// Check returns a passed result if ok, otherwise a failed one carrying the message
func Check(name string, ok bool, format string, args ...any) Result {
	if ok {
		return Pass(name)
	}
	return Fail(name, format, args...)
}

// Observer is notified about every result added to a report
type Observer func(Result)

// Report is an ordered accumulator of results. It is safe for concurrent use.
type Report struct {
	mu        sync.Mutex
	results   []Result
	observers []Observer
}

// NewReport creates an empty report. The observers are called in order for every added result.
func NewReport(observers ...Observer) *Report {
	return &Report{observers: observers}
}

// Add appends results to the report
func (r *Report) Add(results ...Result) {
	r.mu.Lock()
	r.results = append(r.results, results...)
	obs := r.observers
	r.mu.Unlock()

	for _, res := range results {
		for _, o := range obs {
			o(res)
		}
	}
}

// Merge folds the results of other into r. Observers of r are notified, observers of other are not.
func (r *Report) Merge(other *Report) {
	if other == nil {
		return
	}
	r.Add(other.Results()...)
}

// Results returns a copy of all results in insertion order
func (r *Report) Results() []Result {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Result, len(r.results))
	copy(out, r.results)
	return out
}

// Find returns the first result with the given name
func (r *Report) Find(name string) (Result, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, res := range r.results {
		if res.Name == name {
			return res, true
		}
	}
	return Result{}, false
}

// Summary holds the counts of a report
type Summary struct {
	Total  int
	Passed int
	Failed int
}

// Rate returns the passed share in percent
func (s Summary) Rate() float64 {
	if s.Total == 0 {
		return 0
	}
	return float64(s.Passed) / float64(s.Total) * 100
}

// Summary counts the results of the report
func (r *Report) Summary() Summary {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := Summary{Total: len(r.results)}
	for _, res := range r.results {
		if res.Passed {
			s.Passed++
		} else {
			s.Failed++
		}
	}
	return s
}

// OK reports whether no result failed
func (r *Report) OK() bool {
	return r.Summary().Failed == 0
}
