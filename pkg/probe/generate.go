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

// Package probe checks that the site stays reachable under randomized requests.
package probe

import (
	"math/rand/v2"
	"net/http"
	"slices"
)

const (
	// validRatio is the share of probes hitting paths the site serves
	validRatio = 0.8
)

var (
	// ValidPaths are the paths served by the site
	ValidPaths = []string{"/", "/style.css", "/index.html"}
	// EdgePaths are paths the site may not serve
	EdgePaths = []string{"/nonexistent.html", "/favicon.ico", "/robots.txt"}
	// Methods are the request methods a probe may use
	Methods = []string{http.MethodGet, http.MethodHead}
	// UserAgents is the pool of identities a probe may present
	UserAgents = []string{
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
		"Mozilla/5.0 (Macintosh; Intel Mac OS X 14_2) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.2 Safari/605.1.15",
		"Mozilla/5.0 (X11; Linux x86_64; rv:121.0) Gecko/20100101 Firefox/121.0",
		"Mozilla/5.0 (iPhone; CPU iPhone OS 17_2 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Mobile/15E148",
		"curl/8.5.0",
		"sitecheck-probe/1.0",
		"health-monitor/2.1",
	}
)

// Spec is a single generated request
type Spec struct {
	Index     int
	Path      string
	Method    string
	UserAgent string
}

// Valid reports whether the probe targets a path the site serves
func (s Spec) Valid() bool {
	return slices.Contains(ValidPaths, s.Path)
}

// Generate returns n probe specs for seed. Each spec only depends on seed and its
// index, so the result is the same for every call.
func Generate(seed uint64, n int) []Spec {
	specs := make([]Spec, n)
	for i := range specs {
		specs[i] = generate(seed, i)
	}
	return specs
}

func generate(seed uint64, index int) Spec {
	r := rand.New(rand.NewPCG(seed, uint64(index))) //nolint:gosec // not used for security
	paths := EdgePaths
	if r.Float64() < validRatio {
		paths = ValidPaths
	}
	return Spec{
		Index:     index,
		Path:      paths[r.IntN(len(paths))],
		Method:    Methods[r.IntN(len(Methods))],
		UserAgent: UserAgents[r.IntN(len(UserAgents))],
	}
}
