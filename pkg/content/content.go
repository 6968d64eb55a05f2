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

// Package content asserts what the deployed site serves.
package content

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/caas-team/sitecheck/internal/logger"
	"github.com/caas-team/sitecheck/pkg/suite"
)

// maxBody bounds the bytes read from a response
const maxBody = 1 << 20

// SecurityHeaders are the response headers the site must set with their expected values
var SecurityHeaders = map[string]string{
	"X-Frame-Options":        "SAMEORIGIN",
	"X-Content-Type-Options": "nosniff",
	"X-XSS-Protection":       "1; mode=block",
}

// securityHeaderOrder keeps the results stable
var securityHeaderOrder = []string{"X-Frame-Options", "X-Content-Type-Options", "X-XSS-Protection"}

// Checker asserts the content of the site at a base URL
type Checker struct {
	baseURL string
	client  *http.Client
	welcome string
}

// NewChecker creates a checker for the site at baseURL expecting welcome on the index page
func NewChecker(baseURL string, client *http.Client, welcome string) *Checker {
	return &Checker{baseURL: strings.TrimSuffix(baseURL, "/"), client: client, welcome: welcome}
}

type response struct {
	status int
	header http.Header
	body   string
}

// Check adds the content assertions to report. It never fails the run.
func (c *Checker) Check(ctx context.Context, report *suite.Report) error {
	report.Merge(c.Run(ctx))
	return nil
}

// Run performs all content assertions
func (c *Checker) Run(ctx context.Context) *suite.Report {
	report := suite.NewReport()

	for _, path := range []string{"/", "/index.html"} {
		name := "GET " + path + " serves the index page"
		resp, err := c.get(ctx, path)
		if err != nil {
			report.Add(suite.Fail(name, "%v", err))
			continue
		}
		report.Add(all(name,
			expectStatus(resp, http.StatusOK),
			expectHeaderContains(resp, "Content-Type", "text/html"),
			expectBodyContains(resp, c.welcome),
		))

		if path != "/" {
			continue
		}
		for _, h := range securityHeaderOrder {
			report.Add(all(h+" header", expectHeaderContains(resp, h, SecurityHeaders[h])))
		}
		report.Add(suite.Check("Server header", resp.header.Get("Server") != "", "no Server header"))
	}

	name := "GET /style.css serves the stylesheet"
	if resp, err := c.get(ctx, "/style.css"); err != nil {
		report.Add(suite.Fail(name, "%v", err))
	} else {
		report.Add(all(name,
			expectStatus(resp, http.StatusOK),
			expectHeaderContains(resp, "Content-Type", "text/css"),
			expectHeaderContains(resp, "Cache-Control", "public"),
		))
	}

	name = "GET /nonexistent.html returns 404"
	if resp, err := c.get(ctx, "/nonexistent.html"); err != nil {
		report.Add(suite.Fail(name, "%v", err))
	} else {
		report.Add(all(name, expectStatus(resp, http.StatusNotFound)))
	}
	return report
}

func (c *Checker) get(ctx context.Context, path string) (*response, error) {
	log := logger.FromContext(ctx)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, http.NoBody)
	if err != nil {
		return nil, err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		log.ErrorContext(ctx, "Content request failed", "path", path, "error", err)
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return nil, fmt.Errorf("failed to read body: %w", err)
	}
	return &response{status: resp.StatusCode, header: resp.Header, body: string(body)}, nil
}

// expectation returns an empty string when met, otherwise the reason
type expectation string

func all(name string, exps ...expectation) suite.Result {
	var reasons []string
	for _, e := range exps {
		if e != "" {
			reasons = append(reasons, string(e))
		}
	}
	return suite.Check(name, len(reasons) == 0, "%s", strings.Join(reasons, "; "))
}

func expectStatus(r *response, want int) expectation {
	if r.status == want {
		return ""
	}
	return expectation(fmt.Sprintf("status %d, want %d", r.status, want))
}

func expectHeaderContains(r *response, key, want string) expectation {
	got := r.header.Get(key)
	if strings.Contains(strings.ToLower(got), strings.ToLower(want)) {
		return ""
	}
	return expectation(fmt.Sprintf("%s is %q, want %q", key, got, want))
}

func expectBodyContains(r *response, want string) expectation {
	if strings.Contains(r.body, want) {
		return ""
	}
	return expectation(fmt.Sprintf("body does not contain %q", want))
}
