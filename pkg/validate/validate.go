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

// Package validate statically checks the web server and orchestration
// descriptor files for required directives.
package validate

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"regexp"
	"slices"
	"strings"

	"github.com/spf13/afero"

	"github.com/caas-team/sitecheck/internal/logger"
	"github.com/caas-team/sitecheck/pkg/compose"
	"github.com/caas-team/sitecheck/pkg/suite"
)

// File kinds the default rules refer to
const (
	Nginx   = "nginx"
	Compose = "compose"
)

// Rule requires a pattern to be present in a file
type Rule struct {
	// Name is the name of the resulting assertion
	Name string
	// File is the kind of file the pattern is matched against
	File string
	// Pattern must match somewhere in the file content
	Pattern *regexp.Regexp
	// Description names the directive in diagnostics
	Description string
}

// Match evaluates the rule against the content of its file
func (r Rule) Match(content []byte, path string) suite.Result {
	if r.Pattern.Match(content) {
		return suite.Pass(r.Name)
	}
	return suite.Fail(r.Name, "pattern %q (%s) not found in %s", r.Pattern.String(), r.Description, path)
}

// DescriptorRule is a structural assertion on the parsed compose file
type DescriptorRule struct {
	Name  string
	Check func(compose.Service) error
}

// Validator runs the rules against the configured files
type Validator struct {
	fs          afero.Fs
	files       map[string]string
	rules       []Rule
	structural  []DescriptorRule
	serviceName string
}

// Option configures a Validator
type Option func(*Validator)

// WithRules replaces the pattern rules
func WithRules(rules ...Rule) Option {
	return func(v *Validator) {
		v.rules = rules
	}
}

// WithDescriptorRules enables structural compose checks for the given service
func WithDescriptorRules(service string, rules ...DescriptorRule) Option {
	return func(v *Validator) {
		v.serviceName = service
		v.structural = rules
	}
}

// New creates a validator reading from fsys. files maps a file kind to its path.
func New(fsys afero.Fs, files map[string]string, opts ...Option) *Validator {
	v := &Validator{
		fs:    fsys,
		files: files,
		rules: DefaultRules(),
	}
	for _, o := range opts {
		o(v)
	}
	return v
}

// Run evaluates every rule and returns one result per rule. It never stops at
// a failing rule. A referenced file that does not exist is a fatal error of
// type *FileNotFoundError, returned before any rule runs.
func (v *Validator) Run(ctx context.Context) (*suite.Report, error) {
	log := logger.FromContext(ctx)

	contents, err := v.load()
	if err != nil {
		log.ErrorContext(ctx, "Failed to load configuration files", "error", err)
		return nil, err
	}

	report := suite.NewReport()
	for _, r := range v.rules {
		res := r.Match(contents[r.File], v.files[r.File])
		log.DebugContext(ctx, "Evaluated rule", "rule", r.Name, "passed", res.Passed)
		report.Add(res)
	}

	if len(v.structural) > 0 {
		report.Add(v.runStructural(ctx, contents[Compose])...)
	}

	return report, nil
}

// load reads every file referenced by a rule, in sorted kind order
func (v *Validator) load() (map[string][]byte, error) {
	var kinds []string
	need := func(rule, kind string) error {
		if _, ok := v.files[kind]; !ok {
			return ErrUnknownFile{Rule: rule, Kind: kind}
		}
		if !slices.Contains(kinds, kind) {
			kinds = append(kinds, kind)
		}
		return nil
	}
	for _, r := range v.rules {
		if err := need(r.Name, r.File); err != nil {
			return nil, err
		}
	}
	for _, r := range v.structural {
		if err := need(r.Name, Compose); err != nil {
			return nil, err
		}
	}
	slices.Sort(kinds)

	contents := make(map[string][]byte, len(kinds))
	for _, kind := range kinds {
		b, err := v.read(kind)
		if err != nil {
			return nil, err
		}
		contents[kind] = b
	}
	return contents, nil
}

func (v *Validator) read(kind string) ([]byte, error) {
	path := v.files[kind]
	b, err := afero.ReadFile(v.fs, path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, &FileNotFoundError{Kind: kind, Path: path}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s file %s: %w", kind, path, err)
	}
	return b, nil
}

func (v *Validator) runStructural(ctx context.Context, content []byte) []suite.Result {
	log := logger.FromContext(ctx)
	d, err := compose.Parse(content)
	if err != nil {
		log.WarnContext(ctx, "Compose file is not valid YAML", "error", err)
		return []suite.Result{suite.Fail("compose file parses", "%v", err)}
	}

	svc, err := d.Service(v.serviceName)
	if err != nil {
		return []suite.Result{suite.Fail("compose service declared", "%v", err)}
	}

	results := make([]suite.Result, 0, len(v.structural))
	for _, r := range v.structural {
		if err := r.Check(svc); err != nil {
			results = append(results, suite.Fail(r.Name, "%v", err))
			continue
		}
		results = append(results, suite.Pass(r.Name))
	}
	return results
}

// DefaultRules returns the directives the nginx server block and the compose file must contain
func DefaultRules() []Rule {
	return []Rule{
		{Name: "nginx: listen directive", File: Nginx, Pattern: regexp.MustCompile(`(?m)^\s*listen\s+80\b`), Description: "listen 80"},
		{Name: "nginx: document root", File: Nginx, Pattern: regexp.MustCompile(`(?m)^\s*root\s+/usr/share/nginx/html\s*;`), Description: "root /usr/share/nginx/html"},
		{Name: "nginx: index file", File: Nginx, Pattern: regexp.MustCompile(`(?m)^\s*index\s+[^;]*\bindex\.html\b`), Description: "index index.html"},
		{Name: "nginx: X-Frame-Options header", File: Nginx, Pattern: regexp.MustCompile(`add_header\s+X-Frame-Options\s+`), Description: "anti-framing header"},
		{Name: "nginx: X-Content-Type-Options header", File: Nginx, Pattern: regexp.MustCompile(`add_header\s+X-Content-Type-Options\s+"?nosniff"?`), Description: "anti-MIME-sniffing header"},
		{Name: "nginx: X-XSS-Protection header", File: Nginx, Pattern: regexp.MustCompile(`add_header\s+X-XSS-Protection\s+`), Description: "anti-XSS header"},
		{Name: "nginx: gzip enabled", File: Nginx, Pattern: regexp.MustCompile(`(?m)^\s*gzip\s+on\s*;`), Description: "gzip on"},
		{Name: "nginx: cache expiration", File: Nginx, Pattern: regexp.MustCompile(`(?m)^\s*expires\s+1y\s*;`), Description: "expires 1y"},
		{Name: "nginx: MIME types included", File: Nginx, Pattern: regexp.MustCompile(`(?m)^\s*include\s+\S*mime\.types\s*;`), Description: "include mime.types"},
		{Name: "nginx: custom error pages", File: Nginx, Pattern: regexp.MustCompile(`(?m)^\s*error_page\s+`), Description: "error_page"},
		{Name: "compose: port mapping", File: Compose, Pattern: regexp.MustCompile(`(?m)(?:^\s*-\s*|[\[,]\s*)["']?(?:[\d.]+:)?8080:80(?:/tcp)?["']?\s*(?:[,\]]|$)`), Description: "8080:80"},
		{Name: "compose: html volume", File: Compose, Pattern: regexp.MustCompile(`(?m):/usr/share/nginx/html(?::ro)?["']?\s*(?:[,\]]|$)`), Description: "static content mount"},
		{Name: "compose: nginx config volume", File: Compose, Pattern: regexp.MustCompile(`nginx\.conf:/etc/nginx/`), Description: "server config mount"},
		{Name: "compose: healthcheck", File: Compose, Pattern: regexp.MustCompile(`(?m)^\s*healthcheck:`), Description: "healthcheck block"},
	}
}

// DefaultDescriptorRules returns the structural compose assertions of strict mode
func DefaultDescriptorRules() []DescriptorRule {
	return []DescriptorRule{
		{Name: "compose: nginx image", Check: func(s compose.Service) error {
			if !strings.HasPrefix(s.Image, "nginx") && !strings.Contains(s.Image, "/nginx") {
				return fmt.Errorf("image %q is not an nginx variant", s.Image)
			}
			return nil
		}},
		{Name: "compose: restart policy", Check: func(s compose.Service) error {
			if s.Restart != "unless-stopped" {
				return fmt.Errorf("restart policy is %q, want %q", s.Restart, "unless-stopped")
			}
			return nil
		}},
		{Name: "compose: read-only mounts", Check: func(s compose.Service) error {
			mounts := s.Mounts()
			if len(mounts) < 2 {
				return fmt.Errorf("expected 2 bind mounts, got %d", len(mounts))
			}
			for _, m := range mounts {
				if !m.ReadOnly {
					return fmt.Errorf("mount %s is writable", m.Target)
				}
			}
			return nil
		}},
		{Name: "compose: healthcheck parameters", Check: func(s compose.Service) error {
			hc := s.Healthcheck
			if hc == nil {
				return errors.New("no healthcheck declared")
			}
			var missing []string
			if len(hc.Test) == 0 {
				missing = append(missing, "test")
			}
			if hc.Interval == "" {
				missing = append(missing, "interval")
			}
			if hc.Timeout == "" {
				missing = append(missing, "timeout")
			}
			if hc.Retries == 0 {
				missing = append(missing, "retries")
			}
			if hc.StartPeriod == "" {
				missing = append(missing, "start_period")
			}
			if len(missing) > 0 {
				return fmt.Errorf("healthcheck lacks %s", strings.Join(missing, ", "))
			}
			return nil
		}},
	}
}
