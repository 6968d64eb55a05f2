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

package orchestrator

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/caas-team/sitecheck/internal/logger"
)

// Runner executes external commands
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (*RunResult, error)
}

// RunResult holds the output of a command
type RunResult struct {
	Command  string
	Stdout   string
	Stderr   string
	ExitCode int
	Duration time.Duration
}

// ExecRunner runs commands as child processes
type ExecRunner struct {
	// Dir is the working directory; empty means the current one
	Dir string
	// Env is appended to the environment of the current process
	Env map[string]string
}

// Run executes the command and captures its output. A non-zero exit code is
// returned as an error carrying the command's stderr.
func (r *ExecRunner) Run(ctx context.Context, name string, args ...string) (*RunResult, error) {
	log := logger.FromContext(ctx)
	cmdStr := strings.TrimSpace(name + " " + strings.Join(args, " "))

	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = r.Dir
	if len(r.Env) > 0 {
		cmd.Env = os.Environ()
		for k, v := range r.Env {
			cmd.Env = append(cmd.Env, k+"="+v)
		}
	}
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	log.DebugContext(ctx, "Running command", "command", cmdStr)
	start := time.Now()
	err := cmd.Run()
	res := &RunResult{
		Command:  cmdStr,
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		Duration: time.Since(start),
	}

	if err == nil {
		return res, nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		res.ExitCode = exitErr.ExitCode()
		return res, fmt.Errorf("%s exited with code %d: %s", cmdStr, res.ExitCode, strings.TrimSpace(res.Stderr))
	}
	res.ExitCode = -1
	if errors.Is(err, exec.ErrNotFound) {
		return res, fmt.Errorf("%w: %w", ErrRuntimeUnavailable, err)
	}
	return res, fmt.Errorf("failed to run %s: %w", cmdStr, err)
}
