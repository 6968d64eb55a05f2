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
	"context"
	"os/exec"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExecRunner_Run(t *testing.T) {
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
	r := &ExecRunner{Env: map[string]string{"SITECHECK_TEST": "value"}}

	t.Run("success", func(t *testing.T) {
		res, err := r.Run(context.Background(), "sh", "-c", "echo $SITECHECK_TEST")
		require.NoError(t, err)
		assert.Equal(t, "value\n", res.Stdout)
		assert.Equal(t, 0, res.ExitCode)
	})

	t.Run("non-zero exit code", func(t *testing.T) {
		res, err := r.Run(context.Background(), "sh", "-c", "echo boom >&2; exit 3")
		require.Error(t, err)
		assert.Equal(t, 3, res.ExitCode)
		assert.Contains(t, err.Error(), "boom")
	})

	t.Run("missing binary", func(t *testing.T) {
		_, err := r.Run(context.Background(), "sitecheck-no-such-binary")
		assert.ErrorIs(t, err, ErrRuntimeUnavailable)
	})
}
