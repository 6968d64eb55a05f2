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

package lifecycle

import "errors"

var (
	// ErrStartFailed is returned when the service could not be started
	ErrStartFailed = errors.New("failed to start service")
	// ErrAlreadyActive is returned when Start is called while an instance is active
	ErrAlreadyActive = errors.New("service instance already active")
	// ErrNotReady is returned when the service did not answer within the readiness budget
	ErrNotReady = errors.New("service did not become ready")
)
