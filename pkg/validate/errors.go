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

package validate

import "fmt"

// FileNotFoundError is returned when a file referenced by a rule does not exist.
// It aborts the validation before any rule is evaluated.
type FileNotFoundError struct {
	Kind string
	Path string
}

func (e *FileNotFoundError) Error() string {
	return fmt.Sprintf("%s file not found: %s", e.Kind, e.Path)
}

// ErrUnknownFile is returned when a rule refers to a file kind without a configured path
type ErrUnknownFile struct {
	Rule string
	Kind string
}

func (e ErrUnknownFile) Error() string {
	return fmt.Sprintf("rule %q refers to unknown file %q", e.Rule, e.Kind)
}
