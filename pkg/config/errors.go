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

package config

import "errors"

var (
	// ErrInvalidBaseURL is returned when the target base url is invalid
	ErrInvalidBaseURL = errors.New("invalid target base url")
	// ErrInvalidIterations is returned when fewer probes than required are configured
	ErrInvalidIterations = errors.New("invalid probe iterations")
	// ErrInvalidWorkers is returned when the probe worker pool width is invalid
	ErrInvalidWorkers = errors.New("invalid probe workers")
	// ErrInvalidThreshold is returned when the success threshold is not within (0, 1]
	ErrInvalidThreshold = errors.New("invalid probe threshold")
	// ErrInvalidTimeout is returned when a timeout is not positive
	ErrInvalidTimeout = errors.New("invalid timeout")
	// ErrInvalidPoll is returned when a polling loop is not bounded
	ErrInvalidPoll = errors.New("invalid polling configuration")
	// ErrInvalidSimulate is returned when the simulation mode is unknown
	ErrInvalidSimulate = errors.New("invalid simulation mode")
	// ErrInvalidFilePath is returned when a descriptor file path is empty
	ErrInvalidFilePath = errors.New("invalid file path")
)
