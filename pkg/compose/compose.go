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

// Package compose reads the container orchestration descriptor.
package compose

import (
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"
)

var (
	// ErrNoService is returned when a descriptor does not declare the requested service
	ErrNoService = errors.New("service not found in compose file")
	// ErrAmbiguousService is returned when no service name is given and the descriptor declares more than one
	ErrAmbiguousService = errors.New("compose file declares more than one service")
)

// Descriptor is the subset of a compose file sitecheck relies on
type Descriptor struct {
	Services map[string]Service `yaml:"services"`
}

// Service is a single service entry of a compose file
type Service struct {
	Image         string       `yaml:"image"`
	ContainerName string       `yaml:"container_name"`
	Ports         []string     `yaml:"ports"`
	Volumes       []string     `yaml:"volumes"`
	Restart       string       `yaml:"restart"`
	Healthcheck   *Healthcheck `yaml:"healthcheck"`
}

// Healthcheck is the healthcheck block of a service
type Healthcheck struct {
	Test        Command `yaml:"test"`
	Interval    string  `yaml:"interval"`
	Timeout     string  `yaml:"timeout"`
	Retries     int     `yaml:"retries"`
	StartPeriod string  `yaml:"start_period"`
}

// Command is a command that may be written as a string or as a list
type Command []string

// UnmarshalYAML accepts both forms of a compose command
func (c *Command) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		*c = Command{"CMD-SHELL", value.Value}
		return nil
	case yaml.SequenceNode:
		var list []string
		if err := value.Decode(&list); err != nil {
			return err
		}
		*c = list
		return nil
	default:
		return fmt.Errorf("line %d: command must be a string or a list", value.Line)
	}
}

// Port is a parsed port mapping
type Port struct {
	HostIP    string
	Host      int
	Container int
	Protocol  string
}

// Mount is a parsed bind mount
type Mount struct {
	Source   string
	Target   string
	ReadOnly bool
}

// Parse decodes a compose file
func Parse(b []byte) (*Descriptor, error) {
	var d Descriptor
	if err := yaml.Unmarshal(b, &d); err != nil {
		return nil, fmt.Errorf("failed to parse compose file: %w", err)
	}
	return &d, nil
}

// Load reads and decodes the compose file at path
func Load(fsys afero.Fs, path string) (*Descriptor, error) {
	b, err := afero.ReadFile(fsys, path)
	if err != nil {
		return nil, fmt.Errorf("failed to read compose file: %w", err)
	}
	return Parse(b)
}

// Service returns the named service. An empty name selects the only declared service.
func (d *Descriptor) Service(name string) (Service, error) {
	if name != "" {
		s, ok := d.Services[name]
		if !ok {
			return Service{}, fmt.Errorf("%w: %q", ErrNoService, name)
		}
		return s, nil
	}

	switch len(d.Services) {
	case 0:
		return Service{}, ErrNoService
	case 1:
		for _, s := range d.Services {
			return s, nil
		}
	}
	names := make([]string, 0, len(d.Services))
	for n := range d.Services {
		names = append(names, n)
	}
	slices.Sort(names)
	return Service{}, fmt.Errorf("%w: %s", ErrAmbiguousService, strings.Join(names, ", "))
}

// ParsedPorts returns the port mappings of the service
func (s *Service) ParsedPorts() ([]Port, error) {
	ports := make([]Port, 0, len(s.Ports))
	for _, p := range s.Ports {
		port, err := ParsePort(p)
		if err != nil {
			return nil, err
		}
		ports = append(ports, port)
	}
	return ports, nil
}

// Mounts returns the bind mounts of the service
func (s *Service) Mounts() []Mount {
	mounts := make([]Mount, 0, len(s.Volumes))
	for _, v := range s.Volumes {
		mounts = append(mounts, ParseMount(v))
	}
	return mounts
}

// ParsePort parses the short port syntax: [ip:]host:container[/protocol]
func ParsePort(spec string) (Port, error) {
	p := Port{Protocol: "tcp"}
	rest := spec
	if i := strings.LastIndex(rest, "/"); i >= 0 {
		p.Protocol = rest[i+1:]
		rest = rest[:i]
	}

	parts := strings.Split(rest, ":")
	var host, container string
	switch len(parts) {
	case 1:
		container = parts[0]
	case 2:
		host, container = parts[0], parts[1]
	case 3:
		p.HostIP, host, container = parts[0], parts[1], parts[2]
	default:
		return Port{}, fmt.Errorf("invalid port mapping %q", spec)
	}

	var err error
	if p.Container, err = strconv.Atoi(container); err != nil {
		return Port{}, fmt.Errorf("invalid container port in %q: %w", spec, err)
	}
	if host != "" {
		if p.Host, err = strconv.Atoi(host); err != nil {
			return Port{}, fmt.Errorf("invalid host port in %q: %w", spec, err)
		}
	}
	return p, nil
}

// ParseMount parses the short volume syntax: source:target[:mode]
func ParseMount(spec string) Mount {
	parts := strings.Split(spec, ":")
	m := Mount{Source: parts[0]}
	if len(parts) == 1 {
		m.Target = parts[0]
		m.Source = ""
		return m
	}
	m.Target = parts[1]
	if len(parts) > 2 {
		for _, opt := range strings.Split(parts[2], ",") {
			if opt == "ro" {
				m.ReadOnly = true
			}
		}
	}
	return m
}
