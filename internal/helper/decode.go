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

package helper

import "github.com/mitchellh/mapstructure"

// Decode decodes a loosely typed input, usually the settings map of viper,
// into a value of type T.
//
// Input is weakly typed, so "30" decodes into an int and "true" into a bool.
// Strings are converted into time.Duration values ("1s") and comma separated
// strings into string slices ("/,/style.css"). Fields are matched by their
// mapstructure tag, case insensitively.
//
//	settings := map[string]any{"iterations": "120", "timeout": "5s"}
//	cfg, err := Decode[ProbeConfig](settings)
func Decode[T any](input any) (T, error) {
	var result T
	return result, DecodeInto(input, &result)
}

// DecodeInto behaves like Decode but fills out, which keeps the values
// already present for keys the input does not carry.
func DecodeInto[T any](input any, out *T) error {
	config := &mapstructure.DecoderConfig{
		Metadata:         nil,
		WeaklyTypedInput: true,
		Result:           out,
		TagName:          "mapstructure",
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
	}

	decoder, err := mapstructure.NewDecoder(config)
	if err != nil {
		return err
	}

	return decoder.Decode(input)
}
