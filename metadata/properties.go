/*
Copyright 2026 The Dapr Authors
Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at
    http://www.apache.org/licenses/LICENSE-2.0
Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package metadata

import "strings"

// Properties is the raw configuration of a queue or back off policy. Keys are
// matched case-insensitively by every method.
type Properties map[string]string

// GetProperty returns the value of the first of keys that is set.
func (p Properties) GetProperty(keys ...string) (val string, ok bool) {
	return GetMetadataProperty(p, keys...)
}

// GetPropertyWithMatchedKey is like GetProperty but also returns the key as
// spelled in p.
func (p Properties) GetPropertyWithMatchedKey(keys ...string) (key string, val string, ok bool) {
	return GetMetadataPropertyWithMatchedKey(p, keys...)
}

// Merge returns a copy of p, plus every entry of defaults whose key p does
// not hold in any casing. Neither p nor defaults is modified.
func (p Properties) Merge(defaults Properties) Properties {
	out := make(Properties, len(p)+len(defaults))
	seen := make(map[string]struct{}, len(p))
	for k, v := range p {
		out[k] = v
		seen[strings.ToLower(k)] = struct{}{}
	}
	for k, v := range defaults {
		if _, ok := seen[strings.ToLower(k)]; !ok {
			out[k] = v
		}
	}
	return out
}

// Decode decodes p into result, which must be a pointer to a struct tagged
// for mapstructure. Aliases and durations are handled as in DecodeMetadata.
func (p Properties) Decode(result any) error {
	return decodeMetadataMap(p, result)
}
