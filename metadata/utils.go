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

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/cast"
)

// GetMetadataProperty returns a property from the metadata map, with support for case-insensitive keys and aliases.
func GetMetadataProperty(props map[string]string, keys ...string) (val string, ok bool) {
	_, val, ok = GetMetadataPropertyWithMatchedKey(props, keys...)
	return val, ok
}

// GetMetadataPropertyWithMatchedKey returns a property from the metadata map, with support for case-insensitive keys and aliases,
// while returning the original matching metadata field key.
func GetMetadataPropertyWithMatchedKey(props map[string]string, keys ...string) (key string, val string, ok bool) {
	lcProps := make(map[string]string, len(props))
	for k := range props {
		lcProps[strings.ToLower(k)] = k
	}
	for _, k := range keys {
		key, ok = lcProps[strings.ToLower(k)]
		if ok {
			return key, props[key], true
		}
	}
	return "", "", false
}

// DecodeMetadata decodes a queue metadata map into a struct.
// This is an extension of mitchellh/mapstructure which also supports decoding durations,
// truthy booleans and aliased keys declared with the "mapstructurealiases" tag.
func DecodeMetadata(input any, result any) error {
	// accept a struct carrying a Properties map in place of the map itself
	v := reflect.ValueOf(input)
	if v.Kind() == reflect.Struct {
		f := v.FieldByName("Properties")
		if f.IsValid() && f.Kind() == reflect.Map {
			input = f.Interface()
		}
	}

	inputMap, err := cast.ToStringMapStringE(input)
	if err != nil {
		return fmt.Errorf("input object cannot be cast to map[string]string: %w", err)
	}

	return decodeMetadataMap(inputMap, result)
}

func decodeMetadataMap(inputMap map[string]string, result any) error {
	// Work on a copy so alias resolution never mutates the caller's map
	md := make(map[string]string, len(inputMap))
	for k, v := range inputMap {
		md[k] = v
	}

	err := resolveAliases(md, reflect.TypeOf(result))
	if err != nil {
		return fmt.Errorf("failed to resolve aliases: %w", err)
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			toTimeDurationHookFunc(),
			toTruthyBoolHookFunc(),
		),
		Metadata:         nil,
		Result:           result,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return err
	}
	return decoder.Decode(md)
}

func resolveAliases(md map[string]string, t reflect.Type) error {
	keys := make(map[string]string, len(md))
	for k := range md {
		lk := strings.ToLower(k)

		// Check if there are duplicate keys after lowercasing
		_, ok := keys[lk]
		if ok {
			return fmt.Errorf("key %s is duplicate in the metadata", lk)
		}

		keys[lk] = k
	}

	// Error if result is not pointer to struct, or pointer to pointer to struct
	if t == nil || t.Kind() != reflect.Pointer {
		return fmt.Errorf("not a pointer: %v", t)
	}
	t = t.Elem()
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return fmt.Errorf("not a struct: %s", t.Kind().String())
	}

	resolveAliasesInType(md, keys, t)

	return nil
}

func resolveAliasesInType(md map[string]string, keys map[string]string, t reflect.Type) {
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)

		tag := field.Tag.Get("mapstructure")
		if !field.IsExported() || tag == "" {
			continue
		}

		if tag == ",squash" {
			resolveAliasesInType(md, keys, field.Type)
			continue
		}

		// An explicit value beats any alias
		if _, ok := keys[strings.ToLower(tag)]; ok {
			continue
		}

		aliases := strings.ToLower(field.Tag.Get("mapstructurealiases"))
		if aliases == "" {
			continue
		}

		for _, alias := range strings.Split(aliases, ",") {
			mdKey, ok := keys[strings.TrimSpace(alias)]
			if !ok {
				continue
			}
			md[tag] = md[mdKey]
			break
		}
	}
}
