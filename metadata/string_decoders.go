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
	"errors"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
)

// IsTruthy returns true if a string is a truthy value.
// Truthy values are "y", "yes", "true", "t", "on", "1" (case-insensitive); everything else is false.
func IsTruthy(val string) bool {
	val = strings.TrimSpace(val)
	if len(val) > 4 {
		return false
	}
	switch strings.ToLower(val) {
	case "y", "yes", "true", "t", "on", "1":
		return true
	default:
		return false
	}
}

func toTruthyBoolHookFunc() mapstructure.DecodeHookFunc {
	stringType := reflect.TypeOf("")
	boolType := reflect.TypeOf(true)

	return func(
		f reflect.Type,
		t reflect.Type,
		data any,
	) (any, error) {
		if f == stringType && t == boolType {
			return IsTruthy(data.(string)), nil
		}
		return data, nil
	}
}

// parseDuration accepts Go duration strings and, as a fallback, a bare
// integer number of seconds.
func parseDuration(input string) (time.Duration, error) {
	input = strings.TrimSpace(input)
	val, err := time.ParseDuration(input)
	if err == nil {
		return val, nil
	}
	seconds, errParse := strconv.ParseInt(input, 10, 0)
	if errParse != nil {
		return 0, errors.Join(err, errParse)
	}
	return time.Duration(seconds) * time.Second, nil
}

func toTimeDurationHookFunc() mapstructure.DecodeHookFunc {
	stringType := reflect.TypeOf("")
	durationType := reflect.TypeOf(time.Duration(0))

	return func(
		f reflect.Type,
		t reflect.Type,
		data any,
	) (any, error) {
		if f != stringType || t != durationType {
			return data, nil
		}
		s := data.(string)
		if strings.TrimSpace(s) == "" {
			return time.Duration(0), nil
		}
		return parseDuration(s)
	}
}
