// Copyright 2023 Intel Corporation. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package config

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// Duration is a time.Duration which implements JSON marshalling/unmarshalling.
// It accepts either a Go duration string ("1m30s") or a plain number, which is
// taken to be seconds.
type Duration time.Duration

// MarshalJSON is the JSON marshaller for (time.)Duration.
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

// UnmarshalJSON is the JSON unmarshaller for (time.)Duration.
func (d *Duration) UnmarshalJSON(data []byte) error {
	if len(data) == 0 {
		return configError("invalid Duration data")
	}

	if data[0] == '"' {
		var str string
		if err := json.Unmarshal(data, &str); err != nil {
			return configError("invalid Duration %s: %v", string(data), err)
		}
		parsed, err := time.ParseDuration(str)
		if err != nil {
			return configError("invalid Duration %q: %v", str, err)
		}
		*d = Duration(parsed)
		return nil
	}

	secs, err := strconv.ParseFloat(string(data), 64)
	if err != nil {
		return configError("invalid Duration %s: %v", string(data), err)
	}
	*d = Duration(secs * float64(time.Second))
	return nil
}

// Std returns the value of Duration as a time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// String returns the value of Duration as a string.
func (d Duration) String() string {
	return time.Duration(d).String()
}

// configError returns a formatted configuration error.
func configError(format string, args ...interface{}) error {
	return fmt.Errorf("config: "+format, args...)
}
