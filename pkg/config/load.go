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

// Package config loads YAML configuration files into Go structs.
package config

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"sigs.k8s.io/yaml"
)

// Load reads the YAML file at path into the given pointer. Unknown or
// duplicate keys are rejected. Fields absent from the file are left intact,
// so callers can preset defaults before loading.
func Load(path string, into interface{}) error {
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrapf(err, "failed to read configuration file %s", path)
	}
	return Parse(raw, into)
}

// Parse parses raw YAML data into the given pointer, rejecting unknown keys.
func Parse(raw []byte, into interface{}) error {
	if err := yaml.UnmarshalStrict(raw, into); err != nil {
		return errors.Wrap(err, "failed to parse configuration")
	}
	return nil
}
