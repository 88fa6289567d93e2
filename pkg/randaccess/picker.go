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

package randaccess

import (
	"math/rand"

	"github.com/intel/memtraffic/pkg/zipf"
)

// picker selects the next page index to access.
type picker interface {
	Pick(rng *rand.Rand) int
}

// uniformPicker picks pages with equal probability.
type uniformPicker struct {
	pages int
}

func (p *uniformPicker) Pick(rng *rand.Rand) int {
	return rng.Intn(p.pages)
}

// zipfPicker picks pages following a Zipfian distribution.
type zipfPicker struct {
	gen *zipf.Generator
}

func (p *zipfPicker) Pick(rng *rand.Rand) int {
	return p.gen.Next(rng)
}

// newPicker creates a private picker for one worker.
func newPicker(cfg *Config, pages int) (picker, error) {
	if cfg.Uniform() {
		return &uniformPicker{pages: pages}, nil
	}

	opts := []zipf.Option{}
	if cfg.Sorted {
		opts = append(opts, zipf.Sorted())
	}
	gen, err := zipf.New(pages, cfg.Skew, opts...)
	if err != nil {
		return nil, err
	}
	log.Debug("zipf picker over %d pages, zetaN %g", pages, gen.ZetaN())
	return &zipfPicker{gen: gen}, nil
}
