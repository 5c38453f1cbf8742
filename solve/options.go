// Copyright 2025 Google LLC
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

package solve

import (
	"errors"
	"io"
	"log/slog"
)

// DefaultMaxSteps bounds the number of versions tried by Resolve unless
// WithMaxSteps says otherwise.
const DefaultMaxSteps = 1 << 20

// Option configures a resolution.
type Option func(*config) error

type config struct {
	// logger receives search diagnostics. Nil means silent.
	logger   *slog.Logger
	maxSteps int
}

func newConfig(opts []Option) (*config, error) {
	c := &config{maxSteps: DefaultMaxSteps}
	for _, o := range opts {
		if err := o(c); err != nil {
			return nil, err
		}
	}
	if c.logger == nil {
		c.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return c, nil
}

// WithLogger sets a structured logger for resolution diagnostics. Search
// steps and backtracking are logged at Debug level, the outcome at Info.
// If not set, logging is disabled.
func WithLogger(l *slog.Logger) Option {
	return func(c *config) error {
		c.logger = l
		return nil
	}
}

// WithMaxSteps bounds the number of package versions the search tries
// before giving up with ErrTooManySteps.
func WithMaxSteps(n int) Option {
	return func(c *config) error {
		if n <= 0 {
			return errors.New("max steps must be positive")
		}
		c.maxSteps = n
		return nil
	}
}
