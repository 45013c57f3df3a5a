// Copyright 2025 The graingc Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package graingc

import (
	"io"

	"gopkg.in/yaml.v3"
)

// Config collects the recognized configuration options for an arena or a
// pool, built up with [Option] values (ArenaSize, GrainSize, Chain, ...)
// mirroring the options keywords (ARENA_SIZE, ARENA_GRAIN_SIZE, CHAIN, ...).
type Config struct {
	// ArenaSize is the total reservation size in bytes (ARENA_SIZE).
	ArenaSize int
	// GrainSize is the pool alignment in bytes, a power of two
	// (ARENA_GRAIN_SIZE).
	GrainSize int
	// Chain is the generation capacity/mortality schedule for a pool
	// (CHAIN).
	Chain []GenConfig
	// Gen records a target generation (GEN). Collections do not read it;
	// a collection's target comes from CollectOptions.Gen.
	Gen int
	// MaxBusyTraces bounds the small constant-size busy-trace set
	// (spec.md §3).
	MaxBusyTraces int
	// SplatPattern is the POOL_DEBUG_OPTIONS splat byte pattern. It is
	// stored only: no pool class writes it over reclaimed grains.
	SplatPattern byte
	// FreeCheck is the POOL_DEBUG_OPTIONS free-check flag. It is stored
	// only: no pool class reads reclaimed grains back.
	FreeCheck bool
	// SupportAmbiguous records AMS_SUPPORT_AMBIGUOUS. It is stored only: AMS
	// pools accept ambiguous-rank fixes whatever its value.
	SupportAmbiguous bool
	// SegSALimit bounds per-segment single-access scans for one trace
	// (AWL).
	SegSALimit int
	// TotalSALimit bounds per-trace total single-access scans (AWL).
	TotalSALimit int
}

// GenConfig is one entry of a pool's generation CHAIN: a capacity and a
// predicted mortality rate in [0, 1]. Every generation with a positive
// Capacity is condemned on each collection; the bytes allocated since the
// last collection are not compared against Capacity, and Mortality is
// validated and logged but does not decide what is condemned.
type GenConfig struct {
	Capacity  int
	Mortality float64
}

// DefaultConfig returns a Config with conservative, always-valid defaults.
func DefaultConfig() Config {
	return Config{
		ArenaSize:     64 << 20,
		GrainSize:     4096,
		MaxBusyTraces: 4,
		SegSALimit:    4,
		TotalSALimit:  64,
	}
}

// Option mutates a Config being built up by [NewConfig].
type Option struct{ apply func(*Config) }

// NewConfig applies opts over [DefaultConfig] and validates the result.
func NewConfig(opts ...Option) (Config, Status) {
	c := DefaultConfig()
	for _, o := range opts {
		o.apply(&c)
	}
	if st := c.Validate(); st != OK {
		return Config{}, st
	}
	return c, OK
}

// Validate reports PARAM if any field is out of its documented domain.
func (c Config) Validate() Status {
	if c.ArenaSize <= 0 {
		return Param
	}
	if c.GrainSize <= 0 || c.GrainSize&(c.GrainSize-1) != 0 {
		return Param
	}
	if c.ArenaSize%c.GrainSize != 0 {
		return Param
	}
	if c.MaxBusyTraces <= 0 {
		return Param
	}
	for _, g := range c.Chain {
		if g.Capacity < 0 || g.Mortality < 0 || g.Mortality > 1 {
			return Param
		}
	}
	if c.SegSALimit < 0 || c.TotalSALimit < 0 {
		return Param
	}
	return OK
}

// ArenaSize sets ARENA_SIZE.
func ArenaSize(n int) Option { return Option{func(c *Config) { c.ArenaSize = n }} }

// GrainSize sets ARENA_GRAIN_SIZE.
func GrainSize(n int) Option { return Option{func(c *Config) { c.GrainSize = n }} }

// Chain sets CHAIN, the generation schedule.
func Chain(gens ...GenConfig) Option {
	return Option{func(c *Config) { c.Chain = gens }}
}

// TargetGen sets GEN, the generation a collection request targets.
func TargetGen(n int) Option { return Option{func(c *Config) { c.Gen = n }} }

// MaxBusyTraces sets the busy-trace set's capacity.
func MaxBusyTraces(n int) Option { return Option{func(c *Config) { c.MaxBusyTraces = n }} }

// PoolDebugOptions sets POOL_DEBUG_OPTIONS: the splat byte pattern and the
// free-check flag, both stored in the Config only.
func PoolDebugOptions(splat byte, freeCheck bool) Option {
	return Option{func(c *Config) { c.SplatPattern = splat; c.FreeCheck = freeCheck }}
}

// SupportAmbiguous sets AMS_SUPPORT_AMBIGUOUS.
func SupportAmbiguous(support bool) Option {
	return Option{func(c *Config) { c.SupportAmbiguous = support }}
}

// SingleAccessLimits sets the AWL per-segment and per-trace single-access
// scan budgets.
func SingleAccessLimits(perSegment, perTrace int) Option {
	return Option{func(c *Config) { c.SegSALimit = perSegment; c.TotalSALimit = perTrace }}
}

// yamlConfig is the on-disk shape for [LoadConfigYAML]; field names match
// the configuration keywords in lowerCamel form.
type yamlConfig struct {
	ArenaSize        int    `yaml:"arenaSize"`
	GrainSize        int    `yaml:"grainSize"`
	Gen              int    `yaml:"gen"`
	MaxBusyTraces    int    `yaml:"maxBusyTraces"`
	SplatPattern     byte   `yaml:"splatPattern"`
	FreeCheck        bool   `yaml:"freeCheck"`
	SupportAmbiguous bool   `yaml:"supportAmbiguous"`
	SegSALimit       int    `yaml:"segSALimit"`
	TotalSALimit     int    `yaml:"totalSALimit"`
	Chain            []struct {
		Capacity  int     `yaml:"capacity"`
		Mortality float64 `yaml:"mortality"`
	} `yaml:"chain"`
}

// LoadConfigYAML parses a Config from YAML, for clients that prefer a
// config file to code-level Option values. Unset fields take the
// [DefaultConfig] value.
func LoadConfigYAML(r io.Reader) (Config, error) {
	c := DefaultConfig()
	var y yamlConfig
	y.ArenaSize, y.GrainSize, y.MaxBusyTraces = c.ArenaSize, c.GrainSize, c.MaxBusyTraces
	y.SegSALimit, y.TotalSALimit = c.SegSALimit, c.TotalSALimit

	dec := yaml.NewDecoder(r)
	if err := dec.Decode(&y); err != nil && err != io.EOF {
		return Config{}, newError("LoadConfigYAML", IO, err)
	}

	c.ArenaSize = y.ArenaSize
	c.GrainSize = y.GrainSize
	c.Gen = y.Gen
	c.MaxBusyTraces = y.MaxBusyTraces
	c.SplatPattern = y.SplatPattern
	c.FreeCheck = y.FreeCheck
	c.SupportAmbiguous = y.SupportAmbiguous
	c.SegSALimit = y.SegSALimit
	c.TotalSALimit = y.TotalSALimit
	for _, g := range y.Chain {
		c.Chain = append(c.Chain, GenConfig{Capacity: g.Capacity, Mortality: g.Mortality})
	}

	if st := c.Validate(); st != OK {
		return Config{}, newError("LoadConfigYAML", st, nil)
	}
	return c, nil
}
