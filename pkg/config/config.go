// Package config loads the widget's tuning file. Every knob maps onto
// virt.Options; out-of-range values are clamped by the engine rather than
// rejected here, so a bad config can degrade behavior but never break the
// widget.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/Dicklesworthstone/virtualtree/pkg/virt"
)

// Tuning is the on-disk schema (.vt/tuning.yaml). Zero values mean "use the
// engine default".
type Tuning struct {
	EstimatedItemSize    float64 `yaml:"estimated_item_size,omitempty"`
	MinOverscan          int     `yaml:"min_overscan,omitempty"`
	MaxOverscan          int     `yaml:"max_overscan,omitempty"`
	OverscanMultiplier   float64 `yaml:"overscan_multiplier,omitempty"`
	MinVelocityThreshold float64 `yaml:"min_velocity_threshold,omitempty"`
	DirectionThreshold   float64 `yaml:"direction_threshold,omitempty"`

	PreloadChunkSize  int           `yaml:"preload_chunk_size,omitempty"`
	PreloadDelayMinMs int           `yaml:"preload_delay_min_ms,omitempty"`
	PreloadDelayMaxMs int           `yaml:"preload_delay_max_ms,omitempty"`
	ScrollIdleTimeout time.Duration `yaml:"scroll_idle_timeout,omitempty"`
	MemoryThresholdMB float64       `yaml:"memory_threshold_mb,omitempty"`
	SettleDelayMs     int           `yaml:"settle_delay_ms,omitempty"`
	AnchorBuffer      float64       `yaml:"anchor_buffer,omitempty"`
	MaintainScroll    *bool         `yaml:"maintain_scroll_during_expand,omitempty"`
}

// Options converts the tuning file to engine options, filling unset fields
// from the engine defaults.
func (t Tuning) Options() virt.Options {
	o := virt.DefaultOptions()
	if t.EstimatedItemSize > 0 {
		o.EstimatedItemSize = t.EstimatedItemSize
	}
	if t.MinOverscan > 0 {
		o.MinOverscan = t.MinOverscan
	}
	if t.MaxOverscan > 0 {
		o.MaxOverscan = t.MaxOverscan
	}
	if t.OverscanMultiplier > 0 {
		o.OverscanMultiplier = t.OverscanMultiplier
	}
	if t.MinVelocityThreshold > 0 {
		o.MinVelocityThreshold = t.MinVelocityThreshold
	}
	if t.DirectionThreshold > 0 {
		o.DirectionThreshold = t.DirectionThreshold
	}
	if t.PreloadChunkSize > 0 {
		o.PreloadChunkSize = t.PreloadChunkSize
	}
	if t.PreloadDelayMinMs > 0 {
		o.PreloadDelayMin = time.Duration(t.PreloadDelayMinMs) * time.Millisecond
	}
	if t.PreloadDelayMaxMs > 0 {
		o.PreloadDelayMax = time.Duration(t.PreloadDelayMaxMs) * time.Millisecond
	}
	if t.ScrollIdleTimeout > 0 {
		o.ScrollIdleTimeout = t.ScrollIdleTimeout
	}
	if t.MemoryThresholdMB > 0 {
		o.MemoryThresholdMB = t.MemoryThresholdMB
	}
	if t.SettleDelayMs > 0 {
		o.SettleDelay = time.Duration(t.SettleDelayMs) * time.Millisecond
	}
	if t.AnchorBuffer > 0 {
		o.AnchorBuffer = t.AnchorBuffer
	}
	if t.MaintainScroll != nil {
		o.MaintainScrollDuringExpand = *t.MaintainScroll
	}
	return o
}

// Load reads a tuning file. A missing file is not an error: it returns the
// zero Tuning (engine defaults). A malformed file is an error so the caller
// can tell the user, but callers are expected to fall back to defaults.
func Load(path string) (Tuning, error) {
	var t Tuning
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return t, nil
		}
		return t, fmt.Errorf("read tuning file: %w", err)
	}
	if err := yaml.Unmarshal(data, &t); err != nil {
		return Tuning{}, fmt.Errorf("parse tuning file %s: %w", path, err)
	}
	return t, nil
}
