// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package tuning

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/danielhkuo/do4btc/motion"
)

const debounce = 100 * time.Millisecond

type spawnFile struct {
	MinX *float64 `yaml:"min_x"`
	MaxX *float64 `yaml:"max_x"`
	MinY *float64 `yaml:"min_y"`
	MaxY *float64 `yaml:"max_y"`
}

// file is the YAML layout. Every key is optional and overrides the default.
type file struct {
	Damping          *float64  `yaml:"damping"`
	MaxBounceDegrees *float64  `yaml:"max_bounce_degrees"`
	MinSpeed         *float64  `yaml:"min_speed"`
	MaxSpeed         *float64  `yaml:"max_speed"`
	Spawn            spawnFile `yaml:"spawn"`
	Radius           *float64  `yaml:"radius"`
	ExpandedRadius   *float64  `yaml:"expanded_radius"`
	FrameRate        *int      `yaml:"frame_rate"`
}

// Parse reads a tuning document on top of motion.DefaultTuning and validates
// the result. Unknown keys are rejected.
func Parse(data []byte) (motion.Tuning, error) {
	t := motion.DefaultTuning()

	var f file
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return motion.Tuning{}, fmt.Errorf("parse tuning: %w", err)
	}

	set(&t.Damping, f.Damping)
	set(&t.MaxBounceDegrees, f.MaxBounceDegrees)
	set(&t.MinSpeed, f.MinSpeed)
	set(&t.MaxSpeed, f.MaxSpeed)
	set(&t.SpawnMinX, f.Spawn.MinX)
	set(&t.SpawnMaxX, f.Spawn.MaxX)
	set(&t.SpawnMinY, f.Spawn.MinY)
	set(&t.SpawnMaxY, f.Spawn.MaxY)
	set(&t.Radius, f.Radius)
	set(&t.ExpandedRadius, f.ExpandedRadius)
	set(&t.FrameRate, f.FrameRate)

	if err := t.Validate(); err != nil {
		return motion.Tuning{}, fmt.Errorf("invalid tuning: %w", err)
	}
	return t, nil
}

func set[T any](dst *T, src *T) {
	if src != nil {
		*dst = *src
	}
}

// Load reads the tuning file at path. An empty path yields the defaults.
func Load(path string) (motion.Tuning, error) {
	if path == "" {
		return motion.DefaultTuning(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return motion.Tuning{}, fmt.Errorf("read tuning: %w", err)
	}
	return Parse(data)
}

// Watcher reloads a tuning file when it changes on disk.
type Watcher struct {
	path    string
	watcher *fsnotify.Watcher
	logger  *zap.Logger
}

// NewWatcher watches the file's directory so editors that save by rename are
// noticed too.
func NewWatcher(path string, logger *zap.Logger) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create file watcher: %w", err)
	}
	if err := fw.Add(filepath.Dir(path)); err != nil {
		fw.Close()
		return nil, fmt.Errorf("watch tuning dir: %w", err)
	}
	return &Watcher{path: path, watcher: fw, logger: logger}, nil
}

// Run calls onChange with every valid new tuning until ctx ends. An invalid
// file is logged and the previous tuning stays in effect.
func (w *Watcher) Run(ctx context.Context, onChange func(motion.Tuning)) {
	defer w.watcher.Close()

	var timer *time.Timer
	var fire <-chan time.Time
	base := filepath.Base(w.path)

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return

		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(ev.Name) != base {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.NewTimer(debounce)
			fire = timer.C

		case <-fire:
			fire = nil
			t, err := Load(w.path)
			if err != nil {
				w.logger.Error("tuning reload failed, keeping current", zap.String("path", w.path), zap.Error(err))
				continue
			}
			w.logger.Info("tuning reloaded",
				zap.String("path", w.path),
				zap.Float64("damping", t.Damping),
				zap.Int("frame_rate", t.FrameRate),
			)
			onChange(t)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("tuning watcher error", zap.Error(err))
		}
	}
}
