// Package config handles rigscope configuration loading and management.
package config

import "time"

// Config holds all rigscope settings.
type Config struct {
	Viewer      ViewerConfig      `yaml:"viewer"`
	Solver      SolverConfig      `yaml:"solver"`
	Drag        DragConfig        `yaml:"drag"`
	Constraints ConstraintsConfig `yaml:"constraints"`
	Inspect     InspectConfig     `yaml:"inspect"`
	Store       StoreConfig       `yaml:"store"`
	Logging     LoggingConfig     `yaml:"logging"`
}

// ViewerConfig holds window and overlay settings.
type ViewerConfig struct {
	Width      int     `yaml:"width"`
	Height     int     `yaml:"height"`
	Fullscreen bool    `yaml:"fullscreen"`
	VSync      bool    `yaml:"vsync"`
	FOV        float32 `yaml:"fov"` // degrees
	ShowLabels bool    `yaml:"show_labels"`
	ModelPath  string  `yaml:"model_path"`
}

// SolverConfig holds CCD settings.
type SolverConfig struct {
	Iterations int        `yaml:"iterations"`
	MinAngle   float32    `yaml:"min_angle"`
	MaxStep    float32    `yaml:"max_step"`
	Tolerance  float32    `yaml:"tolerance"`
	Forward    [3]float32 `yaml:"forward"` // local axis the end bone aims with
}

// DragConfig holds control handle settings.
type DragConfig struct {
	HandleRadius  float32 `yaml:"handle_radius"`
	Display       bool    `yaml:"display"`
	RestoreLocked bool    `yaml:"restore_locked"`
}

// ConstraintsConfig holds constraint inference settings.
type ConstraintsConfig struct {
	Sidecar         string  `yaml:"sidecar"` // YAML file of per-bone specs
	InferFromRest   bool    `yaml:"infer_from_rest"`
	SpringStiffness float32 `yaml:"spring_stiffness"`
	SpringDamping   float32 `yaml:"spring_damping"`
}

// InspectConfig holds HTTP inspection API settings.
type InspectConfig struct {
	Enabled        bool          `yaml:"enabled"`
	Addr           string        `yaml:"addr"`
	TickInterval   time.Duration `yaml:"tick_interval"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
}

// StoreConfig holds the constraint preset database location. Empty disables it.
type StoreConfig struct {
	Path string `yaml:"path"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogFile string `yaml:"log_file"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Viewer: ViewerConfig{
			Width:      1280,
			Height:     720,
			Fullscreen: false,
			VSync:      true,
			FOV:        45,
			ShowLabels: true,
		},
		Solver: SolverConfig{
			Iterations: 10,
			MinAngle:   0.01,
			MaxStep:    0.1,
			Tolerance:  0.1,
			Forward:    [3]float32{0, 1, 0},
		},
		Drag: DragConfig{
			HandleRadius:  0.08,
			Display:       true,
			RestoreLocked: true,
		},
		Constraints: ConstraintsConfig{
			InferFromRest:   true,
			SpringStiffness: 50,
			SpringDamping:   5,
		},
		Inspect: InspectConfig{
			Enabled:        false,
			Addr:           "127.0.0.1:8088",
			TickInterval:   16 * time.Millisecond,
			RequestTimeout: 2 * time.Second,
		},
		Logging: LoggingConfig{
			Level:   "info",
			LogFile: "",
		},
	}
}
