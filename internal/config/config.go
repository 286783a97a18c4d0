// Package config assembles runtime configuration from embedded defaults
// and environment variables. The recognition tunables ship as an
// embedded YAML file so the pipeline parameters live in one place; env
// vars override the operational knobs.
package config

import (
	_ "embed"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/kozaktomas/face-attendance/internal/attendance"
	"github.com/kozaktomas/face-attendance/internal/enroll"
	"github.com/kozaktomas/face-attendance/internal/liveness"
)

//go:embed defaults.yaml
var defaultsYAML []byte

type Config struct {
	Detector    DetectorConfig
	Storage     StorageConfig
	Database    DatabaseConfig
	Recognition RecognitionConfig
	Liveness    LivenessConfig
	Attendance  AttendanceConfig
}

type DetectorConfig struct {
	URL string // face/eye detector sidecar, defaults to http://localhost:8100
}

type StorageConfig struct {
	Dir string // directory for the file backend (default ./data)
}

type DatabaseConfig struct {
	URL          string // PostgreSQL connection URL; empty selects the file backend
	MaxOpenConns int    // Maximum open connections (default 25)
	MaxIdleConns int    // Maximum idle connections (default 5)
}

type RecognitionConfig struct {
	MatchThreshold float64 `yaml:"match_threshold"`
	TargetSamples  int     `yaml:"target_samples"`
	FrameStride    int     `yaml:"frame_stride"`
	BudgetFactor   int     `yaml:"budget_factor"`
	MinFaceSize    int     `yaml:"min_face_size"`
}

type LivenessConfig struct {
	ClosureThreshold   float64 `yaml:"closure_threshold"`
	MinClosedFrames    int     `yaml:"min_closed_frames"`
	MinBlinkDurationMs int     `yaml:"min_blink_duration_ms"`
	TimeoutMs          int     `yaml:"timeout_ms"`
	RequiredBlinks     int     `yaml:"required_blinks"`
}

type AttendanceConfig struct {
	CooldownSeconds int `yaml:"cooldown_seconds"`
}

type defaults struct {
	Recognition RecognitionConfig `yaml:"recognition"`
	Liveness    LivenessConfig    `yaml:"liveness"`
	Attendance  AttendanceConfig  `yaml:"attendance"`
}

// envInt reads an environment variable and parses it as a positive integer.
// Returns the default value if the env var is unset, empty, or invalid.
func envInt(key string, defaultVal int) int {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		return n
	}
	return defaultVal
}

// envFloat reads an environment variable and parses it as a positive float.
// Returns the default value if the env var is unset, empty, or invalid.
func envFloat(key string, defaultVal float64) float64 {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && f > 0 {
		return f
	}
	return defaultVal
}

func envString(key, defaultVal string) string {
	if s := os.Getenv(key); s != "" {
		return s
	}
	return defaultVal
}

func Load() *Config {
	var def defaults
	if err := yaml.Unmarshal(defaultsYAML, &def); err != nil {
		// The file is embedded, so this cannot happen with a clean build.
		panic("failed to unmarshal embedded defaults.yaml: " + err.Error())
	}

	return &Config{
		Detector: DetectorConfig{
			URL: os.Getenv("DETECTOR_URL"),
		},
		Storage: StorageConfig{
			Dir: envString("STORAGE_DIR", "data"),
		},
		Database: DatabaseConfig{
			URL:          os.Getenv("DATABASE_URL"),
			MaxOpenConns: envInt("DATABASE_MAX_OPEN_CONNS", 25),
			MaxIdleConns: envInt("DATABASE_MAX_IDLE_CONNS", 5),
		},
		Recognition: RecognitionConfig{
			MatchThreshold: envFloat("MATCH_THRESHOLD", def.Recognition.MatchThreshold),
			TargetSamples:  envInt("ENROLL_TARGET_SAMPLES", def.Recognition.TargetSamples),
			FrameStride:    envInt("ENROLL_FRAME_STRIDE", def.Recognition.FrameStride),
			BudgetFactor:   envInt("ENROLL_BUDGET_FACTOR", def.Recognition.BudgetFactor),
			MinFaceSize:    envInt("MIN_FACE_SIZE", def.Recognition.MinFaceSize),
		},
		Liveness: LivenessConfig{
			ClosureThreshold:   envFloat("LIVENESS_CLOSURE_THRESHOLD", def.Liveness.ClosureThreshold),
			MinClosedFrames:    envInt("LIVENESS_MIN_CLOSED_FRAMES", def.Liveness.MinClosedFrames),
			MinBlinkDurationMs: envInt("LIVENESS_MIN_BLINK_DURATION_MS", def.Liveness.MinBlinkDurationMs),
			TimeoutMs:          envInt("LIVENESS_TIMEOUT_MS", def.Liveness.TimeoutMs),
			RequiredBlinks:     envInt("LIVENESS_REQUIRED_BLINKS", def.Liveness.RequiredBlinks),
		},
		Attendance: AttendanceConfig{
			CooldownSeconds: envInt("ATTENDANCE_COOLDOWN_SECONDS", def.Attendance.CooldownSeconds),
		},
	}
}

// EnrollParams translates the recognition section into enrollment
// session parameters.
func (c *Config) EnrollParams() enroll.Params {
	return enroll.Params{
		TargetSamples: c.Recognition.TargetSamples,
		FrameStride:   c.Recognition.FrameStride,
		FrameBudget:   c.Recognition.TargetSamples * c.Recognition.FrameStride * c.Recognition.BudgetFactor,
	}
}

// LivenessParams translates the liveness section into session parameters.
func (c *Config) LivenessParams() liveness.Params {
	return liveness.Params{
		ClosureThreshold: c.Liveness.ClosureThreshold,
		MinClosedFrames:  c.Liveness.MinClosedFrames,
		MinBlinkDuration: time.Duration(c.Liveness.MinBlinkDurationMs) * time.Millisecond,
		Timeout:          time.Duration(c.Liveness.TimeoutMs) * time.Millisecond,
		RequiredBlinks:   c.Liveness.RequiredBlinks,
	}
}

// AttendanceParams translates the attendance and liveness sections into
// controller parameters.
func (c *Config) AttendanceParams() attendance.Params {
	return attendance.Params{
		Cooldown: time.Duration(c.Attendance.CooldownSeconds) * time.Second,
		Liveness: c.LivenessParams(),
	}
}
