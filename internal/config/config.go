// Package config reads sync hub settings from Viper, which layers
// config files over environment variables.
package config

import (
	"os"
	"time"

	"github.com/spf13/viper"

	"github.com/artificialadnaan/trocksynchubv3-sub001/pkg/batch"
	"github.com/artificialadnaan/trocksynchubv3-sub001/pkg/history"
)

// Viper keys and their environment fallbacks.
const (
	KeyStateDir  = "state_dir"
	KeyBatchSize = "batch_size"
	KeyRetention = "retention"
	KeyStageFile = "stage_table"
	KeyPair      = "pair"
)

// GetString is a helper to get string values from Viper.
// It checks both OS environment variables and Viper configuration.
func GetString(key string) string {
	osValue := os.Getenv(key)
	viperValue := viper.GetString(key)

	if viperValue == "" && osValue != "" {
		return osValue
	}
	return viperValue
}

// StateDir returns the directory holding persisted sync state.
func StateDir() string {
	if dir := GetString(KeyStateDir); dir != "" {
		return dir
	}
	return ".synchub"
}

// BatchSize returns the configured outbound batch size.
func BatchSize() int {
	if size := viper.GetInt(KeyBatchSize); size > 0 {
		return size
	}
	return batch.DefaultSize
}

// Retention returns the change-history retention window.
func Retention() time.Duration {
	if d := viper.GetDuration(KeyRetention); d > 0 {
		return d
	}
	return history.DefaultRetention
}

// StageTablePath returns the operator stage-table override file, if set.
func StageTablePath() string {
	return GetString(KeyStageFile)
}

// Pair returns the system-pair label, e.g. "pm:crm".
func Pair() string {
	if pair := GetString(KeyPair); pair != "" {
		return pair
	}
	return "pm:crm"
}
