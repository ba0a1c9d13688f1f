// Package metrics normalizes heterogeneous device payloads into the
// canonical metric vector. Malformed input degrades to zeroed metrics
// rather than failing the pipeline.
package metrics

import (
	"github.com/emostream-io/emostream/pkg/models"
)

// DeviceFormat tags the recognized input shapes. Detection happens once at
// the ingestion boundary; everything downstream sees only MetricVector.
type DeviceFormat int

const (
	FormatUnknown DeviceFormat = iota
	// FormatEmotivMet is the device-native performance-metric shape:
	// {"met": {"att": .., "eng": .., ...}, "time": ..}.
	FormatEmotivMet
	// FormatBandPower carries pre-computed band powers:
	// {"pow": {"theta": .., "alpha": .., ...}, "time": ..}.
	FormatBandPower
	// FormatGenericFlat carries long-named metrics at the top level.
	FormatGenericFlat
)

// metCodes maps Emotiv short codes to canonical metric names.
var metCodes = map[string]string{
	"att": models.MetricAttention,
	"eng": models.MetricEngagement,
	"exc": models.MetricExcitement,
	"int": models.MetricInterest,
	"rel": models.MetricRelaxation,
	"str": models.MetricStress,
}

var bandNames = []string{
	models.MetricTheta, models.MetricAlpha, models.MetricBeta, models.MetricGamma,
}

var flatNames = []string{
	models.MetricAttention, models.MetricStress, models.MetricRelaxation,
	models.MetricEngagement, models.MetricExcitement, models.MetricInterest,
	models.MetricBatteryLevel, models.MetricSignalQuality,
}

// DetectFormat resolves the input shape by key presence.
func DetectFormat(raw map[string]any) DeviceFormat {
	if _, ok := raw["met"]; ok {
		return FormatEmotivMet
	}
	if _, ok := raw["pow"]; ok {
		return FormatBandPower
	}
	for _, name := range flatNames {
		if _, ok := raw[name]; ok {
			return FormatGenericFlat
		}
	}
	return FormatUnknown
}

// Normalize converts a raw metric payload into the canonical vector. Every
// numeric field is clamped to [0,1]; non-numeric fields become 0.0. It
// never fails: unrecognized shapes yield an empty vector, which classifies
// as low-confidence neutral downstream.
func Normalize(raw map[string]any) models.MetricVector {
	vec, _ := NormalizeWithTimestamp(raw)
	return vec
}

// NormalizeWithTimestamp is Normalize plus the sample timestamp when the
// payload carries one (0 otherwise).
func NormalizeWithTimestamp(raw map[string]any) (models.MetricVector, float64) {
	vec := make(models.MetricVector)
	if raw == nil {
		return vec, 0
	}

	switch DetectFormat(raw) {
	case FormatEmotivMet:
		sub, _ := raw["met"].(map[string]any)
		for code, name := range metCodes {
			if val, ok := sub[code]; ok {
				vec[name] = models.Clamp01(toFloat(val))
			}
		}
		return vec, toFloat(raw["time"])

	case FormatBandPower:
		sub, _ := raw["pow"].(map[string]any)
		for _, name := range bandNames {
			if val, ok := sub[name]; ok {
				vec[name] = models.Clamp01(toFloat(val))
			}
		}
		return vec, toFloat(raw["time"])

	case FormatGenericFlat:
		for _, name := range flatNames {
			if val, ok := raw[name]; ok {
				vec[name] = models.Clamp01(toFloat(val))
			}
		}
		for _, name := range bandNames {
			if val, ok := raw[name]; ok {
				vec[name] = models.Clamp01(toFloat(val))
			}
		}
		return vec, toFloat(raw["timestamp"])
	}

	return vec, 0
}

// toFloat coerces the numeric types JSON decoding can produce. Anything
// else degrades to 0.
func toFloat(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case float32:
		return float64(n)
	case int:
		return float64(n)
	case int64:
		return float64(n)
	case uint64:
		return float64(n)
	}
	return 0
}
