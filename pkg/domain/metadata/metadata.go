// Package metadata defines the metadata records written alongside tagged files.
package metadata

import (
	"sort"
	"strings"
)

// SidecarExt is appended to the data file name to form the sidecar name.
const SidecarExt = ".yaml"

// TimeKey is the field stamped by the default updater.
const TimeKey = "time"

// Metadata is a template-derived record of string keys to YAML values.
type Metadata map[string]any

// Clone returns a copy that shares no top-level storage with m.
// Nested maps and slices are copied as well so callers can mutate freely.
func (m Metadata) Clone() Metadata {
	out := make(Metadata, len(m))
	for k, v := range m {
		out[k] = cloneValue(v)
	}
	return out
}

// Merge overlays fields onto m, replacing existing keys.
func (m Metadata) Merge(fields map[string]any) Metadata {
	for k, v := range fields {
		m[k] = cloneValue(v)
	}
	return m
}

// Keys returns the field names in sorted order.
func (m Metadata) Keys() []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func cloneValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		return map[string]any(Metadata(val).Clone())
	case Metadata:
		return val.Clone()
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = cloneValue(item)
		}
		return out
	default:
		return v
	}
}

// SidecarPath returns the sidecar location for a data file: the configured
// suffix is stripped and then appended literally before ".yaml", so
// "/data/run1.csv" with suffix ".csv" becomes "/data/run1.csv.yaml".
func SidecarPath(path, suffix string) string {
	return strings.TrimSuffix(path, suffix) + suffix + SidecarExt
}

// IsSidecar reports whether path is a sidecar written for suffix. When the
// watched suffix is itself ".yaml" this keeps sidecars from being tagged.
func IsSidecar(path, suffix string) bool {
	return strings.HasSuffix(path, suffix+SidecarExt)
}
