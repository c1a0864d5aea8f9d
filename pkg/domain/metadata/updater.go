package metadata

import "time"

// DefaultTimeFormat is an ISO-like local timestamp without zone.
const DefaultTimeFormat = "2006-01-02T15:04:05"

// Updater enriches a fresh metadata copy for the file being tagged.
type Updater interface {
	Update(md Metadata, path string) (Metadata, error)
}

// UpdaterFunc adapts a plain function to the Updater interface.
type UpdaterFunc func(md Metadata, path string) (Metadata, error)

// Update calls f(md, path).
func (f UpdaterFunc) Update(md Metadata, path string) (Metadata, error) {
	return f(md, path)
}

// DefaultUpdater stamps the tagging time when the template has none and then
// overlays a fixed set of static fields.
type DefaultUpdater struct {
	Static     map[string]any
	Now        func() time.Time
	TimeFormat string
}

// NewDefaultUpdater creates a DefaultUpdater with local time and the default format.
func NewDefaultUpdater(static map[string]any) *DefaultUpdater {
	return &DefaultUpdater{Static: static}
}

func (u *DefaultUpdater) Update(md Metadata, _ string) (Metadata, error) {
	if md == nil {
		md = Metadata{}
	}
	if _, ok := md[TimeKey]; !ok {
		md[TimeKey] = u.now().Format(u.format())
	}
	return md.Merge(u.Static), nil
}

func (u *DefaultUpdater) now() time.Time {
	if u.Now != nil {
		return u.Now()
	}
	return time.Now()
}

func (u *DefaultUpdater) format() string {
	if u.TimeFormat == "" {
		return DefaultTimeFormat
	}
	return u.TimeFormat
}
