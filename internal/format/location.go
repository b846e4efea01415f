package format

import (
	"strings"

	"gdformat/internal/model"
)

// ResolveLocation returns the label a record is printed under: the primary
// location if it has any non-space text, otherwise the fallback (parish).
// The label is used verbatim, so "Heide, St.-Jürgen-Kirche" and
// "Heide, Auferstehungskirche" stay distinct. ok is false when both fields
// are blank.
func ResolveLocation(rec model.ServiceRecord) (label string, ok bool) {
	if p := strings.TrimSpace(rec.LocationPrimary); p != "" {
		return p, true
	}
	if f := strings.TrimSpace(rec.LocationFallback); f != "" {
		return f, true
	}
	return "", false
}
