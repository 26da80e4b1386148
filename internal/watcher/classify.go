package watcher

import "path/filepath"

// Classify decides whether a raw filesystem event names a file worth
// parsing. It returns the candidate path and true, or "" and false when the
// event is to be discarded.
//
// Rules, in order: directory events are always discarded; only .md paths are
// considered; create and modify both yield a candidate; remove is discarded
// (no deletion propagation, removed files keep their stored document);
// anything else is discarded.
func Classify(ev RawEvent) (string, bool) {
	if ev.IsDir {
		return "", false
	}
	if filepath.Ext(ev.Path) != ".md" {
		return "", false
	}
	switch ev.Op {
	case OpCreate, OpModify:
		return ev.Path, true
	default:
		return "", false
	}
}
