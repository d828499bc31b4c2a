package detector

import (
	"sync"

	"github.com/google/uuid"

	"scrobble/internal/pagemeta"
)

// SubtreeWatcher maps externally supplied element tags onto detector
// identifiers. Pages report video elements by whatever tag they carry;
// the watcher guarantees each tag resolves to exactly one tracked
// video, no matter how many times the same subtree is rescanned.
type SubtreeWatcher struct {
	det *Detector

	mu   sync.Mutex
	tags map[string]string
}

// NewSubtreeWatcher returns a watcher feeding det.
func NewSubtreeWatcher(det *Detector) *SubtreeWatcher {
	return &SubtreeWatcher{det: det, tags: make(map[string]string)}
}

// OnAdded registers the tagged video and returns the detector id.
// Re-reporting a known tag is a no-op and returns the existing id. An
// empty tag gets a generated one.
func (w *SubtreeWatcher) OnAdded(tag string, page pagemeta.Context) (string, string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if tag == "" {
		tag = uuid.NewString()
	}
	if id, ok := w.tags[tag]; ok {
		return tag, id
	}
	id := w.det.Register(page)
	w.tags[tag] = id
	return tag, id
}

// OnRemoved drops the tagged video from tracking. Unknown tags are
// ignored.
func (w *SubtreeWatcher) OnRemoved(tag string) {
	w.mu.Lock()
	id, ok := w.tags[tag]
	if ok {
		delete(w.tags, tag)
	}
	w.mu.Unlock()
	if ok {
		w.det.Remove(id)
	}
}

// Resolve returns the detector id for a tag.
func (w *SubtreeWatcher) Resolve(tag string) (string, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	id, ok := w.tags[tag]
	return id, ok
}
