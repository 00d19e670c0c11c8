package app

import (
	"os"
	"sync"
	"time"
)

// FileWatcher polls files for modification and reports changed paths.
type FileWatcher struct {
	mu            sync.Mutex
	files         map[string]time.Time
	checkInterval time.Duration
	stopCh        chan struct{}
	running       bool
	onChange      func(path string)
}

// NewFileWatcher creates a watcher that checks every interval.
func NewFileWatcher(checkInterval time.Duration) *FileWatcher {
	return &FileWatcher{
		files:         make(map[string]time.Time),
		checkInterval: checkInterval,
	}
}

// OnChange sets the callback for modified files. It runs on the watcher goroutine.
func (w *FileWatcher) OnChange(callback func(path string)) {
	w.mu.Lock()
	w.onChange = callback
	w.mu.Unlock()
}

// Add starts watching path from its current modification time.
func (w *FileWatcher) Add(path string) {
	info, err := os.Stat(path)
	if err != nil {
		return
	}
	w.mu.Lock()
	w.files[path] = info.ModTime()
	w.mu.Unlock()
}

// Remove stops watching path.
func (w *FileWatcher) Remove(path string) {
	w.mu.Lock()
	delete(w.files, path)
	w.mu.Unlock()
}

// Paths returns the watched paths.
func (w *FileWatcher) Paths() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]string, 0, len(w.files))
	for p := range w.files {
		out = append(out, p)
	}
	return out
}

// Start begins polling in a background goroutine.
func (w *FileWatcher) Start() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running {
		return
	}
	w.running = true
	w.stopCh = make(chan struct{})
	go w.watchLoop(w.stopCh)
}

// Stop stops the watcher goroutine.
func (w *FileWatcher) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.running {
		return
	}
	w.running = false
	close(w.stopCh)
}

func (w *FileWatcher) watchLoop(stop <-chan struct{}) {
	ticker := time.NewTicker(w.checkInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			w.Check()
		}
	}
}

// Check compares every watched file against its baseline and reports those
// that became newer. The baseline moves forward so each change fires once.
func (w *FileWatcher) Check() []string {
	w.mu.Lock()
	var changed []string
	for path, seen := range w.files {
		info, err := os.Stat(path)
		if err != nil {
			continue
		}
		if info.ModTime().After(seen) {
			w.files[path] = info.ModTime()
			changed = append(changed, path)
		}
	}
	callback := w.onChange
	w.mu.Unlock()

	if callback != nil {
		for _, path := range changed {
			callback(path)
		}
	}
	return changed
}
