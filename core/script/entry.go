// Package script holds the per-instruction state the call engine writes its
// result into.
package script

import (
	"sort"
	"sync"

	"github.com/anoideaopen/reflectcall/core/value"
)

// ResultKey is the key the call engine saves its result under.
const ResultKey = "result"

// Entry is a single executed script instruction and the objects it saved.
type Entry struct {
	command string

	mu      sync.RWMutex
	objects map[string]value.Value
	headers map[string]string
}

// NewEntry creates an entry for command.
func NewEntry(command string) *Entry {
	return &Entry{
		command: command,
		objects: make(map[string]value.Value),
		headers: make(map[string]string),
	}
}

// Command returns the instruction name.
func (e *Entry) Command() string { return e.command }

// SaveObject stores v under key, replacing any previous value.
func (e *Entry) SaveObject(key string, v value.Value) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.objects[key] = v
}

// Object returns the value saved under key.
func (e *Entry) Object(key string) (value.Value, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	v, ok := e.objects[key]
	return v, ok
}

// HasObject reports whether a value is saved under key.
func (e *Entry) HasObject(key string) bool {
	_, ok := e.Object(key)
	return ok
}

// Keys returns the saved keys in sorted order.
func (e *Entry) Keys() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()

	keys := make([]string, 0, len(e.objects))
	for k := range e.objects {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// SetHeader attaches metadata such as propagated trace context to the entry.
func (e *Entry) SetHeader(key, val string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.headers[key] = val
}

// Header returns the metadata stored under key, or "".
func (e *Entry) Header(key string) string {
	e.mu.RLock()
	defer e.mu.RUnlock()

	return e.headers[key]
}

// HeaderKeys returns the metadata keys in sorted order.
func (e *Entry) HeaderKeys() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()

	keys := make([]string, 0, len(e.headers))
	for k := range e.headers {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
