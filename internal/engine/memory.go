package engine

// The memory cache holds module values the downstream loader has already
// materialized, keyed by specifier. It short-circuits repeated top-level
// import requests; the engine itself never interprets the values.

// LoadedValue returns the loader-provided value for a specifier, if any.
func (e *Engine) LoadedValue(spec string) (interface{}, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	v, ok := e.loaded[spec]
	return v, ok
}

// StoreLoadedValue records a loader-provided value for a specifier.
func (e *Engine) StoreLoadedValue(spec string, value interface{}) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.loaded[spec] = value
}

// ForgetLoaded drops a specifier from the memory cache.
func (e *Engine) ForgetLoaded(spec string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.loaded, spec)
}
