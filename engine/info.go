package engine

import (
	"fmt"
	"io"
	"strconv"
	"sync"
)

// AnalysisLine is the latest progress report of an engine, keyed by stat name.
type AnalysisLine map[string]string

// Int returns the named stat as an integer.
func (l AnalysisLine) Int(key string) (int64, bool) {
	v, ok := l[key]
	if !ok {
		return 0, false
	}
	n, err := strconv.ParseInt(v, 10, 64)
	return n, err == nil
}

func (l AnalysisLine) clone() AnalysisLine {
	if l == nil {
		return nil
	}
	c := make(AnalysisLine, len(l))
	for k, v := range l {
		c[k] = v
	}
	return c
}

// Info keeps the most recent AnalysisLine of one session. A new line
// replaces the previous one entirely.
type Info struct {
	mu   sync.RWMutex
	line AnalysisLine
}

// Record stores a copy of line as the current report.
func (i *Info) Record(line AnalysisLine) {
	c := line.clone()
	i.mu.Lock()
	i.line = c
	i.mu.Unlock()
}

// Line returns a copy of the current report.
func (i *Info) Line() AnalysisLine {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.line.clone()
}

// Print writes "key: value" for every key present in the current report,
// in the order of keys.
func (i *Info) Print(w io.Writer, keys []string) {
	i.mu.RLock()
	defer i.mu.RUnlock()
	for _, k := range keys {
		if v, ok := i.line[k]; ok {
			fmt.Fprintf(w, "    %s: %s\n", k, v)
		}
	}
}
