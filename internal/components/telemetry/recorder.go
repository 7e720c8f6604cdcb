package telemetry

import (
	"strings"
	"sync"
)

// Report is a single call made against a RecorderAPI.
type Report struct {
	Level  string
	Id     string
	Params []any
}

// RecorderAPI is an API that keeps every report in memory so tests can make
// assertions on what was reported. It is safe for concurrent use.
type RecorderAPI struct {
	mu      sync.Mutex
	reports []Report
	counts  map[string]int64
}

func NewRecorderAPI() *RecorderAPI {
	return &RecorderAPI{counts: map[string]int64{}}
}

func (r *RecorderAPI) record(level, id string, params []any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reports = append(r.reports, Report{Level: level, Id: id, Params: params})
}

func (r *RecorderAPI) ReportBroken(id string, params ...any) {
	r.record("broken", id, params)
}

func (r *RecorderAPI) ReportWarning(id string, params ...any) {
	r.record("warning", id, params)
}

func (r *RecorderAPI) ReportDebug(msg string, params ...any) {
	r.record("debug", msg, params)
}

func (r *RecorderAPI) ReportCount(id string, count int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.counts[id] = count
}

// Reports returns a copy of every report with the given level, an empty level matches all.
func (r *RecorderAPI) Reports(level string) []Report {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []Report
	for _, rep := range r.reports {
		if level == "" || rep.Level == level {
			out = append(out, rep)
		}
	}
	return out
}

// Matching returns the reports of a level whose id contains the given substring.
func (r *RecorderAPI) Matching(level, idSubstr string) []Report {
	var out []Report
	for _, rep := range r.Reports(level) {
		if strings.Contains(rep.Id, idSubstr) {
			out = append(out, rep)
		}
	}
	return out
}

// Count returns the last reported count for an id.
func (r *RecorderAPI) Count(id string) (int64, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n, ok := r.counts[id]
	return n, ok
}
