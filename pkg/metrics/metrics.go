package metrics

import (
	"fmt"
	"io"
	"net/http"
	"sync"
)

// Registry tracks operational counters for a single process. Corrupt or
// skipped records are never dropped silently; every skip increments a
// counter here in addition to being logged.
type Registry struct {
	mu sync.Mutex

	corruptRecordsSkipped uint64

	replicationEventsApplied   uint64
	replicationDuplicates      uint64
	replicationMalformed       uint64
	replicationApplyFailures   uint64
	replicationAuthFailures    uint64
	replicationBatchesReceived uint64
}

// New constructs an empty Registry.
func New() *Registry {
	return &Registry{}
}

// IncCorruptRecordSkipped records a stored record that could not be decoded
// during a listing scan.
func (r *Registry) IncCorruptRecordSkipped() {
	if r == nil {
		return
	}
	r.mu.Lock()
	r.corruptRecordsSkipped++
	r.mu.Unlock()
}

// ObservePush records the outcome counts of one replication push batch.
func (r *Registry) ObservePush(applied, duplicates, malformed, applyFailures uint64) {
	if r == nil {
		return
	}
	r.mu.Lock()
	r.replicationBatchesReceived++
	r.replicationEventsApplied += applied
	r.replicationDuplicates += duplicates
	r.replicationMalformed += malformed
	r.replicationApplyFailures += applyFailures
	r.mu.Unlock()
}

// IncReplicationAuthFailure records a rejected replication token.
func (r *Registry) IncReplicationAuthFailure() {
	if r == nil {
		return
	}
	r.mu.Lock()
	r.replicationAuthFailures++
	r.mu.Unlock()
}

// Snapshot is a point-in-time copy of all counters.
type Snapshot struct {
	CorruptRecordsSkipped      uint64
	ReplicationEventsApplied   uint64
	ReplicationDuplicates      uint64
	ReplicationMalformed       uint64
	ReplicationApplyFailures   uint64
	ReplicationAuthFailures    uint64
	ReplicationBatchesReceived uint64
}

// Snapshot returns a consistent copy of the counters.
func (r *Registry) Snapshot() Snapshot {
	if r == nil {
		return Snapshot{}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return Snapshot{
		CorruptRecordsSkipped:      r.corruptRecordsSkipped,
		ReplicationEventsApplied:   r.replicationEventsApplied,
		ReplicationDuplicates:      r.replicationDuplicates,
		ReplicationMalformed:       r.replicationMalformed,
		ReplicationApplyFailures:   r.replicationApplyFailures,
		ReplicationAuthFailures:    r.replicationAuthFailures,
		ReplicationBatchesReceived: r.replicationBatchesReceived,
	}
}

// WriteTo dumps the counters in a plain text exposition format.
func (r *Registry) WriteTo(w io.Writer) (int64, error) {
	s := r.Snapshot()
	var total int64
	write := func(name string, v uint64) error {
		n, err := fmt.Fprintf(w, "%s %d\n", name, v)
		total += int64(n)
		return err
	}
	for _, row := range []struct {
		name  string
		value uint64
	}{
		{"corrupt_records_skipped_total", s.CorruptRecordsSkipped},
		{"replication_batches_received_total", s.ReplicationBatchesReceived},
		{"replication_events_applied_total", s.ReplicationEventsApplied},
		{"replication_events_duplicate_total", s.ReplicationDuplicates},
		{"replication_events_malformed_total", s.ReplicationMalformed},
		{"replication_apply_failures_total", s.ReplicationApplyFailures},
		{"replication_auth_failures_total", s.ReplicationAuthFailures},
	} {
		if err := write(row.name, row.value); err != nil {
			return total, err
		}
	}
	return total, nil
}

// Handler serves the counters over HTTP.
func (r *Registry) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		r.WriteTo(w)
	})
}
