package dynmeans

import (
	"bytes"
	"encoding/json"

	"github.com/klauspost/compress/zstd"
)

// diagnosticsSnapshot is the verbose-mode payload: enough of the winning
// restart's shape to debug a surprising batch result without paying the
// cost of carrying it on every call.
type diagnosticsSnapshot struct {
	Objective      float64 `json:"objective"`
	IterationCount int     `json:"iteration_count"`
	ClusterCount   int     `json:"cluster_count"`
}

// buildDiagnostics serializes and zstd-compresses a diagnostics snapshot
// for Results.Diagnostics. Compression failures are swallowed (verbose
// diagnostics are best-effort, never fatal to a batch that already
// committed).
func buildDiagnostics(res *pointRestartResult) []byte {
	clusters := make(map[int64]struct{})
	for _, lbl := range res.labels {
		clusters[lbl] = struct{}{}
	}
	snap := diagnosticsSnapshot{
		Objective:      res.objective,
		IterationCount: res.iterations,
		ClusterCount:   len(clusters),
	}

	raw, err := json.Marshal(snap)
	if err != nil {
		return nil
	}

	var buf bytes.Buffer
	enc, err := zstd.NewWriter(&buf)
	if err != nil {
		return nil
	}
	if _, err := enc.Write(raw); err != nil {
		enc.Close()
		return nil
	}
	if err := enc.Close(); err != nil {
		return nil
	}
	return buf.Bytes()
}
