// Package trace generates and carries per-request trace identifiers,
// independent of the OpenTelemetry span machinery in telemetry/searchtrace
// — this is a lightweight, always-on id for log correlation.
package trace

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"skipgraph/internal/domain"

	"github.com/oklog/ulid/v2"
)

type traceKey struct{}

// GenerateTraceID builds a globally unique trace id of the form
// "<nodeID>-<ULID>".
func GenerateTraceID(nodeID string) string {
	t := time.Now().UTC()
	entropy := ulid.Monotonic(rand.New(rand.NewSource(t.UnixNano())), 0)
	id := ulid.MustNew(ulid.Timestamp(t), entropy)
	return fmt.Sprintf("%s-%s", nodeID, id.String())
}

// AttachTraceID generates a fresh trace id rooted at nodeID and stores
// it in ctx, returning both the new context and the id.
func AttachTraceID(ctx context.Context, nodeID domain.Identifier) (context.Context, string) {
	traceID := GenerateTraceID(nodeID.String())
	return context.WithValue(ctx, traceKey{}, traceID), traceID
}

// GetTraceID returns the trace id carried by ctx, or "" if none is set.
func GetTraceID(ctx context.Context) string {
	if v := ctx.Value(traceKey{}); v != nil {
		if id, ok := v.(string); ok && id != "" {
			return id
		}
	}
	return ""
}
