package extract

import "context"

// Extractor defines the purification boundary: read a local HTML file,
// write the Article record as JSON to outPath. Implementations can swap
// readability tactics without changing callers; the orchestrator re-reads
// the record with Load.
type Extractor interface {
	Extract(ctx context.Context, htmlPath, outPath string) error
}
