// Package dedupe decides whether an incoming file is new, an exact duplicate,
// or a visual near-duplicate of something already in the catalog.
package dedupe

import (
	"bytes"
	"context"
	"mime"
	"net/http"
	"path/filepath"
	"strings"
	"sync"

	"github.com/disintegration/imaging"

	"darkroom/internal/imagehash"
	"darkroom/internal/media"
	"darkroom/internal/services"
	"darkroom/internal/store"
)

// Status classifies the outcome of a duplicate check.
type Status string

const (
	// StatusAccepted means the file is new and should be ingested.
	StatusAccepted Status = "accepted"
	// StatusSkipped means an exact byte-for-byte duplicate already exists.
	StatusSkipped Status = "skipped"
	// StatusConflict means the file is visually identical to an existing
	// version but its bytes differ; a human has to resolve it.
	StatusConflict Status = "conflict"
)

// Conflict names one existing version the incoming file collides with.
type Conflict struct {
	VersionID  string
	AssetID    string
	FilePath   string
	Similarity float64
}

// Result carries the duplicate verdict plus the hashes computed along the
// way so ingestion does not hash the bytes twice.
type Result struct {
	Status         Status
	MIMEType       string
	ContentHash    string
	PerceptualHash *uint64
	DuplicateOf    *media.Version
	Conflicts      []Conflict
}

type indexEntry struct {
	versionID string
	assetID   string
	filePath  string
	hash      uint64
}

// Detector checks incoming files against the catalog. The perceptual index
// is an in-memory snapshot; entries are published only after the version row
// they describe has committed, so a crash can never leave the index pointing
// at a row that does not exist.
type Detector struct {
	store     *store.Store
	threshold float64

	mu    sync.RWMutex
	index []indexEntry
}

// NewDetector builds a detector using the configured conflict threshold.
func NewDetector(st *store.Store, threshold float64) *Detector {
	return &Detector{store: st, threshold: threshold}
}

// Load warms the perceptual index from every stored version that carries a
// hash. Call once at startup.
func (d *Detector) Load(ctx context.Context) error {
	versions, err := d.store.VersionsWithPerceptualHash(ctx)
	if err != nil {
		return services.Wrap(services.ErrPersistence, "dedupe", "load", "read perceptual index", err)
	}
	entries := make([]indexEntry, 0, len(versions))
	for _, v := range versions {
		if v.PerceptualHash == nil {
			continue
		}
		entries = append(entries, indexEntry{
			versionID: v.ID,
			assetID:   v.AssetID,
			filePath:  v.FilePath,
			hash:      *v.PerceptualHash,
		})
	}
	d.mu.Lock()
	d.index = entries
	d.mu.Unlock()
	return nil
}

// Check classifies the incoming bytes. Video files only get the exact
// content-hash check; perceptual comparison is image-only.
func (d *Detector) Check(ctx context.Context, data []byte, filename string) (*Result, error) {
	mimeType := detectMIME(data, filename)
	if !supportedMIME(mimeType) {
		return nil, services.Wrap(services.ErrUnsupportedMedia, "dedupe", "check", mimeType, nil)
	}

	contentHash, err := imagehash.ContentHash(bytes.NewReader(data))
	if err != nil {
		return nil, services.Wrap(nil, "dedupe", "check", "content hash", err)
	}
	result := &Result{Status: StatusAccepted, MIMEType: mimeType, ContentHash: contentHash}

	existing, err := d.store.FindVersionByContentHash(ctx, contentHash)
	if err != nil {
		return nil, services.Wrap(services.ErrPersistence, "dedupe", "check", "content hash lookup", err)
	}
	if existing != nil {
		result.Status = StatusSkipped
		result.DuplicateOf = existing
		return result, nil
	}

	if strings.HasPrefix(mimeType, "video/") {
		return result, nil
	}

	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, services.Wrap(services.ErrUnsupportedMedia, "dedupe", "check", "decode image", err)
	}
	hash, err := imagehash.Perceptual(img)
	if err != nil {
		return nil, services.Wrap(nil, "dedupe", "check", "perceptual hash", err)
	}
	result.PerceptualHash = &hash

	d.mu.RLock()
	for _, entry := range d.index {
		if sim := imagehash.Similarity(hash, entry.hash); sim >= d.threshold {
			result.Conflicts = append(result.Conflicts, Conflict{
				VersionID:  entry.versionID,
				AssetID:    entry.assetID,
				FilePath:   entry.filePath,
				Similarity: sim,
			})
		}
	}
	d.mu.RUnlock()

	if len(result.Conflicts) > 0 {
		result.Status = StatusConflict
	}
	return result, nil
}

// Publish adds a committed version to the perceptual index. Call only after
// the version row is durable.
func (d *Detector) Publish(version *media.Version) {
	if version == nil || version.PerceptualHash == nil {
		return
	}
	d.mu.Lock()
	d.index = append(d.index, indexEntry{
		versionID: version.ID,
		assetID:   version.AssetID,
		filePath:  version.FilePath,
		hash:      *version.PerceptualHash,
	})
	d.mu.Unlock()
}

func detectMIME(data []byte, filename string) string {
	if byExt := mime.TypeByExtension(strings.ToLower(filepath.Ext(filename))); byExt != "" {
		if base, _, err := mime.ParseMediaType(byExt); err == nil {
			return base
		}
		return byExt
	}
	sniffed := http.DetectContentType(data)
	if base, _, err := mime.ParseMediaType(sniffed); err == nil {
		return base
	}
	return sniffed
}

func supportedMIME(mimeType string) bool {
	return strings.HasPrefix(mimeType, "image/") || strings.HasPrefix(mimeType, "video/")
}
