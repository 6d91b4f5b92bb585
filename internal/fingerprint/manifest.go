package fingerprint

import (
	"encoding/json"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"time"
)

// ManifestEntry records the cached state of one source photo.
type ManifestEntry struct {
	ImageHash string `json:"image_hash"`
	ThumbPath string `json:"thumb_path"`
	UpdatedAt string `json:"updated_at"`
}

// Manifest is the JSON-backed cache index for one run. It lets a later run
// over the same folder detect which thumbnails are still valid.
type Manifest struct {
	runID   string
	path    string
	entries map[string]ManifestEntry
}

// OpenManifest loads (or initializes) the manifest for a run under cacheDir.
func OpenManifest(cacheDir, runID string) (*Manifest, error) {
	dir := filepath.Join(cacheDir, runID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating cache dir: %w", err)
	}

	m := &Manifest{
		runID:   runID,
		path:    filepath.Join(dir, "manifest.json"),
		entries: make(map[string]ManifestEntry),
	}

	data, err := os.ReadFile(m.path)
	if os.IsNotExist(err) {
		return m, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading manifest: %w", err)
	}

	var payload struct {
		Entries map[string]ManifestEntry `json:"entries"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("parsing manifest: %w", err)
	}
	if payload.Entries != nil {
		m.entries = payload.Entries
	}
	return m, nil
}

// Get returns the cached entry for a source path, if any.
func (m *Manifest) Get(photoPath string) (ManifestEntry, bool) {
	entry, ok := m.entries[photoPath]
	return entry, ok
}

// Update records a freshly generated thumbnail for a source photo and
// persists the manifest.
func (m *Manifest) Update(photoPath, thumbPath string, img image.Image) error {
	m.entries[photoPath] = ManifestEntry{
		ImageHash: FormatHash(PHash(img)),
		ThumbPath: thumbPath,
		UpdatedAt: time.Now().UTC().Format(time.RFC3339),
	}
	return m.save()
}

// NeedsRefresh reports whether a photo's thumbnail must be regenerated
// because it is absent from the manifest or its content hash changed.
func (m *Manifest) NeedsRefresh(photoPath string, img image.Image) bool {
	entry, ok := m.entries[photoPath]
	if !ok {
		return true
	}
	return entry.ImageHash != FormatHash(PHash(img))
}

func (m *Manifest) save() error {
	payload := struct {
		RunID   string                   `json:"run_id"`
		Updated string                   `json:"updated"`
		Entries map[string]ManifestEntry `json:"entries"`
	}{
		RunID:   m.runID,
		Updated: time.Now().UTC().Format(time.RFC3339),
		Entries: m.entries,
	}
	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding manifest: %w", err)
	}
	if err := os.WriteFile(m.path, data, 0o644); err != nil {
		return fmt.Errorf("writing manifest: %w", err)
	}
	return nil
}
