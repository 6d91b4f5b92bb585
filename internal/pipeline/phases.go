package pipeline

import (
	"context"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/kozaktomas/chronoface/internal/bucket"
	"github.com/kozaktomas/chronoface/internal/cluster"
	"github.com/kozaktomas/chronoface/internal/fingerprint"
	"github.com/kozaktomas/chronoface/internal/imageio"
)

// supportedExt lists the photo file extensions the scanner accepts.
var supportedExt = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".heic": true,
}

const (
	faceCropMargin = 0.25
	encodeQuality  = 92
)

// scanPhase walks the source folder, reads capture times, derives time
// buckets and writes photo thumbnails. Files without usable metadata land
// on the skip list instead of failing the run.
func (m *Manager) scanPhase(ctx context.Context, run *RunContext) error {
	m.publishPhase(run, PhaseScanning, "Scanning photos")

	manifest, err := fingerprint.OpenManifest(m.cfg.CacheDir, run.RunID)
	if err != nil {
		return fmt.Errorf("opening cache manifest: %w", err)
	}

	var files []string
	err = filepath.WalkDir(run.Parameters.Folder, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if supportedExt[strings.ToLower(filepath.Ext(path))] {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("walking %s: %w", run.Parameters.Folder, err)
	}
	sort.Strings(files)

	run.setProgress(0, len(files))
	m.publishProgress(run)

	for i, path := range files {
		if err := ctx.Err(); err != nil {
			return err
		}

		ts, reason := m.captureTime(path)
		if reason != "" {
			run.addSkipped(SkippedFile{Path: path, Reason: reason})
			run.setProcessed(i + 1)
			m.publishProgress(run)
			continue
		}

		b, err := bucket.Derive(ts, run.Parameters.Bucket)
		if err != nil {
			return fmt.Errorf("bucketing %s: %w", path, err)
		}

		img, err := imageio.Load(path)
		if err != nil {
			run.addSkipped(SkippedFile{Path: path, Reason: "unreadable_image"})
			run.setProcessed(i + 1)
			m.publishProgress(run)
			continue
		}

		photoID := uuid.New().String()
		thumbPath, err := imageio.SaveThumb(m.cfg.ThumbDir(), photoID, img, run.Parameters.ThumbEdge, m.cfg.ThumbQuality)
		if err != nil {
			return fmt.Errorf("writing thumbnail for %s: %w", path, err)
		}
		if err := manifest.Update(path, thumbPath, img); err != nil {
			log.Warn().Err(err).Str("path", path).Msg("cache manifest update failed")
		}

		bounds := img.Bounds()
		photo := &PhotoRecord{
			PhotoID:     photoID,
			Path:        path,
			Timestamp:   ts,
			BucketKey:   b.Key,
			BucketLabel: b.Label,
			ThumbPath:   thumbPath,
			Width:       bounds.Dx(),
			Height:      bounds.Dy(),
			DetectScale: 1.0,
		}
		run.mu.Lock()
		run.Photos[photoID] = photo
		run.PhotoOrder = append(run.PhotoOrder, photoID)
		run.PhotosByBucket[b.Key] = append(run.PhotosByBucket[b.Key], photoID)
		run.BucketLabels[b.Key] = b.Label
		run.mu.Unlock()

		run.setProcessed(i + 1)
		m.publishProgress(run)
	}

	// the total now means accepted photos, not candidate files
	run.setProgress(len(run.PhotoOrder), len(run.PhotoOrder))
	m.publishProgress(run)

	photosScanned.Add(float64(len(run.PhotoOrder)))
	return nil
}

// detectPhase sends every photo to the inference service, crops and embeds
// each face above the size floor.
func (m *Manager) detectPhase(ctx context.Context, run *RunContext) error {
	m.publishPhase(run, PhaseDetecting, "Running face detection")
	run.setProgress(0, len(run.PhotoOrder))

	for i, photoID := range run.PhotoOrder {
		if err := ctx.Err(); err != nil {
			return err
		}
		photo := run.Photos[photoID]

		img, err := imageio.Load(photo.Path)
		if err != nil {
			return fmt.Errorf("loading %s: %w", photo.Path, err)
		}

		detectImg := img
		if run.Parameters.DownscaleDetector && run.Parameters.MaxEdge > 0 {
			detectImg = imageio.EnsureMaxEdge(img, run.Parameters.MaxEdge)
			orig := img.Bounds()
			scaled := detectImg.Bounds()
			if long := max(scaled.Dx(), scaled.Dy()); long > 0 {
				photo.DetectScale = float64(max(orig.Dx(), orig.Dy())) / float64(long)
			}
		}

		data, err := imageio.EncodeJPEG(detectImg, encodeQuality)
		if err != nil {
			return fmt.Errorf("encoding %s: %w", photo.Path, err)
		}
		detections, err := m.faces.Detect(ctx, data)
		if err != nil {
			return fmt.Errorf("detecting faces in %s: %w", photo.Path, err)
		}

		for _, det := range detections {
			w, h := det.BBox[2], det.BBox[3]
			if min(w, h) < run.Parameters.MinFacePx {
				continue
			}

			crop := imageio.CropFace(detectImg, det.BBox[0], det.BBox[1], w, h, faceCropMargin)
			faceID := uuid.New().String()
			thumbPath, err := imageio.SaveThumb(m.cfg.FaceThumbDir(), faceID, crop, run.Parameters.ThumbEdge, m.cfg.ThumbQuality)
			if err != nil {
				return fmt.Errorf("writing face thumbnail: %w", err)
			}

			cropData, err := imageio.EncodeJPEG(crop, encodeQuality)
			if err != nil {
				return fmt.Errorf("encoding face crop: %w", err)
			}
			embedding, err := m.faces.Embed(ctx, cropData)
			if err != nil {
				return fmt.Errorf("embedding face in %s: %w", photo.Path, err)
			}

			face := &FaceRecord{
				FaceID:      faceID,
				PhotoID:     photoID,
				BucketKey:   photo.BucketKey,
				BBox:        det.BBox,
				Score:       det.Score,
				SizePx:      max(w, h),
				EmbeddingID: uuid.New().String(),
				Embedding:   embedding,
				ClusterID:   ClusterUnassigned,
				ThumbPath:   thumbPath,
			}
			run.mu.Lock()
			run.Faces[faceID] = face
			run.FaceOrder = append(run.FaceOrder, faceID)
			run.FacesByBucket[photo.BucketKey] = append(run.FacesByBucket[photo.BucketKey], faceID)
			run.mu.Unlock()
		}

		run.setProcessed(i + 1)
		m.publishProgress(run)
	}

	facesDetected.Add(float64(len(run.FaceOrder)))
	return nil
}

// clusterPhase groups all face embeddings globally so one identity keeps the
// same cluster id across every time bucket.
func (m *Manager) clusterPhase(run *RunContext) error {
	m.publishPhase(run, PhaseEmbedding, "Preparing embeddings")
	m.publishPhase(run, PhaseClustering, "Clustering faces")

	if len(run.FaceOrder) == 0 {
		run.mu.Lock()
		run.Clusters = make(map[string][]string)
		run.similar = newSimilarIndex()
		run.mu.Unlock()
		return nil
	}

	embeddings := make([][]float32, len(run.FaceOrder))
	for i, faceID := range run.FaceOrder {
		embeddings[i] = run.Faces[faceID].Embedding
	}
	result := cluster.Cluster(embeddings, 1)

	clusters := make(map[string][]string)
	run.mu.Lock()
	for i, faceID := range run.FaceOrder {
		label := result.Labels[i]
		run.Faces[faceID].ClusterID = label
		clusters[label] = append(clusters[label], faceID)
	}
	run.Clusters = clusters
	run.similar = buildSimilarIndex(run)
	run.mu.Unlock()

	log.Debug().
		Str("run_id", run.RunID).
		Float64("eps", result.Eps).
		Int("clusters", len(clusters)).
		Msg("clustering finished")
	return nil
}
