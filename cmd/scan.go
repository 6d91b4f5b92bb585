package cmd

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/disintegration/imaging"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/kozaktomas/chronoface/internal/bucket"
	"github.com/kozaktomas/chronoface/internal/collage"
	"github.com/kozaktomas/chronoface/internal/config"
	"github.com/kozaktomas/chronoface/internal/detect"
	"github.com/kozaktomas/chronoface/internal/pipeline"
)

var scanCmd = &cobra.Command{
	Use:   "scan [folder]",
	Short: "Scan a photo folder and cluster the faces in it",
	Long: `Scan a photo folder, bucket photos by capture date, detect and embed
faces and cluster them into identities. Optionally renders one collage
per time bucket when --collage is given a paper format.`,
	Args: cobra.ExactArgs(1),
	RunE: runScan,
}

func init() {
	rootCmd.AddCommand(scanCmd)

	scanCmd.Flags().String("bucket", "month", "Time bucket granularity: day, week, month, year")
	scanCmd.Flags().Int("max-edge", 1600, "Downscale photos to this edge before detection")
	scanCmd.Flags().Int("min-face-px", 40, "Discard faces smaller than this box dimension")
	scanCmd.Flags().Int("thumb-edge", 320, "Thumbnail edge size in pixels")
	scanCmd.Flags().Bool("no-downscale", false, "Detect on full-resolution images")
	scanCmd.Flags().String("collage", "", "Render a collage per bucket in this paper format (a5, a4, a3)")
}

func runScan(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	if err := cfg.EnsureDirs(); err != nil {
		return err
	}

	granularity, err := bucket.Parse(mustGetString(cmd, "bucket"))
	if err != nil {
		return err
	}

	client := detect.NewClient(cfg.Detect.URL)
	manager := pipeline.NewManager(cfg, client)

	run, err := manager.StartRun(pipeline.RunParameters{
		Folder:            args[0],
		Bucket:            granularity,
		MaxEdge:           mustGetInt(cmd, "max-edge"),
		MinFacePx:         mustGetInt(cmd, "min-face-px"),
		ThumbEdge:         mustGetInt(cmd, "thumb-edge"),
		DownscaleDetector: !mustGetBool(cmd, "no-downscale"),
	})
	if err != nil {
		return err
	}

	ch, err := manager.GetChannel(run.RunID)
	if err != nil {
		return err
	}
	if err := drainRunEvents(cmd.Context(), ch); err != nil {
		return err
	}

	printRunSummary(manager, run)

	if format := mustGetString(cmd, "collage"); format != "" {
		return renderBucketCollages(manager, run, cfg, format)
	}
	return nil
}

// drainRunEvents consumes the run's event stream and drives a terminal
// progress bar. Returns an error when the run ends in the error phase.
func drainRunEvents(ctx context.Context, ch *pipeline.EventChannel) error {
	var bar *progressbar.ProgressBar
	var barPhase pipeline.Phase

	for {
		ev, ok, err := ch.Next(ctx)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}

		switch ev.Name {
		case "phase", "progress":
			status, ok := ev.Data.(pipeline.StatusSnapshot)
			if !ok {
				continue
			}
			if bar == nil || barPhase != status.Phase {
				if bar != nil {
					_ = bar.Finish()
				}
				bar = progressbar.NewOptions(max(status.Total, 1),
					progressbar.OptionSetDescription(string(status.Phase)),
					progressbar.OptionShowCount(),
					progressbar.OptionShowElapsedTimeOnFinish(),
					progressbar.OptionFullWidth(),
				)
				barPhase = status.Phase
			}
			bar.ChangeMax(max(status.Total, 1))
			_ = bar.Set(status.Processed)
		case "error":
			if bar != nil {
				_ = bar.Finish()
			}
			return fmt.Errorf("run failed: %v", ev.Data)
		case "done":
			if bar != nil {
				_ = bar.Finish()
			}
			fmt.Println()
			return nil
		}
	}
}

func printRunSummary(manager *pipeline.Manager, run *pipeline.RunContext) {
	fmt.Printf("Run %s finished\n", run.RunID)
	fmt.Printf("  Photos:  %d\n", len(run.PhotoOrder))
	fmt.Printf("  Faces:   %d\n", len(run.FaceOrder))
	fmt.Printf("  Skipped: %d\n", len(run.Skipped))

	clusters, err := manager.ListClusters(run.RunID)
	if err != nil {
		return
	}
	fmt.Printf("  Clusters:\n")
	for _, c := range clusters {
		fmt.Printf("    %-16s %3d faces  (%s)\n", c.ClusterID, c.FaceCount, c.Label)
	}
}

// renderBucketCollages writes one collage per time bucket under the output
// directory.
func renderBucketCollages(manager *pipeline.Manager, run *pipeline.RunContext, cfg *config.Config, format string) error {
	buckets, err := manager.ListBuckets(run.RunID)
	if err != nil {
		return err
	}

	for _, b := range buckets {
		faces := run.SelectFaces(b.Key, pipeline.SelectAcceptedAndUnreviewed, nil)
		if len(faces) == 0 {
			continue
		}
		faces = run.SortFaces(faces, pipeline.SortByTime, b.Key)

		tiles := make([]collage.Tile, 0, len(faces))
		for _, face := range faces {
			img, err := imaging.Open(face.ThumbPath)
			if err != nil {
				continue
			}
			tiles = append(tiles, collage.Tile{Image: img, Label: run.TileLabel(face)})
		}
		if len(tiles) == 0 {
			continue
		}

		img, err := collage.Render(tiles, collage.Options{
			Format:  format,
			Title:   b.Label,
			Rounded: true,
			Labels:  true,
		})
		if err != nil {
			return fmt.Errorf("rendering collage for %s: %w", b.Key, err)
		}

		path := filepath.Join(cfg.OutputDir, fmt.Sprintf("%s_%s.jpg", run.RunID, b.Key))
		if err := collage.Save(path, img, cfg.ThumbQuality); err != nil {
			return err
		}
		fmt.Printf("Collage written: %s (%d faces)\n", path, len(tiles))
	}
	return nil
}
