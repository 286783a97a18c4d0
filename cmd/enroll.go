package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/kozaktomas/face-attendance/internal/config"
	"github.com/kozaktomas/face-attendance/internal/detect"
	"github.com/kozaktomas/face-attendance/internal/enroll"
	"github.com/kozaktomas/face-attendance/internal/feature"
	"github.com/kozaktomas/face-attendance/internal/store"
	"github.com/kozaktomas/face-attendance/internal/web/handlers"
)

var enrollCmd = &cobra.Command{
	Use:   "enroll [frames...]",
	Short: "Enroll a person from captured frames",
	Long: `Enroll a person from a set of captured camera frames.
Each frame is run through face detection and feature extraction; the
valid samples are averaged into the enrolled vector. Frames that do not
contain exactly one face are skipped.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runEnroll,
}

func init() {
	rootCmd.AddCommand(enrollCmd)

	enrollCmd.Flags().String("name", "", "Name of the person to enroll (required)")
	enrollCmd.Flags().Int("samples", 0, "Number of valid samples to average (0 = config default)")
	enrollCmd.Flags().Int64("update", 0, "Re-enroll the identity with this ID, replacing its vector")
	_ = enrollCmd.MarkFlagRequired("name")
}

func runEnroll(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	name := mustGetString(cmd, "name")

	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	ctx := context.Background()
	pipeline := handlers.NewPipeline(
		detect.NewClient(cfg.Detector.URL),
		feature.NewExtractor(cfg.Recognition.MinFaceSize),
	)

	params := cfg.EnrollParams()
	// Frames on disk are already distinct captures; striding them would
	// just demand more files for the same sample count.
	params.FrameStride = 1
	if samples := mustGetInt(cmd, "samples"); samples > 0 {
		params.TargetSamples = samples
		params.FrameBudget = 0 // recomputed from the new target
	}

	session := enroll.NewSession(name, params)

	bar := progressbar.NewOptions(len(args),
		progressbar.OptionSetDescription("Extracting faces"),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("frames"),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetPredictTime(true),
		progressbar.OptionFullWidth(),
	)

	var progress enroll.Progress
	skipped := 0
	for _, path := range args {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("could not read frame %s: %w", path, err)
		}

		vec, err := pipeline.VectorFromSoloFrame(ctx, data)
		switch {
		case errors.Is(err, handlers.ErrNoFace), errors.Is(err, handlers.ErrMultipleFaces):
			skipped++
			_ = bar.Add(1)
			continue
		case err != nil:
			fmt.Printf("\nFrame %s rejected: %v\n", path, err)
			progress = session.Feed(nil)
		default:
			progress = session.Feed(vec)
		}
		_ = bar.Add(1)
		if progress.State != enroll.StatePending {
			break
		}
	}
	fmt.Println()

	if progress.State == enroll.StatePending {
		session.Abandon()
		progress = session.Feed(nil)
	}
	if progress.State == enroll.StateFailed {
		if skipped > 0 {
			fmt.Printf("Skipped %d frames without exactly one face\n", skipped)
		}
		return fmt.Errorf("enrollment failed: %w", progress.Err)
	}

	if updateID := mustGetInt64(cmd, "update"); updateID > 0 {
		if err := st.UpdateIdentityVector(ctx, updateID, progress.Vector); err != nil {
			return fmt.Errorf("failed to re-enroll identity %d: %w", updateID, err)
		}
		fmt.Printf("Re-enrolled identity %d from %d samples\n", updateID, progress.Captured)
		if skipped > 0 {
			fmt.Printf("Skipped %d frames without exactly one face\n", skipped)
		}
		return nil
	}

	warnNearDuplicate(ctx, st, progress)

	ident, err := st.CreateIdentity(ctx, name, progress.Vector)
	if err != nil {
		return fmt.Errorf("failed to store identity: %w", err)
	}

	fmt.Printf("Enrolled %s (ID %d) from %d samples\n", ident.Name, ident.ID, progress.Captured)
	if skipped > 0 {
		fmt.Printf("Skipped %d frames without exactly one face\n", skipped)
	}
	return nil
}

// warnNearDuplicate flags an aggregate vector suspiciously close to an
// already enrolled identity. Advisory only, the enrollment proceeds.
func warnNearDuplicate(ctx context.Context, st store.Store, progress enroll.Progress) {
	identities, err := st.ListIdentities(ctx)
	if err != nil || len(identities) == 0 {
		return
	}
	neighbors := store.NewNeighborIndex()
	neighbors.BuildFromIdentities(identities)
	near := neighbors.Nearest(progress.Vector, 1)
	if len(near) > 0 && near[0].Distance < 2.0 {
		fmt.Printf("Warning: very similar to already enrolled identity %s (distance %.2f)\n",
			near[0].Name, near[0].Distance)
	}
}
