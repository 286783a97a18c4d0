package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/face-attendance/internal/config"
	"github.com/kozaktomas/face-attendance/internal/detect"
	"github.com/kozaktomas/face-attendance/internal/feature"
	"github.com/kozaktomas/face-attendance/internal/match"
	"github.com/kozaktomas/face-attendance/internal/web/handlers"
)

var recognizeCmd = &cobra.Command{
	Use:   "recognize [image]",
	Short: "Recognize a face against the enrolled identities",
	Args:  cobra.ExactArgs(1),
	RunE:  runRecognize,
}

func init() {
	rootCmd.AddCommand(recognizeCmd)

	recognizeCmd.Flags().Float64("threshold", 0, "Match distance threshold (0 = config default)")
}

func runRecognize(cmd *cobra.Command, args []string) error {
	cfg := config.Load()

	threshold := mustGetFloat64(cmd, "threshold")
	if threshold <= 0 {
		threshold = cfg.Recognition.MatchThreshold
	}

	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("could not read image: %w", err)
	}

	ctx := context.Background()
	pipeline := handlers.NewPipeline(
		detect.NewClient(cfg.Detector.URL),
		feature.NewExtractor(cfg.Recognition.MinFaceSize),
	)

	vec, err := pipeline.VectorFromFrame(ctx, data)
	if errors.Is(err, handlers.ErrNoFace) {
		return errors.New("no face detected in image")
	}
	if err != nil {
		return fmt.Errorf("extraction failed: %w", err)
	}

	identities, err := st.ListIdentities(ctx)
	if err != nil {
		return fmt.Errorf("could not list identities: %w", err)
	}

	engine := match.NewEngine(threshold)
	result, err := engine.Match(vec, identities)
	if errors.Is(err, match.ErrNoCandidates) {
		return errors.New("no identities enrolled yet")
	}
	if err != nil {
		return err
	}

	if !result.Matched {
		fmt.Printf("No match (nearest distance %.2f, threshold %.2f)\n", result.Distance, threshold)
		return nil
	}

	fmt.Printf("Matched %s (ID %d)\n", result.Identity.Name, result.Identity.ID)
	fmt.Printf("  Distance:   %.2f\n", result.Distance)
	fmt.Printf("  Confidence: %.0f%%\n", result.Confidence*100)
	return nil
}
