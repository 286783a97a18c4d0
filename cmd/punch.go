package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/face-attendance/internal/attendance"
	"github.com/kozaktomas/face-attendance/internal/config"
	"github.com/kozaktomas/face-attendance/internal/detect"
	"github.com/kozaktomas/face-attendance/internal/feature"
	"github.com/kozaktomas/face-attendance/internal/match"
	"github.com/kozaktomas/face-attendance/internal/store"
	"github.com/kozaktomas/face-attendance/internal/web/handlers"
)

var punchCmd = &cobra.Command{
	Use:   "punch [frames...]",
	Short: "Record a punch event from a captured frame sequence",
	Long: `Record a punch in/out event from a sequence of captured frames.
The first frame recognizes the person; the full sequence must contain a
blink to pass the liveness check. Frames are assumed to be evenly spaced
at the capture interval.`,
	Args: cobra.MinimumNArgs(2),
	RunE: runPunch,
}

func init() {
	rootCmd.AddCommand(punchCmd)

	punchCmd.Flags().Bool("in", false, "Record a punch-in event")
	punchCmd.Flags().Bool("out", false, "Record a punch-out event")
	punchCmd.Flags().Int("interval", 100, "Capture interval between frames in milliseconds")
}

func punchEvent(cmd *cobra.Command) (store.EventType, error) {
	in := mustGetBool(cmd, "in")
	out := mustGetBool(cmd, "out")
	switch {
	case in && out:
		return "", errors.New("--in and --out are mutually exclusive")
	case in:
		return store.EventPunchIn, nil
	case out:
		return store.EventPunchOut, nil
	default:
		return "", errors.New("either --in or --out is required")
	}
}

func runPunch(cmd *cobra.Command, args []string) error {
	cfg := config.Load()

	event, err := punchEvent(cmd)
	if err != nil {
		return err
	}
	interval := time.Duration(mustGetInt(cmd, "interval")) * time.Millisecond

	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	ctx := context.Background()
	engine := match.NewEngine(cfg.Recognition.MatchThreshold)
	controller, err := attendance.NewController(ctx, st, engine, cfg.AttendanceParams())
	if err != nil {
		return fmt.Errorf("failed to initialize attendance controller: %w", err)
	}

	client := detect.NewClient(cfg.Detector.URL)
	pipeline := handlers.NewPipeline(client, feature.NewExtractor(cfg.Recognition.MinFaceSize))

	frames := make([][]byte, len(args))
	for i, path := range args {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("could not read frame %s: %w", path, err)
		}
		frames[i] = data
	}

	vec, err := pipeline.VectorFromFrame(ctx, frames[0])
	if errors.Is(err, handlers.ErrNoFace) {
		return errors.New("no face detected in first frame")
	}
	if err != nil {
		return fmt.Errorf("extraction failed: %w", err)
	}

	result, err := controller.Recognize(ctx, vec)
	if errors.Is(err, match.ErrNoCandidates) {
		return errors.New("no identities enrolled yet")
	}
	if err != nil {
		return err
	}
	if !result.Matched {
		return fmt.Errorf("%w (nearest distance %.2f)", attendance.ErrNoMatch, result.Distance)
	}
	fmt.Printf("Recognized %s (ID %d, distance %.2f)\n",
		result.Identity.Name, result.Identity.ID, result.Distance)

	start := time.Now()
	sessionID, err := controller.BeginPunch(ctx, result.Identity.ID, event, start)
	var cooldown *attendance.CooldownError
	if errors.As(err, &cooldown) {
		return fmt.Errorf("cooldown active, retry in %s", cooldown.Remaining.Round(time.Second))
	}
	if err != nil {
		return err
	}

	// Replay the sequence on the capture clock, one eye observation per
	// frame. Eyes are detected on the full frame; the liveness check only
	// consumes the box aspect ratio.
	for i, data := range frames {
		eyes, err := client.DetectEyes(ctx, data)
		if err != nil {
			return fmt.Errorf("eye detection failed on frame %d: %w", i, err)
		}

		poll, err := controller.Poll(ctx, sessionID, start.Add(time.Duration(i)*interval), eyes)
		if errors.Is(err, attendance.ErrLivenessTimeout) {
			return fmt.Errorf("liveness check failed: %s", poll.Liveness.Message)
		}
		if err != nil {
			return err
		}
		if poll.Done {
			fmt.Printf("Recorded %s for %s at %s (%d blinks)\n",
				poll.Record.Event, poll.Record.Name,
				poll.Record.Timestamp.Format(time.Kitchen), poll.Liveness.Blinks)
			return nil
		}
	}

	controller.Abandon(sessionID)
	return errors.New("liveness check failed: no blink in frame sequence")
}
