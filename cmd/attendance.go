package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/face-attendance/internal/attendance"
	"github.com/kozaktomas/face-attendance/internal/config"
	"github.com/kozaktomas/face-attendance/internal/match"
)

var attendanceCmd = &cobra.Command{
	Use:   "attendance [date]",
	Short: "Show the attendance summary for a day",
	Long: `Show the per-identity attendance summary for a day (default today).
Worked time sums closed punch-in/punch-out pairs; a trailing punch-in
without a punch-out marks the identity as still present.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runAttendance,
}

func init() {
	rootCmd.AddCommand(attendanceCmd)
}

func runAttendance(cmd *cobra.Command, args []string) error {
	cfg := config.Load()

	day := time.Now()
	if len(args) > 0 {
		parsed, err := time.ParseInLocation("2006-01-02", args[0], time.Local)
		if err != nil {
			return fmt.Errorf("invalid date %q, expected YYYY-MM-DD", args[0])
		}
		day = parsed
	}

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

	summaries, err := controller.DaySummary(ctx, day)
	if err != nil {
		return err
	}

	fmt.Printf("Attendance for %s\n\n", day.Format("2006-01-02"))
	if len(summaries) == 0 {
		fmt.Println("No punches recorded")
		return nil
	}

	fmt.Printf("%-6s %-30s %-10s %-9s %s\n", "ID", "NAME", "LAST", "PRESENT", "WORKED")
	for _, s := range summaries {
		present := "no"
		if s.Present {
			present = "yes"
		}
		fmt.Printf("%-6d %-30s %-10s %-9s %s\n",
			s.IdentityID, s.Name, s.LastEvent, present, s.Worked.Round(time.Minute))
	}
	return nil
}
