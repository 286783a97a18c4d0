package cmd

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "face-attendance",
	Short: "A face recognition attendance system",
	Long: `Face Attendance enrolls people from camera frames, recognizes them
against the enrolled set and records punch in/out events guarded by a
blink-based liveness check. Detection runs in a sidecar service; this
binary handles extraction, matching, storage and the kiosk API.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
}

func initConfig() {
	// .env file is optional, don't fail if not found
	_ = godotenv.Load()
}
