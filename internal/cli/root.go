// Package cli implements the watch command line: sharing a stream into a
// room and watching one from it.
package cli

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/Hayato040404/Watch/internal/ui"
	"github.com/Hayato040404/Watch/internal/version"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:     "watch",
	Short:   "Share your screen or camera with other devices using WebRTC",
	Long: `Watch streams pre-encoded video and audio directly between devices using
WebRTC. The relay only brokers the negotiation; media flows peer to peer.
Share a stream into a room and let any number of viewers watch it live.`,
	Version: version.Version,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
// Interrupts are handled inside the commands: both need to flush and
// disconnect cleanly.
func Execute() {
	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true

	if err := rootCmd.Execute(); err != nil {
		ui.PrintError(err.Error())
		os.Exit(1)
	}
}
