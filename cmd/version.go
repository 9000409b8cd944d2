package cmd

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/matrixise/coinledger/internal/events"
	"github.com/spf13/cobra"
)

var (
	// Version information (set via ldflags at build time)
	Version   = "dev"
	GitCommit = "unknown"
	BuildTime = "unknown"
)

var versionJSON bool

type buildInfo struct {
	Version   string   `json:"version"`
	Commit    string   `json:"commit"`
	BuiltAt   string   `json:"built_at"`
	GoVersion string   `json:"go_version"`
	Events    []string `json:"events"`
}

func currentBuild() buildInfo {
	return buildInfo{
		Version:   Version,
		Commit:    GitCommit,
		BuiltAt:   BuildTime,
		GoVersion: runtime.Version(),
		Events:    []string{string(events.KindBuy), string(events.KindSell)},
	}
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  `Display the coinledger version, git commit, build time and the contract events it decodes.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		info := currentBuild()
		if versionJSON {
			return printJSON(cmd, info)
		}
		_, err := fmt.Fprintf(cmd.OutOrStdout(), "coinledger %s (commit %s, built %s, %s)\nevents: %s\n",
			info.Version, info.Commit, info.BuiltAt, info.GoVersion, strings.Join(info.Events, ", "))
		return err
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
	versionCmd.Flags().BoolVar(&versionJSON, "json", false, "print build information as JSON")
}
