package cli

import (
	"runtime"

	"github.com/spf13/cobra"

	"github.com/yairfalse/perfio/internal/counter"
)

func versionCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show perfio version information",
		Run: func(cmd *cobra.Command, args []string) {
			a.printf("perfio v%s\n", getVersion())
			a.printf("Git Commit: %s\n", getGitCommit())
			a.printf("Build Date: %s\n", getBuildDate())
			a.printf("Counter API: %d.%d\n", counter.Version>>24, (counter.Version>>16)&0xff)
			a.printf("Platform: %s/%s\n", runtime.GOOS, runtime.GOARCH)
		},
	}
}

// These will be set by build scripts
var (
	version   = "dev"
	gitCommit = "unknown"
	buildDate = "unknown"
)

func getVersion() string   { return version }
func getGitCommit() string { return gitCommit }
func getBuildDate() string { return buildDate }
