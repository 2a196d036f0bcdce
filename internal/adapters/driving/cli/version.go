package cli

import (
	"github.com/spf13/cobra"
)

// version is set at build time through SetVersion.
var version = "dev"

var versionCmd = &cobra.Command{
	Use:         "version",
	Short:       "Print the version number",
	Annotations: map[string]string{annotationNoServices: ""},
	Run: func(cmd *cobra.Command, _ []string) {
		cmd.Printf("sercha-rag version %s\n", version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}

// SetVersion sets the version reported by the version command and --version.
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}
