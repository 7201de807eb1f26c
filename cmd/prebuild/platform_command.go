package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"prebuild/internal/platform"
)

func newPlatformCommand() *cobra.Command {
	return &cobra.Command{
		Use:         "platform",
		Short:       "Print the detected platform and the target triples it packages",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := platform.Current()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Platform: %s\n", id)
			for _, arch := range platform.TargetArchs(id) {
				fmt.Fprintf(out, "  %-7s %s\n", arch, platform.Triple(id, arch))
			}
			fmt.Fprintf(out, "Elevated: %s\n", yesNo(platform.IsElevated()))
			return nil
		},
	}
}
