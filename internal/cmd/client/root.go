package client

import (
	"github.com/spf13/cobra"
)

// NewRoot constructs a root Cobra command for the incidents client.
// It registers the feed and debug command groups.
func NewRoot(endpoint EndpointFunc) *cobra.Command {
	root := &cobra.Command{
		Use:   "incidents",
		Short: "Incidents client commands",
	}
	root.AddCommand(NewFeedCommand(endpoint))
	root.AddCommand(NewDebugCommand(endpoint))
	return root
}
