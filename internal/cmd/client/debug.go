package client

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/spf13/cobra"

	"github.com/corbtastik/incident-visualizer/internal/feed"
)

// NewDebugCommand constructs `debug <category>`, which prints the server's
// diagnostics for a category collection.
func NewDebugCommand(endpoint EndpointFunc) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "debug <category>",
		Short: "Show collection diagnostics for a category",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ep, _ := cmd.Flags().GetString("endpoint")
			if ep == "" {
				ep = endpoint()
			}
			if strings.HasPrefix(ep, "grpc://") {
				return fmt.Errorf("debug is served over HTTP only; pass an http endpoint")
			}
			u, err := url.JoinPath(httpBase(ep), "v1", "debug", args[0])
			if err != nil {
				return err
			}
			req, err := http.NewRequestWithContext(cmd.Context(), http.MethodGet, u, nil)
			if err != nil {
				return err
			}
			resp, err := (&http.Client{Timeout: feed.DefaultTimeout}).Do(req)
			if err != nil {
				return err
			}
			defer resp.Body.Close()
			body, err := io.ReadAll(resp.Body)
			if err != nil {
				return err
			}
			if resp.StatusCode != http.StatusOK {
				var eb struct {
					Error string `json:"error"`
				}
				if json.Unmarshal(body, &eb) == nil && eb.Error != "" {
					return fmt.Errorf("debug %s: %s", args[0], eb.Error)
				}
				return fmt.Errorf("debug %s: %s", args[0], resp.Status)
			}
			var out bytes.Buffer
			if err := json.Indent(&out, body, "", "  "); err != nil {
				return fmt.Errorf("debug %s: %w", args[0], err)
			}
			out.WriteByte('\n')
			_, err = cmd.OutOrStdout().Write(out.Bytes())
			return err
		},
	}
	cmd.Flags().String("endpoint", "", "Server endpoint (default $INCIDENTS_ENDPOINT)")
	return cmd
}
