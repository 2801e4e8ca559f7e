package cmd

import (
	"context"
	"fmt"
	"time"

	"polarsync/internal/testing/mock"

	"github.com/spf13/cobra"
)

func newMockServerCmd() *cobra.Command {
	var (
		fixturePath string
		addr        string
	)

	cmd := &cobra.Command{
		Use:   "mock-server",
		Short: "Serve a fixture as a fake Polarion query service",
		Long: `Starts an MCP server implementing the query service tools from a YAML
fixture of test cases and test runs. Point --endpoint at the printed URL to
try polarsync without a Polarion instance. The server runs until
interrupted.`,
		Example: `  polarsync mock-server --fixture testdata/project.yaml --addr localhost:8090`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			srv, err := mock.NewServerFromFile(fixturePath)
			if err != nil {
				return err
			}

			httpSrv := mock.NewHTTPServer(srv, addr)
			if _, err := httpSrv.Start(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Serving %s at %s\n", fixturePath, httpSrv.Endpoint())

			<-cmd.Context().Done()

			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := httpSrv.Stop(ctx); err != nil {
				return err
			}
			return httpSrv.Err()
		},
	}

	cmd.Flags().StringVar(&fixturePath, "fixture", "", "YAML fixture file")
	cmd.Flags().StringVar(&addr, "addr", "localhost:8090", "Listen address")
	_ = cmd.MarkFlagRequired("fixture")
	return cmd
}
