package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tubechat/tubechat/internal/store"
)

func ingestCmd(configPath *string) *cobra.Command {
	var refresh bool

	cmd := &cobra.Command{
		Use:   "ingest <video-url>",
		Short: "Build or load the index for a video and print its cache key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(*configPath)
			if err != nil {
				return err
			}
			defer a.close()

			var idx *store.Index
			if refresh {
				idx, err = a.ingest.Refresh(cmd.Context(), args[0])
			} else {
				idx, err = a.ingest.Ingest(cmd.Context(), args[0])
			}
			if err != nil {
				return err
			}

			meta := idx.Meta()
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%d chunks\n", meta.Key, meta.Language, idx.Len())
			return nil
		},
	}
	cmd.Flags().BoolVar(&refresh, "refresh", false, "discard any cached index and rebuild it")
	return cmd
}
