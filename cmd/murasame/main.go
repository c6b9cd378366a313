package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	askcmder "github.com/papercomputeco/murasame/cmd/murasame/ask"
	mergecmder "github.com/papercomputeco/murasame/cmd/murasame/merge"
	pushcmder "github.com/papercomputeco/murasame/cmd/murasame/push"
	servecmder "github.com/papercomputeco/murasame/cmd/murasame/serve"
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "murasame",
		Short:        "Assistant backend with local, self-hosted and hosted models",
		SilenceUsage: true,
	}

	cmd.AddCommand(servecmder.NewServeCmd())
	cmd.AddCommand(askcmder.NewAskCmd())
	cmd.AddCommand(pushcmder.NewPushCmd())
	cmd.AddCommand(mergecmder.NewMergeCmd())

	return cmd
}

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}
