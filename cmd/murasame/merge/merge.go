package mergecmder

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/murasame/pkg/transcript"
)

const mergeLongDesc string = `Merge one or more transcript databases into a target.

Content-addressing makes this a simple union: nodes that already
exist in the target are skipped (deduped by hash), and nodes whose
hash does not match their content are refused.

Examples:
  murasame merge --sqlite merged.db alice.db bob.db`

const mergeShortDesc string = "Merge transcript databases"

type mergeCommander struct {
	sqlitePath string
}

func NewMergeCmd() *cobra.Command {
	cmder := &mergeCommander{}

	cmd := &cobra.Command{
		Use:          "merge [sources...]",
		Short:        mergeShortDesc,
		Long:         mergeLongDesc,
		Args:         cobra.MinimumNArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmder.run(cmd.Context(), cmd, args)
		},
	}

	cmd.Flags().StringVarP(&cmder.sqlitePath, "sqlite", "s", "", "Path to the target transcript database")
	_ = cmd.MarkFlagRequired("sqlite")

	return cmd
}

func (c *mergeCommander) run(ctx context.Context, cmd *cobra.Command, sources []string) error {
	target, err := transcript.NewSQLiteStorer(c.sqlitePath)
	if err != nil {
		return fmt.Errorf("could not open target database %s: %w", c.sqlitePath, err)
	}
	defer target.Close()

	var totalNew, totalDuped int

	for _, srcPath := range sources {
		srcNew, srcDuped, err := mergeFrom(ctx, target, srcPath)
		if err != nil {
			return err
		}
		totalNew += srcNew
		totalDuped += srcDuped

		fmt.Fprintf(cmd.OutOrStdout(), "  %s: %d new, %d already existed\n", srcPath, srcNew, srcDuped)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Merged %d new nodes from %d sources (%d already existed) into %s\n",
		totalNew, len(sources), totalDuped, c.sqlitePath)

	return nil
}

func mergeFrom(ctx context.Context, target transcript.Storer, srcPath string) (added, duped int, err error) {
	if _, err := os.Stat(srcPath); err != nil {
		return 0, 0, fmt.Errorf("source database %s: %w", srcPath, err)
	}
	source, err := transcript.NewSQLiteStorer(srcPath)
	if err != nil {
		return 0, 0, fmt.Errorf("could not open source database %s: %w", srcPath, err)
	}
	defer source.Close()

	nodes, err := source.List(ctx)
	if err != nil {
		return 0, 0, fmt.Errorf("could not list nodes from %s: %w", srcPath, err)
	}

	// List returns insertion order, so parents land before their children.
	for _, n := range nodes {
		if !n.Verify() {
			return added, duped, fmt.Errorf("node %s in %s does not match its content", n.Hash, srcPath)
		}
		exists, err := target.Has(ctx, n.Hash)
		if err != nil {
			return added, duped, fmt.Errorf("could not check node %s: %w", n.Hash, err)
		}
		if exists {
			duped++
			continue
		}
		if err := target.Put(ctx, n); err != nil {
			return added, duped, fmt.Errorf("could not put node %s: %w", n.Hash, err)
		}
		added++
	}
	return added, duped, nil
}
