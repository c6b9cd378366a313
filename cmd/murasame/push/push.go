package pushcmder

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/murasame/cmd/murasame/sqlitepath"
	"github.com/papercomputeco/murasame/pkg/provider"
	"github.com/papercomputeco/murasame/pkg/transcript"
	"github.com/papercomputeco/murasame/server"
)

const pushLongDesc string = `Upload the conversation turns recorded in a local transcript database
to another murasame server.

Every turn is sent to the remote /dag/nodes route, so the remote server
must run with transcript recording enabled. Turns are addressed by the
hash of their content and parent, and ones the remote already holds are
counted as already present rather than stored twice. Pushing the same
transcript again is therefore safe.

Examples:
  murasame push http://192.168.1.42:28565
  murasame push --sqlite ~/murasame.db --batch-size 100 http://localhost:28565`

const pushShortDesc string = "Upload recorded conversation turns to another server"

type pushCommander struct {
	sqlitePath string
	configPath string
	batchSize  int
	timeout    time.Duration
}

func NewPushCmd() *cobra.Command {
	cmder := &pushCommander{}

	cmd := &cobra.Command{
		Use:          "push <server-url>",
		Short:        pushShortDesc,
		Long:         pushLongDesc,
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmder.run(cmd.Context(), cmd, args[0])
		},
	}

	cmd.Flags().StringVarP(&cmder.sqlitePath, "sqlite", "s", "", "Transcript database to read (default: transcript.path)")
	cmd.Flags().StringVarP(&cmder.configPath, "config", "c", "", "Configuration file naming the transcript database")
	cmd.Flags().IntVar(&cmder.batchSize, "batch-size", 500, "Turns sent per request")
	cmd.Flags().DurationVar(&cmder.timeout, "timeout", 30*time.Second, "Time limit for each upload request")

	return cmd
}

func (c *pushCommander) run(ctx context.Context, cmd *cobra.Command, serverURL string) error {
	if c.batchSize <= 0 {
		return fmt.Errorf("--batch-size must be positive")
	}
	target := strings.TrimRight(serverURL, "/") + "/dag/nodes"

	dbPath, err := sqlitepath.ResolveSQLitePath(c.sqlitePath, c.configPath)
	if err != nil {
		return fmt.Errorf("could not resolve local database: %w", err)
	}

	storer, err := transcript.NewSQLiteStorer(dbPath)
	if err != nil {
		return fmt.Errorf("could not open local database %s: %w", dbPath, err)
	}
	defer storer.Close()

	turns, err := storer.List(ctx)
	if err != nil {
		return fmt.Errorf("could not read recorded turns: %w", err)
	}

	out := cmd.OutOrStdout()
	if len(turns) == 0 {
		fmt.Fprintf(out, "Nothing to upload: %s holds no recorded turns.\n", dbPath)
		return nil
	}
	fmt.Fprintf(out, "Uploading %d turns from %s to %s\n", len(turns), dbPath, serverURL)

	client := &http.Client{Timeout: c.timeout}
	var sum server.PushResponse
	for start := 0; start < len(turns); start += c.batchSize {
		batch := turns[start:min(start+c.batchSize, len(turns))]

		got, err := upload(ctx, client, target, batch)
		if err != nil {
			return fmt.Errorf("upload of turns %d-%d failed: %w", start, start+len(batch)-1, err)
		}
		sum.New += got.New
		sum.Duplicate += got.Duplicate
		sum.Errors += got.Errors
	}

	fmt.Fprintf(out, "Done: %d stored, %d already present, %d rejected\n", sum.New, sum.Duplicate, sum.Errors)
	return nil
}

// upload posts one batch of turns and decodes the remote tally.
func upload(ctx context.Context, client *http.Client, target string, batch []*transcript.Node) (server.PushResponse, error) {
	var tally server.PushResponse

	payload, err := json.Marshal(batch)
	if err != nil {
		return tally, fmt.Errorf("could not encode turns: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(payload))
	if err != nil {
		return tally, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return tally, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return tally, fmt.Errorf("remote answered %d: %s", resp.StatusCode, provider.Excerpt(body, 200))
	}

	if err := json.NewDecoder(resp.Body).Decode(&tally); err != nil {
		return tally, fmt.Errorf("could not decode remote tally: %w", err)
	}
	return tally, nil
}
