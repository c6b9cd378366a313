package askcmder

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	"github.com/muesli/termenv"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/papercomputeco/murasame/pkg/conversation"
	"github.com/papercomputeco/murasame/pkg/envelope"
	"github.com/papercomputeco/murasame/pkg/llm"
)

const askLongDesc string = `Ask a running murasame server a question.

The prompt is sent to the chosen endpoint together with the history
read from --history. With --save the returned history is written back,
so repeated calls continue one conversation. Replies are rendered as
markdown when stdout is a terminal.

Examples:
  murasame ask "Hello"
  murasame ask --endpoint qa --history chat.json --save "and why is that?"
  murasame ask --endpoint vision --image https://example.com/cat.png "what is this"`

const askShortDesc string = "Ask a running server"

const defaultServer = "http://localhost:28565"

var (
	metaStyle  = lipgloss.NewStyle().Faint(true)
	errorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
)

// ErrFailed is returned when the server answered with a failure envelope.
var ErrFailed = errors.New("request failed")

type askCommander struct {
	serverURL    string
	endpoint     string
	historyPath  string
	save         bool
	image        string
	role         string
	maxNewTokens int
	raw          bool
	timeout      time.Duration

	// markdown is decided from the output stream unless set by tests.
	markdown *bool
}

func NewAskCmd() *cobra.Command {
	cmder := &askCommander{}

	cmd := &cobra.Command{
		Use:          "ask [prompt]",
		Short:        askShortDesc,
		Long:         askLongDesc,
		Args:         cobra.MaximumNArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			prompt := ""
			if len(args) == 1 {
				prompt = args[0]
			}
			return cmder.run(cmd.Context(), cmd, prompt)
		},
	}

	cmd.Flags().StringVarP(&cmder.serverURL, "server", "s", defaultServer, "Base URL of the murasame server")
	cmd.Flags().StringVarP(&cmder.endpoint, "endpoint", "e", "chat", "Endpoint to ask: chat, qa or vision")
	cmd.Flags().StringVar(&cmder.historyPath, "history", "", "JSON file holding the conversation so far")
	cmd.Flags().BoolVar(&cmder.save, "save", false, "Write the returned history back to --history")
	cmd.Flags().StringVar(&cmder.image, "image", "", "Image URL or data URI (vision only)")
	cmd.Flags().StringVar(&cmder.role, "role", "", "Role of the prompt turn (qa only)")
	cmd.Flags().IntVar(&cmder.maxNewTokens, "max-new-tokens", 0, "Token limit for the reply (chat only)")
	cmd.Flags().BoolVar(&cmder.raw, "raw", false, "Print the response envelope as JSON")
	cmd.Flags().DurationVar(&cmder.timeout, "timeout", 10*time.Minute, "HTTP client timeout")

	return cmd
}

func (c *askCommander) run(ctx context.Context, cmd *cobra.Command, prompt string) error {
	if c.save && c.historyPath == "" {
		return fmt.Errorf("--save needs --history")
	}

	history, err := c.loadHistory()
	if err != nil {
		return err
	}

	body, err := c.requestBody(prompt, history)
	if err != nil {
		return err
	}

	env, raw, err := c.post(ctx, body)
	if err != nil {
		return err
	}

	if c.save && env.OK() {
		if err := c.saveHistory(env.History); err != nil {
			return err
		}
	}

	out := cmd.OutOrStdout()
	if c.raw {
		_, err := out.Write(append(bytes.TrimSpace(raw), '\n'))
		if err != nil {
			return err
		}
		if !env.OK() {
			return ErrFailed
		}
		return nil
	}

	if !env.OK() {
		fmt.Fprintln(cmd.ErrOrStderr(), errorStyle.Render(env.Response))
		return ErrFailed
	}

	if err := c.print(out, env.Response); err != nil {
		return err
	}
	meta := fmt.Sprintf("%s · %d turns · %s", c.endpoint, len(env.History), env.Time)
	fmt.Fprintln(out, metaStyle.Render(ansi.Truncate(meta, wrapWidth(out), "…")))
	return nil
}

func (c *askCommander) requestBody(prompt string, history conversation.History) (map[string]any, error) {
	if history == nil {
		history = conversation.History{}
	}
	body := map[string]any{
		"prompt":  prompt,
		"history": history,
	}

	switch c.endpoint {
	case "chat":
		if c.maxNewTokens > 0 {
			body["max_new_tokens"] = c.maxNewTokens
		}
	case "qa":
		if c.role != "" {
			body["role"] = c.role
		}
	case "vision":
		if c.image != "" {
			body["image"] = c.image
		}
	default:
		return nil, fmt.Errorf("unknown endpoint %q: want chat, qa or vision", c.endpoint)
	}
	return body, nil
}

func (c *askCommander) post(ctx context.Context, body map[string]any) (envelope.Envelope, []byte, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return envelope.Envelope{}, nil, fmt.Errorf("could not marshal request: %w", err)
	}

	url := strings.TrimRight(c.serverURL, "/") + "/" + c.endpoint
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return envelope.Envelope{}, nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	client := &http.Client{Timeout: c.timeout}
	resp, err := client.Do(req)
	if err != nil {
		return envelope.Envelope{}, nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return envelope.Envelope{}, nil, fmt.Errorf("could not read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var errResp llm.ErrorResponse
		if json.Unmarshal(raw, &errResp) == nil && errResp.Error != "" {
			return envelope.Envelope{}, raw, fmt.Errorf("server returned %d: %s", resp.StatusCode, errResp.Error)
		}
		return envelope.Envelope{}, raw, fmt.Errorf("server returned %d: %s", resp.StatusCode, string(raw))
	}

	var env envelope.Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return envelope.Envelope{}, raw, fmt.Errorf("could not decode response: %w", err)
	}
	return env, raw, nil
}

func (c *askCommander) print(out io.Writer, reply string) error {
	if !c.useMarkdown(out) {
		_, err := fmt.Fprintln(out, reply)
		return err
	}

	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(wrapWidth(out)),
	)
	if err != nil {
		return fmt.Errorf("could not create markdown renderer: %w", err)
	}
	rendered, err := renderer.Render(reply)
	if err != nil {
		return fmt.Errorf("could not render reply: %w", err)
	}
	_, err = fmt.Fprint(out, rendered)
	return err
}

func (c *askCommander) useMarkdown(out io.Writer) bool {
	if c.markdown != nil {
		return *c.markdown
	}
	f, ok := out.(*os.File)
	return ok && term.IsTerminal(int(f.Fd())) && !termenv.EnvNoColor()
}

func wrapWidth(out io.Writer) int {
	if f, ok := out.(*os.File); ok {
		if width, _, err := term.GetSize(int(f.Fd())); err == nil && width > 0 {
			return min(width, 120)
		}
	}
	return 80
}

func (c *askCommander) loadHistory() (conversation.History, error) {
	if c.historyPath == "" {
		return nil, nil
	}
	data, err := os.ReadFile(c.historyPath)
	if errors.Is(err, os.ErrNotExist) && c.save {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("could not read history: %w", err)
	}

	var history conversation.History
	if err := json.Unmarshal(data, &history); err != nil {
		return nil, fmt.Errorf("could not parse history %s: %w", c.historyPath, err)
	}
	return history, nil
}

func (c *askCommander) saveHistory(history conversation.History) error {
	data, err := json.MarshalIndent(history, "", "  ")
	if err != nil {
		return fmt.Errorf("could not marshal history: %w", err)
	}
	if err := os.WriteFile(c.historyPath, append(data, '\n'), 0o600); err != nil {
		return fmt.Errorf("could not write history: %w", err)
	}
	return nil
}
