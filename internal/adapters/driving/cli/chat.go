package cli

import (
	"bufio"
	"context"
	"errors"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/creditrust/credirag/internal/core/domain"
	"github.com/creditrust/credirag/internal/core/ports/driving"
	"github.com/creditrust/credirag/internal/logger"
)

var (
	chatPlain bool
	chatWatch bool
)

var chatCmd = &cobra.Command{
	Use:     "chat",
	Aliases: []string{"tui"},
	Short:   "Chat about customer complaints",
	Long: `Starts an interactive session. Each question retrieves the most relevant
complaint excerpts and the language model answers from them alone.

On a terminal this opens the full-screen chat. Use --plain, or pipe input,
for a line-based session.

Line-mode commands:
  /sources  - show the sources of the last answer
  /history  - show the questions and answers so far
  /exit     - end the session (also /quit or Ctrl+D)`,
	Args: cobra.NoArgs,
	RunE: runChat,
}

func init() {
	chatCmd.Flags().BoolVar(&chatPlain, "plain", false, "line-based chat even on a terminal")
	chatCmd.Flags().BoolVar(&chatWatch, "watch", false, "reload the index when it is rebuilt")
	rootCmd.AddCommand(chatCmd)
}

func runChat(cmd *cobra.Command, _ []string) error {
	a, err := app()
	if err != nil {
		return err
	}
	conv, err := a.Conversation(cmd.Context())
	if err != nil {
		return err
	}
	manager, err := a.IndexManager(cmd.Context())
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	if chatWatch {
		go func() {
			if err := manager.Watch(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Warn("index watch stopped: %v", err)
			}
		}()
	}

	if !chatPlain && isTerminal(os.Stdin) && isTerminal(os.Stdout) {
		return runTUI(ctx, conv, manager, a.Settings())
	}
	return runREPL(ctx, cmd, conv)
}

// maxQuestionBytes bounds one REPL line. Pasted complaint narratives run
// well past the scanner's 64 KiB default.
const maxQuestionBytes = 1 << 20

// runREPL reads one question per line until EOF or an exit command.
func runREPL(ctx context.Context, cmd *cobra.Command, conv driving.ConversationDriver) error {
	cmd.Println("Ask a question about customer complaints. /exit to quit.")

	scanner := bufio.NewScanner(cmd.InOrStdin())
	scanner.Buffer(make([]byte, 0, bufio.MaxScanTokenSize), maxQuestionBytes)
	var last *domain.Answer
	for {
		cmd.Print("> ")
		if !scanner.Scan() {
			cmd.Println()
			return scanner.Err()
		}

		line := strings.TrimSpace(scanner.Text())
		switch line {
		case "":
			continue
		case "/exit", "/quit":
			return nil
		case "/sources":
			if last == nil {
				cmd.Println("No answer yet.")
				continue
			}
			printSources(cmd, last)
			continue
		case "/history":
			printHistory(cmd, conv.History())
			continue
		}

		answer, err := conv.Ask(ctx, line)
		switch {
		case errors.Is(err, domain.ErrNoRelevantContext):
			cmd.Println("No relevant complaints found for that question.")
			continue
		case err != nil:
			if ctx.Err() != nil {
				return ctx.Err()
			}
			cmd.Printf("Error: %v\n", err)
			continue
		}

		last = answer
		cmd.Println()
		cmd.Println(answer.Text)
		cmd.Println()
		printSources(cmd, answer)
		cmd.Println()
	}
}

func printHistory(cmd *cobra.Command, turns []domain.Turn) {
	if len(turns) == 0 {
		cmd.Println("No questions yet.")
		return
	}
	for _, turn := range turns {
		who := "You"
		if turn.Role == domain.RoleAssistant {
			who = "Assistant"
		}
		cmd.Printf("%s [%s]: %s\n", who, turn.At.Format("15:04:05"), turn.Text)
	}
}
