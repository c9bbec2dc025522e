package cli

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"docqa/internal/domain"
)

var chatShowChunks bool

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Interactive conversation with the corpus",
	Long: `Start a read-eval loop that keeps conversation history across turns.

Commands inside the session:
  help           show available commands
  stats          show index status
  clear          reset conversation history
  quit / exit    leave the session`,
	RunE: runChat,
}

func init() {
	rootCmd.AddCommand(chatCmd)
	chatCmd.Flags().BoolVar(&chatShowChunks, "show-chunks", false, "print retrieved chunks before each answer")
}

func runChat(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := buildApp(GetConfig(), GetRootDir())
	if err != nil {
		return err
	}
	defer a.Close()

	streamed := false
	a.pipeline.OnToken(func(token string) {
		streamed = true
		fmt.Print(token)
	})

	fmt.Println("docqa chat - type 'help' for commands, 'quit' to exit")

	var history []domain.Message
	scanner := bufio.NewScanner(os.Stdin)

	for {
		fmt.Print("\n> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		switch strings.ToLower(line) {
		case "quit", "exit":
			return nil
		case "help":
			printChatHelp()
			continue
		case "clear":
			history = nil
			fmt.Println("History cleared.")
			continue
		case "stats":
			printStats(a.retriever.Stats(), a.pipeline.Threshold())
			continue
		}

		// "ask <question>" works too, for symmetry with the one-shot command.
		if rest, ok := strings.CutPrefix(line, "ask "); ok {
			line = strings.TrimSpace(rest)
			if line == "" {
				continue
			}
		}

		streamed = false
		res := a.pipeline.Invoke(ctx, line, history)

		if chatShowChunks && len(res.Chunks) > 0 {
			for i, chunk := range res.Chunks {
				fmt.Printf("[%d] %s (distance: %.3f)\n    %s\n",
					i+1, filepath.Base(chunk.Source), res.Distances[i], chunkPreview(chunk.Text))
			}
			fmt.Println()
		}

		if !streamed {
			fmt.Print(res.Answer)
		}
		fmt.Println()

		history = res.Messages
		if ctx.Err() != nil {
			return nil
		}
	}

	return scanner.Err()
}

func printChatHelp() {
	fmt.Println(`Commands:
  help    show this help
  stats   show index status
  clear   reset conversation history
  quit    leave the session

Anything else is sent to the pipeline as a question.`)
}

func chunkPreview(text string) string {
	text = strings.ReplaceAll(text, "\n", " ")
	runes := []rune(text)
	if len(runes) > 200 {
		return string(runes[:200]) + "..."
	}
	return text
}
