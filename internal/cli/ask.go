package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var askQuery string

var askCmd = &cobra.Command{
	Use:   "ask",
	Short: "Ask a one-shot question against the corpus",
	Long: `Retrieve relevant chunks for a question and answer grounded in them,
or ask for clarification when nothing relevant enough is found.

Examples:
  docqa ask -q "how long do refunds take?"`,
	RunE: runAsk,
}

func init() {
	rootCmd.AddCommand(askCmd)
	askCmd.Flags().StringVarP(&askQuery, "query", "q", "", "question to ask (required)")
	askCmd.MarkFlagRequired("query")
}

func runAsk(cmd *cobra.Command, args []string) error {
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

	res := a.pipeline.Invoke(ctx, askQuery, nil)

	// Clarifications and fallbacks do not stream; print the assembled text.
	if !streamed {
		fmt.Print(res.Answer)
	}
	fmt.Println()
	return nil
}
