package cli

import (
	"fmt"
	"sync"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Rebuild the vector index from the corpus directory",
	Long: `Reload the corpus directory, chunk and embed every document and rebuild
the vector index from scratch. With a bolt index the result persists across
runs; with a memory index this only validates that the corpus embeds cleanly.

Examples:
  docqa index
  docqa index --config ./docqa.yaml`,
	RunE: runIndex,
}

func init() {
	rootCmd.AddCommand(indexCmd)
}

func runIndex(cmd *cobra.Command, args []string) error {
	a, err := buildApp(GetConfig(), GetRootDir())
	if err != nil {
		return err
	}
	defer a.Close()

	var bar *progressbar.ProgressBar
	var barMu sync.Mutex

	progress := func(done, total int) {
		barMu.Lock()
		defer barMu.Unlock()

		if bar == nil {
			bar = progressbar.NewOptions(total,
				progressbar.OptionEnableColorCodes(true),
				progressbar.OptionShowBytes(false),
				progressbar.OptionSetWidth(40),
				progressbar.OptionShowCount(),
				progressbar.OptionSetDescription("[cyan]Embedding[reset]"),
				progressbar.OptionOnCompletion(func() {
					fmt.Println()
				}),
			)
		}
		bar.Set(done)
	}

	docs, chunks, err := a.retriever.Reindex(progress)
	if err != nil {
		return fmt.Errorf("indexing failed: %w", err)
	}

	fmt.Printf("\nIndexing complete:\n")
	fmt.Printf("  Documents indexed: %d\n", docs)
	fmt.Printf("  Chunks created:    %d\n", chunks)

	cfg := GetConfig()
	if cfg.Index.Store == "bolt" {
		fmt.Printf("\nIndex stored at: %s\n", cfg.IndexDBPath(GetRootDir()))
	}
	return nil
}
