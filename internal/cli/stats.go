package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"docqa/internal/domain"
)

var statsJSON bool

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show index status",
	RunE:  runStats,
}

func init() {
	rootCmd.AddCommand(statsCmd)
	statsCmd.Flags().BoolVar(&statsJSON, "json", false, "output as JSON")
}

func runStats(cmd *cobra.Command, args []string) error {
	a, err := buildApp(GetConfig(), GetRootDir())
	if err != nil {
		return err
	}
	defer a.Close()

	stats := a.retriever.Stats()
	if statsJSON {
		output, _ := json.MarshalIndent(stats, "", "  ")
		fmt.Println(string(output))
		return nil
	}

	printStats(stats, a.pipeline.Threshold())
	return nil
}

func printStats(stats domain.IndexStats, threshold float64) {
	fmt.Printf("Status:          %s\n", stats.Status)
	fmt.Printf("Documents:       %d\n", stats.Documents)
	fmt.Printf("Chunks:          %d\n", stats.TotalChunks)
	fmt.Printf("Embedding model: %s\n", stats.EmbeddingModel)
	fmt.Printf("Top-k:           %d\n", stats.TopK)
	fmt.Printf("Threshold:       %.2f\n", threshold)
	if stats.Err != "" {
		fmt.Printf("Error:           %s\n", stats.Err)
	}
}
