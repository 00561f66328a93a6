package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ziadkadry99/docqa/internal/chunker"
	"github.com/ziadkadry99/docqa/internal/config"
	"github.com/ziadkadry99/docqa/internal/extract"
	"github.com/ziadkadry99/docqa/internal/llm"
)

// Rough size of a prompt without its retrieved context, and of an answer.
const (
	promptOverheadTokens = 250
	answerTokens         = 300
)

var costCmd = &cobra.Command{
	Use:   "cost <file-or-directory>...",
	Short: "Estimate the tokens and API cost of indexing and querying documents",
	Long: `Extracts and chunks the documents locally and estimates how many tokens
embedding them would use and what a question about each would cost with
the configured model. No API calls are made.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runCost,
}

func init() {
	rootCmd.AddCommand(costCmd)
}

func runCost(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	paths, err := collectDocuments(cfg, args)
	if err != nil {
		return err
	}
	if len(paths) == 0 {
		fmt.Println("No documents found.")
		return nil
	}

	a, err := openApp(cfg, appOptions{offline: true})
	if err != nil {
		return err
	}
	defer a.Close()

	ex := extract.New(cfg.Limits.MaxPDFPages, a.logger)
	var (
		totalEmbed int
		totalAsk   float64
		counted    int
	)
	fmt.Printf("%-40s %8s %8s %12s %10s\n", "Document", "Profile", "Chunks", "Embed tokens", "Per ask")
	for _, path := range paths {
		res, t, err := ex.ExtractFile(ctx, path)
		if err != nil {
			fmt.Printf("%-40s %v\n", truncate(path, 40), err)
			continue
		}
		info, err := os.Stat(path)
		if err != nil {
			return err
		}
		profile := a.svc.ProfileFor(t, info.Size())
		splitter, err := chunker.NewSplitter(profile.ChunkSize, profile.ChunkOverlap)
		if err != nil {
			return err
		}
		chunks := splitter.Split(res.Text)

		embedTokens := 0
		for _, c := range chunks {
			embedTokens += llm.EstimateTokens(c)
		}
		contextTokens := min(len(chunks), profile.TopK) * profile.ChunkSize / 4
		perAsk := llm.EstimateCost(cfg.Model, contextTokens+promptOverheadTokens, answerTokens)

		totalEmbed += embedTokens
		totalAsk += perAsk
		counted++
		fmt.Printf("%-40s %8s %8d %12d %10s\n", truncate(path, 40), profile.Name, len(chunks), embedTokens, usd(perAsk))
	}

	fmt.Println()
	fmt.Printf("  Documents:         %d of %d readable\n", counted, len(paths))
	fmt.Printf("  Embedding:         %d tokens, %s (%s)\n",
		totalEmbed, usd(llm.EstimateEmbeddingCost(cfg.EmbeddingModel, totalEmbed)), cfg.EmbeddingModel)
	fmt.Printf("  One question each: %s (%s)\n", usd(totalAsk), cfg.Model)

	// Ollama runs locally, so there is nothing to price.
	if cfg.Provider != config.ProviderOllama {
		if _, ok := llm.EmbeddingPrice(cfg.EmbeddingModel); !ok {
			fmt.Printf("  No pricing is known for %s; its cost shows as $0.\n", cfg.EmbeddingModel)
		}
		if _, ok := llm.ModelPrice(cfg.Model); !ok {
			fmt.Printf("  No pricing is known for %s; its cost shows as $0.\n", cfg.Model)
		}
	}
	return nil
}

func usd(v float64) string {
	return fmt.Sprintf("$%.4f", v)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return "..." + string(r[len(r)-n+3:])
}
