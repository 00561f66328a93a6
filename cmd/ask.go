package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ziadkadry99/docqa/internal/qa"
	"github.com/ziadkadry99/docqa/internal/vectordb"
)

var (
	askFile    string
	askUser    string
	askTopK    int
	askSources bool
)

var askCmd = &cobra.Command{
	Use:   "ask [document-id] <question>",
	Short: "Ask a question about a document",
	Long: `Answers a question using only the content of a stored document, or of
a file given with --file. Answers about stored documents take the user's
recent questions into account and are added to their history.`,
	Example: `  docqa ask 3f2a9c1b "What does chapter two conclude?"
  docqa ask --file lecture.pdf "Which enzymes are involved?"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().StringVarP(&askFile, "file", "f", "", "answer from this file instead of a stored document")
	askCmd.Flags().StringVar(&askUser, "user", "", "user id the question is recorded under")
	askCmd.Flags().IntVarP(&askTopK, "top-k", "k", 0, "number of chunks to retrieve (default from the document profile)")
	askCmd.Flags().BoolVar(&askSources, "sources", false, "print the retrieved chunks after the answer")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	if askFile == "" && len(args) < 2 {
		return fmt.Errorf("give a document id and a question, or --file and a question")
	}

	a, err := openApp(nil, appOptions{})
	if err != nil {
		return err
	}
	defer a.Close()

	var resp *qa.AskResponse
	if askFile != "" {
		resp, err = a.svc.AskFile(ctx, askFile, strings.Join(args, " "), "")
	} else {
		var id string
		if id, err = resolveDocument(ctx, a.svc, args[0]); err != nil {
			return err
		}
		resp, err = a.svc.Ask(ctx, qa.AskRequest{
			DocumentID: id,
			UserID:     askUser,
			Question:   strings.Join(args[1:], " "),
			TopK:       askTopK,
		})
	}
	if err != nil {
		return err
	}

	fmt.Println(resp.Answer)
	if askSources {
		fmt.Println()
		fmt.Println(vectordb.FormatHits(resp.Hits))
	}
	if resp.Failed {
		return fmt.Errorf("the question could not be answered")
	}
	return nil
}
