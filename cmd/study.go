package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ziadkadry99/docqa/internal/qa"
	"github.com/ziadkadry99/docqa/internal/studyaids"
)

var (
	studyJSON      bool
	summaryFile    string
	summaryText    string
	summaryType    string
	cardCount      int
	quizCount      int
	quizDifficulty string
	quizTopics     string
)

var summarizeCmd = &cobra.Command{
	Use:   "summarize [document-id]",
	Short: "Summarize a document, a file or a piece of text",
	Example: `  docqa summarize 3f2a9c1b --type detailed
  docqa summarize --file notes.docx
  docqa summarize --text "$(cat abstract.txt)" --type concise`,
	Args: cobra.MaximumNArgs(1),
	RunE: runSummarize,
}

var flashcardsCmd = &cobra.Command{
	Use:   "flashcards <document-id>",
	Short: "Generate study flashcards from a document",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		a, err := openApp(nil, appOptions{})
		if err != nil {
			return err
		}
		defer a.Close()

		id, err := resolveDocument(ctx, a.svc, args[0])
		if err != nil {
			return err
		}
		cards, err := a.svc.Flashcards(ctx, id, cardCount)
		if err != nil {
			return err
		}
		if studyJSON {
			return printJSON(cards)
		}
		for i, c := range cards {
			fmt.Printf("%d. %s\n   %s\n\n", i+1, c.Front, c.Back)
		}
		return nil
	},
}

var quizCmd = &cobra.Command{
	Use:   "quiz <document-id>",
	Short: "Generate a multiple-choice quiz from a document",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		a, err := openApp(nil, appOptions{})
		if err != nil {
			return err
		}
		defer a.Close()

		id, err := resolveDocument(ctx, a.svc, args[0])
		if err != nil {
			return err
		}
		questions, err := a.svc.Quiz(ctx, id, studyaids.QuizOptions{
			Count:      quizCount,
			Topics:     quizTopics,
			Difficulty: studyaids.Difficulty(strings.ToLower(quizDifficulty)),
		})
		if err != nil {
			return err
		}
		if studyJSON {
			return printJSON(questions)
		}
		for i, q := range questions {
			fmt.Printf("%d. %s\n", i+1, q.Question)
			for j, opt := range q.Options {
				marker := " "
				if j == q.CorrectAnswer {
					marker = "*"
				}
				fmt.Printf("  %s %c) %s\n", marker, 'a'+j, opt)
			}
			fmt.Println()
		}
		return nil
	},
}

func init() {
	summarizeCmd.Flags().StringVarP(&summaryFile, "file", "f", "", "summarize this file without storing it")
	summarizeCmd.Flags().StringVar(&summaryText, "text", "", "summarize this text")
	summarizeCmd.Flags().StringVarP(&summaryType, "type", "t", string(studyaids.SummaryBullets), "summary style: concise, detailed or bullets")
	flashcardsCmd.Flags().IntVarP(&cardCount, "count", "n", 10, "number of flashcards (3 to 30)")
	quizCmd.Flags().IntVarP(&quizCount, "count", "n", 10, "number of questions (at most 50)")
	quizCmd.Flags().StringVar(&quizDifficulty, "difficulty", string(studyaids.DifficultyMedium), "easy, medium or hard")
	quizCmd.Flags().StringVar(&quizTopics, "topics", "", "topics the questions should focus on")

	for _, c := range []*cobra.Command{summarizeCmd, flashcardsCmd, quizCmd} {
		c.Flags().BoolVar(&studyJSON, "json", false, "print results as JSON")
		rootCmd.AddCommand(c)
	}
}

func runSummarize(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	sources := 0
	for _, set := range []bool{len(args) == 1, summaryFile != "", summaryText != ""} {
		if set {
			sources++
		}
	}
	if sources != 1 {
		return fmt.Errorf("give exactly one of a document id, --file or --text")
	}

	a, err := openApp(nil, appOptions{})
	if err != nil {
		return err
	}
	defer a.Close()

	kind := studyaids.ParseSummaryKind(strings.ToLower(summaryType))
	var sum *studyaids.Summary
	switch {
	case summaryText != "":
		sum, err = a.svc.SummarizeText(ctx, summaryText, kind)
	case summaryFile != "":
		var text string
		if text, err = extractFile(ctx, a.svc, summaryFile); err != nil {
			return err
		}
		sum, err = a.svc.SummarizeText(ctx, text, kind)
	default:
		var id string
		if id, err = resolveDocument(ctx, a.svc, args[0]); err != nil {
			return err
		}
		sum, err = a.svc.Summarize(ctx, id, kind)
	}
	if err != nil {
		return err
	}

	if studyJSON {
		return printJSON(sum)
	}
	fmt.Println(sum.Text)
	if sum.Failed {
		return fmt.Errorf("the summary could not be generated")
	}
	return nil
}

// extractFile returns the text of a file on disk under the upload limits.
func extractFile(ctx context.Context, svc *qa.Service, path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return "", err
	}
	return svc.Extract(ctx, qa.Upload{Name: path, Content: f, Size: info.Size()})
}
