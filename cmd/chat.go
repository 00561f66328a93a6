package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"

	"github.com/ziadkadry99/docqa/internal/history"
	"github.com/ziadkadry99/docqa/internal/qa"
)

var (
	chatFile string
	chatUser string
)

var chatCmd = &cobra.Command{
	Use:   "chat [document-id]",
	Short: "Hold a conversation about a document",
	Long: `Starts an interactive session. Each answer takes the previous questions
into account. With a stored document the conversation is saved to the
user's history; with --file it lasts for the session only.
Type "exit" or press Ctrl-C to leave.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runChat,
}

func init() {
	chatCmd.Flags().StringVarP(&chatFile, "file", "f", "", "chat about this file instead of a stored document")
	chatCmd.Flags().StringVar(&chatUser, "user", "", "user id the conversation is recorded under")
	rootCmd.AddCommand(chatCmd)
}

func runChat(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	if (chatFile == "") == (len(args) == 0) {
		return fmt.Errorf("give either a document id or --file")
	}

	a, err := openApp(nil, appOptions{})
	if err != nil {
		return err
	}
	defer a.Close()

	var ask func(question string) (*qa.AskResponse, error)
	if chatFile != "" {
		// The session keeps its own transcript, bounded like stored history.
		var turns []history.Turn
		limit := a.cfg.Answer.HistoryTurns
		ask = func(question string) (*qa.AskResponse, error) {
			resp, err := a.svc.AskFile(ctx, chatFile, question, history.FormatTranscript(turns))
			if err == nil && !resp.Failed {
				turns = append(turns, history.Turn{Question: resp.Question, Answer: resp.Answer, CreatedAt: resp.Timestamp})
				if len(turns) > limit {
					turns = turns[len(turns)-limit:]
				}
			}
			return resp, err
		}
		fmt.Printf("Chatting about %s\n", chatFile)
	} else {
		id, err := resolveDocument(ctx, a.svc, args[0])
		if err != nil {
			return err
		}
		doc, err := a.svc.Document(ctx, id)
		if err != nil {
			return err
		}
		ask = func(question string) (*qa.AskResponse, error) {
			return a.svc.Ask(ctx, qa.AskRequest{DocumentID: id, UserID: chatUser, Question: question})
		}
		fmt.Printf("Chatting about %s (%d chunks)\n", doc.Name, doc.Chunks)
	}
	fmt.Println(`Type "exit" to leave.`)

	prompt := promptui.Prompt{Label: "You"}
	for {
		question, err := prompt.Run()
		if errors.Is(err, promptui.ErrInterrupt) || errors.Is(err, promptui.ErrEOF) {
			return nil
		}
		if err != nil {
			return err
		}
		question = strings.TrimSpace(question)
		if question == "" {
			continue
		}
		if question == "exit" || question == "quit" {
			return nil
		}

		start := time.Now()
		resp, err := ask(question)
		if err != nil {
			fmt.Printf("Error: %v\n\n", err)
			continue
		}
		fmt.Printf("\n%s\n\n", resp.Answer)
		if verbose {
			fmt.Printf("(%s)\n\n", time.Since(start).Round(time.Millisecond))
		}
	}
}
