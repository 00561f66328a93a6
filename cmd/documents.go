package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ziadkadry99/docqa/internal/qa"
)

var (
	docsOwner    string
	docsJSON     bool
	historyUser  string
	historyClear bool
)

var documentsCmd = &cobra.Command{
	Use:     "documents",
	Aliases: []string{"docs"},
	Short:   "List and manage stored documents",
}

var documentsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored documents, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(nil, appOptions{offline: true})
		if err != nil {
			return err
		}
		defer a.Close()

		docs, err := a.svc.Documents(context.Background(), docsOwner)
		if err != nil {
			return err
		}
		if docsJSON {
			return printJSON(docs)
		}
		if len(docs) == 0 {
			fmt.Println("No documents. Add one with `docqa ingest <file>`.")
			return nil
		}
		for _, d := range docs {
			fmt.Printf("%s  %-5s %6d chunks  %10s  %s  %s\n",
				d.ID[:12], d.Type, d.Chunks, humanBytes(d.Size), d.CreatedAt.Local().Format("2006-01-02 15:04"), d.Name)
		}
		return nil
	},
}

var documentsShowCmd = &cobra.Command{
	Use:   "show <document-id>",
	Short: "Show the details of a document",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		a, err := openApp(nil, appOptions{offline: true})
		if err != nil {
			return err
		}
		defer a.Close()

		id, err := resolveDocument(ctx, a.svc, args[0])
		if err != nil {
			return err
		}
		d, err := a.svc.Document(ctx, id)
		if err != nil {
			return err
		}
		if docsJSON {
			return printJSON(d)
		}
		fmt.Printf("ID:       %s\n", d.ID)
		fmt.Printf("Name:     %s\n", d.Name)
		fmt.Printf("Type:     %s\n", d.Type)
		fmt.Printf("Size:     %s\n", humanBytes(d.Size))
		fmt.Printf("Text:     %d characters\n", d.TextLength)
		fmt.Printf("Chunks:   %d (%s profile)\n", d.Chunks, d.Profile)
		if d.OwnerID != "" {
			fmt.Printf("Owner:    %s\n", d.OwnerID)
		}
		if d.Subject != "" {
			fmt.Printf("Subject:  %s\n", d.Subject)
		}
		fmt.Printf("Added:    %s\n", d.CreatedAt.Local().Format("2006-01-02 15:04:05"))
		return nil
	},
}

var documentsDeleteCmd = &cobra.Command{
	Use:     "delete <document-id>...",
	Aliases: []string{"rm"},
	Short:   "Delete documents with their history and cached index",
	Args:    cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		a, err := openApp(nil, appOptions{offline: true})
		if err != nil {
			return err
		}
		defer a.Close()

		for _, ref := range args {
			id, err := resolveDocument(ctx, a.svc, ref)
			if err != nil {
				return err
			}
			if err := a.svc.Delete(ctx, id); err != nil {
				return err
			}
			fmt.Printf("Deleted %s\n", id[:12])
		}
		return nil
	},
}

var historyCmd = &cobra.Command{
	Use:   "history <document-id>",
	Short: "Show or clear a user's questions about a document",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		a, err := openApp(nil, appOptions{offline: true})
		if err != nil {
			return err
		}
		defer a.Close()

		id, err := resolveDocument(ctx, a.svc, args[0])
		if err != nil {
			return err
		}
		if historyClear {
			n, err := a.svc.ClearHistory(ctx, historyUser, id)
			if err != nil {
				return err
			}
			fmt.Printf("Removed %d turns.\n", n)
			return nil
		}

		turns, err := a.svc.History(ctx, historyUser, id)
		if err != nil {
			return err
		}
		if docsJSON {
			return printJSON(turns)
		}
		if len(turns) == 0 {
			fmt.Println("No questions asked yet.")
			return nil
		}
		for _, t := range turns {
			fmt.Printf("[%s] Q: %s\nA: %s\n\n", t.CreatedAt.Local().Format("2006-01-02 15:04"), t.Question, t.Answer)
		}
		return nil
	},
}

func init() {
	documentsListCmd.Flags().StringVar(&docsOwner, "owner", "", "only list documents of this owner")
	documentsCmd.PersistentFlags().BoolVar(&docsJSON, "json", false, "print results as JSON")
	documentsCmd.AddCommand(documentsListCmd, documentsShowCmd, documentsDeleteCmd)
	rootCmd.AddCommand(documentsCmd)

	historyCmd.Flags().StringVar(&historyUser, "user", "", "user id whose history to show")
	historyCmd.Flags().BoolVar(&historyClear, "clear", false, "delete the history instead of showing it")
	historyCmd.Flags().BoolVar(&docsJSON, "json", false, "print results as JSON")
	rootCmd.AddCommand(historyCmd)
}

// resolveDocument expands a unique id prefix, as printed by ingest and
// list, into the full document id.
func resolveDocument(ctx context.Context, svc *qa.Service, ref string) (string, error) {
	ref = strings.ToLower(strings.TrimSpace(ref))
	if len(ref) == 64 {
		return ref, nil
	}
	if len(ref) < 4 {
		return "", fmt.Errorf("document id %q is too short; give at least 4 characters", ref)
	}

	docs, err := svc.Documents(ctx, "")
	if err != nil {
		return "", err
	}
	var matches []string
	for _, d := range docs {
		if strings.HasPrefix(d.ID, ref) {
			matches = append(matches, d.ID)
		}
	}
	switch len(matches) {
	case 0:
		return "", fmt.Errorf("%w: %s", qa.ErrNotFound, ref)
	case 1:
		return matches[0], nil
	default:
		return "", fmt.Errorf("document id %q is ambiguous (%d matches)", ref, len(matches))
	}
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func humanBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(n)/float64(div), "KMGTPE"[exp])
}
