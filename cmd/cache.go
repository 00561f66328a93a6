package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/ziadkadry99/docqa/internal/vectordb"
)

var (
	cacheJSON   bool
	pruneMaxAge time.Duration
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect and clean the index cache",
}

var cacheListCmd = &cobra.Command{
	Use:   "list",
	Short: "List cached indexes, oldest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(nil, appOptions{offline: true})
		if err != nil {
			return err
		}
		defer a.Close()

		entries, err := a.cache.List()
		if err != nil {
			return err
		}
		if cacheJSON {
			return printJSON(entries)
		}
		if len(entries) == 0 {
			fmt.Printf("Cache %s is empty.\n", a.cache.Dir())
			return nil
		}
		var total int64
		for _, e := range entries {
			total += e.Size
			fmt.Printf("%s  %6d chunks  %10s  last used %s  %s\n",
				e.Hash[:12], e.Chunks, humanBytes(e.Size), e.LastAccess.Local().Format("2006-01-02 15:04"), e.Model)
		}
		fmt.Printf("\n%d indexes, %s in %s\n", len(entries), humanBytes(total), a.cache.Dir())
		return nil
	},
}

var cacheRemoveCmd = &cobra.Command{
	Use:   "remove <hash>...",
	Short: "Remove cached indexes; documents are re-embedded on their next use",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(nil, appOptions{offline: true})
		if err != nil {
			return err
		}
		defer a.Close()

		entries, err := a.cache.List()
		if err != nil {
			return err
		}
		for _, ref := range args {
			hash, err := resolveEntry(entries, ref)
			if err != nil {
				return err
			}
			if err := a.cache.Remove(hash); err != nil {
				return err
			}
			fmt.Printf("Removed %s\n", hash[:12])
		}
		return nil
	},
}

var cachePruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Remove indexes that have not been used recently",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(nil, appOptions{offline: true})
		if err != nil {
			return err
		}
		defer a.Close()

		maxAge := a.cfg.Cache.MaxAge
		if cmd.Flags().Changed("max-age") {
			maxAge = pruneMaxAge
		}
		if maxAge <= 0 {
			fmt.Println("No maximum age configured; nothing to prune.")
			return nil
		}

		removed, err := a.cache.Prune(maxAge)
		if err != nil {
			return err
		}
		var freed int64
		for _, e := range removed {
			freed += e.Size
		}
		fmt.Printf("Pruned %d indexes unused for %s, freeing %s.\n", len(removed), maxAge, humanBytes(freed))
		return nil
	},
}

func init() {
	cacheListCmd.Flags().BoolVar(&cacheJSON, "json", false, "print results as JSON")
	cachePruneCmd.Flags().DurationVar(&pruneMaxAge, "max-age", 0, "remove indexes unused for longer than this (default from config)")
	cacheCmd.AddCommand(cacheListCmd, cacheRemoveCmd, cachePruneCmd)
	rootCmd.AddCommand(cacheCmd)
}

// resolveEntry expands a unique hash prefix among the cached indexes.
func resolveEntry(entries []vectordb.Entry, ref string) (string, error) {
	ref = strings.ToLower(strings.TrimSpace(ref))
	var match string
	for _, e := range entries {
		if !strings.HasPrefix(e.Hash, ref) {
			continue
		}
		if match != "" {
			return "", fmt.Errorf("hash %q is ambiguous", ref)
		}
		match = e.Hash
	}
	if match == "" {
		return "", fmt.Errorf("no cached index matches %q", ref)
	}
	return match, nil
}
