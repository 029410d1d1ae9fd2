package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"storyteller/internal/analysis"
	"storyteller/internal/analysis/checkpoint"
)

// checkpointsCmd inspects checkpoint files directly on disk, so it works
// without a running server.
var checkpointsCmd = &cobra.Command{
	Use:   "checkpoints",
	Short: "Inspect analysis checkpoints on disk",
}

var checkpointsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List resumable checkpoints",
	RunE: func(cmd *cobra.Command, args []string) error {
		h, err := getHome()
		if err != nil {
			return err
		}

		var rows [][]string
		for _, kind := range analysis.Kinds() {
			mgr, err := checkpoint.NewManager[json.RawMessage](h.CheckpointKindPath(string(kind)))
			if err != nil {
				return err
			}
			for _, cp := range mgr.List() {
				rows = append(rows, []string{
					string(kind),
					strconv.FormatInt(cp.BookID, 10),
					strconv.FormatInt(cp.ChapterID, 10),
					strconv.Itoa(cp.BatchCursor),
					time.UnixMilli(cp.Timestamp).Format("2006-01-02 15:04:05"),
				})
			}
		}

		if len(rows) == 0 {
			fmt.Println("No checkpoints")
			return nil
		}

		if isTerminal(os.Stdout) {
			fmt.Println(renderTable(
				[]string{"Kind", "Book", "Chapter", "Batch", "Saved"},
				rows,
				[]columnAlignment{alignLeft, alignRight, alignRight, alignRight, alignLeft},
			))
			return nil
		}

		for _, row := range rows {
			fmt.Printf("%s book=%s chapter=%s batch=%s saved=%s\n", row[0], row[1], row[2], row[3], row[4])
		}
		return nil
	},
}

var checkpointsClearCmd = &cobra.Command{
	Use:   "clear <kind> <book-id> <chapter-id>",
	Short: "Delete one checkpoint",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		if !analysis.ValidKind(args[0]) {
			return fmt.Errorf("unknown analysis kind: %s", args[0])
		}
		bookID, err := strconv.ParseInt(args[1], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid book id: %s", args[1])
		}
		chapterID, err := strconv.ParseInt(args[2], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid chapter id: %s", args[2])
		}

		h, err := getHome()
		if err != nil {
			return err
		}
		mgr, err := checkpoint.NewManager[json.RawMessage](h.CheckpointKindPath(args[0]))
		if err != nil {
			return err
		}
		mgr.Delete(bookID, chapterID)

		fmt.Printf("Deleted %s checkpoint for book %d chapter %d\n", args[0], bookID, chapterID)
		return nil
	},
}

func init() {
	checkpointsCmd.AddCommand(checkpointsListCmd)
	checkpointsCmd.AddCommand(checkpointsClearCmd)
	rootCmd.AddCommand(checkpointsCmd)
}
