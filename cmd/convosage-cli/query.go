package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/Mahmoud-Al-Jaziri/convo-sage/internal/retrieval"
	"github.com/Mahmoud-Al-Jaziri/convo-sage/internal/storage"
	"github.com/Mahmoud-Al-Jaziri/convo-sage/internal/text2sql"
)

// newAskCmd creates the ask subcommand.
func newAskCmd() *cobra.Command {
	var (
		question string
		session  string
	)

	cmd := &cobra.Command{
		Use:   "ask",
		Short: "Ask the assistant a single question",
		Long: `Ask routes one question through the tool dispatcher and prints the reply.
Use --session to continue an earlier conversation within the same process
lifetime.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			assist, err := buildAssistant(ctx, cfg, nil)
			if err != nil {
				return err
			}
			defer assist.Close()

			start := time.Now()
			reply := assist.dispatcher.Dispatch(ctx, session, question)

			if outputJSON {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(reply)
			}

			fmt.Println(reply.Text)
			fmt.Printf("\n(tool: %s, took: %s)\n", reply.Tool, FormatDuration(time.Since(start)))

			return nil
		},
	}

	cmd.Flags().StringVarP(&question, "question", "q", "", "question to ask (required)")
	cmd.Flags().StringVar(&session, "session", "", "session ID to continue")

	_ = cmd.MarkFlagRequired("question")

	return cmd
}

// newSearchCmd creates the search subcommand.
func newSearchCmd() *cobra.Command {
	var (
		query string
		topK  int
	)

	cmd := &cobra.Command{
		Use:   "search",
		Short: "Search the product catalog",
		Long: `Search ranks catalog products against the query by TF-IDF cosine
similarity and prints the closest matches.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			products, err := retrieval.LoadCatalog(cfg.Datasets.ProductsPath)
			if err != nil {
				return fmt.Errorf("load catalog: %w", err)
			}

			index := retrieval.NewIndex(nil)
			index.Rebuild(products)

			results := index.Search(query, topK)

			if outputJSON {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(results)
			}

			if len(results) == 0 {
				fmt.Println("No matching products found.")
				return nil
			}

			ui := NewUI(false, noColor)
			defer ui.Close()

			rows := make([][]string, 0, len(results))
			for _, res := range results {
				stock := "yes"
				if !res.Product.InStock {
					stock = "no"
				}
				rows = append(rows, []string{
					res.Product.ID,
					res.Product.Name,
					res.Product.Category,
					fmt.Sprintf("RM %.2f", res.Product.PriceMYR),
					stock,
					fmt.Sprintf("%.4f", retrieval.RoundScore(res.Score)),
				})
			}
			ui.Table([]string{"ID", "Name", "Category", "Price", "In Stock", "Score"}, rows)

			return nil
		},
	}

	cmd.Flags().StringVarP(&query, "query", "q", "", "search query (required)")
	cmd.Flags().IntVar(&topK, "top-k", 3, "number of results")

	_ = cmd.MarkFlagRequired("query")

	return cmd
}

// newOutletsCmd creates the outlets subcommand.
func newOutletsCmd() *cobra.Command {
	var question string

	cmd := &cobra.Command{
		Use:   "outlets",
		Short: "Translate an outlet question to SQL and run it",
		Long: `Outlets translates a natural-language question into a parameterized SQL
query, executes it against the outlet store, and prints the rows or count.
Run 'convosage-cli seed' first to populate the store.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			db, err := openDatabase(ctx, cfg)
			if err != nil {
				return err
			}
			defer db.Close()

			repo := storage.NewOutletRepository(db, cfg.Database.Driver)
			service := text2sql.NewService(repo, nil, logger)

			result, err := service.Query(ctx, question)
			if err != nil {
				return fmt.Errorf("query failed: %w", err)
			}

			if outputJSON {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(result)
			}

			ui := NewUI(false, noColor)
			defer ui.Close()

			ui.KeyValue("SQL", result.Translation.SQL)
			ui.KeyValue("Type", string(result.Translation.QueryType))
			if result.Translation.Location != "" {
				ui.KeyValue("Location", result.Translation.Location)
			}
			ui.Newline()

			if result.Translation.QueryType == text2sql.QueryTypeCount {
				fmt.Printf("%d outlets\n", result.Count)
				return nil
			}

			if len(result.Outlets) == 0 {
				fmt.Println("No outlets matched.")
				return nil
			}

			rows := make([][]string, 0, len(result.Outlets))
			for _, outlet := range result.Outlets {
				features := make([]string, 0, 2)
				if outlet.HasDriveThru {
					features = append(features, "drive-thru")
				}
				if outlet.HasWifi {
					features = append(features, "wifi")
				}
				rows = append(rows, []string{
					strconv.FormatInt(outlet.ID, 10),
					outlet.Name,
					outlet.City,
					outlet.State,
					strings.Join(features, ", "),
				})
			}
			ui.Table([]string{"ID", "Name", "City", "State", "Features"}, rows)

			return nil
		},
	}

	cmd.Flags().StringVarP(&question, "question", "q", "", "question about outlets (required)")

	_ = cmd.MarkFlagRequired("question")

	return cmd
}
