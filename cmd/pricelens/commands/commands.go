package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/samber/mo"
	"github.com/urfave/cli/v3"

	"github.com/pricelens/backend/config"
	"github.com/pricelens/backend/internal/app"
	"github.com/pricelens/backend/internal/domain"
	"github.com/pricelens/backend/internal/platform/logger"
)

// newApp loads configuration and wires the application
func newApp(cmd *cli.Command) (*app.App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	return app.Build(cfg, logger.New(loggerConfig(cmd.String("log-level"))))
}

// loggerConfig keeps stdout for tables: records go to stderr as text
func loggerConfig(level string) logger.Config {
	lc := logger.DefaultConfig()
	lc.Level = logger.ParseLevel(level)
	lc.Format = "text"
	lc.Output = os.Stderr
	return lc
}

// SearchAction runs one search and prints the ranked listings
func SearchAction(ctx context.Context, cmd *cli.Command) error {
	query := strings.Join(cmd.Args().Slice(), " ")
	if strings.TrimSpace(query) == "" {
		return errors.New("a search query is required")
	}

	application, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer application.Close()

	request := &domain.SearchRequest{
		Query:      query,
		Country:    cmd.String("country"),
		MaxResults: mo.Some(int(cmd.Int("max-results"))),
	}
	if floor := cmd.Float("min-relevance"); floor >= 0 {
		request.MinRelevance = mo.Some(floor)
	}

	response, err := application.SearchService.Search(ctx, request)
	if err != nil {
		return err
	}

	if len(response.Products) == 0 {
		fmt.Printf("No listings found for %q in %s\n", response.Query, response.Country.Code)
	} else {
		renderListingsTable(os.Stdout, response.Products)
	}

	if response.PriceAnalysis != nil {
		pa := response.PriceAnalysis
		fmt.Printf("\n%d listings, %s %s - %s (avg %s)\n",
			response.TotalResults, pa.Currency,
			formatPrice(pa.MinPrice), formatPrice(pa.MaxPrice), formatPrice(pa.AvgPrice))
	}

	if cmd.Bool("sources") {
		fmt.Println()
		renderSourceReports(os.Stdout, response.Sources)
	}

	return nil
}

// CountriesAction prints the searchable countries
func CountriesAction(ctx context.Context, cmd *cli.Command) error {
	application, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer application.Close()

	table := tablewriter.NewWriter(os.Stdout)
	table.Header("Code", "Name", "Currency", "Sources")

	for _, c := range application.SearchService.Countries() {
		table.Append(c.Code, c.Name, c.Currency, strings.Join(c.Sources, ", "))
	}

	return table.Render()
}

func renderListingsTable(w io.Writer, products []domain.ScoredListing) {
	table := tablewriter.NewWriter(w)
	table.Header("#", "Product", "Price", "Source", "Relevance", "Score", "Flags")

	for i, p := range products {
		table.Append(
			strconv.Itoa(i+1),
			truncate(p.ProductName, 60),
			p.Currency+" "+formatPrice(p.Price),
			p.Source,
			strconv.FormatFloat(p.Relevance, 'f', 3, 64),
			strconv.FormatFloat(p.CompositeScore, 'f', 3, 64),
			flags(p),
		)
	}

	table.Render()
}

func renderSourceReports(w io.Writer, reports []domain.SourceReport) {
	table := tablewriter.NewWriter(w)
	table.Header("Source", "Status", "Listings", "Dropped", "Duration (ms)", "Error")

	for _, r := range reports {
		table.Append(
			r.Source,
			r.Status,
			strconv.Itoa(r.Count),
			strconv.Itoa(r.Dropped),
			strconv.FormatInt(r.DurationMs, 10),
			r.Error,
		)
	}

	table.Render()
}

func flags(p domain.ScoredListing) string {
	var f []string
	if p.ExactModelMatch {
		f = append(f, "exact")
	}
	if p.Accessory {
		f = append(f, "accessory")
	}
	return strings.Join(f, ",")
}

func formatPrice(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
