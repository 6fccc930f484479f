package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/salesdash/internal/model"
	"github.com/sells-group/salesdash/internal/report"
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Run a filtered sales report",
	Long:  "Fetches one page of filtered transactions from the data API, optionally walking further pages and sorting each loaded page client-side.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := cfg.Validate("report"); err != nil {
			return err
		}

		opts, err := reportOptionsFromFlags(cmd)
		if err != nil {
			return err
		}

		res, err := runReport(cmd.Context(), newDashClient(cfg), opts)
		if res != nil && res.Notice != "" {
			fmt.Fprintln(os.Stderr, res.Notice)
		}
		if err != nil {
			return err
		}

		out := io.Writer(os.Stdout)
		if opts.Out != "" {
			f, err := os.Create(opts.Out)
			if err != nil {
				return eris.Wrap(err, "report: create output")
			}
			defer f.Close() //nolint:errcheck
			out = f
		}
		return writeReport(out, res, opts.Format)
	},
}

var reportQueryCmd = &cobra.Command{
	Use:   "query",
	Short: "Print the query a report would send, without fetching",
	RunE: func(cmd *cobra.Command, _ []string) error {
		opts, err := reportOptionsFromFlags(cmd)
		if err != nil {
			return err
		}
		if err := report.ValidateIncomeRange(opts.Criteria.MinAnnualIncome, opts.Criteria.MaxAnnualIncome); err != nil {
			return err
		}
		q := report.BuildQuery(opts.Criteria, opts.Page, opts.PerPage)
		return writeQuery(os.Stdout, q, opts.Format)
	},
}

// reportOptions are the parsed report flags.
type reportOptions struct {
	Criteria report.Criteria
	Page     int
	PerPage  int
	Pages    int
	Sort     []string
	Format   string
	Out      string
}

// reportResult is what the report command prints.
type reportResult struct {
	Criteria     report.Criteria  `json:"criteria" yaml:"criteria"`
	TotalRecords int              `json:"total_records" yaml:"total_records"`
	FirstPage    int              `json:"first_page" yaml:"first_page"`
	LastPage     int              `json:"last_page" yaml:"last_page"`
	Sort         report.SortState `json:"sort" yaml:"sort"`
	HasMore      bool             `json:"has_more" yaml:"has_more"`
	Rows         []model.Row      `json:"rows" yaml:"rows"`
	Notice       string           `json:"notice,omitempty" yaml:"notice,omitempty"`
}

var criteriaFlags = []struct {
	flag  string
	usage string
	field func(*report.Criteria) *string
}{
	{"customer-id", "filter by customer id", func(c *report.Criteria) *string { return &c.CustomerID }},
	{"city", "filter by city", func(c *report.Criteria) *string { return &c.City }},
	{"state", "filter by state", func(c *report.Criteria) *string { return &c.State }},
	{"start-date", "range start (YYYY-MM-DD); ignored without --end-date", func(c *report.Criteria) *string { return &c.StartDate }},
	{"end-date", "range end (YYYY-MM-DD); ignored without --start-date", func(c *report.Criteria) *string { return &c.EndDate }},
	{"category", "filter by product category", func(c *report.Criteria) *string { return &c.Category }},
	{"product-name", "filter by product name", func(c *report.Criteria) *string { return &c.ProductName }},
	{"store-type", "filter by store type (Online, Physical)", func(c *report.Criteria) *string { return &c.StoreType }},
	{"payment-method", "filter by payment method", func(c *report.Criteria) *string { return &c.PaymentMethod }},
	{"loyalty-status", "filter by loyalty status", func(c *report.Criteria) *string { return &c.LoyaltyStatus }},
	{"min-income", "minimum annual income", func(c *report.Criteria) *string { return &c.MinAnnualIncome }},
	{"max-income", "maximum annual income", func(c *report.Criteria) *string { return &c.MaxAnnualIncome }},
}

func addReportFlags(cmd *cobra.Command) {
	for _, f := range criteriaFlags {
		cmd.Flags().String(f.flag, "", f.usage)
	}
	cmd.Flags().Int("page", 1, "first page to fetch")
	cmd.Flags().Int("per-page", 0, "rows per page (default from config)")
	cmd.Flags().String("format", "table", "output format: table, json, yaml, csv, xlsx")
	cmd.Flags().String("out", "", "write output to file instead of stdout")
}

func reportOptionsFromFlags(cmd *cobra.Command) (reportOptions, error) {
	var opts reportOptions
	for _, f := range criteriaFlags {
		v, _ := cmd.Flags().GetString(f.flag)
		*f.field(&opts.Criteria) = v
	}
	opts.Page, _ = cmd.Flags().GetInt("page")
	opts.PerPage, _ = cmd.Flags().GetInt("per-page")
	opts.Format, _ = cmd.Flags().GetString("format")
	opts.Out, _ = cmd.Flags().GetString("out")
	if cmd.Flags().Lookup("pages") != nil {
		opts.Pages, _ = cmd.Flags().GetInt("pages")
		opts.Sort, _ = cmd.Flags().GetStringArray("sort")
	}

	if opts.PerPage <= 0 && cfg != nil {
		opts.PerPage = cfg.Report.PerPage
	}
	if opts.PerPage <= 0 {
		opts.PerPage = 10
	}
	if opts.Pages <= 0 {
		opts.Pages = 1
	}

	switch opts.Format {
	case "table", "json", "yaml", "csv":
	case "xlsx":
		if opts.Out == "" {
			return opts, eris.New("report: --out is required for xlsx output")
		}
	default:
		return opts, eris.Errorf("report: unknown format %q", opts.Format)
	}
	return opts, nil
}

// runReport fetches opts.Pages pages starting at opts.Page. Each page
// replaces the engine's rows; the sort toggles are applied to every loaded
// page before its rows are collected.
func runReport(ctx context.Context, src report.DataSource, opts reportOptions) (*reportResult, error) {
	eng := report.NewEngine(src, opts.PerPage)

	st, err := eng.FetchPage(ctx, opts.Criteria, opts.Page)
	res := &reportResult{Criteria: eng.Criteria(), FirstPage: opts.Page, Notice: st.Notice, Rows: []model.Row{}}
	if err != nil {
		return res, err
	}

	for i := 0; ; i++ {
		for _, key := range opts.Sort {
			eng.SortBy(key)
		}
		st = eng.State()
		res.Rows = append(res.Rows, st.SortedRows()...)
		res.TotalRecords = st.TotalRecords
		res.LastPage = st.Page
		res.Sort = st.Sort
		res.HasMore = st.HasMore()

		if i+1 >= opts.Pages {
			break
		}
		if _, err := eng.NextPage(ctx); err != nil {
			if errors.Is(err, report.ErrNoMorePages) {
				break
			}
			return res, err
		}
	}

	zap.L().Info("report complete",
		zap.Int("rows", len(res.Rows)),
		zap.Int("total_records", res.TotalRecords),
		zap.Int("last_page", res.LastPage),
	)
	return res, nil
}

func writeReport(w io.Writer, res *reportResult, format string) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(yamlRows(res)); err != nil {
			return eris.Wrap(err, "report: encode yaml")
		}
		return enc.Close()
	case "csv":
		return report.WriteCSV(w, res.Rows, nil)
	case "xlsx":
		return report.WriteXLSX(w, res.Rows, nil)
	default:
		formatReportTable(w, res)
		return nil
	}
}

// yamlRows converts json.Number values so YAML renders them as numbers
// rather than quoted strings.
func yamlRows(res *reportResult) *reportResult {
	out := *res
	out.Rows = make([]model.Row, len(res.Rows))
	for i, r := range res.Rows {
		row := make(model.Row, len(r))
		for k, v := range r {
			if n, ok := v.(json.Number); ok {
				if iv, err := n.Int64(); err == nil {
					v = iv
				} else if fv, err := n.Float64(); err == nil {
					v = fv
				}
			}
			row[k] = v
		}
		out.Rows[i] = row
	}
	return &out
}

// formatReportTable writes rows as an aligned table followed by a summary.
func formatReportTable(out io.Writer, res *reportResult) {
	cols := report.Columns(res.Rows)
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	if len(cols) > 0 {
		for i, c := range cols {
			sep := "\t"
			if i == len(cols)-1 {
				sep = "\n"
			}
			_, _ = fmt.Fprint(w, c, sep)
		}
		for _, r := range res.Rows {
			for i, c := range cols {
				sep := "\t"
				if i == len(cols)-1 {
					sep = "\n"
				}
				_, _ = fmt.Fprint(w, report.FormatValue(r[c]), sep)
			}
		}
	}
	_ = w.Flush()

	_, _ = fmt.Fprintf(out, "\nShowing %d of %d records (pages %d-%d)", len(res.Rows), res.TotalRecords, res.FirstPage, res.LastPage)
	if res.Sort.Key != "" {
		_, _ = fmt.Fprintf(out, ", sorted by %s %s", res.Sort.Key, res.Sort.Direction)
	}
	_, _ = fmt.Fprintln(out)
	if res.HasMore {
		_, _ = fmt.Fprintf(out, "More records available: --page %d\n", res.LastPage+1)
	}
}

func writeQuery(w io.Writer, q model.Query, format string) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(q)
	case "yaml":
		return eris.Wrap(yaml.NewEncoder(w).Encode(q), "report: encode yaml")
	default:
		_, err := fmt.Fprintln(w, q.Encode())
		return err
	}
}

func init() {
	addReportFlags(reportCmd)
	reportCmd.Flags().Int("pages", 1, "number of pages to walk (See More)")
	reportCmd.Flags().StringArray("sort", nil, "sort loaded rows by column; repeat a column to toggle descending")

	addReportFlags(reportQueryCmd)

	reportCmd.AddCommand(reportQueryCmd)
	rootCmd.AddCommand(reportCmd)
}
