package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/gocarina/gocsv"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/talkincode/prodcatalog/internal/client"
	"github.com/talkincode/prodcatalog/internal/domain"
)

// productRow is the CSV layout of an exported product
type productRow struct {
	ID        string `csv:"_id"`
	ProductID string `csv:"productId"`
	Name      string `csv:"name"`
	Price     string `csv:"price"`
	Rating    string `csv:"rating"`
	Featured  bool   `csv:"featured"`
	Company   string `csv:"company"`
	CreatedAt string `csv:"createdAt"`
}

func formatRating(r *float64) string {
	if r == nil {
		return ""
	}
	return strconv.FormatFloat(*r, 'f', -1, 64)
}

func toRows(products []*domain.Product) []*productRow {
	rows := make([]*productRow, 0, len(products))
	for _, p := range products {
		rows = append(rows, &productRow{
			ID:        p.ID,
			ProductID: p.ProductID,
			Name:      p.Name,
			Price:     strconv.FormatFloat(p.Price, 'f', -1, 64),
			Rating:    formatRating(p.Rating),
			Featured:  p.Featured,
			Company:   p.Company,
			CreatedAt: p.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	return rows
}

func writeCSV(w io.Writer, products []*domain.Product) error {
	return gocsv.Marshal(toRows(products), w)
}

func printTable(w io.Writer, products []*domain.Product) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tPRODUCT\tNAME\tPRICE\tRATING\tFEATURED\tCOMPANY")
	for _, r := range toRows(products) {
		rating := r.Rating
		if rating == "" {
			rating = "-"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%t\t%s\n", r.ID, r.ProductID, r.Name, r.Price, rating, r.Featured, r.Company)
	}
	return tw.Flush()
}

func newProductsCommand(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "products",
		Short: "Manage the product catalog",
	}
	cmd.AddCommand(
		newListCommand(opts, "list", "List every product", func(ctx context.Context, c *client.Client) ([]*domain.Product, error) {
			return c.List(ctx)
		}),
		newListCommand(opts, "featured", "List the featured products", func(ctx context.Context, c *client.Client) ([]*domain.Product, error) {
			return c.Featured(ctx)
		}),
		newFilterCommand(opts),
		newAddCommand(opts),
		newUpdateCommand(opts),
		newDeleteCommand(opts),
		newExportCommand(opts),
	)
	return cmd
}

type listFunc func(ctx context.Context, c *client.Client) ([]*domain.Product, error)

func newListCommand(opts *globalOptions, use, short string, fetch listFunc) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := opts.authorizedClient()
			if err != nil {
				return err
			}
			products, err := fetch(cmd.Context(), c)
			if err != nil {
				return err
			}
			return printTable(cmd.OutOrStdout(), products)
		},
	}
}

func newFilterCommand(opts *globalOptions) *cobra.Command {
	var maxPrice, minRating float64
	cmd := newListCommand(opts, "filter", "List products cheaper than --max-price and rated above --min-rating",
		func(ctx context.Context, c *client.Client) ([]*domain.Product, error) {
			return c.Filter(ctx, maxPrice, minRating)
		})
	cmd.Flags().Float64Var(&maxPrice, "max-price", client.DefaultPriceFilter, "exclusive price upper bound")
	cmd.Flags().Float64Var(&minRating, "min-rating", client.DefaultRatingFilter, "exclusive rating lower bound")
	return cmd
}

func newAddCommand(opts *globalOptions) *cobra.Command {
	var (
		req    client.ProductRequest
		price  float64
		rating float64
	)
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Create a product",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := opts.authorizedClient()
			if err != nil {
				return err
			}
			req.Price = &price
			if cmd.Flags().Changed("rating") {
				req.Rating = &rating
			}
			p, err := c.Create(cmd.Context(), req)
			if err != nil {
				return err
			}
			return printTable(cmd.OutOrStdout(), []*domain.Product{p})
		},
	}
	cmd.Flags().StringVar(&req.ProductID, "product-id", "", "product id, generated when empty")
	cmd.Flags().StringVar(&req.Name, "name", "", "product name")
	cmd.Flags().Float64Var(&price, "price", 0, "price")
	cmd.Flags().Float64Var(&rating, "rating", 0, "rating between 0 and 5")
	cmd.Flags().BoolVar(&req.Featured, "featured", false, "mark as featured")
	cmd.Flags().StringVar(&req.Company, "company", "", "company name")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("price")
	_ = cmd.MarkFlagRequired("company")
	return cmd
}

func newUpdateCommand(opts *globalOptions) *cobra.Command {
	var (
		productID, name, company string
		price, rating            float64
		featured                 bool
	)
	cmd := &cobra.Command{
		Use:   "update ID",
		Short: "Change the given fields of a product",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var patch client.ProductPatch
			flags := cmd.Flags()
			if flags.Changed("product-id") {
				patch.ProductID = &productID
			}
			if flags.Changed("name") {
				patch.Name = &name
			}
			if flags.Changed("price") {
				patch.Price = &price
			}
			if flags.Changed("rating") {
				patch.Rating = &rating
			}
			if flags.Changed("featured") {
				patch.Featured = &featured
			}
			if flags.Changed("company") {
				patch.Company = &company
			}
			if patch == (client.ProductPatch{}) {
				return errors.New("nothing to update")
			}

			c, err := opts.authorizedClient()
			if err != nil {
				return err
			}
			p, err := c.Update(cmd.Context(), args[0], patch)
			if err != nil {
				return err
			}
			return printTable(cmd.OutOrStdout(), []*domain.Product{p})
		},
	}
	cmd.Flags().StringVar(&productID, "product-id", "", "new product id")
	cmd.Flags().StringVar(&name, "name", "", "new name")
	cmd.Flags().Float64Var(&price, "price", 0, "new price")
	cmd.Flags().Float64Var(&rating, "rating", 0, "new rating")
	cmd.Flags().BoolVar(&featured, "featured", false, "featured flag")
	cmd.Flags().StringVar(&company, "company", "", "new company")
	return cmd
}

func newDeleteCommand(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete ID",
		Short: "Delete a product",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := opts.authorizedClient()
			if err != nil {
				return err
			}
			if err := c.Delete(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Product deleted")
			return nil
		},
	}
}

func newExportCommand(opts *globalOptions) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the catalog as CSV",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := opts.authorizedClient()
			if err != nil {
				return err
			}
			products, err := c.List(cmd.Context())
			if err != nil {
				return err
			}
			if output == "" || output == "-" {
				return writeCSV(cmd.OutOrStdout(), products)
			}
			f, err := os.Create(output)
			if err != nil {
				return errors.Wrap(err, "create export file")
			}
			if err := writeCSV(f, products); err != nil {
				_ = f.Close()
				return err
			}
			return f.Close()
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "-", "output file, - for stdout")
	return cmd
}
