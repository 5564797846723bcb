package main

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/jonathan/catalog-tracker/internal/store"
)

var sellersCmd = &cobra.Command{
	Use:   "sellers",
	Short: "List sellers",
	Long: `Lists sellers by name. With --products, lists the products of one seller instead,
newest first; removed products are included with --removed.`,
	RunE: runSellers,
}

var (
	sellersAll      bool
	sellersProducts string
	sellersRemoved  bool
)

func init() {
	sellersCmd.Flags().BoolVar(&sellersAll, "all", false, "Include inactive sellers")
	sellersCmd.Flags().StringVar(&sellersProducts, "products", "", "Seller ID whose products to list")
	sellersCmd.Flags().BoolVar(&sellersRemoved, "removed", false, "Include removed products (with --products)")

	rootCmd.AddCommand(sellersCmd)
}

func runSellers(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	sellerID := uuid.Nil
	if sellersProducts != "" {
		id, err := parseID("seller", sellersProducts)
		if err != nil {
			return err
		}
		sellerID = id
	}

	database, err := openDB(ctx)
	if err != nil {
		return err
	}
	defer database.Close()

	if sellerID != uuid.Nil {
		seller, err := database.GetSeller(ctx, sellerID)
		if err != nil {
			return err
		}
		if seller == nil {
			return fmt.Errorf("%w: seller %s not found", store.ErrInvalidArgument, sellerID)
		}
		products, err := database.ListProductsBySeller(ctx, sellerID, sellersRemoved)
		if err != nil {
			return err
		}
		newPrinter().PrintSellerProducts(seller, products)
		return nil
	}

	sellers, err := database.ListSellers(ctx, !sellersAll)
	if err != nil {
		return err
	}

	newPrinter().PrintSellers(sellers)
	return nil
}
