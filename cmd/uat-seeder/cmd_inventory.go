package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cozey-tech/cozey-uat-seeder-sub001/internal/inventory"
	"github.com/cozey-tech/cozey-uat-seeder-sub001/internal/models"
)

var (
	inventoryRegion string
	inventoryTopUp  bool

	inventoryCmd = &cobra.Command{
		Use:   "inventory [variant=quantity...]",
		Short: "Check stock against required quantities and optionally top up",
		Long: `Checks available stock for each variant=quantity requirement and reports
shortages. With --top-up, missing stock is added (non-production only).

Example: uat-seeder inventory --region CA VAR-1a2b=10 VAR-3c4d=5`,
		Args: cobra.MinimumNArgs(1),
		Run:  runInventory,
	}
)

func init() {
	inventoryCmd.Flags().StringVar(&inventoryRegion, "region", string(models.RegionCA), "Region to check stock in")
	inventoryCmd.Flags().BoolVar(&inventoryTopUp, "top-up", false, "Add missing stock to close shortages")
}

func runInventory(cmd *cobra.Command, args []string) {
	ctx := context.Background()

	required, err := parseRequirements(args)
	if err != nil {
		log.Printf("Invalid requirement: %v", err)
		os.Exit(1)
	}

	db := connectStore(ctx)
	defer db.Close()

	checker := inventory.NewChecker(db, currentEnvironment())
	shortages, err := checker.Reconcile(ctx, models.Region(inventoryRegion), required, inventoryTopUp)
	if err != nil {
		log.Printf("Inventory check failed: %v", err)
		os.Exit(1)
	}

	if len(shortages) == 0 {
		fmt.Println("All requirements are covered by available stock.")
		return
	}

	fmt.Printf("%d shortage(s):\n", len(shortages))
	for _, s := range shortages {
		fmt.Printf("  %s: required %d, available %d, missing %d\n", s.VariantID, s.Required, s.Available, s.Missing)
	}
	if inventoryTopUp {
		fmt.Println("Shortages were topped up.")
		return
	}
	os.Exit(1)
}

func parseRequirements(args []string) ([]inventory.Requirement, error) {
	required := make([]inventory.Requirement, 0, len(args))
	for _, arg := range args {
		parts := strings.SplitN(arg, "=", 2)
		if len(parts) != 2 || parts[0] == "" {
			return nil, fmt.Errorf("%q is not in variant=quantity form", arg)
		}
		qty, err := strconv.Atoi(parts[1])
		if err != nil || qty < 0 {
			return nil, fmt.Errorf("%q has an invalid quantity", arg)
		}
		required = append(required, inventory.Requirement{VariantID: parts[0], Quantity: qty})
	}
	return required, nil
}
