package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/cozey-tech/cozey-uat-seeder-sub001/internal/batchid"
	"github.com/cozey-tech/cozey-uat-seeder-sub001/internal/models"
	"github.com/cozey-tech/cozey-uat-seeder-sub001/internal/seed"
	"github.com/cozey-tech/cozey-uat-seeder-sub001/internal/store"
)

var (
	seedOrders   int
	seedCarrier  string
	seedLocation string
	seedRegion   string
	seedDay      string
	seedPnP      bool
	seedBatchID  string

	seedCmd = &cobra.Command{
		Use:   "seed",
		Short: "Create a batch of synthetic orders with full fulfillment graphs",
		Run:   runSeed,
	}
)

func init() {
	seedCmd.Flags().IntVar(&seedOrders, "orders", 3, "Number of synthetic orders to create")
	seedCmd.Flags().StringVar(&seedCarrier, "carrier", "Canpar", "Carrier for the collection prep")
	seedCmd.Flags().StringVar(&seedLocation, "location", "", "Location id for the collection prep")
	seedCmd.Flags().StringVar(&seedRegion, "region", string(models.RegionCA), "Region to seed into")
	seedCmd.Flags().StringVar(&seedDay, "day", "", "Collection prep day as YYYY-MM-DD (defaults to today)")
	seedCmd.Flags().BoolVar(&seedPnP, "pnp", false, "Seed pick-and-pack orders with packed boxes")
	seedCmd.Flags().StringVar(&seedBatchID, "batch-id", "", "Batch uuid (generated when omitted)")
}

func runSeed(cmd *cobra.Command, args []string) {
	ctx := context.Background()

	if seedLocation == "" {
		log.Println("--location is required")
		os.Exit(1)
	}

	var day time.Time
	if seedDay != "" {
		parsed, err := time.Parse("2006-01-02", seedDay)
		if err != nil {
			log.Printf("Invalid --day value %q: %v", seedDay, err)
			os.Exit(1)
		}
		day = parsed
	}

	db := connectStore(ctx)
	defer db.Close()

	seeder := seed.NewSeeder(db, batchid.NewGenerator(db), newOrderSystemClient(), currentEnvironment(), store.RetryOptions{})

	result, err := seeder.SeedBatch(ctx, seed.Params{
		Orders:     seedOrders,
		Carrier:    seedCarrier,
		LocationID: seedLocation,
		Region:     models.Region(seedRegion),
		Day:        day,
		PnP:        seedPnP,
		BatchID:    seedBatchID,
	})
	if err != nil {
		log.Printf("Seeding failed: %v", err)
		os.Exit(1)
	}

	fmt.Printf("\nSeeded %d order(s)\n", result.Orders)
	fmt.Printf("  Batch id:         %s\n", result.BatchID)
	fmt.Printf("  Tag:              %s\n", result.Tag)
	fmt.Printf("  Collection prep:  %s\n", result.CollectionPrepID)
	fmt.Printf("\nClean up later with: uat-seeder cleanup --batch-id %s\n", result.BatchID)
}
