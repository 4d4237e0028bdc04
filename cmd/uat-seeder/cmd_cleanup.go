package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cozey-tech/cozey-uat-seeder-sub001/internal/cleanup"
	"github.com/cozey-tech/cozey-uat-seeder-sub001/internal/models"
	"github.com/cozey-tech/cozey-uat-seeder-sub001/internal/store"
)

var (
	cleanupBatchID          string
	cleanupCollectionPrep   string
	cleanupTag              string
	cleanupDryRun           bool
	cleanupSkipConfirmation bool
	cleanupConcurrency      int

	cleanupCmd = &cobra.Command{
		Use:   "cleanup",
		Short: "Delete seeded orders and their fulfillment graphs by batch id, collection prep, or tag",
		Run:   runCleanup,
	}
)

func init() {
	cleanupCmd.Flags().StringVar(&cleanupBatchID, "batch-id", "", "Seeding batch uuid to clean up")
	cleanupCmd.Flags().StringVar(&cleanupCollectionPrep, "collection-prep", "", "Collection prep name to clean up")
	cleanupCmd.Flags().StringVar(&cleanupTag, "tag", "", "Order system tag to clean up")
	cleanupCmd.Flags().BoolVar(&cleanupDryRun, "dry-run", false, "Preview what would be deleted without mutating anything")
	cleanupCmd.Flags().BoolVar(&cleanupSkipConfirmation, "skip-confirmation", false, "Bypass the interactive confirmation prompt")
	cleanupCmd.Flags().IntVar(&cleanupConcurrency, "concurrency", 0, "Max concurrent order deletions (default 5)")
}

func runCleanup(cmd *cobra.Command, args []string) {
	ctx := context.Background()

	db := connectStore(ctx)
	defer db.Close()

	engine := cleanup.NewEngine(db, store.RetryOptions{})
	orchestrator := cleanup.NewOrchestrator(currentEnvironment(), engine, newOrderSystemClient())

	summary, err := orchestrator.Run(ctx, cleanup.Selector{
		BatchID:        cleanupBatchID,
		CollectionPrep: cleanupCollectionPrep,
		Tag:            cleanupTag,
	}, cleanup.Options{
		DryRun:           cleanupDryRun,
		SkipConfirmation: cleanupSkipConfirmation,
		Concurrency:      cleanupConcurrency,
		Confirm:          confirmCleanup,
		Progress: func(current, total int, label string) {
			fmt.Printf("\rProcessed %d/%d %s", current, total, label)
			if current == total {
				fmt.Println()
			}
		},
	})
	if err != nil {
		var validationErr *models.ValidationError
		var guardErr *models.EnvironmentGuardError
		switch {
		case errors.As(err, &validationErr):
			log.Printf("Invalid input: %v", validationErr)
		case errors.As(err, &guardErr):
			log.Printf("Refusing to run: %v", guardErr)
		default:
			log.Printf("Cleanup failed: %v", err)
		}
		os.Exit(1)
	}

	printCleanupSummary(summary)
	if summary.TotalFailed() > 0 {
		os.Exit(1)
	}
}

// confirmCleanup asks the operator to confirm the destructive run.
func confirmCleanup(tag string, orderCount int) (bool, error) {
	fmt.Printf("About to delete %d order(s) tagged %q and their full fulfillment graphs.\n", orderCount, tag)
	fmt.Print("Are you sure you want to continue? (yes/no): ")
	reader := bufio.NewReader(os.Stdin)
	input, err := reader.ReadString('\n')
	if err != nil {
		return false, err
	}
	input = strings.TrimSpace(strings.ToLower(input))
	return input == "yes" || input == "y", nil
}

func printCleanupSummary(s *cleanup.Summary) {
	if s.Aborted {
		fmt.Println("Aborted. No changes were made")
		return
	}
	if s.OrdersDiscovered == 0 {
		fmt.Printf("No orders matched tag %q. Nothing to clean.\n", s.Tag)
		return
	}

	header := "Cleanup summary"
	if s.DryRun {
		header = "Dry-run summary (nothing was deleted)"
	}
	fmt.Printf("\n%s\n", header)
	fmt.Printf("  Tag:               %s\n", s.Tag)
	fmt.Printf("  Orders:            %d deleted, %d skipped, %d failed\n", s.Orders.Deleted, s.Orders.Skipped, s.Orders.Failed)
	fmt.Printf("  Variant orders:    %d\n", s.VariantOrders)
	fmt.Printf("  Preps:             %d\n", s.Preps)
	fmt.Printf("  Prep parts:        %d\n", s.PrepParts)
	fmt.Printf("  Prep part items:   %d\n", s.PrepPartItems)
	fmt.Printf("  Packed boxes:      %d\n", s.PackedBoxes)
	fmt.Printf("  Shipments:         %d\n", s.Shipments)
	fmt.Printf("  Collection preps:  %d deleted, %d skipped, %d failed\n", s.CollectionPreps.Deleted, s.CollectionPreps.Skipped, s.CollectionPreps.Failed)
	if !s.DryRun {
		fmt.Printf("  Order system:      %d deleted, %d archived, %d failed\n", s.OrderSystem.Deleted, s.OrderSystem.Archived, s.OrderSystem.Failed)
	}
	fmt.Printf("  Duration:          %s\n", s.Duration)

	for _, f := range s.Failures {
		fmt.Printf("  FAILED %s: %s\n", f.OrderID, f.Reason)
	}
}
