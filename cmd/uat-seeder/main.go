package main

import (
	"context"
	"log"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/cozey-tech/cozey-uat-seeder-sub001/internal/models"
	"github.com/cozey-tech/cozey-uat-seeder-sub001/internal/ordersystem"
	"github.com/cozey-tech/cozey-uat-seeder-sub001/internal/store/postgres"
)

// --- Global Command Variables ---
var (
	envName string

	rootCmd = &cobra.Command{
		Use:   "uat-seeder",
		Short: "Seed and tear down synthetic order data in staging environments",
		Long: `uat-seeder creates synthetic orders across the order system and the
fulfillment store, and cleans them up again by tag, batch id, or
collection prep. It refuses to run against anything that looks like
production.`,
	}
)

func main() {
	// Load environment variables from .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	log.SetOutput(os.Stdout)

	rootCmd.PersistentFlags().StringVar(&envName, "env", "", "Target environment name (defaults to UAT_ENVIRONMENT)")

	rootCmd.AddCommand(cleanupCmd)
	rootCmd.AddCommand(seedCmd)
	rootCmd.AddCommand(inventoryCmd)
	rootCmd.AddCommand(stubCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// currentEnvironment resolves the target environment from the flag or
// UAT_ENVIRONMENT. An empty name is treated as production by the guard,
// so a misconfigured run fails closed.
func currentEnvironment() models.Environment {
	name := envName
	if name == "" {
		name = os.Getenv("UAT_ENVIRONMENT")
	}
	return models.Environment{Name: name}
}

func newOrderSystemClient() *ordersystem.Client {
	baseURL := os.Getenv("ORDER_SYSTEM_URL")
	if baseURL == "" {
		baseURL = "http://localhost:8085"
	}
	return ordersystem.NewClient(baseURL, os.Getenv("ORDER_SYSTEM_JWT_SECRET"))
}

// connectStore opens the fulfillment store or exits. Every data command
// needs it, none can proceed without it.
func connectStore(ctx context.Context) *postgres.Database {
	db, err := postgres.NewDatabase(ctx)
	if err != nil {
		log.Fatalf("Failed to connect to fulfillment store: %v", err)
	}
	return db
}
