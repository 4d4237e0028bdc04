package main

import (
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/cozey-tech/cozey-uat-seeder-sub001/internal/ordersystem"
)

var (
	stubPort string

	stubCmd = &cobra.Command{
		Use:   "order-system-stub",
		Short: "Run a local in-memory stand-in for the order system admin API",
		Run:   runStub,
	}
)

func init() {
	stubCmd.Flags().StringVar(&stubPort, "port", "8085", "Port to listen on")
}

func runStub(cmd *cobra.Command, args []string) {
	stub := ordersystem.NewStub(os.Getenv("ORDER_SYSTEM_JWT_SECRET"))
	router := stub.Router()

	log.Printf("Starting order system stub on port %s", stubPort)
	if err := router.Run(":" + stubPort); err != nil {
		log.Fatalf("Failed to start stub server: %v", err)
	}
}
