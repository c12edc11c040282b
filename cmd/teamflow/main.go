package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/dozin22/teamflow/internal/cli"
	internal_http "github.com/dozin22/teamflow/internal/http"
	"github.com/dozin22/teamflow/internal/log"
	internal_storage "github.com/dozin22/teamflow/internal/storage"
)

var rootCmd = &cobra.Command{Use: "teamflow"}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the teamflow HTTP server",
	Run: func(cmd *cobra.Command, args []string) {
		if err := godotenv.Load(); err != nil {
			log.GetLogger().Debugf("No .env file found: %v", err)
		}
		connStr, _ := cmd.Flags().GetString("db")
		if connStr == "" {
			connStr = connStrFromEnv()
		}
		store, err := internal_storage.InitStore(connStr)
		if err != nil {
			log.GetLogger().Errorf("Failed to initialize store: %v", err)
			os.Exit(1)
		}
		defer store.Close()

		port := os.Getenv("PORT")
		if port == "" {
			port = "8080"
		}
		if err := internal_http.StartServer(port, store); err != nil {
			log.GetLogger().Errorf("Server stopped: %v", err)
			os.Exit(1)
		}
	},
}

func connStrFromEnv() string {
	dbUsername := os.Getenv("DB_USERNAME")
	dbPassword := os.Getenv("DB_PASSWORD")
	dbHost := os.Getenv("DB_HOST")
	dbPort := os.Getenv("DB_PORT")
	dbName := os.Getenv("DB_NAME")
	if dbUsername == "" || dbPassword == "" || dbHost == "" || dbPort == "" || dbName == "" {
		fmt.Println("Error: --db flag or complete DB_* env vars (DB_USERNAME, DB_PASSWORD, DB_HOST, DB_PORT, DB_NAME) required")
		os.Exit(1)
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
		dbUsername, dbPassword, dbHost, dbPort, dbName)
}

func main() {
	rootCmd.PersistentFlags().String("db", "", "Database connection string (optional if DB_* env vars are set)")
	rootCmd.AddCommand(serveCmd)
	cli.SetupCLI(rootCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
