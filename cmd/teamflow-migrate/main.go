package main

import (
	"fmt"
	"os"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/dozin22/teamflow/internal/log"
)

var rootCmd = &cobra.Command{Use: "teamflow-migrate"}

var upCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply pending schema migrations",
	Run: func(cmd *cobra.Command, args []string) {
		m := migrator(cmd)
		if err := m.Up(); err != nil && err != migrate.ErrNoChange {
			log.GetLogger().Errorf("Failed to apply migrations: %v", err)
			os.Exit(1)
		}
		log.GetLogger().Infof("Migrations applied")
	},
}

var downCmd = &cobra.Command{
	Use:   "down",
	Short: "Roll back the most recent migration",
	Run: func(cmd *cobra.Command, args []string) {
		m := migrator(cmd)
		if err := m.Steps(-1); err != nil {
			log.GetLogger().Errorf("Failed to roll back migration: %v", err)
			os.Exit(1)
		}
		log.GetLogger().Infof("Rolled back one migration")
	},
}

func migrator(cmd *cobra.Command) *migrate.Migrate {
	if err := godotenv.Load(); err != nil {
		log.GetLogger().Debugf("No .env file found: %v", err)
	}
	connStr, _ := cmd.Flags().GetString("db")
	if connStr == "" {
		connStr = connStrFromEnv()
	}
	source, _ := cmd.Flags().GetString("source")
	m, err := migrate.New(source, connStr)
	if err != nil {
		log.GetLogger().Errorf("Failed to initialize migrations: %v", err)
		os.Exit(1)
	}
	return m
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
	rootCmd.PersistentFlags().String("source", "file://migrations", "Migrations source URL")
	rootCmd.AddCommand(upCmd, downCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
