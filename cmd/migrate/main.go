package main

import (
	"flag" // Command line flags

	"art_market/internal/config" // Custom import path (Config)
	"art_market/internal/db"     // Custom import path (Database)

	"github.com/sirupsen/logrus" // Logrus for structured logging
)

// Main entry point for migration
func main() {
	promote := flag.String("promote", "", "email of an existing user to grant the admin role")
	flag.Parse()

	cfg, err := config.LoadConfig() // Load configuration
	if err != nil {
		logrus.Fatalf("invalid configuration: %v", err)
	}
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	database, err := db.Open(cfg) // Connect using the configured driver
	if err != nil {
		logrus.Fatalf("failed to connect to DB: %v", err)
	}
	if err := db.Migrate(database); err != nil {
		logrus.Fatal(err)
	}
	if *promote != "" {
		if err := db.PromoteAdmin(database, *promote); err != nil {
			logrus.Fatal(err)
		}
	}
}
