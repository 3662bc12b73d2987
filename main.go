package main

import (
	"flag"
	"fmt"
	"log"

	"english_test_bot/internal/app"
	"english_test_bot/internal/config"
	"english_test_bot/pkg/logger"
	"english_test_bot/pkg/security"
)

func main() {
	hashPassword := flag.String("hash-password", "", "print the bcrypt hash for an admin password and exit")
	flag.Parse()

	if *hashPassword != "" {
		hash, err := security.HashPassword(*hashPassword)
		if err != nil {
			log.Fatalf("Failed to hash password: %v", err)
		}
		fmt.Println(hash)
		return
	}

	cfg, err := config.LoadConfig("configs")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger.InitLogger(cfg)
	defer logger.Log.Sync()

	application, err := app.NewApp(cfg)
	if err != nil {
		logger.Log.Fatal("Failed to initialize application: " + err.Error())
	}

	if err := application.Run(); err != nil {
		logger.Log.Fatal("Application stopped with error: " + err.Error())
	}
}
