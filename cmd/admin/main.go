package main

import (
	"fmt"
	"log"
	"os"

	"radargo/backend/internal/config"
	"radargo/backend/internal/storage"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable",
		os.Getenv("DB_HOST"),
		os.Getenv("DB_USER"),
		os.Getenv("DB_PASSWORD"),
		os.Getenv("DB_NAME"),
		os.Getenv("DB_PORT"),
	)
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatalf("failed to connect database: %v", err)
	}

	storageSvc := storage.NewStorageService(db, nil) // No redis needed for admin CLI

	if len(os.Args) < 2 {
		fmt.Println("Usage: admin <command> [args]")
		os.Exit(1)
	}

	command := os.Args[1]

	switch command {
	case "sweep":
		demoted, err := storageSvc.DemoteStaleParticipants(config.StaleThreshold)
		if err != nil {
			log.Fatalf("Error sweeping stale participants: %v", err)
		}
		fmt.Printf("Demoted %d stale participants.\n", len(demoted))
	case "reap":
		reaped, err := storageSvc.ReapOrphanSessions(config.OrphanSessionGrace)
		if err != nil {
			log.Fatalf("Error reaping orphan sessions: %v", err)
		}
		fmt.Printf("Ended %d orphan sessions.\n", len(reaped))
	case "end-session":
		if len(os.Args) != 3 {
			fmt.Println("Usage: admin end-session <session_id>")
			os.Exit(1)
		}
		sessionID := os.Args[2]
		if _, err := storageSvc.GetSession(sessionID); err != nil {
			log.Fatalf("Error looking up session: %v", err)
		}
		if err := storageSvc.EndSession(sessionID); err != nil {
			log.Fatalf("Error ending session: %v", err)
		}
		fmt.Printf("Session %s has been ended.\n", sessionID)
	case "offline":
		if len(os.Args) != 3 {
			fmt.Println("Usage: admin offline <participant_id>")
			os.Exit(1)
		}
		participantID := os.Args[2]
		if err := storageSvc.SetParticipantStatus(participantID, "offline"); err != nil {
			log.Fatalf("Error setting participant offline: %v", err)
		}
		fmt.Printf("Participant %s has been set offline.\n", participantID)
	default:
		fmt.Println("Unknown command")
		os.Exit(1)
	}
}
