package main

import (
	"flag"
	"fmt"
	"os"

	"buildorite/internal/shared/auth"
	"buildorite/internal/shared/config"
)

func main() {
	userID := flag.String("user", "550e8400-e29b-41d4-a716-446655440000", "User ID (UUID)")
	email := flag.String("email", "driver@example.com", "Email address")
	role := flag.String("role", "DRIVER", "Role (DRIVER|TRUCK_OWNER|MINE_OWNER)")
	tripID := flag.String("trip", "<trip_id>", "Trip ID for the example request")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	token, err := auth.NewJWTService(cfg.JWT).GenerateToken(*userID, *email, *role)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error generating JWT token: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("\nJWT Token generated\n\n")
	fmt.Printf("User ID:   %s\n", *userID)
	fmt.Printf("Email:     %s\n", *email)
	fmt.Printf("Role:      %s\n", *role)
	fmt.Printf("\nToken:\n%s\n", token)
	fmt.Printf("\nAuthorization: Bearer %s\n", token)
	fmt.Printf("\nExample curl:\n")
	fmt.Printf("curl -X POST http://localhost:%d/trips/%s/milestones \\\n", cfg.Services.TripServicePort, *tripID)
	fmt.Printf("  -H 'Authorization: Bearer %s' \\\n", token)
	fmt.Printf("  -H 'Content-Type: application/json' \\\n")
	fmt.Printf("  -d '{\"status\": \"trip_started\"}'\n\n")
}
