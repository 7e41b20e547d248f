package main

import (
	"fmt"
	"os"

	"github.com/linesmerrill/sentinel-campus-api/databases"
)

// Quick utility to reset an administrator password on the mongo backend
// Usage: go run scripts/admin_password_hash.go <email> <password>
func main() {
	if len(os.Args) < 3 {
		fmt.Println("Usage: go run scripts/admin_password_hash.go <email> <password>")
		fmt.Println("Example: go run scripts/admin_password_hash.go admin@sentinelcampus.edu n3w-s3cret")
		os.Exit(1)
	}

	email, password := os.Args[1], os.Args[2]

	hash, err := databases.HashAdminPassword(password)
	if err != nil {
		fmt.Printf("Error generating hash: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Bcrypt Hash: %s\n", hash)
	fmt.Printf("\nTo update in MongoDB, run:\n")
	fmt.Printf("db.admins.updateOne(\n")
	fmt.Printf("  {\"email\": %q},\n", email)
	fmt.Printf("  {$set: {\"passwordHash\": %q}}\n", hash)
	fmt.Printf(")\n")
}
