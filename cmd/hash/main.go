// Package main is a utility for generating bcrypt hashes of passwords.
// Keyforge stores only bcrypt hashes of owner and end-user passwords, so this
// tool is used when manually seeding or repairing credential records in the
// database without running the full server. The hash it prints can be inserted
// directly into the owners.password_hash or app_users.password_hash column.
package main

import (
	"fmt"
	"log"
	"os"

	"github.com/keyforge/keyforge/internal/auth"
)

func main() {
	if len(os.Args) < 2 {
		log.Fatalf("usage: %s <password>", os.Args[0])
	}
	hash, err := auth.HashPassword(os.Args[1])
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(hash)
}
