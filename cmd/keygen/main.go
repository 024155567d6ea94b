// Command keygen prints a fresh SIGNGUARD_MASTER_KEY. With -sub it instead
// signs a development access token using AUTH_JWT_SECRET.
package main

import (
	"flag"
	"fmt"
	"log"
	"time"

	gojwt "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/cepalab/signguard/pkg/config"
	"github.com/cepalab/signguard/pkg/jwt"
	"github.com/cepalab/signguard/pkg/secrets"
)

func main() {
	sub := flag.String("sub", "", "user id to issue a development access token for")
	mail := flag.String("email", "", "email claim of the development token")
	ttl := flag.Duration("ttl", time.Hour, "lifetime of the development token")
	flag.Parse()

	if *sub == "" {
		key, err := secrets.GenerateEncodedKey()
		if err != nil {
			log.Fatalf("Failed to generate master key: %v", err)
		}
		fmt.Printf("Generated master key (for SIGNGUARD_MASTER_KEY env var): \n---\n%s\n---\n", key)
		return
	}

	userID, err := uuid.Parse(*sub)
	if err != nil {
		log.Fatalf("Invalid user id: %v", err)
	}

	var cfg jwt.Config
	config.MustLoad(&cfg)
	tokens, err := jwt.NewFromConfig(cfg)
	if err != nil {
		log.Fatalf("Failed to create token service: %v", err)
	}

	tok, err := tokens.Generate(jwt.Claims{
		RegisteredClaims: gojwt.RegisteredClaims{
			Subject:   userID.String(),
			ExpiresAt: gojwt.NewNumericDate(time.Now().Add(*ttl)),
		},
		Email: *mail,
	})
	if err != nil {
		log.Fatalf("Failed to sign token: %v", err)
	}
	fmt.Println(tok)
}
