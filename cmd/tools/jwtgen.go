package main

import (
	"flag"
	"fmt"
	"log"
	"strings"
	"time"

	"shop-admin-api/internal/auth"
	"shop-admin-api/internal/config"
)

func main() {
	var (
		userID     = flag.String("user", "00000000-0000-0000-0000-0000000000c1", "User ID")
		accountID  = flag.String("account", "00000000-0000-0000-0000-0000000000b1", "Account ID")
		roles      = flag.String("roles", "owner", "Comma-separated list of roles")
		expiryMins = flag.Int("expiry", 1440, "Access token expiry in minutes (default: 24 hours)")
		secret     = flag.String("secret", "", "JWT secret (overrides JWT_SECRET env var)")
		issuer     = flag.String("issuer", "", "JWT issuer (overrides JWT_ISS env var)")
		audience   = flag.String("audience", "", "JWT audience (overrides JWT_AUD env var)")
	)
	flag.Parse()

	cfg := config.Load()
	if *secret != "" {
		cfg.JWTSecret = *secret
		cfg.JWTRefreshSecret = *secret
	}
	if *issuer != "" {
		cfg.JWTIssuer = *issuer
	}
	if *audience != "" {
		cfg.JWTAudience = *audience
	}

	roleList := strings.Split(*roles, ",")
	for i, role := range roleList {
		roleList[i] = strings.TrimSpace(role)
	}

	expiry := time.Duration(*expiryMins) * time.Minute
	refreshExpiry := cfg.RefreshExpiry
	if refreshExpiry < expiry {
		refreshExpiry = expiry
	}
	jwtManager := auth.NewJWTManager(cfg.JWTSecret, cfg.JWTRefreshSecret, cfg.JWTIssuer, cfg.JWTAudience,
		expiry, refreshExpiry, cfg.MaxRefreshCount)

	pair, err := jwtManager.GeneratePair(*userID, *accountID, roleList)
	if err != nil {
		log.Fatalf("Failed to generate token: %v", err)
	}

	fmt.Printf("JWT tokens generated successfully!\n\n")
	fmt.Printf("User ID: %s\n", *userID)
	fmt.Printf("Account ID: %s\n", *accountID)
	fmt.Printf("Roles: %s\n", strings.Join(roleList, ", "))
	fmt.Printf("Access expires: %s\n", pair.AccessExpiresAt.Format(time.RFC3339))
	fmt.Printf("Refresh expires: %s\n", pair.RefreshExpiresAt.Format(time.RFC3339))
	fmt.Printf("Issuer: %s\n", cfg.JWTIssuer)
	fmt.Printf("Audience: %s\n", cfg.JWTAudience)
	fmt.Printf("\nAccess token:\n%s\n", pair.AccessToken)
	fmt.Printf("\nRefresh token:\n%s\n\n", pair.RefreshToken)

	fmt.Printf("Usage example:\n")
	fmt.Printf("curl -H \"Authorization: Bearer %s\" http://localhost:8080/shops\n", pair.AccessToken)
}
