// Command token-check validates a Wallet API token with a minimal probe
// request, mirroring the check the host's credential flow performs before
// accepting a token.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"

	"walletmon/internal/config"
	"walletmon/internal/wallet"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	if cfg.WalletToken == "" {
		fmt.Fprintln(os.Stderr, "WALLET_TOKEN is not set")
		os.Exit(2)
	}

	client := wallet.NewClient(wallet.Config{
		BaseURL:   cfg.WalletBaseURL,
		Token:     cfg.WalletToken,
		PageLimit: cfg.PageLimit,
		Timeout:   cfg.HTTPTimeout,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := client.ValidateToken(ctx); err != nil {
		if wallet.IsAuthError(err) {
			fmt.Fprintln(os.Stderr, "token rejected: invalid or expired")
			os.Exit(1)
		}
		fmt.Fprintf(os.Stderr, "could not reach the Wallet API: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("token ok")
}
