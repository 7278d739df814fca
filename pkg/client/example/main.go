package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/xueqianLu/dscgateway/pkg/client"
)

const baseURL = "http://localhost:8080"

func main() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	c := client.NewClient(baseURL, os.Getenv("API_KEY"), os.Getenv("API_SECRET"))

	// 1. Health Check
	fmt.Println("1. Performing Health Check...")
	health, err := c.Health(ctx)
	if err != nil {
		log.Fatalf("Health check failed: %v", err)
	}
	fmt.Printf("   Health status: %s (block %d)\n\n", health.Status, health.BlockNumber)

	// 2. Token information
	fmt.Println("2. Fetching DSC token information...")
	info, err := c.TokenInfo(ctx)
	if err != nil {
		log.Fatalf("Failed to get token info: %v", err)
	}
	fmt.Printf("   %s (%s) total supply %s at %s\n\n", info.Name, info.Symbol, info.TotalSupply, info.ContractAddress)

	user := os.Getenv("USER_ADDRESS")
	if user == "" {
		fmt.Println("USER_ADDRESS not set, skipping account queries")
		return
	}

	// 3. Engine position
	fmt.Println("3. Fetching engine account...")
	account, err := c.EngineAccount(ctx, user)
	if err != nil {
		log.Fatalf("Failed to get engine account: %v", err)
	}
	fmt.Printf("   minted %s DSC, collateral $%s, health factor %s\n\n",
		account.TotalDscMinted, account.CollateralValueInUsd, account.HealthFactor)

	key := os.Getenv("PRIVATE_KEY")
	if key == "" {
		fmt.Println("PRIVATE_KEY not set, skipping writes")
		return
	}
	creds := client.Credentials{PrivateKey: key}

	// 4. Estimate, then run the deposit-and-mint workflow
	fmt.Println("4. Estimating a 0.1 ETH wrap...")
	est, err := c.Wrap(ctx, client.WETH, client.Credentials{PrivateKey: key, EstimateOnly: true}, "0.1")
	if err != nil {
		log.Fatalf("Failed to estimate wrap: %v", err)
	}
	fmt.Printf("   estimated gas: %s\n\n", est.EstimatedGas)

	fmt.Println("5. Depositing 0.1 ETH as collateral and minting 10 DSC...")
	wf, err := c.DepositAndMint(ctx, client.WETH, creds, "0.1", "10")
	if err != nil {
		var apiErr *client.APIError
		if errors.As(err, &apiErr) && apiErr.Step != "" {
			log.Fatalf("Workflow stopped at %s after %d steps: %v", apiErr.Step, len(apiErr.CompletedSteps), err)
		}
		log.Fatalf("Workflow failed: %v", err)
	}
	for name, step := range wf.Steps {
		fmt.Printf("   %s: %s (%s)\n", name, step.Description, step.TransactionHash)
	}
	fmt.Printf("   minted %s DSC, health factor %s\n", wf.DSCMinted, wf.DSCAccount["healthFactor"])
}
