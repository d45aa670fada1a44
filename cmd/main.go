package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/code-payments/appstore-receipt/appstore"
)

func main() {
	_ = godotenv.Load()

	if len(os.Args) < 2 {
		log.Fatal("usage: verify-receipt <receipt-file>")
	}

	data, err := os.ReadFile(os.Args[1])
	if err != nil {
		log.Fatal("Failed to read receipt file:", err)
	}

	validator, err := appstore.NewValidator(appstore.Production,
		appstore.WithLogger(zap.Must(zap.NewDevelopment())))
	if err != nil {
		log.Fatal("Failed to create validator:", err)
	}

	// The file may hold either raw receipt JSON or a base64 blob; the
	// validator encodes the former on its own.
	validator.SetReceiptData(strings.TrimSpace(string(data)))
	validator.SetSharedSecret(os.Getenv("APPSTORE_SHARED_SECRET"))

	resp, err := validator.Validate(context.Background())
	if err != nil {
		log.Fatal("Validation failed:", err)
	}

	fmt.Printf("Status: %d (%s)\n", resp.Status, appstore.StatusDescription(resp.Status))
	if resp.ProductID != "" {
		fmt.Println("Product:", resp.ProductID)
	}
	if resp.TransactionID != "" {
		fmt.Println("Transaction:", resp.TransactionID)
	}
	if !resp.ExpiresDate.IsZero() {
		fmt.Println("Expires:", resp.ExpiresDate.Time)
		fmt.Println("Active:", resp.HasActiveSubscription())
	}
	fmt.Println("Trial period:", resp.IsTrialPeriod())

	for _, tx := range resp.InApp {
		fmt.Printf("In-app purchase: product=%s transaction=%s quantity=%s\n",
			tx.ProductID, tx.TransactionID, tx.Quantity)
	}
}
