package db

import (
	"fmt"
	"strings"

	"github.com/lithammer/shortuuid/v3"
)

// GenerateTransactionID builds the internal, client-visible payment reference.
// It exists before any gateway call so even unresolved charges can be tracked.
func GenerateTransactionID() string {
	return fmt.Sprintf("txn_%s", shortuuid.New())
}

// GenerateReceiptNumber is only issued for synchronously settled methods
// (cash, transfer, card).
func GenerateReceiptNumber() string {
	return fmt.Sprintf("REC-%s", strings.ToUpper(shortuuid.New()))
}
