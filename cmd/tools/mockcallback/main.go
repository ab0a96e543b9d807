package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"
)

// Posts a Daraja-shaped STK callback at a local instance. Useful for
// exercising the reconciler without the sandbox: run once for the success
// path, run twice with the same correlation id to watch the duplicate get
// absorbed.
func main() {
	url := flag.String("url", "http://localhost:8080/payments/callback", "Callback URL")
	correlation := flag.String("correlation-id", "", "CheckoutRequestID to reference (required)")
	resultCode := flag.Int("result-code", 0, "ResultCode (0 = success, e.g. 1032 = cancelled by user)")
	resultDesc := flag.String("result-desc", "The service request is processed successfully.", "ResultDesc")
	receipt := flag.String("receipt", "NLJ7RT56", "MpesaReceiptNumber (success only)")
	amount := flag.Float64("amount", 100, "Amount in whole shillings (success only)")
	phone := flag.Int64("phone", 254722123456, "PhoneNumber (success only)")

	flag.Parse()

	if *correlation == "" {
		fmt.Fprintln(os.Stderr, "Error: -correlation-id is required")
		os.Exit(1)
	}

	stk := map[string]any{
		"MerchantRequestID": fmt.Sprintf("mock-%d", time.Now().Unix()),
		"CheckoutRequestID": *correlation,
		"ResultCode":        *resultCode,
		"ResultDesc":        *resultDesc,
	}
	if *resultCode == 0 {
		stk["CallbackMetadata"] = map[string]any{
			"Item": []map[string]any{
				{"Name": "Amount", "Value": *amount},
				{"Name": "MpesaReceiptNumber", "Value": *receipt},
				{"Name": "TransactionDate", "Value": time.Now().Format("20060102150405")},
				{"Name": "PhoneNumber", "Value": *phone},
			},
		}
	}

	payload := map[string]any{"Body": map[string]any{"stkCallback": stk}}
	body, err := json.Marshal(payload)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error marshaling payload: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Body: %s\n", string(body))
	fmt.Printf("\nSending to %s...\n", *url)

	resp, err := http.Post(*url, "application/json", bytes.NewReader(body))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error sending request: %v\n", err)
		os.Exit(1)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	fmt.Printf("Status: %d\n", resp.StatusCode)
	fmt.Printf("Response: %s\n", string(respBody))

	if resp.StatusCode != http.StatusOK {
		os.Exit(1)
	}
}
