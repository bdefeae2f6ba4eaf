// services/wallet_client.go
package services

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"
)

// WalletAPI is the slice of the wallet service this system consumes. Debits
// fund table seats, the single credit pays out the winner's prize. Wallet
// bookkeeping itself lives entirely on the other side of this interface.
type WalletAPI interface {
	Debit(userID string, amount float64) error
	Credit(userID string, amount float64) error
}

type WalletServiceClient struct {
	BaseURL string
	Token   string
	Client  *http.Client
}

func NewWalletServiceClient(baseURL, token string) *WalletServiceClient {
	return &WalletServiceClient{
		BaseURL: baseURL,
		Token:   token,
		Client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// Debit withdraws a match fee. A 402 or 409 from the wallet means the user
// cannot cover the fee and is surfaced as ErrInsufficientFunds.
func (c *WalletServiceClient) Debit(userID string, amount float64) error {
	return c.post("/api/wallet/withdraw", userID, amount)
}

// Credit deposits a prize payout.
func (c *WalletServiceClient) Credit(userID string, amount float64) error {
	return c.post("/api/wallet/deposit", userID, amount)
}

func (c *WalletServiceClient) post(path, userID string, amount float64) error {
	url := fmt.Sprintf("%s%s", c.BaseURL, path)

	reqBody := map[string]interface{}{
		"user_id": userID,
		"amount":  amount,
	}
	jsonData, _ := json.Marshal(reqBody)

	req, err := http.NewRequest("POST", url, bytes.NewBuffer(jsonData))
	if err != nil {
		return err
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Service-Token", c.Token)

	resp, err := c.Client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))

	switch resp.StatusCode {
	case http.StatusOK, http.StatusCreated:
		return nil
	case http.StatusPaymentRequired, http.StatusConflict:
		return ErrInsufficientFunds
	default:
		log.Printf("WalletService %s returned %d: %s", path, resp.StatusCode, string(body))
		return fmt.Errorf("wallet service returned %d", resp.StatusCode)
	}
}
