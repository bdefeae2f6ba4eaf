// services/user_client.go
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

const (
	// Round achievement kinds: a player taking all 360 points of a round, or
	// finishing a round with zero.
	AchievementPerfectRound = "perfect"
	AchievementZeroRound    = "zero"
)

// UserAPI is the slice of the user service this system consumes: profile
// lookups for display names and the per-user round-achievement counters.
type UserAPI interface {
	GetProfile(userID string) (*UserProfile, error)
	RecordRoundAchievement(userID, kind string) error
}

type UserProfile struct {
	UserID      string `json:"user_id"`
	DisplayName string `json:"display_name"`
	AvatarURL   string `json:"avatar_url"`
}

type UserServiceClient struct {
	BaseURL string
	Token   string
	Client  *http.Client
}

func NewUserServiceClient(baseURL, token string) *UserServiceClient {
	return &UserServiceClient{
		BaseURL: baseURL,
		Token:   token,
		Client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

func (c *UserServiceClient) GetProfile(userID string) (*UserProfile, error) {
	url := fmt.Sprintf("%s/api/users/%s", c.BaseURL, userID)

	req, err := http.NewRequest("GET", url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("X-Service-Token", c.Token)

	resp, err := c.Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)

	if resp.StatusCode != http.StatusOK {
		log.Printf("UserService profile lookup for %s returned %d: %s", userID, resp.StatusCode, string(body))
		return nil, fmt.Errorf("user service returned %d", resp.StatusCode)
	}

	var out UserProfile
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// RecordRoundAchievement bumps the user's perfect-round or zero-round counter.
func (c *UserServiceClient) RecordRoundAchievement(userID, kind string) error {
	url := fmt.Sprintf("%s/api/users/%s/increment-round-wins", c.BaseURL, userID)

	reqBody := map[string]interface{}{"type": kind}
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

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("user service achievement call returned %d: %s", resp.StatusCode, string(body))
	}
	return nil
}
