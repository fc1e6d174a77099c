package services

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/jwt"
)

// FCMService sends quote event push notifications through the Firebase
// Cloud Messaging HTTP v1 API.
type FCMService struct {
	projectID   string
	db          *sql.DB
	httpClient  *http.Client
	tokenSource oauth2.TokenSource
}

// ServiceAccountCredentials represents the structure of Firebase service account JSON
type ServiceAccountCredentials struct {
	Type        string `json:"type"`
	ProjectID   string `json:"project_id"`
	PrivateKey  string `json:"private_key"`
	ClientEmail string `json:"client_email"`
	TokenURI    string `json:"token_uri"`
}

// NewFCMService initializes the FCM service from a service account JSON file.
func NewFCMService(credentialsPath string, db *sql.DB) (*FCMService, error) {
	if credentialsPath == "" {
		return nil, fmt.Errorf("credentials path is required")
	}

	data, err := os.ReadFile(credentialsPath)
	if err != nil {
		return nil, fmt.Errorf("error reading credentials file: %v", err)
	}

	var creds ServiceAccountCredentials
	if err := json.Unmarshal(data, &creds); err != nil {
		return nil, fmt.Errorf("error parsing credentials: %v", err)
	}

	// jwt.Config expects the private key as PEM bytes; unescape newlines
	privateKey := strings.ReplaceAll(creds.PrivateKey, "\\n", "\n")

	config := &jwt.Config{
		Email:      creds.ClientEmail,
		PrivateKey: []byte(privateKey),
		Scopes:     []string{"https://www.googleapis.com/auth/firebase.messaging"},
		TokenURL:   creds.TokenURI,
	}

	return &FCMService{
		projectID:   creds.ProjectID,
		db:          db,
		httpClient:  &http.Client{},
		tokenSource: config.TokenSource(context.Background()),
	}, nil
}

// SendNotification sends a push notification to a single FCM token.
func (f *FCMService) SendNotification(ctx context.Context, token, title, body string, data map[string]string) error {
	if token == "" {
		return fmt.Errorf("FCM token cannot be empty")
	}

	oauthToken, err := f.tokenSource.Token()
	if err != nil {
		return fmt.Errorf("error getting OAuth token: %v", err)
	}

	if data == nil {
		data = map[string]string{}
	}

	message := map[string]interface{}{
		"message": map[string]interface{}{
			"token": token,
			"notification": map[string]string{
				"title": title,
				"body":  body,
			},
			"data": data,
			"webpush": map[string]interface{}{
				"fcm_options": map[string]interface{}{
					"link": data["action"],
				},
			},
		},
	}

	endpoint := fmt.Sprintf("https://fcm.googleapis.com/v1/projects/%s/messages:send", f.projectID)
	return f.sendHTTPv1Request(ctx, endpoint, oauthToken.AccessToken, message)
}

// SendNotificationToUser looks up the user's FCM token and notifies them.
// A missing token is not an error.
func (f *FCMService) SendNotificationToUser(ctx context.Context, userID int, title, body string, data map[string]string) error {
	var fcmToken string
	err := f.db.QueryRow(`SELECT fcm_token FROM users WHERE id = $1 AND fcm_token IS NOT NULL AND fcm_token != ''`, userID).Scan(&fcmToken)
	if err != nil {
		if err == sql.ErrNoRows {
			log.Printf("[fcm] no token for user %d", userID)
			return nil
		}
		return fmt.Errorf("error fetching FCM token for user %d: %v", userID, err)
	}

	return f.SendNotification(ctx, fcmToken, title, body, data)
}

func (f *FCMService) sendHTTPv1Request(ctx context.Context, endpoint, accessToken string, payload map[string]interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("error marshaling FCM payload: %v", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("error creating FCM request: %v", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("error sending FCM request: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("FCM request failed with status %d: %s", resp.StatusCode, string(respBody))
	}
	return nil
}
