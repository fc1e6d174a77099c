package services

import (
	"backend/models"
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"time"
)

// NotificationService fans fork events out to email and push channels.
// Both channels are best effort; failures are logged, never surfaced.
type NotificationService struct {
	db    *sql.DB
	email *EmailService
	fcm   *FCMService
}

func NewNotificationService(db *sql.DB, email *EmailService, fcm *FCMService) *NotificationService {
	return &NotificationService{db: db, email: email, fcm: fcm}
}

// NotifyVersionForked tells the owner of the forked state that a new
// version of their quote now exists.
func (ns *NotificationService) NotifyVersionForked(quote models.QuoteGorm, version models.QuoteVersionGorm, actingUserID int) {
	ownerName, ownerEmail, err := ns.userNameEmail(quote.CreatedBy)
	if err != nil {
		log.Printf("[notify] cannot resolve owner of quote %d: %v", quote.ID, err)
		return
	}
	actorName, _, err := ns.userNameEmail(actingUserID)
	if err != nil {
		actorName = "Another user"
	}

	baseURL := os.Getenv("APP_BASE_URL")
	data := models.EmailData{
		RecipientName: ownerName,
		QuoteNumber:   quote.QuoteNumber,
		VersionCode:   version.VersionCode,
		ActorName:     actorName,
		ActionURL:     fmt.Sprintf("%s/quotes/%d", baseURL, quote.ID),
	}

	if ns.email != nil {
		if err := ns.email.SendVersionForkedEmail(ownerEmail, data); err != nil {
			log.Printf("[notify] fork email for quote %d failed: %v", quote.ID, err)
		}
	}

	if ns.fcm != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		title := fmt.Sprintf("Quote %s forked", quote.QuoteNumber)
		body := fmt.Sprintf("%s created version %s", actorName, version.VersionCode)
		if err := ns.fcm.SendNotificationToUser(ctx, quote.CreatedBy, title, body,
			map[string]string{"action": data.ActionURL}); err != nil {
			log.Printf("[notify] fork push for quote %d failed: %v", quote.ID, err)
		}
	}
}

func (ns *NotificationService) userNameEmail(userID int) (string, string, error) {
	var firstName, lastName, email string
	err := ns.db.QueryRow(`SELECT first_name, last_name, email FROM users WHERE id = $1`, userID).
		Scan(&firstName, &lastName, &email)
	if err != nil {
		return "", "", err
	}
	return firstName + " " + lastName, email, nil
}
