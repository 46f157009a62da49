package utils

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"firebase.google.com/go/v4/messaging"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"gopkg.in/gomail.v2"

	"github.com/Abhi-Verma2005/hrm8-backend-sub000/config"
	"github.com/Abhi-Verma2005/hrm8-backend-sub000/models"
)

// SaveNotification saves an in-app notification to the database
func SaveNotification(db *mongo.Database, userID primitive.ObjectID, title, message, notifType string, data interface{}) error {
	collection := db.Collection("notifications")

	notification := models.Notification{
		ID:        primitive.NewObjectID(),
		UserID:    userID,
		Title:     title,
		Message:   message,
		Type:      notifType,
		Data:      data,
		IsRead:    false,
		CreatedAt: time.Now(),
	}

	_, err := collection.InsertOne(context.Background(), notification)
	return err
}

// SendNotificationEmail sends a plain-text email via the configured SMTP relay
func SendNotificationEmail(to, subject, body string) error {
	smtpHost := os.Getenv("SMTP_HOST")
	smtpUser := os.Getenv("SMTP_USER")
	smtpPass := os.Getenv("SMTP_PASS")
	smtpPort := 2525
	if portStr := os.Getenv("SMTP_PORT"); portStr != "" {
		fmt.Sscanf(portStr, "%d", &smtpPort)
	}

	m := gomail.NewMessage()
	m.SetHeader("From", smtpUser)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", body)

	d := gomail.NewDialer(smtpHost, smtpPort, smtpUser, smtpPass)
	return d.DialAndSend(m)
}

// SendFCMNotification sends a Firebase Cloud Messaging push to a consultant
func SendFCMNotification(fcmToken, title, message string, data map[string]string) error {
	if fcmToken == "" {
		return fmt.Errorf("consultant has no FCM token")
	}

	if config.FirebaseApp == nil {
		return fmt.Errorf("firebase app not initialized")
	}

	ctx := context.Background()
	client, err := config.FirebaseApp.Messaging(ctx)
	if err != nil {
		return fmt.Errorf("failed to initialize messaging client: %w", err)
	}

	if data == nil {
		data = map[string]string{}
	}
	data["timestamp"] = time.Now().Format(time.RFC3339)

	fcmMessage := &messaging.Message{
		Token: fcmToken,
		Notification: &messaging.Notification{
			Title: title,
			Body:  message,
		},
		Data: data,
		Android: &messaging.AndroidConfig{
			Priority: "high",
			Notification: &messaging.AndroidNotification{
				Sound:     "default",
				ChannelID: "hrm8_fcm_channel",
			},
		},
		APNS: &messaging.APNSConfig{
			Payload: &messaging.APNSPayload{
				Aps: &messaging.Aps{
					Alert: &messaging.ApsAlert{
						Title: title,
						Body:  message,
					},
					Sound:    "default",
					Category: "WITHDRAWAL_UPDATE",
				},
			},
		},
	}

	response, err := client.Send(ctx, fcmMessage)
	if err != nil {
		return fmt.Errorf("failed to send FCM notification: %w", err)
	}

	log.Printf("FCM notification sent: %s", response)
	return nil
}

// NotifyWithdrawalStateChange fans a withdrawal state change out to every
// notification channel: in-app record, email and push. Failures here are
// logged and swallowed; the ledger state already changed and must not be
// rolled back because a notification could not be delivered.
func NotifyWithdrawalStateChange(db *mongo.Database, consultant *models.Consultant, withdrawal *models.Withdrawal, title, message string) {
	if consultant == nil || withdrawal == nil {
		return
	}

	data := map[string]interface{}{
		"withdrawalId": withdrawal.ID.Hex(),
		"status":       string(withdrawal.Status),
		"amount":       withdrawal.Amount,
	}

	if err := SaveNotification(db, consultant.ID, title, message, "withdrawal_update", data); err != nil {
		log.Printf("Failed to save withdrawal notification: %v", err)
	}

	if consultant.Email != "" {
		if err := SendNotificationEmail(consultant.Email, title, message); err != nil {
			log.Printf("Failed to send withdrawal email to %s: %v", consultant.Email, err)
		}
	}

	if consultant.FCMToken != "" {
		pushData := map[string]string{
			"type":         "withdrawal_update",
			"withdrawalId": withdrawal.ID.Hex(),
			"status":       string(withdrawal.Status),
		}
		if err := SendFCMNotification(consultant.FCMToken, title, message, pushData); err != nil {
			log.Printf("Failed to send withdrawal push notification: %v", err)
		}
	}
}

// NotifyAdminOfWithdrawalRequest emails the configured admin address about
// a newly submitted withdrawal request
func NotifyAdminOfWithdrawalRequest(withdrawal *models.Withdrawal) {
	adminEmail := os.Getenv("ADMIN_EMAIL")
	if adminEmail == "" {
		return
	}

	subject := "New Commission Withdrawal Request"
	userNoteText := ""
	if withdrawal.UserNote != "" {
		userNoteText = fmt.Sprintf("\nUser Note: %s", withdrawal.UserNote)
	}

	body := fmt.Sprintf("A new commission withdrawal request has been submitted.\n\nConsultant ID: %s\nAmount: $%.2f\nRequested At: %s%s\n\nPlease review and approve or reject this request.",
		withdrawal.ConsultantID.Hex(),
		withdrawal.Amount,
		withdrawal.CreatedAt.Format("2006-01-02 15:04:05"),
		userNoteText)

	if err := SendNotificationEmail(adminEmail, subject, body); err != nil {
		log.Printf("Failed to send admin notification email for withdrawal request: %v", err)
	}
}
