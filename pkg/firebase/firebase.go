package firebase

import (
	"context"
	"fmt"
	"os"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/auth"
	"firebase.google.com/go/v4/messaging"
	"google.golang.org/api/option"
)

// App holds the initialized Firebase app with its auth and messaging clients.
type App struct {
	FirebaseApp     *firebase.App
	AuthClient      *auth.Client
	MessagingClient *messaging.Client
}

// InitFirebase initializes the Firebase application, the ID token verifier
// and the FCM client from a service account file.
func InitFirebase(ctx context.Context, credentialsPath string) (*App, error) {
	if credentialsPath == "" {
		return nil, fmt.Errorf("firebase credentials path not provided")
	}

	if _, err := os.Stat(credentialsPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("firebase credentials file not found at %s", credentialsPath)
	}

	opt := option.WithCredentialsFile(credentialsPath)

	firebaseApp, err := firebase.NewApp(ctx, nil, opt)
	if err != nil {
		return nil, fmt.Errorf("error initializing firebase app: %w", err)
	}

	authClient, err := firebaseApp.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("error getting firebase auth client: %w", err)
	}

	messagingClient, err := firebaseApp.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("error getting firebase messaging client: %w", err)
	}

	return &App{
		FirebaseApp:     firebaseApp,
		AuthClient:      authClient,
		MessagingClient: messagingClient,
	}, nil
}
