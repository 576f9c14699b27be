package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"

	"access-reconcile-service/internal/infrastructure/oauth"
	"access-reconcile-service/pkg/logger"

	"github.com/joho/godotenv"
)

// Prints a Google refresh token with read-only Sheets scope for
// GOOGLE_REFRESH_TOKEN.
func main() {
	godotenv.Load()

	clientID := os.Getenv("GOOGLE_CLIENT_ID")
	clientSecret := os.Getenv("GOOGLE_CLIENT_SECRET")
	if clientID == "" || clientSecret == "" {
		log.Fatal("GOOGLE_CLIENT_ID and GOOGLE_CLIENT_SECRET must be set")
	}

	googleOAuth := oauth.NewGoogleOAuth(clientID, clientSecret, "", logger.NewLogger()).
		WithRedirectURL("http://localhost:8090/oauth2callback")

	// Start an HTTP server to handle the OAuth callback
	http.HandleFunc("/oauth2callback", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("state") != oauth.AuthState {
			http.Error(w, "Invalid state parameter", http.StatusBadRequest)
			return
		}

		token, err := googleOAuth.ExchangeCode(context.Background(), r.URL.Query().Get("code"))
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}

		fmt.Printf("\nRefresh Token: %s\n\n", token.RefreshToken)

		fmt.Fprintf(w, "Authentication successful! You can close this window.")
		os.Exit(0)
	})

	fmt.Printf("Open this URL in your browser:\n%s\n", googleOAuth.GenerateAuthURL())

	log.Fatal(http.ListenAndServe(":8090", nil))
}
