package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/bobarin/podforge/internal/retry"
)

// ---------------------------------------------------------------------------
// Firebase Identity Client
// The synthesis backend authenticates end users through Firebase's identity
// toolkit. Signing in with an account's email/password yields an ID token
// accepted as a bearer token by the dialogue endpoint.
// ---------------------------------------------------------------------------

const firebaseSignInURL = "https://identitytoolkit.googleapis.com/v1/accounts:signInWithPassword"

// FirebaseClient exchanges credentials for ID tokens with bounded retry
// (3 attempts, fixed 3s delay).
type FirebaseClient struct {
	apiKey  string
	baseURL string
	client  *http.Client
	policy  retry.Policy
}

// Ensure FirebaseClient implements TokenSource at compile time.
var _ TokenSource = (*FirebaseClient)(nil)

func NewFirebaseClient(apiKey string) *FirebaseClient {
	return &FirebaseClient{
		apiKey:  apiKey,
		baseURL: firebaseSignInURL,
		client:  &http.Client{Timeout: 30 * time.Second},
		policy:  retry.Fixed(3, 3*time.Second),
	}
}

type firebaseSignInRequest struct {
	Email             string `json:"email"`
	Password          string `json:"password"`
	ReturnSecureToken bool   `json:"returnSecureToken"`
}

type firebaseSignInResponse struct {
	IDToken string `json:"idToken"`
}

// SignIn performs the password sign-in exchange and returns the ID token.
// Implements the TokenSource interface.
func (c *FirebaseClient) SignIn(ctx context.Context, identity Identity) (string, error) {
	reqBody := firebaseSignInRequest{
		Email:             identity.Email,
		Password:          identity.Password,
		ReturnSecureToken: true,
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal sign-in request: %w", err)
	}

	url := fmt.Sprintf("%s?key=%s", c.baseURL, c.apiKey)

	var token string
	err = c.policy.Do(ctx, "firebase sign-in", func() error {
		req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(jsonData))
		if err != nil {
			return retry.Permanent(fmt.Errorf("failed to create sign-in request: %w", err))
		}

		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Origin", "https://elevenlabs.io")
		req.Header.Set("Referer", "https://elevenlabs.io")

		resp, err := c.client.Do(req)
		if err != nil {
			return fmt.Errorf("sign-in request failed: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			body, _ := io.ReadAll(resp.Body)
			return fmt.Errorf("firebase returned status %d: %s", resp.StatusCode, string(body))
		}

		var signIn firebaseSignInResponse
		if err := json.NewDecoder(resp.Body).Decode(&signIn); err != nil {
			return fmt.Errorf("failed to decode sign-in response: %w", err)
		}
		if signIn.IDToken == "" {
			return fmt.Errorf("sign-in response carried no idToken")
		}

		token = signIn.IDToken
		return nil
	})
	if err != nil {
		return "", err
	}

	return token, nil
}
