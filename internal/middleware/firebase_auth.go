package middleware

import (
	"context"
	"fmt"

	"firebase.google.com/go/v4/auth"
	"github.com/anonto42/studyhub/backend/internal/models"
)

// IDTokenVerifier verifies Firebase ID tokens. *auth.Client satisfies it.
type IDTokenVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (*auth.Token, error)
}

// UserByFirebaseUID looks up the local account linked to a Firebase UID.
type UserByFirebaseUID interface {
	GetUserByFirebaseUID(ctx context.Context, firebaseUID string) (*models.User, error)
}

// FirebaseResolver maps a Firebase ID token onto a local user.
type FirebaseResolver struct {
	verifier IDTokenVerifier
	users    UserByFirebaseUID
}

func NewFirebaseResolver(verifier IDTokenVerifier, users UserByFirebaseUID) *FirebaseResolver {
	return &FirebaseResolver{verifier: verifier, users: users}
}

// Resolve verifies idToken and returns the linked user. Accounts that never
// went through firebase-login are unknown.
func (r *FirebaseResolver) Resolve(ctx context.Context, idToken string) (*models.User, error) {
	token, err := r.verifier.VerifyIDToken(ctx, idToken)
	if err != nil {
		return nil, fmt.Errorf("invalid or expired ID token: %w", err)
	}
	user, err := r.users.GetUserByFirebaseUID(ctx, token.UID)
	if err != nil {
		return nil, fmt.Errorf("no account for firebase uid %s: %w", token.UID, err)
	}
	return user, nil
}
