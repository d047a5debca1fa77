package services

import (
	"crypto/rsa"
	"errors"
	"slices"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"annotate/internal/models"
)

// ClerkClaims are the claims of a Clerk session token.
type ClerkClaims struct {
	AuthorizedParty string `json:"azp,omitempty"`
	SessionID       string `json:"sid,omitempty"`
	jwt.RegisteredClaims
}

type Authentication struct {
	key     *rsa.PublicKey
	parties []string
}

// NewAuthentication takes the PEM encoded instance key; literal "\n" sequences are accepted
// so the key can live on one env line.
func NewAuthentication(pemKey string, authorizedParties []string) (*Authentication, error) {
	pemKey = strings.ReplaceAll(strings.TrimSpace(pemKey), `\n`, "\n")
	key, err := jwt.ParseRSAPublicKeyFromPEM([]byte(pemKey))
	if err != nil {
		return nil, err
	}

	parties := []string{}
	for _, p := range authorizedParties {
		if p = strings.TrimSpace(p); p != "" {
			parties = append(parties, p)
		}
	}
	return &Authentication{key, parties}, nil
}

func (authentication *Authentication) Validate(token string) (*models.Identity, error) {
	keyFunc := func(token *jwt.Token) (interface{}, error) {
		return authentication.key, nil
	}

	claims := &ClerkClaims{}
	_, err := jwt.ParseWithClaims(token, claims, keyFunc,
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(5*time.Second),
	)
	if err != nil {
		return nil, err
	}

	if claims.Subject == "" {
		return nil, errors.New("token has no subject")
	}

	if len(authentication.parties) > 0 && claims.AuthorizedParty != "" && !slices.Contains(authentication.parties, claims.AuthorizedParty) {
		return nil, errors.New("invalid authorized party")
	}

	return &models.Identity{ExternalID: claims.Subject, SessionID: claims.SessionID}, nil
}
