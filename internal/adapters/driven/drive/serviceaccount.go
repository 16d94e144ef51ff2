package drive

import (
	"context"
	"crypto/rsa"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/MediaChallengeInitiative/love-facts-stickers-sub000/internal/core/domain"
)

// Verify interface compliance
var _ TokenSource = (*ServiceAccountTokenSource)(nil)

const (
	// ScopeDriveReadOnly grants read access to Drive content.
	ScopeDriveReadOnly = "https://www.googleapis.com/auth/drive.readonly"

	defaultTokenURI = "https://oauth2.googleapis.com/token"
	jwtBearerGrant  = "urn:ietf:params:oauth:grant-type:jwt-bearer"
	assertionTTL    = time.Hour
	refreshSkew     = time.Minute
)

// ServiceAccountKey is the subset of a service-account JSON key file in use.
type ServiceAccountKey struct {
	ClientEmail  string `json:"client_email"`
	PrivateKey   string `json:"private_key"`
	PrivateKeyID string `json:"private_key_id"`
	TokenURI     string `json:"token_uri"`
}

// assertionClaims are the claims of the signed JWT assertion.
type assertionClaims struct {
	Scope string `json:"scope"`
	jwt.RegisteredClaims
}

// ServiceAccountTokenSource exchanges RS256-signed assertions for bearer
// tokens and caches each token until shortly before it expires.
type ServiceAccountTokenSource struct {
	email      string
	keyID      string
	key        *rsa.PrivateKey
	tokenURI   string
	scope      string
	httpClient *http.Client
	now        func() time.Time

	mu      sync.Mutex
	token   string
	expires time.Time
}

// LoadServiceAccountKey reads and parses a JSON key file.
func LoadServiceAccountKey(path string) (*ServiceAccountKey, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read service account key: %w", err)
	}
	var key ServiceAccountKey
	if err := json.Unmarshal(data, &key); err != nil {
		return nil, fmt.Errorf("parse service account key: %w", err)
	}
	return &key, nil
}

// NewServiceAccountTokenSource builds a token source for key. An empty scope
// defaults to read-only Drive access.
func NewServiceAccountTokenSource(key *ServiceAccountKey, scope string, httpClient *http.Client) (*ServiceAccountTokenSource, error) {
	if key == nil || key.ClientEmail == "" || key.PrivateKey == "" {
		return nil, fmt.Errorf("service account key incomplete: %w", domain.ErrNotConfigured)
	}

	privateKey, err := jwt.ParseRSAPrivateKeyFromPEM([]byte(key.PrivateKey))
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}

	tokenURI := key.TokenURI
	if tokenURI == "" {
		tokenURI = defaultTokenURI
	}
	if scope == "" {
		scope = ScopeDriveReadOnly
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 20 * time.Second}
	}

	return &ServiceAccountTokenSource{
		email:      key.ClientEmail,
		keyID:      key.PrivateKeyID,
		key:        privateKey,
		tokenURI:   tokenURI,
		scope:      scope,
		httpClient: httpClient,
		now:        time.Now,
	}, nil
}

// Token returns a cached bearer token or fetches a fresh one.
func (s *ServiceAccountTokenSource) Token(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.token != "" && s.now().Before(s.expires.Add(-refreshSkew)) {
		return s.token, nil
	}

	assertion, err := s.signAssertion()
	if err != nil {
		return "", err
	}

	token, expiresIn, err := s.exchange(ctx, assertion)
	if err != nil {
		return "", err
	}

	s.token = token
	s.expires = s.now().Add(expiresIn)
	return token, nil
}

// signAssertion creates the RS256 JWT presented to the token endpoint.
func (s *ServiceAccountTokenSource) signAssertion() (string, error) {
	now := s.now()
	claims := assertionClaims{
		Scope: s.scope,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.email,
			Audience:  jwt.ClaimStrings{s.tokenURI},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(assertionTTL)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	if s.keyID != "" {
		token.Header["kid"] = s.keyID
	}
	signed, err := token.SignedString(s.key)
	if err != nil {
		return "", fmt.Errorf("sign assertion: %w", err)
	}
	return signed, nil
}

func (s *ServiceAccountTokenSource) exchange(ctx context.Context, assertion string) (string, time.Duration, error) {
	form := url.Values{}
	form.Set("grant_type", jwtBearerGrant)
	form.Set("assertion", assertion)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.tokenURI, strings.NewReader(form.Encode()))
	if err != nil {
		return "", 0, fmt.Errorf("create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", 0, fmt.Errorf("token request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", 0, fmt.Errorf("token endpoint error %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var out struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
		TokenType   string `json:"token_type"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", 0, fmt.Errorf("decode token response: %w", err)
	}
	if out.AccessToken == "" {
		return "", 0, fmt.Errorf("token endpoint returned no access token")
	}
	if out.ExpiresIn <= 0 {
		out.ExpiresIn = int(assertionTTL / time.Second)
	}
	return out.AccessToken, time.Duration(out.ExpiresIn) * time.Second, nil
}
