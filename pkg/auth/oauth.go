package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"
)

// DefaultRedirectPort is the local port receiving the authorization code
const DefaultRedirectPort = 8080

// authorizationTimeout bounds how long the browser consent may take
const authorizationTimeout = 5 * time.Minute

// ReaderScopes are the scopes needed to read threads and remove the UNREAD label
func ReaderScopes() []string {
	return []string{gmail.GmailModifyScope}
}

// OAuth2Config holds OAuth2 configuration
type OAuth2Config struct {
	CredentialsPath string
	TokenPath       string
	Scopes          []string
	// RedirectPort is the localhost port used during the consent flow
	RedirectPort int
	// Out receives the consent instructions; os.Stdout when nil
	Out io.Writer
}

// NewOAuth2Config creates a new OAuth2 configuration
func NewOAuth2Config(credentialsPath string, tokenPath string, scopes ...string) *OAuth2Config {
	return &OAuth2Config{
		CredentialsPath: credentialsPath,
		TokenPath:       tokenPath,
		Scopes:          scopes,
		RedirectPort:    DefaultRedirectPort,
	}
}

func (c *OAuth2Config) out() io.Writer {
	if c.Out == nil {
		return os.Stdout
	}
	return c.Out
}

// LoadCredentials loads the OAuth2 client credentials
func (c *OAuth2Config) LoadCredentials() (*oauth2.Config, error) {
	if c.CredentialsPath == "" {
		return nil, errors.New("credentials path is empty")
	}
	data, err := os.ReadFile(c.CredentialsPath)
	if err != nil {
		return nil, fmt.Errorf("could not read credentials file: %w", err)
	}

	config, err := google.ConfigFromJSON(data, c.Scopes...)
	if err != nil {
		return nil, fmt.Errorf("could not parse credentials file: %w", err)
	}
	return config, nil
}

// LoadToken loads the cached token
func (c *OAuth2Config) LoadToken() (*oauth2.Token, error) {
	if c.TokenPath == "" {
		return nil, errors.New("token path is empty")
	}
	f, err := os.Open(c.TokenPath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	token := &oauth2.Token{}
	if err := json.NewDecoder(f).Decode(token); err != nil {
		return nil, fmt.Errorf("could not decode token file: %w", err)
	}
	return token, nil
}

// SaveToken writes the token with owner-only permissions
func (c *OAuth2Config) SaveToken(token *oauth2.Token) error {
	if token == nil {
		return errors.New("token is nil")
	}
	if c.TokenPath == "" {
		return errors.New("token path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(c.TokenPath), 0o700); err != nil {
		return fmt.Errorf("could not create token directory: %w", err)
	}

	f, err := os.OpenFile(c.TokenPath, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("could not save OAuth token: %w", err)
	}
	defer f.Close()

	return json.NewEncoder(f).Encode(token)
}

// GetToken returns a valid token, refreshing it or running the consent flow as needed
func (c *OAuth2Config) GetToken(ctx context.Context) (*oauth2.Token, error) {
	config, err := c.LoadCredentials()
	if err != nil {
		return nil, err
	}

	token, err := c.LoadToken()
	if err != nil {
		token, err = c.authenticate(ctx, config)
		if err != nil {
			return nil, err
		}
	}

	if !token.Valid() {
		token, err = c.refreshToken(ctx, config, token)
		if err != nil {
			if !isRevoked(err) {
				return nil, fmt.Errorf("token refresh failed: %w", err)
			}
			fmt.Fprintln(c.out(), "\nL'accès Gmail a expiré ou a été révoqué. Nouvelle autorisation nécessaire.")
			token, err = c.authenticate(ctx, config)
			if err != nil {
				return nil, fmt.Errorf("re-authentication failed: %w", err)
			}
		}
	}

	if err := c.SaveToken(token); err != nil {
		return nil, err
	}
	return token, nil
}

func isRevoked(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "invalid_grant") || strings.Contains(msg, "Token has been expired or revoked")
}

// authenticate runs the installed-app flow with a localhost redirect
func (c *OAuth2Config) authenticate(ctx context.Context, config *oauth2.Config) (*oauth2.Token, error) {
	port := c.RedirectPort
	if port <= 0 {
		port = DefaultRedirectPort
	}
	addr := net.JoinHostPort("localhost", strconv.Itoa(port))

	codeChan := make(chan string, 1)
	errorChan := make(chan error, 1)

	server := &http.Server{
		Addr:              addr,
		ReadHeaderTimeout: 10 * time.Second,
		Handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			code := r.URL.Query().Get("code")
			if code == "" {
				w.WriteHeader(http.StatusBadRequest)
				_, _ = w.Write([]byte(`<html><body><h2>Erreur d'autorisation</h2><p>Code absent.</p></body></html>`))
				select {
				case errorChan <- errors.New("authorization code not received"):
				default:
				}
				return
			}
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(`<html><body><h2>Autorisation réussie</h2><p>Vous pouvez fermer cette fenêtre.</p></body></html>`))
			select {
			case codeChan <- code:
			default:
			}
		}),
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errorChan <- err
		}
	}()

	localConfig := *config
	localConfig.RedirectURL = "http://" + addr

	out := c.out()
	fmt.Fprintln(out, "\nAutorisation Gmail requise")
	fmt.Fprintf(out, "1. Ouvrez ce lien : %s\n", localConfig.AuthCodeURL("state-token", oauth2.AccessTypeOffline))
	fmt.Fprintln(out, "2. Accordez l'accès à l'application")
	fmt.Fprintln(out, "3. Vous serez redirigé automatiquement")

	var authCode string
	select {
	case authCode = <-codeChan:
	case err := <-errorChan:
		_ = server.Shutdown(context.Background())
		return nil, fmt.Errorf("local server error: %w", err)
	case <-ctx.Done():
		_ = server.Shutdown(context.Background())
		return nil, ctx.Err()
	case <-time.After(authorizationTimeout):
		_ = server.Shutdown(context.Background())
		return nil, errors.New("authorization timeout exceeded")
	}
	_ = server.Shutdown(context.Background())

	token, err := localConfig.Exchange(ctx, authCode)
	if err != nil {
		return nil, fmt.Errorf("could not exchange authorization code for token: %w", err)
	}
	fmt.Fprintln(out, "Autorisation réussie.")
	return token, nil
}

func (c *OAuth2Config) refreshToken(ctx context.Context, config *oauth2.Config, token *oauth2.Token) (*oauth2.Token, error) {
	newToken, err := config.TokenSource(ctx, token).Token()
	if err != nil {
		return nil, fmt.Errorf("could not refresh token: %w", err)
	}
	return newToken, nil
}

// NewGmailService creates an authorized Gmail service. Scopes default to ReaderScopes.
func NewGmailService(ctx context.Context, credentialsPath, tokenPath string, scopes ...string) (*gmail.Service, error) {
	if len(scopes) == 0 {
		scopes = ReaderScopes()
	}
	oauthConfig := NewOAuth2Config(credentialsPath, tokenPath, scopes...)

	token, err := oauthConfig.GetToken(ctx)
	if err != nil {
		return nil, err
	}

	config, err := oauthConfig.LoadCredentials()
	if err != nil {
		return nil, err
	}

	service, err := gmail.NewService(ctx, option.WithHTTPClient(config.Client(ctx, token)))
	if err != nil {
		return nil, fmt.Errorf("could not create Gmail service: %w", err)
	}
	return service, nil
}
