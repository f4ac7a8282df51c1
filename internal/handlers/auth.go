package handlers

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"

	"crosspoll/internal/middleware"
	"crosspoll/internal/models"
	"crosspoll/internal/store"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

type AuthHandler struct {
	store *store.Store
	oauth *oauth2.Config
}

func NewAuthHandler(st *store.Store) *AuthHandler {
	siteURL := os.Getenv("SITE_URL")
	if siteURL == "" {
		siteURL = "http://localhost:8080"
	}

	return &AuthHandler{
		store: st,
		oauth: &oauth2.Config{
			ClientID:     os.Getenv("GOOGLE_CLIENT_ID"),
			ClientSecret: os.Getenv("GOOGLE_CLIENT_SECRET"),
			RedirectURL:  siteURL + "/auth/google/callback",
			Scopes: []string{
				"https://www.googleapis.com/auth/userinfo.email",
				"https://www.googleapis.com/auth/userinfo.profile",
			},
			Endpoint: google.Endpoint,
		},
	}
}

// GoogleUserInfo is the profile returned by the Google userinfo endpoint.
type GoogleUserInfo struct {
	ID            string `json:"id"`
	Email         string `json:"email"`
	VerifiedEmail bool   `json:"verified_email"`
	Name          string `json:"name"`
	GivenName     string `json:"given_name"`
}

func generateStateToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(b), nil
}

// GoogleLogin starts the Google OAuth flow.
func (h *AuthHandler) GoogleLogin(c *gin.Context) {
	state, err := generateStateToken()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"kind": "internal_error", "error": "failed to generate state token"})
		return
	}

	// State is checked on callback to tie the flow to this session.
	session := sessions.Default(c)
	session.Set("oauth_state", state)
	session.Save()

	url := h.oauth.AuthCodeURL(state, oauth2.AccessTypeOffline)
	c.Redirect(http.StatusTemporaryRedirect, url)
}

// GoogleCallback finishes the OAuth flow and syncs the profile. Email is the
// stable join key: an existing user's name refreshes on every login, and a
// first login upgrades the session's anonymous identity in place.
func (h *AuthHandler) GoogleCallback(c *gin.Context) {
	session := sessions.Default(c)
	savedState := session.Get("oauth_state")

	if savedState == nil || c.Query("state") != savedState.(string) {
		c.JSON(http.StatusBadRequest, gin.H{"kind": "validation_error", "error": "invalid oauth state"})
		return
	}
	session.Delete("oauth_state")
	session.Save()

	code := c.Query("code")
	if code == "" {
		c.JSON(http.StatusBadRequest, gin.H{"kind": "validation_error", "error": "missing authorization code"})
		return
	}

	token, err := h.oauth.Exchange(context.Background(), code)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"kind": "internal_error", "error": "token exchange failed"})
		return
	}

	info, err := h.getGoogleUserInfo(token.AccessToken)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"kind": "internal_error", "error": "failed to fetch user info"})
		return
	}
	if !info.VerifiedEmail {
		c.JSON(http.StatusBadRequest, gin.H{"kind": "validation_error", "error": "email not verified"})
		return
	}

	name := info.Name
	if name == "" {
		name = info.GivenName
	}

	user, err := h.syncProfile(c, info.Email, name)
	if err != nil {
		JSONError(c, err)
		return
	}

	session.Set("user_id", user.ID)
	session.Save()

	c.Redirect(http.StatusFound, "/")
}

// syncProfile applies the external profile to the user table: match by
// email, else upgrade the current anonymous identity, else create.
func (h *AuthHandler) syncProfile(c *gin.Context, email, name string) (*models.User, error) {
	existing, err := h.store.GetUserByEmail(email)
	if err == nil {
		if name != "" && (existing.Name == nil || *existing.Name != name) {
			existing.Name = &name
			if err := h.store.UpdateUser(existing); err != nil {
				return nil, err
			}
		}
		return existing, nil
	}

	if current := middleware.CurrentUser(c); current != nil && !current.IsAuthenticated() {
		current.Email = &email
		current.Name = &name
		if err := h.store.UpdateUser(current); err != nil {
			return nil, err
		}
		return current, nil
	}

	return h.store.CreateUser(&email, &name)
}

func (h *AuthHandler) getGoogleUserInfo(accessToken string) (*GoogleUserInfo, error) {
	resp, err := http.Get("https://www.googleapis.com/oauth2/v2/userinfo?access_token=" + accessToken)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("userinfo request failed: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	var info GoogleUserInfo
	if err := json.Unmarshal(body, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// Logout clears the session; the next request mints a fresh anonymous
// identity.
func (h *AuthHandler) Logout(c *gin.Context) {
	session := sessions.Default(c)
	session.Clear()
	session.Save()
	c.Redirect(http.StatusFound, "/")
}

// Me handles GET /api/me.
func (h *AuthHandler) Me(c *gin.Context) {
	user := middleware.CurrentUser(c)
	if user == nil {
		c.JSON(http.StatusOK, gin.H{"is_authenticated": false})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"user_id":          user.ID,
		"is_authenticated": user.IsAuthenticated(),
		"name":             user.Name,
	})
}
