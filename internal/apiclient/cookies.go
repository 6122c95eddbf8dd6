package apiclient

import (
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Nombres de las cookies que emite el servidor de autenticación.
const (
	AccessTokenCookie  = "smush-access-token"
	RefreshTokenCookie = "smush-refresh-token"
)

// Cookie es la forma persistible de una cookie del jar.
type Cookie struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// resettableJar permite vaciar el jar sin tocar el http.Client en uso.
type resettableJar struct {
	mu    sync.RWMutex
	inner *cookiejar.Jar
}

func newResettableJar() (*resettableJar, error) {
	inner, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("create cookie jar: %w", err)
	}
	return &resettableJar{inner: inner}, nil
}

func (j *resettableJar) SetCookies(u *url.URL, cookies []*http.Cookie) {
	j.mu.RLock()
	defer j.mu.RUnlock()
	j.inner.SetCookies(u, cookies)
}

func (j *resettableJar) Cookies(u *url.URL) []*http.Cookie {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.inner.Cookies(u)
}

func (j *resettableJar) reset() {
	inner, _ := cookiejar.New(nil)
	j.mu.Lock()
	j.inner = inner
	j.mu.Unlock()
}

// ExportCookies devuelve las cookies que se enviarían a la API.
func (c *Client) ExportCookies() []Cookie {
	jarCookies := c.jar.Cookies(c.cookieURL)
	out := make([]Cookie, 0, len(jarCookies))
	for _, ck := range jarCookies {
		out = append(out, Cookie{Name: ck.Name, Value: ck.Value})
	}
	return out
}

// ImportCookies restaura cookies previamente exportadas.
func (c *Client) ImportCookies(cookies []Cookie) {
	if len(cookies) == 0 {
		return
	}
	hc := make([]*http.Cookie, 0, len(cookies))
	for _, ck := range cookies {
		hc = append(hc, &http.Cookie{Name: ck.Name, Value: ck.Value, Path: c.cookieURL.Path})
	}
	c.jar.SetCookies(c.cookieURL, hc)
}

// ClearCookies vacía el jar.
func (c *Client) ClearCookies() {
	c.jar.reset()
}

// AccessTokenExpiry lee el exp del access token guardado en el jar.
func (c *Client) AccessTokenExpiry() (time.Time, error) {
	for _, ck := range c.jar.Cookies(c.cookieURL) {
		if ck.Name == AccessTokenCookie {
			return TokenExpiry(ck.Value)
		}
	}
	return time.Time{}, fmt.Errorf("%s: %w", AccessTokenCookie, http.ErrNoCookie)
}

// TokenExpiry extrae el claim exp de un JWT sin verificar la firma. El
// cliente no tiene la clave; sólo lo usa para programar el refresh.
func TokenExpiry(token string) (time.Time, error) {
	var claims jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return time.Time{}, fmt.Errorf("parse token: %w", err)
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, ErrNoExpiry
	}
	return claims.ExpiresAt.Time, nil
}
