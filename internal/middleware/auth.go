// Package middleware содержит HTTP middleware сервиса смартпарк.
package middleware

import (
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"net/http"
	"strings"
	"time"
)

type contextKey string

const (
	userLoginKey contextKey = "userLogin"
	userRoleKey  contextKey = "userRole"
)

const (
	authCookieName = "auth_token"
	authCookieTTL  = 365 * 24 * time.Hour
)

// AuthMiddleware выполняет проверку аутентификации пользователя по подписанному
// cookie. В отличие от числовых идентификаторов, пользователи смартпарка
// различаются логином: именно логином помечаются вызовы резервирования и
// освобождения зон.
type AuthMiddleware struct {
	secretKey []byte
}

// NewAuthMiddleware создаёт новый экземпляр AuthMiddleware с указанным секретным ключом.
func NewAuthMiddleware(secret string) *AuthMiddleware {
	key := []byte(secret)
	if len(key) == 0 {
		randomKey := make([]byte, 32)
		if _, err := rand.Read(randomKey); err == nil {
			key = randomKey
		} else {
			key = []byte("default-secret-key")
		}
	}

	return &AuthMiddleware{
		secretKey: key,
	}
}

// Middleware требует валидный cookie авторизации и добавляет логин и роль
// пользователя в контекст запроса.
func (a *AuthMiddleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		login, role, ok := a.userFromRequest(r)
		if !ok {
			http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
			return
		}

		next.ServeHTTP(w, r.WithContext(withUser(r.Context(), login, role)))
	})
}

// Optional добавляет пользователя в контекст, если cookie валиден, и пропускает
// запрос дальше в любом случае. Используется на маршрутах сценария, где
// аутентификация нужна не для всех действий.
func (a *AuthMiddleware) Optional(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if login, role, ok := a.userFromRequest(r); ok {
			r = r.WithContext(withUser(r.Context(), login, role))
		}
		next.ServeHTTP(w, r)
	})
}

func (a *AuthMiddleware) userFromRequest(r *http.Request) (string, string, bool) {
	cookie, err := r.Cookie(authCookieName)
	if err != nil {
		return "", "", false
	}
	return a.parseCookie(cookie.Value)
}

func withUser(ctx context.Context, login, role string) context.Context {
	ctx = context.WithValue(ctx, userLoginKey, login)
	return context.WithValue(ctx, userRoleKey, role)
}

// SetAuthCookie устанавливает cookie авторизации для указанного пользователя.
func (a *AuthMiddleware) SetAuthCookie(w http.ResponseWriter, login, role string) {
	value := a.sign(login, role)

	cookie := &http.Cookie{
		Name:     authCookieName,
		Value:    value,
		Path:     "/",
		Expires:  time.Now().Add(authCookieTTL),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}

	http.SetCookie(w, cookie)
}

func (a *AuthMiddleware) sign(login, role string) string {
	payload := login + "|" + role
	encoded := base64.RawURLEncoding.EncodeToString([]byte(payload))

	mac := hmac.New(sha256.New, a.secretKey)
	mac.Write([]byte(payload))
	signature := mac.Sum(nil)

	return encoded + "." + hex.EncodeToString(signature)
}

func (a *AuthMiddleware) parseCookie(cookieValue string) (string, string, bool) {
	parts := strings.Split(cookieValue, ".")
	if len(parts) != 2 {
		return "", "", false
	}

	payload, err := base64.RawURLEncoding.DecodeString(parts[0])
	if err != nil {
		return "", "", false
	}

	mac := hmac.New(sha256.New, a.secretKey)
	mac.Write(payload)
	expected := hex.EncodeToString(mac.Sum(nil))

	if !hmac.Equal([]byte(parts[1]), []byte(expected)) {
		return "", "", false
	}

	fields := strings.SplitN(string(payload), "|", 2)
	if len(fields) != 2 || fields[0] == "" {
		return "", "", false
	}

	return fields[0], fields[1], true
}

// GetUserFromContext извлекает логин и роль пользователя из контекста запроса.
func GetUserFromContext(ctx context.Context) (string, string, bool) {
	login, ok := ctx.Value(userLoginKey).(string)
	if !ok {
		return "", "", false
	}
	role, _ := ctx.Value(userRoleKey).(string)
	return login, role, true
}
