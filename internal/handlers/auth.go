package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/stanstork/taller-api/internal/authz"
	"github.com/stanstork/taller-api/internal/models"
	"github.com/stanstork/taller-api/internal/repository"
)

const tokenTTL = 12 * time.Hour

type AuthHandler struct {
	usuarios  repository.UsuarioRepository
	jwtSecret string
	logger    zerolog.Logger
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type createUsuarioRequest struct {
	Email    string     `json:"email"`
	Password string     `json:"password"`
	Nombre   string     `json:"nombre"`
	Rol      models.Rol `json:"rol"`
}

func NewAuthHandler(usuarios repository.UsuarioRepository, jwtSecret string, logger zerolog.Logger) *AuthHandler {
	return &AuthHandler{
		usuarios:  usuarios,
		jwtSecret: jwtSecret,
		logger:    logger.With().Str("handler", "auth").Logger(),
	}
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.logger, err, "invalid login request")
		return
	}

	usuario, err := h.usuarios.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, repository.ErrInvalidCredentials) {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid credentials"})
			return
		}
		writeError(w, h.logger, err, "authentication failed")
		return
	}

	token, err := h.IssueToken(usuario, time.Now())
	if err != nil {
		writeError(w, h.logger, err, "failed to generate token")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"token":   token,
		"usuario": usuario,
	})
}

// CreateUsuario registers a staff account. Mounted behind RequireRole(ADMIN).
func (h *AuthHandler) CreateUsuario(w http.ResponseWriter, r *http.Request) {
	var req createUsuarioRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.logger, err, "invalid usuario request")
		return
	}
	usuario, err := h.usuarios.CreateUsuario(r.Context(), req.Email, req.Password, req.Nombre, req.Rol)
	if err != nil {
		writeError(w, h.logger, err, "failed to create usuario")
		return
	}
	writeJSON(w, http.StatusCreated, usuario)
}

// IssueToken signs an HS256 token carrying the user id and role.
func (h *AuthHandler) IssueToken(u models.Usuario, now time.Time) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": u.ID,
		"rol": string(u.Rol),
		"iat": now.Unix(),
		"exp": now.Add(tokenTTL).Unix(),
	})
	signed, err := token.SignedString([]byte(h.jwtSecret))
	if err != nil {
		return "", errors.Wrap(err, "sign token")
	}
	return signed, nil
}

func (h *AuthHandler) JWTMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth := r.Header.Get("Authorization")
		if auth == "" {
			http.Error(w, "Authorization header required", http.StatusUnauthorized)
			return
		}
		parts := strings.SplitN(auth, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			http.Error(w, "Invalid authorization format", http.StatusUnauthorized)
			return
		}

		token, err := jwt.Parse(parts[1], func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrSignatureInvalid
			}
			return []byte(h.jwtSecret), nil
		})
		if err != nil || !token.Valid {
			http.Error(w, "Invalid token", http.StatusUnauthorized)
			return
		}
		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok || !claims.VerifyExpiresAt(time.Now().Unix(), true) {
			http.Error(w, "Token expired", http.StatusUnauthorized)
			return
		}

		userID, _ := claims["sub"].(string)
		rolClaim, _ := claims["rol"].(string)
		rol := models.Rol(rolClaim)
		if userID == "" || !models.IsValidRol(rol) {
			http.Error(w, "Missing token claim", http.StatusUnauthorized)
			return
		}

		ctx := authz.WithIdentity(r.Context(), userID, rol)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
