package backend

import (
	"errors"
	"log"
	"net/http"
	"net/mail"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/panaderia-demo/storefront/backend/store"
	"golang.org/x/crypto/bcrypt"
)

const tokenTTL = 24 * time.Hour

const minPasswordLen = 6

const (
	RolCliente = "cliente"
	RolAdmin   = "admin"
)

var errJWTNotConfigured = errors.New("JWT secret not configured")

type registroRequest struct {
	Nombre   string `json:"nombre"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Rol      string `json:"rol"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type usuarioRespuesta struct {
	Success bool           `json:"success"`
	Message string         `json:"message"`
	Usuario *store.Usuario `json:"usuario,omitempty"`
	Token   string         `json:"token,omitempty"`
}

// GenerateJWT signs an HS256 token for u, valid for ttl.
func GenerateJWT(secret string, u store.Usuario, ttl time.Duration) (string, error) {
	if secret == "" {
		return "", errJWTNotConfigured
	}
	now := time.Now().UTC()
	claims := jwt.MapClaims{
		"sub":    u.ID.String(),
		"email":  u.Email,
		"nombre": u.Nombre,
		"rol":    u.Rol,
		"iat":    now.Unix(),
		"exp":    now.Add(ttl).Unix(),
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString([]byte(secret))
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// validateRegistro checks the same rules the browser form enforces and
// fills in the default role.
func validateRegistro(req *registroRequest) error {
	req.Nombre = strings.TrimSpace(req.Nombre)
	req.Email = normalizeEmail(req.Email)
	req.Rol = strings.ToLower(strings.TrimSpace(req.Rol))

	if req.Nombre == "" {
		return errors.New("El nombre es obligatorio")
	}
	addr, err := mail.ParseAddress(req.Email)
	if err != nil || addr.Address != req.Email {
		return errors.New("El email no es válido")
	}
	if len(req.Password) < minPasswordLen {
		return errors.New("La contraseña debe tener al menos 6 caracteres")
	}
	switch req.Rol {
	case "":
		req.Rol = RolCliente
	case RolCliente, RolAdmin:
	default:
		return errors.New("El rol no es válido")
	}
	return nil
}

func (a *API) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registroRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeFail(w, http.StatusBadRequest, "Solicitud inválida")
		return
	}
	if err := validateRegistro(&req); err != nil {
		writeFail(w, http.StatusBadRequest, err.Error())
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), a.bcryptCost)
	if err != nil {
		log.Printf("api: hash password: %v", err)
		writeFail(w, http.StatusInternalServerError, "Error del servidor")
		return
	}

	u, err := a.users.CreateUsuario(r.Context(), req.Nombre, req.Email, string(hash), req.Rol)
	if errors.Is(err, store.ErrEmailTaken) {
		writeFail(w, http.StatusConflict, "El email ya está registrado")
		return
	}
	if err != nil {
		log.Printf("api: register %s: %v", req.Email, err)
		writeFail(w, http.StatusInternalServerError, "Error del servidor")
		return
	}

	writeJSON(w, http.StatusCreated, usuarioRespuesta{
		Success: true,
		Message: "Usuario registrado correctamente",
		Usuario: &u,
	})
}

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeFail(w, http.StatusBadRequest, "Solicitud inválida")
		return
	}
	req.Email = normalizeEmail(req.Email)
	if req.Email == "" || req.Password == "" {
		writeFail(w, http.StatusBadRequest, "Email y contraseña son obligatorios")
		return
	}

	u, err := a.users.GetUsuarioByEmail(r.Context(), req.Email)
	if errors.Is(err, store.ErrNotFound) {
		writeFail(w, http.StatusUnauthorized, "Credenciales inválidas")
		return
	}
	if err != nil {
		log.Printf("api: login %s: %v", req.Email, err)
		writeFail(w, http.StatusInternalServerError, "Error del servidor")
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(req.Password)); err != nil {
		writeFail(w, http.StatusUnauthorized, "Credenciales inválidas")
		return
	}

	resp := usuarioRespuesta{
		Success: true,
		Message: "Inicio de sesión exitoso",
		Usuario: &u,
	}
	if a.jwtSecret != "" {
		token, err := GenerateJWT(a.jwtSecret, u, tokenTTL)
		if err != nil {
			log.Printf("api: sign token for %s: %v", u.ID, err)
			writeFail(w, http.StatusInternalServerError, "Error del servidor")
			return
		}
		resp.Token = token
	}
	writeJSON(w, http.StatusOK, resp)
}
