package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"

	"github.com/panaderia-demo/storefront/backend/store"
	"golang.org/x/crypto/bcrypt"
)

// HealthMessage is the body of GET /api.
const HealthMessage = "Servidor funcionando con PostgreSQL"

const maxBodyBytes = 1 << 20

type UserStore interface {
	CreateUsuario(ctx context.Context, nombre, email, passwordHash, rol string) (store.Usuario, error)
	GetUsuarioByEmail(ctx context.Context, email string) (store.Usuario, error)
}

type SalesStore interface {
	CreateVenta(ctx context.Context, producto string, cantidad int, precioUnitario float64) (store.Venta, error)
	ResumenVentas(ctx context.Context) ([]store.ResumenVenta, error)
}

// Feed pushes new sales to the chart clients.
type Feed interface {
	Publish(canal string, v any) error
	ServeWS(w http.ResponseWriter, r *http.Request)
}

type API struct {
	users     UserStore
	sales     SalesStore
	feed      Feed
	jwtSecret string

	bcryptCost int
}

func NewAPI(cfg Config, users UserStore, sales SalesStore, feed Feed) *API {
	return &API{
		users:      users,
		sales:      sales,
		feed:       feed,
		jwtSecret:  cfg.JWTSecret,
		bcryptCost: bcrypt.DefaultCost,
	}
}

// Handler returns the routed API wrapped in CORS and request logging.
func (a *API) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, HealthMessage)
	})

	mux.HandleFunc("POST /api/usuarios", a.handleRegister)
	mux.HandleFunc("POST /api/login", a.handleLogin)

	mux.HandleFunc("POST /api/ventas", a.handleCreateVenta)
	mux.HandleFunc("GET /api/ventas/resumen", a.handleResumen)
	mux.HandleFunc("GET /api/ventas/ws", a.feed.ServeWS)

	return LoggingMiddleware(CORSMiddleware(mux))
}

type respuesta struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("api: encode response: %v", err)
	}
}

func writeFail(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, respuesta{Success: false, Message: message})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	return dec.Decode(dst)
}
