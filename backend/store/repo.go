package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrNotFound   = errors.New("not found")
	ErrEmailTaken = errors.New("email already registered")
)

const uniqueViolation = "23505"

type Usuario struct {
	ID           uuid.UUID `json:"id"`
	Nombre       string    `json:"nombre"`
	Email        string    `json:"email"`
	Rol          string    `json:"rol"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

type Venta struct {
	ID             uuid.UUID `json:"id"`
	Producto       string    `json:"producto"`
	Cantidad       int       `json:"cantidad"`
	PrecioUnitario float64   `json:"precio_unitario"`
	Total          float64   `json:"total"`
	CreatedAt      time.Time `json:"created_at"`
}

// ResumenVenta aggregates sales of one product for the charts.
type ResumenVenta struct {
	Producto string  `json:"producto"`
	Cantidad int     `json:"cantidad"`
	Total    float64 `json:"total"`
}

// Repo runs the API queries against PostgreSQL.
type Repo struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

// CreateUsuario inserts a user and returns the saved row. A duplicate email
// yields ErrEmailTaken.
func (r *Repo) CreateUsuario(ctx context.Context, nombre, email, passwordHash, rol string) (Usuario, error) {
	var u Usuario
	err := r.pool.QueryRow(ctx, `
	INSERT INTO usuarios (id, nombre, email, password_hash, rol, created_at)
	VALUES (gen_random_uuid(), $1, $2, $3, $4, now())
	RETURNING id, nombre, email, password_hash, rol, created_at
	`, nombre, email, passwordHash, rol).Scan(&u.ID, &u.Nombre, &u.Email, &u.PasswordHash, &u.Rol, &u.CreatedAt)
	if err != nil {
		return Usuario{}, insertUsuarioError(err)
	}
	return u, nil
}

func insertUsuarioError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return ErrEmailTaken
	}
	return fmt.Errorf("insert usuario: %w", err)
}

// GetUsuarioByEmail returns ErrNotFound when no user has that email.
func (r *Repo) GetUsuarioByEmail(ctx context.Context, email string) (Usuario, error) {
	var u Usuario
	err := r.pool.QueryRow(ctx, `
	SELECT id, nombre, email, password_hash, rol, created_at
	FROM usuarios
	WHERE email = $1`, email).Scan(&u.ID, &u.Nombre, &u.Email, &u.PasswordHash, &u.Rol, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Usuario{}, ErrNotFound
	}
	if err != nil {
		return Usuario{}, fmt.Errorf("select usuario: %w", err)
	}
	return u, nil
}

// CreateVenta stores a sale; the total is computed by the database.
func (r *Repo) CreateVenta(ctx context.Context, producto string, cantidad int, precioUnitario float64) (Venta, error) {
	var v Venta
	err := r.pool.QueryRow(ctx, `
	INSERT INTO ventas (id, producto, cantidad, precio_unitario, total, created_at)
	VALUES (gen_random_uuid(), $1, $2, $3, $2 * $3, now())
	RETURNING id, producto, cantidad, precio_unitario::float8, total::float8, created_at
	`, producto, cantidad, precioUnitario).Scan(&v.ID, &v.Producto, &v.Cantidad, &v.PrecioUnitario, &v.Total, &v.CreatedAt)
	if err != nil {
		return Venta{}, fmt.Errorf("insert venta: %w", err)
	}
	return v, nil
}

// ResumenVentas returns per-product totals ordered by product name.
func (r *Repo) ResumenVentas(ctx context.Context) ([]ResumenVenta, error) {
	rows, err := r.pool.Query(ctx, `
	SELECT producto, SUM(cantidad)::int, SUM(total)::float8
	FROM ventas
	GROUP BY producto
	ORDER BY producto ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []ResumenVenta{}
	for rows.Next() {
		var rv ResumenVenta
		if err := rows.Scan(&rv.Producto, &rv.Cantidad, &rv.Total); err != nil {
			return nil, err
		}
		out = append(out, rv)
	}
	return out, rows.Err()
}
