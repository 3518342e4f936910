package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/pkg/errors"
	"github.com/stanstork/taller-api/internal/apperr"
	"github.com/stanstork/taller-api/internal/models"
	"golang.org/x/crypto/bcrypt"
)

type UsuarioRepository interface {
	CreateUsuario(ctx context.Context, email, password, nombre string, rol models.Rol) (models.Usuario, error)
	Authenticate(ctx context.Context, email, password string) (models.Usuario, error)
	GetByID(ctx context.Context, id string) (models.Usuario, error)
	ListByRol(ctx context.Context, rol models.Rol) ([]models.Usuario, error)
}

type usuarioRepository struct {
	db *sql.DB
}

func NewUsuarioRepository(db *sql.DB) UsuarioRepository {
	return &usuarioRepository{db: db}
}

var ErrInvalidCredentials = errors.New("invalid credentials")

func (u *usuarioRepository) CreateUsuario(ctx context.Context, email, password, nombre string, rol models.Rol) (models.Usuario, error) {
	if !models.IsValidRol(rol) {
		return models.Usuario{}, apperr.Invalid("invalid rol %q", rol)
	}
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return models.Usuario{}, apperr.Invalid("email and password are required")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return models.Usuario{}, errors.Wrap(err, "hash password")
	}

	user := models.Usuario{
		Email:        email,
		Nombre:       strings.TrimSpace(nombre),
		Rol:          rol,
		PasswordHash: string(hash),
		Activo:       true,
	}

	query := `
		INSERT INTO taller.usuarios (email, nombre, rol, password_hash, activo)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, creado_en`
	err = u.db.QueryRowContext(ctx, query, user.Email, user.Nombre, user.Rol, user.PasswordHash, user.Activo).
		Scan(&user.ID, &user.CreadoEn)
	if err != nil {
		return models.Usuario{}, translateWrite(err, "create usuario")
	}
	return user, nil
}

func (u *usuarioRepository) Authenticate(ctx context.Context, email, password string) (models.Usuario, error) {
	query := `
		SELECT id, email, nombre, rol, password_hash, activo, creado_en
		FROM taller.usuarios
		WHERE email = $1`
	user, err := scanUsuario(u.db.QueryRowContext(ctx, query, strings.ToLower(strings.TrimSpace(email))))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Usuario{}, ErrInvalidCredentials
		}
		return models.Usuario{}, apperr.Unavailable(err, "authenticate")
	}
	if !user.Activo {
		return models.Usuario{}, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return models.Usuario{}, ErrInvalidCredentials
	}
	return user, nil
}

func (u *usuarioRepository) GetByID(ctx context.Context, id string) (models.Usuario, error) {
	query := `
		SELECT id, email, nombre, rol, password_hash, activo, creado_en
		FROM taller.usuarios
		WHERE id = $1`
	user, err := scanUsuario(u.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return models.Usuario{}, translate(err, "usuario "+id)
	}
	return user, nil
}

func (u *usuarioRepository) ListByRol(ctx context.Context, rol models.Rol) ([]models.Usuario, error) {
	rows, err := u.db.QueryContext(ctx, `
		SELECT id, email, nombre, rol, password_hash, activo, creado_en
		FROM taller.usuarios
		WHERE rol = $1 AND activo
		ORDER BY nombre ASC`, rol)
	if err != nil {
		return nil, apperr.Unavailable(err, "list usuarios")
	}
	defer rows.Close()

	var users []models.Usuario
	for rows.Next() {
		user, err := scanUsuario(rows)
		if err != nil {
			return nil, apperr.Unavailable(err, "scan usuario")
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Unavailable(err, "list usuarios")
	}
	return users, nil
}

func scanUsuario(scanner rowScanner) (models.Usuario, error) {
	var user models.Usuario
	err := scanner.Scan(&user.ID, &user.Email, &user.Nombre, &user.Rol, &user.PasswordHash, &user.Activo, &user.CreadoEn)
	return user, err
}
