package tests

import (
	"context"
	"testing"

	"sazonpos/internal/config"
	"sazonpos/internal/dto"
	"sazonpos/internal/model"
	"sazonpos/internal/repository"
	"sazonpos/internal/service"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// ── Stub ──────────────────────────────────────────────────────────────────────

type stubUsuarioRepo struct {
	usuarios map[uuid.UUID]*model.Usuario
}

func newStubUsuarioRepo() *stubUsuarioRepo {
	return &stubUsuarioRepo{usuarios: make(map[uuid.UUID]*model.Usuario)}
}

func (r *stubUsuarioRepo) seed(username, password, rol string) *model.Usuario {
	hash, _ := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	u := &model.Usuario{
		ID:           uuid.New(),
		Username:     username,
		Nombre:       username,
		PasswordHash: string(hash),
		Rol:          rol,
		Activo:       true,
	}
	r.usuarios[u.ID] = u
	return u
}

func (r *stubUsuarioRepo) Create(_ context.Context, u *model.Usuario) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	r.usuarios[u.ID] = u
	return nil
}

func (r *stubUsuarioRepo) FindByUsername(_ context.Context, username string) (*model.Usuario, error) {
	for _, u := range r.usuarios {
		if u.Username == username && u.Activo {
			return u, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *stubUsuarioRepo) FindByID(_ context.Context, id uuid.UUID) (*model.Usuario, error) {
	u, ok := r.usuarios[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return u, nil
}

func (r *stubUsuarioRepo) List(_ context.Context) ([]model.Usuario, error) {
	var out []model.Usuario
	for _, u := range r.usuarios {
		if u.Activo {
			out = append(out, *u)
		}
	}
	return out, nil
}

func (r *stubUsuarioRepo) ListAll(_ context.Context) ([]model.Usuario, error) {
	var out []model.Usuario
	for _, u := range r.usuarios {
		out = append(out, *u)
	}
	return out, nil
}

func (r *stubUsuarioRepo) Update(_ context.Context, u *model.Usuario) error {
	r.usuarios[u.ID] = u
	return nil
}

func (r *stubUsuarioRepo) SoftDelete(_ context.Context, id uuid.UUID) error {
	if u, ok := r.usuarios[id]; ok {
		u.Activo = false
	}
	return nil
}

func (r *stubUsuarioRepo) Reactivar(_ context.Context, id uuid.UUID) error {
	if u, ok := r.usuarios[id]; ok {
		u.Activo = true
	}
	return nil
}

var _ repository.UsuarioRepository = (*stubUsuarioRepo)(nil)

func buildAuthSvc() (service.AuthService, *stubUsuarioRepo) {
	repo := newStubUsuarioRepo()
	cfg := &config.Config{
		JWTSecret:          "secreto-de-prueba",
		JWTExpirationHours: 8,
		JWTRefreshHours:    24,
	}
	return service.NewAuthService(repo, cfg), repo
}

// ── Tests ─────────────────────────────────────────────────────────────────────

func TestLogin_Exitoso(t *testing.T) {
	svc, repo := buildAuthSvc()
	repo.seed("maria", "cocina123", "cajero")

	resp, err := svc.Login(context.Background(), dto.LoginRequest{Username: "maria", Password: "cocina123"})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.AccessToken)
	assert.NotEmpty(t, resp.RefreshToken)
	assert.Equal(t, "bearer", resp.TokenType)
	assert.Equal(t, 8*3600, resp.ExpiresIn)
	assert.Equal(t, "maria", resp.User.Username)
	assert.Equal(t, "cajero", resp.User.Rol)
}

func TestLogin_PasswordIncorrecto(t *testing.T) {
	svc, repo := buildAuthSvc()
	repo.seed("maria", "cocina123", "cajero")

	_, err := svc.Login(context.Background(), dto.LoginRequest{Username: "maria", Password: "otra"})
	require.Error(t, err)
	assert.Equal(t, "credenciales invalidas", err.Error())
}

func TestLogin_UsuarioInactivo(t *testing.T) {
	svc, repo := buildAuthSvc()
	u := repo.seed("maria", "cocina123", "cajero")
	u.Activo = false

	_, err := svc.Login(context.Background(), dto.LoginRequest{Username: "maria", Password: "cocina123"})
	require.Error(t, err)
	assert.Equal(t, "credenciales invalidas", err.Error())
}

func TestRefresh_EmiteNuevosTokens(t *testing.T) {
	svc, repo := buildAuthSvc()
	repo.seed("maria", "cocina123", "cajero")

	login, err := svc.Login(context.Background(), dto.LoginRequest{Username: "maria", Password: "cocina123"})
	require.NoError(t, err)

	resp, err := svc.Refresh(context.Background(), login.RefreshToken)
	require.NoError(t, err)
	assert.NotEmpty(t, resp.AccessToken)
	assert.Equal(t, "maria", resp.User.Username)
}

func TestRefresh_TokenInvalido(t *testing.T) {
	svc, _ := buildAuthSvc()

	_, err := svc.Refresh(context.Background(), "no-es-un-jwt")
	require.Error(t, err)
	assert.Equal(t, "refresh token invalido o expirado", err.Error())
}

func TestRefresh_UsuarioDesactivado(t *testing.T) {
	svc, repo := buildAuthSvc()
	u := repo.seed("maria", "cocina123", "cajero")

	login, err := svc.Login(context.Background(), dto.LoginRequest{Username: "maria", Password: "cocina123"})
	require.NoError(t, err)

	u.Activo = false
	_, err = svc.Refresh(context.Background(), login.RefreshToken)
	require.Error(t, err)
	assert.Equal(t, "usuario no encontrado o inactivo", err.Error())
}

func TestCrearUsuario_HasheaPassword(t *testing.T) {
	svc, repo := buildAuthSvc()

	resp, err := svc.CrearUsuario(context.Background(), dto.CrearUsuarioRequest{
		Username: "jose",
		Nombre:   "José Mamani",
		Password: "segura456",
		Rol:      "supervisor",
	})
	require.NoError(t, err)
	assert.Equal(t, "supervisor", resp.Rol)
	assert.True(t, resp.Activo)

	guardado, err := repo.FindByUsername(context.Background(), "jose")
	require.NoError(t, err)
	assert.NotEqual(t, "segura456", guardado.PasswordHash)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(guardado.PasswordHash), []byte("segura456")))
}

func TestListarUsuarios_FiltraInactivos(t *testing.T) {
	svc, repo := buildAuthSvc()
	repo.seed("activa", "x", "cajero")
	baja := repo.seed("baja", "x", "cajero")
	baja.Activo = false

	activos, err := svc.ListarUsuarios(context.Background(), false)
	require.NoError(t, err)
	assert.Len(t, activos, 1)

	todos, err := svc.ListarUsuarios(context.Background(), true)
	require.NoError(t, err)
	assert.Len(t, todos, 2)
}

func TestDesactivarYReactivarUsuario(t *testing.T) {
	svc, repo := buildAuthSvc()
	u := repo.seed("maria", "cocina123", "cajero")

	require.NoError(t, svc.DesactivarUsuario(context.Background(), u.ID))
	assert.False(t, u.Activo)

	require.NoError(t, svc.ReactivarUsuario(context.Background(), u.ID))
	assert.True(t, u.Activo)
}
