package tests

import (
	"context"
	"testing"
	"time"

	"sazonpos/internal/clock"
	"sazonpos/internal/model"
	"sazonpos/internal/repository"
	"sazonpos/internal/service"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// ── Fake clock ────────────────────────────────────────────────────────────────

// fakeClock pins the business day for deterministic tests.
// Zone is fixed UTC-4 so local-day derivation is actually exercised.
type fakeClock struct {
	now time.Time
	loc *time.Location
}

func newFakeClock(local string) *fakeClock {
	loc := time.FixedZone("BOT", -4*3600)
	t, err := time.ParseInLocation(clock.TimestampFormat, local, loc)
	if err != nil {
		panic(err)
	}
	return &fakeClock{now: t.UTC(), loc: loc}
}

func (c *fakeClock) Now() time.Time                { return c.now }
func (c *fakeClock) Today() string                 { return c.FechaDe(c.now) }
func (c *fakeClock) FechaDe(t time.Time) string    { return t.In(c.loc).Format(clock.FechaFormat) }
func (c *fakeClock) Timestamp(t time.Time) string  { return t.In(c.loc).Format(clock.TimestampFormat) }
func (c *fakeClock) Location() *time.Location      { return c.loc }
func (c *fakeClock) Advance(d time.Duration)       { c.now = c.now.Add(d) }

var _ clock.Clock = (*fakeClock)(nil)

// ── Stubs ─────────────────────────────────────────────────────────────────────

// stubSesionRepo is an in-memory SesionTicketRepository for testing.
type stubSesionRepo struct {
	sesiones []*model.SesionTicket
	usuarios map[uuid.UUID]*model.Usuario
}

func newStubSesionRepo() *stubSesionRepo {
	return &stubSesionRepo{usuarios: make(map[uuid.UUID]*model.Usuario)}
}

func (r *stubSesionRepo) Create(_ context.Context, _ *gorm.DB, s *model.SesionTicket) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	r.sesiones = append(r.sesiones, s)
	return nil
}

func (r *stubSesionRepo) FindActiva(_ context.Context, _ *gorm.DB, usuarioID uuid.UUID, fecha string) (*model.SesionTicket, error) {
	for _, s := range r.sesiones {
		if s.UsuarioID == usuarioID && s.Fecha == fecha && s.Activa {
			return s, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *stubSesionRepo) MaxNumeroTicket(_ context.Context, _ *gorm.DB, usuarioID uuid.UUID, fecha string) (int, error) {
	max := 0
	for _, s := range r.sesiones {
		if s.UsuarioID == usuarioID && s.Fecha == fecha && s.UltimoNumeroTicket > max {
			max = s.UltimoNumeroTicket
		}
	}
	return max, nil
}

func (r *stubSesionRepo) IncrementarContador(_ context.Context, _ *gorm.DB, usuarioID uuid.UUID, fecha string, monto decimal.Decimal) (int64, error) {
	for _, s := range r.sesiones {
		if s.UsuarioID == usuarioID && s.Fecha == fecha && s.Activa {
			s.UltimoNumeroTicket++
			s.TotalVentas++
			s.TotalMonto = s.TotalMonto.Add(monto)
			return 1, nil
		}
	}
	return 0, nil
}

func (r *stubSesionRepo) CerrarActiva(_ context.Context, usuarioID uuid.UUID, fecha string, endedAt time.Time) (int64, error) {
	var n int64
	for _, s := range r.sesiones {
		if s.UsuarioID == usuarioID && s.Fecha == fecha && s.Activa {
			s.Activa = false
			e := endedAt
			s.EndedAt = &e
			n++
		}
	}
	return n, nil
}

func (r *stubSesionRepo) CerrarAnteriores(_ context.Context, fecha string, endedAt time.Time) (int64, error) {
	var n int64
	for _, s := range r.sesiones {
		if s.Fecha < fecha && s.Activa {
			s.Activa = false
			e := endedAt
			s.EndedAt = &e
			n++
		}
	}
	return n, nil
}

func (r *stubSesionRepo) ListByFecha(_ context.Context, fecha string) ([]model.SesionTicket, error) {
	var out []model.SesionTicket
	for _, s := range r.sesiones {
		if s.Fecha == fecha {
			copia := *s
			copia.Usuario = r.usuarios[s.UsuarioID]
			out = append(out, copia)
		}
	}
	return out, nil
}

func (r *stubSesionRepo) ListByUsuarioFecha(_ context.Context, usuarioID uuid.UUID, fecha string) ([]model.SesionTicket, error) {
	var out []model.SesionTicket
	for _, s := range r.sesiones {
		if s.UsuarioID == usuarioID && s.Fecha == fecha {
			out = append(out, *s)
		}
	}
	return out, nil
}

func (r *stubSesionRepo) DB() *gorm.DB { return nil }

var _ repository.SesionTicketRepository = (*stubSesionRepo)(nil)

// ── Tests ─────────────────────────────────────────────────────────────────────

func TestObtenerOCrearSesion_Nueva(t *testing.T) {
	clk := newFakeClock("2026-03-15 10:00:00")
	repo := newStubSesionRepo()
	svc := service.NewSesionTicketService(repo, clk)
	usuario := uuid.New()

	ses, err := svc.ObtenerOCrearSesion(context.Background(), nil, usuario, clk.Today())
	require.NoError(t, err)
	assert.True(t, ses.Activa)
	assert.Equal(t, 0, ses.UltimoNumeroTicket)
	assert.Equal(t, "2026-03-15", ses.Fecha)

	// A second call returns the same session, not a new one
	otra, err := svc.ObtenerOCrearSesion(context.Background(), nil, usuario, clk.Today())
	require.NoError(t, err)
	assert.Equal(t, ses.ID, otra.ID)
	assert.Len(t, repo.sesiones, 1)
}

func TestNumeracion_Monotonica(t *testing.T) {
	clk := newFakeClock("2026-03-15 10:00:00")
	repo := newStubSesionRepo()
	svc := service.NewSesionTicketService(repo, clk)
	usuario := uuid.New()
	fecha := clk.Today()

	for esperado := 1; esperado <= 5; esperado++ {
		prox, err := svc.ProximoNumeroTicket(context.Background(), nil, usuario, fecha)
		require.NoError(t, err)
		assert.Equal(t, esperado, prox)

		n, err := svc.IncrementarContador(context.Background(), nil, usuario, fecha, decimal.NewFromInt(10))
		require.NoError(t, err)
		assert.Equal(t, esperado, n)
	}
}

func TestReanudacion_TrasCierre(t *testing.T) {
	clk := newFakeClock("2026-03-15 10:00:00")
	repo := newStubSesionRepo()
	svc := service.NewSesionTicketService(repo, clk)
	usuario := uuid.New()
	fecha := clk.Today()

	// Issue 5 tickets, then close the session (shift handoff)
	for i := 0; i < 5; i++ {
		_, err := svc.ProximoNumeroTicket(context.Background(), nil, usuario, fecha)
		require.NoError(t, err)
		_, err = svc.IncrementarContador(context.Background(), nil, usuario, fecha, decimal.NewFromInt(10))
		require.NoError(t, err)
	}
	require.NoError(t, svc.CerrarSesionUsuario(context.Background(), usuario, fecha))

	// The cashier returns: a fresh session resumes from 5, next ticket is 6
	prox, err := svc.ProximoNumeroTicket(context.Background(), nil, usuario, fecha)
	require.NoError(t, err)
	assert.Equal(t, 6, prox)

	// Two rows exist now — the closed one is preserved as audit
	assert.Len(t, repo.sesiones, 2)
	assert.False(t, repo.sesiones[0].Activa)
	assert.True(t, repo.sesiones[1].Activa)
	assert.Equal(t, 5, repo.sesiones[1].UltimoNumeroTicket)
}

func TestIncrementarContador_SinSesionActiva(t *testing.T) {
	clk := newFakeClock("2026-03-15 10:00:00")
	repo := newStubSesionRepo()
	svc := service.NewSesionTicketService(repo, clk)

	_, err := svc.IncrementarContador(context.Background(), nil, uuid.New(), clk.Today(), decimal.NewFromInt(10))
	assert.ErrorIs(t, err, service.ErrSinSesionActiva)
}

func TestCerrarSesion_Idempotente(t *testing.T) {
	clk := newFakeClock("2026-03-15 10:00:00")
	repo := newStubSesionRepo()
	svc := service.NewSesionTicketService(repo, clk)
	usuario := uuid.New()
	fecha := clk.Today()

	_, err := svc.ObtenerOCrearSesion(context.Background(), nil, usuario, fecha)
	require.NoError(t, err)

	require.NoError(t, svc.CerrarSesionUsuario(context.Background(), usuario, fecha))
	// Closing again with nothing active is still a success
	require.NoError(t, svc.CerrarSesionUsuario(context.Background(), usuario, fecha))
	// Closing for a user with no sessions at all is also fine
	require.NoError(t, svc.CerrarSesionUsuario(context.Background(), uuid.New(), fecha))
}

func TestIniciarNuevoDia_CierraSoloAnteriores(t *testing.T) {
	clk := newFakeClock("2026-03-16 08:00:00")
	repo := newStubSesionRepo()
	svc := service.NewSesionTicketService(repo, clk)
	usuarioA, usuarioB := uuid.New(), uuid.New()

	// Stale sessions from two prior days plus one for today
	_, err := svc.ObtenerOCrearSesion(context.Background(), nil, usuarioA, "2026-03-14")
	require.NoError(t, err)
	_, err = svc.ObtenerOCrearSesion(context.Background(), nil, usuarioB, "2026-03-15")
	require.NoError(t, err)
	hoy, err := svc.ObtenerOCrearSesion(context.Background(), nil, usuarioA, "2026-03-16")
	require.NoError(t, err)

	cerradas, err := svc.IniciarNuevoDia(context.Background(), clk.Today())
	require.NoError(t, err)
	assert.Equal(t, int64(2), cerradas)
	assert.True(t, hoy.Activa, "today's session must stay open")

	// A second rollover finds nothing to close
	cerradas, err = svc.IniciarNuevoDia(context.Background(), clk.Today())
	require.NoError(t, err)
	assert.Equal(t, int64(0), cerradas)
}

func TestNumeracion_AisladaPorDia(t *testing.T) {
	clk := newFakeClock("2026-03-15 23:50:00")
	repo := newStubSesionRepo()
	svc := service.NewSesionTicketService(repo, clk)
	usuario := uuid.New()

	// Three tickets late on day one
	for i := 0; i < 3; i++ {
		_, err := svc.ProximoNumeroTicket(context.Background(), nil, usuario, clk.Today())
		require.NoError(t, err)
		_, err = svc.IncrementarContador(context.Background(), nil, usuario, clk.Today(), decimal.NewFromInt(10))
		require.NoError(t, err)
	}

	// Midnight passes
	clk.Advance(20 * time.Minute)
	_, err := svc.IniciarNuevoDia(context.Background(), clk.Today())
	require.NoError(t, err)

	// The new day starts over at 1
	prox, err := svc.ProximoNumeroTicket(context.Background(), nil, usuario, clk.Today())
	require.NoError(t, err)
	assert.Equal(t, 1, prox)
}

func TestEstadisticasUsuario_SumaSesionesDelDia(t *testing.T) {
	clk := newFakeClock("2026-03-15 10:00:00")
	repo := newStubSesionRepo()
	svc := service.NewSesionTicketService(repo, clk)
	usuario := uuid.New()
	fecha := clk.Today()

	// Two tickets, close, one more in a second session
	for i := 0; i < 2; i++ {
		_, err := svc.ProximoNumeroTicket(context.Background(), nil, usuario, fecha)
		require.NoError(t, err)
		_, err = svc.IncrementarContador(context.Background(), nil, usuario, fecha, decimal.NewFromInt(25))
		require.NoError(t, err)
	}
	require.NoError(t, svc.CerrarSesionUsuario(context.Background(), usuario, fecha))
	_, err := svc.ProximoNumeroTicket(context.Background(), nil, usuario, fecha)
	require.NoError(t, err)
	_, err = svc.IncrementarContador(context.Background(), nil, usuario, fecha, decimal.NewFromInt(50))
	require.NoError(t, err)

	stats, err := svc.EstadisticasUsuario(context.Background(), usuario, fecha)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Sesiones)
	assert.Equal(t, 3, stats.TotalVentas)
	assert.Equal(t, 3, stats.UltimoNumeroTicket)
	assert.Equal(t, "100", stats.TotalMonto.String())
	assert.True(t, stats.SesionActiva)
}

func TestResumenDiario_AgrupaPorUsuario(t *testing.T) {
	clk := newFakeClock("2026-03-15 10:00:00")
	repo := newStubSesionRepo()
	svc := service.NewSesionTicketService(repo, clk)
	fecha := clk.Today()

	usuarioA, usuarioB := uuid.New(), uuid.New()
	repo.usuarios[usuarioA] = &model.Usuario{ID: usuarioA, Nombre: "Ana"}
	repo.usuarios[usuarioB] = &model.Usuario{ID: usuarioB, Nombre: "Bruno"}

	for i := 0; i < 2; i++ {
		_, err := svc.ProximoNumeroTicket(context.Background(), nil, usuarioA, fecha)
		require.NoError(t, err)
		_, err = svc.IncrementarContador(context.Background(), nil, usuarioA, fecha, decimal.NewFromInt(30))
		require.NoError(t, err)
	}
	_, err := svc.ProximoNumeroTicket(context.Background(), nil, usuarioB, fecha)
	require.NoError(t, err)
	_, err = svc.IncrementarContador(context.Background(), nil, usuarioB, fecha, decimal.NewFromInt(45))
	require.NoError(t, err)

	resumen, err := svc.ResumenDiario(context.Background(), fecha)
	require.NoError(t, err)
	assert.Equal(t, fecha, resumen.Fecha)
	assert.Equal(t, 2, resumen.Sesiones)
	assert.Equal(t, 2, resumen.SesionesActivas)
	assert.Equal(t, 3, resumen.TotalVentas)
	assert.Equal(t, "105", resumen.TotalMonto.String())
	require.Len(t, resumen.PorUsuario, 2)
	assert.Equal(t, "Ana", resumen.PorUsuario[0].Nombre)
	assert.Equal(t, 2, resumen.PorUsuario[0].TotalVentas)
}
