package tests

import (
	"context"
	"path/filepath"
	"sort"
	"sync"
	"testing"

	"sazonpos/internal/dto"
	"sazonpos/internal/infra"
	"sazonpos/internal/model"
	"sazonpos/internal/repository"
	"sazonpos/internal/service"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Fixture over a real SQLite file: transactional guarantees (rollback, unique
// indexes) can't be exercised through the in-memory stubs.
type ventaDBFixture struct {
	svc       service.VentaService
	sesiones  service.SesionTicketService
	ventaRepo repository.VentaRepository
	clk       *fakeClock
	cajero    uuid.UUID
	producto  *model.Producto
}

func buildVentaDBFixture(t *testing.T) *ventaDBFixture {
	t.Helper()
	db, err := infra.NewDatabase(filepath.Join(t.TempDir(), "ventas_test.db"))
	require.NoError(t, err)
	require.NoError(t, infra.RunMigrations(db))

	clk := newFakeClock("2026-03-15 12:30:00")

	cajero := &model.Usuario{
		Username:     "caja1",
		Nombre:       "Caja Uno",
		PasswordHash: "x",
		Rol:          "cajero",
		Activo:       true,
	}
	require.NoError(t, db.Create(cajero).Error)

	producto := &model.Producto{
		Nombre:    "Pique Macho",
		Categoria: "platos",
		Precio:    decimal.RequireFromString("10.00"),
		Activo:    true,
	}
	require.NoError(t, db.Create(producto).Error)

	ventaRepo := repository.NewVentaRepository(db)
	sesionRepo := repository.NewSesionTicketRepository(db)
	productoRepo := repository.NewProductoRepository(db)
	sesiones := service.NewSesionTicketService(sesionRepo, clk)
	svc := service.NewVentaService(ventaRepo, sesiones, productoRepo, nil, clk)

	return &ventaDBFixture{
		svc:       svc,
		sesiones:  sesiones,
		ventaRepo: ventaRepo,
		clk:       clk,
		cajero:    cajero.ID,
		producto:  producto,
	}
}

func (f *ventaDBFixture) request() dto.RegistrarVentaRequest {
	return dto.RegistrarVentaRequest{
		TipoOrden:   "llevar",
		MetodoPago:  "efectivo",
		Items:       []dto.ItemVentaRequest{{ProductoID: f.producto.ID.String(), Cantidad: 1}},
		MontoPagado: decimal.RequireFromString("10.00"),
	}
}

func (f *ventaDBFixture) contarVentas(t *testing.T) int64 {
	t.Helper()
	_, total, err := f.ventaRepo.List(context.Background(), dto.VentaFilter{
		Fecha: f.clk.Today(), Page: 1, Limit: 50,
	})
	require.NoError(t, err)
	return total
}

func TestRegistrarVenta_RollbackAnteTicketDuplicado(t *testing.T) {
	f := buildVentaDBFixture(t)

	// Seed a conflicting row: ticket 1 for this cashier and day already exists,
	// so the insert inside the next sale's transaction hits the unique index.
	ocupado := &model.Venta{
		TipoOrden:    "llevar",
		MetodoPago:   "efectivo",
		Subtotal:     decimal.RequireFromString("10.00"),
		Total:        decimal.RequireFromString("10.00"),
		MontoPagado:  decimal.RequireFromString("10.00"),
		Vuelto:       decimal.Zero,
		UsuarioID:    f.cajero,
		NumeroTicket: 1,
		Fecha:        f.clk.Today(),
		CreatedAt:    f.clk.Now(),
	}
	require.NoError(t, f.ventaRepo.Create(context.Background(), nil, ocupado))

	_, err := f.svc.RegistrarVenta(context.Background(), f.cajero, f.request())
	require.Error(t, err)

	// The whole transaction rolled back: no second venta row, and the session
	// opened inside the transaction is gone with it — counters untouched.
	assert.Equal(t, int64(1), f.contarVentas(t))
	stats, err := f.sesiones.EstadisticasUsuario(context.Background(), f.cajero, f.clk.Today())
	require.NoError(t, err)
	assert.Equal(t, 0, stats.Sesiones)
	assert.Equal(t, 0, stats.UltimoNumeroTicket)
	assert.Equal(t, 0, stats.TotalVentas)
}

func TestRegistrarVenta_ConcurrenciaMismoCajero(t *testing.T) {
	f := buildVentaDBFixture(t)
	const n = 8

	numeros := make(chan int, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			resp, err := f.svc.RegistrarVenta(context.Background(), f.cajero, f.request())
			if assert.NoError(t, err) {
				numeros <- resp.NumeroTicket
			}
		}()
	}
	wg.Wait()
	close(numeros)

	// Two concurrent sales must never see the same next number: the assigned
	// tickets are exactly 1..n, no gap, no repeat.
	var asignados []int
	for num := range numeros {
		asignados = append(asignados, num)
	}
	sort.Ints(asignados)
	require.Len(t, asignados, n)
	for i, num := range asignados {
		assert.Equal(t, i+1, num)
	}
	assert.Equal(t, int64(n), f.contarVentas(t))

	stats, err := f.sesiones.EstadisticasUsuario(context.Background(), f.cajero, f.clk.Today())
	require.NoError(t, err)
	assert.Equal(t, n, stats.UltimoNumeroTicket)
	assert.Equal(t, n, stats.TotalVentas)
}
