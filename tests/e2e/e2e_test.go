//go:build integration

package e2e

// End-to-end integration tests for SazónPOS using the embedded SQLite store
// plus a real Redis via testcontainers.
// Run with: go test -tags integration ./tests/e2e/... -v
//
// Covered flows:
//   - Full sale cycle: login → create producto → venta → list → session stats
//   - Shift handoff: close session, numbering resumes on the next sale
//   - Insufficient payment is rejected without moving the counter
//   - New-day rollover endpoint

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"sazonpos/internal/clock"
	"sazonpos/internal/config"
	"sazonpos/internal/infra"
	"sazonpos/internal/model"
	"sazonpos/internal/router"
	"sazonpos/internal/worker"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcRedis "github.com/testcontainers/testcontainers-go/modules/redis"
	"golang.org/x/crypto/bcrypt"
)

// ── Helpers ──────────────────────────────────────────────────────────────────

func jsonBody(t *testing.T, v any) *bytes.Buffer {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return bytes.NewBuffer(b)
}

func do(t *testing.T, srv *httptest.Server, method, path string, body *bytes.Buffer, token string) *http.Response {
	t.Helper()
	var req *http.Request
	var err error
	if body != nil {
		req, err = http.NewRequest(method, srv.URL+path, body)
	} else {
		req, err = http.NewRequest(method, srv.URL+path, nil)
	}
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	return resp
}

func decodeJSON(t *testing.T, resp *http.Response, dest any) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(dest))
}

// ── Test Suite Setup ─────────────────────────────────────────────────────────

type testEnv struct {
	server *httptest.Server
	token  string // admin JWT
}

func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()
	ctx := context.Background()

	// Real Redis for the job queue
	rdC, err := tcRedis.RunContainer(ctx,
		testcontainers.WithImage("redis:7-alpine"),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = rdC.Terminate(ctx) })

	rdURL, err := rdC.ConnectionString(ctx)
	require.NoError(t, err)

	cfg := &config.Config{
		Port:               8000,
		Env:                "test",
		JWTSecret:          "test-secret-key",
		JWTExpirationHours: 8,
		JWTRefreshHours:    24,
		DatabasePath:       filepath.Join(t.TempDir(), "sazonpos_test.db"),
		RedisURL:           rdURL,
		PrinterBridgeURL:   "http://localhost:9999", // unused: no worker pool started
		Timezone:           "America/La_Paz",
		WorkerPoolSize:     1,
		PDFStoragePath:     t.TempDir(),
	}

	clk, err := clock.NewSystemClock(cfg.Timezone)
	require.NoError(t, err)

	db, err := infra.NewDatabase(cfg.DatabasePath)
	require.NoError(t, err)
	require.NoError(t, infra.RunMigrations(db))

	rdb, err := infra.NewRedis(cfg.RedisURL)
	require.NoError(t, err)

	// Seed admin user
	hash, err := bcrypt.GenerateFromPassword([]byte("sazonpos2026"), bcrypt.MinCost)
	require.NoError(t, err)
	admin := &model.Usuario{
		Username:     "admin",
		Nombre:       "Admin E2E",
		PasswordHash: string(hash),
		Rol:          "administrador",
		Activo:       true,
	}
	require.NoError(t, db.Create(admin).Error)

	printerCB := infra.NewCircuitBreaker(infra.DefaultCBConfig())
	dispatcher := worker.NewDispatcher(rdb)

	r := router.New(cfg, db, rdb, printerCB, clk, dispatcher)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	loginResp := do(t, srv, "POST", "/v1/auth/login",
		jsonBody(t, map[string]string{"username": "admin", "password": "sazonpos2026"}),
		"",
	)
	require.Equal(t, http.StatusOK, loginResp.StatusCode)
	var loginBody struct {
		AccessToken string `json:"access_token"`
	}
	decodeJSON(t, loginResp, &loginBody)
	require.NotEmpty(t, loginBody.AccessToken)

	return &testEnv{server: srv, token: loginBody.AccessToken}
}

func createProducto(t *testing.T, env *testEnv, nombre, precio string) string {
	t.Helper()
	resp := do(t, env.server, "POST", "/v1/productos",
		jsonBody(t, map[string]any{
			"nombre":    nombre,
			"categoria": "platos",
			"precio":    precio,
		}),
		env.token,
	)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var prod struct {
		ID string `json:"id"`
	}
	decodeJSON(t, resp, &prod)
	return prod.ID
}

func registrarVenta(t *testing.T, env *testEnv, productoID string, cantidad int, montoPagado string) (*http.Response, map[string]any) {
	t.Helper()
	resp := do(t, env.server, "POST", "/v1/ventas",
		jsonBody(t, map[string]any{
			"tipo_orden":   "llevar",
			"metodo_pago":  "efectivo",
			"items":        []map[string]any{{"producto_id": productoID, "cantidad": cantidad}},
			"monto_pagado": montoPagado,
		}),
		env.token,
	)
	var body map[string]any
	decodeJSON(t, resp, &body)
	return resp, body
}

// ── Tests ────────────────────────────────────────────────────────────────────

func TestE2E_CicloCompletoDeVenta(t *testing.T) {
	env := setupTestEnv(t)
	prodID := createProducto(t, env, "Pique Macho", "35.00")

	resp, venta := registrarVenta(t, env, prodID, 2, "80.00")
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, float64(1), venta["numero_ticket"])
	assert.Equal(t, "70", venta["total"])
	assert.Equal(t, "10", venta["vuelto"])

	// The day's list contains the sale
	listResp := do(t, env.server, "GET", "/v1/ventas", nil, env.token)
	require.Equal(t, http.StatusOK, listResp.StatusCode)
	var list struct {
		Total int64 `json:"total"`
	}
	decodeJSON(t, listResp, &list)
	assert.Equal(t, int64(1), list.Total)

	// Session stats reflect the sale
	statsResp := do(t, env.server, "GET", "/v1/sesiones/activa", nil, env.token)
	require.Equal(t, http.StatusOK, statsResp.StatusCode)
	var stats struct {
		SesionActiva       bool   `json:"sesion_activa"`
		UltimoNumeroTicket int    `json:"ultimo_numero_ticket"`
		TotalVentas        int    `json:"total_ventas"`
		TotalMonto         string `json:"total_monto"`
	}
	decodeJSON(t, statsResp, &stats)
	assert.True(t, stats.SesionActiva)
	assert.Equal(t, 1, stats.UltimoNumeroTicket)
	assert.Equal(t, 1, stats.TotalVentas)
	assert.Equal(t, "70", stats.TotalMonto)
}

func TestE2E_NumeracionContinuaTrasCierreDeSesion(t *testing.T) {
	env := setupTestEnv(t)
	prodID := createProducto(t, env, "Silpancho", "25.00")

	resp, venta := registrarVenta(t, env, prodID, 1, "25.00")
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	require.Equal(t, float64(1), venta["numero_ticket"])

	// Close the session (shift handoff) and sell again
	cerrarResp := do(t, env.server, "POST", "/v1/sesiones/cerrar", nil, env.token)
	require.Equal(t, http.StatusNoContent, cerrarResp.StatusCode)
	cerrarResp.Body.Close()

	resp, venta = registrarVenta(t, env, prodID, 1, "25.00")
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, float64(2), venta["numero_ticket"], "numbering must resume, not restart")
}

func TestE2E_PagoInsuficienteRechazado(t *testing.T) {
	env := setupTestEnv(t)
	prodID := createProducto(t, env, "Chairo", "18.00")

	resp, _ := registrarVenta(t, env, prodID, 2, "30.00")
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// The counter did not move: the next sale is still ticket 1
	resp, venta := registrarVenta(t, env, prodID, 1, "18.00")
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, float64(1), venta["numero_ticket"])
}

func TestE2E_NuevoDiaSinSesionesAnteriores(t *testing.T) {
	env := setupTestEnv(t)

	resp := do(t, env.server, "POST", "/v1/sesiones/nuevo-dia", nil, env.token)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var body struct {
		SesionesCerradas int64 `json:"sesiones_cerradas"`
	}
	decodeJSON(t, resp, &body)
	assert.Equal(t, int64(0), body.SesionesCerradas)
}
