package infra

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// TicketItem is one line of the printed ticket.
type TicketItem struct {
	Nombre   string `json:"nombre"`
	Cantidad int    `json:"cantidad"`
	Precio   string `json:"precio"`
	Subtotal string `json:"subtotal"`
}

// TicketPayload is sent by the Go worker pool to the printer bridge.
// The bridge talks ESC/POS to the thermal printer and answers once the
// ticket left the spooler.
type TicketPayload struct {
	VentaID       string       `json:"venta_id"`
	NumeroTicket  int          `json:"numero_ticket"`
	Fecha         string       `json:"fecha"`
	Hora          string       `json:"hora"`
	Cajero        string       `json:"cajero"`
	TipoOrden     string       `json:"tipo_orden"`
	NumeroMesa    *int         `json:"numero_mesa,omitempty"`
	ClienteNombre string       `json:"cliente_nombre,omitempty"`
	ClienteNit    string       `json:"cliente_nit,omitempty"`
	Items         []TicketItem `json:"items"`
	Subtotal      string       `json:"subtotal"`
	Total         string       `json:"total"`
	MetodoPago    string       `json:"metodo_pago"`
	MontoPagado   string       `json:"monto_pagado"`
	Vuelto        string       `json:"vuelto"`
	Observaciones string       `json:"observaciones,omitempty"`
}

// PrinterResponse is returned by the bridge after spooling the ticket.
type PrinterResponse struct {
	Estado  string `json:"estado"` // "ok" | "error"
	Detalle string `json:"detalle,omitempty"`
}

// PrinterClient is an HTTP client that delegates thermal printing to the
// printer bridge. The bridge runs next to the printer so a jammed or
// offline device never blocks the sale flow.
type PrinterClient struct {
	bridgeURL  string
	httpClient *http.Client
}

func NewPrinterClient(bridgeURL string) *PrinterClient {
	return &PrinterClient{
		bridgeURL:  bridgeURL,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

// Imprimir sends a POST to the printer bridge and returns its response.
func (c *PrinterClient) Imprimir(ctx context.Context, payload TicketPayload) (*PrinterResponse, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("printer: marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.bridgeURL+"/imprimir", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("printer: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("printer: bridge unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("printer: bridge returned %d", resp.StatusCode)
	}

	var result PrinterResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("printer: decode response: %w", err)
	}
	if result.Estado != "ok" {
		return &result, fmt.Errorf("printer: bridge rejected ticket: %s", result.Detalle)
	}
	return &result, nil
}
