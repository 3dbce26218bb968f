package worker

// impresion_worker.go
// Processes receipt-printing jobs from QueueImpresion.
// Sends the ticket to the printer bridge, archives a PDF copy and
// optionally enqueues an email with the PDF attached.
// Printing is best-effort: the sale is already committed when a job
// reaches this worker, so every failure path ends in a log line and a
// scheduled retry, never in an error surfaced to the cashier.

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"sazonpos/internal/clock"
	"sazonpos/internal/infra"
	"sazonpos/internal/model"
	"sazonpos/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// ImpresionJobPayload is the job envelope sent to QueueImpresion.
type ImpresionJobPayload struct {
	VentaID      string  `json:"venta_id"`
	ClienteEmail *string `json:"cliente_email,omitempty"`
}

// ImpresionWorker processes printing jobs from QueueImpresion.
type ImpresionWorker struct {
	printer        *infra.PrinterClient
	impresionRepo  repository.ImpresionRepository
	ventaRepo      repository.VentaRepository
	dispatcher     *Dispatcher
	clk            clock.Clock
	pdfStoragePath string
}

// NewImpresionWorker wires all dependencies for the printing worker.
func NewImpresionWorker(
	printer *infra.PrinterClient,
	impresionRepo repository.ImpresionRepository,
	ventaRepo repository.VentaRepository,
	dispatcher *Dispatcher,
	clk clock.Clock,
	pdfStoragePath string,
) *ImpresionWorker {
	return &ImpresionWorker{
		printer:        printer,
		impresionRepo:  impresionRepo,
		ventaRepo:      ventaRepo,
		dispatcher:     dispatcher,
		clk:            clk,
		pdfStoragePath: pdfStoragePath,
	}
}

// Process handles a single printing job:
//  1. Parse ImpresionJobPayload from the job envelope
//  2. Fetch the Venta (with detalles+usuario) from DB
//  3. Create TrabajoImpresion record with estado="pendiente"
//  4. Send the ticket to the printer bridge with backoff (max 3 attempts)
//  5. Update TrabajoImpresion (impreso, or pendiente + next_retry_at for the cron)
//  6. Generate the PDF archive copy
//  7. Optionally enqueue an email job
func (w *ImpresionWorker) Process(ctx context.Context, raw json.RawMessage) {
	var payload ImpresionJobPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		log.Error().Err(err).Msg("impresion_worker: invalid payload")
		return
	}

	ventaID, err := uuid.Parse(payload.VentaID)
	if err != nil {
		log.Error().Str("venta_id", payload.VentaID).Msg("impresion_worker: invalid venta_id")
		return
	}

	// 1. Fetch Venta with detalles and usuario
	venta, err := w.ventaRepo.FindByID(ctx, ventaID)
	if err != nil {
		log.Error().Err(err).Str("venta_id", payload.VentaID).Msg("impresion_worker: venta not found")
		return
	}

	// 2. Create TrabajoImpresion with status "pendiente"
	trabajo := &model.TrabajoImpresion{
		VentaID: ventaID,
		Estado:  "pendiente",
	}
	if err := w.impresionRepo.Create(ctx, trabajo); err != nil {
		log.Error().Err(err).Str("venta_id", payload.VentaID).Msg("impresion_worker: failed to create trabajo")
		return
	}

	// 3. Printer bridge call with backoff: attempts = 1, retry after 1s, 2s
	ticket := BuildTicketPayload(venta, w.clk)
	printErr := withRetry(ctx, 3, func(attempt int) error {
		if _, err := w.printer.Imprimir(ctx, ticket); err != nil {
			log.Warn().
				Err(err).
				Int("attempt", attempt+1).
				Str("venta_id", payload.VentaID).
				Msg("impresion_worker: print attempt failed, retrying")
			return err
		}
		return nil
	})

	// 4. Update TrabajoImpresion based on printer result
	if printErr != nil {
		// Stays pendiente — the reprint cron picks it up via next_retry_at
		errMsg := printErr.Error()
		trabajo.LastError = &errMsg
		nextRetry := w.clk.Now().Add(computeRetryBackoff(1))
		trabajo.NextRetryAt = &nextRetry
		trabajo.RetryCount = 1
		_ = w.impresionRepo.Update(ctx, trabajo)
		log.Error().Err(printErr).Str("venta_id", payload.VentaID).Msg("impresion_worker: print failed, scheduled for reprint cron")
	} else {
		trabajo.Estado = "impreso"
		_ = w.impresionRepo.Update(ctx, trabajo)
		log.Info().
			Int("numero_ticket", venta.NumeroTicket).
			Str("venta_id", payload.VentaID).
			Msg("impresion_worker: ticket printed")
	}

	// 5. PDF archive copy — independent of the thermal print outcome
	pdfPath, pdfErr := infra.GenerateTicketPDF(venta, w.clk.Timestamp(venta.CreatedAt), w.pdfStoragePath)
	if pdfErr != nil {
		log.Warn().Err(pdfErr).Str("venta_id", payload.VentaID).Msg("impresion_worker: PDF generation failed")
	} else {
		trabajo.PDFPath = &pdfPath
		_ = w.impresionRepo.Update(ctx, trabajo)
		log.Info().Str("pdf", pdfPath).Str("venta_id", payload.VentaID).Msg("impresion_worker: PDF generated")
	}

	// 6. Async email if customer email was provided
	if payload.ClienteEmail != nil && *payload.ClienteEmail != "" && pdfPath != "" {
		emailJob := EmailJobPayload{
			ToEmail: *payload.ClienteEmail,
			Subject: fmt.Sprintf("Tu ticket SazónPOS — N° %d", venta.NumeroTicket),
			Body:    fmt.Sprintf("Adjunto encontrarás tu comprobante de venta.\nTotal: Bs %s", venta.Total.StringFixed(2)),
			PDFPath: pdfPath,
		}
		if err := w.dispatcher.EnqueueEmail(ctx, emailJob); err != nil {
			log.Warn().Err(err).Str("email", *payload.ClienteEmail).Msg("impresion_worker: failed to enqueue email")
		} else {
			log.Info().Str("email", *payload.ClienteEmail).Msg("impresion_worker: email job enqueued")
		}
	}
}

// BuildTicketPayload flattens a Venta into the wire format the printer
// bridge expects. Amounts travel as fixed-point strings so the bridge
// never re-rounds them.
func BuildTicketPayload(venta *model.Venta, clk clock.Clock) infra.TicketPayload {
	items := make([]infra.TicketItem, 0, len(venta.Detalles))
	for _, det := range venta.Detalles {
		items = append(items, infra.TicketItem{
			Nombre:   det.ProductoNombre,
			Cantidad: det.Cantidad,
			Precio:   det.PrecioUnitario.StringFixed(2),
			Subtotal: det.Subtotal.StringFixed(2),
		})
	}

	payload := infra.TicketPayload{
		VentaID:      venta.ID.String(),
		NumeroTicket: venta.NumeroTicket,
		Fecha:        venta.Fecha,
		Hora:         venta.CreatedAt.In(clk.Location()).Format("15:04"),
		TipoOrden:    venta.TipoOrden,
		NumeroMesa:   venta.NumeroMesa,
		Items:        items,
		Subtotal:     venta.Subtotal.StringFixed(2),
		Total:        venta.Total.StringFixed(2),
		MetodoPago:   venta.MetodoPago,
		MontoPagado:  venta.MontoPagado.StringFixed(2),
		Vuelto:       venta.Vuelto.StringFixed(2),
	}
	if venta.Usuario != nil {
		payload.Cajero = venta.Usuario.Nombre
	}
	if venta.ClienteNombre != nil {
		payload.ClienteNombre = *venta.ClienteNombre
	}
	if venta.ClienteNit != nil {
		payload.ClienteNit = *venta.ClienteNit
	}
	if venta.Observaciones != nil {
		payload.Observaciones = *venta.Observaciones
	}
	return payload
}

// withRetry calls fn up to maxAttempts times with exponential backoff.
// Backoff schedule: attempt 1 = immediate, 2 = 1s, 3 = 2s.
// Returns nil if any attempt succeeds; last error otherwise.
func withRetry(ctx context.Context, maxAttempts int, fn func(attempt int) error) error {
	var lastErr error
	for i := 0; i < maxAttempts; i++ {
		if i > 0 {
			// 1s, 2s … (exponential backoff)
			wait := time.Duration(1<<uint(i-1)) * time.Second
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(wait):
			}
		}
		if err := fn(i); err != nil {
			lastErr = err
			continue
		}
		return nil
	}
	return lastErr
}
