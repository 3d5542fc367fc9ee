package service

import (
	"context"
	"testing"

	"github.com/juan135072/chamos-barber-app-sub003/internal/apierror"
	"github.com/juan135072/chamos-barber-app-sub003/internal/dto"
	"github.com/juan135072/chamos-barber-app-sub003/internal/model"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type facturaFixture struct {
	cajaRepo     *memCajaRepo
	facturaRepo  *memFacturaRepo
	configRepo   *memConfiguracionRepo
	citaSyncRepo *memCitaSyncRepo
	barberoA     *model.Barbero // 50%
	barberoB     *model.Barbero // 60%
	caja         CajaService
	svc          FacturaService
	sesionID     string
}

func newFacturaFixture(t *testing.T) *facturaFixture {
	t.Helper()
	f := &facturaFixture{
		cajaRepo:     newMemCajaRepo(),
		facturaRepo:  newMemFacturaRepo(),
		configRepo:   newMemConfiguracionRepo(),
		citaSyncRepo: newMemCitaSyncRepo(),
		barberoA:     &model.Barbero{Nombre: "Carlos", Apellido: "Pérez", PorcentajeComision: 50, Activo: true},
		barberoB:     &model.Barbero{Nombre: "María", Apellido: "Rojas", PorcentajeComision: 60, Activo: true},
	}
	barberos := newMemBarberoRepo(f.barberoA, f.barberoB)
	f.caja = NewCajaService(f.cajaRepo, f.facturaRepo, barberos, nil)
	f.svc = NewFacturaService(
		f.facturaRepo, f.cajaRepo, barberos,
		NewSeguridadService(f.configRepo),
		f.citaSyncRepo, nil, nil,
	)

	sesion, err := f.caja.Abrir(context.Background(), uuid.New(), dto.AbrirCajaRequest{MontoInicial: 50000})
	require.NoError(t, err)
	f.sesionID = sesion.ID
	return f
}

// vender registers a sale for barberoA in the fixture's open session.
func (f *facturaFixture) vender(t *testing.T, precio int64, citaID *string) uuid.UUID {
	t.Helper()
	venta, err := f.caja.RegistrarVenta(context.Background(), dto.RegistrarVentaRequest{
		SesionID:   f.sesionID,
		BarberoID:  f.barberoA.ID.String(),
		CitaID:     citaID,
		MetodoPago: "efectivo",
		Items:      []dto.ItemVentaRequest{{Descripcion: "Corte clásico", PrecioUnitario: precio, Cantidad: 1}},
	})
	require.NoError(t, err)
	return uuid.MustParse(venta.Factura.ID)
}

func (f *facturaFixture) montoEsperado(t *testing.T) int64 {
	t.Helper()
	sesion, err := f.cajaRepo.FindSesionByID(context.Background(), uuid.MustParse(f.sesionID))
	require.NoError(t, err)
	return sesion.MontoEsperado
}

// ─── Anular ──────────────────────────────────────────────────────────────────

func TestAnularFactura(t *testing.T) {
	f := newFacturaFixture(t)
	facturaID := f.vender(t, 10000, nil)
	require.Equal(t, int64(60000), f.montoEsperado(t))

	anulada, err := f.svc.Anular(context.Background(), facturaID, "supervisor1", dto.AnularFacturaRequest{
		Motivo: "Cliente pagó dos veces por error",
	})
	require.NoError(t, err)

	assert.True(t, anulada.Anulada)
	require.NotNil(t, anulada.MotivoAnulacion)
	assert.Equal(t, "Cliente pagó dos veces por error", *anulada.MotivoAnulacion)

	// the sale is backed out of the still-open session
	assert.Equal(t, int64(50000), f.montoEsperado(t))
	ajustes := f.cajaRepo.movimientosDe(model.MovAjuste)
	require.Len(t, ajustes, 1)
	assert.Equal(t, int64(-10000), ajustes[0].Monto)
	require.NotNil(t, ajustes[0].ReferenciaID)
	assert.Equal(t, facturaID, *ajustes[0].ReferenciaID)

	// no cita linked, so nothing to sync
	assert.Empty(t, f.citaSyncRepo.syncs)
}

func TestAnularFacturaDosVeces(t *testing.T) {
	f := newFacturaFixture(t)
	facturaID := f.vender(t, 10000, nil)

	_, err := f.svc.Anular(context.Background(), facturaID, "supervisor1", dto.AnularFacturaRequest{Motivo: "error de cobro"})
	require.NoError(t, err)

	_, err = f.svc.Anular(context.Background(), facturaID, "supervisor1", dto.AnularFacturaRequest{Motivo: "error de cobro"})
	assert.True(t, apierror.IsKind(err, apierror.KindConflict))
}

func TestAnularFacturaSesionCerrada(t *testing.T) {
	f := newFacturaFixture(t)
	facturaID := f.vender(t, 10000, nil)

	_, err := f.caja.Cerrar(context.Background(), dto.CerrarCajaRequest{SesionID: f.sesionID, MontoReal: 60000})
	require.NoError(t, err)

	anulada, err := f.svc.Anular(context.Background(), facturaID, "supervisor1", dto.AnularFacturaRequest{Motivo: "detectado al día siguiente"})
	require.NoError(t, err)
	assert.True(t, anulada.Anulada)

	// a sealed count is never rewritten
	assert.Equal(t, int64(60000), f.montoEsperado(t))
	assert.Empty(t, f.cajaRepo.movimientosDe(model.MovAjuste))
}

func TestAnularFacturaSincronizaCita(t *testing.T) {
	f := newFacturaFixture(t)
	citaID := uuid.NewString()
	facturaID := f.vender(t, 10000, &citaID)

	_, err := f.svc.Anular(context.Background(), facturaID, "supervisor1", dto.AnularFacturaRequest{Motivo: "cita reprogramada"})
	require.NoError(t, err)

	require.Len(t, f.citaSyncRepo.syncs, 1)
	sync := f.citaSyncRepo.syncs[0]
	assert.Equal(t, model.SyncEstadoPago, sync.Accion)
	assert.Equal(t, facturaID, sync.FacturaID)
	assert.Equal(t, citaID, sync.CitaID.String())
	require.NotNil(t, sync.EstadoPago)
	assert.Equal(t, "pendiente", *sync.EstadoPago)
	// no agenda client wired, the retry cron owns it
	assert.Equal(t, "pendiente", sync.Estado)
}

func TestAnularFacturaClaveSeguridad(t *testing.T) {
	f := newFacturaFixture(t)
	require.NoError(t, f.configRepo.SetValor(context.Background(), model.ClavePOSSeguridad, "4321"))
	facturaID := f.vender(t, 10000, nil)

	_, err := f.svc.Anular(context.Background(), facturaID, "supervisor1", dto.AnularFacturaRequest{
		Motivo:         "error de cobro",
		ClaveSeguridad: "0000",
	})
	assert.True(t, apierror.IsKind(err, apierror.KindUnauthorized))

	anulada, err := f.svc.Anular(context.Background(), facturaID, "supervisor1", dto.AnularFacturaRequest{
		Motivo:         "error de cobro",
		ClaveSeguridad: "4321",
	})
	require.NoError(t, err)
	assert.True(t, anulada.Anulada)
}

// ─── Corregir ────────────────────────────────────────────────────────────────

func TestCorregirFacturaBarbero(t *testing.T) {
	f := newFacturaFixture(t)
	facturaID := f.vender(t, 20000, nil)

	nuevoBarbero := f.barberoB.ID.String()
	corregida, err := f.svc.Corregir(context.Background(), facturaID, dto.CorregirFacturaRequest{
		NuevoBarberoID: &nuevoBarbero,
	})
	require.NoError(t, err)

	assert.Equal(t, nuevoBarbero, corregida.BarberoID)
	assert.Equal(t, 60, corregida.PorcentajeComision)
	assert.Equal(t, int64(12000), corregida.ComisionBarbero)
	assert.Equal(t, int64(8000), corregida.IngresoCasa)
	assert.Equal(t, int64(20000), corregida.Total)

	// the prior values survive in the correction snapshot
	require.Len(t, f.facturaRepo.correcciones, 1)
	anterior := f.facturaRepo.correcciones[0]
	assert.Equal(t, f.barberoA.ID, anterior.BarberoAnterior)
	assert.Equal(t, int64(20000), anterior.TotalAnterior)
	assert.Equal(t, 50, anterior.PorcentajeAnterior)
	assert.Equal(t, int64(10000), anterior.ComisionAnterior)
	assert.Equal(t, int64(10000), anterior.CasaAnterior)

	// same total, the session ledger stays untouched
	assert.Equal(t, int64(70000), f.montoEsperado(t))
	assert.Empty(t, f.cajaRepo.movimientosDe(model.MovAjuste))
}

func TestCorregirFacturaServicio(t *testing.T) {
	f := newFacturaFixture(t)
	facturaID := f.vender(t, 10000, nil)
	require.Equal(t, int64(60000), f.montoEsperado(t))

	corregida, err := f.svc.Corregir(context.Background(), facturaID, dto.CorregirFacturaRequest{
		NuevoServicio: &dto.NuevoServicio{Descripcion: "Corte y barba", Precio: 12000},
	})
	require.NoError(t, err)

	assert.Equal(t, int64(12000), corregida.Total)
	assert.Equal(t, int64(6000), corregida.ComisionBarbero)
	assert.Equal(t, int64(6000), corregida.IngresoCasa)
	require.Len(t, corregida.Items, 1)
	assert.Equal(t, "Corte y barba", corregida.Items[0].Descripcion)
	assert.Equal(t, int64(12000), corregida.Items[0].PrecioUnitario)

	// the +2000 difference flows into the open session as an ajuste
	assert.Equal(t, int64(62000), f.montoEsperado(t))
	ajustes := f.cajaRepo.movimientosDe(model.MovAjuste)
	require.Len(t, ajustes, 1)
	assert.Equal(t, int64(2000), ajustes[0].Monto)
}

func TestCorregirFacturaMetodoPago(t *testing.T) {
	f := newFacturaFixture(t)
	facturaID := f.vender(t, 10000, nil)

	tarjeta := "tarjeta"
	corregida, err := f.svc.Corregir(context.Background(), facturaID, dto.CorregirFacturaRequest{
		NuevoMetodoPago: &tarjeta,
	})
	require.NoError(t, err)

	assert.Equal(t, "tarjeta", corregida.MetodoPago)
	// split untouched by a payment method fix
	assert.Equal(t, int64(5000), corregida.ComisionBarbero)
	require.Len(t, f.facturaRepo.correcciones, 1)
	assert.Equal(t, "efectivo", f.facturaRepo.correcciones[0].MetodoPagoAnterior)
}

func TestCorregirFacturaAnulada(t *testing.T) {
	f := newFacturaFixture(t)
	facturaID := f.vender(t, 10000, nil)
	_, err := f.svc.Anular(context.Background(), facturaID, "supervisor1", dto.AnularFacturaRequest{Motivo: "error de cobro"})
	require.NoError(t, err)

	nuevoBarbero := f.barberoB.ID.String()
	_, err = f.svc.Corregir(context.Background(), facturaID, dto.CorregirFacturaRequest{NuevoBarberoID: &nuevoBarbero})
	assert.True(t, apierror.IsKind(err, apierror.KindConflict))
}

func TestCorregirFacturaSinCambios(t *testing.T) {
	f := newFacturaFixture(t)
	facturaID := f.vender(t, 10000, nil)

	_, err := f.svc.Corregir(context.Background(), facturaID, dto.CorregirFacturaRequest{})
	assert.True(t, apierror.IsKind(err, apierror.KindValidation))

	// the same barbero is not a change either
	mismo := f.barberoA.ID.String()
	_, err = f.svc.Corregir(context.Background(), facturaID, dto.CorregirFacturaRequest{NuevoBarberoID: &mismo})
	assert.True(t, apierror.IsKind(err, apierror.KindValidation))
}

func TestCorregirFacturaSincronizaCita(t *testing.T) {
	f := newFacturaFixture(t)
	citaID := uuid.NewString()
	facturaID := f.vender(t, 10000, &citaID)

	nuevoBarbero := f.barberoB.ID.String()
	_, err := f.svc.Corregir(context.Background(), facturaID, dto.CorregirFacturaRequest{NuevoBarberoID: &nuevoBarbero})
	require.NoError(t, err)

	require.Len(t, f.citaSyncRepo.syncs, 1)
	sync := f.citaSyncRepo.syncs[0]
	assert.Equal(t, model.SyncBarberoServicio, sync.Accion)
	require.NotNil(t, sync.BarberoID)
	assert.Equal(t, f.barberoB.ID, *sync.BarberoID)
}
