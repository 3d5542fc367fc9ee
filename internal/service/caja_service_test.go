package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/juan135072/chamos-barber-app-sub003/internal/apierror"
	"github.com/juan135072/chamos-barber-app-sub003/internal/dto"
	"github.com/juan135072/chamos-barber-app-sub003/internal/model"
	"github.com/juan135072/chamos-barber-app-sub003/internal/money"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type cajaFixture struct {
	cajaRepo    *memCajaRepo
	facturaRepo *memFacturaRepo
	barbero     *model.Barbero
	svc         CajaService
}

func newCajaFixture(t *testing.T) *cajaFixture {
	t.Helper()
	barbero := &model.Barbero{
		Nombre:             "Luis",
		Apellido:           "Mendoza",
		PorcentajeComision: 70,
		Activo:             true,
	}
	cajaRepo := newMemCajaRepo()
	facturaRepo := newMemFacturaRepo()
	return &cajaFixture{
		cajaRepo:    cajaRepo,
		facturaRepo: facturaRepo,
		barbero:     barbero,
		svc:         NewCajaService(cajaRepo, facturaRepo, newMemBarberoRepo(barbero), nil),
	}
}

func (f *cajaFixture) abrir(t *testing.T, montoInicial int64) *dto.SesionResponse {
	t.Helper()
	sesion, err := f.svc.Abrir(context.Background(), uuid.New(), dto.AbrirCajaRequest{MontoInicial: montoInicial})
	require.NoError(t, err)
	return sesion
}

func (f *cajaFixture) vender(t *testing.T, sesionID string, precio int64, clave *string) *dto.VentaResponse {
	t.Helper()
	venta, err := f.svc.RegistrarVenta(context.Background(), dto.RegistrarVentaRequest{
		SesionID:       sesionID,
		BarberoID:      f.barbero.ID.String(),
		MetodoPago:     "efectivo",
		Items:          []dto.ItemVentaRequest{{Descripcion: "Corte clásico", PrecioUnitario: precio, Cantidad: 1}},
		ClaveOperacion: clave,
	})
	require.NoError(t, err)
	return venta
}

func TestAbrirCaja(t *testing.T) {
	f := newCajaFixture(t)

	sesion := f.abrir(t, 50000)

	assert.Equal(t, model.SesionAbierta, sesion.Estado)
	assert.Equal(t, int64(50000), sesion.MontoInicial)
	assert.Equal(t, int64(50000), sesion.MontoEsperado)

	aperturas := f.cajaRepo.movimientosDe(model.MovApertura)
	require.Len(t, aperturas, 1)
	assert.Equal(t, int64(50000), aperturas[0].Monto)
}

func TestAbrirCajaMontoNegativo(t *testing.T) {
	f := newCajaFixture(t)

	_, err := f.svc.Abrir(context.Background(), uuid.New(), dto.AbrirCajaRequest{MontoInicial: -1})
	assert.True(t, apierror.IsKind(err, apierror.KindValidation))
}

func TestAbrirCajaDuplicadaMismoOperador(t *testing.T) {
	f := newCajaFixture(t)
	operadorID := uuid.New()

	_, err := f.svc.Abrir(context.Background(), operadorID, dto.AbrirCajaRequest{MontoInicial: 10000})
	require.NoError(t, err)

	_, err = f.svc.Abrir(context.Background(), operadorID, dto.AbrirCajaRequest{MontoInicial: 20000})
	assert.True(t, apierror.IsKind(err, apierror.KindConflict))
}

func TestAbrirCajaFallaMovimientoApertura(t *testing.T) {
	f := newCajaFixture(t)
	f.cajaRepo.failMovimientoTipo = model.MovApertura
	f.cajaRepo.movimientoErr = errors.New("insert rechazado")

	// session insert and apertura movement are one transaction: a failed
	// movement must fail the open instead of leaving a movement-less
	// session holding the operator's slot
	_, err := f.svc.Abrir(context.Background(), uuid.New(), dto.AbrirCajaRequest{MontoInicial: 10000})
	require.Error(t, err)
}

func TestRegistrarVenta(t *testing.T) {
	f := newCajaFixture(t)
	sesion := f.abrir(t, 50000)

	venta := f.vender(t, sesion.ID, 10000, nil)

	assert.Equal(t, int64(10000), venta.Factura.Total)
	assert.Equal(t, 70, venta.Factura.PorcentajeComision)
	assert.Equal(t, int64(7000), venta.Factura.ComisionBarbero)
	assert.Equal(t, int64(3000), venta.Factura.IngresoCasa)
	assert.Equal(t, int64(60000), venta.MontoEsperado)

	segunda := f.vender(t, sesion.ID, 15000, nil)
	assert.Equal(t, int64(75000), segunda.MontoEsperado)

	ventas := f.cajaRepo.movimientosDe(model.MovVenta)
	require.Len(t, ventas, 2)
	require.NotNil(t, ventas[0].ReferenciaID)
	assert.Equal(t, venta.Factura.ID, ventas[0].ReferenciaID.String())
}

func TestRegistrarVentaVariosItems(t *testing.T) {
	f := newCajaFixture(t)
	sesion := f.abrir(t, 0)

	venta, err := f.svc.RegistrarVenta(context.Background(), dto.RegistrarVentaRequest{
		SesionID:   sesion.ID,
		BarberoID:  f.barbero.ID.String(),
		MetodoPago: "tarjeta",
		Items: []dto.ItemVentaRequest{
			{Descripcion: "Corte clásico", PrecioUnitario: 10000, Cantidad: 1},
			{Descripcion: "Cera para cabello", PrecioUnitario: 2500, Cantidad: 2},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, int64(15000), venta.Factura.Total)
	comision, casa, splitErr := money.Split(15000, 70)
	require.NoError(t, splitErr)
	assert.Equal(t, comision, venta.Factura.ComisionBarbero)
	assert.Equal(t, casa, venta.Factura.IngresoCasa)
	assert.Equal(t, venta.Factura.Total, venta.Factura.ComisionBarbero+venta.Factura.IngresoCasa)
}

func TestRegistrarVentaIdempotente(t *testing.T) {
	f := newCajaFixture(t)
	sesion := f.abrir(t, 50000)
	clave := "pos-terminal-1-op-0001"

	primera := f.vender(t, sesion.ID, 10000, &clave)
	replay := f.vender(t, sesion.ID, 10000, &clave)

	assert.Equal(t, primera.Factura.ID, replay.Factura.ID)
	// the replay must not have moved money a second time
	assert.Equal(t, int64(60000), replay.MontoEsperado)
	assert.Len(t, f.cajaRepo.movimientosDe(model.MovVenta), 1)
}

func TestRegistrarVentaSesionCerrada(t *testing.T) {
	f := newCajaFixture(t)
	sesion := f.abrir(t, 50000)

	_, err := f.svc.Cerrar(context.Background(), dto.CerrarCajaRequest{SesionID: sesion.ID, MontoReal: 50000})
	require.NoError(t, err)

	_, err = f.svc.RegistrarVenta(context.Background(), dto.RegistrarVentaRequest{
		SesionID:   sesion.ID,
		BarberoID:  f.barbero.ID.String(),
		MetodoPago: "efectivo",
		Items:      []dto.ItemVentaRequest{{Descripcion: "Corte clásico", PrecioUnitario: 10000, Cantidad: 1}},
	})
	assert.True(t, apierror.IsKind(err, apierror.KindConflict))
}

func TestRegistrarVentaBarberoInactivo(t *testing.T) {
	f := newCajaFixture(t)
	f.barbero.Activo = false
	sesion := f.abrir(t, 0)

	_, err := f.svc.RegistrarVenta(context.Background(), dto.RegistrarVentaRequest{
		SesionID:   sesion.ID,
		BarberoID:  f.barbero.ID.String(),
		MetodoPago: "efectivo",
		Items:      []dto.ItemVentaRequest{{Descripcion: "Corte clásico", PrecioUnitario: 10000, Cantidad: 1}},
	})
	assert.True(t, apierror.IsKind(err, apierror.KindValidation))
}

func TestRegistrarAjuste(t *testing.T) {
	f := newCajaFixture(t)
	sesion := f.abrir(t, 50000)

	mov, err := f.svc.RegistrarAjuste(context.Background(), dto.AjusteRequest{
		SesionID: sesion.ID,
		Monto:    -2000,
		Motivo:   "Compra de insumos de limpieza",
	})
	require.NoError(t, err)
	assert.Equal(t, model.MovAjuste, mov.Tipo)
	assert.Equal(t, int64(-2000), mov.Monto)

	sesionID := uuid.MustParse(sesion.ID)
	actualizada, err := f.cajaRepo.FindSesionByID(context.Background(), sesionID)
	require.NoError(t, err)
	assert.Equal(t, int64(48000), actualizada.MontoEsperado)
}

func TestRegistrarAjusteMontoCero(t *testing.T) {
	f := newCajaFixture(t)
	sesion := f.abrir(t, 50000)

	_, err := f.svc.RegistrarAjuste(context.Background(), dto.AjusteRequest{
		SesionID: sesion.ID,
		Monto:    0,
		Motivo:   "nada",
	})
	assert.True(t, apierror.IsKind(err, apierror.KindValidation))
}

func TestRegistrarAjusteSesionCerrada(t *testing.T) {
	f := newCajaFixture(t)
	sesion := f.abrir(t, 50000)
	_, err := f.svc.Cerrar(context.Background(), dto.CerrarCajaRequest{SesionID: sesion.ID, MontoReal: 50000})
	require.NoError(t, err)

	_, err = f.svc.RegistrarAjuste(context.Background(), dto.AjusteRequest{
		SesionID: sesion.ID,
		Monto:    1000,
		Motivo:   "ingreso tardío",
	})
	assert.True(t, apierror.IsKind(err, apierror.KindConflict))
}

func TestCerrarCaja(t *testing.T) {
	fixedNow := time.Date(2026, 8, 30, 20, 0, 0, 0, time.UTC)
	timeNow = func() time.Time { return fixedNow }
	defer func() { timeNow = time.Now }()

	f := newCajaFixture(t)
	sesion := f.abrir(t, 50000)
	f.vender(t, sesion.ID, 10000, nil)
	f.vender(t, sesion.ID, 15000, nil)

	cerrada, err := f.svc.Cerrar(context.Background(), dto.CerrarCajaRequest{
		SesionID:  sesion.ID,
		MontoReal: 74000,
	})
	require.NoError(t, err)

	assert.Equal(t, model.SesionCerrada, cerrada.Estado)
	assert.Equal(t, int64(75000), cerrada.MontoEsperado)
	require.NotNil(t, cerrada.MontoReal)
	assert.Equal(t, int64(74000), *cerrada.MontoReal)
	require.NotNil(t, cerrada.Diferencia)
	assert.Equal(t, int64(-1000), *cerrada.Diferencia)
	require.NotNil(t, cerrada.ClasificacionDesvio)
	assert.Equal(t, money.DesvioAdvertencia, *cerrada.ClasificacionDesvio)
	require.NotNil(t, cerrada.ClosedAt)
	assert.Equal(t, "2026-08-30T20:00:00Z", *cerrada.ClosedAt)

	require.Len(t, f.cajaRepo.movimientosDe(model.MovCierre), 1)
}

func TestRegistrarVentaEsperadoConcurrente(t *testing.T) {
	f := newCajaFixture(t)
	sesion := f.abrir(t, 50000)
	sesionID := uuid.MustParse(sesion.ID)

	// another terminal's sale lands between this sale's pre-flight read and
	// its commit; the response must reflect the stored running total
	f.cajaRepo.onIncrementar = func() {
		f.cajaRepo.sesiones[sesionID].MontoEsperado += 5000
	}

	venta := f.vender(t, sesion.ID, 10000, nil)
	assert.Equal(t, int64(65000), venta.MontoEsperado)
}

func TestCerrarCajaFallaMovimientoCierre(t *testing.T) {
	f := newCajaFixture(t)
	sesion := f.abrir(t, 50000)
	f.cajaRepo.failMovimientoTipo = model.MovCierre
	f.cajaRepo.movimientoErr = errors.New("insert rechazado")

	// the cierre movement commits with the close; its failure fails the
	// close instead of being swallowed into a log line
	_, err := f.svc.Cerrar(context.Background(), dto.CerrarCajaRequest{SesionID: sesion.ID, MontoReal: 50000})
	require.Error(t, err)
}

func TestCerrarCajaDosVeces(t *testing.T) {
	f := newCajaFixture(t)
	sesion := f.abrir(t, 50000)

	_, err := f.svc.Cerrar(context.Background(), dto.CerrarCajaRequest{SesionID: sesion.ID, MontoReal: 50000})
	require.NoError(t, err)

	_, err = f.svc.Cerrar(context.Background(), dto.CerrarCajaRequest{SesionID: sesion.ID, MontoReal: 50000})
	assert.True(t, apierror.IsKind(err, apierror.KindConflict))
}

func TestCerrarCajaDesvioCriticoRequiereNotas(t *testing.T) {
	f := newCajaFixture(t)
	sesion := f.abrir(t, 50000)

	// 40000 against 50000 expected is a 20% deviation
	_, err := f.svc.Cerrar(context.Background(), dto.CerrarCajaRequest{SesionID: sesion.ID, MontoReal: 40000})
	assert.True(t, apierror.IsKind(err, apierror.KindValidation))

	notas := "Faltante reportado al supervisor, se revisará cámara"
	cerrada, err := f.svc.Cerrar(context.Background(), dto.CerrarCajaRequest{
		SesionID:  sesion.ID,
		MontoReal: 40000,
		Notas:     &notas,
	})
	require.NoError(t, err)
	require.NotNil(t, cerrada.ClasificacionDesvio)
	assert.Equal(t, money.DesvioCritico, *cerrada.ClasificacionDesvio)
	assert.Equal(t, &notas, cerrada.Notas)
}

func TestObtenerReporte(t *testing.T) {
	f := newCajaFixture(t)
	sesion := f.abrir(t, 50000)
	f.vender(t, sesion.ID, 10000, nil)

	reporte, err := f.svc.ObtenerReporte(context.Background(), uuid.MustParse(sesion.ID))
	require.NoError(t, err)

	assert.Equal(t, sesion.ID, reporte.Sesion.ID)
	require.Len(t, reporte.Movimientos, 2)
	assert.Equal(t, model.MovApertura, reporte.Movimientos[0].Tipo)
	assert.Equal(t, model.MovVenta, reporte.Movimientos[1].Tipo)
}

func TestSesionActiva(t *testing.T) {
	f := newCajaFixture(t)
	operadorID := uuid.New()

	_, err := f.svc.SesionActiva(context.Background(), operadorID)
	assert.True(t, apierror.IsKind(err, apierror.KindNotFound))

	abierta, err := f.svc.Abrir(context.Background(), operadorID, dto.AbrirCajaRequest{MontoInicial: 5000})
	require.NoError(t, err)

	activa, err := f.svc.SesionActiva(context.Background(), operadorID)
	require.NoError(t, err)
	assert.Equal(t, abierta.ID, activa.ID)
}
