package backend

import (
	"log"
	"math"
	"net/http"
	"strings"

	"github.com/panaderia-demo/storefront/backend/store"
	"github.com/panaderia-demo/storefront/backend/ws"
)

type ventaRequest struct {
	Producto       string  `json:"producto"`
	Cantidad       int     `json:"cantidad"`
	PrecioUnitario float64 `json:"precio_unitario"`
}

type ventaRespuesta struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Venta   store.Venta `json:"venta"`
}

type resumenRespuesta struct {
	Success bool                 `json:"success"`
	Resumen []store.ResumenVenta `json:"resumen"`
}

func (a *API) handleCreateVenta(w http.ResponseWriter, r *http.Request) {
	var req ventaRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeFail(w, http.StatusBadRequest, "Solicitud inválida")
		return
	}
	req.Producto = strings.TrimSpace(req.Producto)
	switch {
	case req.Producto == "":
		writeFail(w, http.StatusBadRequest, "El producto es obligatorio")
		return
	case req.Cantidad <= 0:
		writeFail(w, http.StatusBadRequest, "La cantidad debe ser mayor que cero")
		return
	case req.PrecioUnitario < 0 || math.IsNaN(req.PrecioUnitario) || math.IsInf(req.PrecioUnitario, 0):
		writeFail(w, http.StatusBadRequest, "El precio no es válido")
		return
	}

	v, err := a.sales.CreateVenta(r.Context(), req.Producto, req.Cantidad, req.PrecioUnitario)
	if err != nil {
		log.Printf("api: create venta: %v", err)
		writeFail(w, http.StatusInternalServerError, "Error del servidor")
		return
	}

	// publishing may back off on Redis errors; keep it off the request path
	go func() {
		if err := a.feed.Publish(ws.DefaultCanal, v); err != nil {
			log.Printf("api: publish venta %s: %v", v.ID, err)
		}
	}()

	writeJSON(w, http.StatusCreated, ventaRespuesta{
		Success: true,
		Message: "Venta registrada",
		Venta:   v,
	})
}

func (a *API) handleResumen(w http.ResponseWriter, r *http.Request) {
	resumen, err := a.sales.ResumenVentas(r.Context())
	if err != nil {
		log.Printf("api: resumen ventas: %v", err)
		writeFail(w, http.StatusInternalServerError, "Error del servidor")
		return
	}
	if resumen == nil {
		resumen = []store.ResumenVenta{}
	}
	writeJSON(w, http.StatusOK, resumenRespuesta{Success: true, Resumen: resumen})
}
