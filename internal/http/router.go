package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func NewRouter(handler *Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(Logger(handler.logger))
	r.Use(Recoverer(handler.logger))
	r.Use(Timeout)
	r.Use(CORS)

	r.Get("/healthz", handler.Health)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/inventory", handler.ListInventory)
		r.Post("/inventory", handler.CreateInventoryItem)
		r.Get("/inventory/search", handler.SearchInventory)
		r.Get("/inventory/summary", handler.InventorySummary)
		r.Get("/inventory/low-stock", handler.LowStock)
		r.Post("/inventory/import", handler.ImportInventory)
		r.Get("/inventory/{id}", handler.GetInventoryItem)
		r.Patch("/inventory/{id}", handler.PatchInventoryItem)

		r.Get("/clients", handler.ListClients)
		r.Post("/clients", handler.CreateClient)
		r.Get("/clients/search", handler.SearchClients)
		r.Get("/clients/{id}", handler.GetClient)
		r.Put("/clients/{id}", handler.UpdateClient)
		r.Get("/clients/{id}/vehicles", handler.ListVehicles)
		r.Post("/clients/{id}/vehicles", handler.AddVehicle)
		r.Delete("/clients/{id}/vehicles/{vehicleID}", handler.DeleteVehicle)
		r.Post("/clients/{id}/vehicles/{vehicleID}/transfer", handler.TransferVehicle)

		r.Get("/mechanics", handler.ListMechanics)
		r.Post("/mechanics", handler.CreateMechanic)
		r.Get("/mechanics/report", handler.MechanicReport)
		r.Delete("/mechanics/{id}", handler.DeleteMechanic)

		r.Get("/appointments", handler.ListAgenda)
		r.Post("/appointments", handler.CreateAppointment)
		r.Post("/appointments/{id}/reminder", handler.MarkReminderSent)

		r.Get("/work-orders", handler.ListWorkOrders)
		r.Post("/work-orders", handler.CreateWorkOrder)
		r.Get("/work-orders/{id}", handler.GetWorkOrder)
		r.Put("/work-orders/{id}", handler.UpdateWorkOrder)
		r.Delete("/work-orders/{id}", handler.DeleteWorkOrder)

		r.Get("/purchases", handler.ListPurchases)
		r.Post("/purchases", handler.CreatePurchase)
		r.Get("/purchases/{id}", handler.GetPurchase)
		r.Put("/purchases/{id}", handler.UpdatePurchase)

		r.Get("/finance/dashboard", handler.FinanceDashboard)
		r.Get("/finance/stock-statement", handler.StockStatement)
		r.Get("/finance/payment-methods", handler.PaymentMethods)
		r.Get("/finance/categories", handler.Categories)
		r.Post("/finance/quick-service", handler.QuickService)
		r.Get("/finance/transactions", handler.ListTransactions)
		r.Post("/finance/transactions", handler.CreateTransaction)
		r.Get("/finance/transactions/{id}", handler.GetTransaction)
		r.Patch("/finance/transactions/{id}", handler.UpdateTransaction)
		r.Post("/finance/transactions/{id}/cancel", handler.CancelTransaction)
	})

	return r
}
