package routes

import (
	"github.com/gofiber/fiber/v2"

	"buchhaltung-backend/controllers"
	"buchhaltung-backend/ledger"
	"buchhaltung-backend/middlewares"
)

// Register wires all HTTP routes.
func Register(app *fiber.App) {
	api := app.Group("/api")

	// Public auth endpoints
	api.Post("/registration", controllers.Register)
	api.Post("/login", controllers.Login)
	api.Post("/logout", controllers.Logout)

	// Protected endpoints (JWT auth)
	protected := api.Group("")
	protected.Use(middlewares.IsAuthenticatedHeader())

	// Idempotency guard FIRST (not tied to request TX)
	protected.Use(middlewares.Idempotency())

	// Then per-request tenant transaction (pins search_path and commits/rolls back)
	protected.Use(middlewares.TenantTx())

	// Contacts (customers & suppliers)
	protected.Post("/contact", controllers.CreateContact)
	protected.Get("/contacts", controllers.GetContacts)
	protected.Get("/contact/:id", controllers.GetContact)
	protected.Put("/contact/:id", controllers.UpdateContact)

	// Chart of accounts + general ledger enquiry
	protected.Post("/nominal", controllers.CreateNominal)
	protected.Get("/nominals", controllers.GetNominals)
	protected.Put("/nominal/:id", controllers.UpdateNominal)
	protected.Get("/nominals/transactions", controllers.GetNominalTransactions)

	// VAT codes + VAT-return feed
	protected.Post("/vat/code", controllers.CreateVatCode)
	protected.Get("/vat/codes", controllers.GetVatCodes)
	protected.Put("/vat/code/:id", controllers.UpdateVatCode)
	protected.Get("/vat/transactions", controllers.GetVatTransactions)

	// Cash books
	protected.Post("/cashbook", controllers.CreateCashBook)
	protected.Get("/cashbooks", controllers.GetCashBooks)
	protected.Get("/cashbook/:id/transactions", controllers.GetCashBookTransactions)

	// Ledger transactions: header + lines + matching as one unit of work
	modules := map[string]string{
		"purchases": ledger.ModulePurchases,
		"sales":     ledger.ModuleSales,
		"cashbook":  ledger.ModuleCashBook,
		"nominals":  ledger.ModuleNominal,
	}
	for prefix, module := range modules {
		g := protected.Group("/" + prefix)
		g.Post("/transactions", controllers.CreateTransaction(module))
		g.Get("/transactions", controllers.ListTransactions(module))
		g.Get("/transactions/:id", controllers.GetTransaction(module))
		g.Put("/transactions/:id", controllers.EditTransaction(module))
		g.Post("/transactions/:id/void", controllers.VoidTransaction(module))
	}
}
