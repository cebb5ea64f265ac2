package bank

import (
	"net/http"

	"github.com/faria/mony-api/internal/config"
	"github.com/faria/mony-api/internal/middleware"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
)

func Ping(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func SetupRoutes(cfg config.Config) http.Handler {
	systemUsername = cfg.Bank.SystemUsername

	r := chi.NewRouter()
	r.Use(chimw.StripSlashes)

	r.Get("/ping", Ping)

	r.Get("/user", users.List)
	r.Post("/user", users.Create)
	r.Get("/user/{id}", users.Get)

	sources.mount(r, "/source")
	institutions.mount(r, "/institution")
	accounts.mount(r, "/account")
	paytypes.mount(r, "/paytype")
	categories.mount(r, "/category")
	tags.mount(r, "/tag")
	sellers.mount(r, "/seller")
	prefAccounts.mount(r, "/pref-account")
	locations.mount(r, "/location")
	orders.mount(r, "/order")

	r.Get("/expense-catg", expenseCatgs.List)
	r.Post("/expense-catg", CreateExpenseCategory)
	r.Get("/expense-catg/{id}", expenseCatgs.Get)
	r.Put("/expense-catg/{id}", expenseCatgs.Replace)
	r.Patch("/expense-catg/{id}", expenseCatgs.Patch)
	r.Delete("/expense-catg/{id}", expenseCatgs.Delete)

	r.Get("/expense/export", ExportExpenses)

	// Routes that record created_by need to know who is asking.
	r.Group(func(r chi.Router) {
		r.Use(middleware.IdentityMiddleware(cfg.Server.IdentityHeader, UserLookup{}))

		incomes.mount(r, "/income")
		expenses.mount(r, "/expense")

		r.Post("/expense-from-order", CreateExpenseFromOrder)
		r.Put("/expense-from-order/{id}", orderExpenses.Replace)
		r.Patch("/expense-from-order/{id}", orderExpenses.Patch)
		r.Post("/expense-from-order-shipment", CreateExpenseFromShipment)
	})

	return r
}
