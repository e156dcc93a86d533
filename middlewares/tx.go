package middlewares

import (
	"log"
	"strings"

	"buchhaltung-backend/database"

	"github.com/gofiber/fiber/v2"
)

// TenantTx wraps each authenticated request in one database transaction
// pinned to the caller's schema, so a header, its lines, its postings and
// its matchings commit or roll back together. Runs after
// IsAuthenticatedHeader (needs the schema) and after Idempotency (whose
// records must outlive a handler rollback).
func TenantTx() fiber.Handler {
	return func(c *fiber.Ctx) (err error) {
		schema, _ := c.Locals("schema").(string)
		if strings.TrimSpace(schema) == "" {
			// Public endpoints carry no schema.
			return c.Next()
		}

		tx := database.DB.Begin()
		if tx.Error != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "failed to begin transaction")
		}
		defer func() {
			if r := recover(); r != nil {
				tx.Rollback()
				panic(r)
			}
			if err != nil {
				tx.Rollback()
				return
			}
			if e := tx.Commit().Error; e != nil {
				log.Printf("tx commit failed: %v", e)
				err = fiber.NewError(fiber.StatusInternalServerError, "transaction commit failed")
			}
		}()

		// SET LOCAL reverts when the transaction ends.
		if e := tx.Exec(`SET LOCAL search_path = "` + schema + `", public`).Error; e != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "failed to set tenant schema")
		}

		// Handlers reach this transaction through database.GetTenantDB.
		c.Locals("tx", tx)
		return c.Next()
	}
}
