package middlewares

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
	"time"

	"buchhaltung-backend/database"
	"buchhaltung-backend/models"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// Idempotency replays the stored response for a repeated Idempotency-Key
// instead of running the handler twice, so a retried transaction post cannot
// double-book. Records live in the tenant schema and are written in their
// own short transactions so they survive a handler rollback.
func Idempotency() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !mutating(c.Method()) {
			return c.Next()
		}
		key := strings.TrimSpace(c.Get("Idempotency-Key"))
		if key == "" {
			return c.Next()
		}
		if len(key) > 128 {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "Idempotency-Key too long"})
		}

		schema, _ := c.Locals("schema").(string)
		userID, _ := c.Locals("userID").(string)
		if schema == "" || userID == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "auth context missing"})
		}

		hash := fingerprint(c, schema, userID)

		replayed := false
		err := database.DB.Transaction(func(tx *gorm.DB) error {
			if err := tx.Exec(`SET LOCAL search_path = "` + schema + `", public`).Error; err != nil {
				return fiber.NewError(fiber.StatusInternalServerError, "idempotency schema pin failed")
			}

			var rec models.IdempotencyKey
			err := tx.Where("key = ?", key).First(&rec).Error
			switch {
			case errors.Is(err, gorm.ErrRecordNotFound):
				rec = models.IdempotencyKey{
					Key:          key,
					RequestHash:  hash,
					Method:       c.Method(),
					Path:         c.OriginalURL(),
					TenantSchema: schema,
					UserID:       userID,
				}
				if err := tx.Create(&rec).Error; err == nil {
					return nil
				}
				// Unique race: another request created the record first.
				if err := tx.Where("key = ?", key).First(&rec).Error; err != nil {
					return fiber.NewError(fiber.StatusInternalServerError, "idempotency create failed")
				}
			case err != nil:
				return fiber.NewError(fiber.StatusInternalServerError, "idempotency lookup failed")
			}

			if rec.RequestHash != hash {
				return fiber.NewError(fiber.StatusConflict, "Idempotency-Key reuse with different request")
			}
			if rec.ResponseStatus != 0 && rec.ResponseBody != nil {
				replayed = true
				c.Status(rec.ResponseStatus)
				return c.Send(rec.ResponseBody)
			}
			// Pending: this request runs the handler once.
			return nil
		})
		if err != nil || replayed {
			return err
		}

		if err := c.Next(); err != nil {
			return err
		}

		// Best effort: failing to store the response must not fail the
		// request that already committed.
		_ = database.DB.Transaction(func(tx *gorm.DB) error {
			if err := tx.Exec(`SET LOCAL search_path = "` + schema + `", public`).Error; err != nil {
				return nil
			}
			now := time.Now().UTC()
			body := append([]byte(nil), c.Response().Body()...)
			return tx.Model(&models.IdempotencyKey{}).
				Where("key = ?", key).
				Updates(map[string]any{
					"response_status": c.Response().StatusCode(),
					"response_body":   body,
					"completed_at":    &now,
				}).Error
		})
		return nil
	}
}

func mutating(method string) bool {
	switch strings.ToUpper(method) {
	case fiber.MethodPost, fiber.MethodPut, fiber.MethodPatch, fiber.MethodDelete:
		return true
	}
	return false
}

// fingerprint hashes everything that makes a request "the same request":
// method, URL, body, tenant and user.
func fingerprint(c *fiber.Ctx, schema, userID string) string {
	h := sha256.New()
	for _, part := range [][]byte{
		[]byte(strings.ToUpper(c.Method())),
		[]byte(c.OriginalURL()),
		c.Body(),
		[]byte(schema),
		[]byte(userID),
	} {
		h.Write(part)
		h.Write([]byte{'\n'})
	}
	return hex.EncodeToString(h.Sum(nil))
}
