package controllers

import (
	"fmt"
	"net/mail"
	"regexp"
	"strings"

	"buchhaltung-backend/database"
	"buchhaltung-backend/middlewares"
	"buchhaltung-backend/models"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
)

// Register creates a login identity plus its tenant schema, migrates the
// ledger tables into it and seeds the accounts the posting engine relies on.
func Register(c *fiber.Ctx) error {
	var data map[string]string
	if err := c.BodyParser(&data); err != nil {
		return err
	}

	var mailExist models.User
	database.DB.Where("email = ?", data["email"]).First(&mailExist)
	if mailExist.Email != "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "email already exists",
		})
	}
	if data["password"] != data["password_confirm"] {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "passwords do not match",
		})
	}

	schemaName, err := createSchema(data["business_name"])
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "registration failed",
			"error":   err.Error(),
		})
	}

	user := models.User{
		FirstName:  data["first_name"],
		LastName:   data["last_name"],
		Email:      data["email"],
		SchemaName: schemaName,
	}
	if err := user.SetPassword(data["password"]); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "could not hash password",
		})
	}
	if err := database.DB.Create(&user).Error; err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "could not create user",
			"error":   err.Error(),
		})
	}

	if err := database.MigrateTenantSchema(schemaName); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": "could not migrate tenant schema"})
	}
	if err := seedTenantLedger(schemaName); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": "could not seed ledger defaults"})
	}

	return c.JSON(fiber.Map{
		"id":     user.Id,
		"email":  user.Email,
		"schema": schemaName,
	})
}

// seedTenantLedger installs the accounts the posting engine relies on:
// the sales and purchase ledger controls, the VAT control, a default bank
// nominal with its cash book, and a standard-rate VAT code.
func seedTenantLedger(schema string) error {
	tenantDB, err := database.GetTenantSession(schema)
	if err != nil {
		return err
	}

	nominals := []models.Nominal{
		{Code: "1100", Name: "Sales Ledger Control"},
		{Code: "1200", Name: "Bank Account"},
		{Code: "2100", Name: "Purchase Ledger Control"},
		{Code: "2200", Name: "Vat Control"},
	}
	for i := range nominals {
		if err := tenantDB.Where("code = ?", nominals[i].Code).
			FirstOrCreate(&nominals[i]).Error; err != nil {
			return err
		}
	}

	bank := models.CashBook{Name: "Current", NominalID: nominals[1].ID}
	if err := tenantDB.Where("name = ?", bank.Name).FirstOrCreate(&bank).Error; err != nil {
		return err
	}

	standard := models.VatCode{Code: "1", Name: "Standard Rate", Rate: decimal.NewFromInt(20), Registered: true}
	return tenantDB.Where("code = ?", standard.Code).FirstOrCreate(&standard).Error
}

// createSchema derives a postgres schema name from the business name and
// creates the schema if it does not exist.
func createSchema(business string) (string, error) {
	safeName := strings.ToLower(strings.TrimSpace(business))
	safeName = strings.ReplaceAll(safeName, " ", "_")
	valid := regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)
	if !valid.MatchString(safeName) {
		return "", fmt.Errorf("invalid schema name after sanitization: %s", safeName)
	}
	if err := database.DB.Exec("CREATE SCHEMA IF NOT EXISTS " + safeName).Error; err != nil {
		return "", err
	}
	return safeName, nil
}

func Login(c *fiber.Ctx) error {
	var data map[string]string
	if err := c.BodyParser(&data); err != nil {
		return err
	}
	if _, err := mail.ParseAddress(data["email"]); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "invalid email format"})
	}

	var user models.User
	database.DB.Table("public.users").Where("email = ?", data["email"]).First(&user)
	if user.Id == "" || user.ComparePassword(data["password"]) != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "invalid credentials"})
	}

	token, err := middlewares.GenerateJWT(user.Id, user.SchemaName)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": "could not issue token"})
	}

	// Late migrations for schemas created before the current model set.
	if err := database.MigrateTenantSchema(user.SchemaName); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": "could not migrate tenant schema"})
	}

	return c.JSON(fiber.Map{
		"token":  token,
		"schema": user.SchemaName,
		"user": fiber.Map{
			"id":    user.Id,
			"name":  user.FirstName + " " + user.LastName,
			"email": user.Email,
		},
	})
}

// Logout is a no-op server side: tokens are stateless bearer credentials the
// client discards.
func Logout(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"message": "success"})
}
