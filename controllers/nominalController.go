package controllers

import (
	"buchhaltung-backend/database"
	"buchhaltung-backend/middlewares"
	"buchhaltung-backend/models"
	"buchhaltung-backend/utils"

	"github.com/gofiber/fiber/v2"
)

// NominalDTO creates or renames a general-ledger account.
type NominalDTO struct {
	Code string `json:"code" validate:"required,max=10"`
	Name string `json:"name" validate:"required,max=50"`
}

func CreateNominal(c *fiber.Ctx) error {
	var dto NominalDTO
	if err := middlewares.BindAndValidate(c, &dto); err != nil {
		return err
	}
	utils.NormalizeDTO(&dto)

	tx, err := database.GetTenantDB(c)
	if err != nil {
		return err
	}
	nominal := models.Nominal{Code: dto.Code, Name: dto.Name}
	if err := tx.Create(&nominal).Error; err != nil {
		return fiber.NewError(fiber.StatusConflict, "could not create nominal")
	}
	return c.Status(fiber.StatusCreated).JSON(nominal)
}

func GetNominals(c *fiber.Ctx) error {
	tx, err := database.GetTenantDB(c)
	if err != nil {
		return err
	}
	var nominals []models.Nominal
	if err := tx.Order("code").Find(&nominals).Error; err != nil {
		return err
	}
	return c.JSON(nominals)
}

func UpdateNominal(c *fiber.Ctx) error {
	var dto NominalDTO
	if err := middlewares.BindAndValidate(c, &dto); err != nil {
		return err
	}
	utils.NormalizeDTO(&dto)

	tx, err := database.GetTenantDB(c)
	if err != nil {
		return err
	}
	var nominal models.Nominal
	if err := tx.First(&nominal, c.Params("id")).Error; err != nil {
		return err
	}
	nominal.Code = dto.Code
	nominal.Name = dto.Name
	if err := tx.Save(&nominal).Error; err != nil {
		return err
	}
	return c.JSON(nominal)
}

// GetNominalTransactions is the general-ledger enquiry: entries filterable
// by nominal, period and module.
func GetNominalTransactions(c *fiber.Ctx) error {
	tx, err := database.GetTenantDB(c)
	if err != nil {
		return err
	}
	q := tx.Model(&models.NominalTransaction{})
	if nominal := c.Query("nominal_id"); nominal != "" {
		q = q.Where("nominal_id = ?", nominal)
	}
	if period := c.Query("period"); period != "" {
		q = q.Where("period = ?", period)
	}
	if module := c.Query("module"); module != "" {
		q = q.Where("module = ?", module)
	}
	limit := utils.ParseIntDefault(c.Query("limit"), 100)
	offset := utils.ParseIntDefault(c.Query("offset"), 0)

	var trans []models.NominalTransaction
	if err := q.Order("id").Limit(limit).Offset(offset).Find(&trans).Error; err != nil {
		return err
	}
	return c.JSON(trans)
}
