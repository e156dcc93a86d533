package controllers

import (
	"buchhaltung-backend/database"
	"buchhaltung-backend/middlewares"
	"buchhaltung-backend/models"
	"buchhaltung-backend/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
)

// VatCodeDTO creates or updates a VAT rate code.
type VatCodeDTO struct {
	Code       string          `json:"code" validate:"required,max=10"`
	Name       string          `json:"name" validate:"required,max=30"`
	Rate       decimal.Decimal `json:"rate"`
	Registered bool            `json:"registered"`
}

func CreateVatCode(c *fiber.Ctx) error {
	var dto VatCodeDTO
	if err := middlewares.BindAndValidate(c, &dto); err != nil {
		return err
	}
	utils.NormalizeDTO(&dto)

	tx, err := database.GetTenantDB(c)
	if err != nil {
		return err
	}
	vc := models.VatCode{Code: dto.Code, Name: dto.Name, Rate: dto.Rate, Registered: dto.Registered}
	if err := tx.Create(&vc).Error; err != nil {
		return fiber.NewError(fiber.StatusConflict, "could not create vat code")
	}
	return c.Status(fiber.StatusCreated).JSON(vc)
}

func GetVatCodes(c *fiber.Ctx) error {
	tx, err := database.GetTenantDB(c)
	if err != nil {
		return err
	}
	var codes []models.VatCode
	if err := tx.Order("code").Find(&codes).Error; err != nil {
		return err
	}
	return c.JSON(codes)
}

func UpdateVatCode(c *fiber.Ctx) error {
	var dto VatCodeDTO
	if err := middlewares.BindAndValidate(c, &dto); err != nil {
		return err
	}
	utils.NormalizeDTO(&dto)

	tx, err := database.GetTenantDB(c)
	if err != nil {
		return err
	}
	var vc models.VatCode
	if err := tx.First(&vc, c.Params("id")).Error; err != nil {
		return err
	}
	vc.Code = dto.Code
	vc.Name = dto.Name
	vc.Rate = dto.Rate
	vc.Registered = dto.Registered
	if err := tx.Save(&vc).Error; err != nil {
		return err
	}
	return c.JSON(vc)
}

// GetVatTransactions feeds VAT-return reporting: entries by period and
// input/output classification.
func GetVatTransactions(c *fiber.Ctx) error {
	tx, err := database.GetTenantDB(c)
	if err != nil {
		return err
	}
	q := tx.Model(&models.VatTransaction{})
	if period := c.Query("period"); period != "" {
		q = q.Where("period = ?", period)
	}
	if vt := c.Query("vat_type"); vt != "" {
		q = q.Where("vat_type = ?", vt)
	}
	limit := utils.ParseIntDefault(c.Query("limit"), 100)
	offset := utils.ParseIntDefault(c.Query("offset"), 0)

	var trans []models.VatTransaction
	if err := q.Order("id").Limit(limit).Offset(offset).Find(&trans).Error; err != nil {
		return err
	}
	return c.JSON(trans)
}
