package controllers

import (
	"buchhaltung-backend/database"
	"buchhaltung-backend/middlewares"
	"buchhaltung-backend/models"
	"buchhaltung-backend/utils"

	"github.com/gofiber/fiber/v2"
)

// CashBookDTO creates a cash book over a bank nominal.
type CashBookDTO struct {
	Name      string `json:"name" validate:"required,max=50"`
	NominalID uint   `json:"nominal_id" validate:"required"`
}

func CreateCashBook(c *fiber.Ctx) error {
	var dto CashBookDTO
	if err := middlewares.BindAndValidate(c, &dto); err != nil {
		return err
	}
	utils.NormalizeDTO(&dto)

	tx, err := database.GetTenantDB(c)
	if err != nil {
		return err
	}
	var nominal models.Nominal
	if err := tx.First(&nominal, dto.NominalID).Error; err != nil {
		return fiber.NewError(fiber.StatusUnprocessableEntity, "bank nominal not found")
	}
	cb := models.CashBook{Name: dto.Name, NominalID: nominal.ID}
	if err := tx.Create(&cb).Error; err != nil {
		return fiber.NewError(fiber.StatusConflict, "could not create cash book")
	}
	return c.Status(fiber.StatusCreated).JSON(cb)
}

func GetCashBooks(c *fiber.Ctx) error {
	tx, err := database.GetTenantDB(c)
	if err != nil {
		return err
	}
	var books []models.CashBook
	if err := tx.Order("name").Find(&books).Error; err != nil {
		return err
	}
	return c.JSON(books)
}

// GetCashBookTransactions lists the bank legs mirrored into one cash book.
func GetCashBookTransactions(c *fiber.Ctx) error {
	tx, err := database.GetTenantDB(c)
	if err != nil {
		return err
	}
	q := tx.Model(&models.CashBookTransaction{}).Where("cash_book_id = ?", c.Params("id"))
	if period := c.Query("period"); period != "" {
		q = q.Where("period = ?", period)
	}
	limit := utils.ParseIntDefault(c.Query("limit"), 100)
	offset := utils.ParseIntDefault(c.Query("offset"), 0)

	var trans []models.CashBookTransaction
	if err := q.Order("id").Limit(limit).Offset(offset).Find(&trans).Error; err != nil {
		return err
	}
	return c.JSON(trans)
}
