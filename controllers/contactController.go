package controllers

import (
	"buchhaltung-backend/database"
	"buchhaltung-backend/middlewares"
	"buchhaltung-backend/models"
	"buchhaltung-backend/utils"

	"github.com/gofiber/fiber/v2"
)

// ContactDTO creates a customer and/or supplier.
type ContactDTO struct {
	Code     string `json:"code" validate:"required,max=10"`
	Name     string `json:"name" validate:"required,max=100"`
	Email    string `json:"email" validate:"omitempty,email"`
	Customer bool   `json:"customer"`
	Supplier bool   `json:"supplier"`
}

// ContactPatchDTO updates only the supplied fields.
type ContactPatchDTO struct {
	Name     *string `json:"name" validate:"omitempty,max=100"`
	Email    *string `json:"email" validate:"omitempty,email"`
	Customer *bool   `json:"customer"`
	Supplier *bool   `json:"supplier"`
}

func CreateContact(c *fiber.Ctx) error {
	var dto ContactDTO
	if err := middlewares.BindAndValidate(c, &dto); err != nil {
		return err
	}
	utils.NormalizeDTO(&dto)

	tx, err := database.GetTenantDB(c)
	if err != nil {
		return err
	}
	contact := models.Contact{
		Code:     dto.Code,
		Name:     dto.Name,
		Email:    dto.Email,
		Customer: dto.Customer,
		Supplier: dto.Supplier,
	}
	if err := tx.Create(&contact).Error; err != nil {
		return fiber.NewError(fiber.StatusConflict, "could not create contact")
	}
	return c.Status(fiber.StatusCreated).JSON(contact)
}

func GetContacts(c *fiber.Ctx) error {
	tx, err := database.GetTenantDB(c)
	if err != nil {
		return err
	}
	q := tx.Model(&models.Contact{})
	switch c.Query("kind") {
	case "customer":
		q = q.Where("customer")
	case "supplier":
		q = q.Where("supplier")
	}
	var contacts []models.Contact
	if err := q.Order("code").Find(&contacts).Error; err != nil {
		return err
	}
	return c.JSON(contacts)
}

func GetContact(c *fiber.Ctx) error {
	tx, err := database.GetTenantDB(c)
	if err != nil {
		return err
	}
	var contact models.Contact
	if err := tx.First(&contact, c.Params("id")).Error; err != nil {
		return err
	}
	return c.JSON(contact)
}

func UpdateContact(c *fiber.Ctx) error {
	var dto ContactPatchDTO
	if err := middlewares.BindAndValidate(c, &dto); err != nil {
		return err
	}
	utils.NormalizePtrDTO(&dto)

	tx, err := database.GetTenantDB(c)
	if err != nil {
		return err
	}
	var contact models.Contact
	if err := tx.First(&contact, c.Params("id")).Error; err != nil {
		return err
	}
	updates := utils.PatchUpdates(&dto)
	if len(updates) > 0 {
		if err := tx.Model(&contact).Updates(updates).Error; err != nil {
			return err
		}
	}
	return c.JSON(contact)
}
