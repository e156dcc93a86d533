package controllers

import (
	"os"
	"time"

	"buchhaltung-backend/database"
	"buchhaltung-backend/ledger"
	"buchhaltung-backend/middlewares"
	"buchhaltung-backend/models"
	"buchhaltung-backend/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// TransactionLineDTO is one analysis row of an incoming transaction. ID is
// set on edits for lines that already exist; Delete marks a line for
// removal (its subsidiary ledger rows go with it).
type TransactionLineDTO struct {
	ID          uint            `json:"id"`
	Description string          `json:"description" validate:"max=100"`
	Goods       decimal.Decimal `json:"goods"`
	Vat         decimal.Decimal `json:"vat"`
	NominalID   *uint           `json:"nominal_id"`
	VatCodeID   *uint           `json:"vat_code_id"`
	Delete      bool            `json:"delete"`
}

// TransactionDTO is the create/edit payload: header fields, lines and
// matching instructions submitted as one unit of work. Amounts are entered
// positive; credit types are negated at this boundary.
type TransactionDTO struct {
	Type       string               `json:"type" validate:"required,max=3"`
	Ref        string               `json:"ref" validate:"required,max=20"`
	ContactID  *uint                `json:"contact_id"`
	CashBookID *uint                `json:"cash_book_id"`
	Date       time.Time            `json:"date" validate:"required"`
	DueDate    *time.Time           `json:"due_date"`
	Period     string               `json:"period" validate:"required,len=6"`
	Discount   decimal.Decimal      `json:"discount"`
	Total      decimal.Decimal      `json:"total"` // payment types only; line types derive it
	Lines      []TransactionLineDTO `json:"lines" validate:"dive"`
	Matching   []ledger.Instruction `json:"matching" validate:"dive"`
}

// envNominalCode resolves a control account code with a default.
func envNominalCode(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

var controlCodes = map[string]func() string{
	ledger.ModulePurchases: func() string { return envNominalCode("PL_CONTROL_NOMINAL_CODE", "2100") },
	ledger.ModuleSales:     func() string { return envNominalCode("SL_CONTROL_NOMINAL_CODE", "1100") },
}

// ledgerAccounts resolves the account references a post needs: the module
// control, the VAT control, and the bank nominal of the header's cash book.
// Non-posting kinds resolve nothing, so brought-forward entries work before
// any control account exists.
func ledgerAccounts(tx *gorm.DB, p *ledger.Policy, k ledger.KindSpec, h *models.Header) (ledger.Accounts, error) {
	var acc ledger.Accounts
	if k.Posting == ledger.NoPost {
		return acc, nil
	}

	var vatNom models.Nominal
	vatCode := envNominalCode("VAT_CONTROL_NOMINAL_CODE", "2200")
	if err := tx.Where("code = ?", vatCode).First(&vatNom).Error; err != nil {
		return acc, ledger.FieldError(ledger.NonFieldErrors, "vat control nominal %s is not configured", vatCode)
	}
	acc.Vat = &vatNom

	if h.CashBookID != nil {
		var cb models.CashBook
		if err := tx.Preload("Nominal").First(&cb, *h.CashBookID).Error; err != nil {
			return acc, ledger.FieldError("cash_book_id", "cash book %d was not found", *h.CashBookID)
		}
		acc.Bank = &cb.Nominal
	}

	switch p.Module {
	case ledger.ModuleCashBook:
		// Cash book lines post their control leg straight to the bank.
		if acc.Bank == nil {
			return acc, ledger.FieldError("cash_book_id", "a cash book is required")
		}
		acc.Control = acc.Bank
	case ledger.ModuleNominal:
		// Journals carry no control leg.
	default:
		code := controlCodes[p.Module]()
		var control models.Nominal
		if err := tx.Where("code = ?", code).First(&control).Error; err != nil {
			return acc, ledger.FieldError(ledger.NonFieldErrors, "control nominal %s is not configured", code)
		}
		acc.Control = &control
	}
	return acc, nil
}

// buildAmounts turns the DTO's lines (or total, for payment types) into
// canonically signed line models and header amounts.
func buildAmounts(p *ledger.Policy, k ledger.KindSpec, dto *TransactionDTO) ([]*models.Line, decimal.Decimal, decimal.Decimal, decimal.Decimal) {
	if k.Lines == ledger.LinesForbidden {
		total := p.SignedTotal(dto.Type, dto.Total.Round(2))
		return nil, decimal.Zero, decimal.Zero, total
	}
	var lines []*models.Line
	goods, vat := decimal.Zero, decimal.Zero
	n := 0
	for _, ld := range dto.Lines {
		if ld.Delete {
			continue
		}
		n++
		l := &models.Line{
			ID:          ld.ID,
			LineNo:      n,
			Type:        dto.Type,
			Description: ld.Description,
			Goods:       p.SignedTotal(dto.Type, ld.Goods.Round(2)),
			Vat:         p.SignedTotal(dto.Type, ld.Vat.Round(2)),
			NominalID:   ld.NominalID,
			VatCodeID:   ld.VatCodeID,
		}
		goods = goods.Add(l.Goods)
		vat = vat.Add(l.Vat)
		lines = append(lines, l)
	}
	return lines, goods, vat, goods.Add(vat)
}

// CreateTransaction handles header + lines + matching in one request for the
// given module. Everything commits or rolls back as one unit of work via the
// TenantTx middleware.
func CreateTransaction(module string) fiber.Handler {
	p, ok := ledger.ForModule(module)
	if !ok {
		panic("unknown ledger module " + module)
	}
	return func(c *fiber.Ctx) error {
		var dto TransactionDTO
		if err := middlewares.BindAndValidate(c, &dto); err != nil {
			return err
		}
		utils.NormalizeDTO(&dto)

		k, ok := p.Kind(dto.Type)
		if !ok {
			return ledger.FieldError("type", "%q is not a valid type for the %s module", dto.Type, p.Module)
		}
		if k.Posting == ledger.CashPost && dto.CashBookID == nil {
			return ledger.FieldError("cash_book_id", "a %s must be entered against a cash book", k.Name)
		}

		lines, goods, vat, total := buildAmounts(p, k, &dto)
		header := &models.Header{
			Module:     p.Module,
			Type:       dto.Type,
			Ref:        dto.Ref,
			ContactID:  dto.ContactID,
			CashBookID: dto.CashBookID,
			Goods:      goods,
			Discount:   dto.Discount,
			Vat:        vat,
			Total:      total,
			Paid:       decimal.Zero,
			Due:        total,
			Date:       dto.Date,
			DueDate:    dto.DueDate,
			Period:     dto.Period,
			Status:     models.StatusCleared,
		}

		// Shape and arithmetic are validated before anything is written.
		if ve := ledger.Validate(p, header, lines); ve.Any() {
			return ve
		}

		tx, err := database.GetTenantDB(c)
		if err != nil {
			return err
		}
		if err := tx.Create(header).Error; err != nil {
			return err
		}
		for _, l := range lines {
			l.HeaderID = header.ID
		}
		if len(lines) > 0 {
			if err := tx.Create(&lines).Error; err != nil {
				return err
			}
		}

		acc, err := ledgerAccounts(tx, p, k, header)
		if err != nil {
			return err
		}
		if err := ledger.Post(tx, p, header, lines, acc); err != nil {
			return err
		}
		if err := ledger.ApplyMatching(tx, p, header, dto.Matching, dto.Period); err != nil {
			return err
		}

		header.Lines = nil
		return c.Status(fiber.StatusCreated).JSON(header)
	}
}

// EditTransaction re-validates and re-applies the whole document: header
// amounts recomputed from the final line set, subsidiary ledger rows
// reconciled in place, matching deltas applied, all in one transaction.
func EditTransaction(module string) fiber.Handler {
	p, ok := ledger.ForModule(module)
	if !ok {
		panic("unknown ledger module " + module)
	}
	return func(c *fiber.Ctx) error {
		tx, err := database.GetTenantDB(c)
		if err != nil {
			return err
		}

		var header models.Header
		if err := tx.Where("module = ?", p.Module).First(&header, c.Params("id")).Error; err != nil {
			return err
		}
		if header.IsVoid() {
			return ledger.FieldError(ledger.NonFieldErrors, "a void transaction cannot be edited")
		}

		var dto TransactionDTO
		if err := middlewares.BindAndValidate(c, &dto); err != nil {
			return err
		}
		utils.NormalizeDTO(&dto)
		if dto.Type != header.Type {
			return ledger.FieldError("type", "the type of a transaction cannot be changed")
		}
		k, _ := p.Kind(header.Type)
		if k.Posting == ledger.CashPost && dto.CashBookID == nil {
			return ledger.FieldError("cash_book_id", "a %s must be entered against a cash book", k.Name)
		}

		var existing []*models.Line
		if err := tx.Where("header_id = ?", header.ID).Order("line_no").Find(&existing).Error; err != nil {
			return err
		}
		existingByID := make(map[uint]*models.Line, len(existing))
		for _, l := range existing {
			existingByID[l.ID] = l
		}

		lines, goods, vat, total := buildAmounts(p, k, &dto)
		var removed []*models.Line
		seen := make(map[uint]bool, len(lines))
		for _, l := range lines {
			if l.ID != 0 {
				if _, ok := existingByID[l.ID]; !ok {
					return ledger.FieldError("lines", "line %d does not belong to this transaction", l.ID)
				}
				seen[l.ID] = true
			}
			l.HeaderID = header.ID
		}
		for _, l := range existing {
			if !seen[l.ID] {
				removed = append(removed, l)
			}
		}

		header.Ref = dto.Ref
		header.ContactID = dto.ContactID
		header.CashBookID = dto.CashBookID
		header.Date = dto.Date
		header.DueDate = dto.DueDate
		header.Period = dto.Period
		header.Discount = dto.Discount
		header.Goods = goods
		header.Vat = vat
		header.Total = total
		header.Due = header.Total.Sub(header.Paid)

		if ve := ledger.Validate(p, &header, lines); ve.Any() {
			return ve
		}
		// Without matching instructions to rebalance it, the new total must
		// still cover whatever is already allocated against this header.
		if len(dto.Matching) == 0 && !utils.Between(header.Due, header.Total) {
			return ledger.FieldError("total",
				"the total cannot move the amount outstanding outside 0 and %s; %s is already matched",
				header.Total, header.Paid)
		}

		if err := tx.Save(&header).Error; err != nil {
			return err
		}
		for _, l := range removed {
			if err := tx.Delete(l).Error; err != nil {
				return err
			}
		}
		for _, l := range lines {
			if err := tx.Save(l).Error; err != nil {
				return err
			}
		}

		acc, err := ledgerAccounts(tx, p, k, &header)
		if err != nil {
			return err
		}
		if err := ledger.Repost(tx, p, &header, lines, acc); err != nil {
			return err
		}
		if err := ledger.ApplyMatching(tx, p, &header, dto.Matching, dto.Period); err != nil {
			return err
		}

		header.Lines = nil
		return c.JSON(header)
	}
}

// VoidTransaction unwinds a header: matchings reversed, subsidiary ledger
// rows deleted, status set to void. The rows of the header itself survive.
func VoidTransaction(module string) fiber.Handler {
	p, ok := ledger.ForModule(module)
	if !ok {
		panic("unknown ledger module " + module)
	}
	return func(c *fiber.Ctx) error {
		tx, err := database.GetTenantDB(c)
		if err != nil {
			return err
		}
		var header models.Header
		if err := tx.Where("module = ?", p.Module).First(&header, c.Params("id")).Error; err != nil {
			return err
		}
		if header.IsVoid() {
			return ledger.FieldError(ledger.NonFieldErrors, "transaction is already void")
		}

		if err := ledger.VoidMatching(tx, &header); err != nil {
			return err
		}
		if err := ledger.VoidPostings(tx, p, &header); err != nil {
			return err
		}
		header.Status = models.StatusVoid
		if err := tx.Save(&header).Error; err != nil {
			return err
		}
		return c.JSON(header)
	}
}

// GetTransaction returns one header with its lines and the matching rows on
// either side of it.
func GetTransaction(module string) fiber.Handler {
	p, ok := ledger.ForModule(module)
	if !ok {
		panic("unknown ledger module " + module)
	}
	return func(c *fiber.Ctx) error {
		tx, err := database.GetTenantDB(c)
		if err != nil {
			return err
		}
		var header models.Header
		if err := tx.Where("module = ?", p.Module).
			Preload("Lines", func(db *gorm.DB) *gorm.DB { return db.Order("line_no") }).
			Preload("Contact").
			First(&header, c.Params("id")).Error; err != nil {
			return err
		}
		var matches []models.Matching
		if err := tx.Where("matched_by_id = ? OR matched_to_id = ?", header.ID, header.ID).
			Find(&matches).Error; err != nil {
			return err
		}
		return c.JSON(fiber.Map{"header": header, "matching": matches})
	}
}

// ListTransactions lists a module's headers, filterable by type, period and
// ref, newest first.
func ListTransactions(module string) fiber.Handler {
	p, ok := ledger.ForModule(module)
	if !ok {
		panic("unknown ledger module " + module)
	}
	return func(c *fiber.Ctx) error {
		tx, err := database.GetTenantDB(c)
		if err != nil {
			return err
		}
		q := tx.Model(&models.Header{}).Where("module = ?", p.Module)
		if t := c.Query("type"); t != "" {
			q = q.Where("type = ?", t)
		}
		if period := c.Query("period"); period != "" {
			q = q.Where("period = ?", period)
		}
		if ref := c.Query("ref"); ref != "" {
			q = q.Where("ref = ?", ref)
		}
		if contact := c.Query("contact_id"); contact != "" {
			q = q.Where("contact_id = ?", contact)
		}
		limit := utils.ParseIntDefault(c.Query("limit"), 50)
		offset := utils.ParseIntDefault(c.Query("offset"), 0)

		var headers []models.Header
		if err := q.Order("id DESC").Limit(limit).Offset(offset).Find(&headers).Error; err != nil {
			return err
		}
		return c.JSON(headers)
	}
}
