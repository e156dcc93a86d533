package ledger

import (
	"fmt"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"buchhaltung-backend/models"
)

// Accounts carries the account references a post needs: the module's
// control account (creditors/debtors, or the bank nominal for cash book
// analysis), the VAT control account and the bank nominal for cash posts.
type Accounts struct {
	Control *models.Nominal
	Vat     *models.Nominal
	Bank    *models.Nominal
}

// Cash posts carry no analysis lines; the bank and control legs use fixed
// pseudo line numbers so the (module, header, line, field) key stays unique.
const (
	cashBankLine    = 1
	cashControlLine = 2
)

// Validate checks a header and its lines against the module's type policy
// before anything is written: line requirement, mandatory nominal/vat codes,
// and the arithmetic between lines and header amounts.
func Validate(p *Policy, h *models.Header, lines []*models.Line) ValidationErrors {
	ve := ValidationErrors{}
	k, ok := p.Kind(h.Type)
	if !ok {
		ve.Add("type", "%q is not a valid type for the %s module", h.Type, p.Module)
		return ve
	}

	switch k.Lines {
	case LinesRequired:
		if len(lines) == 0 {
			ve.Add("lines", "a %s requires at least one line", k.Name)
			return ve
		}
	case LinesForbidden:
		if len(lines) > 0 {
			ve.Add("lines", "a %s cannot have lines", k.Name)
			return ve
		}
	}

	needNominal := k.Posting == LinePost || k.Posting == JournalPost
	needVatCode := k.Posting == LinePost && p.VatTypeFor(h.Type) != ""
	goods, vat := decimal.Zero, decimal.Zero
	for _, l := range lines {
		field := fmt.Sprintf("lines.%d", l.LineNo)
		if needNominal && l.NominalID == nil {
			ve.Add(field+".nominal", "nominal is required on this line")
		}
		if needVatCode && l.VatCodeID == nil {
			ve.Add(field+".vat_code", "vat code is required on this line")
		}
		goods = goods.Add(l.Goods)
		vat = vat.Add(l.Vat)
	}

	if len(lines) > 0 {
		if !goods.Equal(h.Goods) || !vat.Equal(h.Vat) {
			ve.Add(NonFieldErrors, "lines do not total the header amount")
		}
	}
	// Payment kinds carry a bare total; goods and vat stay zero.
	if k.Lines == LinesRequired && !h.Goods.Add(h.Vat).Equal(h.Total) {
		ve.Add(NonFieldErrors, "goods and vat do not total %s", h.Total)
	}
	if k.Posting == JournalPost && !h.Total.IsZero() {
		ve.Add(NonFieldErrors, "journal debits and credits must balance")
	}
	return ve
}

// Post generates the nominal-ledger, VAT-ledger and cash-book rows for a
// freshly saved header and links them back to its lines. Nothing is written
// if validation fails.
func Post(tx *gorm.DB, p *Policy, h *models.Header, lines []*models.Line, acc Accounts) error {
	if ve := Validate(p, h, lines); ve.Any() {
		return ve
	}
	k, _ := p.Kind(h.Type)

	switch k.Posting {
	case NoPost:
		return nil
	case CashPost:
		return postCash(tx, p, h, acc)
	}

	nomTrans := buildLineEntries(p, k, h, lines, acc)
	if len(nomTrans) > 0 {
		if err := tx.Create(&nomTrans).Error; err != nil {
			return err
		}
	}
	vatTrans, err := buildVatEntries(tx, p, h, lines)
	if err != nil {
		return err
	}
	if len(vatTrans) > 0 {
		if err := tx.Create(&vatTrans).Error; err != nil {
			return err
		}
	}
	if err := relinkLines(tx, lines, nomTrans, vatTrans); err != nil {
		return err
	}

	if k.Payment && h.CashBookID != nil {
		cbTrans := buildCashBookEntries(p, k, h, lines)
		if len(cbTrans) > 0 {
			if err := tx.Create(&cbTrans).Error; err != nil {
				return err
			}
		}
	}
	return nil
}

// Repost reconciles the subsidiary rows of an edited header with its final
// line set: existing rows are updated in place (keyed by line and field, not
// by position), missing rows created, orphaned rows deleted.
func Repost(tx *gorm.DB, p *Policy, h *models.Header, lines []*models.Line, acc Accounts) error {
	if ve := Validate(p, h, lines); ve.Any() {
		return ve
	}
	k, _ := p.Kind(h.Type)
	if k.Posting == NoPost {
		return nil
	}

	var desiredNom []*models.NominalTransaction
	var desiredVat []*models.VatTransaction
	var desiredCB []*models.CashBookTransaction
	if k.Posting == CashPost {
		desiredNom = buildCashEntries(p, h, acc)
	} else {
		desiredNom = buildLineEntries(p, k, h, lines, acc)
		var err error
		desiredVat, err = buildVatEntries(tx, p, h, lines)
		if err != nil {
			return err
		}
	}
	if k.Payment && h.CashBookID != nil {
		if k.Posting == CashPost {
			desiredCB = buildCashMirror(p, h)
		} else {
			desiredCB = buildCashBookEntries(p, k, h, lines)
		}
	}

	if err := reconcileNominal(tx, p, h, desiredNom); err != nil {
		return err
	}
	if err := reconcileVat(tx, p, h, desiredVat); err != nil {
		return err
	}
	if err := reconcileCashBook(tx, p, h, desiredCB); err != nil {
		return err
	}
	if k.Posting == CashPost {
		return nil
	}
	return relinkLines(tx, lines, desiredNom, desiredVat)
}

// VoidPostings removes every subsidiary ledger row the header generated.
func VoidPostings(tx *gorm.DB, p *Policy, h *models.Header) error {
	if err := tx.Where("module = ? AND header = ?", p.Module, h.ID).
		Delete(&models.NominalTransaction{}).Error; err != nil {
		return err
	}
	if err := tx.Where("module = ? AND header = ?", p.Module, h.ID).
		Delete(&models.VatTransaction{}).Error; err != nil {
		return err
	}
	return tx.Where("module = ? AND header = ?", p.Module, h.ID).
		Delete(&models.CashBookTransaction{}).Error
}

// buildLineEntries emits the signed triple per line: goods to the line's
// nominal, vat to the VAT control, total to the module control. The three
// values always sum to zero. Journals carry no control leg.
func buildLineEntries(p *Policy, k KindSpec, h *models.Header, lines []*models.Line, acc Accounts) []*models.NominalTransaction {
	var out []*models.NominalTransaction
	entry := func(lineNo int, field string, nominalID uint, value decimal.Decimal) {
		out = append(out, &models.NominalTransaction{
			Module:    p.Module,
			Header:    h.ID,
			Line:      lineNo,
			Field:     field,
			NominalID: nominalID,
			Value:     value,
			Ref:       h.Ref,
			Period:    h.Period,
			Date:      h.Date,
			Type:      h.Type,
		})
	}
	for _, l := range lines {
		if !l.Goods.IsZero() {
			entry(l.LineNo, models.FieldGoods, *l.NominalID, l.Goods.Neg())
		}
		if !l.Vat.IsZero() {
			entry(l.LineNo, models.FieldVat, acc.Vat.ID, l.Vat.Neg())
		}
		if k.Posting != JournalPost && (!l.Goods.IsZero() || !l.Vat.IsZero()) {
			entry(l.LineNo, models.FieldTotal, acc.Control.ID, l.Goods.Add(l.Vat))
		}
	}
	return out
}

// buildCashEntries is the simplified two-entry post for payment types:
// bank gets -total, the module control +total.
func buildCashEntries(p *Policy, h *models.Header, acc Accounts) []*models.NominalTransaction {
	if h.Total.IsZero() {
		return nil
	}
	entry := func(lineNo int, nominalID uint, value decimal.Decimal) *models.NominalTransaction {
		return &models.NominalTransaction{
			Module:    p.Module,
			Header:    h.ID,
			Line:      lineNo,
			Field:     models.FieldTotal,
			NominalID: nominalID,
			Value:     value,
			Ref:       h.Ref,
			Period:    h.Period,
			Date:      h.Date,
			Type:      h.Type,
		}
	}
	return []*models.NominalTransaction{
		entry(cashBankLine, acc.Bank.ID, h.Total.Neg()),
		entry(cashControlLine, acc.Control.ID, h.Total),
	}
}

func postCash(tx *gorm.DB, p *Policy, h *models.Header, acc Accounts) error {
	nomTrans := buildCashEntries(p, h, acc)
	if len(nomTrans) > 0 {
		if err := tx.Create(&nomTrans).Error; err != nil {
			return err
		}
	}
	if cbTrans := buildCashMirror(p, h); len(cbTrans) > 0 {
		if err := tx.Create(&cbTrans).Error; err != nil {
			return err
		}
	}
	return nil
}

// buildCashMirror is the cash book's copy of a payment's bank leg.
func buildCashMirror(p *Policy, h *models.Header) []*models.CashBookTransaction {
	if h.CashBookID == nil || h.Total.IsZero() {
		return nil
	}
	return []*models.CashBookTransaction{{
		Module:     p.Module,
		Header:     h.ID,
		Line:       cashBankLine,
		Field:      models.FieldTotal,
		CashBookID: *h.CashBookID,
		Value:      h.Total.Neg(),
		Ref:        h.Ref,
		Period:     h.Period,
		Date:       h.Date,
		Type:       h.Type,
	}}
}

// buildVatEntries emits one VAT-ledger row per line carrying goods or vat,
// denormalizing the line's figures and the rate in force at posting time.
func buildVatEntries(tx *gorm.DB, p *Policy, h *models.Header, lines []*models.Line) ([]*models.VatTransaction, error) {
	vatType := p.VatTypeFor(h.Type)
	if vatType == "" {
		return nil, nil
	}
	rates, err := vatRates(tx, lines)
	if err != nil {
		return nil, err
	}
	var out []*models.VatTransaction
	for _, l := range lines {
		if l.Goods.IsZero() && l.Vat.IsZero() {
			continue
		}
		vt := &models.VatTransaction{
			Module:   p.Module,
			Header:   h.ID,
			Line:     l.LineNo,
			Field:    models.FieldVat,
			TranType: h.Type,
			VatType:  vatType,
			Goods:    l.Goods,
			Vat:      l.Vat,
			Ref:      h.Ref,
			Period:   h.Period,
			Date:     h.Date,
		}
		if l.VatCodeID != nil {
			vt.VatCodeID = l.VatCodeID
			vt.VatRate = rates[*l.VatCodeID]
		}
		out = append(out, vt)
	}
	return out, nil
}

func vatRates(tx *gorm.DB, lines []*models.Line) (map[uint]decimal.Decimal, error) {
	rates := make(map[uint]decimal.Decimal)
	var missing []uint
	for _, l := range lines {
		if l.VatCodeID == nil {
			continue
		}
		if l.VatCode != nil {
			rates[*l.VatCodeID] = l.VatCode.Rate
		} else if _, seen := rates[*l.VatCodeID]; !seen {
			missing = append(missing, *l.VatCodeID)
		}
	}
	if len(missing) > 0 {
		var codes []models.VatCode
		if err := tx.Where("id IN ?", missing).Find(&codes).Error; err != nil {
			return nil, err
		}
		for _, vc := range codes {
			rates[vc.ID] = vc.Rate
		}
	}
	return rates, nil
}

func buildCashBookEntries(p *Policy, k KindSpec, h *models.Header, lines []*models.Line) []*models.CashBookTransaction {
	var out []*models.CashBookTransaction
	for _, l := range lines {
		if l.Goods.IsZero() && l.Vat.IsZero() {
			continue
		}
		out = append(out, &models.CashBookTransaction{
			Module:     p.Module,
			Header:     h.ID,
			Line:       l.LineNo,
			Field:      models.FieldTotal,
			CashBookID: *h.CashBookID,
			Value:      l.Goods.Add(l.Vat),
			Ref:        h.Ref,
			Period:     h.Period,
			Date:       h.Date,
			Type:       h.Type,
		})
	}
	return out
}

type entryKey struct {
	line  int
	field string
}

// relinkLines attaches the generated rows back onto each line's weak
// references, looked up by (line, field) rather than slice position.
func relinkLines(tx *gorm.DB, lines []*models.Line, nomTrans []*models.NominalTransaction, vatTrans []*models.VatTransaction) error {
	nomByKey := make(map[entryKey]*models.NominalTransaction, len(nomTrans))
	for _, nt := range nomTrans {
		nomByKey[entryKey{nt.Line, nt.Field}] = nt
	}
	vatByLine := make(map[int]*models.VatTransaction, len(vatTrans))
	for _, vt := range vatTrans {
		vatByLine[vt.Line] = vt
	}
	for _, l := range lines {
		updates := map[string]any{
			"goods_nominal_transaction_id": nil,
			"vat_nominal_transaction_id":   nil,
			"total_nominal_transaction_id": nil,
			"vat_transaction_id":           nil,
		}
		if nt, ok := nomByKey[entryKey{l.LineNo, models.FieldGoods}]; ok {
			updates["goods_nominal_transaction_id"] = nt.ID
			l.GoodsNominalTransactionID = &nt.ID
		}
		if nt, ok := nomByKey[entryKey{l.LineNo, models.FieldVat}]; ok {
			updates["vat_nominal_transaction_id"] = nt.ID
			l.VatNominalTransactionID = &nt.ID
		}
		if nt, ok := nomByKey[entryKey{l.LineNo, models.FieldTotal}]; ok {
			updates["total_nominal_transaction_id"] = nt.ID
			l.TotalNominalTransactionID = &nt.ID
		}
		if vt, ok := vatByLine[l.LineNo]; ok {
			updates["vat_transaction_id"] = vt.ID
			l.VatTransactionID = &vt.ID
		}
		if err := tx.Model(&models.Line{}).Where("id = ?", l.ID).Updates(updates).Error; err != nil {
			return err
		}
	}
	return nil
}

func reconcileNominal(tx *gorm.DB, p *Policy, h *models.Header, desired []*models.NominalTransaction) error {
	var existing []*models.NominalTransaction
	if err := tx.Where("module = ? AND header = ?", p.Module, h.ID).Find(&existing).Error; err != nil {
		return err
	}
	byKey := make(map[entryKey]*models.NominalTransaction, len(existing))
	for _, nt := range existing {
		byKey[entryKey{nt.Line, nt.Field}] = nt
	}
	for _, d := range desired {
		if cur, ok := byKey[entryKey{d.Line, d.Field}]; ok {
			d.ID = cur.ID
			if err := tx.Save(d).Error; err != nil {
				return err
			}
			delete(byKey, entryKey{d.Line, d.Field})
		} else if err := tx.Create(d).Error; err != nil {
			return err
		}
	}
	for _, orphan := range byKey {
		if err := tx.Delete(orphan).Error; err != nil {
			return err
		}
	}
	return nil
}

func reconcileVat(tx *gorm.DB, p *Policy, h *models.Header, desired []*models.VatTransaction) error {
	var existing []*models.VatTransaction
	if err := tx.Where("module = ? AND header = ?", p.Module, h.ID).Find(&existing).Error; err != nil {
		return err
	}
	byLine := make(map[int]*models.VatTransaction, len(existing))
	for _, vt := range existing {
		byLine[vt.Line] = vt
	}
	for _, d := range desired {
		if cur, ok := byLine[d.Line]; ok {
			d.ID = cur.ID
			if err := tx.Save(d).Error; err != nil {
				return err
			}
			delete(byLine, d.Line)
		} else if err := tx.Create(d).Error; err != nil {
			return err
		}
	}
	for _, orphan := range byLine {
		if err := tx.Delete(orphan).Error; err != nil {
			return err
		}
	}
	return nil
}

func reconcileCashBook(tx *gorm.DB, p *Policy, h *models.Header, desired []*models.CashBookTransaction) error {
	var existing []*models.CashBookTransaction
	if err := tx.Where("module = ? AND header = ?", p.Module, h.ID).Find(&existing).Error; err != nil {
		return err
	}
	byLine := make(map[int]*models.CashBookTransaction, len(existing))
	for _, cbt := range existing {
		byLine[cbt.Line] = cbt
	}
	for _, d := range desired {
		if cur, ok := byLine[d.Line]; ok {
			d.ID = cur.ID
			if err := tx.Save(d).Error; err != nil {
				return err
			}
			delete(byLine, d.Line)
		} else if err := tx.Create(d).Error; err != nil {
			return err
		}
	}
	for _, orphan := range byLine {
		if err := tx.Delete(orphan).Error; err != nil {
			return err
		}
	}
	return nil
}
