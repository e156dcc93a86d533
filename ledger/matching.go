package ledger

import (
	"fmt"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"buchhaltung-backend/models"
	"buchhaltung-backend/utils"
)

// Instruction is one allocation request against a counterparty header.
// Value follows the Matching row convention: it is the amount of the row's
// matched_to balance being allocated. MatchingID zero means a new match is
// being established with the subject as matched_by.
type Instruction struct {
	MatchingID uint            `json:"matching_id"`
	HeaderID   uint            `json:"header_id"`
	Value      decimal.Decimal `json:"value"`
}

// allocation is an instruction resolved against loaded state, with the
// orientation of the subject worked out once. cpValue/cpOld are the new and
// previous amounts allocated against the counterparty; the subject-side
// contributions are their negations.
type allocation struct {
	idx          int
	row          *models.Matching // nil for a new match
	counterparty *models.Header
	cpValue      decimal.Decimal
	cpOld        decimal.Decimal
}

func (a *allocation) field() string {
	return fmt.Sprintf("matching.%d", a.idx)
}

// ApplyMatching validates a batch of allocation instructions for the subject
// header and applies them as one state transition: matching rows inserted or
// updated in place, every touched header's paid/due recomputed, subject
// updated once from the aggregate. All validation happens before any write;
// on failure the transaction is left untouched and a ValidationErrors is
// returned carrying every failure at once.
//
// The subject must already be persisted with its final total, and its due
// must equal total - paid as of before this instruction set.
func ApplyMatching(tx *gorm.DB, p *Policy, subject *models.Header, instructions []Instruction, period string) error {
	if len(instructions) == 0 {
		return nil
	}
	if !p.Matchable {
		return FieldError("matching", "transactions in the %s module cannot be matched", p.Module)
	}
	if subject.IsVoid() {
		return FieldError("matching", "cannot match a void transaction")
	}

	allocs, ve := resolveAllocations(tx, p, subject, instructions)
	if ve.Any() {
		return ve
	}
	if ve := validateAllocations(subject, allocs); ve.Any() {
		return ve
	}
	return applyAllocations(tx, subject, allocs, period)
}

// resolveAllocations loads the referenced matching rows and counterparty
// headers and works out the orientation of each instruction.
func resolveAllocations(tx *gorm.DB, p *Policy, subject *models.Header, instructions []Instruction) ([]*allocation, ValidationErrors) {
	ve := ValidationErrors{}

	var rowIDs []uint
	for _, ins := range instructions {
		if ins.MatchingID != 0 {
			rowIDs = append(rowIDs, ins.MatchingID)
		}
	}
	rows := make(map[uint]*models.Matching)
	if len(rowIDs) > 0 {
		var found []*models.Matching
		if err := tx.Where("id IN ?", rowIDs).Find(&found).Error; err != nil {
			return nil, FieldError(NonFieldErrors, "could not load matching records: %v", err)
		}
		for _, r := range found {
			rows[r.ID] = r
		}
	}

	headerIDs := make([]uint, 0, len(instructions))
	for _, ins := range instructions {
		headerIDs = append(headerIDs, ins.HeaderID)
	}
	// Counterparties are loaded inside the caller's transaction so the
	// database's isolation covers the read-validate-write cycle.
	headers := make(map[uint]*models.Header)
	var found []*models.Header
	if err := tx.Where("module = ? AND id IN ?", p.Module, headerIDs).Find(&found).Error; err != nil {
		return nil, FieldError(NonFieldErrors, "could not load matched transactions: %v", err)
	}
	for _, h := range found {
		headers[h.ID] = h
	}

	// One matching row per pair of headers. A row referenced twice in one
	// request would have its delta applied twice, and a new match against an
	// already-matched counterparty would grow a second row for the same pair.
	var pairRows []*models.Matching
	if err := tx.Where("matched_by_id = ? OR matched_to_id = ?", subject.ID, subject.ID).
		Find(&pairRows).Error; err != nil {
		return nil, FieldError(NonFieldErrors, "could not load matching records: %v", err)
	}
	rowForPair := make(map[uint]uint, len(pairRows))
	for _, r := range pairRows {
		other := r.MatchedToID
		if other == subject.ID {
			other = r.MatchedByID
		}
		rowForPair[other] = r.ID
	}
	seenRows := make(map[uint]bool, len(instructions))
	seenNew := make(map[uint]bool, len(instructions))

	allocs := make([]*allocation, 0, len(instructions))
	for i, ins := range instructions {
		a := &allocation{idx: i}
		cp, ok := headers[ins.HeaderID]
		if !ok {
			ve.Add(a.field()+".header_id", "transaction %d was not found in this ledger", ins.HeaderID)
			continue
		}
		if cp.ID == subject.ID {
			ve.Add(a.field()+".header_id", "a transaction cannot be matched to itself")
			continue
		}
		if cp.IsVoid() {
			ve.Add(a.field()+".header_id", "cannot match to a void transaction")
			continue
		}
		a.counterparty = cp

		if ins.MatchingID == 0 {
			if rowID, matched := rowForPair[cp.ID]; matched {
				ve.Add(a.field()+".header_id",
					"transaction %d is already matched by record %d; update that record instead", cp.ID, rowID)
				continue
			}
			if seenNew[cp.ID] {
				ve.Add(a.field()+".header_id", "transaction %d appears more than once in this request", cp.ID)
				continue
			}
			seenNew[cp.ID] = true
			// New match: subject initiates, value allocates against the
			// counterparty directly.
			a.cpValue = ins.Value
		} else {
			if seenRows[ins.MatchingID] {
				ve.Add(a.field()+".matching_id", "matching record %d appears more than once in this request", ins.MatchingID)
				continue
			}
			seenRows[ins.MatchingID] = true
			row, ok := rows[ins.MatchingID]
			if !ok {
				ve.Add(a.field()+".matching_id", "matching record %d was not found", ins.MatchingID)
				continue
			}
			a.row = row
			switch {
			case row.MatchedByID == subject.ID && row.MatchedToID == cp.ID:
				a.cpValue, a.cpOld = ins.Value, row.Value
			case row.MatchedToID == subject.ID && row.MatchedByID == cp.ID:
				// Subject sits on the matched_to side: the row's value moves
				// the subject, so the counterparty sees the negation.
				a.cpValue, a.cpOld = ins.Value.Neg(), row.Value.Neg()
			default:
				ve.Add(a.field()+".matching_id", "matching record %d does not involve this transaction", ins.MatchingID)
				continue
			}
		}
		allocs = append(allocs, a)
	}
	return allocs, ve
}

// validateAllocations runs the bound rules over the proposed state. Pure:
// nothing is written.
func validateAllocations(subject *models.Header, allocs []*allocation) ValidationErrors {
	ve := ValidationErrors{}

	// Per-instruction bound: the value allocated against a counterparty must
	// stay within the window its outstanding balance leaves open, preserving
	// sign. The window is [0, due+old] so resubmitting an unchanged value is
	// always inside it.
	type aggregate struct {
		header   *models.Header
		val, old decimal.Decimal
	}
	perHeader := make(map[uint]*aggregate)
	for _, a := range allocs {
		bound := a.counterparty.Due.Add(a.cpOld)
		if !utils.Between(a.cpValue, bound) {
			lo, hi := ordered(decimal.Zero, bound)
			ve.Add(a.field()+".value", "value must be between %s and %s", lo, hi)
		}
		agg, ok := perHeader[a.counterparty.ID]
		if !ok {
			agg = &aggregate{header: a.counterparty}
			perHeader[a.counterparty.ID] = agg
		}
		agg.val = agg.val.Add(a.cpValue)
		agg.old = agg.old.Add(a.cpOld)
	}

	// Per-counterparty aggregate: several instructions may target the same
	// header; their combined allocation must respect the same window.
	for _, agg := range perHeader {
		bound := agg.header.Due.Add(agg.old)
		if !utils.Between(agg.val, bound) {
			lo, hi := ordered(decimal.Zero, bound)
			ve.Add(NonFieldErrors,
				"total matched against transaction %d must be between %s and %s",
				agg.header.ID, lo, hi)
		}
	}

	// Subject bound: the aggregate signed sum must leave the subject's own
	// due between 0 and its total. A zero-total header therefore only
	// accepts instruction sets netting to exactly zero.
	var sumNew, sumOld decimal.Decimal
	for _, a := range allocs {
		sumNew = sumNew.Add(a.cpValue.Neg())
		sumOld = sumOld.Add(a.cpOld.Neg())
	}
	newPaid := subject.Paid.Add(sumNew).Sub(sumOld)
	newDue := subject.Total.Sub(newPaid)
	if !utils.Between(newDue, subject.Total) {
		lo, hi := ordered(sumOld.Sub(subject.Paid), sumOld.Add(subject.Due))
		ve.Add(NonFieldErrors,
			"the total of the transactions you are matching must be between %s and %s",
			lo, hi)
	}
	return ve
}

// applyAllocations persists the validated instruction set: delta-based
// updates on every counterparty, a single aggregate update on the subject,
// and the matching rows themselves.
func applyAllocations(tx *gorm.DB, subject *models.Header, allocs []*allocation, period string) error {
	touched := make(map[uint]*models.Header)
	var subjectDelta decimal.Decimal

	for _, a := range allocs {
		cp := a.counterparty
		delta := a.cpValue.Sub(a.cpOld)
		cp.Due = cp.Due.Sub(delta)
		cp.Paid = cp.Total.Sub(cp.Due)
		touched[cp.ID] = cp
		subjectDelta = subjectDelta.Add(delta.Neg())

		if a.row == nil {
			row := &models.Matching{
				MatchedByID:   subject.ID,
				MatchedToID:   cp.ID,
				MatchedByType: subject.Type,
				MatchedToType: cp.Type,
				Value:         a.cpValue,
				Period:        period,
			}
			if err := tx.Create(row).Error; err != nil {
				return err
			}
		} else {
			// Keep the row's own orientation: write back the value in the
			// row convention, not the subject-perspective form.
			val := a.cpValue
			if a.row.MatchedByID != subject.ID {
				val = a.cpValue.Neg()
			}
			updates := map[string]any{"value": val, "period": period}
			if err := tx.Model(&models.Matching{}).Where("id = ?", a.row.ID).Updates(updates).Error; err != nil {
				return err
			}
		}
	}

	subject.Paid = subject.Paid.Add(subjectDelta)
	subject.Due = subject.Total.Sub(subject.Paid)

	for _, cp := range touched {
		if err := tx.Model(&models.Header{}).Where("id = ?", cp.ID).
			Updates(map[string]any{"paid": cp.Paid, "due": cp.Due}).Error; err != nil {
			return err
		}
	}
	return tx.Model(&models.Header{}).Where("id = ?", subject.ID).
		Updates(map[string]any{"paid": subject.Paid, "due": subject.Due}).Error
}

// VoidMatching unwinds every matching row the subject participates in,
// restoring each counterparty's outstanding balance, and zeroes the
// subject's own paid/due. Called as part of voiding a header.
func VoidMatching(tx *gorm.DB, subject *models.Header) error {
	var rows []*models.Matching
	if err := tx.Where("matched_by_id = ? OR matched_to_id = ?", subject.ID, subject.ID).
		Find(&rows).Error; err != nil {
		return err
	}
	for _, row := range rows {
		cpID := row.MatchedToID
		cpDelta := row.Value // allocation held against the counterparty
		if row.MatchedToID == subject.ID {
			cpID = row.MatchedByID
			cpDelta = row.Value.Neg()
		}
		var cp models.Header
		if err := tx.First(&cp, cpID).Error; err != nil {
			return err
		}
		cp.Due = cp.Due.Add(cpDelta)
		cp.Paid = cp.Total.Sub(cp.Due)
		if err := tx.Model(&models.Header{}).Where("id = ?", cp.ID).
			Updates(map[string]any{"paid": cp.Paid, "due": cp.Due}).Error; err != nil {
			return err
		}
		if err := tx.Delete(row).Error; err != nil {
			return err
		}
	}
	subject.Paid = decimal.Zero
	subject.Due = decimal.Zero
	return nil
}

func ordered(a, b decimal.Decimal) (decimal.Decimal, decimal.Decimal) {
	if a.GreaterThan(b) {
		return b, a
	}
	return a, b
}
