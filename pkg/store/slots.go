package store

import (
	"fmt"
	"sort"
	"time"

	"github.com/amparo-saude/amparo/internal/observability"
)

// Slot is one bookable appointment slot. Invariant: Available is false
// exactly when Patient is set.
type Slot struct {
	SlotID      string   `json:"slot_id"`
	Time        string   `json:"time"`
	DoctorName  string   `json:"doctor_name"`
	Specialties []string `json:"specialties"`
	Available   bool     `json:"available"`
	Patient     *string  `json:"patient"`
}

// appointmentsDoc is the on-disk shape of the slot document.
type appointmentsDoc struct {
	AvailableSlots map[string][]Slot `json:"available_slots"`
}

// ListSlots returns the full slot calendar keyed by date
func (s *Store) ListSlots() (map[string][]Slot, error) {
	start := time.Now()
	s.apptMu.Lock()
	defer s.apptMu.Unlock()

	var doc appointmentsDoc
	err := loadDocument(s.appointmentsPath, &doc)
	observability.RecordStoreOperation("list_slots", time.Since(start), err == nil)
	if err != nil {
		return nil, err
	}

	return doc.AvailableSlots, nil
}

// Book marks a slot as occupied by a patient document. Booking an occupied
// slot fails instead of overwriting the occupant.
func (s *Store) Book(slotID, patient string) (Result, error) {
	start := time.Now()
	s.apptMu.Lock()
	defer s.apptMu.Unlock()

	var doc appointmentsDoc
	if err := loadDocument(s.appointmentsPath, &doc); err != nil {
		observability.RecordStoreOperation("book", time.Since(start), false)
		return Result{}, err
	}

	for date, slots := range doc.AvailableSlots {
		for i := range slots {
			if slots[i].SlotID != slotID {
				continue
			}

			if !slots[i].Available {
				observability.RecordStoreOperation("book", time.Since(start), false)
				return Result{Success: false, Error: "Slot já agendado"}, nil
			}

			slots[i].Available = false
			slots[i].Patient = &patient
			doc.AvailableSlots[date] = slots

			if err := saveDocument(s.appointmentsPath, &doc); err != nil {
				observability.RecordStoreOperation("book", time.Since(start), false)
				return Result{}, err
			}

			s.logger.Info().Str("slot_id", slotID).Str("patient", patient).Msg("Slot booked")
			observability.RecordStoreOperation("book", time.Since(start), true)
			return Result{Success: true, Message: "Slot agendado"}, nil
		}
	}

	observability.RecordStoreOperation("book", time.Since(start), false)
	return Result{Success: false, Error: "Slot não encontrado"}, nil
}

// Release frees a slot. Releasing an already free slot succeeds.
func (s *Store) Release(slotID string) (Result, error) {
	start := time.Now()
	s.apptMu.Lock()
	defer s.apptMu.Unlock()

	var doc appointmentsDoc
	if err := loadDocument(s.appointmentsPath, &doc); err != nil {
		observability.RecordStoreOperation("release", time.Since(start), false)
		return Result{}, err
	}

	for date, slots := range doc.AvailableSlots {
		for i := range slots {
			if slots[i].SlotID != slotID {
				continue
			}

			slots[i].Available = true
			slots[i].Patient = nil
			doc.AvailableSlots[date] = slots

			if err := saveDocument(s.appointmentsPath, &doc); err != nil {
				observability.RecordStoreOperation("release", time.Since(start), false)
				return Result{}, err
			}

			s.logger.Info().Str("slot_id", slotID).Msg("Slot released")
			observability.RecordStoreOperation("release", time.Since(start), true)
			return Result{Success: true, Message: "Slot liberado"}, nil
		}
	}

	observability.RecordStoreOperation("release", time.Since(start), false)
	return Result{Success: false, Error: "Slot não encontrado"}, nil
}

// FindByPatient returns the earliest-dated slot occupied by the given
// document. The identifier is matched exactly, with no normalization.
func (s *Store) FindByPatient(document string) (Result, error) {
	start := time.Now()
	s.apptMu.Lock()
	defer s.apptMu.Unlock()

	var doc appointmentsDoc
	if err := loadDocument(s.appointmentsPath, &doc); err != nil {
		observability.RecordStoreOperation("find_by_patient", time.Since(start), false)
		return Result{}, err
	}

	// dates scanned in order so the match is stable when a document
	// occupies more than one slot
	dates := make([]string, 0, len(doc.AvailableSlots))
	for date := range doc.AvailableSlots {
		dates = append(dates, date)
	}
	sort.Strings(dates)

	for _, date := range dates {
		for _, slot := range doc.AvailableSlots[date] {
			if slot.Patient == nil || *slot.Patient != document {
				continue
			}

			observability.RecordStoreOperation("find_by_patient", time.Since(start), true)
			return Result{
				Success: true,
				Found:   boolPtr(true),
				Data: map[string]interface{}{
					"date":        date,
					"slot_id":     slot.SlotID,
					"time":        slot.Time,
					"doctor_name": slot.DoctorName,
					"specialties": slot.Specialties,
				},
			}, nil
		}
	}

	observability.RecordStoreOperation("find_by_patient", time.Since(start), true)
	return Result{
		Success: true,
		Found:   boolPtr(false),
		Message: fmt.Sprintf("Nenhum agendamento encontrado para o documento %s", document),
	}, nil
}
