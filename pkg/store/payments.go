package store

import (
	"fmt"
	"time"

	"github.com/amparo-saude/amparo/internal/observability"
)

// Payment is one payment record. Refund removes the earliest record for a
// document; there is no status flag.
type Payment struct {
	PatientName string `json:"patient_name"`
	Document    string `json:"document"`
	Date        string `json:"date"`
	Specialty   string `json:"specialty"`
}

// paymentsDoc is the on-disk shape of the payment document.
type paymentsDoc struct {
	Payments []Payment `json:"payments"`
}

// AddPayment appends a payment record. No duplicate check is made.
func (s *Store) AddPayment(patientName, document, date, specialty string) (Result, error) {
	start := time.Now()
	s.payMu.Lock()
	defer s.payMu.Unlock()

	var doc paymentsDoc
	if err := loadDocument(s.paymentsPath, &doc); err != nil {
		observability.RecordStoreOperation("add_payment", time.Since(start), false)
		return Result{}, err
	}

	doc.Payments = append(doc.Payments, Payment{
		PatientName: patientName,
		Document:    document,
		Date:        date,
		Specialty:   specialty,
	})

	if err := saveDocument(s.paymentsPath, &doc); err != nil {
		observability.RecordStoreOperation("add_payment", time.Since(start), false)
		return Result{}, err
	}

	s.logger.Info().Str("document", document).Str("specialty", specialty).Msg("Payment recorded")
	observability.RecordStoreOperation("add_payment", time.Since(start), true)
	return Result{Success: true, Message: fmt.Sprintf("Pagamento de %s processado", patientName)}, nil
}

// Refund removes the first payment record matching the document, by list
// position. With duplicates only the earliest is removed.
func (s *Store) Refund(document string) (Result, error) {
	start := time.Now()
	s.payMu.Lock()
	defer s.payMu.Unlock()

	var doc paymentsDoc
	if err := loadDocument(s.paymentsPath, &doc); err != nil {
		observability.RecordStoreOperation("refund", time.Since(start), false)
		return Result{}, err
	}

	for i, payment := range doc.Payments {
		if payment.Document != document {
			continue
		}

		doc.Payments = append(doc.Payments[:i], doc.Payments[i+1:]...)

		if err := saveDocument(s.paymentsPath, &doc); err != nil {
			observability.RecordStoreOperation("refund", time.Since(start), false)
			return Result{}, err
		}

		s.logger.Info().Str("document", document).Msg("Payment refunded")
		observability.RecordStoreOperation("refund", time.Since(start), true)
		return Result{Success: true, Message: fmt.Sprintf("Reembolso processado para %s", payment.PatientName)}, nil
	}

	observability.RecordStoreOperation("refund", time.Since(start), false)
	return Result{
		Success: false,
		Error:   fmt.Sprintf("Nenhum pagamento encontrado para o documento %s", document),
	}, nil
}
