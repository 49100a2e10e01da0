package agent

import (
	"context"
	"fmt"
	"sort"
)

// examRecord is one stored exam result.
type examRecord struct {
	ExamType string
	Result   string
	Date     string
}

// sampleExams is the exam lookup fixture. Exam results live outside the
// shared store; only appointments and payments are persisted.
var sampleExams = map[string]map[string]examRecord{
	"12345": {
		"HEM-001": {
			ExamType: "hemograma-completo",
			Result:   "Hemoglobina: 14.5 g/dL, Leucócitos: 7200/μL",
			Date:     "2025-09-15T10:00:00",
		},
		"RX-002": {
			ExamType: "raio-x-torax",
			Result:   "Campos pulmonares livres",
			Date:     "2025-09-14T15:30:00",
		},
	},
}

// examResultHandler looks up exam results for a patient, optionally
// narrowed to one exam ID.
func examResultHandler() Handler {
	return func(ctx context.Context, args map[string]interface{}) (interface{}, error) {
		patientID, err := stringArg(args, "patientId")
		if err != nil {
			return nil, err
		}

		patientExams, ok := sampleExams[patientID]
		if !ok {
			return map[string]interface{}{
				"success": false,
				"message": fmt.Sprintf("Nenhum exame encontrado para paciente %s", patientID),
			}, nil
		}

		if examIDRaw, ok := args["examId"]; ok {
			examID, _ := examIDRaw.(string)
			if examID != "" {
				exam, found := patientExams[examID]
				if !found {
					return map[string]interface{}{
						"success": false,
						"message": fmt.Sprintf("Exame %s não encontrado", examID),
					}, nil
				}

				return map[string]interface{}{
					"success": true,
					"message": fmt.Sprintf("Exame %s encontrado", examID),
					"data": map[string]interface{}{
						"examId":    examID,
						"patientId": patientID,
						"examType":  exam.ExamType,
						"result":    exam.Result,
						"date":      exam.Date,
					},
				}, nil
			}
		}

		examIDs := make([]string, 0, len(patientExams))
		for eid := range patientExams {
			examIDs = append(examIDs, eid)
		}
		sort.Strings(examIDs)

		allExams := make([]map[string]interface{}, 0, len(examIDs))
		for _, eid := range examIDs {
			exam := patientExams[eid]
			allExams = append(allExams, map[string]interface{}{
				"examId":   eid,
				"examType": exam.ExamType,
				"date":     exam.Date,
			})
		}

		return map[string]interface{}{
			"success": true,
			"message": fmt.Sprintf("Encontrados %d exame(s)", len(allExams)),
			"data": map[string]interface{}{
				"patientId": patientID,
				"exams":     allExams,
			},
		}, nil
	}
}
