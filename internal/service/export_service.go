package service

import (
	"fmt"
	"strconv"
	"time"

	"github.com/noah-isme/abroad-api/internal/models"
	"github.com/noah-isme/abroad-api/pkg/export"
)

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

var shortlistColumns = []export.Column{
	{Key: "id", Title: "ID"},
	{Key: "name", Title: "Program"},
	{Key: "university", Title: "University"},
	{Key: "country", Title: "Country"},
	{Key: "field", Title: "Field"},
	{Key: "duration", Title: "Duration"},
	{Key: "tuition_fee", Title: "Tuition fee"},
	{Key: "scholarship", Title: "Scholarship"},
	{Key: "deadline", Title: "Deadline"},
	{Key: "days_left", Title: "Days left"},
	{Key: "urgency", Title: "Urgency"},
}

// ExportService renders the saved-program shortlist as CSV.
type ExportService struct {
	csv              csvRenderer
	urgentWindowDays int
	now              func() time.Time
}

// NewExportService constructs an ExportService.
func NewExportService(csv csvRenderer, urgentWindowDays int) *ExportService {
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	return &ExportService{csv: csv, urgentWindowDays: urgentWindowDays, now: time.Now}
}

// Shortlist renders programs in the given order and returns the CSV bytes with a download filename.
func (s *ExportService) Shortlist(programs []models.Program) ([]byte, string, error) {
	now := s.now()
	rows := make([]map[string]string, 0, len(programs))
	for _, p := range programs {
		deadline := DeadlineFor(p, now, s.urgentWindowDays)
		row := map[string]string{
			"id":          p.ID,
			"name":        p.Name,
			"university":  p.UniversityName(),
			"country":     p.Country,
			"field":       p.Field,
			"scholarship": strconv.FormatFloat(p.Scholarship, 'f', 2, 64),
			"deadline":    deadline.Deadline,
			"days_left":   strconv.Itoa(deadline.DaysLeft),
			"urgency":     string(deadline.Urgency),
		}
		if p.Duration != nil {
			row["duration"] = *p.Duration
		}
		if p.TuitionFee != nil {
			row["tuition_fee"] = strconv.FormatFloat(*p.TuitionFee, 'f', 2, 64)
		}
		rows = append(rows, row)
	}
	data, err := s.csv.Render(export.Dataset{Columns: shortlistColumns, Rows: rows})
	if err != nil {
		return nil, "", fmt.Errorf("render shortlist: %w", err)
	}
	return data, fmt.Sprintf("shortlist-%s.csv", now.UTC().Format("20060102")), nil
}
