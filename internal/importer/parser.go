package importer

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"workforce-import/internal/common/config"
	"workforce-import/internal/common/errors"
)

// ParserConfig carries everything the parser needs. All configuration is
// explicit; the parser reads no ambient state beyond the CSV file itself.
type ParserConfig struct {
	CSVFile    string
	Fields     config.FieldsConfig
	DateFormat string // Go reference layout for the due-date column
	WKID       int
	Timezone   string // IANA name of the timezone the due dates are in
}

// ParseCSV reads the configured CSV file and produces one candidate per
// data row, in input order. The first row must be a header naming the
// mapped columns. Any malformed value aborts with a parse error naming the
// row and column.
func ParseCSV(cfg ParserConfig) ([]*Assignment, error) {
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, errors.NewConfigInvalidError(fmt.Sprintf("unknown timezone %q", cfg.Timezone))
	}

	file, err := os.Open(cfg.CSVFile)
	if err != nil {
		return nil, errors.NewCSVFileNotFoundError(cfg.CSVFile, err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	header, err := reader.Read()
	if err != nil {
		return nil, errors.NewParseError(0, "", "missing header row")
	}

	columns := make(map[string]int, len(header))
	for i, name := range header {
		columns[name] = i
	}
	if err := checkMappedColumns(cfg.Fields, columns); err != nil {
		return nil, err
	}

	var assignments []*Assignment
	for row := 1; ; row++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.NewParseError(row, "", err.Error())
		}

		a, err := parseRow(row, record, columns, cfg, loc)
		if err != nil {
			return nil, err
		}
		assignments = append(assignments, a)
	}
	return assignments, nil
}

func parseRow(row int, record []string, columns map[string]int, cfg ParserConfig, loc *time.Location) (*Assignment, error) {
	cell := func(column string) string {
		return record[columns[column]]
	}

	x, err := strconv.ParseFloat(cell(cfg.Fields.X), 64)
	if err != nil {
		return nil, errors.NewParseError(row, cfg.Fields.X, fmt.Sprintf("not a number: %q", cell(cfg.Fields.X)))
	}
	y, err := strconv.ParseFloat(cell(cfg.Fields.Y), 64)
	if err != nil {
		return nil, errors.NewParseError(row, cfg.Fields.Y, fmt.Sprintf("not a number: %q", cell(cfg.Fields.Y)))
	}
	assignmentType, err := strconv.Atoi(cell(cfg.Fields.AssignmentType))
	if err != nil {
		return nil, errors.NewParseError(row, cfg.Fields.AssignmentType, fmt.Sprintf("not an integer: %q", cell(cfg.Fields.AssignmentType)))
	}

	a := &Assignment{
		Row:      row,
		Geometry: arcgisPoint(x, y, cfg.WKID),

		AssignmentType: assignmentType,
		Location:       cell(cfg.Fields.Location),
		Status:         StatusUnassigned,
	}

	if cfg.Fields.DispatcherID != "" {
		id, err := strconv.ParseInt(cell(cfg.Fields.DispatcherID), 10, 64)
		if err != nil {
			return nil, errors.NewParseError(row, cfg.Fields.DispatcherID, fmt.Sprintf("not an integer: %q", cell(cfg.Fields.DispatcherID)))
		}
		a.DispatcherID = &id
	}
	if cfg.Fields.Description != "" {
		desc := cell(cfg.Fields.Description)
		a.Description = &desc
	}
	if cfg.Fields.Priority != "" {
		priority, err := strconv.Atoi(cell(cfg.Fields.Priority))
		if err != nil {
			return nil, errors.NewParseError(row, cfg.Fields.Priority, fmt.Sprintf("not an integer: %q", cell(cfg.Fields.Priority)))
		}
		a.Priority = &priority
	}
	if cfg.Fields.WorkOrderID != "" {
		workOrder := cell(cfg.Fields.WorkOrderID)
		a.WorkOrderID = &workOrder
	}
	if cfg.Fields.DueDate != "" {
		due, err := parseDueDate(cell(cfg.Fields.DueDate), cfg.DateFormat, loc)
		if err != nil {
			return nil, errors.NewParseError(row, cfg.Fields.DueDate, err.Error())
		}
		a.DueDate = &due
	}
	if cfg.Fields.Worker != "" {
		a.WorkerUsername = cell(cfg.Fields.Worker)
	}
	if cfg.Fields.AttachmentFile != "" {
		a.AttachmentFile = cell(cfg.Fields.AttachmentFile)
	}
	return a, nil
}

// parseDueDate parses the raw value in the source timezone and normalizes
// it to the UTC wire format. A bare date parses to midnight; that is read
// as "due by end of day", so exact midnight becomes 23:59:59 of the same
// civil date before conversion.
func parseDueDate(value, layout string, loc *time.Location) (string, error) {
	t, err := time.ParseInLocation(layout, value, loc)
	if err != nil {
		return "", fmt.Errorf("does not match date format %q: %q", layout, value)
	}
	if t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 {
		t = time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 59, 0, loc)
	}
	return t.UTC().Format(DateWireFormat), nil
}

// checkMappedColumns verifies every supplied column mapping exists in the
// header before any row is parsed.
func checkMappedColumns(fields config.FieldsConfig, columns map[string]int) error {
	mapped := []string{
		fields.X, fields.Y, fields.AssignmentType, fields.Location,
		fields.DispatcherID, fields.Description, fields.Priority,
		fields.WorkOrderID, fields.DueDate, fields.Worker, fields.AttachmentFile,
	}
	for _, column := range mapped {
		if column == "" {
			continue
		}
		if _, ok := columns[column]; !ok {
			return errors.NewConfigInvalidError(fmt.Sprintf("mapped column %q not present in CSV header", column))
		}
	}
	return nil
}
