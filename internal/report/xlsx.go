package report

import (
	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var moneyPrinter = message.NewPrinter(language.English)

// WriteXLSX writes the worker reports to an XLSX workbook at path. The
// workbook has one Wages sheet with a row per worker.
func WriteXLSX(reports []WorkerReport, path string) error {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet("Wages")
	if err != nil {
		return eris.Wrap(err, "report: add sheet")
	}

	header := sheet.AddRow()
	for _, h := range []string{
		"Worker", "Jobs", "Readings", "No Access", "Incomplete",
		"Points", "Bonus", "Base Pay", "Allowance", "Total Pay", "Avg Miles/Job",
	} {
		header.AddCell().SetString(h)
	}

	for _, r := range reports {
		name := r.Name
		if name == "" {
			name = r.UserID
		}
		row := sheet.AddRow()
		row.AddCell().SetString(name)
		row.AddCell().SetInt(r.Jobs)
		row.AddCell().SetInt(r.Summary.SuccessfulReadings)
		row.AddCell().SetInt(r.Summary.NoAccessJobs)
		row.AddCell().SetInt(r.Summary.IncompleteJobs)
		row.AddCell().SetFloat(r.Summary.TotalPoints)
		row.AddCell().SetString(moneyPrinter.Sprintf("%.2f", r.Summary.TotalAward))
		row.AddCell().SetString(moneyPrinter.Sprintf("%.2f", r.Wage.BasePay))
		row.AddCell().SetString(moneyPrinter.Sprintf("%.2f", r.Wage.Allowance))
		row.AddCell().SetString(moneyPrinter.Sprintf("%.2f", r.Wage.Total))
		row.AddCell().SetFloat(r.Wage.AverageDistancePerJob)
	}

	if err := f.Save(path); err != nil {
		return eris.Wrapf(err, "report: save %s", path)
	}
	return nil
}
