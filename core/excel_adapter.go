package core

import "github.com/xuri/excelize/v2"

// ExcelFile abstracts workbook operations to decouple the sheet processors
// from excelize.
type ExcelFile interface {
	Close() error
	GetCellValue(sheet, cell string) (string, error)
	GetSheetList() []string
	SaveAs(name string) error
	SetActiveSheet(index int)
	SetCellFormula(sheet, cell, formula string) error
	SetCellValue(sheet, cell string, value interface{}) error
	SetSelection(sheetName, cell string) error
}

type ExcelizeFile struct {
	file *excelize.File
}

// OpenExcelFile opens an existing workbook, typically a template.
func OpenExcelFile(path string) (ExcelFile, error) {
	file, err := excelize.OpenFile(path)
	if err != nil {
		return nil, err
	}
	return &ExcelizeFile{file: file}, nil
}

func (e *ExcelizeFile) Close() error {
	return e.file.Close()
}

func (e *ExcelizeFile) GetCellValue(sheet, cell string) (string, error) {
	return e.file.GetCellValue(sheet, cell)
}

func (e *ExcelizeFile) GetSheetList() []string {
	return e.file.GetSheetList()
}

func (e *ExcelizeFile) SaveAs(name string) error {
	return e.file.SaveAs(name)
}

func (e *ExcelizeFile) SetActiveSheet(index int) {
	e.file.SetActiveSheet(index)
}

func (e *ExcelizeFile) SetCellFormula(sheet, cell, formula string) error {
	return e.file.SetCellFormula(sheet, cell, formula)
}

func (e *ExcelizeFile) SetCellValue(sheet, cell string, value interface{}) error {
	return e.file.SetCellValue(sheet, cell, value)
}

func (e *ExcelizeFile) SetSelection(sheetName, cell string) error {
	panes, err := e.file.GetPanes(sheetName)
	if err == nil {
		panes.Selection = []excelize.Selection{
			{ActiveCell: cell, SQRef: cell},
		}
		return e.file.SetPanes(sheetName, &panes)
	}

	// No panes set yet; install a plain selection.
	return e.file.SetPanes(sheetName, &excelize.Panes{
		Freeze: false,
		Split:  false,
		Selection: []excelize.Selection{
			{ActiveCell: cell, SQRef: cell},
		},
	})
}
