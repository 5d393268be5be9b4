package store

import (
	"encoding/csv"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"leadscout/internal/domain"
	"leadscout/internal/errors"
	"leadscout/internal/qualify"
	"leadscout/internal/scrape/util"
)

const (
	SheetName = "Qualified Leads"

	exportContentRunes = 200
	exportTimeLayout   = "2006-01-02 15:04:05"
)

// Columns is the header shared by every tabular export.
var Columns = []string{
	"Author", "Source", "Content", "URL", "Engagement Score",
	"Is Qualified", "Confidence", "Reason", "Service Match", "Timestamp",
}

// Row is one lead flattened for export.
type Row struct {
	Author     string
	Source     string
	Content    string
	URL        string
	Engagement int
	Qualified  bool
	Confidence float64
	Reason     string
	Services   string
	Timestamp  time.Time
}

func rowOf(l domain.Lead) Row {
	content := l.Content
	if short := util.Truncate(content, exportContentRunes); short != content {
		content = short + "..."
	}
	r := Row{
		Author:     l.Author,
		Source:     string(l.Source),
		Content:    content,
		URL:        l.URL,
		Engagement: l.EngagementScore,
		Timestamp:  l.Timestamp.UTC(),
	}
	if q := l.Qualification; q != nil {
		r.Qualified = q.IsQualified
		r.Confidence = q.ConfidenceScore
		r.Reason = q.Reason
		r.Services = strings.Join(q.ServiceMatch, ", ")
	}
	return r
}

// Rows flattens leads, highest confidence first. Ties keep input order.
func Rows(leads []domain.Lead) []Row {
	rows := make([]Row, len(leads))
	for i, l := range leads {
		rows[i] = rowOf(l)
	}
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].Confidence > rows[j].Confidence })
	return rows
}

// Strings renders r in Columns order.
func (r Row) Strings() []string {
	return []string{
		r.Author,
		r.Source,
		r.Content,
		r.URL,
		strconv.Itoa(r.Engagement),
		yesNo(r.Qualified),
		strconv.FormatFloat(r.Confidence, 'f', 2, 64),
		r.Reason,
		r.Services,
		r.Timestamp.Format(exportTimeLayout),
	}
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}

// Selection narrows the leads an export writes.
type Selection struct {
	QualifiedOnly bool
	MinConfidence float64
	// Service keeps leads whose service_match names it ("" keeps all).
	Service string
}

func (s Selection) Apply(leads []domain.Lead) []domain.Lead {
	var out []domain.Lead
	for _, l := range leads {
		q := l.Qualification
		if s.QualifiedOnly && (q == nil || !q.IsQualified) {
			continue
		}
		if s.MinConfidence > 0 && (q == nil || q.ConfidenceScore < s.MinConfidence) {
			continue
		}
		if s.Service != "" && (q == nil || !qualify.MatchesTarget(q.ServiceMatch, s.Service)) {
			continue
		}
		out = append(out, l)
	}
	return out
}

// ExportFileName builds data/qualified_leads[_<svc>]_YYYYMMDD_HHMMSS.<ext>.
func ExportFileName(dir, service, ext string, now time.Time) string {
	name := "qualified_leads"
	if svc := exportSlug(service); svc != "" {
		name += "_" + svc
	}
	return filepath.Join(dir, name+"_"+now.Format("20060102_150405")+"."+ext)
}

func exportSlug(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.NewReplacer("/", "", " ", "_").Replace(s)
}

// ExportCSV writes leads with the Columns header.
func ExportCSV(path string, leads []domain.Lead) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrapf(err, "create %s", filepath.Dir(path))
	}
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "create %s", path)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(Columns); err != nil {
		return errors.Wrap(err, "write csv header")
	}
	for _, r := range Rows(leads) {
		if err := w.Write(r.Strings()); err != nil {
			return errors.Wrap(err, "write csv row")
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return errors.Wrapf(err, "write %s", path)
	}
	return errors.Wrapf(f.Close(), "close %s", path)
}

var columnWidths = []float64{20, 12, 60, 45, 16, 12, 12, 50, 25, 20}

// ExportXLSX writes one styled sheet: a frozen header, then a row per lead
// filled green when qualified and red otherwise.
func ExportXLSX(path string, leads []domain.Lead) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrapf(err, "create %s", filepath.Dir(path))
	}

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName(f.GetSheetName(0), SheetName); err != nil {
		return errors.Wrap(err, "name sheet")
	}

	header, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"366092"}},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center", WrapText: true},
	})
	if err != nil {
		return errors.Wrap(err, "header style")
	}
	green, err := f.NewStyle(&excelize.Style{Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"C6EFCE"}}})
	if err != nil {
		return errors.Wrap(err, "row style")
	}
	red, err := f.NewStyle(&excelize.Style{Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"FFC7CE"}}})
	if err != nil {
		return errors.Wrap(err, "row style")
	}

	last, _ := excelize.ColumnNumberToName(len(Columns))
	hdr := make([]any, len(Columns))
	for i, c := range Columns {
		hdr[i] = c
	}
	if err := f.SetSheetRow(SheetName, "A1", &hdr); err != nil {
		return errors.Wrap(err, "write header")
	}
	if err := f.SetCellStyle(SheetName, "A1", last+"1", header); err != nil {
		return errors.Wrap(err, "style header")
	}

	for i, r := range Rows(leads) {
		n := strconv.Itoa(i + 2)
		vals := []any{
			r.Author, r.Source, r.Content, r.URL, r.Engagement,
			yesNo(r.Qualified), math.Round(r.Confidence*100) / 100, r.Reason, r.Services,
			r.Timestamp.Format(exportTimeLayout),
		}
		if err := f.SetSheetRow(SheetName, "A"+n, &vals); err != nil {
			return errors.Wrapf(err, "write row %d", i+2)
		}
		style := red
		if r.Qualified {
			style = green
		}
		if err := f.SetCellStyle(SheetName, "A"+n, last+n, style); err != nil {
			return errors.Wrapf(err, "style row %d", i+2)
		}
	}

	for i, w := range columnWidths {
		col, _ := excelize.ColumnNumberToName(i + 1)
		if err := f.SetColWidth(SheetName, col, col, w); err != nil {
			return errors.Wrap(err, "column width")
		}
	}
	if err := f.SetPanes(SheetName, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return errors.Wrap(err, "freeze header")
	}

	return errors.Wrapf(f.SaveAs(path), "save %s", path)
}
