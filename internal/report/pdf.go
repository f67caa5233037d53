package report

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf"

	"example.com/divelog/internal/export"
)

// SaveDivePDF renders the dive summary into a PDF document with the dive
// log fingerprint embedded as a QR code.
func SaveDivePDF(sum export.Summary, out string, lang Language) error {
	tr := NewTranslator(lang)

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle(tr.T("title"), true)
	pdf.SetAuthor("divectl", false)
	pdf.SetCreator("divectl", false)
	pdf.SetMargins(15, 20, 15)
	pdf.SetAutoPageBreak(true, 20)
	pdf.AddPage()

	addPDFTitle(pdf, tr.T("title"))
	addSummarySection(pdf, tr, sum)
	addGasMixSection(pdf, tr, sum.GasMixes)
	addMetadataSection(pdf, tr, sum.Metadata)
	if err := addFingerprintSection(pdf, tr, sum.Fingerprint); err != nil {
		return err
	}

	if pdf.Err() {
		return pdf.Error()
	}
	return pdf.OutputFileAndClose(out)
}

func addPDFTitle(pdf *gofpdf.Fpdf, title string) {
	pdf.SetFont("Helvetica", "B", 18)
	pdf.Cell(0, 10, title)
	pdf.Ln(12)
}

func addSummarySection(pdf *gofpdf.Fpdf, tr Translator, sum export.Summary) {
	pdf.SetFont("Helvetica", "B", 12)
	pdf.Cell(0, 8, tr.T("section.summary"))
	pdf.Ln(8)

	water := tr.T("water.salt")
	if sum.WaterType == "fresh" {
		water = tr.T("water.fresh")
	}

	pdf.SetFont("Helvetica", "", 11)
	items := []struct {
		label string
		value string
	}{
		{label: tr.T("label.product"), value: sum.Product},
		{label: tr.T("label.serial"), value: sum.Serial},
		{label: tr.T("label.layout"), value: sum.Layout},
		{label: tr.T("label.logversion"), value: strconv.Itoa(sum.LogVersion)},
		{label: tr.T("label.start"), value: sum.Start.Format(time.RFC1123)},
		{label: tr.T("label.duration"), value: (time.Duration(sum.Duration) * time.Second).String()},
		{label: tr.T("label.maxdepth"), value: tr.Format("value.maxdepth", sum.MaxDepth)},
		{label: tr.T("label.mode"), value: sum.Mode},
		{label: tr.T("label.water"), value: tr.Format("value.density", water, sum.Density)},
		{label: tr.T("label.atmospheric"), value: tr.Format("value.atmospheric", sum.Atmospheric)},
		{label: tr.T("label.samples"), value: strconv.Itoa(sum.SampleCount)},
	}
	for _, item := range items {
		pdf.CellFormat(50, 6, item.label, "", 0, "L", false, 0, "")
		pdf.CellFormat(0, 6, item.value, "", 1, "L", false, 0, "")
	}
	pdf.Ln(4)
}

func addGasMixSection(pdf *gofpdf.Fpdf, tr Translator, mixes []export.GasMixSummary) {
	pdf.SetFont("Helvetica", "B", 12)
	pdf.Cell(0, 8, tr.T("section.gasmixes"))
	pdf.Ln(9)

	headers := []string{
		tr.T("gas.header.index"),
		tr.T("gas.header.o2"),
		tr.T("gas.header.he"),
		tr.T("gas.header.n2"),
	}
	widths := []float64{12, 30, 30, 30}

	pdf.SetFillColor(240, 240, 240)
	pdf.SetFont("Helvetica", "B", 10)
	for i, h := range headers {
		pdf.CellFormat(widths[i], 7, h, "1", 0, "L", true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Helvetica", "", 10)
	for i, mix := range mixes {
		values := []string{
			strconv.Itoa(i),
			tr.Format("gas.value", mix.Oxygen*100),
			tr.Format("gas.value", mix.Helium*100),
			tr.Format("gas.value", mix.Nitrogen*100),
		}
		for j, v := range values {
			pdf.CellFormat(widths[j], 6, v, "1", 0, "L", false, 0, "")
		}
		pdf.Ln(-1)
	}
	pdf.Ln(4)
}

func addMetadataSection(pdf *gofpdf.Fpdf, tr Translator, metadata []export.MetadataSummary) {
	if len(metadata) == 0 {
		return
	}
	pdf.SetFont("Helvetica", "B", 12)
	pdf.Cell(0, 8, tr.T("section.metadata"))
	pdf.Ln(9)

	pdf.SetFont("Helvetica", "", 10)
	for _, m := range metadata {
		desc := strings.TrimSpace(m.Desc)
		if desc == "" {
			desc = "-"
		}
		pdf.CellFormat(60, 5, desc, "", 0, "L", false, 0, "")
		pdf.CellFormat(0, 5, m.Value, "", 1, "L", false, 0, "")
	}
	pdf.Ln(4)
}

func addFingerprintSection(pdf *gofpdf.Fpdf, tr Translator, fingerprint string) error {
	if strings.TrimSpace(fingerprint) == "" {
		return nil
	}
	pdf.SetFont("Helvetica", "B", 12)
	pdf.Cell(0, 8, tr.T("section.fingerprint"))
	pdf.Ln(9)

	png, err := FingerprintToQR(fingerprint, 256)
	if err != nil {
		return fmt.Errorf("fingerprint qr: %w", err)
	}
	opts := gofpdf.ImageOptions{ImageType: "PNG"}
	pdf.RegisterImageOptionsReader("fingerprint-qr", opts, bytes.NewReader(png))
	pdf.ImageOptions("fingerprint-qr", pdf.GetX(), pdf.GetY(), 35, 35, false, opts, 0, "")
	pdf.SetXY(pdf.GetX()+40, pdf.GetY())

	pdf.SetFont("Courier", "", 8)
	pdf.MultiCell(0, 4, fingerprint, "", "L", false)
	pdf.SetFont("Helvetica", "", 9)
	pdf.MultiCell(0, 4, tr.T("fingerprint.caption"), "", "L", false)
	return nil
}
