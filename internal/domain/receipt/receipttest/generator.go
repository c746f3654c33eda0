// Package receipttest generates realistic receipt fixtures for tests.
package receipttest

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/brianvoe/gofakeit/v6"
)

// Row is a generated tabular receipt row.
type Row struct {
	Vendor   string
	Date     string
	Total    float64
	Tax      float64
	Subtotal float64
	JobID    string
}

// Generator generates receipt test data using gofakeit.
type Generator struct {
	faker *gofakeit.Faker
}

// New creates a generator with a fixed seed so fixtures are reproducible.
func New(seed int64) *Generator {
	return &Generator{faker: gofakeit.New(seed)}
}

var suppliers = []string{
	"ACME Lumber", "BuildCo", "Home Depot", "Ferguson Plumbing",
	"Sunbelt Rentals", "City Permit Office", "Shell", "Graybar Electric",
}

var itemDescriptions = []string{
	"2x4 Studs", "Drywall Sheet", "Concrete Mix", "Copper Pipe",
	"Circular Saw Blade", "Paint Roller", "Roofing Nails", "PVC Elbow",
}

// Vendor returns a plausible supplier name.
func (g *Generator) Vendor() string {
	return g.faker.RandomString(suppliers)
}

// Row generates a single row with tax and subtotal that add up to the total.
func (g *Generator) Row() Row {
	subtotal := round2(g.faker.Float64Range(5, 5000))
	tax := round2(subtotal * 0.13)
	date := g.faker.DateRange(
		time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2025, 12, 31, 0, 0, 0, 0, time.UTC),
	)

	return Row{
		Vendor:   g.Vendor(),
		Date:     date.Format("1/2/2006"),
		Total:    round2(subtotal + tax),
		Tax:      tax,
		Subtotal: subtotal,
		JobID:    fmt.Sprintf("JOB-%04d", g.faker.Number(1, 9999)),
	}
}

// Rows generates n rows.
func (g *Generator) Rows(n int) []Row {
	rows := make([]Row, n)
	for i := range rows {
		rows[i] = g.Row()
	}
	return rows
}

// CSV renders rows with the capitalized header the tabular parsers expect.
func CSV(rows []Row) []byte {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	_ = w.Write([]string{"Vendor", "Date", "Total", "Tax", "Subtotal", "JobID"})
	for _, r := range rows {
		_ = w.Write([]string{
			r.Vendor,
			r.Date,
			fmt.Sprintf("%.2f", r.Total),
			fmt.Sprintf("%.2f", r.Tax),
			fmt.Sprintf("%.2f", r.Subtotal),
			r.JobID,
		})
	}
	w.Flush()
	return buf.Bytes()
}

// JSON renders rows as a top-level array with lower-case keys.
func JSON(rows []Row) []byte {
	out := make([]map[string]any, 0, len(rows))
	for _, r := range rows {
		out = append(out, map[string]any{
			"vendor":   r.Vendor,
			"date":     r.Date,
			"total":    r.Total,
			"tax":      r.Tax,
			"subtotal": r.Subtotal,
			"jobId":    r.JobID,
		})
	}
	data, _ := json.Marshal(out)
	return data
}

// OCRText renders a noisy receipt as an OCR engine might return it.
func (g *Generator) OCRText(vendor string, items int) string {
	var b strings.Builder
	b.WriteString(vendor + "\n")
	b.WriteString("Tel " + g.faker.Phone() + "\n\n")

	var subtotal float64
	for i := 0; i < items; i++ {
		amount := round2(g.faker.Float64Range(1, 400))
		subtotal += amount
		fmt.Fprintf(&b, "%s   %.2f\n", g.faker.RandomString(itemDescriptions), amount)
	}

	tax := round2(subtotal * 0.13)
	fmt.Fprintf(&b, "Subtotal: $%.2f\n", subtotal)
	fmt.Fprintf(&b, "HST: $%.2f\n", tax)
	fmt.Fprintf(&b, "Total: $%.2f\n", subtotal+tax)
	return b.String()
}

func round2(f float64) float64 {
	return float64(int64(f*100+0.5)) / 100
}
