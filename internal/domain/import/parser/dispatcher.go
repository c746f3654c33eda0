package parser

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/FACorreiaa/receipt-intake/internal/domain/receipt"
)

// DefaultBlockedExtensions are executable and script types rejected before
// any parser is chosen, whatever MIME type the client declared.
var DefaultBlockedExtensions = []string{
	".exe", ".bat", ".cmd", ".com", ".scr", ".js", ".vbs",
	".msi", ".dll", ".sh", ".ps1", ".jar",
}

// Dispatcher picks a parser from the declared MIME type and file extension.
// It never inspects content.
type Dispatcher struct {
	csv     Parser
	excel   Parser
	json    Parser
	image   Parser
	blocked map[string]struct{}
}

// NewDispatcher wires the four parsers. Any of them may be nil, in which case
// that format is reported as unsupported.
func NewDispatcher(csv, excel, json, image Parser) *Dispatcher {
	d := &Dispatcher{csv: csv, excel: excel, json: json, image: image}
	return d.WithBlockedExtensions(DefaultBlockedExtensions)
}

// WithBlockedExtensions replaces the blocked extension list.
func (d *Dispatcher) WithBlockedExtensions(exts []string) *Dispatcher {
	blocked := make(map[string]struct{}, len(exts))
	for _, ext := range exts {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		blocked[ext] = struct{}{}
	}
	d.blocked = blocked
	return d
}

// Resolve returns the parser for u and the source it will produce.
func (d *Dispatcher) Resolve(u receipt.Upload) (Parser, receipt.Source, error) {
	name := u.Name()
	if ext, ok := d.blockedExtension(name); ok {
		return nil, "", receipt.UnsupportedFormat("dispatch", fmt.Errorf("blocked file type %s in %q", ext, name))
	}

	var (
		p      Parser
		source receipt.Source
	)
	switch {
	case strings.HasPrefix(strings.ToLower(u.MIMEType), "image/"):
		p, source = d.image, receipt.SourceImage
	case u.Ext() == ".csv":
		p, source = d.csv, receipt.SourceCSV
	case u.Ext() == ".xlsx":
		p, source = d.excel, receipt.SourceExcel
	case u.Ext() == ".json":
		p, source = d.json, receipt.SourceJSON
	}

	if p == nil {
		return nil, "", receipt.UnsupportedFormat("dispatch", fmt.Errorf("no parser for %q (%s)", name, u.MIMEType))
	}
	return p, source, nil
}

// Parse resolves the parser for u and runs it.
func (d *Dispatcher) Parse(ctx context.Context, u receipt.Upload) ([]receipt.Record, error) {
	p, _, err := d.Resolve(u)
	if err != nil {
		return nil, err
	}
	return p.Parse(ctx, u)
}

// blockedExtension checks the final extension only, so "scan.jpg.exe" is
// caught while "homedepot.com.jpg" is not.
func (d *Dispatcher) blockedExtension(name string) (string, bool) {
	ext := strings.ToLower(filepath.Ext(name))
	if ext == "" {
		return "", false
	}
	_, ok := d.blocked[ext]
	return ext, ok
}
