package persist

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/billbatista/acasinha-diary/catalog"
	"github.com/billbatista/acasinha-diary/ledger"
	"github.com/billbatista/acasinha-diary/settings"
)

var ErrInvalidImport = errors.New("import payload must be a JSON object")

const exportTimeLayout = "2006-01-02T15:04:05.000Z07:00"

// Backup is the export document.
type Backup struct {
	Version        int                            `json:"version"`
	Logs           ledger.Logs                    `json:"logs"`
	CustomProducts map[string]catalog.FoodProduct `json:"customProducts"`
	Settings       settings.Settings              `json:"settings"`
	ExportedAt     string                         `json:"exportedAt"`
}

// Export reads the three collections from storage into one indented document.
func (a *Adapter) Export(ctx context.Context) ([]byte, error) {
	logs, err := a.LoadDayLogs(ctx)
	if err != nil {
		return nil, err
	}
	products, err := a.LoadCustomProducts(ctx)
	if err != nil {
		return nil, err
	}
	s, err := a.LoadSettings(ctx)
	if err != nil {
		return nil, err
	}

	doc := Backup{
		Version:        CurrentVersion,
		Logs:           logs,
		CustomProducts: products,
		Settings:       s,
		ExportedAt:     a.now().UTC().Format(exportTimeLayout),
	}
	b, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding export: %w", err)
	}
	return b, nil
}

// ParseBackup decodes an export document. Only a payload that is not a JSON
// object fails; a missing or unreadable collection becomes empty, and
// unreadable settings become the defaults.
func (a *Adapter) ParseBackup(payload []byte) (Backup, error) {
	payload = bytes.TrimSpace(payload)
	if len(payload) == 0 || payload[0] != '{' {
		return Backup{}, ErrInvalidImport
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(payload, &fields); err != nil {
		return Backup{}, fmt.Errorf("%w: %v", ErrInvalidImport, err)
	}

	doc := Backup{
		Logs:           ledger.Logs{},
		CustomProducts: map[string]catalog.FoodProduct{},
		Settings:       settings.Default(),
	}
	if raw, ok := fields["version"]; ok {
		_ = json.Unmarshal(raw, &doc.Version)
	}
	if raw, ok := fields["exportedAt"]; ok {
		_ = json.Unmarshal(raw, &doc.ExportedAt)
	}
	if raw, ok := fields["logs"]; ok {
		var logs ledger.Logs
		if err := json.Unmarshal(raw, &logs); err != nil {
			a.log.Warn().Err(err).Msg("import: logs unreadable, importing none")
		} else if logs != nil {
			doc.Logs = logs
		}
	}
	if raw, ok := fields["customProducts"]; ok {
		var products map[string]catalog.FoodProduct
		if err := json.Unmarshal(raw, &products); err != nil {
			a.log.Warn().Err(err).Msg("import: products unreadable, importing none")
		} else if products != nil {
			doc.CustomProducts = products
		}
	}
	if raw, ok := fields["settings"]; ok {
		s, ok := settings.Decode(raw)
		if !ok {
			s, ok = settings.DecodeObject(raw)
		}
		if !ok {
			a.log.Warn().Msg("import: settings unreadable, using defaults")
			s = settings.Default()
		}
		doc.Settings = s
	}
	return doc, nil
}

// Import overwrites logs, custom products and settings with the document's.
// The writes are independent: when one fails the others still land, and the
// joined error reports every failure.
func (a *Adapter) Import(ctx context.Context, payload []byte) (Backup, error) {
	doc, err := a.ParseBackup(payload)
	if err != nil {
		return Backup{}, err
	}
	err = errors.Join(
		a.SaveDayLogs(ctx, doc.Logs),
		a.SaveCustomProducts(ctx, doc.CustomProducts),
		a.SaveSettings(ctx, doc.Settings),
	)
	return doc, err
}
